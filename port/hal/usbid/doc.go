// Package usbid names USB peripherals from the usb.ids database shipped
// with usbutils/hwdata.
//
// The database is optional. When no file is found every lookup falls back
// to the numeric "vvvv:pppp" form, so callers never need to special-case a
// missing database:
//
//	ids := usbid.Open()
//	name := ids.Describe(dev.VendorID, dev.ProductID)
//
// Lookups are safe for concurrent use once Open or Parse has returned.
package usbid
