package usbid

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ardnew/otgmode/pkg"
)

// DefaultPaths lists the usual locations of usb.ids, searched in order.
var DefaultPaths = []string{
	"/usr/share/hwdata/usb.ids",
	"/var/lib/usbutils/usb.ids",
	"/usr/share/misc/usb.ids",
}

// IDs maps vendor and product IDs to names. The zero value is an empty
// database.
type IDs struct {
	vendors  map[uint16]string
	products map[uint32]string // vid<<16 | pid
	source   string
}

// Open loads the first readable file in paths, or DefaultPaths when none
// are given. A missing database yields an empty IDs.
func Open(paths ...string) *IDs {
	if len(paths) == 0 {
		paths = DefaultPaths
	}
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		ids, err := Parse(f)
		f.Close()
		if err != nil {
			pkg.LogWarn(pkg.ComponentHAL, "usb.ids unreadable", "path", path, "error", err)
			continue
		}
		ids.source = path
		pkg.LogDebug(pkg.ComponentHAL, "usb.ids loaded", "path", path, "vendors", len(ids.vendors))
		return ids
	}
	return &IDs{}
}

// Parse reads the usb.ids format. Vendor lines start in column zero with
// four hex digits; product lines are indented by one tab. Class, language,
// and other trailing sections are skipped.
func Parse(r io.Reader) (*IDs, error) {
	ids := &IDs{
		vendors:  make(map[uint16]string),
		products: make(map[uint32]string),
	}

	var vendor uint16
	inVendor := false

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if line == "" || line[0] == '#' {
			continue
		}

		indented := line[0] == '\t'
		if indented && strings.HasPrefix(line, "\t\t") {
			continue // interface
		}

		id, name, ok := splitEntry(strings.TrimPrefix(line, "\t"))
		switch {
		case !ok:
			if !indented {
				inVendor = false
			}
		case indented:
			if inVendor {
				ids.products[key(vendor, id)] = name
			}
		default:
			vendor, inVendor = id, true
			ids.vendors[id] = name
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("parse usb.ids: %w", err)
	}
	return ids, nil
}

// splitEntry decodes "xxxx  Name".
func splitEntry(s string) (uint16, string, bool) {
	if len(s) < 6 || s[4] != ' ' {
		return 0, "", false
	}
	v, err := strconv.ParseUint(s[:4], 16, 16)
	if err != nil {
		return 0, "", false
	}
	return uint16(v), strings.TrimSpace(s[5:]), true
}

func key(vid, pid uint16) uint32 {
	return uint32(vid)<<16 | uint32(pid)
}

// Source returns the file the names were loaded from, if any.
func (ids *IDs) Source() string { return ids.source }

// Vendor returns the vendor name, or "".
func (ids *IDs) Vendor(vid uint16) string {
	return ids.vendors[vid]
}

// Product returns the product name, or "".
func (ids *IDs) Product(vid, pid uint16) string {
	return ids.products[key(vid, pid)]
}

// Describe returns "Vendor Product", whichever parts are known, or the
// numeric "vvvv:pppp" form.
func (ids *IDs) Describe(vid, pid uint16) string {
	vendor, product := ids.Vendor(vid), ids.Product(vid, pid)
	switch {
	case vendor != "" && product != "":
		return vendor + " " + product
	case vendor != "":
		return fmt.Sprintf("%s %04x", vendor, pid)
	default:
		return fmt.Sprintf("%04x:%04x", vid, pid)
	}
}
