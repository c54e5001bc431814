//go:build linux

package linux

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ardnew/otgmode/pkg"
	"github.com/ardnew/otgmode/port/hal"
)

// =============================================================================
// Device Enumeration
// =============================================================================

// scanUSBDevices lists the non-root-hub USB devices under root.
func scanUSBDevices(root string) ([]hal.Device, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	var devices []hal.Device

	for _, entry := range entries {
		name := entry.Name()
		if !isDeviceName(name) {
			continue
		}

		dev, err := parseUSBDevice(filepath.Join(root, name))
		if err != nil {
			continue // Skip devices we can't parse
		}

		devices = append(devices, dev)
	}

	return devices, nil
}

// isDeviceName reports whether a sysfs entry names a peripheral. Root hubs
// are "usbN" and interfaces carry a ":config.iface" suffix.
func isDeviceName(name string) bool {
	if name == "" || strings.HasPrefix(name, "usb") {
		return false
	}
	return !strings.Contains(name, ":")
}

// parseUSBDevice reads a device's identity from its sysfs directory.
func parseUSBDevice(sysfsPath string) (hal.Device, error) {
	dev := hal.Device{Name: filepath.Base(sysfsPath)}

	busNum, err := readSysfsUint8(filepath.Join(sysfsPath, "busnum"))
	if err != nil {
		return dev, err
	}
	dev.Bus = busNum

	devNum, err := readSysfsUint8(filepath.Join(sysfsPath, "devnum"))
	if err != nil {
		return dev, err
	}
	dev.Address = devNum

	if v, err := readSysfsHexUint16(filepath.Join(sysfsPath, "idVendor")); err == nil {
		dev.VendorID = v
	}
	if v, err := readSysfsHexUint16(filepath.Join(sysfsPath, "idProduct")); err == nil {
		dev.ProductID = v
	}
	if v, err := readSysfsHexUint8(filepath.Join(sysfsPath, "bDeviceClass")); err == nil {
		dev.Class = v
	}

	return dev, nil
}

// =============================================================================
// Headset Switch
// =============================================================================

// readHeadsetSwitch decodes the h2w switch state attribute.
func readHeadsetSwitch(path string) (hal.HeadsetState, error) {
	s, err := readSysfsString(path)
	if err != nil {
		if os.IsNotExist(err) {
			return hal.HeadsetState{}, fmt.Errorf("%w: %s", pkg.ErrNoDevice, path)
		}
		return hal.HeadsetState{}, err
	}
	state, err := strconv.Atoi(s)
	if err != nil {
		return hal.HeadsetState{}, fmt.Errorf("headset switch %q: %w", s, err)
	}
	return hal.HeadsetFromSwitch(state), nil
}

// =============================================================================
// Sysfs Read Helpers
// =============================================================================

// readSysfsString reads a string from a sysfs attribute file.
func readSysfsString(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// readSysfsUint8 reads an unsigned decimal uint8 from a sysfs attribute file.
func readSysfsUint8(path string) (uint8, error) {
	s, err := readSysfsString(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, err
	}
	return uint8(v), nil
}

// readSysfsHex reads a hexadecimal value from a sysfs attribute file.
func readSysfsHex(path string, bitSize int) (uint64, error) {
	s, err := readSysfsString(path)
	if err != nil {
		return 0, err
	}
	s = strings.TrimPrefix(s, "0x")
	return strconv.ParseUint(s, 16, bitSize)
}

// readSysfsHexUint8 reads a hexadecimal uint8 from a sysfs attribute file.
func readSysfsHexUint8(path string) (uint8, error) {
	v, err := readSysfsHex(path, 8)
	if err != nil {
		return 0, err
	}
	return uint8(v), nil
}

// readSysfsHexUint16 reads a hexadecimal uint16 from a sysfs attribute file.
func readSysfsHexUint16(path string) (uint16, error) {
	v, err := readSysfsHex(path, 16)
	if err != nil {
		return 0, err
	}
	return uint16(v), nil
}
