//go:build linux

package linux

import (
	"bytes"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/ardnew/otgmode/port/hal"
)

// =============================================================================
// UEvent Types
// =============================================================================

// ueventAction represents a udev action.
type ueventAction uint8

const (
	ueventUnknown ueventAction = iota
	ueventAdd
	ueventRemove
	ueventChange
)

// uevent represents a parsed netlink uevent.
type uevent struct {
	action    ueventAction
	devpath   string // DEVPATH value
	subsystem string // SUBSYSTEM value
	devtype   string // DEVTYPE value
	busnum    string // BUSNUM value
	devnum    string // DEVNUM value
	product   string // PRODUCT value, "vid/pid/bcd" in hex

	// Switch class
	switchName  string // SWITCH_NAME
	switchState string // SWITCH_STATE
}

// =============================================================================
// UEvent Parsing
// =============================================================================

// parseUEvent parses a netlink uevent message.
func parseUEvent(data []byte) uevent {
	evt := uevent{}

	for _, line := range bytes.Split(data, []byte{0}) {
		if len(line) == 0 {
			continue
		}

		s := string(line)

		idx := strings.IndexByte(s, '=')
		if idx < 0 {
			// Header line is action@devpath
			if action, devpath, ok := strings.Cut(s, "@"); ok {
				evt.action = parseAction(action)
				evt.devpath = devpath
			}
			continue
		}

		key := s[:idx]
		value := s[idx+1:]

		switch key {
		case "ACTION":
			evt.action = parseAction(value)
		case "DEVPATH":
			evt.devpath = value
		case "SUBSYSTEM":
			evt.subsystem = value
		case "DEVTYPE":
			evt.devtype = value
		case "BUSNUM":
			evt.busnum = value
		case "DEVNUM":
			evt.devnum = value
		case "PRODUCT":
			evt.product = value
		case "SWITCH_NAME":
			evt.switchName = value
		case "SWITCH_STATE":
			evt.switchState = value
		}
	}

	return evt
}

func parseAction(s string) ueventAction {
	switch s {
	case "add":
		return ueventAdd
	case "remove":
		return ueventRemove
	case "change":
		return ueventChange
	default:
		return ueventUnknown
	}
}

// =============================================================================
// Translation
// =============================================================================

// translator turns uevents into raw HAL events.
type translator struct {
	usbRoot    string // sysfs USB device directory
	switchName string // headset switch name, e.g. "h2w"
}

// translate returns the HAL event for evt, if it concerns the port.
func (tr translator) translate(evt uevent) (hal.Event, bool) {
	switch evt.subsystem {
	case subsystemSwitch:
		if evt.switchName != tr.switchName || evt.switchState == "" {
			return hal.Event{}, false
		}
		state, err := strconv.Atoi(evt.switchState)
		if err != nil {
			return hal.Event{}, false
		}
		return hal.Event{Kind: hal.EventHeadset, Headset: hal.HeadsetFromSwitch(state)}, true

	case subsystemUSB:
		if evt.devtype != devtypeDevice {
			return hal.Event{}, false
		}
		name := filepath.Base(evt.devpath)
		if !isDeviceName(name) {
			return hal.Event{}, false
		}
		switch evt.action {
		case ueventAdd:
			dev, err := parseUSBDevice(filepath.Join(tr.usbRoot, name))
			if err != nil {
				dev = evt.device(name)
			}
			return hal.Event{Kind: hal.EventUSBAttach, Device: dev}, true
		case ueventRemove:
			// The sysfs node is already gone.
			return hal.Event{Kind: hal.EventUSBDetach, Device: evt.device(name)}, true
		}
	}
	return hal.Event{}, false
}

// device builds a device description from the uevent's own fields.
func (evt uevent) device(name string) hal.Device {
	dev := hal.Device{Name: name}
	if v, err := strconv.ParseUint(evt.busnum, 10, 8); err == nil {
		dev.Bus = uint8(v)
	}
	if v, err := strconv.ParseUint(evt.devnum, 10, 8); err == nil {
		dev.Address = uint8(v)
	}
	if parts := strings.Split(evt.product, "/"); len(parts) >= 2 {
		if v, err := strconv.ParseUint(parts[0], 16, 16); err == nil {
			dev.VendorID = uint16(v)
		}
		if v, err := strconv.ParseUint(parts[1], 16, 16); err == nil {
			dev.ProductID = uint16(v)
		}
	}
	return dev
}

// =============================================================================
// Hotplug Monitor
// =============================================================================

// hotplugMonitor reads kernel uevents from a netlink socket.
type hotplugMonitor struct {
	fd  int                    // Netlink socket file descriptor
	buf [UEventBufferSize]byte // Buffer for receiving events
}

// newHotplugMonitor opens a non-blocking netlink uevent socket bound to the
// kernel broadcast group.
func newHotplugMonitor() (*hotplugMonitor, error) {
	fd, err := unix.Socket(
		unix.AF_NETLINK,
		unix.SOCK_DGRAM|unix.SOCK_CLOEXEC|unix.SOCK_NONBLOCK,
		unix.NETLINK_KOBJECT_UEVENT,
	)
	if err != nil {
		return nil, err
	}

	addr := unix.SockaddrNetlink{
		Family: unix.AF_NETLINK,
		Groups: ueventGroupKernel,
	}
	if err := unix.Bind(fd, &addr); err != nil {
		unix.Close(fd)
		return nil, err
	}

	return &hotplugMonitor{fd: fd}, nil
}

// close shuts down the hotplug monitor.
func (h *hotplugMonitor) close() error {
	return unix.Close(h.fd)
}

// socketFD returns the netlink socket file descriptor for polling.
func (h *hotplugMonitor) socketFD() int {
	return h.fd
}

// readEvent reads one uevent from the socket. ok is false when no data is
// available.
func (h *hotplugMonitor) readEvent() (evt uevent, ok bool, err error) {
	n, err := unix.Read(h.fd, h.buf[:])
	if err != nil {
		if err == unix.EAGAIN || err == unix.EINTR {
			return uevent{}, false, nil
		}
		return uevent{}, false, err
	}
	if n <= 0 {
		return uevent{}, false, nil
	}
	return parseUEvent(h.buf[:n]), true, nil
}
