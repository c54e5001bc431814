package hal

import (
	"context"
	"fmt"
)

// =============================================================================
// Headset State
// =============================================================================

// Headset switch state bits as reported by the Android h2w switch class.
const (
	SwitchHeadsetMic   = 1 << 0 // Headset with microphone
	SwitchHeadsetNoMic = 1 << 1 // Headphones without microphone
)

// HeadsetState is the raw headset-jack observation.
type HeadsetState struct {
	Connected  bool // Something is plugged into the jack
	Microphone bool // The plugged accessory reports a microphone
}

// HeadsetFromSwitch decodes an h2w switch state value.
func HeadsetFromSwitch(state int) HeadsetState {
	return HeadsetState{
		Connected:  state != 0,
		Microphone: state&SwitchHeadsetMic != 0,
	}
}

// AsHeadset reports whether the jack looks like a headset without
// microphone, which is the ambiguous case shared with OTG adapters.
func (h HeadsetState) AsHeadset() bool {
	return h.Connected && !h.Microphone
}

// =============================================================================
// USB Devices
// =============================================================================

// Device describes a USB peripheral attached while the port is in host mode.
type Device struct {
	Name      string // Kernel name, e.g. "1-1" or "1-1.2"
	Bus       uint8  // Bus number
	Address   uint8  // Device number on the bus
	VendorID  uint16 // USB Vendor ID
	ProductID uint16 // USB Product ID
	Class     uint8  // bDeviceClass
}

// String returns a compact description of the device.
func (d Device) String() string {
	return fmt.Sprintf("%s [%03d:%03d] %04x:%04x", d.Name, d.Bus, d.Address, d.VendorID, d.ProductID)
}

// =============================================================================
// Events
// =============================================================================

// EventKind identifies a raw hardware event.
type EventKind uint8

// Raw event kinds.
const (
	EventHeadset   EventKind = iota + 1 // Headset jack state report
	EventUSBAttach                      // A USB device was attached
	EventUSBDetach                      // A USB device was detached
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case EventHeadset:
		return "headset"
	case EventUSBAttach:
		return "usb_attach"
	case EventUSBDetach:
		return "usb_detach"
	default:
		return "unknown"
	}
}

// Event is a raw, unnormalized hardware event.
type Event struct {
	Kind    EventKind
	Headset HeadsetState // Valid for EventHeadset
	Device  Device       // Valid for EventUSBAttach and EventUSBDetach
}

// =============================================================================
// Interfaces
// =============================================================================

// Line controls the physical OTG enable line.
//
// SetEnabled must be cheap and idempotent; it is called on every
// transition that touches the line.
type Line interface {
	// SetEnabled drives the line high (host mode power) or low.
	SetEnabled(enabled bool) error

	// Enabled reads back the current line state on a best-effort basis.
	Enabled() (bool, error)
}

// DeviceLister enumerates the USB devices currently attached.
type DeviceLister interface {
	Devices() ([]Device, error)
}

// Backend is a complete hardware abstraction for one shared port.
//
// Events delivers raw events in arrival order once Start has returned.
// The channel is closed after Close.
type Backend interface {
	Line
	DeviceLister

	// Headset reads the current headset jack state.
	Headset() (HeadsetState, error)

	// Start begins event monitoring. The context bounds the monitor's
	// lifetime.
	Start(ctx context.Context) error

	// Events returns the raw event stream.
	Events() <-chan Event

	// Close stops monitoring and releases resources.
	Close() error
}
