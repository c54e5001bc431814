package port

// SignalKind identifies an abstract arbiter input.
type SignalKind uint8

// Signal kinds.
const (
	SignalHeadsetConnected SignalKind = iota + 1
	SignalHeadsetDisconnected
	SignalUSBDeviceConnected
	SignalAllUSBDevicesDisconnected
	SignalDetectionModeChanged
	SignalProbeTimeout // generated by the arbiter's own timer
)

// String returns the signal kind name.
func (k SignalKind) String() string {
	switch k {
	case SignalHeadsetConnected:
		return "headset_connected"
	case SignalHeadsetDisconnected:
		return "headset_disconnected"
	case SignalUSBDeviceConnected:
		return "usb_device_connected"
	case SignalAllUSBDevicesDisconnected:
		return "all_usb_devices_disconnected"
	case SignalDetectionModeChanged:
		return "detection_mode_changed"
	case SignalProbeTimeout:
		return "probe_timeout"
	default:
		return "unknown"
	}
}

// Signal is an immutable arbiter input. Only DetectionModeChanged carries a
// payload.
type Signal struct {
	kind SignalKind
	mode Mode
}

// HeadsetConnected reports a headset without microphone was plugged in.
func HeadsetConnected() Signal { return Signal{kind: SignalHeadsetConnected} }

// HeadsetDisconnected reports the headset-without-microphone condition ended.
func HeadsetDisconnected() Signal { return Signal{kind: SignalHeadsetDisconnected} }

// USBDeviceConnected reports at least one USB peripheral is attached.
func USBDeviceConnected() Signal { return Signal{kind: SignalUSBDeviceConnected} }

// AllUSBDevicesDisconnected reports the last USB peripheral went away.
func AllUSBDevicesDisconnected() Signal { return Signal{kind: SignalAllUSBDevicesDisconnected} }

// DetectionModeChanged requests the port be re-arbitrated under mode.
func DetectionModeChanged(mode Mode) Signal {
	return Signal{kind: SignalDetectionModeChanged, mode: mode}
}

// ProbeTimeout reports the disambiguation window expired.
func ProbeTimeout() Signal { return Signal{kind: SignalProbeTimeout} }

// Kind returns the signal kind.
func (s Signal) Kind() SignalKind { return s.kind }

// Mode returns the payload of a DetectionModeChanged signal.
func (s Signal) Mode() (Mode, bool) {
	return s.mode, s.kind == SignalDetectionModeChanged
}

// String returns the signal name, with its payload if any.
func (s Signal) String() string {
	if s.kind == SignalDetectionModeChanged {
		return s.kind.String() + "(" + s.mode.String() + ")"
	}
	return s.kind.String()
}
