package linux

// =============================================================================
// System Paths
// =============================================================================

// DefaultOTGLinePath is the sysfs attribute that powers the shared port's
// OTG host mode. It accepts "1" and "0".
const DefaultOTGLinePath = "/sys/devices/soc.0/78d9000.usb/OTG_status"

// SysfsUSBPath is the base path for USB devices in sysfs.
const SysfsUSBPath = "/sys/bus/usb/devices"

// DefaultHeadsetSwitchPath is the h2w switch state attribute.
const DefaultHeadsetSwitchPath = "/sys/class/switch/h2w/state"

// =============================================================================
// OTG Line Values
// =============================================================================

// Values written to the OTG line attribute.
const (
	lineOn  = "1"
	lineOff = "0"
)

// =============================================================================
// Netlink Constants
// =============================================================================

// UEventBufferSize is the buffer size for netlink messages.
const UEventBufferSize = 4096

// ueventGroupKernel is the netlink multicast group of kernel uevents.
const ueventGroupKernel = 1

// Uevent subsystems and values of interest.
const (
	subsystemUSB    = "usb"
	subsystemSwitch = "switch"
	devtypeDevice   = "usb_device"
)

// =============================================================================
// Polling Constants
// =============================================================================

// MaxEpollEvents is the maximum events to retrieve per epoll_wait call.
const MaxEpollEvents = 8

// pollTimeoutMs bounds each epoll_wait so the loop notices cancellation.
const pollTimeoutMs = 100

// eventQueueSize is the depth of the raw event channel.
const eventQueueSize = 16
