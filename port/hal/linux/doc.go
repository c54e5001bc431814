// Package linux provides the port HAL for Linux and Android kernels.
//
// The OTG enable line is a sysfs attribute written with "1" or "0"
// (DefaultOTGLinePath on the Qualcomm 78d9000.usb controller). Attached
// peripherals are enumerated from /sys/bus/usb/devices, and the headset
// jack is read from the h2w switch class.
//
// Hotplug and headset changes arrive as kernel uevents on a netlink socket,
// multiplexed with epoll. It is designed for pure Go with no cgo
// dependencies.
//
// # Requirements
//
// Writing the OTG line requires root or a udev rule granting write access
// to the attribute. Reading the switch and device directories does not.
//
// # Events
//
//   - SUBSYSTEM=switch, SWITCH_NAME=h2w: headset state (bit 0 microphone,
//     bit 1 headphones)
//   - SUBSYSTEM=usb, DEVTYPE=usb_device, add/remove: device attach/detach
//
// Root hubs and interface nodes are never reported.
package linux
