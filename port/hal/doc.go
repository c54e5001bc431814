// Package hal defines the Hardware Abstraction Layer for a shared
// headset/USB-OTG port.
//
// The HAL sits below the arbiter and exposes only what the arbiter and the
// signal normalizer need:
//   - [Line]: the OTG enable line the arbiter toggles
//   - [DeviceLister]: enumeration of attached USB peripherals
//   - [Backend]: a raw [Event] stream of headset and USB changes
//
// Backends never interpret events. Deciding which port mode applies is the
// job of package port.
//
// # Implementations
//
//   - linux: sysfs for the line and device enumeration, netlink uevents for
//     hotplug and h2w headset switch changes
//   - sim: a directory of plain files, polled, for development hosts and
//     tests
package hal
