// Package sim provides a file-backed port HAL for development hosts and
// tests.
//
// The simulated port lives in a directory that other processes, such as
// "otgmoded sim", edit to plug accessories in and out:
//
//	/tmp/otgmode-sim/        # Port directory
//	├── otg_status           # OTG line, "1" or "0", written by the arbiter
//	├── headset              # h2w switch state: 0, 1 (mic) or 2 (no mic)
//	└── devices/             # One file per attached USB peripheral
//	    └── 1-1              # Optional content "vvvv:pppp"
//
// The backend polls the directory every 50ms and reports changes as raw
// events, mirroring what the Linux backend reads from netlink.
package sim
