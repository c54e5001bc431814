// Command otgmoded arbitrates a shared headset/USB-OTG port.
//
// Usage:
//
//	otgmoded run [--config FILE]     start the daemon
//	otgmoded mode auto|headset|otg   request a detection mode
//	otgmoded state                   print the daemon state
//	otgmoded watch                   stream indicator events
//	otgmoded sim ...                 drive a simulated port directory
//	otgmoded version                 print the version
package main

import (
	"fmt"
	"os"

	"github.com/ardnew/otgmode/cmd/otgmoded/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
