package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCmd builds the otgmoded command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "otgmoded",
		Short: "Headset/USB-OTG port mode arbiter",
		Long: `otgmoded decides whether a shared jack is driven as an audio headset
or as a USB OTG host port, and drives the OTG enable line accordingly.

The daemon is started with 'otgmoded run'. The other commands talk to a
running daemon over its control API or drive a simulated port.

Examples:
  # Run against a simulated port directory
  otgmoded run --backend sim --sim-dir /tmp/port

  # Plug headphones into the simulated port, then attach a USB stick
  otgmoded sim headset 2 --dir /tmp/port
  otgmoded sim attach 1-1 0781:5567 --dir /tmp/port

  # Force OTG mode and keep it as the default
  otgmoded mode otg --persist`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newRunCmd(),
		newModeCmd(),
		newStateCmd(),
		newWatchCmd(),
		newSimCmd(),
		newVersionCmd(),
	)
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
