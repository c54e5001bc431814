package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/ardnew/otgmode/internal/daemon"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "otgmoded %s (%s, %s/%s)\n",
				daemon.Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
