package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ardnew/otgmode/internal/config"
	"github.com/ardnew/otgmode/pkg"
	"github.com/ardnew/otgmode/port/hal/sim"
)

func newSimCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "sim",
		Short: "Drive a simulated port directory",
		Long: `Edit the port directory watched by the sim backend.

Headset states follow the h2w switch: 0 unplugged, 1 headset with
microphone, 2 headphones without microphone.`,
	}
	cmd.PersistentFlags().StringVarP(&dir, "dir", "d", config.DefaultSimDir, "port directory")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "headset <state>",
			Short: "Set the headset switch state",
			Args:  cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				state, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("%w: headset state %q", pkg.ErrInvalidParameter, args[0])
				}
				if err := sim.Prepare(dir); err != nil {
					return err
				}
				return sim.SetHeadset(dir, state)
			},
		},
		&cobra.Command{
			Use:   "attach <name> [vid:pid]",
			Short: "Attach a USB peripheral",
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(_ *cobra.Command, args []string) error {
				var vid, pid uint16
				if len(args) == 2 {
					var err error
					if vid, pid, err = parseVIDPID(args[1]); err != nil {
						return err
					}
				}
				if err := sim.Prepare(dir); err != nil {
					return err
				}
				return sim.Attach(dir, args[0], vid, pid)
			},
		},
		&cobra.Command{
			Use:   "detach <name>",
			Short: "Detach a USB peripheral",
			Args:  cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				return sim.Detach(dir, args[0])
			},
		},
	)
	return cmd
}

func parseVIDPID(s string) (vid, pid uint16, err error) {
	v, p, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q is not vid:pid", pkg.ErrInvalidParameter, s)
	}
	vv, err := strconv.ParseUint(v, 16, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: vendor id %q", pkg.ErrInvalidParameter, v)
	}
	pp, err := strconv.ParseUint(p, 16, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: product id %q", pkg.ErrInvalidParameter, p)
	}
	return uint16(vv), uint16(pp), nil
}
