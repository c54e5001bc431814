package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/spf13/cobra"

	"github.com/ardnew/otgmode/internal/notify"
	"github.com/ardnew/otgmode/internal/server"
	"github.com/ardnew/otgmode/port"
)

func newModeCmd() *cobra.Command {
	var (
		addr    string
		persist bool
	)
	cmd := &cobra.Command{
		Use:       "mode auto|headset|otg",
		Short:     "Request a detection mode",
		Long:      "Request a detection mode from the running daemon. With --persist the mode\nis also stored as the default used on the next plug-in.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"auto", "headset", "otg"},
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := port.ParseMode(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			req := server.ModeRequest{Mode: mode, Persist: persist}
			if err := newClient(addr).post(ctx, "/mode", req, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "mode %s requested\n", mode)
			return nil
		},
	}
	addAddrFlag(cmd, &addr)
	cmd.Flags().BoolVarP(&persist, "persist", "p", false, "store the mode as the default")
	return cmd
}

func newStateCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Print the daemon state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			var st server.StateResponse
			if err := newClient(addr).get(ctx, "/state", &st); err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(st)
		},
	}
	addAddrFlag(cmd, &addr)
	return cmd
}

func newWatchCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream indicator events until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			conn, _, err := websocket.Dial(ctx, newClient(addr).wsURL("/events"), nil)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer conn.CloseNow()

			out := cmd.OutOrStdout()
			for {
				var ev notify.Event
				if err := wsjson.Read(ctx, conn, &ev); err != nil {
					if websocket.CloseStatus(err) == websocket.StatusNormalClosure || ctx.Err() != nil {
						return nil
					}
					return err
				}
				fmt.Fprintf(out, "%s %-20s notice=%s\n", ev.Time.Format("15:04:05.000"), ev.Kind, ev.Notice)
			}
		},
	}
	addAddrFlag(cmd, &addr)
	return cmd
}
