package commands

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ardnew/otgmode/internal/config"
	"github.com/ardnew/otgmode/internal/daemon"
	"github.com/ardnew/otgmode/pkg"
)

type runOptions struct {
	configPath string
	backend    string
	simDir     string
	listen     string
	logLevel   string
}

func newRunCmd() *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the port mode daemon",
		Long: `Run the port mode daemon until interrupted.

Without --config the built-in defaults are used. Flags override the
corresponding configuration keys.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadRunConfig(cmd, opts)
			if err != nil {
				return err
			}
			if err := pkg.Configure(cfg.Log.Level, cfg.Log.Format); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			d, err := daemon.New(ctx, cfg)
			if err != nil {
				return err
			}
			return d.Run(ctx)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "", "YAML configuration file")
	f.StringVar(&opts.backend, "backend", "", "HAL backend (linux or sim)")
	f.StringVar(&opts.simDir, "sim-dir", "", "port directory of the sim backend")
	f.StringVar(&opts.listen, "listen", "", "control API address (host:port)")
	f.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	return cmd
}

// loadRunConfig reads the config file, if any, and applies flags that
// were set explicitly.
func loadRunConfig(cmd *cobra.Command, opts runOptions) (*config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.Load(opts.configPath); err != nil {
			return nil, err
		}
	}

	f := cmd.Flags()
	if f.Changed("backend") {
		cfg.HAL.Backend = opts.backend
	}
	if f.Changed("sim-dir") {
		cfg.HAL.SimDir = opts.simDir
	}
	if f.Changed("listen") {
		cfg.Server.ListenAddr = opts.listen
	}
	if f.Changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}
