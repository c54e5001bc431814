package config

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ardnew/otgmode/pkg"
)

// maxProbeTimeout bounds arbiter.probe_timeout.
const maxProbeTimeout = time.Minute

// Load reads the YAML configuration file at path and returns a validated
// [Config]. Keys missing from the file keep their [Default] values.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r over the defaults and
// validates the result. Unknown keys are rejected.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Log
	if _, err := pkg.ParseLogLevel(cfg.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level %q is invalid; valid values: debug, info, warn, error", cfg.Log.Level))
	}
	if _, err := pkg.ParseLogFormat(cfg.Log.Format); err != nil {
		errs = append(errs, fmt.Errorf("log.format %q is invalid; valid values: text, json", cfg.Log.Format))
	}

	// HAL
	switch cfg.HAL.Backend {
	case BackendLinux:
		if cfg.HAL.OTGLine == "" {
			errs = append(errs, errors.New("hal.otg_line is required for the linux backend"))
		}
		if cfg.HAL.USBDevices == "" {
			errs = append(errs, errors.New("hal.usb_devices is required for the linux backend"))
		}
		if cfg.HAL.HeadsetSwitch == "" {
			errs = append(errs, errors.New("hal.headset_switch is required for the linux backend"))
		}
	case BackendSim:
		if cfg.HAL.SimDir == "" {
			errs = append(errs, errors.New("hal.sim_dir is required for the sim backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("hal.backend %q is invalid; valid values: linux, sim", cfg.HAL.Backend))
	}

	// Arbiter
	if cfg.Arbiter.ProbeTimeout <= 0 || cfg.Arbiter.ProbeTimeout > maxProbeTimeout {
		errs = append(errs, fmt.Errorf("arbiter.probe_timeout %s is out of range (0, %s]", cfg.Arbiter.ProbeTimeout, maxProbeTimeout))
	}

	// Store
	if !cfg.Store.InMemory && cfg.Store.Dir == "" {
		errs = append(errs, errors.New("store.dir is required unless store.in_memory is set"))
	}

	// Server
	if cfg.Server.ListenAddr != "" {
		if _, _, err := net.SplitHostPort(cfg.Server.ListenAddr); err != nil {
			errs = append(errs, fmt.Errorf("server.listen_addr %q: %w", cfg.Server.ListenAddr, err))
		}
	}

	return errors.Join(errs...)
}
