// Package config loads the otgmoded YAML configuration.
package config

import "time"

// Backend names accepted by hal.backend.
const (
	BackendLinux = "linux"
	BackendSim   = "sim"
)

// Default values.
const (
	DefaultOTGLine       = "/sys/devices/soc.0/78d9000.usb/OTG_status"
	DefaultUSBDevices    = "/sys/bus/usb/devices"
	DefaultHeadsetSwitch = "/sys/class/switch/h2w/state"
	DefaultSimDir        = "/tmp/otgmode-sim"
	DefaultStoreDir      = "/var/lib/otgmoded"
	DefaultListenAddr    = "127.0.0.1:7878"
	DefaultProbeTimeout  = 2 * time.Second
)

// Config is the top-level daemon configuration.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	HAL     HALConfig     `yaml:"hal"`
	Arbiter ArbiterConfig `yaml:"arbiter"`
	Store   StoreConfig   `yaml:"store"`
	Server  ServerConfig  `yaml:"server"`
}

// LogConfig selects the log level and output format.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is text or json.
	Format string `yaml:"format"`
}

// HALConfig selects and locates the hardware backend.
type HALConfig struct {
	// Backend is "linux" or "sim".
	Backend string `yaml:"backend"`

	OTGLine       string `yaml:"otg_line"`
	USBDevices    string `yaml:"usb_devices"`
	HeadsetSwitch string `yaml:"headset_switch"`

	// SimDir is the port directory of the sim backend.
	SimDir string `yaml:"sim_dir"`

	// USBIDs is the usb.ids file used to name peripherals. Empty searches
	// the usual hwdata and usbutils locations.
	USBIDs string `yaml:"usb_ids"`
}

// ArbiterConfig tunes the state machine.
type ArbiterConfig struct {
	// ProbeTimeout is how long DetectWait waits for a USB device.
	ProbeTimeout time.Duration `yaml:"probe_timeout"`
}

// StoreConfig locates the persisted default mode.
type StoreConfig struct {
	Dir      string `yaml:"dir"`
	InMemory bool   `yaml:"in_memory"`
}

// ServerConfig configures the control and metrics HTTP server.
type ServerConfig struct {
	// ListenAddr is host:port. Empty disables the server.
	ListenAddr string `yaml:"listen_addr"`

	// Pprof mounts net/http/pprof under /debug/pprof/.
	Pprof bool `yaml:"pprof"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		HAL: HALConfig{
			Backend:       BackendLinux,
			OTGLine:       DefaultOTGLine,
			USBDevices:    DefaultUSBDevices,
			HeadsetSwitch: DefaultHeadsetSwitch,
			SimDir:        DefaultSimDir,
		},
		Arbiter: ArbiterConfig{
			ProbeTimeout: DefaultProbeTimeout,
		},
		Store: StoreConfig{
			Dir: DefaultStoreDir,
		},
		Server: ServerConfig{
			ListenAddr: DefaultListenAddr,
		},
	}
}
