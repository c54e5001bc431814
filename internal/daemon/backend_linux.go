//go:build linux

package daemon

import (
	"github.com/ardnew/otgmode/internal/config"
	"github.com/ardnew/otgmode/port/hal"
	"github.com/ardnew/otgmode/port/hal/linux"
)

func newLinuxBackend(cfg config.HALConfig) (hal.Backend, error) {
	return linux.New(linux.Config{
		OTGLine:       cfg.OTGLine,
		USBDevices:    cfg.USBDevices,
		HeadsetSwitch: cfg.HeadsetSwitch,
	}), nil
}
