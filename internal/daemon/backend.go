package daemon

import (
	"fmt"

	"github.com/ardnew/otgmode/internal/config"
	"github.com/ardnew/otgmode/pkg"
	"github.com/ardnew/otgmode/port/hal"
	"github.com/ardnew/otgmode/port/hal/sim"
)

// newBackend selects the HAL named by cfg.Backend.
func newBackend(cfg config.HALConfig) (hal.Backend, error) {
	switch cfg.Backend {
	case config.BackendSim:
		return sim.New(cfg.SimDir), nil
	case config.BackendLinux:
		return newLinuxBackend(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", pkg.ErrNoBackend, cfg.Backend)
	}
}
