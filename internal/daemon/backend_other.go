//go:build !linux

package daemon

import (
	"fmt"
	"runtime"

	"github.com/ardnew/otgmode/internal/config"
	"github.com/ardnew/otgmode/pkg"
	"github.com/ardnew/otgmode/port/hal"
)

func newLinuxBackend(config.HALConfig) (hal.Backend, error) {
	return nil, fmt.Errorf("%w: linux backend unavailable on %s", pkg.ErrNoBackend, runtime.GOOS)
}
