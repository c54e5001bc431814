//go:build linux

package linux

import (
	"fmt"
	"os"
	"sync"

	"github.com/ardnew/otgmode/pkg"
)

// Line drives the OTG enable attribute in sysfs.
type Line struct {
	path string
	mu   sync.Mutex
}

// NewLine returns a line backed by the attribute at path. An empty path
// selects DefaultOTGLinePath.
func NewLine(path string) *Line {
	if path == "" {
		path = DefaultOTGLinePath
	}
	return &Line{path: path}
}

// Path returns the attribute path.
func (l *Line) Path() string { return l.path }

// SetEnabled writes "1" or "0" to the attribute. The attribute is never
// created; a missing node reports pkg.ErrNoDevice.
func (l *Line) SetEnabled(enabled bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	value := lineOff
	if enabled {
		value = lineOn
	}

	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %w: %s", pkg.ErrLineWrite, pkg.ErrNoDevice, l.path)
		}
		return fmt.Errorf("%w: %w", pkg.ErrLineWrite, err)
	}
	if _, err := f.WriteString(value); err != nil {
		f.Close()
		return fmt.Errorf("%w: %w", pkg.ErrLineWrite, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %w", pkg.ErrLineWrite, err)
	}

	pkg.LogDebug(pkg.ComponentHAL, "OTG line written", "path", l.path, "value", value)
	return nil
}

// Enabled reads the attribute back. Anything other than "0" counts as on.
func (l *Line) Enabled() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, err := readSysfsString(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, fmt.Errorf("%w: %s", pkg.ErrNoDevice, l.path)
		}
		return false, err
	}
	return s != "" && s != lineOff, nil
}
