package sim

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ardnew/otgmode/pkg"
	"github.com/ardnew/otgmode/port/hal"
)

// These helpers edit a port directory from outside the daemon. Writes go
// through a temporary file and a rename so the poller never sees a partial
// value.

// Prepare creates the port directory layout. Existing files are kept.
func Prepare(dir string) error {
	if err := os.MkdirAll(filepath.Join(dir, dirDevices), 0o755); err != nil {
		return fmt.Errorf("create port directory: %w", err)
	}
	for _, name := range []string{fileLine, fileHeadset} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := writeAtomic(path, "0"); err != nil {
				return err
			}
		}
	}
	return nil
}

// SetHeadset writes an h2w switch state: 0 unplugged, SwitchHeadsetMic
// for a headset with microphone, SwitchHeadsetNoMic for headphones.
func SetHeadset(dir string, state int) error {
	if state < 0 || state > hal.SwitchHeadsetMic|hal.SwitchHeadsetNoMic {
		return fmt.Errorf("%w: headset state %d", pkg.ErrInvalidParameter, state)
	}
	return writeAtomic(filepath.Join(dir, fileHeadset), strconv.Itoa(state))
}

// Attach adds a USB peripheral named name.
func Attach(dir, name string, vendorID, productID uint16) error {
	if err := checkName(name); err != nil {
		return err
	}
	content := fmt.Sprintf("%04x:%04x", vendorID, productID)
	return writeAtomic(filepath.Join(dir, dirDevices, name), content)
}

// Detach removes the peripheral named name.
func Detach(dir, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(dir, dirDevices, name)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", pkg.ErrNoDevice, name)
		}
		return err
	}
	return nil
}

func checkName(name string) error {
	if name == "" || strings.HasPrefix(name, ".") || strings.ContainsRune(name, filepath.Separator) {
		return fmt.Errorf("%w: device name %q", pkg.ErrInvalidParameter, name)
	}
	return nil
}

func writeAtomic(path, value string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}
