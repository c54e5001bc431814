package store

import (
	"fmt"

	"github.com/ardnew/otgmode/port"
)

// keyDetectionMode is the key holding the default mode.
const keyDetectionMode = "detection_mode"

var (
	_ port.ModeStore = (*Badger)(nil)
	_ port.ModeStore = (*Memory)(nil)
)

func encodeMode(m port.Mode) ([]byte, error) {
	return m.MarshalText()
}

func decodeMode(b []byte) (port.Mode, error) {
	var m port.Mode
	if err := m.UnmarshalText(b); err != nil {
		return port.ModeAuto, fmt.Errorf("stored %s: %w", keyDetectionMode, err)
	}
	return m, nil
}
