package port

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ardnew/otgmode/pkg"
)

// Mode is the detection mode the user selected for the shared port.
type Mode uint8

// Detection modes. The numeric values match the codes used by the
// persisted preference and by the mode-change request.
const (
	ModeAuto    Mode = iota // Probe with the OTG line, fall back to headset
	ModeHeadset             // Always treat the accessory as a headset
	ModeOTG                 // Always enable USB host mode
)

// Valid reports whether m is one of the defined modes.
func (m Mode) Valid() bool {
	return m <= ModeOTG
}

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeAuto:
		return "auto"
	case ModeHeadset:
		return "headset"
	case ModeOTG:
		return "otg"
	default:
		return "Mode(" + strconv.Itoa(int(m)) + ")"
	}
}

// ParseMode accepts a mode name or its numeric code.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "auto", "0":
		return ModeAuto, nil
	case "headset", "1":
		return ModeHeadset, nil
	case "otg", "2":
		return ModeOTG, nil
	default:
		return ModeAuto, fmt.Errorf("%w: %q", pkg.ErrInvalidMode, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %d", pkg.ErrInvalidMode, m)
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	v, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
