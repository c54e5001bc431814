package port

import (
	"fmt"

	"github.com/ardnew/otgmode/pkg"
)

// State is the arbiter's current port mode decision.
type State uint8

// Arbiter states.
const (
	StateDisconnected State = iota // Nothing attached, line off
	StateDetectWait                // Line on, waiting for USB evidence
	StateHeadsetMode               // Committed to audio accessory
	StateOTGMode                   // Committed to USB host
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateDetectWait:
		return "detect_wait"
	case StateHeadsetMode:
		return "headset"
	case StateOTGMode:
		return "otg"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	for v := StateDisconnected; v <= StateOTGMode; v++ {
		if v.String() == string(text) {
			*s = v
			return nil
		}
	}
	return fmt.Errorf("%w: state %q", pkg.ErrInvalidParameter, text)
}

// Notice is the user-visible port indicator. It encodes a connected flag
// and an optional committed mode.
type Notice uint8

// Indicator values.
const (
	NoticeHidden    Notice = iota // Not connected; indicator removed
	NoticeDetecting               // Connected, mode not yet known
	NoticeHeadset                 // Connected as headset
	NoticeOTG                     // Connected as USB host
)

// Connected reports whether the indicator is shown at all.
func (n Notice) Connected() bool {
	return n != NoticeHidden
}

// Mode returns the committed mode shown by the indicator, if any.
func (n Notice) Mode() (Mode, bool) {
	switch n {
	case NoticeHeadset:
		return ModeHeadset, true
	case NoticeOTG:
		return ModeOTG, true
	default:
		return ModeAuto, false
	}
}

// String returns the indicator name.
func (n Notice) String() string {
	switch n {
	case NoticeHidden:
		return "hidden"
	case NoticeDetecting:
		return "detecting"
	case NoticeHeadset:
		return "headset"
	case NoticeOTG:
		return "otg"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (n Notice) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (n *Notice) UnmarshalText(text []byte) error {
	for v := NoticeHidden; v <= NoticeOTG; v++ {
		if v.String() == string(text) {
			*n = v
			return nil
		}
	}
	return fmt.Errorf("%w: notice %q", pkg.ErrInvalidParameter, text)
}
