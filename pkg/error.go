package pkg

import "errors"

// Port arbitration errors.
var (
	// ErrInvalidMode indicates a detection mode outside auto, headset and otg.
	ErrInvalidMode = errors.New("invalid detection mode")

	// ErrInvalidParameter indicates an invalid parameter was provided.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrAlreadyRunning indicates the arbiter or daemon is already running.
	ErrAlreadyRunning = errors.New("already running")

	// ErrNotRunning indicates the component has not been started.
	ErrNotRunning = errors.New("not running")

	// ErrStopped indicates the arbiter worker has exited and accepts no
	// further signals.
	ErrStopped = errors.New("arbiter stopped")

	// ErrDeferredSlotFull indicates a second signal was deferred before the
	// first was re-delivered.
	ErrDeferredSlotFull = errors.New("deferred signal slot occupied")

	// ErrLineWrite indicates the OTG enable line could not be written.
	ErrLineWrite = errors.New("OTG line write failed")

	// ErrNoBackend indicates an unknown or unavailable HAL backend.
	ErrNoBackend = errors.New("HAL backend not available")

	// ErrNoDevice indicates the hardware node backing a HAL is missing.
	ErrNoDevice = errors.New("device not present")
)

// Result classifies how the arbiter disposed of a signal.
type Result int

// Signal dispositions.
const (
	ResultHandled   Result = iota // Signal caused an action or transition
	ResultIgnored                 // Signal is expected in this state and dropped
	ResultDeferred                // Signal was parked for re-delivery
	ResultUnhandled               // Signal is not in the state's table
)

// String returns a string representation of the result.
func (r Result) String() string {
	switch r {
	case ResultHandled:
		return "handled"
	case ResultIgnored:
		return "ignored"
	case ResultDeferred:
		return "deferred"
	case ResultUnhandled:
		return "unhandled"
	default:
		return "unknown"
	}
}
