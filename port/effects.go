package port

import (
	"context"
	"time"

	"github.com/ardnew/otgmode/pkg"
)

// =============================================================================
// Collaborators
// =============================================================================

// Line toggles the physical OTG enable line.
type Line interface {
	SetEnabled(enabled bool) error
}

// ModeStore holds the user's default detection mode durably.
// DefaultMode returns ModeAuto when nothing was stored.
type ModeStore interface {
	DefaultMode(ctx context.Context) (Mode, error)
	SetDefaultMode(ctx context.Context, mode Mode) error
}

// Notifier updates or cancels the user-visible port indicator.
type Notifier interface {
	Notify(notice Notice)
}

// Announcer fans out the "all devices disconnected" notification to any
// open UI so it can dismiss itself.
type Announcer interface {
	AnnounceDisconnected()
}

// Observer receives arbiter activity for metrics.
type Observer interface {
	Signal(sig Signal, state State, result pkg.Result)
	Transition(from, to State)
	LineWrite(enabled bool, err error)
}

// Effects bundles the collaborators the arbiter emits intents to.
// Nil fields are replaced by no-ops.
type Effects struct {
	Line      Line
	Store     ModeStore
	Notifier  Notifier
	Announcer Announcer
}

type nopEffects struct{}

func (nopEffects) SetEnabled(bool) error { return nil }
func (nopEffects) DefaultMode(context.Context) (Mode, error) { return ModeAuto, nil }
func (nopEffects) SetDefaultMode(context.Context, Mode) error { return nil }
func (nopEffects) Notify(Notice) {}
func (nopEffects) AnnounceDisconnected() {}
func (nopEffects) Signal(Signal, State, pkg.Result) {}
func (nopEffects) Transition(State, State) {}
func (nopEffects) LineWrite(bool, error) {}

func (fx Effects) withDefaults() Effects {
	if fx.Line == nil {
		fx.Line = nopEffects{}
	}
	if fx.Store == nil {
		fx.Store = nopEffects{}
	}
	if fx.Notifier == nil {
		fx.Notifier = nopEffects{}
	}
	if fx.Announcer == nil {
		fx.Announcer = nopEffects{}
	}
	return fx
}

// =============================================================================
// Clock
// =============================================================================

// Timer is a cancellable one-shot timer.
type Timer interface {
	C() <-chan time.Time
	Stop() bool
}

// Clock creates timers. Tests substitute a manual clock.
type Clock interface {
	NewTimer(d time.Duration) Timer
}

type realClock struct{}

type realTimer struct{ t *time.Timer }

func (realClock) NewTimer(d time.Duration) Timer { return realTimer{time.NewTimer(d)} }

func (r realTimer) C() <-chan time.Time { return r.t.C }
func (r realTimer) Stop() bool { return r.t.Stop() }
