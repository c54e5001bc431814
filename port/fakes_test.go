package port

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ardnew/otgmode/pkg"
	"github.com/ardnew/otgmode/port/hal"
)

// =============================================================================
// Recording Effects
// =============================================================================

// recorder implements every collaborator and logs effects in order.
type recorder struct {
	mu      sync.Mutex
	events  []string
	lineErr error
	mode    Mode
	modeErr error
	setErr  error
	stored  []Mode
}

func (r *recorder) SetEnabled(enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if enabled {
		r.events = append(r.events, "line:on")
	} else {
		r.events = append(r.events, "line:off")
	}
	return r.lineErr
}

func (r *recorder) DefaultMode(context.Context) (Mode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mode, r.modeErr
}

func (r *recorder) SetDefaultMode(_ context.Context, m Mode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.setErr != nil {
		return r.setErr
	}
	r.mode = m
	r.stored = append(r.stored, m)
	return nil
}

func (r *recorder) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "notify:"+n.String())
}

func (r *recorder) AnnounceDisconnected() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "announce")
}

func (r *recorder) setMode(m Mode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mode = m
}

// take returns the effects recorded so far and clears the log.
func (r *recorder) take() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev := r.events
	r.events = nil
	return ev
}

func (r *recorder) count(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e == event {
			n++
		}
	}
	return n
}

func (r *recorder) effects() Effects {
	return Effects{Line: r, Store: r, Notifier: r, Announcer: r}
}

// countingObserver tallies arbiter activity.
type countingObserver struct {
	mu          sync.Mutex
	results     map[pkg.Result]int
	transitions int
	lineErrors  int
}

func (o *countingObserver) Signal(_ Signal, _ State, res pkg.Result) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.results == nil {
		o.results = make(map[pkg.Result]int)
	}
	o.results[res]++
}

func (o *countingObserver) Transition(State, State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.transitions++
}

func (o *countingObserver) LineWrite(_ bool, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err != nil {
		o.lineErrors++
	}
}

// =============================================================================
// Manual Clock
// =============================================================================

type fakeTimer struct {
	d       time.Duration
	c       chan time.Time
	mu      sync.Mutex
	stopped bool
}

func (t *fakeTimer) C() <-chan time.Time { return t.c }

func (t *fakeTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

func (t *fakeTimer) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// fire delivers the expiry regardless of whether the timer was stopped,
// modelling a timer that fired just before cancellation.
func (t *fakeTimer) fire() {
	select {
	case t.c <- time.Time{}:
	default:
	}
}

type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (c *fakeClock) NewTimer(d time.Duration) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{d: d, c: make(chan time.Time, 1)}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

func (c *fakeClock) last() *fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.timers) == 0 {
		return nil
	}
	return c.timers[len(c.timers)-1]
}

// =============================================================================
// Normalizer Fakes
// =============================================================================

type fakeSink struct {
	mu      sync.Mutex
	signals []Signal
	err     error
}

func (s *fakeSink) Send(_ context.Context, sig Signal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.signals = append(s.signals, sig)
	return nil
}

func (s *fakeSink) take() []Signal {
	s.mu.Lock()
	defer s.mu.Unlock()
	sigs := s.signals
	s.signals = nil
	return sigs
}

type fakeLister struct {
	mu      sync.Mutex
	devices []hal.Device
	err     error
}

func (l *fakeLister) Devices() ([]hal.Device, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]hal.Device(nil), l.devices...), l.err
}

func (l *fakeLister) set(devs ...hal.Device) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.devices = devs
}

// =============================================================================
// Helpers
// =============================================================================

// arbiterIn returns a started arbiter driven into state with an empty
// effect log.
func arbiterIn(t *testing.T, state State) (*Arbiter, *recorder, *fakeClock) {
	t.Helper()
	rec := &recorder{}
	clk := &fakeClock{}
	a := New(rec.effects(), WithClock(clk))
	a.Start()

	switch state {
	case StateDisconnected:
	case StateDetectWait:
		rec.setMode(ModeAuto)
	case StateHeadsetMode:
		rec.setMode(ModeHeadset)
	case StateOTGMode:
		rec.setMode(ModeOTG)
	default:
		t.Fatalf("unknown state %v", state)
	}
	if state != StateDisconnected {
		a.Handle(HeadsetConnected())
	}
	if got := a.State(); got != state {
		t.Fatalf("setup: state = %v, want %v", got, state)
	}
	rec.take()
	rec.setMode(ModeAuto)
	return a, rec, clk
}

func waitState(t *testing.T, a *Arbiter, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if a.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("state = %v, want %v", a.State(), want)
}

func equalEvents(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
