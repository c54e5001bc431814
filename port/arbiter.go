package port

import (
	"context"
	"sync"
	"time"

	"github.com/ardnew/otgmode/pkg"
)

// DefaultProbeTimeout is how long DetectWait waits for USB evidence before
// settling on headset mode.
const DefaultProbeTimeout = 2000 * time.Millisecond

// signalQueueSize bounds the number of signals waiting for the worker.
const signalQueueSize = 32

// Option configures an Arbiter.
type Option func(*Arbiter)

// WithProbeTimeout overrides DefaultProbeTimeout. Non-positive values are
// ignored.
func WithProbeTimeout(d time.Duration) Option {
	return func(a *Arbiter) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithClock substitutes the clock used for the probe timer.
func WithClock(c Clock) Option {
	return func(a *Arbiter) {
		if c != nil {
			a.clock = c
		}
	}
}

// WithObserver attaches a metrics observer.
func WithObserver(o Observer) Option {
	return func(a *Arbiter) {
		if o != nil {
			a.observer = o
		}
	}
}

// =============================================================================
// Arbiter
// =============================================================================

// Arbiter is the port mode state machine.
//
// Signals are processed one at a time, either by the Run worker draining
// the queue fed by Send, or directly through Handle. Entry actions of the
// new state run synchronously inside the step that caused the transition.
type Arbiter struct {
	fx       Effects
	observer Observer
	clock    Clock
	timeout  time.Duration

	mu       sync.Mutex
	state    State
	deferred *Signal // at most one, re-delivered after the next transition
	probe    Timer   // armed probe timer, nil when disarmed
	lineOn   bool    // last value commanded to the OTG line
	started  bool
	running  bool

	signals  chan Signal
	kick     chan struct{} // wakes Run when the probe timer changes
	stopped  chan struct{}
	stopOnce sync.Once
}

// New creates an arbiter in the Disconnected state. Entry actions for the
// initial state run on Start, or on the first signal.
func New(fx Effects, opts ...Option) *Arbiter {
	a := &Arbiter{
		fx:       fx.withDefaults(),
		observer: nopEffects{},
		clock:    realClock{},
		timeout:  DefaultProbeTimeout,
		state:    StateDisconnected,
		signals:  make(chan Signal, signalQueueSize),
		kick:     make(chan struct{}, 1),
		stopped:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// State returns the current state.
func (a *Arbiter) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// ProbeArmed reports whether the DetectWait timer is pending.
func (a *Arbiter) ProbeArmed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.probe != nil
}

// Start runs the Disconnected entry actions. It is idempotent.
func (a *Arbiter) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.startLocked()
}

func (a *Arbiter) startLocked() {
	if a.started {
		return
	}
	a.started = true
	pkg.LogDebug(pkg.ComponentArbiter, "arbiter started", "state", a.state)
	a.enter(a.state)
}

// Close cancels the probe timer. The arbiter keeps its state.
func (a *Arbiter) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.disarmProbe()
}

// Send enqueues sig for the Run worker. Signals are processed in the order
// they were enqueued.
func (a *Arbiter) Send(ctx context.Context, sig Signal) error {
	select {
	case <-a.stopped:
		return pkg.ErrStopped
	default:
	}
	select {
	case a.signals <- sig:
		return nil
	case <-a.stopped:
		return pkg.ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run is the arbiter's single worker. It returns when ctx is done, after
// disarming the probe timer. An arbiter runs at most once.
func (a *Arbiter) Run(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return pkg.ErrAlreadyRunning
	}
	select {
	case <-a.stopped:
		a.mu.Unlock()
		return pkg.ErrStopped
	default:
	}
	a.running = true
	a.startLocked()
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.disarmProbe()
		a.running = false
		a.mu.Unlock()
		a.stopOnce.Do(func() { close(a.stopped) })
		pkg.LogDebug(pkg.ComponentArbiter, "arbiter stopped")
	}()

	for {
		// Queued signals take priority over the probe timer.
		select {
		case sig := <-a.signals:
			a.Handle(sig)
			continue
		default:
		}

		t := a.currentProbe()
		var expired <-chan time.Time
		if t != nil {
			expired = t.C()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case sig := <-a.signals:
			a.Handle(sig)
		case <-a.kick:
		case <-expired:
			a.expire(t)
		}
	}
}

// Handle processes sig synchronously and reports whether the current state
// accepted it. Any signal deferred by this step is re-delivered before
// Handle returns.
func (a *Arbiter) Handle(sig Signal) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.startLocked()
	return a.dispatch(sig)
}

func (a *Arbiter) currentProbe() Timer {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.probe
}

// expire delivers ProbeTimeout for timer t unless t was cancelled after it
// fired. Signals already queued are handled first so that observed USB
// activity wins over the timeout.
func (a *Arbiter) expire(t Timer) {
	for drained := false; !drained; {
		select {
		case sig := <-a.signals:
			a.Handle(sig)
		default:
			drained = true
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.probe != t {
		return
	}
	a.probe = nil
	a.dispatch(ProbeTimeout())
}

func (a *Arbiter) dispatch(sig Signal) bool {
	res := a.process(sig)
	for a.deferred != nil {
		next := *a.deferred
		a.deferred = nil
		pkg.LogDebug(pkg.ComponentArbiter, "redelivering deferred signal", "signal", next, "state", a.state)
		a.process(next)
	}
	return res != pkg.ResultUnhandled
}

func (a *Arbiter) process(sig Signal) pkg.Result {
	from := a.state

	var res pkg.Result
	switch a.state {
	case StateDisconnected:
		res = a.onDisconnected(sig)
	case StateDetectWait:
		res = a.onDetectWait(sig)
	case StateHeadsetMode:
		res = a.onHeadsetMode(sig)
	case StateOTGMode:
		res = a.onOTGMode(sig)
	default:
		res = pkg.ResultUnhandled
	}

	a.observer.Signal(sig, from, res)
	if res == pkg.ResultUnhandled {
		pkg.LogDebug(pkg.ComponentArbiter, "unhandled signal dropped", "signal", sig, "state", from)
	} else {
		pkg.LogDebug(pkg.ComponentArbiter, "signal processed", "signal", sig, "state", from, "result", res)
	}
	return res
}

// =============================================================================
// State Handlers
// =============================================================================

func (a *Arbiter) onDisconnected(sig Signal) pkg.Result {
	switch sig.Kind() {
	case SignalHeadsetDisconnected:
		// Seen when a headset with microphone is plugged in.
		return pkg.ResultIgnored
	case SignalHeadsetConnected, SignalDetectionModeChanged:
	default:
		return pkg.ResultUnhandled
	}

	switch a.resolveMode(sig) {
	case ModeHeadset:
		a.transitionTo(StateHeadsetMode)
	case ModeOTG:
		a.setLine(true)
		a.transitionTo(StateOTGMode)
	default:
		a.setLine(true)
		a.transitionTo(StateDetectWait)
	}
	return pkg.ResultHandled
}

func (a *Arbiter) onDetectWait(sig Signal) pkg.Result {
	switch sig.Kind() {
	case SignalHeadsetDisconnected:
		// Powering the OTG line can drop headset detection.
		return pkg.ResultIgnored
	case SignalDetectionModeChanged:
		if !a.park(sig) {
			return pkg.ResultUnhandled
		}
		a.disarmProbe()
		a.setLine(false)
		a.transitionTo(StateDisconnected)
		return pkg.ResultDeferred
	case SignalUSBDeviceConnected:
		a.disarmProbe()
		a.transitionTo(StateOTGMode)
		return pkg.ResultHandled
	case SignalProbeTimeout:
		a.disarmProbe()
		a.setLine(false)
		a.transitionTo(StateHeadsetMode)
		return pkg.ResultHandled
	}
	return pkg.ResultUnhandled
}

func (a *Arbiter) onHeadsetMode(sig Signal) pkg.Result {
	switch sig.Kind() {
	case SignalHeadsetConnected, SignalAllUSBDevicesDisconnected:
		// Normal when arriving from OTG mode.
		return pkg.ResultIgnored
	case SignalHeadsetDisconnected:
		a.transitionTo(StateDisconnected)
		return pkg.ResultHandled
	case SignalDetectionModeChanged:
		if !a.park(sig) {
			return pkg.ResultUnhandled
		}
		a.transitionTo(StateDisconnected)
		return pkg.ResultDeferred
	}
	return pkg.ResultUnhandled
}

func (a *Arbiter) onOTGMode(sig Signal) pkg.Result {
	switch sig.Kind() {
	case SignalHeadsetDisconnected, SignalUSBDeviceConnected:
		// Normal when arriving from headset mode or with several peripherals.
		return pkg.ResultIgnored
	case SignalAllUSBDevicesDisconnected:
		a.transitionTo(StateDisconnected)
		return pkg.ResultHandled
	case SignalDetectionModeChanged:
		if !a.park(sig) {
			return pkg.ResultUnhandled
		}
		a.transitionTo(StateDisconnected)
		return pkg.ResultDeferred
	}
	return pkg.ResultUnhandled
}

// =============================================================================
// Transitions and Effects
// =============================================================================

func (a *Arbiter) transitionTo(to State) {
	from := a.state
	a.state = to
	a.observer.Transition(from, to)
	pkg.LogInfo(pkg.ComponentArbiter, "state changed", "from", from, "to", to)
	a.enter(to)
}

// enter runs the entry actions of s. Line writes precede notifications.
func (a *Arbiter) enter(s State) {
	switch s {
	case StateDisconnected:
		a.setLine(false)
		a.fx.Announcer.AnnounceDisconnected()
		a.fx.Notifier.Notify(NoticeHidden)
	case StateDetectWait:
		a.fx.Notifier.Notify(NoticeDetecting)
		a.armProbe()
	case StateHeadsetMode:
		a.fx.Notifier.Notify(NoticeHeadset)
	case StateOTGMode:
		if !a.lineOn {
			a.setLine(true)
		}
		a.fx.Notifier.Notify(NoticeOTG)
	}
}

// setLine writes the OTG line. Failures are logged and the transition
// proceeds; the next detection cycle retries.
func (a *Arbiter) setLine(enabled bool) {
	a.lineOn = enabled
	err := a.fx.Line.SetEnabled(enabled)
	a.observer.LineWrite(enabled, err)
	if err != nil {
		pkg.LogError(pkg.ComponentArbiter, "OTG line write failed", "enabled", enabled, "error", err)
	}
}

func (a *Arbiter) resolveMode(sig Signal) Mode {
	if m, ok := sig.Mode(); ok {
		return m
	}
	m, err := a.fx.Store.DefaultMode(context.Background())
	if err != nil {
		pkg.LogWarn(pkg.ComponentArbiter, "default mode unavailable, using auto", "error", err)
		return ModeAuto
	}
	if !m.Valid() {
		pkg.LogWarn(pkg.ComponentArbiter, "stored default mode invalid, using auto", "mode", uint8(m))
		return ModeAuto
	}
	return m
}

func (a *Arbiter) park(sig Signal) bool {
	if a.deferred != nil {
		pkg.LogError(pkg.ComponentArbiter, "cannot defer signal",
			"signal", sig,
			"pending", *a.deferred,
			"error", pkg.ErrDeferredSlotFull)
		return false
	}
	a.deferred = &sig
	return true
}

func (a *Arbiter) armProbe() {
	a.disarmProbe()
	a.probe = a.clock.NewTimer(a.timeout)
	a.wake()
}

func (a *Arbiter) disarmProbe() {
	if a.probe == nil {
		return
	}
	a.probe.Stop()
	a.probe = nil
	a.wake()
}

func (a *Arbiter) wake() {
	select {
	case a.kick <- struct{}{}:
	default:
	}
}
