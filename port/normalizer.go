package port

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ardnew/otgmode/pkg"
	"github.com/ardnew/otgmode/port/hal"
)

// Sink receives normalized signals. *Arbiter implements Sink.
type Sink interface {
	Send(ctx context.Context, sig Signal) error
}

// Normalizer turns raw HAL events and mode requests into arbiter signals.
//
// It keeps two bits of history, the last headset-without-microphone
// observation and whether any USB device is considered attached, so that
// repeated identical reports emit nothing. It never touches hardware and
// knows nothing of the arbiter's state.
type Normalizer struct {
	sink    Sink
	devices hal.DeviceLister
	store   ModeStore

	mu        sync.Mutex
	asHeadset bool
	usb       bool
}

// NewNormalizer creates a normalizer feeding sink. devices is consulted on
// every USB detach; store persists mode requests and may be nil when
// persistence is not needed.
func NewNormalizer(sink Sink, devices hal.DeviceLister, store ModeStore) *Normalizer {
	return &Normalizer{
		sink:    sink,
		devices: devices,
		store:   store,
	}
}

// Observed returns the normalizer's view of the port.
func (n *Normalizer) Observed() (asHeadset, usb bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.asHeadset, n.usb
}

// HandleEvent normalizes one raw event and emits at most one signal. State
// is only updated once the signal has been accepted by the sink, so a
// failed emit is retried by the next identical event.
func (n *Normalizer) HandleEvent(ctx context.Context, ev hal.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	switch ev.Kind {
	case hal.EventHeadset:
		now := ev.Headset.AsHeadset()
		if now == n.asHeadset {
			return nil
		}
		sig := HeadsetDisconnected()
		if now {
			sig = HeadsetConnected()
		}
		if err := n.emit(ctx, sig); err != nil {
			return err
		}
		n.asHeadset = now
		return nil

	case hal.EventUSBAttach:
		if n.usb {
			pkg.LogDebug(pkg.ComponentNormalizer, "additional device attached", "device", ev.Device)
			return nil
		}
		if err := n.emit(ctx, USBDeviceConnected()); err != nil {
			return err
		}
		n.usb = true
		return nil

	case hal.EventUSBDetach:
		if n.devices == nil {
			return fmt.Errorf("%w: no device lister", pkg.ErrInvalidParameter)
		}
		devs, err := n.devices.Devices()
		if err != nil {
			return fmt.Errorf("enumerate devices: %w", err)
		}
		if len(devs) > 0 || !n.usb {
			pkg.LogDebug(pkg.ComponentNormalizer, "device detached", "device", ev.Device, "remaining", len(devs))
			return nil
		}
		if err := n.emit(ctx, AllUSBDevicesDisconnected()); err != nil {
			return err
		}
		n.usb = false
		return nil
	}

	return fmt.Errorf("%w: event kind %d", pkg.ErrInvalidParameter, ev.Kind)
}

// RequestMode emits DetectionModeChanged(mode). Invalid modes are rejected
// before anything reaches the arbiter. With persist set the mode is stored
// first and nothing is emitted if storing fails.
func (n *Normalizer) RequestMode(ctx context.Context, mode Mode, persist bool) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: %d", pkg.ErrInvalidMode, uint8(mode))
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if persist {
		if n.store == nil {
			return fmt.Errorf("%w: no mode store", pkg.ErrInvalidParameter)
		}
		if err := n.store.SetDefaultMode(ctx, mode); err != nil {
			return fmt.Errorf("persist default mode: %w", err)
		}
		pkg.LogInfo(pkg.ComponentNormalizer, "default mode stored", "mode", mode)
	}
	return n.emit(ctx, DetectionModeChanged(mode))
}

// Sync reports the port's current condition as if it had just been
// plugged in: the headset state first, then a synthetic attach when
// devices are already present.
func (n *Normalizer) Sync(ctx context.Context, headset hal.HeadsetState) error {
	if err := n.HandleEvent(ctx, hal.Event{Kind: hal.EventHeadset, Headset: headset}); err != nil {
		return err
	}
	if n.devices == nil {
		return nil
	}
	devs, err := n.devices.Devices()
	if err != nil {
		return fmt.Errorf("enumerate devices: %w", err)
	}
	if len(devs) == 0 {
		return nil
	}
	return n.HandleEvent(ctx, hal.Event{Kind: hal.EventUSBAttach, Device: devs[0]})
}

// Pump normalizes events until the channel closes or ctx is done. Errors
// from individual events are logged and skipped; a stopped sink ends the
// pump.
func (n *Normalizer) Pump(ctx context.Context, events <-chan hal.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			err := n.HandleEvent(ctx, ev)
			switch {
			case err == nil:
			case errors.Is(err, pkg.ErrStopped):
				return err
			case ctx.Err() != nil:
				return ctx.Err()
			default:
				pkg.LogWarn(pkg.ComponentNormalizer, "event dropped", "event", ev.Kind, "error", err)
			}
		}
	}
}

func (n *Normalizer) emit(ctx context.Context, sig Signal) error {
	if err := n.sink.Send(ctx, sig); err != nil {
		return fmt.Errorf("emit %s: %w", sig, err)
	}
	pkg.LogDebug(pkg.ComponentNormalizer, "signal emitted", "signal", sig)
	return nil
}
