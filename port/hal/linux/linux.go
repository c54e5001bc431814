//go:build linux

package linux

import (
	"context"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/ardnew/otgmode/pkg"
	"github.com/ardnew/otgmode/port/hal"
)

// Config locates the sysfs nodes of the shared port. Empty fields select
// the package defaults.
type Config struct {
	OTGLine       string // OTG enable attribute
	USBDevices    string // sysfs USB device directory
	HeadsetSwitch string // h2w switch state attribute
}

// Backend is the Linux HAL for a shared headset/OTG port.
type Backend struct {
	*Line

	usbRoot    string
	switchPath string
	tr         translator

	poller  *poller
	hotplug *hotplugMonitor
	events  chan hal.Event

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	started   bool
	closeOnce sync.Once
}

var _ hal.Backend = (*Backend)(nil)

// New creates a Linux backend. No resources are acquired until Start.
func New(cfg Config) *Backend {
	if cfg.USBDevices == "" {
		cfg.USBDevices = SysfsUSBPath
	}
	if cfg.HeadsetSwitch == "" {
		cfg.HeadsetSwitch = DefaultHeadsetSwitchPath
	}
	return &Backend{
		Line:       NewLine(cfg.OTGLine),
		usbRoot:    cfg.USBDevices,
		switchPath: cfg.HeadsetSwitch,
		tr: translator{
			usbRoot:    cfg.USBDevices,
			switchName: switchName(cfg.HeadsetSwitch),
		},
		events: make(chan hal.Event, eventQueueSize),
	}
}

// switchName derives the switch class name from its state attribute,
// /sys/class/switch/<name>/state.
func switchName(statePath string) string {
	return filepath.Base(filepath.Dir(statePath))
}

// =============================================================================
// Queries
// =============================================================================

// Devices lists the attached USB peripherals, excluding root hubs.
func (b *Backend) Devices() ([]hal.Device, error) {
	return scanUSBDevices(b.usbRoot)
}

// Headset reads the h2w switch.
func (b *Backend) Headset() (hal.HeadsetState, error) {
	return readHeadsetSwitch(b.switchPath)
}

// Events returns the raw event stream.
func (b *Backend) Events() <-chan hal.Event {
	return b.events
}

// =============================================================================
// Lifecycle Methods
// =============================================================================

// Start opens the uevent socket and begins monitoring until ctx is done or
// Close is called.
func (b *Backend) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.started {
		return pkg.ErrAlreadyRunning
	}

	var err error
	b.poller, err = newPoller()
	if err != nil {
		return err
	}

	b.hotplug, err = newHotplugMonitor()
	if err != nil {
		b.poller.close()
		return err
	}

	if err := b.poller.addFD(b.hotplug.socketFD(), unix.EPOLLIN, b.onHotplugEvent); err != nil {
		b.hotplug.close()
		b.poller.close()
		return err
	}

	b.ctx, b.cancel = context.WithCancel(ctx)
	b.started = true

	b.wg.Add(1)
	go b.pollLoop()

	pkg.LogDebug(pkg.ComponentHAL, "Linux HAL started",
		"otg_line", b.Line.Path(),
		"usb_devices", b.usbRoot,
		"switch", b.tr.switchName)
	return nil
}

// Close stops monitoring, releases the socket and closes the event stream.
func (b *Backend) Close() error {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		started := b.started
		b.mu.Unlock()

		if started {
			b.cancel()
			b.poller.wake()
			b.wg.Wait()
			b.hotplug.close()
			b.poller.close()
		}
		close(b.events)
		pkg.LogDebug(pkg.ComponentHAL, "Linux HAL closed")
	})
	return nil
}

// =============================================================================
// Internal Methods
// =============================================================================

// pollLoop runs the epoll wait loop.
func (b *Backend) pollLoop() {
	defer b.wg.Done()

	for {
		select {
		case <-b.ctx.Done():
			return
		default:
		}

		if _, err := b.poller.pollOnce(pollTimeoutMs); err != nil {
			pkg.LogWarn(pkg.ComponentHAL, "poll error", "error", err)
		}
	}
}

// onHotplugEvent is called when the hotplug socket has data.
func (b *Backend) onHotplugEvent(events uint32) {
	if events&unix.EPOLLIN == 0 {
		return
	}

	for {
		evt, ok, err := b.hotplug.readEvent()
		if err != nil {
			pkg.LogWarn(pkg.ComponentHAL, "uevent read failed", "error", err)
			return
		}
		if !ok {
			return
		}
		ev, ok := b.tr.translate(evt)
		if !ok {
			continue
		}
		pkg.LogDebug(pkg.ComponentHAL, "hardware event", "kind", ev.Kind, "devpath", evt.devpath)
		select {
		case b.events <- ev:
		case <-b.ctx.Done():
			return
		}
	}
}
