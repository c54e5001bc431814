package sim

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ardnew/otgmode/pkg"
	"github.com/ardnew/otgmode/port/hal"
)

// File names inside the port directory.
const (
	fileLine    = "otg_status"
	fileHeadset = "headset"
	dirDevices  = "devices"
)

// Timing constants.
const (
	pollInterval = 50 * time.Millisecond // Directory polling interval
)

// eventQueueSize is the depth of the raw event channel.
const eventQueueSize = 16

// Backend implements hal.Backend on top of a port directory.
type Backend struct {
	dir string // Port directory

	events chan hal.Event

	// Last observed state, owned by the poll goroutine
	headset int
	known   map[string]hal.Device

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	started   bool
	closeOnce sync.Once
}

var _ hal.Backend = (*Backend)(nil)

// New creates a simulated backend rooted at dir. The directory layout is
// created by Start.
func New(dir string) *Backend {
	return &Backend{
		dir:    dir,
		events: make(chan hal.Event, eventQueueSize),
	}
}

// Dir returns the port directory.
func (b *Backend) Dir() string { return b.dir }

// =============================================================================
// Line
// =============================================================================

// SetEnabled writes "1" or "0" to otg_status.
func (b *Backend) SetEnabled(enabled bool) error {
	value := "0"
	if enabled {
		value = "1"
	}
	if err := os.WriteFile(filepath.Join(b.dir, fileLine), []byte(value), 0o644); err != nil {
		return fmt.Errorf("%w: %w", pkg.ErrLineWrite, err)
	}
	return nil
}

// Enabled reads otg_status. A missing file reads as off.
func (b *Backend) Enabled() (bool, error) {
	data, err := os.ReadFile(filepath.Join(b.dir, fileLine))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	s := strings.TrimSpace(string(data))
	return s != "" && s != "0", nil
}

// =============================================================================
// Queries
// =============================================================================

// Devices lists the files under devices/ in name order.
func (b *Backend) Devices() ([]hal.Device, error) {
	return readDevices(filepath.Join(b.dir, dirDevices))
}

// Headset reads the headset file. A missing file reads as unplugged.
func (b *Backend) Headset() (hal.HeadsetState, error) {
	state, err := readSwitch(filepath.Join(b.dir, fileHeadset))
	if err != nil {
		return hal.HeadsetState{}, err
	}
	return hal.HeadsetFromSwitch(state), nil
}

// Events returns the raw event stream.
func (b *Backend) Events() <-chan hal.Event {
	return b.events
}

// =============================================================================
// Lifecycle Methods
// =============================================================================

// Start creates the port directory if needed and begins polling. The
// state found at start is the baseline; only later changes are reported.
func (b *Backend) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.started {
		return pkg.ErrAlreadyRunning
	}
	if err := Prepare(b.dir); err != nil {
		return err
	}

	state, err := readSwitch(filepath.Join(b.dir, fileHeadset))
	if err != nil {
		return err
	}
	devices, err := b.Devices()
	if err != nil {
		return err
	}
	b.headset = state
	b.known = make(map[string]hal.Device, len(devices))
	for _, d := range devices {
		b.known[d.Name] = d
	}

	b.ctx, b.cancel = context.WithCancel(ctx)
	b.started = true

	b.wg.Add(1)
	go b.pollLoop()

	pkg.LogInfo(pkg.ComponentHAL, "simulated HAL started", "dir", b.dir)
	return nil
}

// Close stops polling and closes the event stream.
func (b *Backend) Close() error {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		started := b.started
		b.mu.Unlock()

		if started {
			b.cancel()
			b.wg.Wait()
		}
		close(b.events)
		pkg.LogInfo(pkg.ComponentHAL, "simulated HAL closed")
	})
	return nil
}

// =============================================================================
// Internal Methods
// =============================================================================

// pollLoop polls the port directory for changes.
func (b *Backend) pollLoop() {
	defer b.wg.Done()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.ctx.Done():
			return
		case <-ticker.C:
			if !b.poll() {
				return
			}
		}
	}
}

// poll reports headset changes before device changes. It returns false
// once the context is done.
func (b *Backend) poll() bool {
	state, err := readSwitch(filepath.Join(b.dir, fileHeadset))
	if err != nil {
		pkg.LogWarn(pkg.ComponentHAL, "headset read failed", "error", err)
	} else if state != b.headset {
		b.headset = state
		if !b.emit(hal.Event{Kind: hal.EventHeadset, Headset: hal.HeadsetFromSwitch(state)}) {
			return false
		}
	}

	devices, err := b.Devices()
	if err != nil {
		pkg.LogWarn(pkg.ComponentHAL, "device scan failed", "error", err)
		return true
	}

	present := make(map[string]hal.Device, len(devices))
	for _, d := range devices {
		present[d.Name] = d
		if _, ok := b.known[d.Name]; ok {
			continue
		}
		b.known[d.Name] = d
		if !b.emit(hal.Event{Kind: hal.EventUSBAttach, Device: d}) {
			return false
		}
	}
	for name, d := range b.known {
		if _, ok := present[name]; ok {
			continue
		}
		delete(b.known, name)
		if !b.emit(hal.Event{Kind: hal.EventUSBDetach, Device: d}) {
			return false
		}
	}
	return true
}

func (b *Backend) emit(ev hal.Event) bool {
	pkg.LogDebug(pkg.ComponentHAL, "hardware event", "kind", ev.Kind, "device", ev.Device.Name)
	select {
	case b.events <- ev:
		return true
	case <-b.ctx.Done():
		return false
	}
}

// =============================================================================
// File Helpers
// =============================================================================

func readSwitch(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	s := strings.TrimSpace(string(data))
	if s == "" {
		return 0, nil
	}
	state, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("headset state %q: %w", s, err)
	}
	return state, nil
}

func readDevices(dir string) ([]hal.Device, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var devices []hal.Device
	for i, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		dev := hal.Device{
			Name:    entry.Name(),
			Bus:     1,
			Address: uint8(i + 2),
		}
		if data, err := os.ReadFile(filepath.Join(dir, entry.Name())); err == nil {
			dev.VendorID, dev.ProductID = parseIDs(strings.TrimSpace(string(data)))
		}
		devices = append(devices, dev)
	}
	return devices, nil
}

// parseIDs decodes "vvvv:pppp". Malformed content yields zero IDs.
func parseIDs(s string) (vid, pid uint16) {
	v, p, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0
	}
	vv, err := strconv.ParseUint(v, 16, 16)
	if err != nil {
		return 0, 0
	}
	pp, err := strconv.ParseUint(p, 16, 16)
	if err != nil {
		return 0, 0
	}
	return uint16(vv), uint16(pp)
}
