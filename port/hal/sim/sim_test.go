package sim

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ardnew/otgmode/pkg"
	"github.com/ardnew/otgmode/port/hal"
)

func startBackend(t *testing.T) (*Backend, string) {
	t.Helper()
	dir := t.TempDir()
	b := New(dir)
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b, dir
}

func nextEvent(t *testing.T, b *Backend) hal.Event {
	t.Helper()
	select {
	case ev, ok := <-b.Events():
		if !ok {
			t.Fatal("event channel closed")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no event within 2s")
	}
	return hal.Event{}
}

// =============================================================================
// Line Tests
// =============================================================================

func TestBackend_Line(t *testing.T) {
	b := New(t.TempDir())

	if on, err := b.Enabled(); err != nil || on {
		t.Errorf("Enabled() before write = %v, %v; want false, nil", on, err)
	}
	if err := b.SetEnabled(true); err != nil {
		t.Fatalf("SetEnabled: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(b.Dir(), fileLine))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "1" {
		t.Errorf("otg_status = %q, want 1", data)
	}
	if on, _ := b.Enabled(); !on {
		t.Error("Enabled() = false after SetEnabled(true)")
	}
}

func TestBackend_LineMissingDir(t *testing.T) {
	b := New(filepath.Join(t.TempDir(), "absent"))
	if err := b.SetEnabled(true); !errors.Is(err, pkg.ErrLineWrite) {
		t.Errorf("SetEnabled error = %v, want ErrLineWrite", err)
	}
}

// =============================================================================
// Event Tests
// =============================================================================

func TestBackend_HeadsetEvents(t *testing.T) {
	b, dir := startBackend(t)

	if err := SetHeadset(dir, hal.SwitchHeadsetNoMic); err != nil {
		t.Fatal(err)
	}
	ev := nextEvent(t, b)
	if ev.Kind != hal.EventHeadset || !ev.Headset.AsHeadset() {
		t.Errorf("event = %+v, want headphones", ev)
	}

	hs, err := b.Headset()
	if err != nil || !hs.Connected {
		t.Errorf("Headset() = %+v, %v", hs, err)
	}

	if err := SetHeadset(dir, 0); err != nil {
		t.Fatal(err)
	}
	ev = nextEvent(t, b)
	if ev.Kind != hal.EventHeadset || ev.Headset.Connected {
		t.Errorf("event = %+v, want unplugged", ev)
	}
}

func TestBackend_DeviceEvents(t *testing.T) {
	b, dir := startBackend(t)

	if err := Attach(dir, "1-1", 0x046d, 0xc52b); err != nil {
		t.Fatal(err)
	}
	ev := nextEvent(t, b)
	if ev.Kind != hal.EventUSBAttach {
		t.Fatalf("event kind = %v, want usb_attach", ev.Kind)
	}
	if ev.Device.Name != "1-1" || ev.Device.VendorID != 0x046d || ev.Device.ProductID != 0xc52b {
		t.Errorf("device = %+v", ev.Device)
	}

	if err := Detach(dir, "1-1"); err != nil {
		t.Fatal(err)
	}
	ev = nextEvent(t, b)
	if ev.Kind != hal.EventUSBDetach || ev.Device.Name != "1-1" {
		t.Errorf("event = %+v, want usb_detach of 1-1", ev)
	}

	devices, err := b.Devices()
	if err != nil || len(devices) != 0 {
		t.Errorf("Devices() = %v, %v; want none", devices, err)
	}
}

func TestBackend_BaselineNotReported(t *testing.T) {
	dir := t.TempDir()
	if err := Prepare(dir); err != nil {
		t.Fatal(err)
	}
	if err := SetHeadset(dir, hal.SwitchHeadsetNoMic); err != nil {
		t.Fatal(err)
	}
	if err := Attach(dir, "1-1", 0, 0); err != nil {
		t.Fatal(err)
	}

	b := New(dir)
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer b.Close()

	select {
	case ev := <-b.Events():
		t.Errorf("unexpected event %+v", ev)
	case <-time.After(4 * pollInterval):
	}
}

func TestBackend_Lifecycle(t *testing.T) {
	b := New(t.TempDir())
	ctx := context.Background()

	if err := b.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := b.Start(ctx); !errors.Is(err, pkg.ErrAlreadyRunning) {
		t.Errorf("second Start = %v, want ErrAlreadyRunning", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if _, ok := <-b.Events(); ok {
		t.Error("event channel open after Close")
	}
}

// =============================================================================
// Control Helper Tests
// =============================================================================

func TestControl_Validation(t *testing.T) {
	dir := t.TempDir()
	if err := Prepare(dir); err != nil {
		t.Fatal(err)
	}

	if err := SetHeadset(dir, 4); !errors.Is(err, pkg.ErrInvalidParameter) {
		t.Errorf("SetHeadset(4) = %v, want ErrInvalidParameter", err)
	}
	for _, name := range []string{"", ".hidden", "a/b"} {
		if err := Attach(dir, name, 0, 0); !errors.Is(err, pkg.ErrInvalidParameter) {
			t.Errorf("Attach(%q) = %v, want ErrInvalidParameter", name, err)
		}
	}
	if err := Detach(dir, "1-9"); !errors.Is(err, pkg.ErrNoDevice) {
		t.Errorf("Detach(missing) = %v, want ErrNoDevice", err)
	}
}

func TestParseIDs(t *testing.T) {
	tests := []struct {
		in       string
		vid, pid uint16
	}{
		{"046d:c52b", 0x046d, 0xc52b},
		{"", 0, 0},
		{"zz:01", 0, 0},
		{"0781", 0, 0},
	}

	for _, tt := range tests {
		vid, pid := parseIDs(tt.in)
		if vid != tt.vid || pid != tt.pid {
			t.Errorf("parseIDs(%q) = %04x:%04x, want %04x:%04x", tt.in, vid, pid, tt.vid, tt.pid)
		}
	}
}
