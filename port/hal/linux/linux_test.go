//go:build linux

package linux

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ardnew/otgmode/pkg"
)

func newTestBackend(t *testing.T) (*Backend, string) {
	t.Helper()
	root := t.TempDir()
	for _, dir := range []string{"usb", "switch/h2w"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	for path, value := range map[string]string{"OTG_status": "0", "switch/h2w/state": "0"} {
		if err := os.WriteFile(filepath.Join(root, path), []byte(value), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	b := New(Config{
		OTGLine:       filepath.Join(root, "OTG_status"),
		USBDevices:    filepath.Join(root, "usb"),
		HeadsetSwitch: filepath.Join(root, "switch/h2w/state"),
	})
	return b, root
}

func TestNew_Defaults(t *testing.T) {
	b := New(Config{})

	if b.Line.Path() != DefaultOTGLinePath {
		t.Errorf("line = %q, want %q", b.Line.Path(), DefaultOTGLinePath)
	}
	if b.usbRoot != SysfsUSBPath {
		t.Errorf("usbRoot = %q, want %q", b.usbRoot, SysfsUSBPath)
	}
	if b.tr.switchName != "h2w" {
		t.Errorf("switchName = %q, want h2w", b.tr.switchName)
	}
}

func TestBackend_Queries(t *testing.T) {
	b, root := newTestBackend(t)
	defer b.Close()

	devices, err := b.Devices()
	if err != nil {
		t.Fatalf("Devices: %v", err)
	}
	if len(devices) != 0 {
		t.Errorf("Devices() = %v, want none", devices)
	}

	writeDevice(t, filepath.Join(root, "usb"), "1-1", "1", "2", "046d", "c52b", "00")
	devices, err = b.Devices()
	if err != nil || len(devices) != 1 {
		t.Fatalf("Devices() = %v, %v; want one device", devices, err)
	}

	if err := os.WriteFile(filepath.Join(root, "switch/h2w/state"), []byte("2"), 0o644); err != nil {
		t.Fatal(err)
	}
	hs, err := b.Headset()
	if err != nil {
		t.Fatalf("Headset: %v", err)
	}
	if !hs.AsHeadset() {
		t.Errorf("Headset() = %+v, want headphones", hs)
	}

	if err := b.SetEnabled(true); err != nil {
		t.Fatalf("SetEnabled: %v", err)
	}
	if on, _ := b.Enabled(); !on {
		t.Error("Enabled() = false after SetEnabled(true)")
	}
}

func TestBackend_CloseWithoutStart(t *testing.T) {
	b, _ := newTestBackend(t)

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

func TestBackend_StartTwice(t *testing.T) {
	b, _ := newTestBackend(t)
	defer b.Close()

	if err := b.Start(t.Context()); err != nil {
		t.Skipf("netlink unavailable: %v", err)
	}
	if err := b.Start(t.Context()); !errors.Is(err, pkg.ErrAlreadyRunning) {
		t.Errorf("second Start = %v, want ErrAlreadyRunning", err)
	}
}
