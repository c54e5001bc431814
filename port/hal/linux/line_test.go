//go:build linux

package linux

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ardnew/otgmode/pkg"
)

func newTestLine(t *testing.T) (*Line, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "OTG_status")
	if err := os.WriteFile(path, []byte("0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return NewLine(path), path
}

func TestLine_SetEnabled(t *testing.T) {
	line, path := newTestLine(t)

	tests := []struct {
		enabled bool
		want    string
	}{
		{true, "1"},
		{false, "0"},
		{true, "1"},
	}

	for _, tt := range tests {
		if err := line.SetEnabled(tt.enabled); err != nil {
			t.Fatalf("SetEnabled(%v): %v", tt.enabled, err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != tt.want {
			t.Errorf("after SetEnabled(%v) file = %q, want %q", tt.enabled, data, tt.want)
		}
		got, err := line.Enabled()
		if err != nil {
			t.Fatalf("Enabled: %v", err)
		}
		if got != tt.enabled {
			t.Errorf("Enabled() = %v, want %v", got, tt.enabled)
		}
	}
}

func TestLine_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "OTG_status")
	line := NewLine(path)

	err := line.SetEnabled(true)
	if !errors.Is(err, pkg.ErrLineWrite) || !errors.Is(err, pkg.ErrNoDevice) {
		t.Errorf("SetEnabled error = %v, want ErrLineWrite and ErrNoDevice", err)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Error("SetEnabled created the attribute")
	}
	if _, err := line.Enabled(); !errors.Is(err, pkg.ErrNoDevice) {
		t.Errorf("Enabled error = %v, want ErrNoDevice", err)
	}
}

func TestNewLine_Default(t *testing.T) {
	if got := NewLine("").Path(); got != DefaultOTGLinePath {
		t.Errorf("Path() = %q, want %q", got, DefaultOTGLinePath)
	}
}
