package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ardnew/otgmode/internal/config"
)

func TestLoadFromReader_EmptyYieldsDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	def := config.Default()
	if *cfg != *def {
		t.Errorf("config = %+v, want defaults %+v", cfg, def)
	}
	if cfg.Arbiter.ProbeTimeout != 2*time.Second {
		t.Errorf("probe_timeout = %s, want 2s", cfg.Arbiter.ProbeTimeout)
	}
}

func TestLoadFromReader_Overrides(t *testing.T) {
	t.Parallel()
	yaml := `
log:
  level: debug
  format: json
hal:
  backend: sim
  sim_dir: /tmp/port
arbiter:
  probe_timeout: 500ms
store:
  in_memory: true
  dir: ""
server:
  listen_addr: ":9000"
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("log = %+v", cfg.Log)
	}
	if cfg.HAL.Backend != config.BackendSim || cfg.HAL.SimDir != "/tmp/port" {
		t.Errorf("hal = %+v", cfg.HAL)
	}
	if cfg.HAL.OTGLine != config.DefaultOTGLine {
		t.Errorf("hal.otg_line = %q, want default kept", cfg.HAL.OTGLine)
	}
	if cfg.Arbiter.ProbeTimeout != 500*time.Millisecond {
		t.Errorf("probe_timeout = %s, want 500ms", cfg.Arbiter.ProbeTimeout)
	}
	if !cfg.Store.InMemory {
		t.Error("store.in_memory = false")
	}
	if cfg.Server.ListenAddr != ":9000" {
		t.Errorf("listen_addr = %q", cfg.Server.ListenAddr)
	}
}

func TestLoadFromReader_UnknownKey(t *testing.T) {
	t.Parallel()
	yaml := `
arbiter:
  probe_timout: 1s
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for misspelled key, got nil")
	}
	if !strings.Contains(err.Error(), "probe_timout") {
		t.Errorf("error should name the unknown key, got: %v", err)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		yaml    string
		wantErr []string
	}{
		{
			name:    "bad log level",
			yaml:    "log:\n  level: loud\n",
			wantErr: []string{"log.level"},
		},
		{
			name:    "bad log format",
			yaml:    "log:\n  format: xml\n",
			wantErr: []string{"log.format"},
		},
		{
			name:    "unknown backend",
			yaml:    "hal:\n  backend: usbip\n",
			wantErr: []string{"hal.backend"},
		},
		{
			name:    "sim without dir",
			yaml:    "hal:\n  backend: sim\n  sim_dir: \"\"\n",
			wantErr: []string{"hal.sim_dir"},
		},
		{
			name:    "linux without line",
			yaml:    "hal:\n  otg_line: \"\"\n",
			wantErr: []string{"hal.otg_line"},
		},
		{
			name:    "zero probe timeout",
			yaml:    "arbiter:\n  probe_timeout: 0s\n",
			wantErr: []string{"arbiter.probe_timeout"},
		},
		{
			name:    "huge probe timeout",
			yaml:    "arbiter:\n  probe_timeout: 1h\n",
			wantErr: []string{"arbiter.probe_timeout"},
		},
		{
			name:    "store without dir",
			yaml:    "store:\n  dir: \"\"\n",
			wantErr: []string{"store.dir"},
		},
		{
			name:    "bad listen addr",
			yaml:    "server:\n  listen_addr: localhost\n",
			wantErr: []string{"server.listen_addr"},
		},
		{
			name:    "errors are joined",
			yaml:    "log:\n  level: loud\nhal:\n  backend: usbip\n",
			wantErr: []string{"log.level", "hal.backend"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := config.LoadFromReader(strings.NewReader(tt.yaml))
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			for _, want := range tt.wantErr {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("error should mention %s, got: %v", want, err)
				}
			}
		})
	}
}

func TestValidate_ServerDisabled(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader("server:\n  listen_addr: \"\"\n"))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Server.ListenAddr != "" {
		t.Errorf("listen_addr = %q, want empty", cfg.Server.ListenAddr)
	}
}

func TestLoad_File(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "otgmoded.yaml")
	if err := os.WriteFile(path, []byte("arbiter:\n  probe_timeout: 3s\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Arbiter.ProbeTimeout != 3*time.Second {
		t.Errorf("probe_timeout = %s, want 3s", cfg.Arbiter.ProbeTimeout)
	}

	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load of missing file succeeded")
	}
}
