package config

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/user/clipdeck/pkg/ports"
)

func TestLoadFromFile_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clipdeck.yaml")
	data := []byte(`
recordings_dir: /tmp/recs
log_level: debug
capture:
  backend: synthetic
  fps: 15
render:
  workers: 3
editor:
  queue_size: 8
server:
  addr: ":9000"
`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if cfg.RecordingsDir != "/tmp/recs" || cfg.Capture.Backend != BackendSynthetic || cfg.Capture.FPS != 15 {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.Render.Workers != 3 || cfg.Editor.QueueSize != 8 || cfg.Server.Addr != ":9000" {
		t.Errorf("unexpected config %+v", cfg)
	}
	// Keys absent from the file keep their defaults.
	if cfg.Capture.JPEGQuality != 85 || cfg.Capture.AudioSampleRate != 48000 || cfg.Render.Quality != 90 {
		t.Errorf("expected defaults to survive, got %+v", cfg)
	}
	if cfg.Editor.StreamHost != "127.0.0.1" {
		t.Errorf("expected the default stream host, got %q", cfg.Editor.StreamHost)
	}
	if cfg.Level() != ports.LevelDebug {
		t.Errorf("expected debug level, got %v", cfg.Level())
	}
}

func TestLoadFromFile_Errors(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}

	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	os.WriteFile(bad, []byte("capture: [oops"), 0644)
	if _, err := LoadFromFile(bad); err == nil {
		t.Error("expected an error for malformed YAML")
	}

	invalid := filepath.Join(dir, "invalid.yaml")
	os.WriteFile(invalid, []byte("capture:\n  backend: webcam\n"), 0644)
	if _, err := LoadFromFile(invalid); err == nil {
		t.Error("expected an error for an unknown backend")
	}
}

func TestLoad_EmptyPath(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Capture.Backend != BackendScreen {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"log level", func(c *Config) { c.LogLevel = "loud" }},
		{"jpeg quality", func(c *Config) { c.Capture.JPEGQuality = 101 }},
		{"render quality", func(c *Config) { c.Render.Quality = -1 }},
		{"fps", func(c *Config) { c.Render.FPS = -30 }},
		{"workers", func(c *Config) { c.Render.Workers = -2 }},
	}
	for _, tt := range tests {
		cfg := Defaults()
		tt.modify(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected a validation error", tt.name)
		}
	}
	if err := Defaults().Validate(); err != nil {
		t.Errorf("defaults are invalid: %v", err)
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.Color
	}{
		{"#ff8000", color.RGBA{R: 255, G: 128, A: 255}},
		{"00FF00", color.RGBA{G: 255, A: 255}},
		{"#fff", color.Black},
		{"", color.Black},
		{"#gg0000", color.Black},
	}
	for _, tt := range tests {
		if got := ParseColor(tt.in); got != tt.want {
			t.Errorf("ParseColor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseRGB(t *testing.T) {
	got, err := ParseRGB("#1a2b3c")
	if err != nil {
		t.Fatalf("ParseRGB failed: %v", err)
	}
	if got != [3]uint8{0x1a, 0x2b, 0x3c} {
		t.Errorf("unexpected value %v", got)
	}
	if _, err := ParseRGB("blue"); err == nil {
		t.Error("expected an error for a colour name")
	}
}

func TestToAppConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Capture.Backend = BackendSynthetic
	cfg.Render.Workers = 2
	cfg.Debug = true

	app := cfg.ToAppConfig()
	if app.Backend != BackendSynthetic || app.RenderWorkers != 2 || !app.Debug {
		t.Errorf("unexpected app config %+v", app)
	}
	if app.RecordingsDir != cfg.RecordingsDir || app.QueueSize != 4 || app.RenderQuality != 90 {
		t.Errorf("unexpected app config %+v", app)
	}
}
