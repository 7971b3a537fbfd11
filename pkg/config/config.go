// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/user/clipdeck/pkg/orchestrator"
	"github.com/user/clipdeck/pkg/ports"
)

// Config represents the full configuration for clipdeck.
type Config struct {
	RecordingsDir string `yaml:"recordings_dir"`
	WallpapersDir string `yaml:"wallpapers_dir"`
	LogLevel      string `yaml:"log_level"`

	Capture CaptureConfig `yaml:"capture"`
	Render  RenderConfig  `yaml:"render"`
	Editor  EditorConfig  `yaml:"editor"`
	Server  ServerConfig  `yaml:"server"`

	// Debug
	Debug    bool   `yaml:"debug"`
	DebugDir string `yaml:"debug_dir"`
}

// CaptureConfig selects the capture backend and its output formats.
type CaptureConfig struct {
	Backend         string  `yaml:"backend"` // screen, synthetic or screen+synthetic
	FPS             float64 `yaml:"fps"`
	JPEGQuality     int     `yaml:"jpeg_quality"`
	AudioSampleRate int     `yaml:"audio_sample_rate"`
	AudioChannels   int     `yaml:"audio_channels"`
}

// RenderConfig tunes the render engine. Zero FPS renders at the display
// track rate; zero Workers uses every CPU.
type RenderConfig struct {
	FPS     float64 `yaml:"fps"`
	Workers int     `yaml:"workers"`
	Quality int     `yaml:"quality"`
}

// EditorConfig configures playback streaming.
type EditorConfig struct {
	StreamHost string `yaml:"stream_host"`
	QueueSize  int    `yaml:"queue_size"`
}

// ServerConfig configures `clipdeck serve`.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Capture backends.
const (
	BackendScreen    = "screen"
	BackendSynthetic = "synthetic"
	BackendMixed     = "screen+synthetic"
)

// DefaultRecordingsDir is ~/.clipdeck/recordings, or a relative directory
// when the home directory is unknown.
func DefaultRecordingsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".clipdeck", "recordings")
	}
	return filepath.Join(home, ".clipdeck", "recordings")
}

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		RecordingsDir: DefaultRecordingsDir(),
		LogLevel:      "info",

		Capture: CaptureConfig{
			Backend:         BackendScreen,
			FPS:             30,
			JPEGQuality:     85,
			AudioSampleRate: 48000,
			AudioChannels:   2,
		},
		Render: RenderConfig{
			Quality: 90,
		},
		Editor: EditorConfig{
			StreamHost: "127.0.0.1",
			QueueSize:  4,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:7410",
		},

		DebugDir: "./debug",
	}
}

// LoadFromFile loads configuration from a YAML file over Defaults.
func LoadFromFile(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

// Load returns Defaults when path is empty and LoadFromFile otherwise.
func Load(path string) (Config, error) {
	if path == "" {
		return Defaults(), nil
	}
	return LoadFromFile(path)
}

// Level returns the configured log level.
func (c Config) Level() ports.LogLevel {
	return ports.ParseLogLevel(c.LogLevel)
}

// Validate checks the values that have a fixed range.
func (c Config) Validate() error {
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error", "quiet":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	switch c.Capture.Backend {
	case BackendScreen, BackendSynthetic, BackendMixed:
	default:
		return fmt.Errorf("unknown capture backend %q", c.Capture.Backend)
	}
	if c.Capture.FPS < 0 || c.Render.FPS < 0 {
		return fmt.Errorf("fps must not be negative")
	}
	if c.Capture.JPEGQuality < 0 || c.Capture.JPEGQuality > 100 {
		return fmt.Errorf("capture.jpeg_quality %d outside [0, 100]", c.Capture.JPEGQuality)
	}
	if c.Render.Quality < 0 || c.Render.Quality > 100 {
		return fmt.Errorf("render.quality %d outside [0, 100]", c.Render.Quality)
	}
	if c.Render.Workers < 0 || c.Editor.QueueSize < 0 {
		return fmt.Errorf("render.workers and editor.queue_size must not be negative")
	}
	return nil
}

// ParseColor parses a hex color string to color.Color.
func ParseColor(hex string) color.Color {
	r, g, b, ok := parseHex(hex)
	if !ok {
		return color.Black
	}
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// ParseRGB parses a "#rrggbb" string into the triple used by project
// colour sources.
func ParseRGB(hex string) ([3]uint8, error) {
	r, g, b, ok := parseHex(hex)
	if !ok {
		return [3]uint8{}, fmt.Errorf("invalid colour %q, expected #rrggbb", hex)
	}
	return [3]uint8{r, g, b}, nil
}

func parseHex(hex string) (r, g, b uint8, ok bool) {
	if len(hex) > 0 && hex[0] == '#' {
		hex = hex[1:]
	}
	if len(hex) != 6 {
		return 0, 0, 0, false
	}
	var v [6]uint8
	for i := 0; i < 6; i++ {
		d, valid := hexValue(hex[i])
		if !valid {
			return 0, 0, 0, false
		}
		v[i] = d
	}
	return v[0]<<4 | v[1], v[2]<<4 | v[3], v[4]<<4 | v[5], true
}

func hexValue(c byte) (uint8, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}

// ToAppConfig converts Config to orchestrator.Config.
func (c Config) ToAppConfig() orchestrator.Config {
	return orchestrator.Config{
		RecordingsDir: c.RecordingsDir,
		WallpapersDir: c.WallpapersDir,

		Backend:         c.Capture.Backend,
		CaptureFPS:      c.Capture.FPS,
		JPEGQuality:     c.Capture.JPEGQuality,
		AudioSampleRate: c.Capture.AudioSampleRate,
		AudioChannels:   c.Capture.AudioChannels,

		RenderFPS:     c.Render.FPS,
		RenderWorkers: c.Render.Workers,
		RenderQuality: c.Render.Quality,

		StreamHost: c.Editor.StreamHost,
		QueueSize:  c.Editor.QueueSize,

		Debug:    c.Debug,
		DebugDir: c.DebugDir,
	}
}
