// Package summarizer writes human-readable reports of finished renders.
package summarizer

import (
	"time"

	"github.com/user/clipdeck/pkg/project"
	"github.com/user/clipdeck/pkg/recording"
)

// Summary contains everything reported about one render.
type Summary struct {
	GeneratedAt time.Time

	Recording RecordingInfo
	Tracks    []TrackInfo
	Settings  Settings
	Video     VideoInfo
}

// RecordingInfo identifies the source recording.
type RecordingInfo struct {
	ID         string
	CreatedAt  time.Time
	Source     string
	Incomplete bool
}

// TrackInfo describes one source track.
type TrackInfo struct {
	Kind     string // display, camera or audio
	Detail   string // 1920x1080 @ 30 fps, 48000 Hz x2
	Duration time.Duration
}

// Settings contains the project the render was composed with.
type Settings struct {
	AspectRatio string
	Background  string
	Padding     float64
	Rounding    float64
	Camera      string
	Cursor      string
	Audio       string
}

// VideoInfo contains information about the output video.
type VideoInfo struct {
	Path       string
	FrameCount int
	Duration   time.Duration
	FileSize   int64
	Width      int
	Height     int
	FPS        float64
}

// NewSummary creates a new Summary with the current timestamp.
func NewSummary() *Summary {
	return &Summary{
		GeneratedAt: time.Now(),
	}
}

// Builder provides a fluent interface for building a Summary.
type Builder struct {
	summary *Summary
}

// NewBuilder creates a new Builder.
func NewBuilder() *Builder {
	return &Builder{
		summary: NewSummary(),
	}
}

// WithRecording fills the recording and track sections from rec.
func (b *Builder) WithRecording(rec *recording.Recording) *Builder {
	source := "screen"
	if w, ok := rec.DisplaySource.(recording.WindowTarget); ok {
		source = "window " + itoa(int(w.ID))
	}
	b.summary.Recording = RecordingInfo{
		ID:         rec.ID,
		CreatedAt:  rec.CreatedAt,
		Source:     source,
		Incomplete: rec.Incomplete,
	}

	b.summary.Tracks = []TrackInfo{videoTrack("display", rec.Display)}
	if rec.Camera != nil {
		b.summary.Tracks = append(b.summary.Tracks, videoTrack("camera", *rec.Camera))
	}
	if a := rec.Audio; a != nil {
		b.summary.Tracks = append(b.summary.Tracks, TrackInfo{
			Kind:     "audio",
			Detail:   itoa(a.SampleRate) + " Hz x" + itoa(a.Channels),
			Duration: recording.Seconds(a.Duration),
		})
	}
	return b
}

func videoTrack(kind string, m recording.VideoTrackMeta) TrackInfo {
	return TrackInfo{
		Kind:     kind,
		Detail:   itoa(m.Width) + "x" + itoa(m.Height) + " @ " + ftoa(m.FPS) + " fps",
		Duration: recording.Seconds(m.Duration),
	}
}

// WithProject fills the settings section from cfg.
func (b *Builder) WithProject(cfg *project.Configuration) *Builder {
	s := Settings{
		AspectRatio: "auto",
		Background:  describeSource(cfg.Background.Source),
		Padding:     cfg.Background.Padding,
		Rounding:    cfg.Background.Rounding,
		Cursor:      string(cfg.Cursor.Type) + " " + ftoa(cfg.Cursor.Size) + "%",
		Audio:       "on",
	}
	if cfg.AspectRatio != nil {
		s.AspectRatio = string(*cfg.AspectRatio)
	}
	if cfg.Camera.Hide {
		s.Camera = "hidden"
	} else {
		s.Camera = string(cfg.Camera.Position.Y) + " " + string(cfg.Camera.Position.X) + ", " + ftoa(cfg.Camera.Size) + "%"
	}
	switch {
	case cfg.Audio.Mute:
		s.Audio = "muted"
	case cfg.Audio.Improve:
		s.Audio = "improved"
	}
	b.summary.Settings = s
	return b
}

func describeSource(src project.BackgroundSource) string {
	switch s := src.(type) {
	case project.ColorSource:
		return "color " + hex(s.Value)
	case project.GradientSource:
		return "gradient " + hex(s.From) + " to " + hex(s.To) + " at " + ftoa(s.Angle) + "°"
	case project.WallpaperSource:
		return "wallpaper " + s.ID
	case project.ImageSource:
		return "image " + s.Path
	}
	return "none"
}

// WithVideo sets video output information.
func (b *Builder) WithVideo(video VideoInfo) *Builder {
	b.summary.Video = video
	return b
}

// Build returns the constructed Summary.
func (b *Builder) Build() *Summary {
	return b.summary
}
