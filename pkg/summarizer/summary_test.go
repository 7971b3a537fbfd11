package summarizer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/user/clipdeck/pkg/adapters/osfilesystem"
	"github.com/user/clipdeck/pkg/mocks"
	"github.com/user/clipdeck/pkg/project"
	"github.com/user/clipdeck/pkg/recording"
)

func testRecording() *recording.Recording {
	return &recording.Recording{
		ID:            "rec-1",
		CreatedAt:     time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		DisplaySource: recording.WindowTarget{ID: 42},
		Display:       recording.VideoTrackMeta{Width: 1920, Height: 1080, FPS: 30, Duration: 12.5},
		Camera:        &recording.VideoTrackMeta{Width: 640, Height: 480, FPS: 30, Duration: 12.4},
		Audio:         &recording.AudioTrackMeta{SampleRate: 48000, Channels: 2, Duration: 12.5},
	}
}

func TestBuilder_WithRecording(t *testing.T) {
	s := NewBuilder().WithRecording(testRecording()).Build()

	if s.Recording.ID != "rec-1" || s.Recording.Source != "window 42" {
		t.Errorf("unexpected recording info %+v", s.Recording)
	}
	if len(s.Tracks) != 3 {
		t.Fatalf("expected 3 tracks, got %d", len(s.Tracks))
	}
	if s.Tracks[0].Detail != "1920x1080 @ 30 fps" || s.Tracks[0].Duration != 12500*time.Millisecond {
		t.Errorf("unexpected display track %+v", s.Tracks[0])
	}
	if s.Tracks[2].Kind != "audio" || s.Tracks[2].Detail != "48000 Hz x2" {
		t.Errorf("unexpected audio track %+v", s.Tracks[2])
	}

	screenOnly := &recording.Recording{ID: "s", DisplaySource: recording.ScreenTarget{}}
	if s := NewBuilder().WithRecording(screenOnly).Build(); len(s.Tracks) != 1 || s.Recording.Source != "screen" {
		t.Errorf("expected a single screen track, got %+v", s)
	}
}

func TestBuilder_WithProject(t *testing.T) {
	cfg := project.Default()
	wide := project.AspectWide
	cfg.AspectRatio = &wide
	cfg.Background.Source = project.GradientSource{From: [3]uint8{255, 0, 0}, To: [3]uint8{0, 0, 255}, Angle: 90}
	cfg.Audio.Improve = true

	s := NewBuilder().WithProject(cfg).Build().Settings
	if s.AspectRatio != "wide" || s.Background != "gradient #ff0000 to #0000ff at 90°" {
		t.Errorf("unexpected settings %+v", s)
	}
	if s.Camera != "bottom right, 30%" || s.Cursor != "pointer 100%" || s.Audio != "improved" {
		t.Errorf("unexpected settings %+v", s)
	}

	cfg = project.Default()
	cfg.Camera.Hide = true
	cfg.Audio.Mute = true
	s = NewBuilder().WithProject(cfg).Build().Settings
	if s.AspectRatio != "auto" || s.Camera != "hidden" || s.Audio != "muted" || s.Background != "color #ffffff" {
		t.Errorf("unexpected settings %+v", s)
	}
}

func TestMarkdownFormatter_Format(t *testing.T) {
	s := NewBuilder().
		WithRecording(testRecording()).
		WithProject(project.Default()).
		WithVideo(VideoInfo{Path: "/out/clip.mp4", FrameCount: 375, Duration: 12500 * time.Millisecond, FileSize: 3 << 20, Width: 1920, Height: 1080, FPS: 30}).
		Build()

	out := NewMarkdownFormatter().Format(s)
	for _, want := range []string{
		"# Render Summary",
		"| ID | rec-1 |",
		"| display | 1920x1080 @ 30 fps | 12.50 s |",
		"| camera | 640x480 @ 30 fps | 12.40 s |",
		"| Background | color #ffffff |",
		"| Frames | 375 |",
		"| File size | 3.00 MB |",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in\n%s", want, out)
		}
	}
	if strings.Contains(out, "incomplete") {
		t.Error("did not expect an incomplete status")
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1536, "1.50 KB"},
		{5 << 30, "5.00 GB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.in); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWriter_Write(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "summary.md")
	w := NewWriter(FormatFunc(func(s *Summary) string { return "report " + s.Recording.ID }), osfilesystem.New())

	if err := w.Write(path, &Summary{Recording: RecordingInfo{ID: "x"}}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "report x" {
		t.Errorf("unexpected file %q, %v", data, err)
	}
}

func TestWriter_WriteError(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.WriteFileFunc = func(path string, data []byte) error { return os.ErrPermission }
	w := NewWriter(NewMarkdownFormatter(), fs)
	if err := w.Write("/x/summary.md", NewSummary()); err == nil {
		t.Error("expected an error")
	}
}
