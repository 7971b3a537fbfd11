package compose

import (
	"image"
	"testing"
	"time"

	"github.com/user/clipdeck/pkg/mocks"
	"github.com/user/clipdeck/pkg/ports"
	"github.com/user/clipdeck/pkg/recording"
)

func testMedia(t *testing.T, withCamera bool) (*Media, *mocks.VideoTrack, *mocks.Renderer) {
	t.Helper()
	store := mocks.NewMediaStore()
	display := mocks.NewVideoTrack(320, 180, 10, 200*time.Millisecond, 100*time.Millisecond, []byte("jpg"))
	store.PutVideo("/rec/display.mp4", display)

	rec := &recording.Recording{
		ID:      "rec",
		Dir:     "/rec",
		Display: recording.VideoTrackMeta{File: recording.DisplayFile, Width: 320, Height: 180},
	}
	if withCamera {
		store.PutVideo("/rec/camera.mp4", mocks.NewVideoTrack(160, 120, 10, 200*time.Millisecond, 100*time.Millisecond, []byte("cam")))
		rec.Camera = &recording.VideoTrackMeta{File: recording.CameraFile, Width: 160, Height: 120}
	}
	cursor := recording.NewCursorTrack([]recording.CursorSample{
		{T: 0.5, X: 0.25, Y: 0.75, Shape: ports.CursorIBeam},
	})

	r := &mocks.Renderer{}
	m, err := Open(store, rec, cursor, r)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m, display, r
}

func TestMedia_Timing(t *testing.T) {
	m, _, _ := testMedia(t, false)
	if m.Start() != 200*time.Millisecond {
		t.Errorf("expected start 200ms, got %v", m.Start())
	}
	if m.Duration() != time.Second {
		t.Errorf("expected duration 1s, got %v", m.Duration())
	}
	if got := m.FrameTime(3, 10); got != 500*time.Millisecond {
		t.Errorf("expected frame 3 at 500ms, got %v", got)
	}
	if w, h := m.CameraSize(); w != 0 || h != 0 {
		t.Errorf("expected no camera size, got %dx%d", w, h)
	}
}

func TestMedia_FrameCachesDecodes(t *testing.T) {
	m, _, r := testMedia(t, false)
	decodes := 0
	r.DecodeImageFunc = func(data []byte, format ports.ImageFormat) (image.Image, error) {
		decodes++
		return image.NewRGBA(image.Rect(0, 0, 320, 180)), nil
	}

	for _, ts := range []time.Duration{200 * time.Millisecond, 250 * time.Millisecond, 290 * time.Millisecond} {
		if _, err := m.Frame(ts, true); err != nil {
			t.Fatalf("Frame(%v) failed: %v", ts, err)
		}
	}
	if decodes != 1 {
		t.Errorf("expected one decode for frames on the same sample, got %d", decodes)
	}
	if _, err := m.Frame(300*time.Millisecond, true); err != nil {
		t.Fatalf("Frame failed: %v", err)
	}
	if decodes != 2 {
		t.Errorf("expected a second decode on the next sample, got %d", decodes)
	}
}

func TestMedia_FrameCursorAndCamera(t *testing.T) {
	m, _, _ := testMedia(t, true)

	in, err := m.Frame(300*time.Millisecond, true)
	if err != nil {
		t.Fatalf("Frame failed: %v", err)
	}
	if in.Cursor != nil {
		t.Error("expected no cursor before the first sample")
	}
	if in.Camera == nil {
		t.Error("expected a camera image")
	}

	in, err = m.Frame(time.Second, false)
	if err != nil {
		t.Fatalf("Frame failed: %v", err)
	}
	if in.Camera != nil {
		t.Error("expected the camera to be skipped")
	}
	if in.Cursor == nil || in.Cursor.X != 0.25 || in.Cursor.Shape != ports.CursorIBeam {
		t.Errorf("expected the recorded cursor, got %+v", in.Cursor)
	}
}

func TestOpen_MissingTrack(t *testing.T) {
	rec := &recording.Recording{Dir: "/none", Display: recording.VideoTrackMeta{File: recording.DisplayFile}}
	if _, err := Open(mocks.NewMediaStore(), rec, nil, &mocks.Renderer{}); err == nil {
		t.Error("expected an error when the display track is missing")
	}
}
