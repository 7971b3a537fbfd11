package screencapture

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/user/clipdeck/pkg/adapters/ggrenderer"
	"github.com/user/clipdeck/pkg/adapters/logger"
	"github.com/user/clipdeck/pkg/apperr"
	"github.com/user/clipdeck/pkg/ports"
)

func newTestBackend() *Backend {
	return New(Options{FPS: 200, JPEGQuality: 50}, ggrenderer.New(), logger.NewNoop())
}

func TestBackend_Describe(t *testing.T) {
	b := newTestBackend()
	d := b.describe(0, image.Rect(0, 0, 1920, 1080))

	if d.Key() != "screen/screen/0" {
		t.Errorf("unexpected key %q", d.Key())
	}
	if d.Bounds == nil || d.Bounds.Width != 1920 || d.Bounds.Height != 1080 {
		t.Errorf("unexpected bounds %+v", d.Bounds)
	}
	if d.FPS != 200 {
		t.Errorf("expected configured fps, got %v", d.FPS)
	}
}

func TestBackend_EnumerateOtherKindsEmpty(t *testing.T) {
	b := newTestBackend()
	for _, kind := range []ports.DeviceKind{ports.KindWindow, ports.KindCamera, ports.KindAudio} {
		descs, err := b.Enumerate(kind)
		if err != nil || len(descs) != 0 {
			t.Errorf("Enumerate(%s) = %v, %v; want empty", kind, descs, err)
		}
	}
}

func TestBackend_OpenRejectsNonScreen(t *testing.T) {
	b := newTestBackend()
	_, err := b.Open(context.Background(), ports.DeviceDescriptor{Kind: ports.KindCamera, ID: "0", Backend: Name})
	if !errors.Is(err, apperr.ErrDeviceUnavailable) {
		t.Errorf("expected DeviceUnavailable, got %v", err)
	}
}

func TestBackend_ProduceEmitsJPEGFrames(t *testing.T) {
	b := newTestBackend()
	b.grab = func(r image.Rectangle) (*image.RGBA, error) {
		return image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy())), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var frames []ports.CaptureFrame
	err := b.produce(ctx, ports.DeviceDescriptor{Name: "test"}, image.Rect(0, 0, 32, 16), func(f ports.CaptureFrame) bool {
		frames = append(frames, f)
		return len(frames) < 3
	})
	if err != nil {
		t.Fatalf("produce failed: %v", err)
	}
	if len(frames) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(frames))
	}
	for _, f := range frames {
		if f.Format != ports.FrameJPEG || f.Width != 32 || f.Height != 16 || len(f.Data) == 0 {
			t.Errorf("unexpected frame %+v", f)
		}
	}
	if !frames[0].Captured.Before(frames[2].Captured) {
		t.Error("expected increasing capture timestamps")
	}
}

func TestBackend_ProduceGivesUpAfterRepeatedErrors(t *testing.T) {
	b := newTestBackend()
	b.grab = func(image.Rectangle) (*image.RGBA, error) {
		return nil, errors.New("grab failed")
	}

	err := b.produce(context.Background(), ports.DeviceDescriptor{Name: "test"}, image.Rect(0, 0, 4, 4), func(ports.CaptureFrame) bool {
		t.Fatal("no frame expected")
		return false
	})
	if !errors.Is(err, apperr.ErrDeviceUnavailable) {
		t.Errorf("expected DeviceUnavailable after repeated failures, got %v", err)
	}
}
