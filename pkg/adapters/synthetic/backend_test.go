package synthetic

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/user/clipdeck/pkg/adapters/ggrenderer"
	"github.com/user/clipdeck/pkg/apperr"
	"github.com/user/clipdeck/pkg/ports"
)

func newFastBackend() *Backend {
	return New(Options{FPS: 100, AudioChunk: 10 * time.Millisecond, SampleRate: 8000, Channels: 1}, ggrenderer.New())
}

func TestBackend_Enumerate(t *testing.T) {
	b := newFastBackend()

	windows, err := b.Enumerate(ports.KindWindow)
	if err != nil {
		t.Fatalf("Enumerate failed: %v", err)
	}
	if len(windows) != 2 || windows[0].ID != "101" || windows[1].ID != "102" {
		t.Errorf("unexpected windows %+v", windows)
	}
	if windows[0].OwnerName == "" || windows[0].Backend != Name {
		t.Errorf("expected owner and backend to be set, got %+v", windows[0])
	}

	mics, _ := b.Enumerate(ports.KindAudio)
	if len(mics) != 1 || mics[0].SampleRate != 8000 || mics[0].Channels != 1 {
		t.Errorf("unexpected microphones %+v", mics)
	}

	if _, err := b.Enumerate("printer"); err == nil {
		t.Error("expected error for unknown kind")
	}
	if b.LiveSources() != 0 {
		t.Error("enumeration must not open devices")
	}
}

func TestBackend_OpenProducesFrames(t *testing.T) {
	b := newFastBackend()
	screens, _ := b.Enumerate(ports.KindScreen)

	src, err := b.Open(context.Background(), screens[0])
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer src.Close()

	for i := 0; i < 3; i++ {
		select {
		case f := <-src.Frames():
			if f.Format != ports.FrameJPEG || len(f.Data) == 0 || f.Cursor == nil {
				t.Fatalf("unexpected frame %+v", f)
			}
			if f.Cursor.X < 0 || f.Cursor.X > 1 || f.Cursor.Y < 0 || f.Cursor.Y > 1 {
				t.Errorf("cursor outside unit square: %+v", f.Cursor)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for frame")
		}
	}
}

func TestBackend_AudioFrames(t *testing.T) {
	b := newFastBackend()
	mics, _ := b.Enumerate(ports.KindAudio)

	src, err := b.Open(context.Background(), mics[0])
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer src.Close()

	f := <-src.Frames()
	if f.Format != ports.FramePCM16 || f.SampleRate != 8000 || f.Channels != 1 {
		t.Fatalf("unexpected audio frame %+v", f)
	}
	// 10ms at 8kHz mono PCM16.
	if len(f.Data) != 160 {
		t.Errorf("expected 160 bytes, got %d", len(f.Data))
	}
}

func TestBackend_CloseIsIdempotentAndConcurrent(t *testing.T) {
	b := newFastBackend()
	screens, _ := b.Enumerate(ports.KindScreen)
	src, err := b.Open(context.Background(), screens[0])
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			src.Close()
		}()
	}
	wg.Wait()

	// Drain: the channel must be closed.
	for range src.Frames() {
	}
	if src.Err() != nil {
		t.Errorf("plain close should leave no error, got %v", src.Err())
	}
	if b.LiveSources() != 0 {
		t.Errorf("expected no live sources, got %d", b.LiveSources())
	}
}

func TestBackend_UnavailableVersusDenied(t *testing.T) {
	b := newFastBackend()
	cams, _ := b.Enumerate(ports.KindCamera)

	b.Unplug(ports.KindCamera, cams[0].ID)
	_, err := b.Open(context.Background(), cams[0])
	if !errors.Is(err, apperr.ErrDeviceUnavailable) {
		t.Errorf("expected DeviceUnavailable, got %v", err)
	}

	b2 := newFastBackend()
	b2.Deny(ports.KindCamera)
	_, err = b2.Open(context.Background(), cams[0])
	if !errors.Is(err, apperr.ErrPermissionDenied) {
		t.Errorf("expected PermissionDenied, got %v", err)
	}
	if errors.Is(err, apperr.ErrDeviceUnavailable) {
		t.Error("permission errors must not match DeviceUnavailable")
	}
	if b2.Permissions().Camera != ports.PermissionDenied {
		t.Error("expected camera permission to report denied")
	}
	if !b2.Permissions().Necessary() {
		t.Error("screen permission is still granted")
	}
}

func TestBackend_UnplugWhileRunning(t *testing.T) {
	b := newFastBackend()
	screens, _ := b.Enumerate(ports.KindScreen)
	src, err := b.Open(context.Background(), screens[0])
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer src.Close()

	<-src.Frames()
	b.Unplug(ports.KindScreen, screens[0].ID)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-src.Frames():
			if !ok {
				if !errors.Is(src.Err(), apperr.ErrDeviceUnavailable) {
					t.Errorf("expected DeviceUnavailable, got %v", src.Err())
				}
				return
			}
		case <-deadline:
			t.Fatal("source kept running after unplug")
		}
	}
}

func TestBackend_FailAfter(t *testing.T) {
	b := newFastBackend()
	screens, _ := b.Enumerate(ports.KindScreen)
	boom := errors.New("boom")
	b.FailAfter(ports.KindScreen, screens[0].ID, 2, boom)

	src, err := b.Open(context.Background(), screens[0])
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer src.Close()

	n := 0
	for range src.Frames() {
		n++
	}
	if n != 2 {
		t.Errorf("expected 2 frames before failure, got %d", n)
	}
	if !errors.Is(src.Err(), boom) {
		t.Errorf("expected injected error, got %v", src.Err())
	}
}
