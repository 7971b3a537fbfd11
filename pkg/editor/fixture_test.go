package editor

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/user/clipdeck/pkg/adapters/ggrenderer"
	"github.com/user/clipdeck/pkg/adapters/logger"
	"github.com/user/clipdeck/pkg/adapters/mediastore"
	"github.com/user/clipdeck/pkg/adapters/osfilesystem"
	"github.com/user/clipdeck/pkg/eventbus"
	"github.com/user/clipdeck/pkg/recording"
)

type fixture struct {
	root     string
	fs       *osfilesystem.FileSystem
	media    *mediastore.Store
	store    *recording.Store
	bus      *eventbus.Bus
	registry *Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.NewNoop()
	f := &fixture{
		root:  t.TempDir(),
		fs:    osfilesystem.New(),
		media: mediastore.New(),
		bus:   eventbus.New(log),
	}
	f.store = recording.NewStore(f.root, f.fs, log)
	f.registry = NewRegistry(Deps{
		Store:      f.store,
		Media:      f.media,
		Renderer:   ggrenderer.New(),
		FS:         f.fs,
		Bus:        f.bus,
		Logger:     log,
		StreamHost: "127.0.0.1",
		QueueSize:  64,
	})
	t.Cleanup(func() { f.registry.CloseAll() })
	return f
}

func testJPEG(t *testing.T, w, h int, shade uint8) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: shade, G: 128, B: 64, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

// addRecording writes a 64x36 display-only recording of n frames at fps.
// Frames listed in bad carry undecodable data.
func (f *fixture) addRecording(t *testing.T, id string, n int, fps float64, bad ...int) {
	t.Helper()
	dir := filepath.Join(f.root, id)
	w, err := f.media.CreateVideoTrack(filepath.Join(dir, recording.DisplayFile), 64, 36)
	if err != nil {
		t.Fatalf("CreateVideoTrack failed: %v", err)
	}
	broken := make(map[int]bool)
	for _, i := range bad {
		broken[i] = true
	}
	for i := 0; i < n; i++ {
		data := testJPEG(t, 64, 36, uint8(i*10))
		if broken[i] {
			data = []byte("not a jpeg")
		}
		pts := time.Duration(float64(i) * float64(time.Second) / fps)
		if err := w.WriteSample(data, pts); err != nil {
			t.Fatalf("WriteSample failed: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	rec := recording.Recording{
		ID:            id,
		CreatedAt:     time.Now(),
		DisplaySource: recording.ScreenTarget{},
		Display: recording.VideoTrackMeta{
			File:     recording.DisplayFile,
			Width:    64,
			Height:   36,
			FPS:      fps,
			Frames:   n,
			Duration: float64(n) / fps,
		},
	}
	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal recording: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, recording.MetaFile), data, 0644); err != nil {
		t.Fatalf("write recording: %v", err)
	}
}

func (f *fixture) open(t *testing.T, id string) *Instance {
	t.Helper()
	inst, err := f.registry.Create(context.Background(), id)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return inst
}

// events forwards bus events of one type to a channel.
func events(f *fixture, eventType string) <-chan eventbus.Event {
	ch := make(chan eventbus.Event, 1024)
	f.bus.Subscribe(eventType, func(e eventbus.Event) {
		select {
		case ch <- e:
		default:
		}
	})
	return ch
}

func waitEvent(t *testing.T, ch <-chan eventbus.Event) eventbus.Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return nil
}

// waitFor polls cond until it holds.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}
