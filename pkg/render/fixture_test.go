package render

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/user/clipdeck/pkg/adapters/ggrenderer"
	"github.com/user/clipdeck/pkg/adapters/logger"
	"github.com/user/clipdeck/pkg/adapters/mediastore"
	"github.com/user/clipdeck/pkg/adapters/mjpegmp4"
	"github.com/user/clipdeck/pkg/adapters/osfilesystem"
	"github.com/user/clipdeck/pkg/eventbus"
	"github.com/user/clipdeck/pkg/ports"
	"github.com/user/clipdeck/pkg/recording"
)

type fixture struct {
	root   string
	fs     *osfilesystem.FileSystem
	media  *mediastore.Store
	store  *recording.Store
	bus    *eventbus.Bus
	log    ports.Logger
	engine *Engine
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	log := logger.NewNoop()
	f := &fixture{
		root:  t.TempDir(),
		fs:    osfilesystem.New(),
		media: mediastore.New(),
		bus:   eventbus.New(log),
		log:   log,
	}
	f.store = recording.NewStore(f.root, f.fs, log)
	f.engine = NewEngine(Deps{
		Renderer:   ggrenderer.New(),
		Media:      f.media,
		FS:         f.fs,
		NewEncoder: func() ports.VideoEncoder { return mjpegmp4.NewEncoder() },
		Logger:     log,
	}, opts)
	return f
}

func testJPEG(t *testing.T, w, h int, shade uint8) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: shade, G: uint8(x * 4), B: uint8(y * 6), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

// addRecording writes a display-only recording of n frames at fps into the
// library. Frames listed in bad carry undecodable data.
func (f *fixture) addRecording(t *testing.T, id string, n int, fps float64, bad ...int) *recording.Recording {
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
		data := testJPEG(t, 64, 36, uint8(i*20))
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
	got, err := f.store.Get(id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	return got
}

// progressLog collects progress events from any goroutine.
type progressLog struct {
	mu     sync.Mutex
	events []Progress
}

func (l *progressLog) add(p Progress) {
	l.mu.Lock()
	l.events = append(l.events, p)
	l.mu.Unlock()
}

func (l *progressLog) all() []Progress {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Progress(nil), l.events...)
}

// checkSequence verifies Starting{total} followed by FrameRendered 0..total-1.
func checkSequence(t *testing.T, events []Progress, total int) {
	t.Helper()
	if len(events) != total+1 {
		t.Fatalf("expected %d events, got %d: %v", total+1, len(events), events)
	}
	if events[0] != (Starting{TotalFrames: total}) {
		t.Errorf("expected Starting{%d} first, got %#v", total, events[0])
	}
	for i, ev := range events[1:] {
		if ev != (FrameRendered{CurrentFrame: i}) {
			t.Fatalf("expected FrameRendered{%d} at position %d, got %#v", i, i+1, ev)
		}
	}
}

// leftovers lists files in dir other than keep.
func leftovers(t *testing.T, dir string, keep ...string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		t.Fatalf("ReadDir failed: %v", err)
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		kept := false
		for _, k := range keep {
			if name == k {
				kept = true
			}
		}
		if !kept {
			out = append(out, name)
		}
	}
	return out
}

func frameCountOf(t *testing.T, path string) int {
	t.Helper()
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer file.Close()
	track, err := mjpegmp4.Open(file)
	if err != nil {
		t.Fatalf("parse output: %v", err)
	}
	return track.Info().Frames
}

func mustGet(t *testing.T, f *fixture, id string) *recording.Recording {
	t.Helper()
	rec, err := f.store.Get(id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	return rec
}

// finishedEvents subscribes to RenderFinished.
func finishedEvents(f *fixture) <-chan eventbus.RenderFinished {
	ch := make(chan eventbus.RenderFinished, 16)
	f.bus.Subscribe(eventbus.TypeRenderFinished, func(e eventbus.Event) {
		ch <- e.(eventbus.RenderFinished)
	})
	return ch
}

func waitFinished(t *testing.T, ch <-chan eventbus.RenderFinished) eventbus.RenderFinished {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for RenderFinished")
	}
	return eventbus.RenderFinished{}
}

func expectNoFinished(t *testing.T, ch <-chan eventbus.RenderFinished) {
	t.Helper()
	select {
	case ev := <-ch:
		t.Errorf("expected no further render job, got %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}
