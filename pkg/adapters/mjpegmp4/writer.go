package mjpegmp4

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"io"
	"sync"
	"time"

	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/user/clipdeck/pkg/ports"
)

// TrackWriter appends JPEG frames to a fragmented MP4 file. A sample's
// duration is only known when the next one arrives, so every frame is
// written one call late; Close flushes the last one.
type TrackWriter struct {
	mu sync.Mutex

	w      io.WriteCloser
	width  int
	height int

	headerWritten bool
	seq           uint32
	pending       *pendingSample
	lastDur       uint32
	closed        bool
}

type pendingSample struct {
	data  []byte
	ticks uint64
}

// NewTrackWriter creates a writer over w. width and height are used for the
// sample entry unless the first frame reports its own size.
func NewTrackWriter(w io.WriteCloser, width, height int) *TrackWriter {
	return &TrackWriter{w: w, width: width, height: height, lastDur: defaultFrameDuration}
}

// WriteSample queues one encoded JPEG presented at pts. Timestamps that do
// not advance are nudged one tick past the previous sample.
func (t *TrackWriter) WriteSample(data []byte, pts time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return errors.New("track writer closed")
	}
	if !t.headerWritten {
		if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
			t.width, t.height = cfg.Width, cfg.Height
		}
		if err := t.writeHeader(); err != nil {
			return err
		}
	}

	ticks := toTicks(pts)
	if t.pending != nil {
		if ticks <= t.pending.ticks {
			ticks = t.pending.ticks + 1
		}
		dur := uint32(ticks - t.pending.ticks)
		if err := t.flush(dur); err != nil {
			return err
		}
		t.lastDur = dur
	}
	t.pending = &pendingSample{data: append([]byte(nil), data...), ticks: ticks}
	return nil
}

// Close flushes the last frame and closes the file.
func (t *TrackWriter) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true

	var firstErr error
	if !t.headerWritten {
		firstErr = t.writeHeader()
	}
	if firstErr == nil && t.pending != nil {
		firstErr = t.flush(t.lastDur)
	}
	if err := t.w.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func (t *TrackWriter) writeHeader() error {
	if err := writeHeader(t.w, newInit(t.width, t.height, 0, 0)); err != nil {
		return fmt.Errorf("write init segment: %w", err)
	}
	t.headerWritten = true
	return nil
}

func (t *TrackWriter) flush(dur uint32) error {
	t.seq++
	frag, err := mp4.CreateFragment(t.seq, videoTrackID)
	if err != nil {
		return fmt.Errorf("create fragment: %w", err)
	}
	frag.AddFullSample(mp4.FullSample{
		Sample: mp4.Sample{
			Flags: mp4.SyncSampleFlags,
			Size:  uint32(len(t.pending.data)),
			Dur:   dur,
		},
		DecodeTime: t.pending.ticks,
		Data:       t.pending.data,
	})

	// One write per fragment keeps the file at a fragment boundary.
	var buf bytes.Buffer
	buf.Grow(len(t.pending.data) + 1024)
	if err := frag.Encode(&buf); err != nil {
		return fmt.Errorf("encode fragment %d: %w", t.seq, err)
	}
	if _, err := t.w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write fragment %d: %w", t.seq, err)
	}
	t.pending = nil
	return nil
}

var _ ports.VideoTrackWriter = (*TrackWriter)(nil)
