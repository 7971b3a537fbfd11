package wavtrack

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/user/clipdeck/pkg/ports"
)

// gapTolerance is how far a chunk may arrive behind the running write
// position before the gap is filled with silence. Device callbacks jitter
// by a few milliseconds, which must not show up as clicks.
const gapTolerance = 40 * time.Millisecond

// WriteSeekCloser is satisfied by *os.File.
type WriteSeekCloser interface {
	io.WriteSeeker
	io.Closer
}

// Writer appends interleaved PCM16 chunks to a WAV file, placing each chunk
// on the session timeline by its timestamp.
type Writer struct {
	mu sync.Mutex

	f        WriteSeekCloser
	rate     int
	channels int

	started bool
	start   time.Duration
	frames  int64
	closed  bool
}

// NewWriter creates a writer over f.
func NewWriter(f WriteSeekCloser, format ports.AudioFormat) (*Writer, error) {
	if format.SampleRate <= 0 || format.Channels <= 0 {
		return nil, fmt.Errorf("invalid audio format %d Hz, %d channels", format.SampleRate, format.Channels)
	}
	return &Writer{f: f, rate: format.SampleRate, channels: format.Channels}, nil
}

// WriteSamples appends pcm presented at pts. A trailing partial sample
// frame is dropped.
func (w *Writer) WriteSamples(pcm []byte, pts time.Duration) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return errors.New("audio writer closed")
	}
	block := w.channels * bytesPerSample
	pcm = pcm[:len(pcm)-len(pcm)%block]

	if !w.started {
		if _, err := w.f.Write(header(w.rate, w.channels, pts)); err != nil {
			return fmt.Errorf("write wav header: %w", err)
		}
		w.started = true
		w.start = pts
	} else {
		expected := w.start + framesToDuration(w.frames, w.rate)
		if gap := pts - expected; gap > gapTolerance {
			if err := w.writeSilence(int64(gap) * int64(w.rate) / int64(time.Second)); err != nil {
				return err
			}
		}
	}

	if _, err := w.f.Write(pcm); err != nil {
		return fmt.Errorf("write pcm: %w", err)
	}
	w.frames += int64(len(pcm) / block)
	return nil
}

// Close patches the chunk sizes and closes the file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	err := w.finalize()
	if cerr := w.f.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func (w *Writer) finalize() error {
	if !w.started {
		if _, err := w.f.Write(header(w.rate, w.channels, 0)); err != nil {
			return fmt.Errorf("write wav header: %w", err)
		}
	}
	dataBytes := uint32(w.frames) * uint32(w.channels*bytesPerSample)
	if err := w.patch(riffSizeOffset, headerSize-8+dataBytes); err != nil {
		return err
	}
	if err := w.patch(dataSizeOffset, dataBytes); err != nil {
		return err
	}
	_, err := w.f.Seek(0, io.SeekEnd)
	return err
}

func (w *Writer) patch(offset int64, v uint32) error {
	if _, err := w.f.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("seek wav header: %w", err)
	}
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	if _, err := w.f.Write(b[:]); err != nil {
		return fmt.Errorf("patch wav header: %w", err)
	}
	return nil
}

func (w *Writer) writeSilence(frames int64) error {
	block := int64(w.channels * bytesPerSample)
	zero := make([]byte, 64*1024-(64*1024)%block)
	remaining := frames * block
	for remaining > 0 {
		n := int64(len(zero))
		if remaining < n {
			n = remaining
		}
		if _, err := w.f.Write(zero[:n]); err != nil {
			return fmt.Errorf("write silence: %w", err)
		}
		remaining -= n
	}
	w.frames += frames
	return nil
}

func framesToDuration(frames int64, rate int) time.Duration {
	return time.Duration(frames * int64(time.Second) / int64(rate))
}

var _ ports.AudioTrackWriter = (*Writer)(nil)
