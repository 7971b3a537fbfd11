package wavtrack

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/user/clipdeck/pkg/ports"
)

// Track reads samples of a WAV file on demand.
type Track struct {
	r      io.ReaderAt
	closer io.Closer

	info       ports.AudioTrackInfo
	dataOffset int64
	frames     int64
}

// Open parses the header of a WAV file of the given size. closer, if not
// nil, is closed by Track.Close. A data chunk whose size was never patched
// (the writer did not close cleanly) extends to the end of the file.
func Open(r io.ReaderAt, size int64, closer io.Closer) (*Track, error) {
	var riff [12]byte
	if _, err := r.ReadAt(riff[:], 0); err != nil {
		return nil, fmt.Errorf("read riff header: %w", err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return nil, fmt.Errorf("not a wav file")
	}

	t := &Track{r: r, closer: closer}
	var haveFmt bool
	pos := int64(12)
	for pos+8 <= size {
		var hdr [8]byte
		if _, err := r.ReadAt(hdr[:], pos); err != nil {
			return nil, fmt.Errorf("read chunk header: %w", err)
		}
		id := string(hdr[0:4])
		chunkSize := int64(binary.LittleEndian.Uint32(hdr[4:8]))
		body := pos + 8

		switch id {
		case "fmt ":
			var f [16]byte
			if _, err := r.ReadAt(f[:], body); err != nil {
				return nil, fmt.Errorf("read fmt chunk: %w", err)
			}
			if binary.LittleEndian.Uint16(f[0:2]) != pcmFormat || binary.LittleEndian.Uint16(f[14:16]) != bitsPerSample {
				return nil, fmt.Errorf("unsupported wav encoding")
			}
			t.info.Channels = int(binary.LittleEndian.Uint16(f[2:4]))
			t.info.SampleRate = int(binary.LittleEndian.Uint32(f[4:8]))
			haveFmt = true
		case "offs":
			var o [8]byte
			if _, err := r.ReadAt(o[:], body); err != nil {
				return nil, fmt.Errorf("read offs chunk: %w", err)
			}
			t.info.StartOffset = time.Duration(int64(binary.LittleEndian.Uint64(o[:])))
		case "data":
			if !haveFmt {
				return nil, fmt.Errorf("data chunk before fmt chunk")
			}
			if chunkSize == 0 || body+chunkSize > size {
				chunkSize = size - body
			}
			block := int64(t.info.Channels * bytesPerSample)
			t.dataOffset = body
			t.frames = chunkSize / block
			t.info.Duration = framesToDuration(t.frames, t.info.SampleRate)
			return t, nil
		}
		pos = body + chunkSize + chunkSize%2
	}
	return nil, fmt.Errorf("no data chunk")
}

// Info returns the track metadata.
func (t *Track) Info() ports.AudioTrackInfo {
	return t.info
}

// ReadAt fills dst with interleaved samples starting at session time pts.
func (t *Track) ReadAt(dst []int16, pts time.Duration) error {
	for i := range dst {
		dst[i] = 0
	}
	ch := int64(t.info.Channels)
	want := int64(len(dst)) / ch
	first := int64(math.Round((pts - t.info.StartOffset).Seconds() * float64(t.info.SampleRate)))

	// Clip [first, first+want) to [0, frames).
	lo, hi := first, first+want
	if lo < 0 {
		lo = 0
	}
	if hi > t.frames {
		hi = t.frames
	}
	if lo >= hi {
		return nil
	}

	buf := make([]byte, (hi-lo)*ch*bytesPerSample)
	if _, err := t.r.ReadAt(buf, t.dataOffset+lo*ch*bytesPerSample); err != nil && err != io.EOF {
		return fmt.Errorf("read pcm: %w", err)
	}
	out := dst[(lo-first)*ch:]
	for i := 0; i < len(buf)/2; i++ {
		out[i] = int16(binary.LittleEndian.Uint16(buf[i*2:]))
	}
	return nil
}

// Close closes the underlying file.
func (t *Track) Close() error {
	if t.closer == nil {
		return nil
	}
	return t.closer.Close()
}

var _ ports.AudioTrack = (*Track)(nil)
