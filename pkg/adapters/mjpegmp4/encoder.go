package mjpegmp4

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"math"

	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/user/clipdeck/pkg/ports"
)

// Encoder implements ports.VideoEncoder, writing each rendered frame as one
// fragment holding the JPEG and, when configured, the PCM covering the same
// frame interval.
type Encoder struct {
	w     io.Writer
	cfg   ports.EncoderConfig
	frame int

	audioTicks uint64
	began      bool
}

// NewEncoder creates an encoder. Begin must be called before EncodeFrame.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// Begin writes the init segment.
func (e *Encoder) Begin(w io.Writer, cfg ports.EncoderConfig) error {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("invalid dimensions %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.FPS <= 0 {
		return fmt.Errorf("invalid frame rate %v", cfg.FPS)
	}
	if cfg.Quality <= 0 || cfg.Quality > 100 {
		cfg.Quality = 90
	}
	e.w, e.cfg, e.frame, e.audioTicks = w, cfg, 0, 0

	rate, channels := 0, 0
	if cfg.Audio != nil {
		rate, channels = cfg.Audio.SampleRate, cfg.Audio.Channels
	}
	if err := writeHeader(w, newInit(cfg.Width, cfg.Height, rate, channels)); err != nil {
		return err
	}
	e.began = true
	return nil
}

// EncodeFrame writes one frame. audio must hold SamplesPerFrame(i) samples
// per channel for frame i; shorter input is padded with silence.
func (e *Encoder) EncodeFrame(img image.Image, audio []int16) error {
	if !e.began {
		return errors.New("encoder not started")
	}

	var jpg bytes.Buffer
	if err := jpeg.Encode(&jpg, img, &jpeg.Options{Quality: e.cfg.Quality}); err != nil {
		return fmt.Errorf("encode frame %d: %w", e.frame, err)
	}

	start := e.frameTicks(e.frame)
	dur := uint32(e.frameTicks(e.frame+1) - start)
	seq := uint32(e.frame + 1)

	var (
		frag *mp4.Fragment
		err  error
	)
	video := mp4.FullSample{
		Sample:     mp4.Sample{Flags: mp4.SyncSampleFlags, Size: uint32(jpg.Len()), Dur: dur},
		DecodeTime: start,
		Data:       jpg.Bytes(),
	}
	if e.cfg.Audio == nil {
		frag, err = mp4.CreateFragment(seq, videoTrackID)
		if err != nil {
			return fmt.Errorf("create fragment: %w", err)
		}
		frag.AddFullSample(video)
	} else {
		frag, err = mp4.CreateMultiTrackFragment(seq, []uint32{videoTrackID, audioTrackID})
		if err != nil {
			return fmt.Errorf("create fragment: %w", err)
		}
		if err := frag.AddFullSampleToTrack(video, videoTrackID); err != nil {
			return fmt.Errorf("add video sample: %w", err)
		}
		pcm := e.pcmChunk(audio)
		n := e.cfg.Audio.SamplesPerFrame(e.frame, e.cfg.FPS)
		if err := frag.AddFullSampleToTrack(mp4.FullSample{
			Sample:     mp4.Sample{Flags: mp4.SyncSampleFlags, Size: uint32(len(pcm)), Dur: uint32(n)},
			DecodeTime: e.audioTicks,
			Data:       pcm,
		}, audioTrackID); err != nil {
			return fmt.Errorf("add audio sample: %w", err)
		}
		e.audioTicks += uint64(n)
	}

	if err := frag.Encode(e.w); err != nil {
		return fmt.Errorf("write frame %d: %w", e.frame, err)
	}
	e.frame++
	return nil
}

// End finishes the stream. Fragments are self-contained, so there is no
// trailer to write.
func (e *Encoder) End() error {
	if !e.began {
		return errors.New("encoder not started")
	}
	e.began = false
	return nil
}

// Frames returns the number of frames encoded since Begin.
func (e *Encoder) Frames() int {
	return e.frame
}

func (e *Encoder) frameTicks(i int) uint64 {
	return uint64(math.Round(float64(i) * VideoTimescale / e.cfg.FPS))
}

func (e *Encoder) pcmChunk(audio []int16) []byte {
	ch := e.cfg.Audio.Channels
	n := e.cfg.Audio.SamplesPerFrame(e.frame, e.cfg.FPS) * ch
	out := make([]byte, n*2)
	for i := 0; i < n && i < len(audio); i++ {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(audio[i]))
	}
	return out
}

var _ ports.VideoEncoder = (*Encoder)(nil)
