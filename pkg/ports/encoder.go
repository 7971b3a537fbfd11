package ports

import (
	"image"
	"io"
)

// VideoEncoder abstracts the output encoder of a render job. Frames are
// written to w as they are encoded, so a frame handed to EncodeFrame is
// durable in w once the call returns.
type VideoEncoder interface {
	// Begin writes the container header for the given stream layout.
	Begin(w io.Writer, cfg EncoderConfig) error

	// EncodeFrame encodes one composited frame together with the audio
	// samples (interleaved PCM16) covering the same frame interval.
	// audio is ignored when the stream has no audio track.
	EncodeFrame(img image.Image, audio []int16) error

	// End finalizes the stream. It does not close w.
	End() error
}

// EncoderConfig describes the output stream.
type EncoderConfig struct {
	Width   int
	Height  int
	FPS     float64
	Quality int          // JPEG quality 1-100
	Audio   *AudioFormat // nil for a video-only output
}

// AudioFormat describes interleaved PCM16 audio.
type AudioFormat struct {
	SampleRate int
	Channels   int
}

// SamplesPerFrame returns the number of per-channel samples covering
// frame index i at the given frame rate. Summed over all frames it never
// drifts from SampleRate*seconds.
func (f AudioFormat) SamplesPerFrame(i int, fps float64) int {
	start := int(float64(i) * float64(f.SampleRate) / fps)
	end := int(float64(i+1) * float64(f.SampleRate) / fps)
	return end - start
}
