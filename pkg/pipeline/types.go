package pipeline

import (
	"image"
	"time"

	"github.com/user/clipdeck/pkg/ports"
)

// Plan fixes what a render job produces before the first frame is composed.
type Plan struct {
	RecordingID string  `json:"recordingId"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	FPS         float64 `json:"fps"`
	Quality     int     `json:"quality"`
	TotalFrames int     `json:"totalFrames"`

	// Start is the session time of output frame 0.
	Start time.Duration `json:"start"`

	// Audio is nil when the output has no audio track.
	Audio   *ports.AudioFormat `json:"audio,omitempty"`
	Improve bool               `json:"improve,omitempty"`
	Camera  bool               `json:"camera"`
	Cursor  bool               `json:"cursor"`
}

// FrameTime returns the session time of output frame i.
func (p Plan) FrameTime(i int) time.Duration {
	return p.Start + time.Duration(float64(i)*float64(time.Second)/p.FPS)
}

// AudioTime returns the session time of the first audio sample of output
// frame i. Frames cover whole samples, so this is derived from the sample
// count rather than FrameTime.
func (p Plan) AudioTime(i int) time.Duration {
	if p.Audio == nil || p.Audio.SampleRate == 0 {
		return p.FrameTime(i)
	}
	offset := int64(float64(i) * float64(p.Audio.SampleRate) / p.FPS)
	return p.Start + time.Duration(offset*int64(time.Second)/int64(p.Audio.SampleRate))
}

// FrameJob is one output frame to compose.
type FrameJob struct {
	Index int
	Time  time.Duration
}

// ComposedFrame is a composed output frame with the audio covering it.
type ComposedFrame struct {
	Index int
	Image image.Image
	Audio []int16
}
