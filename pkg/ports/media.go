package ports

import (
	"time"
)

// MediaStore creates and opens the per-track files of a recording. All
// presentation times are session times: the offset from the moment the
// recording session started, shared by every track of a recording.
type MediaStore interface {
	CreateVideoTrack(path string, width, height int) (VideoTrackWriter, error)
	CreateAudioTrack(path string, format AudioFormat) (AudioTrackWriter, error)
	OpenVideoTrack(path string) (VideoTrack, error)
	OpenAudioTrack(path string) (AudioTrack, error)
}

// VideoTrackWriter appends encoded samples to a video track file.
type VideoTrackWriter interface {
	// WriteSample appends one encoded frame presented at pts.
	WriteSample(data []byte, pts time.Duration) error
	// Close flushes and closes the file. It is safe to call twice.
	Close() error
}

// AudioTrackWriter appends interleaved little-endian PCM16 to an audio
// track file.
type AudioTrackWriter interface {
	// WriteSamples appends pcm presented at pts. Gaps between the end of the
	// previous chunk and pts are filled with silence.
	WriteSamples(pcm []byte, pts time.Duration) error
	Close() error
}

// VideoTrackInfo describes a written video track.
type VideoTrackInfo struct {
	Width       int
	Height      int
	FPS         float64
	Frames      int
	StartOffset time.Duration // pts of the first sample
	Duration    time.Duration // from the first sample to the end of the last
}

// AudioTrackInfo describes a written audio track.
type AudioTrackInfo struct {
	SampleRate  int
	Channels    int
	StartOffset time.Duration
	Duration    time.Duration
}

// Sample is one encoded frame of a video track.
type Sample struct {
	Index    int
	PTS      time.Duration
	Duration time.Duration
	Data     []byte
}

// VideoTrack gives random access to the samples of a video track.
type VideoTrack interface {
	Info() VideoTrackInfo

	// SampleAt returns the sample on screen at session time pts. Times
	// before the first sample return the first sample, times after the end
	// return the last one.
	SampleAt(pts time.Duration) (Sample, error)

	Close() error
}

// AudioTrack gives random access to the samples of an audio track.
type AudioTrack interface {
	Info() AudioTrackInfo

	// ReadAt fills dst with interleaved samples starting at session time
	// pts. Positions outside the track read as silence.
	ReadAt(dst []int16, pts time.Duration) error

	Close() error
}
