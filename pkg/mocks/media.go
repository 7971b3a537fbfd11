package mocks

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/user/clipdeck/pkg/ports"
)

// MediaStore is an in-memory implementation of ports.MediaStore.
type MediaStore struct {
	mu     sync.Mutex
	videos map[string]*VideoTrack
	audios map[string]*AudioTrack

	CreateVideoTrackFunc func(path string, width, height int) (ports.VideoTrackWriter, error)
	OpenVideoTrackFunc   func(path string) (ports.VideoTrack, error)
}

// NewMediaStore creates an empty store.
func NewMediaStore() *MediaStore {
	return &MediaStore{
		videos: make(map[string]*VideoTrack),
		audios: make(map[string]*AudioTrack),
	}
}

// PutVideo registers a video track at path.
func (m *MediaStore) PutVideo(path string, track *VideoTrack) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.videos[path] = track
}

// PutAudio registers an audio track at path.
func (m *MediaStore) PutAudio(path string, track *AudioTrack) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audios[path] = track
}

func (m *MediaStore) CreateVideoTrack(path string, width, height int) (ports.VideoTrackWriter, error) {
	if m.CreateVideoTrackFunc != nil {
		return m.CreateVideoTrackFunc(path, width, height)
	}
	t := &VideoTrack{Width: width, Height: height}
	m.PutVideo(path, t)
	return &videoWriter{track: t}, nil
}

func (m *MediaStore) CreateAudioTrack(path string, format ports.AudioFormat) (ports.AudioTrackWriter, error) {
	t := &AudioTrack{Format: format}
	m.PutAudio(path, t)
	return &audioWriter{track: t}, nil
}

func (m *MediaStore) OpenVideoTrack(path string) (ports.VideoTrack, error) {
	if m.OpenVideoTrackFunc != nil {
		return m.OpenVideoTrackFunc(path)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.videos[path]
	if !ok {
		return nil, fmt.Errorf("no video track at %s", path)
	}
	return t, nil
}

func (m *MediaStore) OpenAudioTrack(path string) (ports.AudioTrack, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.audios[path]
	if !ok {
		return nil, fmt.Errorf("no audio track at %s", path)
	}
	return t, nil
}

var _ ports.MediaStore = (*MediaStore)(nil)

// VideoTrack is an in-memory video track. Sample durations are derived from
// the next sample; the last one lasts LastDuration (1/30s by default).
type VideoTrack struct {
	mu           sync.Mutex
	Width        int
	Height       int
	Samples      []ports.Sample
	LastDuration time.Duration

	SampleAtCalls int
}

// NewVideoTrack creates a track of n frames spaced by interval from start,
// each carrying data.
func NewVideoTrack(width, height, n int, start, interval time.Duration, data []byte) *VideoTrack {
	t := &VideoTrack{Width: width, Height: height, LastDuration: interval}
	for i := 0; i < n; i++ {
		t.Samples = append(t.Samples, ports.Sample{
			Index:    i,
			PTS:      start + time.Duration(i)*interval,
			Duration: interval,
			Data:     data,
		})
	}
	return t
}

func (t *VideoTrack) Info() ports.VideoTrackInfo {
	t.mu.Lock()
	defer t.mu.Unlock()
	info := ports.VideoTrackInfo{Width: t.Width, Height: t.Height, Frames: len(t.Samples)}
	if n := len(t.Samples); n > 0 {
		first, last := t.Samples[0], t.Samples[n-1]
		info.StartOffset = first.PTS
		info.Duration = last.PTS + last.Duration - first.PTS
		if info.Duration > 0 {
			info.FPS = float64(n) / info.Duration.Seconds()
		}
	}
	return info
}

func (t *VideoTrack) SampleAt(pts time.Duration) (ports.Sample, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.SampleAtCalls++
	if len(t.Samples) == 0 {
		return ports.Sample{}, fmt.Errorf("track has no samples")
	}
	i := sort.Search(len(t.Samples), func(i int) bool { return t.Samples[i].PTS > pts })
	if i > 0 {
		i--
	}
	return t.Samples[i], nil
}

func (t *VideoTrack) Close() error { return nil }

type videoWriter struct {
	track *VideoTrack
}

func (w *videoWriter) WriteSample(data []byte, pts time.Duration) error {
	t := w.track
	t.mu.Lock()
	defer t.mu.Unlock()
	last := t.LastDuration
	if last == 0 {
		last = time.Second / 30
	}
	if n := len(t.Samples); n > 0 {
		t.Samples[n-1].Duration = pts - t.Samples[n-1].PTS
	}
	t.Samples = append(t.Samples, ports.Sample{Index: len(t.Samples), PTS: pts, Duration: last, Data: append([]byte(nil), data...)})
	return nil
}

func (w *videoWriter) Close() error { return nil }

// AudioTrack is an in-memory audio track.
type AudioTrack struct {
	mu     sync.Mutex
	Format ports.AudioFormat
	Start  time.Duration
	PCM    []int16
}

func (t *AudioTrack) Info() ports.AudioTrackInfo {
	t.mu.Lock()
	defer t.mu.Unlock()
	frames := 0
	if t.Format.Channels > 0 {
		frames = len(t.PCM) / t.Format.Channels
	}
	var dur time.Duration
	if t.Format.SampleRate > 0 {
		dur = time.Duration(int64(frames) * int64(time.Second) / int64(t.Format.SampleRate))
	}
	return ports.AudioTrackInfo{
		SampleRate:  t.Format.SampleRate,
		Channels:    t.Format.Channels,
		StartOffset: t.Start,
		Duration:    dur,
	}
}

func (t *AudioTrack) ReadAt(dst []int16, pts time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	ch := t.Format.Channels
	offset := int(math.Round((pts-t.Start).Seconds()*float64(t.Format.SampleRate))) * ch
	for i := range dst {
		j := offset + i
		if j >= 0 && j < len(t.PCM) {
			dst[i] = t.PCM[j]
		} else {
			dst[i] = 0
		}
	}
	return nil
}

func (t *AudioTrack) Close() error { return nil }

type audioWriter struct {
	track *AudioTrack
}

func (w *audioWriter) WriteSamples(pcm []byte, pts time.Duration) error {
	t := w.track
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.PCM) == 0 {
		t.Start = pts
	}
	for i := 0; i+1 < len(pcm); i += 2 {
		t.PCM = append(t.PCM, int16(uint16(pcm[i])|uint16(pcm[i+1])<<8))
	}
	return nil
}

func (w *audioWriter) Close() error { return nil }
