package compose

import (
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/user/clipdeck/pkg/ports"
	"github.com/user/clipdeck/pkg/recording"
)

// Media is a recording opened for reading. Frame looks up and decodes the
// display, camera and cursor state at a session time.
type Media struct {
	Recording *recording.Recording
	Display   ports.VideoTrack
	Camera    ports.VideoTrack
	Audio     ports.AudioTrack
	Cursor    *recording.CursorTrack

	renderer ports.Renderer

	mu      sync.Mutex
	decoded map[ports.VideoTrack]decodedSample
}

type decodedSample struct {
	index int
	img   image.Image
}

// Open opens every track of rec. The caller must Close the result.
func Open(store ports.MediaStore, rec *recording.Recording, cursor *recording.CursorTrack, renderer ports.Renderer) (*Media, error) {
	m := &Media{
		Recording: rec,
		Cursor:    cursor,
		renderer:  renderer,
		decoded:   make(map[ports.VideoTrack]decodedSample),
	}
	var err error
	if m.Display, err = store.OpenVideoTrack(rec.Path(rec.Display.File)); err != nil {
		return nil, fmt.Errorf("open display track: %w", err)
	}
	if rec.Camera != nil {
		if m.Camera, err = store.OpenVideoTrack(rec.Path(rec.Camera.File)); err != nil {
			m.Close()
			return nil, fmt.Errorf("open camera track: %w", err)
		}
	}
	if rec.Audio != nil {
		if m.Audio, err = store.OpenAudioTrack(rec.Path(rec.Audio.File)); err != nil {
			m.Close()
			return nil, fmt.Errorf("open audio track: %w", err)
		}
	}
	return m, nil
}

// Close releases every track.
func (m *Media) Close() error {
	var firstErr error
	for _, c := range []interface{ Close() error }{m.Display, m.Camera, m.Audio} {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// DisplaySize returns the display track dimensions.
func (m *Media) DisplaySize() (int, int) {
	info := m.Display.Info()
	return info.Width, info.Height
}

// CameraSize returns the camera track dimensions, zero without a camera.
func (m *Media) CameraSize() (int, int) {
	if m.Camera == nil {
		return 0, 0
	}
	info := m.Camera.Info()
	return info.Width, info.Height
}

// Start is the session time of the first display frame.
func (m *Media) Start() time.Duration {
	return m.Display.Info().StartOffset
}

// Duration is the display track duration.
func (m *Media) Duration() time.Duration {
	return m.Display.Info().Duration
}

// FrameTime is the session time of output frame i at fps.
func (m *Media) FrameTime(i int, fps float64) time.Duration {
	return m.Start() + time.Duration(float64(i)*float64(time.Second)/fps)
}

// Frame decodes the recording at session time t. The camera is skipped
// when withCamera is false.
func (m *Media) Frame(t time.Duration, withCamera bool) (Input, error) {
	var in Input
	var err error
	if in.Display, err = m.decodeAt(m.Display, t); err != nil {
		return Input{}, fmt.Errorf("display: %w", err)
	}
	if withCamera && m.Camera != nil {
		if in.Camera, err = m.decodeAt(m.Camera, t); err != nil {
			return Input{}, fmt.Errorf("camera: %w", err)
		}
	}
	if pos, ok := m.Cursor.At(t); ok {
		in.Cursor = &Cursor{X: pos.X, Y: pos.Y, Shape: pos.Shape, Idle: pos.Idle}
	}
	return in, nil
}

// decodeAt keeps the last decoded sample per track, since consecutive
// output frames usually land on the same source frame.
func (m *Media) decodeAt(track ports.VideoTrack, t time.Duration) (image.Image, error) {
	s, err := track.SampleAt(t)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	if d, ok := m.decoded[track]; ok && d.index == s.Index {
		m.mu.Unlock()
		return d.img, nil
	}
	m.mu.Unlock()

	img, err := m.renderer.DecodeImage(s.Data, ports.FormatJPEG)
	if err != nil {
		return nil, fmt.Errorf("decode sample %d: %w", s.Index, err)
	}
	m.mu.Lock()
	m.decoded[track] = decodedSample{index: s.Index, img: img}
	m.mu.Unlock()
	return img, nil
}
