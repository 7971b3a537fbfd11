package mocks

import (
	"image"
	"io"
	"sync"

	"github.com/user/clipdeck/pkg/ports"
)

// VideoEncoder is a mock implementation of ports.VideoEncoder. It writes one
// byte per frame so output files have a size.
type VideoEncoder struct {
	BeginFunc       func(w io.Writer, cfg ports.EncoderConfig) error
	EncodeFrameFunc func(img image.Image, audio []int16) error
	EndFunc         func() error

	mu sync.Mutex
	w  io.Writer

	// Recorded calls for verification
	BeginCalled      bool
	Config           ports.EncoderConfig
	EncodeFrameCalls []EncodeFrameCall
	EndCalled        bool
}

// EncodeFrameCall records a call to EncodeFrame.
type EncodeFrameCall struct {
	Width        int
	Height       int
	AudioSamples int
}

func (m *VideoEncoder) Begin(w io.Writer, cfg ports.EncoderConfig) error {
	m.mu.Lock()
	m.BeginCalled = true
	m.Config = cfg
	m.w = w
	m.mu.Unlock()
	if m.BeginFunc != nil {
		return m.BeginFunc(w, cfg)
	}
	return nil
}

func (m *VideoEncoder) EncodeFrame(img image.Image, audio []int16) error {
	b := img.Bounds()
	m.mu.Lock()
	m.EncodeFrameCalls = append(m.EncodeFrameCalls, EncodeFrameCall{Width: b.Dx(), Height: b.Dy(), AudioSamples: len(audio)})
	w := m.w
	m.mu.Unlock()
	if m.EncodeFrameFunc != nil {
		return m.EncodeFrameFunc(img, audio)
	}
	_, err := w.Write([]byte{0})
	return err
}

func (m *VideoEncoder) End() error {
	m.mu.Lock()
	m.EndCalled = true
	m.mu.Unlock()
	if m.EndFunc != nil {
		return m.EndFunc()
	}
	return nil
}

// Frames returns the number of EncodeFrame calls.
func (m *VideoEncoder) Frames() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.EncodeFrameCalls)
}

var _ ports.VideoEncoder = (*VideoEncoder)(nil)
