package mocks

import (
	"image"
	"sync"

	"github.com/user/clipdeck/pkg/ports"
)

// DebugSink is a mock implementation of ports.DebugSink.
type DebugSink struct {
	mu sync.RWMutex

	enabled bool

	RenderJSON     []byte
	ComposedFrames map[int]image.Image
}

// NewDebugSink creates a new mock DebugSink.
func NewDebugSink(enabled bool) *DebugSink {
	return &DebugSink{
		enabled:        enabled,
		ComposedFrames: make(map[int]image.Image),
	}
}

func (m *DebugSink) Enabled() bool {
	return m.enabled
}

func (m *DebugSink) SaveRenderJSON(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RenderJSON = data
	return nil
}

func (m *DebugSink) SaveComposedFrame(index int, img image.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ComposedFrames[index] = img
	return nil
}

// FrameCount returns the number of saved frames.
func (m *DebugSink) FrameCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ComposedFrames)
}

var _ ports.DebugSink = (*DebugSink)(nil)
