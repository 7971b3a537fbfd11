package mocks

import (
	"context"
	"sync"

	"github.com/user/clipdeck/pkg/ports"
)

// CaptureBackend is a mock implementation of ports.CaptureBackend.
type CaptureBackend struct {
	NameValue     string
	Devices       map[ports.DeviceKind][]ports.DeviceDescriptor
	EnumerateFunc func(kind ports.DeviceKind) ([]ports.DeviceDescriptor, error)
	OpenFunc      func(ctx context.Context, desc ports.DeviceDescriptor) (ports.CaptureSource, error)
	Permission    ports.PermissionsCheck

	mu        sync.Mutex
	OpenCalls []ports.DeviceDescriptor
}

func (m *CaptureBackend) Name() string {
	if m.NameValue == "" {
		return "mock"
	}
	return m.NameValue
}

func (m *CaptureBackend) Enumerate(kind ports.DeviceKind) ([]ports.DeviceDescriptor, error) {
	if m.EnumerateFunc != nil {
		return m.EnumerateFunc(kind)
	}
	return m.Devices[kind], nil
}

func (m *CaptureBackend) Open(ctx context.Context, desc ports.DeviceDescriptor) (ports.CaptureSource, error) {
	m.mu.Lock()
	m.OpenCalls = append(m.OpenCalls, desc)
	m.mu.Unlock()
	if m.OpenFunc != nil {
		return m.OpenFunc(ctx, desc)
	}
	return NewCaptureSource(desc, 0), nil
}

func (m *CaptureBackend) Permissions() ports.PermissionsCheck {
	return m.Permission
}

var _ ports.CaptureBackend = (*CaptureBackend)(nil)

// CaptureSource is a mock ports.CaptureSource fed by Push.
type CaptureSource struct {
	desc   ports.DeviceDescriptor
	frames chan ports.CaptureFrame

	mu     sync.Mutex
	closed bool
	err    error

	CloseCalls int
}

// NewCaptureSource creates a source with the given channel buffer.
func NewCaptureSource(desc ports.DeviceDescriptor, buffer int) *CaptureSource {
	return &CaptureSource{desc: desc, frames: make(chan ports.CaptureFrame, buffer)}
}

// Push delivers a frame unless the source is closed.
func (m *CaptureSource) Push(f ports.CaptureFrame) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}
	m.frames <- f
	return true
}

// Fail ends the source with err.
func (m *CaptureSource) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.err = err
	m.closed = true
	close(m.frames)
}

func (m *CaptureSource) Descriptor() ports.DeviceDescriptor { return m.desc }

func (m *CaptureSource) Frames() <-chan ports.CaptureFrame { return m.frames }

func (m *CaptureSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CloseCalls++
	if !m.closed {
		m.closed = true
		close(m.frames)
	}
	return nil
}

func (m *CaptureSource) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

var _ ports.CaptureSource = (*CaptureSource)(nil)
