package capture

import (
	"context"
	"sync"

	"github.com/user/clipdeck/pkg/ports"
)

// ProduceFunc generates frames until ctx is done, handing each one to emit.
// emit reports false once the source is closed. A non-nil return value is
// the terminal error reported by Err.
type ProduceFunc func(ctx context.Context, emit func(ports.CaptureFrame) bool) error

// Source is a ports.CaptureSource running a ProduceFunc on its own
// goroutine. Frames are handed to the consumer through a bounded channel;
// the producer blocks when the consumer falls behind.
type Source struct {
	desc   ports.DeviceDescriptor
	frames chan ports.CaptureFrame

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	err    error
	closed bool
}

// StartSource starts produce and returns the running source. Production is
// independent of the context that opened the device; it runs until Close.
func StartSource(desc ports.DeviceDescriptor, buffer int, produce ProduceFunc) *Source {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Source{
		desc:   desc,
		frames: make(chan ports.CaptureFrame, buffer),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go s.run(produce)
	return s
}

func (s *Source) run(produce ProduceFunc) {
	defer close(s.done)
	defer close(s.frames)

	err := produce(s.ctx, s.emit)

	s.mu.Lock()
	if !s.closed && err != nil {
		s.err = err
	}
	s.mu.Unlock()
}

func (s *Source) emit(f ports.CaptureFrame) bool {
	select {
	case <-s.ctx.Done():
		return false
	default:
	}
	select {
	case s.frames <- f:
		return true
	case <-s.ctx.Done():
		return false
	}
}

// Descriptor returns the device this source captures.
func (s *Source) Descriptor() ports.DeviceDescriptor {
	return s.desc
}

// Frames returns the frame channel. It is closed once production stops.
func (s *Source) Frames() <-chan ports.CaptureFrame {
	return s.frames
}

// Close stops production and waits for the producer to exit. Frames
// already buffered stay readable.
func (s *Source) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	<-s.done
	return nil
}

// Err returns the producer's terminal error.
func (s *Source) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

var _ ports.CaptureSource = (*Source)(nil)
