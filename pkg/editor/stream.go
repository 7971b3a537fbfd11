package editor

import (
	"context"
	"encoding/binary"
	"errors"
	"image"
	"image/draw"
	"sync"
	"sync/atomic"
)

// DefaultQueueSize is the per-consumer frame queue length.
const DefaultQueueSize = 4

// ErrStreamClosed is returned by Subscriber.Next once the hub or the
// subscriber is closed.
var ErrStreamClosed = errors.New("stream closed")

// Frame is one composed playback frame.
type Frame struct {
	Index int
	Image *image.RGBA
}

// TrailerSize is the length of the trailer appended to each encoded frame.
const TrailerSize = 12

// EncodeFrame returns the wire form of f: the RGBA pixel rows followed by
// stride, height and width as little-endian uint32.
func EncodeFrame(f Frame) []byte {
	img := f.Image
	b := img.Bounds()
	rows := img.Pix[:img.Stride*b.Dy()]
	out := make([]byte, len(rows)+TrailerSize)
	n := copy(out, rows)
	binary.LittleEndian.PutUint32(out[n:], uint32(img.Stride))
	binary.LittleEndian.PutUint32(out[n+4:], uint32(b.Dy()))
	binary.LittleEndian.PutUint32(out[n+8:], uint32(b.Dx()))
	return out
}

// DecodeFrame parses the wire form written by EncodeFrame.
func DecodeFrame(data []byte) (*image.RGBA, error) {
	if len(data) < TrailerSize {
		return nil, errors.New("frame shorter than its trailer")
	}
	n := len(data) - TrailerSize
	stride := int(binary.LittleEndian.Uint32(data[n:]))
	height := int(binary.LittleEndian.Uint32(data[n+4:]))
	width := int(binary.LittleEndian.Uint32(data[n+8:]))
	if stride < width*4 || stride*height != n {
		return nil, errors.New("frame size does not match its trailer")
	}
	return &image.RGBA{
		Pix:    data[:n],
		Stride: stride,
		Rect:   image.Rect(0, 0, width, height),
	}, nil
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

// StreamHub fans composed frames out to its subscribers. Each subscriber
// has a bounded queue; when a consumer falls behind, the oldest queued
// frame is dropped and counted. Publish never blocks.
type StreamHub struct {
	size int

	mu     sync.Mutex
	subs   map[*Subscriber]struct{}
	latest *Frame
	closed bool
}

// NewStreamHub creates a hub whose subscribers queue up to size frames.
func NewStreamHub(size int) *StreamHub {
	if size < 1 {
		size = DefaultQueueSize
	}
	return &StreamHub{size: size, subs: make(map[*Subscriber]struct{})}
}

// Subscribe adds a consumer. The most recent frame, if any, is queued
// right away so a consumer joining a paused editor sees the preview.
func (h *StreamHub) Subscribe() *Subscriber {
	s := &Subscriber{
		hub:    h,
		size:   h.size,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		s.closeLocked()
		return s
	}
	h.subs[s] = struct{}{}
	if h.latest != nil {
		s.push(*h.latest)
	}
	return s
}

// Publish queues f for every subscriber.
func (h *StreamHub) Publish(f Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.latest = &f
	for s := range h.subs {
		s.push(f)
	}
}

// Latest returns the last published frame.
func (h *StreamHub) Latest() (Frame, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.latest == nil {
		return Frame{}, false
	}
	return *h.latest, true
}

// Subscribers returns the number of connected consumers.
func (h *StreamHub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close ends every subscription.
func (h *StreamHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for s := range h.subs {
		s.closeLocked()
	}
	h.subs = nil
}

// Subscriber is one consumer of a StreamHub.
type Subscriber struct {
	hub     *StreamHub
	size    int
	notify  chan struct{}
	done    chan struct{}
	dropped atomic.Uint64

	// guarded by hub.mu
	queue  []Frame
	closed bool
}

// push must be called with hub.mu held.
func (s *Subscriber) push(f Frame) {
	if len(s.queue) >= s.size {
		s.queue = s.queue[1:]
		s.dropped.Add(1)
	}
	s.queue = append(s.queue, f)
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Subscriber) closeLocked() {
	if s.closed {
		return
	}
	s.closed = true
	s.queue = nil
	close(s.done)
}

// Next blocks until a frame is queued, the subscription ends or ctx is
// done.
func (s *Subscriber) Next(ctx context.Context) (Frame, error) {
	for {
		s.hub.mu.Lock()
		if s.closed {
			s.hub.mu.Unlock()
			return Frame{}, ErrStreamClosed
		}
		if len(s.queue) > 0 {
			f := s.queue[0]
			s.queue = s.queue[1:]
			s.hub.mu.Unlock()
			return f, nil
		}
		s.hub.mu.Unlock()

		select {
		case <-s.notify:
		case <-s.done:
		case <-ctx.Done():
			return Frame{}, ctx.Err()
		}
	}
}

// Dropped returns how many frames were discarded because the consumer
// fell behind.
func (s *Subscriber) Dropped() uint64 {
	return s.dropped.Load()
}

// Close unsubscribes. It is safe to call more than once.
func (s *Subscriber) Close() {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	if s.hub.subs != nil {
		delete(s.hub.subs, s)
	}
	s.closeLocked()
}
