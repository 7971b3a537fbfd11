// Package synthetic is a capture backend producing generated media: a
// moving test pattern with an orbiting cursor for displays, windows and
// cameras, and a sine tone for audio inputs. Devices can be unplugged,
// permissions denied and producer failures injected, which makes the
// backend the fixture for session tests and for `--backend synthetic`.
package synthetic

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"image/color"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/user/clipdeck/pkg/apperr"
	"github.com/user/clipdeck/pkg/capture"
	"github.com/user/clipdeck/pkg/ports"
)

// Name is the backend identifier stamped on descriptors.
const Name = "synthetic"

// Options configures the generated media.
type Options struct {
	FPS         float64
	JPEGQuality int
	SampleRate  int
	Channels    int

	// AudioChunk is the length of one generated audio buffer.
	AudioChunk time.Duration
}

// DefaultOptions returns small, fast settings suitable for tests.
func DefaultOptions() Options {
	return Options{FPS: 30, JPEGQuality: 70, SampleRate: 48000, Channels: 2, AudioChunk: 20 * time.Millisecond}
}

// Backend implements ports.CaptureBackend with generated devices.
type Backend struct {
	opts     Options
	renderer ports.Renderer

	mu          sync.Mutex
	devices     map[ports.DeviceKind][]ports.DeviceDescriptor
	unplugged   map[string]bool
	denied      map[ports.DeviceKind]bool
	failAfter   map[string]failure
	openCount   map[string]int
	liveSources map[string]int
}

type failure struct {
	frames int
	err    error
}

// New creates a backend with one 320x180 display, two windows, one camera
// and one microphone.
func New(opts Options, renderer ports.Renderer) *Backend {
	def := DefaultOptions()
	if opts.FPS <= 0 {
		opts.FPS = def.FPS
	}
	if opts.JPEGQuality <= 0 {
		opts.JPEGQuality = def.JPEGQuality
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = def.SampleRate
	}
	if opts.Channels <= 0 {
		opts.Channels = def.Channels
	}
	if opts.AudioChunk <= 0 {
		opts.AudioChunk = def.AudioChunk
	}

	b := &Backend{
		opts:        opts,
		renderer:    renderer,
		devices:     make(map[ports.DeviceKind][]ports.DeviceDescriptor),
		unplugged:   make(map[string]bool),
		denied:      make(map[ports.DeviceKind]bool),
		failAfter:   make(map[string]failure),
		openCount:   make(map[string]int),
		liveSources: make(map[string]int),
	}
	b.AddDevice(ports.DeviceDescriptor{Kind: ports.KindScreen, ID: "0", Name: "Synthetic Display",
		Bounds: &ports.Bounds{Width: 320, Height: 180}})
	b.AddDevice(ports.DeviceDescriptor{Kind: ports.KindWindow, ID: "101", Name: "Editor", OwnerName: "Synthetic Editor",
		Bounds: &ports.Bounds{X: 20, Y: 20, Width: 200, Height: 120}})
	b.AddDevice(ports.DeviceDescriptor{Kind: ports.KindWindow, ID: "102", Name: "Terminal", OwnerName: "Synthetic Shell",
		Bounds: &ports.Bounds{X: 100, Y: 40, Width: 160, Height: 100}})
	b.AddDevice(ports.DeviceDescriptor{Kind: ports.KindCamera, ID: "cam0", Name: "Synthetic Camera",
		Bounds: &ports.Bounds{Width: 160, Height: 120}})
	b.AddDevice(ports.DeviceDescriptor{Kind: ports.KindAudio, ID: "mic0", Name: "Synthetic Microphone"})
	return b
}

// AddDevice registers a device. Backend, FPS and audio format are filled in.
func (b *Backend) AddDevice(d ports.DeviceDescriptor) {
	b.mu.Lock()
	defer b.mu.Unlock()

	d.Backend = Name
	switch d.Kind {
	case ports.KindAudio:
		d.SampleRate, d.Channels = b.opts.SampleRate, b.opts.Channels
	case ports.KindScreen, ports.KindWindow, ports.KindCamera:
		d.FPS = b.opts.FPS
	}
	b.devices[d.Kind] = append(b.devices[d.Kind], d)
}

// Unplug makes a device disappear from enumeration. Open fails with
// DeviceUnavailable and running sources for it stop with that error.
func (b *Backend) Unplug(kind ports.DeviceKind, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.unplugged[string(kind)+"/"+id] = true
}

// Deny makes the OS refuse capture of every device of kind.
func (b *Backend) Deny(kind ports.DeviceKind) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.denied[kind] = true
}

// FailAfter makes the next source opened for the device fail with err
// after producing n frames.
func (b *Backend) FailAfter(kind ports.DeviceKind, id string, n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failAfter[string(kind)+"/"+id] = failure{frames: n, err: err}
}

// OpenCount returns how many times a device was opened.
func (b *Backend) OpenCount(kind ports.DeviceKind, id string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.openCount[string(kind)+"/"+id]
}

// LiveSources returns the number of sources not yet closed.
func (b *Backend) LiveSources() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.liveSources {
		n += c
	}
	return n
}

// Name returns the backend identifier.
func (b *Backend) Name() string {
	return Name
}

// Enumerate lists plugged-in devices of kind sorted by ID.
func (b *Backend) Enumerate(kind ports.DeviceKind) ([]ports.DeviceDescriptor, error) {
	switch kind {
	case ports.KindScreen, ports.KindWindow, ports.KindCamera, ports.KindAudio:
	default:
		return nil, fmt.Errorf("unknown device kind %q", kind)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	var out []ports.DeviceDescriptor
	for _, d := range b.devices[kind] {
		if !b.unplugged[string(kind)+"/"+d.ID] {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Permissions reports denied kinds as denied and everything else granted.
func (b *Backend) Permissions() ports.PermissionsCheck {
	b.mu.Lock()
	defer b.mu.Unlock()

	status := func(kinds ...ports.DeviceKind) ports.PermissionStatus {
		for _, k := range kinds {
			if b.denied[k] {
				return ports.PermissionDenied
			}
		}
		return ports.PermissionGranted
	}
	return ports.PermissionsCheck{
		ScreenRecording: status(ports.KindScreen, ports.KindWindow),
		Camera:          status(ports.KindCamera),
		Microphone:      status(ports.KindAudio),
		Accessibility:   ports.PermissionNotNeeded,
	}
}

// Open starts generating media for desc.
func (b *Backend) Open(ctx context.Context, desc ports.DeviceDescriptor) (ports.CaptureSource, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.New(apperr.KindCancelled, "open", err)
	}
	key := string(desc.Kind) + "/" + desc.ID

	b.mu.Lock()
	if b.denied[desc.Kind] {
		b.mu.Unlock()
		return nil, apperr.Device(apperr.KindPermissionDenied, "open", desc.Name,
			fmt.Errorf("capture of %s devices is not permitted", desc.Kind))
	}
	var found *ports.DeviceDescriptor
	for i, d := range b.devices[desc.Kind] {
		if d.ID == desc.ID && !b.unplugged[key] {
			found = &b.devices[desc.Kind][i]
			break
		}
	}
	if found == nil {
		b.mu.Unlock()
		return nil, apperr.Device(apperr.KindDeviceUnavailable, "open", desc.Name,
			errors.New("device is no longer connected"))
	}
	d := *found
	fail, hasFail := b.failAfter[key]
	delete(b.failAfter, key)
	b.openCount[key]++
	b.liveSources[key]++
	b.mu.Unlock()

	produce := b.videoProducer(d)
	if d.Kind == ports.KindAudio {
		produce = b.audioProducer(d)
	}
	if hasFail {
		produce = failingAfter(produce, fail)
	}
	return &trackedSource{
		Source: capture.StartSource(d, 8, produce),
		done: func() {
			b.mu.Lock()
			b.liveSources[key]--
			b.mu.Unlock()
		},
	}, nil
}

// unpluggedErr reports whether a device was unplugged while open.
func (b *Backend) unpluggedErr(d ports.DeviceDescriptor) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.unplugged[string(d.Kind)+"/"+d.ID] {
		return apperr.Device(apperr.KindDeviceUnavailable, "capture", d.Name, errors.New("device disconnected"))
	}
	return nil
}

func (b *Backend) videoProducer(d ports.DeviceDescriptor) capture.ProduceFunc {
	w, h := 320, 180
	if d.Bounds != nil {
		w, h = int(d.Bounds.Width), int(d.Bounds.Height)
	}
	return func(ctx context.Context, emit func(ports.CaptureFrame) bool) error {
		ticker := time.NewTicker(time.Duration(float64(time.Second) / b.opts.FPS))
		defer ticker.Stop()

		start := time.Now()
		for n := 0; ; n++ {
			if err := b.unpluggedErr(d); err != nil {
				return err
			}
			captured := time.Now()
			phase := captured.Sub(start).Seconds()
			data, err := b.pattern(w, h, n, phase)
			if err != nil {
				return apperr.Device(apperr.KindIOFailure, "capture", d.Name, err)
			}
			f := ports.CaptureFrame{
				Kind:     d.Kind,
				Captured: captured,
				Format:   ports.FrameJPEG,
				Data:     data,
				Width:    w,
				Height:   h,
			}
			if d.Kind == ports.KindScreen || d.Kind == ports.KindWindow {
				f.Cursor = &ports.CursorState{
					X:     0.5 + 0.3*math.Cos(phase),
					Y:     0.5 + 0.3*math.Sin(phase),
					Shape: ports.CursorArrow,
				}
			}
			if !emit(f) {
				return nil
			}
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	}
}

// pattern draws a bar sweeping across a grey field plus a frame counter
// stripe, so consecutive frames differ.
func (b *Backend) pattern(w, h, n int, phase float64) ([]byte, error) {
	canvas := b.renderer.CreateCanvas(w, h, color.RGBA{R: 40, G: 44, B: 52, A: 255})
	barW := w / 8
	x := int(float64(w-barW) * (0.5 + 0.5*math.Sin(phase)))
	canvas.DrawRect(x, 0, barW, h, color.RGBA{R: 97, G: 175, B: 239, A: 255})
	canvas.DrawRect(0, h-6, (n%w)+1, 6, color.RGBA{R: 229, G: 192, B: 123, A: 255})
	return b.renderer.EncodeImage(canvas.ToImage(), ports.FormatJPEG, b.opts.JPEGQuality)
}

func (b *Backend) audioProducer(d ports.DeviceDescriptor) capture.ProduceFunc {
	rate, channels := d.SampleRate, d.Channels
	perChunk := int(int64(rate) * int64(b.opts.AudioChunk) / int64(time.Second))
	return func(ctx context.Context, emit func(ports.CaptureFrame) bool) error {
		ticker := time.NewTicker(b.opts.AudioChunk)
		defer ticker.Stop()

		sample := 0
		for {
			if err := b.unpluggedErr(d); err != nil {
				return err
			}
			captured := time.Now()
			pcm := make([]byte, perChunk*channels*2)
			for i := 0; i < perChunk; i++ {
				v := int16(8000 * math.Sin(2*math.Pi*440*float64(sample+i)/float64(rate)))
				for c := 0; c < channels; c++ {
					binary.LittleEndian.PutUint16(pcm[(i*channels+c)*2:], uint16(v))
				}
			}
			sample += perChunk
			if !emit(ports.CaptureFrame{
				Kind:       ports.KindAudio,
				Captured:   captured,
				Format:     ports.FramePCM16,
				Data:       pcm,
				SampleRate: rate,
				Channels:   channels,
			}) {
				return nil
			}
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	}
}

func failingAfter(produce capture.ProduceFunc, f failure) capture.ProduceFunc {
	return func(ctx context.Context, emit func(ports.CaptureFrame) bool) error {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		n := 0
		var failed bool
		err := produce(ctx, func(frame ports.CaptureFrame) bool {
			if n >= f.frames {
				failed = true
				cancel()
				return false
			}
			n++
			return emit(frame)
		})
		if failed {
			return f.err
		}
		return err
	}
}

type trackedSource struct {
	*capture.Source
	once sync.Once
	done func()
}

func (s *trackedSource) Close() error {
	err := s.Source.Close()
	s.once.Do(s.done)
	return err
}

var _ ports.CaptureBackend = (*Backend)(nil)
