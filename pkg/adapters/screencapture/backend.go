// Package screencapture captures displays with github.com/kbinani/screenshot.
// It grabs the display at a fixed rate and JPEG-encodes each grab at the
// device edge. Windows, cameras and audio inputs are not available through
// this backend and enumerate empty.
package screencapture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strconv"
	"time"

	"github.com/kbinani/screenshot"

	"github.com/user/clipdeck/pkg/apperr"
	"github.com/user/clipdeck/pkg/capture"
	"github.com/user/clipdeck/pkg/ports"
)

// Name is the backend identifier stamped on descriptors.
const Name = "screen"

// maxConsecutiveErrors is how many grabs in a row may fail before the
// source gives up.
const maxConsecutiveErrors = 10

// Options configures the backend.
type Options struct {
	FPS         float64
	JPEGQuality int
}

// Backend implements ports.CaptureBackend for physical displays.
type Backend struct {
	opts     Options
	renderer ports.Renderer
	logger   ports.Logger

	// grab is replaced in tests.
	grab func(image.Rectangle) (*image.RGBA, error)
}

// New creates a display backend. The renderer encodes grabs to JPEG.
func New(opts Options, renderer ports.Renderer, logger ports.Logger) *Backend {
	if opts.FPS <= 0 {
		opts.FPS = 30
	}
	if opts.JPEGQuality <= 0 {
		opts.JPEGQuality = 85
	}
	return &Backend{
		opts:     opts,
		renderer: renderer,
		logger:   logger.WithComponent("screen"),
		grab:     screenshot.CaptureRect,
	}
}

// Name returns the backend identifier.
func (b *Backend) Name() string {
	return Name
}

// Enumerate lists active displays, primary first.
func (b *Backend) Enumerate(kind ports.DeviceKind) ([]ports.DeviceDescriptor, error) {
	switch kind {
	case ports.KindScreen:
		total := screenshot.NumActiveDisplays()
		descs := make([]ports.DeviceDescriptor, 0, total)
		for i := 0; i < total; i++ {
			descs = append(descs, b.describe(i, screenshot.GetDisplayBounds(i)))
		}
		return descs, nil
	case ports.KindWindow, ports.KindCamera, ports.KindAudio:
		return nil, nil
	}
	return nil, fmt.Errorf("unknown device kind %q", kind)
}

func (b *Backend) describe(index int, bounds image.Rectangle) ports.DeviceDescriptor {
	name := fmt.Sprintf("Display %d", index+1)
	if index == 0 {
		name += " (primary)"
	}
	return ports.DeviceDescriptor{
		Kind:    ports.KindScreen,
		ID:      strconv.Itoa(index),
		Name:    name,
		Backend: Name,
		Bounds: &ports.Bounds{
			X:      float64(bounds.Min.X),
			Y:      float64(bounds.Min.Y),
			Width:  float64(bounds.Dx()),
			Height: float64(bounds.Dy()),
		},
		FPS: b.opts.FPS,
	}
}

// Open starts grabbing a display. A probe grab distinguishes a display that
// vanished from one the OS refuses to capture.
func (b *Backend) Open(ctx context.Context, desc ports.DeviceDescriptor) (ports.CaptureSource, error) {
	if desc.Kind != ports.KindScreen {
		return nil, apperr.Device(apperr.KindDeviceUnavailable, "open", desc.Name,
			fmt.Errorf("%s devices are not supported by the screen backend", desc.Kind))
	}
	index, err := strconv.Atoi(desc.ID)
	if err != nil || index < 0 || index >= screenshot.NumActiveDisplays() {
		return nil, apperr.Device(apperr.KindDeviceUnavailable, "open", desc.Name,
			errors.New("display is no longer connected"))
	}
	bounds := screenshot.GetDisplayBounds(index)
	if bounds.Empty() {
		return nil, apperr.Device(apperr.KindDeviceUnavailable, "open", desc.Name,
			errors.New("display has zero bounds"))
	}
	if err := ctx.Err(); err != nil {
		return nil, apperr.New(apperr.KindCancelled, "open", err)
	}
	if _, err := b.grab(bounds); err != nil {
		return nil, apperr.Device(apperr.KindPermissionDenied, "open", desc.Name, err)
	}

	b.logger.Debug("Capturing %s at %.0f fps", desc.Name, b.opts.FPS)
	return capture.StartSource(desc, 4, func(ctx context.Context, emit func(ports.CaptureFrame) bool) error {
		return b.produce(ctx, desc, bounds, emit)
	}), nil
}

func (b *Backend) produce(ctx context.Context, desc ports.DeviceDescriptor, bounds image.Rectangle, emit func(ports.CaptureFrame) bool) error {
	ticker := time.NewTicker(time.Duration(float64(time.Second) / b.opts.FPS))
	defer ticker.Stop()

	numErrors := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		captured := time.Now()
		img, err := b.grab(bounds)
		if err != nil {
			numErrors++
			b.logger.Warn("Screen grab failed: %v", err)
			if numErrors > maxConsecutiveErrors {
				return apperr.Device(apperr.KindDeviceUnavailable, "capture", desc.Name, err)
			}
			continue
		}
		numErrors = 0

		data, err := b.renderer.EncodeImage(img, ports.FormatJPEG, b.opts.JPEGQuality)
		if err != nil {
			return apperr.Device(apperr.KindIOFailure, "capture", desc.Name, err)
		}
		if !emit(ports.CaptureFrame{
			Kind:     ports.KindScreen,
			Captured: captured,
			Format:   ports.FrameJPEG,
			Data:     data,
			Width:    img.Rect.Dx(),
			Height:   img.Rect.Dy(),
		}) {
			return nil
		}
	}
}

// Permissions probes screen capture with a one-pixel grab. Cameras and
// microphones are not used by this backend.
func (b *Backend) Permissions() ports.PermissionsCheck {
	check := ports.PermissionsCheck{
		ScreenRecording: ports.PermissionGranted,
		Camera:          ports.PermissionNotNeeded,
		Microphone:      ports.PermissionNotNeeded,
		Accessibility:   ports.PermissionNotNeeded,
	}
	if screenshot.NumActiveDisplays() == 0 {
		check.ScreenRecording = ports.PermissionEmpty
		return check
	}
	origin := screenshot.GetDisplayBounds(0).Min
	if _, err := b.grab(image.Rectangle{Min: origin, Max: origin.Add(image.Pt(1, 1))}); err != nil {
		check.ScreenRecording = ports.PermissionDenied
	}
	return check
}

var _ ports.CaptureBackend = (*Backend)(nil)
