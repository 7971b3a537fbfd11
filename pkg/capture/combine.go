package capture

import (
	"context"
	"fmt"
	"strings"

	"github.com/user/clipdeck/pkg/apperr"
	"github.com/user/clipdeck/pkg/ports"
)

// Combined merges several backends into one. Enumeration concatenates the
// backends in order; Open is routed by the descriptor's Backend field.
type Combined struct {
	backends []ports.CaptureBackend
}

// Combine creates a backend over backends.
func Combine(backends ...ports.CaptureBackend) *Combined {
	return &Combined{backends: backends}
}

// Name joins the names of the combined backends.
func (c *Combined) Name() string {
	names := make([]string, len(c.backends))
	for i, b := range c.backends {
		names[i] = b.Name()
	}
	return strings.Join(names, "+")
}

// Enumerate lists the devices of kind from every backend.
func (c *Combined) Enumerate(kind ports.DeviceKind) ([]ports.DeviceDescriptor, error) {
	var out []ports.DeviceDescriptor
	for _, b := range c.backends {
		descs, err := b.Enumerate(kind)
		if err != nil {
			return nil, fmt.Errorf("enumerate %s on %s: %w", kind, b.Name(), err)
		}
		out = append(out, descs...)
	}
	return out, nil
}

// Open opens desc on the backend that produced it.
func (c *Combined) Open(ctx context.Context, desc ports.DeviceDescriptor) (ports.CaptureSource, error) {
	for _, b := range c.backends {
		if b.Name() == desc.Backend {
			return b.Open(ctx, desc)
		}
	}
	return nil, apperr.Device(apperr.KindDeviceUnavailable, "open", desc.Name,
		fmt.Errorf("no backend %q", desc.Backend))
}

// Permissions merges the per-backend checks, keeping the most restrictive
// status of each permission.
func (c *Combined) Permissions() ports.PermissionsCheck {
	var out ports.PermissionsCheck
	for i, b := range c.backends {
		p := b.Permissions()
		if i == 0 {
			out = p
			continue
		}
		out.ScreenRecording = stricter(out.ScreenRecording, p.ScreenRecording)
		out.Camera = stricter(out.Camera, p.Camera)
		out.Microphone = stricter(out.Microphone, p.Microphone)
		out.Accessibility = stricter(out.Accessibility, p.Accessibility)
	}
	return out
}

func stricter(a, b ports.PermissionStatus) ports.PermissionStatus {
	if rank(b) > rank(a) {
		return b
	}
	return a
}

func rank(s ports.PermissionStatus) int {
	switch s {
	case ports.PermissionNotNeeded:
		return 0
	case ports.PermissionGranted:
		return 1
	case ports.PermissionEmpty:
		return 2
	case ports.PermissionDenied:
		return 3
	}
	return 3
}

var _ ports.CaptureBackend = (*Combined)(nil)
