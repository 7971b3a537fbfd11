package capture

import (
	"fmt"

	"github.com/user/clipdeck/pkg/apperr"
	"github.com/user/clipdeck/pkg/ports"
)

// Resolve re-enumerates kind and returns the device whose ID or, failing
// that, whose Name equals ref. A missing device is an InvalidOptions error:
// the caller's selection is stale and must be re-picked.
func Resolve(backend ports.CaptureBackend, kind ports.DeviceKind, ref string) (ports.DeviceDescriptor, error) {
	descs, err := backend.Enumerate(kind)
	if err != nil {
		return ports.DeviceDescriptor{}, apperr.New(apperr.KindDeviceUnavailable, "enumerate", err)
	}
	for _, d := range descs {
		if d.ID == ref {
			return d, nil
		}
	}
	for _, d := range descs {
		if d.Name == ref {
			return d, nil
		}
	}
	return ports.DeviceDescriptor{}, apperr.New(apperr.KindInvalidOptions, "resolve",
		fmt.Errorf("no %s device %q", kind, ref))
}

// Primary returns the first enumerated device of kind.
func Primary(backend ports.CaptureBackend, kind ports.DeviceKind) (ports.DeviceDescriptor, error) {
	descs, err := backend.Enumerate(kind)
	if err != nil {
		return ports.DeviceDescriptor{}, apperr.New(apperr.KindDeviceUnavailable, "enumerate", err)
	}
	if len(descs) == 0 {
		return ports.DeviceDescriptor{}, apperr.New(apperr.KindInvalidOptions, "resolve",
			fmt.Errorf("no %s device available", kind))
	}
	return descs[0], nil
}
