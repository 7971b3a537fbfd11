// Package apperr defines the error taxonomy shared by capture, recording,
// rendering and editing.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can pick the right remediation.
type Kind string

const (
	KindInvalidOptions    Kind = "InvalidOptions"
	KindDeviceUnavailable Kind = "DeviceUnavailable"
	KindDeviceBusy        Kind = "DeviceBusy"
	KindPermissionDenied  Kind = "PermissionDenied"
	KindRenderFailed      Kind = "RenderFailed"
	KindNotFound          Kind = "NotFound"
	KindIOFailure         Kind = "IOFailure"
	KindCancelled         Kind = "Cancelled"
	KindSessionActive     Kind = "SessionActive"
)

// Sentinels for errors.Is.
var (
	ErrInvalidOptions    = &Error{Kind: KindInvalidOptions}
	ErrDeviceUnavailable = &Error{Kind: KindDeviceUnavailable}
	ErrDeviceBusy        = &Error{Kind: KindDeviceBusy}
	ErrPermissionDenied  = &Error{Kind: KindPermissionDenied}
	ErrRenderFailed      = &Error{Kind: KindRenderFailed}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrIOFailure         = &Error{Kind: KindIOFailure}
	ErrCancelled         = &Error{Kind: KindCancelled}
	ErrSessionActive     = &Error{Kind: KindSessionActive}
)

// Error is a classified failure. Device is set for capture-source failures and
// Frame (>= 0) for failures tied to a specific frame index.
type Error struct {
	Kind   Kind
	Op     string
	Device string
	Frame  int
	Err    error
}

// New creates an error of the given kind.
func New(kind Kind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Frame: -1, Err: cause}
}

// Newf creates an error of the given kind with a formatted cause.
func Newf(kind Kind, op string, format string, args ...interface{}) *Error {
	return New(kind, op, fmt.Errorf(format, args...))
}

// Device creates a capture-source error carrying the device identity.
func Device(kind Kind, op, device string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Device: device, Frame: -1, Err: cause}
}

// AtFrame creates an error tied to a frame index.
func AtFrame(kind Kind, op string, frame int, cause error) *Error {
	return &Error{Kind: kind, Op: op, Frame: frame, Err: cause}
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Device != "" {
		msg += fmt.Sprintf(" (device %q)", e.Device)
	}
	if e.Frame >= 0 && e.Err != nil {
		msg += fmt.Sprintf(" at frame %d", e.Frame)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in the chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
