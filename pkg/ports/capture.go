package ports

import (
	"context"
	"fmt"
	"time"
)

// CaptureBackend abstracts the OS capture devices: displays, windows,
// cameras and audio inputs.
type CaptureBackend interface {
	// Name identifies the backend; descriptors carry it so Open can be routed.
	Name() string

	// Enumerate lists the devices of a kind in a stable order. It never
	// holds devices open.
	Enumerate(kind DeviceKind) ([]DeviceDescriptor, error)

	// Open starts producing frames from the device. It fails with a
	// DeviceUnavailable error if the descriptor no longer resolves and with
	// a PermissionDenied error if the OS refuses capture.
	Open(ctx context.Context, desc DeviceDescriptor) (CaptureSource, error)

	// Permissions reports the OS capture permission status.
	Permissions() PermissionsCheck
}

// CaptureSource is an open device producing timestamped frames.
type CaptureSource interface {
	Descriptor() DeviceDescriptor

	// Frames yields frames until the source is closed or fails. The channel
	// is closed when production stops.
	Frames() <-chan CaptureFrame

	// Close stops production. It is idempotent and safe to call from any
	// goroutine.
	Close() error

	// Err reports why production stopped, nil after a plain Close.
	Err() error
}

// DeviceKind is the kind of a capture device.
type DeviceKind string

const (
	KindScreen DeviceKind = "screen"
	KindWindow DeviceKind = "window"
	KindCamera DeviceKind = "camera"
	KindAudio  DeviceKind = "audio"
)

// Bounds is a rectangle in logical screen points.
type Bounds struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// DeviceDescriptor identifies a capture device.
type DeviceDescriptor struct {
	Kind      DeviceKind `json:"kind"`
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Backend   string     `json:"backend"`
	OwnerName string     `json:"ownerName,omitempty"` // owning application, windows only
	Bounds    *Bounds    `json:"bounds,omitempty"`

	FPS        float64 `json:"fps,omitempty"`
	SampleRate int     `json:"sampleRate,omitempty"`
	Channels   int     `json:"channels,omitempty"`
}

// Key is the identity used for exclusive device claims.
func (d DeviceDescriptor) Key() string {
	return fmt.Sprintf("%s/%s/%s", d.Backend, d.Kind, d.ID)
}

// FrameFormat is the encoding of a frame payload.
type FrameFormat string

const (
	FrameJPEG  FrameFormat = "jpeg"
	FramePCM16 FrameFormat = "pcm16"
)

// CaptureFrame is one unit of captured media. Video frames carry an encoded
// image, audio frames interleaved little-endian PCM16.
type CaptureFrame struct {
	Kind     DeviceKind
	Captured time.Time
	Format   FrameFormat
	Data     []byte

	Width  int
	Height int
	Cursor *CursorState // display frames only

	SampleRate int
	Channels   int
}

// CursorState is the pointer position relative to the captured area,
// 0..1 on each axis.
type CursorState struct {
	X     float64     `json:"x"`
	Y     float64     `json:"y"`
	Shape CursorShape `json:"shape"`
}

// CursorShape classifies the system cursor image.
type CursorShape string

const (
	CursorArrow                    CursorShape = "arrow"
	CursorIBeam                    CursorShape = "ibeam"
	CursorWait                     CursorShape = "wait"
	CursorAppStarting              CursorShape = "appStarting"
	CursorCrosshair                CursorShape = "crosshair"
	CursorResizeUp                 CursorShape = "resizeUp"
	CursorResizeLeftRight          CursorShape = "resizeLeftRight"
	CursorResizeUpDown             CursorShape = "resizeUpDown"
	CursorResizeUpLeftAndDownRight CursorShape = "resizeUpLeftAndDownRight"
	CursorResizeUpRightAndDownLeft CursorShape = "resizeUpRightAndDownLeft"
	CursorResizeAll                CursorShape = "resizeAll"
	CursorOpenHand                 CursorShape = "openHand"
	CursorNotAllowed               CursorShape = "notAllowed"
	CursorHelp                     CursorShape = "help"
	CursorHidden                   CursorShape = "hidden"
	CursorUnknown                  CursorShape = "unknown"
)

// PermissionStatus is the state of one OS capture permission.
type PermissionStatus string

const (
	PermissionNotNeeded PermissionStatus = "notNeeded"
	PermissionEmpty     PermissionStatus = "empty"
	PermissionGranted   PermissionStatus = "granted"
	PermissionDenied    PermissionStatus = "denied"
)

// Permitted reports whether capture may proceed under this status.
func (s PermissionStatus) Permitted() bool {
	switch s {
	case PermissionNotNeeded, PermissionGranted:
		return true
	case PermissionEmpty, PermissionDenied:
		return false
	}
	return false
}

// PermissionsCheck is the status of every permission the recorder needs.
type PermissionsCheck struct {
	ScreenRecording PermissionStatus `json:"screenRecording"`
	Camera          PermissionStatus `json:"camera"`
	Microphone      PermissionStatus `json:"microphone"`
	Accessibility   PermissionStatus `json:"accessibility"`
}

// Necessary reports whether the permissions required for any recording
// are in place.
func (p PermissionsCheck) Necessary() bool {
	return p.ScreenRecording.Permitted()
}

// ForKind returns the permission gating a device kind.
func (p PermissionsCheck) ForKind(kind DeviceKind) PermissionStatus {
	switch kind {
	case KindScreen, KindWindow:
		return p.ScreenRecording
	case KindCamera:
		return p.Camera
	case KindAudio:
		return p.Microphone
	}
	return PermissionEmpty
}
