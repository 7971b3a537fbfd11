// Package recording implements the recording session state machine and the
// on-disk recording library.
package recording

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"
)

// CaptureTarget identifies what a session captures. It is either
// ScreenTarget or WindowTarget.
type CaptureTarget interface {
	targetType() string
}

// ScreenTarget captures the primary display.
type ScreenTarget struct{}

// WindowTarget captures a single window.
type WindowTarget struct {
	ID uint32 `json:"id"`
}

func (ScreenTarget) targetType() string { return "screen" }
func (WindowTarget) targetType() string { return "window" }

func encodeTarget(t CaptureTarget) (json.RawMessage, error) {
	switch v := t.(type) {
	case nil:
		return json.RawMessage("null"), nil
	case ScreenTarget:
		return json.RawMessage(`{"type":"screen"}`), nil
	case WindowTarget:
		return json.Marshal(struct {
			Type string `json:"type"`
			ID   uint32 `json:"id"`
		}{"window", v.ID})
	default:
		return nil, fmt.Errorf("unknown capture target %T", t)
	}
}

func decodeTarget(data json.RawMessage) (CaptureTarget, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var raw struct {
		Type string `json:"type"`
		ID   uint32 `json:"id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode capture target: %w", err)
	}
	switch raw.Type {
	case "screen":
		return ScreenTarget{}, nil
	case "window":
		return WindowTarget{ID: raw.ID}, nil
	default:
		return nil, fmt.Errorf("unknown capture target type %q", raw.Type)
	}
}

// Options is the user's device selection for the next session.
type Options struct {
	CaptureTarget  CaptureTarget `json:"captureTarget"`
	CameraLabel    *string       `json:"cameraLabel"`
	AudioInputName *string       `json:"audioInputName"`
}

// DefaultOptions captures the primary screen with no camera or microphone.
func DefaultOptions() Options {
	return Options{CaptureTarget: ScreenTarget{}}
}

func (o Options) MarshalJSON() ([]byte, error) {
	type plain Options
	target, err := encodeTarget(o.CaptureTarget)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		plain
		CaptureTarget json.RawMessage `json:"captureTarget"`
	}{plain(o), target})
}

func (o *Options) UnmarshalJSON(data []byte) error {
	type plain Options
	raw := struct {
		*plain
		CaptureTarget json.RawMessage `json:"captureTarget"`
	}{plain: (*plain)(o)}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	target, err := decodeTarget(raw.CaptureTarget)
	if err != nil {
		return err
	}
	o.CaptureTarget = target
	return nil
}

// VideoTrackMeta describes a persisted video track. Times are in seconds of
// session time.
type VideoTrackMeta struct {
	File        string  `json:"file"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	FPS         float64 `json:"fps"`
	Frames      int     `json:"frames"`
	Duration    float64 `json:"duration"`
	StartOffset float64 `json:"startOffset"`
}

// AudioTrackMeta describes a persisted audio track.
type AudioTrackMeta struct {
	File        string  `json:"file"`
	SampleRate  int     `json:"sampleRate"`
	Channels    int     `json:"channels"`
	Duration    float64 `json:"duration"`
	StartOffset float64 `json:"startOffset"`
}

// CursorTrackMeta describes the recorded cursor positions.
type CursorTrackMeta struct {
	File    string `json:"file"`
	Samples int    `json:"samples"`
}

// Recording is a completed recording directory.
type Recording struct {
	ID            string           `json:"id"`
	Dir           string           `json:"-"`
	CreatedAt     time.Time        `json:"createdAt"`
	Incomplete    bool             `json:"incomplete,omitempty"`
	Failure       string           `json:"failure,omitempty"`
	DisplaySource CaptureTarget    `json:"displaySource"`
	Display       VideoTrackMeta   `json:"display"`
	Camera        *VideoTrackMeta  `json:"camera"`
	Audio         *AudioTrackMeta  `json:"audio"`
	Cursor        *CursorTrackMeta `json:"cursor,omitempty"`
}

func (r Recording) MarshalJSON() ([]byte, error) {
	type plain Recording
	target, err := encodeTarget(r.DisplaySource)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		plain
		DisplaySource json.RawMessage `json:"displaySource"`
	}{plain(r), target})
}

func (r *Recording) UnmarshalJSON(data []byte) error {
	type plain Recording
	raw := struct {
		*plain
		DisplaySource json.RawMessage `json:"displaySource"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	target, err := decodeTarget(raw.DisplaySource)
	if err != nil {
		return err
	}
	r.DisplaySource = target
	return nil
}

// Path returns the absolute path of a file inside the recording.
func (r *Recording) Path(file string) string {
	return filepath.Join(r.Dir, file)
}

// Duration is the display track duration.
func (r *Recording) Duration() time.Duration {
	return Seconds(r.Display.Duration)
}

// InProgress is the handle of an active session.
type InProgress struct {
	ID            string        `json:"id"`
	RecordingDir  string        `json:"recordingDir"`
	DisplaySource CaptureTarget `json:"displaySource"`
	StartedAt     time.Time     `json:"startedAt"`
}

// State is a session lifecycle state.
type State int

const (
	StateIdle State = iota
	StateStarting
	StateActive
	StateStopping
	StateFinalized
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateActive:
		return "active"
	case StateStopping:
		return "stopping"
	case StateFinalized:
		return "finalized"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Track file names inside a recording directory.
const (
	DisplayFile   = "display.mp4"
	CameraFile    = "camera.mp4"
	AudioFile     = "audio.wav"
	CursorFile    = "cursor.json"
	MetaFile      = "recording.json"
	ProjectFile   = "project.json"
	RendersDir    = "renders"
	InProgressDir = ".inprogress"
)

// Seconds converts float seconds to a duration.
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func toSeconds(d time.Duration) float64 {
	return d.Seconds()
}

func (p InProgress) MarshalJSON() ([]byte, error) {
	type plain InProgress
	target, err := encodeTarget(p.DisplaySource)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		plain
		DisplaySource json.RawMessage `json:"displaySource"`
	}{plain(p), target})
}
