package eventbus

import "time"

// Event is implemented by every event. Events are plain structs with JSON
// tags so transports can forward them as-is.
type Event interface {
	// EventType is the wire name, e.g. "recordingStarted".
	EventType() string
	Timestamp() time.Time
}

// Event type names.
const (
	TypeRecordingOptionsChanged = "recordingOptionsChanged"
	TypeRecordingStarted        = "recordingStarted"
	TypeRecordingStopped        = "recordingStopped"
	TypeRecordingFailed         = "recordingFailed"
	TypeNewRecordingAdded       = "newRecordingAdded"
	TypeRecordingsChanged       = "recordingsChanged"
	TypeRecordingDeleted        = "recordingDeleted"
	TypeEditorStateChanged      = "editorStateChanged"
	TypePlaybackEnded           = "playbackEnded"
	TypeEditorFailed            = "editorFailed"
	TypeRenderFinished          = "renderFinished"
)

// Base carries the timestamp. Embed it in concrete events.
type Base struct {
	At time.Time `json:"at"`
}

// Timestamp returns when the event occurred.
func (b Base) Timestamp() time.Time { return b.At }

func now() Base { return Base{At: time.Now()} }

// RecordingOptionsChanged is published when the recording options are set.
type RecordingOptionsChanged struct {
	Base
	Options interface{} `json:"options"`
}

func (RecordingOptionsChanged) EventType() string { return TypeRecordingOptionsChanged }

// NewRecordingOptionsChanged creates a RecordingOptionsChanged event.
func NewRecordingOptionsChanged(options interface{}) RecordingOptionsChanged {
	return RecordingOptionsChanged{Base: now(), Options: options}
}

// RecordingStarted is published when a session becomes active.
type RecordingStarted struct {
	Base
	VideoID      string `json:"videoId"`
	RecordingDir string `json:"recordingDir"`
}

func (RecordingStarted) EventType() string { return TypeRecordingStarted }

// NewRecordingStarted creates a RecordingStarted event.
func NewRecordingStarted(videoID, dir string) RecordingStarted {
	return RecordingStarted{Base: now(), VideoID: videoID, RecordingDir: dir}
}

// RecordingStopped is published when a session is finalized.
type RecordingStopped struct {
	Base
	VideoID string `json:"videoId"`
}

func (RecordingStopped) EventType() string { return TypeRecordingStopped }

// NewRecordingStopped creates a RecordingStopped event.
func NewRecordingStopped(videoID string) RecordingStopped {
	return RecordingStopped{Base: now(), VideoID: videoID}
}

// RecordingFailed is published when an active session aborts.
type RecordingFailed struct {
	Base
	VideoID string `json:"videoId"`
	Kind    string `json:"kind"`
	Reason  string `json:"reason"`
}

func (RecordingFailed) EventType() string { return TypeRecordingFailed }

// NewRecordingFailed creates a RecordingFailed event.
func NewRecordingFailed(videoID, kind, reason string) RecordingFailed {
	return RecordingFailed{Base: now(), VideoID: videoID, Kind: kind, Reason: reason}
}

// NewRecordingAdded is published when a recording lands in the library.
type NewRecordingAdded struct {
	Base
	VideoID    string `json:"videoId"`
	Incomplete bool   `json:"incomplete"`
}

func (NewRecordingAdded) EventType() string { return TypeNewRecordingAdded }

// NewNewRecordingAdded creates a NewRecordingAdded event.
func NewNewRecordingAdded(videoID string, incomplete bool) NewRecordingAdded {
	return NewRecordingAdded{Base: now(), VideoID: videoID, Incomplete: incomplete}
}

// RecordingsChanged is published when the library changes on disk outside
// this process.
type RecordingsChanged struct {
	Base
	Paths []string `json:"paths"`
}

func (RecordingsChanged) EventType() string { return TypeRecordingsChanged }

// NewRecordingsChanged creates a RecordingsChanged event.
func NewRecordingsChanged(paths []string) RecordingsChanged {
	return RecordingsChanged{Base: now(), Paths: paths}
}

// RecordingDeleted is published after a recording is removed.
type RecordingDeleted struct {
	Base
	VideoID string `json:"videoId"`
}

func (RecordingDeleted) EventType() string { return TypeRecordingDeleted }

// NewRecordingDeleted creates a RecordingDeleted event.
func NewRecordingDeleted(videoID string) RecordingDeleted {
	return RecordingDeleted{Base: now(), VideoID: videoID}
}

// EditorStateChanged is published whenever an editor's playhead moves.
type EditorStateChanged struct {
	Base
	VideoID  string `json:"videoId"`
	Playhead int    `json:"playhead"`
	Playing  bool   `json:"playing"`
}

func (EditorStateChanged) EventType() string { return TypeEditorStateChanged }

// NewEditorStateChanged creates an EditorStateChanged event.
func NewEditorStateChanged(videoID string, playhead int, playing bool) EditorStateChanged {
	return EditorStateChanged{Base: now(), VideoID: videoID, Playhead: playhead, Playing: playing}
}

// PlaybackEnded is published when playback reaches the last frame.
type PlaybackEnded struct {
	Base
	VideoID string `json:"videoId"`
}

func (PlaybackEnded) EventType() string { return TypePlaybackEnded }

// NewPlaybackEnded creates a PlaybackEnded event.
func NewPlaybackEnded(videoID string) PlaybackEnded {
	return PlaybackEnded{Base: now(), VideoID: videoID}
}

// EditorFailed is published when playback stops on a frame that could not
// be composed.
type EditorFailed struct {
	Base
	VideoID string `json:"videoId"`
	Frame   int    `json:"frame"`
	Reason  string `json:"reason"`
}

func (EditorFailed) EventType() string { return TypeEditorFailed }

// NewEditorFailed creates an EditorFailed event.
func NewEditorFailed(videoID string, frame int, reason string) EditorFailed {
	return EditorFailed{Base: now(), VideoID: videoID, Frame: frame, Reason: reason}
}

// RenderFinished is published when a render job ends.
type RenderFinished struct {
	Base
	VideoID string `json:"videoId"`
	Path    string `json:"path,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (RenderFinished) EventType() string { return TypeRenderFinished }

// NewRenderFinished creates a RenderFinished event. err is empty on success.
func NewRenderFinished(videoID, path, err string) RenderFinished {
	return RenderFinished{Base: now(), VideoID: videoID, Path: path, Error: err}
}
