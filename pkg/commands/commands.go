// Package commands is the front-end command surface: one request type per
// operation, a decoder for {"type", "payload"} envelopes and a dispatcher
// that runs requests against the application.
package commands

import (
	"github.com/user/clipdeck/pkg/project"
	"github.com/user/clipdeck/pkg/recording"
)

// Command is a decoded front-end request. The set of commands is closed.
type Command interface {
	commandType() string
}

// Type returns the wire name of cmd.
func Type(cmd Command) string {
	return cmd.commandType()
}

// Command wire names.
const (
	TypeGetRecordingOptions = "getRecordingOptions"
	TypeSetRecordingOptions = "setRecordingOptions"
	TypeStartRecording      = "startRecording"
	TypeStopRecording       = "stopRecording"
	TypeListCameras         = "listCameras"
	TypeListCaptureWindows  = "listCaptureWindows"
	TypeListAudioDevices    = "listAudioDevices"
	TypeListScreens         = "listScreens"
	TypeCheckPermissions    = "checkPermissions"
	TypeListRecordings      = "listRecordings"
	TypeGetRecordingMeta    = "getRecordingMeta"
	TypeGetVideoMetadata    = "getVideoMetadata"
	TypeRenderToFile        = "renderToFile"
	TypeGetRenderedVideo    = "getRenderedVideo"
	TypeCopyRenderedVideo   = "copyRenderedVideo"
	TypeCreateEditor        = "createEditorInstance"
	TypeGetEditor           = "getEditorInstance"
	TypeCloseEditor         = "closeEditorInstance"
	TypeSaveProject         = "saveProjectConfig"
	TypeSetProjectConfig    = "setProjectConfig"
	TypeStartPlayback       = "startPlayback"
	TypeStopPlayback        = "stopPlayback"
	TypeSetPlayhead         = "setPlayheadPosition"
	TypeDeleteRecording     = "deleteRecording"
)

type GetRecordingOptions struct{}

type SetRecordingOptions struct {
	Options recording.Options `json:"options"`
}

type StartRecording struct{}

type StopRecording struct{}

type ListCameras struct{}

type ListCaptureWindows struct{}

type ListAudioDevices struct{}

type ListScreens struct{}

type CheckPermissions struct{}

type ListRecordings struct{}

type GetRecordingMeta struct {
	VideoID string `json:"videoId"`
}

type GetVideoMetadata struct {
	VideoID string `json:"videoId"`
}

// RenderToFile renders a recording. A nil Project renders the saved one.
type RenderToFile struct {
	VideoID string                 `json:"videoId"`
	Project *project.Configuration `json:"project"`
}

type GetRenderedVideo struct {
	VideoID string                 `json:"videoId"`
	Project *project.Configuration `json:"project"`
}

// CopyRenderedVideo copies a cached render to Destination, a file path or
// an existing directory.
type CopyRenderedVideo struct {
	VideoID     string                 `json:"videoId"`
	Project     *project.Configuration `json:"project"`
	Destination string                 `json:"destination"`
}

type CreateEditor struct {
	VideoID string `json:"videoId"`
}

type GetEditor struct {
	VideoID string `json:"videoId"`
}

type CloseEditor struct {
	VideoID string `json:"videoId"`
}

type SaveProject struct {
	VideoID string                 `json:"videoId"`
	Project *project.Configuration `json:"project"`
}

type SetProjectConfig struct {
	VideoID string                 `json:"videoId"`
	Project *project.Configuration `json:"project"`
}

type StartPlayback struct {
	VideoID string `json:"videoId"`
}

type StopPlayback struct {
	VideoID string `json:"videoId"`
}

type SetPlayhead struct {
	VideoID string `json:"videoId"`
	Frame   int    `json:"frame"`
}

type DeleteRecording struct {
	VideoID string `json:"videoId"`
}

func (GetRecordingOptions) commandType() string { return TypeGetRecordingOptions }
func (SetRecordingOptions) commandType() string { return TypeSetRecordingOptions }
func (StartRecording) commandType() string      { return TypeStartRecording }
func (StopRecording) commandType() string       { return TypeStopRecording }
func (ListCameras) commandType() string         { return TypeListCameras }
func (ListCaptureWindows) commandType() string  { return TypeListCaptureWindows }
func (ListAudioDevices) commandType() string    { return TypeListAudioDevices }
func (ListScreens) commandType() string         { return TypeListScreens }
func (CheckPermissions) commandType() string    { return TypeCheckPermissions }
func (ListRecordings) commandType() string      { return TypeListRecordings }
func (GetRecordingMeta) commandType() string    { return TypeGetRecordingMeta }
func (GetVideoMetadata) commandType() string    { return TypeGetVideoMetadata }
func (RenderToFile) commandType() string        { return TypeRenderToFile }
func (GetRenderedVideo) commandType() string    { return TypeGetRenderedVideo }
func (CopyRenderedVideo) commandType() string   { return TypeCopyRenderedVideo }
func (CreateEditor) commandType() string        { return TypeCreateEditor }
func (GetEditor) commandType() string           { return TypeGetEditor }
func (CloseEditor) commandType() string         { return TypeCloseEditor }
func (SaveProject) commandType() string         { return TypeSaveProject }
func (SetProjectConfig) commandType() string    { return TypeSetProjectConfig }
func (StartPlayback) commandType() string       { return TypeStartPlayback }
func (StopPlayback) commandType() string        { return TypeStopPlayback }
func (SetPlayhead) commandType() string         { return TypeSetPlayhead }
func (DeleteRecording) commandType() string     { return TypeDeleteRecording }
