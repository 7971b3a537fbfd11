package commands

import (
	"context"
	"fmt"

	"github.com/user/clipdeck/pkg/editor"
	"github.com/user/clipdeck/pkg/orchestrator"
	"github.com/user/clipdeck/pkg/ports"
	"github.com/user/clipdeck/pkg/project"
	"github.com/user/clipdeck/pkg/recording"
	"github.com/user/clipdeck/pkg/render"
)

// Service is the application the dispatcher runs commands against.
// *orchestrator.App implements it.
type Service interface {
	RecordingOptions() recording.Options
	SetRecordingOptions(opts recording.Options)
	StartRecording(ctx context.Context) (*recording.InProgress, error)
	StopRecording(ctx context.Context) (*recording.Recording, error)

	Cameras() ([]ports.DeviceDescriptor, error)
	CaptureWindows() ([]ports.DeviceDescriptor, error)
	AudioDevices() ([]ports.DeviceDescriptor, error)
	Screens() ([]ports.DeviceDescriptor, error)
	Permissions() ports.PermissionsCheck

	Recordings() ([]recording.Recording, error)
	RecordingMeta(id string) (*recording.Recording, error)
	VideoMetadata(id string) (orchestrator.VideoMetadata, error)
	DeleteRecording(id string) error

	RenderToFile(ctx context.Context, id string, cfg *project.Configuration, fn render.ProgressFunc) (string, error)
	RenderedVideo(id string, cfg *project.Configuration) (string, error)
	CopyRenderedVideo(id string, cfg *project.Configuration, dst string) (string, error)

	CreateEditor(ctx context.Context, id string) (editor.Info, error)
	EditorInfo(id string) (editor.Info, error)
	CloseEditor(id string) error
	SaveProject(id string, cfg *project.Configuration) error
	SetEditorProject(id string, cfg *project.Configuration) error
	StartPlayback(id string) error
	StopPlayback(id string) error
	SetPlayhead(id string, frame int) error
}

var _ Service = (*orchestrator.App)(nil)

// Response payloads.
type (
	Empty struct{}

	Devices struct {
		Devices []ports.DeviceDescriptor `json:"devices"`
	}

	Recordings struct {
		Recordings []recording.Recording `json:"recordings"`
	}

	// RecordingStopped carries the saved recording, or nil when no
	// recording was running.
	RecordingStopped struct {
		Recording *recording.Recording `json:"recording"`
	}

	RenderedVideo struct {
		Path string `json:"path"`
	}
)

// Dispatcher runs decoded commands.
type Dispatcher struct {
	svc Service
}

// NewDispatcher creates a dispatcher for svc.
func NewDispatcher(svc Service) *Dispatcher {
	return &Dispatcher{svc: svc}
}

// Dispatch runs cmd and returns its response payload. fn receives the
// progress of RenderToFile and is ignored by every other command.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd Command, fn render.ProgressFunc) (any, error) {
	switch c := cmd.(type) {
	case GetRecordingOptions:
		return d.svc.RecordingOptions(), nil
	case SetRecordingOptions:
		d.svc.SetRecordingOptions(c.Options)
		return Empty{}, nil
	case StartRecording:
		return d.svc.StartRecording(ctx)
	case StopRecording:
		rec, err := d.svc.StopRecording(ctx)
		if err != nil {
			return nil, err
		}
		return RecordingStopped{Recording: rec}, nil

	case ListCameras:
		return devices(d.svc.Cameras())
	case ListCaptureWindows:
		return devices(d.svc.CaptureWindows())
	case ListAudioDevices:
		return devices(d.svc.AudioDevices())
	case ListScreens:
		return devices(d.svc.Screens())
	case CheckPermissions:
		return d.svc.Permissions(), nil

	case ListRecordings:
		recs, err := d.svc.Recordings()
		if err != nil {
			return nil, err
		}
		if recs == nil {
			recs = []recording.Recording{}
		}
		return Recordings{Recordings: recs}, nil
	case GetRecordingMeta:
		return d.svc.RecordingMeta(c.VideoID)
	case GetVideoMetadata:
		return d.svc.VideoMetadata(c.VideoID)
	case DeleteRecording:
		return empty(d.svc.DeleteRecording(c.VideoID))

	case RenderToFile:
		return rendered(d.svc.RenderToFile(ctx, c.VideoID, c.Project, fn))
	case GetRenderedVideo:
		return rendered(d.svc.RenderedVideo(c.VideoID, c.Project))
	case CopyRenderedVideo:
		return rendered(d.svc.CopyRenderedVideo(c.VideoID, c.Project, c.Destination))

	case CreateEditor:
		return d.svc.CreateEditor(ctx, c.VideoID)
	case GetEditor:
		return d.svc.EditorInfo(c.VideoID)
	case CloseEditor:
		return empty(d.svc.CloseEditor(c.VideoID))
	case SaveProject:
		return empty(d.svc.SaveProject(c.VideoID, c.Project))
	case SetProjectConfig:
		return empty(d.svc.SetEditorProject(c.VideoID, c.Project))
	case StartPlayback:
		return empty(d.svc.StartPlayback(c.VideoID))
	case StopPlayback:
		return empty(d.svc.StopPlayback(c.VideoID))
	case SetPlayhead:
		return empty(d.svc.SetPlayhead(c.VideoID, c.Frame))
	}
	return nil, fmt.Errorf("unhandled command %T", cmd)
}

func devices(list []ports.DeviceDescriptor, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return Devices{Devices: list}, nil
}

func rendered(path string, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return RenderedVideo{Path: path}, nil
}

func empty(err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return Empty{}, nil
}
