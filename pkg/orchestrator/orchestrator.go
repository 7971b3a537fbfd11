// Package orchestrator owns the process-wide state of clipdeck: the
// recorder, the recording library, the render coordinator and the open
// editors. Every front-end operation is a method of App.
package orchestrator

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/ideamans/go-l10n"

	"github.com/user/clipdeck/pkg/adapters/filesink"
	"github.com/user/clipdeck/pkg/adapters/ggrenderer"
	"github.com/user/clipdeck/pkg/adapters/mediastore"
	"github.com/user/clipdeck/pkg/adapters/mjpegmp4"
	"github.com/user/clipdeck/pkg/adapters/nullsink"
	"github.com/user/clipdeck/pkg/adapters/osfilesystem"
	"github.com/user/clipdeck/pkg/adapters/screencapture"
	"github.com/user/clipdeck/pkg/adapters/synthetic"
	"github.com/user/clipdeck/pkg/apperr"
	"github.com/user/clipdeck/pkg/capture"
	"github.com/user/clipdeck/pkg/compose"
	"github.com/user/clipdeck/pkg/editor"
	"github.com/user/clipdeck/pkg/eventbus"
	"github.com/user/clipdeck/pkg/ports"
	"github.com/user/clipdeck/pkg/project"
	"github.com/user/clipdeck/pkg/recording"
	"github.com/user/clipdeck/pkg/render"
	"github.com/user/clipdeck/pkg/summarizer"
)

// Config contains all configuration for the App.
type Config struct {
	RecordingsDir string
	WallpapersDir string

	// Capture
	Backend         string // "screen" or "synthetic"
	CaptureFPS      float64
	JPEGQuality     int
	AudioSampleRate int
	AudioChannels   int

	// Rendering
	RenderFPS     float64
	RenderWorkers int
	RenderQuality int

	// Editor
	StreamHost string
	QueueSize  int

	// Watch publishes RecordingsChanged when the library changes on disk.
	Watch bool

	Debug    bool
	DebugDir string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		RecordingsDir:   "recordings",
		Backend:         "screen",
		CaptureFPS:      30,
		JPEGQuality:     85,
		AudioSampleRate: 48000,
		AudioChannels:   2,
		RenderQuality:   render.DefaultQuality,
		StreamHost:      "127.0.0.1",
		QueueSize:       editor.DefaultQueueSize,
		DebugDir:        "./debug",
	}
}

// Deps are the adapters an App runs on. New fills them from Config; tests
// supply their own.
type Deps struct {
	Backend    ports.CaptureBackend
	FS         ports.FileSystem
	Media      ports.MediaStore
	Renderer   ports.Renderer
	NewEncoder func() ports.VideoEncoder
	Sink       ports.DebugSink
	Logger     ports.Logger
	Bus        *eventbus.Bus
}

// App is created once at process start and closed at exit.
type App struct {
	cfg    Config
	deps   Deps
	logger ports.Logger

	bus         *eventbus.Bus
	store       *recording.Store
	recorder    *recording.Recorder
	engine      *render.Engine
	coordinator *render.Coordinator
	editors     *editor.Registry

	cancel  context.CancelFunc
	watcher sync.WaitGroup
	closeMu sync.Mutex
	closed  bool
}

// New creates an App on the local disk and the configured capture backend.
func New(cfg Config, logger ports.Logger) (*App, error) {
	renderer := ggrenderer.New()
	fs := osfilesystem.New()

	screen := func() ports.CaptureBackend {
		return screencapture.New(screencapture.Options{FPS: cfg.CaptureFPS, JPEGQuality: cfg.JPEGQuality}, renderer, logger)
	}
	fake := func() ports.CaptureBackend {
		return synthetic.New(synthetic.Options{
			FPS:         cfg.CaptureFPS,
			JPEGQuality: cfg.JPEGQuality,
			SampleRate:  cfg.AudioSampleRate,
			Channels:    cfg.AudioChannels,
		}, renderer)
	}

	var backend ports.CaptureBackend
	switch cfg.Backend {
	case "", "screen":
		backend = screen()
	case synthetic.Name:
		backend = fake()
	case "screen+synthetic":
		// Real displays with a synthetic camera and microphone.
		backend = capture.Combine(screen(), fake())
	default:
		return nil, apperr.Newf(apperr.KindInvalidOptions, "configure", "unknown capture backend %q", cfg.Backend)
	}

	var sink ports.DebugSink = nullsink.New()
	if cfg.Debug {
		sink = filesink.New(cfg.DebugDir, fs, renderer)
	}

	return NewWithDeps(cfg, Deps{
		Backend:    backend,
		FS:         fs,
		Media:      mediastore.New(),
		Renderer:   renderer,
		NewEncoder: func() ports.VideoEncoder { return mjpegmp4.NewEncoder() },
		Sink:       sink,
		Logger:     logger,
	})
}

// NewWithDeps creates an App on explicit adapters.
func NewWithDeps(cfg Config, deps Deps) (*App, error) {
	if deps.Bus == nil {
		deps.Bus = eventbus.New(deps.Logger)
	}
	if err := deps.FS.MkdirAll(cfg.RecordingsDir); err != nil {
		return nil, apperr.New(apperr.KindIOFailure, "create recordings directory", err)
	}

	a := &App{
		cfg:    cfg,
		deps:   deps,
		logger: deps.Logger,
		bus:    deps.Bus,
	}
	a.store = recording.NewStore(cfg.RecordingsDir, deps.FS, deps.Logger)
	a.recorder = recording.NewRecorder(recording.Deps{
		Backend: deps.Backend,
		Claims:  capture.NewClaims(),
		Media:   deps.Media,
		Store:   a.store,
		FS:      deps.FS,
		Bus:     deps.Bus,
		Logger:  deps.Logger,
	})

	backgrounds := compose.NewBackgroundLoader(deps.Renderer, deps.FS, cfg.WallpapersDir)
	a.engine = render.NewEngine(render.Deps{
		Renderer:    deps.Renderer,
		Media:       deps.Media,
		FS:          deps.FS,
		Backgrounds: backgrounds,
		NewEncoder:  deps.NewEncoder,
		Sink:        deps.Sink,
		Logger:      deps.Logger,
	}, render.Options{
		FPS:     cfg.RenderFPS,
		Workers: cfg.RenderWorkers,
		Quality: cfg.RenderQuality,
	})
	a.coordinator = render.NewCoordinator(a.engine, a.store, deps.FS, deps.Media, deps.Bus, deps.Logger)
	a.editors = editor.NewRegistry(editor.Deps{
		Store:       a.store,
		Media:       deps.Media,
		Renderer:    deps.Renderer,
		FS:          deps.FS,
		Backgrounds: backgrounds,
		Bus:         deps.Bus,
		Logger:      deps.Logger,
		StreamHost:  cfg.StreamHost,
		QueueSize:   cfg.QueueSize,
	})

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	if cfg.Watch {
		a.watcher.Add(1)
		go a.watch(ctx)
	}
	return a, nil
}

func (a *App) watch(ctx context.Context) {
	defer a.watcher.Done()
	err := a.store.Watch(ctx, func(ids []string) {
		paths := make([]string, len(ids))
		for i, id := range ids {
			paths[i] = filepath.Join(a.store.Root(), id)
		}
		a.bus.Publish(eventbus.NewRecordingsChanged(paths))
	})
	if err != nil {
		a.logger.Warn(l10n.T("Library watch stopped: %v"), err)
	}
}

// Bus returns the event bus front-ends subscribe to.
func (a *App) Bus() *eventbus.Bus {
	return a.bus
}

// Store returns the recording library.
func (a *App) Store() *recording.Store {
	return a.store
}

// Editors returns the editor registry.
func (a *App) Editors() *editor.Registry {
	return a.editors
}

// Close stops the active recording, keeping what was captured, and closes
// every editor.
func (a *App) Close() error {
	a.closeMu.Lock()
	if a.closed {
		a.closeMu.Unlock()
		return nil
	}
	a.closed = true
	a.closeMu.Unlock()

	var firstErr error
	if cur := a.recorder.Current(); cur != nil {
		a.logger.Info(l10n.T("Stopping recording %s before exit"), cur.ID)
		if _, err := a.recorder.Stop(context.Background()); err != nil {
			firstErr = err
		}
	}
	if err := a.editors.CloseAll(); err != nil && firstErr == nil {
		firstErr = err
	}
	a.cancel()
	a.watcher.Wait()
	return firstErr
}

// RecordingOptions returns the options the next recording will use.
func (a *App) RecordingOptions() recording.Options {
	return a.recorder.Options()
}

// SetRecordingOptions stores the options for the next recording and
// publishes RecordingOptionsChanged. They are checked against the devices
// when the recording starts.
func (a *App) SetRecordingOptions(opts recording.Options) {
	a.recorder.SetOptions(opts)
}

// StartRecording starts a recording with the stored options.
func (a *App) StartRecording(ctx context.Context) (*recording.InProgress, error) {
	progress, err := a.recorder.Start(ctx)
	if err != nil {
		return nil, err
	}
	a.logger.Info(l10n.T("Recording %s started"), progress.ID)
	return progress, nil
}

// StopRecording stops the active recording. Without one it returns nil,
// nil.
func (a *App) StopRecording(ctx context.Context) (*recording.Recording, error) {
	rec, err := a.recorder.Stop(ctx)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		a.logger.Info(l10n.T("Recording %s saved (%.1fs)"), rec.ID, rec.Display.Duration)
	}
	return rec, nil
}

// CurrentRecording returns the active recording, or nil.
func (a *App) CurrentRecording() *recording.InProgress {
	return a.recorder.Current()
}

// Devices lists the capture devices of a kind.
func (a *App) Devices(kind ports.DeviceKind) ([]ports.DeviceDescriptor, error) {
	switch kind {
	case ports.KindScreen, ports.KindWindow, ports.KindCamera, ports.KindAudio:
	default:
		return nil, apperr.Newf(apperr.KindInvalidOptions, "list devices", "unknown device kind %q", kind)
	}
	devices, err := a.deps.Backend.Enumerate(kind)
	if err != nil {
		return nil, err
	}
	if devices == nil {
		devices = []ports.DeviceDescriptor{}
	}
	return devices, nil
}

// Screens lists the displays.
func (a *App) Screens() ([]ports.DeviceDescriptor, error) { return a.Devices(ports.KindScreen) }

// CaptureWindows lists the capturable windows.
func (a *App) CaptureWindows() ([]ports.DeviceDescriptor, error) { return a.Devices(ports.KindWindow) }

// Cameras lists the cameras.
func (a *App) Cameras() ([]ports.DeviceDescriptor, error) { return a.Devices(ports.KindCamera) }

// AudioDevices lists the audio inputs.
func (a *App) AudioDevices() ([]ports.DeviceDescriptor, error) { return a.Devices(ports.KindAudio) }

// Permissions reports the capture permission status.
func (a *App) Permissions() ports.PermissionsCheck {
	return a.deps.Backend.Permissions()
}

// Recordings lists the completed recordings, newest first.
func (a *App) Recordings() ([]recording.Recording, error) {
	return a.store.List()
}

// RecordingMeta returns one recording.
func (a *App) RecordingMeta(id string) (*recording.Recording, error) {
	return a.store.Get(id)
}

// VideoMetadata is the size and length of a recording.
type VideoMetadata struct {
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	Duration float64 `json:"duration"`
	FPS      float64 `json:"fps"`
}

// VideoMetadata returns the display track size of a recording.
func (a *App) VideoMetadata(id string) (VideoMetadata, error) {
	rec, err := a.store.Get(id)
	if err != nil {
		return VideoMetadata{}, err
	}
	meta := VideoMetadata{
		Width:    rec.Display.Width,
		Height:   rec.Display.Height,
		Duration: rec.Display.Duration,
		FPS:      rec.Display.FPS,
	}
	if meta.Width > 0 && meta.Height > 0 {
		return meta, nil
	}
	track, err := a.deps.Media.OpenVideoTrack(rec.Path(rec.Display.File))
	if err != nil {
		return VideoMetadata{}, apperr.New(apperr.KindIOFailure, "video metadata", err)
	}
	defer track.Close()
	info := track.Info()
	return VideoMetadata{Width: info.Width, Height: info.Height, Duration: info.Duration.Seconds(), FPS: info.FPS}, nil
}

// RenderToFile renders a recording, or reuses the cached render of the
// same project. A nil cfg renders the saved project, or the default one.
func (a *App) RenderToFile(ctx context.Context, id string, cfg *project.Configuration, fn render.ProgressFunc) (string, error) {
	a.logger.Info(l10n.T("Rendering %s"), id)
	path, err := a.coordinator.Render(ctx, id, cfg, fn)
	if err != nil {
		return "", err
	}
	a.logger.Info(l10n.T("Output saved to %s"), path)
	return path, nil
}

// RenderedVideo returns the cached render of a recording.
func (a *App) RenderedVideo(id string, cfg *project.Configuration) (string, error) {
	return a.coordinator.Cached(id, cfg)
}

// CopyRenderedVideo copies the cached render to dst. When dst is an
// existing directory the file keeps the name <id>.mp4.
func (a *App) CopyRenderedVideo(id string, cfg *project.Configuration, dst string) (string, error) {
	src, err := a.coordinator.Cached(id, cfg)
	if err != nil {
		return "", err
	}
	if dst == "" {
		return "", apperr.Newf(apperr.KindInvalidOptions, "copy rendered video", "no destination")
	}
	if isDir, _ := a.isDir(dst); isDir {
		dst = filepath.Join(dst, id+".mp4")
	}
	if err := a.deps.FS.MkdirAll(filepath.Dir(dst)); err != nil {
		return "", apperr.New(apperr.KindIOFailure, "copy rendered video", err)
	}
	if err := a.deps.FS.CopyFile(src, dst); err != nil {
		return "", apperr.New(apperr.KindIOFailure, "copy rendered video", err)
	}
	a.logger.Info(l10n.T("Copied %s to %s"), id, dst)
	return dst, nil
}

// RenderSummary describes the cached render of a recording.
func (a *App) RenderSummary(id string, cfg *project.Configuration) (*summarizer.Summary, error) {
	rec, err := a.store.Get(id)
	if err != nil {
		return nil, err
	}
	path, err := a.coordinator.Cached(id, cfg)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		if cfg, err = a.store.LoadProject(id); err != nil {
			return nil, err
		}
		if cfg == nil {
			cfg = project.Default()
		}
	}

	track, err := a.deps.Media.OpenVideoTrack(path)
	if err != nil {
		return nil, apperr.New(apperr.KindIOFailure, "render summary", err)
	}
	defer track.Close()
	info := track.Info()
	video := summarizer.VideoInfo{
		Path:       path,
		FrameCount: info.Frames,
		Duration:   info.Duration,
		Width:      info.Width,
		Height:     info.Height,
		FPS:        info.FPS,
	}
	if size, err := a.deps.FS.Size(path); err == nil {
		video.FileSize = size
	}

	return summarizer.NewBuilder().
		WithRecording(rec).
		WithProject(cfg).
		WithVideo(video).
		Build(), nil
}

// WriteRenderSummary writes the Markdown summary of the cached render to
// dst.
func (a *App) WriteRenderSummary(id string, cfg *project.Configuration, dst string) error {
	summary, err := a.RenderSummary(id, cfg)
	if err != nil {
		return err
	}
	w := summarizer.NewWriter(summarizer.NewMarkdownFormatter(), a.deps.FS)
	if err := w.Write(dst, summary); err != nil {
		return apperr.New(apperr.KindIOFailure, "render summary", err)
	}
	return nil
}

func (a *App) isDir(path string) (bool, error) {
	dirs, err := a.deps.FS.ListDirs(filepath.Dir(path))
	if err != nil {
		return false, err
	}
	base := filepath.Base(path)
	for _, d := range dirs {
		if d == base {
			return true, nil
		}
	}
	return false, nil
}

// CreateEditor opens a recording in the editor.
func (a *App) CreateEditor(ctx context.Context, id string) (editor.Info, error) {
	inst, err := a.editors.Create(ctx, id)
	if err != nil {
		return editor.Info{}, err
	}
	return inst.Info(), nil
}

// EditorInfo returns the state of an open editor.
func (a *App) EditorInfo(id string) (editor.Info, error) {
	inst, err := a.editors.Get(id)
	if err != nil {
		return editor.Info{}, err
	}
	return inst.Info(), nil
}

// CloseEditor closes the editor of a recording.
func (a *App) CloseEditor(id string) error {
	return a.editors.Close(id)
}

// SaveProject stores cfg as the recording's project. An open editor
// reports it as its saved project.
func (a *App) SaveProject(id string, cfg *project.Configuration) error {
	if cfg == nil {
		return apperr.Newf(apperr.KindInvalidOptions, "save project", "no project")
	}
	if err := a.store.SaveProject(id, cfg); err != nil {
		return err
	}
	if inst, err := a.editors.Get(id); err == nil {
		inst.MarkSaved(cfg)
	}
	a.logger.Info(l10n.T("Project of %s saved"), id)
	return nil
}

// SetEditorProject changes the project an open editor composes with.
func (a *App) SetEditorProject(id string, cfg *project.Configuration) error {
	inst, err := a.editors.Get(id)
	if err != nil {
		return err
	}
	return inst.SetProject(cfg)
}

// StartPlayback plays an open editor from its playhead.
func (a *App) StartPlayback(id string) error {
	inst, err := a.editors.Get(id)
	if err != nil {
		return err
	}
	return inst.Play()
}

// StopPlayback pauses an open editor.
func (a *App) StopPlayback(id string) error {
	inst, err := a.editors.Get(id)
	if err != nil {
		return err
	}
	inst.Stop()
	return nil
}

// SetPlayhead moves the playhead of an open editor.
func (a *App) SetPlayhead(id string, frame int) error {
	inst, err := a.editors.Get(id)
	if err != nil {
		return err
	}
	return inst.Seek(frame)
}

// DeleteRecording closes the recording's editor and removes it from the
// library.
func (a *App) DeleteRecording(id string) error {
	if cur := a.recorder.Current(); cur != nil && cur.ID == id {
		return apperr.Newf(apperr.KindSessionActive, "delete recording", "recording %s is still running", id)
	}
	if err := a.editors.Close(id); err != nil {
		a.logger.Warn(l10n.T("Closing editor of %s failed: %v"), id, err)
	}
	if err := a.store.Delete(id); err != nil {
		return err
	}
	a.bus.Publish(eventbus.NewRecordingDeleted(id))
	a.logger.Info(l10n.T("Recording %s deleted"), id)
	return nil
}
