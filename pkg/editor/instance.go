// Package editor plays recordings back through the shared compositor and
// streams the composed frames to live consumers.
package editor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/user/clipdeck/pkg/apperr"
	"github.com/user/clipdeck/pkg/compose"
	"github.com/user/clipdeck/pkg/eventbus"
	"github.com/user/clipdeck/pkg/ports"
	"github.com/user/clipdeck/pkg/project"
	"github.com/user/clipdeck/pkg/recording"
)

const fallbackFPS = 30

// Info is the serialized form of an editor instance.
type Info struct {
	VideoID     string                    `json:"videoId"`
	Path        string                    `json:"path"`
	StreamURL   string                    `json:"streamUrl"`
	Duration    float64                   `json:"duration"`
	TotalFrames int                       `json:"totalFrames"`
	FPS         float64                   `json:"fps"`
	Width       int                       `json:"width"`
	Height      int                       `json:"height"`
	Playhead    int                       `json:"playhead"`
	Playing     bool                      `json:"playing"`
	Project     *project.Configuration    `json:"project"`
	Display     recording.VideoTrackMeta  `json:"display"`
	Camera      *recording.VideoTrackMeta `json:"camera"`
	Audio       *recording.AudioTrackMeta `json:"audio"`
}

// snapshot is one project with the compositor built for it. Frames are
// always composed against a single snapshot.
type snapshot struct {
	cfg        *project.Configuration
	compositor *compose.Compositor
	camera     bool
}

// Instance is an open recording in the editor. It owns a playhead, the
// active project and the frame stream.
type Instance struct {
	rec    *recording.Recording
	media  *compose.Media
	deps   Deps
	hub    *StreamHub
	server *StreamServer
	logger ports.Logger

	total    int
	fps      float64
	interval time.Duration
	saved    *project.Configuration

	snap atomic.Pointer[snapshot]

	// renderMu serializes composition so frames reach the hub in the order
	// their state was read.
	renderMu sync.Mutex

	mu       sync.Mutex
	playhead int
	gen      uint64
	playing  bool
	cancel   context.CancelFunc
	loopDone chan struct{}
	lastErr  error
	closed   bool
}

func newInstance(rec *recording.Recording, media *compose.Media, saved *project.Configuration, deps Deps) (*Instance, error) {
	info := media.Display.Info()
	if info.Frames == 0 {
		return nil, apperr.Newf(apperr.KindRenderFailed, "open editor", "display track of %s is empty", rec.ID)
	}
	fps := info.FPS
	if fps <= 0 {
		fps = rec.Display.FPS
	}
	if fps <= 0 {
		fps = fallbackFPS
	}
	inst := &Instance{
		rec:      rec,
		media:    media,
		deps:     deps,
		hub:      NewStreamHub(deps.QueueSize),
		logger:   deps.Logger.WithComponent("editor"),
		total:    info.Frames,
		fps:      fps,
		interval: time.Duration(float64(time.Second) / fps),
		saved:    saved,
	}

	cfg := saved
	if cfg == nil {
		cfg = project.Default()
	}
	snap, err := inst.prepare(cfg)
	if err != nil {
		if saved == nil {
			return nil, err
		}
		inst.logger.Warn("Saved project of %s is unusable, using defaults: %v", rec.ID, err)
		if snap, err = inst.prepare(project.Default()); err != nil {
			return nil, err
		}
	}
	inst.snap.Store(snap)

	if inst.server, err = NewStreamServer(inst.hub, deps.StreamHost, deps.Logger); err != nil {
		return nil, apperr.New(apperr.KindIOFailure, "open frame stream", err)
	}
	return inst, nil
}

// prepare validates cfg against the recording and builds its compositor.
func (i *Instance) prepare(cfg *project.Configuration) (*snapshot, error) {
	cfg = cfg.Clone()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	w, h := i.media.DisplaySize()
	if err := cfg.ValidateCrop(w, h); err != nil {
		return nil, err
	}
	camW, camH := i.media.CameraSize()
	camera := i.media.Camera != nil && !cfg.Camera.Hide
	if !camera {
		camW, camH = 0, 0
	}
	outW, outH := compose.OutputSize(w, h, cfg)
	background, err := i.deps.Backgrounds.Load(cfg.Background, outW, outH)
	if err != nil {
		return nil, err
	}
	return &snapshot{
		cfg:        cfg,
		compositor: compose.New(i.deps.Renderer, cfg, w, h, camW, camH, background),
		camera:     camera,
	}, nil
}

// ID is the recording id.
func (i *Instance) ID() string {
	return i.rec.ID
}

// Recording returns the recording metadata.
func (i *Instance) Recording() *recording.Recording {
	return i.rec
}

// Hub returns the frame stream.
func (i *Instance) Hub() *StreamHub {
	return i.hub
}

// StreamURL is where frame consumers connect.
func (i *Instance) StreamURL() string {
	return i.server.URL()
}

// TotalFrames is the number of playable frames.
func (i *Instance) TotalFrames() int {
	return i.total
}

// Project returns the active project.
func (i *Instance) Project() *project.Configuration {
	return i.snap.Load().cfg.Clone()
}

// Playhead returns the current frame.
func (i *Instance) Playhead() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.playhead
}

// Playing reports whether playback is running.
func (i *Instance) Playing() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.playing
}

// Err returns the failure that last stopped playback, if any.
func (i *Instance) Err() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.lastErr
}

// Info returns the serialized form of the instance.
func (i *Instance) Info() Info {
	i.mu.Lock()
	playhead, playing, saved := i.playhead, i.playing, i.saved
	i.mu.Unlock()
	layout := i.snap.Load().compositor.Layout()
	return Info{
		VideoID:     i.rec.ID,
		Path:        i.rec.Dir,
		StreamURL:   i.server.URL(),
		Duration:    i.media.Duration().Seconds(),
		TotalFrames: i.total,
		FPS:         i.fps,
		Width:       layout.Width,
		Height:      layout.Height,
		Playhead:    playhead,
		Playing:     playing,
		Project:     saved,
		Display:     i.rec.Display,
		Camera:      i.rec.Camera,
		Audio:       i.rec.Audio,
	}
}

// SetProject makes cfg the active project from the next composed frame
// on. While paused, the frame at the playhead is composed again.
func (i *Instance) SetProject(cfg *project.Configuration) error {
	if cfg == nil {
		return apperr.Newf(apperr.KindInvalidOptions, "set project", "no project")
	}
	if err := i.checkOpen("set project"); err != nil {
		return err
	}
	snap, err := i.prepare(cfg)
	if err != nil {
		return err
	}
	i.snap.Store(snap)
	i.logger.Debug("Project of %s updated", i.rec.ID)
	if i.Playing() {
		return nil
	}
	return i.Preview()
}

// MarkSaved records cfg as the recording's saved project.
func (i *Instance) MarkSaved(cfg *project.Configuration) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.saved = cfg.Clone()
}

// Seek moves the playhead, clamped to the playable range. While paused,
// the new frame is composed right away; while playing, the next tick
// continues from it.
func (i *Instance) Seek(frame int) error {
	if err := i.checkOpen("seek"); err != nil {
		return err
	}
	frame = clampFrame(frame, i.total)
	i.mu.Lock()
	i.playhead = frame
	i.gen++
	playing := i.playing
	i.mu.Unlock()

	i.publishState(frame, playing)
	if playing {
		return nil
	}
	return i.Preview()
}

func clampFrame(frame, total int) int {
	if frame < 0 {
		return 0
	}
	if frame > total-1 {
		return total - 1
	}
	return frame
}

// Preview composes the frame at the playhead and publishes it.
func (i *Instance) Preview() error {
	i.renderMu.Lock()
	defer i.renderMu.Unlock()
	frame := i.Playhead()
	return i.composeLocked(frame)
}

// composeLocked must be called with renderMu held.
func (i *Instance) composeLocked(frame int) error {
	snap := i.snap.Load()
	in, err := i.media.Frame(i.media.FrameTime(frame, i.fps), snap.camera)
	if err != nil {
		return apperr.AtFrame(apperr.KindRenderFailed, "decode", frame, err)
	}
	img, err := snap.compositor.Compose(in)
	if err != nil {
		return apperr.AtFrame(apperr.KindRenderFailed, "compose", frame, err)
	}
	i.hub.Publish(Frame{Index: frame, Image: toRGBA(img)})
	return nil
}

// Play starts playback from the playhead. Playback that reached the end
// restarts from the first frame. Play while playing does nothing.
func (i *Instance) Play() error {
	i.reap()
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return apperr.Newf(apperr.KindNotFound, "play", "editor for %s is closed", i.rec.ID)
	}
	if i.playing {
		return nil
	}
	if i.playhead >= i.total-1 {
		i.playhead = 0
		i.gen++
	}
	ctx, cancel := context.WithCancel(context.Background())
	i.playing = true
	i.lastErr = nil
	i.cancel = cancel
	i.loopDone = make(chan struct{})
	go i.loop(ctx, i.loopDone)
	i.logger.Debug("Playback of %s started at frame %d", i.rec.ID, i.playhead)
	return nil
}

// reap waits for a loop that stopped on its own to exit.
func (i *Instance) reap() {
	i.mu.Lock()
	if i.playing || i.cancel == nil {
		i.mu.Unlock()
		return
	}
	cancel, done := i.cancel, i.loopDone
	i.cancel, i.loopDone = nil, nil
	i.mu.Unlock()
	cancel()
	<-done
}

// Stop halts playback. It is idempotent.
func (i *Instance) Stop() {
	i.mu.Lock()
	cancel, done := i.cancel, i.loopDone
	wasPlaying := i.playing
	i.playing = false
	i.cancel, i.loopDone = nil, nil
	playhead := i.playhead
	i.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	if wasPlaying {
		i.publishState(playhead, false)
		i.logger.Debug("Playback of %s stopped at frame %d", i.rec.ID, playhead)
	}
}

// loop composes one frame per tick. The playhead is read at the start of
// each tick, so a seek between ticks takes effect on the next one.
func (i *Instance) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(i.interval)
	defer ticker.Stop()

	for {
		i.mu.Lock()
		frame, gen := i.playhead, i.gen
		i.mu.Unlock()

		i.renderMu.Lock()
		err := i.composeLocked(frame)
		i.renderMu.Unlock()
		if err != nil {
			i.fail(ctx, frame, err)
			return
		}

		next, ended := i.advance(ctx, frame, gen)
		if ctx.Err() != nil {
			return
		}
		i.publishState(next, !ended)
		if ended {
			i.deps.Bus.Publish(eventbus.NewPlaybackEnded(i.rec.ID))
			i.logger.Debug("Playback of %s reached the end", i.rec.ID)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// advance moves the playhead past frame unless a seek moved it meanwhile.
func (i *Instance) advance(ctx context.Context, frame int, gen uint64) (int, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if ctx.Err() != nil {
		return i.playhead, false
	}
	if i.gen != gen {
		return i.playhead, false
	}
	if frame+1 >= i.total {
		i.playing = false
		return i.playhead, true
	}
	i.playhead = frame + 1
	return i.playhead, false
}

func (i *Instance) fail(ctx context.Context, frame int, err error) {
	i.mu.Lock()
	if ctx.Err() != nil {
		i.mu.Unlock()
		return
	}
	i.playing = false
	i.lastErr = err
	i.mu.Unlock()

	i.logger.Warn("Playback of %s failed at frame %d: %v", i.rec.ID, frame, err)
	i.deps.Bus.Publish(eventbus.NewEditorFailed(i.rec.ID, frame, err.Error()))
	i.publishState(frame, false)
}

func (i *Instance) publishState(playhead int, playing bool) {
	i.deps.Bus.Publish(eventbus.NewEditorStateChanged(i.rec.ID, playhead, playing))
}

func (i *Instance) checkOpen(op string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return apperr.Newf(apperr.KindNotFound, op, "editor for %s is closed", i.rec.ID)
	}
	return nil
}

// Close stops playback, disconnects consumers and releases the tracks.
func (i *Instance) Close() error {
	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return nil
	}
	i.closed = true
	i.mu.Unlock()

	i.Stop()
	i.hub.Close()
	err := i.server.Close()
	if cerr := i.media.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("close editor %s: %w", i.rec.ID, err)
	}
	return nil
}
