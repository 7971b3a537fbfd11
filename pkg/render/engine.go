// Package render turns a recording and a project into a video file.
//
// A job plans the output from the recording metadata, composes frames on a
// bounded worker pool and hands them to the encoder strictly in frame order.
// Output goes to a temporary sibling of the destination that is renamed into
// place only when the last frame and the container trailer are written.
package render

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"runtime"

	"github.com/google/uuid"

	"github.com/user/clipdeck/pkg/apperr"
	"github.com/user/clipdeck/pkg/compose"
	"github.com/user/clipdeck/pkg/pipeline"
	"github.com/user/clipdeck/pkg/ports"
	"github.com/user/clipdeck/pkg/project"
	"github.com/user/clipdeck/pkg/recording"
)

// Defaults applied to zero Options fields.
const (
	DefaultQuality = 90
	fallbackFPS    = 30
)

// Options tunes the engine.
type Options struct {
	// FPS is the output frame rate. Zero renders at the display track rate.
	FPS float64
	// Workers is the number of concurrent compose workers. Zero uses
	// runtime.NumCPU.
	Workers int
	// Quality is the JPEG quality of output frames (1-100).
	Quality int
}

// Deps are the collaborators of an Engine.
type Deps struct {
	Renderer    ports.Renderer
	Media       ports.MediaStore
	FS          ports.FileSystem
	Backgrounds *compose.BackgroundLoader
	NewEncoder  func() ports.VideoEncoder
	Sink        ports.DebugSink
	Logger      ports.Logger
}

// Job is one render request.
type Job struct {
	Recording *recording.Recording
	// Cursor is nil when the recording has no cursor track.
	Cursor     *recording.CursorTrack
	Project    *project.Configuration
	OutputPath string
}

// Engine renders jobs. It holds no per-job state and is safe for
// concurrent use.
type Engine struct {
	deps   Deps
	opts   Options
	logger ports.Logger

	plan   pipeline.Stage[planInput, planOutput]
	frames pipeline.Stage[framesInput, int]
}

// NewEngine creates an engine.
func NewEngine(deps Deps, opts Options) *Engine {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = DefaultQuality
	}
	if deps.Backgrounds == nil {
		deps.Backgrounds = compose.NewBackgroundLoader(deps.Renderer, deps.FS, "")
	}
	e := &Engine{deps: deps, opts: opts, logger: deps.Logger.WithComponent("render")}
	e.plan = pipeline.StageFunc[planInput, planOutput](e.buildPlan)
	e.frames = &framesStage{
		workers: opts.Workers,
		sink:    deps.Sink,
		logger:  e.logger,
	}
	return e
}

// FPS returns the output frame rate for rec.
func (e *Engine) FPS(rec *recording.Recording) float64 {
	if e.opts.FPS > 0 {
		return e.opts.FPS
	}
	if rec.Display.FPS > 0 {
		return rec.Display.FPS
	}
	return fallbackFPS
}

// OutputKey identifies the output of rendering rec with cfg. Two jobs with
// the same key produce the same bytes.
func (e *Engine) OutputKey(rec *recording.Recording, cfg *project.Configuration) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%g|%d", cfg.Key(), e.FPS(rec), e.opts.Quality)))
	return hex.EncodeToString(sum[:])
}

// EstimateFrames returns the frame count announced in Starting.
func (e *Engine) EstimateFrames(rec *recording.Recording) int {
	return frameCount(rec.Display.Duration, e.FPS(rec))
}

// frameCount rounds to the nearest frame. Probed durations carry timescale
// rounding and a last sample that repeats the previous gap, so a ceiling
// would add a frame the source never had.
func frameCount(seconds, fps float64) int {
	if seconds <= 0 || fps <= 0 {
		return 0
	}
	n := int(math.Round(seconds * fps))
	if n == 0 {
		n = 1
	}
	return n
}

// Render runs job, reporting progress to fn. It returns a RenderFailed
// error on composition or encoding failures, Cancelled when ctx ends first
// and IOFailure when the output cannot be written. No file is left at
// job.OutputPath unless it returns nil.
func (e *Engine) Render(ctx context.Context, job Job, fn ProgressFunc) error {
	if fn == nil {
		fn = func(Progress) {}
	}
	rec := job.Recording
	if rec == nil {
		return apperr.Newf(apperr.KindInvalidOptions, "render", "no recording")
	}
	cfg := job.Project
	if cfg == nil {
		cfg = project.Default()
	}
	cfg = cfg.Clone()
	if err := cfg.Validate(); err != nil {
		return err
	}

	fps := e.FPS(rec)
	estimate := frameCount(rec.Display.Duration, fps)
	if estimate == 0 {
		return apperr.Newf(apperr.KindRenderFailed, "render", "recording %s has no display frames", rec.ID)
	}
	e.logger.Debug("Rendering %s: %d frames at %g fps", rec.ID, estimate, fps)
	fn(Starting{TotalFrames: estimate})

	media, err := compose.Open(e.deps.Media, rec, job.Cursor, e.deps.Renderer)
	if err != nil {
		return apperr.New(apperr.KindRenderFailed, "open tracks", err)
	}
	defer media.Close()

	planned, err := e.plan.Execute(ctx, planInput{
		rec:      rec,
		cfg:      cfg,
		media:    media,
		fps:      fps,
		estimate: estimate,
	})
	if err != nil {
		if ctx.Err() != nil {
			return apperr.New(apperr.KindCancelled, "render", ctx.Err())
		}
		return err
	}
	plan := planned.plan
	if plan.TotalFrames > estimate {
		fn(EstimatedTotalFrames{TotalFrames: plan.TotalFrames})
	}
	e.saveDebugPlan(plan)

	out, tmp, err := e.createTemp(job.OutputPath)
	if err != nil {
		return err
	}
	written, err := e.frames.Execute(ctx, framesInput{
		plan:       plan,
		media:      media,
		compositor: planned.compositor,
		encoder:    e.deps.NewEncoder(),
		out:        out,
		progress:   fn,
	})
	closeErr := out.Close()
	if err == nil && closeErr != nil {
		err = apperr.New(apperr.KindIOFailure, "close output", closeErr)
	}
	if err != nil {
		e.deps.FS.Remove(tmp)
		if ctx.Err() != nil {
			e.logger.Debug("Render of %s cancelled after %d frames", rec.ID, written)
			return apperr.New(apperr.KindCancelled, "render", ctx.Err())
		}
		return err
	}
	if err := e.deps.FS.Rename(tmp, job.OutputPath); err != nil {
		e.deps.FS.Remove(tmp)
		return apperr.New(apperr.KindIOFailure, "move output", err)
	}
	e.logger.Debug("Rendered %d frames to %s", written, job.OutputPath)
	return nil
}

func (e *Engine) createTemp(path string) (writeCloser, string, error) {
	if path == "" {
		return nil, "", apperr.Newf(apperr.KindInvalidOptions, "render", "no output path")
	}
	dir := filepath.Dir(path)
	if err := e.deps.FS.MkdirAll(dir); err != nil {
		return nil, "", apperr.New(apperr.KindIOFailure, "create output directory", err)
	}
	tmp := filepath.Join(dir, "."+filepath.Base(path)+"."+uuid.NewString()+".tmp")
	w, err := e.deps.FS.Create(tmp)
	if err != nil {
		return nil, "", apperr.New(apperr.KindIOFailure, "create output", err)
	}
	return w, tmp, nil
}

func (e *Engine) saveDebugPlan(plan pipeline.Plan) {
	if e.deps.Sink == nil || !e.deps.Sink.Enabled() {
		return
	}
	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return
	}
	if err := e.deps.Sink.SaveRenderJSON(data); err != nil {
		e.logger.Warn("Failed to save debug output: %v", err)
	}
}

type planInput struct {
	rec      *recording.Recording
	cfg      *project.Configuration
	media    *compose.Media
	fps      float64
	estimate int
}

type planOutput struct {
	plan       pipeline.Plan
	compositor *compose.Compositor
}

// buildPlan reads the opened tracks: the frame count is revised against
// the display track itself and every per-job resource (layout, background)
// is prepared before the first frame.
func (e *Engine) buildPlan(ctx context.Context, in planInput) (planOutput, error) {
	info := in.media.Display.Info()
	if info.Frames == 0 {
		return planOutput{}, apperr.Newf(apperr.KindRenderFailed, "plan", "display track is empty")
	}
	if err := in.cfg.ValidateCrop(info.Width, info.Height); err != nil {
		return planOutput{}, err
	}

	total := in.estimate
	if n := frameCount(info.Duration.Seconds(), in.fps); n > total {
		total = n
	}

	camW, camH := in.media.CameraSize()
	cameraShown := in.media.Camera != nil && !in.cfg.Camera.Hide
	if !cameraShown {
		camW, camH = 0, 0
	}
	w, h := compose.OutputSize(info.Width, info.Height, in.cfg)
	background, err := e.deps.Backgrounds.Load(in.cfg.Background, w, h)
	if err != nil {
		return planOutput{}, err
	}
	comp := compose.New(e.deps.Renderer, in.cfg, info.Width, info.Height, camW, camH, background)

	plan := pipeline.Plan{
		RecordingID: in.rec.ID,
		Width:       comp.Layout().Width,
		Height:      comp.Layout().Height,
		FPS:         in.fps,
		Quality:     e.opts.Quality,
		TotalFrames: total,
		Start:       info.StartOffset,
		Camera:      cameraShown,
		Cursor:      in.media.Cursor.Len() > 0,
	}
	if in.media.Audio != nil && !in.cfg.Audio.Mute {
		a := in.media.Audio.Info()
		if a.SampleRate > 0 && a.Channels > 0 {
			plan.Audio = &ports.AudioFormat{SampleRate: a.SampleRate, Channels: a.Channels}
			plan.Improve = in.cfg.Audio.Improve
		}
	}
	return planOutput{plan: plan, compositor: comp}, ctx.Err()
}
