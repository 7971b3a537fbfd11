package render

import (
	"context"
	"sync"

	"github.com/user/clipdeck/pkg/apperr"
	"github.com/user/clipdeck/pkg/eventbus"
	"github.com/user/clipdeck/pkg/ports"
	"github.com/user/clipdeck/pkg/project"
	"github.com/user/clipdeck/pkg/recording"
)

// Coordinator runs at most one job per (recording, output key). Callers
// asking for a render that is already running join it: they receive the
// progress emitted so far, then live events, and share its result. A job
// is cancelled once every caller has gone. Finished renders are cached at
// Store.RenderPath and served without rendering again.
type Coordinator struct {
	engine *Engine
	store  *recording.Store
	fs     ports.FileSystem
	media  ports.MediaStore
	bus    eventbus.Publisher
	logger ports.Logger

	mu   sync.Mutex
	jobs map[string]*job
}

// NewCoordinator creates a coordinator.
func NewCoordinator(engine *Engine, store *recording.Store, fs ports.FileSystem, media ports.MediaStore, bus eventbus.Publisher, logger ports.Logger) *Coordinator {
	return &Coordinator{
		engine: engine,
		store:  store,
		fs:     fs,
		media:  media,
		bus:    bus,
		logger: logger.WithComponent("render"),
		jobs:   make(map[string]*job),
	}
}

type job struct {
	key         string
	recordingID string
	path        string
	cancel      context.CancelFunc
	done        chan struct{}
	err         error

	// refs and abandoned are guarded by Coordinator.mu. An abandoned job
	// has been cancelled and stays registered until run returns.
	refs      int
	abandoned bool

	mu      sync.Mutex
	history []Progress
	subs    map[int]ProgressFunc
	nextSub int
}

func (j *job) emit(p Progress) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.history = append(j.history, p)
	for _, fn := range j.subs {
		fn(p)
	}
}

func (j *job) subscribe(fn ProgressFunc) int {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, p := range j.history {
		fn(p)
	}
	id := j.nextSub
	j.nextSub++
	j.subs[id] = fn
	return id
}

func (j *job) unsubscribe(id int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	delete(j.subs, id)
}

// resolve loads the recording and the project to render: cfg, else the
// saved project, else the default.
func (c *Coordinator) resolve(id string, cfg *project.Configuration) (*recording.Recording, *project.Configuration, error) {
	rec, err := c.store.Get(id)
	if err != nil {
		return nil, nil, err
	}
	if cfg == nil {
		if cfg, err = c.store.LoadProject(id); err != nil {
			return nil, nil, err
		}
	}
	if cfg == nil {
		cfg = project.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return rec, cfg.Clone(), nil
}

// OutputPath returns where the render of id with cfg is cached.
func (c *Coordinator) OutputPath(id string, cfg *project.Configuration) (string, error) {
	rec, cfg, err := c.resolve(id, cfg)
	if err != nil {
		return "", err
	}
	return c.store.RenderPath(id, c.engine.OutputKey(rec, cfg)), nil
}

// Cached returns the path of a finished render of id with cfg. It fails
// with NotFound when none exists.
func (c *Coordinator) Cached(id string, cfg *project.Configuration) (string, error) {
	path, err := c.OutputPath(id, cfg)
	if err != nil {
		return "", err
	}
	if ok, _ := c.fs.Exists(path); !ok {
		return "", apperr.Newf(apperr.KindNotFound, "rendered video", "no render of %s for this project", id)
	}
	return path, nil
}

// Render renders id with cfg (nil: the saved project) and returns the
// output path. fn receives every progress event of the job in order.
func (c *Coordinator) Render(ctx context.Context, id string, cfg *project.Configuration, fn ProgressFunc) (string, error) {
	if fn == nil {
		fn = func(Progress) {}
	}
	rec, cfg, err := c.resolve(id, cfg)
	if err != nil {
		return "", err
	}
	key := c.engine.OutputKey(rec, cfg)
	path := c.store.RenderPath(id, key)
	jobKey := id + "/" + key

	probed := false
	var j *job
	for j == nil {
		c.mu.Lock()
		j = c.jobs[jobKey]
		if j != nil && j.abandoned {
			c.mu.Unlock()
			<-j.done
			j = nil
			continue
		}
		if j == nil {
			if ok, _ := c.fs.Exists(path); ok && !probed {
				c.mu.Unlock()
				probed = true
				if c.replayCached(path, fn) {
					return path, nil
				}
				continue
			}
			j = c.start(rec, cfg, path, jobKey)
		}
		j.refs++
		c.mu.Unlock()
	}

	sub := j.subscribe(fn)

	select {
	case <-j.done:
		c.leave(j, sub)
		return j.path, j.err
	case <-ctx.Done():
		if c.leave(j, sub) {
			// The last caller out waits until the engine has released the
			// output and the encoder.
			<-j.done
		}
		return "", apperr.New(apperr.KindCancelled, "render", ctx.Err())
	}
}

// replayCached reports a finished render as a complete progress sequence.
// It returns false, after removing the file, when path is not a readable
// render.
func (c *Coordinator) replayCached(path string, fn ProgressFunc) bool {
	track, err := c.media.OpenVideoTrack(path)
	if err != nil {
		c.logger.Warn("Discarding unreadable render %s: %v", path, err)
		c.fs.Remove(path)
		return false
	}
	n := track.Info().Frames
	track.Close()
	if n == 0 {
		c.fs.Remove(path)
		return false
	}
	fn(Starting{TotalFrames: n})
	for i := 0; i < n; i++ {
		fn(FrameRendered{CurrentFrame: i})
	}
	return true
}

// start registers and launches a job. c.mu must be held.
func (c *Coordinator) start(rec *recording.Recording, cfg *project.Configuration, path, key string) *job {
	ctx, cancel := context.WithCancel(context.Background())
	j := &job{
		key:         key,
		recordingID: rec.ID,
		path:        path,
		cancel:      cancel,
		done:        make(chan struct{}),
		subs:        make(map[int]ProgressFunc),
	}
	c.jobs[key] = j
	go c.run(ctx, j, rec, cfg)
	return j
}

func (c *Coordinator) run(ctx context.Context, j *job, rec *recording.Recording, cfg *project.Configuration) {
	defer j.cancel()

	cursor, err := c.store.LoadCursor(rec)
	if err != nil {
		c.logger.Warn("Rendering %s without cursor: %v", rec.ID, err)
		cursor = nil
	}
	err = c.engine.Render(ctx, Job{
		Recording:  rec,
		Cursor:     cursor,
		Project:    cfg,
		OutputPath: j.path,
	}, j.emit)

	c.mu.Lock()
	if c.jobs[j.key] == j {
		delete(c.jobs, j.key)
	}
	j.err = err
	c.mu.Unlock()
	close(j.done)

	reason := ""
	if err != nil {
		reason = err.Error()
		c.logger.Debug("Render of %s failed: %v", rec.ID, err)
	}
	if c.bus != nil {
		c.bus.Publish(eventbus.NewRenderFinished(rec.ID, j.path, reason))
	}
}

// leave drops a caller. The last one out cancels a running job and leave
// reports true; the job stays registered until it has stopped.
func (c *Coordinator) leave(j *job, sub int) bool {
	j.unsubscribe(sub)
	c.mu.Lock()
	defer c.mu.Unlock()
	j.refs--
	if j.refs > 0 {
		return false
	}
	select {
	case <-j.done:
		return false
	default:
		j.abandoned = true
		j.cancel()
		return true
	}
}

// Running returns the number of jobs in flight.
func (c *Coordinator) Running() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.jobs)
}
