package editor

import (
	"context"
	"sort"
	"sync"

	"github.com/user/clipdeck/pkg/apperr"
	"github.com/user/clipdeck/pkg/compose"
	"github.com/user/clipdeck/pkg/eventbus"
	"github.com/user/clipdeck/pkg/ports"
	"github.com/user/clipdeck/pkg/recording"
)

// Deps are the collaborators shared by every editor instance.
type Deps struct {
	Store       *recording.Store
	Media       ports.MediaStore
	Renderer    ports.Renderer
	FS          ports.FileSystem
	Backgrounds *compose.BackgroundLoader
	Bus         eventbus.Publisher
	Logger      ports.Logger

	// StreamHost is the interface frame servers listen on.
	StreamHost string
	// QueueSize is the per-consumer frame queue length.
	QueueSize int
}

// Registry holds the open editor instances, at most one per recording. It
// lives as long as the process; Create inserts and Close removes.
type Registry struct {
	deps   Deps
	logger ports.Logger

	mu        sync.Mutex
	instances map[string]*Instance
}

// NewRegistry creates an empty registry.
func NewRegistry(deps Deps) *Registry {
	if deps.Backgrounds == nil {
		deps.Backgrounds = compose.NewBackgroundLoader(deps.Renderer, deps.FS, "")
	}
	return &Registry{
		deps:      deps,
		logger:    deps.Logger.WithComponent("editor"),
		instances: make(map[string]*Instance),
	}
}

// Create opens the recording in the editor, or returns the instance that
// already has it open. The first frame is composed before Create returns
// so consumers connecting to the stream see it at once.
func (r *Registry) Create(ctx context.Context, id string) (*Instance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if inst, ok := r.instances[id]; ok {
		return inst, nil
	}

	rec, err := r.deps.Store.Get(id)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, apperr.New(apperr.KindCancelled, "open editor", err)
	}
	saved, err := r.deps.Store.LoadProject(id)
	if err != nil {
		r.logger.Warn("Ignoring saved project of %s: %v", id, err)
		saved = nil
	}
	cursor, err := r.deps.Store.LoadCursor(rec)
	if err != nil {
		r.logger.Warn("Playing %s without cursor: %v", id, err)
		cursor = nil
	}
	media, err := compose.Open(r.deps.Media, rec, cursor, r.deps.Renderer)
	if err != nil {
		return nil, apperr.New(apperr.KindIOFailure, "open editor", err)
	}
	inst, err := newInstance(rec, media, saved, r.deps)
	if err != nil {
		media.Close()
		return nil, err
	}
	if err := inst.Preview(); err != nil {
		r.logger.Warn("No preview for %s: %v", id, err)
	}
	r.instances[id] = inst
	r.logger.Debug("Editor for %s streaming on %s", id, inst.StreamURL())
	return inst, nil
}

// Get returns the open instance for id.
func (r *Registry) Get(id string) (*Instance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.instances[id]
	if !ok {
		return nil, apperr.Newf(apperr.KindNotFound, "editor", "no editor is open for %s", id)
	}
	return inst, nil
}

// IDs returns the recordings open in the editor.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.instances))
	for id := range r.instances {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close closes the instance for id. Closing an id that is not open does
// nothing.
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	inst, ok := r.instances[id]
	delete(r.instances, id)
	r.mu.Unlock()
	if !ok {
		return nil
	}
	return inst.Close()
}

// CloseAll closes every instance.
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	instances := r.instances
	r.instances = make(map[string]*Instance)
	r.mu.Unlock()

	var firstErr error
	for _, inst := range instances {
		if err := inst.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
