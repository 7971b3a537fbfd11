package recording

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/user/clipdeck/pkg/apperr"
	"github.com/user/clipdeck/pkg/eventbus"
)

// Recorder is the process-wide registry of the recording session. At most
// one session is starting, active or stopping at a time.
type Recorder struct {
	deps  Deps
	newID func() string

	mu      sync.Mutex
	options Options
	current *Session
}

// NewRecorder creates a recorder with DefaultOptions.
func NewRecorder(deps Deps) *Recorder {
	return &Recorder{deps: deps, newID: uuid.NewString, options: DefaultOptions()}
}

// Options returns the options the next session will use.
func (r *Recorder) Options() Options {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.options
}

// SetOptions replaces the stored options. They are validated against the
// enumerated devices only when a session starts.
func (r *Recorder) SetOptions(opts Options) {
	r.mu.Lock()
	r.options = opts
	r.mu.Unlock()
	r.deps.Bus.Publish(eventbus.NewRecordingOptionsChanged(opts))
}

func busy(s *Session) bool {
	if s == nil {
		return false
	}
	switch s.State() {
	case StateFinalized, StateAborted:
		return false
	default:
		return true
	}
}

// Start starts a session with the stored options.
func (r *Recorder) Start(ctx context.Context) (*InProgress, error) {
	return r.StartWith(ctx, r.Options())
}

// StartWith starts a session with explicit options.
func (r *Recorder) StartWith(ctx context.Context, opts Options) (*InProgress, error) {
	r.mu.Lock()
	if busy(r.current) {
		id := r.current.ID()
		r.mu.Unlock()
		return nil, apperr.Newf(apperr.KindSessionActive, "start", "recording %s is still running", id)
	}
	s := NewSession(r.newID(), r.deps)
	prev := r.current
	r.current = s
	r.mu.Unlock()

	if err := s.Start(ctx, opts); err != nil {
		if s.State() == StateIdle {
			r.mu.Lock()
			if r.current == s {
				r.current = prev
			}
			r.mu.Unlock()
		}
		return nil, err
	}
	return s.InProgress(), nil
}

// Stop stops the current session. Without one it returns nil, nil; that
// includes a session already finalized, or aborted with its failure
// reported by an earlier Stop.
func (r *Recorder) Stop(ctx context.Context) (*Recording, error) {
	r.mu.Lock()
	s := r.current
	r.mu.Unlock()
	if s == nil || s.settled() {
		return nil, nil
	}
	return s.Stop(ctx)
}

// Current returns the active session's handle, or nil.
func (r *Recorder) Current() *InProgress {
	r.mu.Lock()
	s := r.current
	r.mu.Unlock()
	if s == nil {
		return nil
	}
	return s.InProgress()
}

// Session returns the most recent session, or nil.
func (r *Recorder) Session() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}
