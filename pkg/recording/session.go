package recording

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/user/clipdeck/pkg/apperr"
	"github.com/user/clipdeck/pkg/capture"
	"github.com/user/clipdeck/pkg/eventbus"
	"github.com/user/clipdeck/pkg/ports"
)

// Deps are the collaborators shared by every session.
type Deps struct {
	Backend ports.CaptureBackend
	Claims  *capture.Claims
	Media   ports.MediaStore
	Store   *Store
	FS      ports.FileSystem
	Bus     eventbus.Publisher
	Logger  ports.Logger
}

type role string

const (
	roleDisplay role = "display"
	roleCamera  role = "camera"
	roleAudio   role = "audio"
)

// track is one open source and the writer it feeds.
type track struct {
	role role
	file string
	desc ports.DeviceDescriptor
	src  ports.CaptureSource

	video ports.VideoTrackWriter
	audio ports.AudioTrackWriter
}

func (t *track) write(f ports.CaptureFrame, pts time.Duration) error {
	if t.audio != nil {
		return t.audio.WriteSamples(f.Data, pts)
	}
	return t.video.WriteSample(f.Data, pts)
}

func (t *track) closeWriter() error {
	if t.audio != nil {
		return t.audio.Close()
	}
	if t.video != nil {
		return t.video.Close()
	}
	return nil
}

// Session records one capture from start to stop. A session is used once:
// after Finalized or Aborted a new session must be created.
type Session struct {
	id     string
	deps   Deps
	logger ports.Logger

	// opMu serializes Start, Stop and the failure path.
	opMu sync.Mutex

	mu              sync.Mutex
	state           State
	target          CaptureTarget
	dir             string
	startedAt       time.Time
	tracks          []*track
	writers         *errgroup.Group
	cursor          []CursorSample
	result          *Recording
	failure         error
	failureReported bool
}

// NewSession creates an idle session.
func NewSession(id string, deps Deps) *Session {
	return &Session{
		id:     id,
		deps:   deps,
		logger: deps.Logger.WithComponent("session"),
		state:  StateIdle,
	}
}

// ID returns the id the recording will be stored under.
func (s *Session) ID() string {
	return s.id
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the failure that aborted the session, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failure
}

// InProgress returns the handle of an active session, nil otherwise.
func (s *Session) InProgress() *InProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return nil
	}
	return &InProgress{ID: s.id, RecordingDir: s.dir, DisplaySource: s.target, StartedAt: s.startedAt}
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	s.logger.Debug("Session %s is %s", s.id, st)
}

type plannedTrack struct {
	role role
	file string
	desc ports.DeviceDescriptor
}

// resolve checks the options against a fresh enumeration.
func (s *Session) resolve(opts Options) ([]plannedTrack, error) {
	var (
		display ports.DeviceDescriptor
		err     error
	)
	switch t := opts.CaptureTarget.(type) {
	case ScreenTarget:
		display, err = capture.Primary(s.deps.Backend, ports.KindScreen)
	case WindowTarget:
		display, err = capture.Resolve(s.deps.Backend, ports.KindWindow, strconv.FormatUint(uint64(t.ID), 10))
	case nil:
		err = apperr.Newf(apperr.KindInvalidOptions, "start", "no capture target selected")
	}
	if err != nil {
		return nil, err
	}
	plan := []plannedTrack{{role: roleDisplay, file: DisplayFile, desc: display}}

	if opts.CameraLabel != nil {
		cam, err := capture.Resolve(s.deps.Backend, ports.KindCamera, *opts.CameraLabel)
		if err != nil {
			return nil, err
		}
		plan = append(plan, plannedTrack{role: roleCamera, file: CameraFile, desc: cam})
	}
	if opts.AudioInputName != nil {
		mic, err := capture.Resolve(s.deps.Backend, ports.KindAudio, *opts.AudioInputName)
		if err != nil {
			return nil, err
		}
		plan = append(plan, plannedTrack{role: roleAudio, file: AudioFile, desc: mic})
	}
	return plan, nil
}

// Start validates opts, opens every requested device and begins writing.
// Invalid options leave the session Idle; any later failure closes what was
// opened, removes the partial directory and leaves the session Aborted.
func (s *Session) Start(ctx context.Context, opts Options) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if st := s.State(); st != StateIdle {
		return apperr.Newf(apperr.KindSessionActive, "start", "session %s is %s", s.id, st)
	}

	plan, err := s.resolve(opts)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.target = opts.CaptureTarget
	s.mu.Unlock()
	s.setState(StateStarting)

	descs := make([]ports.DeviceDescriptor, len(plan))
	for i, p := range plan {
		descs[i] = p.desc
	}
	if err := s.deps.Claims.Claim(s.id, descs...); err != nil {
		return s.abortStart(nil, "", err)
	}

	dir := s.deps.Store.inProgressDir(s.id)
	if err := s.deps.FS.MkdirAll(dir); err != nil {
		return s.abortStart(nil, "", apperr.New(apperr.KindIOFailure, "create recording directory", err))
	}
	startedAt := time.Now()

	tracks := make([]*track, 0, len(plan))
	for _, p := range plan {
		src, err := s.deps.Backend.Open(ctx, p.desc)
		if err != nil {
			return s.abortStart(tracks, dir, err)
		}
		tracks = append(tracks, &track{role: p.role, file: p.file, desc: p.desc, src: src})
	}

	for _, t := range tracks {
		path := filepath.Join(dir, t.file)
		var err error
		switch t.role {
		case roleAudio:
			t.audio, err = s.deps.Media.CreateAudioTrack(path, ports.AudioFormat{
				SampleRate: t.desc.SampleRate,
				Channels:   t.desc.Channels,
			})
		default:
			w, h := 1280, 720
			if b := t.desc.Bounds; b != nil && b.Width > 0 && b.Height > 0 {
				w, h = int(b.Width), int(b.Height)
			}
			t.video, err = s.deps.Media.CreateVideoTrack(path, w, h)
		}
		if err != nil {
			return s.abortStart(tracks, dir, apperr.New(apperr.KindIOFailure, "create "+t.file, err))
		}
	}

	s.mu.Lock()
	s.dir = dir
	s.startedAt = startedAt
	s.tracks = tracks
	s.writers = &errgroup.Group{}
	s.state = StateActive
	s.mu.Unlock()

	for _, t := range tracks {
		t := t
		s.writers.Go(func() error { return s.pump(t) })
	}

	s.logger.Debug("Session %s active with %d tracks in %s", s.id, len(tracks), dir)
	s.deps.Bus.Publish(eventbus.NewRecordingStarted(s.id, dir))
	return nil
}

// abortStart undoes a partial start.
func (s *Session) abortStart(tracks []*track, dir string, cause error) error {
	closeAll(tracks)
	for _, t := range tracks {
		t.closeWriter()
	}
	s.deps.Claims.Release(s.id)
	if dir != "" {
		if err := s.deps.FS.RemoveAll(dir); err != nil {
			s.logger.Warn("Failed to remove partial directory %s: %v", dir, err)
		}
	}

	s.mu.Lock()
	s.state = StateAborted
	s.failure = cause
	s.failureReported = true
	s.mu.Unlock()
	s.logger.Debug("Session %s aborted during start: %v", s.id, cause)
	return cause
}

// pump is the writer loop of one track: it owns every frame it receives
// from the source channel.
func (s *Session) pump(t *track) (err error) {
	defer func() {
		if cerr := t.closeWriter(); cerr != nil && err == nil {
			err = apperr.New(apperr.KindIOFailure, "write "+t.file, cerr)
		}
		if err != nil {
			s.fail(err)
		}
	}()

	for f := range t.src.Frames() {
		pts := f.Captured.Sub(s.startedAt)
		if werr := t.write(f, pts); werr != nil {
			return apperr.New(apperr.KindIOFailure, "write "+t.file, werr)
		}
		if t.role == roleDisplay && f.Cursor != nil {
			s.cursor = append(s.cursor, CursorSample{
				T:     toSeconds(pts),
				X:     f.Cursor.X,
				Y:     f.Cursor.Y,
				Shape: f.Cursor.Shape,
			})
		}
	}
	if serr := t.src.Err(); serr != nil {
		if apperr.KindOf(serr) == "" {
			serr = apperr.Device(apperr.KindDeviceUnavailable, "capture", t.desc.Name, serr)
		}
		return serr
	}
	return nil
}

// fail records the first failure. An active session is aborted in the
// background; a stopping one picks the failure up when it finalizes.
func (s *Session) fail(err error) {
	s.mu.Lock()
	first := s.failure == nil
	if first {
		s.failure = err
	}
	active := s.state == StateActive
	s.mu.Unlock()

	if first && active {
		s.logger.Debug("Session %s failed: %v", s.id, err)
		go s.abort()
	}
}

func (s *Session) abort() {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if s.State() != StateActive {
		return
	}
	s.finish(context.Background())
}

// settled reports whether Stop has nothing left to deliver: the session
// finalized, or aborted and its failure was already returned.
func (s *Session) settled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateFinalized:
		return true
	case StateAborted:
		return s.failureReported
	}
	return false
}

// Stop ends the session and returns the persisted recording. Stopping an
// idle or finalized session succeeds without doing anything. A session that
// aborted while active returns its failure on the first Stop.
func (s *Session) Stop(ctx context.Context) (*Recording, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	switch s.state {
	case StateIdle:
		s.mu.Unlock()
		return nil, nil
	case StateFinalized:
		rec := s.result
		s.mu.Unlock()
		return rec, nil
	case StateAborted:
		rec := s.result
		if s.failureReported {
			s.mu.Unlock()
			return rec, nil
		}
		s.failureReported = true
		err := s.failure
		s.mu.Unlock()
		return rec, err
	}
	s.mu.Unlock()

	rec, err := s.finish(ctx)
	if err != nil {
		s.mu.Lock()
		s.failureReported = true
		s.mu.Unlock()
	}
	return rec, err
}

// finish stops every source, waits for the writers and persists whatever
// was written. The caller holds opMu and the session is Active.
func (s *Session) finish(ctx context.Context) (*Recording, error) {
	s.setState(StateStopping)

	s.mu.Lock()
	tracks, writers := s.tracks, s.writers
	s.mu.Unlock()

	g, _ := errgroup.WithContext(ctx)
	for _, t := range tracks {
		t := t
		g.Go(func() error { return t.src.Close() })
	}
	if err := g.Wait(); err != nil {
		s.logger.Warn("Closing a source failed: %v", err)
	}
	writers.Wait()
	stoppedAt := time.Now()

	s.mu.Lock()
	failure := s.failure
	s.mu.Unlock()

	rec, err := s.persist(tracks, failure)
	s.deps.Claims.Release(s.id)

	s.mu.Lock()
	s.tracks = nil
	s.result = rec
	if err != nil && failure == nil {
		failure = err
		s.failure = err
	}
	if failure != nil {
		s.state = StateAborted
	} else {
		s.state = StateFinalized
	}
	s.mu.Unlock()

	if rec != nil {
		s.deps.Bus.Publish(eventbus.NewNewRecordingAdded(rec.ID, rec.Incomplete))
	}
	if failure != nil {
		s.logger.Debug("Session %s aborted after %v: %v", s.id, stoppedAt.Sub(s.startedAt), failure)
		s.deps.Bus.Publish(eventbus.NewRecordingFailed(s.id, string(apperr.KindOf(failure)), failure.Error()))
		return rec, failure
	}
	s.logger.Debug("Session %s finalized after %v", s.id, stoppedAt.Sub(s.startedAt))
	s.deps.Bus.Publish(eventbus.NewRecordingStopped(s.id))
	return rec, nil
}

// persist probes the written tracks, writes the metadata and moves the
// directory into the library. With a failure the recording is kept but
// flagged incomplete.
func (s *Session) persist(tracks []*track, failure error) (*Recording, error) {
	rec := &Recording{
		ID:            s.id,
		CreatedAt:     s.startedAt,
		DisplaySource: s.target,
	}
	if failure != nil {
		rec.Incomplete = true
		rec.Failure = failure.Error()
	}

	for _, t := range tracks {
		path := filepath.Join(s.dir, t.file)
		switch t.role {
		case roleDisplay, roleCamera:
			meta, err := s.probeVideo(path, t.file)
			if err != nil {
				if failure != nil && t.role == roleCamera {
					s.logger.Debug("Dropping unreadable %s: %v", t.file, err)
					continue
				}
				if failure == nil {
					return nil, err
				}
			}
			if t.role == roleDisplay {
				rec.Display = meta
			} else {
				rec.Camera = &meta
			}
		case roleAudio:
			meta, err := s.probeAudio(path, t.file)
			if err != nil {
				if failure == nil {
					return nil, err
				}
				s.logger.Debug("Dropping unreadable %s: %v", t.file, err)
				continue
			}
			rec.Audio = &meta
		}
	}

	if len(s.cursor) > 0 {
		data, err := json.Marshal(s.cursor)
		if err != nil {
			return nil, err
		}
		if err := s.deps.FS.WriteFile(filepath.Join(s.dir, CursorFile), data); err != nil {
			return nil, apperr.New(apperr.KindIOFailure, "write cursor track", err)
		}
		rec.Cursor = &CursorTrackMeta{File: CursorFile, Samples: len(s.cursor)}
	}

	if err := s.deps.Store.writeMeta(s.dir, rec); err != nil {
		return nil, apperr.New(apperr.KindIOFailure, "write recording metadata", err)
	}
	final := s.deps.Store.dir(s.id)
	if err := s.deps.FS.Rename(s.dir, final); err != nil {
		return nil, apperr.New(apperr.KindIOFailure, "move recording into library", err)
	}
	rec.Dir = final
	return rec, nil
}

func (s *Session) probeVideo(path, file string) (VideoTrackMeta, error) {
	meta := VideoTrackMeta{File: file}
	track, err := s.deps.Media.OpenVideoTrack(path)
	if err != nil {
		return meta, apperr.New(apperr.KindIOFailure, "probe "+file, err)
	}
	defer track.Close()

	info := track.Info()
	meta.Width = info.Width
	meta.Height = info.Height
	meta.FPS = info.FPS
	meta.Frames = info.Frames
	meta.Duration = toSeconds(info.Duration)
	meta.StartOffset = toSeconds(info.StartOffset)
	return meta, nil
}

func (s *Session) probeAudio(path, file string) (AudioTrackMeta, error) {
	meta := AudioTrackMeta{File: file}
	track, err := s.deps.Media.OpenAudioTrack(path)
	if err != nil {
		return meta, apperr.New(apperr.KindIOFailure, "probe "+file, err)
	}
	defer track.Close()

	info := track.Info()
	meta.SampleRate = info.SampleRate
	meta.Channels = info.Channels
	meta.Duration = toSeconds(info.Duration)
	meta.StartOffset = toSeconds(info.StartOffset)
	return meta, nil
}

func closeAll(tracks []*track) {
	var wg sync.WaitGroup
	for _, t := range tracks {
		wg.Add(1)
		go func(t *track) {
			defer wg.Done()
			t.src.Close()
		}(t)
	}
	wg.Wait()
}
