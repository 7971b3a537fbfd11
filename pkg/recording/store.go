package recording

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/user/clipdeck/pkg/apperr"
	"github.com/user/clipdeck/pkg/ports"
	"github.com/user/clipdeck/pkg/project"
)

// Store is the recording library: one directory per recording under Root.
// Sessions write into Root/.inprogress/<id> and move the directory into
// place when they finish.
type Store struct {
	root   string
	fs     ports.FileSystem
	logger ports.Logger
}

// NewStore creates a store rooted at root.
func NewStore(root string, fs ports.FileSystem, logger ports.Logger) *Store {
	return &Store{root: root, fs: fs, logger: logger.WithComponent("store")}
}

// Root returns the library directory.
func (s *Store) Root() string {
	return s.root
}

func (s *Store) dir(id string) string {
	return filepath.Join(s.root, id)
}

func (s *Store) inProgressDir(id string) string {
	return filepath.Join(s.root, InProgressDir, id)
}

func validID(id string) bool {
	return id != "" && !strings.HasPrefix(id, ".") && !strings.ContainsAny(id, `/\`)
}

// List returns every readable recording, newest first. Directories without
// valid metadata are skipped.
func (s *Store) List() ([]Recording, error) {
	names, err := s.fs.ListDirs(s.root)
	if err != nil {
		return nil, apperr.New(apperr.KindIOFailure, "list recordings", err)
	}
	var out []Recording
	for _, name := range names {
		rec, err := s.Get(name)
		if err != nil {
			s.logger.Debug("Skipping %s: %v", name, err)
			continue
		}
		out = append(out, *rec)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Get loads one recording.
func (s *Store) Get(id string) (*Recording, error) {
	if !validID(id) {
		return nil, apperr.Newf(apperr.KindNotFound, "get recording", "invalid id %q", id)
	}
	data, err := s.fs.ReadFile(filepath.Join(s.dir(id), MetaFile))
	if err != nil {
		return nil, apperr.New(apperr.KindNotFound, "get recording", fmt.Errorf("%s: %w", id, err))
	}
	var rec Recording
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, apperr.New(apperr.KindIOFailure, "get recording", fmt.Errorf("%s: %w", id, err))
	}
	rec.ID = id
	rec.Dir = s.dir(id)
	return &rec, nil
}

// writeMeta writes recording.json into dir.
func (s *Store) writeMeta(dir string, rec *Recording) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	return s.fs.WriteFileAtomic(filepath.Join(dir, MetaFile), data)
}

// SaveProject stores cfg as the recording's saved configuration.
func (s *Store) SaveProject(id string, cfg *project.Configuration) error {
	if _, err := s.Get(id); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	if err := s.fs.WriteFileAtomic(filepath.Join(s.dir(id), ProjectFile), data); err != nil {
		return apperr.New(apperr.KindIOFailure, "save project", err)
	}
	return nil
}

// LoadProject returns the saved configuration, or nil if the recording has
// never been saved.
func (s *Store) LoadProject(id string) (*project.Configuration, error) {
	if _, err := s.Get(id); err != nil {
		return nil, err
	}
	path := filepath.Join(s.dir(id), ProjectFile)
	exists, err := s.fs.Exists(path)
	if err != nil {
		return nil, apperr.New(apperr.KindIOFailure, "load project", err)
	}
	if !exists {
		return nil, nil
	}
	data, err := s.fs.ReadFile(path)
	if err != nil {
		return nil, apperr.New(apperr.KindIOFailure, "load project", err)
	}
	return project.Parse(data)
}

// LoadCursor returns the recording's cursor track, or nil if none was
// recorded.
func (s *Store) LoadCursor(rec *Recording) (*CursorTrack, error) {
	if rec.Cursor == nil {
		return nil, nil
	}
	data, err := s.fs.ReadFile(rec.Path(rec.Cursor.File))
	if err != nil {
		return nil, apperr.New(apperr.KindIOFailure, "load cursor", err)
	}
	return ParseCursorTrack(data)
}

// RenderPath is where a render of the recording with the given project key
// is cached.
func (s *Store) RenderPath(id, key string) string {
	if len(key) > 16 {
		key = key[:16]
	}
	return filepath.Join(s.dir(id), RendersDir, key+".mp4")
}

// Delete removes a recording and its renders.
func (s *Store) Delete(id string) error {
	if _, err := s.Get(id); err != nil {
		return err
	}
	if err := s.fs.RemoveAll(s.dir(id)); err != nil {
		return apperr.New(apperr.KindIOFailure, "delete recording", err)
	}
	return nil
}

// Watch reports changes to the library until ctx is done. Events are
// debounced and handed to fn as the set of top-level recording ids touched.
// Work inside .inprogress is ignored.
func (s *Store) Watch(ctx context.Context, fn func(ids []string)) error {
	if err := s.fs.MkdirAll(s.root); err != nil {
		return apperr.New(apperr.KindIOFailure, "watch", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return apperr.New(apperr.KindIOFailure, "watch", err)
	}
	defer watcher.Close()
	if err := watcher.Add(s.root); err != nil {
		return apperr.New(apperr.KindIOFailure, "watch", err)
	}

	debounce := time.NewTimer(0)
	<-debounce.C
	pending := make(map[string]struct{})

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			name := filepath.Base(event.Name)
			if !validID(name) {
				continue
			}
			pending[name] = struct{}{}
			debounce.Reset(100 * time.Millisecond)

		case <-debounce.C:
			ids := make([]string, 0, len(pending))
			for id := range pending {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			pending = make(map[string]struct{})
			if len(ids) > 0 {
				fn(ids)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("Watch error: %v", err)
		}
	}
}
