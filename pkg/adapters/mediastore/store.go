// Package mediastore implements ports.MediaStore on the local disk: video
// tracks as Motion-JPEG fragmented MP4, audio tracks as WAV.
package mediastore

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/user/clipdeck/pkg/adapters/mjpegmp4"
	"github.com/user/clipdeck/pkg/adapters/wavtrack"
	"github.com/user/clipdeck/pkg/ports"
)

// Store implements ports.MediaStore.
type Store struct{}

// New creates a Store.
func New() *Store {
	return &Store{}
}

// CreateVideoTrack creates a video track file, replacing any existing one.
func (s *Store) CreateVideoTrack(path string, width, height int) (ports.VideoTrackWriter, error) {
	f, err := create(path)
	if err != nil {
		return nil, err
	}
	return mjpegmp4.NewTrackWriter(f, width, height), nil
}

// CreateAudioTrack creates an audio track file, replacing any existing one.
func (s *Store) CreateAudioTrack(path string, format ports.AudioFormat) (ports.AudioTrackWriter, error) {
	f, err := create(path)
	if err != nil {
		return nil, err
	}
	w, err := wavtrack.NewWriter(f, format)
	if err != nil {
		f.Close()
		os.Remove(path)
		return nil, err
	}
	return w, nil
}

// OpenVideoTrack loads a video track.
func (s *Store) OpenVideoTrack(path string) (ports.VideoTrack, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	track, err := mjpegmp4.Open(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return track, nil
}

// OpenAudioTrack opens an audio track. The file stays open until the track
// is closed.
func (s *Store) OpenAudioTrack(path string) (ports.AudioTrack, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	track, err := wavtrack.Open(f, st.Size(), f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return track, nil
}

func create(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return os.Create(path)
}

var _ ports.MediaStore = (*Store)(nil)
