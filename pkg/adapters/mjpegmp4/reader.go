package mjpegmp4

import (
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/user/clipdeck/pkg/ports"
)

// Track is a video track loaded into memory for random access.
type Track struct {
	info    ports.VideoTrackInfo
	samples []ports.Sample
}

// Open parses the video track of a fragmented MP4 stream.
func Open(r io.ReadSeeker) (*Track, error) {
	mp4File, err := mp4.DecodeFile(r)
	if err != nil {
		return nil, fmt.Errorf("decode mp4: %w", err)
	}
	if mp4File.Init == nil || mp4File.Init.Moov == nil {
		return nil, fmt.Errorf("no init segment")
	}

	var (
		trackID   uint32
		timescale uint32 = VideoTimescale
		trex      *mp4.TrexBox
		t         = &Track{}
	)
	for _, trak := range mp4File.Init.Moov.Traks {
		if trak.Mdia != nil && trak.Mdia.Hdlr != nil && trak.Mdia.Hdlr.HandlerType == "vide" {
			trackID = trak.Tkhd.TrackID
			if trak.Mdia.Mdhd != nil {
				timescale = trak.Mdia.Mdhd.Timescale
			}
			t.info.Width = int(trak.Tkhd.Width >> 16)
			t.info.Height = int(trak.Tkhd.Height >> 16)
			break
		}
	}
	if trackID == 0 {
		return nil, fmt.Errorf("no video track found")
	}
	if mvex := mp4File.Init.Moov.Mvex; mvex != nil {
		for _, tx := range mvex.Trexs {
			if tx.TrackID == trackID {
				trex = tx
				break
			}
		}
	}

	for _, seg := range mp4File.Segments {
		for _, frag := range seg.Fragments {
			if frag.Moof == nil {
				continue
			}
			for _, traf := range frag.Moof.Trafs {
				if traf.Tfhd.TrackID != trackID {
					continue
				}
				var base uint64
				if traf.Tfdt != nil {
					base = traf.Tfdt.BaseMediaDecodeTime()
				}
				full, err := frag.GetFullSamples(trex)
				if err != nil {
					return nil, fmt.Errorf("get samples: %w", err)
				}
				current := base
				for _, s := range full {
					t.samples = append(t.samples, ports.Sample{
						Index:    len(t.samples),
						PTS:      fromTicks(current, timescale),
						Duration: fromTicks(uint64(s.Dur), timescale),
						Data:     s.Data,
					})
					current += uint64(s.Dur)
				}
			}
		}
	}

	sort.SliceStable(t.samples, func(i, j int) bool { return t.samples[i].PTS < t.samples[j].PTS })
	for i := range t.samples {
		t.samples[i].Index = i
	}

	t.info.Frames = len(t.samples)
	if n := len(t.samples); n > 0 {
		first, last := t.samples[0], t.samples[n-1]
		t.info.StartOffset = first.PTS
		t.info.Duration = last.PTS + last.Duration - first.PTS
		if t.info.Duration > 0 {
			fps := float64(n) / t.info.Duration.Seconds()
			t.info.FPS = math.Round(fps*100) / 100
		}
	}
	return t, nil
}

// Info returns the track metadata.
func (t *Track) Info() ports.VideoTrackInfo {
	return t.info
}

// SampleAt returns the last sample presented at or before pts, clamped to
// the first and last sample.
func (t *Track) SampleAt(pts time.Duration) (ports.Sample, error) {
	if len(t.samples) == 0 {
		return ports.Sample{}, fmt.Errorf("track has no samples")
	}
	i := sort.Search(len(t.samples), func(i int) bool { return t.samples[i].PTS > pts })
	if i > 0 {
		i--
	}
	return t.samples[i], nil
}

// Samples returns every sample in presentation order.
func (t *Track) Samples() []ports.Sample {
	return t.samples
}

// Close releases the sample data.
func (t *Track) Close() error {
	t.samples = nil
	return nil
}

var _ ports.VideoTrack = (*Track)(nil)
