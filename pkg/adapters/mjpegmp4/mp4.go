// Package mjpegmp4 stores Motion-JPEG video (and optionally PCM audio) in
// fragmented MP4 files, one fragment per frame, so a file cut short by a
// crash stays readable up to its last complete fragment.
package mjpegmp4

import (
	"fmt"
	"io"
	"time"

	"github.com/Eyevinn/mp4ff/mp4"
)

// VideoTimescale is the track timescale of every video track (90 kHz).
const VideoTimescale = 90000

const (
	videoTrackID = 1
	audioTrackID = 2

	// defaultFrameDuration is used for the last sample of a track that
	// never saw a second frame.
	defaultFrameDuration = VideoTimescale / 30
)

// newInit builds an init segment with a JPEG video track and, when audioRate
// is positive, a little-endian PCM16 audio track.
func newInit(width, height int, audioRate, audioChannels int) *mp4.InitSegment {
	init := mp4.CreateEmptyInit()
	init.AddEmptyTrack(VideoTimescale, "video", "und")

	trak := init.Moov.Trak
	jpeg := mp4.CreateVisualSampleEntryBox("jpeg", uint16(width), uint16(height), nil)
	trak.Mdia.Minf.Stbl.Stsd.AddChild(jpeg)
	trak.Tkhd.Width = mp4.Fixed32(width << 16)
	trak.Tkhd.Height = mp4.Fixed32(height << 16)

	if audioRate > 0 {
		init.AddEmptyTrack(uint32(audioRate), "audio", "und")
		atrak := init.Moov.Traks[len(init.Moov.Traks)-1]
		sowt := mp4.CreateAudioSampleEntryBox("sowt", uint16(audioChannels), 16, uint16(audioRate), nil)
		atrak.Mdia.Minf.Stbl.Stsd.AddChild(sowt)
	}
	return init
}

// writeHeader writes ftyp and moov.
func writeHeader(w io.Writer, init *mp4.InitSegment) error {
	ftyp := mp4.NewFtyp("isom", 0x200, []string{"isom", "iso6", "mp41"})
	if err := ftyp.Encode(w); err != nil {
		return fmt.Errorf("encode ftyp: %w", err)
	}
	if err := init.Moov.Encode(w); err != nil {
		return fmt.Errorf("encode moov: %w", err)
	}
	return nil
}

// toTicks converts a session time to video timescale units. Negative times
// clamp to zero.
func toTicks(d time.Duration) uint64 {
	if d <= 0 {
		return 0
	}
	return uint64(d) * VideoTimescale / uint64(time.Second)
}

func fromTicks(ticks uint64, timescale uint32) time.Duration {
	return time.Duration(ticks * uint64(time.Second) / uint64(timescale))
}
