package recording

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/user/clipdeck/pkg/ports"
)

// CursorSample is one recorded cursor position. X and Y are relative to the
// captured area (0..1); T is session time in seconds.
type CursorSample struct {
	T     float64           `json:"t"`
	X     float64           `json:"x"`
	Y     float64           `json:"y"`
	Shape ports.CursorShape `json:"shape"`
}

// CursorPosition is the cursor state at a point in time.
type CursorPosition struct {
	X     float64
	Y     float64
	Shape ports.CursorShape
	// Idle is how long the cursor has been at this position.
	Idle time.Duration
}

// CursorTrack answers cursor lookups for a recording.
type CursorTrack struct {
	samples []CursorSample
	movedAt []float64
}

// NewCursorTrack builds a track from samples in any order.
func NewCursorTrack(samples []CursorSample) *CursorTrack {
	s := append([]CursorSample(nil), samples...)
	sort.SliceStable(s, func(i, j int) bool { return s[i].T < s[j].T })

	moved := make([]float64, len(s))
	for i := range s {
		if i > 0 && s[i].X == s[i-1].X && s[i].Y == s[i-1].Y {
			moved[i] = moved[i-1]
		} else {
			moved[i] = s[i].T
		}
	}
	return &CursorTrack{samples: s, movedAt: moved}
}

// ParseCursorTrack decodes cursor.json.
func ParseCursorTrack(data []byte) (*CursorTrack, error) {
	var samples []CursorSample
	if err := json.Unmarshal(data, &samples); err != nil {
		return nil, fmt.Errorf("decode cursor track: %w", err)
	}
	return NewCursorTrack(samples), nil
}

// Len returns the number of samples.
func (c *CursorTrack) Len() int {
	if c == nil {
		return 0
	}
	return len(c.samples)
}

// At returns the cursor at session time t. ok is false before the first
// sample or when the track is empty.
func (c *CursorTrack) At(t time.Duration) (CursorPosition, bool) {
	if c.Len() == 0 {
		return CursorPosition{}, false
	}
	sec := t.Seconds()
	i := sort.Search(len(c.samples), func(i int) bool { return c.samples[i].T > sec })
	if i == 0 {
		return CursorPosition{}, false
	}
	s := c.samples[i-1]
	idle := Seconds(sec - c.movedAt[i-1])
	if idle < 0 {
		idle = 0
	}
	return CursorPosition{X: s.X, Y: s.Y, Shape: s.Shape, Idle: idle}, true
}
