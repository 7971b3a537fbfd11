package render

import (
	"math"
)

const (
	// dcPole is the pole of the DC-blocking filter, about 4Hz at 48kHz.
	dcPole = 0.9995
	// gateThreshold is the RMS below which a block is treated as noise,
	// about -50 dBFS.
	gateThreshold = 104.0
	// gateAttack and gateRelease are the per-sample gain steps toward open
	// and closed.
	gateAttack  = 0.02
	gateRelease = 0.002
	// gateFloor is the gain of a closed gate.
	gateFloor = 0.05
)

// improver cleans up speech audio: it removes DC offset and gates the
// noise floor. Samples must be fed in presentation order; the filter
// carries state from block to block.
type improver struct {
	channels int
	prevIn   []float64
	prevOut  []float64
	gain     float64
}

func newImprover(channels int) *improver {
	if channels < 1 {
		channels = 1
	}
	return &improver{
		channels: channels,
		prevIn:   make([]float64, channels),
		prevOut:  make([]float64, channels),
		gain:     1,
	}
}

// Process filters one block of interleaved samples in place.
func (m *improver) Process(pcm []int16) {
	if len(pcm) == 0 {
		return
	}
	filtered := make([]float64, len(pcm))
	var energy float64
	for i, s := range pcm {
		ch := i % m.channels
		x := float64(s)
		y := x - m.prevIn[ch] + dcPole*m.prevOut[ch]
		m.prevIn[ch], m.prevOut[ch] = x, y
		filtered[i] = y
		energy += y * y
	}

	target := 1.0
	if math.Sqrt(energy/float64(len(pcm))) < gateThreshold {
		target = gateFloor
	}
	for i, y := range filtered {
		if i%m.channels == 0 {
			if m.gain < target {
				m.gain = math.Min(target, m.gain+gateAttack)
			} else if m.gain > target {
				m.gain = math.Max(target, m.gain-gateRelease)
			}
		}
		pcm[i] = clamp16(y * m.gain)
	}
}

func clamp16(v float64) int16 {
	v = math.Round(v)
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
