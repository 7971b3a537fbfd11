package render

import (
	"math"
	"testing"
)

func absInt16(v int16) int {
	if v < 0 {
		return -int(v)
	}
	return int(v)
}

func TestImprover_RemovesDCOffset(t *testing.T) {
	m := newImprover(1)
	var last []int16
	for block := 0; block < 20; block++ {
		pcm := make([]int16, 4800)
		for i := range pcm {
			pcm[i] = 5000
		}
		m.Process(pcm)
		last = pcm
	}
	for i, s := range last {
		if absInt16(s) > 10 {
			t.Fatalf("sample %d = %d, expected the offset to be removed", i, s)
		}
	}
}

func TestImprover_GatesQuietNoise(t *testing.T) {
	m := newImprover(1)
	pcm := make([]int16, 4800)
	for i := range pcm {
		if i%2 == 0 {
			pcm[i] = 50
		} else {
			pcm[i] = -50
		}
	}
	m.Process(pcm)

	if absInt16(pcm[0]) < 45 {
		t.Errorf("first sample = %d, expected the gate to close gradually", pcm[0])
	}
	if tail := absInt16(pcm[len(pcm)-1]); tail > 3 {
		t.Errorf("last sample = %d, expected the gate to be closed", tail)
	}
}

func TestImprover_KeepsSpeechLevel(t *testing.T) {
	m := newImprover(1)
	const rate = 48000.0
	n := 0
	for block := 0; block < 10; block++ {
		pcm := make([]int16, 480)
		for i := range pcm {
			pcm[i] = int16(10000 * math.Sin(2*math.Pi*1000*float64(n)/rate))
			n++
		}
		m.Process(pcm)

		peak := 0
		for _, s := range pcm {
			if a := absInt16(s); a > peak {
				peak = a
			}
		}
		if peak < 9000 {
			t.Fatalf("block %d peak = %d, expected loud audio to pass", block, peak)
		}
	}
}

func TestImprover_ChannelsAreIndependent(t *testing.T) {
	m := newImprover(2)
	pcm := make([]int16, 960)
	for i := 1; i < len(pcm); i += 2 {
		if (i/2)%2 == 0 {
			pcm[i] = 12000
		} else {
			pcm[i] = -12000
		}
	}
	m.Process(pcm)
	for i := 0; i < len(pcm); i += 2 {
		if pcm[i] != 0 {
			t.Fatalf("left sample %d = %d, expected silence", i/2, pcm[i])
		}
	}
}

func TestClamp16(t *testing.T) {
	tests := []struct {
		in   float64
		want int16
	}{
		{40000, math.MaxInt16},
		{-40000, math.MinInt16},
		{1.5, 2},
		{-1.4, -1},
		{0, 0},
	}
	for _, tt := range tests {
		if got := clamp16(tt.in); got != tt.want {
			t.Errorf("clamp16(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestImprover_EmptyBlock(t *testing.T) {
	newImprover(0).Process(nil)
}
