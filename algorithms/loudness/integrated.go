package loudness

import (
	"math"

	"github.com/RyanBlaney/sonido-match/algorithms/common"
)

// Meter measures programme loudness per ITU-R BS.1770-4 and loudness range
// per EBU Tech 3342
type Meter struct {
	sampleRate int

	blockSize    float64 // gating block, seconds
	blockOverlap float64 // fraction of block overlap
	absoluteGate float64 // LUFS
	relativeGate float64 // LU below the absolute-gated mean

	shortTermSize float64 // LRA window, seconds
	shortTermHop  float64
	lraGate       float64 // LU below the absolute-gated mean
	lraLow        float64
	lraHigh       float64
}

// NewMeter creates a meter for audio at sampleRate
func NewMeter(sampleRate int) *Meter {
	return &Meter{
		sampleRate:    sampleRate,
		blockSize:     0.4,
		blockOverlap:  0.75,
		absoluteGate:  -70,
		relativeGate:  -10,
		shortTermSize: 3.0,
		shortTermHop:  1.0,
		lraGate:       -20,
		lraLow:        0.10,
		lraHigh:       0.95,
	}
}

// channelWeight returns the BS.1770 weighting G_i for a channel of a layout
// with count channels. 5.0 is L R C Ls Rs and 5.1 is L R C LFE Ls Rs; the
// surrounds carry +1.5 dB and the LFE is excluded.
func channelWeight(channel, count int) float64 {
	switch count {
	case 5:
		if channel == 3 || channel == 4 {
			return 1.41
		}
	case 6:
		switch channel {
		case 3:
			return 0
		case 4, 5:
			return 1.41
		}
	}
	return 1.0
}

// kWeight applies the two stage K-weighting pre-filter to every channel
func (m *Meter) kWeight(channels [][]float64) [][]float64 {
	weighted := make([][]float64, len(channels))
	for c, samples := range channels {
		shelf := NewShelf(m.sampleRate)
		highPass := NewHighPass(m.sampleRate)
		weighted[c] = highPass.ProcessBuffer(shelf.ProcessBuffer(samples))
	}
	return weighted
}

// blockPowers returns the channel-weighted mean square of each window
func blockPowers(weighted [][]float64, windowSize, hopSize int) []float64 {
	if len(weighted) == 0 || windowSize <= 0 || hopSize <= 0 {
		return nil
	}
	n := len(weighted[0])

	var powers []float64
	for start := 0; start+windowSize <= n; start += hopSize {
		z := 0.0
		for c, samples := range weighted {
			sum := 0.0
			for _, v := range samples[start : start+windowSize] {
				sum += v * v
			}
			z += channelWeight(c, len(weighted)) * sum / float64(windowSize)
		}
		powers = append(powers, z)
	}
	return powers
}

func powerToLUFS(z float64) float64 {
	return -0.691 + 10*math.Log10(z)
}

// Integrated returns the gated integrated loudness in LUFS of de-interleaved
// channels. A signal shorter than one gating block is measured as a single
// block. ok is false when every block falls below the absolute gate.
func (m *Meter) Integrated(channels [][]float64) (float64, bool) {
	if len(channels) == 0 || len(channels[0]) == 0 {
		return 0, false
	}

	weighted := m.kWeight(channels)
	n := len(weighted[0])

	windowSize := int(math.Round(m.blockSize * float64(m.sampleRate)))
	hopSize := max(1, int(math.Round(float64(windowSize)*(1-m.blockOverlap))))
	if n < windowSize {
		windowSize, hopSize = n, n
	}

	powers := blockPowers(weighted, windowSize, hopSize)

	var absGated []float64
	for _, z := range powers {
		if z > 0 && powerToLUFS(z) > m.absoluteGate {
			absGated = append(absGated, z)
		}
	}
	if len(absGated) == 0 {
		return 0, false
	}

	threshold := powerToLUFS(common.Mean(absGated)) + m.relativeGate

	sum := 0.0
	count := 0
	for _, z := range absGated {
		if powerToLUFS(z) > threshold {
			sum += z
			count++
		}
	}
	if count == 0 {
		return 0, false
	}

	return powerToLUFS(sum / float64(count)), true
}

// Range returns the loudness range in LU: the spread between the 10th and
// 95th percentile of gated 3 s short-term loudness values. ok is false when
// the signal is shorter than one short-term window or entirely silent.
func (m *Meter) Range(channels [][]float64) (float64, bool) {
	if len(channels) == 0 {
		return 0, false
	}

	windowSize := int(math.Round(m.shortTermSize * float64(m.sampleRate)))
	hopSize := max(1, int(math.Round(m.shortTermHop*float64(m.sampleRate))))
	if len(channels[0]) < windowSize {
		return 0, false
	}

	powers := blockPowers(m.kWeight(channels), windowSize, hopSize)

	var absGated []float64
	for _, z := range powers {
		if z > 0 && powerToLUFS(z) > m.absoluteGate {
			absGated = append(absGated, z)
		}
	}
	if len(absGated) == 0 {
		return 0, false
	}

	threshold := powerToLUFS(common.Mean(absGated)) + m.lraGate

	var levels []float64
	for _, z := range absGated {
		if l := powerToLUFS(z); l > threshold {
			levels = append(levels, l)
		}
	}
	if len(levels) < 2 {
		return 0, true
	}

	return math.Max(0, common.Percentile(levels, m.lraHigh)-common.Percentile(levels, m.lraLow)), true
}
