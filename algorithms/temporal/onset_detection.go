package temporal

import (
	"math"

	"github.com/RyanBlaney/sonido-match/algorithms/common"
)

// OnsetDetection derives an onset strength envelope from a dB mel
// spectrogram and picks onset events from it
type OnsetDetection struct {
	frameRate float64 // envelope frames per second

	// Peak picking windows, in envelope frames
	preMax  int
	postMax int
	preAvg  int
	postAvg int
	wait    int
	delta   float64
}

// NewOnsetDetection creates a detector for an envelope sampled every hopSize
// samples at sampleRate
func NewOnsetDetection(sampleRate, hopSize int) *OnsetDetection {
	frameRate := float64(sampleRate) / float64(hopSize)
	frames := func(seconds float64) int {
		return int(seconds * frameRate)
	}

	return &OnsetDetection{
		frameRate: frameRate,
		preMax:    max(1, frames(0.03)),
		postMax:   1,
		preAvg:    max(1, frames(0.10)),
		postAvg:   frames(0.10) + 1,
		wait:      max(1, frames(0.03)),
		delta:     0.07,
	}
}

// FrameRate returns the envelope sampling rate in frames per second
func (od *OnsetDetection) FrameRate() float64 {
	return od.frameRate
}

// Strength computes the spectral flux onset envelope: for each frame the
// mean over mel bands of the positive dB increase since the previous frame.
// The first frame is 0.
func (od *OnsetDetection) Strength(melDB [][]float64) []float64 {
	envelope := make([]float64, len(melDB))

	for t := 1; t < len(melDB); t++ {
		prev, cur := melDB[t-1], melDB[t]
		n := min(len(prev), len(cur))
		if n == 0 {
			continue
		}
		sum := 0.0
		for k := range n {
			sum += math.Max(0, cur[k]-prev[k])
		}
		envelope[t] = sum / float64(n)
	}

	return envelope
}

// Detect returns the envelope frame indices of onset events
func (od *OnsetDetection) Detect(envelope []float64) []int {
	if len(envelope) < 3 {
		return nil
	}

	// Normalise to [0, 1] so delta is scale independent
	lo, hi := envelope[0], envelope[0]
	for _, v := range envelope {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi-lo <= 0 {
		return nil
	}
	norm := make([]float64, len(envelope))
	for i, v := range envelope {
		norm[i] = (v - lo) / (hi - lo)
	}

	var onsets []int
	last := -od.wait - 1

	for n := range norm {
		maxStart := max(0, n-od.preMax)
		maxEnd := min(len(norm), n+od.postMax)
		isMax := true
		for i := maxStart; i < maxEnd; i++ {
			if norm[i] > norm[n] {
				isMax = false
				break
			}
		}
		if !isMax {
			continue
		}

		avgStart := max(0, n-od.preAvg)
		avgEnd := min(len(norm), n+od.postAvg)
		localMean := common.Mean(norm[avgStart:avgEnd])
		if norm[n] < localMean+od.delta {
			continue
		}

		if n-last > od.wait {
			onsets = append(onsets, n)
			last = n
		}
	}

	return onsets
}
