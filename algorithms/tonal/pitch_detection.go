package tonal

import (
	"math"

	"github.com/RyanBlaney/sonido-match/algorithms/common"
	"github.com/RyanBlaney/sonido-match/algorithms/spectral"
)

// PitchDetector tracks the dominant spectral peak of each frame inside a
// melodic frequency range
type PitchDetector struct {
	freqBins  []float64
	minFreq   float64
	maxFreq   float64
	threshold float64 // peak must exceed this fraction of the frame maximum
	binHz     float64
}

// NewPitchDetector creates a detector for spectra of a windowSize-point
// transform, searching 150-4000 Hz
func NewPitchDetector(sampleRate, windowSize int) *PitchDetector {
	return &PitchDetector{
		freqBins:  spectral.BinFrequencies(windowSize/2+1, windowSize, sampleRate),
		minFreq:   150.0,
		maxFreq:   4000.0,
		threshold: 0.1,
		binHz:     float64(sampleRate) / float64(windowSize),
	}
}

// Track returns the frequency in Hz of the dominant peak of each voiced
// frame. Frames with no qualifying peak are skipped.
func (pd *PitchDetector) Track(magnitude [][]float64) []float64 {
	var pitches []float64

	for _, spectrum := range magnitude {
		frameMax := 0.0
		for _, m := range spectrum {
			frameMax = math.Max(frameMax, m)
		}
		if frameMax <= 0 {
			continue
		}

		best := -1
		for k := range min(len(spectrum), len(pd.freqBins)) {
			f := pd.freqBins[k]
			if f < pd.minFreq || f >= pd.maxFreq || k == 0 || k == len(spectrum)-1 {
				continue
			}
			if spectrum[k] <= pd.threshold*frameMax {
				continue
			}
			if spectrum[k] > spectrum[k-1] && spectrum[k] >= spectrum[k+1] {
				if best < 0 || spectrum[k] > spectrum[best] {
					best = k
				}
			}
		}
		if best < 0 {
			continue
		}

		refined := common.ParabolicPeak(spectrum, best)
		pitches = append(pitches, refined*pd.binHz)
	}

	return pitches
}

// HzToMIDI converts a frequency to a fractional MIDI note number
func HzToMIDI(hz float64) float64 {
	return 69 + 12*math.Log2(hz/440.0)
}

// MelodicRange returns the span in semitones between the 5th and 95th
// percentile of the tracked pitches. ok is false when nothing was tracked.
func MelodicRange(pitches []float64) (float64, bool) {
	if len(pitches) == 0 {
		return 0, false
	}
	notes := make([]float64, len(pitches))
	for i, p := range pitches {
		notes[i] = HzToMIDI(p)
	}
	return common.Percentile(notes, 0.95) - common.Percentile(notes, 0.05), true
}
