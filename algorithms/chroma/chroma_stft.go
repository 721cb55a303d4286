package chroma

import (
	"math"

	"github.com/RyanBlaney/sonido-match/algorithms/spectral"
)

// NumPitchClasses is the number of chroma bins (C, C#, ..., B)
const NumPitchClasses = 12

// ChromaSTFT folds a magnitude spectrogram onto the 12 pitch classes.
// Bin 0 is C.
type ChromaSTFT struct {
	tuningFreq float64 // A4 frequency (default 440 Hz)
	minFreq    float64
	maxFreq    float64
	mapping    []int // FFT bin -> pitch class, -1 when out of range
}

// NewChromaSTFT creates a chromagram calculator for spectra produced by an
// STFT with the given sample rate and window size, tuned to A4=440 Hz
func NewChromaSTFT(sampleRate, windowSize int) *ChromaSTFT {
	cs := &ChromaSTFT{
		tuningFreq: 440.0,
		minFreq:    65.0,   // roughly C2
		maxFreq:    5000.0, // keeps upper harmonics, drops cymbal noise
	}
	cs.mapping = cs.calculateChromaMapping(spectral.BinFrequencies(windowSize/2+1, windowSize, sampleRate))
	return cs
}

// calculateChromaMapping assigns each FFT bin to its nearest pitch class
func (cs *ChromaSTFT) calculateChromaMapping(freqs []float64) []int {
	mapping := make([]int, len(freqs))
	for i, f := range freqs {
		if f < cs.minFreq || f > cs.maxFreq {
			mapping[i] = -1
			continue
		}
		midi := 69 + 12*math.Log2(f/cs.tuningFreq)
		pc := int(math.Round(midi)) % NumPitchClasses
		if pc < 0 {
			pc += NumPitchClasses
		}
		mapping[i] = pc
	}
	return mapping
}

// Compute returns one 12-bin chroma vector per frame, each scaled so its
// largest bin is 1. Silent frames stay all zero.
func (cs *ChromaSTFT) Compute(magnitude [][]float64) [][]float64 {
	chromagram := make([][]float64, len(magnitude))

	for t, spectrum := range magnitude {
		vector := make([]float64, NumPitchClasses)
		for k := range min(len(spectrum), len(cs.mapping)) {
			if pc := cs.mapping[k]; pc >= 0 {
				vector[pc] += spectrum[k] * spectrum[k]
			}
		}

		peak := 0.0
		for _, v := range vector {
			peak = math.Max(peak, v)
		}
		if peak > 0 {
			for i := range vector {
				vector[i] /= peak
			}
		}
		chromagram[t] = vector
	}

	return chromagram
}

// MeanVector averages a chromagram over time
func MeanVector(chromagram [][]float64) []float64 {
	mean := make([]float64, NumPitchClasses)
	if len(chromagram) == 0 {
		return mean
	}
	for _, frame := range chromagram {
		for i := range min(len(frame), NumPitchClasses) {
			mean[i] += frame[i]
		}
	}
	for i := range mean {
		mean[i] /= float64(len(chromagram))
	}
	return mean
}

// Blocks averages consecutive runs of blockFrames frames. A trailing partial
// block is kept when it is at least half full.
func Blocks(chromagram [][]float64, blockFrames int) [][]float64 {
	if blockFrames <= 1 {
		return chromagram
	}

	var blocks [][]float64
	for start := 0; start < len(chromagram); start += blockFrames {
		end := min(start+blockFrames, len(chromagram))
		if end-start < (blockFrames+1)/2 {
			break
		}
		blocks = append(blocks, MeanVector(chromagram[start:end]))
	}
	return blocks
}
