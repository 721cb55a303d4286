package temporal

import (
	"math"

	"github.com/RyanBlaney/sonido-match/algorithms/common"
)

// Envelope provides amplitude envelope extraction
type Envelope struct{}

// NewEnvelope creates a new envelope extractor
func NewEnvelope() *Envelope {
	return &Envelope{}
}

// ComputeRMS computes RMS envelope with given frame and hop sizes
func (e *Envelope) ComputeRMS(signal []float64, frameSize, hopSize int) []float64 {
	if len(signal) < frameSize || frameSize <= 0 || hopSize <= 0 {
		return []float64{}
	}

	numFrames := (len(signal)-frameSize)/hopSize + 1
	envelope := make([]float64, numFrames)

	for i := range numFrames {
		startIdx := i * hopSize
		envelope[i] = common.RMS(signal[startIdx : startIdx+frameSize])
	}

	return envelope
}

// SegmentRMS returns the RMS of each complete, non-overlapping segment
func (e *Envelope) SegmentRMS(signal []float64, segmentSize int) []float64 {
	segments := common.Frames(signal, segmentSize)
	values := make([]float64, len(segments))
	for i, seg := range segments {
		values[i] = common.RMS(seg)
	}
	return values
}

// SegmentEnergy returns the summed squared amplitude of each complete,
// non-overlapping segment
func (e *Envelope) SegmentEnergy(signal []float64, segmentSize int) []float64 {
	segments := common.Frames(signal, segmentSize)
	values := make([]float64, len(segments))
	for i, seg := range segments {
		sum := 0.0
		for _, v := range seg {
			sum += v * v
		}
		values[i] = sum
	}
	return values
}

// Energy returns the mean squared amplitude of the signal
func Energy(signal []float64) float64 {
	if len(signal) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range signal {
		sum += v * v
	}
	return sum / float64(len(signal))
}

// Variation returns std/mean of the segment values clipped to [0, 1].
// ok is false when fewer than minSegments values are available.
func Variation(values []float64, minSegments int) (float64, bool) {
	if len(values) < minSegments {
		return 0, false
	}
	return common.Clamp(common.CoefficientOfVariation(values), 0, 1), true
}

// PeakToRMS returns 20*log10(peak/rms) in dB. ok is false for silence.
func PeakToRMS(signal []float64) (float64, bool) {
	peak := common.Peak(signal)
	rms := common.RMS(signal)
	if peak <= 0 || rms <= 0 {
		return 0, false
	}
	return 20 * math.Log10(peak/rms), true
}
