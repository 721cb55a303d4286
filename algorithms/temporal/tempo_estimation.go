package temporal

import (
	"math"

	"github.com/RyanBlaney/sonido-match/algorithms/common"
)

// TempoEstimation estimates the global tempo from the autocorrelation of an
// onset strength envelope, weighted by a log-normal prior around a preferred
// tempo
type TempoEstimation struct {
	minBPM   float64
	maxBPM   float64
	priorBPM float64
	priorStd float64 // octaves
}

// NewTempoEstimation creates a new tempo estimator
func NewTempoEstimation(minBPM, maxBPM, priorBPM float64) *TempoEstimation {
	return &TempoEstimation{
		minBPM:   minBPM,
		maxBPM:   maxBPM,
		priorBPM: priorBPM,
		priorStd: 1.0,
	}
}

// Estimate returns the tempo in BPM. ok is false when the envelope is too
// short to hold two beats at the slowest tempo or carries no onsets.
func (te *TempoEstimation) Estimate(envelope []float64, frameRate float64) (float64, bool) {
	if frameRate <= 0 {
		return 0, false
	}

	minLag := max(1, int(math.Floor(60*frameRate/te.maxBPM)))
	maxLag := int(math.Ceil(60 * frameRate / te.minBPM))
	if len(envelope) <= maxLag+1 {
		return 0, false
	}

	autocorr := common.Autocorrelation(envelope, maxLag+2)
	if autocorr[0] <= 0 {
		return 0, false
	}

	bestLag := -1
	bestScore := math.Inf(-1)
	for lag := minLag; lag <= maxLag; lag++ {
		bpm := 60 * frameRate / float64(lag)
		if bpm < te.minBPM || bpm > te.maxBPM {
			continue
		}
		strength := math.Log1p(1e6 * autocorr[lag] / autocorr[0])
		prior := math.Log2(bpm) - math.Log2(te.priorBPM)
		score := strength - 0.5*(prior/te.priorStd)*(prior/te.priorStd)
		if score > bestScore {
			bestScore = score
			bestLag = lag
		}
	}
	if bestLag < 0 {
		return 0, false
	}

	refined := common.ParabolicPeak(autocorr, bestLag)
	if refined <= 0 {
		return 0, false
	}
	return 60 * frameRate / refined, true
}

// TempoScore rates closeness to 120 BPM: 1 - |bpm-120|/120 clipped to [0, 1]
func TempoScore(bpm float64) float64 {
	return common.Clamp(1-math.Abs(bpm-120)/120, 0, 1)
}
