package temporal

import (
	"github.com/RyanBlaney/sonido-match/algorithms/common"
)

// Regularity returns max(ac[1:50]) / ac[0] of the onset envelope
// autocorrelation, clipped to [0, 1]
func Regularity(envelope []float64) (float64, bool) {
	if len(envelope) < 2 {
		return 0, false
	}
	autocorr := common.Autocorrelation(envelope, 50)
	if autocorr[0] <= 0 {
		return 0, false
	}

	best := autocorr[1]
	for _, v := range autocorr[1:] {
		best = max(best, v)
	}
	return common.Clamp(best/autocorr[0], 0, 1), true
}

// CallResponse returns the mean height of autocorrelation peaks at lags
// 10..99 relative to ac[0], clipped to [0, 1]. A track with no such peak
// scores 0.
func CallResponse(envelope []float64) (float64, bool) {
	if len(envelope) < 12 {
		return 0, false
	}
	autocorr := common.Autocorrelation(envelope, 101)
	if autocorr[0] <= 0 {
		return 0, false
	}

	peaks := common.LocalMaxima(autocorr, 10, min(100, len(autocorr)))
	if len(peaks) == 0 {
		return 0, true
	}

	sum := 0.0
	for _, p := range peaks {
		sum += autocorr[p]
	}
	return common.Clamp(sum/float64(len(peaks))/autocorr[0], 0, 1), true
}
