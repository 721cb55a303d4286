package spectral

// ZeroCrossingRate calculates the framewise fraction of sign changes
type ZeroCrossingRate struct {
	frameSize int
	hopSize   int
}

// NewZeroCrossingRate creates a calculator with the given framing
func NewZeroCrossingRate(frameSize, hopSize int) *ZeroCrossingRate {
	return &ZeroCrossingRate{
		frameSize: frameSize,
		hopSize:   hopSize,
	}
}

// Compute returns the fraction of adjacent sample pairs in frame whose sign
// differs
func (zcr *ZeroCrossingRate) Compute(frame []float64) float64 {
	if len(frame) < 2 {
		return 0.0
	}

	crossings := 0
	for i := 1; i < len(frame); i++ {
		if (frame[i-1] >= 0) != (frame[i] >= 0) {
			crossings++
		}
	}

	return float64(crossings) / float64(len(frame))
}

// Mean returns the mean framewise rate over the signal. ok is false when the
// signal is shorter than one frame.
func (zcr *ZeroCrossingRate) Mean(signal []float64) (mean float64, ok bool) {
	if zcr.frameSize <= 0 || zcr.hopSize <= 0 || len(signal) < zcr.frameSize {
		return 0, false
	}

	sum := 0.0
	count := 0
	for start := 0; start+zcr.frameSize <= len(signal); start += zcr.hopSize {
		sum += zcr.Compute(signal[start : start+zcr.frameSize])
		count++
	}
	return sum / float64(count), true
}
