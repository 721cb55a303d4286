package spectral

import (
	"math"
)

// SpectralFlatness computes spectral flatness (Wiener entropy) of the power
// spectrum. Near 0 for tonal frames, near 1 for white noise.
type SpectralFlatness struct {
	minThreshold float64 // floor applied to each power bin to avoid log(0)
}

// NewSpectralFlatness creates a new spectral flatness calculator
func NewSpectralFlatness() *SpectralFlatness {
	return &SpectralFlatness{
		minThreshold: 1e-10,
	}
}

// Compute calculates flatness for a single magnitude spectrum as
// geometric mean / arithmetic mean of the floored power spectrum
func (sf *SpectralFlatness) Compute(magnitudeSpectrum []float64) float64 {
	if len(magnitudeSpectrum) == 0 {
		return 0.0
	}

	logSum := 0.0
	arithmeticMean := 0.0
	for _, magnitude := range magnitudeSpectrum {
		power := math.Max(magnitude*magnitude, sf.minThreshold)
		logSum += math.Log(power)
		arithmeticMean += power
	}

	n := float64(len(magnitudeSpectrum))
	arithmeticMean /= n
	geometricMean := math.Exp(logSum / n)

	return math.Min(1.0, geometricMean/arithmeticMean)
}

// ComputeFrames processes multiple frames
func (sf *SpectralFlatness) ComputeFrames(spectrogram [][]float64) []float64 {
	flatness := make([]float64, len(spectrogram))
	for t, spectrum := range spectrogram {
		flatness[t] = sf.Compute(spectrum)
	}
	return flatness
}
