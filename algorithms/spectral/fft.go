package spectral

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// FFT provides Fast Fourier Transform functionality
type FFT struct{}

// NewFFT creates a new FFT calculator
func NewFFT() *FFT {
	return &FFT{}
}

// Compute computes the FFT of a real signal using mjibson/go-dsp.
// go-dsp handles non power-of-2 sizes.
func (f *FFT) Compute(x []float64) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}
	return fft.FFTReal(x)
}

// Magnitude returns |X[k]| for the non-negative frequencies 0..N/2
func (f *FFT) Magnitude(x []float64) []float64 {
	spectrum := f.Compute(x)
	if len(spectrum) == 0 {
		return []float64{}
	}

	bins := len(spectrum)/2 + 1
	magnitude := make([]float64, bins)
	for i := range bins {
		magnitude[i] = cmplx.Abs(spectrum[i])
	}
	return magnitude
}

// BinFrequencies returns the centre frequency of each of numBins bins of a
// windowSize-point transform
func BinFrequencies(numBins, windowSize, sampleRate int) []float64 {
	freqs := make([]float64, numBins)
	for i := range numBins {
		freqs[i] = float64(i) * float64(sampleRate) / float64(windowSize)
	}
	return freqs
}
