package spectral

import (
	"fmt"
	"math"
)

// MFCC computes Mel-Frequency Cepstral Coefficients from a dB mel
// spectrogram using an orthonormal DCT-II
type MFCC struct {
	numCoefficients int
	dctMatrix       [][]float64
}

// NewMFCC creates an MFCC computer for numMelFilters input bands
func NewMFCC(numMelFilters, numCoefficients int) (*MFCC, error) {
	if numMelFilters <= 0 || numCoefficients <= 0 || numCoefficients > numMelFilters {
		return nil, fmt.Errorf("invalid MFCC shape: %d coefficients from %d mel bands", numCoefficients, numMelFilters)
	}

	return &MFCC{
		numCoefficients: numCoefficients,
		dctMatrix:       dctII(numCoefficients, numMelFilters),
	}, nil
}

// dctII builds the orthonormal type-II DCT basis
func dctII(rows, cols int) [][]float64 {
	matrix := make([][]float64, rows)
	n := float64(cols)
	for k := range rows {
		scale := math.Sqrt(2.0 / n)
		if k == 0 {
			scale = math.Sqrt(1.0 / n)
		}
		matrix[k] = make([]float64, cols)
		for i := range cols {
			matrix[k][i] = scale * math.Cos(math.Pi*float64(k)*(float64(i)+0.5)/n)
		}
	}
	return matrix
}

// Compute returns the coefficients for one dB mel frame
func (m *MFCC) Compute(melDB []float64) []float64 {
	coeffs := make([]float64, m.numCoefficients)
	for k, basis := range m.dctMatrix {
		sum := 0.0
		for i := 0; i < len(basis) && i < len(melDB); i++ {
			sum += basis[i] * melDB[i]
		}
		coeffs[k] = sum
	}
	return coeffs
}

// ComputeFrames returns one coefficient vector per frame
func (m *MFCC) ComputeFrames(melDB [][]float64) [][]float64 {
	frames := make([][]float64, len(melDB))
	for t, frame := range melDB {
		frames[t] = m.Compute(frame)
	}
	return frames
}
