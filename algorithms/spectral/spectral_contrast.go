package spectral

import (
	"math"
	"slices"
)

// SpectralContrast computes octave-band spectral contrast: the dB difference
// between the loudest and quietest quantile of each band
type SpectralContrast struct {
	numBands  int
	quantile  float64
	bandEdges []int // numBands+2 bin edges; the last band runs to Nyquist
}

// NewSpectralContrast creates a contrast calculator with numBands octave
// bands starting at 200 Hz plus one band below 200 Hz
func NewSpectralContrast(sampleRate, windowSize, numBands int) *SpectralContrast {
	sc := &SpectralContrast{
		numBands: numBands,
		quantile: 0.02,
	}
	sc.initializeBands(sampleRate, windowSize)
	return sc
}

// Compute calculates per-band contrast in dB for a single magnitude spectrum
func (sc *SpectralContrast) Compute(magnitudeSpectrum []float64) []float64 {
	contrast := make([]float64, 0, len(sc.bandEdges)-1)

	for band := 0; band+1 < len(sc.bandEdges); band++ {
		startBin := sc.bandEdges[band]
		endBin := min(sc.bandEdges[band+1], len(magnitudeSpectrum))
		if startBin >= endBin {
			continue
		}
		contrast = append(contrast, sc.calculateBandContrast(magnitudeSpectrum[startBin:endBin]))
	}

	return contrast
}

// Mean returns the mean contrast over all bands and frames
func (sc *SpectralContrast) Mean(spectrogram [][]float64) (float64, bool) {
	sum := 0.0
	count := 0
	for _, spectrum := range spectrogram {
		for _, c := range sc.Compute(spectrum) {
			sum += c
			count++
		}
	}
	if count == 0 {
		return 0, false
	}
	return sum / float64(count), true
}

// calculateBandContrast averages the top and bottom quantile of the band
func (sc *SpectralContrast) calculateBandContrast(bandSpectrum []float64) float64 {
	sorted := slices.Clone(bandSpectrum)
	slices.Sort(sorted)

	count := max(1, int(math.Round(sc.quantile*float64(len(sorted)))))

	valley := 0.0
	for _, v := range sorted[:count] {
		valley += v
	}
	valley /= float64(count)

	peak := 0.0
	for _, v := range sorted[len(sorted)-count:] {
		peak += v
	}
	peak /= float64(count)

	const amin = 1e-10
	return 10*math.Log10(math.Max(peak, amin)) - 10*math.Log10(math.Max(valley, amin))
}

// initializeBands places octave edges at 200·2^k Hz, clipped to Nyquist
func (sc *SpectralContrast) initializeBands(sampleRate, windowSize int) {
	numBins := windowSize/2 + 1
	binHz := float64(sampleRate) / float64(windowSize)
	nyquist := float64(sampleRate) / 2

	edges := []int{0}
	for k := 0; k < sc.numBands; k++ {
		hz := 200 * math.Pow(2, float64(k))
		if hz >= nyquist {
			break
		}
		edges = append(edges, int(math.Round(hz/binHz)))
	}
	edges = append(edges, numBins)

	sc.bandEdges = slices.Compact(edges)
}
