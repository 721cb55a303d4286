package spectral

// SpectralCentroid computes the spectral centroid (center of mass) of a spectrum
type SpectralCentroid struct {
	sampleRate int
	windowSize int
	freqBins   []float64 // Pre-calculated frequency bins for efficiency
}

// NewSpectralCentroid creates a new spectral centroid calculator for spectra
// produced by a windowSize-point transform
func NewSpectralCentroid(sampleRate, windowSize int) *SpectralCentroid {
	return &SpectralCentroid{
		sampleRate: sampleRate,
		windowSize: windowSize,
		freqBins:   BinFrequencies(windowSize/2+1, windowSize, sampleRate),
	}
}

// Compute calculates spectral centroid in Hz for a single magnitude spectrum.
// A silent frame has centroid 0.
func (sc *SpectralCentroid) Compute(spectrum []float64) float64 {
	numerator := 0.0
	denominator := 0.0

	for i := range min(len(spectrum), len(sc.freqBins)) {
		numerator += sc.freqBins[i] * spectrum[i]
		denominator += spectrum[i]
	}

	if denominator == 0 {
		return 0
	}

	return numerator / denominator
}

// ComputeFrames processes multiple frames
func (sc *SpectralCentroid) ComputeFrames(spectrogram [][]float64) []float64 {
	centroids := make([]float64, len(spectrogram))
	for t, spectrum := range spectrogram {
		centroids[t] = sc.Compute(spectrum)
	}
	return centroids
}

// CentreOfGravity returns the magnitude-weighted mean frequency of the whole
// spectrogram, summing every frame before weighting
func (sc *SpectralCentroid) CentreOfGravity(spectrogram [][]float64) (float64, bool) {
	if len(spectrogram) == 0 {
		return 0, false
	}

	perBin := make([]float64, len(sc.freqBins))
	for _, spectrum := range spectrogram {
		for i := range min(len(spectrum), len(perBin)) {
			perBin[i] += spectrum[i]
		}
	}

	numerator, denominator := 0.0, 0.0
	for i, m := range perBin {
		numerator += sc.freqBins[i] * m
		denominator += m
	}
	if denominator == 0 {
		return 0, false
	}
	return numerator / denominator, true
}
