package spectral

// SpectralRolloff computes the frequency below which a fixed fraction of the
// spectral energy lies
type SpectralRolloff struct {
	freqBins []float64
	percent  float64
}

// NewSpectralRolloff creates a rolloff calculator; percent is typically 0.85
func NewSpectralRolloff(sampleRate, windowSize int, percent float64) *SpectralRolloff {
	return &SpectralRolloff{
		freqBins: BinFrequencies(windowSize/2+1, windowSize, sampleRate),
		percent:  percent,
	}
}

// Compute calculates spectral rolloff in Hz for a single magnitude spectrum.
// The cumulative sum runs over magnitude, not power.
func (sr *SpectralRolloff) Compute(spectrum []float64) float64 {
	n := min(len(spectrum), len(sr.freqBins))
	if n == 0 {
		return 0
	}

	total := 0.0
	for i := range n {
		total += spectrum[i]
	}
	if total == 0 {
		return 0
	}

	target := sr.percent * total
	cumulative := 0.0
	for i := range n {
		cumulative += spectrum[i]
		if cumulative >= target {
			return sr.freqBins[i]
		}
	}

	return sr.freqBins[n-1]
}

// ComputeFrames processes multiple frames
func (sr *SpectralRolloff) ComputeFrames(spectrogram [][]float64) []float64 {
	rolloffs := make([]float64, len(spectrogram))
	for t, spectrum := range spectrogram {
		rolloffs[t] = sr.Compute(spectrum)
	}
	return rolloffs
}
