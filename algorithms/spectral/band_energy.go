package spectral

// BandEnergy sums spectrogram magnitude inside frequency bands
type BandEnergy struct {
	freqBins []float64
}

// NewBandEnergy creates a band summer for spectra of a windowSize-point transform
func NewBandEnergy(sampleRate, windowSize int) *BandEnergy {
	return &BandEnergy{
		freqBins: BinFrequencies(windowSize/2+1, windowSize, sampleRate),
	}
}

// Sum returns the summed magnitude of bins with lowHz <= f < highHz.
// If inclusiveHigh is set the upper edge is included.
func (be *BandEnergy) Sum(spectrogram [][]float64, lowHz, highHz float64, inclusiveHigh bool) float64 {
	total := 0.0
	for _, spectrum := range spectrogram {
		for k := range min(len(spectrum), len(be.freqBins)) {
			f := be.freqBins[k]
			if f < lowHz || f > highHz || (f == highHz && !inclusiveHigh) {
				continue
			}
			total += spectrum[k]
		}
	}
	return total
}

// Total returns the summed magnitude of every bin
func (be *BandEnergy) Total(spectrogram [][]float64) float64 {
	total := 0.0
	for _, spectrum := range spectrogram {
		for _, m := range spectrum {
			total += m
		}
	}
	return total
}
