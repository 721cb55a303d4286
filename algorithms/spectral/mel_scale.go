package spectral

import (
	"math"
)

// MelScale builds triangular mel filter banks and applies them to spectra
type MelScale struct {
	filterBank [][]float64
}

// HzToMel converts frequency in Hz to the HTK mel scale
func HzToMel(hz float64) float64 {
	return 2595.0 * math.Log10(1.0+hz/700.0)
}

// MelToHz converts HTK mel scale to frequency in Hz
func MelToHz(mel float64) float64 {
	return 700.0 * (math.Pow(10.0, mel/2595.0) - 1.0)
}

// NewMelScale creates numFilters triangular filters spanning lowFreq..highFreq
// for spectra of a windowSize-point transform
func NewMelScale(numFilters, windowSize, sampleRate int, lowFreq, highFreq float64) *MelScale {
	return &MelScale{
		filterBank: createMelFilterBank(numFilters, windowSize, sampleRate, lowFreq, highFreq),
	}
}

// NumFilters returns the number of mel bands
func (ms *MelScale) NumFilters() int {
	return len(ms.filterBank)
}

func createMelFilterBank(numFilters, windowSize, sampleRate int, lowFreq, highFreq float64) [][]float64 {
	if numFilters <= 0 || windowSize <= 0 {
		return nil
	}

	numBins := windowSize/2 + 1
	lowMel := HzToMel(lowFreq)
	highMel := HzToMel(highFreq)

	// Filter corner frequencies, equally spaced in mel
	hzPoints := make([]float64, numFilters+2)
	melStep := (highMel - lowMel) / float64(numFilters+1)
	for i := range hzPoints {
		hzPoints[i] = MelToHz(lowMel + float64(i)*melStep)
	}

	binFreqs := BinFrequencies(numBins, windowSize, sampleRate)
	filterBank := make([][]float64, numFilters)

	for m := range numFilters {
		left, centre, right := hzPoints[m], hzPoints[m+1], hzPoints[m+2]
		filter := make([]float64, numBins)

		for k, f := range binFreqs {
			switch {
			case f > left && f <= centre && centre > left:
				filter[k] = (f - left) / (centre - left)
			case f > centre && f < right && right > centre:
				filter[k] = (right - f) / (right - centre)
			}
		}

		filterBank[m] = filter
	}

	return filterBank
}

// Apply maps one power spectrum to mel band energies
func (ms *MelScale) Apply(powerSpectrum []float64) []float64 {
	melSpectrum := make([]float64, len(ms.filterBank))

	for i, filter := range ms.filterBank {
		sum := 0.0
		for j := 0; j < len(filter) && j < len(powerSpectrum); j++ {
			sum += powerSpectrum[j] * filter[j]
		}
		melSpectrum[i] = sum
	}

	return melSpectrum
}

// ApplyFrames maps a magnitude spectrogram to a mel power spectrogram
func (ms *MelScale) ApplyFrames(magnitude [][]float64) [][]float64 {
	melSpectrogram := make([][]float64, len(magnitude))
	power := make([]float64, 0)

	for t, frame := range magnitude {
		power = power[:0]
		for _, m := range frame {
			power = append(power, m*m)
		}
		melSpectrogram[t] = ms.Apply(power)
	}

	return melSpectrogram
}

// PowerToDBFrames converts a power spectrogram to dB with a 1e-10 floor and
// an 80 dB dynamic range below the global maximum
func PowerToDBFrames(power [][]float64) [][]float64 {
	const amin = 1e-10
	const topDB = 80.0

	db := make([][]float64, len(power))
	maxDB := math.Inf(-1)
	for t, frame := range power {
		db[t] = make([]float64, len(frame))
		for k, p := range frame {
			v := 10 * math.Log10(math.Max(p, amin))
			db[t][k] = v
			maxDB = math.Max(maxDB, v)
		}
	}

	floor := maxDB - topDB
	for _, frame := range db {
		for k, v := range frame {
			frame[k] = math.Max(v, floor)
		}
	}
	return db
}
