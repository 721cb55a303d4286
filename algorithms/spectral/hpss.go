package spectral

import (
	"math"

	"github.com/RyanBlaney/sonido-match/algorithms/common"
)

// HPSS separates a magnitude spectrogram into harmonic and percussive parts
// by median filtering across time and across frequency
type HPSS struct {
	kernelSize int
	power      float64
}

// HPSSResult holds the masked spectrogram energies of each component
type HPSSResult struct {
	HarmonicEnergy   float64
	PercussiveEnergy float64
	TotalEnergy      float64
}

// NewHPSS creates a separator with the given median kernel (odd, e.g. 31)
func NewHPSS(kernelSize int) *HPSS {
	if kernelSize%2 == 0 {
		kernelSize++
	}
	return &HPSS{
		kernelSize: kernelSize,
		power:      2.0,
	}
}

// Separate applies soft masks with the given margin (1 means a pure
// partition) and returns the energy routed to each component. Energies are
// summed squared magnitudes, which by Parseval are proportional to the
// time-domain energy of the resynthesised parts.
func (h *HPSS) Separate(magnitude [][]float64, margin float64) HPSSResult {
	frames := len(magnitude)
	if frames == 0 {
		return HPSSResult{}
	}
	bins := len(magnitude[0])

	// Harmonic: median along time for each bin
	harmonic := make([][]float64, frames)
	for t := range frames {
		harmonic[t] = make([]float64, bins)
	}
	column := make([]float64, frames)
	for k := range bins {
		for t := range frames {
			column[t] = magnitude[t][k]
		}
		filtered := common.MedianFilter(column, h.kernelSize)
		for t := range frames {
			harmonic[t][k] = filtered[t]
		}
	}

	// Percussive: median along frequency for each frame
	percussive := make([][]float64, frames)
	for t := range frames {
		percussive[t] = common.MedianFilter(magnitude[t], h.kernelSize)
	}

	var result HPSSResult
	for t := range frames {
		for k := range bins {
			s := magnitude[t][k]
			energy := s * s
			result.TotalEnergy += energy

			hp := math.Pow(harmonic[t][k], h.power)
			pp := math.Pow(percussive[t][k], h.power)
			hMask := softMask(hp, math.Pow(margin*percussive[t][k], h.power))
			pMask := softMask(pp, math.Pow(margin*harmonic[t][k], h.power))

			result.HarmonicEnergy += energy * hMask * hMask
			result.PercussiveEnergy += energy * pMask * pMask
		}
	}

	return result
}

// softMask returns x / (x + ref), splitting evenly when both are zero
func softMask(x, ref float64) float64 {
	total := x + ref
	if total < 1e-20 {
		return 0.5
	}
	return x / total
}
