package chroma

import (
	"math"

	"github.com/RyanBlaney/sonido-match/algorithms/common"
)

// SelfSimilarity returns the mean off-diagonal Pearson correlation between
// chroma vectors. Pairs involving a constant vector are skipped. ok is false
// when fewer than two vectors, or no correlatable pair, are available.
func SelfSimilarity(vectors [][]float64) (float64, bool) {
	if len(vectors) < 2 {
		return 0, false
	}

	sum := 0.0
	count := 0
	for i := range vectors {
		for j := i + 1; j < len(vectors); j++ {
			r := common.Correlation(vectors[i], vectors[j])
			if math.IsNaN(r) {
				continue
			}
			sum += r
			count++
		}
	}

	if count == 0 {
		return 0, false
	}
	return sum / float64(count), true
}

// HarmonicComplexity scores pitch class usage and the rate of harmonic
// change: active/12 * 0.6 + mean|Δchroma| * 0.4, clipped to [0, 1].
// A pitch class is active when its mean strength exceeds 0.1.
func HarmonicComplexity(chromagram [][]float64) (float64, bool) {
	if len(chromagram) < 2 {
		return 0, false
	}

	mean := MeanVector(chromagram)
	active := 0
	for _, v := range mean {
		if v > 0.1 {
			active++
		}
	}

	change := 0.0
	for t := 1; t < len(chromagram); t++ {
		for i := range NumPitchClasses {
			change += math.Abs(chromagram[t][i] - chromagram[t-1][i])
		}
	}
	change /= float64((len(chromagram) - 1) * NumPitchClasses)

	complexity := float64(active)/NumPitchClasses*0.6 + change*0.4
	return common.Clamp(complexity, 0, 1), true
}
