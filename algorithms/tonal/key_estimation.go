package tonal

import (
	"fmt"
)

// Mode is the tonal mode of a key
type Mode string

const (
	Major Mode = "Major"
	Minor Mode = "Minor"
)

// PitchClassNames maps chroma bin to note name
var PitchClassNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Key is an estimated musical key
type Key struct {
	Tonic      int     `json:"tonic"` // pitch class, 0 = C
	Mode       Mode    `json:"mode"`
	Confidence float64 `json:"confidence"` // tonic share of total chroma, 0..1
}

// Name formats the key as e.g. "A Minor"
func (k Key) Name() string {
	return fmt.Sprintf("%s %s", PitchClassNames[k.Tonic%12], k.Mode)
}

// KeyEstimator picks the strongest pitch class as tonic and decides the mode
// from the strength of the major versus minor third above it
type KeyEstimator struct{}

// NewKeyEstimator creates a new key estimator
func NewKeyEstimator() *KeyEstimator {
	return &KeyEstimator{}
}

// Estimate returns the key for a time-averaged 12-bin chroma vector. ok is
// false when the vector carries no energy.
func (ke *KeyEstimator) Estimate(meanChroma []float64) (Key, bool) {
	if len(meanChroma) != 12 {
		return Key{}, false
	}

	total := 0.0
	tonic := 0
	for i, v := range meanChroma {
		total += v
		if v > meanChroma[tonic] {
			tonic = i
		}
	}
	if total <= 0 {
		return Key{}, false
	}

	// Tonic and fifth are shared, so the third decides
	majorScore := meanChroma[tonic] + meanChroma[(tonic+4)%12] + meanChroma[(tonic+7)%12]
	minorScore := meanChroma[tonic] + meanChroma[(tonic+3)%12] + meanChroma[(tonic+7)%12]

	mode := Minor
	if majorScore > minorScore {
		mode = Major
	}

	return Key{
		Tonic:      tonic,
		Mode:       mode,
		Confidence: meanChroma[tonic] / total,
	}, true
}
