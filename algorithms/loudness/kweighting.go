package loudness

import (
	"math"

	"github.com/RyanBlaney/sonido-match/algorithms/filters"
)

// K-weighting design parameters. Deriving the coefficients from these
// rather than hard-coding the 48 kHz table keeps the filter exact at any
// sample rate.
const (
	shelfFreq  = 1681.974450955533
	shelfGain  = 3.999843853973347
	shelfQ     = 0.7071752369554196
	shelfShape = 0.4996667741545416

	highPassFreq = 38.13547087602444
	highPassQ    = 0.5003270373238773
)

// NewShelf returns the first K-weighting stage: a +4 dB high shelf that
// models the acoustic effect of the head
func NewShelf(sampleRate int) *filters.Biquad {
	k := math.Tan(math.Pi * shelfFreq / float64(sampleRate))
	vh := math.Pow(10, shelfGain/20)
	vb := math.Pow(vh, shelfShape)

	return filters.NewBiquad(
		vh+vb*k/shelfQ+k*k,
		2*(k*k-vh),
		vh-vb*k/shelfQ+k*k,
		1+k/shelfQ+k*k,
		2*(k*k-1),
		1-k/shelfQ+k*k,
	)
}

// NewHighPass returns the second K-weighting stage (RLB weighting)
func NewHighPass(sampleRate int) *filters.Biquad {
	k := math.Tan(math.Pi * highPassFreq / float64(sampleRate))
	a0 := 1 + k/highPassQ + k*k

	return filters.NewBiquad(
		a0,
		-2*a0,
		a0,
		a0,
		2*(k*k-1),
		1-k/highPassQ+k*k,
	)
}
