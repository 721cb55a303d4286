package filters

import (
	"math"
)

// Biquad is a second order IIR section in direct form I.
//
// Coefficients follow Robert Bristow-Johnson's
// "Cookbook formulae for audio EQ biquad filter coefficients"
// Reference: https://webaudio.github.io/Audio-EQ-Cookbook/audio-eq-cookbook.html
type Biquad struct {
	// Coefficients normalised by a0
	b0, b1, b2 float64
	a1, a2     float64

	x1, x2 float64 // Input delay line
	y1, y2 float64 // Output delay line
}

// NewBiquad creates a section from raw coefficients, normalising by a0
func NewBiquad(b0, b1, b2, a0, a1, a2 float64) *Biquad {
	return &Biquad{
		b0: b0 / a0,
		b1: b1 / a0,
		b2: b2 / a0,
		a1: a1 / a0,
		a2: a2 / a0,
	}
}

// Process filters one sample
func (b *Biquad) Process(x float64) float64 {
	y := b.b0*x + b.b1*b.x1 + b.b2*b.x2 - b.a1*b.y1 - b.a2*b.y2
	b.x2, b.x1 = b.x1, x
	b.y2, b.y1 = b.y1, y
	return y
}

// ProcessBuffer filters a whole buffer into a new slice
func (b *Biquad) ProcessBuffer(input []float64) []float64 {
	output := make([]float64, len(input))
	for i, x := range input {
		output[i] = b.Process(x)
	}
	return output
}

// Gain returns the magnitude response at freq Hz
func (b *Biquad) Gain(freq float64, sampleRate int) float64 {
	w := 2 * math.Pi * freq / float64(sampleRate)
	// Evaluate H(e^{jw}) = B(z)/A(z) with z^-1 = e^{-jw}
	c1, s1 := math.Cos(w), math.Sin(w)
	c2, s2 := math.Cos(2*w), math.Sin(2*w)

	numRe := b.b0 + b.b1*c1 + b.b2*c2
	numIm := -(b.b1*s1 + b.b2*s2)
	denRe := 1 + b.a1*c1 + b.a2*c2
	denIm := -(b.a1*s1 + b.a2*s2)

	return math.Hypot(numRe, numIm) / math.Hypot(denRe, denIm)
}
