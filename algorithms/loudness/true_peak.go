package loudness

import (
	"math"

	"github.com/RyanBlaney/sonido-match/algorithms/common"
)

// TruePeak estimates inter-sample peaks by polyphase windowed-sinc
// oversampling, as recommended by ITU-R BS.1770-4 Annex 2
type TruePeak struct {
	factor int
	phases [][]float64 // phases[p] is the FIR kernel for fractional offset p/factor
}

const truePeakTaps = 12 // per phase, on each side of the sample

// NewTruePeak creates a detector that oversamples by factor
func NewTruePeak(factor int) *TruePeak {
	factor = max(1, factor)
	tp := &TruePeak{factor: factor, phases: make([][]float64, factor)}

	half := float64(truePeakTaps)
	for p := range factor {
		offset := float64(p) / float64(factor)
		kernel := make([]float64, 2*truePeakTaps)
		for i := range kernel {
			// Distance from the interpolated point to input sample i
			x := float64(i-truePeakTaps+1) - offset
			kernel[i] = sinc(x) * hann((x+half)/(2*half))
		}
		tp.phases[p] = kernel
	}
	return tp
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	return math.Sin(math.Pi*x) / (math.Pi * x)
}

// hann evaluates a Hann window over [0, 1]
func hann(u float64) float64 {
	if u < 0 || u > 1 {
		return 0
	}
	return 0.5 - 0.5*math.Cos(2*math.Pi*u)
}

// Peak returns the oversampled absolute peak of one channel as a linear value
func (tp *TruePeak) Peak(samples []float64) float64 {
	peak := common.Peak(samples)
	if tp.factor == 1 {
		return peak
	}

	n := len(samples)
	for i := range n - 1 {
		for p := 1; p < tp.factor; p++ {
			kernel := tp.phases[p]
			v := 0.0
			for k, h := range kernel {
				j := i + k - truePeakTaps + 1
				if j < 0 || j >= n {
					continue
				}
				v += h * samples[j]
			}
			peak = math.Max(peak, math.Abs(v))
		}
	}
	return peak
}

// DBTP returns the maximum true peak across channels in dBTP. ok is false
// for digital silence.
func (tp *TruePeak) DBTP(channels [][]float64) (float64, bool) {
	peak := 0.0
	for _, samples := range channels {
		peak = math.Max(peak, tp.Peak(samples))
	}
	if peak <= 0 {
		return 0, false
	}
	return common.AmplitudeToDB(peak), true
}
