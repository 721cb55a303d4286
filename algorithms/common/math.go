package common

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Basic statistical functions used across algorithms using gonum for robustness

// Mean calculates the arithmetic mean of a slice using gonum
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return stat.Mean(data, nil)
}

// Variance calculates the sample variance of a slice using gonum
func Variance(data []float64) float64 {
	if len(data) < 2 {
		return 0.0
	}
	return stat.Variance(data, nil)
}

// PopulationVariance calculates the variance with N in the denominator
func PopulationVariance(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	_, v := stat.PopMeanVariance(data, nil)
	return v
}

// StandardDeviation calculates the sample standard deviation
func StandardDeviation(data []float64) float64 {
	if len(data) < 2 {
		return 0.0
	}
	return math.Sqrt(Variance(data))
}

// CoefficientOfVariation returns population std / (mean + eps)
func CoefficientOfVariation(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	mean, v := stat.PopMeanVariance(data, nil)
	return math.Sqrt(v) / (mean + 1e-6)
}

// Percentile calculates the p-th percentile (p between 0 and 1) with linear
// interpolation between closest ranks
func Percentile(data []float64, p float64) float64 {
	if len(data) == 0 || p < 0 || p > 1 {
		return 0.0
	}

	sorted := slices.Clone(data)
	slices.Sort(sorted)

	if len(sorted) == 1 {
		return sorted[0]
	}

	pos := p * float64(len(sorted)-1)
	lower := int(math.Floor(pos))
	upper := min(lower+1, len(sorted)-1)
	frac := pos - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// RMS calculates root mean square
func RMS(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return math.Sqrt(floats.Dot(data, data) / float64(len(data)))
}

// Peak returns the maximum absolute sample value
func Peak(data []float64) float64 {
	peak := 0.0
	for _, v := range data {
		peak = math.Max(peak, math.Abs(v))
	}
	return peak
}

// MedianFilter applies median filtering with given window size.
// Edges use the truncated window.
func MedianFilter(data []float64, windowSize int) []float64 {
	if len(data) == 0 || windowSize <= 1 {
		return slices.Clone(data)
	}

	windowSize = min(windowSize, len(data))
	result := make([]float64, len(data))
	halfWindow := windowSize / 2
	window := make([]float64, 0, windowSize)

	for i := range data {
		start := max(i-halfWindow, 0)
		end := min(i+halfWindow+1, len(data))

		window = append(window[:0], data[start:end]...)
		slices.Sort(window)

		mid := len(window) / 2
		if len(window)%2 == 0 {
			result[i] = (window[mid-1] + window[mid]) / 2.0
		} else {
			result[i] = window[mid]
		}
	}

	return result
}

// Correlation calculates Pearson correlation coefficient between two series.
// Returns NaN when either series is constant.
func Correlation(x, y []float64) float64 {
	if len(x) != len(y) || len(x) < 2 {
		return math.NaN()
	}
	return stat.Correlation(x, y, nil)
}

// Autocorrelation returns the raw (unnormalized) autocorrelation for lags
// 0..maxLag-1
func Autocorrelation(signal []float64, maxLag int) []float64 {
	maxLag = min(maxLag, len(signal))
	if maxLag <= 0 {
		return nil
	}

	autocorr := make([]float64, maxLag)
	for lag := range maxLag {
		autocorr[lag] = floats.Dot(signal[:len(signal)-lag], signal[lag:])
	}
	return autocorr
}

// LocalMaxima returns indices i in [from, to) where data[i] is strictly
// greater than both neighbours
func LocalMaxima(data []float64, from, to int) []int {
	from = max(from, 1)
	to = min(to, len(data)-1)

	var peaks []int
	for i := from; i < to; i++ {
		if data[i] > data[i-1] && data[i] > data[i+1] {
			peaks = append(peaks, i)
		}
	}
	return peaks
}

// ParabolicPeak refines a peak index using the parabola through its neighbours
func ParabolicPeak(data []float64, i int) float64 {
	if i <= 0 || i >= len(data)-1 {
		return float64(i)
	}
	a, b, c := data[i-1], data[i], data[i+1]
	denom := a - 2*b + c
	if denom == 0 {
		return float64(i)
	}
	offset := 0.5 * (a - c) / denom
	return float64(i) + Clamp(offset, -0.5, 0.5)
}

// AmplitudeToDB converts a linear amplitude ratio to decibels
func AmplitudeToDB(ratio float64) float64 {
	return 20 * math.Log10(ratio)
}

// PowerToDB converts a power ratio to decibels
func PowerToDB(ratio float64) float64 {
	return 10 * math.Log10(ratio)
}

// Clamp constrains a value to a range
func Clamp(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

// IsFinite reports whether v is neither NaN nor infinite
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Frames splits a signal into non-overlapping segments of segmentSize
// samples. A trailing partial segment is dropped.
func Frames(signal []float64, segmentSize int) [][]float64 {
	if segmentSize <= 0 {
		return nil
	}
	var frames [][]float64
	for start := 0; start+segmentSize <= len(signal); start += segmentSize {
		frames = append(frames, signal[start:start+segmentSize])
	}
	return frames
}
