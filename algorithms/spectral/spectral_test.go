package spectral

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-match/algorithms/common"
)

const testRate = 22050

func sine(freq, amplitude float64, sampleRate, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return out
}

func whiteNoise(n int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = rng.NormFloat64() * 0.1
	}
	return out
}

func spectrogram(t *testing.T, signal []float64) *STFTResult {
	t.Helper()
	result, err := NewSTFT().Compute(signal, 2048, 512, testRate)
	require.NoError(t, err)
	return result
}

func TestSTFT_FrameCount(t *testing.T) {
	result := spectrogram(t, sine(440, 0.5, testRate, testRate))

	assert.Equal(t, (testRate-2048)/512+1, result.TimeFrames)
	assert.Equal(t, 1025, result.FreqBins)
	assert.Len(t, result.Magnitude, result.TimeFrames)
	assert.InDelta(t, float64(testRate)/2048, result.FreqResolution, 1e-9)
}

func TestSTFT_ShortSignalIsError(t *testing.T) {
	_, err := NewSTFT().Compute(make([]float64, 100), 2048, 512, testRate)
	assert.Error(t, err)
}

func TestSpectralCentroid_Sine(t *testing.T) {
	result := spectrogram(t, sine(1000, 0.5, testRate, 2*testRate))

	centroids := NewSpectralCentroid(testRate, 2048).ComputeFrames(result.Magnitude)
	assert.InDelta(t, 1000, common.Mean(centroids), 50)

	cog, ok := NewSpectralCentroid(testRate, 2048).CentreOfGravity(result.Magnitude)
	require.True(t, ok)
	assert.InDelta(t, 1000, cog, 50)
}

func TestSpectralFlatness_ToneVersusNoise(t *testing.T) {
	flatness := NewSpectralFlatness()

	tone := common.Mean(flatness.ComputeFrames(spectrogram(t, sine(1000, 0.5, testRate, testRate)).Magnitude))
	noise := common.Mean(flatness.ComputeFrames(spectrogram(t, whiteNoise(testRate, 7)).Magnitude))

	assert.Less(t, tone, 0.05)
	assert.Greater(t, noise, 0.3)
	assert.LessOrEqual(t, noise, 1.0)
}

func TestSpectralRolloff_BelowNyquist(t *testing.T) {
	result := spectrogram(t, sine(1000, 0.5, testRate, testRate))
	rolloff := common.Mean(NewSpectralRolloff(testRate, 2048, 0.85).ComputeFrames(result.Magnitude))

	assert.InDelta(t, 1000, rolloff, 100)
}

func TestBandEnergy_SplitsSine(t *testing.T) {
	result := spectrogram(t, sine(100, 0.5, testRate, testRate))
	be := NewBandEnergy(testRate, 2048)

	total := be.Total(result.Magnitude)
	low := be.Sum(result.Magnitude, 20, 250, false)
	require.Greater(t, total, 0.0)
	assert.Greater(t, low/total, 0.9)
}

func TestMelScale_FilterCount(t *testing.T) {
	ms := NewMelScale(40, 2048, testRate, 0, testRate/2)
	assert.Equal(t, 40, ms.NumFilters())

	result := spectrogram(t, sine(1000, 0.5, testRate, testRate))
	mel := ms.ApplyFrames(result.Magnitude)
	require.Len(t, mel, result.TimeFrames)
	assert.Len(t, mel[0], 40)
}

func TestMFCC_Dimensions(t *testing.T) {
	mfcc, err := NewMFCC(40, 13)
	require.NoError(t, err)

	result := spectrogram(t, whiteNoise(testRate, 3))
	melDB := PowerToDBFrames(NewMelScale(40, 2048, testRate, 0, testRate/2).ApplyFrames(result.Magnitude))
	coeffs := mfcc.ComputeFrames(melDB)

	require.Len(t, coeffs, result.TimeFrames)
	assert.Len(t, coeffs[0], 13)
	for _, c := range coeffs[0] {
		assert.False(t, math.IsNaN(c))
	}

	_, err = NewMFCC(10, 13)
	assert.Error(t, err)
}

func TestHPSS_ToneIsHarmonic(t *testing.T) {
	result := spectrogram(t, sine(440, 0.5, testRate, 2*testRate))
	split := NewHPSS(31).Separate(result.Magnitude, 1)

	require.Greater(t, split.TotalEnergy, 0.0)
	assert.Greater(t, split.HarmonicEnergy, split.PercussiveEnergy)
}

func TestZeroCrossingRate_Sine(t *testing.T) {
	// A 1 kHz sine crosses zero 2000 times per second
	mean, ok := NewZeroCrossingRate(2048, 512).Mean(sine(1000, 0.5, testRate, testRate))
	require.True(t, ok)
	assert.InDelta(t, 2000.0/testRate, mean, 0.01)
}
