package spectral

import (
	"fmt"
	"math/cmplx"
	"runtime"
	"sync"

	"github.com/mjibson/go-dsp/window"
)

// STFT provides Short-Time Fourier Transform functionality
type STFT struct {
	fft *FFT
}

// STFTResult holds the magnitude spectrogram of a signal
type STFTResult struct {
	Magnitude      [][]float64 `json:"magnitude"`       // Time x Frequency magnitude matrix
	TimeFrames     int         `json:"time_frames"`     // Number of time frames
	FreqBins       int         `json:"freq_bins"`       // Number of frequency bins
	SampleRate     int         `json:"sample_rate"`     // Sample rate
	WindowSize     int         `json:"window_size"`     // FFT window size
	HopSize        int         `json:"hop_size"`        // Hop size between frames
	FreqResolution float64     `json:"freq_resolution"` // Frequency resolution (Hz/bin)
	TimeResolution float64     `json:"time_resolution"` // Time resolution (seconds/frame)
}

// NewSTFT creates a new STFT calculator
func NewSTFT() *STFT {
	return &STFT{
		fft: NewFFT(),
	}
}

// Compute computes a Hann-windowed STFT. Frames are not centred or padded, so
// a signal shorter than windowSize is an error.
func (s *STFT) Compute(signal []float64, windowSize, hopSize, sampleRate int) (*STFTResult, error) {
	if len(signal) == 0 {
		return nil, fmt.Errorf("empty signal")
	}
	if windowSize <= 0 {
		return nil, fmt.Errorf("window size must be positive")
	}
	if hopSize <= 0 {
		return nil, fmt.Errorf("hop size must be positive")
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive")
	}

	numFrames := (len(signal)-windowSize)/hopSize + 1
	if len(signal) < windowSize || numFrames <= 0 {
		return nil, fmt.Errorf("signal too short for window size %d (got %d samples)", windowSize, len(signal))
	}

	freqBins := windowSize/2 + 1
	hann := window.Hann(windowSize)

	magnitude := make([][]float64, numFrames)
	for i := range numFrames {
		magnitude[i] = make([]float64, freqBins)
	}

	numWorkers := s.getOptimalWorkerCount(numFrames)
	jobs := make(chan int, numFrames)

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			frameBuffer := make([]float64, windowSize)
			for frameIdx := range jobs {
				start := frameIdx * hopSize
				for i := range windowSize {
					frameBuffer[i] = signal[start+i] * hann[i]
				}

				spectrum := s.fft.Compute(frameBuffer)
				row := magnitude[frameIdx]
				for k := range freqBins {
					row[k] = cmplx.Abs(spectrum[k])
				}
			}
		}()
	}

	for frameIdx := range numFrames {
		jobs <- frameIdx
	}
	close(jobs)
	wg.Wait()

	return &STFTResult{
		Magnitude:      magnitude,
		TimeFrames:     numFrames,
		FreqBins:       freqBins,
		SampleRate:     sampleRate,
		WindowSize:     windowSize,
		HopSize:        hopSize,
		FreqResolution: float64(sampleRate) / float64(windowSize),
		TimeResolution: float64(hopSize) / float64(sampleRate),
	}, nil
}

// Frequencies returns the centre frequency of every bin
func (r *STFTResult) Frequencies() []float64 {
	return BinFrequencies(r.FreqBins, r.WindowSize, r.SampleRate)
}

// Power returns the squared magnitude spectrogram
func (r *STFTResult) Power() [][]float64 {
	power := make([][]float64, len(r.Magnitude))
	for t, row := range r.Magnitude {
		power[t] = make([]float64, len(row))
		for k, m := range row {
			power[t][k] = m * m
		}
	}
	return power
}

// getOptimalWorkerCount determines the number of workers for the workload
func (s *STFT) getOptimalWorkerCount(numFrames int) int {
	numCPU := runtime.NumCPU()

	// For small workloads, don't over-parallelize
	if numFrames < 100 {
		return max(1, min(numCPU/2, numFrames))
	}

	if numFrames < 1000 {
		return min(numCPU, 8)
	}

	return numCPU
}
