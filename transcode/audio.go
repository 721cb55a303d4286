package transcode

import (
	"time"
)

// AudioData represents decoded audio data
type AudioData struct {
	PCM        []float64     `json:"-"` // Interleaved samples in [-1, 1]
	SampleRate int           `json:"sample_rate"`
	Channels   int           `json:"channels"`
	Duration   time.Duration `json:"duration"`
	Metadata   *Metadata     `json:"metadata,omitempty"`
}

// Metadata describes where the audio came from
type Metadata struct {
	Filename string `json:"filename"`
	Format   string `json:"format"` // "pcm" or "float"
	BitDepth int    `json:"bit_depth"`
}

// NewAudioData wraps interleaved samples and derives the duration
func NewAudioData(pcm []float64, sampleRate, channels int, filename string) *AudioData {
	data := &AudioData{
		PCM:        pcm,
		SampleRate: sampleRate,
		Channels:   channels,
		Metadata:   &Metadata{Filename: filename},
	}
	if sampleRate > 0 && channels > 0 {
		data.Duration = time.Duration(len(pcm)/channels) * time.Second / time.Duration(sampleRate)
	}
	return data
}

// Filename returns the source name, or "" when unknown
func (a *AudioData) Filename() string {
	if a == nil || a.Metadata == nil {
		return ""
	}
	return a.Metadata.Filename
}

// Frames returns the number of sample frames (samples per channel)
func (a *AudioData) Frames() int {
	if a.Channels <= 0 {
		return 0
	}
	return len(a.PCM) / a.Channels
}

// Mono averages the channels of every frame
func (a *AudioData) Mono() []float64 {
	if a.Channels == 1 {
		return a.PCM
	}

	frames := a.Frames()
	mono := make([]float64, frames)
	for i := range frames {
		sum := 0.0
		base := i * a.Channels
		for c := range a.Channels {
			sum += a.PCM[base+c]
		}
		mono[i] = sum / float64(a.Channels)
	}
	return mono
}

// Deinterleave splits the samples into one slice per channel
func (a *AudioData) Deinterleave() [][]float64 {
	frames := a.Frames()
	channels := make([][]float64, a.Channels)
	for c := range channels {
		channels[c] = make([]float64, frames)
	}
	for i := range frames {
		base := i * a.Channels
		for c := range a.Channels {
			channels[c][i] = a.PCM[base+c]
		}
	}
	return channels
}
