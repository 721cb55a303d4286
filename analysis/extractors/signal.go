package extractors

import (
	"math"

	"github.com/RyanBlaney/sonido-match/algorithms/chroma"
	"github.com/RyanBlaney/sonido-match/algorithms/spectral"
	"github.com/RyanBlaney/sonido-match/algorithms/temporal"
	"github.com/RyanBlaney/sonido-match/algorithms/tonal"
	"github.com/RyanBlaney/sonido-match/analysis/config"
	"github.com/RyanBlaney/sonido-match/transcode"
)

// signal holds one track and the intermediates derived from it. Every
// intermediate is computed on first use and shared by the descriptors that
// need it. A signal belongs to a single Extract call.
type signal struct {
	cfg        config.ExtractionConfig
	sampleRate int
	channels   [][]float64
	mono       []float64

	stft     *spectral.STFTResult
	stftDone bool

	melDB     [][]float64
	melDBDone bool

	onsetEnv   []float64
	onsetDone  bool
	onsetFrame float64

	tempo     float64
	tempoOK   bool
	tempoDone bool

	chromagram [][]float64
	chromaDone bool

	key     tonal.Key
	keyOK   bool
	keyDone bool

	hpss     map[float64]spectral.HPSSResult
	bands    *spectral.BandEnergy
	envelope *temporal.Envelope
}

func newSignal(audio *transcode.AudioData, cfg config.ExtractionConfig) *signal {
	return &signal{
		cfg:        cfg,
		sampleRate: audio.SampleRate,
		channels:   audio.Deinterleave(),
		mono:       audio.Mono(),
		hpss:       make(map[float64]spectral.HPSSResult),
		bands:      spectral.NewBandEnergy(audio.SampleRate, cfg.WindowSize),
		envelope:   temporal.NewEnvelope(),
	}
}

func (s *signal) duration() float64 {
	return float64(len(s.mono)) / float64(s.sampleRate)
}

func (s *signal) nyquist() float64 {
	return float64(s.sampleRate) / 2
}

// magnitude returns the magnitude spectrogram, or nil when the signal is
// shorter than one analysis window
func (s *signal) magnitude() [][]float64 {
	if !s.stftDone {
		s.stftDone = true
		result, err := spectral.NewSTFT().Compute(s.mono, s.cfg.WindowSize, s.cfg.HopSize, s.sampleRate)
		if err == nil {
			s.stft = result
		}
	}
	if s.stft == nil {
		return nil
	}
	return s.stft.Magnitude
}

func (s *signal) melSpectrogramDB() [][]float64 {
	if !s.melDBDone {
		s.melDBDone = true
		if magnitude := s.magnitude(); magnitude != nil {
			mel := spectral.NewMelScale(s.cfg.MelBands, s.cfg.WindowSize, s.sampleRate, 0, s.nyquist())
			s.melDB = spectral.PowerToDBFrames(mel.ApplyFrames(magnitude))
		}
	}
	return s.melDB
}

func (s *signal) onsetEnvelope() ([]float64, float64) {
	if !s.onsetDone {
		s.onsetDone = true
		detector := temporal.NewOnsetDetection(s.sampleRate, s.cfg.HopSize)
		s.onsetFrame = detector.FrameRate()
		if melDB := s.melSpectrogramDB(); len(melDB) > 1 {
			s.onsetEnv = detector.Strength(melDB)
		}
	}
	return s.onsetEnv, s.onsetFrame
}

func (s *signal) bpm() (float64, bool) {
	if !s.tempoDone {
		s.tempoDone = true
		envelope, frameRate := s.onsetEnvelope()
		estimator := temporal.NewTempoEstimation(s.cfg.MinTempoBPM, s.cfg.MaxTempoBPM, s.cfg.PriorTempo)
		s.tempo, s.tempoOK = estimator.Estimate(envelope, frameRate)
	}
	return s.tempo, s.tempoOK
}

func (s *signal) chroma() [][]float64 {
	if !s.chromaDone {
		s.chromaDone = true
		if magnitude := s.magnitude(); magnitude != nil {
			s.chromagram = chroma.NewChromaSTFT(s.sampleRate, s.cfg.WindowSize).Compute(magnitude)
		}
	}
	return s.chromagram
}

func (s *signal) estimateKey() (tonal.Key, bool) {
	if !s.keyDone {
		s.keyDone = true
		if chromagram := s.chroma(); len(chromagram) > 0 {
			s.key, s.keyOK = tonal.NewKeyEstimator().Estimate(chroma.MeanVector(chromagram))
		}
	}
	return s.key, s.keyOK
}

// separation returns the HPSS energies for the given mask margin
func (s *signal) separation(margin float64) (spectral.HPSSResult, bool) {
	if result, ok := s.hpss[margin]; ok {
		return result, result.TotalEnergy > 0
	}
	magnitude := s.magnitude()
	if magnitude == nil {
		return spectral.HPSSResult{}, false
	}
	result := spectral.NewHPSS(31).Separate(magnitude, margin)
	s.hpss[margin] = result
	return result, result.TotalEnergy > 0
}

// bandFraction returns the magnitude inside [low, high) over the total
func (s *signal) bandFraction(low, high float64, inclusiveHigh bool) (float64, bool) {
	magnitude := s.magnitude()
	if magnitude == nil {
		return 0, false
	}
	total := s.bands.Total(magnitude)
	if total <= 0 {
		return 0, false
	}
	return s.bands.Sum(magnitude, low, high, inclusiveHigh) / total, true
}

// framesPerSecond is the STFT frame rate
func (s *signal) framesPerSecond() float64 {
	return float64(s.sampleRate) / float64(s.cfg.HopSize)
}

// samples converts seconds to a sample count
func (s *signal) samples(seconds float64) int {
	return int(math.Round(seconds * float64(s.sampleRate)))
}
