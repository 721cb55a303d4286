package extractors

import (
	"math"

	"github.com/RyanBlaney/sonido-match/algorithms/chroma"
	"github.com/RyanBlaney/sonido-match/algorithms/common"
	"github.com/RyanBlaney/sonido-match/algorithms/loudness"
	"github.com/RyanBlaney/sonido-match/algorithms/spectral"
	"github.com/RyanBlaney/sonido-match/algorithms/temporal"
	"github.com/RyanBlaney/sonido-match/algorithms/tonal"
	"github.com/RyanBlaney/sonido-match/analysis/features"
)

// descriptor computes one parameter. ok is false when the value cannot be
// measured on this signal.
type descriptor func(s *signal) (value float64, ok bool)

var descriptors = map[string]descriptor{
	// Core
	features.BPM:              (*signal).bpm,
	features.Energy:           energy,
	features.RMS:              meanFrameRMS,
	features.Loudness:         integratedLoudness,
	features.SpectralCentroid: spectralCentroid,
	features.DynamicRange:     crestFactor,
	features.Danceability:     danceability,

	// Spectral
	features.SpectralRolloff:  spectralRolloff,
	features.SpectralFlatness: spectralFlatness,
	features.ZeroCrossingRate: zeroCrossingRate,

	// Energy distribution
	features.LowEnergy:  lowEnergy,
	features.MidEnergy:  midEnergy,
	features.HighEnergy: highEnergy,

	// Perceptual
	features.BeatStrength:    beatStrength,
	features.SubBassPresence: subBassPresence,
	features.StereoWidth:     stereoWidth,
	features.Valence:         valence,
	features.KeyConfidence:   keyConfidence,

	// Production
	features.LoudnessRange:    loudnessRange,
	features.TruePeak:         truePeak,
	features.CrestFactor:      crestFactor,
	features.SpectralContrast: spectralContrast,
	features.TransientEnergy:  transientEnergy,
	features.HarmonicToNoise:  harmonicToNoise,

	// Compositional
	features.HarmonicComplex:   harmonicComplexity,
	features.MelodicRange:      melodicRange,
	features.RhythmicDensity:   rhythmicDensity,
	features.ArrangementDens:   arrangementDensity,
	features.RepetitionScore:   repetitionScore,
	features.FrequencyOccup:    frequencyOccupancy,
	features.TimbralDiversity:  timbralDiversity,
	features.VocalInstrumental: vocalInstrumentalRatio,
	features.EnergyCurve:       energyCurve,
	features.CallResponse:      callResponse,
}

func energy(s *signal) (float64, bool) {
	return temporal.Energy(s.mono), len(s.mono) > 0
}

func meanFrameRMS(s *signal) (float64, bool) {
	frames := s.envelope.ComputeRMS(s.mono, s.cfg.WindowSize, s.cfg.HopSize)
	if len(frames) == 0 {
		return 0, false
	}
	return common.Mean(frames), true
}

func integratedLoudness(s *signal) (float64, bool) {
	return loudness.NewMeter(s.sampleRate).Integrated(s.channels)
}

func loudnessRange(s *signal) (float64, bool) {
	return loudness.NewMeter(s.sampleRate).Range(s.channels)
}

func truePeak(s *signal) (float64, bool) {
	return loudness.NewTruePeak(s.cfg.TruePeakOver).DBTP(s.channels)
}

func crestFactor(s *signal) (float64, bool) {
	return temporal.PeakToRMS(s.mono)
}

// meanOverFrames averages a framewise measure over the spectrogram
func meanOverFrames(s *signal, compute func([][]float64) []float64) (float64, bool) {
	magnitude := s.magnitude()
	if len(magnitude) == 0 {
		return 0, false
	}
	return common.Mean(compute(magnitude)), true
}

func spectralCentroid(s *signal) (float64, bool) {
	return meanOverFrames(s, spectral.NewSpectralCentroid(s.sampleRate, s.cfg.WindowSize).ComputeFrames)
}

func spectralRolloff(s *signal) (float64, bool) {
	return meanOverFrames(s, spectral.NewSpectralRolloff(s.sampleRate, s.cfg.WindowSize, s.cfg.RolloffPercent).ComputeFrames)
}

func spectralFlatness(s *signal) (float64, bool) {
	return meanOverFrames(s, spectral.NewSpectralFlatness().ComputeFrames)
}

func spectralContrast(s *signal) (float64, bool) {
	return spectral.NewSpectralContrast(s.sampleRate, s.cfg.WindowSize, s.cfg.ContrastBands).Mean(s.magnitude())
}

func zeroCrossingRate(s *signal) (float64, bool) {
	return spectral.NewZeroCrossingRate(s.cfg.WindowSize, s.cfg.HopSize).Mean(s.mono)
}

// energySplit returns the low, mid and high band magnitudes normalised by
// their sum
func energySplit(s *signal) ([3]float64, bool) {
	magnitude := s.magnitude()
	if magnitude == nil {
		return [3]float64{}, false
	}
	split := [3]float64{
		s.bands.Sum(magnitude, s.cfg.LowBand[0], s.cfg.LowBand[1], false),
		s.bands.Sum(magnitude, s.cfg.MidBand[0], s.cfg.MidBand[1], false),
		s.bands.Sum(magnitude, s.cfg.HighBandLow, s.nyquist(), true),
	}
	total := split[0] + split[1] + split[2]
	if total <= 0 {
		return split, false
	}
	for i := range split {
		split[i] /= total
	}
	return split, true
}

func lowEnergy(s *signal) (float64, bool) {
	split, ok := energySplit(s)
	return split[0], ok
}

func midEnergy(s *signal) (float64, bool) {
	split, ok := energySplit(s)
	return split[1], ok
}

func highEnergy(s *signal) (float64, bool) {
	split, ok := energySplit(s)
	return split[2], ok
}

func subBassPresence(s *signal) (float64, bool) {
	return s.bandFraction(s.cfg.SubBassBand[0], s.cfg.SubBassBand[1], false)
}

func vocalInstrumentalRatio(s *signal) (float64, bool) {
	return s.bandFraction(s.cfg.VocalBand[0], s.cfg.VocalBand[1], true)
}

func frequencyOccupancy(s *signal) (float64, bool) {
	magnitude := s.magnitude()
	if magnitude == nil {
		return 0, false
	}
	cog, ok := spectral.NewSpectralCentroid(s.sampleRate, s.cfg.WindowSize).CentreOfGravity(magnitude)
	if !ok {
		return 0, false
	}
	return cog / s.nyquist(), true
}

func beatStrength(s *signal) (float64, bool) {
	envelope, _ := s.onsetEnvelope()
	if len(envelope) == 0 {
		return 0, false
	}
	return common.Mean(envelope), true
}

func danceability(s *signal) (float64, bool) {
	bpm, ok := s.bpm()
	if !ok {
		return 0, false
	}
	strength, ok := beatStrength(s)
	if !ok {
		return 0, false
	}
	envelope, _ := s.onsetEnvelope()
	regularity, ok := temporal.Regularity(envelope)
	if !ok {
		return 0, false
	}
	return common.Clamp(0.4*strength+0.3*temporal.TempoScore(bpm)+0.3*regularity, 0, 1), true
}

func stereoWidth(s *signal) (float64, bool) {
	if len(s.channels) < 2 {
		return 0, false
	}
	r := common.Correlation(s.channels[0], s.channels[1])
	if math.IsNaN(r) {
		return 0, false
	}
	return 1 - math.Abs(r), true
}

func valence(s *signal) (float64, bool) {
	bpm, ok := s.bpm()
	if !ok {
		return 0, false
	}
	centroid, ok := spectralCentroid(s)
	if !ok {
		return 0, false
	}
	e, _ := energy(s)

	mode := 0.3
	if key, ok := s.estimateKey(); ok && key.Mode == tonal.Major {
		mode = 0.7
	}

	v := 0.25*math.Min(1, bpm/140) +
		0.25*math.Min(1, centroid/3000) +
		0.25*math.Min(1, 2*e) +
		0.25*mode
	return common.Clamp(v, 0, 1), true
}

func keyConfidence(s *signal) (float64, bool) {
	key, ok := s.estimateKey()
	return key.Confidence, ok
}

func transientEnergy(s *signal) (float64, bool) {
	split, ok := s.separation(1)
	if !ok {
		return 0, false
	}
	return split.PercussiveEnergy / split.TotalEnergy, true
}

func harmonicToNoise(s *signal) (float64, bool) {
	split, ok := s.separation(2)
	if !ok || split.HarmonicEnergy <= 0 || split.PercussiveEnergy <= 0 {
		return 0, false
	}
	return 10 * math.Log10(split.HarmonicEnergy/split.PercussiveEnergy), true
}

func harmonicComplexity(s *signal) (float64, bool) {
	return chroma.HarmonicComplexity(s.chroma())
}

func melodicRange(s *signal) (float64, bool) {
	magnitude := s.magnitude()
	if magnitude == nil {
		return 0, false
	}
	return tonal.MelodicRange(tonal.NewPitchDetector(s.sampleRate, s.cfg.WindowSize).Track(magnitude))
}

func rhythmicDensity(s *signal) (float64, bool) {
	envelope, _ := s.onsetEnvelope()
	if len(envelope) == 0 || s.duration() <= 0 {
		return 0, false
	}
	onsets := temporal.NewOnsetDetection(s.sampleRate, s.cfg.HopSize).Detect(envelope)
	return float64(len(onsets)) / s.duration(), true
}

func arrangementDensity(s *signal) (float64, bool) {
	return temporal.Variation(s.envelope.SegmentRMS(s.mono, s.samples(s.cfg.ArrangementSegment)), 2)
}

func energyCurve(s *signal) (float64, bool) {
	return temporal.Variation(s.envelope.SegmentEnergy(s.mono, s.samples(s.cfg.EnergyCurveSegment)), 3)
}

func repetitionScore(s *signal) (float64, bool) {
	blockFrames := max(1, int(math.Round(s.cfg.RepetitionBlock*s.framesPerSecond())))
	similarity, ok := chroma.SelfSimilarity(chroma.Blocks(s.chroma(), blockFrames))
	if !ok {
		return 0, false
	}
	return common.Clamp(similarity, 0, 1), true
}

func timbralDiversity(s *signal) (float64, bool) {
	melDB := s.melSpectrogramDB()
	if len(melDB) < 2 {
		return 0, false
	}
	mfcc, err := spectral.NewMFCC(s.cfg.MelBands, s.cfg.MFCCCoeffs)
	if err != nil {
		return 0, false
	}
	coeffs := mfcc.ComputeFrames(melDB)

	track := make([]float64, len(coeffs))
	total := 0.0
	for c := range s.cfg.MFCCCoeffs {
		for t, frame := range coeffs {
			track[t] = frame[c]
		}
		total += common.PopulationVariance(track)
	}
	return common.Clamp(total/float64(s.cfg.MFCCCoeffs)/100, 0, 1), true
}

func callResponse(s *signal) (float64, bool) {
	envelope, _ := s.onsetEnvelope()
	return temporal.CallResponse(envelope)
}
