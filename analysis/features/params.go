package features

import (
	"slices"
	"strings"
)

// Tier groups descriptors by the kind of musical property they describe
type Tier string

const (
	TierCore          Tier = "core"
	TierSpectral      Tier = "spectral"
	TierEnergy        Tier = "energy_distribution"
	TierPerceptual    Tier = "perceptual"
	TierProduction    Tier = "production"
	TierCompositional Tier = "compositional"
)

// Parameter names. These are the keys of a Record and of a Profile.
const (
	BPM               = "bpm"
	Energy            = "energy"
	RMS               = "rms"
	Loudness          = "loudness"
	SpectralCentroid  = "spectral_centroid"
	DynamicRange      = "dynamic_range"
	Danceability      = "danceability"
	SpectralRolloff   = "spectral_rolloff"
	SpectralFlatness  = "spectral_flatness"
	ZeroCrossingRate  = "zero_crossing_rate"
	LowEnergy         = "low_energy"
	MidEnergy         = "mid_energy"
	HighEnergy        = "high_energy"
	BeatStrength      = "beat_strength"
	SubBassPresence   = "sub_bass_presence"
	StereoWidth       = "stereo_width"
	Valence           = "valence"
	KeyConfidence     = "key_confidence"
	LoudnessRange     = "loudness_range"
	TruePeak          = "true_peak"
	CrestFactor       = "crest_factor"
	SpectralContrast  = "spectral_contrast"
	TransientEnergy   = "transient_energy"
	HarmonicToNoise   = "harmonic_to_noise_ratio"
	HarmonicComplex   = "harmonic_complexity"
	MelodicRange      = "melodic_range"
	RhythmicDensity   = "rhythmic_density"
	ArrangementDens   = "arrangement_density"
	RepetitionScore   = "repetition_score"
	FrequencyOccup    = "frequency_occupancy"
	TimbralDiversity  = "timbral_diversity"
	VocalInstrumental = "vocal_instrumental_ratio"
	EnergyCurve       = "energy_curve"
	CallResponse      = "call_response_presence"
)

// Descriptor describes one catalogue parameter
type Descriptor struct {
	Name string `json:"name"`
	Tier Tier   `json:"tier"`
	Unit string `json:"unit,omitempty"`
}

// catalogue lists every parameter in presentation order
var catalogue = []Descriptor{
	{BPM, TierCore, "BPM"},
	{Energy, TierCore, ""},
	{RMS, TierCore, ""},
	{Loudness, TierCore, "LUFS"},
	{SpectralCentroid, TierCore, "Hz"},
	{DynamicRange, TierCore, "dB"},
	{Danceability, TierCore, ""},

	{SpectralRolloff, TierSpectral, "Hz"},
	{SpectralFlatness, TierSpectral, ""},
	{ZeroCrossingRate, TierSpectral, ""},

	{LowEnergy, TierEnergy, ""},
	{MidEnergy, TierEnergy, ""},
	{HighEnergy, TierEnergy, ""},

	{BeatStrength, TierPerceptual, ""},
	{SubBassPresence, TierPerceptual, ""},
	{StereoWidth, TierPerceptual, ""},
	{Valence, TierPerceptual, ""},
	{KeyConfidence, TierPerceptual, ""},

	{LoudnessRange, TierProduction, "LU"},
	{TruePeak, TierProduction, "dBTP"},
	{CrestFactor, TierProduction, "dB"},
	{SpectralContrast, TierProduction, "dB"},
	{TransientEnergy, TierProduction, ""},
	{HarmonicToNoise, TierProduction, "dB"},

	{HarmonicComplex, TierCompositional, ""},
	{MelodicRange, TierCompositional, "semitones"},
	{RhythmicDensity, TierCompositional, "onsets/s"},
	{ArrangementDens, TierCompositional, ""},
	{RepetitionScore, TierCompositional, ""},
	{FrequencyOccup, TierCompositional, ""},
	{TimbralDiversity, TierCompositional, ""},
	{VocalInstrumental, TierCompositional, ""},
	{EnergyCurve, TierCompositional, ""},
	{CallResponse, TierCompositional, ""},
}

var catalogueIndex = func() map[string]int {
	index := make(map[string]int, len(catalogue))
	for i, d := range catalogue {
		index[d.Name] = i
	}
	return index
}()

// Catalogue returns every known parameter in presentation order
func Catalogue() []Descriptor {
	return slices.Clone(catalogue)
}

// Lookup returns the descriptor for name
func Lookup(name string) (Descriptor, bool) {
	i, ok := catalogueIndex[name]
	if !ok {
		return Descriptor{}, false
	}
	return catalogue[i], true
}

// Known reports whether name is a catalogue parameter
func Known(name string) bool {
	_, ok := catalogueIndex[name]
	return ok
}

// InTier returns the parameter names belonging to tier
func InTier(tier Tier) []string {
	var names []string
	for _, d := range catalogue {
		if d.Tier == tier {
			names = append(names, d.Name)
		}
	}
	return names
}

// Ordered sorts names into catalogue order; unknown names go last, alphabetically
func Ordered(names []string) []string {
	sorted := slices.Clone(names)
	slices.SortStableFunc(sorted, func(a, b string) int {
		ia, okA := catalogueIndex[a]
		ib, okB := catalogueIndex[b]
		switch {
		case okA && okB:
			return ia - ib
		case okA:
			return -1
		case okB:
			return 1
		default:
			return strings.Compare(a, b)
		}
	})
	return sorted
}

// ParamSet selects a subset of parameters. A nil or empty set selects all.
type ParamSet map[string]struct{}

// NewParamSet builds a set from names
func NewParamSet(names ...string) ParamSet {
	set := make(ParamSet, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

// ParseParamSet parses a comma separated list, rejecting unknown names
func ParseParamSet(list string) (ParamSet, error) {
	if strings.TrimSpace(list) == "" {
		return nil, nil
	}
	set := make(ParamSet)
	for _, raw := range strings.Split(list, ",") {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		if !Known(name) {
			return nil, &UnknownParameterError{Name: name}
		}
		set[name] = struct{}{}
	}
	return set, nil
}

// Includes reports whether name is selected
func (s ParamSet) Includes(name string) bool {
	if len(s) == 0 {
		return true
	}
	_, ok := s[name]
	return ok
}

// Names returns the selected names in catalogue order
func (s ParamSet) Names() []string {
	if len(s) == 0 {
		names := make([]string, len(catalogue))
		for i, d := range catalogue {
			names[i] = d.Name
		}
		return names
	}
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	return Ordered(names)
}
