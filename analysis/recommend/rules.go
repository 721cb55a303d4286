package recommend

import (
	"github.com/RyanBlaney/sonido-match/analysis/features"
)

// Measure selects which deviation a rule thresholds
type Measure int

const (
	// Percent uses |percent_diff|; the rule is skipped when it is undefined
	Percent Measure = iota
	// Absolute uses |absolute_diff| in the parameter's own unit
	Absolute
)

// Rule maps a parameter deviation to advice. A rule fires when the measure
// exceeds Trigger, and is HIGH priority when it exceeds Severe.
type Rule struct {
	Parameter string
	Category  string
	Measure   Measure
	Trigger   float64
	Severe    float64
	Format    string // printf verb for values
	Above     string // advice when the candidate is higher
	Below     string // advice when the candidate is lower
}

// Rules is the rule table in evaluation order
var Rules = []Rule{
	{features.BPM, "Tempo", Percent, 10, 30, "%.1f BPM",
		"Slow the tempo down toward the reference",
		"Speed the tempo up toward the reference"},
	{features.Energy, "Dynamics", Percent, 15, 30, "%.3f",
		"More energetic than the reference. Reduce compression or intensity",
		"Less energetic than the reference. Increase compression or intensity"},
	{features.RMS, "Dynamics", Percent, 15, 30, "%.3f",
		"Higher average level. Back off bus compression or limiting",
		"Lower average level. Add bus compression or raise the limiter input"},
	{features.Loudness, "Mastering", Absolute, 1.5, 3, "%.1f LUFS",
		"Louder than the reference. Reduce mastering gain",
		"Quieter than the reference. Increase mastering gain"},
	{features.SpectralCentroid, "Tonal Balance", Percent, 15, 30, "%.0f Hz",
		"Brighter than the reference. Cut highs (8 kHz+) or add warmth (200-500 Hz)",
		"Darker than the reference. Boost highs (5-10 kHz) or reduce low mids"},
	{features.DynamicRange, "Dynamics", Absolute, 2, 4, "%.1f dB",
		"More dynamic than the reference. Apply more compression or limiting",
		"More compressed than the reference. Ease off limiting to restore punch"},
	{features.Danceability, "Groove", Absolute, 0.1, 0.2, "%.2f",
		"Groove is more driving than the reference. Simplify the rhythm section if the style calls for it",
		"Groove is weaker than the reference. Tighten the drums and emphasise the downbeat"},

	{features.SpectralRolloff, "Tonal Balance", Percent, 15, 30, "%.0f Hz",
		"High frequency content extends further than the reference. Tame the top end with a high shelf or low pass",
		"High frequency content rolls off earlier than the reference. Add air above 10 kHz"},
	{features.SpectralFlatness, "Texture", Absolute, 0.05, 0.15, "%.3f",
		"Noisier than the reference. Reduce distortion, noise layers or wide reverbs",
		"More tonal than the reference. Add texture, saturation or noise elements"},
	{features.ZeroCrossingRate, "Texture", Percent, 20, 40, "%.4f",
		"More high frequency or noisy content than the reference. Check hi-hats, cymbals and distortion",
		"Less high frequency activity than the reference. Add percussion or brightness"},

	{features.LowEnergy, "Frequency Balance", Absolute, 0.05, 0.1, "%.2f",
		"Too much low end (20-250 Hz). Cut the bass or kick, or high pass non-bass elements",
		"Not enough low end (20-250 Hz). Boost the bass or kick around 60-120 Hz"},
	{features.MidEnergy, "Frequency Balance", Absolute, 0.05, 0.1, "%.2f",
		"Mids (250 Hz-4 kHz) are more prominent. Carve space with EQ around 300-800 Hz",
		"Mids (250 Hz-4 kHz) are recessed. Bring up vocals, guitars or synths"},
	{features.HighEnergy, "Frequency Balance", Absolute, 0.05, 0.1, "%.2f",
		"Too much top end (4 kHz+). Tame cymbals and sibilance",
		"Not enough top end (4 kHz+). Add presence and air with a high shelf"},

	{features.BeatStrength, "Rhythm", Percent, 20, 40, "%.2f",
		"Beats hit harder than the reference. Soften drum transients",
		"Beats are weaker than the reference. Add transient shaping or layer the kick and snare"},
	{features.SubBassPresence, "Low End", Absolute, 0.03, 0.08, "%.3f",
		"More sub-bass (20-60 Hz) than the reference. High pass or reduce the sub",
		"Less sub-bass (20-60 Hz) than the reference. Add a sub layer or boost below 60 Hz"},
	{features.StereoWidth, "Stereo Image", Absolute, 0.1, 0.2, "%.2f",
		"Wider than the reference. Check mono compatibility and narrow wide elements",
		"Narrower than the reference. Widen pads, doubles or reverbs"},
	{features.Valence, "Mood", Absolute, 0.1, 0.2, "%.2f",
		"Brighter mood than the reference. Consider darker harmony or a minor mode",
		"Darker mood than the reference. Consider major harmony, brighter sounds or a faster feel"},
	{features.KeyConfidence, "Harmony", Absolute, 0.15, 0.3, "%.2f",
		"Tonal centre is clearer than the reference",
		"Tonal centre is less clear than the reference. Reinforce the root and key centre"},

	{features.LoudnessRange, "Dynamics", Absolute, 2, 4, "%.1f LU",
		"Wider loudness range than the reference. Automate or compress to even out sections",
		"Narrower loudness range than the reference. Let quiet sections breathe"},
	{features.TruePeak, "Mastering", Absolute, 1, 2, "%.1f dBTP",
		"Peaks run hotter than the reference. Lower the limiter ceiling",
		"Peaks sit lower than the reference. There is headroom to raise the ceiling"},
	{features.CrestFactor, "Dynamics", Absolute, 2, 4, "%.1f dB",
		"Peakier than the reference. Apply more peak limiting",
		"Flatter than the reference. Reduce limiting to recover transients"},
	{features.SpectralContrast, "Mix Clarity", Absolute, 2, 4, "%.1f dB",
		"More spectral contrast than the reference. Fill gaps between elements",
		"Less spectral contrast than the reference. Use EQ to separate competing elements"},
	{features.TransientEnergy, "Rhythm", Absolute, 0.05, 0.1, "%.2f",
		"More percussive than the reference. Soften transients or bring up sustained parts",
		"Less percussive than the reference. Add transient punch to drums"},
	{features.HarmonicToNoise, "Texture", Absolute, 2, 4, "%.1f dB",
		"Cleaner and more harmonic than the reference. Add grit, noise or percussion",
		"Noisier than the reference. Clean up noisy layers or reduce distortion"},

	{features.HarmonicComplex, "Harmony", Absolute, 0.1, 0.2, "%.2f",
		"Harmony is more complex than the reference. Simplify chords or reduce changes",
		"Harmony is simpler than the reference. Add chord extensions or more changes"},
	{features.MelodicRange, "Melody", Absolute, 3, 6, "%.1f semitones",
		"Melody spans a wider range than the reference. Narrow the lead line",
		"Melody spans a narrower range than the reference. Open up the lead line"},
	{features.RhythmicDensity, "Rhythm", Percent, 20, 40, "%.2f onsets/s",
		"Busier rhythm than the reference. Thin out percussion or hats",
		"Sparser rhythm than the reference. Add percussion or rhythmic layers"},
	{features.ArrangementDens, "Arrangement", Absolute, 0.1, 0.2, "%.2f",
		"Arrangement density changes more than the reference. Smooth transitions",
		"Arrangement density is more static than the reference. Add builds, drops or breakdowns"},
	{features.RepetitionScore, "Arrangement", Absolute, 0.1, 0.2, "%.2f",
		"More repetitive than the reference. Introduce variation between sections",
		"Less repetitive than the reference. Reuse hooks and motifs"},
	{features.FrequencyOccup, "Frequency Balance", Absolute, 0.05, 0.1, "%.3f",
		"Spectral centre of gravity sits higher than the reference. Add low mid weight",
		"Spectral centre of gravity sits lower than the reference. Add upper mid and high content"},
	{features.TimbralDiversity, "Sound Design", Absolute, 0.1, 0.2, "%.2f",
		"Wider timbral palette than the reference. Consolidate sounds",
		"Narrower timbral palette than the reference. Introduce contrasting sounds"},
	{features.VocalInstrumental, "Arrangement", Absolute, 0.05, 0.1, "%.2f",
		"More energy in the vocal range (200 Hz-4 kHz). Check the lead against the backing",
		"Less energy in the vocal range (200 Hz-4 kHz). Bring the lead forward"},
	{features.EnergyCurve, "Arrangement", Absolute, 0.1, 0.2, "%.2f",
		"Energy varies more across the track than the reference. Even out section levels",
		"Energy is flatter across the track than the reference. Build more contrast between sections"},
	{features.CallResponse, "Arrangement", Absolute, 0.1, 0.2, "%.2f",
		"More call and response than the reference. Let phrases overlap",
		"Less call and response than the reference. Leave space for answering phrases"},
}

var ruleIndex = func() map[string]int {
	index := make(map[string]int, len(Rules))
	for i, r := range Rules {
		index[r.Parameter] = i
	}
	return index
}()

// RuleFor returns the rule for a parameter
func RuleFor(name string) (Rule, bool) {
	i, ok := ruleIndex[name]
	if !ok {
		return Rule{}, false
	}
	return Rules[i], true
}
