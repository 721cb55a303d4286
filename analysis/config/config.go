package config

import (
	"fmt"
	"maps"
	"math"
	"os"
	"strconv"
	"strings"
)

// ExtractionConfig configures descriptor extraction
type ExtractionConfig struct {
	// Spectral analysis
	WindowSize     int     `json:"window_size"`
	HopSize        int     `json:"hop_size"`
	RolloffPercent float64 `json:"rolloff_percent"`
	ContrastBands  int     `json:"contrast_bands"`
	MelBands       int     `json:"mel_bands"`
	MFCCCoeffs     int     `json:"mfcc_coefficients"`

	// Band edges in Hz for the energy distribution tier
	LowBand      [2]float64 `json:"low_band"`
	MidBand      [2]float64 `json:"mid_band"`
	HighBandLow  float64    `json:"high_band_low"`
	SubBassBand  [2]float64 `json:"sub_bass_band"`
	VocalBand    [2]float64 `json:"vocal_band"`
	MinTempoBPM  float64    `json:"min_tempo_bpm"`
	MaxTempoBPM  float64    `json:"max_tempo_bpm"`
	PriorTempo   float64    `json:"prior_tempo_bpm"`
	TruePeakOver int        `json:"true_peak_oversampling"`

	// Segment lengths in seconds for the compositional tier
	ArrangementSegment float64 `json:"arrangement_segment_seconds"`
	EnergyCurveSegment float64 `json:"energy_curve_segment_seconds"`
	RepetitionBlock    float64 `json:"repetition_block_seconds"`
}

// ComparisonConfig configures the weighted gatekeeper comparison
type ComparisonConfig struct {
	// GoldenWeights holds the Golden-N parameters and their weights
	GoldenWeights map[string]float64 `json:"golden_weights"`

	// |weighted_z| >= CriticalZ is CRITICAL, WarningZ < |weighted_z| < CriticalZ is WARNING
	CriticalZ float64 `json:"critical_z"`
	WarningZ  float64 `json:"warning_z"`
}

// AnalyzerConfig configures reference set analysis
type AnalyzerConfig struct {
	Workers   int `json:"workers"` // 0 means runtime.NumCPU()
	MinTracks int `json:"min_tracks"`
	MaxTracks int `json:"max_tracks"`

	Extraction ExtractionConfig `json:"extraction"`
	Comparison ComparisonConfig `json:"comparison"`
	LogLevel   string           `json:"log_level"`
	LogFormat  string           `json:"log_format"` // "text" or "json"
}

// DefaultExtractionConfig returns the standard analysis parameters
func DefaultExtractionConfig() ExtractionConfig {
	return ExtractionConfig{
		WindowSize:         2048,
		HopSize:            512,
		RolloffPercent:     0.85,
		ContrastBands:      6,
		MelBands:           40,
		MFCCCoeffs:         13,
		LowBand:            [2]float64{20, 250},
		MidBand:            [2]float64{250, 4000},
		HighBandLow:        4000,
		SubBassBand:        [2]float64{20, 60},
		VocalBand:          [2]float64{200, 4000},
		MinTempoBPM:        40,
		MaxTempoBPM:        220,
		PriorTempo:         120,
		TruePeakOver:       4,
		ArrangementSegment: 2,
		EnergyCurveSegment: 4,
		RepetitionBlock:    1,
	}
}

// DefaultGoldenWeights returns the Golden-N parameters used for gatekeeping
func DefaultGoldenWeights() map[string]float64 {
	return map[string]float64{
		"bpm":               1.0,
		"energy":            1.0,
		"beat_strength":     0.9,
		"danceability":      0.9,
		"rhythmic_density":  0.8,
		"dynamic_range":     0.8,
		"spectral_rolloff":  0.7,
		"spectral_flatness": 0.6,
	}
}

// DefaultComparisonConfig returns the gatekeeper defaults
func DefaultComparisonConfig() ComparisonConfig {
	return ComparisonConfig{
		GoldenWeights: DefaultGoldenWeights(),
		CriticalZ:     2.0,
		WarningZ:      1.5,
	}
}

// DefaultAnalyzerConfig returns the full default configuration
func DefaultAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfig{
		Workers:    0,
		MinTracks:  2,
		MaxTracks:  30,
		Extraction: DefaultExtractionConfig(),
		Comparison: DefaultComparisonConfig(),
		LogLevel:   "info",
		LogFormat:  "text",
	}
}

// Validate checks the extraction parameters
func (c ExtractionConfig) Validate() error {
	if c.WindowSize <= 0 || c.HopSize <= 0 {
		return fmt.Errorf("window size and hop size must be positive (got %d, %d)", c.WindowSize, c.HopSize)
	}
	if c.RolloffPercent <= 0 || c.RolloffPercent >= 1 {
		return fmt.Errorf("rolloff percent must be in (0, 1), got %v", c.RolloffPercent)
	}
	if c.ContrastBands <= 0 || c.MelBands <= 0 || c.MFCCCoeffs <= 0 || c.MFCCCoeffs > c.MelBands {
		return fmt.Errorf("invalid band configuration: contrast=%d mel=%d mfcc=%d", c.ContrastBands, c.MelBands, c.MFCCCoeffs)
	}
	if c.MinTempoBPM <= 0 || c.MaxTempoBPM <= c.MinTempoBPM {
		return fmt.Errorf("invalid tempo range [%v, %v]", c.MinTempoBPM, c.MaxTempoBPM)
	}
	if c.TruePeakOver < 1 {
		return fmt.Errorf("true peak oversampling must be >= 1, got %d", c.TruePeakOver)
	}
	return nil
}

// Validate checks the gatekeeper parameters
func (c ComparisonConfig) Validate() error {
	if len(c.GoldenWeights) == 0 {
		return fmt.Errorf("golden weights must not be empty")
	}
	for name, w := range c.GoldenWeights {
		if !finite(w) || w <= 0 {
			return fmt.Errorf("golden weight for %s must be positive and finite, got %v", name, w)
		}
	}
	if !finite(c.WarningZ) || !finite(c.CriticalZ) {
		return fmt.Errorf("thresholds must be finite, got warning %v critical %v", c.WarningZ, c.CriticalZ)
	}
	if c.WarningZ <= 0 || c.CriticalZ <= c.WarningZ {
		return fmt.Errorf("thresholds must satisfy 0 < warning (%v) < critical (%v)", c.WarningZ, c.CriticalZ)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Validate checks the whole configuration
func (c AnalyzerConfig) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if c.MinTracks < 1 || c.MaxTracks < c.MinTracks {
		return fmt.Errorf("track limits must satisfy 1 <= min (%d) <= max (%d)", c.MinTracks, c.MaxTracks)
	}
	if err := c.Extraction.Validate(); err != nil {
		return fmt.Errorf("extraction: %w", err)
	}
	if err := c.Comparison.Validate(); err != nil {
		return fmt.Errorf("comparison: %w", err)
	}
	return nil
}

// Environment variables read by FromEnv
const (
	EnvWorkers   = "SONIDO_WORKERS"
	EnvMinTracks = "SONIDO_MIN_TRACKS"
	EnvMaxTracks = "SONIDO_MAX_TRACKS"
	EnvCriticalZ = "SONIDO_CRITICAL_Z"
	EnvWarningZ  = "SONIDO_WARNING_Z"
	EnvLogLevel  = "SONIDO_LOG_LEVEL"
	EnvLogFormat = "SONIDO_LOG_FORMAT"
	EnvGolden    = "SONIDO_GOLDEN_WEIGHTS" // name=weight,name=weight
)

// FromEnv returns the default configuration overlaid with SONIDO_* variables
func FromEnv() (AnalyzerConfig, error) {
	return Overlay(DefaultAnalyzerConfig(), os.LookupEnv)
}

// Overlay applies environment overrides from lookup onto base
func Overlay(base AnalyzerConfig, lookup func(string) (string, bool)) (AnalyzerConfig, error) {
	cfg := base
	cfg.Comparison.GoldenWeights = maps.Clone(base.Comparison.GoldenWeights)

	ints := map[string]*int{
		EnvWorkers:   &cfg.Workers,
		EnvMinTracks: &cfg.MinTracks,
		EnvMaxTracks: &cfg.MaxTracks,
	}
	for name, dst := range ints {
		if raw, ok := lookup(name); ok && raw != "" {
			v, err := strconv.Atoi(strings.TrimSpace(raw))
			if err != nil {
				return base, fmt.Errorf("%s: %w", name, err)
			}
			*dst = v
		}
	}

	floatVars := map[string]*float64{
		EnvCriticalZ: &cfg.Comparison.CriticalZ,
		EnvWarningZ:  &cfg.Comparison.WarningZ,
	}
	for name, dst := range floatVars {
		if raw, ok := lookup(name); ok && raw != "" {
			v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil {
				return base, fmt.Errorf("%s: %w", name, err)
			}
			*dst = v
		}
	}

	if raw, ok := lookup(EnvLogLevel); ok && raw != "" {
		cfg.LogLevel = strings.TrimSpace(raw)
	}
	if raw, ok := lookup(EnvLogFormat); ok && raw != "" {
		cfg.LogFormat = strings.TrimSpace(raw)
	}

	if raw, ok := lookup(EnvGolden); ok && raw != "" {
		weights, err := parseWeights(raw)
		if err != nil {
			return base, fmt.Errorf("%s: %w", EnvGolden, err)
		}
		cfg.Comparison.GoldenWeights = weights
	}

	if err := cfg.Validate(); err != nil {
		return base, err
	}
	return cfg, nil
}

func parseWeights(raw string) (map[string]float64, error) {
	weights := make(map[string]float64)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, value, found := strings.Cut(pair, "=")
		if !found {
			return nil, fmt.Errorf("expected name=weight, got %q", pair)
		}
		w, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("weight for %s: %w", name, err)
		}
		weights[strings.TrimSpace(name)] = w
	}
	return weights, nil
}
