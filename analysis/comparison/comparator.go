package comparison

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/RyanBlaney/sonido-match/analysis/config"
	"github.com/RyanBlaney/sonido-match/analysis/features"
	"github.com/RyanBlaney/sonido-match/analysis/profile"
)

// ErrNoReferenceTracks is returned by weighted comparison when no reference
// track shares a Golden-N parameter with the candidate
var ErrNoReferenceTracks = errors.New("no eligible reference tracks for weighted comparison")

// NewDeviation compares a candidate value with a reference value
func NewDeviation(candidate, reference float64) Deviation {
	d := Deviation{
		Candidate:    candidate,
		Reference:    reference,
		AbsoluteDiff: candidate - reference,
	}
	if reference != 0 && candidate != 0 {
		pct := (candidate - reference) / math.Abs(reference) * 100
		d.PercentDiff = &pct
	}
	return d
}

// CompareToProfile compares the candidate against the profile means
func CompareToProfile(candidate *features.Record, p *profile.Profile, requested features.ParamSet) *Result {
	result := &Result{Mode: ModePlaylist, Deviations: make(map[string]Deviation)}
	for name, value := range candidate.Values() {
		if !requested.Includes(name) {
			continue
		}
		if s, ok := p.Get(name); ok {
			result.Deviations[name] = NewDeviation(value, s.Mean)
		}
	}
	return result
}

// CompareToTrack compares the candidate against a single reference track
func CompareToTrack(candidate, reference *features.Record, requested features.ParamSet) *Result {
	return &Result{Mode: ModeTrack, Deviations: trackDeviations(candidate, reference, requested)}
}

func trackDeviations(candidate, reference *features.Record, requested features.ParamSet) map[string]Deviation {
	deviations := make(map[string]Deviation)
	for name, value := range candidate.Values() {
		if !requested.Includes(name) {
			continue
		}
		if ref, ok := reference.Get(name); ok {
			deviations[name] = NewDeviation(value, ref)
		}
	}
	return deviations
}

// FindNearest returns the reference track closest to the candidate over the
// Golden-N parameters shared by candidate, track and profile. Tracks sharing
// more parameters rank first; among those the weighted RMS of std-normalised
// differences decides, and ties go to the earliest track. A parameter with
// zero spread contributes its weighted raw difference.
func FindNearest(candidate *features.Record, p *profile.Profile, tracks []*features.Record, weights map[string]float64) (Nearest, error) {
	golden := features.Ordered(slices.Collect(maps.Keys(weights)))

	best := Nearest{Index: -1, Distance: math.Inf(1)}
	terms := make([]float64, 0, len(golden))

	for i, track := range tracks {
		if track == nil {
			continue
		}
		terms = terms[:0]
		for _, name := range golden {
			c, okC := candidate.Get(name)
			r, okR := track.Get(name)
			s, okS := p.Get(name)
			if !okC || !okR || !okS {
				continue
			}
			diff := weights[name] * (c - r)
			if s.Std > 0 {
				diff /= s.Std
			}
			terms = append(terms, diff)
		}
		if len(terms) == 0 {
			continue
		}

		distance := math.Sqrt(floats.Dot(terms, terms) / float64(len(terms)))
		if len(terms) > best.Shared || (len(terms) == best.Shared && distance < best.Distance) {
			best = Nearest{Filename: track.Filename, Index: i, Distance: distance, Shared: len(terms)}
		}
	}

	if best.Index < 0 {
		return Nearest{}, ErrNoReferenceTracks
	}
	return best, nil
}

// Classify grades a weighted z-score
func Classify(weightedZ float64, cfg config.ComparisonConfig) Severity {
	magnitude := math.Abs(weightedZ)
	switch {
	case magnitude >= cfg.CriticalZ:
		return SeverityCritical
	case magnitude > cfg.WarningZ:
		return SeverityWarning
	default:
		return SeverityOK
	}
}

// CompareWeighted runs the gatekeeper comparison. The candidate is scored
// against the nearest reference track, never the profile mean; the profile
// supplies the spread of each Golden-N parameter.
func CompareWeighted(candidate *features.Record, p *profile.Profile, tracks []*features.Record, requested features.ParamSet, cfg config.ComparisonConfig) (*Result, error) {
	nearest, err := FindNearest(candidate, p, tracks, cfg.GoldenWeights)
	if err != nil {
		return nil, err
	}
	reference := tracks[nearest.Index]

	result := &Result{
		Mode:       ModeWeighted,
		Deviations: trackDeviations(candidate, reference, requested),
		Nearest:    &nearest,
		Scores:     make(map[string]ZScore),
	}

	for _, name := range features.Ordered(slices.Collect(maps.Keys(cfg.GoldenWeights))) {
		if !requested.Includes(name) {
			continue
		}
		c, okC := candidate.Get(name)
		r, okR := reference.Get(name)
		s, okS := p.Get(name)
		if !okC || !okR || !okS {
			continue
		}

		weight := cfg.GoldenWeights[name]
		score := ZScore{Weight: weight, Std: s.Std}
		if s.Std > 0 {
			score.Z = (c - r) / s.Std
			score.WeightedZ = score.Z * weight
			score.Severity = Classify(score.WeightedZ, cfg)
		} else {
			score.ExactTarget = true
			score.Severity = SeverityOK
			if c != r {
				score.Severity = SeverityCritical
			}
		}
		result.Scores[name] = score

		if score.Severity != SeverityOK {
			result.Alerts = append(result.Alerts, Alert{
				Parameter: name,
				Severity:  score.Severity,
				WeightedZ: score.WeightedZ,
				Candidate: c,
				Reference: r,
				Message:   alertMessage(name, score, c, r, reference.Filename),

				ExactTarget: score.ExactTarget,
			})
		}
	}

	SortAlerts(result.Alerts)
	return result, nil
}

// SortAlerts orders alerts by severity, then |weighted_z| descending, then
// name. Exact-target misses sort ahead of any finite weighted z.
func SortAlerts(alerts []Alert) {
	slices.SortStableFunc(alerts, func(a, b Alert) int {
		if d := b.Severity.rank() - a.Severity.rank(); d != 0 {
			return d
		}
		if ma, mb := a.magnitude(), b.magnitude(); ma != mb {
			if ma > mb {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Parameter, b.Parameter)
	})
}

func (a Alert) magnitude() float64 {
	if a.ExactTarget {
		return math.Inf(1)
	}
	return math.Abs(a.WeightedZ)
}

func alertMessage(name string, score ZScore, candidate, ref float64, reference string) string {
	direction := "above"
	if candidate < ref {
		direction = "below"
	}
	if reference == "" {
		reference = "the nearest reference"
	}
	if score.ExactTarget {
		return fmt.Sprintf("%s is %g, %s the exact target %g of %s", name, candidate, direction, ref, reference)
	}
	return fmt.Sprintf("%s is %.2f weighted std %s %s", name, math.Abs(score.WeightedZ), direction, reference)
}
