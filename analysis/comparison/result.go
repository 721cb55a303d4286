package comparison

import (
	"maps"
	"slices"

	"github.com/RyanBlaney/sonido-match/analysis/features"
)

// Mode selects what a candidate is compared against
type Mode string

const (
	// ModePlaylist compares against the profile means
	ModePlaylist Mode = "playlist"
	// ModeTrack compares against a single reference track
	ModeTrack Mode = "track"
	// ModeWeighted compares against the nearest reference track and scores
	// the Golden-N parameters in units of the reference set spread
	ModeWeighted Mode = "weighted"
)

// ParseMode maps a mode name to a Mode
func ParseMode(name string) (Mode, bool) {
	switch m := Mode(name); m {
	case ModePlaylist, ModeTrack, ModeWeighted:
		return m, true
	}
	return "", false
}

// Deviation is the difference between candidate and reference for one parameter
type Deviation struct {
	Candidate    float64  `json:"candidate"`
	Reference    float64  `json:"reference"`
	AbsoluteDiff float64  `json:"absolute_diff"` // candidate - reference
	PercentDiff  *float64 `json:"percent_diff"`  // nil when either side is zero
}

// Severity ranks a weighted deviation
type Severity string

const (
	SeverityOK       Severity = "OK"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

func (s Severity) rank() int {
	switch s {
	case SeverityCritical:
		return 2
	case SeverityWarning:
		return 1
	default:
		return 0
	}
}

// ZScore is the gatekeeper score of one Golden-N parameter. A parameter
// whose reference spread is zero is an exact target: Z stays 0 and any
// difference from the reference is critical.
type ZScore struct {
	Z           float64  `json:"z"`
	Weight      float64  `json:"weight"`
	WeightedZ   float64  `json:"weighted_z"`
	Std         float64  `json:"std"`
	Severity    Severity `json:"severity"`
	ExactTarget bool     `json:"exact_target,omitempty"`
}

// Alert flags a Golden-N parameter outside the accepted band
type Alert struct {
	Parameter string   `json:"parameter"`
	Severity  Severity `json:"severity"`
	WeightedZ float64  `json:"weighted_z"`
	Candidate float64  `json:"candidate"`
	Reference float64  `json:"reference"`
	Message   string   `json:"message"`

	ExactTarget bool `json:"exact_target,omitempty"`
}

// Nearest identifies the reference track a weighted comparison used
type Nearest struct {
	Filename string  `json:"filename"`
	Index    int     `json:"index"`
	Distance float64 `json:"distance"`
	Shared   int     `json:"shared_parameters"`
}

// Result holds a comparison. Parameters present on only one side are
// left out.
type Result struct {
	Mode       Mode                 `json:"mode"`
	Deviations map[string]Deviation `json:"deviations"`

	// Weighted mode only
	Nearest *Nearest          `json:"nearest_reference,omitempty"`
	Scores  map[string]ZScore `json:"scores,omitempty"`
	Alerts  []Alert           `json:"alerts,omitempty"`
}

// Empty reports that no parameter could be compared
func (r *Result) Empty() bool {
	return r == nil || len(r.Deviations) == 0
}

// Parameters returns the compared parameters in catalogue order
func (r *Result) Parameters() []string {
	if r == nil {
		return nil
	}
	return features.Ordered(slices.Collect(maps.Keys(r.Deviations)))
}

// Deviation returns the comparison of one parameter
func (r *Result) Deviation(name string) (Deviation, bool) {
	if r == nil {
		return Deviation{}, false
	}
	d, ok := r.Deviations[name]
	return d, ok
}
