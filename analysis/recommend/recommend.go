package recommend

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"

	"github.com/RyanBlaney/sonido-match/analysis/comparison"
)

// Priority orders recommendations
type Priority int

const (
	Low Priority = iota
	Medium
	High
)

func (p Priority) String() string {
	switch p {
	case High:
		return "high"
	case Medium:
		return "medium"
	default:
		return "low"
	}
}

// MarshalJSON writes the priority name
func (p Priority) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON reads a priority name
func (p *Priority) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	switch name {
	case "high":
		*p = High
	case "medium":
		*p = Medium
	case "low":
		*p = Low
	default:
		return fmt.Errorf("unknown priority %q", name)
	}
	return nil
}

// Recommendation is one piece of categorized advice
type Recommendation struct {
	Category   string   `json:"category"`
	Suggestion string   `json:"suggestion"`
	Parameter  string   `json:"parameter,omitempty"`
	Priority   Priority `json:"priority"`
}

const (
	// CategoryGeneral is used when nothing could be compared
	CategoryGeneral = "General"
	// CategoryGatekeeper carries weighted-mode alerts
	CategoryGatekeeper = "Gatekeeper"

	insufficientData = "Insufficient data for comparison"
)

// Generate applies the rule table to a comparison. Alerts from a weighted
// comparison come first within each priority, then rules in table order.
// The output depends only on the result.
func Generate(result *comparison.Result) []Recommendation {
	if result.Empty() {
		return []Recommendation{{
			Category:   CategoryGeneral,
			Suggestion: insufficientData,
			Priority:   Low,
		}}
	}

	recommendations := FromAlerts(result.Alerts)
	for _, rule := range Rules {
		d, ok := result.Deviation(rule.Parameter)
		if !ok {
			continue
		}
		if rec, ok := rule.apply(d); ok {
			recommendations = append(recommendations, rec)
		}
	}

	slices.SortStableFunc(recommendations, func(a, b Recommendation) int {
		return int(b.Priority) - int(a.Priority)
	})
	return recommendations
}

// FromAlerts converts weighted-mode alerts into recommendations
func FromAlerts(alerts []comparison.Alert) []Recommendation {
	var recommendations []Recommendation
	for _, alert := range alerts {
		priority := Medium
		if alert.Severity == comparison.SeverityCritical {
			priority = High
		}
		recommendations = append(recommendations, Recommendation{
			Category:   CategoryGatekeeper,
			Suggestion: fmt.Sprintf("%s: %s", alert.Severity, alert.Message),
			Parameter:  alert.Parameter,
			Priority:   priority,
		})
	}
	return recommendations
}

func (r Rule) apply(d comparison.Deviation) (Recommendation, bool) {
	var magnitude float64
	switch r.Measure {
	case Percent:
		if d.PercentDiff == nil {
			return Recommendation{}, false
		}
		magnitude = math.Abs(*d.PercentDiff)
	default:
		magnitude = math.Abs(d.AbsoluteDiff)
	}
	if magnitude <= r.Trigger {
		return Recommendation{}, false
	}

	priority := Medium
	if magnitude > r.Severe {
		priority = High
	}

	advice := r.Above
	if d.AbsoluteDiff < 0 {
		advice = r.Below
	}

	return Recommendation{
		Category:   r.Category,
		Suggestion: fmt.Sprintf("%s (yours %s, reference %s, %s)", advice, fmt.Sprintf(r.Format, d.Candidate), fmt.Sprintf(r.Format, d.Reference), describe(d)),
		Parameter:  r.Parameter,
		Priority:   priority,
	}, true
}

// describe formats the signed difference, preferring percent
func describe(d comparison.Deviation) string {
	if d.PercentDiff != nil {
		return fmt.Sprintf("%+.1f%%", *d.PercentDiff)
	}
	return fmt.Sprintf("%+.3g", d.AbsoluteDiff)
}

// MatchScore rates overall similarity from 0 to 100: the mean over
// parameters with a defined percent difference of max(0, 100 - 1.5·|percent|),
// rounded to one decimal. It is 0 when no percent difference is defined.
func MatchScore(result *comparison.Result) float64 {
	if result.Empty() {
		return 0
	}

	sum := 0.0
	count := 0
	for _, name := range result.Parameters() {
		d := result.Deviations[name]
		if d.PercentDiff == nil {
			continue
		}
		sum += math.Max(0, 100-1.5*math.Abs(*d.PercentDiff))
		count++
	}
	if count == 0 {
		return 0
	}
	return math.Round(sum/float64(count)*10) / 10
}

// ScoreStatus buckets a match score
func ScoreStatus(score float64) string {
	switch {
	case score >= 80:
		return "perfect"
	case score >= 60:
		return "good"
	case score >= 40:
		return "warning"
	default:
		return "critical"
	}
}
