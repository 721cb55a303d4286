package recommend

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-match/analysis/comparison"
	"github.com/RyanBlaney/sonido-match/analysis/features"
)

func result(deviations map[string]comparison.Deviation) *comparison.Result {
	return &comparison.Result{Mode: comparison.ModePlaylist, Deviations: deviations}
}

func TestRules_CoverCatalogue(t *testing.T) {
	for _, d := range features.Catalogue() {
		rule, ok := RuleFor(d.Name)
		require.True(t, ok, d.Name)
		assert.Less(t, rule.Trigger, rule.Severe, d.Name)
		assert.NotEmpty(t, rule.Above, d.Name)
		assert.NotEmpty(t, rule.Below, d.Name)
	}
	assert.Len(t, Rules, len(features.Catalogue()))
}

func TestGenerate_FasterTempo(t *testing.T) {
	recs := Generate(result(map[string]comparison.Deviation{
		features.BPM: comparison.NewDeviation(140, 124),
	}))

	require.Len(t, recs, 1)
	assert.Equal(t, "Tempo", recs[0].Category)
	assert.Equal(t, features.BPM, recs[0].Parameter)
	assert.Equal(t, Medium, recs[0].Priority)
	assert.Contains(t, recs[0].Suggestion, "Slow the tempo down")
	assert.Contains(t, recs[0].Suggestion, "+12.9%")
}

func TestGenerate_PriorityThresholds(t *testing.T) {
	tests := []struct {
		name      string
		candidate float64
		want      []Priority
	}{
		{"within trigger", 130, nil},
		{"medium", 140, []Priority{Medium}},
		{"high", 170, []Priority{High}},
		{"slower", 80, []Priority{High}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs := Generate(result(map[string]comparison.Deviation{
				features.BPM: comparison.NewDeviation(tt.candidate, 124),
			}))
			var got []Priority
			for _, r := range recs {
				got = append(got, r.Priority)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGenerate_AbsoluteLoudness(t *testing.T) {
	recs := Generate(result(map[string]comparison.Deviation{
		features.Loudness: comparison.NewDeviation(-14, -9),
	}))
	require.Len(t, recs, 1)
	assert.Equal(t, "Mastering", recs[0].Category)
	assert.Equal(t, High, recs[0].Priority)
	assert.Contains(t, recs[0].Suggestion, "Increase mastering gain")
}

func TestGenerate_SkipsUndefinedPercent(t *testing.T) {
	recs := Generate(result(map[string]comparison.Deviation{
		features.BPM:    comparison.NewDeviation(0, 124),
		features.Energy: comparison.NewDeviation(0.2, 0.1),
	}))
	require.Len(t, recs, 1)
	assert.Equal(t, features.Energy, recs[0].Parameter)
}

func TestGenerate_EmptyResult(t *testing.T) {
	want := []Recommendation{{Category: CategoryGeneral, Suggestion: "Insufficient data for comparison", Priority: Low}}
	assert.Equal(t, want, Generate(nil))
	assert.Equal(t, want, Generate(result(nil)))
}

func TestGenerate_OrderedAndDeterministic(t *testing.T) {
	deviations := map[string]comparison.Deviation{
		features.BPM:              comparison.NewDeviation(140, 124),   // medium
		features.Loudness:         comparison.NewDeviation(-5, -10),    // high
		features.SpectralCentroid: comparison.NewDeviation(1000, 2000), // high
		features.Energy:           comparison.NewDeviation(0.12, 0.1),  // medium
	}

	first := Generate(result(deviations))
	var order []string
	for _, r := range first {
		order = append(order, r.Parameter)
	}
	assert.Equal(t, []string{features.Loudness, features.SpectralCentroid, features.BPM, features.Energy}, order)

	for range 20 {
		assert.Equal(t, first, Generate(result(deviations)))
	}
}

func TestGenerate_AlertsFirstWithinPriority(t *testing.T) {
	r := result(map[string]comparison.Deviation{
		features.Loudness: comparison.NewDeviation(-5, -10),
	})
	r.Mode = comparison.ModeWeighted
	r.Alerts = []comparison.Alert{{
		Parameter: features.Loudness,
		Severity:  comparison.SeverityCritical,
		WeightedZ: 2.5,
		Message:   "loudness is 2.50 weighted std above ref.wav",
	}}

	recs := Generate(r)
	require.Len(t, recs, 2)
	assert.Equal(t, CategoryGatekeeper, recs[0].Category)
	assert.Equal(t, High, recs[0].Priority)
	assert.Equal(t, "CRITICAL: loudness is 2.50 weighted std above ref.wav", recs[0].Suggestion)
	assert.Equal(t, "Mastering", recs[1].Category)
}

func TestFromAlerts(t *testing.T) {
	recs := FromAlerts([]comparison.Alert{
		{Parameter: features.BPM, Severity: comparison.SeverityWarning, Message: "m"},
	})
	require.Len(t, recs, 1)
	assert.Equal(t, Medium, recs[0].Priority)
	assert.Nil(t, FromAlerts(nil))
}

func TestMatchScore(t *testing.T) {
	// 16/124 = 12.903%: 100 - 19.35 = 80.65; exact match: 100
	r := result(map[string]comparison.Deviation{
		features.BPM:      comparison.NewDeviation(140, 124),
		features.Energy:   comparison.NewDeviation(0.1, 0.1),
		features.TruePeak: comparison.NewDeviation(-1, 0),
	})
	assert.InDelta(t, 90.3, MatchScore(r), 1e-9)

	assert.Equal(t, 0.0, MatchScore(result(nil)))
	assert.Equal(t, 0.0, MatchScore(result(map[string]comparison.Deviation{
		features.TruePeak: comparison.NewDeviation(-1, 0),
	})))

	far := result(map[string]comparison.Deviation{
		features.BPM: comparison.NewDeviation(300, 100),
	})
	assert.Equal(t, 0.0, MatchScore(far))
}

func TestScoreStatus(t *testing.T) {
	assert.Equal(t, "perfect", ScoreStatus(80))
	assert.Equal(t, "good", ScoreStatus(79.9))
	assert.Equal(t, "good", ScoreStatus(60))
	assert.Equal(t, "warning", ScoreStatus(40))
	assert.Equal(t, "critical", ScoreStatus(39.9))
}

func TestPriority_JSON(t *testing.T) {
	data, err := json.Marshal(Recommendation{Category: "Tempo", Suggestion: "s", Priority: High})
	require.NoError(t, err)
	assert.JSONEq(t, `{"category":"Tempo","suggestion":"s","priority":"high"}`, string(data))

	var rec Recommendation
	require.NoError(t, json.Unmarshal(data, &rec))
	assert.Equal(t, High, rec.Priority)
	assert.Error(t, json.Unmarshal([]byte(`{"priority":"urgent"}`), &rec))
}
