package analysis

import (
	"context"
	"encoding/json"
	"math"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/RyanBlaney/sonido-match/analysis/comparison"
	"github.com/RyanBlaney/sonido-match/analysis/config"
	"github.com/RyanBlaney/sonido-match/analysis/extractors"
	"github.com/RyanBlaney/sonido-match/analysis/features"
	"github.com/RyanBlaney/sonido-match/analysis/profile"
	"github.com/RyanBlaney/sonido-match/transcode"
)

const sampleRate = 22050

var cheap = features.NewParamSet(features.Energy, features.RMS, features.SpectralCentroid)

func tone(name string, freq, amplitude float64) *transcode.AudioData {
	pcm := make([]float64, sampleRate)
	for i := range pcm {
		pcm[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/sampleRate)
	}
	return transcode.NewAudioData(pcm, sampleRate, 1, name)
}

func silentFile(name string) *transcode.AudioData {
	return transcode.NewAudioData(nil, sampleRate, 1, name)
}

func newAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	cfg := config.DefaultAnalyzerConfig()
	cfg.Workers = 2
	a, err := NewAnalyzer(cfg)
	require.NoError(t, err)
	return a
}

func record(t *testing.T, name string, values map[string]float64) *features.Record {
	t.Helper()
	r, err := features.FromMap(name, values)
	require.NoError(t, err)
	return r
}

func TestNewAnalyzer_RejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultAnalyzerConfig()
	cfg.MinTracks = 5
	cfg.MaxTracks = 3
	_, err := NewAnalyzer(cfg)
	assert.Error(t, err)
}

func TestAnalyzeReferenceSet_Aggregates(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	tracks := []*transcode.AudioData{
		tone("a.wav", 440, 0.2),
		tone("b.wav", 660, 0.4),
		tone("c.wav", 880, 0.6),
	}

	set, err := newAnalyzer(t).AnalyzeReferenceSet(context.Background(), tracks, cheap)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, set.ID)
	assert.Empty(t, set.Failures)
	require.Len(t, set.Records, 3)
	for i, want := range []string{"a.wav", "b.wav", "c.wav"} {
		assert.Equal(t, want, set.Records[i].Filename)
	}

	energy, ok := set.Profile.Get(features.Energy)
	require.True(t, ok)
	assert.Equal(t, 3, energy.Count)
	assert.InDelta(t, (0.02+0.08+0.18)/3, energy.Mean, 1e-3)
	assert.InDelta(t, 0.02, energy.Min, 1e-3)
	assert.InDelta(t, 0.18, energy.Max, 1e-3)

	assert.False(t, set.Profile.Has(features.BPM), "only requested parameters are aggregated")
}

func TestAnalyzeReferenceSet_ReportsBadTrack(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	tracks := []*transcode.AudioData{
		tone("a.wav", 440, 0.2),
		silentFile("bad.wav"),
		tone("b.wav", 660, 0.4),
		tone("c.wav", 880, 0.6),
	}

	set, err := newAnalyzer(t).AnalyzeReferenceSet(context.Background(), tracks, cheap)
	require.NoError(t, err)

	assert.Len(t, set.Records, 3)
	require.Len(t, set.Failures, 1)
	assert.Equal(t, "bad.wav", set.Failures[0].Filename)
	assert.ErrorIs(t, set.Failures[0], extractors.ErrEmptySignal)

	energy, _ := set.Profile.Get(features.Energy)
	assert.Equal(t, 3, energy.Count)
}

func TestAnalyzeReferenceSet_SizePolicy(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })
	a := newAnalyzer(t)

	_, err := a.AnalyzeReferenceSet(context.Background(), []*transcode.AudioData{tone("a.wav", 440, 0.5)}, cheap)
	require.ErrorIs(t, err, ErrInsufficientReferenceData)
	var insufficient *InsufficientReferenceDataError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 1, insufficient.Got)
	assert.Equal(t, 2, insufficient.Min)

	// Checked before extraction, so the entries are never touched
	_, err = a.AnalyzeReferenceSet(context.Background(), make([]*transcode.AudioData, 31), cheap)
	assert.ErrorIs(t, err, ErrTooManyTracks)
}

func TestAnalyzeReferenceSet_TooFewSurvivors(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	tracks := []*transcode.AudioData{
		tone("a.wav", 440, 0.2),
		silentFile("bad1.wav"),
		silentFile("bad2.wav"),
	}

	_, err := newAnalyzer(t).AnalyzeReferenceSet(context.Background(), tracks, cheap)
	var insufficient *InsufficientReferenceDataError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 1, insufficient.Got)
	assert.ErrorIs(t, err, extractors.ErrEmptySignal)
	assert.Contains(t, err.Error(), "bad1.wav")
	assert.Contains(t, err.Error(), "bad2.wav")
}

func TestAnalyzeReferenceSet_Cancelled(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tracks := []*transcode.AudioData{
		tone("a.wav", 440, 0.2),
		tone("b.wav", 660, 0.4),
	}
	set, err := newAnalyzer(t).AnalyzeReferenceSet(ctx, tracks, cheap)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, set)
}

// bpmSet is the reference scenario: three tracks at 120, 124 and 128 BPM
func bpmSet(t *testing.T) *ReferenceSet {
	t.Helper()
	return NewReferenceSet([]*features.Record{
		record(t, "r1.wav", map[string]float64{features.BPM: 120, features.Energy: 0.10, features.BeatStrength: 0.5}),
		record(t, "r2.wav", map[string]float64{features.BPM: 124, features.Energy: 0.12, features.BeatStrength: 0.6}),
		record(t, "r3.wav", map[string]float64{features.BPM: 128, features.Energy: 0.14, features.BeatStrength: 0.7}),
	})
}

func TestCompareRecord_PlaylistScenario(t *testing.T) {
	set := bpmSet(t)
	bpm, _ := set.Profile.Get(features.BPM)
	assert.Equal(t, profile.Stat{Mean: 124, Std: 4, Min: 120, Max: 128, Count: 3}, bpm)

	candidate := record(t, "cand.wav", map[string]float64{features.BPM: 140, features.Energy: 0.12})
	report, err := newAnalyzer(t).CompareRecord(candidate, Reference{Set: set}, comparison.ModePlaylist, nil)
	require.NoError(t, err)

	d, ok := report.Result.Deviation(features.BPM)
	require.True(t, ok)
	assert.Equal(t, 16.0, d.AbsoluteDiff)
	require.NotNil(t, d.PercentDiff)
	assert.InDelta(t, 12.903, *d.PercentDiff, 1e-3)

	require.NotEmpty(t, report.Recommendations)
	assert.Equal(t, "Tempo", report.Recommendations[0].Category)
	assert.Equal(t, features.BPM, report.Recommendations[0].Parameter)
	assert.Empty(t, report.Alerts)
	assert.InDelta(t, 90.3, report.MatchScore, 1e-9)
	assert.Equal(t, "perfect", report.Status)
}

func TestCompareRecord_TrackMode(t *testing.T) {
	reference := record(t, "ref.wav", map[string]float64{features.BPM: 124})
	candidate := record(t, "cand.wav", map[string]float64{features.BPM: 124})

	report, err := newAnalyzer(t).CompareRecord(candidate, Reference{Track: reference}, comparison.ModeTrack, nil)
	require.NoError(t, err)
	assert.Equal(t, comparison.ModeTrack, report.Mode)
	assert.Equal(t, 100.0, report.MatchScore)
	assert.Empty(t, report.Recommendations, "no rule fires on an exact match")
}

func TestCompareRecord_WeightedAlerts(t *testing.T) {
	set := bpmSet(t)
	candidate := record(t, "cand.wav", map[string]float64{
		features.BPM:          140,
		features.Energy:       0.12,
		features.BeatStrength: 0.6,
	})

	report, err := newAnalyzer(t).CompareRecord(candidate, Reference{Set: set}, comparison.ModeWeighted, nil)
	require.NoError(t, err)

	require.NotNil(t, report.Result.Nearest)
	assert.Equal(t, "r3.wav", report.Result.Nearest.Filename)

	// (140 - 128) / 4 = 3 weighted std on bpm
	require.Len(t, report.Alerts, 1)
	assert.Equal(t, features.BPM, report.Alerts[0].Parameter)
	assert.Equal(t, comparison.SeverityCritical, report.Alerts[0].Severity)
	assert.Equal(t, "Gatekeeper", report.Recommendations[0].Category)
}

func TestCompareRecord_ModeMismatch(t *testing.T) {
	a := newAnalyzer(t)
	set := bpmSet(t)
	candidate := record(t, "cand.wav", map[string]float64{features.BPM: 140})

	tests := []struct {
		name string
		ref  Reference
		mode comparison.Mode
	}{
		{"track without track", Reference{Set: set}, comparison.ModeTrack},
		{"weighted without set", Reference{Profile: set.Profile}, comparison.ModeWeighted},
		{"playlist without profile", Reference{Track: candidate}, comparison.ModePlaylist},
		{"unknown mode", Reference{Set: set}, comparison.Mode("nearest")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.CompareRecord(candidate, tt.ref, tt.mode, nil)
			assert.ErrorIs(t, err, ErrModeMismatch)
		})
	}
}

func TestCompareRecord_WeightedNeedsTracks(t *testing.T) {
	set := bpmSet(t)
	set.Records = nil
	candidate := record(t, "cand.wav", map[string]float64{features.BPM: 140})

	_, err := newAnalyzer(t).CompareRecord(candidate, Reference{Set: set}, comparison.ModeWeighted, nil)
	assert.ErrorIs(t, err, comparison.ErrNoReferenceTracks)
}

func TestReferenceSet_JSONRoundTripPreservesComparisons(t *testing.T) {
	set := bpmSet(t)
	set.Failures = append(set.Failures, &extractors.ExtractionError{Filename: "bad.wav", Err: extractors.ErrEmptySignal})

	data, err := json.Marshal(set)
	require.NoError(t, err)

	var decoded ReferenceSet
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, set.ID, decoded.ID)
	require.Len(t, decoded.Failures, 1)
	assert.Equal(t, "bad.wav", decoded.Failures[0].Filename)
	assert.EqualError(t, decoded.Failures[0].Err, extractors.ErrEmptySignal.Error())

	a := newAnalyzer(t)
	candidate := record(t, "cand.wav", map[string]float64{features.BPM: 131.5, features.Energy: 0.15, features.BeatStrength: 0.4})
	for _, mode := range []comparison.Mode{comparison.ModePlaylist, comparison.ModeWeighted} {
		want, err := a.CompareRecord(candidate, Reference{Set: set}, mode, nil)
		require.NoError(t, err)
		got, err := a.CompareRecord(candidate, Reference{Set: &decoded}, mode, nil)
		require.NoError(t, err)
		assert.Equal(t, want.Result, got.Result, mode)
		assert.Equal(t, want.Recommendations, got.Recommendations, mode)
	}
}

func TestReferenceSet_UnmarshalRebuildsMissingProfile(t *testing.T) {
	var decoded ReferenceSet
	require.NoError(t, json.Unmarshal([]byte(`{"tracks":[{"filename":"a.wav","bpm":120},{"filename":"b.wav","bpm":128}]}`), &decoded))

	bpm, ok := decoded.Profile.Get(features.BPM)
	require.True(t, ok)
	assert.Equal(t, 124.0, bpm.Mean)
	assert.Equal(t, 2, bpm.Count)
}

func TestDecodeReference_DispatchesOnKind(t *testing.T) {
	set := bpmSet(t)
	data, err := json.Marshal(set)
	require.NoError(t, err)

	var header struct {
		Kind    string `json:"kind"`
		Version int    `json:"version"`
	}
	require.NoError(t, json.Unmarshal(data, &header))
	assert.Equal(t, ReferenceSetKind, header.Kind)
	assert.Equal(t, ReferenceSetVersion, header.Version)

	ref, err := DecodeReference(data)
	require.NoError(t, err)
	require.NotNil(t, ref.Set)
	assert.Nil(t, ref.Profile)
	assert.Equal(t, set.ID, ref.Set.ID)
	assert.Len(t, ref.Set.Records, len(set.Records))

	ref, err = DecodeReference([]byte(`{"bpm":{"mean":124,"std":4},"energy":{"mean":0.2}}`))
	require.NoError(t, err)
	assert.Nil(t, ref.Set)
	require.NotNil(t, ref.Profile)
	assert.True(t, ref.Profile.Has(features.BPM))
}

func TestDecodeReference_RejectsForeignDocuments(t *testing.T) {
	tests := map[string]string{
		"not json":       `[1, 2`,
		"future version": `{"kind":"sonido-match/reference-set","version":99,"tracks":[]}`,
		"unknown kind":   `{"kind":"something-else","tracks":[]}`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeReference([]byte(doc))
			assert.Error(t, err)
		})
	}

	var set ReferenceSet
	assert.Error(t, json.Unmarshal([]byte(`{"kind":"something-else"}`), &set))
}

func TestCompareCandidate_Audio(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })
	a := newAnalyzer(t)

	set, err := a.AnalyzeReferenceSet(context.Background(), []*transcode.AudioData{
		tone("a.wav", 1000, 0.5),
		tone("b.wav", 1000, 0.5),
	}, cheap)
	require.NoError(t, err)

	report, err := a.CompareCandidate(tone("cand.wav", 1000, 0.5), Reference{Set: set}, comparison.ModePlaylist, cheap)
	require.NoError(t, err)
	assert.Equal(t, "cand.wav", report.Candidate.Filename)
	assert.InDelta(t, 100, report.MatchScore, 0.1)

	_, err = a.CompareCandidate(silentFile("bad.wav"), Reference{Set: set}, comparison.ModePlaylist, cheap)
	var extractionErr *extractors.ExtractionError
	require.ErrorAs(t, err, &extractionErr)
	assert.Equal(t, "bad.wav", extractionErr.Filename)
}

func TestCompareRecord_Concurrent(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })
	a := newAnalyzer(t)
	set := bpmSet(t)
	candidate := record(t, "cand.wav", map[string]float64{features.BPM: 140, features.Energy: 0.2})

	want, err := a.CompareRecord(candidate, Reference{Set: set}, comparison.ModeWeighted, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := a.CompareRecord(candidate, Reference{Set: set}, comparison.ModeWeighted, nil)
			assert.NoError(t, err)
			assert.Equal(t, want.Result, got.Result)
		}()
	}
	wg.Wait()
}
