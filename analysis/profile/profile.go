package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"

	"github.com/RyanBlaney/sonido-match/analysis/features"
)

// ErrInvalidPreset is returned when an imported profile entry is unusable
var ErrInvalidPreset = errors.New("invalid profile preset")

// Stat summarises one parameter across a reference set
type Stat struct {
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"` // sample standard deviation (N-1)
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int     `json:"count"` // contributing tracks; 0 when unknown (preset)
}

// Profile is the per-parameter statistical summary of a reference set.
// It is immutable once built.
type Profile struct {
	stats map[string]Stat
}

// Aggregate summarises records. Each parameter is computed over the records
// that carry it; missing values are never imputed. Values are sorted before
// reduction so the result does not depend on record order.
func Aggregate(records []*features.Record) *Profile {
	columns := make(map[string][]float64)
	for _, r := range records {
		if r == nil {
			continue
		}
		for name, v := range r.Values() {
			columns[name] = append(columns[name], v)
		}
	}

	stats := make(map[string]Stat, len(columns))
	for name, values := range columns {
		slices.Sort(values)

		s := Stat{
			Mean:  stat.Mean(values, nil),
			Min:   values[0],
			Max:   values[len(values)-1],
			Count: len(values),
		}
		if len(values) > 1 {
			s.Std = math.Sqrt(stat.Variance(values, nil))
		}
		stats[name] = s
	}

	return &Profile{stats: stats}
}

// FromStats builds a profile from precomputed statistics, e.g. a preset
func FromStats(stats map[string]Stat) (*Profile, error) {
	for name, s := range stats {
		if err := checkStat(s); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPreset, name, err)
		}
	}
	return &Profile{stats: maps.Clone(stats)}, nil
}

func checkStat(s Stat) error {
	for _, v := range []float64{s.Mean, s.Std, s.Min, s.Max} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.New("non-finite value")
		}
	}
	if s.Std < 0 {
		return errors.New("negative std")
	}
	if s.Count < 0 {
		return errors.New("negative count")
	}
	return nil
}

// Get returns the statistics for a parameter
func (p *Profile) Get(name string) (Stat, bool) {
	if p == nil {
		return Stat{}, false
	}
	s, ok := p.stats[name]
	return s, ok
}

// Has reports whether the profile covers name
func (p *Profile) Has(name string) bool {
	_, ok := p.Get(name)
	return ok
}

// Len returns the number of parameters
func (p *Profile) Len() int {
	if p == nil {
		return 0
	}
	return len(p.stats)
}

// Names returns the covered parameters in catalogue order
func (p *Profile) Names() []string {
	if p == nil {
		return nil
	}
	return features.Ordered(slices.Collect(maps.Keys(p.stats)))
}

// Stats returns a copy of every parameter's statistics
func (p *Profile) Stats() map[string]Stat {
	if p == nil {
		return map[string]Stat{}
	}
	return maps.Clone(p.stats)
}

// MarshalJSON writes the flat preset form {"param": {"mean", "std", "min", "max", "count"}}
func (p *Profile) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Stats())
}

// presetEntry mirrors Stat with optional fields
type presetEntry struct {
	Mean  *float64 `json:"mean"`
	Std   *float64 `json:"std"`
	Min   *float64 `json:"min"`
	Max   *float64 `json:"max"`
	Count *int     `json:"count"`
}

// UnmarshalJSON reads the flat preset form. mean is required; std defaults
// to 0, min and max default to the mean and count defaults to 0.
func (p *Profile) UnmarshalJSON(data []byte) error {
	var raw map[string]presetEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPreset, err)
	}

	stats := make(map[string]Stat, len(raw))
	for name, entry := range raw {
		if entry.Mean == nil {
			return fmt.Errorf("%w: %s: missing mean", ErrInvalidPreset, name)
		}
		s := Stat{Mean: *entry.Mean, Min: *entry.Mean, Max: *entry.Mean}
		if entry.Std != nil {
			s.Std = *entry.Std
		}
		if entry.Min != nil {
			s.Min = *entry.Min
		}
		if entry.Max != nil {
			s.Max = *entry.Max
		}
		if entry.Count != nil {
			s.Count = *entry.Count
		}
		stats[name] = s
	}

	profile, err := FromStats(stats)
	if err != nil {
		return err
	}
	*p = *profile
	return nil
}

// Import decodes a flat preset
func Import(data []byte) (*Profile, error) {
	p := &Profile{}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, err
	}
	return p, nil
}
