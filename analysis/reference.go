package analysis

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/RyanBlaney/sonido-match/analysis/extractors"
	"github.com/RyanBlaney/sonido-match/analysis/features"
	"github.com/RyanBlaney/sonido-match/analysis/profile"
)

const (
	// ReferenceSetKind marks a serialised reference set
	ReferenceSetKind = "sonido-match/reference-set"
	// ReferenceSetVersion is the current reference set layout
	ReferenceSetVersion = 1
)

// ReferenceSet is an analysed group of reference tracks: the aggregated
// profile plus the per-track records the weighted mode searches
type ReferenceSet struct {
	ID       uuid.UUID
	Profile  *profile.Profile
	Records  []*features.Record
	Failures []*extractors.ExtractionError
}

// NewReferenceSet aggregates records into a reference set with a fresh ID
func NewReferenceSet(records []*features.Record) *ReferenceSet {
	return &ReferenceSet{
		ID:      uuid.New(),
		Profile: profile.Aggregate(records),
		Records: records,
	}
}

type failureJSON struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

type referenceSetJSON struct {
	Kind     string             `json:"kind"`
	Version  int                `json:"version"`
	ID       uuid.UUID          `json:"id"`
	Profile  *profile.Profile   `json:"profile"`
	Tracks   []*features.Record `json:"tracks"`
	Failures []failureJSON      `json:"failures"`
}

// MarshalJSON writes {"kind", "version", "id", "profile", "tracks", "failures"}
func (rs *ReferenceSet) MarshalJSON() ([]byte, error) {
	out := referenceSetJSON{
		Kind:     ReferenceSetKind,
		Version:  ReferenceSetVersion,
		ID:       rs.ID,
		Profile:  rs.Profile,
		Tracks:   rs.Records,
		Failures: make([]failureJSON, 0, len(rs.Failures)),
	}
	if out.Tracks == nil {
		out.Tracks = []*features.Record{}
	}
	for _, f := range rs.Failures {
		msg := ""
		if f.Err != nil {
			msg = f.Err.Error()
		}
		out.Failures = append(out.Failures, failureJSON{Filename: f.Filename, Error: msg})
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads the form written by MarshalJSON. A missing profile is
// rebuilt from the tracks; a missing kind is accepted.
func (rs *ReferenceSet) UnmarshalJSON(data []byte) error {
	var in referenceSetJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("decode reference set: %w", err)
	}
	if in.Kind != "" && in.Kind != ReferenceSetKind {
		return fmt.Errorf("decode reference set: unexpected kind %q", in.Kind)
	}
	if in.Version > ReferenceSetVersion {
		return fmt.Errorf("decode reference set: unsupported version %d", in.Version)
	}

	decoded := ReferenceSet{
		ID:      in.ID,
		Profile: in.Profile,
		Records: in.Tracks,
	}
	if decoded.Profile == nil {
		decoded.Profile = profile.Aggregate(in.Tracks)
	}
	for _, f := range in.Failures {
		decoded.Failures = append(decoded.Failures, &extractors.ExtractionError{
			Filename: f.Filename,
			Err:      errors.New(f.Error),
		})
	}

	*rs = decoded
	return nil
}

// Reference is what a candidate is compared against. Playlist mode needs a
// profile (directly or from Set), track mode needs Track, and weighted mode
// needs a Set with its records.
type Reference struct {
	Set     *ReferenceSet
	Profile *profile.Profile
	Track   *features.Record
}

// DecodeReference reads a reference file. Documents marked with
// ReferenceSetKind decode as a ReferenceSet; anything else is read as a
// flat profile preset.
func DecodeReference(data []byte) (Reference, error) {
	var header struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return Reference{}, fmt.Errorf("decode reference: %w", err)
	}

	if header.Kind == ReferenceSetKind {
		var set ReferenceSet
		if err := json.Unmarshal(data, &set); err != nil {
			return Reference{}, err
		}
		return Reference{Set: &set}, nil
	}

	preset, err := profile.Import(data)
	if err != nil {
		return Reference{}, err
	}
	return Reference{Profile: preset}, nil
}

func (r Reference) profile() *profile.Profile {
	if r.Profile != nil {
		return r.Profile
	}
	if r.Set != nil {
		return r.Set.Profile
	}
	return nil
}
