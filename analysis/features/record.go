package features

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
)

var (
	// ErrNonFinite is returned when a NaN or infinite value is offered to a Record
	ErrNonFinite = errors.New("non-finite parameter value")

	// ErrUnknownParameter is matched by UnknownParameterError
	ErrUnknownParameter = errors.New("unknown parameter")
)

// UnknownParameterError names a parameter that is not in the catalogue
type UnknownParameterError struct {
	Name string
}

func (e *UnknownParameterError) Error() string {
	return fmt.Sprintf("unknown parameter %q", e.Name)
}

func (e *UnknownParameterError) Is(target error) bool {
	return target == ErrUnknownParameter
}

const (
	filenameKey = "filename"
	keyKey      = "key"
)

// Record holds the descriptors extracted from one track. A parameter that
// could not be computed is absent; every stored value is finite.
type Record struct {
	Filename string
	// Key is the estimated musical key, e.g. "A Minor". Reporting only.
	Key string

	values map[string]float64
}

// NewRecord creates an empty record for filename
func NewRecord(filename string) *Record {
	return &Record{
		Filename: filename,
		values:   make(map[string]float64),
	}
}

// FromMap builds a record from a flat value map, rejecting non-finite values
func FromMap(filename string, values map[string]float64) (*Record, error) {
	r := NewRecord(filename)
	for _, name := range slices.Sorted(maps.Keys(values)) {
		if !r.Set(name, values[name]) {
			return nil, fmt.Errorf("%s=%v: %w", name, values[name], ErrNonFinite)
		}
	}
	return r, nil
}

// Set stores value under name. Non-finite values are not stored and Set
// reports false.
func (r *Record) Set(name string, value float64) bool {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return false
	}
	if r.values == nil {
		r.values = make(map[string]float64)
	}
	r.values[name] = value
	return true
}

// Get returns the value for name and whether it is present
func (r *Record) Get(name string) (float64, bool) {
	if r == nil {
		return 0, false
	}
	v, ok := r.values[name]
	return v, ok
}

// Has reports whether name is present
func (r *Record) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Delete removes name
func (r *Record) Delete(name string) {
	delete(r.values, name)
}

// Len returns the number of present parameters
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.values)
}

// Names returns the present parameter names in catalogue order
func (r *Record) Names() []string {
	if r == nil {
		return nil
	}
	return Ordered(slices.Collect(maps.Keys(r.values)))
}

// Values returns a copy of the parameter map
func (r *Record) Values() map[string]float64 {
	if r == nil {
		return map[string]float64{}
	}
	return maps.Clone(r.values)
}

// Clone returns a deep copy
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	return &Record{
		Filename: r.Filename,
		Key:      r.Key,
		values:   maps.Clone(r.values),
	}
}

// MarshalJSON writes the flat form {"filename": ..., "key": ..., "<param>": number}
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	name, err := json.Marshal(r.Filename)
	if err != nil {
		return nil, err
	}
	buf.WriteString(`"filename":`)
	buf.Write(name)

	if r.Key != "" {
		key, err := json.Marshal(r.Key)
		if err != nil {
			return nil, err
		}
		buf.WriteString(`,"key":`)
		buf.Write(key)
	}

	for _, param := range r.Names() {
		encoded, err := json.Marshal(r.values[param])
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", param, err)
		}
		fmt.Fprintf(&buf, ",%q:", param)
		buf.Write(encoded)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the flat form. null values are treated as absent.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}

	decoded := NewRecord("")
	for name, value := range raw {
		if bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
			continue
		}

		switch name {
		case filenameKey:
			if err := json.Unmarshal(value, &decoded.Filename); err != nil {
				return fmt.Errorf("decode filename: %w", err)
			}
		case keyKey:
			if err := json.Unmarshal(value, &decoded.Key); err != nil {
				return fmt.Errorf("decode key: %w", err)
			}
		default:
			var v float64
			if err := json.Unmarshal(value, &v); err != nil {
				return fmt.Errorf("decode %s: %w", name, err)
			}
			if !decoded.Set(name, v) {
				return fmt.Errorf("decode %s: %w", name, ErrNonFinite)
			}
		}
	}

	*r = *decoded
	return nil
}
