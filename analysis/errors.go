package analysis

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientReferenceData is matched by InsufficientReferenceDataError
	ErrInsufficientReferenceData = errors.New("insufficient reference data")

	// ErrTooManyTracks is returned when a reference set exceeds MaxTracks
	ErrTooManyTracks = errors.New("too many reference tracks")

	// ErrModeMismatch is returned when a reference cannot serve the requested mode
	ErrModeMismatch = errors.New("reference does not support comparison mode")
)

// InsufficientReferenceDataError reports a reference set with fewer usable
// tracks than required. Cause holds the per-track failures, if any.
type InsufficientReferenceDataError struct {
	Got   int
	Min   int
	Cause error
}

func (e *InsufficientReferenceDataError) Error() string {
	msg := fmt.Sprintf("insufficient reference data: %d usable tracks, need at least %d", e.Got, e.Min)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *InsufficientReferenceDataError) Is(target error) bool {
	return target == ErrInsufficientReferenceData
}

func (e *InsufficientReferenceDataError) Unwrap() error {
	return e.Cause
}
