package extractors

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptySignal is returned for audio with no samples
	ErrEmptySignal = errors.New("empty signal")

	// ErrInvalidSignal is returned for audio whose format fields are unusable
	ErrInvalidSignal = errors.New("invalid signal")
)

// ExtractionError reports that a whole track could not be analysed
type ExtractionError struct {
	Filename string
	Err      error
}

func (e *ExtractionError) Error() string {
	if e.Filename == "" {
		return fmt.Sprintf("feature extraction failed: %v", e.Err)
	}
	return fmt.Sprintf("feature extraction failed for %s: %v", e.Filename, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}
