package extractors

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-match/analysis/config"
	"github.com/RyanBlaney/sonido-match/analysis/features"
	"github.com/RyanBlaney/sonido-match/logging"
	"github.com/RyanBlaney/sonido-match/transcode"
)

// Extractor computes the descriptor catalogue for a track. It holds no
// per-track state and is safe for concurrent use.
type Extractor struct {
	config config.ExtractionConfig
	logger logging.Logger
}

// NewExtractor creates a new feature extractor
func NewExtractor(cfg config.ExtractionConfig) *Extractor {
	return &Extractor{
		config: cfg,
		logger: logging.WithFields(logging.Fields{
			"component": "feature_extractor",
		}),
	}
}

// Extract computes the requested parameters (all of them when requested is
// empty). Parameters that cannot be measured on this signal are left out of
// the record. An error is returned only when the audio itself is unusable.
func (e *Extractor) Extract(audio *transcode.AudioData, requested features.ParamSet) (*features.Record, error) {
	filename := audio.Filename()
	logger := e.logger.WithFields(logging.Fields{
		"function": "Extract",
		"file":     filename,
	})

	if err := validate(audio); err != nil {
		return nil, &ExtractionError{Filename: filename, Err: err}
	}

	s := newSignal(audio, e.config)
	record := features.NewRecord(filename)

	var omitted []string
	for _, desc := range features.Catalogue() {
		if !requested.Includes(desc.Name) {
			continue
		}
		compute, ok := descriptors[desc.Name]
		if !ok {
			continue
		}

		value, ok := compute(s)
		if !ok || !record.Set(desc.Name, value) {
			omitted = append(omitted, desc.Name)
		}
	}

	if s.keyDone && s.keyOK {
		record.Key = s.key.Name()
	}

	if len(omitted) > 0 {
		logger.Debug("Descriptors omitted", logging.Fields{
			"omitted":  omitted,
			"duration": s.duration(),
		})
	}
	logger.Debug("Features extracted", logging.Fields{
		"parameters":  record.Len(),
		"sample_rate": audio.SampleRate,
		"channels":    audio.Channels,
	})

	return record, nil
}

func validate(audio *transcode.AudioData) error {
	if audio == nil || len(audio.PCM) == 0 {
		return ErrEmptySignal
	}
	if audio.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrInvalidSignal, audio.SampleRate)
	}
	if audio.Channels <= 0 {
		return fmt.Errorf("%w: channel count %d", ErrInvalidSignal, audio.Channels)
	}
	if len(audio.PCM)%audio.Channels != 0 {
		return fmt.Errorf("%w: %d samples do not divide into %d channels", ErrInvalidSignal, len(audio.PCM), audio.Channels)
	}
	for i, v := range audio.PCM {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite sample at index %d", ErrInvalidSignal, i)
		}
	}
	return nil
}
