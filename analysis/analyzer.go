package analysis

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/RyanBlaney/sonido-match/analysis/comparison"
	"github.com/RyanBlaney/sonido-match/analysis/config"
	"github.com/RyanBlaney/sonido-match/analysis/extractors"
	"github.com/RyanBlaney/sonido-match/analysis/features"
	"github.com/RyanBlaney/sonido-match/analysis/recommend"
	"github.com/RyanBlaney/sonido-match/logging"
	"github.com/RyanBlaney/sonido-match/transcode"
)

// Analyzer builds reference sets and compares candidates against them. It is
// safe for concurrent use.
type Analyzer struct {
	config    config.AnalyzerConfig
	extractor *extractors.Extractor
	logger    logging.Logger
}

// NewAnalyzer creates an analyzer after validating cfg
func NewAnalyzer(cfg config.AnalyzerConfig) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid analyzer config: %w", err)
	}

	return &Analyzer{
		config:    cfg,
		extractor: extractors.NewExtractor(cfg.Extraction),
		logger: logging.WithFields(logging.Fields{
			"component": "analyzer",
		}),
	}, nil
}

// Config returns the analyzer configuration
func (a *Analyzer) Config() config.AnalyzerConfig {
	return a.config
}

// Extract computes a single feature record
func (a *Analyzer) Extract(audio *transcode.AudioData, requested features.ParamSet) (*features.Record, error) {
	return a.extractor.Extract(audio, requested)
}

// AnalyzeReferenceSet extracts every track on a bounded worker pool and
// aggregates the survivors into a profile. Tracks that fail extraction are
// reported in Failures. The size policy is checked before any extraction,
// and again on the surviving tracks. On cancellation ctx.Err() is returned
// and no partial set is produced.
func (a *Analyzer) AnalyzeReferenceSet(ctx context.Context, tracks []*transcode.AudioData, requested features.ParamSet) (*ReferenceSet, error) {
	logger := a.logger.WithFields(logging.Fields{
		"function": "AnalyzeReferenceSet",
		"tracks":   len(tracks),
	})

	if len(tracks) < a.config.MinTracks {
		return nil, &InsufficientReferenceDataError{Got: len(tracks), Min: a.config.MinTracks}
	}
	if len(tracks) > a.config.MaxTracks {
		return nil, fmt.Errorf("%w: got %d, max %d", ErrTooManyTracks, len(tracks), a.config.MaxTracks)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	records := make([]*features.Record, len(tracks))
	errs := make([]error, len(tracks))

	workers := a.config.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, len(tracks))

	jobs := make(chan int)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					continue
				}
				records[i], errs[i] = a.extractor.Extract(tracks[i], requested)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range tracks {
			select {
			case <-ctx.Done():
				return
			case jobs <- i:
			}
		}
	}()

	wg.Wait()

	if err := ctx.Err(); err != nil {
		logger.Warn("Reference analysis cancelled", logging.Fields{"error": err.Error()})
		return nil, err
	}

	set := &ReferenceSet{}
	var combined error
	for i, err := range errs {
		if err == nil {
			set.Records = append(set.Records, records[i])
			continue
		}

		failure := asExtractionError(tracks[i], err)
		set.Failures = append(set.Failures, failure)
		combined = multierr.Append(combined, failure)
		logger.Warn("Track extraction failed", logging.Fields{
			"file":  failure.Filename,
			"error": failure.Err.Error(),
		})
	}

	if len(set.Records) < a.config.MinTracks {
		err := &InsufficientReferenceDataError{
			Got:   len(set.Records),
			Min:   a.config.MinTracks,
			Cause: combined,
		}
		logger.Error(err, "Reference set unusable")
		return nil, err
	}

	built := NewReferenceSet(set.Records)
	built.Failures = set.Failures

	logger.Info("Reference set analysed", logging.Fields{
		"id":         built.ID.String(),
		"records":    len(built.Records),
		"failures":   len(built.Failures),
		"parameters": built.Profile.Len(),
		"elapsed":    time.Since(start).String(),
	})

	return built, nil
}

func asExtractionError(track *transcode.AudioData, err error) *extractors.ExtractionError {
	var ee *extractors.ExtractionError
	if errors.As(err, &ee) {
		return ee
	}
	return &extractors.ExtractionError{Filename: track.Filename(), Err: err}
}

// Report is the outcome of comparing one candidate
type Report struct {
	Mode            comparison.Mode            `json:"mode"`
	Candidate       *features.Record           `json:"candidate"`
	Result          *comparison.Result         `json:"result"`
	Recommendations []recommend.Recommendation `json:"recommendations"`
	Alerts          []comparison.Alert         `json:"alerts,omitempty"`
	MatchScore      float64                    `json:"match_score"`
	Status          string                     `json:"status"`
}

// CompareCandidate extracts the candidate and compares it against ref
func (a *Analyzer) CompareCandidate(candidate *transcode.AudioData, ref Reference, mode comparison.Mode, requested features.ParamSet) (*Report, error) {
	if err := checkReference(ref, mode); err != nil {
		return nil, err
	}

	record, err := a.extractor.Extract(candidate, requested)
	if err != nil {
		return nil, err
	}
	return a.CompareRecord(record, ref, mode, requested)
}

// CompareRecord compares an already extracted candidate against ref
func (a *Analyzer) CompareRecord(candidate *features.Record, ref Reference, mode comparison.Mode, requested features.ParamSet) (*Report, error) {
	logger := a.logger.WithFields(logging.Fields{
		"function": "CompareRecord",
		"file":     candidate.Filename,
		"mode":     string(mode),
	})

	if err := checkReference(ref, mode); err != nil {
		return nil, err
	}

	var result *comparison.Result
	switch mode {
	case comparison.ModePlaylist:
		result = comparison.CompareToProfile(candidate, ref.profile(), requested)
	case comparison.ModeTrack:
		result = comparison.CompareToTrack(candidate, ref.Track, requested)
	case comparison.ModeWeighted:
		var err error
		result, err = comparison.CompareWeighted(candidate, ref.Set.Profile, ref.Set.Records, requested, a.config.Comparison)
		if err != nil {
			return nil, fmt.Errorf("weighted comparison: %w", err)
		}
	}

	score := recommend.MatchScore(result)
	report := &Report{
		Mode:            mode,
		Candidate:       candidate,
		Result:          result,
		Recommendations: recommend.Generate(result),
		Alerts:          result.Alerts,
		MatchScore:      score,
		Status:          recommend.ScoreStatus(score),
	}

	logger.Debug("Candidate compared", logging.Fields{
		"parameters":      len(result.Deviations),
		"alerts":          len(report.Alerts),
		"recommendations": len(report.Recommendations),
		"match_score":     score,
	})

	return report, nil
}

func checkReference(ref Reference, mode comparison.Mode) error {
	switch mode {
	case comparison.ModePlaylist:
		if ref.profile() == nil {
			return fmt.Errorf("%w: %s needs a profile", ErrModeMismatch, mode)
		}
	case comparison.ModeTrack:
		if ref.Track == nil {
			return fmt.Errorf("%w: %s needs a reference track", ErrModeMismatch, mode)
		}
	case comparison.ModeWeighted:
		if ref.Set == nil || ref.Set.Profile == nil {
			return fmt.Errorf("%w: %s needs a reference set", ErrModeMismatch, mode)
		}
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrModeMismatch, mode)
	}
	return nil
}
