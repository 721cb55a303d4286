// Command sonido-match builds sonic profiles from reference tracks and
// compares candidate tracks against them.
//
// Usage:
//
//	sonido-match profile [-params bpm,energy] [-o profile.json] ref1.wav ref2.wav ...
//	sonido-match compare -ref profile.json [-mode playlist|weighted] [-params ...] candidate.wav
//	sonido-match compare -ref reference.wav -mode track candidate.wav
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mdobak/go-xerrors"

	"github.com/RyanBlaney/sonido-match/analysis"
	"github.com/RyanBlaney/sonido-match/analysis/comparison"
	"github.com/RyanBlaney/sonido-match/analysis/config"
	"github.com/RyanBlaney/sonido-match/analysis/features"
	"github.com/RyanBlaney/sonido-match/logging"
	"github.com/RyanBlaney/sonido-match/transcode"
)

const usage = "Expected 'profile' or 'compare' subcommand"

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(1)
	}
	_ = godotenv.Load()

	// stdout carries the JSON output only
	logger := logging.NewWriterLogger(os.Stderr, os.Stderr)
	logging.SetGlobalLogger(logger)

	cfg, err := config.FromEnv()
	if err != nil {
		fail(err, "Invalid configuration")
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		fail(err, "Invalid log level")
	}
	logging.SetLevel(level)
	format, err := logging.ParseFormat(cfg.LogFormat)
	if err != nil {
		fail(err, "Invalid log format")
	}
	logging.SetFormat(format)

	analyzer, err := analysis.NewAnalyzer(cfg)
	if err != nil {
		fail(err, "Failed to create analyzer")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch os.Args[1] {
	case "profile":
		profileCmd := flag.NewFlagSet("profile", flag.ExitOnError)
		params := profileCmd.String("params", "", "Comma separated parameters (default: all)")
		output := profileCmd.String("o", "", "Output file (default: stdout)")
		profileCmd.Parse(os.Args[2:])

		if err := runProfile(ctx, analyzer, *params, *output, profileCmd.Args()); err != nil {
			fail(err, "Profile failed")
		}
	case "compare":
		compareCmd := flag.NewFlagSet("compare", flag.ExitOnError)
		mode := compareCmd.String("mode", string(comparison.ModePlaylist), "Comparison mode: playlist, track or weighted")
		ref := compareCmd.String("ref", "", "Reference: profile JSON for playlist/weighted, WAV file for track")
		params := compareCmd.String("params", "", "Comma separated parameters (default: all)")
		output := compareCmd.String("o", "", "Output file (default: stdout)")
		compareCmd.Parse(os.Args[2:])

		if compareCmd.NArg() != 1 || *ref == "" {
			fmt.Fprintln(os.Stderr, "compare expects -ref and exactly one candidate file")
			os.Exit(1)
		}
		if err := runCompare(analyzer, *mode, *ref, *params, *output, compareCmd.Arg(0)); err != nil {
			fail(err, "Compare failed")
		}
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(1)
	}
}

func fail(err error, msg string) {
	logging.Fatal(xerrors.New(err), msg)
}

func runProfile(ctx context.Context, analyzer *analysis.Analyzer, params, output string, files []string) error {
	requested, err := features.ParseParamSet(params)
	if err != nil {
		return err
	}

	tracks := make([]*transcode.AudioData, 0, len(files))
	for _, path := range files {
		audio, err := transcode.DecodeFile(path)
		if err != nil {
			logging.Warn("Skipping unreadable reference", logging.Fields{
				"file":  path,
				"error": err.Error(),
			})
			continue
		}
		tracks = append(tracks, audio)
	}

	set, err := analyzer.AnalyzeReferenceSet(ctx, tracks, requested)
	if err != nil {
		return err
	}
	return writeJSON(output, set)
}

func runCompare(analyzer *analysis.Analyzer, modeName, refPath, params, output, candidatePath string) error {
	mode, ok := comparison.ParseMode(modeName)
	if !ok {
		return fmt.Errorf("unknown mode %q", modeName)
	}
	requested, err := features.ParseParamSet(params)
	if err != nil {
		return err
	}

	var ref analysis.Reference
	if mode == comparison.ModeTrack {
		audio, err := transcode.DecodeFile(refPath)
		if err != nil {
			return err
		}
		ref.Track, err = analyzer.Extract(audio, requested)
		if err != nil {
			return err
		}
	} else {
		ref, err = loadReference(refPath)
		if err != nil {
			return err
		}
	}

	candidate, err := transcode.DecodeFile(candidatePath)
	if err != nil {
		return err
	}
	report, err := analyzer.CompareCandidate(candidate, ref, mode, requested)
	if err != nil {
		return err
	}
	return writeJSON(output, report)
}

// loadReference reads either a reference set written by the profile
// subcommand or a bare preset profile. Only the former supports weighted mode.
func loadReference(path string) (analysis.Reference, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return analysis.Reference{}, fmt.Errorf("read reference: %w", err)
	}

	ref, err := analysis.DecodeReference(data)
	if err != nil {
		return analysis.Reference{}, fmt.Errorf("%s: %w", path, err)
	}
	return ref, nil
}

func writeJSON(path string, v any) error {
	var out io.Writer = os.Stdout
	if strings.TrimSpace(path) != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
