package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"maps"
	"os"
	"slices"
	"strings"
	"sync/atomic"
	"time"
)

// Format selects how the default logger renders a line
type Format int32

const (
	// TextFormat renders "[LEVEL] msg: err key=value ..." with optional colour
	TextFormat Format = iota
	// JSONFormat renders one JSON object per line, never coloured
	JSONFormat
)

// ParseFormat maps "text" or "json" to a Format
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "text", "":
		return TextFormat, nil
	case "json":
		return JSONFormat, nil
	default:
		return TextFormat, fmt.Errorf("unknown log format %q", name)
	}
}

// sink is shared by a logger and every logger derived from it, so level and
// format changes apply to all of them
type sink struct {
	out       *log.Logger // Debug, Info
	errOut    *log.Logger // Warn, Error, Fatal
	level     atomic.Int32
	format    atomic.Int32
	useColors atomic.Bool
	exit      func(code int)
}

// DefaultLogger writes Debug/Info to one writer and Warn and above to
// another. Text output colours Warn yellow, Error red and Fatal bold red
// when enabled.
type DefaultLogger struct {
	sink   *sink
	fields Fields
}

// NewDefaultLogger logs to stdout/stderr, coloured when stdout is a terminal
func NewDefaultLogger() *DefaultLogger {
	logger := NewWriterLogger(os.Stdout, os.Stderr)
	logger.sink.useColors.Store(isTerminal())
	return logger
}

// NewDefaultLoggerNoColor logs to stdout/stderr without colour
func NewDefaultLoggerNoColor() *DefaultLogger {
	return NewWriterLogger(os.Stdout, os.Stderr)
}

// NewWriterLogger creates an uncoloured text logger at Info level writing
// Debug/Info to out and everything above to errOut
func NewWriterLogger(out, errOut io.Writer) *DefaultLogger {
	s := &sink{
		out:    log.New(out, "", 0),
		errOut: log.New(errOut, "", 0),
		exit:   os.Exit,
	}
	s.level.Store(int32(InfoLevel))
	return &DefaultLogger{sink: s, fields: make(Fields)}
}

// isTerminal reports whether stdout is a character device
func isTerminal() bool {
	if fileInfo, _ := os.Stdout.Stat(); fileInfo != nil {
		return (fileInfo.Mode() & os.ModeCharDevice) != 0
	}
	return false
}

// SetFormat switches this logger and its derived loggers to format
func (d *DefaultLogger) SetFormat(format Format) {
	d.sink.format.Store(int32(format))
}

func (d *DefaultLogger) merged(fields []Fields) Fields {
	all := maps.Clone(d.fields)
	for _, f := range fields {
		maps.Copy(all, f)
	}
	return all
}

func (d *DefaultLogger) formatText(level Level, err error, msg string, fields Fields) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s] %s", time.Now().Format(time.DateTime), level, msg)
	if err != nil {
		fmt.Fprintf(&b, ": %v", err)
	}
	for _, key := range slices.Sorted(maps.Keys(fields)) {
		fmt.Fprintf(&b, " %s=%v", key, fields[key])
	}
	line := b.String()

	if !d.sink.useColors.Load() {
		return line
	}
	switch level {
	case WarnLevel:
		return ColorYellow + line + ColorReset
	case ErrorLevel:
		return ColorRed + line + ColorReset
	case FatalLevel:
		return ColorBold + ColorRed + line + ColorReset
	}
	return line
}

func formatJSON(level Level, err error, msg string, fields Fields) string {
	entry := make(map[string]any, len(fields)+4)
	for k, v := range fields {
		if e, ok := v.(error); ok {
			v = e.Error()
		}
		entry[k] = v
	}
	entry["time"] = time.Now().Format(time.RFC3339Nano)
	entry["level"] = level.String()
	entry["msg"] = msg
	if err != nil {
		entry["error"] = err.Error()
	}

	data, marshalErr := json.Marshal(entry)
	if marshalErr != nil {
		// Fall back to strings for values json cannot encode
		for k, v := range entry {
			entry[k] = fmt.Sprint(v)
		}
		data, _ = json.Marshal(entry)
	}
	return string(data)
}

func (d *DefaultLogger) log(level Level, err error, msg string, fields ...Fields) {
	if level < Level(d.sink.level.Load()) {
		return
	}

	all := d.merged(fields)
	var line string
	if Format(d.sink.format.Load()) == JSONFormat {
		line = formatJSON(level, err, msg, all)
	} else {
		line = d.formatText(level, err, msg, all)
	}

	if level >= WarnLevel {
		d.sink.errOut.Println(line)
	} else {
		d.sink.out.Println(line)
	}
	if level == FatalLevel {
		d.sink.exit(1)
	}
}

func (d *DefaultLogger) Debug(msg string, fields ...Fields) {
	d.log(DebugLevel, nil, msg, fields...)
}

func (d *DefaultLogger) Info(msg string, fields ...Fields) {
	d.log(InfoLevel, nil, msg, fields...)
}

func (d *DefaultLogger) Warn(msg string, fields ...Fields) {
	d.log(WarnLevel, nil, msg, fields...)
}

func (d *DefaultLogger) Error(err error, msg string, fields ...Fields) {
	d.log(ErrorLevel, err, msg, fields...)
}

// Fatal logs and exits with status 1
func (d *DefaultLogger) Fatal(err error, msg string, fields ...Fields) {
	d.log(FatalLevel, err, msg, fields...)
}

func (d *DefaultLogger) WithFields(fields Fields) Logger {
	return &DefaultLogger{
		sink:   d.sink,
		fields: d.merged([]Fields{fields}),
	}
}

func (d *DefaultLogger) WithContext(ctx context.Context) Logger {
	if fields, ok := FieldsFromContext(ctx); ok {
		return d.WithFields(fields)
	}
	return d
}

// SetLevel applies to this logger and every logger derived from it
func (d *DefaultLogger) SetLevel(level Level) {
	d.sink.level.Store(int32(level))
}

// NoOpLogger discards everything; tests install it to keep output quiet
type NoOpLogger struct{}

func (n *NoOpLogger) Debug(msg string, fields ...Fields)            {}
func (n *NoOpLogger) Info(msg string, fields ...Fields)             {}
func (n *NoOpLogger) Warn(msg string, fields ...Fields)             {}
func (n *NoOpLogger) Error(err error, msg string, fields ...Fields) {}
func (n *NoOpLogger) Fatal(err error, msg string, fields ...Fields) {}
func (n *NoOpLogger) WithFields(fields Fields) Logger               { return n }
func (n *NoOpLogger) WithContext(ctx context.Context) Logger        { return n }
func (n *NoOpLogger) SetLevel(level Level)                          {}
