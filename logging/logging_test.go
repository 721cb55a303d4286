package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   DebugLevel,
		"INFO":    InfoLevel,
		"":        InfoLevel,
		"warning": WarnLevel,
		" error ": ErrorLevel,
		"fatal":   FatalLevel,
	}
	for name, want := range tests {
		got, err := ParseLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestDefaultLogger_RoutesByLevel(t *testing.T) {
	var out, errOut bytes.Buffer
	logger := NewWriterLogger(&out, &errOut)

	logger.Debug("hidden")
	logger.Info("profile built", Fields{"tracks": 3})
	logger.Error(errors.New("decode failed"), "track skipped")

	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), "[INFO] profile built")
	assert.Contains(t, out.String(), "tracks=3")
	assert.Contains(t, errOut.String(), "[ERROR] track skipped: decode failed")
}

func TestDefaultLogger_WithFieldsDoesNotMutateParent(t *testing.T) {
	var out bytes.Buffer
	parent := NewWriterLogger(&out, &out)
	child := parent.WithFields(Fields{"component": "comparator"})

	parent.Info("parent")
	child.Info("child")

	lines := bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	assert.NotContains(t, string(lines[0]), "component")
	assert.Contains(t, string(lines[1]), "component=comparator")
}

func TestDefaultLogger_FatalUsesExitHook(t *testing.T) {
	var out bytes.Buffer
	logger := NewWriterLogger(&out, &out)
	code := -1
	logger.sink.exit = func(c int) { code = c }

	logger.Fatal(errors.New("boom"), "cannot continue")

	assert.Equal(t, 1, code)
	assert.Contains(t, out.String(), "[FATAL] cannot continue: boom")
}

func TestWithContext_ExtractsFields(t *testing.T) {
	var out bytes.Buffer
	logger := NewWriterLogger(&out, &out)

	ctx := ContextWithFields(context.Background(), Fields{"reference_set": "abc"})
	ctx = ContextWithFields(ctx, Fields{"track": "b.wav"})
	logger.WithContext(ctx).Info("extracted")

	assert.Contains(t, out.String(), "reference_set=abc")
	assert.Contains(t, out.String(), "track=b.wav")
}

func TestSetGlobalLogger_NilInstallsNoOp(t *testing.T) {
	previous := GetGlobalLogger()
	t.Cleanup(func() { SetGlobalLogger(previous) })

	SetGlobalLogger(nil)
	_, ok := GetGlobalLogger().(*NoOpLogger)
	assert.True(t, ok)
}

func TestDefaultLogger_TextFieldsSorted(t *testing.T) {
	var out bytes.Buffer
	logger := NewWriterLogger(&out, &out)

	logger.Info("compared", Fields{"mode": "weighted", "alerts": 2})

	assert.Contains(t, out.String(), "[INFO] compared alerts=2 mode=weighted")
}

func TestDefaultLogger_JSONFormat(t *testing.T) {
	var out, errOut bytes.Buffer
	logger := NewWriterLogger(&out, &errOut)
	logger.SetFormat(JSONFormat)

	logger.WithFields(Fields{"component": "analyzer"}).Warn("track failed", Fields{
		"file":  "bad.wav",
		"cause": errors.New("empty signal"),
	})

	assert.Empty(t, out.String())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(errOut.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "track failed", entry["msg"])
	assert.Equal(t, "analyzer", entry["component"])
	assert.Equal(t, "bad.wav", entry["file"])
	assert.Equal(t, "empty signal", entry["cause"])
	assert.NotEmpty(t, entry["time"])
}

func TestDefaultLogger_DerivedLoggersShareLevel(t *testing.T) {
	var out bytes.Buffer
	parent := NewWriterLogger(&out, &out)
	child := parent.WithFields(Fields{"component": "extractor"})

	parent.SetLevel(DebugLevel)
	child.Debug("omitted")

	assert.Contains(t, out.String(), "[DEBUG] omitted component=extractor")
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, JSONFormat, f)

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, TextFormat, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}
