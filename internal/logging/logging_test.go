package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"trace", LevelTrace},
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), "input %q", tt.in)
	}
}

func TestStructuredOutputIsJSON(t *testing.T) {
	var structured, human bytes.Buffer
	initWithWriters(&structured, &human, slog.LevelInfo)

	Structured().Info("pipeline started", "models", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(structured.Bytes(), &entry))
	assert.Equal(t, "pipeline started", entry["msg"])
	assert.Equal(t, float64(3), entry["models"])
	assert.Equal(t, "INFO", entry["level"])
}

func TestForServiceAddsAttribute(t *testing.T) {
	var structured, human bytes.Buffer
	initWithWriters(&structured, &human, slog.LevelInfo)

	ForService("ensemble").Info("ready")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(structured.Bytes(), &entry))
	assert.Equal(t, "ensemble", entry["service"])
}

func TestCustomLevelNames(t *testing.T) {
	var structured, human bytes.Buffer
	initWithWriters(&structured, &human, LevelTrace)

	Trace("very detailed")

	assert.True(t, strings.Contains(structured.String(), `"TRACE"`))
}

func TestLevelFiltering(t *testing.T) {
	var structured, human bytes.Buffer
	initWithWriters(&structured, &human, slog.LevelWarn)

	Debug("hidden")
	Warn("visible")

	out := structured.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
}
