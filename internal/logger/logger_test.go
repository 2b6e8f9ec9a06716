package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"nonsense", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.input), "input %q", tt.input)
	}
}

func TestNewJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Writer: &buf, Format: "json", Level: slog.LevelInfo})

	log.Info("hello", "key", "value")

	out := buf.String()
	assert.Contains(t, out, `"msg":"hello"`)
	assert.Contains(t, out, `"key":"value"`)
}

func TestProductionDefaultsToJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Writer: &buf, Environment: "production"})

	log.Info("boot")
	assert.True(t, strings.HasPrefix(buf.String(), "{"), "expected JSON output, got %q", buf.String())
}

func TestPrettyHandlerOutput(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Writer: &buf, Format: "pretty", Level: slog.LevelDebug})

	log.Warn("disk nearly full", "free_mb", 12)

	out := buf.String()
	assert.Contains(t, out, "disk nearly full")
	assert.Contains(t, out, "free_mb")
	assert.Contains(t, out, "12")
}

func TestPrettyHandlerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Writer: &buf, Format: "pretty", Level: slog.LevelWarn})

	log.Debug("invisible")
	log.Info("also invisible")
	require.Empty(t, buf.String())

	log.Error("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestPrettyHandlerWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Writer: &buf, Format: "pretty"})

	log.With("request_id", "abc").Info("handled")

	out := buf.String()
	assert.Contains(t, out, "request_id")
	assert.Contains(t, out, "abc")
}
