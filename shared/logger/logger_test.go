package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
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
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run("level "+tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.input))
		})
	}
}

func TestNewWithWriter_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := newWithWriter(&Config{Level: "info", Format: "json"}, &buf)

	log.Info("message sent", slog.String("job_id", "job-1"))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "message sent", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "job-1", entry["job_id"])
}

func TestNewWithWriter_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := newWithWriter(&Config{Level: "warn", Format: "json"}, &buf)

	log.Debug("hidden")
	log.Info("hidden")
	assert.Zero(t, buf.Len())

	log.Warn("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestNewWithWriter_ConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	log := newWithWriter(&Config{Level: "debug", Format: "console"}, &buf)

	log.Debug("starting up")
	assert.Contains(t, buf.String(), "starting up")
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	log := newWithWriter(&Config{Level: "info", Format: "json"}, &buf)

	log.With("service", "dispatcher").Info("ready")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "dispatcher", entry["service"])
}

func TestNew_Defaults(t *testing.T) {
	log, err := New(&Config{})
	require.NoError(t, err)
	assert.NotNil(t, log.Logger)
}
