package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want slog.Level
	}{
		{"debug", "debug", slog.LevelDebug},
		{"upper case warn", "WARN", slog.LevelWarn},
		{"warning alias", " warning ", slog.LevelWarn},
		{"error", "error", slog.LevelError},
		{"unknown falls back to info", "loud", slog.LevelInfo},
		{"empty falls back to info", "", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNewLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelWarn)

	logger.Info("hidden")
	assert.Zero(t, buf.Len())

	logger.Warn("shown", "level", "models")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "models")
}
