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
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"INFO", slog.LevelInfo, false},
		{"debug", slog.LevelDebug, false},
		{"warning", slog.LevelWarn, false},
		{" error ", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestNew_AutoWritesJSONWhenNotATerminal(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, FormatAuto, slog.LevelInfo)
	logger.Info("leaderboard fetched", "entries", 10)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "leaderboard fetched", record["msg"])
	assert.EqualValues(t, 10, record["entries"])
}

func TestNew_PrettyHasNoColorOffTerminal(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, FormatPretty, slog.LevelDebug)
	logger.Debug("benchmark cached", "model", "openai/gpt-4o")

	out := buf.String()
	assert.Contains(t, out, "benchmark cached")
	assert.Contains(t, out, "model=openai/gpt-4o")
	assert.False(t, strings.Contains(out, "\033["), "unexpected ANSI escape in %q", out)
}

func TestNew_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, FormatJSON, slog.LevelWarn)
	logger.Info("hidden")
	assert.Empty(t, buf.String())
}
