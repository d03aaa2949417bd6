package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/equitylens/pkg/config"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestNew_SetsGlobalLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			log := New(&config.Config{Env: "test", LogLevel: tt.level, LogFormat: "json"})
			require.NotNil(t, log)
			assert.Equal(t, tt.want, zerolog.GlobalLevel())
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, parseLogLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, parseLogLevel("warning"))
	assert.Equal(t, zerolog.TraceLevel, parseLogLevel(" trace "))
	assert.Equal(t, zerolog.InfoLevel, parseLogLevel("bogus"))
	assert.Equal(t, zerolog.InfoLevel, parseLogLevel(""))
}

func TestNewWithWriter_Fields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "debug")

	log.Component("cache").
		WithFields(map[string]interface{}{"key": "market:AAPL:RSI:all", "hit": true}).
		Info("cache lookup")
	log.WithError(errors.New("boom")).Error("fetch failed")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)

	assert.Equal(t, "cache", lines[0]["component"])
	assert.Equal(t, "market:AAPL:RSI:all", lines[0]["key"])
	assert.Equal(t, true, lines[0]["hit"])
	assert.Equal(t, "info", lines[0]["level"])

	assert.Equal(t, "boom", lines[1]["error"])
	assert.Equal(t, "error", lines[1]["level"])
}

func TestNewWithWriter_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "warn")

	log.Debug("hidden")
	log.Info("hidden")
	log.Warnf("shown %d", 1)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "shown 1", lines[0]["message"])
}

func TestNewNop_Discards(t *testing.T) {
	log := NewNop()
	assert.NotPanics(t, func() {
		log.WithField("a", 1).Info("nothing")
		log.Errorf("nothing %s", "here")
	})
}
