package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"warning", LevelWarn},
		{"Error", LevelError},
		{"bogus", LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestStdLogger_LevelAndFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewStdLoggerTo(&buf, LevelInfo).With(map[string]interface{}{"component": "test"})

	l.Debug(context.Background(), "hidden")
	l.Info(context.Background(), "visible", map[string]interface{}{"b": 2, "a": 1})
	l.Error(context.Background(), errors.New("boom"), "failed")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[INFO] visible | a=1 b=2 component=test")
	assert.Contains(t, out, "[ERROR] failed | error: boom | component=test")
}

func TestZerologLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerologLoggerTo(&buf, LevelDebug).With(map[string]interface{}{"component": "publisher"})

	l.Warn(context.Background(), "store slow", map[string]interface{}{"key": "current_price"})

	line := strings.TrimSpace(buf.String())
	var ev map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(line), &ev))
	assert.Equal(t, "warn", ev["level"])
	assert.Equal(t, "store slow", ev["message"])
	assert.Equal(t, "publisher", ev["component"])
	assert.Equal(t, "current_price", ev["key"])
}

func TestZerologLogger_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerologLoggerTo(&buf, LevelError)
	l.Info(context.Background(), "dropped")
	assert.Empty(t, buf.String())
}
