package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "debug", Format: "json", Output: &buf})

	logger.WithUser("u-1").Info().Str("stage", "intent").Int("remaining", 3).Msg("resolved")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "faq-engine", line["service"])
	assert.Equal(t, "u-1", line["user_id"])
	assert.Equal(t, "intent", line["stage"])
	assert.Equal(t, float64(3), line["remaining"])
	assert.Equal(t, "resolved", line["message"])
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "warn", Output: &buf})

	logger.Info().Msg("hidden")
	assert.Empty(t, buf.String())

	logger.Warn().Err(errors.New("boom")).Msg("shown")
	assert.Contains(t, buf.String(), "boom")
}

func TestLogger_WithContextRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "info", Output: &buf})

	ctx := ContextWithRequestID(context.Background(), "req-42")
	logger.WithContext(ctx).Info().Msg("hello")
	assert.Contains(t, buf.String(), `"request_id":"req-42"`)

	buf.Reset()
	logger.WithContext(context.Background()).Info().Msg("hello")
	assert.NotContains(t, buf.String(), "request_id")
}

func TestWithUser_Anonymous(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "info", Output: &buf})
	logger.WithUser("").Info().Msg("x")
	assert.Contains(t, buf.String(), `"user_id":"anonymous"`)
}

func TestWithStageAndComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "info", Output: &buf})
	logger.WithComponent("assistant").WithStage("exact").Info().Msg("x")
	assert.Contains(t, buf.String(), `"component":"assistant"`)
	assert.Contains(t, buf.String(), `"stage":"exact"`)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"WARNING", zerolog.WarnLevel},
		{" error ", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"nonsense", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNopLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		NopLogger().Error().Err(errors.New("x")).Msg("discarded")
	})
}
