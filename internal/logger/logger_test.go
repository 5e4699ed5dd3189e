package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf)

	log.Info().Str("merchant", "acme video").Msg("detected")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "detected", entry["message"])
	assert.Equal(t, "acme video", entry["merchant"])
	assert.Contains(t, entry, "time")
}

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf)

	ctx := WithContext(context.Background(), log)
	forecastLog := Component(ctx, "Forecast")
	forecastLog.Info().Msg("projected")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Forecast", entry["component"])
}

func TestFromContextWithoutLogger(t *testing.T) {
	log := FromContext(context.Background())
	assert.Equal(t, zerolog.Disabled, log.GetLevel())
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"WARN":    zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, ParseLevel(in))
		})
	}
}

func TestNewWithOptionsFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOptions(&buf, Options{Level: "warn", Format: "json"})

	log.Info().Msg("hidden")
	assert.Empty(t, buf.String())

	log.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	log := WithFields(NewWithWriter(&buf), map[string]interface{}{"user_id": "u1"})
	log.Info().Msg("x")
	assert.Contains(t, buf.String(), `"user_id":"u1"`)
}
