package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromSettings(t *testing.T) {
	cfg := FromSettings(" DEBUG ", "Text")
	assert.Equal(t, DebugLevel, cfg.Level)
	assert.True(t, cfg.Pretty)

	cfg = FromSettings("warn", "json")
	assert.Equal(t, WarnLevel, cfg.Level)
	assert.False(t, cfg.Pretty)
}

func TestConfigureJSONOutput(t *testing.T) {
	defer Configure(Config{Level: InfoLevel})

	var buf bytes.Buffer
	Configure(Config{Level: WarnLevel, Output: &buf, Component: "gradectl"})

	Info().Msg("hidden")
	Warn().Int64("offeringID", 3).Msg("visible")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "visible", entry["message"])
	assert.Equal(t, "gradectl", entry["component"])
	assert.Equal(t, float64(3), entry["offeringID"])
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, LogLevel("verbose").toZerolog())
}
