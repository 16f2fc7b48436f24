package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := newLoggerTo(&buf, "debug", false)
	log.Info().Str("session", "s1").Msg("session created")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "s1", line["session"])
	assert.Equal(t, "session created", line["message"])
	assert.Contains(t, line, "time")
}

func TestLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	log := newLoggerTo(&buf, "warn", false)
	log.Info().Msg("quiet")
	assert.Zero(t, buf.Len())
	log.Warn().Msg("loud")
	assert.NotZero(t, buf.Len())

	buf.Reset()
	log = newLoggerTo(&buf, "nonsense", false)
	log.Debug().Msg("hidden")
	log.Info().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
	assert.NotContains(t, buf.String(), "hidden")
}

func TestLoggerPretty(t *testing.T) {
	var buf bytes.Buffer
	log := newLoggerTo(&buf, "info", true)
	log.Info().Msg("hello")
	assert.Contains(t, buf.String(), "hello")
	assert.False(t, json.Valid(buf.Bytes()))
}
