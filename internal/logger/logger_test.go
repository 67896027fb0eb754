package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LevelWarn, ParseLevel("warning"))
	assert.Equal(t, LevelError, ParseLevel(" error "))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
	assert.Equal(t, LevelInfo, ParseLevel(""))
}

func TestGetLogLevelFromEnv(t *testing.T) {
	t.Setenv("RPSH_DEBUG", "1")
	assert.Equal(t, LevelDebug, GetLogLevelFromEnv(LevelWarn))

	t.Setenv("RPSH_DEBUG", "")
	assert.Equal(t, LevelWarn, GetLogLevelFromEnv(LevelWarn))
	assert.Equal(t, LevelInfo, GetLogLevelFromEnv(""))
}

func TestConfigure_WritesJSONToOutput(t *testing.T) {
	var buf bytes.Buffer
	Configure(Options{Level: LevelDebug, Output: &buf})
	t.Cleanup(func() { Configure(Options{Level: LevelInfo}) })

	l := WithField("session_id", "abc123")
	l.Info().Msg("session opened")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "abc123", entry["session_id"])
	assert.Equal(t, "session opened", entry["message"])
}

func TestConfigure_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	Configure(Options{Level: LevelWarn, Output: &buf})
	t.Cleanup(func() { Configure(Options{Level: LevelInfo}) })

	Debugf("hidden %d", 1)
	Infof("hidden %d", 2)
	assert.Empty(t, buf.String())

	Warnf("shown %d", 3)
	assert.Contains(t, buf.String(), "shown 3")
}
