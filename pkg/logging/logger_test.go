package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSONLoggerEmitsUTCTimestamps(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "info", Format: "json", Output: &buf})
	require.NoError(t, err)

	logger.Info("heartbeat sent", "bucket", "inputpulse_host")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "heartbeat sent", record["msg"])
	assert.Equal(t, "inputpulse_host", record["bucket"])

	ts, ok := record["time"].(string)
	require.True(t, ok)
	assert.Regexp(t, `Z$`, ts)
}

func TestNewConsoleLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "debug", Format: "console", Output: &buf})
	require.NoError(t, err)

	logger.Debug("probe")
	assert.Contains(t, buf.String(), "probe")
}

func TestNewRespectsLevelThreshold(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "warn", Format: "json", Output: &buf})
	require.NoError(t, err)

	logger.Info("suppressed")
	assert.Zero(t, buf.Len())

	logger.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestNewRejectsUnknownLevelAndFormat(t *testing.T) {
	_, err := New(Options{Level: "chatty"})
	require.Error(t, err)

	_, err = New(Options{Level: "info", Format: "xml"})
	require.Error(t, err)
}
