package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskFinished_JSON(t *testing.T) {
	var buf bytes.Buffer
	InitializeWithWriter(&buf, "debug", "json")
	t.Cleanup(func() { Initialize("info", "text") })

	TaskFinished("invites", 1500*time.Millisecond, errors.New("smtp down"), "processed", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "invites", entry["task"])
	assert.Equal(t, float64(1500), entry["duration_ms"])
	assert.Equal(t, "smtp down", entry["error"])
	assert.Equal(t, float64(3), entry["processed"])
}

func TestInitialize_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	InitializeWithWriter(&buf, "warn", "text")
	t.Cleanup(func() { Initialize("info", "text") })

	Info("hidden")
	Warn("shown", "key", "value")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "key=value")
}

func TestExternalServiceResult_Levels(t *testing.T) {
	var buf bytes.Buffer
	InitializeWithWriter(&buf, "info", "text")
	t.Cleanup(func() { Initialize("info", "text") })

	ExternalServiceResult("sendgrid", "send", nil, "to", "a@example.com")
	assert.Empty(t, buf.String(), "successful calls log at debug")

	ExternalServiceResult("sendgrid", "send", errors.New("status 503"), "to", "a@example.com")
	out := buf.String()
	assert.Contains(t, out, "External service call failed")
	assert.Contains(t, out, "service=sendgrid")
	assert.Contains(t, out, `error="status 503"`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLevel(" Debug ").String())
	assert.Equal(t, "WARN", parseLevel("warning").String())
	assert.Equal(t, "INFO", parseLevel("verbose").String())
}
