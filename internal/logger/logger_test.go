package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLevelIsWarn(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithWriter(Config{}, &buf)
	require.NoError(t, err)

	log.Info("hidden")
	log.Warn("shown")
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "WARN")
}

func TestJSONEncoding(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithWriter(Config{Level: "debug", Encoding: "json"}, &buf)
	require.NoError(t, err)

	log.Debug("task added")
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "task added", entry["msg"])
	assert.Contains(t, entry, "timestamp")
}

func TestInvalidLevel(t *testing.T) {
	_, err := NewWithWriter(Config{Level: "loud"}, &bytes.Buffer{})
	assert.Error(t, err)
}
