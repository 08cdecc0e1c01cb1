package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_SlogJSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "debug", Output: &buf})
	require.NoError(t, err)

	l.Debug("handoff.send.start", "session_id", "s1")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "handoff.send.start", entry["msg"])
	assert.Equal(t, "s1", entry["session_id"])
}

func TestNew_SlogLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "warn", Format: "text", Output: &buf})
	require.NoError(t, err)

	l.Info("dropped")
	assert.Zero(t, buf.Len())
	l.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestNew_Zap(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Backend: "zap", Level: "info", Output: &buf})
	require.NoError(t, err)

	l.Info("workqueue.replace", "items", 3)
	require.NoError(t, l.(*ZapAdapter).Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "workqueue.replace", entry["msg"])
	assert.EqualValues(t, 3, entry["items"])
}

func TestNew_UnknownBackend(t *testing.T) {
	_, err := New(Config{Backend: "log4j"})
	assert.Error(t, err)
}

func TestNoOpLogger(t *testing.T) {
	var l Logger = NoOpLogger{}
	l.Error("ignored", "k", "v")
}
