package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}

func TestNewJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := New(&buf, "json", "warn")
	log.Info("dropped")
	log.Warn("kept", "user_id", "u1")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "kept", rec["msg"])
	assert.Equal(t, "u1", rec["user_id"])
}

func TestPrettyHandler(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := New(&buf, "pretty", "debug").With("component", "auth").WithGroup("req")
	log.Debug("sign in", "status", 401, "err", errors.New("boom"))

	out := buf.String()
	assert.Contains(t, out, "sign in")
	assert.Contains(t, out, "component")
	assert.Contains(t, out, "req.status")
	assert.Contains(t, out, "boom")
}
