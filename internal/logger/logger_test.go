package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/diewo77/go-spinning/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetReturnsSameLogger(t *testing.T) {
	assert.Same(t, Get("app"), Get("app"))
}

func TestJSONFormatAndLevel(t *testing.T) {
	Init(config.LogConfig{Level: "warn", Format: "json"})
	t.Cleanup(func() { Init(config.LogConfig{Level: "info", Format: "text"}) })

	var buf bytes.Buffer
	SetOutput(&buf)

	l := For("production")
	l.Info("dropped")
	l.WithField("machine", 5).Warn("duplicate entry")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)
	var rec map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &rec))
	assert.Equal(t, "duplicate entry", rec["message"])
	assert.Equal(t, "production", rec["component"])
	assert.EqualValues(t, 5, rec["machine"])
}
