package observability

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
}

func TestTextHandler_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newTextHandler(&buf, "warn"))

	logger.Info("dropped")
	logger.Warn("kept", "site", "Goddard")

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, "kept")
	assert.Contains(t, out, "Goddard")
}

func TestNewTextLogger_LeavesDefaultAlone(t *testing.T) {
	before := slog.Default()
	var buf bytes.Buffer
	logger := NewTextLogger(&buf, "debug")

	logger.Debug("request", "path", "/data")
	assert.Contains(t, buf.String(), "request")
	assert.Contains(t, buf.String(), "/data")
	assert.Same(t, before, slog.Default())
}
