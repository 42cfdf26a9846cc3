package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "flightdesk.log")
	logger, flush, err := New(Defaults(path))
	require.NoError(t, err)

	logger.Info("request completed", zap.String("op", "seats"), zap.Int("status", 200))
	logger.Debug("hidden at info")
	flush()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "request completed", entry["msg"])
	assert.Equal(t, "seats", entry["op"])
	assert.Equal(t, "flightdesk", entry["logger"])
}

func TestNewStderrConsole(t *testing.T) {
	var buf bytes.Buffer
	logger, flush, err := New(Options{Level: "debug", Stderr: &buf})
	require.NoError(t, err)

	logger.Debug("request issued", zap.String("path", "/system/status"))
	flush()

	out := buf.String()
	assert.Contains(t, out, "DEBUG")
	assert.Contains(t, out, "request issued")
	assert.Contains(t, out, "/system/status")
}

func TestNewWithoutSinksIsNop(t *testing.T) {
	logger, flush, err := New(Options{})
	require.NoError(t, err)
	defer flush()
	assert.False(t, logger.Core().Enabled(zap.ErrorLevel))
}

func TestNewBadLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger, flush, err := New(Options{Level: "chatty", Stderr: &buf})
	require.NoError(t, err)
	logger.Debug("dropped")
	logger.Info("kept")
	flush()
	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "kept")
}
