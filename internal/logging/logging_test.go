package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewIsNopByDefault(t *testing.T) {
	log, closeFn, err := New(Options{})
	require.NoError(t, err)
	require.False(t, log.Core().Enabled(zap.ErrorLevel))
	require.NoError(t, closeFn())
}

func TestNewWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "solw.log")
	log, closeFn, err := New(Options{Level: "info", Format: "json", File: path})
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("wrapped", zap.String("signature", "abc"))
	require.NoError(t, closeFn())

	buf, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(buf)), "\n")
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	require.Equal(t, "wrapped", entry["msg"])
	require.Equal(t, "abc", entry["signature"])
}

func TestNewVerboseWritesDebugToStderr(t *testing.T) {
	var stderr bytes.Buffer
	log, closeFn, err := New(Options{Verbose: true, Stderr: &stderr})
	require.NoError(t, err)
	log.Debug("polling signature")
	require.NoError(t, closeFn())
	require.Contains(t, stderr.String(), "polling signature")
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, _, err := New(Options{Level: "loud", Verbose: true})
	require.Error(t, err)
}
