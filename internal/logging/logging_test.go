package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/mediscan/internal/config"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNew_WritesToRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mediscan.log")

	logger, closer := New(config.LogConfig{Level: "info", Format: "json", File: path})
	logger.Info("document indexed", "id", "abc")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"document indexed"`)
	assert.Contains(t, string(data), `"id":"abc"`)
}

func TestNew_NoFile(t *testing.T) {
	logger, closer := New(config.LogConfig{Level: "debug"})
	require.NotNil(t, logger)
	assert.NoError(t, closer.Close())
}

func TestNew_NeverWritesToStdout(t *testing.T) {
	outR, outW, err := os.Pipe()
	require.NoError(t, err)
	errR, errW, err := os.Pipe()
	require.NoError(t, err)

	stdout, stderr := os.Stdout, os.Stderr
	os.Stdout, os.Stderr = outW, errW
	t.Cleanup(func() { os.Stdout, os.Stderr = stdout, stderr })

	path := filepath.Join(t.TempDir(), "mediscan.log")
	logger, closer := New(config.LogConfig{Level: "info", File: path})
	logger.Info("tool called", "tool", "ask_followup")
	require.NoError(t, closer.Close())

	os.Stdout, os.Stderr = stdout, stderr
	require.NoError(t, outW.Close())
	require.NoError(t, errW.Close())

	outData, err := io.ReadAll(outR)
	require.NoError(t, err)
	errData, err := io.ReadAll(errR)
	require.NoError(t, err)
	fileData, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Empty(t, outData)
	assert.Contains(t, string(errData), "tool called")
	assert.Contains(t, string(fileData), "tool called")
}
