package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/ready-check/internal/config"
)

func TestNewWritesTestLogFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	logger, err := New(config.Config{Env: config.EnvTest, LogDir: dir, LogTimezone: "America/Chicago"})
	require.NoError(t, err)

	logger.Info("lobby opened")
	_ = logger.Sync()

	data, err := os.ReadFile(filepath.Join(dir, testLogFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "lobby opened")
	assert.Contains(t, string(data), `"time"`)
}

func TestNewDevelopmentUsesDefaultFile(t *testing.T) {
	dir := t.TempDir()
	logger, err := New(config.Config{Env: config.EnvDevelopment, LogDir: dir, LogTimezone: "UTC"})
	require.NoError(t, err)
	logger.Info("hello")
	_ = logger.Sync()

	_, err = os.Stat(filepath.Join(dir, logFile))
	assert.NoError(t, err)
}

func TestNewUnknownEnvFallsBackToConsole(t *testing.T) {
	logger, err := New(config.Config{Env: "staging", LogTimezone: "Not/AZone"})
	require.NoError(t, err)
	assert.NotNil(t, logger)
}
