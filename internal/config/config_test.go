package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", flag.NewFlagSet("test", flag.ContinueOnError), nil)
	require.NoError(t, err)

	assert.Equal(t, "!rc", cfg.Prefix)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 5, cfg.CountdownFrom)
	assert.Equal(t, 100*time.Millisecond, cfg.SettleDelay)
	assert.Equal(t, 2100*time.Millisecond, cfg.GoDelay)
	assert.Equal(t, "America/Chicago", cfg.LogTimezone)
}

func TestLoadEnvFileThenFlags(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("READYCHECK_PREFIX=!ics\nREADYCHECK_COUNTDOWN_FROM=3\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("READYCHECK_PREFIX")
		os.Unsetenv("READYCHECK_COUNTDOWN_FROM")
	})

	cfg, err := Load(envFile, flag.NewFlagSet("test", flag.ContinueOnError), []string{"-http-addr", ":9999"})
	require.NoError(t, err)

	assert.Equal(t, "!ics", cfg.Prefix)
	assert.Equal(t, 3, cfg.CountdownFrom)
	assert.Equal(t, ":9999", cfg.HTTPAddr)
}

func TestLoadMissingEnvFileIsFine(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"), flag.NewFlagSet("test", flag.ContinueOnError), nil)
	assert.NoError(t, err)
}

func TestLoadRejectsEmptyPrefix(t *testing.T) {
	_, err := Load("", flag.NewFlagSet("test", flag.ContinueOnError), []string{"-prefix", ""})
	assert.Error(t, err)
}

func TestLoadBadDuration(t *testing.T) {
	t.Setenv("READYCHECK_GO_DELAY", "soon")
	_, err := Load("", flag.NewFlagSet("test", flag.ContinueOnError), nil)
	assert.Error(t, err)
}
