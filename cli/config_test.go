package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.PageSize)
	assert.Equal(t, 250*time.Millisecond, cfg.Debounce)
	assert.Equal(t, "", cfg.StateDir)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("page-size: 25\nlog-level: debug\n"), 0o644))

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.PageSize)
	assert.Equal(t, "debug", cfg.LogLevel)
	// untouched keys keep their defaults
	assert.Equal(t, 250*time.Millisecond, cfg.Debounce)
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("page-size: 25\n"), 0o644))

	t.Setenv("TABQ_PAGE_SIZE", "50")

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.PageSize)
}

func TestLoadConfigFlagsWin(t *testing.T) {
	t.Setenv("TABQ_PAGE_SIZE", "50")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("page-size", 100, "")
	require.NoError(t, flags.Parse([]string{"--page-size=7"}))

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), flags)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.PageSize)
}

func TestLoadConfigUnchangedFlagsAreIgnored(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("page-size", 33, "")
	require.NoError(t, flags.Parse(nil))

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), flags)
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.PageSize)
}

func TestLoadConfigRejectsBadPageSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("page-size: 0\n"), 0o644))

	_, err := LoadConfig(path, nil)
	assert.Error(t, err)
}

func TestStatePath(t *testing.T) {
	cfg := &Config{StateDir: "/tmp/custom"}
	path, err := cfg.StatePath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/custom", "state.db"), path)
}
