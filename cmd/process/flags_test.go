package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/cherenkov.pipe/internal/config"
)

func TestParseArgsPrecedence(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "stage1.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("input: from-file.sqlite\nchunk_size: 20\nworkers: 2\n"), 0o644))
	t.Setenv("CHERENKOV_WORKERS", "4")
	t.Setenv("CHERENKOV_MAX_EVENTS", "50")

	cfg, showVersion, err := parseArgs([]string{
		"--config=" + cfgPath,
		"--output=out.sqlite",
		"--max-events=5",
		"--write-images",
	}, io.Discard)
	require.NoError(t, err)
	assert.False(t, showVersion)

	assert.Equal(t, "from-file.sqlite", cfg.GetInput(), "file value kept")
	assert.Equal(t, 20, cfg.GetChunkSize(), "file value kept")
	assert.Equal(t, 4, cfg.GetWorkers(), "env beats file")
	assert.Equal(t, 5, cfg.GetMaxEvents(), "flag beats env")
	assert.Equal(t, "out.sqlite", cfg.GetOutput())
	assert.True(t, cfg.GetWriteImages())
	assert.False(t, cfg.GetWriteParameters())
	assert.Equal(t, config.DefaultReconstructor, cfg.GetReconstructor())
}

func TestParseArgsDefaultsDoNotOverride(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "stage1.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`{"chunk_size": 7, "log_level": "debug"}`), 0o644))

	cfg, _, err := parseArgs([]string{"--config", cfgPath}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.GetChunkSize())
	assert.Equal(t, "debug", cfg.GetLogLevel())
}

func TestParseArgsErrors(t *testing.T) {
	_, _, err := parseArgs([]string{"stray"}, io.Discard)
	assert.Error(t, err)

	_, _, err = parseArgs([]string{"--config=missing.toml"}, io.Discard)
	assert.Error(t, err)

	_, showVersion, err := parseArgs([]string{"--version"}, io.Discard)
	require.NoError(t, err)
	assert.True(t, showVersion)
}
