package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/cherenkov.pipe/internal/pipeerr"
	"github.com/banshee-data/cherenkov.pipe/internal/tableloader"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultProcessConfig(t *testing.T) {
	cfg := DefaultProcessConfig()
	assert.Equal(t, DefaultChunkSize, cfg.GetChunkSize())
	assert.Equal(t, DefaultWorkers, cfg.GetWorkers())
	assert.Equal(t, DefaultProvenanceLog, cfg.GetProvenanceLog())
	assert.Equal(t, "info", cfg.GetLogLevel())
	assert.Equal(t, DefaultReconstructor, cfg.GetReconstructor())
	assert.False(t, cfg.GetWriteImages())
	assert.Zero(t, cfg.GetMaxEvents())
}

func TestGettersOnEmptyConfig(t *testing.T) {
	cfg := &ProcessConfig{}
	assert.Equal(t, DefaultChunkSize, cfg.GetChunkSize())
	assert.Equal(t, DefaultProvenanceLog, cfg.GetProvenanceLog())
	assert.Equal(t, "", cfg.GetInput())
	assert.False(t, cfg.GetOverwrite())
}

func TestLoadFileFormats(t *testing.T) {
	cases := map[string]string{
		"stage1.json": `{"input": "in.sqlite", "chunk_size": 50, "write_images": true}`,
		"stage1.yaml": "input: in.sqlite\nchunk_size: 50\nwrite_images: true\n",
		"stage1.toml": "input = \"in.sqlite\"\nchunk_size = 50\nwrite_images = true\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			cfg, err := LoadFile(writeConfig(t, name, body))
			require.NoError(t, err)
			assert.Equal(t, "in.sqlite", cfg.GetInput())
			assert.Equal(t, 50, cfg.GetChunkSize())
			assert.True(t, cfg.GetWriteImages())
			assert.Nil(t, cfg.Output, "omitted fields stay unset")
		})
	}
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile(writeConfig(t, "cfg.ini", "x=1"))
	assert.True(t, errors.Is(err, pipeerr.ErrConfiguration))

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.True(t, errors.Is(err, pipeerr.ErrConfiguration))

	_, err = LoadFile(writeConfig(t, "bad.json", "{"))
	assert.Equal(t, pipeerr.ExitConfiguration, pipeerr.ExitCode(err))
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, "cfg.yaml", "input: in.sqlite\nchunk_size: 50\n")
	t.Setenv("CHERENKOV_CHUNK_SIZE", "7")
	t.Setenv("CHERENKOV_OUTPUT", "out.sqlite")
	t.Setenv("CHERENKOV_LOAD_DL2", "false")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "in.sqlite", cfg.GetInput())
	assert.Equal(t, "out.sqlite", cfg.GetOutput())
	assert.Equal(t, 7, cfg.GetChunkSize())
	assert.Equal(t, DefaultReconstructor, cfg.GetReconstructor())

	opts := cfg.LoaderOptions(tableloader.Content{Images: true, Simulation: true, DL2: true})
	assert.True(t, opts.LoadDL1Images)
	assert.False(t, opts.LoadDL1Parameters)
	assert.True(t, opts.LoadSimulated)
	assert.False(t, opts.LoadDL2)
}

func TestLoadShippedDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join("..", "..", DefaultConfigPath))
	require.NoError(t, err)
	assert.Equal(t, DefaultChunkSize, cfg.GetChunkSize())
	assert.Equal(t, DefaultReconstructor, cfg.GetReconstructor())
}

func TestMerge(t *testing.T) {
	cfg := DefaultProcessConfig()
	flags := &ProcessConfig{MaxEvents: ptrInt(3), Overwrite: ptrBool(true)}
	cfg.Merge(flags)
	assert.Equal(t, 3, cfg.GetMaxEvents())
	assert.True(t, cfg.GetOverwrite())
	assert.Equal(t, DefaultChunkSize, cfg.GetChunkSize())

	*flags.MaxEvents = 9
	assert.Equal(t, 3, cfg.GetMaxEvents(), "merge copies values")
}

func TestValidate(t *testing.T) {
	valid := func() *ProcessConfig {
		cfg := DefaultProcessConfig()
		cfg.Input, cfg.Output = ptrString("in.sqlite"), ptrString("out.sqlite")
		return cfg
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*ProcessConfig)
	}{
		{"no input", func(c *ProcessConfig) { c.Input = nil }},
		{"no output", func(c *ProcessConfig) { c.Output = ptrString("") }},
		{"same file", func(c *ProcessConfig) { c.Output = ptrString("./in.sqlite") }},
		{"negative max events", func(c *ProcessConfig) { c.MaxEvents = ptrInt(-1) }},
		{"zero chunk", func(c *ProcessConfig) { c.ChunkSize = ptrInt(0) }},
		{"zero workers", func(c *ProcessConfig) { c.Workers = ptrInt(0) }},
		{"bad level", func(c *ProcessConfig) { c.LogLevel = ptrString("chatty") }},
		{"no reconstructor", func(c *ProcessConfig) { c.Reconstructor = ptrString("") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Equal(t, pipeerr.CodeConfiguration, pipeerr.CodeOf(err))
		})
	}
}
