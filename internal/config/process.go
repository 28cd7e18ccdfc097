// Package config loads the settings of the processing tool.
//
// A config file provides the base values; CHERENKOV_* environment variables
// override it; command line flags override both. Fields are pointers so an
// omitted setting keeps its default, which the Get* methods supply.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/banshee-data/cherenkov.pipe/internal/monitoring"
	"github.com/banshee-data/cherenkov.pipe/internal/pipeerr"
	"github.com/banshee-data/cherenkov.pipe/internal/tableloader"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "CHERENKOV_"

// DefaultConfigPath is the example config shipped with the repository.
const DefaultConfigPath = "config/process.defaults.yaml"

// Defaults for unset fields.
const (
	DefaultChunkSize     = 1000
	DefaultWorkers       = 1
	DefaultProvenanceLog = "process.provenance.log"
	DefaultReconstructor = "HillasReconstructor"
)

// ProcessConfig is the root configuration of the process tool.
type ProcessConfig struct {
	Input           *string `json:"input,omitempty" yaml:"input,omitempty" toml:"input,omitempty" env:"INPUT"`
	Output          *string `json:"output,omitempty" yaml:"output,omitempty" toml:"output,omitempty" env:"OUTPUT"`
	Overwrite       *bool   `json:"overwrite,omitempty" yaml:"overwrite,omitempty" toml:"overwrite,omitempty" env:"OVERWRITE"`
	WriteParameters *bool   `json:"write_parameters,omitempty" yaml:"write_parameters,omitempty" toml:"write_parameters,omitempty" env:"WRITE_PARAMETERS"`
	WriteImages     *bool   `json:"write_images,omitempty" yaml:"write_images,omitempty" toml:"write_images,omitempty" env:"WRITE_IMAGES"`
	MaxEvents       *int    `json:"max_events,omitempty" yaml:"max_events,omitempty" toml:"max_events,omitempty" env:"MAX_EVENTS"`
	ChunkSize       *int    `json:"chunk_size,omitempty" yaml:"chunk_size,omitempty" toml:"chunk_size,omitempty" env:"CHUNK_SIZE"`
	Workers         *int    `json:"workers,omitempty" yaml:"workers,omitempty" toml:"workers,omitempty" env:"WORKERS"`
	ProvenanceLog   *string `json:"provenance_log,omitempty" yaml:"provenance_log,omitempty" toml:"provenance_log,omitempty" env:"PROVENANCE_LOG"`
	LogLevel        *string `json:"log_level,omitempty" yaml:"log_level,omitempty" toml:"log_level,omitempty" env:"LOG_LEVEL"`
	ComputeImpact   *bool   `json:"compute_impact,omitempty" yaml:"compute_impact,omitempty" toml:"compute_impact,omitempty" env:"COMPUTE_IMPACT"`
	Reconstructor   *string `json:"reconstructor,omitempty" yaml:"reconstructor,omitempty" toml:"reconstructor,omitempty" env:"RECONSTRUCTOR"`

	// Loader switches. Enabled switches only apply when the input has the data.
	LoadSimulated *bool `json:"load_simulated,omitempty" yaml:"load_simulated,omitempty" toml:"load_simulated,omitempty" env:"LOAD_SIMULATED"`
	LoadDL2       *bool `json:"load_dl2,omitempty" yaml:"load_dl2,omitempty" toml:"load_dl2,omitempty" env:"LOAD_DL2"`
}

// Helper functions to create pointers
func ptrBool(v bool) *bool       { return &v }
func ptrInt(v int) *int          { return &v }
func ptrString(v string) *string { return &v }

// DefaultProcessConfig returns a config with every default filled in.
func DefaultProcessConfig() *ProcessConfig {
	return &ProcessConfig{
		Input:           ptrString(""),
		Output:          ptrString(""),
		Overwrite:       ptrBool(false),
		WriteParameters: ptrBool(false),
		WriteImages:     ptrBool(false),
		MaxEvents:       ptrInt(0),
		ChunkSize:       ptrInt(DefaultChunkSize),
		Workers:         ptrInt(DefaultWorkers),
		ProvenanceLog:   ptrString(DefaultProvenanceLog),
		LogLevel:        ptrString("info"),
		ComputeImpact:   ptrBool(false),
		Reconstructor:   ptrString(DefaultReconstructor),
		LoadSimulated:   ptrBool(true),
		LoadDL2:         ptrBool(true),
	}
}

// Load reads a config file (.json, .yaml, .yml or .toml), fills in the
// defaults and applies environment overrides. An empty path skips the file.
func Load(path string) (*ProcessConfig, error) {
	cfg := &ProcessConfig{}
	if path != "" {
		var err error
		if cfg, err = LoadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads a ProcessConfig from a file without environment overrides.
// The file must be under 1 MiB and have a known extension. Fields omitted
// from the file stay nil.
func LoadFile(path string) (*ProcessConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	switch ext {
	case ".json", ".yaml", ".yml", ".toml":
	default:
		return nil, pipeerr.Newf(pipeerr.CodeConfiguration, "config file must have .json, .yaml or .toml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, pipeerr.Wrap(pipeerr.CodeConfiguration, "failed to stat config file", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, pipeerr.Newf(pipeerr.CodeConfiguration, "config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, pipeerr.Wrap(pipeerr.CodeConfiguration, "failed to read config file", err)
	}

	cfg := &ProcessConfig{}
	switch ext {
	case ".json":
		err = json.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, pipeerr.Wrap(pipeerr.CodeConfiguration, fmt.Sprintf("failed to parse %s", cleanPath), err)
	}
	monitoring.Debugf("loaded config %s", cleanPath)
	return cfg, nil
}

// ApplyEnv fills unset fields with defaults and then overrides them from
// CHERENKOV_* environment variables.
func (c *ProcessConfig) ApplyEnv() error {
	filled := DefaultProcessConfig()
	filled.Merge(c)
	*c = *filled
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return pipeerr.Wrap(pipeerr.CodeConfiguration, "parse env", err)
	}
	return nil
}

// Merge copies every field set in o over c.
func (c *ProcessConfig) Merge(o *ProcessConfig) {
	if o == nil {
		return
	}
	mergeString(&c.Input, o.Input)
	mergeString(&c.Output, o.Output)
	mergeBool(&c.Overwrite, o.Overwrite)
	mergeBool(&c.WriteParameters, o.WriteParameters)
	mergeBool(&c.WriteImages, o.WriteImages)
	mergeInt(&c.MaxEvents, o.MaxEvents)
	mergeInt(&c.ChunkSize, o.ChunkSize)
	mergeInt(&c.Workers, o.Workers)
	mergeString(&c.ProvenanceLog, o.ProvenanceLog)
	mergeString(&c.LogLevel, o.LogLevel)
	mergeBool(&c.ComputeImpact, o.ComputeImpact)
	mergeString(&c.Reconstructor, o.Reconstructor)
	mergeBool(&c.LoadSimulated, o.LoadSimulated)
	mergeBool(&c.LoadDL2, o.LoadDL2)
}

func mergeString(dst **string, src *string) {
	if src != nil {
		*dst = ptrString(*src)
	}
}

func mergeBool(dst **bool, src *bool) {
	if src != nil {
		*dst = ptrBool(*src)
	}
}

func mergeInt(dst **int, src *int) {
	if src != nil {
		*dst = ptrInt(*src)
	}
}

// Validate checks that the configuration values are usable.
func (c *ProcessConfig) Validate() error {
	in, out := c.GetInput(), c.GetOutput()
	if in == "" {
		return pipeerr.New(pipeerr.CodeConfiguration, "input file is required")
	}
	if out == "" {
		return pipeerr.New(pipeerr.CodeConfiguration, "output file is required")
	}
	if filepath.Clean(in) == filepath.Clean(out) {
		return pipeerr.Newf(pipeerr.CodeConfiguration, "output %s must differ from input", out)
	}
	if c.MaxEvents != nil && *c.MaxEvents < 0 {
		return pipeerr.Newf(pipeerr.CodeConfiguration, "max_events must be non-negative, got %d", *c.MaxEvents)
	}
	if c.ChunkSize != nil && *c.ChunkSize <= 0 {
		return pipeerr.Newf(pipeerr.CodeConfiguration, "chunk_size must be positive, got %d", *c.ChunkSize)
	}
	if c.Workers != nil && *c.Workers < 1 {
		return pipeerr.Newf(pipeerr.CodeConfiguration, "workers must be at least 1, got %d", *c.Workers)
	}
	if _, err := monitoring.ParseLevel(c.GetLogLevel()); err != nil {
		return pipeerr.Wrap(pipeerr.CodeConfiguration, "invalid log_level", err)
	}
	if c.GetReconstructor() == "" {
		return pipeerr.New(pipeerr.CodeConfiguration, "reconstructor must not be empty")
	}
	return nil
}

// GetInput returns the input path.
func (c *ProcessConfig) GetInput() string {
	if c.Input == nil {
		return ""
	}
	return *c.Input
}

// GetOutput returns the output path.
func (c *ProcessConfig) GetOutput() string {
	if c.Output == nil {
		return ""
	}
	return *c.Output
}

// GetOverwrite returns the overwrite value or the default.
func (c *ProcessConfig) GetOverwrite() bool {
	return c.Overwrite != nil && *c.Overwrite
}

// GetWriteParameters returns the write_parameters value or the default.
func (c *ProcessConfig) GetWriteParameters() bool {
	return c.WriteParameters != nil && *c.WriteParameters
}

// GetWriteImages returns the write_images value or the default.
func (c *ProcessConfig) GetWriteImages() bool {
	return c.WriteImages != nil && *c.WriteImages
}

// GetMaxEvents returns max_events; 0 means all events.
func (c *ProcessConfig) GetMaxEvents() int {
	if c.MaxEvents == nil {
		return 0
	}
	return *c.MaxEvents
}

// GetChunkSize returns the chunk_size value or the default.
func (c *ProcessConfig) GetChunkSize() int {
	if c.ChunkSize == nil || *c.ChunkSize <= 0 {
		return DefaultChunkSize
	}
	return *c.ChunkSize
}

// GetWorkers returns the workers value or the default.
func (c *ProcessConfig) GetWorkers() int {
	if c.Workers == nil || *c.Workers < 1 {
		return DefaultWorkers
	}
	return *c.Workers
}

// GetProvenanceLog returns the provenance log path or the default. An
// explicit empty string disables the log.
func (c *ProcessConfig) GetProvenanceLog() string {
	if c.ProvenanceLog == nil {
		return DefaultProvenanceLog
	}
	return *c.ProvenanceLog
}

// GetLogLevel returns the log_level value or the default.
func (c *ProcessConfig) GetLogLevel() string {
	if c.LogLevel == nil || *c.LogLevel == "" {
		return "info"
	}
	return *c.LogLevel
}

// GetComputeImpact returns the compute_impact value or the default.
func (c *ProcessConfig) GetComputeImpact() bool {
	return c.ComputeImpact != nil && *c.ComputeImpact
}

// GetReconstructor returns the reconstructor name or the default.
func (c *ProcessConfig) GetReconstructor() string {
	if c.Reconstructor == nil {
		return DefaultReconstructor
	}
	return *c.Reconstructor
}

// LoaderOptions returns table loader switches for an input with the given
// content. The load_simulated and load_dl2 settings can only turn loading
// off.
func (c *ProcessConfig) LoaderOptions(content tableloader.Content) tableloader.Options {
	opts := content.Options()
	opts.LoadSimulated = opts.LoadSimulated && (c.LoadSimulated == nil || *c.LoadSimulated)
	opts.LoadDL2 = opts.LoadDL2 && (c.LoadDL2 == nil || *c.LoadDL2)
	return opts
}
