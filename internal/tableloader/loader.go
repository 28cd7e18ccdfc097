package tableloader

import (
	"context"
	"errors"
	"fmt"

	"github.com/banshee-data/cherenkov.pipe/internal/eventfile"
	"github.com/banshee-data/cherenkov.pipe/internal/instrument"
	"github.com/banshee-data/cherenkov.pipe/internal/monitoring"
	"github.com/banshee-data/cherenkov.pipe/internal/pipeerr"
)

// Config is the input of NewFromConfig. Exactly one of Path and File must
// be set.
type Config struct {
	Path string
	File *eventfile.File
	Options
}

// Loader reads joined event tables from one file.
type Loader struct {
	file  *eventfile.File
	owned bool
	opts  Options

	structure    Structure
	structureErr error
	subarray     *instrument.SubarrayDescription
}

// Open opens path read-only. The loader owns the file and Close closes it.
func Open(path string, opts Options) (*Loader, error) {
	return NewFromConfig(Config{Path: path, Options: opts})
}

// New reads from an open file. The caller keeps ownership of f.
func New(f *eventfile.File, opts Options) (*Loader, error) {
	return NewFromConfig(Config{File: f, Options: opts})
}

// NewFromConfig builds a loader from a path or an open file.
func NewFromConfig(cfg Config) (*Loader, error) {
	switch {
	case cfg.Path == "" && cfg.File == nil:
		return nil, pipeerr.New(pipeerr.CodeValue, "table loader needs a path or an open file")
	case cfg.Path != "" && cfg.File != nil:
		return nil, pipeerr.New(pipeerr.CodeValue, "table loader takes a path or an open file, not both")
	}

	l := &Loader{file: cfg.File, opts: cfg.Options}
	if cfg.Path != "" {
		f, err := eventfile.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		l.file, l.owned = f, true
	}
	if err := l.init(context.Background()); err != nil {
		_ = l.Close()
		return nil, err
	}
	return l, nil
}

func (l *Loader) init(ctx context.Context) error {
	if !l.file.IsOpen() {
		return pipeerr.New(pipeerr.CodeValue, "event file is closed")
	}
	sub, err := instrument.Read(ctx, l.file)
	if err != nil {
		return fmt.Errorf("table loader: %w", err)
	}
	l.subarray = sub

	l.structure, err = DetectStructure(ctx, l.file)
	switch {
	case errors.Is(err, errNoTelescopeTables):
		// Subarray events remain readable.
		l.structureErr = err
	case err != nil:
		return err
	}
	monitoring.Debugf("table loader: %s, structure %s, %d telescopes", l.file.Path(), l.structure, sub.NumTels())
	return nil
}

// Close closes the file if the loader opened it.
func (l *Loader) Close() error {
	if l.owned && l.file != nil {
		return l.file.Close()
	}
	return nil
}

// File returns the underlying event file.
func (l *Loader) File() *eventfile.File { return l.file }

// Subarray returns the instrument description read at open.
func (l *Loader) Subarray() *instrument.SubarrayDescription { return l.subarray }

// Structure returns the detected telescope dataset structure.
func (l *Loader) Structure() (Structure, error) {
	return l.structure, l.structureErr
}

// Options returns the loader options.
func (l *Loader) Options() Options { return l.opts }

// NumEvents returns the number of subarray events in the file.
func (l *Loader) NumEvents(ctx context.Context) (int, error) {
	return l.file.NumRows(ctx, eventfile.SubarrayTriggerPath)
}

// requireGroup fails with a value error when a requested group is absent.
func (l *Loader) requireGroup(ctx context.Context, group, option string) error {
	ok, err := l.file.HasGroup(ctx, group)
	if err != nil {
		return err
	}
	if !ok {
		return pipeerr.WithMetadata(pipeerr.CodeValue, "requested data not in file",
			map[string]string{"option": option, "group": group, "file": l.file.Path()})
	}
	return nil
}

// requireDataset fails with a value error when a requested dataset is absent.
func (l *Loader) requireDataset(ctx context.Context, path, option string) error {
	ok, err := l.file.HasDataset(ctx, path)
	if err != nil {
		return err
	}
	if !ok {
		return pipeerr.WithMetadata(pipeerr.CodeValue, "requested data not in file",
			map[string]string{"option": option, "dataset": path, "file": l.file.Path()})
	}
	return nil
}
