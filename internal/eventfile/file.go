package eventfile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/cherenkov.pipe/internal/pipeerr"
)

var (
	// ErrDatasetNotFound is wrapped when a dataset path does not exist.
	ErrDatasetNotFound = errors.New("dataset not found")
	// ErrReadOnly is wrapped by writes on a file opened with Open.
	ErrReadOnly = errors.New("file is read-only")
)

// File is an open event file.
type File struct {
	db       *sql.DB
	path     string
	readOnly bool

	mu     sync.Mutex
	closed bool
}

// Open opens an existing event file read-only.
func Open(path string) (*File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, pipeerr.Wrap(pipeerr.CodeIO, "resolve path", err)
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, pipeerr.Wrap(pipeerr.CodeIO, fmt.Sprintf("open %s", path), err)
	}
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro&_pragma=query_only(1)", abs))
	if err != nil {
		return nil, pipeerr.Wrap(pipeerr.CodeIO, fmt.Sprintf("open %s", path), err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, pipeerr.Wrap(pipeerr.CodeIO, fmt.Sprintf("open %s", path), err)
	}
	return &File{db: db, path: abs, readOnly: true}, nil
}

// Create makes a new writable event file. An existing file is replaced
// only when overwrite is set.
func Create(path string, overwrite bool) (*File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, pipeerr.Wrap(pipeerr.CodeIO, "resolve path", err)
	}
	if _, err := os.Stat(abs); err == nil {
		if !overwrite {
			return nil, pipeerr.WithMetadata(pipeerr.CodeConfiguration,
				"output file exists, use overwrite to replace it", map[string]string{"path": abs})
		}
		if err := os.Remove(abs); err != nil {
			return nil, pipeerr.Wrap(pipeerr.CodeIO, "remove existing output", err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, pipeerr.Wrap(pipeerr.CodeIO, fmt.Sprintf("stat %s", path), err)
	}

	db, err := sql.Open("sqlite", abs)
	if err != nil {
		return nil, pipeerr.Wrap(pipeerr.CodeIO, fmt.Sprintf("create %s", path), err)
	}
	// One connection so pragmas and writes share a session.
	db.SetMaxOpenConns(1)
	for _, p := range []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
	} {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, pipeerr.Wrap(pipeerr.CodeIO, "apply "+p, err)
		}
	}
	f := &File{db: db, path: abs}
	if err := f.MigrateUp(); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Printf("created event file %s", abs)
	return f, nil
}

// Close releases the file. Closing twice is a no-op.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	return f.db.Close()
}

// IsOpen reports whether Close has not been called yet.
func (f *File) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.closed
}

// Path returns the absolute file path.
func (f *File) Path() string { return f.path }

// ReadOnly reports whether the file was opened with Open.
func (f *File) ReadOnly() bool { return f.readOnly }

// Datasets lists dataset paths under prefix in sorted order. An empty
// prefix lists every dataset.
func (f *File) Datasets(ctx context.Context, prefix string) ([]string, error) {
	rows, err := f.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name LIKE '/%' ORDER BY name`)
	if err != nil {
		return nil, pipeerr.Wrap(pipeerr.CodeIO, "list datasets", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, pipeerr.Wrap(pipeerr.CodeIO, "list datasets", err)
		}
		if prefix == "" || name == prefix || strings.HasPrefix(name, groupPrefix(prefix)) {
			out = append(out, name)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, pipeerr.Wrap(pipeerr.CodeIO, "list datasets", err)
	}
	return out, nil
}

// Children returns the sorted names of the direct children of group.
func (f *File) Children(ctx context.Context, group string) ([]string, error) {
	paths, err := f.Datasets(ctx, group)
	if err != nil {
		return nil, err
	}
	gp := groupPrefix(group)
	var out []string
	for _, p := range paths {
		rest, ok := strings.CutPrefix(p, gp)
		if !ok || rest == "" {
			continue
		}
		child, _, _ := strings.Cut(rest, "/")
		if !slices.Contains(out, child) {
			out = append(out, child)
		}
	}
	slices.Sort(out)
	return out, nil
}

// HasGroup reports whether any dataset lives below group.
func (f *File) HasGroup(ctx context.Context, group string) (bool, error) {
	children, err := f.Children(ctx, group)
	if err != nil {
		return false, err
	}
	return len(children) > 0, nil
}

// HasDataset reports whether the dataset exists.
func (f *File) HasDataset(ctx context.Context, path string) (bool, error) {
	var n int
	err := f.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, path).Scan(&n)
	if err != nil {
		return false, pipeerr.Wrap(pipeerr.CodeIO, "lookup dataset", err)
	}
	return n > 0, nil
}

// NumRows returns the row count of a dataset.
func (f *File) NumRows(ctx context.Context, path string) (int, error) {
	if err := f.requireDataset(ctx, path); err != nil {
		return 0, err
	}
	var n int
	if err := f.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+quoteIdent(path)).Scan(&n); err != nil {
		return 0, pipeerr.Wrap(pipeerr.CodeIO, "count rows of "+path, err)
	}
	return n, nil
}

func (f *File) requireDataset(ctx context.Context, path string) error {
	ok, err := f.HasDataset(ctx, path)
	if err != nil {
		return err
	}
	if !ok {
		return pipeerr.Wrap(pipeerr.CodeIO, path, ErrDatasetNotFound)
	}
	return nil
}

func groupPrefix(group string) string {
	return strings.TrimSuffix(group, "/") + "/"
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
