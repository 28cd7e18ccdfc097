// Package fsutil resolves file paths for the command line tools.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// CanonicalPath returns the absolute, symlink free form of path. For a path
// that does not exist yet the nearest existing parent directory is resolved
// and the remaining components are appended.
func CanonicalPath(path string) (string, error) {
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	check := abs
	for {
		parent := filepath.Dir(check)
		if parent == check {
			return abs, nil
		}
		if resolved, err := filepath.EvalSymlinks(parent); err == nil {
			rel, err := filepath.Rel(parent, abs)
			if err != nil {
				return "", fmt.Errorf("resolve %s: %w", path, err)
			}
			return filepath.Join(resolved, rel), nil
		}
		check = parent
	}
}

// SameFile reports whether a and b name the same file, following symlinks.
// Hard links to an existing file are detected with os.SameFile.
func SameFile(a, b string) (bool, error) {
	ca, err := CanonicalPath(a)
	if err != nil {
		return false, err
	}
	cb, err := CanonicalPath(b)
	if err != nil {
		return false, err
	}
	if ca == cb {
		return true, nil
	}
	fa, errA := os.Stat(ca)
	fb, errB := os.Stat(cb)
	if errA != nil || errB != nil {
		return false, nil
	}
	return os.SameFile(fa, fb), nil
}

// EnsureParentDir creates the directory that will hold path.
func EnsureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	return nil
}
