package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sophialabs/httpmocker/internal/domain/scenario"
)

var _ scenario.Loader = (*Loader)(nil)

// Loader opens scenario and body files below a root directory.
type Loader struct {
	root root
}

// NewLoader creates a loader rooted at rootDir.
func NewLoader(rootDir string) (*Loader, error) {
	r, err := newRoot(rootDir)
	if err != nil {
		return nil, err
	}
	return &Loader{root: r}, nil
}

// Dir returns the absolute root directory.
func (l *Loader) Dir() string { return l.root.Dir() }

// Load opens the file at the slash-separated path relative to the root.
func (l *Loader) Load(_ context.Context, path string) (io.ReadCloser, error) {
	full, err := l.root.resolve(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("open %s: %w", path, scenario.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	if info, err := f.Stat(); err == nil && info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("open %s: is a directory: %w", path, scenario.ErrNotFound)
	}
	return f, nil
}

// List walks the root and returns the slash-separated relative paths of
// every file whose extension is in extensions (compared without case,
// with the leading dot). A missing root lists nothing.
func (l *Loader) List(ctx context.Context, extensions []string) ([]string, error) {
	wanted := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		wanted["."+strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}

	var paths []string
	err := filepath.WalkDir(l.root.Dir(), func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == l.root.Dir() && errors.Is(err, fs.ErrNotExist) {
				return filepath.SkipDir
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !wanted[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		rel, err := filepath.Rel(l.root.Dir(), path)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk scenarios directory: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}
