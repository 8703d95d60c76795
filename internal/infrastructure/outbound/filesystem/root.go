// Package filesystem stores scenario and body files under a root folder.
package filesystem

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// root confines relative scenario paths to one directory tree.
type root struct {
	dir string
}

func newRoot(dir string) (root, error) {
	if dir == "" {
		return root{}, fmt.Errorf("root directory is empty")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return root{}, fmt.Errorf("failed to resolve root directory: %w", err)
	}
	return root{dir: abs}, nil
}

// Dir returns the absolute root directory.
func (r root) Dir() string { return r.dir }

// resolve turns a slash-separated relative path into an absolute path
// inside the root, rejecting anything that would escape it.
func (r root) resolve(rel string) (string, error) {
	if filepath.IsAbs(rel) || strings.HasPrefix(rel, "/") {
		return "", fmt.Errorf("path traversal denied: %s is absolute", rel)
	}
	full := filepath.Join(r.dir, filepath.FromSlash(rel))
	if err := r.withinRoot(full); err != nil {
		return "", err
	}
	return full, nil
}

// withinRoot checks full against the root lexically, then checks that the
// nearest existing ancestor inside the root does not link outside it.
func (r root) withinRoot(full string) error {
	if !contains(r.dir, full) {
		return fmt.Errorf("path traversal denied: %s is outside root %s", full, r.dir)
	}

	rootReal, err := filepath.EvalSymlinks(r.dir)
	if err != nil {
		// Root not created yet: nothing below it can be a link.
		return nil
	}

	cur := full
	for contains(r.dir, cur) {
		real, err := filepath.EvalSymlinks(cur)
		if err == nil {
			if !contains(rootReal, real) {
				return fmt.Errorf("path traversal denied: %s resolves outside root %s", full, r.dir)
			}
			return nil
		}
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to resolve path: %w", err)
		}
		cur = filepath.Dir(cur)
	}
	return nil
}

func contains(dir, path string) bool {
	return path == dir || strings.HasPrefix(path, dir+string(filepath.Separator))
}
