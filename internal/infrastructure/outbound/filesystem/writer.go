package filesystem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sophialabs/httpmocker/internal/infrastructure/ports"
)

var _ ports.FileWriter = (*Writer)(nil)

// Writer persists recorded files below a root directory.
type Writer struct {
	root root
}

// NewWriter creates a writer rooted at rootDir. The directory is created
// on first write if it does not exist.
func NewWriter(rootDir string) (*Writer, error) {
	r, err := newRoot(rootDir)
	if err != nil {
		return nil, err
	}
	return &Writer{root: r}, nil
}

// Dir returns the absolute root directory.
func (w *Writer) Dir() string { return w.root.Dir() }

// WriteFile creates missing parent directories, then replaces the file
// at the slash-separated relative path.
func (w *Writer) WriteFile(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := w.root.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("failed to create parent directories for %s: %w", path, err)
	}
	return atomicWriteFile(full, data)
}

// atomicWriteFile writes content to a temp file then renames it to the target path.
func atomicWriteFile(target string, content []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), ".httpmocker-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to set file mode: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
