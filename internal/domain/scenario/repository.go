package scenario

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound indicates a scenario or body file does not exist.
var ErrNotFound = errors.New("scenario not found")

// Mapper is the port for (de)serializing an ordered list of matchers.
type Mapper interface {
	// Format is the wire format tag, also used as the default file extension.
	Format() string
	Marshal(matchers []Matcher) ([]byte, error)
	Unmarshal(data []byte) ([]Matcher, error)
}

// Loader opens files relative to a scenario root.
// It returns ErrNotFound (possibly wrapped) when the path does not exist.
type Loader interface {
	Load(ctx context.Context, path string) (io.ReadCloser, error)
}

// Source resolves a scenario path to its decoded matchers and body files.
type Source interface {
	// Matchers returns the matchers stored at path, or ErrNotFound.
	Matchers(ctx context.Context, path string) ([]Matcher, error)

	// BodyFile returns the raw bytes of a body file, or ErrNotFound.
	BodyFile(ctx context.Context, path string) ([]byte, error)
}
