package services

import (
	"context"
	"fmt"
	"io"

	"github.com/sophialabs/httpmocker/internal/domain/scenario"
)

var _ scenario.Source = (*FileSource)(nil)

// FileSource reads scenario files through a Loader and decodes them with a
// Mapper. Decoded lists are shared through the optional cache and must be
// treated as read-only.
type FileSource struct {
	loader scenario.Loader
	mapper scenario.Mapper
	cache  *ScenarioCache // nil disables caching
}

// NewFileSource creates a FileSource. cache may be nil.
func NewFileSource(loader scenario.Loader, mapper scenario.Mapper, cache *ScenarioCache) *FileSource {
	return &FileSource{loader: loader, mapper: mapper, cache: cache}
}

// Mapper returns the mapper used to decode scenario files.
func (s *FileSource) Mapper() scenario.Mapper { return s.mapper }

// Matchers loads and decodes the scenario file at path.
func (s *FileSource) Matchers(ctx context.Context, path string) ([]scenario.Matcher, error) {
	load := func() ([]scenario.Matcher, error) {
		data, err := s.read(ctx, path)
		if err != nil {
			return nil, err
		}
		matchers, err := s.mapper.Unmarshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
		return matchers, nil
	}
	if s.cache == nil {
		return load()
	}
	return s.cache.Get(path, load)
}

// BodyFile returns the raw content of a body file. Body files are not cached.
func (s *FileSource) BodyFile(ctx context.Context, path string) ([]byte, error) {
	return s.read(ctx, path)
}

func (s *FileSource) read(ctx context.Context, path string) ([]byte, error) {
	rc, err := s.loader.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}
