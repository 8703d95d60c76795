package filing

import (
	"context"
	"sync"

	"github.com/sophialabs/httpmocker/internal/domain/scenario"
)

// InMemory keys scenarios by full request URL and serves them from a
// registry instead of files. It is both a Policy and a scenario.Source.
type InMemory struct {
	mu       sync.RWMutex
	matchers map[string][]scenario.Matcher
}

// NewInMemory returns an empty registry.
func NewInMemory() *InMemory {
	return &InMemory{matchers: make(map[string][]scenario.Matcher)}
}

func (m *InMemory) Path(req *scenario.HTTPRequest) string {
	return req.URL()
}

// Add appends matchers for url, after any already registered.
func (m *InMemory) Add(url string, matchers ...scenario.Matcher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matchers[url] = append(m.matchers[url], matchers...)
}

// Matchers returns a copy of the matchers registered for url.
func (m *InMemory) Matchers(_ context.Context, url string) ([]scenario.Matcher, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list, ok := m.matchers[url]
	if !ok {
		return nil, scenario.ErrNotFound
	}
	out := make([]scenario.Matcher, len(list))
	copy(out, list)
	return out, nil
}

// BodyFile is unsupported: in-memory responses carry literal bodies.
func (m *InMemory) BodyFile(context.Context, string) ([]byte, error) {
	return nil, scenario.ErrNotFound
}
