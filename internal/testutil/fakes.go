package testutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/sophialabs/httpmocker/internal/domain/scenario"
	"github.com/sophialabs/httpmocker/internal/infrastructure/ports"
)

var _ ports.Logger = (*NoopLogger)(nil)

// NoopLogger discards all log output.
type NoopLogger struct{}

func (l *NoopLogger) Info(string, ...any)  {}
func (l *NoopLogger) Warn(string, ...any)  {}
func (l *NoopLogger) Error(string, ...any) {}
func (l *NoopLogger) Debug(string, ...any) {}

var _ ports.Clock = (*FixedClock)(nil)

// FixedClock returns a settable time and never sleeps.
type FixedClock struct {
	mu sync.Mutex
	T  time.Time
}

func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.T
}

// Advance moves the clock forward by d.
func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.T = c.T.Add(d)
}

func (c *FixedClock) SleepContext(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

var _ ports.Clock = (*RecordingClock)(nil)

// RecordingClock records requested sleeps without waiting.
type RecordingClock struct {
	FixedClock

	mu     sync.Mutex
	sleeps []time.Duration
}

func (c *RecordingClock) SleepContext(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.mu.Unlock()
	return ctx.Err()
}

// Sleeps returns every duration passed to SleepContext, in call order.
func (c *RecordingClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

var _ ports.RateLimiter = (*StubRateLimiter)(nil)

// StubRateLimiter returns a configurable Allow result.
type StubRateLimiter struct {
	AllowAll bool
}

func (r *StubRateLimiter) Allow(context.Context, string, float64, int) bool {
	return r.AllowAll
}

var (
	_ scenario.Loader  = (*MemoryFS)(nil)
	_ ports.FileWriter = (*MemoryFS)(nil)
)

// MemoryFS is an in-memory file tree usable as both loader and writer.
// Setting WriteErr or LoadErr makes the matching operation fail.
type MemoryFS struct {
	mu       sync.Mutex
	files    map[string][]byte
	WriteErr error
	LoadErr  error
}

// NewMemoryFS returns a MemoryFS seeded with files.
func NewMemoryFS(files map[string]string) *MemoryFS {
	fs := &MemoryFS{files: make(map[string][]byte)}
	for p, content := range files {
		fs.files[p] = []byte(content)
	}
	return fs
}

func (fs *MemoryFS) Load(_ context.Context, path string) (io.ReadCloser, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.LoadErr != nil {
		return nil, fs.LoadErr
	}
	data, ok := fs.files[path]
	if !ok {
		return nil, fmt.Errorf("load %s: %w", path, scenario.ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (fs *MemoryFS) WriteFile(_ context.Context, path string, data []byte) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.WriteErr != nil {
		return fs.WriteErr
	}
	if fs.files == nil {
		fs.files = make(map[string][]byte)
	}
	fs.files[path] = append([]byte(nil), data...)
	return nil
}

// File returns the content stored at path.
func (fs *MemoryFS) File(path string) (string, bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	data, ok := fs.files[path]
	return string(data), ok
}

// Paths returns every stored path, sorted.
func (fs *MemoryFS) Paths() []string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	paths := make([]string, 0, len(fs.files))
	for p := range fs.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
