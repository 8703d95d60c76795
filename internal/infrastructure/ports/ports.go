// Package ports declares what the use cases need from the outside world.
package ports

import (
	"context"
	"time"
)

// Clock stamps trace entries and times response delays.
type Clock interface {
	Now() time.Time
	// SleepContext waits for d. It returns early with the context's
	// cause when ctx ends first.
	SleepContext(ctx context.Context, d time.Duration) error
}

// Logger is the structured logger shared by every component. Args are
// alternating keys and values.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// FileWriter persists recorded scenario and body files under a root folder.
type FileWriter interface {
	// WriteFile replaces the file at the root-relative path, creating
	// missing parent directories first.
	WriteFile(ctx context.Context, path string, data []byte) error
}

// RateLimiter throttles live upstream calls. Allow reports whether one more
// call for key fits a bucket refilled at rate tokens per second and holding
// at most burst tokens.
type RateLimiter interface {
	Allow(ctx context.Context, key string, rate float64, burst int) bool
}
