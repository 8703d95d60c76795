// Package clock is the wall clock used outside tests.
package clock

import (
	"context"
	"time"

	"github.com/sophialabs/httpmocker/internal/infrastructure/ports"
)

// System reads the operating system clock.
type System struct{}

var _ ports.Clock = System{}

// New returns the system clock.
func New() System { return System{} }

func (System) Now() time.Time { return time.Now() }

// SleepContext holds a mocked response for d. When the request context
// ends first the wait stops and the context's cause is returned.
func (System) SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return context.Cause(ctx)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}
