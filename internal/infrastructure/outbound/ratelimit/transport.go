package ratelimit

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sophialabs/httpmocker/internal/infrastructure/ports"
)

// ErrLimited is returned when a live call exceeds its host's rate.
var ErrLimited = errors.New("upstream rate limit exceeded")

// Transport throttles calls to each upstream host before handing them to
// the next transport.
type Transport struct {
	next    http.RoundTripper
	limiter ports.RateLimiter
	rate    float64
	burst   int
}

// NewTransport wraps next. rate is requests per second per host; zero or
// less disables throttling.
func NewTransport(next http.RoundTripper, limiter ports.RateLimiter, rate float64, burst int) *Transport {
	if next == nil {
		next = http.DefaultTransport
	}
	return &Transport{next: next, limiter: limiter, rate: rate, burst: burst}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.rate > 0 && !t.limiter.Allow(req.Context(), req.URL.Host, t.rate, t.burst) {
		if req.Body != nil {
			_ = req.Body.Close()
		}
		return nil, fmt.Errorf("%s: %w", req.URL.Host, ErrLimited)
	}
	return t.next.RoundTrip(req)
}
