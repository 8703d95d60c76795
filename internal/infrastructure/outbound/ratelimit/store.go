// Package ratelimit throttles live upstream calls, keyed by upstream host.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/sophialabs/httpmocker/internal/infrastructure/ports"
)

var _ ports.RateLimiter = (*TokenBucketStore)(nil)

type bucket struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// TokenBucketStore keeps one token bucket per key. Buckets idle for longer
// than the TTL are dropped by Evict.
type TokenBucketStore struct {
	clock ports.Clock
	ttl   time.Duration

	mu      sync.Mutex
	buckets map[string]*bucket

	stopOnce sync.Once
	stop     chan struct{}
}

// NewTokenBucketStore creates a store whose buckets are timed by clk.
// It starts a goroutine evicting idle buckets every TTL; call Stop to end it.
func NewTokenBucketStore(clk ports.Clock, ttl time.Duration) *TokenBucketStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	s := &TokenBucketStore{
		clock:   clk,
		ttl:     ttl,
		buckets: make(map[string]*bucket),
		stop:    make(chan struct{}),
	}
	go s.evictLoop()
	return s
}

// Stop terminates the eviction goroutine. Safe to call more than once.
func (s *TokenBucketStore) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *TokenBucketStore) evictLoop() {
	ticker := time.NewTicker(s.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Evict()
		case <-s.stop:
			return
		}
	}
}

// Allow takes one token from the bucket for key. A rate of zero or less
// disables throttling.
func (s *TokenBucketStore) Allow(_ context.Context, key string, r float64, burst int) bool {
	if r <= 0 {
		return true
	}
	burst = max(burst, 1)
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Limit(r), burst)}
		s.buckets[key] = b
	} else if b.limiter.Limit() != rate.Limit(r) || b.limiter.Burst() != burst {
		b.limiter.SetLimitAt(now, rate.Limit(r))
		b.limiter.SetBurstAt(now, burst)
	}

	b.lastUsed = now
	return b.limiter.AllowN(now, 1)
}

// Evict removes buckets idle for longer than the TTL.
func (s *TokenBucketStore) Evict() {
	cutoff := s.clock.Now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	for key, b := range s.buckets {
		if b.lastUsed.Before(cutoff) {
			delete(s.buckets, key)
		}
	}
}

// Len returns the number of live buckets.
func (s *TokenBucketStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}
