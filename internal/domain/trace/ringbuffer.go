package trace

import "sync"

// RingBuffer is a concurrent-safe fixed-size history of entries.
type RingBuffer struct {
	mu      sync.RWMutex
	entries []Entry
	next    int
	count   int
}

// NewRingBuffer creates a ring buffer that holds up to size entries.
func NewRingBuffer(size int) *RingBuffer {
	if size <= 0 {
		size = 100
	}
	return &RingBuffer{entries: make([]Entry, size)}
}

// Add records e, evicting the oldest entry when full.
func (rb *RingBuffer) Add(e Entry) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.entries[rb.next] = e
	rb.next = (rb.next + 1) % len(rb.entries)
	rb.count = min(rb.count+1, len(rb.entries))
}

// Last returns up to n of the most recent entries, oldest first.
func (rb *RingBuffer) Last(n int) []Entry {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	n = min(n, rb.count)
	if n <= 0 {
		return nil
	}

	size := len(rb.entries)
	out := make([]Entry, 0, n)
	for i := rb.next - n; i < rb.next; i++ {
		out = append(out, rb.entries[(i+size)%size])
	}
	return out
}

// Count returns the number of entries currently stored.
func (rb *RingBuffer) Count() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.count
}

// Reset drops every stored entry.
func (rb *RingBuffer) Reset() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	clear(rb.entries)
	rb.next = 0
	rb.count = 0
}
