package store

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/serroba/livepoll-go/internal/ratelimit"
)

// RateLimitMemoryStore is an in-memory implementation of ratelimit.Store.
type RateLimitMemoryStore struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	clock    clockwork.Clock
}

// NewRateLimitMemoryStore creates a new in-memory rate limit store.
func NewRateLimitMemoryStore(clock clockwork.Clock) *RateLimitMemoryStore {
	return &RateLimitMemoryStore{
		requests: make(map[string][]time.Time),
		clock:    clock,
	}
}

func (s *RateLimitMemoryStore) Reserve(
	_ context.Context, key string, limit int64, window time.Duration,
) (ratelimit.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	cutoff := now.Add(-window)

	// Prune entries that fell out of the window. Timestamps are appended in
	// order, so the slice stays sorted.
	timestamps := s.requests[key]
	valid := make([]time.Time, 0, len(timestamps)+1)

	for _, ts := range timestamps {
		if ts.After(cutoff) {
			valid = append(valid, ts)
		}
	}

	prior := int64(len(valid))

	if prior >= limit {
		s.requests[key] = valid

		return ratelimit.Reservation{Prior: prior, Oldest: valid[0]}, nil
	}

	valid = append(valid, now)
	s.requests[key] = valid

	return ratelimit.Reservation{Admitted: true, Prior: prior}, nil
}

// Compile-time check.
var _ ratelimit.Store = (*RateLimitMemoryStore)(nil)
