package ratelimit

import (
	"context"
	"time"
)

// Reservation is the outcome of one atomic window reservation.
type Reservation struct {
	// Admitted reports whether an entry was recorded for this request.
	Admitted bool
	// Prior is the number of entries that were already in the window.
	Prior int64
	// Oldest is the timestamp of the oldest surviving entry. Only set when
	// the reservation was rejected; it drives the retry-after computation.
	Oldest time.Time
}

// Store is the shared counter store backing the sliding window.
type Store interface {
	// Reserve prunes entries older than the window, counts the survivors,
	// and records a new entry only when the count is below limit. The whole
	// sequence must execute as one atomic unit per key so concurrent bursts
	// from the same identity cannot slip past the limit.
	Reserve(ctx context.Context, key string, limit int64, window time.Duration) (Reservation, error)
}
