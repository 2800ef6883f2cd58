package ratelimit

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Decision is the result of an admission check. Remaining, RetryAfter and
// ResetAt carry the metadata surfaced to clients in rate-limit headers.
type Decision struct {
	Allowed bool
	// FailedOpen marks a request admitted because the store was unreachable.
	// Limit metadata is not populated in that case.
	FailedOpen bool
	Limit      int64
	Remaining  int64
	Window     time.Duration
	RetryAfter time.Duration
	ResetAt    time.Time
}

// SlidingWindowLimiter admits requests per identity using a sliding time
// window over a shared counter store.
type SlidingWindowLimiter struct {
	store  Store
	limit  int64
	window time.Duration
	clock  clockwork.Clock
	logger *zap.Logger
}

// NewSlidingWindowLimiter creates a new sliding window rate limiter.
func NewSlidingWindowLimiter(
	store Store, limit int64, window time.Duration, clock clockwork.Clock, logger *zap.Logger,
) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		store:  store,
		limit:  limit,
		window: window,
		clock:  clock,
		logger: logger,
	}
}

// Allow checks whether a request from the given identity is admitted.
//
// If the store is unreachable the limiter fails open: voting stays available
// even when rate enforcement cannot run.
func (l *SlidingWindowLimiter) Allow(ctx context.Context, identity string) Decision {
	res, err := l.store.Reserve(ctx, identity, l.limit, l.window)
	if err != nil {
		l.logger.Warn("rate limit store unavailable, failing open",
			zap.String("identity", identity),
			zap.Error(err),
		)

		return Decision{Allowed: true, FailedOpen: true}
	}

	now := l.clock.Now()

	if !res.Admitted {
		resetAt := res.Oldest.Add(l.window)

		return Decision{
			Allowed:    false,
			Limit:      l.limit,
			Remaining:  0,
			Window:     l.window,
			RetryAfter: retryAfter(resetAt, now),
			ResetAt:    resetAt,
		}
	}

	return Decision{
		Allowed:   true,
		Limit:     l.limit,
		Remaining: l.limit - res.Prior - 1,
		Window:    l.window,
		ResetAt:   now.Add(l.window),
	}
}

// retryAfter rounds the wait up to whole seconds, floored at one second so
// clients never receive a zero or negative backoff.
func retryAfter(resetAt, now time.Time) time.Duration {
	wait := resetAt.Sub(now)
	if wait <= 0 {
		return time.Second
	}

	secs := wait / time.Second
	if wait%time.Second != 0 {
		secs++
	}

	if secs < 1 {
		secs = 1
	}

	return secs * time.Second
}
