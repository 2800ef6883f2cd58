package ratelimit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/serroba/livepoll-go/internal/ratelimit"
	"github.com/serroba/livepoll-go/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type errorStore struct {
	err error
}

func (s *errorStore) Reserve(_ context.Context, _ string, _ int64, _ time.Duration) (ratelimit.Reservation, error) {
	return ratelimit.Reservation{}, s.err
}

func newTestLimiter(limit int64, window time.Duration) (*ratelimit.SlidingWindowLimiter, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClock()
	memStore := store.NewRateLimitMemoryStore(clock)

	return ratelimit.NewSlidingWindowLimiter(memStore, limit, window, clock, zap.NewNop()), clock
}

func TestSlidingWindowLimiter(t *testing.T) {
	t.Run("allows requests under limit with decreasing remaining", func(t *testing.T) {
		limiter, _ := newTestLimiter(3, time.Minute)

		for want := int64(2); want >= 0; want-- {
			decision := limiter.Allow(context.Background(), "client1")

			assert.True(t, decision.Allowed)
			assert.Equal(t, want, decision.Remaining)
			assert.Equal(t, int64(3), decision.Limit)
		}
	})

	t.Run("rejects requests over limit", func(t *testing.T) {
		limiter, _ := newTestLimiter(3, time.Minute)

		for range 3 {
			decision := limiter.Allow(context.Background(), "client1")
			assert.True(t, decision.Allowed)
		}

		decision := limiter.Allow(context.Background(), "client1")

		assert.False(t, decision.Allowed)
		assert.Equal(t, int64(0), decision.Remaining)
	})

	t.Run("rejections are not recorded", func(t *testing.T) {
		limiter, clock := newTestLimiter(2, time.Minute)

		limiter.Allow(context.Background(), "client1")
		limiter.Allow(context.Background(), "client1")

		// Hammer while limited; these must not extend the window.
		for range 5 {
			decision := limiter.Allow(context.Background(), "client1")
			assert.False(t, decision.Allowed)
		}

		clock.Advance(time.Minute + time.Second)

		decision := limiter.Allow(context.Background(), "client1")
		assert.True(t, decision.Allowed)
	})

	t.Run("exactly limit admissions for a burst", func(t *testing.T) {
		limiter, _ := newTestLimiter(10, time.Minute)

		admitted, rejected := 0, 0

		for range 15 {
			if limiter.Allow(context.Background(), "client1").Allowed {
				admitted++
			} else {
				rejected++
			}
		}

		assert.Equal(t, 10, admitted)
		assert.Equal(t, 5, rejected)
	})

	t.Run("retry after is at least one second", func(t *testing.T) {
		limiter, _ := newTestLimiter(1, time.Minute)

		limiter.Allow(context.Background(), "client1")

		decision := limiter.Allow(context.Background(), "client1")

		require.False(t, decision.Allowed)
		assert.GreaterOrEqual(t, decision.RetryAfter, time.Second)
		assert.LessOrEqual(t, decision.RetryAfter, time.Minute)
	})

	t.Run("reset is derived from the oldest entry on rejection", func(t *testing.T) {
		limiter, clock := newTestLimiter(1, time.Minute)

		first := clock.Now()
		limiter.Allow(context.Background(), "client1")

		clock.Advance(20 * time.Second)

		decision := limiter.Allow(context.Background(), "client1")

		require.False(t, decision.Allowed)
		assert.Equal(t, first.Add(time.Minute), decision.ResetAt)
		assert.Equal(t, 40*time.Second, decision.RetryAfter)
	})

	t.Run("tracks identities independently", func(t *testing.T) {
		limiter, _ := newTestLimiter(2, time.Minute)

		for range 2 {
			limiter.Allow(context.Background(), "client1")
		}

		assert.False(t, limiter.Allow(context.Background(), "client1").Allowed)
		assert.True(t, limiter.Allow(context.Background(), "client2").Allowed)
	})

	t.Run("allows again after window expires", func(t *testing.T) {
		limiter, clock := newTestLimiter(2, time.Minute)

		for range 2 {
			limiter.Allow(context.Background(), "client1")
		}

		assert.False(t, limiter.Allow(context.Background(), "client1").Allowed)

		clock.Advance(time.Minute + time.Second)

		assert.True(t, limiter.Allow(context.Background(), "client1").Allowed)
	})

	t.Run("fails open when the store is unreachable", func(t *testing.T) {
		clock := clockwork.NewFakeClock()
		limiter := ratelimit.NewSlidingWindowLimiter(
			&errorStore{err: errors.New("connection refused")}, 10, time.Minute, clock, zap.NewNop())

		decision := limiter.Allow(context.Background(), "client1")

		assert.True(t, decision.Allowed)
		assert.True(t, decision.FailedOpen)
		assert.Zero(t, decision.Limit)
	})
}
