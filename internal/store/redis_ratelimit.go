package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/serroba/livepoll-go/internal/ratelimit"
)

// keySlack keeps abandoned window keys alive slightly past the window so
// retry-after math stays valid, then lets Redis reclaim them.
const keySlack = 10 * time.Second

// reserveScript runs the whole sliding-window reservation as one atomic
// unit: prune, count, and record only when under the limit. Returns
// {admitted, prior count, oldest surviving timestamp in ms}.
var reserveScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]
local slack = tonumber(ARGV[5])

redis.call('ZREMRANGEBYSCORE', key, 0, now - window)
local count = redis.call('ZCARD', key)

if count >= limit then
  local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
  return {0, count, math.floor(tonumber(oldest[2]))}
end

redis.call('ZADD', key, now, member)
redis.call('PEXPIRE', key, window + slack)

return {1, count, 0}
`)

// RedisRateLimitStore is the Redis implementation of ratelimit.Store,
// tracking one sorted set of request timestamps per identity.
type RedisRateLimitStore struct {
	client *redis.Client
	prefix string
	clock  clockwork.Clock
}

// NewRedisRateLimitStore creates a Redis-backed rate limit store.
func NewRedisRateLimitStore(client *redis.Client, clock clockwork.Clock) *RedisRateLimitStore {
	return &RedisRateLimitStore{
		client: client,
		prefix: "ratelimit:vote:",
		clock:  clock,
	}
}

func (s *RedisRateLimitStore) Reserve(
	ctx context.Context, key string, limit int64, window time.Duration,
) (ratelimit.Reservation, error) {
	now := s.clock.Now()

	values, err := reserveScript.Run(ctx, s.client,
		[]string{s.prefix + key},
		now.UnixMilli(),
		window.Milliseconds(),
		limit,
		uuid.NewString(),
		keySlack.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return ratelimit.Reservation{}, err
	}

	if len(values) != 3 {
		return ratelimit.Reservation{}, fmt.Errorf("unexpected script reply of length %d", len(values))
	}

	res := ratelimit.Reservation{
		Admitted: values[0] == 1,
		Prior:    values[1],
	}

	if !res.Admitted {
		res.Oldest = time.UnixMilli(values[2])
	}

	return res, nil
}

// Compile-time check.
var _ ratelimit.Store = (*RedisRateLimitStore)(nil)
