package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/livepoll-go/internal/poll"
	"github.com/serroba/livepoll-go/internal/voting"
)

// RedisVoteCache is the Redis implementation of voting.Cache. Counters live
// at poll:{id}:option:{option} and voter sets at poll:{id}:voters.
type RedisVoteCache struct {
	client *redis.Client
}

// NewRedisVoteCache creates a Redis-backed vote cache.
func NewRedisVoteCache(client *redis.Client) *RedisVoteCache {
	return &RedisVoteCache{client: client}
}

func (c *RedisVoteCache) Increment(ctx context.Context, pollID poll.ID, optionID string) (int64, error) {
	return c.client.Incr(ctx, optionKey(pollID, optionID)).Result()
}

func (c *RedisVoteCache) Counts(ctx context.Context, pollID poll.ID, optionIDs []string) ([]voting.OptionCount, error) {
	keys := make([]string, len(optionIDs))
	for i, id := range optionIDs {
		keys[i] = optionKey(pollID, id)
	}

	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	counts := make([]voting.OptionCount, len(optionIDs))

	for i, id := range optionIDs {
		counts[i] = voting.OptionCount{OptionID: id}

		raw, ok := values[i].(string)
		if !ok {
			continue // unset option, reported as zero
		}

		votes, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse count for option %s: %w", id, err)
		}

		counts[i].Votes = votes
	}

	return counts, nil
}

func (c *RedisVoteCache) RegisterVoter(
	ctx context.Context, pollID poll.ID, identity string, ttl time.Duration,
) (bool, error) {
	// SADD is the test-and-set: a zero result means the identity was
	// already a member. Pipelined with EXPIRE so the retention window is
	// refreshed in the same round trip.
	pipe := c.client.TxPipeline()
	add := pipe.SAdd(ctx, votersKey(pollID), identity)
	pipe.Expire(ctx, votersKey(pollID), ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	return add.Val() == 1, nil
}

func (c *RedisVoteCache) HasVoted(ctx context.Context, pollID poll.ID, identity string) (bool, error) {
	return c.client.SIsMember(ctx, votersKey(pollID), identity).Result()
}

func optionKey(pollID poll.ID, optionID string) string {
	return fmt.Sprintf("poll:%s:option:%s", pollID, optionID)
}

func votersKey(pollID poll.ID) string {
	return fmt.Sprintf("poll:%s:voters", pollID)
}

// Compile-time check.
var _ voting.Cache = (*RedisVoteCache)(nil)
