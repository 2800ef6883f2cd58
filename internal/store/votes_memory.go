package store

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/serroba/livepoll-go/internal/poll"
	"github.com/serroba/livepoll-go/internal/voting"
)

// MemoryVoteCache is an in-memory implementation of voting.Cache with
// clock-driven voter-set expiry, used in tests and single-process runs.
type MemoryVoteCache struct {
	mu          sync.Mutex
	counts      map[string]int64
	voters      map[poll.ID]map[string]struct{}
	voterExpiry map[poll.ID]time.Time
	clock       clockwork.Clock
}

// NewMemoryVoteCache creates a new in-memory vote cache.
func NewMemoryVoteCache(clock clockwork.Clock) *MemoryVoteCache {
	return &MemoryVoteCache{
		counts:      make(map[string]int64),
		voters:      make(map[poll.ID]map[string]struct{}),
		voterExpiry: make(map[poll.ID]time.Time),
		clock:       clock,
	}
}

func (c *MemoryVoteCache) Increment(_ context.Context, pollID poll.ID, optionID string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := optionKey(pollID, optionID)
	c.counts[key]++

	return c.counts[key], nil
}

func (c *MemoryVoteCache) Counts(_ context.Context, pollID poll.ID, optionIDs []string) ([]voting.OptionCount, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	counts := make([]voting.OptionCount, len(optionIDs))
	for i, id := range optionIDs {
		counts[i] = voting.OptionCount{OptionID: id, Votes: c.counts[optionKey(pollID, id)]}
	}

	return counts, nil
}

func (c *MemoryVoteCache) RegisterVoter(
	_ context.Context, pollID poll.ID, identity string, ttl time.Duration,
) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.expireVoters(pollID)

	members, ok := c.voters[pollID]
	if !ok {
		members = make(map[string]struct{})
		c.voters[pollID] = members
	}

	// Retention is refreshed on every attempt, matching the Redis adapter
	// where EXPIRE runs in the pipeline even when SADD adds nothing.
	c.voterExpiry[pollID] = c.clock.Now().Add(ttl)

	if _, voted := members[identity]; voted {
		return false, nil
	}

	members[identity] = struct{}{}

	return true, nil
}

func (c *MemoryVoteCache) HasVoted(_ context.Context, pollID poll.ID, identity string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.expireVoters(pollID)

	_, voted := c.voters[pollID][identity]

	return voted, nil
}

// expireVoters drops the whole voter set once its retention lapses, like
// the EXPIRE on the Redis set key. Callers must hold the lock.
func (c *MemoryVoteCache) expireVoters(pollID poll.ID) {
	expiry, ok := c.voterExpiry[pollID]
	if !ok {
		return
	}

	if !expiry.After(c.clock.Now()) {
		delete(c.voters, pollID)
		delete(c.voterExpiry, pollID)
	}
}

// Compile-time check.
var _ voting.Cache = (*MemoryVoteCache)(nil)
