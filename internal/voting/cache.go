package voting

import (
	"context"
	"time"

	"github.com/serroba/livepoll-go/internal/poll"
)

// OptionCount pairs an option id with its cached vote count.
type OptionCount struct {
	OptionID string
	Votes    int64
}

// Cache is the shared vote counter store. It holds per-option counts and
// per-poll voter sets; it is the point of coordination between concurrent
// vote handlers and the reconciler.
type Cache interface {
	// Increment atomically increments a counter and returns the new value.
	Increment(ctx context.Context, pollID poll.ID, optionID string) (int64, error)

	// Counts bulk-reads current counts in the order of optionIDs. Options
	// with no cache entry report zero.
	Counts(ctx context.Context, pollID poll.ID, optionIDs []string) ([]OptionCount, error)

	// RegisterVoter inserts the identity into the poll's voter set and
	// refreshes the set's expiry. The insert is an atomic test-and-set:
	// it returns false when the identity was already a member, so two
	// concurrent votes from one identity can never both be admitted.
	RegisterVoter(ctx context.Context, pollID poll.ID, identity string, ttl time.Duration) (bool, error)

	// HasVoted reports membership without modifying the set.
	HasVoted(ctx context.Context, pollID poll.ID, identity string) (bool, error)
}
