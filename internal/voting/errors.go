package voting

import (
	"errors"
	"fmt"

	"github.com/serroba/livepoll-go/internal/ratelimit"
)

var (
	// ErrPollInactive indicates the poll is closed, a draft, or expired.
	ErrPollInactive = errors.New("poll is not active")
	// ErrInvalidOption indicates the option does not exist in the poll.
	ErrInvalidOption = errors.New("invalid option")
	// ErrDuplicateVote indicates the identity already voted on the poll.
	// Repeating the call yields the same conflict.
	ErrDuplicateVote = errors.New("already voted")
)

// RateLimitedError rejects a vote at admission. It carries the retry
// metadata well-behaved clients need to back off.
type RateLimitedError struct {
	Decision ratelimit.Decision
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limit exceeded: maximum %d votes per %s", e.Decision.Limit, e.Decision.Window)
}
