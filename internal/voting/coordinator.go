package voting

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/serroba/livepoll-go/internal/fanout"
	"github.com/serroba/livepoll-go/internal/poll"
	"github.com/serroba/livepoll-go/internal/ratelimit"
	"go.uber.org/zap"
)

// Receipt is the successful outcome of a vote cast. Its snapshot reflects
// counts at or after the vote's own increment, and is the same snapshot
// handed to the broadcast fanout.
type Receipt struct {
	VotedFor   string
	Results    []fanout.ResultEntry
	TotalVotes int64
	RateLimit  ratelimit.Decision
	CastAt     time.Time
}

// Coordinator orchestrates a single vote cast: admission, duplicate
// suppression, counting, and fanout.
type Coordinator struct {
	polls    poll.Repository
	cache    Cache
	limiter  *ratelimit.SlidingWindowLimiter
	publish  fanout.PublishUpdate
	voterTTL time.Duration
	clock    clockwork.Clock
	logger   *zap.Logger
}

// NewCoordinator creates a vote coordinator. voterTTL is the retention of
// voter records, decoupled from poll lifetime.
func NewCoordinator(
	polls poll.Repository,
	cache Cache,
	limiter *ratelimit.SlidingWindowLimiter,
	publish fanout.PublishUpdate,
	voterTTL time.Duration,
	clock clockwork.Clock,
	logger *zap.Logger,
) *Coordinator {
	return &Coordinator{
		polls:    polls,
		cache:    cache,
		limiter:  limiter,
		publish:  publish,
		voterTTL: voterTTL,
		clock:    clock,
		logger:   logger,
	}
}

// Cast runs the vote state machine for one request. Terminal failures map
// to *RateLimitedError, poll.ErrNotFound, ErrPollInactive, ErrInvalidOption,
// ErrDuplicateVote, or a wrapped server-side error.
func (c *Coordinator) Cast(ctx context.Context, pollID poll.ID, optionID, identity string) (*Receipt, error) {
	decision := c.limiter.Allow(ctx, identity)
	if !decision.Allowed {
		return nil, &RateLimitedError{Decision: decision}
	}

	// Poll metadata is read fresh on every vote so a closed or expired poll
	// never keeps accepting votes from a stale copy.
	p, err := c.polls.FindByID(ctx, pollID)
	if err != nil {
		return nil, err
	}

	now := c.clock.Now()

	if !p.IsActive(now) {
		return nil, ErrPollInactive
	}

	if !p.HasOption(optionID) {
		return nil, fmt.Errorf("%w: option %q does not exist in this poll", ErrInvalidOption, optionID)
	}

	admitted, err := c.cache.RegisterVoter(ctx, pollID, identity, c.voterTTL)
	if err != nil {
		// Without the cache a vote cannot be safely admitted.
		return nil, fmt.Errorf("record voter: %w", err)
	}

	if !admitted {
		return nil, ErrDuplicateVote
	}

	if _, err := c.cache.Increment(ctx, pollID, optionID); err != nil {
		// The voter is already registered, so a client retry would read as
		// a duplicate. This is a lost vote; surface it loudly.
		c.logger.Error("vote increment failed after voter registration",
			zap.String("pollId", pollID.String()),
			zap.String("optionId", optionID),
			zap.Error(err),
		)

		return nil, fmt.Errorf("increment vote: %w", err)
	}

	results, total, err := c.snapshot(ctx, p)
	if err != nil {
		// The count stands; only the response payload could not be built.
		return nil, fmt.Errorf("read results: %w", err)
	}

	update := &fanout.Update{
		PollID:     pollID.String(),
		Results:    results,
		TotalVotes: total,
		LastVote:   fanout.LastVote{OptionID: optionID, Timestamp: now},
	}

	if err := c.publish(update); err != nil {
		// Partial failure: the vote is real and stands, the broadcast is
		// best-effort.
		c.logger.Warn("failed to publish poll update",
			zap.String("pollId", pollID.String()),
			zap.Error(err),
		)
	}

	return &Receipt{
		VotedFor:   optionID,
		Results:    results,
		TotalVotes: total,
		RateLimit:  decision,
		CastAt:     now,
	}, nil
}

// Results computes the live results snapshot for a poll from the cache,
// zero-filling options with no cache entry.
func (c *Coordinator) Results(ctx context.Context, pollID poll.ID) (*poll.Poll, []fanout.ResultEntry, int64, error) {
	p, err := c.polls.FindByID(ctx, pollID)
	if err != nil {
		return nil, nil, 0, err
	}

	results, total, err := c.snapshot(ctx, p)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("read results: %w", err)
	}

	return p, results, total, nil
}

func (c *Coordinator) snapshot(ctx context.Context, p *poll.Poll) ([]fanout.ResultEntry, int64, error) {
	counts, err := c.cache.Counts(ctx, p.ID, p.OptionIDs())
	if err != nil {
		return nil, 0, err
	}

	results := make([]fanout.ResultEntry, len(p.Options))

	var total int64

	for i, opt := range p.Options {
		votes := counts[i].Votes
		results[i] = fanout.ResultEntry{ID: opt.ID, Text: opt.Text, Votes: votes}
		total += votes
	}

	return results, total, nil
}
