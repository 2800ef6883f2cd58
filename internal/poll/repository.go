package poll

import (
	"context"
	"time"
)

// Repository is the durable poll store. Request handlers only read from it;
// the reconciler is the single writer of vote fields, via SaveCounts. That
// split keeps one writer per durable field and rules out write-write races
// on poll records.
type Repository interface {
	Create(ctx context.Context, p *Poll) error

	// FindByID returns the poll or ErrNotFound.
	FindByID(ctx context.Context, id ID) (*Poll, error)

	// ListActive returns active, unexpired polls newest-first. A limit of 0
	// returns all matching polls.
	ListActive(ctx context.Context, offset, limit int) ([]*Poll, error)

	CountActive(ctx context.Context) (int64, error)

	// SaveCounts overwrites the poll's durable vote fields and sync marker
	// with cache-observed counts.
	SaveCounts(ctx context.Context, id ID, options []Option, totalVotes int64, syncedAt time.Time) error
}
