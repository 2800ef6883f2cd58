package reconcile

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/serroba/livepoll-go/internal/poll"
	"github.com/serroba/livepoll-go/internal/voting"
	"go.uber.org/zap"
)

// Result is the outcome of syncing a single poll.
type Result struct {
	PollID poll.ID
	Votes  int64
	Err    error
}

// Config holds reconciler timing knobs.
type Config struct {
	// Interval between runs.
	Interval time.Duration
	// InitialDelay before the first run, so cache and store connections can
	// warm up after process start.
	InitialDelay time.Duration
	// PerPollTimeout bounds each poll's sync so one stalled poll cannot
	// delay the batch indefinitely.
	PerPollTimeout time.Duration
}

// Reconciler periodically copies cache-resident vote counts into durable
// poll records. It is the only writer of durable vote fields.
type Reconciler struct {
	polls  poll.Repository
	cache  voting.Cache
	cfg    Config
	clock  clockwork.Clock
	stats  *Stats
	logger *zap.Logger
	cancel context.CancelFunc
	done   chan struct{}
}

// NewReconciler creates a reconciler.
func NewReconciler(
	polls poll.Repository, cache voting.Cache, cfg Config, clock clockwork.Clock, logger *zap.Logger,
) *Reconciler {
	if cfg.PerPollTimeout <= 0 {
		cfg.PerPollTimeout = 10 * time.Second
	}

	return &Reconciler{
		polls:  polls,
		cache:  cache,
		cfg:    cfg,
		clock:  clock,
		stats:  NewStats(),
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Stats returns the reconciler's counter aggregator.
func (r *Reconciler) Stats() *Stats {
	return r.stats
}

// Start launches the periodic sync loop: one delayed initial run, then a
// run every interval.
func (r *Reconciler) Start(ctx context.Context) error {
	ctx, r.cancel = context.WithCancel(ctx)

	go r.run(ctx)

	return nil
}

func (r *Reconciler) run(ctx context.Context) {
	defer close(r.done)

	select {
	case <-ctx.Done():
		return
	case <-r.clock.After(r.cfg.InitialDelay):
		r.SyncAll(ctx)
	}

	ticker := r.clock.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			r.SyncAll(ctx)
		}
	}
}

// SyncAll reconciles every active poll. Polls sync in parallel and
// independently: one poll's failure never aborts the batch. Failures are
// logged and counted, never raised to any vote-casting client.
func (r *Reconciler) SyncAll(ctx context.Context) []Result {
	started := r.clock.Now()

	polls, err := r.polls.ListActive(ctx, 0, 0)
	if err != nil {
		r.logger.Error("failed to list active polls", zap.Error(err))
		r.stats.recordError()

		return nil
	}

	if len(polls) == 0 {
		r.stats.recordRun(started, 0, 0)

		return nil
	}

	results := make([]Result, len(polls))

	var wg sync.WaitGroup

	for i, p := range polls {
		wg.Add(1)

		go func(i int, p *poll.Poll) {
			defer wg.Done()

			pollCtx, cancel := context.WithTimeout(ctx, r.cfg.PerPollTimeout)
			defer cancel()

			results[i] = r.syncPoll(pollCtx, p)
		}(i, p)
	}

	wg.Wait()

	var synced, votes int64

	for _, res := range results {
		if res.Err != nil {
			r.logger.Error("poll sync failed",
				zap.String("pollId", res.PollID.String()),
				zap.Error(res.Err),
			)

			continue
		}

		synced++
		votes += res.Votes
	}

	r.stats.recordRun(started, synced, votes)

	r.logger.Info("sync complete",
		zap.Int64("pollsSynced", synced),
		zap.Int("totalPolls", len(polls)),
		zap.Int64("votes", votes),
		zap.Duration("duration", r.clock.Now().Sub(started)),
	)

	return results
}

func (r *Reconciler) syncPoll(ctx context.Context, p *poll.Poll) Result {
	counts, err := r.cache.Counts(ctx, p.ID, p.OptionIDs())
	if err != nil {
		return Result{PollID: p.ID, Err: err}
	}

	options := make([]poll.Option, len(p.Options))

	var total int64

	for i, opt := range p.Options {
		opt.Votes = counts[i].Votes
		options[i] = opt
		total += opt.Votes
	}

	if err := r.polls.SaveCounts(ctx, p.ID, options, total, r.clock.Now()); err != nil {
		return Result{PollID: p.ID, Err: err}
	}

	return Result{PollID: p.ID, Votes: total}
}

// Shutdown stops the loop and waits for an in-flight run to finish.
func (r *Reconciler) Shutdown() error {
	if r.cancel == nil {
		return nil
	}

	r.cancel()
	<-r.done

	return nil
}
