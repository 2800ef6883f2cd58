package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/serroba/livepoll-go/internal/poll"
)

// MemoryStore is an in-memory implementation of poll.Repository, used in
// tests and when no database is configured.
type MemoryStore struct {
	mu    sync.RWMutex
	polls map[poll.ID]*poll.Poll
	clock clockwork.Clock
}

// NewMemoryStore creates a new in-memory poll store.
func NewMemoryStore(clock clockwork.Clock) *MemoryStore {
	return &MemoryStore{
		polls: make(map[poll.ID]*poll.Poll),
		clock: clock,
	}
}

func (m *MemoryStore) Create(_ context.Context, p *poll.Poll) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.polls[p.ID] = clonePoll(p)

	return nil
}

func (m *MemoryStore) FindByID(_ context.Context, id poll.ID) (*poll.Poll, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.polls[id]
	if !ok {
		return nil, poll.ErrNotFound
	}

	return clonePoll(p), nil
}

func (m *MemoryStore) ListActive(_ context.Context, offset, limit int) ([]*poll.Poll, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.clock.Now()

	var active []*poll.Poll

	for _, p := range m.polls {
		if p.IsActive(now) {
			active = append(active, clonePoll(p))
		}
	}

	sort.Slice(active, func(i, j int) bool {
		return active[i].CreatedAt.After(active[j].CreatedAt)
	})

	if limit <= 0 {
		return active, nil
	}

	if offset >= len(active) {
		return nil, nil
	}

	end := offset + limit
	if end > len(active) {
		end = len(active)
	}

	return active[offset:end], nil
}

func (m *MemoryStore) CountActive(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.clock.Now()

	var count int64

	for _, p := range m.polls {
		if p.IsActive(now) {
			count++
		}
	}

	return count, nil
}

func (m *MemoryStore) SaveCounts(
	_ context.Context, id poll.ID, options []poll.Option, totalVotes int64, syncedAt time.Time,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.polls[id]
	if !ok {
		return poll.ErrNotFound
	}

	p.Options = append([]poll.Option(nil), options...)
	p.TotalVotes = totalVotes
	synced := syncedAt
	p.LastSyncedAt = &synced
	p.UpdatedAt = syncedAt

	return nil
}

func clonePoll(p *poll.Poll) *poll.Poll {
	clone := *p
	clone.Options = append([]poll.Option(nil), p.Options...)

	if p.LastSyncedAt != nil {
		synced := *p.LastSyncedAt
		clone.LastSyncedAt = &synced
	}

	if p.Settings.ExpiresAt != nil {
		expires := *p.Settings.ExpiresAt
		clone.Settings.ExpiresAt = &expires
	}

	return &clone
}

// Compile-time check.
var _ poll.Repository = (*MemoryStore)(nil)
