package fanout

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// subscriptionBuffer bounds each subscriber's channel. A subscriber that
// falls this far behind starts losing updates instead of blocking the
// broadcast; delivery is best-effort, at-most-once per connected member.
const subscriptionBuffer = 16

// Subscription is one observer's membership in a poll's update channel.
type Subscription struct {
	ID     uuid.UUID
	PollID string
	// C receives results snapshots. It is closed on Unsubscribe and when
	// the hub shuts down.
	C chan *Update
}

// Hub fans results snapshots out to every subscriber of a poll. Membership
// is poll-scoped: a broadcast reaches only the subscribers of that poll.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[uuid.UUID]*Subscription
	closed bool
	logger *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		subs:   make(map[string]map[uuid.UUID]*Subscription),
		logger: logger,
	}
}

// Subscribe joins the poll's update channel.
func (h *Hub) Subscribe(pollID string) *Subscription {
	sub := &Subscription{
		ID:     uuid.New(),
		PollID: pollID,
		C:      make(chan *Update, subscriptionBuffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(sub.C)

		return sub
	}

	members, ok := h.subs[pollID]
	if !ok {
		members = make(map[uuid.UUID]*Subscription)
		h.subs[pollID] = members
	}

	members[sub.ID] = sub

	return sub
}

// Unsubscribe leaves the poll's update channel. Leaving twice is a no-op.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.subs[sub.PollID]
	if !ok {
		return
	}

	if _, ok := members[sub.ID]; !ok {
		return
	}

	delete(members, sub.ID)
	close(sub.C)

	if len(members) == 0 {
		delete(h.subs, sub.PollID)
	}
}

// Broadcast delivers the update to every current subscriber of its poll.
// Subscribers with full buffers are skipped rather than blocked on.
func (h *Hub) Broadcast(update *Update) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return
	}

	members := h.subs[update.PollID]

	delivered, dropped := 0, 0

	for _, sub := range members {
		select {
		case sub.C <- update:
			delivered++
		default:
			dropped++
		}
	}

	if dropped > 0 {
		h.logger.Debug("dropped updates for slow subscribers",
			zap.String("pollId", update.PollID),
			zap.Int("dropped", dropped),
		)
	}

	h.logger.Debug("broadcast poll update",
		zap.String("pollId", update.PollID),
		zap.Int("subscribers", delivered),
	)
}

// SubscriberCount returns the number of current subscribers for a poll.
func (h *Hub) SubscriberCount(pollID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.subs[pollID])
}

// Shutdown closes every subscription and rejects future ones.
func (h *Hub) Shutdown() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}

	h.closed = true

	for _, members := range h.subs {
		for _, sub := range members {
			close(sub.C)
		}
	}

	h.subs = make(map[string]map[uuid.UUID]*Subscription)

	return nil
}
