package reconcile

import (
	"sync"
	"time"
)

// StatsSnapshot is a read-only copy of the reconciler's counters, exposed
// to the health surface.
type StatsSnapshot struct {
	LastRun          *time.Time `json:"lastRun"`
	TotalSyncs       int64      `json:"totalSyncs"`
	TotalPollsSynced int64      `json:"totalPollsSynced"`
	TotalVotesSynced int64      `json:"totalVotesSynced"`
	Errors           int64      `json:"errors"`
}

// Stats aggregates reconciliation counters. It is owned by the Reconciler
// and reset only when the process restarts.
type Stats struct {
	mu               sync.Mutex
	lastRun          time.Time
	totalSyncs       int64
	totalPollsSynced int64
	totalVotesSynced int64
	errors           int64
}

// NewStats creates a zeroed aggregator.
func NewStats() *Stats {
	return &Stats{}
}

func (s *Stats) recordRun(at time.Time, pollsSynced int64, votesSynced int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastRun = at
	s.totalSyncs++
	s.totalPollsSynced += pollsSynced
	s.totalVotesSynced += votesSynced
}

func (s *Stats) recordError() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.errors++
}

// Snapshot returns a copy of the current counters.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := StatsSnapshot{
		TotalSyncs:       s.totalSyncs,
		TotalPollsSynced: s.totalPollsSynced,
		TotalVotesSynced: s.totalVotesSynced,
		Errors:           s.errors,
	}

	if !s.lastRun.IsZero() {
		lastRun := s.lastRun
		snapshot.LastRun = &lastRun
	}

	return snapshot
}
