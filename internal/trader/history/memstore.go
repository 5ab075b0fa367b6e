package history

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store used by tests and store-less runs.
type MemoryStore struct {
	mu        sync.Mutex
	snapshots []Snapshot
	trades    []TradeEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		snapshots: make([]Snapshot, 0),
		trades:    make([]TradeEntry, 0),
	}
}

func (m *MemoryStore) InsertSnapshot(_ context.Context, s Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots = append(m.snapshots, s)
	return nil
}

func (m *MemoryStore) LatestSnapshot(_ context.Context) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.snapshots) == 0 {
		return nil, nil
	}
	s := m.snapshots[len(m.snapshots)-1]
	return &s, nil
}

func (m *MemoryStore) SnapshotsInRange(_ context.Context, start, end time.Time) ([]Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Appends are timestamp-ordered, so a linear scan preserves order.
	var out []Snapshot
	for _, s := range m.snapshots {
		if s.Timestamp.Before(start) || s.Timestamp.After(end) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (m *MemoryStore) InsertTrade(_ context.Context, t TradeEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades = append(m.trades, t)
	return nil
}

// Trades returns a copy of the trade log.
func (m *MemoryStore) Trades() []TradeEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]TradeEntry, len(m.trades))
	copy(cp, m.trades)
	return cp
}

// SnapshotCount reports how many snapshots have been appended.
func (m *MemoryStore) SnapshotCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.snapshots)
}
