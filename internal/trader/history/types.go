package history

import (
	"context"
	"time"
)

// Snapshot is a recorded market state at a point in time. Snapshots are
// price-change events, not fixed-interval samples: one is appended only
// when the synchronized price differs from the most recently stored one.
type Snapshot struct {
	Timestamp  time.Time
	Price      int64
	OwnedUnits int64
	Balance    int64
}

// TradeEntry records one completed order chunk. Exactly one of UnitsBought
// and UnitsSold is non-zero. A chunked order produces one entry per chunk.
type TradeEntry struct {
	Timestamp     time.Time
	Price         int64 // execution price
	UnitsBefore   int64
	UnitsBought   int64
	UnitsSold     int64
	BalanceBefore int64
	BalanceAfter  int64
	OrderID       string // remote order ID of the chunk
}

// Summary aggregates the snapshots inside [PeriodStart, PeriodEnd].
type Summary struct {
	PeriodStart time.Time
	PeriodEnd   time.Time
	Count       int
	Min         int64
	Max         int64
	Mean        float64
	StdDev      float64 // sample standard deviation; 0 when Count < 2
}

// Store is the durable backend for snapshots and the trade log.
// Snapshots come back from SnapshotsInRange ordered by timestamp ascending.
type Store interface {
	InsertSnapshot(ctx context.Context, s Snapshot) error
	// LatestSnapshot returns (nil, nil) when the store is empty.
	LatestSnapshot(ctx context.Context) (*Snapshot, error)
	SnapshotsInRange(ctx context.Context, start, end time.Time) ([]Snapshot, error)
	InsertTrade(ctx context.Context, t TradeEntry) error
}
