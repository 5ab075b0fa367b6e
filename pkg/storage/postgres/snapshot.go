package postgres

import (
	"context"
	"errors"
	"time"

	"autotrader/internal/trader/history"

	"gorm.io/gorm"
)

// InsertSnapshot appends one price-change snapshot.
func (p *PostgresClient) InsertSnapshot(ctx context.Context, s history.Snapshot) error {
	record := SnapshotRecord{
		Timestamp:  s.Timestamp,
		Price:      s.Price,
		OwnedUnits: s.OwnedUnits,
		Balance:    s.Balance,
	}
	return p.DB.WithContext(ctx).Create(&record).Error
}

// LatestSnapshot returns the most recently stored snapshot, or (nil, nil)
// when the table is empty.
func (p *PostgresClient) LatestSnapshot(ctx context.Context) (*history.Snapshot, error) {
	var record SnapshotRecord
	err := p.DB.WithContext(ctx).
		Order("timestamp DESC").
		First(&record).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	s := toSnapshot(record)
	return &s, nil
}

// SnapshotsInRange returns all snapshots with timestamp in [start, end],
// ordered by timestamp ascending.
func (p *PostgresClient) SnapshotsInRange(ctx context.Context, start, end time.Time) ([]history.Snapshot, error) {
	var records []SnapshotRecord
	err := p.DB.WithContext(ctx).
		Where("timestamp >= ? AND timestamp <= ?", start, end).
		Order("timestamp ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	out := make([]history.Snapshot, 0, len(records))
	for _, r := range records {
		out = append(out, toSnapshot(r))
	}
	return out, nil
}

// InsertTrade appends one completed chunk to the trade log.
func (p *PostgresClient) InsertTrade(ctx context.Context, t history.TradeEntry) error {
	record := TradeRecord{
		Timestamp:     t.Timestamp,
		Price:         t.Price,
		UnitsBefore:   t.UnitsBefore,
		UnitsBought:   t.UnitsBought,
		UnitsSold:     t.UnitsSold,
		BalanceBefore: t.BalanceBefore,
		BalanceAfter:  t.BalanceAfter,
		OrderID:       t.OrderID,
	}
	return p.DB.WithContext(ctx).Create(&record).Error
}

// DeleteOldSnapshots removes snapshots older than the retention horizon.
func (p *PostgresClient) DeleteOldSnapshots(ctx context.Context, before time.Time) error {
	return p.DB.WithContext(ctx).
		Where("timestamp < ?", before).
		Delete(&SnapshotRecord{}).Error
}

func toSnapshot(r SnapshotRecord) history.Snapshot {
	return history.Snapshot{
		Timestamp:  r.Timestamp,
		Price:      r.Price,
		OwnedUnits: r.OwnedUnits,
		Balance:    r.Balance,
	}
}
