package postgres

import "time"

// SnapshotRecord is one stored market snapshot. Rows are appended only on
// price change, so the table is a linear log of price-change events.
type SnapshotRecord struct {
	ID uint `gorm:"primaryKey"`

	Timestamp  time.Time `gorm:"not null;index:idx_snapshot_timestamp"`
	Price      int64     `gorm:"not null"`
	OwnedUnits int64     `gorm:"not null"`
	Balance    int64     `gorm:"not null"`

	RecordedAt time.Time `gorm:"autoCreateTime"`
}

// TableName overrides the default table name for GORM.
func (SnapshotRecord) TableName() string {
	return "market_snapshot"
}

// TradeRecord is one completed order chunk. A chunked order produces one
// row per chunk, not one row per logical order.
type TradeRecord struct {
	ID uint `gorm:"primaryKey"`

	Timestamp     time.Time `gorm:"not null;index:idx_trade_timestamp"`
	Price         int64     `gorm:"not null"`
	UnitsBefore   int64     `gorm:"not null"`
	UnitsBought   int64     `gorm:"not null"`
	UnitsSold     int64     `gorm:"not null"`
	BalanceBefore int64     `gorm:"not null"`
	BalanceAfter  int64     `gorm:"not null"`
	OrderID       string    `gorm:"type:text"`

	RecordedAt time.Time `gorm:"autoCreateTime"`
}

// TableName overrides the default table name for GORM.
func (TradeRecord) TableName() string {
	return "trade_record"
}
