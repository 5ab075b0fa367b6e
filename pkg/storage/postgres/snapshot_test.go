package postgres_test

import (
	"context"
	"testing"
	"time"

	"autotrader/config"
	"autotrader/internal/trader/history"
	"autotrader/pkg/storage/postgres"
)

func testDBClient(t *testing.T) *postgres.PostgresClient {
	t.Helper()
	cfg := config.PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "yourpw",
		DBName:   "autotrader",
		SSLMode:  "disable",
		TimeZone: "UTC",
	}

	client, err := postgres.NewClient(cfg.DSN("dev"))
	if err != nil {
		t.Skipf("local postgres unavailable: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	if err := client.AutoMigrateRecords(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return client
}

// go test -v --run TestSnapshotCRUD
func TestSnapshotCRUD(t *testing.T) {
	client := testDBClient(t)
	ctx := context.Background()

	base := time.Now().Truncate(time.Second)

	// Insert three snapshots across an hour
	for i, price := range []int64{40, 42, 41} {
		s := history.Snapshot{
			Timestamp:  base.Add(time.Duration(i) * 20 * time.Minute),
			Price:      price,
			OwnedUnits: 10,
			Balance:    1000,
		}
		if err := client.InsertSnapshot(ctx, s); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	// Latest
	latest, err := client.LatestSnapshot(ctx)
	if err != nil {
		t.Fatalf("latest failed: %v", err)
	}
	if latest == nil || latest.Price != 41 {
		t.Errorf("unexpected latest snapshot: %+v", latest)
	}

	// Range query covers the middle entry only
	got, err := client.SnapshotsInRange(ctx, base.Add(10*time.Minute), base.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("range query failed: %v", err)
	}
	if len(got) != 1 || got[0].Price != 42 {
		t.Errorf("unexpected range result: %+v", got)
	}

	// Delete everything written by this test
	if err := client.DeleteOldSnapshots(ctx, base.Add(time.Hour)); err != nil {
		t.Errorf("delete failed: %v", err)
	}
	got, err = client.SnapshotsInRange(ctx, base, base.Add(time.Hour))
	if err != nil {
		t.Fatalf("range query after delete failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected snapshots pruned, got %d", len(got))
	}
}

// go test -v --run TestTradeInsert
func TestTradeInsert(t *testing.T) {
	client := testDBClient(t)
	ctx := context.Background()

	entry := history.TradeEntry{
		Timestamp:     time.Now(),
		Price:         50,
		UnitsBefore:   10,
		UnitsBought:   4,
		BalanceBefore: 1000,
		BalanceAfter:  800,
		OrderID:       "ord-test-1",
	}
	if err := client.InsertTrade(ctx, entry); err != nil {
		t.Fatalf("insert trade failed: %v", err)
	}
}
