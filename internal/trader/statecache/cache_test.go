package statecache

import (
	"context"
	"testing"
)

// fakeReader counts remote reads and serves fixed values.
type fakeReader struct {
	price, units, balance                int64
	priceCalls, unitsCalls, balanceCalls int
}

func (f *fakeReader) GetPrice(context.Context) (int64, error) {
	f.priceCalls++
	return f.price, nil
}

func (f *fakeReader) GetOwnedUnits(context.Context) (int64, error) {
	f.unitsCalls++
	return f.units, nil
}

func (f *fakeReader) GetBalance(context.Context) (int64, error) {
	f.balanceCalls++
	return f.balance, nil
}

// go test -v --run TestLazySlotFetch
func TestLazySlotFetch(t *testing.T) {
	reader := &fakeReader{price: 50, units: 10, balance: 1000}
	cache := New(reader)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		p, err := cache.Price(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p != 50 {
			t.Fatalf("expected price 50, got %d", p)
		}
	}
	if reader.priceCalls != 1 {
		t.Errorf("expected 1 remote price fetch, got %d", reader.priceCalls)
	}
	// Other slots stay untouched
	if reader.unitsCalls != 0 || reader.balanceCalls != 0 {
		t.Errorf("expected no fetches for other slots, got units=%d balance=%d",
			reader.unitsCalls, reader.balanceCalls)
	}
}

// go test -v --run TestSynchronizeOverwritesAllSlots
func TestSynchronizeOverwritesAllSlots(t *testing.T) {
	reader := &fakeReader{price: 50, units: 10, balance: 1000}
	cache := New(reader)
	ctx := context.Background()

	state, err := cache.Synchronize(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Price != 50 || state.OwnedUnits != 10 || state.Balance != 1000 {
		t.Errorf("unexpected state: %+v", state)
	}
	if state.Timestamp.IsZero() || cache.LastSync() != state.Timestamp {
		t.Error("expected last-sync timestamp to be set")
	}

	// Remote values move; a second synchronize overwrites stale slots
	reader.price, reader.units, reader.balance = 55, 12, 900
	state, err = cache.Synchronize(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Price != 55 || state.OwnedUnits != 12 || state.Balance != 900 {
		t.Errorf("expected overwritten state, got %+v", state)
	}

	if reader.priceCalls != 2 || reader.unitsCalls != 2 || reader.balanceCalls != 2 {
		t.Errorf("expected 2 fetches per slot, got price=%d units=%d balance=%d",
			reader.priceCalls, reader.unitsCalls, reader.balanceCalls)
	}
}

// go test -v --run TestApplyFill
func TestApplyFill(t *testing.T) {
	reader := &fakeReader{price: 50, units: 10, balance: 1000}
	cache := New(reader)
	ctx := context.Background()

	if _, err := cache.Synchronize(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Buy 4 at 50: units 10→14, balance 1000→800, no remote calls
	cache.ApplyFill(50, 4)
	units, _ := cache.OwnedUnits(ctx)
	balance, _ := cache.Balance(ctx)
	if units != 14 || balance != 800 {
		t.Errorf("after buy: expected units 14 balance 800, got %d/%d", units, balance)
	}

	// Sell 6 at 50: units 14→8, balance 800→1100
	cache.ApplyFill(50, -6)
	units, _ = cache.OwnedUnits(ctx)
	balance, _ = cache.Balance(ctx)
	if units != 8 || balance != 1100 {
		t.Errorf("after sell: expected units 8 balance 1100, got %d/%d", units, balance)
	}

	if reader.unitsCalls != 1 || reader.balanceCalls != 1 {
		t.Errorf("expected no re-fetch after fills, got units=%d balance=%d",
			reader.unitsCalls, reader.balanceCalls)
	}
}

// go test -v --run TestInvalidateForcesRefetch
func TestInvalidateForcesRefetch(t *testing.T) {
	reader := &fakeReader{price: 50, units: 10, balance: 1000}
	cache := New(reader)
	ctx := context.Background()

	if _, err := cache.Price(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cache.Invalidate()

	reader.price = 60
	p, err := cache.Price(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != 60 {
		t.Errorf("expected re-fetched price 60, got %d", p)
	}
	if reader.priceCalls != 2 {
		t.Errorf("expected 2 fetches, got %d", reader.priceCalls)
	}
}

// go test -v --run TestSetPriceWarmsSlot
func TestSetPriceWarmsSlot(t *testing.T) {
	reader := &fakeReader{price: 50}
	cache := New(reader)

	cache.SetPrice(77)
	p, err := cache.Price(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != 77 {
		t.Errorf("expected warmed price 77, got %d", p)
	}
	if reader.priceCalls != 0 {
		t.Errorf("expected no remote fetch after warm, got %d", reader.priceCalls)
	}
}
