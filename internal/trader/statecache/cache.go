package statecache

import (
	"context"
	"sync"
	"time"
)

// Reader is the read surface of the remote market service.
type Reader interface {
	GetPrice(ctx context.Context) (int64, error)
	GetOwnedUnits(ctx context.Context) (int64, error)
	GetBalance(ctx context.Context) (int64, error)
}

// State is a snapshot-shaped view of the three cached quantities.
type State struct {
	Timestamp  time.Time
	Price      int64
	OwnedUnits int64
	Balance    int64
}

// Cache is a single-slot, lazily-populated cache of price, owned units and
// balance. A populated slot is believed current until the next overwrite.
// The executor updates it optimistically after confirmed chunks, so it can
// drift from ground truth under slippage; callers needing ground truth use
// Synchronize.
type Cache struct {
	mu     sync.Mutex
	reader Reader

	price      *int64
	ownedUnits *int64
	balance    *int64
	lastSync   time.Time

	now func() time.Time
}

func New(reader Reader) *Cache {
	return &Cache{
		reader: reader,
		now:    time.Now,
	}
}

// Price returns the cached price, fetching it once when unpopulated.
func (c *Cache) Price(ctx context.Context) (int64, error) {
	c.mu.Lock()
	if c.price != nil {
		v := *c.price
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()

	v, err := c.reader.GetPrice(ctx)
	if err != nil {
		return 0, err
	}
	c.SetPrice(v)
	return v, nil
}

// OwnedUnits returns the cached holdings, fetching them once when unpopulated.
func (c *Cache) OwnedUnits(ctx context.Context) (int64, error) {
	c.mu.Lock()
	if c.ownedUnits != nil {
		v := *c.ownedUnits
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()

	v, err := c.reader.GetOwnedUnits(ctx)
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	c.ownedUnits = &v
	c.mu.Unlock()
	return v, nil
}

// Balance returns the cached balance, fetching it once when unpopulated.
func (c *Cache) Balance(ctx context.Context) (int64, error) {
	c.mu.Lock()
	if c.balance != nil {
		v := *c.balance
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()

	v, err := c.reader.GetBalance(ctx)
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	c.balance = &v
	c.mu.Unlock()
	return v, nil
}

// Synchronize unconditionally fetches all three quantities, overwrites all
// slots and the last-sync timestamp, and returns the combined state. This
// is the only place all three slots are refreshed together.
func (c *Cache) Synchronize(ctx context.Context) (State, error) {
	price, err := c.reader.GetPrice(ctx)
	if err != nil {
		return State{}, err
	}
	units, err := c.reader.GetOwnedUnits(ctx)
	if err != nil {
		return State{}, err
	}
	balance, err := c.reader.GetBalance(ctx)
	if err != nil {
		return State{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.price = &price
	c.ownedUnits = &units
	c.balance = &balance
	c.lastSync = c.now()

	return State{
		Timestamp:  c.lastSync,
		Price:      price,
		OwnedUnits: units,
		Balance:    balance,
	}, nil
}

// ApplyFill applies a confirmed chunk to the cached holdings and balance
// without a round-trip re-fetch: deltaUnits is positive for a buy and
// negative for a sell, priced at the confirmed execution price.
func (c *Cache) ApplyFill(price, deltaUnits int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ownedUnits != nil {
		v := *c.ownedUnits + deltaUnits
		c.ownedUnits = &v
	}
	if c.balance != nil {
		v := *c.balance - price*deltaUnits
		c.balance = &v
	}
}

// SetPrice overwrites the price slot. Used by the executor after a
// ground-truth re-read and by the streaming ticker feed.
func (c *Cache) SetPrice(price int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.price = &price
}

// Invalidate clears all three slots, forcing re-fetches.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.price = nil
	c.ownedUnits = nil
	c.balance = nil
}

// LastSync reports when Synchronize last completed.
func (c *Cache) LastSync() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSync
}
