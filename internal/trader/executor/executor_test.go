package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"autotrader/internal/trader/history"
	"autotrader/internal/trader/statecache"
	"autotrader/internal/trader/strategy"
	"autotrader/pkg/market"

	"go.uber.org/zap"
)

// fakeMarket serves both the executor and the state cache. Submit
// outcomes are scripted per attempt through submitErrs.
type fakeMarket struct {
	price      int64
	priceErr   error
	priceCalls int

	submitErrs []error
	submits    []int64
}

func (f *fakeMarket) GetPrice(context.Context) (int64, error) {
	f.priceCalls++
	if f.priceErr != nil {
		return 0, f.priceErr
	}
	return f.price, nil
}

func (f *fakeMarket) GetOwnedUnits(context.Context) (int64, error) { return 0, nil }
func (f *fakeMarket) GetBalance(context.Context) (int64, error)    { return 100000, nil }

func (f *fakeMarket) SubmitBuy(_ context.Context, q int64) (*market.OrderAck, error) {
	return f.submit(q)
}

func (f *fakeMarket) SubmitSell(_ context.Context, q int64) (*market.OrderAck, error) {
	return f.submit(q)
}

func (f *fakeMarket) submit(q int64) (*market.OrderAck, error) {
	if len(f.submitErrs) > 0 {
		err := f.submitErrs[0]
		f.submitErrs = f.submitErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	f.submits = append(f.submits, q)
	return &market.OrderAck{OrderID: "ord-test", Quantity: q}, nil
}

type fakeCounter struct{ n int }

func (c fakeCounter) CountRecent() int { return c.n }

func testConfig() Config {
	return Config{
		MaxCallsPerMinute: 100,
		ThrottleMargin:    5,
		ThrottleDelay:     2 * time.Second,
		MaxChunkSize:      200,
		ChunkDelay:        250 * time.Millisecond,
		InitialBackoff:    time.Second,
		MaxBackoff:        4 * time.Second,
	}
}

func newTestExecutor(t *testing.T, m *fakeMarket) (*Executor, *history.MemoryStore, *statecache.Cache, *[]time.Duration) {
	t.Helper()
	store := history.NewMemoryStore()
	cache := statecache.New(m)
	if _, err := cache.Synchronize(context.Background()); err != nil {
		t.Fatalf("synchronize: %v", err)
	}
	m.priceCalls = 0

	e := New(m, fakeCounter{}, cache, history.New(store), testConfig(), zap.NewNop())
	sleeps := &[]time.Duration{}
	e.sleep = func(_ context.Context, d time.Duration) error {
		*sleeps = append(*sleeps, d)
		return nil
	}
	return e, store, cache, sleeps
}

// go test -v --run TestExecuteChunking
func TestExecuteChunking(t *testing.T) {
	m := &fakeMarket{price: 50}
	e, store, cache, sleeps := newTestExecutor(t, m)
	ctx := context.Background()

	res, err := e.Execute(ctx, strategy.Decision{Action: strategy.Buy, Quantity: 450}, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Completed || res.RemainingQuantity != 0 {
		t.Fatalf("expected completed order, got %+v", res)
	}

	want := []int64{200, 200, 50}
	if len(m.submits) != len(want) {
		t.Fatalf("expected %d chunks, got %v", len(want), m.submits)
	}
	for i, q := range want {
		if m.submits[i] != q {
			t.Errorf("chunk %d: expected %d, got %d", i, q, m.submits[i])
		}
	}

	// A trade record per confirmed chunk
	if got := len(store.Trades()); got != 3 {
		t.Errorf("expected 3 trade records, got %d", got)
	}

	// Fills applied optimistically: 450 units at 50 each
	units, _ := cache.OwnedUnits(ctx)
	balance, _ := cache.Balance(ctx)
	if units != 450 || balance != 100000-450*50 {
		t.Errorf("expected units 450 balance %d, got %d/%d", 100000-450*50, units, balance)
	}

	// Only the inter-chunk delays slept, no throttle or backoff
	wantSleeps := []time.Duration{250 * time.Millisecond, 250 * time.Millisecond}
	if len(*sleeps) != len(wantSleeps) {
		t.Fatalf("expected sleeps %v, got %v", wantSleeps, *sleeps)
	}
}

// go test -v --run TestExecuteBackoffDoublingAndReset
func TestExecuteBackoffDoublingAndReset(t *testing.T) {
	rl := &market.RateLimitError{Status: 429}
	m := &fakeMarket{
		price: 50,
		// chunk 1: three rate limits then success; chunk 2: one more
		// rate limit, proving the backoff reset after the fill
		submitErrs: []error{rl, rl, rl, nil, rl, nil},
	}
	e, store, _, sleeps := newTestExecutor(t, m)

	res, err := e.Execute(context.Background(), strategy.Decision{Action: strategy.Buy, Quantity: 250}, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Completed {
		t.Fatalf("expected completed order, got %+v", res)
	}

	// 1s, doubled to 2s, doubled and capped at 4s, chunk delay, then
	// back to the initial 1s for the second chunk
	wantSleeps := []time.Duration{
		time.Second, 2 * time.Second, 4 * time.Second,
		250 * time.Millisecond,
		time.Second,
	}
	if len(*sleeps) != len(wantSleeps) {
		t.Fatalf("expected sleeps %v, got %v", wantSleeps, *sleeps)
	}
	for i, d := range wantSleeps {
		if (*sleeps)[i] != d {
			t.Errorf("sleep %d: expected %v, got %v", i, d, (*sleeps)[i])
		}
	}

	// One price re-check per rate limit
	if m.priceCalls != 4 {
		t.Errorf("expected 4 price re-checks, got %d", m.priceCalls)
	}
	if got := len(store.Trades()); got != 2 {
		t.Errorf("expected 2 trade records, got %d", got)
	}
}

// go test -v --run TestExecutePriceMovedAbort
func TestExecutePriceMovedAbort(t *testing.T) {
	m := &fakeMarket{price: 50, submitErrs: []error{&market.RateLimitError{Status: 429}}}
	e, store, cache, _ := newTestExecutor(t, m)
	m.price = 55 // moves between the decision and the re-check

	res, err := e.Execute(context.Background(), strategy.Decision{Action: strategy.Buy, Quantity: 300}, 50)
	if err != nil {
		t.Fatalf("abort must not surface as an error: %v", err)
	}
	if res.Completed || res.AbortReason != AbortPriceMoved {
		t.Fatalf("expected price-moved abort, got %+v", res)
	}
	if res.RemainingQuantity != 300 {
		t.Errorf("expected full quantity remaining, got %d", res.RemainingQuantity)
	}
	if res.FinalPrice != 55 {
		t.Errorf("expected final price 55, got %d", res.FinalPrice)
	}
	if len(store.Trades()) != 0 {
		t.Errorf("expected no trade records, got %d", len(store.Trades()))
	}

	// The re-checked price warms the cache
	p, _ := cache.Price(context.Background())
	if p != 55 {
		t.Errorf("expected cached price 55, got %d", p)
	}
}

// go test -v --run TestExecutePartialFillOnRequestError
func TestExecutePartialFillOnRequestError(t *testing.T) {
	m := &fakeMarket{
		price:      50,
		submitErrs: []error{nil, &market.RequestError{Op: "submit sell order", Status: 503, Err: errors.New("unavailable")}},
	}
	e, store, cache, _ := newTestExecutor(t, m)

	res, err := e.Execute(context.Background(), strategy.Decision{Action: strategy.Sell, Quantity: 300}, 50)
	if err != nil {
		t.Fatalf("abort must not surface as an error: %v", err)
	}
	if res.Completed || res.AbortReason != AbortRequestFailed {
		t.Fatalf("expected request-failed abort, got %+v", res)
	}
	if res.RemainingQuantity != 100 {
		t.Errorf("expected 100 remaining, got %d", res.RemainingQuantity)
	}

	// The confirmed first chunk stays recorded and applied
	if got := len(store.Trades()); got != 1 {
		t.Fatalf("expected 1 trade record, got %d", got)
	}
	units, _ := cache.OwnedUnits(context.Background())
	if units != -200 {
		t.Errorf("expected units delta -200 applied, got %d", units)
	}
}

// go test -v --run TestExecuteRecheckFailureAborts
func TestExecuteRecheckFailureAborts(t *testing.T) {
	m := &fakeMarket{price: 50, submitErrs: []error{&market.RateLimitError{Status: 429}}}
	e, _, _, _ := newTestExecutor(t, m)
	m.priceErr = &market.RequestError{Op: "get price", Status: 500, Err: errors.New("boom")}

	res, err := e.Execute(context.Background(), strategy.Decision{Action: strategy.Buy, Quantity: 100}, 50)
	if err != nil {
		t.Fatalf("classified re-check failure must not surface as an error: %v", err)
	}
	if res.Completed || res.AbortReason != AbortRequestFailed {
		t.Fatalf("expected request-failed abort, got %+v", res)
	}
}

// go test -v --run TestExecuteUnclassifiedErrorPropagates
func TestExecuteUnclassifiedErrorPropagates(t *testing.T) {
	fatal := errors.New("response shape nobody planned for")
	m := &fakeMarket{price: 50, submitErrs: []error{fatal}}
	e, _, _, _ := newTestExecutor(t, m)

	res, err := e.Execute(context.Background(), strategy.Decision{Action: strategy.Buy, Quantity: 100}, 50)
	if !errors.Is(err, fatal) {
		t.Fatalf("expected the unclassified error to propagate, got %v", err)
	}
	if res.RemainingQuantity != 100 {
		t.Errorf("expected full quantity remaining, got %d", res.RemainingQuantity)
	}
}

// go test -v --run TestExecuteThrottlesNearBudget
func TestExecuteThrottlesNearBudget(t *testing.T) {
	m := &fakeMarket{price: 50}
	e, _, _, sleeps := newTestExecutor(t, m)
	e.tracker = fakeCounter{n: 96} // within margin of the 100-call budget

	res, err := e.Execute(context.Background(), strategy.Decision{Action: strategy.Buy, Quantity: 100}, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Completed {
		t.Fatalf("expected completed order, got %+v", res)
	}
	if len(*sleeps) != 1 || (*sleeps)[0] != 2*time.Second {
		t.Errorf("expected one throttle sleep of 2s, got %v", *sleeps)
	}
}

// go test -v --run TestExecuteRejectsHold
func TestExecuteRejectsHold(t *testing.T) {
	m := &fakeMarket{price: 50}
	e, _, _, _ := newTestExecutor(t, m)

	if _, err := e.Execute(context.Background(), strategy.Decision{Action: strategy.Hold}, 50); err == nil {
		t.Error("expected an error for a hold decision")
	}
	if _, err := e.Execute(context.Background(), strategy.Decision{Action: strategy.Buy, Quantity: 0}, 50); err == nil {
		t.Error("expected an error for a zero quantity")
	}
}
