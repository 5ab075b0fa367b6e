package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"autotrader/internal/trader/history"
	"autotrader/internal/trader/statecache"
	"autotrader/internal/trader/strategy"
	"autotrader/metrics"
	"autotrader/pkg/market"

	"go.uber.org/zap"
)

// Trader is the slice of the market client the executor drives.
type Trader interface {
	GetPrice(ctx context.Context) (int64, error)
	SubmitBuy(ctx context.Context, quantity int64) (*market.OrderAck, error)
	SubmitSell(ctx context.Context, quantity int64) (*market.OrderAck, error)
}

// CallCounter reports recent outbound call volume for proactive throttling.
type CallCounter interface {
	CountRecent() int
}

type Config struct {
	MaxCallsPerMinute int
	ThrottleMargin    int
	ThrottleDelay     time.Duration
	MaxChunkSize      int64
	ChunkDelay        time.Duration
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
}

// AbortReason explains why an order halted before completion.
type AbortReason string

const (
	AbortNone          AbortReason = ""
	AbortPriceMoved    AbortReason = "price_moved"
	AbortRequestFailed AbortReason = "request_failed"
)

// Result is the structured outcome of one chunked order. A partial fill
// (Completed false, RemainingQuantity > 0) is a legitimate terminal state,
// not an error; already-confirmed chunks are never rolled back.
type Result struct {
	Action            strategy.Action
	TotalQuantity     int64
	RemainingQuantity int64
	ReferencePrice    int64
	FinalPrice        int64
	Completed         bool
	AbortReason       AbortReason
}

// Executor submits a decision as one or more chunked orders: proactive
// throttling off the rate tracker, exponential backoff on rate limits
// with a price-stability re-check, immediate abort on any other request
// failure. Unclassified errors propagate to the caller.
type Executor struct {
	market  Trader
	tracker CallCounter
	cache   *statecache.Cache
	history *history.History
	cfg     Config
	logger  *zap.Logger

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

func New(m Trader, tracker CallCounter, cache *statecache.Cache, hist *history.History,
	cfg Config, logger *zap.Logger) *Executor {
	return &Executor{
		market:  m,
		tracker: tracker,
		cache:   cache,
		history: hist,
		cfg:     cfg,
		logger:  logger,
		sleep:   sleepCtx,
		now:     time.Now,
	}
}

// Execute runs the chunked order state machine for one decision made at
// referencePrice. Chunks already confirmed when an abort occurs stay
// counted in the result.
func (e *Executor) Execute(ctx context.Context, d strategy.Decision, referencePrice int64) (*Result, error) {
	if d.Action == strategy.Hold || d.Quantity <= 0 {
		return nil, fmt.Errorf("executor: nothing to execute (action=%s quantity=%d)", d.Action, d.Quantity)
	}

	res := &Result{
		Action:         d.Action,
		TotalQuantity:  d.Quantity,
		ReferencePrice: referencePrice,
		FinalPrice:     referencePrice,
	}

	remaining := d.Quantity
	backoff := e.cfg.InitialBackoff

	for remaining > 0 {
		if err := e.throttleIfBusy(ctx); err != nil {
			res.RemainingQuantity = remaining
			return res, err
		}

		chunk := remaining
		if chunk > e.cfg.MaxChunkSize {
			chunk = e.cfg.MaxChunkSize
		}

		ack, err := e.submitChunk(ctx, d.Action, chunk)
		if err == nil {
			remaining -= chunk
			backoff = e.cfg.InitialBackoff
			if rerr := e.recordChunk(ctx, d.Action, chunk, referencePrice, ack); rerr != nil {
				// The chunk is confirmed remotely; keep it counted and
				// let the storage failure propagate as fatal.
				res.RemainingQuantity = remaining
				return res, rerr
			}
			if remaining > 0 {
				if serr := e.sleep(ctx, e.cfg.ChunkDelay); serr != nil {
					res.RemainingQuantity = remaining
					return res, serr
				}
			}
			continue
		}

		var rateLimited *market.RateLimitError
		var requestFailed *market.RequestError

		switch {
		case errors.As(err, &rateLimited):
			e.logger.Warn("rate limited, backing off",
				zap.Duration("backoff", backoff),
				zap.Int64("remaining", remaining))
			metrics.IncBackoff()

			if serr := e.sleep(ctx, backoff); serr != nil {
				res.RemainingQuantity = remaining
				return res, serr
			}
			backoff *= 2
			if backoff > e.cfg.MaxBackoff {
				backoff = e.cfg.MaxBackoff
			}

			// Ground-truth re-check with a single cheap read, not a
			// full three-field sync.
			price, perr := e.market.GetPrice(ctx)
			if perr != nil {
				if isClassified(perr) {
					e.logger.Warn("price re-check failed, aborting order", zap.Error(perr))
					res.AbortReason = AbortRequestFailed
					metrics.IncAbortedOrder(string(AbortRequestFailed))
					res.RemainingQuantity = remaining
					res.Completed = false
					return res, nil
				}
				res.RemainingQuantity = remaining
				return res, perr
			}
			e.cache.SetPrice(price)

			if price != referencePrice {
				// The decision was made against a price that no longer
				// holds; the partial fill stands.
				e.logger.Info("price moved during backoff, aborting order",
					zap.Int64("reference_price", referencePrice),
					zap.Int64("current_price", price),
					zap.Int64("remaining", remaining))
				res.AbortReason = AbortPriceMoved
				metrics.IncAbortedOrder(string(AbortPriceMoved))
				res.FinalPrice = price
				res.RemainingQuantity = remaining
				res.Completed = false
				return res, nil
			}
			// Price unchanged: retry the same chunk.

		case errors.As(err, &requestFailed):
			e.logger.Warn("order chunk failed, aborting order",
				zap.Error(err), zap.Int64("remaining", remaining))
			res.AbortReason = AbortRequestFailed
			metrics.IncAbortedOrder(string(AbortRequestFailed))
			res.RemainingQuantity = remaining
			res.Completed = false
			return res, nil

		default:
			// Neither kind: fatal, propagates uncaught.
			res.RemainingQuantity = remaining
			return res, err
		}
	}

	res.RemainingQuantity = 0
	res.Completed = true
	return res, nil
}

// throttleIfBusy sleeps a short fixed delay when recent call volume is
// within the safety margin of the per-minute budget.
func (e *Executor) throttleIfBusy(ctx context.Context) error {
	recent := e.tracker.CountRecent()
	if recent < e.cfg.MaxCallsPerMinute-e.cfg.ThrottleMargin {
		return nil
	}
	e.logger.Debug("call budget nearly exhausted, throttling",
		zap.Int("recent_calls", recent),
		zap.Int("budget", e.cfg.MaxCallsPerMinute))
	return e.sleep(ctx, e.cfg.ThrottleDelay)
}

// submitChunk sends one order call.
func (e *Executor) submitChunk(ctx context.Context, action strategy.Action, chunk int64) (*market.OrderAck, error) {
	if action == strategy.Buy {
		return e.market.SubmitBuy(ctx, chunk)
	}
	return e.market.SubmitSell(ctx, chunk)
}

// recordChunk appends the trade record for a confirmed chunk and applies
// the fill to the cache.
func (e *Executor) recordChunk(ctx context.Context, action strategy.Action, chunk, price int64, ack *market.OrderAck) error {
	unitsBefore, err := e.cache.OwnedUnits(ctx)
	if err != nil {
		return err
	}
	balanceBefore, err := e.cache.Balance(ctx)
	if err != nil {
		return err
	}

	entry := history.TradeEntry{
		Timestamp:     e.now(),
		Price:         price,
		UnitsBefore:   unitsBefore,
		BalanceBefore: balanceBefore,
		OrderID:       ack.OrderID,
	}
	delta := chunk
	if action == strategy.Buy {
		entry.UnitsBought = chunk
		entry.BalanceAfter = balanceBefore - price*chunk
	} else {
		entry.UnitsSold = chunk
		entry.BalanceAfter = balanceBefore + price*chunk
		delta = -chunk
	}

	if err := e.history.RecordTrade(ctx, entry); err != nil {
		return err
	}

	e.cache.ApplyFill(price, delta)
	metrics.IncOrderChunk(sideLabel(action))

	e.logger.Info("order chunk confirmed",
		zap.String("side", sideLabel(action)),
		zap.Int64("quantity", chunk),
		zap.Int64("price", price),
		zap.String("order_id", ack.OrderID))
	return nil
}

func sideLabel(a strategy.Action) string {
	if a == strategy.Buy {
		return "buy"
	}
	return "sell"
}

func isClassified(err error) bool {
	var rl *market.RateLimitError
	var rq *market.RequestError
	return errors.As(err, &rl) || errors.As(err, &rq)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
