package trader

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"autotrader/config"
	"autotrader/internal/trader/executor"
	"autotrader/internal/trader/history"
	"autotrader/internal/trader/statecache"
	"autotrader/internal/trader/strategy"
	"autotrader/metrics"
	"autotrader/pkg/market"

	"go.uber.org/zap"
)

// RetentionStore is implemented by backends that can prune old snapshots.
type RetentionStore interface {
	DeleteOldSnapshots(ctx context.Context, before time.Time) error
}

// Trader runs the trade cycle: synchronize state, record price changes,
// summarize history, decide, execute. One cycle runs to completion before
// the next begins; the only suspension points are remote calls and the
// executor's deliberate sleeps.
type Trader struct {
	client   *market.Client
	cache    *statecache.Cache
	history  *history.History
	store    history.Store
	strategy strategy.Strategy
	executor *executor.Executor
	window   history.Window
	cfg      config.TradingConfig
	logger   *zap.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New wires the cycle components from configuration. The store decides
// durability: postgres in normal runs, the in-memory store in dry runs.
func New(cfg config.TradingConfig, client *market.Client, store history.Store, logger *zap.Logger) (*Trader, error) {
	window, err := history.ParseWindow(cfg.LookbackWindow)
	if err != nil {
		return nil, err
	}

	strat, err := buildStrategy(cfg)
	if err != nil {
		return nil, err
	}

	hist := history.New(store)
	cache := statecache.New(client)

	exec := executor.New(client, client.Tracker(), cache, hist, executor.Config{
		MaxCallsPerMinute: cfg.MaxCallsPerMinute,
		ThrottleMargin:    cfg.ThrottleMargin,
		ThrottleDelay:     cfg.ThrottleDelay,
		MaxChunkSize:      cfg.MaxChunkSize,
		ChunkDelay:        cfg.ChunkDelay,
		InitialBackoff:    cfg.InitialBackoff,
		MaxBackoff:        cfg.MaxBackoff,
	}, logger)

	return &Trader{
		client:   client,
		cache:    cache,
		history:  hist,
		store:    store,
		strategy: strat,
		executor: exec,
		window:   window,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		sleep:    sleepCtx,
	}, nil
}

// Cache exposes the state cache, so the ticker feed can warm it.
func (t *Trader) Cache() *statecache.Cache {
	return t.cache
}

func buildStrategy(cfg config.TradingConfig) (strategy.Strategy, error) {
	switch cfg.Strategy {
	case "threshold", "":
		return &strategy.ThresholdStrategy{
			MinDataPoints:     cfg.MinDataPoints,
			Sensitivity:       cfg.Sensitivity,
			FallbackSpread:    cfg.FallbackSpread,
			MinBalanceReserve: cfg.MinBalanceReserve,
			MinUnitsReserve:   cfg.MinUnitsReserve,
			TradeFraction:     cfg.TradeFraction,
		}, nil
	case "band":
		buy := make([]strategy.PriceBand, 0, len(cfg.BuyBands))
		for _, b := range cfg.BuyBands {
			buy = append(buy, strategy.PriceBand{Price: b.Price, Fraction: b.Fraction})
		}
		sell := make([]strategy.PriceBand, 0, len(cfg.SellBands))
		for _, b := range cfg.SellBands {
			sell = append(sell, strategy.PriceBand{Price: b.Price, Fraction: b.Fraction})
		}
		return &strategy.BandStrategy{
			BuyBands:          buy,
			SellBands:         sell,
			MinBalanceReserve: cfg.MinBalanceReserve,
			MinUnitsReserve:   cfg.MinUnitsReserve,
		}, nil
	default:
		return nil, fmt.Errorf("unknown strategy: %s", cfg.Strategy)
	}
}

// RunCycle executes one full trade cycle. Classified transport errors
// bubble up so the outer loop can skip the cycle; anything else is fatal.
func (t *Trader) RunCycle(ctx context.Context) error {
	state, err := t.cache.Synchronize(ctx)
	if err != nil {
		return err
	}

	metrics.SetPrice(state.Price)
	metrics.SetBalance(state.Balance)
	metrics.SetOwnedUnits(state.OwnedUnits)

	snap, appended, err := t.history.RecordIfChanged(ctx, history.Snapshot{
		Timestamp:  state.Timestamp,
		Price:      state.Price,
		OwnedUnits: state.OwnedUnits,
		Balance:    state.Balance,
	})
	if err != nil {
		return err
	}
	if appended {
		metrics.IncSnapshotRecorded()
		t.logger.Debug("price change recorded",
			zap.Int64("price", snap.Price),
			zap.Time("timestamp", snap.Timestamp))
	}

	summaries, err := t.history.SummarizeWindows(ctx, t.now())
	if err != nil {
		return err
	}
	sum := summaries[t.window]

	decision := t.strategy.Decide(strategy.MarketState{
		Price:      state.Price,
		OwnedUnits: state.OwnedUnits,
		Balance:    state.Balance,
		Summary:    sum,
	})
	metrics.IncDecision(strings.ToLower(decision.Action.String()))

	t.logger.Info("cycle decision",
		zap.String("strategy", t.strategy.Name()),
		zap.String("action", decision.Action.String()),
		zap.Int64("quantity", decision.Quantity),
		zap.Int64("price", state.Price),
		zap.Int("window_entries", sum.Count),
		zap.Float64("window_mean", sum.Mean),
		zap.Float64("window_stddev", sum.StdDev))

	if decision.Action != strategy.Hold {
		result, err := t.executor.Execute(ctx, decision, state.Price)
		if err != nil {
			return err
		}
		t.logger.Info("order finished",
			zap.String("action", result.Action.String()),
			zap.Int64("total", result.TotalQuantity),
			zap.Int64("remaining", result.RemainingQuantity),
			zap.Int64("reference_price", result.ReferencePrice),
			zap.Int64("final_price", result.FinalPrice),
			zap.Bool("completed", result.Completed),
			zap.String("abort_reason", string(result.AbortReason)))
	}

	t.pruneSnapshots(ctx)
	return nil
}

// pruneSnapshots applies the retention horizon when the store supports it.
func (t *Trader) pruneSnapshots(ctx context.Context) {
	if t.cfg.SnapshotRetention <= 0 {
		return
	}
	r, ok := t.store.(RetentionStore)
	if !ok {
		return
	}
	cutoff := t.now().Add(-t.cfg.SnapshotRetention)
	if err := r.DeleteOldSnapshots(ctx, cutoff); err != nil {
		t.logger.Warn("failed to prune old snapshots", zap.Error(err))
	}
}

// Run drives cycles forever: each cycle is followed by a sleep of the
// configured interval minus elapsed time, floored at the minimum. A cycle
// that fails with a classified transport error is skipped; anything else
// terminates the loop.
func (t *Trader) Run(ctx context.Context) error {
	for {
		start := t.now()

		if err := t.RunCycle(ctx); err != nil {
			if !isClassified(err) {
				return err
			}
			t.logger.Warn("cycle skipped", zap.Error(err))
		}

		elapsed := t.now().Sub(start)
		wait := t.cfg.CycleInterval - elapsed
		if wait < t.cfg.MinCycleSleep {
			wait = t.cfg.MinCycleSleep
		}

		if err := t.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func isClassified(err error) bool {
	var rl *market.RateLimitError
	var rq *market.RequestError
	return errors.As(err, &rl) || errors.As(err, &rq)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
