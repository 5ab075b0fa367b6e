package strategy

import (
	"math"

	"autotrader/internal/trader/history"
)

// Thresholds are the derived buy/sell price bounds for one summary.
// They are usable only when Valid is set; callers hold otherwise.
type Thresholds struct {
	Buy   int64
	Sell  int64
	Valid bool
}

// ComputeThresholds derives price bounds from a summary. When the sample
// stddev is effectively zero (< 1) the bounds fall back to a fixed spread
// around the mean; otherwise they sit sensitivity stddevs out. The buy
// bound is clamped to a minimum of 1, and the pair is valid only when
// buy < sell.
func ComputeThresholds(sum history.Summary, sensitivity float64, fallbackSpread int64) Thresholds {
	avg := sum.Mean
	sd := sum.StdDev

	var buy, sell int64
	if sd < 1 {
		buy = int64(math.Floor(avg - float64(fallbackSpread)))
		sell = int64(math.Floor(avg + float64(fallbackSpread)))
	} else {
		buy = int64(math.Floor(avg - sensitivity*sd))
		sell = int64(math.Floor(avg + sensitivity*sd))
	}

	if buy < 1 {
		buy = 1
	}

	return Thresholds{Buy: buy, Sell: sell, Valid: buy < sell}
}

// ThresholdStrategy trades when the current price breaks out of the
// statistical band around the windowed mean. Buy is checked before sell;
// the two are mutually exclusive per cycle.
type ThresholdStrategy struct {
	MinDataPoints     int
	Sensitivity       float64
	FallbackSpread    int64
	MinBalanceReserve int64
	MinUnitsReserve   int64
	TradeFraction     float64
}

func (t *ThresholdStrategy) Name() string { return "threshold" }

func (t *ThresholdStrategy) Decide(s MarketState) Decision {
	if s.Summary.Count < t.MinDataPoints {
		return hold()
	}

	th := ComputeThresholds(s.Summary, t.Sensitivity, t.FallbackSpread)
	if !th.Valid {
		return hold()
	}

	if s.Price < th.Buy {
		affordable := affordableUnits(s.Balance, t.MinBalanceReserve, s.Price)
		if affordable <= 0 {
			return hold()
		}
		qty := clampQuantity(float64(affordable)*t.TradeFraction, affordable)
		if qty <= 0 {
			return hold()
		}
		return Decision{Action: Buy, Quantity: qty}
	}

	if s.Price > th.Sell {
		sellable := sellableUnits(s.OwnedUnits, t.MinUnitsReserve)
		if sellable <= 0 {
			return hold()
		}
		qty := clampQuantity(float64(sellable)*t.TradeFraction, sellable)
		if qty <= 0 {
			return hold()
		}
		return Decision{Action: Sell, Quantity: qty}
	}

	return hold()
}
