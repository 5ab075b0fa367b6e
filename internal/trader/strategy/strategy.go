package strategy

import (
	"math"

	"autotrader/internal/trader/history"
)

// Action is the high-level trading intent.
type Action int

const (
	Hold Action = iota
	Buy
	Sell
)

// String implements fmt.Stringer for pretty logging.
func (a Action) String() string {
	switch a {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "HOLD"
	}
}

// Decision is what to do this cycle. Quantity is 0 exactly when Action is
// Hold and positive otherwise; a policy path that computes a non-positive
// quantity degrades to Hold instead of emitting a zero-quantity order.
type Decision struct {
	Action   Action
	Quantity int64
}

func hold() Decision { return Decision{Action: Hold} }

// MarketState is the pure input a policy decides on: the synchronized
// state plus the summary for the configured lookback window.
type MarketState struct {
	Price      int64
	OwnedUnits int64
	Balance    int64
	Summary    history.Summary
}

// Strategy converts market state into a trade decision. Implementations
// are pure functions of their input, interchangeable without touching
// downstream components.
type Strategy interface {
	Name() string
	Decide(s MarketState) Decision
}

// clampQuantity floors raw and clamps it into [1, max]. A non-positive max
// yields 0, which callers translate to Hold.
func clampQuantity(raw float64, max int64) int64 {
	if max <= 0 {
		return 0
	}
	q := int64(math.Floor(raw))
	if q < 1 {
		q = 1
	}
	if q > max {
		q = max
	}
	return q
}

// affordableUnits is how many units can be bought at price without dipping
// below the balance reserve.
func affordableUnits(balance, reserve, price int64) int64 {
	if price <= 0 {
		return 0
	}
	return (balance - reserve) / price
}

// sellableUnits is how many owned units can be sold without dipping below
// the holdings reserve.
func sellableUnits(ownedUnits, reserve int64) int64 {
	return ownedUnits - reserve
}
