package strategy

// PriceBand maps a price breakpoint to the fraction of the available
// quantity to trade when the current price crosses it.
type PriceBand struct {
	Price    int64
	Fraction float64
}

// BandStrategy trades on static price bands, independent of historical
// statistics. It is the simpler fallback policy: buy bands fire when the
// price drops below a breakpoint, sell bands when it rises above one.
//
// The affordability check runs before a buy and the holdings check before
// a sell, mirroring the threshold policy.
type BandStrategy struct {
	// BuyBands sorted by ascending breakpoint; the first band whose
	// breakpoint exceeds the price wins, so deeper drops map to the
	// lower-breakpoint (typically larger-fraction) bands.
	BuyBands []PriceBand
	// SellBands sorted by descending breakpoint; the first band whose
	// breakpoint is below the price wins.
	SellBands []PriceBand

	MinBalanceReserve int64
	MinUnitsReserve   int64
}

func (b *BandStrategy) Name() string { return "band" }

func (b *BandStrategy) Decide(s MarketState) Decision {
	affordable := affordableUnits(s.Balance, b.MinBalanceReserve, s.Price)
	if affordable > 0 {
		for _, band := range b.BuyBands {
			if s.Price < band.Price {
				qty := clampQuantity(float64(affordable)*band.Fraction, affordable)
				if qty <= 0 {
					break
				}
				return Decision{Action: Buy, Quantity: qty}
			}
		}
	}

	sellable := sellableUnits(s.OwnedUnits, b.MinUnitsReserve)
	if sellable > 0 {
		for _, band := range b.SellBands {
			if s.Price > band.Price {
				qty := clampQuantity(float64(sellable)*band.Fraction, sellable)
				if qty <= 0 {
					break
				}
				return Decision{Action: Sell, Quantity: qty}
			}
		}
	}

	return hold()
}
