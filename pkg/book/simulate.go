package book

import "github.com/luxfi/mdx/pkg/units"

// SimulationSummary reports both legs of a simulated marketable order, in
// native lots.
type SimulationSummary struct {
	BaseLotsFilled  units.BaseLots
	QuoteLotsFilled units.QuoteLots
}

// SellQuote walks the asks best-to-worst spending a quote-lot budget and
// reports how much of each leg was filled. The affordable size at each
// level floors, never rounds: rounding up would manufacture quote balance
// that does not exist.
func (l Ladder) SellQuote(quoteLots units.QuoteLots) SimulationSummary {
	remaining := uint64(quoteLots)
	var baseFilled uint64

	for _, ask := range l.Asks {
		if remaining == 0 {
			break
		}
		if ask.PriceInTicks == 0 {
			continue
		}
		affordable := remaining / uint64(ask.PriceInTicks)
		take := min(affordable, uint64(ask.SizeInBaseLots))
		baseFilled += take
		remaining -= take * uint64(ask.PriceInTicks)
	}

	return SimulationSummary{
		BaseLotsFilled:  units.BaseLots(baseFilled),
		QuoteLotsFilled: quoteLots - units.QuoteLots(remaining),
	}
}

// SellBase walks the bids best-to-worst spending a base-lot budget and
// reports how much of each leg was filled.
func (l Ladder) SellBase(baseLots units.BaseLots) SimulationSummary {
	remaining := uint64(baseLots)
	var quoteFilled uint64

	for _, bid := range l.Bids {
		if remaining == 0 {
			break
		}
		take := min(remaining, uint64(bid.SizeInBaseLots))
		quoteFilled += take * uint64(bid.PriceInTicks)
		remaining -= take
	}

	return SimulationSummary{
		BaseLotsFilled:  baseLots - units.BaseLots(remaining),
		QuoteLotsFilled: units.QuoteLots(quoteFilled),
	}
}

// SimulateMarketSell routes a marketable order through the ladder. Side
// Bid is an aggressive buy consuming asks with a quote-lot budget; side
// Ask is an aggressive sell consuming bids with a base-lot budget. An
// empty side or an oversized budget fills only what is available; the
// ladder is never overrun.
func (l Ladder) SimulateMarketSell(side Side, sizeInLots uint64) SimulationSummary {
	if side == Bid {
		return l.SellQuote(units.QuoteLots(sizeInLots))
	}
	return l.SellBase(units.BaseLots(sizeInLots))
}
