package book

import (
	"sort"

	"github.com/luxfi/mdx/pkg/units"
)

// Level is one flattened price level: the total resting size across all
// orders at that price.
type Level struct {
	PriceInTicks   units.Ticks
	SizeInBaseLots units.BaseLots
}

// Ladder is a level-aggregated view of both sides, best price first on
// each side (bids descending, asks ascending). Prices within a side are
// strictly monotonic and sizes strictly positive; zero-size levels are
// never materialized.
type Ladder struct {
	Bids []Level
	Asks []Level
}

// BuildLadder groups a full-book snapshot into one level per distinct
// (side, price), summing order sizes. It is a pure transform; the mirror
// is not touched.
func BuildLadder(orders []RestingOrder) Ladder {
	bidSizes := make(map[units.Ticks]units.BaseLots)
	askSizes := make(map[units.Ticks]units.BaseLots)
	for _, o := range orders {
		if o.Size == 0 {
			continue
		}
		if o.Side == Bid {
			bidSizes[o.ID.PriceInTicks] += o.Size
		} else {
			askSizes[o.ID.PriceInTicks] += o.Size
		}
	}

	ladder := Ladder{
		Bids: levelsFrom(bidSizes),
		Asks: levelsFrom(askSizes),
	}
	sort.Slice(ladder.Bids, func(i, j int) bool {
		return ladder.Bids[i].PriceInTicks > ladder.Bids[j].PriceInTicks
	})
	sort.Slice(ladder.Asks, func(i, j int) bool {
		return ladder.Asks[i].PriceInTicks < ladder.Asks[j].PriceInTicks
	})
	return ladder
}

func levelsFrom(sizes map[units.Ticks]units.BaseLots) []Level {
	levels := make([]Level, 0, len(sizes))
	for price, size := range sizes {
		levels = append(levels, Level{PriceInTicks: price, SizeInBaseLots: size})
	}
	return levels
}

// Ladder flattens the mirror into at most levels price levels per side,
// best first. levels <= 0 keeps every level. Keys must carry native
// integer tick prices; books keyed by decimal display prices are not
// ladder material.
func (ob *Orderbook[K, V]) Ladder(levels int) Ladder {
	bids, asks := ob.snapshot()
	return Ladder{
		Bids: collapseLevels(bids, levels),
		Asks: collapseLevels(asks, levels),
	}
}

// collapseLevels merges adjacent entries at the same price. Entries are
// already ordered best-to-worst, so one pass suffices.
func collapseLevels[K HasPrice, V HasSize](entries []Entry[K, V], levels int) []Level {
	out := make([]Level, 0, len(entries))
	for _, e := range entries {
		price := units.Ticks(e.Key.Price())
		size := units.BaseLots(e.Value.Size())
		if n := len(out); n > 0 && out[n-1].PriceInTicks == price {
			out[n-1].SizeInBaseLots += size
			continue
		}
		if levels > 0 && len(out) == levels {
			break
		}
		out = append(out, Level{PriceInTicks: price, SizeInBaseLots: size})
	}
	return out
}
