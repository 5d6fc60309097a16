// Package book maintains a client-side mirror of a remote limit-order-book
// market: two price-ordered sides kept current from decoded exchange
// events, plus level-aggregated views and marketable-order simulation over
// them. The package never matches orders itself; it only reflects the
// effects of matching that happened remotely.
package book

import (
	"sync"

	"github.com/google/btree"
)

// Side identifies one side of the book.
type Side uint8

const (
	Bid Side = iota
	Ask
)

func (s Side) String() string {
	switch s {
	case Bid:
		return "bid"
	case Ask:
		return "ask"
	default:
		return "unknown"
	}
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == Bid {
		return Ask
	}
	return Bid
}

// HasPrice is satisfied by any key type that can project itself onto the
// price axis. The projection drives crossing checks and level grouping;
// ordering of keys within a side is the total order given to New.
type HasPrice interface {
	Price() float64
}

// HasSize is satisfied by any value type that carries a resting quantity.
// A zero size means "this entry no longer exists".
type HasSize interface {
	Size() float64
}

// Entry is one key/value pair resting on a side of the book.
type Entry[K HasPrice, V HasSize] struct {
	Key   K
	Value V
}

const sideTreeDegree = 32

// Orderbook mirrors the remote book of a single market. It is generic
// over the key shape (raw ticks, a compound order id, a decimal price)
// and the value shape (raw lots, an order with maker identity) so the
// same update algorithm serves every representation.
//
// Reads may run concurrently; mutations take exclusive access for the
// whole update batch, including crossing resolution.
type Orderbook[K HasPrice, V HasSize] struct {
	// SizeMult converts a native size to display units, PriceMult a
	// native price. Display only; never consulted for ordering.
	SizeMult  float64
	PriceMult float64

	mu   sync.RWMutex
	bids *btree.BTreeG[Entry[K, V]]
	asks *btree.BTreeG[Entry[K, V]]
}

// New builds an empty mirror. less must be a total order on keys that is
// ascending in price; entries at equal prices may be ordered arbitrarily
// among themselves (typically by sequence number).
func New[K HasPrice, V HasSize](less func(a, b K) bool, sizeMult, priceMult float64) *Orderbook[K, V] {
	lessEntry := func(a, b Entry[K, V]) bool { return less(a.Key, b.Key) }
	return &Orderbook[K, V]{
		SizeMult:  sizeMult,
		PriceMult: priceMult,
		bids:      btree.NewG(sideTreeDegree, lessEntry),
		asks:      btree.NewG(sideTreeDegree, lessEntry),
	}
}

// UpdateOrders applies a batch of price-level deltas to one side, in input
// order. A zero-size update removes the entry at that key; any other size
// upserts it. After each upsert, opposite-side entries that the new price
// crosses or touches are removed outright: the mirror receives remote
// state deltas, not matched-trade pairs, so the true residual size of a
// partially consumed order arrives in a later update from the stream.
func (ob *Orderbook[K, V]) UpdateOrders(side Side, updates []Entry[K, V]) {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	own, opp := ob.bids, ob.asks
	sign := 1.0
	if side == Ask {
		own, opp = ob.asks, ob.bids
		sign = -1.0
	}

	for _, u := range updates {
		if u.Value.Size() == 0 {
			own.Delete(Entry[K, V]{Key: u.Key})
			continue
		}
		own.ReplaceOrInsert(u)

		for {
			best, ok := oppositeBest(opp, side)
			if !ok || u.Key.Price()*sign < best.Key.Price()*sign {
				break
			}
			opp.Delete(best)
		}
	}
}

// Clear drops every entry on both sides, keeping the multipliers. Used
// when a fresh full snapshot replaces the mirrored state.
func (ob *Orderbook[K, V]) Clear() {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	ob.bids.Clear(false)
	ob.asks.Clear(false)
}

func oppositeBest[K HasPrice, V HasSize](opp *btree.BTreeG[Entry[K, V]], side Side) (Entry[K, V], bool) {
	if side == Bid {
		return opp.Min() // lowest ask
	}
	return opp.Max() // highest bid
}

// Bids returns the bid entries best-to-worst (descending price).
func (ob *Orderbook[K, V]) Bids() []Entry[K, V] {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return ob.bidsLocked()
}

// Asks returns the ask entries best-to-worst (ascending price).
func (ob *Orderbook[K, V]) Asks() []Entry[K, V] {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return ob.asksLocked()
}

// snapshot reads both sides under one read lock. Composite views must use
// this rather than Bids followed by Asks, or a concurrent update batch can
// land between the two reads and the view mixes entries from two states,
// possibly a crossed pair that neither state contained.
func (ob *Orderbook[K, V]) snapshot() (bids, asks []Entry[K, V]) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return ob.bidsLocked(), ob.asksLocked()
}

func (ob *Orderbook[K, V]) bidsLocked() []Entry[K, V] {
	out := make([]Entry[K, V], 0, ob.bids.Len())
	ob.bids.Descend(func(e Entry[K, V]) bool {
		out = append(out, e)
		return true
	})
	return out
}

func (ob *Orderbook[K, V]) asksLocked() []Entry[K, V] {
	out := make([]Entry[K, V], 0, ob.asks.Len())
	ob.asks.Ascend(func(e Entry[K, V]) bool {
		out = append(out, e)
		return true
	})
	return out
}

// BestBid returns the highest bid entry.
func (ob *Orderbook[K, V]) BestBid() (Entry[K, V], bool) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return ob.bids.Max()
}

// BestAsk returns the lowest ask entry.
func (ob *Orderbook[K, V]) BestAsk() (Entry[K, V], bool) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return ob.asks.Min()
}

// Depth returns the number of entries resting on a side.
func (ob *Orderbook[K, V]) Depth(side Side) int {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	if side == Bid {
		return ob.bids.Len()
	}
	return ob.asks.Len()
}

// Crossed reports whether the best bid price meets or exceeds the best ask
// price. UpdateOrders resolves crossings as it goes, so a crossed mirror
// indicates out-of-sequence input rather than a recoverable condition.
func (ob *Orderbook[K, V]) Crossed() bool {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	bestBid, okBid := ob.bids.Max()
	bestAsk, okAsk := ob.asks.Min()
	return okBid && okAsk && bestBid.Key.Price() >= bestAsk.Key.Price()
}

// VWAP computes the volume-weighted crossing price over the top levels
// entries of each side, in display units. ok is false when either side
// holds fewer than levels entries or total size at those entries is zero;
// callers must treat that as "insufficient depth", not a price.
func (ob *Orderbook[K, V]) VWAP(levels int) (price float64, ok bool) {
	bids, asks := ob.snapshot()
	if levels <= 0 || len(bids) < levels || len(asks) < levels {
		return 0, false
	}

	var num, denom float64
	for i := 0; i < levels; i++ {
		bid, ask := bids[i], asks[i]
		denom += bid.Value.Size() + ask.Value.Size()
		num += ask.Value.Size()*bid.Key.Price() + bid.Value.Size()*ask.Key.Price()
	}
	if denom == 0 {
		return 0, false
	}
	return num / denom * ob.PriceMult, true
}
