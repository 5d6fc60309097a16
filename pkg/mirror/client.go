// Package mirror maintains a local, queryable copy of one market's order
// book, fed by the remote ledger's event stream. A single writer applies
// decoded batches in ledger sequence order; any number of readers take
// ladder snapshots, simulate marketable orders, or compute fair prices
// concurrently.
package mirror

import (
	"errors"
	"sync"

	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/luxfi/mdx/pkg/book"
	"github.com/luxfi/mdx/pkg/events"
	"github.com/luxfi/mdx/pkg/units"
)

// ErrCrossedBook reports that applying a batch left the mirror crossed.
// The mirror is corrupt at that point and must be reseeded from a
// snapshot; continuing would feed wrong prices to every reader.
var ErrCrossedBook = errors.New("mirror: book crossed after update")

// Client is the order-book mirror for one market.
type Client struct {
	logger  log.Logger
	market  events.Account
	conv    *units.Converter
	decoder *events.Decoder
	metrics *Metrics

	book *book.Orderbook[book.OrderID, book.Order]

	mu       sync.Mutex
	lastSeq  uint64
	handlers []Handler
}

// NewClient builds an empty mirror for the given market. Pass a private
// prometheus registry, or nil to skip metric registration.
func NewClient(market events.Account, meta units.MarketMetadata, logger log.Logger, reg prometheus.Registerer) (*Client, error) {
	conv, err := units.NewConverter(meta)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Root().New("module", "mirror")
	}
	ob := book.New[book.OrderID, book.Order](
		book.LessOrderID,
		conv.BaseLotsToRawBaseUnitsMultiplier(),
		conv.TicksToFloatPriceMultiplier(),
	)
	return &Client{
		logger:  logger,
		market:  market,
		conv:    conv,
		decoder: events.NewDecoder(logger),
		metrics: NewMetrics(reg),
		book:    ob,
	}, nil
}

func (c *Client) Market() events.Account { return c.market }

func (c *Client) Converter() *units.Converter { return c.conv }

func (c *Client) Metadata() units.MarketMetadata { return c.conv.Metadata() }

// AddHandler registers a handler for subsequently applied events.
func (c *Client) AddHandler(h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, h)
}

// LastSequence returns the highest ledger sequence number applied so far.
func (c *Client) LastSequence() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSeq
}

// Seed replaces the mirror's contents with a full snapshot of resting
// orders. Incremental batches older than the snapshot are dropped by the
// sequence check in ApplyBatch, so callers should seed before polling.
func (c *Client) Seed(orders []book.RestingOrder, asOfSequence uint64) {
	bids := make([]book.Entry[book.OrderID, book.Order], 0, len(orders))
	asks := make([]book.Entry[book.OrderID, book.Order], 0, len(orders))
	for _, o := range orders {
		e := book.Entry[book.OrderID, book.Order]{
			Key:   o.ID,
			Value: book.Order{BaseLots: o.Size, Maker: o.Maker},
		}
		if o.Side == book.Bid {
			bids = append(bids, e)
		} else {
			asks = append(asks, e)
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.book.Clear()
	c.book.UpdateOrders(book.Bid, bids)
	c.book.UpdateOrders(book.Ask, asks)
	c.lastSeq = asOfSequence
	c.observeDepth()
	c.logger.Info("mirror seeded",
		"market", c.market.String(),
		"bids", len(bids),
		"asks", len(asks),
		"seq", asOfSequence,
	)
}

// DecodeTransaction translates the raw records of one transaction into
// event batches. Pure translation; nothing is applied to the book.
func (c *Client) DecodeTransaction(sig events.Signature, records [][]byte) []events.Batch {
	return c.decoder.Decode(sig, records)
}

// ApplyBatch applies one decoded batch to the book and dispatches its
// events to the registered handlers. Batches at or below the last applied
// sequence number are skipped. Returns ErrCrossedBook when the book is
// crossed afterwards.
func (c *Client) ApplyBatch(b events.Batch) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lastSeq != 0 && b.Header.SequenceNumber <= c.lastSeq {
		c.metrics.StaleBatches.Inc()
		c.logger.Debug("skipping stale batch",
			"seq", b.Header.SequenceNumber,
			"lastSeq", c.lastSeq,
		)
		return nil
	}

	for _, ev := range b.Events {
		c.applyEvent(ev)
	}
	c.lastSeq = b.Header.SequenceNumber
	c.metrics.BatchesApplied.Inc()
	c.metrics.LastSequence.Set(float64(b.Header.SequenceNumber))
	c.observeDepth()

	if c.book.Crossed() {
		return ErrCrossedBook
	}
	return nil
}

func (c *Client) applyEvent(ev events.Event) {
	switch d := ev.Details.(type) {
	case events.Fill:
		c.upsert(d.SideFilled, d.PriceInTicks, d.OrderSequenceNumber, d.BaseLotsRemaining, d.Maker)
		c.dispatch(func(h Handler) { h.OnTrade(ev) })
	case events.Place:
		side := events.SideFromOrderSequenceNumber(d.OrderSequenceNumber)
		c.upsert(side, d.PriceInTicks, d.OrderSequenceNumber, d.BaseLotsPlaced, d.Maker)
		c.dispatch(func(h Handler) { h.OnBookUpdate(ev) })
	case events.Reduce:
		side := events.SideFromOrderSequenceNumber(d.OrderSequenceNumber)
		c.upsert(side, d.PriceInTicks, d.OrderSequenceNumber, d.BaseLotsRemaining, d.Maker)
		c.dispatch(func(h Handler) { h.OnBookUpdate(ev) })
	case events.Evict:
		side := events.SideFromOrderSequenceNumber(d.OrderSequenceNumber)
		c.upsert(side, d.PriceInTicks, d.OrderSequenceNumber, 0, d.Maker)
		c.dispatch(func(h Handler) { h.OnBookUpdate(ev) })
	case events.FillSummary:
		c.dispatch(func(h Handler) { h.OnFillSummary(ev) })
	default:
		// Fee and time-in-force events do not change the book shape.
	}
	c.metrics.EventsApplied.WithLabelValues(ev.Details.Kind().String()).Inc()
}

func (c *Client) upsert(side book.Side, price units.Ticks, seq uint64, lots units.BaseLots, maker events.Account) {
	c.book.UpdateOrders(side, []book.Entry[book.OrderID, book.Order]{{
		Key:   book.OrderID{PriceInTicks: price, OrderSequenceNumber: seq},
		Value: book.Order{BaseLots: lots, Maker: maker.String()},
	}})
}

func (c *Client) dispatch(fn func(Handler)) {
	for _, h := range c.handlers {
		fn(h)
	}
}

func (c *Client) observeDepth() {
	c.metrics.BookDepth.WithLabelValues(book.Bid.String()).Set(float64(c.book.Depth(book.Bid)))
	c.metrics.BookDepth.WithLabelValues(book.Ask.String()).Set(float64(c.book.Depth(book.Ask)))
}

// Ladder returns a price-level aggregated snapshot of the book, best
// levels first. levels <= 0 returns every level.
func (c *Client) Ladder(levels int) book.Ladder {
	return c.book.Ladder(levels)
}

// VWAP computes the volume-weighted crossing price over the top levels of
// both sides, in human units. ok is false when either side is shallower
// than levels.
func (c *Client) VWAP(levels int) (price float64, ok bool) {
	return c.book.VWAP(levels)
}

// SimulateMarketSell walks the current ladder with a marketable order.
// Side Bid consumes asks with a quote-lot budget; side Ask consumes bids
// with a base-lot budget.
func (c *Client) SimulateMarketSell(side book.Side, sizeInLots uint64) book.SimulationSummary {
	return c.Ladder(0).SimulateMarketSell(side, sizeInLots)
}

// Bids returns the resting bid orders, best price first.
func (c *Client) Bids() []book.Entry[book.OrderID, book.Order] { return c.book.Bids() }

// Asks returns the resting ask orders, best price first.
func (c *Client) Asks() []book.Entry[book.OrderID, book.Order] { return c.book.Asks() }

// FillQuoteAtoms converts a fill to the quote atoms it moved.
func (c *Client) FillQuoteAtoms(f events.Fill) units.QuoteAtoms {
	return c.conv.OrderToQuoteAtoms(f.BaseLotsFilled, f.PriceInTicks)
}
