package mirror

import (
	"testing"

	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/mdx/pkg/book"
	"github.com/luxfi/mdx/pkg/events"
	"github.com/luxfi/mdx/pkg/units"
)

func testLogger() log.Logger {
	level, _ := log.ToLevel("debug")
	return log.NewTestLogger(level)
}

func testMeta() units.MarketMetadata {
	return units.MarketMetadata{
		BaseDecimals:                    9,
		QuoteDecimals:                   6,
		BaseAtomsPerRawBaseUnit:         1_000_000_000,
		QuoteAtomsPerQuoteUnit:          1_000_000,
		QuoteAtomsPerQuoteLot:           10,
		BaseAtomsPerBaseLot:             10_000_000,
		TickSizeInQuoteAtomsPerBaseUnit: 1000,
		NumBaseLotsPerBaseUnit:          100,
		RawBaseUnitsPerBaseUnit:         1,
	}
}

func testMarket() events.Account {
	var m events.Account
	m[0] = 0x4d
	return m
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := NewClient(testMarket(), testMeta(), testLogger(), prometheus.NewRegistry())
	require.NoError(t, err)
	return client
}

func restingOrder(side book.Side, price units.Ticks, seq uint64, size units.BaseLots) book.RestingOrder {
	return book.RestingOrder{
		Side:  side,
		ID:    book.OrderID{PriceInTicks: price, OrderSequenceNumber: seq},
		Size:  size,
		Maker: "maker",
	}
}

func fixtureSnapshot() []book.RestingOrder {
	return []book.RestingOrder{
		restingOrder(book.Bid, 0x58bf, 2, 0x043f),
		restingOrder(book.Bid, 0x58b9, 4, 0x043f),
		restingOrder(book.Bid, 0x58a7, 6, 0x043f),
		restingOrder(book.Ask, 0x58c0, 1, 0x3036),
		restingOrder(book.Ask, 0x58c0, 3, 0x01e1ff),
		restingOrder(book.Ask, 0x58c0, 5, 0x02a261),
	}
}

func batchOf(seq uint64, details ...events.Details) events.Batch {
	h := events.Header{SequenceNumber: seq}
	b := events.Batch{Header: h}
	for i, d := range details {
		b.Events = append(b.Events, events.Event{
			SequenceNumber: seq,
			Index:          uint64(i),
			Details:        d,
		})
	}
	return b
}

func TestSeedPopulatesBook(t *testing.T) {
	client := newTestClient(t)
	client.Seed(fixtureSnapshot(), 100)

	assert.Equal(t, uint64(100), client.LastSequence())
	require.Len(t, client.Bids(), 3)
	require.Len(t, client.Asks(), 3)

	ladder := client.Ladder(0)
	require.Len(t, ladder.Bids, 3)
	require.Len(t, ladder.Asks, 1)
	assert.Equal(t, units.BaseLots(0x3036+0x01e1ff+0x02a261), ladder.Asks[0].SizeInBaseLots)
}

func TestReseedDropsEntriesAbsentFromSnapshot(t *testing.T) {
	client := newTestClient(t)
	client.Seed([]book.RestingOrder{
		restingOrder(book.Bid, 100, 2, 5),
		restingOrder(book.Ask, 105, 1, 5),
	}, 50)

	client.Seed([]book.RestingOrder{
		restingOrder(book.Bid, 99, 4, 5),
		restingOrder(book.Ask, 105, 1, 5),
	}, 60)

	bids := client.Bids()
	require.Len(t, bids, 1)
	assert.Equal(t, units.Ticks(99), bids[0].Key.PriceInTicks)
	require.Len(t, client.Asks(), 1)
	assert.Equal(t, uint64(60), client.LastSequence())
}

func TestSimulateAgainstSeededBook(t *testing.T) {
	client := newTestClient(t)
	client.Seed(fixtureSnapshot(), 100)

	got := client.SimulateMarketSell(book.Ask, 3000)
	assert.Equal(t, units.BaseLots(3000), got.BaseLotsFilled)
	assert.Equal(t, units.QuoteLots(68130654), got.QuoteLotsFilled)

	got = client.SimulateMarketSell(book.Bid, 68000000)
	assert.Equal(t, units.BaseLots(2992), got.BaseLotsFilled)
	assert.Equal(t, units.QuoteLots(67978240), got.QuoteLotsFilled)
}

func TestApplyBatchPlaceFillReduce(t *testing.T) {
	client := newTestClient(t)

	// Place a bid (even sequence number) and an ask (odd).
	require.NoError(t, client.ApplyBatch(batchOf(1,
		events.Place{OrderSequenceNumber: 20, PriceInTicks: 100, BaseLotsPlaced: 10},
		events.Place{OrderSequenceNumber: 21, PriceInTicks: 105, BaseLotsPlaced: 6},
	)))
	require.Len(t, client.Bids(), 1)
	require.Len(t, client.Asks(), 1)

	// Partial fill of the resting bid updates its remaining size.
	require.NoError(t, client.ApplyBatch(batchOf(2,
		events.Fill{
			OrderSequenceNumber: 20,
			PriceInTicks:        100,
			BaseLotsFilled:      4,
			BaseLotsRemaining:   6,
			SideFilled:          book.Bid,
		},
	)))
	bids := client.Bids()
	require.Len(t, bids, 1)
	assert.Equal(t, units.BaseLots(6), bids[0].Value.BaseLots)

	// A full fill deletes the entry.
	require.NoError(t, client.ApplyBatch(batchOf(3,
		events.Fill{
			OrderSequenceNumber: 20,
			PriceInTicks:        100,
			BaseLotsRemaining:   0,
			BaseLotsFilled:      6,
			SideFilled:          book.Bid,
			IsFullFill:          true,
		},
	)))
	assert.Empty(t, client.Bids())

	// Evicting the ask empties the other side.
	require.NoError(t, client.ApplyBatch(batchOf(4,
		events.Evict{OrderSequenceNumber: 21, PriceInTicks: 105, BaseLotsEvicted: 6},
	)))
	assert.Empty(t, client.Asks())

	assert.Equal(t, uint64(4), client.LastSequence())
}

func TestApplyBatchSkipsStale(t *testing.T) {
	client := newTestClient(t)
	require.NoError(t, client.ApplyBatch(batchOf(5,
		events.Place{OrderSequenceNumber: 20, PriceInTicks: 100, BaseLotsPlaced: 10},
	)))

	// Replaying an older batch must not disturb the book.
	require.NoError(t, client.ApplyBatch(batchOf(4,
		events.Place{OrderSequenceNumber: 22, PriceInTicks: 101, BaseLotsPlaced: 1},
	)))
	require.Len(t, client.Bids(), 1)
	assert.Equal(t, uint64(5), client.LastSequence())

	// Same sequence number is stale too.
	require.NoError(t, client.ApplyBatch(batchOf(5,
		events.Evict{OrderSequenceNumber: 20, PriceInTicks: 100, BaseLotsEvicted: 10},
	)))
	require.Len(t, client.Bids(), 1)
}

type recordingHandler struct {
	trades    []events.Event
	updates   []events.Event
	summaries []events.Event
}

func (h *recordingHandler) OnTrade(ev events.Event)       { h.trades = append(h.trades, ev) }
func (h *recordingHandler) OnBookUpdate(ev events.Event)  { h.updates = append(h.updates, ev) }
func (h *recordingHandler) OnFillSummary(ev events.Event) { h.summaries = append(h.summaries, ev) }

func TestHandlerDispatch(t *testing.T) {
	client := newTestClient(t)
	rec := &recordingHandler{}
	client.AddHandler(rec)

	require.NoError(t, client.ApplyBatch(batchOf(1,
		events.Place{OrderSequenceNumber: 20, PriceInTicks: 100, BaseLotsPlaced: 10},
		events.Fill{OrderSequenceNumber: 20, PriceInTicks: 100, BaseLotsFilled: 4, BaseLotsRemaining: 6, SideFilled: book.Bid},
		events.FillSummary{TotalBaseLotsFilled: 4},
		events.Fee{QuoteLotsFees: 1},
		events.TimeInForce{OrderSequenceNumber: 20},
	)))

	assert.Len(t, rec.trades, 1)
	assert.Len(t, rec.updates, 1)
	assert.Len(t, rec.summaries, 1)
}

func TestCrossingPlaceResolves(t *testing.T) {
	client := newTestClient(t)

	require.NoError(t, client.ApplyBatch(batchOf(1,
		events.Place{OrderSequenceNumber: 21, PriceInTicks: 105, BaseLotsPlaced: 6},
	)))
	// A bid placed above the resting ask removes the ask outright; the
	// residual, if any, arrives in a later event.
	require.NoError(t, client.ApplyBatch(batchOf(2,
		events.Place{OrderSequenceNumber: 22, PriceInTicks: 106, BaseLotsPlaced: 1},
	)))
	assert.Empty(t, client.Asks())
	require.Len(t, client.Bids(), 1)
}

func TestVWAPFromClient(t *testing.T) {
	client := newTestClient(t)
	client.Seed(fixtureSnapshot(), 1)

	price, ok := client.VWAP(1)
	require.True(t, ok)
	// Top entries: bid 22719 ticks x 1087 lots, ask 22720 ticks x 12342
	// lots, through the 0.001 tick multiplier.
	assert.InDelta(t, 22.7190809, price, 1e-6)

	_, ok = client.VWAP(4)
	assert.False(t, ok)
}

func TestFillQuoteAtoms(t *testing.T) {
	client := newTestClient(t)
	got := client.FillQuoteAtoms(events.Fill{BaseLotsFilled: 100, PriceInTicks: 10907})
	assert.Equal(t, units.QuoteAtoms(10_907_000), got)
}
