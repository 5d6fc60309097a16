package book

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/mdx/pkg/units"
)

func resting(side Side, price units.Ticks, seq uint64, size units.BaseLots) RestingOrder {
	return RestingOrder{
		Side:  side,
		ID:    OrderID{PriceInTicks: price, OrderSequenceNumber: seq},
		Size:  size,
		Maker: "maker",
	}
}

func TestBuildLadderGroupsAndOrders(t *testing.T) {
	ladder := BuildLadder([]RestingOrder{
		resting(Bid, 100, 2, 5),
		resting(Bid, 102, 4, 3),
		resting(Bid, 100, 6, 2),
		resting(Ask, 105, 1, 4),
		resting(Ask, 105, 3, 1),
		resting(Ask, 103, 5, 7),
		resting(Ask, 104, 7, 0), // zero sizes never materialize
	})

	require.Len(t, ladder.Bids, 2)
	assert.Equal(t, Level{PriceInTicks: 102, SizeInBaseLots: 3}, ladder.Bids[0])
	assert.Equal(t, Level{PriceInTicks: 100, SizeInBaseLots: 7}, ladder.Bids[1])

	require.Len(t, ladder.Asks, 2)
	assert.Equal(t, Level{PriceInTicks: 103, SizeInBaseLots: 7}, ladder.Asks[0])
	assert.Equal(t, Level{PriceInTicks: 105, SizeInBaseLots: 5}, ladder.Asks[1])
}

func TestBuildLadderEmpty(t *testing.T) {
	ladder := BuildLadder(nil)
	assert.Empty(t, ladder.Bids)
	assert.Empty(t, ladder.Asks)
}

func TestOrderbookLadderCollapsesLevels(t *testing.T) {
	ob := New[OrderID, Order](LessOrderID, 1, 1)
	ob.UpdateOrders(Bid, []Entry[OrderID, Order]{
		{Key: OrderID{PriceInTicks: 100, OrderSequenceNumber: 2}, Value: Order{BaseLots: 5}},
		{Key: OrderID{PriceInTicks: 100, OrderSequenceNumber: 4}, Value: Order{BaseLots: 2}},
		{Key: OrderID{PriceInTicks: 99, OrderSequenceNumber: 6}, Value: Order{BaseLots: 1}},
	})
	ob.UpdateOrders(Ask, []Entry[OrderID, Order]{
		{Key: OrderID{PriceInTicks: 105, OrderSequenceNumber: 1}, Value: Order{BaseLots: 4}},
		{Key: OrderID{PriceInTicks: 105, OrderSequenceNumber: 3}, Value: Order{BaseLots: 6}},
	})

	ladder := ob.Ladder(0)
	require.Len(t, ladder.Bids, 2)
	assert.Equal(t, Level{PriceInTicks: 100, SizeInBaseLots: 7}, ladder.Bids[0])
	assert.Equal(t, Level{PriceInTicks: 99, SizeInBaseLots: 1}, ladder.Bids[1])
	require.Len(t, ladder.Asks, 1)
	assert.Equal(t, Level{PriceInTicks: 105, SizeInBaseLots: 10}, ladder.Asks[0])

	top := ob.Ladder(1)
	require.Len(t, top.Bids, 1)
	assert.Equal(t, Level{PriceInTicks: 100, SizeInBaseLots: 7}, top.Bids[0])
	require.Len(t, top.Asks, 1)
}
