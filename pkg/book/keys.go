package book

import (
	"github.com/shopspring/decimal"

	"github.com/luxfi/mdx/pkg/units"
)

// OrderID identifies one resting order: its price level plus the exchange
// sequence number that breaks ties within the level.
type OrderID struct {
	PriceInTicks        units.Ticks
	OrderSequenceNumber uint64
}

// Price implements HasPrice.
func (id OrderID) Price() float64 { return float64(id.PriceInTicks) }

// LessOrderID orders ids by price, then by sequence number (time
// priority within a level).
func LessOrderID(a, b OrderID) bool {
	if a.PriceInTicks != b.PriceInTicks {
		return a.PriceInTicks < b.PriceInTicks
	}
	return a.OrderSequenceNumber < b.OrderSequenceNumber
}

// LessTicks orders raw tick keys.
func LessTicks(a, b units.Ticks) bool { return a < b }

// Order is the resting-order aggregate stored against an OrderID.
type Order struct {
	BaseLots units.BaseLots
	Maker    string
}

// Size implements HasSize.
func (o Order) Size() float64 { return float64(o.BaseLots) }

// DecimalPrice keys a book directly by display price. External venue
// feeds quote decimal prices with no native tick grid.
type DecimalPrice struct {
	decimal.Decimal
}

// Price implements HasPrice.
func (d DecimalPrice) Price() float64 {
	f, _ := d.Float64()
	return f
}

// LessDecimalPrice orders decimal price keys.
func LessDecimalPrice(a, b DecimalPrice) bool { return a.Decimal.Cmp(b.Decimal) < 0 }

// FloatSize is a bare floating-point quantity for external venue feeds.
type FloatSize float64

// Size implements HasSize.
func (s FloatSize) Size() float64 { return float64(s) }

// RestingOrder is one order from a full-book snapshot, the form in which
// the remote program reports its current state.
type RestingOrder struct {
	Side  Side
	ID    OrderID
	Size  units.BaseLots
	Maker string
}
