// Package events defines the domain model for exchange market events and
// the codec that decodes raw transaction-log records into it.
//
// The remote ledger emits, per transaction, a sequence of length-prefixed
// binary records: a fixed header followed by tagged sub-records. Large
// batches are split across several records that repeat the header; the
// decoder stitches them back into one logical batch before translation.
package events

import (
	"encoding/hex"

	"github.com/luxfi/mdx/pkg/book"
	"github.com/luxfi/mdx/pkg/units"
)

// Account is a 32-byte participant, market, or program identity.
type Account [32]byte

func (a Account) String() string { return hex.EncodeToString(a[:]) }

// IsZero reports whether the account is the zero identity.
func (a Account) IsZero() bool { return a == Account{} }

// Signature is the 64-byte signature of the transaction a batch came from.
type Signature [64]byte

func (s Signature) String() string { return hex.EncodeToString(s[:]) }

// ClientOrderID is the caller-assigned 128-bit order tag.
type ClientOrderID [16]byte

func (c ClientOrderID) String() string { return hex.EncodeToString(c[:]) }

// Kind discriminates the event variants.
type Kind uint8

const (
	KindFill Kind = iota + 1
	KindPlace
	KindReduce
	KindEvict
	KindFillSummary
	KindFee
	KindTimeInForce
)

func (k Kind) String() string {
	switch k {
	case KindFill:
		return "fill"
	case KindPlace:
		return "place"
	case KindReduce:
		return "reduce"
	case KindEvict:
		return "evict"
	case KindFillSummary:
		return "fill_summary"
	case KindFee:
		return "fee"
	case KindTimeInForce:
		return "time_in_force"
	default:
		return "unknown"
	}
}

// Details is the per-kind payload of an Event. It is a closed set:
// only the variant types in this package implement it.
type Details interface {
	Kind() Kind
}

// Fill reports lots consumed from a resting order by an aggressor.
type Fill struct {
	OrderSequenceNumber uint64
	Maker               Account
	Taker               Account
	PriceInTicks        units.Ticks
	BaseLotsFilled      units.BaseLots
	BaseLotsRemaining   units.BaseLots
	// SideFilled is the side the consumed order rested on, recovered
	// from the sequence-number tagging scheme.
	SideFilled book.Side
	IsFullFill bool
}

func (Fill) Kind() Kind { return KindFill }

// Place reports a new order resting on the book.
type Place struct {
	OrderSequenceNumber uint64
	ClientOrderID       ClientOrderID
	Maker               Account
	PriceInTicks        units.Ticks
	BaseLotsPlaced      units.BaseLots
	// Expiry is zero-valued for orders that never expire.
	Expiry Expiry
}

func (Place) Kind() Kind { return KindPlace }

// Expiry bounds an order's validity. A zero value means "unset".
type Expiry struct {
	LastValidSlot          uint64
	LastValidUnixTimestamp uint64
}

// IsSet reports whether either bound is present.
func (e Expiry) IsSet() bool { return e != Expiry{} }

// Reduce reports lots voluntarily removed from a resting order (a cancel
// or size reduction), or an order expiring off the book.
type Reduce struct {
	OrderSequenceNumber uint64
	Maker               Account
	PriceInTicks        units.Ticks
	BaseLotsRemoved     units.BaseLots
	BaseLotsRemaining   units.BaseLots
	IsFullCancel        bool
	// IsExpired marks reductions synthesized from expired-order records.
	IsExpired bool
}

func (Reduce) Kind() Kind { return KindReduce }

// Evict reports lots forcibly removed from the book by the program.
type Evict struct {
	OrderSequenceNumber uint64
	Maker               Account
	PriceInTicks        units.Ticks
	BaseLotsEvicted     units.BaseLots
}

func (Evict) Kind() Kind { return KindEvict }

// FillSummary totals the fills of one taker order. TradeDirection is not
// on the wire; the decoder annotates it from the batch's first fill:
// +1 aggressive buy, -1 aggressive sell, 0 when nothing matched.
type FillSummary struct {
	ClientOrderID                ClientOrderID
	TotalBaseLotsFilled          units.BaseLots
	TotalQuoteLotsFilledInclFees units.QuoteLots
	TotalQuoteLotsFees           units.QuoteLots
	TradeDirection               int8
}

func (FillSummary) Kind() Kind { return KindFillSummary }

// Fee reports quote lots collected by the protocol.
type Fee struct {
	QuoteLotsFees units.QuoteLots
}

func (Fee) Kind() Kind { return KindFee }

// TimeInForce updates the expiry bounds of a resting order.
type TimeInForce struct {
	OrderSequenceNumber    uint64
	LastValidSlot          uint64
	LastValidUnixTimestamp uint64
}

func (TimeInForce) Kind() Kind { return KindTimeInForce }

// Header identifies one raw record. Records with identical headers carry
// chunks of the same logical batch.
type Header struct {
	Signature      Signature
	Instruction    uint8
	SequenceNumber uint64
	Timestamp      int64
	Slot           uint64
	Market         Account
	Signer         Account
}

// Event is one decoded market event with its batch header denormalized in.
type Event struct {
	Market         Account
	SequenceNumber uint64
	Slot           uint64
	Timestamp      int64
	Signature      Signature
	Signer         Account
	// Index is the event's position within its logical batch.
	Index   uint64
	Details Details
}

// Batch is one logical group of events sharing a header, in sub-record
// order.
type Batch struct {
	Header Header
	Events []Event
	// TradeDirection annotates the batch from its first fill: +1
	// aggressive buy, -1 aggressive sell, 0 when the batch holds no fill.
	TradeDirection int8
}

// SideFromOrderSequenceNumber recovers the side an order originally
// rested on from the sequence-number tagging scheme: even sequence
// numbers are bids, odd are asks.
func SideFromOrderSequenceNumber(n uint64) book.Side {
	if n%2 == 0 {
		return book.Bid
	}
	return book.Ask
}
