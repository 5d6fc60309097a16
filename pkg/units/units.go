// Package units defines the discrete exchange units of a market (ticks,
// lots, atoms) and the conversions between them and human-readable amounts.
//
// All book state is kept in native integer units; floating point only
// appears at the display boundary. The rounding direction of every
// conversion is part of its name because callers depend on it: budgets
// round down, obligations round up.
package units

// Ticks counts the smallest price increments of a market
// (quote ticks per base unit).
type Ticks uint64

// BaseLots counts the smallest tradable base-quantity increments.
type BaseLots uint64

// QuoteLots counts the smallest tradable quote-quantity increments.
type QuoteLots uint64

// BaseAtoms counts the smallest transferable units of the base asset.
type BaseAtoms uint64

// QuoteAtoms counts the smallest transferable units of the quote asset.
type QuoteAtoms uint64

// Price projects the tick count onto the float axis used by ordered book
// keys. It is a projection, not a display conversion.
func (t Ticks) Price() float64 { return float64(t) }

// Size projects the lot count onto the float axis used by book values.
func (l BaseLots) Size() float64 { return float64(l) }

// MarketMetadata carries the scaling constants of one market. The values
// feed display conversions only; book keys and sizes stay in native
// integer units.
type MarketMetadata struct {
	BaseMint  string
	QuoteMint string

	BaseDecimals  uint32
	QuoteDecimals uint32

	// 10^BaseDecimals.
	BaseAtomsPerRawBaseUnit uint64
	// 10^QuoteDecimals.
	QuoteAtomsPerQuoteUnit uint64

	QuoteAtomsPerQuoteLot uint64
	BaseAtomsPerBaseLot   uint64

	TickSizeInQuoteAtomsPerBaseUnit uint64
	NumBaseLotsPerBaseUnit          uint64

	// RawBaseUnitsPerBaseUnit adjusts markets whose trading base unit is a
	// multiple of whole tokens. It is 1 for almost every market; older
	// markets that never set it are normalized to 1 by NewConverter.
	RawBaseUnitsPerBaseUnit uint32
}
