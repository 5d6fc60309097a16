package units

import (
	"errors"
	"math"
)

// ErrInvalidMetadata is returned when a market's scaling constants contain
// a zero divisor.
var ErrInvalidMetadata = errors.New("units: market metadata has zero scaling constant")

// Converter performs unit conversions for a single market.
type Converter struct {
	meta MarketMetadata
}

// NewConverter validates the metadata and builds a converter for it.
func NewConverter(meta MarketMetadata) (*Converter, error) {
	if meta.RawBaseUnitsPerBaseUnit == 0 {
		meta.RawBaseUnitsPerBaseUnit = 1
	}
	if meta.BaseAtomsPerBaseLot == 0 ||
		meta.QuoteAtomsPerQuoteLot == 0 ||
		meta.BaseAtomsPerRawBaseUnit == 0 ||
		meta.QuoteAtomsPerQuoteUnit == 0 ||
		meta.NumBaseLotsPerBaseUnit == 0 ||
		meta.TickSizeInQuoteAtomsPerBaseUnit == 0 {
		return nil, ErrInvalidMetadata
	}
	return &Converter{meta: meta}, nil
}

// Metadata returns the market constants the converter was built from.
func (c *Converter) Metadata() MarketMetadata { return c.meta }

// RawBaseUnitsToBaseLotsRoundedDown converts whole base tokens to base
// lots, rounding down.
func (c *Converter) RawBaseUnitsToBaseLotsRoundedDown(rawBaseUnits float64) BaseLots {
	baseUnits := rawBaseUnits / float64(c.meta.RawBaseUnitsPerBaseUnit)
	return BaseLots(math.Floor(baseUnits * float64(c.meta.NumBaseLotsPerBaseUnit)))
}

// RawBaseUnitsToBaseLotsRoundedUp converts whole base tokens to base lots,
// rounding up.
func (c *Converter) RawBaseUnitsToBaseLotsRoundedUp(rawBaseUnits float64) BaseLots {
	baseUnits := rawBaseUnits / float64(c.meta.RawBaseUnitsPerBaseUnit)
	return BaseLots(math.Ceil(baseUnits * float64(c.meta.NumBaseLotsPerBaseUnit)))
}

// BaseAtomsToBaseLotsRoundedDown converts base atoms to base lots,
// discarding any partial lot.
func (c *Converter) BaseAtomsToBaseLotsRoundedDown(atoms BaseAtoms) BaseLots {
	return BaseLots(uint64(atoms) / c.meta.BaseAtomsPerBaseLot)
}

// BaseAtomsToBaseLotsRoundedUp converts base atoms to base lots, counting
// any partial lot as a full one.
func (c *Converter) BaseAtomsToBaseLotsRoundedUp(atoms BaseAtoms) BaseLots {
	if atoms == 0 {
		return 0
	}
	return BaseLots((uint64(atoms)-1)/c.meta.BaseAtomsPerBaseLot + 1)
}

// BaseLotsToBaseAtoms converts base lots to base atoms.
func (c *Converter) BaseLotsToBaseAtoms(lots BaseLots) BaseAtoms {
	return BaseAtoms(uint64(lots) * c.meta.BaseAtomsPerBaseLot)
}

// QuoteUnitsToQuoteLots converts whole quote tokens to quote lots,
// truncating toward zero.
func (c *Converter) QuoteUnitsToQuoteLots(quoteUnits float64) QuoteLots {
	return QuoteLots(quoteUnits * float64(c.meta.QuoteAtomsPerQuoteUnit) /
		float64(c.meta.QuoteAtomsPerQuoteLot))
}

// QuoteAtomsToQuoteLotsRoundedDown converts quote atoms to quote lots,
// discarding any partial lot.
func (c *Converter) QuoteAtomsToQuoteLotsRoundedDown(atoms QuoteAtoms) QuoteLots {
	return QuoteLots(uint64(atoms) / c.meta.QuoteAtomsPerQuoteLot)
}

// QuoteAtomsToQuoteLotsRoundedUp converts quote atoms to quote lots,
// counting any partial lot as a full one.
func (c *Converter) QuoteAtomsToQuoteLotsRoundedUp(atoms QuoteAtoms) QuoteLots {
	if atoms == 0 {
		return 0
	}
	return QuoteLots((uint64(atoms)-1)/c.meta.QuoteAtomsPerQuoteLot + 1)
}

// QuoteLotsToQuoteAtoms converts quote lots to quote atoms.
func (c *Converter) QuoteLotsToQuoteAtoms(lots QuoteLots) QuoteAtoms {
	return QuoteAtoms(uint64(lots) * c.meta.QuoteAtomsPerQuoteLot)
}

// BaseAtomsToRawBaseUnits converts base atoms to a floating point number
// of whole base tokens, for display.
func (c *Converter) BaseAtomsToRawBaseUnits(atoms BaseAtoms) float64 {
	return float64(atoms) / float64(c.meta.BaseAtomsPerRawBaseUnit)
}

// QuoteAtomsToQuoteUnits converts quote atoms to a floating point number
// of whole quote tokens, for display.
func (c *Converter) QuoteAtomsToQuoteUnits(atoms QuoteAtoms) float64 {
	return float64(atoms) / float64(c.meta.QuoteAtomsPerQuoteUnit)
}

// FloatPriceToTicksRoundedDown converts a display price to ticks,
// rounding down.
func (c *Converter) FloatPriceToTicksRoundedDown(price float64) Ticks {
	return Ticks((price *
		float64(c.meta.RawBaseUnitsPerBaseUnit) *
		float64(c.meta.QuoteAtomsPerQuoteUnit)) /
		float64(c.meta.TickSizeInQuoteAtomsPerBaseUnit))
}

// FloatPriceToTicksRoundedUp converts a display price to ticks,
// rounding up.
func (c *Converter) FloatPriceToTicksRoundedUp(price float64) Ticks {
	return Ticks(math.Ceil((price *
		float64(c.meta.RawBaseUnitsPerBaseUnit) *
		float64(c.meta.QuoteAtomsPerQuoteUnit)) /
		float64(c.meta.TickSizeInQuoteAtomsPerBaseUnit)))
}

// TicksToFloatPrice converts ticks to a display price.
func (c *Converter) TicksToFloatPrice(ticks Ticks) float64 {
	return float64(ticks) * c.TicksToFloatPriceMultiplier()
}

// OrderToQuoteAtoms converts one (size, price) pair to the quote atoms it
// is worth. The arithmetic stays in the integer domain.
func (c *Converter) OrderToQuoteAtoms(lots BaseLots, price Ticks) QuoteAtoms {
	return QuoteAtoms(uint64(lots) * uint64(price) *
		c.meta.TickSizeInQuoteAtomsPerBaseUnit / c.meta.NumBaseLotsPerBaseUnit)
}

// BaseLotsToRawBaseUnitsMultiplier returns the factor that converts a
// base-lot size to whole base tokens for display.
func (c *Converter) BaseLotsToRawBaseUnitsMultiplier() float64 {
	return float64(c.meta.BaseAtomsPerBaseLot) / float64(c.meta.BaseAtomsPerRawBaseUnit)
}

// TicksToFloatPriceMultiplier returns the factor that converts a tick
// price to a display price.
func (c *Converter) TicksToFloatPriceMultiplier() float64 {
	return float64(c.meta.TickSizeInQuoteAtomsPerBaseUnit) /
		(float64(c.meta.QuoteAtomsPerQuoteUnit) * float64(c.meta.RawBaseUnitsPerBaseUnit))
}
