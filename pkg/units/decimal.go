package units

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// DecimalString renders a scaled integer amount as "whole.frac" with
// trailing zeros trimmed but at least one fractional digit kept, so that
// 1_500_000 atoms at 6 decimals prints "1.5" and 1_000_000 prints "1.0".
func DecimalString(amount uint64, decimals uint32) string {
	d := decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -int32(decimals))
	s := d.StringFixed(int32(decimals))
	if decimals == 0 {
		return s + ".0"
	}
	whole, frac, _ := strings.Cut(s, ".")
	frac = strings.TrimRight(frac, "0")
	if frac == "" {
		frac = "0"
	}
	return whole + "." + frac
}

// TicksToDecimalPrice converts ticks to an exact decimal display price.
func (c *Converter) TicksToDecimalPrice(ticks Ticks) decimal.Decimal {
	num := new(big.Int).Mul(
		new(big.Int).SetUint64(uint64(ticks)),
		new(big.Int).SetUint64(c.meta.TickSizeInQuoteAtomsPerBaseUnit),
	)
	denom := new(big.Int).Mul(
		new(big.Int).SetUint64(c.meta.QuoteAtomsPerQuoteUnit),
		new(big.Int).SetUint64(uint64(c.meta.RawBaseUnitsPerBaseUnit)),
	)
	return decimal.NewFromBigInt(num, 0).Div(decimal.NewFromBigInt(denom, 0))
}
