package units

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// solUSDC mirrors a mainnet SOL/USDC market configuration.
func solUSDC() MarketMetadata {
	return MarketMetadata{
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

func TestNewConverterValidation(t *testing.T) {
	_, err := NewConverter(solUSDC())
	require.NoError(t, err)

	bad := solUSDC()
	bad.BaseAtomsPerBaseLot = 0
	_, err = NewConverter(bad)
	require.ErrorIs(t, err, ErrInvalidMetadata)

	// A zero raw-base-unit ratio is normalized to 1, not rejected.
	meta := solUSDC()
	meta.RawBaseUnitsPerBaseUnit = 0
	conv, err := NewConverter(meta)
	require.NoError(t, err)
	assert.EqualValues(t, 1, conv.Metadata().RawBaseUnitsPerBaseUnit)
}

func TestBaseConversions(t *testing.T) {
	conv, err := NewConverter(solUSDC())
	require.NoError(t, err)

	assert.Equal(t, BaseLots(100), conv.RawBaseUnitsToBaseLotsRoundedDown(1.0001))
	assert.Equal(t, BaseLots(101), conv.RawBaseUnitsToBaseLotsRoundedUp(1.0001))
	assert.Equal(t, BaseLots(100), conv.RawBaseUnitsToBaseLotsRoundedDown(1.0))
	assert.Equal(t, BaseLots(100), conv.RawBaseUnitsToBaseLotsRoundedUp(1.0))

	assert.Equal(t, BaseLots(1), conv.BaseAtomsToBaseLotsRoundedDown(10_000_000))
	assert.Equal(t, BaseLots(1), conv.BaseAtomsToBaseLotsRoundedDown(19_999_999))
	assert.Equal(t, BaseLots(2), conv.BaseAtomsToBaseLotsRoundedUp(10_000_001))
	assert.Equal(t, BaseLots(1), conv.BaseAtomsToBaseLotsRoundedUp(10_000_000))
	assert.Equal(t, BaseLots(0), conv.BaseAtomsToBaseLotsRoundedUp(0))

	assert.Equal(t, BaseAtoms(50_000_000), conv.BaseLotsToBaseAtoms(5))
	assert.InDelta(t, 1.5, conv.BaseAtomsToRawBaseUnits(1_500_000_000), 1e-12)
}

func TestQuoteConversions(t *testing.T) {
	conv, err := NewConverter(solUSDC())
	require.NoError(t, err)

	assert.Equal(t, QuoteLots(150_000), conv.QuoteUnitsToQuoteLots(1.5))
	assert.Equal(t, QuoteLots(3), conv.QuoteAtomsToQuoteLotsRoundedDown(39))
	assert.Equal(t, QuoteLots(4), conv.QuoteAtomsToQuoteLotsRoundedUp(31))
	assert.Equal(t, QuoteLots(3), conv.QuoteAtomsToQuoteLotsRoundedUp(30))
	assert.Equal(t, QuoteLots(0), conv.QuoteAtomsToQuoteLotsRoundedUp(0))
	assert.Equal(t, QuoteAtoms(70), conv.QuoteLotsToQuoteAtoms(7))
	assert.InDelta(t, 2.5, conv.QuoteAtomsToQuoteUnits(2_500_000), 1e-12)
}

func TestPriceConversions(t *testing.T) {
	conv, err := NewConverter(solUSDC())
	require.NoError(t, err)

	assert.Equal(t, Ticks(10907), conv.FloatPriceToTicksRoundedDown(10.9071234))
	assert.Equal(t, Ticks(10908), conv.FloatPriceToTicksRoundedUp(10.9071234))
	assert.InDelta(t, 10.907, conv.TicksToFloatPrice(10907), 1e-9)

	assert.InDelta(t, 0.01, conv.BaseLotsToRawBaseUnitsMultiplier(), 1e-12)
	assert.InDelta(t, 0.001, conv.TicksToFloatPriceMultiplier(), 1e-12)
}

func TestOrderToQuoteAtoms(t *testing.T) {
	conv, err := NewConverter(solUSDC())
	require.NoError(t, err)

	// 1 base unit (100 lots) at 10.907 quote per base unit.
	got := conv.OrderToQuoteAtoms(100, 10907)
	assert.Equal(t, QuoteAtoms(10_907_000), got)
	assert.InDelta(t, 10.907, conv.QuoteAtomsToQuoteUnits(got), 1e-9)

	assert.Equal(t, QuoteAtoms(0), conv.OrderToQuoteAtoms(0, 10907))
}

func TestDecimalString(t *testing.T) {
	assert.Equal(t, "1.5", DecimalString(1_500_000, 6))
	assert.Equal(t, "1.0", DecimalString(1_000_000, 6))
	assert.Equal(t, "0.123456", DecimalString(123456, 6))
	assert.Equal(t, "10.5", DecimalString(1050, 2))
	assert.Equal(t, "42.0", DecimalString(42, 0))
	assert.Equal(t, "0.0", DecimalString(0, 6))
}

func TestTicksToDecimalPrice(t *testing.T) {
	conv, err := NewConverter(solUSDC())
	require.NoError(t, err)

	assert.Equal(t, "10.907", conv.TicksToDecimalPrice(10907).String())
	assert.Equal(t, "0", conv.TicksToDecimalPrice(0).String())
}
