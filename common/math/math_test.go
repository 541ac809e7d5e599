package math

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecimalPercentageChange(t *testing.T) {
	t.Parallel()
	_, err := DecimalPercentageChange(decimal.Zero, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrZeroValue)

	v, err := DecimalPercentageChange(decimal.NewFromInt(100), decimal.NewFromInt(110))
	require.NoError(t, err)
	assert.Equal(t, "0.1", v.String())
}

func TestDecimalArithmeticMean(t *testing.T) {
	t.Parallel()
	_, err := DecimalArithmeticMean(nil)
	assert.ErrorIs(t, err, ErrNoValues)

	v, err := DecimalArithmeticMean([]decimal.Decimal{decimal.NewFromInt(1), decimal.NewFromInt(2), decimal.NewFromInt(6)})
	require.NoError(t, err)
	assert.Equal(t, "3", v.String())
}

func TestDecimalSampleStandardDeviation(t *testing.T) {
	t.Parallel()
	_, err := DecimalSampleStandardDeviation([]decimal.Decimal{decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrNoValues)

	values := []decimal.Decimal{
		decimal.NewFromInt(2), decimal.NewFromInt(4), decimal.NewFromInt(4), decimal.NewFromInt(4),
		decimal.NewFromInt(5), decimal.NewFromInt(5), decimal.NewFromInt(7), decimal.NewFromInt(9),
	}
	v, err := DecimalSampleStandardDeviation(values)
	require.NoError(t, err)
	assert.InDelta(t, 2.138, v.InexactFloat64(), 0.001)
}

func TestDecimalSharpeRatio(t *testing.T) {
	t.Parallel()
	_, err := DecimalSharpeRatio([]decimal.Decimal{decimal.NewFromInt(1)}, decimal.Zero)
	assert.ErrorIs(t, err, ErrNoValues)

	flat := []decimal.Decimal{decimal.NewFromFloat(0.01), decimal.NewFromFloat(0.01)}
	_, err = DecimalSharpeRatio(flat, decimal.Zero)
	assert.ErrorIs(t, err, ErrZeroValue)

	returns := []decimal.Decimal{decimal.NewFromFloat(0.01), decimal.NewFromFloat(0.03)}
	v, err := DecimalSharpeRatio(returns, decimal.Zero)
	require.NoError(t, err)
	// mean 0.02, sample deviation 0.0141421
	assert.InDelta(t, 1.41421, v.InexactFloat64(), 0.0001)
}

func TestDecimalSortinoRatio(t *testing.T) {
	t.Parallel()
	_, err := DecimalSortinoRatio(nil, decimal.Zero)
	assert.ErrorIs(t, err, ErrNoValues)

	_, err = DecimalSortinoRatio([]decimal.Decimal{decimal.NewFromFloat(0.01)}, decimal.Zero)
	assert.ErrorIs(t, err, ErrZeroValue)

	returns := []decimal.Decimal{decimal.NewFromFloat(0.02), decimal.NewFromFloat(-0.02)}
	v, err := DecimalSortinoRatio(returns, decimal.Zero)
	require.NoError(t, err)
	assert.True(t, v.IsZero())
}

func TestDecimalCompoundAnnualGrowthRate(t *testing.T) {
	t.Parallel()
	_, err := DecimalCompoundAnnualGrowthRate(decimal.Zero, decimal.NewFromInt(1), decimal.NewFromInt(1), decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrZeroValue)

	v, err := DecimalCompoundAnnualGrowthRate(decimal.NewFromInt(100), decimal.NewFromInt(121), decimal.NewFromInt(1), decimal.NewFromInt(2))
	require.NoError(t, err)
	assert.InDelta(t, 0.1, v.InexactFloat64(), 0.000001)
}
