package kline

import (
	"testing"
	"time"

	"github.com/findwinds/QuantCode/backtester/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestGetters(t *testing.T) {
	t.Parallel()
	k := New("RB0", time.Unix(1337, 0), decimal.NewFromInt(1), decimal.NewFromInt(4), decimal.NewFromInt(1), decimal.NewFromInt(3), decimal.NewFromInt(1337))
	assert.Equal(t, common.MarketData, k.Kind())
	assert.Equal(t, "1", k.GetOpenPrice().String())
	assert.Equal(t, "4", k.GetHighPrice().String())
	assert.Equal(t, "1", k.GetLowPrice().String())
	assert.Equal(t, "3", k.GetClosePrice().String())
	assert.Equal(t, "1337", k.GetVolume().String())
	assert.Equal(t, "RB0", k.GetSymbol())
}

func TestTradedAt(t *testing.T) {
	t.Parallel()
	k := New("RB0", time.Unix(1, 0), decimal.NewFromInt(3500), decimal.NewFromInt(3520), decimal.NewFromInt(3490), decimal.NewFromInt(3510), decimal.Zero)
	assert.True(t, k.TradedAtOrBelow(decimal.NewFromInt(3490)))
	assert.True(t, k.TradedAtOrBelow(decimal.NewFromInt(3600)), "buy limits above the high are reached")
	assert.False(t, k.TradedAtOrBelow(decimal.NewFromInt(3489)))

	assert.True(t, k.TradedAtOrAbove(decimal.NewFromInt(3520)))
	assert.True(t, k.TradedAtOrAbove(decimal.NewFromInt(3400)), "sell limits below the low are reached")
	assert.False(t, k.TradedAtOrAbove(decimal.NewFromInt(3521)))
}

func TestValidate(t *testing.T) {
	t.Parallel()
	var k *Kline
	assert.ErrorIs(t, k.Validate(), common.ErrNilEvent)

	tt := time.Unix(1, 0)
	d := decimal.NewFromInt
	assert.NoError(t, New("RB0", tt, d(2), d(3), d(1), d(2), d(0)).Validate())
	assert.ErrorIs(t, New("", tt, d(2), d(3), d(1), d(2), d(0)).Validate(), errMissingSymbol)
	assert.ErrorIs(t, New("RB0", time.Time{}, d(2), d(3), d(1), d(2), d(0)).Validate(), errMissingTimestamp)
	assert.ErrorIs(t, New("RB0", tt, d(2), d(1), d(3), d(2), d(0)).Validate(), errInvalidPriceRange)
	assert.ErrorIs(t, New("RB0", tt, d(2), d(3), d(1), d(4), d(0)).Validate(), errInvalidPriceRange)
	assert.ErrorIs(t, New("RB0", tt, d(2), d(3), d(1), d(2), d(-1)).Validate(), errNegativeValue)
}
