package kline

import (
	"fmt"
	"time"

	"github.com/findwinds/QuantCode/backtester/common"
	"github.com/findwinds/QuantCode/backtester/eventtypes/event"
	"github.com/shopspring/decimal"
)

// New creates a bar for a symbol
func New(symbol string, t time.Time, open, high, low, closePrice, volume decimal.Decimal) *Kline {
	return &Kline{
		Base:   event.NewBase(symbol, t, 0),
		Open:   open,
		High:   high,
		Low:    low,
		Close:  closePrice,
		Volume: volume,
	}
}

// Kind returns MARKET_DATA
func (k *Kline) Kind() common.EventKind {
	return common.MarketData
}

// GetClosePrice returns the closing price of a kline
func (k *Kline) GetClosePrice() decimal.Decimal {
	return k.Close
}

// GetHighPrice returns the high price of a kline
func (k *Kline) GetHighPrice() decimal.Decimal {
	return k.High
}

// GetLowPrice returns the low price of a kline
func (k *Kline) GetLowPrice() decimal.Decimal {
	return k.Low
}

// GetOpenPrice returns the open price of a kline
func (k *Kline) GetOpenPrice() decimal.Decimal {
	return k.Open
}

// GetVolume returns the volume of a kline
func (k *Kline) GetVolume() decimal.Decimal {
	return k.Volume
}

// TradedAtOrBelow returns whether the bar traded at the price or lower
func (k *Kline) TradedAtOrBelow(price decimal.Decimal) bool {
	return k.Low.LessThanOrEqual(price)
}

// TradedAtOrAbove returns whether the bar traded at the price or higher
func (k *Kline) TradedAtOrAbove(price decimal.Decimal) bool {
	return k.High.GreaterThanOrEqual(price)
}

// Validate ensures the bar is internally consistent
func (k *Kline) Validate() error {
	if k == nil || k.Base == nil {
		return common.ErrNilEvent
	}
	if k.Symbol == "" {
		return errMissingSymbol
	}
	if k.Time.IsZero() {
		return fmt.Errorf("%s %w", k.Symbol, errMissingTimestamp)
	}
	if k.Open.IsNegative() || k.Low.IsNegative() || k.Volume.IsNegative() {
		return fmt.Errorf("%s %v %w", k.Symbol, k.Time, errNegativeValue)
	}
	if k.High.LessThan(k.Low) ||
		k.Open.GreaterThan(k.High) || k.Open.LessThan(k.Low) ||
		k.Close.GreaterThan(k.High) || k.Close.LessThan(k.Low) {
		return fmt.Errorf("%s %v %w: open %v high %v low %v close %v",
			k.Symbol, k.Time, errInvalidPriceRange, k.Open, k.High, k.Low, k.Close)
	}
	return nil
}
