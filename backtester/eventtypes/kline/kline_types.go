package kline

import (
	"errors"

	"github.com/findwinds/QuantCode/backtester/common"
	"github.com/findwinds/QuantCode/backtester/eventtypes/event"
	"github.com/shopspring/decimal"
)

var (
	errInvalidPriceRange = errors.New("invalid price range")
	errNegativeValue     = errors.New("negative value")
	errMissingTimestamp  = errors.New("missing timestamp")
	errMissingSymbol     = errors.New("missing symbol")
)

// Kline holds a single OHLCV bar for one symbol and is published as a
// MARKET_DATA event
type Kline struct {
	*event.Base
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume decimal.Decimal `json:"volume"`
}

// Event is a kline data event
type Event interface {
	common.Event
	GetOpenPrice() decimal.Decimal
	GetHighPrice() decimal.Decimal
	GetLowPrice() decimal.Decimal
	GetClosePrice() decimal.Decimal
	GetVolume() decimal.Decimal
}
