package rsi

import (
	"fmt"

	"github.com/findwinds/QuantCode/backtester/eventtypes/kline"
	"github.com/findwinds/QuantCode/backtester/strategies/base"
	"github.com/findwinds/QuantCode/log"
	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/gct-ta/indicators"
)

const (
	// Name is the strategy name
	Name         = "rsi"
	rsiPeriodKey = "rsi-period"
	rsiLowKey    = "rsi-low"
	rsiHighKey   = "rsi-high"
	lotsKey      = "lots"
	description  = `The relative strength index is a technical indicator used in the analysis of financial markets. It is intended to chart the current and historical strength or weakness of a stock or market based on the closing prices of a recent trading period. This strategy goes long when the index is at or below the low threshold and flattens when it is at or above the high threshold`
)

// Strategy is an implementation of the Handler interface
type Strategy struct {
	base.Strategy
	rsiPeriod decimal.Decimal
	rsiLow    decimal.Decimal
	rsiHigh   decimal.Decimal
	lots      int64
}

// Name returns the name of the strategy
func (s *Strategy) Name() string {
	return Name
}

// Description provides a nice overview of the strategy
// be it definition of terms or to highlight its purpose
func (s *Strategy) Description() string {
	return description
}

// OnData buys when the latest RSI is oversold and the symbol is flat, and
// closes a long position once it is overbought
func (s *Strategy) OnData(symbol string, history []*kline.Kline) error {
	t, err := s.Trader()
	if err != nil {
		return err
	}
	if int64(len(history)) <= s.rsiPeriod.IntPart() || s.HasOpenOrders(symbol) {
		return nil
	}
	rsi := indicators.RSI(base.ClosePrices(history), int(s.rsiPeriod.IntPart()))
	latestRSIValue := decimal.NewFromFloat(rsi[len(rsi)-1])
	net := t.GetPosition(symbol).NetQuantity
	switch {
	case latestRSIValue.LessThanOrEqual(s.rsiLow) && net == 0:
		log.Debugf(log.Strategy, "%s %s RSI at %v, entering long", Name, symbol, latestRSIValue.StringFixed(2))
		_, err = s.MoveTo(symbol, s.lots)
	case latestRSIValue.GreaterThanOrEqual(s.rsiHigh) && net > 0:
		log.Debugf(log.Strategy, "%s %s RSI at %v, closing long", Name, symbol, latestRSIValue.StringFixed(2))
		_, err = s.MoveTo(symbol, 0)
	}
	return base.IgnoreRejection(err)
}

// SetCustomSettings allows a user to modify the RSI limits in their config
func (s *Strategy) SetCustomSettings(customSettings map[string]any) error {
	for k, v := range customSettings {
		switch k {
		case rsiHighKey:
			rsiHigh, err := base.PositiveFloat(k, v)
			if err != nil {
				return err
			}
			s.rsiHigh = decimal.NewFromFloat(rsiHigh)
		case rsiLowKey:
			rsiLow, err := base.PositiveFloat(k, v)
			if err != nil {
				return err
			}
			s.rsiLow = decimal.NewFromFloat(rsiLow)
		case rsiPeriodKey:
			rsiPeriod, err := base.PositiveInt(k, v)
			if err != nil {
				return err
			}
			s.rsiPeriod = decimal.NewFromInt(rsiPeriod)
		case lotsKey:
			lots, err := base.PositiveInt(k, v)
			if err != nil {
				return err
			}
			s.lots = lots
		default:
			return fmt.Errorf("%w unrecognised custom setting key %v with value %v. Cannot apply", base.ErrInvalidCustomSettings, k, v)
		}
	}
	if s.rsiLow.GreaterThanOrEqual(s.rsiHigh) {
		return fmt.Errorf("%w %s %v must be below %s %v", base.ErrInvalidCustomSettings, rsiLowKey, s.rsiLow, rsiHighKey, s.rsiHigh)
	}
	return nil
}

// SetDefaults sets the custom settings to their default values
func (s *Strategy) SetDefaults() {
	s.rsiHigh = decimal.NewFromInt(70)
	s.rsiLow = decimal.NewFromInt(30)
	s.rsiPeriod = decimal.NewFromInt(14)
	s.lots = 1
}
