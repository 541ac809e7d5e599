package dualma

import (
	"fmt"

	"github.com/findwinds/QuantCode/backtester/eventtypes/kline"
	"github.com/findwinds/QuantCode/backtester/strategies/base"
	"github.com/findwinds/QuantCode/log"
	"github.com/thrasher-corp/gct-ta/indicators"
)

const (
	// Name is the strategy name
	Name          = "dualma"
	fastPeriodKey = "fast-period"
	slowPeriodKey = "slow-period"
	lotsKey       = "lots"
	allowShortKey = "allow-short"
	description   = `The dual moving average strategy follows the trend of a futures contract. When the fast simple moving average crosses above the slow one it holds a fixed number of long lots, and when it crosses below it reverses into the same number of short lots`
)

// Strategy is an implementation of the Handler interface
type Strategy struct {
	base.Strategy
	fastPeriod int64
	slowPeriod int64
	lots       int64
	allowShort bool
}

// Name returns the name of the strategy
func (s *Strategy) Name() string {
	return Name
}

// Description provides a nice overview of the strategy
func (s *Strategy) Description() string {
	return description
}

// OnData compares the last two values of both averages and moves the
// position to the side of the latest crossover
func (s *Strategy) OnData(symbol string, history []*kline.Kline) error {
	if _, err := s.Trader(); err != nil {
		return err
	}
	if int64(len(history)) <= s.slowPeriod || s.HasOpenOrders(symbol) {
		return nil
	}
	closes := base.ClosePrices(history)
	fast := indicators.SMA(closes, int(s.fastPeriod))
	slow := indicators.SMA(closes, int(s.slowPeriod))
	last := len(closes) - 1
	var target int64
	switch {
	case fast[last-1] <= slow[last-1] && fast[last] > slow[last]:
		target = s.lots
	case fast[last-1] >= slow[last-1] && fast[last] < slow[last]:
		if !s.allowShort {
			target = 0
			break
		}
		target = -s.lots
	default:
		return nil
	}
	log.Debugf(log.Strategy, "%s %s crossover at %v fast %.4f slow %.4f, moving to %d",
		Name, symbol, history[last].Time, fast[last], slow[last], target)
	_, err := s.MoveTo(symbol, target)
	return base.IgnoreRejection(err)
}

// SetCustomSettings allows a user to modify the averages and lot count
func (s *Strategy) SetCustomSettings(customSettings map[string]any) error {
	for k, v := range customSettings {
		switch k {
		case fastPeriodKey, slowPeriodKey, lotsKey:
			n, err := base.PositiveInt(k, v)
			if err != nil {
				return err
			}
			switch k {
			case fastPeriodKey:
				s.fastPeriod = n
			case slowPeriodKey:
				s.slowPeriod = n
			default:
				s.lots = n
			}
		case allowShortKey:
			b, ok := v.(bool)
			if !ok {
				return fmt.Errorf("%w provided %s value could not be parsed: %v", base.ErrInvalidCustomSettings, k, v)
			}
			s.allowShort = b
		default:
			return fmt.Errorf("%w unrecognised custom setting key %v with value %v. Cannot apply", base.ErrInvalidCustomSettings, k, v)
		}
	}
	if s.fastPeriod >= s.slowPeriod {
		return fmt.Errorf("%w %s %d must be shorter than %s %d",
			base.ErrInvalidCustomSettings, fastPeriodKey, s.fastPeriod, slowPeriodKey, s.slowPeriod)
	}
	return nil
}

// SetDefaults sets the custom settings to their default values
func (s *Strategy) SetDefaults() {
	s.fastPeriod = 10
	s.slowPeriod = 30
	s.lots = 1
	s.allowShort = true
}
