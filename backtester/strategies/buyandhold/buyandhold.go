package buyandhold

import (
	"fmt"

	"github.com/findwinds/QuantCode/backtester/eventtypes/kline"
	"github.com/findwinds/QuantCode/backtester/strategies/base"
)

const (
	// Name is the strategy name
	Name        = "buyandhold"
	lotsKey     = "lots"
	description = `Buy and hold buys a fixed number of lots of every symbol on its first bar and holds them until the end of the run. It is a baseline for comparing other strategies`
)

// Strategy is an implementation of the Handler interface
type Strategy struct {
	base.Strategy
	lots int64
}

// Name returns the name of the strategy
func (s *Strategy) Name() string {
	return Name
}

// Description provides a nice overview of the strategy
func (s *Strategy) Description() string {
	return description
}

// OnData buys once per symbol while the position is flat and no order is
// working
func (s *Strategy) OnData(symbol string, history []*kline.Kline) error {
	t, err := s.Trader()
	if err != nil {
		return err
	}
	if len(history) == 0 || s.HasOpenOrders(symbol) {
		return nil
	}
	pos := t.GetPosition(symbol)
	if pos.NetQuantity != 0 || !pos.UpdateTime.IsZero() {
		return nil
	}
	_, err = t.Buy(symbol, s.lots)
	return base.IgnoreRejection(err)
}

// SetCustomSettings allows the lot count to be configured
func (s *Strategy) SetCustomSettings(customSettings map[string]any) error {
	for k, v := range customSettings {
		if k != lotsKey {
			return fmt.Errorf("%w unrecognised custom setting key %v with value %v. Cannot apply", base.ErrInvalidCustomSettings, k, v)
		}
		lots, err := base.PositiveInt(k, v)
		if err != nil {
			return err
		}
		s.lots = lots
	}
	return nil
}

// SetDefaults sets the custom settings to their default values
func (s *Strategy) SetDefaults() {
	s.lots = 1
}
