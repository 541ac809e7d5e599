package base

import (
	"errors"
	"fmt"
	"strings"

	"github.com/findwinds/QuantCode/backtester/common"
	"github.com/findwinds/QuantCode/backtester/eventtypes/fill"
	"github.com/findwinds/QuantCode/backtester/eventtypes/kline"
	"github.com/findwinds/QuantCode/backtester/eventtypes/order"
	gctcommon "github.com/findwinds/QuantCode/common"
	"github.com/findwinds/QuantCode/log"
)

// Init stores the trader used to place orders
func (s *Strategy) Init(t Trader) error {
	if t == nil {
		return fmt.Errorf("%w trader", gctcommon.ErrNilPointer)
	}
	s.trader = t
	return nil
}

// Trader returns the trader set by Init
func (s *Strategy) Trader() (Trader, error) {
	if s.trader == nil {
		return nil, ErrTraderNotSet
	}
	return s.trader, nil
}

// OnOrderEvent logs order lifecycle events. Strategies override it when
// they need to react to rejections or cancellations.
func (s *Strategy) OnOrderEvent(ev *order.Event) error {
	if ev == nil {
		return nil
	}
	o := ev.GetOrder()
	if ev.IsRejection() {
		log.Warnf(log.Strategy, "order %d %s %s %d rejected: %s", o.ID, o.Symbol, o.Side, o.Quantity, ev.GetReason())
		return nil
	}
	log.Debugf(log.Strategy, "order %d %s %s %d %s", o.ID, o.Symbol, o.Side, o.Quantity, ev.Kind())
	return nil
}

// OnFill logs fills
func (s *Strategy) OnFill(f *fill.Fill) error {
	if f == nil {
		return nil
	}
	log.Debugf(log.Strategy, "order %d filled %d %s @ %s", f.GetOrderID(), f.GetQuantity(), f.Symbol, f.GetPrice())
	return nil
}

// HasOpenOrders returns whether the trader has working orders for a symbol
func (s *Strategy) HasOpenOrders(symbol string) bool {
	if s.trader == nil {
		return false
	}
	open := s.trader.GetOpenOrders()
	for i := range open {
		if strings.EqualFold(open[i].Symbol, symbol) {
			return true
		}
	}
	return false
}

// MoveTo submits the market order needed to take the symbol's position from
// its current net quantity to target. It returns zero when nothing is sent.
func (s *Strategy) MoveTo(symbol string, target int64) (int64, error) {
	if s.trader == nil {
		return 0, ErrTraderNotSet
	}
	delta := target - s.trader.GetPosition(symbol).NetQuantity
	switch {
	case delta > 0:
		return s.trader.Buy(symbol, delta)
	case delta < 0:
		return s.trader.Sell(symbol, -delta)
	}
	return 0, nil
}

// IgnoreRejection drops errors for orders the broker rejected. The rejection
// has already reached OnOrderEvent and must not abort the run.
func IgnoreRejection(err error) error {
	if errors.Is(err, common.ErrValidation) ||
		errors.Is(err, common.ErrInsufficientMargin) ||
		errors.Is(err, common.ErrUnknownSymbol) ||
		errors.Is(err, common.ErrRuleViolation) {
		return nil
	}
	return err
}

// ClosePrices returns the close of every bar as float64 for indicator input
func ClosePrices(history []*kline.Kline) []float64 {
	resp := make([]float64, len(history))
	for i := range history {
		resp[i] = history[i].Close.InexactFloat64()
	}
	return resp
}

// PositiveFloat reads a numeric custom setting. JSON numbers decode as
// float64; integers are accepted for settings built in code.
func PositiveFloat(key string, v any) (float64, error) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	default:
		return 0, fmt.Errorf("%w provided %s value could not be parsed: %v", ErrInvalidCustomSettings, key, v)
	}
	if f <= 0 {
		return 0, fmt.Errorf("%w provided %s value must be positive: %v", ErrInvalidCustomSettings, key, v)
	}
	return f, nil
}

// PositiveInt reads a whole numbered custom setting
func PositiveInt(key string, v any) (int64, error) {
	f, err := PositiveFloat(key, v)
	if err != nil {
		return 0, err
	}
	if f != float64(int64(f)) {
		return 0, fmt.Errorf("%w provided %s value must be a whole number: %v", ErrInvalidCustomSettings, key, v)
	}
	return int64(f), nil
}
