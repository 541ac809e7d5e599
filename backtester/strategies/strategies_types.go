package strategies

import (
	"time"

	"github.com/findwinds/QuantCode/backtester/eventtypes/fill"
	"github.com/findwinds/QuantCode/backtester/eventtypes/kline"
	"github.com/findwinds/QuantCode/backtester/eventtypes/order"
	"github.com/findwinds/QuantCode/backtester/strategies/base"
)

// Handler is the contract the engine drives a strategy through. OnData is
// called once per symbol per timestamp slice with every bar replayed so far
// for that symbol, the newest last.
type Handler interface {
	Name() string
	Description() string
	Init(base.Trader) error
	OnData(symbol string, history []*kline.Kline) error
	OnOrderEvent(*order.Event) error
	OnFill(*fill.Fill) error
	SetCustomSettings(map[string]any) error
	SetDefaults()
}

// DayResetter is implemented by strategies keeping per trading day state.
// OnNewDay is called before the first slice of each new trading date.
type DayResetter interface {
	OnNewDay(day time.Time) error
}
