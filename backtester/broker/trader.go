package broker

import (
	"fmt"

	"github.com/findwinds/QuantCode/backtester/eventtypes/order"
	"github.com/findwinds/QuantCode/backtester/ledger"
	gctcommon "github.com/findwinds/QuantCode/common"
	"github.com/shopspring/decimal"
)

// Trader is the order entry surface handed to strategies. It wraps a Broker
// so strategies can place and cancel orders and read account state, but can
// never reach the ledger.
type Trader struct {
	b Broker
}

// NewTrader wraps a broker
func NewTrader(b Broker) (*Trader, error) {
	if b == nil {
		return nil, fmt.Errorf("%w broker", gctcommon.ErrNilPointer)
	}
	return &Trader{b: b}, nil
}

// Buy submits a market buy order
func (t *Trader) Buy(symbol string, qty int64) (int64, error) {
	return t.submit(symbol, order.Buy, order.Market, qty, decimal.Zero)
}

// Sell submits a market sell order
func (t *Trader) Sell(symbol string, qty int64) (int64, error) {
	return t.submit(symbol, order.Sell, order.Market, qty, decimal.Zero)
}

// BuyLimit submits a limit buy order
func (t *Trader) BuyLimit(symbol string, qty int64, price decimal.Decimal) (int64, error) {
	return t.submit(symbol, order.Buy, order.Limit, qty, price)
}

// SellLimit submits a limit sell order
func (t *Trader) SellLimit(symbol string, qty int64, price decimal.Decimal) (int64, error) {
	return t.submit(symbol, order.Sell, order.Limit, qty, price)
}

// Cancel cancels an open order
func (t *Trader) Cancel(id int64) error {
	return t.b.CancelOrder(id)
}

// GetPosition returns a copy of the symbol's position
func (t *Trader) GetPosition(symbol string) ledger.Position {
	return t.b.GetPosition(symbol)
}

// GetAccount returns a copy of the account
func (t *Trader) GetAccount() ledger.Account {
	return t.b.GetAccount()
}

// GetOpenOrders returns copies of the orders still working
func (t *Trader) GetOpenOrders() []order.Order {
	return t.b.GetOpenOrders()
}

func (t *Trader) submit(symbol string, side order.Side, typ order.Type, qty int64, price decimal.Decimal) (int64, error) {
	return t.b.SubmitOrder(&order.Order{
		Symbol:     symbol,
		Side:       side,
		Type:       typ,
		Quantity:   qty,
		LimitPrice: price,
	})
}
