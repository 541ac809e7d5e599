package base

import (
	"errors"

	"github.com/findwinds/QuantCode/backtester/eventtypes/order"
	"github.com/findwinds/QuantCode/backtester/ledger"
	"github.com/shopspring/decimal"
)

var (
	// ErrStrategyNotFound used when strategy specified in config does not exist
	ErrStrategyNotFound = errors.New("not found. Please ensure the strategy-settings field 'name' is spelled properly in your config")
	// ErrInvalidCustomSettings used when bad custom settings are found in the config
	ErrInvalidCustomSettings = errors.New("invalid custom settings in config")
	// ErrTraderNotSet used when a strategy receives data before Init
	ErrTraderNotSet = errors.New("strategy has not been initialised with a trader")
)

// Trader is the order entry surface available to strategies. It has no way
// to mutate the account or positions directly.
type Trader interface {
	Buy(symbol string, qty int64) (int64, error)
	Sell(symbol string, qty int64) (int64, error)
	BuyLimit(symbol string, qty int64, price decimal.Decimal) (int64, error)
	SellLimit(symbol string, qty int64, price decimal.Decimal) (int64, error)
	Cancel(id int64) error
	GetPosition(symbol string) ledger.Position
	GetAccount() ledger.Account
	GetOpenOrders() []order.Order
}

// Strategy is the shared implementation embedded by every strategy
type Strategy struct {
	trader Trader
}
