package ledger

import (
	"errors"
	"time"

	"github.com/findwinds/QuantCode/backtester/contract"
	"github.com/findwinds/QuantCode/backtester/eventtypes/event"
	"github.com/shopspring/decimal"
)

var (
	// ErrInitialFundsZero is returned when a ledger is created without capital
	ErrInitialFundsZero = errors.New("initial funds must be greater than zero")

	errZeroQuantity = errors.New("fill quantity cannot be zero")
	errInvalidPrice = errors.New("price must be positive")
)

// Position is the net holding of one symbol. A flat position is a valid
// resting state and is never removed.
type Position struct {
	Symbol        string          `json:"symbol"`
	NetQuantity   int64           `json:"net-quantity"`
	AverageCost   decimal.Decimal `json:"average-cost"`
	RealizedPnL   decimal.Decimal `json:"realized-pnl"`
	UnrealizedPnL decimal.Decimal `json:"unrealized-pnl"`
	MarginUsed    decimal.Decimal `json:"margin-used"`
	Commission    decimal.Decimal `json:"commission"`
	LastPrice     decimal.Decimal `json:"last-price"`
	UpdateTime    time.Time       `json:"update-time"`
}

// Account is a point in time view of the ledger totals.
// Equity is cash plus unrealized P&L over all positions and
// MarginAvailable is equity less total margin used.
type Account struct {
	InitialCapital  decimal.Decimal `json:"initial-capital"`
	Cash            decimal.Decimal `json:"cash"`
	Equity          decimal.Decimal `json:"equity"`
	UnrealizedPnL   decimal.Decimal `json:"unrealized-pnl"`
	RealizedPnL     decimal.Decimal `json:"realized-pnl"`
	MarginUsed      decimal.Decimal `json:"margin-used"`
	MarginAvailable decimal.Decimal `json:"margin-available"`
	Commission      decimal.Decimal `json:"commission"`
	UpdateTime      time.Time       `json:"update-time"`
}

// Ledger holds cash and positions for a single run. It is owned by a broker
// and mutated only through fills and mark-to-market.
type Ledger struct {
	registry       *contract.Registry
	initialCapital decimal.Decimal
	cash           decimal.Decimal
	positions      map[string]*Position
	updateTime     time.Time
}

// Snapshot is published as an ACCOUNT event after each processed timestamp
type Snapshot struct {
	*event.Base
	Account   Account    `json:"account"`
	Positions []Position `json:"positions"`
}
