package order

import (
	"time"

	"github.com/findwinds/QuantCode/backtester/common"
	"github.com/findwinds/QuantCode/backtester/eventtypes/event"
	"github.com/shopspring/decimal"
)

// Side is the direction of an order
type Side string

// Type is the pricing instruction of an order
type Type string

// Status is the lifecycle state of an order
type Status string

// Order sides
const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Order types
const (
	Market Type = "MARKET"
	Limit  Type = "LIMIT"
)

// Order statuses. Rejected, Cancelled and Filled are terminal.
const (
	New             Status = "NEW"
	Accepted        Status = "ACCEPTED"
	PartiallyFilled Status = "PARTIALLY_FILLED"
	Filled          Status = "FILLED"
	Rejected        Status = "REJECTED"
	Cancelled       Status = "CANCELLED"
)

// Order is a request to trade a quantity of lots of a symbol. Once submitted
// it is owned by the broker; strategies only ever see copies.
type Order struct {
	ID               int64           `json:"id"`
	Symbol           string          `json:"symbol"`
	Side             Side            `json:"side"`
	Type             Type            `json:"type"`
	Quantity         int64           `json:"quantity"`
	FilledQuantity   int64           `json:"filled-quantity"`
	LimitPrice       decimal.Decimal `json:"limit-price"`
	AverageFillPrice decimal.Decimal `json:"average-fill-price"`
	Commission       decimal.Decimal `json:"commission"`
	Status           Status          `json:"status"`
	SubmitTime       time.Time       `json:"submit-time"`
	UpdateTime       time.Time       `json:"update-time"`
	Reason           string          `json:"reason,omitempty"`
}

// Event is an order lifecycle event: ORDER_ACCEPTED, ORDER_REJECTED or
// ORDER_CANCELLED. It carries a snapshot of the order at the time of the
// transition.
type Event struct {
	*event.Base
	kind  common.EventKind
	Order Order `json:"order"`
	// Err holds the rejection cause for errors.Is matching
	Err error `json:"-"`
}
