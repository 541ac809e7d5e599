package common

import (
	"errors"
	"time"
)

// EventKind identifies the type of an event published on the event bus
type EventKind string

// Event kinds published during a run
const (
	MarketData     EventKind = "MARKET_DATA"
	OrderAccepted  EventKind = "ORDER_ACCEPTED"
	OrderRejected  EventKind = "ORDER_REJECTED"
	OrderCancelled EventKind = "ORDER_CANCELLED"
	Fill           EventKind = "FILL"
	Account        EventKind = "ACCOUNT"
)

// EventKinds lists every kind in a stable order
var EventKinds = []EventKind{MarketData, OrderAccepted, OrderRejected, OrderCancelled, Fill, Account}

var (
	// ErrNilArguments is a common error response to highlight that nils were passed in
	// when they should not have been
	ErrNilArguments = errors.New("received nil argument(s)")
	// ErrNilEvent is a common error for whenever a nil event occurs when it shouldn't have
	ErrNilEvent = errors.New("nil event received")

	// ErrValidation is returned for a malformed order: bad quantity, lot or
	// tick alignment
	ErrValidation = errors.New("order validation failed")
	// ErrInsufficientMargin is returned when an order would drive available
	// margin below zero
	ErrInsufficientMargin = errors.New("insufficient margin")
	// ErrUnknownSymbol is returned when a symbol has no contract
	ErrUnknownSymbol = errors.New("unknown symbol")
	// ErrInvalidCancellation is returned when an order is not in a
	// cancellable state
	ErrInvalidCancellation = errors.New("order cannot be cancelled")
	// ErrRuleViolation is returned when an execution rule refuses an order
	ErrRuleViolation = errors.New("execution rule violated")
	// ErrDataOrdering is returned when input bars for a symbol are not
	// monotonically non-decreasing in time. It aborts a run.
	ErrDataOrdering = errors.New("market data out of order")
)

// Event is the shared contract of everything published on the event bus.
// Events are read only once published.
type Event interface {
	Kind() EventKind
	GetTime() time.Time
	GetSymbol() string
	GetReason() string
}
