package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/findwinds/QuantCode/backtester/common"
	"github.com/findwinds/QuantCode/backtester/eventtypes/event"
	"github.com/shopspring/decimal"
)

var (
	errInvalidSide     = errors.New("invalid order side")
	errInvalidType     = errors.New("invalid order type")
	errInvalidQuantity = errors.New("quantity must be a positive whole number of lots")
	errInvalidLimit    = errors.New("limit orders require a positive limit price")
	errUnexpectedLimit = errors.New("market orders cannot carry a limit price")
	errNoSymbol        = errors.New("order has no symbol")
	errOverFill        = errors.New("fill exceeds remaining quantity")
)

// IsValid returns whether the side is Buy or Sell
func (s Side) IsValid() bool {
	return s == Buy || s == Sell
}

// Sign returns 1 for Buy and -1 for Sell
func (s Side) Sign() int64 {
	if s == Sell {
		return -1
	}
	return 1
}

// Opposite returns the reverse side
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// IsValid returns whether the type is Market or Limit
func (t Type) IsValid() bool {
	return t == Market || t == Limit
}

// IsTerminal returns whether no further transitions are possible
func (s Status) IsTerminal() bool {
	return s == Filled || s == Rejected || s == Cancelled
}

// IsCancellable returns whether an order in this status may be cancelled
func (s Status) IsCancellable() bool {
	return s == Accepted || s == PartiallyFilled
}

// Validate checks the order is well formed independent of any contract
func (o *Order) Validate() error {
	if o == nil {
		return fmt.Errorf("%w order", common.ErrNilArguments)
	}
	switch {
	case o.Symbol == "":
		return fmt.Errorf("%w: %w", common.ErrValidation, errNoSymbol)
	case !o.Side.IsValid():
		return fmt.Errorf("%w: %w %q", common.ErrValidation, errInvalidSide, o.Side)
	case !o.Type.IsValid():
		return fmt.Errorf("%w: %w %q", common.ErrValidation, errInvalidType, o.Type)
	case o.Quantity <= 0:
		return fmt.Errorf("%w: %w, received %d", common.ErrValidation, errInvalidQuantity, o.Quantity)
	case o.Type == Limit && !o.LimitPrice.IsPositive():
		return fmt.Errorf("%w: %w", common.ErrValidation, errInvalidLimit)
	case o.Type == Market && !o.LimitPrice.IsZero():
		return fmt.Errorf("%w: %w", common.ErrValidation, errUnexpectedLimit)
	}
	return nil
}

// Remaining returns the unfilled quantity
func (o *Order) Remaining() int64 {
	return o.Quantity - o.FilledQuantity
}

// SignedQuantity returns qty signed by the order side
func (o *Order) SignedQuantity(qty int64) int64 {
	return qty * o.Side.Sign()
}

// ApplyFill records a fill against the order, updating the volume weighted
// average fill price, accumulated commission and status
func (o *Order) ApplyFill(qty int64, price, commission decimal.Decimal, t time.Time) error {
	if qty <= 0 || qty > o.Remaining() {
		return fmt.Errorf("%w: %d of %d", errOverFill, qty, o.Remaining())
	}
	filledBefore := decimal.NewFromInt(o.FilledQuantity)
	incoming := decimal.NewFromInt(qty)
	o.AverageFillPrice = o.AverageFillPrice.Mul(filledBefore).Add(price.Mul(incoming)).Div(filledBefore.Add(incoming))
	o.FilledQuantity += qty
	o.Commission = o.Commission.Add(commission)
	o.UpdateTime = t
	if o.Remaining() == 0 {
		o.Status = Filled
	} else {
		o.Status = PartiallyFilled
	}
	return nil
}

// NewEvent creates an order lifecycle event from a snapshot of the order
func NewEvent(kind common.EventKind, o *Order, t time.Time, reason error) *Event {
	var why string
	if reason != nil {
		why = reason.Error()
	}
	return &Event{
		Base:  event.NewBase(o.Symbol, t, 0, why),
		kind:  kind,
		Order: *o,
		Err:   reason,
	}
}

// Kind returns the lifecycle event kind
func (e *Event) Kind() common.EventKind {
	return e.kind
}

// GetOrder returns a copy of the order snapshot
func (e *Event) GetOrder() Order {
	return e.Order
}

// IsRejection returns whether the event reports a rejected order
func (e *Event) IsRejection() bool {
	return e.kind == common.OrderRejected
}
