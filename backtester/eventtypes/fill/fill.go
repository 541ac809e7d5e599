package fill

import (
	"time"

	"github.com/findwinds/QuantCode/backtester/common"
	"github.com/findwinds/QuantCode/backtester/eventtypes/event"
	"github.com/findwinds/QuantCode/backtester/eventtypes/order"
	"github.com/shopspring/decimal"
)

// New creates a fill for an order
func New(o *order.Order, qty int64, price, commission decimal.Decimal, t time.Time) *Fill {
	return &Fill{
		Base:       event.NewBase(o.Symbol, t, 0),
		OrderID:    o.ID,
		Side:       o.Side,
		Price:      price,
		Quantity:   qty,
		Commission: commission,
	}
}

// Kind returns FILL
func (f *Fill) Kind() common.EventKind {
	return common.Fill
}

// GetOrderID returns the id of the filled order
func (f *Fill) GetOrderID() int64 {
	return f.OrderID
}

// GetDirection returns the side of the fill
func (f *Fill) GetDirection() order.Side {
	return f.Side
}

// GetPrice returns the execution price
func (f *Fill) GetPrice() decimal.Decimal {
	return f.Price
}

// GetQuantity returns the filled lots
func (f *Fill) GetQuantity() int64 {
	return f.Quantity
}

// GetSignedQuantity returns the filled lots signed by side
func (f *Fill) GetSignedQuantity() int64 {
	return f.Quantity * f.Side.Sign()
}

// GetCommission returns the commission charged
func (f *Fill) GetCommission() decimal.Decimal {
	return f.Commission
}

// Copy returns a fill that shares no mutable state with the receiver
func (f *Fill) Copy() *Fill {
	c := *f
	c.Base = f.Base.Clone()
	return &c
}
