package fill

import (
	"github.com/findwinds/QuantCode/backtester/common"
	"github.com/findwinds/QuantCode/backtester/eventtypes/event"
	"github.com/findwinds/QuantCode/backtester/eventtypes/order"
	"github.com/shopspring/decimal"
)

// Fill is an immutable record of lots traded against an order
type Fill struct {
	*event.Base
	OrderID    int64           `json:"order-id"`
	Side       order.Side      `json:"side"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int64           `json:"quantity"`
	Commission decimal.Decimal `json:"commission"`
}

// Event holds all functions required to handle a fill event
type Event interface {
	common.Event
	GetOrderID() int64
	GetDirection() order.Side
	GetPrice() decimal.Decimal
	GetQuantity() int64
	GetCommission() decimal.Decimal
}
