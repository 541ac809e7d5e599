package broker

import (
	"errors"
	"time"

	"github.com/findwinds/QuantCode/backtester/common"
	"github.com/findwinds/QuantCode/backtester/contract"
	"github.com/findwinds/QuantCode/backtester/eventbus"
	"github.com/findwinds/QuantCode/backtester/eventtypes/fill"
	"github.com/findwinds/QuantCode/backtester/eventtypes/kline"
	"github.com/findwinds/QuantCode/backtester/eventtypes/order"
	"github.com/findwinds/QuantCode/backtester/ledger"
	"github.com/shopspring/decimal"
)

// FillTiming decides which bar and price a market order fills against
type FillTiming string

// Supported fill timings
const (
	// SameBarClose fills a market order at the close of the bar being
	// processed when it was accepted
	SameBarClose FillTiming = "same-bar-close"
	// NextBarOpen fills a market order at the open of the symbol's next bar
	NextBarOpen FillTiming = "next-bar-open"
)

var (
	errInvalidFillTiming = errors.New("invalid fill timing")
	errInvalidVolumeCap  = errors.New("volume limit must be within [0, 1]")
	errNoReferencePrice  = errors.New("no market data received for symbol")
	errOrderNotFound     = errors.New("order not found")
)

// Broker is the capability set shared by simulated and live brokers. The
// engine and strategies depend only on this interface.
type Broker interface {
	SubmitOrder(*order.Order) (int64, error)
	CancelOrder(id int64) error
	GetPosition(symbol string) ledger.Position
	GetAccount() ledger.Account
	GetOpenOrders() []order.Order
	RegisterEventHandler(common.EventKind, eventbus.Handler) error
}

// FillPolicy configures how and when accepted orders fill
type FillPolicy struct {
	Timing FillTiming `json:"timing"`
	// VolumeLimit caps each bar's fill to this fraction of the bar's volume.
	// Zero disables the cap.
	VolumeLimit decimal.Decimal `json:"volume-limit"`
}

// VirtualBroker simulates order acceptance, margining and fills against
// replayed bars. It owns the ledger for a run.
type VirtualBroker struct {
	registry *contract.Registry
	ledger   *ledger.Ledger
	bus      *eventbus.Bus
	policy   FillPolicy
	rules    []Rule

	nextID      int64
	orders      map[int64]*order.Order
	open        []int64
	fills       []*fill.Fill
	latest      map[string]*kline.Kline
	clock       time.Time
	dispatchErr error
}
