package broker

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/findwinds/QuantCode/backtester/common"
	"github.com/findwinds/QuantCode/backtester/contract"
	"github.com/findwinds/QuantCode/backtester/eventbus"
	"github.com/findwinds/QuantCode/backtester/eventtypes/fill"
	"github.com/findwinds/QuantCode/backtester/eventtypes/kline"
	"github.com/findwinds/QuantCode/backtester/eventtypes/order"
	"github.com/findwinds/QuantCode/backtester/ledger"
	gctcommon "github.com/findwinds/QuantCode/common"
	"github.com/findwinds/QuantCode/log"
	"github.com/shopspring/decimal"
)

var _ Broker = (*VirtualBroker)(nil)

// NewVirtualBroker creates a simulated broker that owns the ledger and
// publishes lifecycle events on the bus
func NewVirtualBroker(registry *contract.Registry, l *ledger.Ledger, bus *eventbus.Bus, policy FillPolicy) (*VirtualBroker, error) {
	if registry == nil {
		return nil, fmt.Errorf("%w registry", gctcommon.ErrNilPointer)
	}
	if l == nil {
		return nil, fmt.Errorf("%w ledger", gctcommon.ErrNilPointer)
	}
	if bus == nil {
		return nil, fmt.Errorf("%w event bus", gctcommon.ErrNilPointer)
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &VirtualBroker{
		registry: registry,
		ledger:   l,
		bus:      bus,
		policy:   policy,
		orders:   make(map[int64]*order.Order),
		latest:   make(map[string]*kline.Kline),
	}, nil
}

// RegisterEventHandler subscribes a handler to broker and engine events
func (b *VirtualBroker) RegisterEventHandler(kind common.EventKind, h eventbus.Handler) error {
	return b.bus.Subscribe(kind, h)
}

// AddRule appends an execution rule consulted before margining. Rules run
// in the order added.
func (b *VirtualBroker) AddRule(r Rule) error {
	if r == nil {
		return fmt.Errorf("%w rule", gctcommon.ErrNilPointer)
	}
	b.rules = append(b.rules, r)
	return nil
}

// OnNewDay tells every rule the trading date changed
func (b *VirtualBroker) OnNewDay(day time.Time) {
	log.Debugf(log.Broker, "new trading day %v", day.Format(time.DateOnly))
	for _, r := range b.rules {
		r.OnNewDay(day)
	}
}

// SubmitOrder validates, margins and accepts an order, returning its id.
// Rejected orders still receive an id; the rejection cause is returned and
// published as ORDER_REJECTED. Under the same-bar-close policy an accepted
// order is evaluated immediately against the symbol's current bar.
func (b *VirtualBroker) SubmitOrder(o *order.Order) (int64, error) {
	if o == nil {
		return 0, fmt.Errorf("%w order", common.ErrNilArguments)
	}
	b.nextID++
	placed := *o
	placed.ID = b.nextID
	placed.Symbol = normalise(o.Symbol)
	placed.Status = order.New
	placed.FilledQuantity = 0
	placed.AverageFillPrice = decimal.Zero
	placed.Commission = decimal.Zero
	placed.SubmitTime = b.clock
	placed.UpdateTime = b.clock
	placed.Reason = ""
	b.orders[placed.ID] = &placed
	p := b.orders[placed.ID]

	c, err := b.validate(p)
	if err == nil {
		err = b.checkRules(p)
	}
	if err == nil {
		err = b.checkMargin(p, c)
	}
	if err != nil {
		b.reject(p, err)
		return p.ID, err
	}

	p.Status = order.Accepted
	b.open = append(b.open, p.ID)
	log.Debugf(log.Broker, "%v accepted order %d %v %v %d %v", b.clock, p.ID, p.Symbol, p.Side, p.Quantity, p.Type)
	b.publish(order.NewEvent(common.OrderAccepted, p, b.clock, nil))

	if b.policy.Timing == SameBarClose {
		if bar, ok := b.latest[p.Symbol]; ok && bar.Time.Equal(b.clock) {
			b.evaluate(p, bar)
		}
	}
	return p.ID, nil
}

// CancelOrder cancels the unfilled remainder of an accepted or partially
// filled order. Any other state returns ErrInvalidCancellation and nothing
// is published.
func (b *VirtualBroker) CancelOrder(id int64) error {
	o, ok := b.orders[id]
	if !ok {
		return fmt.Errorf("%w: %w %d", common.ErrInvalidCancellation, errOrderNotFound, id)
	}
	if !o.Status.IsCancellable() {
		return fmt.Errorf("%w: order %d is %v", common.ErrInvalidCancellation, id, o.Status)
	}
	o.Status = order.Cancelled
	o.UpdateTime = b.clock
	b.removeOpen(id)
	log.Debugf(log.Broker, "%v cancelled order %d %v", b.clock, id, o.Symbol)
	b.publish(order.NewEvent(common.OrderCancelled, o, b.clock, nil))
	return nil
}

// OnBar records the symbol's latest bar, advances the broker clock and
// evaluates resting orders for the symbol against it
func (b *VirtualBroker) OnBar(bar *kline.Kline) error {
	if bar == nil || bar.Base == nil {
		return common.ErrNilEvent
	}
	sym := normalise(bar.Symbol)
	if prev, ok := b.latest[sym]; ok && bar.Time.Before(prev.Time) {
		return fmt.Errorf("%w: %s bar %v after %v", common.ErrDataOrdering, sym, bar.Time, prev.Time)
	}
	b.latest[sym] = bar
	if bar.Time.After(b.clock) {
		b.clock = bar.Time
	}
	resting := append([]int64(nil), b.open...)
	for _, id := range resting {
		o := b.orders[id]
		if o.Symbol != sym {
			continue
		}
		if b.policy.Timing == NextBarOpen && !o.SubmitTime.Before(bar.Time) {
			continue
		}
		b.evaluate(o, bar)
	}
	return nil
}

// MarkToMarket revalues every held position at its latest close
func (b *VirtualBroker) MarkToMarket(t time.Time) error {
	if t.After(b.clock) {
		b.clock = t
	}
	positions := b.ledger.Positions()
	for i := range positions {
		bar, ok := b.latest[positions[i].Symbol]
		if !ok {
			continue
		}
		if err := b.ledger.MarkToMarket(positions[i].Symbol, bar.Close, t); err != nil {
			return err
		}
	}
	if acc := b.ledger.Account(); acc.MarginAvailable.IsNegative() {
		log.Warnf(log.Broker, "%v margin call: equity %v margin used %v", t, acc.Equity, acc.MarginUsed)
	}
	return nil
}

// GetPosition returns a copy of the symbol's position
func (b *VirtualBroker) GetPosition(symbol string) ledger.Position {
	return b.ledger.Position(symbol)
}

// GetPositions returns copies of all positions ordered by symbol
func (b *VirtualBroker) GetPositions() []ledger.Position {
	return b.ledger.Positions()
}

// GetAccount returns the current account totals
func (b *VirtualBroker) GetAccount() ledger.Account {
	return b.ledger.Account()
}

// Snapshot returns an ACCOUNT event for the current ledger state
func (b *VirtualBroker) Snapshot(t time.Time) *ledger.Snapshot {
	return b.ledger.Snapshot(t)
}

// GetOrder returns a copy of an order
func (b *VirtualBroker) GetOrder(id int64) (order.Order, error) {
	o, ok := b.orders[id]
	if !ok {
		return order.Order{}, fmt.Errorf("%w %d", errOrderNotFound, id)
	}
	return *o, nil
}

// GetOpenOrders returns copies of accepted and partially filled orders in
// submission order
func (b *VirtualBroker) GetOpenOrders() []order.Order {
	resp := make([]order.Order, len(b.open))
	for i := range b.open {
		resp[i] = *b.orders[b.open[i]]
	}
	return resp
}

// Orders returns copies of every order submitted, ordered by id
func (b *VirtualBroker) Orders() []order.Order {
	resp := make([]order.Order, 0, len(b.orders))
	for _, o := range b.orders {
		resp = append(resp, *o)
	}
	sort.Slice(resp, func(i, j int) bool {
		return resp[i].ID < resp[j].ID
	})
	return resp
}

// Fills returns copies of the fill log in execution order
func (b *VirtualBroker) Fills() []*fill.Fill {
	resp := make([]*fill.Fill, len(b.fills))
	for i := range b.fills {
		resp[i] = b.fills[i].Copy()
	}
	return resp
}

// LatestPrice returns the latest close received for the symbol
func (b *VirtualBroker) LatestPrice(symbol string) (decimal.Decimal, bool) {
	bar, ok := b.latest[normalise(symbol)]
	if !ok {
		return decimal.Zero, false
	}
	return bar.Close, true
}

// DispatchErrors returns and clears failures raised by event handlers while
// the broker was publishing
func (b *VirtualBroker) DispatchErrors() error {
	err := b.dispatchErr
	b.dispatchErr = nil
	return err
}

// Reset clears all orders, fills and prices and resets the ledger
func (b *VirtualBroker) Reset() {
	b.nextID = 0
	b.orders = make(map[int64]*order.Order)
	b.open = nil
	b.fills = nil
	b.latest = make(map[string]*kline.Kline)
	b.clock = time.Time{}
	b.dispatchErr = nil
	b.ledger.Reset()
	for _, r := range b.rules {
		r.OnNewDay(time.Time{})
	}
}

func (b *VirtualBroker) validate(o *order.Order) (*contract.Contract, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	c, err := b.registry.Get(o.Symbol)
	if err != nil {
		return nil, err
	}
	if err = c.ValidateQuantity(o.Quantity); err != nil {
		return nil, err
	}
	if o.Type == order.Limit {
		if err = c.ValidatePrice(o.LimitPrice); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (b *VirtualBroker) checkRules(o *order.Order) error {
	if len(b.rules) == 0 {
		return nil
	}
	pos := b.ledger.Position(o.Symbol)
	ref, _ := b.LatestPrice(o.Symbol)
	for _, r := range b.rules {
		if err := r.Check(o, pos, ref); err != nil {
			return fmt.Errorf("%w: %s: %w", common.ErrRuleViolation, r.Name(), err)
		}
	}
	return nil
}

// checkMargin previews the full fill at the symbol's latest close
func (b *VirtualBroker) checkMargin(o *order.Order, c *contract.Contract) error {
	ref, ok := b.LatestPrice(o.Symbol)
	if !ok {
		if o.Type != order.Limit {
			return fmt.Errorf("%w: %w %s", common.ErrValidation, errNoReferencePrice, o.Symbol)
		}
		ref = o.LimitPrice
	}
	acc, err := b.ledger.Preview(o.Symbol, o.SignedQuantity(o.Quantity), ref, c.Commission(o.Quantity, ref))
	if err != nil {
		return err
	}
	if acc.MarginAvailable.IsNegative() {
		return fmt.Errorf("%w: %s %d lots at %v requires margin %v, equity %v",
			common.ErrInsufficientMargin, o.Symbol, o.Quantity, ref, acc.MarginUsed, acc.Equity)
	}
	return nil
}

// evaluate fills as much of the order as the bar and policy allow
func (b *VirtualBroker) evaluate(o *order.Order, bar *kline.Kline) {
	if !o.Status.IsCancellable() {
		return
	}
	var price decimal.Decimal
	switch o.Type {
	case order.Market:
		price = bar.Close
		if b.policy.Timing == NextBarOpen {
			price = bar.Open
		}
	case order.Limit:
		if !limitReached(o, bar) {
			return
		}
		price = o.LimitPrice
	}
	c, err := b.registry.Get(o.Symbol)
	if err != nil {
		b.reject(o, err)
		return
	}
	qty := o.Remaining()
	if b.policy.VolumeLimit.IsPositive() {
		available := c.RoundToLot(bar.Volume.Mul(b.policy.VolumeLimit).IntPart())
		if available <= 0 {
			log.Debugf(log.Broker, "%v order %d waiting for volume, bar volume %v", bar.Time, o.ID, bar.Volume)
			return
		}
		qty = min(qty, available)
	}
	commission := c.Commission(qty, price)
	if _, err = b.ledger.ApplyFill(o.Symbol, o.SignedQuantity(qty), price, commission, bar.Time); err != nil {
		b.reject(o, err)
		return
	}
	if err = o.ApplyFill(qty, price, commission, bar.Time); err != nil {
		// the ledger has already booked the fill, the order must follow
		log.Errorf(log.Broker, "order %d: %v", o.ID, err)
	}
	f := fill.New(o, qty, price, commission, bar.Time)
	b.fills = append(b.fills, f)
	if len(b.rules) > 0 {
		pos := b.ledger.Position(o.Symbol)
		for _, r := range b.rules {
			r.OnFill(f, pos)
		}
	}
	if o.Status == order.Filled {
		b.removeOpen(o.ID)
	}
	log.Debugf(log.Broker, "%v filled order %d %v %v %d @ %v commission %v", bar.Time, o.ID, o.Symbol, o.Side, qty, price, commission)
	b.publish(f.Copy())
}

// limitReached reports whether the bar traded at or through the limit on the
// order's side: a buy needs a low at or below it, a sell a high at or above
func limitReached(o *order.Order, bar *kline.Kline) bool {
	if o.Side == order.Buy {
		return bar.TradedAtOrBelow(o.LimitPrice)
	}
	return bar.TradedAtOrAbove(o.LimitPrice)
}

func (b *VirtualBroker) reject(o *order.Order, reason error) {
	o.Status = order.Rejected
	o.Reason = reason.Error()
	o.UpdateTime = b.clock
	b.removeOpen(o.ID)
	log.Warnf(log.Broker, "%v rejected order %d %v %v %d: %v", b.clock, o.ID, o.Symbol, o.Side, o.Quantity, reason)
	b.publish(order.NewEvent(common.OrderRejected, o, b.clock, reason))
}

func (b *VirtualBroker) removeOpen(id int64) {
	for i := range b.open {
		if b.open[i] == id {
			b.open = append(b.open[:i], b.open[i+1:]...)
			return
		}
	}
}

func (b *VirtualBroker) publish(e common.Event) {
	if err := b.bus.Publish(e); err != nil {
		b.dispatchErr = gctcommon.AppendError(b.dispatchErr, err)
	}
}

func normalise(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
