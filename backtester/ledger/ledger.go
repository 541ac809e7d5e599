package ledger

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/findwinds/QuantCode/backtester/common"
	"github.com/findwinds/QuantCode/backtester/contract"
	"github.com/findwinds/QuantCode/backtester/eventtypes/event"
	gctcommon "github.com/findwinds/QuantCode/common"
	"github.com/shopspring/decimal"
)

// New creates a ledger funded with initial capital
func New(initialCapital decimal.Decimal, registry *contract.Registry) (*Ledger, error) {
	if registry == nil {
		return nil, fmt.Errorf("%w registry", gctcommon.ErrNilPointer)
	}
	if !initialCapital.IsPositive() {
		return nil, ErrInitialFundsZero
	}
	return &Ledger{
		registry:       registry,
		initialCapital: initialCapital,
		cash:           initialCapital,
		positions:      make(map[string]*Position),
	}, nil
}

// Reset returns the ledger to its initial funded state
func (l *Ledger) Reset() {
	l.cash = l.initialCapital
	l.positions = make(map[string]*Position)
	l.updateTime = time.Time{}
}

// Preview returns the account as it would be after filling qty (signed) lots
// of symbol at price with the given commission. The ledger is not mutated.
func (l *Ledger) Preview(symbol string, qty int64, price, commission decimal.Decimal) (Account, error) {
	next, key, err := l.project(symbol, qty, price, commission, l.updateTime)
	if err != nil {
		return Account{}, err
	}
	cash := l.cash.Add(next.RealizedPnL.Sub(l.position(key).RealizedPnL))
	return l.account(cash, key, &next), nil
}

// ApplyFill books a fill of qty (signed) lots at price. Position and cash are
// updated together, or not at all when the resulting available margin would
// be negative.
func (l *Ledger) ApplyFill(symbol string, qty int64, price, commission decimal.Decimal, t time.Time) (Position, error) {
	next, key, err := l.project(symbol, qty, price, commission, t)
	if err != nil {
		return Position{}, err
	}
	cash := l.cash.Add(next.RealizedPnL.Sub(l.position(key).RealizedPnL))
	if acc := l.account(cash, key, &next); acc.MarginAvailable.IsNegative() {
		return Position{}, fmt.Errorf("%w: %s margin used %v, available after fill %v",
			common.ErrInsufficientMargin, key, acc.MarginUsed, acc.MarginAvailable)
	}
	l.cash = cash
	l.positions[key] = &next
	l.updateTime = t
	return next, nil
}

// MarkToMarket revalues the symbol's position at price. Flat or unknown
// positions only record the price.
func (l *Ledger) MarkToMarket(symbol string, price decimal.Decimal, t time.Time) error {
	c, err := l.registry.Get(symbol)
	if err != nil {
		return err
	}
	if !price.IsPositive() {
		return fmt.Errorf("%s %w", symbol, errInvalidPrice)
	}
	key := normalise(symbol)
	p, ok := l.positions[key]
	if !ok {
		p = &Position{Symbol: key}
		l.positions[key] = p
	}
	p.revalue(c, price)
	p.UpdateTime = t
	l.updateTime = t
	return nil
}

// Account returns the current account totals
func (l *Ledger) Account() Account {
	return l.account(l.cash, "", nil)
}

// Position returns a copy of the symbol's position; unknown symbols return a
// flat position
func (l *Ledger) Position(symbol string) Position {
	return l.position(normalise(symbol))
}

// Positions returns copies of every position ordered by symbol
func (l *Ledger) Positions() []Position {
	resp := make([]Position, 0, len(l.positions))
	for _, p := range l.positions {
		resp = append(resp, *p)
	}
	sort.Slice(resp, func(i, j int) bool {
		return resp[i].Symbol < resp[j].Symbol
	})
	return resp
}

// Snapshot captures the account and positions as an ACCOUNT event
func (l *Ledger) Snapshot(t time.Time) *Snapshot {
	return &Snapshot{
		Base:      event.NewBase("", t, 0),
		Account:   l.Account(),
		Positions: l.Positions(),
	}
}

// Kind returns ACCOUNT
func (s *Snapshot) Kind() common.EventKind {
	return common.Account
}

func (l *Ledger) position(symbol string) Position {
	if p, ok := l.positions[symbol]; ok {
		return *p
	}
	return Position{Symbol: symbol}
}

// project computes the position that results from a fill without mutating
func (l *Ledger) project(symbol string, qty int64, price, commission decimal.Decimal, t time.Time) (Position, string, error) {
	c, err := l.registry.Get(symbol)
	if err != nil {
		return Position{}, "", err
	}
	if qty == 0 {
		return Position{}, "", errZeroQuantity
	}
	if !price.IsPositive() {
		return Position{}, "", fmt.Errorf("%s %w", symbol, errInvalidPrice)
	}
	key := normalise(symbol)
	p := l.position(key)
	p.applyFill(c, qty, price, commission)
	p.UpdateTime = t
	return p, key, nil
}

// account totals the ledger, substituting override for the named symbol
func (l *Ledger) account(cash decimal.Decimal, symbol string, override *Position) Account {
	acc := Account{
		InitialCapital: l.initialCapital,
		Cash:           cash,
		UpdateTime:     l.updateTime,
	}
	add := func(p *Position) {
		acc.UnrealizedPnL = acc.UnrealizedPnL.Add(p.UnrealizedPnL)
		acc.RealizedPnL = acc.RealizedPnL.Add(p.RealizedPnL)
		acc.MarginUsed = acc.MarginUsed.Add(p.MarginUsed)
		acc.Commission = acc.Commission.Add(p.Commission)
	}
	for k, p := range l.positions {
		if override != nil && k == symbol {
			continue
		}
		add(p)
	}
	if override != nil {
		add(override)
	}
	acc.Equity = acc.Cash.Add(acc.UnrealizedPnL)
	acc.MarginAvailable = acc.Equity.Sub(acc.MarginUsed)
	return acc
}

// applyFill nets qty lots at price into the position. Same direction adds
// update the volume weighted average cost; reducing or reversing quantity
// books realized P&L against the average cost. Commission is always booked
// as a realized loss.
func (p *Position) applyFill(c *contract.Contract, qty int64, price, commission decimal.Decimal) {
	current := p.NetQuantity
	switch {
	case current == 0 || (current > 0) == (qty > 0):
		held := decimal.NewFromInt(abs(current))
		incoming := decimal.NewFromInt(abs(qty))
		p.AverageCost = p.AverageCost.Mul(held).Add(price.Mul(incoming)).Div(held.Add(incoming))
	default:
		closing := min(abs(qty), abs(current))
		direction := decimal.NewFromInt(sign(current))
		pnl := decimal.NewFromInt(closing).Mul(c.Multiplier).Mul(price.Sub(p.AverageCost)).Mul(direction)
		p.RealizedPnL = p.RealizedPnL.Add(pnl)
		switch remaining := current + qty; {
		case remaining == 0:
			p.AverageCost = decimal.Zero
		case sign(remaining) != sign(current):
			p.AverageCost = price
		}
	}
	p.NetQuantity = current + qty
	p.RealizedPnL = p.RealizedPnL.Sub(commission)
	p.Commission = p.Commission.Add(commission)
	p.revalue(c, price)
}

// revalue recomputes unrealized P&L and margin from the mark price
func (p *Position) revalue(c *contract.Contract, price decimal.Decimal) {
	p.LastPrice = price
	if p.NetQuantity == 0 {
		p.UnrealizedPnL = decimal.Zero
		p.MarginUsed = decimal.Zero
		return
	}
	p.UnrealizedPnL = decimal.NewFromInt(p.NetQuantity).Mul(c.Multiplier).Mul(price.Sub(p.AverageCost))
	p.MarginUsed = c.Margin(p.NetQuantity, price)
}

// IsFlat returns whether no lots are held
func (p Position) IsFlat() bool {
	return p.NetQuantity == 0
}

// normalise keys positions by the traded symbol so that contract months of
// the same product are held separately
func normalise(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int64) int64 {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	}
	return 0
}
