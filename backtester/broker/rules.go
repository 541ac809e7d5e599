package broker

import (
	"errors"
	"fmt"
	"time"

	"github.com/findwinds/QuantCode/backtester/eventtypes/fill"
	"github.com/findwinds/QuantCode/backtester/eventtypes/order"
	"github.com/findwinds/QuantCode/backtester/ledger"
	"github.com/shopspring/decimal"
)

// Rule names
const (
	TPlusOneRuleName    = "t-plus-one"
	MaxPositionRuleName = "max-position"
)

var (
	errInvalidMaxPosition  = errors.New("max position cannot be negative")
	errClosesTodaysLots    = errors.New("lots opened today cannot be closed until the next trading day")
	errExceedsPositionSize = errors.New("order exceeds the maximum position")
)

// Rule is consulted for every order after validation and before margining.
// An error from Check rejects the order with ErrRuleViolation. A broker
// owns its rules, they are not shared between runs.
type Rule interface {
	Name() string
	Check(o *order.Order, pos ledger.Position, price decimal.Decimal) error
	// OnFill receives every fill with the position after it was booked
	OnFill(f *fill.Fill, pos ledger.Position)
	// OnNewDay is called when the trading date changes and on reset
	OnNewDay(day time.Time)
}

// RuleSettings selects the built in rules for a run
type RuleSettings struct {
	TPlusOne bool `json:"t-plus-one"`
	// MaxPosition caps the absolute net lots per symbol. Zero disables it.
	MaxPosition int64 `json:"max-position"`
}

// Validate ensures the settings are usable
func (s *RuleSettings) Validate() error {
	if s.MaxPosition < 0 {
		return fmt.Errorf("%w, received %d", errInvalidMaxPosition, s.MaxPosition)
	}
	return nil
}

// Build creates fresh rules for the settings
func (s *RuleSettings) Build() []Rule {
	var rules []Rule
	if s.TPlusOne {
		rules = append(rules, NewTPlusOneRule())
	}
	if s.MaxPosition > 0 {
		rules = append(rules, &MaxPositionRule{Limit: s.MaxPosition})
	}
	return rules
}

// TPlusOneRule refuses orders that would close lots opened on the current
// trading day. Older lots are closed first.
type TPlusOneRule struct {
	opened map[string]int64
}

// NewTPlusOneRule creates the rule with no lots opened
func NewTPlusOneRule() *TPlusOneRule {
	return &TPlusOneRule{opened: make(map[string]int64)}
}

// Name returns the rule name
func (r *TPlusOneRule) Name() string {
	return TPlusOneRuleName
}

// Check refuses reducing orders larger than the lots held from earlier days
func (r *TPlusOneRule) Check(o *order.Order, pos ledger.Position, _ decimal.Decimal) error {
	delta := o.SignedQuantity(o.Quantity)
	net := pos.NetQuantity
	if net == 0 || (net > 0) == (delta > 0) {
		return nil
	}
	closing := min(abs(delta), abs(net))
	if closable := abs(net) - abs(r.opened[o.Symbol]); closing > closable {
		return fmt.Errorf("%w: %s closing %d lots, %d held from earlier days", errClosesTodaysLots, o.Symbol, closing, closable)
	}
	return nil
}

// OnFill tracks the lots opened today that are still held
func (r *TPlusOneRule) OnFill(f *fill.Fill, pos ledger.Position) {
	q := f.GetSignedQuantity()
	pre := pos.NetQuantity - q
	opened := r.opened[f.Symbol]
	switch {
	case pre == 0 || (pre > 0) == (q > 0):
		opened += q
	case abs(q) >= abs(pre):
		opened = q + pre
	default:
		if c := abs(q) - (abs(pre) - abs(opened)); c > 0 {
			if opened > 0 {
				opened -= c
			} else {
				opened += c
			}
		}
	}
	if opened == 0 {
		delete(r.opened, f.Symbol)
		return
	}
	r.opened[f.Symbol] = opened
}

// OnNewDay releases every lot opened on the previous day
func (r *TPlusOneRule) OnNewDay(time.Time) {
	r.opened = make(map[string]int64)
}

// MaxPositionRule refuses orders that would take a symbol's absolute net
// position above Limit lots
type MaxPositionRule struct {
	Limit int64
}

// Name returns the rule name
func (r *MaxPositionRule) Name() string {
	return MaxPositionRuleName
}

// Check refuses orders whose full fill would exceed the limit
func (r *MaxPositionRule) Check(o *order.Order, pos ledger.Position, _ decimal.Decimal) error {
	after := pos.NetQuantity + o.SignedQuantity(o.Quantity)
	if abs(after) > r.Limit && abs(after) > abs(pos.NetQuantity) {
		return fmt.Errorf("%w: %s would hold %d lots, limit %d", errExceedsPositionSize, o.Symbol, after, r.Limit)
	}
	return nil
}

// OnFill is a no-op
func (r *MaxPositionRule) OnFill(*fill.Fill, ledger.Position) {}

// OnNewDay is a no-op
func (r *MaxPositionRule) OnNewDay(time.Time) {}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
