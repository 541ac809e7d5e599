package contract

import (
	"fmt"
	"sort"
	"strings"

	"github.com/findwinds/QuantCode/backtester/common"
	gctcommon "github.com/findwinds/QuantCode/common"
	"github.com/shopspring/decimal"
)

// IsValid returns whether the commission type is supported
func (c CommissionType) IsValid() bool {
	switch c {
	case Fixed, PerUnit, Percentage:
		return true
	}
	return false
}

// Validate ensures the contract parameters are usable
func (c *Contract) Validate() error {
	if c == nil {
		return fmt.Errorf("%w contract", gctcommon.ErrNilPointer)
	}
	switch {
	case strings.TrimSpace(c.Symbol) == "":
		return errNoContractSymbol
	case !c.Multiplier.IsPositive():
		return fmt.Errorf("%s %w", c.Symbol, errInvalidMultiplier)
	case !c.MarginRate.IsPositive() || c.MarginRate.GreaterThan(decimal.NewFromInt(1)):
		return fmt.Errorf("%s %w, received %v", c.Symbol, errInvalidMarginRate, c.MarginRate)
	case c.CommissionRate.IsNegative() || c.MinCommission.IsNegative():
		return fmt.Errorf("%s %w", c.Symbol, errInvalidCommissionRate)
	case !c.CommissionType.IsValid():
		return fmt.Errorf("%s %w %q", c.Symbol, errInvalidCommissionType, c.CommissionType)
	case !c.TickSize.IsPositive():
		return fmt.Errorf("%s %w", c.Symbol, errInvalidTickSize)
	case c.LotSize <= 0:
		return fmt.Errorf("%s %w", c.Symbol, errInvalidLotSize)
	}
	return nil
}

// Commission returns the commission charged for filling qty lots at price
func (c *Contract) Commission(qty int64, price decimal.Decimal) decimal.Decimal {
	lots := decimal.NewFromInt(qty).Abs()
	var fee decimal.Decimal
	switch c.CommissionType {
	case Fixed:
		fee = c.CommissionRate
	case PerUnit:
		fee = lots.Mul(c.CommissionRate)
	default:
		fee = c.Notional(qty, price).Mul(c.CommissionRate)
	}
	return decimal.Max(fee, c.MinCommission)
}

// Notional returns |qty| × multiplier × price
func (c *Contract) Notional(qty int64, price decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(qty).Abs().Mul(c.Multiplier).Mul(price)
}

// Margin returns the margin reserved for holding qty lots at price
func (c *Contract) Margin(qty int64, price decimal.Decimal) decimal.Decimal {
	return c.Notional(qty, price).Mul(c.MarginRate)
}

// ValidateQuantity ensures qty is a positive multiple of the lot size
func (c *Contract) ValidateQuantity(qty int64) error {
	if qty <= 0 || qty%c.LotSize != 0 {
		return fmt.Errorf("%w: %w, %s quantity %d lot size %d",
			common.ErrValidation, errNotLotAligned, c.Symbol, qty, c.LotSize)
	}
	return nil
}

// ValidatePrice ensures price is a positive multiple of the tick size
func (c *Contract) ValidatePrice(price decimal.Decimal) error {
	if !price.IsPositive() || !price.Mod(c.TickSize).IsZero() {
		return fmt.Errorf("%w: %w, %s price %v tick size %v",
			common.ErrValidation, errNotTickAligned, c.Symbol, price, c.TickSize)
	}
	return nil
}

// RoundToLot floors qty down to the nearest lot multiple
func (c *Contract) RoundToLot(qty int64) int64 {
	return qty - qty%c.LotSize
}

// NewRegistry validates and registers contracts. Contract symbols are matched
// case-insensitively.
func NewRegistry(contracts ...Contract) (*Registry, error) {
	r := &Registry{contracts: make(map[string]Contract, len(contracts))}
	for i := range contracts {
		if err := contracts[i].Validate(); err != nil {
			return nil, err
		}
		key := strings.ToUpper(strings.TrimSpace(contracts[i].Symbol))
		if _, ok := r.contracts[key]; ok {
			return nil, fmt.Errorf("%w %s", errDuplicateContract, key)
		}
		c := contracts[i]
		c.Symbol = key
		r.contracts[key] = c
	}
	return r, nil
}

// Get returns the contract for a symbol, falling back to its base symbol so
// that RB2310 resolves to the RB contract
func (r *Registry) Get(symbol string) (*Contract, error) {
	if r == nil {
		return nil, fmt.Errorf("%w registry", gctcommon.ErrNilPointer)
	}
	key := strings.ToUpper(strings.TrimSpace(symbol))
	if c, ok := r.contracts[key]; ok {
		return &c, nil
	}
	if c, ok := r.contracts[common.BaseSymbol(key)]; ok {
		return &c, nil
	}
	return nil, fmt.Errorf("%w %q", common.ErrUnknownSymbol, symbol)
}

// Symbols returns every registered contract symbol in sorted order
func (r *Registry) Symbols() []string {
	if r == nil {
		return nil
	}
	resp := make([]string, 0, len(r.contracts))
	for k := range r.contracts {
		resp = append(resp, k)
	}
	sort.Strings(resp)
	return resp
}

// Len returns the number of contracts held
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.contracts)
}
