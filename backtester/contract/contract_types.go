package contract

import (
	"errors"

	"github.com/shopspring/decimal"
)

// CommissionType defines how a contract's commission rate is applied
type CommissionType string

// Supported commission schedules
const (
	// Fixed charges the rate once per fill
	Fixed CommissionType = "fixed"
	// PerUnit charges the rate for every lot filled
	PerUnit CommissionType = "per-unit"
	// Percentage charges the rate against the filled notional
	Percentage CommissionType = "percentage"
)

var (
	errInvalidMultiplier     = errors.New("multiplier must be positive")
	errInvalidMarginRate     = errors.New("margin rate must be within (0, 1]")
	errInvalidCommissionRate = errors.New("commission rate cannot be negative")
	errInvalidCommissionType = errors.New("invalid commission type")
	errInvalidTickSize       = errors.New("tick size must be positive")
	errInvalidLotSize        = errors.New("lot size must be positive")
	errNoContractSymbol      = errors.New("contract has no symbol")
	errDuplicateContract     = errors.New("duplicate contract")
	errNotLotAligned         = errors.New("quantity is not a multiple of lot size")
	errNotTickAligned        = errors.New("price is not aligned to tick size")
)

// Contract holds the trading parameters of a symbol. A Contract is immutable
// once it is registered.
type Contract struct {
	Symbol         string          `json:"symbol"`
	Name           string          `json:"name,omitempty"`
	Exchange       string          `json:"exchange,omitempty"`
	Multiplier     decimal.Decimal `json:"multiplier"`
	MarginRate     decimal.Decimal `json:"margin-rate"`
	CommissionRate decimal.Decimal `json:"commission-rate"`
	CommissionType CommissionType  `json:"commission-type"`
	MinCommission  decimal.Decimal `json:"min-commission"`
	TickSize       decimal.Decimal `json:"tick-size"`
	LotSize        int64           `json:"lot-size"`
}

// Registry is a read-only lookup of contracts by symbol
type Registry struct {
	contracts map[string]Contract
}
