package statistics

import (
	"errors"
	"time"

	"github.com/findwinds/QuantCode/backtester/contract"
	"github.com/findwinds/QuantCode/backtester/eventtypes/fill"
	"github.com/shopspring/decimal"
)

var (
	errReceivedNoData     = errors.New("received no data")
	errInitialCapitalZero = errors.New("initial capital must be positive")
)

// EquityPoint is the account state recorded after each timestamp slice
type EquityPoint struct {
	Time          time.Time       `json:"time"`
	Equity        decimal.Decimal `json:"equity"`
	Cash          decimal.Decimal `json:"cash"`
	UnrealizedPnL decimal.Decimal `json:"unrealized-pnl"`
	MarginUsed    decimal.Decimal `json:"margin-used"`
}

// Input is everything needed to evaluate a finished run
type Input struct {
	InitialCapital decimal.Decimal
	EquityCurve    []EquityPoint
	Fills          []*fill.Fill
	Registry       *contract.Registry
	// RiskFreeRate is an annual rate, ie 0.02 for 2%
	RiskFreeRate decimal.Decimal
}

// Statistic holds all statistical information for a backtester run, from
// drawdowns to ratios
type Statistic struct {
	StartDate           time.Time       `json:"start-date"`
	EndDate             time.Time       `json:"end-date"`
	Intervals           int64           `json:"intervals"`
	InitialCapital      decimal.Decimal `json:"initial-capital"`
	FinalEquity         decimal.Decimal `json:"final-equity"`
	TotalReturn         decimal.Decimal `json:"total-return"`
	CAGR                decimal.Decimal `json:"compound-annual-growth-rate"`
	MaxDrawdown         Swing           `json:"max-drawdown"`
	RiskFreeRate        decimal.Decimal `json:"risk-free-rate"`
	SharpeRatio         decimal.Decimal `json:"sharpe-ratio"`
	SortinoRatio        decimal.Decimal `json:"sortino-ratio"`
	CalmarRatio         decimal.Decimal `json:"calmar-ratio"`
	// ReturnVolatility is the annualised sample standard deviation of the
	// per interval returns
	ReturnVolatility    decimal.Decimal `json:"return-volatility"`
	TotalFills          int64           `json:"total-fills"`
	BuyFills            int64           `json:"buy-fills"`
	SellFills           int64           `json:"sell-fills"`
	TotalCommission     decimal.Decimal `json:"total-commission"`
	RoundTrips          []RoundTrip     `json:"round-trips"`
	WinningTrips        int64           `json:"winning-trips"`
	LosingTrips         int64           `json:"losing-trips"`
	WinRate             decimal.Decimal `json:"win-rate"`
	// ProfitFactor is gross round trip profit over gross round trip loss,
	// zero when nothing was lost
	ProfitFactor        decimal.Decimal `json:"profit-factor"`
	AverageRoundTripPnL decimal.Decimal `json:"average-round-trip-pnl"`
}

// RoundTrip is a position opened from flat and later returned to flat
type RoundTrip struct {
	Symbol     string          `json:"symbol"`
	EntryTime  time.Time       `json:"entry-time"`
	ExitTime   time.Time       `json:"exit-time"`
	MaxLots    int64           `json:"max-lots"`
	Long       bool            `json:"long"`
	PnL        decimal.Decimal `json:"pnl"`
	Commission decimal.Decimal `json:"commission"`
}

// Swing holds a drawdown
type Swing struct {
	Highest          ValueAtTime     `json:"highest"`
	Lowest           ValueAtTime     `json:"lowest"`
	Drawdown         decimal.Decimal `json:"drawdown"`
	DrawdownPercent  decimal.Decimal `json:"drawdown-percent"`
	IntervalDuration int64           `json:"interval-duration"`
}

// ValueAtTime is an individual iteration of a value at a time
type ValueAtTime struct {
	Time  time.Time       `json:"time"`
	Value decimal.Decimal `json:"value"`
}

type openTrip struct {
	trip     RoundTrip
	net      int64
	cashflow decimal.Decimal
}
