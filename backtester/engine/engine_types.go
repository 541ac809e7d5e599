package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/findwinds/QuantCode/backtester/broker"
	"github.com/findwinds/QuantCode/backtester/contract"
	"github.com/findwinds/QuantCode/backtester/data"
	"github.com/findwinds/QuantCode/backtester/eventtypes/fill"
	"github.com/findwinds/QuantCode/backtester/eventtypes/order"
	"github.com/findwinds/QuantCode/backtester/ledger"
	"github.com/findwinds/QuantCode/backtester/statistics"
	"github.com/findwinds/QuantCode/backtester/strategies"
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

// Run statuses reported in summaries
const (
	StatusPending  = "pending"
	StatusRunning  = "running"
	StatusComplete = "complete"
	StatusFailed   = "failed"
	StatusStopped  = "stopped"
)

var (
	errNilConfig           = errors.New("unable to setup backtester with nil config")
	errNoSymbols           = errors.New("no symbols to replay")
	errInitialCapitalZero  = errors.New("initial capital must be positive")
	errInvalidDateRange    = errors.New("end date must be after start date")
	errRunNotFound         = errors.New("run not found")
	errRunAlreadyMonitored = errors.New("run already monitored")
	errAlreadyRan          = errors.New("run already ran")
	errRunHasNotRan        = errors.New("run hasn't ran yet")
	errRunIsRunning        = errors.New("run is already running")
	errCannotClear         = errors.New("cannot clear run")
)

// Config is everything needed to construct a replay
type Config struct {
	Nickname       string
	InitialCapital decimal.Decimal
	Contracts      []contract.Contract
	Symbols        []string
	// Start and End bound the replay. Zero values leave that side open.
	Start        time.Time
	End          time.Time
	FillPolicy   broker.FillPolicy
	Rules        broker.RuleSettings
	RiskFreeRate decimal.Decimal
}

// BackTest replays a data set through a strategy and a virtual broker. Every
// call to Run builds a fresh registry, ledger, bus and broker.
type BackTest struct {
	config   Config
	strategy strategies.Handler
	provider data.Provider

	m        sync.Mutex
	MetaData RunMetaData
	running  bool
	ran      bool
	stopped  bool
	cancel   context.CancelFunc
	report   *Report
	err      error
}

// RunMetaData describes a run for the run manager
type RunMetaData struct {
	ID          uuid.UUID `json:"id"`
	Nickname    string    `json:"nickname"`
	Strategy    string    `json:"strategy"`
	DateLoaded  time.Time `json:"date-loaded"`
	DateStarted time.Time `json:"date-started"`
	DateEnded   time.Time `json:"date-ended"`
}

// Report is the result of a completed run
type Report struct {
	MetaData       RunMetaData                `json:"meta-data"`
	InitialCapital decimal.Decimal            `json:"initial-capital"`
	Symbols        []string                   `json:"symbols"`
	EquityCurve    []statistics.EquityPoint   `json:"equity-curve"`
	Fills          []*fill.Fill               `json:"fills"`
	Orders         []order.Order              `json:"orders"`
	FinalAccount   ledger.Account             `json:"final-account"`
	FinalPositions map[string]ledger.Position `json:"final-positions"`
	Statistics     *statistics.Statistic      `json:"statistics"`
}

// RunSummary is a light overview of a managed run
type RunSummary struct {
	MetaData    RunMetaData     `json:"meta-data"`
	Status      string          `json:"status"`
	FinalEquity decimal.Decimal `json:"final-equity"`
	TotalReturn decimal.Decimal `json:"total-return"`
	Fills       int             `json:"fills"`
	Error       string          `json:"error,omitempty"`
}

// RunManager contains all runs
type RunManager struct {
	m    sync.Mutex
	runs []*BackTest
}
