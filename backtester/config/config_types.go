package config

import (
	"errors"
	"time"

	"github.com/findwinds/QuantCode/backtester/broker"
	"github.com/findwinds/QuantCode/backtester/contract"
	"github.com/findwinds/QuantCode/backtester/data/kline/database"
	"github.com/findwinds/QuantCode/log"
	"github.com/shopspring/decimal"
)

// Data sources a run can read bars from
const (
	CSVSource      = "csv"
	DatabaseSource = "database"
)

// Report formats that can be written after a run
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatHTML = "html"
	FormatText = "text"
)

var (
	errFileNotFound          = errors.New("file not found")
	errNoStrategy            = errors.New("no strategy set")
	errNoSymbols             = errors.New("no symbols set")
	errInitialCapitalZero    = errors.New("initial capital must be positive")
	errNegativeRiskFreeRate  = errors.New("risk free rate cannot be negative")
	errEndBeforeStart        = errors.New("end date must be after start date")
	errUnknownDataSource     = errors.New("unknown data source")
	errNoCSVDirectory        = errors.New("csv data source requires a directory")
	errNoDatabaseConfig      = errors.New("database data source requires database settings")
	errNoContracts           = errors.New("no contracts set, provide contracts or a contracts file")
	errUnknownLocation       = errors.New("unknown time location")
	errUnsupportedFormat     = errors.New("unsupported report format")
	errEmptyContractFile     = errors.New("contract file holds no contracts")
	errInvalidContractsField = errors.New("contracts must be an array")
)

// legacyContractKeys maps keys used by older configs to their current names
var legacyContractKeys = []struct {
	legacy, current string
}{
	{"trading_unit", "multiplier"},
	{"price_tick", "tick-size"},
	{"margin_ratio", "margin-rate"},
	{"fee_rate", "commission-rate"},
}

// Config defines what is in an individual run config
type Config struct {
	Nickname         string              `json:"nickname"`
	Goal             string              `json:"goal"`
	StrategySettings StrategySettings    `json:"strategy-settings"`
	InitialCapital   decimal.Decimal     `json:"initial-capital"`
	Symbols          []string            `json:"symbols"`
	StartDate        time.Time           `json:"start-date"`
	EndDate          time.Time           `json:"end-date"`
	DataSettings     DataSettings        `json:"data-settings"`
	FillPolicy       broker.FillPolicy   `json:"fill-policy"`
	Rules            broker.RuleSettings `json:"rules"`
	ContractsFile    string              `json:"contracts-file,omitempty"`
	Contracts        []contract.Contract `json:"contracts,omitempty"`
	RiskFreeRate     decimal.Decimal     `json:"risk-free-rate"`
	OutputSettings   OutputSettings      `json:"output-settings"`
	LogSettings      *log.Config         `json:"log-settings,omitempty"`
}

// StrategySettings names the strategy to load and its custom settings
type StrategySettings struct {
	Name           string         `json:"name"`
	CustomSettings map[string]any `json:"custom-settings,omitempty"`
}

// DataSettings selects where bars are read from
type DataSettings struct {
	Source       string           `json:"source"`
	CSVData      *CSVData         `json:"csv-data,omitempty"`
	DatabaseData *database.Config `json:"database-data,omitempty"`
}

// CSVData holds the settings for reading one CSV file per symbol
type CSVData struct {
	Directory string `json:"directory"`
	// Location is the IANA zone for timestamps without an offset. Empty is UTC.
	Location string `json:"location,omitempty"`
}

// OutputSettings controls where and how reports are written
type OutputSettings struct {
	Directory string   `json:"directory"`
	Formats   []string `json:"formats"`
}

// contractEntry is how a contract is written in a contract file. Legacy key
// names are still accepted.
type contractEntry struct {
	Name           string  `mapstructure:"name"`
	Exchange       string  `mapstructure:"exchange"`
	Multiplier     float64 `mapstructure:"multiplier"`
	TradingUnit    float64 `mapstructure:"trading_unit"`
	MarginRate     float64 `mapstructure:"margin_rate"`
	MarginRatio    float64 `mapstructure:"margin_ratio"`
	CommissionRate float64 `mapstructure:"commission_rate"`
	FeeRate        float64 `mapstructure:"fee_rate"`
	CommissionType string  `mapstructure:"commission_type"`
	MinCommission  float64 `mapstructure:"min_commission"`
	TickSize       float64 `mapstructure:"tick_size"`
	PriceTick      float64 `mapstructure:"price_tick"`
	LotSize        int64   `mapstructure:"lot_size"`
}
