package engine

import (
	"fmt"
	"io"
	"strings"

	"github.com/findwinds/QuantCode/backtester/config"
	"github.com/findwinds/QuantCode/backtester/data"
	"github.com/findwinds/QuantCode/backtester/data/kline/csv"
	"github.com/findwinds/QuantCode/backtester/data/kline/database"
	"github.com/findwinds/QuantCode/backtester/strategies"
	gctcommon "github.com/findwinds/QuantCode/common"
	"github.com/findwinds/QuantCode/log"
)

// NewFromConfig takes a run config and builds the strategy, contracts and
// data provider it describes. The caller must Close the backtest to release
// any database connection.
func NewFromConfig(cfg *config.Config) (*BackTest, error) {
	if cfg == nil {
		return nil, errNilConfig
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	strategy, err := strategies.LoadStrategyByName(cfg.StrategySettings.Name)
	if err != nil {
		return nil, err
	}
	if len(cfg.StrategySettings.CustomSettings) > 0 {
		if err = strategy.SetCustomSettings(cfg.StrategySettings.CustomSettings); err != nil {
			return nil, err
		}
	}
	ec, err := ConfigFromRunConfig(cfg)
	if err != nil {
		return nil, err
	}
	provider, err := setupProvider(&cfg.DataSettings)
	if err != nil {
		return nil, err
	}
	bt, err := New(ec, strategy, provider)
	if err != nil {
		if c, ok := provider.(io.Closer); ok {
			err = gctcommon.AppendError(err, c.Close())
		}
		return nil, err
	}
	log.Infof(log.BackTester, "loaded %s with strategy %s, %d contracts and %s data", cfg.Nickname, strategy.Name(), len(ec.Contracts), cfg.DataSettings.Source)
	return bt, nil
}

// ConfigFromRunConfig converts a run config into an engine config, loading
// its contracts
func ConfigFromRunConfig(cfg *config.Config) (*Config, error) {
	if cfg == nil {
		return nil, errNilConfig
	}
	contracts, err := cfg.GetContracts()
	if err != nil {
		return nil, err
	}
	return &Config{
		Nickname:       cfg.Nickname,
		InitialCapital: cfg.InitialCapital,
		Contracts:      contracts,
		Symbols:        cfg.Symbols,
		Start:          cfg.StartDate,
		End:            cfg.EndDate,
		FillPolicy:     cfg.FillPolicy,
		Rules:          cfg.Rules,
		RiskFreeRate:   cfg.RiskFreeRate,
	}, nil
}

func setupProvider(s *config.DataSettings) (data.Provider, error) {
	switch strings.ToLower(s.Source) {
	case config.CSVSource:
		loc, err := s.CSVData.TimeLocation()
		if err != nil {
			return nil, err
		}
		return csv.NewProvider(s.CSVData.Directory, loc)
	case config.DatabaseSource:
		p, err := database.Connect(*s.DatabaseData)
		if err != nil {
			return nil, err
		}
		if err = p.Migrate("up"); err != nil {
			return nil, gctcommon.AppendError(err, p.Close())
		}
		return p, nil
	}
	return nil, fmt.Errorf("unknown data source %q", s.Source)
}

// Close releases the data provider when it holds resources
func (bt *BackTest) Close() error {
	if bt == nil {
		return nil
	}
	if c, ok := bt.provider.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
