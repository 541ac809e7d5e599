package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/buger/jsonparser"
	"github.com/findwinds/QuantCode/backtester/broker"
	"github.com/findwinds/QuantCode/backtester/contract"
	"github.com/findwinds/QuantCode/backtester/data/kline/database"
	"github.com/findwinds/QuantCode/backtester/strategies"
	gctcommon "github.com/findwinds/QuantCode/common"
	"github.com/findwinds/QuantCode/common/file"
	"github.com/findwinds/QuantCode/log"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// ReadConfigFromFile will take a config from a path. A relative contracts
// file is resolved against the config's directory.
func ReadConfigFromFile(path string) (*Config, error) {
	if !file.Exists(path) {
		return nil, fmt.Errorf("%w %s", errFileNotFound, path)
	}
	fileData, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := LoadConfig(fileData)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if c.ContractsFile != "" && !filepath.IsAbs(c.ContractsFile) {
		c.ContractsFile = filepath.Join(filepath.Dir(path), c.ContractsFile)
	}
	return c, nil
}

// LoadConfig migrates legacy keys and unmarshalls byte data into a config
// struct
func LoadConfig(data []byte) (*Config, error) {
	migrated, err := MigrateLegacyKeys(data)
	if err != nil {
		return nil, err
	}
	resp := &Config{}
	if err = json.Unmarshal(migrated, resp); err != nil {
		return nil, err
	}
	if resp.FillPolicy.Timing == "" {
		resp.FillPolicy.Timing = broker.SameBarClose
	}
	if resp.DataSettings.Source == "" {
		resp.DataSettings.Source = CSVSource
	}
	return resp, nil
}

// MigrateLegacyKeys renames contract keys used by older configs to their
// current names. Documents without a contracts array are returned as is.
func MigrateLegacyKeys(data []byte) ([]byte, error) {
	contracts, dataType, _, err := jsonparser.Get(data, "contracts")
	if err != nil {
		if err == jsonparser.KeyPathNotFoundError {
			return data, nil
		}
		return nil, err
	}
	if dataType == jsonparser.Null {
		return data, nil
	}
	if dataType != jsonparser.Array {
		return nil, fmt.Errorf("%w, received %v", errInvalidContractsField, dataType)
	}
	var (
		migrated [][]byte
		renamed  int
		entryErr error
	)
	_, err = jsonparser.ArrayEach(contracts, func(value []byte, vt jsonparser.ValueType, _ int, _ error) {
		if entryErr != nil {
			return
		}
		entry := append([]byte(nil), value...)
		switch vt {
		case jsonparser.Object:
			var n int
			entry, n, entryErr = renameKeys(entry)
			renamed += n
		case jsonparser.String:
			entry = []byte(`"` + string(value) + `"`)
		}
		migrated = append(migrated, entry)
	})
	if err != nil {
		return nil, err
	}
	if entryErr != nil {
		return nil, entryErr
	}
	if renamed == 0 {
		return data, nil
	}
	log.Warnf(log.ConfigMgr, "migrated %d legacy contract keys, please update the config", renamed)
	var b strings.Builder
	b.WriteByte('[')
	for i := range migrated {
		if i > 0 {
			b.WriteByte(',')
		}
		b.Write(migrated[i])
	}
	b.WriteByte(']')
	return jsonparser.Set(data, []byte(b.String()), "contracts")
}

func renameKeys(entry []byte) ([]byte, int, error) {
	var renamed int
	for _, k := range legacyContractKeys {
		value, vt, _, err := jsonparser.Get(entry, k.legacy)
		if err == jsonparser.KeyPathNotFoundError {
			continue
		}
		if err != nil {
			return nil, 0, err
		}
		if _, _, _, err = jsonparser.Get(entry, k.current); err == jsonparser.KeyPathNotFoundError {
			if vt == jsonparser.String {
				value = []byte(`"` + string(value) + `"`)
			}
			if entry, err = jsonparser.Set(entry, value, k.current); err != nil {
				return nil, 0, err
			}
		}
		entry = jsonparser.Delete(entry, k.legacy)
		renamed++
	}
	return entry, renamed, nil
}

// Validate checks all config settings
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w config", gctcommon.ErrNilPointer)
	}
	var errs error
	errs = gctcommon.AppendError(errs, c.validateStrategySettings())
	errs = gctcommon.AppendError(errs, c.validateRunSettings())
	errs = gctcommon.AppendError(errs, c.validateDataSettings())
	errs = gctcommon.AppendError(errs, c.FillPolicy.Validate())
	errs = gctcommon.AppendError(errs, c.Rules.Validate())
	errs = gctcommon.AppendError(errs, c.validateOutputSettings())
	if c.ContractsFile == "" && len(c.Contracts) == 0 {
		errs = gctcommon.AppendError(errs, errNoContracts)
	}
	return errs
}

func (c *Config) validateStrategySettings() error {
	if c.StrategySettings.Name == "" {
		return errNoStrategy
	}
	s, err := strategies.LoadStrategyByName(c.StrategySettings.Name)
	if err != nil {
		return err
	}
	if len(c.StrategySettings.CustomSettings) == 0 {
		return nil
	}
	return s.SetCustomSettings(c.StrategySettings.CustomSettings)
}

func (c *Config) validateRunSettings() error {
	var errs error
	if !c.InitialCapital.IsPositive() {
		errs = gctcommon.AppendError(errs, errInitialCapitalZero)
	}
	if c.RiskFreeRate.IsNegative() {
		errs = gctcommon.AppendError(errs, errNegativeRiskFreeRate)
	}
	if len(c.Symbols) == 0 {
		errs = gctcommon.AppendError(errs, errNoSymbols)
	}
	if !c.StartDate.IsZero() && !c.EndDate.IsZero() && !c.EndDate.After(c.StartDate) {
		errs = gctcommon.AppendError(errs, fmt.Errorf("%w start %v end %v", errEndBeforeStart, c.StartDate, c.EndDate))
	}
	return errs
}

func (c *Config) validateDataSettings() error {
	switch strings.ToLower(c.DataSettings.Source) {
	case CSVSource:
		if c.DataSettings.CSVData == nil || c.DataSettings.CSVData.Directory == "" {
			return errNoCSVDirectory
		}
		_, err := c.DataSettings.CSVData.TimeLocation()
		return err
	case DatabaseSource:
		if c.DataSettings.DatabaseData == nil {
			return errNoDatabaseConfig
		}
		switch strings.ToLower(c.DataSettings.DatabaseData.Driver) {
		case database.DBSQLite3, "sqlite", database.DBPostgreSQL, "postgresql", "psql":
		default:
			return fmt.Errorf("%w %q", errUnknownDataSource, c.DataSettings.DatabaseData.Driver)
		}
		return nil
	default:
		return fmt.Errorf("%w %q", errUnknownDataSource, c.DataSettings.Source)
	}
}

func (c *Config) validateOutputSettings() error {
	var errs error
	for _, f := range c.OutputSettings.Formats {
		switch strings.ToLower(strings.TrimSpace(f)) {
		case FormatJSON, FormatCSV, FormatHTML, FormatText:
		default:
			errs = gctcommon.AppendError(errs, fmt.Errorf("%w %q", errUnsupportedFormat, f))
		}
	}
	return errs
}

// TimeLocation returns the zone used for timestamps without an offset
func (c *CSVData) TimeLocation() (*time.Location, error) {
	if c == nil || c.Location == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Location)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", errUnknownLocation, c.Location, err)
	}
	return loc, nil
}

// GetContracts returns the inline contracts merged with those from the
// contracts file. Inline contracts override file entries for the same symbol.
func (c *Config) GetContracts() ([]contract.Contract, error) {
	if c == nil {
		return nil, fmt.Errorf("%w config", gctcommon.ErrNilPointer)
	}
	merged := make(map[string]contract.Contract)
	if c.ContractsFile != "" {
		fromFile, err := LoadContracts(c.ContractsFile)
		if err != nil {
			return nil, err
		}
		for i := range fromFile {
			merged[fromFile[i].Symbol] = fromFile[i]
		}
	}
	for i := range c.Contracts {
		ct := c.Contracts[i]
		ct.Symbol = strings.ToUpper(strings.TrimSpace(ct.Symbol))
		if ct.CommissionType == "" {
			ct.CommissionType = contract.Percentage
		}
		if ct.LotSize == 0 {
			ct.LotSize = 1
		}
		merged[ct.Symbol] = ct
	}
	if len(merged) == 0 {
		return nil, errNoContracts
	}
	resp := make([]contract.Contract, 0, len(merged))
	for _, v := range merged {
		resp = append(resp, v)
	}
	sort.Slice(resp, func(i, j int) bool {
		return resp[i].Symbol < resp[j].Symbol
	})
	return resp, nil
}

// LoadContracts reads a YAML or JSON contract file keyed by base symbol. The
// format follows the file extension.
func LoadContracts(path string) ([]contract.Contract, error) {
	if !file.Exists(path) {
		return nil, fmt.Errorf("%w %s", errFileNotFound, path)
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	var entries map[string]contractEntry
	if err := v.Unmarshal(&entries); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w %s", errEmptyContractFile, path)
	}
	resp := make([]contract.Contract, 0, len(entries))
	for symbol, e := range entries {
		resp = append(resp, e.toContract(strings.ToUpper(symbol)))
	}
	sort.Slice(resp, func(i, j int) bool {
		return resp[i].Symbol < resp[j].Symbol
	})
	log.Debugf(log.ConfigMgr, "loaded %d contracts from %s", len(resp), path)
	return resp, nil
}

func (e *contractEntry) toContract(symbol string) contract.Contract {
	c := contract.Contract{
		Symbol:         symbol,
		Name:           e.Name,
		Exchange:       e.Exchange,
		Multiplier:     decimal.NewFromFloat(firstNonZero(e.Multiplier, e.TradingUnit)),
		MarginRate:     decimal.NewFromFloat(firstNonZero(e.MarginRate, e.MarginRatio)),
		CommissionRate: decimal.NewFromFloat(firstNonZero(e.CommissionRate, e.FeeRate)),
		CommissionType: contract.CommissionType(strings.ToLower(e.CommissionType)),
		MinCommission:  decimal.NewFromFloat(e.MinCommission),
		TickSize:       decimal.NewFromFloat(firstNonZero(e.TickSize, e.PriceTick)),
		LotSize:        e.LotSize,
	}
	if c.CommissionType == "" {
		c.CommissionType = contract.Percentage
	}
	if c.LotSize == 0 {
		c.LotSize = 1
	}
	return c
}

func firstNonZero(values ...float64) float64 {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}
