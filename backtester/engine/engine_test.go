package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/findwinds/QuantCode/backtester/broker"
	"github.com/findwinds/QuantCode/backtester/common"
	"github.com/findwinds/QuantCode/backtester/contract"
	"github.com/findwinds/QuantCode/backtester/eventtypes/fill"
	"github.com/findwinds/QuantCode/backtester/eventtypes/kline"
	"github.com/findwinds/QuantCode/backtester/eventtypes/order"
	"github.com/findwinds/QuantCode/backtester/strategies"
	"github.com/findwinds/QuantCode/backtester/strategies/base"
	"github.com/findwinds/QuantCode/backtester/strategies/dualma"
	gctcommon "github.com/findwinds/QuantCode/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	t1                 = time.Date(2023, 10, 9, 15, 0, 0, 0, time.UTC)
	errStrategyFailure = errors.New("strategy failure")
)

type fakeProvider map[string][]*kline.Kline

func (f fakeProvider) Load(_ context.Context, symbol string, _, _ time.Time) ([]*kline.Kline, error) {
	return f[symbol], nil
}

// scripted calls onData for every bar and records what it was shown
type scripted struct {
	base.Strategy
	onData func(s *scripted, symbol string, history []*kline.Kline) error
	seen   map[string][]time.Time
	fills  []*fill.Fill
	days   []time.Time
}

func (s *scripted) Name() string        { return "scripted" }
func (s *scripted) Description() string { return "test strategy" }
func (s *scripted) SetDefaults()        {}

func (s *scripted) SetCustomSettings(map[string]any) error { return nil }

func (s *scripted) OnData(symbol string, history []*kline.Kline) error {
	if s.seen == nil {
		s.seen = make(map[string][]time.Time)
	}
	s.seen[symbol] = append(s.seen[symbol], history[len(history)-1].GetTime())
	for i := range history {
		if history[i].GetTime().After(history[len(history)-1].GetTime()) {
			return errors.New("history contains a future bar")
		}
	}
	if s.onData == nil {
		return nil
	}
	return s.onData(s, symbol, history)
}

func (s *scripted) OnNewDay(day time.Time) error {
	s.days = append(s.days, day)
	return nil
}

func (s *scripted) OnFill(f *fill.Fill) error {
	s.fills = append(s.fills, f)
	return s.Strategy.OnFill(f)
}

func rebar() contract.Contract {
	return contract.Contract{
		Symbol:         "RB",
		Multiplier:     decimal.NewFromInt(10),
		MarginRate:     decimal.NewFromFloat(0.1),
		CommissionRate: decimal.NewFromFloat(0.0002),
		CommissionType: contract.Percentage,
		TickSize:       decimal.NewFromInt(1),
		LotSize:        1,
	}
}

func silver() contract.Contract {
	c := rebar()
	c.Symbol = "AG"
	c.Multiplier = decimal.NewFromInt(15)
	return c
}

func bars(symbol string, closes ...int64) []*kline.Kline {
	resp := make([]*kline.Kline, len(closes))
	for i := range closes {
		p := decimal.NewFromInt(closes[i])
		resp[i] = kline.New(symbol, t1.AddDate(0, 0, i), p, p.Add(decimal.NewFromInt(5)), p.Sub(decimal.NewFromInt(5)), p, decimal.NewFromInt(1000))
	}
	return resp
}

func testConfig(symbols ...string) *Config {
	return &Config{
		Nickname:       "test",
		InitialCapital: decimal.NewFromInt(1000000),
		Contracts:      []contract.Contract{rebar(), silver()},
		Symbols:        symbols,
		FillPolicy:     broker.DefaultFillPolicy(),
	}
}

func buyOnce(lots int64) func(*scripted, string, []*kline.Kline) error {
	return func(s *scripted, symbol string, history []*kline.Kline) error {
		if len(history) != 1 {
			return nil
		}
		t, err := s.Trader()
		if err != nil {
			return err
		}
		_, err = t.Buy(symbol, lots)
		return base.IgnoreRejection(err)
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()
	var c *Config
	assert.ErrorIs(t, c.Validate(), errNilConfig)

	c = testConfig("RB0")
	c.InitialCapital = decimal.Zero
	assert.ErrorIs(t, c.Validate(), errInitialCapitalZero)

	c = testConfig()
	assert.ErrorIs(t, c.Validate(), errNoSymbols)

	c = testConfig("RB0")
	c.Start = t1
	c.End = t1
	assert.ErrorIs(t, c.Validate(), errInvalidDateRange)

	c = testConfig("RB0", "CU0", "ZN0")
	err := c.Validate()
	assert.ErrorIs(t, err, common.ErrUnknownSymbol)
	assert.ErrorContains(t, err, "CU0")
	assert.ErrorContains(t, err, "ZN0")

	assert.NoError(t, testConfig("RB0", "ag0").Validate())
}

func TestNew(t *testing.T) {
	t.Parallel()
	_, err := New(testConfig("RB0"), nil, fakeProvider{})
	assert.ErrorIs(t, err, gctcommon.ErrNilPointer)

	_, err = New(testConfig("RB0"), &scripted{}, nil)
	assert.ErrorIs(t, err, gctcommon.ErrNilPointer)

	_, err = New(testConfig("XX0"), &scripted{}, fakeProvider{})
	assert.ErrorIs(t, err, common.ErrUnknownSymbol, "unknown symbols must fail at startup")

	bt, err := New(testConfig(" rb0 "), &scripted{}, fakeProvider{})
	require.NoError(t, err)
	assert.Equal(t, []string{"RB0"}, bt.Config().Symbols)
	assert.Equal(t, "scripted", bt.MetaData.Strategy)
	assert.Equal(t, "test", bt.MetaData.Nickname)
}

func TestRun(t *testing.T) {
	t.Parallel()
	s := &scripted{onData: buyOnce(2)}
	bt, err := New(testConfig("RB0"), s, fakeProvider{"RB0": bars("RB0", 3500, 3520)})
	require.NoError(t, err)

	report, err := bt.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.EquityCurve, 2)
	require.Len(t, report.Fills, 1)
	require.Len(t, s.fills, 1)

	f := report.Fills[0]
	assert.Equal(t, "3500", f.Price.String())
	assert.Equal(t, int64(2), f.Quantity)
	assert.Equal(t, "14", f.Commission.String())

	first := report.EquityCurve[0]
	assert.Equal(t, "999986", first.Cash.String())
	assert.Equal(t, "999986", first.Equity.String())
	assert.Equal(t, "7000", first.MarginUsed.String())

	acc := report.FinalAccount
	assert.Equal(t, "999986", acc.Cash.String())
	assert.Equal(t, "400", acc.UnrealizedPnL.String())
	assert.Equal(t, "1000386", acc.Equity.String())
	assert.Equal(t, "7040", acc.MarginUsed.String())

	pos, ok := report.FinalPositions["RB0"]
	require.True(t, ok)
	assert.Equal(t, int64(2), pos.NetQuantity)

	require.NotNil(t, report.Statistics)
	assert.Equal(t, "1000386", report.Statistics.FinalEquity.String())
	assert.Equal(t, int64(1), report.Statistics.TotalFills)
}

func TestRunIsDeterministic(t *testing.T) {
	t.Parallel()
	provider := fakeProvider{
		"RB0": bars("RB0", 3500, 3500, 3500, 3500, 3600, 3480, 3300, 3300),
		"AG0": bars("AG0", 5000, 5010, 4990, 5020, 5100, 5050, 4900, 4950),
	}
	run := func() *Report {
		s, err := strategies.LoadStrategyByName(dualma.Name)
		require.NoError(t, err)
		require.NoError(t, s.SetCustomSettings(map[string]any{"fast-period": 2, "slow-period": 3}))
		bt, err := New(testConfig("RB0", "AG0"), s, provider)
		require.NoError(t, err)
		report, err := bt.Run(context.Background())
		require.NoError(t, err)
		return report
	}
	a, b := run(), run()
	require.Len(t, a.EquityCurve, len(b.EquityCurve))
	for i := range a.EquityCurve {
		assert.True(t, a.EquityCurve[i].Time.Equal(b.EquityCurve[i].Time))
		assert.True(t, a.EquityCurve[i].Equity.Equal(b.EquityCurve[i].Equity), "equity differs at %d", i)
	}
	require.Len(t, a.Fills, len(b.Fills))
	require.NotEmpty(t, a.Fills)
	for i := range a.Fills {
		assert.Equal(t, a.Fills[i].Symbol, b.Fills[i].Symbol)
		assert.Equal(t, a.Fills[i].OrderID, b.Fills[i].OrderID)
		assert.Equal(t, a.Fills[i].Quantity, b.Fills[i].Quantity)
		assert.True(t, a.Fills[i].Price.Equal(b.Fills[i].Price))
	}
}

func TestRunSameBacktestTwice(t *testing.T) {
	t.Parallel()
	s := &scripted{onData: buyOnce(1)}
	bt, err := New(testConfig("RB0"), s, fakeProvider{"RB0": bars("RB0", 3500, 3520, 3540)})
	require.NoError(t, err)
	a, err := bt.Run(context.Background())
	require.NoError(t, err)
	b, err := bt.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, a.FinalAccount.Equity.Equal(b.FinalAccount.Equity))
	assert.Len(t, b.Fills, 1, "state must not leak between runs")
}

func TestRunNoLookAhead(t *testing.T) {
	t.Parallel()
	s := &scripted{}
	provider := fakeProvider{
		"RB0": bars("RB0", 3500, 3510, 3520, 3530),
		"AG0": bars("AG0", 5000, 5010)[1:],
	}
	bt, err := New(testConfig("RB0", "AG0"), s, provider)
	require.NoError(t, err)
	report, err := bt.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, report.EquityCurve, 4)
	assert.Len(t, s.seen["RB0"], 4)
	assert.Len(t, s.seen["AG0"], 1)
	for i, ts := range s.seen["RB0"] {
		assert.True(t, ts.Equal(t1.AddDate(0, 0, i)))
	}
}

func TestRunCancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	s := &scripted{onData: func(_ *scripted, _ string, history []*kline.Kline) error {
		if len(history) == 2 {
			cancel()
		}
		return nil
	}}
	bt, err := New(testConfig("RB0"), s, fakeProvider{"RB0": bars("RB0", 3500, 3510, 3520, 3530)})
	require.NoError(t, err)
	report, err := bt.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, report)
	assert.Len(t, s.seen["RB0"], 2)
}

func TestRunDataOrdering(t *testing.T) {
	t.Parallel()
	b := bars("RB0", 3500, 3510, 3520)
	b[1], b[2] = b[2], b[1]
	bt, err := New(testConfig("RB0"), &scripted{}, fakeProvider{"RB0": b})
	require.NoError(t, err)
	_, err = bt.Run(context.Background())
	assert.ErrorIs(t, err, common.ErrDataOrdering)
}

func TestRunStrategyError(t *testing.T) {
	t.Parallel()
	s := &scripted{onData: func(_ *scripted, _ string, history []*kline.Kline) error {
		if len(history) == 2 {
			return errStrategyFailure
		}
		return nil
	}}
	bt, err := New(testConfig("RB0"), s, fakeProvider{"RB0": bars("RB0", 3500, 3510, 3520)})
	require.NoError(t, err)
	report, err := bt.Run(context.Background())
	assert.ErrorIs(t, err, errStrategyFailure)
	assert.Nil(t, report)
	assert.Len(t, s.seen["RB0"], 2)
}

func TestRunRejectedOrderContinues(t *testing.T) {
	t.Parallel()
	s := &scripted{onData: buyOnce(1000)}
	bt, err := New(testConfig("RB0"), s, fakeProvider{"RB0": bars("RB0", 3500, 3520)})
	require.NoError(t, err)
	report, err := bt.Run(context.Background())
	require.NoError(t, err, "a margin rejection is an event, not a run failure")
	assert.Empty(t, report.Fills)
	require.Len(t, report.Orders, 1)
	assert.True(t, report.FinalAccount.Equity.Equal(decimal.NewFromInt(1000000)))
}

func TestRunNewTradingDay(t *testing.T) {
	t.Parallel()
	rb := bars("RB0", 3500, 3510)
	p := decimal.NewFromInt(3505)
	intraday := kline.New("RB0", t1.Add(time.Hour), p, p, p, p, decimal.NewFromInt(10))
	b := []*kline.Kline{rb[0], intraday, rb[1]}
	s := &scripted{}
	bt, err := New(testConfig("RB0"), s, fakeProvider{"RB0": b})
	require.NoError(t, err)
	_, err = bt.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []time.Time{rb[1].GetTime()}, s.days, "one reset per date change, none for the first day")
}

func TestRunExecutionRules(t *testing.T) {
	t.Parallel()
	s := &scripted{onData: func(s *scripted, symbol string, history []*kline.Kline) error {
		tr, err := s.Trader()
		if err != nil {
			return err
		}
		if len(history) == 1 {
			if _, err = tr.Buy(symbol, 2); err != nil {
				return err
			}
		}
		_, err = tr.Sell(symbol, 2)
		return base.IgnoreRejection(err)
	}}
	cfg := testConfig("RB0")
	cfg.Rules = broker.RuleSettings{TPlusOne: true}
	bt, err := New(cfg, s, fakeProvider{"RB0": bars("RB0", 3500, 3520)})
	require.NoError(t, err)
	report, err := bt.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Orders, 3)
	assert.Equal(t, order.Rejected, report.Orders[1].Status)
	assert.Contains(t, report.Orders[1].Reason, broker.TPlusOneRuleName)
	assert.Equal(t, order.Filled, report.Orders[2].Status, "lots from the previous day may be closed")
	assert.Len(t, report.Fills, 2)
	assert.True(t, report.FinalPositions["RB0"].IsFlat())

	cfg.Rules.MaxPosition = -1
	_, err = New(cfg, s, fakeProvider{})
	assert.Error(t, err)
}
