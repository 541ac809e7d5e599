package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/findwinds/QuantCode/backtester/broker"
	"github.com/findwinds/QuantCode/backtester/common"
	"github.com/findwinds/QuantCode/backtester/contract"
	"github.com/findwinds/QuantCode/backtester/data"
	"github.com/findwinds/QuantCode/backtester/eventbus"
	"github.com/findwinds/QuantCode/backtester/eventtypes/fill"
	"github.com/findwinds/QuantCode/backtester/eventtypes/kline"
	"github.com/findwinds/QuantCode/backtester/eventtypes/order"
	"github.com/findwinds/QuantCode/backtester/ledger"
	"github.com/findwinds/QuantCode/backtester/statistics"
	"github.com/findwinds/QuantCode/backtester/strategies"
	gctcommon "github.com/findwinds/QuantCode/common"
	"github.com/findwinds/QuantCode/log"
)

// Validate checks the config can build a run. Every symbol must resolve to
// a contract.
func (c *Config) Validate() error {
	if c == nil {
		return errNilConfig
	}
	if !c.InitialCapital.IsPositive() {
		return errInitialCapitalZero
	}
	if len(c.Symbols) == 0 {
		return errNoSymbols
	}
	if !c.Start.IsZero() && !c.End.IsZero() && !c.End.After(c.Start) {
		return errInvalidDateRange
	}
	if err := c.FillPolicy.Validate(); err != nil {
		return err
	}
	if err := c.Rules.Validate(); err != nil {
		return err
	}
	r, err := contract.NewRegistry(c.Contracts...)
	if err != nil {
		return err
	}
	var errs error
	for i := range c.Symbols {
		if _, err := r.Get(c.Symbols[i]); err != nil {
			errs = gctcommon.AppendError(errs, err)
		}
	}
	return errs
}

// New creates a backtest for a strategy reading bars from the provider
func New(cfg *Config, strategy strategies.Handler, provider data.Provider) (*BackTest, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if strategy == nil {
		return nil, fmt.Errorf("%w strategy", gctcommon.ErrNilPointer)
	}
	if provider == nil {
		return nil, fmt.Errorf("%w data provider", gctcommon.ErrNilPointer)
	}
	c := *cfg
	c.Symbols = make([]string, len(cfg.Symbols))
	for i := range cfg.Symbols {
		c.Symbols[i] = strings.ToUpper(strings.TrimSpace(cfg.Symbols[i]))
	}
	c.Contracts = append([]contract.Contract(nil), cfg.Contracts...)
	return &BackTest{
		config:   c,
		strategy: strategy,
		provider: provider,
		MetaData: RunMetaData{
			Nickname:   cfg.Nickname,
			Strategy:   strategy.Name(),
			DateLoaded: time.Now(),
		},
	}, nil
}

// replay is the state owned by a single Run
type replay struct {
	strategy strategies.Handler
	registry *contract.Registry
	bus      *eventbus.Bus
	broker   *broker.VirtualBroker
	holder   *data.Holder
	curve    []statistics.EquityPoint
	day      time.Time
}

// Run loads the data and replays it slice by slice. Data ordering faults,
// strategy and handler errors abort the run and no report is produced.
// Cancelling ctx stops the run between slices.
func (bt *BackTest) Run(ctx context.Context) (*Report, error) {
	if bt == nil {
		return nil, fmt.Errorf("%w BackTest", gctcommon.ErrNilPointer)
	}
	r, err := bt.setup(ctx)
	if err != nil {
		return nil, err
	}
	log.Infof(log.BackTester, "starting run %s with strategy %s over %s", bt.MetaData.ID, bt.strategy.Name(), strings.Join(bt.config.Symbols, ","))
	for {
		if err = ctx.Err(); err != nil {
			log.Warnf(log.BackTester, "run %s cancelled after %d slices", bt.MetaData.ID, len(r.curve))
			return nil, err
		}
		slice, ok := r.holder.NextSlice()
		if !ok {
			break
		}
		if err = r.process(slice); err != nil {
			log.Errorf(log.BackTester, "run %s aborted at %v: %v", bt.MetaData.ID, slice.Time, err)
			return nil, err
		}
	}
	report, err := bt.buildReport(r)
	if err != nil {
		return nil, err
	}
	log.Infof(log.BackTester, "run %s finished: %d slices, %d fills, final equity %v",
		bt.MetaData.ID, len(report.EquityCurve), len(report.Fills), report.FinalAccount.Equity.StringFixed(2))
	return report, nil
}

func (bt *BackTest) setup(ctx context.Context) (*replay, error) {
	var err error
	r := &replay{bus: eventbus.New(), strategy: bt.strategy}
	if r.registry, err = contract.NewRegistry(bt.config.Contracts...); err != nil {
		return nil, err
	}
	l, err := ledger.New(bt.config.InitialCapital, r.registry)
	if err != nil {
		return nil, err
	}
	if r.broker, err = broker.NewVirtualBroker(r.registry, l, r.bus, bt.config.FillPolicy); err != nil {
		return nil, err
	}
	for _, rule := range bt.config.Rules.Build() {
		if err = r.broker.AddRule(rule); err != nil {
			return nil, err
		}
	}
	if r.holder, err = data.Load(ctx, bt.provider, bt.config.Symbols, bt.config.Start, bt.config.End); err != nil {
		return nil, err
	}
	trader, err := broker.NewTrader(r.broker)
	if err != nil {
		return nil, err
	}
	if err = bt.strategy.Init(trader); err != nil {
		return nil, err
	}
	if err = bt.subscribe(r); err != nil {
		return nil, err
	}
	return r, nil
}

func (bt *BackTest) subscribe(r *replay) error {
	s := bt.strategy
	err := r.bus.Subscribe(common.MarketData, func(e common.Event) error {
		bar, ok := e.(*kline.Kline)
		if !ok {
			return fmt.Errorf("%w %T", gctcommon.ErrTypeAssertFailure, e)
		}
		series, err := r.holder.GetDataForSymbol(bar.Symbol)
		if err != nil {
			return err
		}
		return s.OnData(bar.Symbol, series.History())
	})
	if err != nil {
		return err
	}
	onOrder := func(e common.Event) error {
		ev, ok := e.(*order.Event)
		if !ok {
			return fmt.Errorf("%w %T", gctcommon.ErrTypeAssertFailure, e)
		}
		return s.OnOrderEvent(ev)
	}
	for _, kind := range []common.EventKind{common.OrderAccepted, common.OrderRejected, common.OrderCancelled} {
		if err = r.broker.RegisterEventHandler(kind, onOrder); err != nil {
			return err
		}
	}
	return r.broker.RegisterEventHandler(common.Fill, func(e common.Event) error {
		f, ok := e.(*fill.Fill)
		if !ok {
			return fmt.Errorf("%w %T", gctcommon.ErrTypeAssertFailure, e)
		}
		return s.OnFill(f)
	})
}

// process handles one timestamp slice: each bar reaches the broker and then
// the strategy in symbol order, then positions are marked to market and the
// account is recorded
func (r *replay) process(slice data.Slice) error {
	if !r.day.IsZero() && !sameDay(r.day, slice.Time) {
		if err := r.newDay(slice.Time); err != nil {
			return err
		}
	}
	r.day = slice.Time
	for _, bar := range slice.Bars {
		if err := r.broker.OnBar(bar); err != nil {
			return err
		}
		if err := r.bus.Publish(bar); err != nil {
			return err
		}
		if err := r.broker.DispatchErrors(); err != nil {
			return err
		}
	}
	if err := r.broker.MarkToMarket(slice.Time); err != nil {
		return err
	}
	acc := r.broker.GetAccount()
	r.curve = append(r.curve, statistics.EquityPoint{
		Time:          slice.Time,
		Equity:        acc.Equity,
		Cash:          acc.Cash,
		UnrealizedPnL: acc.UnrealizedPnL,
		MarginUsed:    acc.MarginUsed,
	})
	if err := r.bus.Publish(r.broker.Snapshot(slice.Time)); err != nil {
		return err
	}
	return r.broker.DispatchErrors()
}

// newDay resets per trading day state in the broker's rules and in
// strategies that keep any
func (r *replay) newDay(t time.Time) error {
	r.broker.OnNewDay(t)
	if d, ok := r.strategy.(strategies.DayResetter); ok {
		return d.OnNewDay(t)
	}
	return nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func (bt *BackTest) buildReport(r *replay) (*Report, error) {
	fills := r.broker.Fills()
	positions := r.broker.GetPositions()
	report := &Report{
		MetaData:       bt.MetaData,
		InitialCapital: bt.config.InitialCapital,
		Symbols:        append([]string(nil), bt.config.Symbols...),
		EquityCurve:    r.curve,
		Fills:          fills,
		Orders:         r.broker.Orders(),
		FinalAccount:   r.broker.GetAccount(),
		FinalPositions: make(map[string]ledger.Position, len(positions)),
	}
	for i := range positions {
		report.FinalPositions[positions[i].Symbol] = positions[i]
	}
	stats, err := statistics.Calculate(&statistics.Input{
		InitialCapital: bt.config.InitialCapital,
		EquityCurve:    r.curve,
		Fills:          fills,
		Registry:       r.registry,
		RiskFreeRate:   bt.config.RiskFreeRate,
	})
	if err != nil {
		return nil, err
	}
	report.Statistics = stats
	return report, nil
}

// Strategy returns the strategy being run
func (bt *BackTest) Strategy() strategies.Handler {
	return bt.strategy
}

// Config returns a copy of the run config
func (bt *BackTest) Config() Config {
	return bt.config
}
