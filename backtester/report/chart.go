package report

import (
	"fmt"
	"sort"

	"github.com/findwinds/QuantCode/backtester/eventtypes/fill"
	"github.com/findwinds/QuantCode/backtester/eventtypes/order"
	"github.com/findwinds/QuantCode/backtester/statistics"
	gctcommon "github.com/findwinds/QuantCode/common"
	"github.com/shopspring/decimal"
)

// createEquityChart plots total equity and cash over time
func createEquityChart(curve []statistics.EquityPoint) (*Chart, error) {
	if curve == nil {
		return nil, fmt.Errorf("%w missing equity curve", gctcommon.ErrNilPointer)
	}
	equity := ChartLine{Name: "Equity", LinePlots: make([]LinePlot, len(curve))}
	cash := ChartLine{Name: "Cash", LinePlots: make([]LinePlot, len(curve))}
	for i := range curve {
		ms := curve[i].Time.UnixMilli()
		equity.LinePlots[i] = LinePlot{Value: curve[i].Equity.InexactFloat64(), UnixMilli: ms}
		cash.LinePlots[i] = LinePlot{Value: curve[i].Cash.InexactFloat64(), UnixMilli: ms}
	}
	return &Chart{AxisType: "linear", Data: []ChartLine{equity, cash}}, nil
}

// createMarginChart shows margin used and unrealised PNL over time
func createMarginChart(curve []statistics.EquityPoint) (*Chart, error) {
	if curve == nil {
		return nil, fmt.Errorf("%w missing equity curve", gctcommon.ErrNilPointer)
	}
	margin := ChartLine{Name: "Margin used", LinePlots: make([]LinePlot, len(curve))}
	upnl := ChartLine{Name: "Unrealised PNL", LinePlots: make([]LinePlot, len(curve))}
	for i := range curve {
		ms := curve[i].Time.UnixMilli()
		margin.LinePlots[i] = LinePlot{Value: curve[i].MarginUsed.InexactFloat64(), UnixMilli: ms}
		upnl.LinePlots[i] = LinePlot{Value: curve[i].UnrealizedPnL.InexactFloat64(), UnixMilli: ms}
	}
	return &Chart{AxisType: "linear", Data: []ChartLine{margin, upnl}}, nil
}

// createDrawdownChart plots the percentage below the running equity peak
func createDrawdownChart(initialCapital decimal.Decimal, curve []statistics.EquityPoint) (*Chart, error) {
	if curve == nil {
		return nil, fmt.Errorf("%w missing equity curve", gctcommon.ErrNilPointer)
	}
	line := ChartLine{Name: "Drawdown %", LinePlots: make([]LinePlot, len(curve))}
	peak := initialCapital
	for i := range curve {
		if curve[i].Equity.GreaterThan(peak) {
			peak = curve[i].Equity
		}
		var dd float64
		if peak.IsPositive() {
			dd = curve[i].Equity.Sub(peak).Div(peak).Mul(decimal.NewFromInt(100)).InexactFloat64()
		}
		line.LinePlots[i] = LinePlot{Value: dd, UnixMilli: curve[i].Time.UnixMilli()}
	}
	return &Chart{AxisType: "linear", Data: []ChartLine{line}}, nil
}

// createPositionChart steps each symbol's net lots at every fill
func createPositionChart(fills []*fill.Fill) (*Chart, error) {
	if fills == nil {
		return nil, fmt.Errorf("%w missing fills", gctcommon.ErrNilPointer)
	}
	lines := make(map[string]*ChartLine)
	net := make(map[string]int64)
	for _, f := range fills {
		if f == nil {
			continue
		}
		qty := f.Quantity
		if f.Side == order.Sell {
			qty = -qty
		}
		net[f.Symbol] += qty
		line, ok := lines[f.Symbol]
		if !ok {
			line = &ChartLine{Name: f.Symbol + " net lots"}
			lines[f.Symbol] = line
		}
		line.LinePlots = append(line.LinePlots, LinePlot{Value: float64(net[f.Symbol]), UnixMilli: f.Time.UnixMilli()})
	}
	symbols := make([]string, 0, len(lines))
	for s := range lines {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	response := &Chart{AxisType: "linear"}
	for _, s := range symbols {
		response.Data = append(response.Data, *lines[s])
	}
	return response, nil
}
