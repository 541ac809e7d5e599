package statistics

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/findwinds/QuantCode/backtester/eventtypes/fill"
	"github.com/findwinds/QuantCode/backtester/eventtypes/order"
	gctmath "github.com/findwinds/QuantCode/common/math"
	"github.com/findwinds/QuantCode/log"
	"github.com/shopspring/decimal"
)

const yearDuration = 365 * 24 * time.Hour

// Calculate evaluates a finished run
func Calculate(in *Input) (*Statistic, error) {
	if in == nil || len(in.EquityCurve) == 0 {
		return nil, fmt.Errorf("%w to calculate statistics", errReceivedNoData)
	}
	if !in.InitialCapital.IsPositive() {
		return nil, errInitialCapitalZero
	}
	curve := in.EquityCurve
	s := &Statistic{
		StartDate:      curve[0].Time,
		EndDate:        curve[len(curve)-1].Time,
		Intervals:      int64(len(curve)),
		InitialCapital: in.InitialCapital,
		FinalEquity:    curve[len(curve)-1].Equity,
		RiskFreeRate:   in.RiskFreeRate,
	}
	var err error
	s.TotalReturn, err = gctmath.DecimalPercentageChange(in.InitialCapital, s.FinalEquity)
	if err != nil {
		return nil, err
	}
	s.MaxDrawdown = CalculateMaxDrawdown(in.InitialCapital, curve)

	elapsed := s.EndDate.Sub(s.StartDate)
	if elapsed > 0 {
		days := decimal.NewFromFloat(elapsed.Hours() / 24)
		s.CAGR, err = gctmath.DecimalCompoundAnnualGrowthRate(in.InitialCapital, s.FinalEquity, decimal.NewFromInt(365), days)
		if err != nil {
			log.Warnf(log.Statistics, "compound annual growth rate: %v", err)
		}
	}

	returns := Returns(in.InitialCapital, curve)
	periodsPerYear := decimal.NewFromInt(int64(len(returns)))
	if elapsed > 0 {
		periodsPerYear = periodsPerYear.Div(decimal.NewFromFloat(float64(elapsed) / float64(yearDuration)))
	}
	riskFreePerPeriod := decimal.Zero
	if periodsPerYear.IsPositive() {
		riskFreePerPeriod = in.RiskFreeRate.Div(periodsPerYear)
	}
	annualise := decimal.NewFromFloat(math.Sqrt(periodsPerYear.InexactFloat64()))
	sharpe, err := gctmath.DecimalSharpeRatio(returns, riskFreePerPeriod)
	switch {
	case err == nil:
		s.SharpeRatio = sharpe.Mul(annualise)
	case errors.Is(err, gctmath.ErrNoValues), errors.Is(err, gctmath.ErrZeroValue):
		log.Debugf(log.Statistics, "sharpe ratio not calculated: %v", err)
	default:
		return nil, err
	}
	sortino, err := gctmath.DecimalSortinoRatio(returns, riskFreePerPeriod)
	switch {
	case err == nil:
		s.SortinoRatio = sortino.Mul(annualise)
	case errors.Is(err, gctmath.ErrNoValues), errors.Is(err, gctmath.ErrZeroValue):
		log.Debugf(log.Statistics, "sortino ratio not calculated: %v", err)
	default:
		return nil, err
	}

	volatility, err := gctmath.DecimalSampleStandardDeviation(returns)
	switch {
	case err == nil:
		s.ReturnVolatility = volatility.Mul(annualise)
	case errors.Is(err, gctmath.ErrNoValues), errors.Is(err, gctmath.ErrZeroValue):
		log.Debugf(log.Statistics, "return volatility not calculated: %v", err)
	default:
		return nil, err
	}
	s.CalmarRatio = CalmarRatio(s.CAGR, s.MaxDrawdown)

	s.addFills(in)
	return s, nil
}

// CalmarRatio is the annualised return over the maximum drawdown as a
// fraction of its peak. No drawdown returns zero.
func CalmarRatio(cagr decimal.Decimal, drawdown Swing) decimal.Decimal {
	if drawdown.DrawdownPercent.IsZero() {
		return decimal.Zero
	}
	return cagr.Div(drawdown.DrawdownPercent.Abs().Div(decimal.NewFromInt(100)))
}

// Returns converts an equity curve into per interval fractional returns,
// the first measured against the initial capital
func Returns(initialCapital decimal.Decimal, curve []EquityPoint) []decimal.Decimal {
	resp := make([]decimal.Decimal, 0, len(curve))
	prev := initialCapital
	for i := range curve {
		if change, err := gctmath.DecimalPercentageChange(prev, curve[i].Equity); err == nil {
			resp = append(resp, change)
		}
		prev = curve[i].Equity
	}
	return resp
}

// CalculateMaxDrawdown returns the largest peak to trough fall in equity.
// The initial capital is the first peak.
func CalculateMaxDrawdown(initialCapital decimal.Decimal, curve []EquityPoint) Swing {
	var resp Swing
	if len(curve) == 0 {
		return resp
	}
	peak := ValueAtTime{Time: curve[0].Time, Value: initialCapital}
	peakIndex := 0
	for i := range curve {
		if curve[i].Equity.GreaterThan(peak.Value) {
			peak = ValueAtTime{Time: curve[i].Time, Value: curve[i].Equity}
			peakIndex = i
			continue
		}
		drawdown := curve[i].Equity.Sub(peak.Value)
		if drawdown.LessThan(resp.Drawdown) {
			resp = Swing{
				Highest:          peak,
				Lowest:           ValueAtTime{Time: curve[i].Time, Value: curve[i].Equity},
				Drawdown:         drawdown,
				IntervalDuration: int64(i - peakIndex),
			}
			if peak.Value.IsPositive() {
				resp.DrawdownPercent = drawdown.Div(peak.Value).Mul(decimal.NewFromInt(100))
			}
		}
	}
	return resp
}

func (s *Statistic) addFills(in *Input) {
	trips := make(map[string]*openTrip)
	for i := range in.Fills {
		f := in.Fills[i]
		s.TotalFills++
		if f.GetDirection() == order.Buy {
			s.BuyFills++
		} else {
			s.SellFills++
		}
		s.TotalCommission = s.TotalCommission.Add(f.GetCommission())
		multiplier := decimal.NewFromInt(1)
		if in.Registry != nil {
			if c, err := in.Registry.Get(f.Symbol); err == nil {
				multiplier = c.Multiplier
			}
		}
		s.applyFill(trips, f, multiplier)
	}
	for i := range s.RoundTrips {
		if s.RoundTrips[i].PnL.IsPositive() {
			s.WinningTrips++
		} else {
			s.LosingTrips++
		}
	}
	if len(s.RoundTrips) == 0 {
		return
	}
	tripCount := decimal.NewFromInt(int64(len(s.RoundTrips)))
	s.WinRate = decimal.NewFromInt(s.WinningTrips).Div(tripCount)
	var gains, losses decimal.Decimal
	for i := range s.RoundTrips {
		if s.RoundTrips[i].PnL.IsPositive() {
			gains = gains.Add(s.RoundTrips[i].PnL)
		} else {
			losses = losses.Add(s.RoundTrips[i].PnL.Abs())
		}
	}
	s.AverageRoundTripPnL = gains.Sub(losses).Div(tripCount)
	if losses.IsPositive() {
		s.ProfitFactor = gains.Div(losses)
	}
}

// applyFill books a fill against the symbol's open trip. A fill that
// reverses the position closes the trip and opens another with the
// remainder, splitting commission by quantity.
func (s *Statistic) applyFill(trips map[string]*openTrip, f *fill.Fill, multiplier decimal.Decimal) {
	remaining := f.GetSignedQuantity()
	total := decimal.NewFromInt(f.GetQuantity())
	for remaining != 0 {
		t, ok := trips[f.Symbol]
		if !ok || t.net == 0 {
			t = &openTrip{trip: RoundTrip{Symbol: f.Symbol, EntryTime: f.GetTime(), Long: remaining > 0}}
			trips[f.Symbol] = t
		}
		qty := remaining
		if t.net != 0 && (t.net > 0) != (remaining > 0) && abs(remaining) > abs(t.net) {
			qty = -t.net
		}
		commission := f.GetCommission()
		if !total.IsZero() {
			commission = commission.Mul(decimal.NewFromInt(abs(qty))).Div(total)
		}
		t.net += qty
		t.cashflow = t.cashflow.Sub(decimal.NewFromInt(qty).Mul(f.GetPrice()).Mul(multiplier))
		t.trip.Commission = t.trip.Commission.Add(commission)
		if abs(t.net) > t.trip.MaxLots {
			t.trip.MaxLots = abs(t.net)
		}
		if t.net == 0 {
			t.trip.ExitTime = f.GetTime()
			t.trip.PnL = t.cashflow.Sub(t.trip.Commission)
			s.RoundTrips = append(s.RoundTrips, t.trip)
			delete(trips, f.Symbol)
		}
		remaining -= qty
	}
}

// PrintResults logs the headline figures
func (s *Statistic) PrintResults() {
	if s == nil {
		return
	}
	log.Infoln(log.Statistics, "------------------Total Results------------------------------")
	log.Infof(log.Statistics, "Period: %v to %v (%d intervals)", s.StartDate.Format(time.DateTime), s.EndDate.Format(time.DateTime), s.Intervals)
	log.Infof(log.Statistics, "Initial capital: %v final equity: %v", s.InitialCapital.StringFixed(2), s.FinalEquity.StringFixed(2))
	log.Infof(log.Statistics, "Total return: %v%%", s.TotalReturn.Mul(decimal.NewFromInt(100)).StringFixed(2))
	log.Infof(log.Statistics, "Compound annual growth rate: %v%%", s.CAGR.Mul(decimal.NewFromInt(100)).StringFixed(2))
	log.Infof(log.Statistics, "Max drawdown: %v (%v%%) from %v to %v", s.MaxDrawdown.Drawdown.StringFixed(2),
		s.MaxDrawdown.DrawdownPercent.StringFixed(2), s.MaxDrawdown.Highest.Time.Format(time.DateTime), s.MaxDrawdown.Lowest.Time.Format(time.DateTime))
	log.Infof(log.Statistics, "Sharpe ratio: %v sortino ratio: %v calmar ratio: %v", s.SharpeRatio.StringFixed(4), s.SortinoRatio.StringFixed(4), s.CalmarRatio.StringFixed(4))
	log.Infof(log.Statistics, "Return volatility: %v%%", s.ReturnVolatility.Mul(decimal.NewFromInt(100)).StringFixed(2))
	log.Infof(log.Statistics, "Fills: %d (buy %d sell %d) commission: %v", s.TotalFills, s.BuyFills, s.SellFills, s.TotalCommission.StringFixed(2))
	log.Infof(log.Statistics, "Round trips: %d won %d lost %d win rate %v%%", len(s.RoundTrips), s.WinningTrips, s.LosingTrips,
		s.WinRate.Mul(decimal.NewFromInt(100)).StringFixed(2))
	log.Infof(log.Statistics, "Profit factor: %v average round trip PNL: %v", s.ProfitFactor.StringFixed(4), s.AverageRoundTripPnL.StringFixed(2))
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
