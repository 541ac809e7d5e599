package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/findwinds/QuantCode/backtester/engine"
	"github.com/findwinds/QuantCode/backtester/eventtypes/fill"
	"github.com/findwinds/QuantCode/backtester/statistics"
	gctcommon "github.com/findwinds/QuantCode/common"
	"github.com/findwinds/QuantCode/common/file"
	"github.com/findwinds/QuantCode/log"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	fileNameCleaner = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)
	tmpl            = template.Must(template.New("report").Funcs(template.FuncMap{
		"fixed": func(d decimal.Decimal, places int) string {
			return d.StringFixed(int32(places))
		},
		"percent": func(d decimal.Decimal) string {
			return d.Mul(decimal.NewFromInt(100)).StringFixed(2) + "%"
		},
		"date": func(t time.Time) string {
			return t.Format(time.DateTime)
		},
	}).Parse(htmlTemplate))
)

// Write outputs the report to dir in each of the requested formats and
// returns the paths written
func Write(r *engine.Report, dir string, formats []string) ([]string, error) {
	if r == nil {
		return nil, errNoReport
	}
	if dir == "" {
		return nil, errNoOutputFolder
	}
	base := filepath.Join(dir, FileName(r))
	var written []string
	for _, f := range formats {
		var paths []string
		var err error
		switch strings.ToLower(strings.TrimSpace(f)) {
		case "json":
			paths = []string{base + ".json"}
			err = writeFile(paths[0], func(w io.Writer) error { return WriteJSON(w, r) })
		case "csv":
			paths = []string{base + equityFileSuffix, base + fillsFileSuffix}
			err = WriteCSV(r, paths[0], paths[1])
		case "html":
			paths = []string{base + ".html"}
			err = writeFile(paths[0], func(w io.Writer) error { return WriteHTML(w, r) })
		case "text":
			paths = []string{base + ".txt"}
			err = file.Write(paths[0], []byte(Summary(r, language.English)))
		default:
			err = fmt.Errorf("%w %q", errUnknownFormat, f)
		}
		if err != nil {
			return written, err
		}
		for i := range paths {
			log.Infof(log.Report, "wrote %s", paths[i])
		}
		written = append(written, paths...)
	}
	return written, nil
}

// FileName is the base name used for every output of a run
func FileName(r *engine.Report) string {
	name := r.MetaData.Nickname
	if name == "" {
		name = r.MetaData.Strategy
	}
	name = strings.Trim(fileNameCleaner.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if name == "" {
		name = "run"
	}
	if !r.MetaData.ID.IsNil() {
		name += "-" + r.MetaData.ID.String()[:8]
	}
	return name
}

// WriteJSON encodes the full report as indented JSON
func WriteJSON(w io.Writer, r *engine.Report) error {
	if r == nil {
		return errNoReport
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteCSV writes the equity curve and the fill log to their own files
func WriteCSV(r *engine.Report, equityPath, fillsPath string) error {
	if r == nil {
		return errNoReport
	}
	err := writeFile(equityPath, func(w io.Writer) error { return WriteEquityCSV(w, r) })
	if err != nil {
		return err
	}
	return writeFile(fillsPath, func(w io.Writer) error { return WriteFillsCSV(w, r) })
}

// WriteEquityCSV writes one row per replayed timestamp
func WriteEquityCSV(w io.Writer, r *engine.Report) error {
	if r == nil {
		return errNoReport
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"timestamp", "equity", "cash", "unrealized_pnl", "margin_used"}); err != nil {
		return err
	}
	for i := range r.EquityCurve {
		p := &r.EquityCurve[i]
		err := cw.Write([]string{
			p.Time.Format(time.RFC3339),
			p.Equity.String(),
			p.Cash.String(),
			p.UnrealizedPnL.String(),
			p.MarginUsed.String(),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFillsCSV writes the fill log in fill order
func WriteFillsCSV(w io.Writer, r *engine.Report) error {
	if r == nil {
		return errNoReport
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"timestamp", "order_id", "symbol", "side", "quantity", "price", "commission"}); err != nil {
		return err
	}
	for _, f := range r.Fills {
		if f == nil {
			continue
		}
		err := cw.Write([]string{
			f.Time.Format(time.RFC3339),
			strconv.FormatInt(f.OrderID, 10),
			f.Symbol,
			string(f.Side),
			strconv.FormatInt(f.Quantity, 10),
			f.Price.String(),
			f.Commission.String(),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteHTML renders the report with charts of equity, drawdown, margin and
// positions
func WriteHTML(w io.Writer, r *engine.Report) error {
	if r == nil {
		return errNoReport
	}
	d := &Data{
		Report:      r,
		Title:       fmt.Sprintf("%s %s", r.MetaData.Strategy, r.MetaData.Nickname),
		GeneratedAt: time.Now(),
	}
	curve := r.EquityCurve
	if curve == nil {
		curve = []statistics.EquityPoint{}
	}
	fills := r.Fills
	if fills == nil {
		fills = []*fill.Fill{}
	}
	var err, errs error
	d.EquityChart, err = createEquityChart(curve)
	errs = gctcommon.AppendError(errs, err)
	d.MarginChart, err = createMarginChart(curve)
	errs = gctcommon.AppendError(errs, err)
	d.Drawdowns, err = createDrawdownChart(r.InitialCapital, curve)
	errs = gctcommon.AppendError(errs, err)
	d.Positions, err = createPositionChart(fills)
	errs = gctcommon.AppendError(errs, err)
	if errs != nil {
		return errs
	}
	return tmpl.Execute(w, d)
}

// Summary renders the headline numbers as text with numbers formatted for
// the language
func Summary(r *engine.Report, tag language.Tag) string {
	if r == nil {
		return ""
	}
	p := message.NewPrinter(tag)
	var b strings.Builder
	p.Fprintf(&b, "Run %s: %s %s\n", r.MetaData.ID, r.MetaData.Strategy, r.MetaData.Nickname)
	p.Fprintf(&b, "Symbols: %s\n", strings.Join(r.Symbols, ", "))
	p.Fprintf(&b, "Initial capital: %.2f\n", r.InitialCapital.InexactFloat64())
	p.Fprintf(&b, "Final equity: %.2f\n", r.FinalAccount.Equity.InexactFloat64())
	p.Fprintf(&b, "Realised PNL: %.2f unrealised PNL: %.2f\n", r.FinalAccount.RealizedPnL.InexactFloat64(), r.FinalAccount.UnrealizedPnL.InexactFloat64())
	p.Fprintf(&b, "Commission: %.2f\n", r.FinalAccount.Commission.InexactFloat64())
	s := r.Statistics
	if s == nil {
		return b.String()
	}
	hundred := decimal.NewFromInt(100)
	p.Fprintf(&b, "Period: %s to %s (%d intervals)\n", s.StartDate.Format(time.DateOnly), s.EndDate.Format(time.DateOnly), s.Intervals)
	p.Fprintf(&b, "Total return: %.2f%%\n", s.TotalReturn.Mul(hundred).InexactFloat64())
	p.Fprintf(&b, "CAGR: %.2f%%\n", s.CAGR.Mul(hundred).InexactFloat64())
	p.Fprintf(&b, "Max drawdown: %.2f (%.2f%%)\n", s.MaxDrawdown.Drawdown.InexactFloat64(), s.MaxDrawdown.DrawdownPercent.InexactFloat64())
	p.Fprintf(&b, "Sharpe ratio: %.4f sortino ratio: %.4f\n", s.SharpeRatio.InexactFloat64(), s.SortinoRatio.InexactFloat64())
	p.Fprintf(&b, "Fills: %d (buy %d sell %d)\n", s.TotalFills, s.BuyFills, s.SellFills)
	p.Fprintf(&b, "Round trips: %d won %d lost %d win rate %.2f%%\n", len(s.RoundTrips), s.WinningTrips, s.LosingTrips, s.WinRate.Mul(hundred).InexactFloat64())
	return b.String()
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := file.Writer(path)
	if err != nil {
		return err
	}
	if err = fn(f); err != nil {
		return gctcommon.AppendError(err, f.Close())
	}
	return f.Close()
}
