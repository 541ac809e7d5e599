package report

import (
	_ "embed"
	"errors"
	"time"

	"github.com/findwinds/QuantCode/backtester/engine"
)

// Output file suffixes
const (
	equityFileSuffix = "-equity.csv"
	fillsFileSuffix  = "-fills.csv"
)

var (
	errNoReport       = errors.New("no report received")
	errUnknownFormat  = errors.New("unknown report format")
	errNoOutputFolder = errors.New("no output directory set")
)

//go:embed tpl.gohtml
var htmlTemplate string

// Data is what the HTML template renders
type Data struct {
	Report      *engine.Report
	Title       string
	GeneratedAt time.Time
	EquityChart *Chart
	MarginChart *Chart
	Drawdowns   *Chart
	Positions   *Chart
}

// Chart holds chart data along with an axis
type Chart struct {
	AxisType string      `json:"axis-type"`
	Data     []ChartLine `json:"data"`
}

// ChartLine holds chart plot data
type ChartLine struct {
	Name      string     `json:"name"`
	LinePlots []LinePlot `json:"line-plots"`
}

// LinePlot holds value data for a chart
type LinePlot struct {
	Value     float64 `json:"value"`
	UnixMilli int64   `json:"unix-milli"`
}
