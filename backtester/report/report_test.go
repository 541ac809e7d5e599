package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/findwinds/QuantCode/backtester/engine"
	"github.com/findwinds/QuantCode/backtester/eventtypes/fill"
	"github.com/findwinds/QuantCode/backtester/eventtypes/order"
	"github.com/findwinds/QuantCode/backtester/ledger"
	"github.com/findwinds/QuantCode/backtester/statistics"
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

var t1 = time.Date(2023, 10, 9, 15, 0, 0, 0, time.UTC)

func testReport(t *testing.T) *engine.Report {
	t.Helper()
	id, err := uuid.FromString("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	require.NoError(t, err)
	buy := &order.Order{ID: 1, Symbol: "RB0", Side: order.Buy, Type: order.Market, Quantity: 2}
	return &engine.Report{
		MetaData:       engine.RunMetaData{ID: id, Nickname: "Rebar <test>", Strategy: "dualma"},
		InitialCapital: decimal.NewFromInt(1000000),
		Symbols:        []string{"RB0"},
		EquityCurve: []statistics.EquityPoint{
			{Time: t1, Equity: decimal.NewFromInt(999986), Cash: decimal.NewFromInt(999986), MarginUsed: decimal.NewFromInt(7000)},
			{Time: t1.AddDate(0, 0, 1), Equity: decimal.NewFromInt(1000386), Cash: decimal.NewFromInt(999986), UnrealizedPnL: decimal.NewFromInt(400), MarginUsed: decimal.NewFromInt(7040)},
		},
		Fills: []*fill.Fill{fill.New(buy, 2, decimal.NewFromInt(3500), decimal.NewFromInt(14), t1)},
		FinalAccount: ledger.Account{
			InitialCapital: decimal.NewFromInt(1000000),
			Cash:           decimal.NewFromInt(999986),
			Equity:         decimal.NewFromInt(1000386),
			UnrealizedPnL:  decimal.NewFromInt(400),
			Commission:     decimal.NewFromInt(14),
		},
		FinalPositions: map[string]ledger.Position{
			"RB0": {Symbol: "RB0", NetQuantity: 2, AverageCost: decimal.NewFromInt(3500), LastPrice: decimal.NewFromInt(3520)},
		},
		Statistics: &statistics.Statistic{
			StartDate:      t1,
			EndDate:        t1.AddDate(0, 0, 1),
			Intervals:      2,
			InitialCapital: decimal.NewFromInt(1000000),
			FinalEquity:    decimal.NewFromInt(1000386),
			TotalReturn:    decimal.NewFromFloat(0.000386),
			TotalFills:     1,
			BuyFills:       1,
		},
	}
}

func TestFileName(t *testing.T) {
	t.Parallel()
	r := testReport(t)
	assert.Equal(t, "rebar-test-6ba7b810", FileName(r))
	r.MetaData.Nickname = ""
	r.MetaData.ID = uuid.Nil
	assert.Equal(t, "dualma", FileName(r))
	r.MetaData.Strategy = "***"
	assert.Equal(t, "run", FileName(r))
}

func TestWriteJSON(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	assert.ErrorIs(t, WriteJSON(&buf, nil), errNoReport)

	require.NoError(t, WriteJSON(&buf, testReport(t)))
	var decoded engine.Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "dualma", decoded.MetaData.Strategy)
	require.Len(t, decoded.EquityCurve, 2)
	assert.Equal(t, "1000386", decoded.EquityCurve[1].Equity.String())
	require.NotNil(t, decoded.Statistics)
	assert.Equal(t, int64(1), decoded.Statistics.TotalFills)
}

func TestWriteEquityCSV(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	assert.ErrorIs(t, WriteEquityCSV(&buf, nil), errNoReport)
	require.NoError(t, WriteEquityCSV(&buf, testReport(t)))
	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"timestamp", "equity", "cash", "unrealized_pnl", "margin_used"}, rows[0])
	assert.Equal(t, []string{"2023-10-10T15:00:00Z", "1000386", "999986", "400", "7040"}, rows[2])
}

func TestWriteFillsCSV(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	assert.ErrorIs(t, WriteFillsCSV(&buf, nil), errNoReport)
	require.NoError(t, WriteFillsCSV(&buf, testReport(t)))
	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"2023-10-09T15:00:00Z", "1", "RB0", "BUY", "2", "3500", "14"}, rows[1])
}

func TestWriteHTML(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	assert.ErrorIs(t, WriteHTML(&buf, nil), errNoReport)
	require.NoError(t, WriteHTML(&buf, testReport(t)))
	out := buf.String()
	assert.Contains(t, out, "Rebar &lt;test&gt;", "titles must be escaped")
	assert.Contains(t, out, "1000386.00")
	assert.Contains(t, out, "0.04%")
	assert.Contains(t, out, `id="positions"`)

	empty := &engine.Report{InitialCapital: decimal.NewFromInt(1)}
	buf.Reset()
	require.NoError(t, WriteHTML(&buf, empty))
	assert.NotContains(t, buf.String(), `id="positions"`)
}

func TestSummary(t *testing.T) {
	t.Parallel()
	assert.Empty(t, Summary(nil, language.English))
	out := Summary(testReport(t), language.English)
	assert.Contains(t, out, "Final equity: 1,000,386.00")
	assert.Contains(t, out, "Total return: 0.04%")
	assert.Contains(t, out, "Fills: 1 (buy 1 sell 0)")

	r := testReport(t)
	r.Statistics = nil
	out = Summary(r, language.English)
	assert.Contains(t, out, "Commission: 14.00")
	assert.NotContains(t, out, "Total return")
}

func TestWrite(t *testing.T) {
	t.Parallel()
	_, err := Write(nil, "out", []string{"json"})
	assert.ErrorIs(t, err, errNoReport)
	_, err = Write(testReport(t), "", []string{"json"})
	assert.ErrorIs(t, err, errNoOutputFolder)

	dir := t.TempDir()
	paths, err := Write(testReport(t), dir, []string{"json", "CSV", "html", "text"})
	require.NoError(t, err)
	require.Len(t, paths, 5)
	for _, p := range paths {
		assert.True(t, strings.HasPrefix(filepath.Base(p), "rebar-test-6ba7b810"))
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}

	_, err = Write(testReport(t), dir, []string{"pdf"})
	assert.ErrorIs(t, err, errUnknownFormat)
}
