package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/findwinds/QuantCode/backtester/eventtypes/kline"
	gctcommon "github.com/findwinds/QuantCode/common"
	"github.com/findwinds/QuantCode/common/convert"
	"github.com/findwinds/QuantCode/common/file"
	"github.com/findwinds/QuantCode/log"
	"github.com/shopspring/decimal"
)

// Extension is appended to the symbol to find its file
const Extension = ".csv"

var (
	errEmptyDirectory = errors.New("csv directory not set")
	errMissingColumn  = errors.New("missing required column")
	errShortRow       = errors.New("row has too few fields")
)

var columns = []string{"timestamp", "open", "high", "low", "close", "volume"}

// Provider reads bars from <Directory>/<SYMBOL>.csv. Files may start with a
// header naming the columns in any order; without one the columns are read
// as timestamp,open,high,low,close,volume. Timestamps without a zone are read
// in Location, defaulting to UTC.
type Provider struct {
	Directory string
	Location  *time.Location
}

// NewProvider returns a provider reading from dir
func NewProvider(dir string, loc *time.Location) (*Provider, error) {
	if dir == "" {
		return nil, errEmptyDirectory
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Provider{Directory: dir, Location: loc}, nil
}

// Path returns the file a symbol is read from
func (p *Provider) Path(symbol string) string {
	return filepath.Join(p.Directory, strings.ToUpper(strings.TrimSpace(symbol))+Extension)
}

// Load reads every bar for the symbol within [start, end]
func (p *Provider) Load(ctx context.Context, symbol string, start, end time.Time) ([]*kline.Kline, error) {
	if p == nil {
		return nil, fmt.Errorf("%w csv provider", gctcommon.ErrNilPointer)
	}
	path := p.Path(symbol)
	if !file.Exists(path) {
		return nil, fmt.Errorf("%s: %w", path, os.ErrNotExist)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			log.Errorln(log.Data, closeErr)
		}
	}()
	bars, err := p.read(ctx, strings.ToUpper(strings.TrimSpace(symbol)), f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	resp := make([]*kline.Kline, 0, len(bars))
	for i := range bars {
		if !start.IsZero() && bars[i].Time.Before(start) {
			continue
		}
		if !end.IsZero() && bars[i].Time.After(end) {
			continue
		}
		resp = append(resp, bars[i])
	}
	log.Debugf(log.Data, "read %d bars from %s, %d in range", len(bars), path, len(resp))
	return resp, nil
}

func (p *Provider) read(ctx context.Context, symbol string, r io.Reader) ([]*kline.Kline, error) {
	csvReader := csv.NewReader(r)
	csvReader.FieldsPerRecord = -1
	csvReader.TrimLeadingSpace = true
	csvReader.Comment = '#'

	index := map[string]int{}
	for i := range columns {
		index[columns[i]] = i
	}
	var resp []*kline.Kline
	for line := 1; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := csvReader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if line == 1 && isHeader(row) {
			if index, err = headerIndex(row); err != nil {
				return nil, err
			}
			continue
		}
		bar, err := p.parseRow(symbol, row, index)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		resp = append(resp, bar)
	}
	return resp, nil
}

func (p *Provider) parseRow(symbol string, row []string, index map[string]int) (*kline.Kline, error) {
	field := func(name string) (string, error) {
		i, ok := index[name]
		if !ok {
			return "", nil
		}
		if i >= len(row) {
			if name == "volume" {
				return "", nil
			}
			return "", fmt.Errorf("%w: %s", errShortRow, name)
		}
		return strings.TrimSpace(row[i]), nil
	}
	raw, err := field("timestamp")
	if err != nil {
		return nil, err
	}
	t, err := p.parseTime(raw)
	if err != nil {
		return nil, err
	}
	prices := make([]decimal.Decimal, 4)
	for i, name := range columns[1:5] {
		raw, err = field(name)
		if err != nil {
			return nil, err
		}
		if prices[i], err = convert.DecimalFromString(raw); err != nil {
			return nil, fmt.Errorf("%s %w", name, err)
		}
	}
	volume := decimal.Zero
	raw, err = field("volume")
	if err != nil {
		return nil, err
	}
	if raw != "" {
		if volume, err = convert.DecimalFromString(raw); err != nil {
			return nil, fmt.Errorf("volume %w", err)
		}
	}
	return kline.New(symbol, t, prices[0], prices[1], prices[2], prices[3], volume), nil
}

// parseTime accepts the layouts in convert.TimeLayouts as well as unix
// seconds or milliseconds. Eight digit values are dates, not epochs.
func (p *Provider) parseTime(raw string) (time.Time, error) {
	if unix, err := strconv.ParseInt(raw, 10, 64); err == nil && len(raw) != 8 {
		if unix > 1e12 {
			return time.UnixMilli(unix).In(p.Location), nil
		}
		return time.Unix(unix, 0).In(p.Location), nil
	}
	return convert.TimeFromString(raw, p.Location)
}

func isHeader(row []string) bool {
	if len(row) == 0 {
		return false
	}
	return timestampAlias(strings.ToLower(strings.TrimSpace(row[0]))) == columns[0]
}

func timestampAlias(name string) string {
	switch name {
	case "datetime", "date", "time":
		return columns[0]
	}
	return name
}

func headerIndex(row []string) (map[string]int, error) {
	index := make(map[string]int, len(row))
	for i := range row {
		index[timestampAlias(strings.ToLower(strings.TrimSpace(row[i])))] = i
	}
	for _, name := range columns[:5] {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("%w: %s", errMissingColumn, name)
		}
	}
	return index, nil
}
