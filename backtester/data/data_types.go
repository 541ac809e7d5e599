package data

import (
	"context"
	"errors"
	"time"

	"github.com/findwinds/QuantCode/backtester/eventtypes/kline"
)

var (
	// ErrHandlerNotFound returned when a series is not found for a symbol
	ErrHandlerNotFound = errors.New("handler not found")
	// ErrNoData is returned when a symbol has no bars to replay
	ErrNoData = errors.New("no data")

	errEmptySymbol     = errors.New("empty symbol")
	errSymbolMismatch  = errors.New("bar symbol does not match series")
	errDuplicateSeries = errors.New("series already loaded")
	errInvalidRange    = errors.New("end date must be after start date")
)

// Provider loads historical bars for one symbol, ordered by time, within
// [start, end]. Zero times leave that side of the range open.
type Provider interface {
	Load(ctx context.Context, symbol string, start, end time.Time) ([]*kline.Kline, error)
}

// Series holds one symbol's bars and the offset up to which they have been
// replayed. Bars past the offset are never exposed through History.
type Series struct {
	symbol string
	stream []*kline.Kline
	offset int
	latest *kline.Kline
}

// Holder stores a series per symbol and merges them into timestamp slices
// using a fixed symbol order to break ties
type Holder struct {
	order []string
	data  map[string]*Series
}

// Slice is every bar sharing one timestamp, in symbol order
type Slice struct {
	Time time.Time
	Bars []*kline.Kline
}
