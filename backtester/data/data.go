package data

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/findwinds/QuantCode/backtester/common"
	"github.com/findwinds/QuantCode/backtester/eventtypes/kline"
	gctcommon "github.com/findwinds/QuantCode/common"
	"github.com/findwinds/QuantCode/log"
)

// NewSeries validates bars and stores them for replay. Each symbol's bars
// must be non-decreasing in time; a bar earlier than its predecessor is
// ErrDataOrdering. Bars sharing a timestamp are kept in input order and
// replayed in consecutive slices.
func NewSeries(symbol string, bars []*kline.Kline) (*Series, error) {
	symbol = normalise(symbol)
	if symbol == "" {
		return nil, errEmptySymbol
	}
	stream := make([]*kline.Kline, len(bars))
	for i := range bars {
		if err := bars[i].Validate(); err != nil {
			return nil, err
		}
		if normalise(bars[i].Symbol) != symbol {
			return nil, fmt.Errorf("%w: %s in %s", errSymbolMismatch, bars[i].Symbol, symbol)
		}
		if i > 0 && bars[i].Time.Before(bars[i-1].Time) {
			return nil, fmt.Errorf("%w: %s bar %d at %v does not follow %v",
				common.ErrDataOrdering, symbol, i, bars[i].Time, bars[i-1].Time)
		}
		bars[i].Symbol = symbol
		bars[i].SetOffset(int64(i + 1))
		stream[i] = bars[i]
	}
	return &Series{symbol: symbol, stream: stream}, nil
}

// Symbol returns the series symbol
func (s *Series) Symbol() string {
	return s.symbol
}

// Next returns the next bar and appends it to the visible history
func (s *Series) Next() (*kline.Kline, bool) {
	if s.offset >= len(s.stream) {
		return nil, false
	}
	s.latest = s.stream[s.offset]
	s.offset++
	return s.latest, true
}

// Peek returns the next bar without advancing
func (s *Series) Peek() (*kline.Kline, bool) {
	if s.offset >= len(s.stream) {
		return nil, false
	}
	return s.stream[s.offset], true
}

// History returns every bar replayed so far. The returned slice is a copy
// and never contains bars past the current offset.
func (s *Series) History() []*kline.Kline {
	return append([]*kline.Kline(nil), s.stream[:s.offset]...)
}

// Latest returns the most recently replayed bar
func (s *Series) Latest() *kline.Kline {
	return s.latest
}

// Offset returns how many bars have been replayed
func (s *Series) Offset() int {
	return s.offset
}

// Len returns the number of bars held
func (s *Series) Len() int {
	return len(s.stream)
}

// IsLastEvent returns whether every bar has been replayed
func (s *Series) IsLastEvent() bool {
	return s.offset >= len(s.stream)
}

// Reset rewinds the series to the start
func (s *Series) Reset() {
	s.offset = 0
	s.latest = nil
}

// NewHolder creates an empty holder
func NewHolder() *Holder {
	return &Holder{data: make(map[string]*Series)}
}

// SetDataForSymbol stores a series. The order series are added in is the
// tie-break order for bars sharing a timestamp.
func (h *Holder) SetDataForSymbol(s *Series) error {
	if h == nil {
		return fmt.Errorf("%w holder", gctcommon.ErrNilPointer)
	}
	if s == nil {
		return fmt.Errorf("%w series", gctcommon.ErrNilPointer)
	}
	if h.data == nil {
		h.data = make(map[string]*Series)
	}
	if _, ok := h.data[s.symbol]; ok {
		return fmt.Errorf("%w %s", errDuplicateSeries, s.symbol)
	}
	h.data[s.symbol] = s
	h.order = append(h.order, s.symbol)
	return nil
}

// GetDataForSymbol returns the series for a symbol
func (h *Holder) GetDataForSymbol(symbol string) (*Series, error) {
	if h == nil {
		return nil, fmt.Errorf("%w holder", gctcommon.ErrNilPointer)
	}
	s, ok := h.data[normalise(symbol)]
	if !ok {
		return nil, fmt.Errorf("%s %w", symbol, ErrHandlerNotFound)
	}
	return s, nil
}

// Symbols returns symbols in tie-break order
func (h *Holder) Symbols() []string {
	return append([]string(nil), h.order...)
}

// NextSlice advances every series whose next bar has the earliest pending
// timestamp by one bar and returns those bars in symbol order. A symbol with
// several bars at one timestamp contributes one per slice.
func (h *Holder) NextSlice() (Slice, bool) {
	var earliest time.Time
	found := false
	for _, sym := range h.order {
		bar, ok := h.data[sym].Peek()
		if !ok {
			continue
		}
		if !found || bar.Time.Before(earliest) {
			earliest = bar.Time
			found = true
		}
	}
	if !found {
		return Slice{}, false
	}
	resp := Slice{Time: earliest}
	for _, sym := range h.order {
		s := h.data[sym]
		if bar, ok := s.Peek(); ok && bar.Time.Equal(earliest) {
			s.Next()
			resp.Bars = append(resp.Bars, bar)
		}
	}
	return resp, true
}

// Reset rewinds every series
func (h *Holder) Reset() {
	for _, s := range h.data {
		s.Reset()
	}
}

// FilterRange returns bars within [start, end]. Zero times leave that side
// open.
func FilterRange(bars []*kline.Kline, start, end time.Time) []*kline.Kline {
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
	return resp
}

// Load uses the provider to build a holder for symbols in the order given
func Load(ctx context.Context, p Provider, symbols []string, start, end time.Time) (*Holder, error) {
	if p == nil {
		return nil, fmt.Errorf("%w provider", gctcommon.ErrNilPointer)
	}
	if !start.IsZero() && !end.IsZero() && !end.After(start) {
		return nil, errInvalidRange
	}
	h := NewHolder()
	for _, sym := range symbols {
		bars, err := p.Load(ctx, sym, start, end)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", sym, err)
		}
		bars = FilterRange(bars, start, end)
		if len(bars) == 0 {
			return nil, fmt.Errorf("%s %w between %v and %v", sym, ErrNoData, start, end)
		}
		s, err := NewSeries(sym, bars)
		if err != nil {
			return nil, err
		}
		if err = h.SetDataForSymbol(s); err != nil {
			return nil, err
		}
		log.Infof(log.Data, "loaded %d bars for %s from %v to %v", s.Len(), s.Symbol(), bars[0].Time, bars[len(bars)-1].Time)
	}
	return h, nil
}

func normalise(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
