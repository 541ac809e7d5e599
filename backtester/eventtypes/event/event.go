package event

import (
	"strings"
	"time"
)

// NewBase creates a base event for a symbol at a point in time. Reasons are
// fixed at creation, empty ones are dropped.
func NewBase(symbol string, t time.Time, offset int64, reasons ...string) *Base {
	b := &Base{
		Offset: offset,
		Time:   t,
		Symbol: symbol,
	}
	for _, r := range reasons {
		if r != "" {
			b.Reasons = append(b.Reasons, r)
		}
	}
	return b
}

// GetOffset returns the offset of the event within its symbol series
func (b *Base) GetOffset() int64 {
	return b.Offset
}

// SetOffset sets the offset
func (b *Base) SetOffset(o int64) {
	b.Offset = o
}

// GetTime returns the time
func (b *Base) GetTime() time.Time {
	return b.Time
}

// GetSymbol returns the symbol
func (b *Base) GetSymbol() string {
	return b.Symbol
}

// GetReason returns all reasons joined
func (b *Base) GetReason() string {
	return strings.Join(b.Reasons, ". ")
}

// Clone returns a copy that does not share the reasons slice
func (b *Base) Clone() *Base {
	if b == nil {
		return nil
	}
	c := *b
	c.Reasons = append([]string(nil), b.Reasons...)
	return &c
}
