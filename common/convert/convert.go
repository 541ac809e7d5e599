package convert

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var errUnhandledTimeFormat = errors.New("unhandled time format")

// TimeLayouts are the accepted layouts for human supplied timestamps, tried
// in order
var TimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	time.DateTime,
	"2006-01-02 15:04",
	time.DateOnly,
	"20060102",
}

// BoolPtr takes in boolean condition and returns pointer version of it
func BoolPtr(condition bool) *bool {
	b := condition
	return &b
}

// DecimalFromString parses a trimmed string as a decimal
func DecimalFromString(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("could not convert value: %q %w", raw, err)
	}
	return d, nil
}

// TimeFromString parses a timestamp using the first matching layout in
// TimeLayouts. Layouts without a zone are interpreted in loc.
func TimeFromString(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if loc == nil {
		loc = time.UTC
	}
	for i := range TimeLayouts {
		tt, err := time.ParseInLocation(TimeLayouts[i], raw, loc)
		if err == nil {
			return tt, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", errUnhandledTimeFormat, raw)
}
