package order

import (
	"errors"
	"testing"
	"time"

	"github.com/findwinds/QuantCode/backtester/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSide(t *testing.T) {
	t.Parallel()
	assert.True(t, Buy.IsValid())
	assert.True(t, Sell.IsValid())
	assert.False(t, Side("SHORT").IsValid())
	assert.Equal(t, int64(1), Buy.Sign())
	assert.Equal(t, int64(-1), Sell.Sign())
	assert.Equal(t, Sell, Buy.Opposite())
	assert.Equal(t, Buy, Sell.Opposite())
}

func TestStatus(t *testing.T) {
	t.Parallel()
	for _, s := range []Status{Filled, Rejected, Cancelled} {
		assert.True(t, s.IsTerminal(), s)
		assert.False(t, s.IsCancellable(), s)
	}
	for _, s := range []Status{Accepted, PartiallyFilled} {
		assert.False(t, s.IsTerminal(), s)
		assert.True(t, s.IsCancellable(), s)
	}
	assert.False(t, New.IsCancellable())
}

func TestValidate(t *testing.T) {
	t.Parallel()
	var o *Order
	assert.ErrorIs(t, o.Validate(), common.ErrNilArguments)

	tests := []struct {
		name string
		o    Order
		err  error
	}{
		{"valid market", Order{Symbol: "RB0", Side: Buy, Type: Market, Quantity: 2}, nil},
		{"valid limit", Order{Symbol: "RB0", Side: Sell, Type: Limit, Quantity: 1, LimitPrice: decimal.NewFromInt(3500)}, nil},
		{"no symbol", Order{Side: Buy, Type: Market, Quantity: 1}, errNoSymbol},
		{"bad side", Order{Symbol: "RB0", Side: "UP", Type: Market, Quantity: 1}, errInvalidSide},
		{"bad type", Order{Symbol: "RB0", Side: Buy, Type: "STOP", Quantity: 1}, errInvalidType},
		{"zero quantity", Order{Symbol: "RB0", Side: Buy, Type: Market}, errInvalidQuantity},
		{"negative quantity", Order{Symbol: "RB0", Side: Buy, Type: Market, Quantity: -1}, errInvalidQuantity},
		{"limit without price", Order{Symbol: "RB0", Side: Buy, Type: Limit, Quantity: 1}, errInvalidLimit},
		{"market with price", Order{Symbol: "RB0", Side: Buy, Type: Market, Quantity: 1, LimitPrice: decimal.NewFromInt(1)}, errUnexpectedLimit},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.o.Validate()
			if tc.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.err)
			assert.ErrorIs(t, err, common.ErrValidation)
		})
	}
}

func TestApplyFill(t *testing.T) {
	t.Parallel()
	tt := time.Unix(1337, 0)
	o := &Order{Symbol: "RB0", Side: Sell, Type: Market, Quantity: 4, Status: Accepted}
	assert.Equal(t, int64(-3), o.SignedQuantity(3))

	require.NoError(t, o.ApplyFill(1, decimal.NewFromInt(3500), decimal.NewFromInt(7), tt))
	assert.Equal(t, PartiallyFilled, o.Status)
	assert.Equal(t, int64(3), o.Remaining())

	require.NoError(t, o.ApplyFill(3, decimal.NewFromInt(3520), decimal.NewFromInt(21), tt))
	assert.Equal(t, Filled, o.Status)
	assert.Equal(t, "3515", o.AverageFillPrice.String())
	assert.Equal(t, "28", o.Commission.String())
	assert.Equal(t, tt, o.UpdateTime)

	assert.ErrorIs(t, o.ApplyFill(1, decimal.NewFromInt(1), decimal.Zero, tt), errOverFill)
	assert.ErrorIs(t, (&Order{Quantity: 1}).ApplyFill(0, decimal.NewFromInt(1), decimal.Zero, tt), errOverFill)
}

func TestNewEvent(t *testing.T) {
	t.Parallel()
	errReject := errors.New("no")
	o := &Order{ID: 7, Symbol: "RB0", Side: Buy, Type: Market, Quantity: 1, Status: Rejected}
	e := NewEvent(common.OrderRejected, o, time.Unix(1, 0), errReject)
	assert.Equal(t, common.OrderRejected, e.Kind())
	assert.True(t, e.IsRejection())
	assert.ErrorIs(t, e.Err, errReject)
	assert.Equal(t, "no", e.GetReason())
	assert.Equal(t, "RB0", e.GetSymbol())

	o.Status = Cancelled
	assert.Equal(t, Rejected, e.GetOrder().Status, "event holds a snapshot")

	accepted := NewEvent(common.OrderAccepted, o, time.Unix(1, 0), nil)
	assert.False(t, accepted.IsRejection())
	assert.Empty(t, accepted.GetReason())
}
