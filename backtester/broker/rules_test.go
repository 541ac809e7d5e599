package broker

import (
	"testing"

	"github.com/findwinds/QuantCode/backtester/common"
	"github.com/findwinds/QuantCode/backtester/eventtypes/order"
	gctcommon "github.com/findwinds/QuantCode/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func market(side order.Side, qty int64) *order.Order {
	return &order.Order{Symbol: "RB0", Side: side, Type: order.Market, Quantity: qty}
}

func TestRuleSettings(t *testing.T) {
	t.Parallel()
	s := RuleSettings{MaxPosition: -1}
	assert.ErrorIs(t, s.Validate(), errInvalidMaxPosition)

	s = RuleSettings{}
	require.NoError(t, s.Validate())
	assert.Empty(t, s.Build())

	s = RuleSettings{TPlusOne: true, MaxPosition: 3}
	rules := s.Build()
	require.Len(t, rules, 2)
	assert.Equal(t, TPlusOneRuleName, rules[0].Name())
	assert.Equal(t, MaxPositionRuleName, rules[1].Name())
	assert.NotSame(t, rules[0], s.Build()[0], "every build holds fresh state")
}

func TestAddRule(t *testing.T) {
	t.Parallel()
	b, _ := newTestBroker(t, 1000000, DefaultFillPolicy(), rebar(1))
	assert.ErrorIs(t, b.AddRule(nil), gctcommon.ErrNilPointer)
	require.NoError(t, b.AddRule(&MaxPositionRule{Limit: 1}))
	assert.Len(t, b.rules, 1)
}

func TestTPlusOneRule(t *testing.T) {
	t.Parallel()
	b, rec := newTestBroker(t, 1000000, DefaultFillPolicy(), rebar(1))
	require.NoError(t, b.AddRule(NewTPlusOneRule()))
	require.NoError(t, b.OnBar(bar("RB0", t1, 3500, 3500, 3500, 3500, 10)))

	_, err := b.SubmitOrder(market(order.Buy, 2))
	require.NoError(t, err)
	before := b.GetAccount()
	_, err = b.SubmitOrder(market(order.Sell, 1))
	assert.ErrorIs(t, err, common.ErrRuleViolation)
	assert.ErrorIs(t, err, errClosesTodaysLots)
	assert.Equal(t, common.OrderRejected, rec.kinds[len(rec.kinds)-1])
	assert.Equal(t, before, b.GetAccount(), "rejections leave the account untouched")

	b.OnNewDay(t2)
	require.NoError(t, b.OnBar(bar("RB0", t2, 3510, 3510, 3510, 3510, 10)))
	_, err = b.SubmitOrder(market(order.Sell, 1))
	require.NoError(t, err, "yesterday's lots may be closed")
	assert.Equal(t, int64(1), b.GetPosition("RB0").NetQuantity)

	_, err = b.SubmitOrder(market(order.Buy, 1))
	require.NoError(t, err)
	_, err = b.SubmitOrder(market(order.Sell, 2))
	assert.ErrorIs(t, err, errClosesTodaysLots)
	_, err = b.SubmitOrder(market(order.Sell, 1))
	require.NoError(t, err, "the older lot closes first")
	_, err = b.SubmitOrder(market(order.Sell, 1))
	assert.ErrorIs(t, err, errClosesTodaysLots, "only today's lot remains")
	assert.Equal(t, int64(1), b.GetPosition("RB0").NetQuantity)

	b.Reset()
	require.NoError(t, b.OnBar(bar("RB0", t1, 3500, 3500, 3500, 3500, 10)))
	_, err = b.SubmitOrder(market(order.Sell, 1))
	require.NoError(t, err, "opening a short from flat is allowed")
}

func TestTPlusOneRuleReversal(t *testing.T) {
	t.Parallel()
	r := NewTPlusOneRule()
	b, _ := newTestBroker(t, 1000000, DefaultFillPolicy(), rebar(1))
	require.NoError(t, b.AddRule(r))
	require.NoError(t, b.OnBar(bar("RB0", t1, 3500, 3500, 3500, 3500, 10)))
	_, err := b.SubmitOrder(market(order.Buy, 2))
	require.NoError(t, err)

	b.OnNewDay(t2)
	require.NoError(t, b.OnBar(bar("RB0", t2, 3500, 3500, 3500, 3500, 10)))
	_, err = b.SubmitOrder(market(order.Sell, 5))
	require.NoError(t, err)
	assert.Equal(t, int64(-3), b.GetPosition("RB0").NetQuantity)
	assert.Equal(t, int64(-3), r.opened["RB0"], "the reversed remainder was opened today")
	_, err = b.SubmitOrder(market(order.Buy, 1))
	assert.ErrorIs(t, err, errClosesTodaysLots)
}

func TestMaxPositionRule(t *testing.T) {
	t.Parallel()
	b, _ := newTestBroker(t, 1000000, DefaultFillPolicy(), rebar(1))
	require.NoError(t, b.AddRule(&MaxPositionRule{Limit: 2}))
	require.NoError(t, b.OnBar(bar("RB0", t1, 3500, 3500, 3500, 3500, 10)))

	_, err := b.SubmitOrder(market(order.Buy, 2))
	require.NoError(t, err)
	_, err = b.SubmitOrder(market(order.Buy, 1))
	assert.ErrorIs(t, err, common.ErrRuleViolation)
	assert.ErrorIs(t, err, errExceedsPositionSize)
	_, err = b.SubmitOrder(market(order.Sell, 5))
	assert.ErrorIs(t, err, errExceedsPositionSize)
	_, err = b.SubmitOrder(market(order.Sell, 4))
	require.NoError(t, err)
	assert.Equal(t, int64(-2), b.GetPosition("RB0").NetQuantity)
}
