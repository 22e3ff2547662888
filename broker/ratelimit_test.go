package broker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nightrange/trader/market"
)

type countingMarketData struct {
	bars int
	tick int
	pt   int
}

func (c *countingMarketData) GetHistoricalBars(ctx context.Context, symbol, timeframe string, limit int) ([]market.Bar, error) {
	c.bars++
	return []market.Bar{{Symbol: symbol}}, nil
}

func (c *countingMarketData) GetTickSize(ctx context.Context, symbol string) (float64, error) {
	c.tick++
	return 0.25, nil
}

func (c *countingMarketData) GetPointValue(ctx context.Context, symbol string) (float64, error) {
	c.pt++
	return 2.0, nil
}

type countingOrders struct {
	placed   int
	modified int
}

func (c *countingOrders) PlaceBracketStopEntry(ctx context.Context, req BracketStopEntryRequest) (OrderHandle, error) {
	c.placed++
	return OrderHandle{OrderID: "ord-1", Symbol: req.Symbol, Side: req.Side}, nil
}

func (c *countingOrders) ModifyStopPrice(ctx context.Context, orderID string, newStop float64) error {
	c.modified++
	return nil
}

func TestRateLimitedMarketDataPassThrough(t *testing.T) {
	t.Parallel()

	inner := &countingMarketData{}
	md := NewRateLimitedMarketData(inner, 100, 10)
	ctx := context.Background()

	bars, err := md.GetHistoricalBars(ctx, "MNQ", "5m", 50)
	require.NoError(t, err)
	assert.Len(t, bars, 1)

	tick, err := md.GetTickSize(ctx, "MNQ")
	require.NoError(t, err)
	assert.Equal(t, 0.25, tick)

	pt, err := md.GetPointValue(ctx, "MNQ")
	require.NoError(t, err)
	assert.Equal(t, 2.0, pt)

	assert.Equal(t, 1, inner.bars)
	assert.Equal(t, 1, inner.tick)
	assert.Equal(t, 1, inner.pt)
}

func TestRateLimitedOrderGatewayPassThrough(t *testing.T) {
	t.Parallel()

	inner := &countingOrders{}
	og := NewRateLimitedOrderGateway(inner, 100, 10)
	ctx := context.Background()

	h, err := og.PlaceBracketStopEntry(ctx, BracketStopEntryRequest{Symbol: "MNQ", Side: Buy, Quantity: 1, EntryPrice: 2, StopLoss: 1})
	require.NoError(t, err)
	assert.Equal(t, "ord-1", h.OrderID)

	require.NoError(t, og.ModifyStopPrice(ctx, "ord-1", 1.5))
	assert.Equal(t, 1, inner.placed)
	assert.Equal(t, 1, inner.modified)
}

func TestRateLimitedCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	md := NewRateLimitedMarketData(&countingMarketData{}, 1, 1)
	_, err := md.GetTickSize(ctx, "MNQ")
	assert.Error(t, err)

	og := NewRateLimitedOrderGateway(&countingOrders{}, 1, 1)
	assert.Error(t, og.ModifyStopPrice(ctx, "ord-1", 1.0))
}