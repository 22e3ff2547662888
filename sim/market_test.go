package sim

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nightrange/trader/market"
)

func TestMarketBars(t *testing.T) {
	t.Parallel()

	m := NewMarket()
	ctx := context.Background()

	_, err := m.GetHistoricalBars(ctx, "MNQ", market.Timeframe1m, 10)
	assert.Error(t, err, "unloaded symbol must error")

	start := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	bars := make([]market.Bar, 30)
	for i := range bars {
		bars[i] = market.Bar{Symbol: "MNQ", Time: start.Add(time.Duration(i) * time.Minute), Close: float64(i)}
	}
	// Load reversed to prove sorting on ingest.
	rev := make([]market.Bar, len(bars))
	for i, b := range bars {
		rev[len(bars)-1-i] = b
	}
	m.LoadBars("MNQ", market.Timeframe1m, rev)

	got, err := m.GetHistoricalBars(ctx, "MNQ", market.Timeframe1m, 10)
	require.NoError(t, err)
	require.Len(t, got, 10)
	assert.Equal(t, 20.0, got[0].Close, "limit keeps the most recent bars")
	assert.Equal(t, 29.0, got[9].Close)
}

func TestMarketMeta(t *testing.T) {
	t.Parallel()

	m := NewMarket()
	ctx := context.Background()

	tick, err := m.GetTickSize(ctx, "MNQ")
	require.NoError(t, err)
	assert.Equal(t, 0.25, tick)

	pv, err := m.GetPointValue(ctx, "MNQZ5")
	require.NoError(t, err)
	assert.Equal(t, 2.0, pv, "contract month suffix resolves to the base symbol")

	m.SetMeta("MNQ", market.SymbolMeta{TickSize: 0.5, PointValue: 4})
	tick, err = m.GetTickSize(ctx, "MNQ")
	require.NoError(t, err)
	assert.Equal(t, 0.5, tick)
}
