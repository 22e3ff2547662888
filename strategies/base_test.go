package strategies

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nightrange/trader/account"
)

const testAccountID = "acct-1"

func newTestBase(t *testing.T, startingBalance float64) *Base {
	t.Helper()

	deps := testDeps(nil, nil, nil)
	deps.Tracker.Initialize(context.Background(), account.InitParams{
		AccountID:       testAccountID,
		Name:            "150K Evaluation",
		Type:            account.TypeEvaluation,
		StartingBalance: startingBalance,
	})

	b := NewBase(testConfig(), deps, testAccountID)
	b.SetClock(fixedClock(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)))
	return b
}

func TestShouldTradeAllows(t *testing.T) {
	t.Parallel()

	b := newTestBase(t, 150000)
	ok, reason := b.ShouldTrade(ConditionBreakout, 0)
	assert.True(t, ok)
	assert.Empty(t, reason)
}

func TestShouldTradeGates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		setup      func(b *Base)
		condition  MarketCondition
		openPos    int
		wantReason string
	}{
		{
			name:       "disabled strategy",
			setup:      func(b *Base) { b.Cfg.Enabled = false },
			condition:  ConditionBreakout,
			wantReason: "strategy disabled",
		},
		{
			name: "daily trade limit",
			setup: func(b *Base) {
				b.Cfg.MaxDailyTrades = 2
				b.RecordTrade()
				b.RecordTrade()
			},
			condition:  ConditionBreakout,
			wantReason: "daily trade limit reached",
		},
		{
			name:       "max positions",
			condition:  ConditionBreakout,
			openPos:    2,
			wantReason: "max positions reached",
		},
		{
			name: "outside trading window",
			setup: func(b *Base) {
				b.SetClock(fixedClock(time.Date(2025, 3, 10, 5, 0, 0, 0, time.UTC)))
			},
			condition:  ConditionBreakout,
			wantReason: "outside trading window",
		},
		{
			name:       "avoided condition",
			condition:  ConditionHighVolatility,
			wantReason: "avoided market condition: high_volatility",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b := newTestBase(t, 150000)
			if tt.setup != nil {
				tt.setup(b)
			}
			ok, reason := b.ShouldTrade(tt.condition, tt.openPos)
			assert.False(t, ok)
			assert.Equal(t, tt.wantReason, reason)
		})
	}
}

func TestShouldTradeDLLUsage(t *testing.T) {
	t.Parallel()

	b := newTestBase(t, 150000)
	// 150K account detects a 3000 daily loss limit; 75% of it is 2250.
	_, err := b.Deps.Tracker.ApplyFill(context.Background(), testAccountID, account.Fill{PnL: -2300})
	require.NoError(t, err)

	ok, reason := b.ShouldTrade(ConditionBreakout, 0)
	assert.False(t, ok)
	assert.Equal(t, "daily loss limit usage exceeded", reason)
}

func TestShouldTradeMLLProximity(t *testing.T) {
	t.Parallel()

	b := newTestBase(t, 150000)
	// MLL 4500, threshold 145500, buffer 450. Balance below 145950 blocks.
	_, err := b.Deps.Tracker.ApplyFill(context.Background(), testAccountID, account.Fill{PnL: -4100})
	require.NoError(t, err)
	b.Cfg.RespectDLL = false

	ok, reason := b.ShouldTrade(ConditionBreakout, 0)
	assert.False(t, ok)
	assert.Equal(t, "too close to maximum loss limit", reason)
}

func TestDailyTradeCountResetsNextDay(t *testing.T) {
	t.Parallel()

	b := newTestBase(t, 150000)
	b.Cfg.MaxDailyTrades = 1
	b.RecordTrade()

	ok, _ := b.ShouldTrade(ConditionBreakout, 0)
	assert.False(t, ok)

	b.SetClock(fixedClock(time.Date(2025, 3, 11, 12, 0, 0, 0, time.UTC)))
	ok, reason := b.ShouldTrade(ConditionBreakout, 0)
	assert.True(t, ok, reason)
}

func TestRecordFillAggregatesStats(t *testing.T) {
	t.Parallel()

	b := newTestBase(t, 150000)
	b.RecordFill(account.Fill{Symbol: "MNQ", PnL: 160})
	b.RecordFill(account.Fill{Symbol: "MNQ", PnL: -100})
	b.RecordFill(account.Fill{Symbol: "MNQ", PnL: 40})

	stats := b.Stats()
	assert.Equal(t, 3, stats.TotalTrades)
	assert.Equal(t, 2, stats.WinningTrades)
	assert.Equal(t, 1, stats.LosingTrades)
	assert.InDelta(t, 100.0, stats.TotalPnL, 1e-9)
	assert.InDelta(t, 160.0, stats.BestTrade, 1e-9)
	assert.InDelta(t, -100.0, stats.WorstTrade, 1e-9)
	assert.InDelta(t, 2.0, stats.ProfitFactor(), 1e-9)
}

func TestCalculatePositionSize(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	tests := []struct {
		name        string
		balance     float64
		riskPercent float64
		maxSize     int
		entry, stop float64
		want        int
	}{
		// MNQ point value 2.0. Risk 0.5% of 150k = 750; 50pt stop * 2 = 100/contract.
		{"normal sizing capped", 150000, 0.5, 10, 21000.25, 20950.25, 7},
		{"capped by configured size", 150000, 0.5, 2, 21000.25, 20950.25, 2},
		{"floor to one", 150000, 0.01, 10, 21000, 20950, 1},
		// No stop distance means no risk sizing; the configured size stands.
		{"zero stop distance uses configured size", 150000, 0.5, 3, 21000, 21000, 3},
		{"zero stop distance clamps configured size", 150000, 0.5, 25, 21000, 21000, 10},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b := newTestBase(t, tt.balance)
			b.Cfg.RiskPerTradePercent = tt.riskPercent
			b.Cfg.PositionSize = tt.maxSize
			got := b.CalculatePositionSize(ctx, "MNQ", tt.entry, tt.stop)
			assert.Equal(t, tt.want, got)
		})
	}
}
