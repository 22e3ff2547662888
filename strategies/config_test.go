package strategies

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{"09:30", TimeOfDay{9, 30}, false},
		{"18:00", TimeOfDay{18, 0}, false},
		{"00:00", TimeOfDay{0, 0}, false},
		{"23:59", TimeOfDay{23, 59}, false},
		{" 9:05 ", TimeOfDay{9, 5}, false},
		{"24:00", TimeOfDay{}, true},
		{"12:60", TimeOfDay{}, true},
		{"nope", TimeOfDay{}, true},
		{"12", TimeOfDay{}, true},
		{"", TimeOfDay{}, true},
	}

	for _, tt := range tests {
		got, err := ParseTimeOfDay(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestTimeOfDayOn(t *testing.T) {
	t.Parallel()

	ref := time.Date(2025, 3, 10, 14, 22, 59, 0, time.UTC)
	got := TimeOfDay{9, 30}.On(ref)
	assert.Equal(t, time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC), got)
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	valid := testConfig()
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty name", func(c *Config) { c.Name = "" }},
		{"no symbols", func(c *Config) { c.Symbols = nil }},
		{"zero max positions", func(c *Config) { c.MaxPositions = 0 }},
		{"oversized position", func(c *Config) { c.PositionSize = 11 }},
		{"zero position size", func(c *Config) { c.PositionSize = 0 }},
		{"excessive risk", func(c *Config) { c.RiskPerTradePercent = 6 }},
		{"zero daily trades", func(c *Config) { c.MaxDailyTrades = 0 }},
		{"dll usage above one", func(c *Config) { c.MaxDLLUsagePercent = 1.5 }},
		{"window inverted", func(c *Config) { c.TradingStart = TimeOfDay{16, 0} }},
		{"nil timezone", func(c *Config) { c.Timezone = nil }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := testConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestInTradingWindow(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	day := func(h, m int) time.Time {
		return time.Date(2025, 3, 10, h, m, 0, 0, time.UTC)
	}

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"before open", day(9, 0), false},
		{"at open", day(9, 30), true},
		{"midday", day(12, 0), true},
		{"inside no-trade window", day(15, 35), false},
		{"after close", day(16, 30), false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, cfg.InTradingWindow(tt.at))
		})
	}
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv("overnight_range")
	require.NoError(t, err)

	assert.Equal(t, "overnight_range", cfg.Name)
	assert.False(t, cfg.Enabled)
	assert.Equal(t, []string{"MNQ"}, cfg.Symbols)
	assert.Equal(t, 0.75, cfg.MaxDLLUsagePercent)
	assert.Equal(t, TimeOfDay{9, 30}, cfg.TradingStart)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("OVERNIGHT_RANGE_ENABLED", "true")
	t.Setenv("OVERNIGHT_RANGE_SYMBOLS", "mnq, mes")
	t.Setenv("OVERNIGHT_RANGE_MAX_DAILY_TRADES", "4")
	t.Setenv("OVERNIGHT_RANGE_START_TIME", "08:30")

	cfg, err := FromEnv("overnight_range")
	require.NoError(t, err)

	assert.True(t, cfg.Enabled)
	assert.Equal(t, []string{"MNQ", "MES"}, cfg.Symbols)
	assert.Equal(t, 4, cfg.MaxDailyTrades)
	assert.Equal(t, TimeOfDay{8, 30}, cfg.TradingStart)
}

func TestMetricsRecordTrade(t *testing.T) {
	t.Parallel()

	var m Metrics
	for _, pnl := range []float64{100, -50, 200, -25, 0} {
		m.RecordTrade(pnl)
	}

	assert.Equal(t, 5, m.TotalTrades)
	assert.Equal(t, 2, m.WinningTrades)
	assert.Equal(t, 2, m.LosingTrades)
	assert.InDelta(t, 225, m.TotalPnL, 1e-9)
	assert.InDelta(t, 0.4, m.WinRate(), 1e-9)
	assert.InDelta(t, 150, m.AverageWin(), 1e-9)
	assert.InDelta(t, 37.5, m.AverageLoss(), 1e-9)
	assert.InDelta(t, 4, m.ProfitFactor(), 1e-9)
	assert.InDelta(t, 200, m.BestTrade, 1e-9)
	assert.InDelta(t, -50, m.WorstTrade, 1e-9)
}
