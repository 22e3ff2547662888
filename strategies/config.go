package strategies

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// MarketCondition classifies the current regime. Strategies can veto trading
// in conditions on their avoid-list.
type MarketCondition string

const (
	ConditionTrendingUp     MarketCondition = "trending_up"
	ConditionTrendingDown   MarketCondition = "trending_down"
	ConditionRanging        MarketCondition = "ranging"
	ConditionHighVolatility MarketCondition = "high_volatility"
	ConditionLowVolatility  MarketCondition = "low_volatility"
	ConditionBreakout       MarketCondition = "breakout"
	ConditionReversal       MarketCondition = "reversal"
	ConditionUnknown        MarketCondition = "unknown"
)

// TimeOfDay is a wall-clock time in the strategy timezone.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q, want HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return TimeOfDay{}, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return TimeOfDay{}, fmt.Errorf("invalid minute in %q", s)
	}
	return TimeOfDay{Hour: h, Minute: m}, nil
}

// Minutes is minutes since midnight.
func (t TimeOfDay) Minutes() int { return t.Hour*60 + t.Minute }

// On anchors the time of day to the calendar date of ref, in ref's location.
func (t TimeOfDay) On(ref time.Time) time.Time {
	return time.Date(ref.Year(), ref.Month(), ref.Day(), t.Hour, t.Minute, 0, 0, ref.Location())
}

func (t TimeOfDay) String() string { return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute) }

// Config is the shared per-strategy configuration. Built once at construction
// from environment variables (see FromEnv) and validated immediately so a bad
// deployment fails at startup, not mid-trade.
type Config struct {
	Name    string
	Enabled bool
	Symbols []string

	MaxPositions        int
	PositionSize        int
	RiskPerTradePercent float64
	MaxDailyTrades      int

	PreferredConditions []MarketCondition
	AvoidConditions     []MarketCondition

	TradingStart TimeOfDay
	TradingEnd   TimeOfDay
	NoTradeStart TimeOfDay
	NoTradeEnd   TimeOfDay

	RespectDLL         bool
	RespectMLL         bool
	MaxDLLUsagePercent float64 // fraction of the DLL the strategy may consume

	Timezone *time.Location
}

// FromEnv loads a strategy config using env vars prefixed with the upper-case
// strategy name, e.g. OVERNIGHT_RANGE_SYMBOLS.
func FromEnv(strategyName string) (Config, error) {
	prefix := strings.ToUpper(strategyName) + "_"

	tz, err := time.LoadLocation(envString("STRATEGY_TIMEZONE", "America/New_York"))
	if err != nil {
		return Config{}, fmt.Errorf("STRATEGY_TIMEZONE: %w", err)
	}

	cfg := Config{
		Name:                strategyName,
		Enabled:             envBool(prefix+"ENABLED", false),
		Symbols:             envList(prefix+"SYMBOLS", "MNQ"),
		MaxPositions:        envInt(prefix+"MAX_POSITIONS", 2),
		PositionSize:        envInt(prefix+"POSITION_SIZE", 1),
		RiskPerTradePercent: envFloat(prefix+"RISK_PERCENT", 0.5),
		MaxDailyTrades:      envInt(prefix+"MAX_DAILY_TRADES", 10),
		PreferredConditions: conditions(envList(prefix+"PREFERRED_CONDITIONS", "breakout")),
		AvoidConditions:     conditions(envList(prefix+"AVOID_CONDITIONS", "high_volatility")),
		RespectDLL:          envBool(prefix+"RESPECT_DLL", true),
		RespectMLL:          envBool(prefix+"RESPECT_MLL", true),
		MaxDLLUsagePercent:  envFloat(prefix+"MAX_DLL_USAGE", 0.75),
		Timezone:            tz,
	}

	for _, f := range []struct {
		dst *TimeOfDay
		key string
		def string
	}{
		{&cfg.TradingStart, prefix + "START_TIME", "09:30"},
		{&cfg.TradingEnd, prefix + "END_TIME", "15:45"},
		{&cfg.NoTradeStart, prefix + "NO_TRADE_START", "15:30"},
		{&cfg.NoTradeEnd, prefix + "NO_TRADE_END", "16:00"},
	} {
		*f.dst, err = ParseTimeOfDay(envString(f.key, f.def))
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", f.key, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects out-of-range values. Returns the first problem found.
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("strategy name cannot be empty")
	}
	if len(c.Symbols) == 0 {
		return fmt.Errorf("at least one symbol is required")
	}
	if c.MaxPositions <= 0 {
		return fmt.Errorf("MaxPositions (%d) must be positive", c.MaxPositions)
	}
	if c.PositionSize <= 0 || c.PositionSize > 10 {
		return fmt.Errorf("PositionSize (%d) must be in [1, 10]", c.PositionSize)
	}
	if c.RiskPerTradePercent <= 0 || c.RiskPerTradePercent > 5 {
		return fmt.Errorf("RiskPerTradePercent (%v) must be >0 and <=5", c.RiskPerTradePercent)
	}
	if c.MaxDailyTrades <= 0 {
		return fmt.Errorf("MaxDailyTrades (%d) must be positive", c.MaxDailyTrades)
	}
	if c.MaxDLLUsagePercent <= 0 || c.MaxDLLUsagePercent > 1 {
		return fmt.Errorf("MaxDLLUsagePercent (%v) must be in (0, 1]", c.MaxDLLUsagePercent)
	}
	if c.TradingStart.Minutes() >= c.TradingEnd.Minutes() {
		return fmt.Errorf("trading window start %s must be before end %s", c.TradingStart, c.TradingEnd)
	}
	if c.Timezone == nil {
		return fmt.Errorf("timezone is required")
	}
	return nil
}

// InTradingWindow reports whether now (converted to the strategy timezone)
// falls inside the trading window and outside the no-trade window.
func (c *Config) InTradingWindow(now time.Time) bool {
	local := now.In(c.Timezone)
	cur := local.Hour()*60 + local.Minute()

	if cur < c.TradingStart.Minutes() || cur > c.TradingEnd.Minutes() {
		return false
	}
	if cur >= c.NoTradeStart.Minutes() && cur <= c.NoTradeEnd.Minutes() {
		return false
	}
	return true
}

func conditions(raw []string) []MarketCondition {
	out := make([]MarketCondition, 0, len(raw))
	for _, r := range raw {
		out = append(out, MarketCondition(strings.ToLower(strings.TrimSpace(r))))
	}
	return out
}

// Env parsing helpers shared by the strategy configs.

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "true", "1", "yes", "on":
		return true
	default:
		return false
	}
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envList(key, def string) []string {
	raw := envString(key, def)
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, strings.ToUpper(s))
		}
	}
	return out
}
