package strategies

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/nightrange/trader/account"
	"github.com/nightrange/trader/broker"
	"github.com/nightrange/trader/logger"
	"github.com/nightrange/trader/market"
)

// Deps are the shared services every strategy receives at construction.
type Deps struct {
	Tracker    *account.Tracker
	MarketData broker.MarketDataProvider
	Orders     broker.OrderGateway
	Positions  broker.PositionGateway
	Symbols    *market.SymbolCache
	Log        logger.Logger
}

// Base carries the state and pre-trade checks common to all strategies.
// Concrete strategies embed it and call ShouldTrade before acting on a signal.
type Base struct {
	Cfg  Config
	Deps Deps

	DailyTrades int
	tradesDate  string

	statsMu sync.Mutex
	stats   Metrics

	accountID string
	now       func() time.Time
}

// NewBase wires a base strategy. The clock is injectable for tests.
func NewBase(cfg Config, deps Deps, accountID string) *Base {
	return &Base{
		Cfg:       cfg,
		Deps:      deps,
		accountID: accountID,
		now:       time.Now,
	}
}

// AccountID returns the trading account this strategy operates.
func (b *Base) AccountID() string { return b.accountID }

// SetClock overrides the wall clock. Test hook.
func (b *Base) SetClock(now func() time.Time) { b.now = now }

// RecordFill folds a closed trade's realized P&L into the strategy stats.
// Safe to call from the fill listener goroutine.
func (b *Base) RecordFill(fill account.Fill) {
	b.statsMu.Lock()
	b.stats.RecordTrade(fill.PnL)
	b.statsMu.Unlock()
}

// Stats returns a snapshot of the accumulated trade statistics.
func (b *Base) Stats() Metrics {
	b.statsMu.Lock()
	defer b.statsMu.Unlock()
	return b.stats
}

// RecordTrade counts a submitted trade against the daily cap.
func (b *Base) RecordTrade() {
	today := b.now().In(b.Cfg.Timezone).Format("2006-01-02")
	if b.tradesDate != today {
		b.tradesDate = today
		b.DailyTrades = 0
	}
	b.DailyTrades++
}

// ShouldTrade runs the pre-trade gate. Checks are ordered cheapest first and
// short-circuit on the first failure. The returned reason is empty when
// trading is allowed.
func (b *Base) ShouldTrade(condition MarketCondition, openPositions int) (bool, string) {
	if !b.Cfg.Enabled {
		return false, "strategy disabled"
	}

	today := b.now().In(b.Cfg.Timezone).Format("2006-01-02")
	if b.tradesDate == today && b.DailyTrades >= b.Cfg.MaxDailyTrades {
		return false, "daily trade limit reached"
	}

	if openPositions >= b.Cfg.MaxPositions {
		return false, "max positions reached"
	}

	if !b.Cfg.InTradingWindow(b.now()) {
		return false, "outside trading window"
	}

	for _, avoid := range b.Cfg.AvoidConditions {
		if condition == avoid {
			return false, "avoided market condition: " + string(condition)
		}
	}

	state := b.Deps.Tracker.GetState(b.accountID)

	if b.Cfg.RespectDLL && state.DailyLossLimit > 0 {
		used := math.Abs(min(0, state.NetPnL()))
		if used >= state.DailyLossLimit*b.Cfg.MaxDLLUsagePercent {
			return false, "daily loss limit usage exceeded"
		}
	}

	if b.Cfg.RespectMLL && state.MaximumLossLimit > 0 {
		// Keep a buffer of 10% of the MLL above the trailing threshold.
		buffer := 0.10 * state.MaximumLossLimit
		if state.CurrentBalance < state.DrawdownThreshold+buffer {
			return false, "too close to maximum loss limit"
		}
	}

	return true, ""
}

// CalculatePositionSize risks Cfg.RiskPerTradePercent of the current balance
// per trade, given the stop distance. Clamped to [1, min(PositionSize, 10)].
func (b *Base) CalculatePositionSize(ctx context.Context, symbol string, entry, stop float64) int {
	upper := min(b.Cfg.PositionSize, 10)
	if upper < 1 {
		upper = 1
	}

	// Degenerate geometry cannot be risk-sized; the configured size stands.
	dist := math.Abs(entry - stop)
	pointValue := b.Deps.Symbols.PointValue(ctx, symbol)
	if dist <= 0 || pointValue <= 0 {
		return upper
	}

	state := b.Deps.Tracker.GetState(b.accountID)
	riskDollars := state.CurrentBalance * b.Cfg.RiskPerTradePercent / 100
	size := int(math.Floor(riskDollars / (dist * pointValue)))

	if size < 1 {
		return 1
	}
	return min(size, upper)
}
