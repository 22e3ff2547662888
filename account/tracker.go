package account

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nightrange/trader/broker"
	"github.com/nightrange/trader/logger"
	"github.com/nightrange/trader/market"
	"github.com/nightrange/trader/metrics"
)

// Store persists account snapshots so tracking survives process restarts.
// Saves are best-effort: a failed save is logged and tracking continues
// in memory.
type Store interface {
	SaveStates(ctx context.Context, states map[string]State) error
	LoadStates(ctx context.Context) (map[string]State, error)
}

// Tracker maintains one State per account and is the single source of truth
// for loss-limit compliance. All operations are serialized by an internal
// lock; reads return value snapshots so callers never observe a
// partially-updated state.
type Tracker struct {
	mu       sync.Mutex
	accounts map[string]*State
	store    Store
	symbols  *market.SymbolCache
	log      logger.Logger
	now      func() time.Time
}

// InitParams describes an account to start tracking. Nil limits are
// auto-detected from the name/type/balance (see DetectLimits).
type InitParams struct {
	AccountID       string
	Name            string
	Type            string
	StartingBalance float64

	DailyLossLimit   *float64
	MaximumLossLimit *float64
}

// NewTracker creates a tracker, restoring any previously persisted state from
// the store.
func NewTracker(ctx context.Context, store Store, symbols *market.SymbolCache, log logger.Logger) *Tracker {
	t := &Tracker{
		accounts: make(map[string]*State),
		store:    store,
		symbols:  symbols,
		log:      log,
		now:      time.Now,
	}

	if store != nil {
		loaded, err := store.LoadStates(ctx)
		if err != nil {
			log.Error("failed to load persisted account state", logger.Err(err))
		} else {
			for id, st := range loaded {
				st := st
				t.accounts[id] = &st
			}
			if len(loaded) > 0 {
				log.Info("restored account state", logger.Int("accounts", len(loaded)))
			}
		}
	}
	return t
}

// Initialize starts (or resets) tracking for an account and returns the
// initial snapshot.
func (t *Tracker) Initialize(ctx context.Context, p InitParams) State {
	dll, mll := DetectLimits(p.Name, p.Type, p.StartingBalance)
	if p.DailyLossLimit != nil {
		dll = *p.DailyLossLimit
	}
	if p.MaximumLossLimit != nil {
		mll = *p.MaximumLossLimit
	}

	now := t.now().UTC()
	st := &State{
		AccountID:         p.AccountID,
		AccountName:       p.Name,
		AccountType:       p.Type,
		StartingBalance:   p.StartingBalance,
		CurrentBalance:    p.StartingBalance,
		HighestEODBalance: p.StartingBalance,
		DailyLossLimit:    dll,
		MaximumLossLimit:  mll,
		DrawdownThreshold: p.StartingBalance - mll,
		IsCompliant:       true,
		LastUpdate:        now,
		LastEODUpdate:     now,
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.accounts[p.AccountID] = st
	t.persistLocked(ctx)

	t.log.Info("tracking initialized",
		logger.String("account", p.Name),
		logger.Float64("starting_balance", p.StartingBalance),
		logger.Float64("daily_loss_limit", dll),
		logger.Float64("maximum_loss_limit", mll),
		logger.Float64("drawdown_threshold", st.DrawdownThreshold))

	return *st
}

// ApplyFill updates realized P&L, commissions and fees from a filled order,
// recomputes the balance and compliance, persists, and returns the snapshot.
func (t *Tracker) ApplyFill(ctx context.Context, accountID string, fill Fill) (State, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.accounts[accountID]
	if !ok {
		return State{}, fmt.Errorf("apply fill for %q: %w", accountID, broker.ErrAccountNotTracked)
	}

	if fill.PnL != 0 {
		st.RealizedPnL += fill.PnL
		st.TotalTrades++
		if fill.PnL > 0 {
			st.WinningTrades++
		} else {
			st.LosingTrades++
		}
	}
	st.Commissions += fill.Commission
	st.Fees += fill.Fee

	t.recomputeLocked(st)
	st.LastUpdate = t.now().UTC()
	t.persistLocked(ctx)

	t.log.Info("fill applied",
		logger.String("account", accountID),
		logger.Float64("pnl", fill.PnL),
		logger.Float64("balance", st.CurrentBalance))

	return *st, nil
}

// ApplyMarkToMarket recomputes unrealized P&L from open positions and live
// prices. Positions with no quoted price contribute zero (entry price is used
// as the mark).
func (t *Tracker) ApplyMarkToMarket(ctx context.Context, accountID string, positions []broker.Position, prices map[string]float64) (State, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.accounts[accountID]
	if !ok {
		return State{}, fmt.Errorf("mark to market for %q: %w", accountID, broker.ErrAccountNotTracked)
	}

	total := 0.0
	for _, pos := range positions {
		current, ok := prices[market.BaseSymbol(pos.Symbol)]
		if !ok {
			current = pos.EntryPrice
		}

		var diff float64
		if pos.Side == broker.Buy {
			diff = current - pos.EntryPrice
		} else {
			diff = pos.EntryPrice - current
		}

		pointValue := t.symbols.PointValue(ctx, pos.Symbol)
		total += diff * pointValue * float64(pos.Quantity)
	}

	st.UnrealizedPnL = total
	t.recomputeLocked(st)
	st.LastUpdate = t.now().UTC()
	t.persistLocked(ctx)

	return *st, nil
}

// RolloverEndOfDay ratchets the trailing high-water mark if a new end-of-day
// high was made, raising the drawdown threshold with it. Realized P&L is
// cumulative and is deliberately not reset here.
func (t *Tracker) RolloverEndOfDay(ctx context.Context, accountID string) (State, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.accounts[accountID]
	if !ok {
		return State{}, fmt.Errorf("eod rollover for %q: %w", accountID, broker.ErrAccountNotTracked)
	}

	if st.CurrentBalance > st.HighestEODBalance {
		old := st.HighestEODBalance
		st.HighestEODBalance = st.CurrentBalance
		st.DrawdownThreshold = st.HighestEODBalance - st.MaximumLossLimit
		t.log.Info("new EOD high",
			logger.String("account", st.AccountName),
			logger.Float64("high", st.HighestEODBalance),
			logger.Float64("previous", old),
			logger.Float64("drawdown_threshold", st.DrawdownThreshold))
	}
	st.LastEODUpdate = t.now().UTC()
	t.persistLocked(ctx)

	return *st, nil
}

// CheckCompliance computes a read-only compliance report. It has no side
// effects and an untracked account reports compliant with zeroed figures.
func (t *Tracker) CheckCompliance(accountID string) ComplianceReport {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.accounts[accountID]
	if !ok {
		return ComplianceReport{IsCompliant: true}
	}

	netPnL := st.NetPnL()
	dllViolated := netPnL <= -st.DailyLossLimit

	trailingLoss := st.DrawdownFromHigh()
	mllViolated := st.CurrentBalance <= st.DrawdownThreshold

	var violations []string
	if dllViolated {
		violations = append(violations, fmt.Sprintf("daily loss limit exceeded: $%.2f", netPnL))
	}
	if mllViolated {
		violations = append(violations, fmt.Sprintf("maximum loss limit exceeded: $%.2f", trailingLoss))
	}

	return ComplianceReport{
		IsCompliant:  st.IsCompliant,
		DLLLimit:     st.DailyLossLimit,
		DLLUsed:      max(0, -min(0, netPnL)),
		DLLRemaining: max(0, st.DailyLossLimit+netPnL),
		DLLViolated:  dllViolated,
		MLLLimit:     st.MaximumLossLimit,
		MLLUsed:      trailingLoss,
		MLLRemaining: max(0, st.MaximumLossLimit-trailingLoss),
		MLLViolated:  mllViolated,
		TrailingLoss: trailingLoss,
		Violations:   violations,
	}
}

// GetState returns a snapshot for the account, or a zero-valued placeholder
// carrying the requested id if it is not tracked, so read-only callers don't
// need an error path.
func (t *Tracker) GetState(accountID string) State {
	t.mu.Lock()
	defer t.mu.Unlock()

	if st, ok := t.accounts[accountID]; ok {
		return *st
	}
	return State{AccountID: accountID, IsCompliant: true}
}

// AllStates returns snapshots of every tracked account.
func (t *Tracker) AllStates() map[string]State {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]State, len(t.accounts))
	for id, st := range t.accounts {
		out[id] = *st
	}
	return out
}

// recomputeLocked derives the balance and compliance status. Caller holds the
// lock.
func (t *Tracker) recomputeLocked(st *State) {
	st.CurrentBalance = st.StartingBalance + st.RealizedPnL + st.UnrealizedPnL - st.Commissions - st.Fees
	metrics.AccountBalance.WithLabelValues(st.AccountID).Set(st.CurrentBalance)

	wasCompliant := st.IsCompliant

	netPnL := st.NetPnL()
	switch {
	case netPnL <= -st.DailyLossLimit:
		st.IsCompliant = false
		st.ViolationReason = fmt.Sprintf("daily loss limit breached: $%.2f <= $%.2f", netPnL, -st.DailyLossLimit)
		if wasCompliant {
			metrics.ComplianceViolations.WithLabelValues("dll").Inc()
		}
		t.log.Error("compliance violation", logger.String("account", st.AccountID), logger.String("reason", st.ViolationReason))
	case st.CurrentBalance <= st.DrawdownThreshold:
		st.IsCompliant = false
		st.ViolationReason = fmt.Sprintf("maximum loss limit breached: $%.2f <= $%.2f", st.CurrentBalance, st.DrawdownThreshold)
		if wasCompliant {
			metrics.ComplianceViolations.WithLabelValues("mll").Inc()
		}
		t.log.Error("compliance violation", logger.String("account", st.AccountID), logger.String("reason", st.ViolationReason))
	default:
		st.IsCompliant = true
		st.ViolationReason = ""
	}
}

// persistLocked writes the full snapshot map. Failures are logged only; the
// in-memory state is authoritative. Caller holds the lock.
func (t *Tracker) persistLocked(ctx context.Context) {
	if t.store == nil {
		return
	}
	snapshot := make(map[string]State, len(t.accounts))
	for id, st := range t.accounts {
		snapshot[id] = *st
	}
	if err := t.store.SaveStates(ctx, snapshot); err != nil {
		t.log.Error("failed to persist account state", logger.Err(err))
	}
}
