package strategies

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/nightrange/trader/account"
	"github.com/nightrange/trader/broker"
	"github.com/nightrange/trader/logger"
	"github.com/nightrange/trader/market"
	"github.com/nightrange/trader/metrics"
)

// Manager drives a set of strategies against one account: it polls each
// strategy's Analyze/Execute/ManagePositions on a fixed cadence, marks the
// account to market from live positions every cycle, and rolls the day over
// at the futures session close.
type Manager struct {
	deps      Deps
	accountID string
	interval  time.Duration

	mu         sync.Mutex
	strategies []Strategy
	running    bool

	cron   *cron.Cron
	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager builds a manager polling at interval. A non-positive interval
// defaults to one minute.
func NewManager(deps Deps, accountID string, interval time.Duration) *Manager {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Manager{
		deps:      deps,
		accountID: accountID,
		interval:  interval,
	}
}

// Add registers a strategy by name from the registry.
func (m *Manager) Add(name string) error {
	s, err := New(name, m.deps, m.accountID)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return fmt.Errorf("cannot add strategy %q while running", name)
	}
	m.strategies = append(m.strategies, s)
	return nil
}

// Strategies returns the registered strategies.
func (m *Manager) Strategies() []Strategy {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Strategy(nil), m.strategies...)
}

// Start launches every strategy's background tasks, the poll loop, and the
// end-of-day cron. It returns once everything is running.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("manager already running")
	}
	if len(m.strategies) == 0 {
		m.mu.Unlock()
		return fmt.Errorf("no strategies registered")
	}
	m.running = true
	strats := append([]Strategy(nil), m.strategies...)
	m.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})

	for _, s := range strats {
		if err := s.Start(runCtx); err != nil {
			cancel()
			return fmt.Errorf("start strategy %s: %w", s.Name(), err)
		}
	}

	// Futures session settles at 17:00 ET, 21:00 UTC during daylight time.
	m.cron = cron.New(cron.WithLocation(time.UTC))
	if _, err := m.cron.AddFunc("0 21 * * *", func() {
		m.rolloverEOD(runCtx)
	}); err != nil {
		cancel()
		return fmt.Errorf("schedule eod rollover: %w", err)
	}
	m.cron.Start()

	go m.pollLoop(runCtx)

	m.deps.Log.Info("strategy manager started",
		logger.String("account", m.accountID),
		logger.Int("strategies", len(strats)),
		logger.Duration("interval", m.interval))
	return nil
}

// Stop shuts down the poll loop, cron, and all strategies.
func (m *Manager) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	strats := append([]Strategy(nil), m.strategies...)
	m.mu.Unlock()

	if m.cron != nil {
		<-m.cron.Stop().Done()
	}
	m.cancel()
	<-m.done

	var firstErr error
	for _, s := range strats {
		if err := s.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *Manager) pollLoop(ctx context.Context) {
	defer close(m.done)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.runCycle(ctx)
		}
	}
}

// runCycle is one poll pass: mark to market, run each strategy over its
// symbols, then let it manage open positions. Strategies with their own timed
// execution return nil signals outside their window, so polling them is
// harmless.
func (m *Manager) runCycle(ctx context.Context) {
	if err := m.markToMarket(ctx); err != nil {
		m.deps.Log.Warn("mark to market failed", logger.Err(err))
	}

	for _, s := range m.Strategies() {
		for _, symbol := range s.Symbols() {
			sig, err := s.Analyze(ctx, symbol)
			if err != nil {
				m.deps.Log.Warn("analyze failed",
					logger.String("strategy", s.Name()),
					logger.String("symbol", symbol), logger.Err(err))
				continue
			}
			if sig == nil {
				continue
			}
			if err := s.Execute(ctx, sig); err != nil {
				m.deps.Log.Error("execute failed",
					logger.String("strategy", s.Name()),
					logger.String("symbol", symbol), logger.Err(err))
			}
		}
		if err := s.ManagePositions(ctx); err != nil {
			m.deps.Log.Warn("manage positions failed",
				logger.String("strategy", s.Name()), logger.Err(err))
		}
	}

	state := m.deps.Tracker.GetState(m.accountID)
	metrics.AccountBalance.WithLabelValues(m.accountID).Set(state.CurrentBalance)
}

// markToMarket revalues open positions at their broker-reported prices.
func (m *Manager) markToMarket(ctx context.Context) error {
	open, err := m.deps.Positions.GetOpenPositions(ctx, m.accountID)
	if err != nil {
		return err
	}

	// The tracker resolves prices by base symbol, so contract-month
	// symbols like MNQZ25 must be keyed the same way.
	prices := make(map[string]float64, len(open))
	for _, p := range open {
		if p.CurrentPrice > 0 {
			prices[market.BaseSymbol(p.Symbol)] = p.CurrentPrice
		}
	}

	_, err = m.deps.Tracker.ApplyMarkToMarket(ctx, m.accountID, open, prices)
	if errors.Is(err, broker.ErrAccountNotTracked) {
		return nil
	}
	return err
}

// RecordFill routes a realized fill to every strategy trading its symbol so
// per-strategy trade statistics stay current. Called from the broker's fill
// listener.
func (m *Manager) RecordFill(fill account.Fill) {
	base := market.BaseSymbol(fill.Symbol)
	for _, s := range m.Strategies() {
		rec, ok := s.(TradeRecorder)
		if !ok {
			continue
		}
		for _, sym := range s.Symbols() {
			if market.BaseSymbol(sym) == base {
				rec.RecordFill(fill)
				break
			}
		}
	}
}

func (m *Manager) rolloverEOD(ctx context.Context) {
	st, err := m.deps.Tracker.RolloverEndOfDay(ctx, m.accountID)
	if err != nil {
		m.deps.Log.Error("end of day rollover failed", logger.Err(err))
		return
	}
	m.deps.Log.Info("end of day rollover complete",
		logger.String("account", m.accountID),
		logger.Float64("balance", st.CurrentBalance),
		logger.Float64("highest_eod", st.HighestEODBalance))
}
