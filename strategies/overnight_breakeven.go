package strategies

import (
	"context"
	"sync"

	"github.com/nightrange/trader/broker"
	"github.com/nightrange/trader/logger"
	"github.com/nightrange/trader/metrics"
)

// BreakevenState tracks an order through the breakeven lifecycle.
type BreakevenState int

const (
	// BreakevenPendingFill means the stop entry has not filled yet.
	BreakevenPendingFill BreakevenState = iota
	// BreakevenMonitoring means the position is open and profit is watched.
	BreakevenMonitoring
	// BreakevenTriggered means the stop was moved to the entry price.
	BreakevenTriggered
	// BreakevenClosed means the position closed before the trigger.
	BreakevenClosed
)

func (s BreakevenState) String() string {
	switch s {
	case BreakevenPendingFill:
		return "pending_fill"
	case BreakevenMonitoring:
		return "monitoring"
	case BreakevenTriggered:
		return "triggered"
	case BreakevenClosed:
		return "closed"
	default:
		return "unknown"
	}
}

type breakevenEntry struct {
	OrderID      string
	Symbol       string
	Side         broker.Side
	EntryPrice   float64
	OriginalStop float64
	State        BreakevenState
}

// breakevenMonitor moves stops to the entry price once an open position is in
// profit by the configured number of points. Entries in a terminal state are
// dropped, and the position gateway is only queried while something is being
// watched.
type breakevenMonitor struct {
	mu      sync.Mutex
	entries map[string]*breakevenEntry

	points    float64
	accountID string
	orders    broker.OrderGateway
	positions broker.PositionGateway
	log       logger.Logger
}

func newBreakevenMonitor(points float64, accountID string, orders broker.OrderGateway, positions broker.PositionGateway, log logger.Logger) *breakevenMonitor {
	return &breakevenMonitor{
		entries:   make(map[string]*breakevenEntry),
		points:    points,
		accountID: accountID,
		orders:    orders,
		positions: positions,
		log:       log,
	}
}

// Track registers a submitted bracket for breakeven management.
func (m *breakevenMonitor) Track(handle broker.OrderHandle, entryPrice, originalStop float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[handle.OrderID] = &breakevenEntry{
		OrderID:      handle.OrderID,
		Symbol:       handle.Symbol,
		Side:         handle.Side,
		EntryPrice:   entryPrice,
		OriginalStop: originalStop,
		State:        BreakevenPendingFill,
	}
}

// Active reports whether any entry still needs polling.
func (m *breakevenMonitor) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries) > 0
}

// Poll advances every tracked entry one step against the current open
// positions. Safe to call on any cadence; it is a no-op with nothing tracked.
func (m *breakevenMonitor) Poll(ctx context.Context) error {
	if !m.Active() {
		return nil
	}

	open, err := m.positions.GetOpenPositions(ctx, m.accountID)
	if err != nil {
		return err
	}

	byKey := make(map[string]broker.Position, len(open))
	for _, p := range open {
		byKey[p.Symbol+"|"+string(p.Side)] = p
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for id, e := range m.entries {
		pos, filled := byKey[e.Symbol+"|"+string(e.Side)]

		switch e.State {
		case BreakevenPendingFill:
			if filled {
				e.State = BreakevenMonitoring
				m.log.Info("breakout entry filled, monitoring for breakeven",
					logger.String("order_id", id),
					logger.String("symbol", e.Symbol),
					logger.Float64("entry", e.EntryPrice))
			}

		case BreakevenMonitoring:
			if !filled {
				e.State = BreakevenClosed
				delete(m.entries, id)
				continue
			}
			if m.profit(e, pos.CurrentPrice) >= m.points {
				if err := m.orders.ModifyStopPrice(ctx, id, e.EntryPrice); err != nil {
					m.log.Error("failed to move stop to breakeven",
						logger.String("order_id", id), logger.Err(err))
					continue
				}
				e.State = BreakevenTriggered
				metrics.BreakevenTriggers.Inc()
				m.log.Info("stop moved to breakeven",
					logger.String("order_id", id),
					logger.String("symbol", e.Symbol),
					logger.Float64("stop", e.EntryPrice))
				delete(m.entries, id)
			}
		}
	}
	return nil
}

// profit is the favorable excursion in points, signed by side.
func (m *breakevenMonitor) profit(e *breakevenEntry, current float64) float64 {
	if e.Side == broker.Buy {
		return current - e.EntryPrice
	}
	return e.EntryPrice - current
}
