package strategies

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nightrange/trader/account"
	"github.com/nightrange/trader/broker"
	"github.com/nightrange/trader/journal"
	"github.com/nightrange/trader/logger"
	"github.com/nightrange/trader/market"
)

// stubMarketData serves canned bars keyed by timeframe.
type stubMarketData struct {
	bars map[string][]market.Bar
	tick float64
}

func (s *stubMarketData) GetHistoricalBars(_ context.Context, _ string, timeframe string, _ int) ([]market.Bar, error) {
	return s.bars[timeframe], nil
}

func (s *stubMarketData) GetTickSize(context.Context, string) (float64, error) {
	if s.tick > 0 {
		return s.tick, nil
	}
	return 0.25, nil
}

func (s *stubMarketData) GetPointValue(context.Context, string) (float64, error) {
	return 2.0, nil
}

// stubOrders records placed brackets and stop modifications.
type stubOrders struct {
	mu       sync.Mutex
	placed   []broker.BracketStopEntryRequest
	modified map[string]float64
	nextID   int
	placeErr error
}

func newStubOrders() *stubOrders {
	return &stubOrders{modified: make(map[string]float64)}
}

func (s *stubOrders) PlaceBracketStopEntry(_ context.Context, req broker.BracketStopEntryRequest) (broker.OrderHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.placeErr != nil {
		return broker.OrderHandle{}, s.placeErr
	}
	s.nextID++
	s.placed = append(s.placed, req)
	return broker.OrderHandle{
		OrderID: fmt.Sprintf("ord-%d", s.nextID),
		Symbol:  req.Symbol,
		Side:    req.Side,
	}, nil
}

func (s *stubOrders) ModifyStopPrice(_ context.Context, orderID string, newStop float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modified[orderID] = newStop
	return nil
}

func (s *stubOrders) placedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.placed)
}

// stubPositions returns a fixed set of open positions.
type stubPositions struct {
	mu   sync.Mutex
	open []broker.Position
	err  error
}

func (s *stubPositions) GetOpenPositions(context.Context, string) ([]broker.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return append([]broker.Position(nil), s.open...), nil
}

func (s *stubPositions) set(open []broker.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = open
}

func testDeps(md broker.MarketDataProvider, orders broker.OrderGateway, positions broker.PositionGateway) Deps {
	if md == nil {
		md = &stubMarketData{}
	}
	if orders == nil {
		orders = newStubOrders()
	}
	if positions == nil {
		positions = &stubPositions{}
	}
	log := logger.NewNop()
	return Deps{
		Tracker:    account.NewTracker(context.Background(), journal.NoopStore{}, market.NewSymbolCache(nil, log), log),
		MarketData: md,
		Orders:     orders,
		Positions:  positions,
		Symbols:    market.NewSymbolCache(nil, log),
		Log:        log,
	}
}

func testConfig() Config {
	return Config{
		Name:                "overnight_range",
		Enabled:             true,
		Symbols:             []string{"MNQ"},
		MaxPositions:        2,
		PositionSize:        1,
		RiskPerTradePercent: 0.5,
		MaxDailyTrades:      10,
		AvoidConditions:     []MarketCondition{ConditionHighVolatility},
		TradingStart:        TimeOfDay{9, 30},
		TradingEnd:          TimeOfDay{15, 45},
		NoTradeStart:        TimeOfDay{15, 30},
		NoTradeEnd:          TimeOfDay{16, 0},
		RespectDLL:          true,
		RespectMLL:          true,
		MaxDLLUsagePercent:  0.75,
		Timezone:            time.UTC,
	}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
