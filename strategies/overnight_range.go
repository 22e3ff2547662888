package strategies

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

// StrategyOvernightRange is the registry name for the overnight breakout.
const StrategyOvernightRange = "overnight_range"

// breakevenPollInterval is the cadence of the background breakeven loop.
const breakevenPollInterval = 10 * time.Second

func init() {
	Register(StrategyOvernightRange, func(deps Deps, accountID string) (Strategy, error) {
		return NewOvernightRange(deps, accountID)
	})
}

// OvernightConfig is the overnight-range specific tuning on top of the shared
// strategy config.
type OvernightConfig struct {
	OvernightStart TimeOfDay
	OvernightEnd   TimeOfDay
	MarketOpen     TimeOfDay

	ATRPeriod    int
	ATRTimeframe string

	StopATRMultiplier float64
	RangeBreakOffset  float64

	BreakevenEnabled bool
	BreakevenPoints  float64
}

func overnightConfigFromEnv() (OvernightConfig, error) {
	cfg := OvernightConfig{
		ATRPeriod:         envInt("OVERNIGHT_ATR_PERIOD", 14),
		ATRTimeframe:      envString("OVERNIGHT_ATR_TIMEFRAME", market.Timeframe5m),
		StopATRMultiplier: envFloat("STOP_ATR_MULTIPLIER", 1.25),
		RangeBreakOffset:  envFloat("RANGE_BREAK_OFFSET", 0.25),
		BreakevenEnabled:  envBool("BREAKEVEN_ENABLED", true),
		BreakevenPoints:   envFloat("BREAKEVEN_POINTS", 15),
	}

	var err error
	for _, f := range []struct {
		dst *TimeOfDay
		key string
		def string
	}{
		{&cfg.OvernightStart, "OVERNIGHT_START_TIME", "18:00"},
		{&cfg.OvernightEnd, "OVERNIGHT_END_TIME", "09:30"},
		{&cfg.MarketOpen, "MARKET_OPEN_TIME", "09:30"},
	} {
		*f.dst, err = ParseTimeOfDay(envString(f.key, f.def))
		if err != nil {
			return OvernightConfig{}, fmt.Errorf("%s: %w", f.key, err)
		}
	}

	if cfg.ATRPeriod < 2 {
		return OvernightConfig{}, fmt.Errorf("OVERNIGHT_ATR_PERIOD (%d) must be at least 2", cfg.ATRPeriod)
	}
	if cfg.StopATRMultiplier <= 0 {
		return OvernightConfig{}, fmt.Errorf("STOP_ATR_MULTIPLIER must be positive")
	}
	return cfg, nil
}

// OvernightRangeStrategy trades breakouts of the overnight session range.
// Once per trading day, at the market open, it measures the overnight high
// and low, sizes stops and targets off ATR, and places a long bracket above
// the high and a short bracket below the low. Winning entries get their stop
// moved to breakeven after a configurable profit.
type OvernightRangeStrategy struct {
	*Base
	Overnight OvernightConfig
	Filters   marketFilters

	mu           sync.Mutex
	activeRanges map[string]*OvernightRange
	placedDate   map[string]string

	scheduler *openScheduler
	breakeven *breakevenMonitor

	// Interval for the background breakeven poll loop.
	breakevenInterval time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOvernightRange builds the strategy from the environment.
func NewOvernightRange(deps Deps, accountID string) (*OvernightRangeStrategy, error) {
	cfg, err := FromEnv(StrategyOvernightRange)
	if err != nil {
		return nil, err
	}
	ocfg, err := overnightConfigFromEnv()
	if err != nil {
		return nil, err
	}

	s := &OvernightRangeStrategy{
		Base:              NewBase(cfg, deps, accountID),
		Overnight:         ocfg,
		Filters:           filtersFromEnv(),
		activeRanges:      make(map[string]*OvernightRange),
		placedDate:        make(map[string]string),
		breakevenInterval: breakevenPollInterval,
	}
	s.scheduler = newOpenScheduler(ocfg.MarketOpen, cfg.TradingEnd, cfg.Timezone, deps.Log)
	s.breakeven = newBreakevenMonitor(ocfg.BreakevenPoints, accountID, deps.Orders, deps.Positions, deps.Log)
	return s, nil
}

func (s *OvernightRangeStrategy) Name() string { return StrategyOvernightRange }

func (s *OvernightRangeStrategy) Symbols() []string { return s.Cfg.Symbols }

func (s *OvernightRangeStrategy) today() string {
	return s.now().In(s.Cfg.Timezone).Format("2006-01-02")
}

func (s *OvernightRangeStrategy) placedToday(symbol string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.placedDate[symbol] == s.today()
}

// claimToday reserves today's bracket placement for a symbol. Returns false
// when another caller already placed, keeping the scheduler and the manager
// poll from double-submitting.
func (s *OvernightRangeStrategy) claimToday(symbol string) bool {
	today := s.today()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.placedDate[symbol] == today {
		return false
	}
	s.placedDate[symbol] = today
	return true
}

// trackOvernightRange fetches session bars and caches the resolved range.
func (s *OvernightRangeStrategy) trackOvernightRange(ctx context.Context, symbol string) (*OvernightRange, error) {
	start, end := SessionWindow(s.now(), s.Overnight.OvernightStart, s.Overnight.OvernightEnd, s.Cfg.Timezone)

	// 1-minute bars over the whole session, with headroom for gaps.
	span := int(end.Sub(start).Minutes()) + 60
	bars, err := s.Deps.MarketData.GetHistoricalBars(ctx, symbol, market.Timeframe1m, span)
	if err != nil {
		return nil, fmt.Errorf("fetch session bars for %s: %w", symbol, err)
	}

	rng, err := BuildOvernightRange(symbol, bars, start, end)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.activeRanges[symbol] = rng
	s.mu.Unlock()

	s.Deps.Log.Info("overnight range resolved",
		logger.String("symbol", symbol),
		logger.Float64("high", rng.High),
		logger.Float64("low", rng.Low),
		logger.Float64("size", rng.RangeSize()),
		logger.Int("bars", rng.BarCount))
	return rng, nil
}

// Analyze resolves the overnight range and ATR for one symbol and, when the
// gates pass, returns a signal carrying both breakout brackets.
func (s *OvernightRangeStrategy) Analyze(ctx context.Context, symbol string) (*Signal, error) {
	// Brackets go out once per day per symbol, at or shortly after the open.
	if act := s.scheduler.Evaluate(s.now()); act != ActionFireOnTime && act != ActionFireCatchup {
		return nil, nil
	}
	if s.placedToday(symbol) {
		return nil, nil
	}

	s.mu.Lock()
	rng := s.activeRanges[symbol]
	s.mu.Unlock()

	if rng == nil {
		var err error
		rng, err = s.trackOvernightRange(ctx, symbol)
		if err != nil {
			return nil, err
		}
	}

	atr, err := fetchATRData(ctx, s.Deps.MarketData, symbol, s.Overnight.ATRTimeframe, s.Overnight.ATRPeriod)
	if err != nil {
		return nil, err
	}

	state := s.Deps.Tracker.GetState(s.AccountID())
	if ok, reason := s.Filters.Check(rng, atr, state); !ok {
		s.Deps.Log.Info("skipping symbol", logger.String("symbol", symbol), logger.String("reason", reason))
		return nil, nil
	}

	tick := s.Deps.Symbols.TickSize(ctx, symbol)
	long, short, err := buildRangeBreakOrders(rng, atr, tick, s.Overnight.RangeBreakOffset, s.Overnight.StopATRMultiplier, s.Cfg.PositionSize)
	if err != nil {
		return nil, err
	}

	qty := s.CalculatePositionSize(ctx, symbol, long.EntryPrice, long.StopLoss)
	long.Quantity = qty
	short.Quantity = qty

	return &Signal{
		Symbol: symbol,
		Orders: []broker.BracketStopEntryRequest{
			long.Request(s.AccountID()),
			short.Request(s.AccountID()),
		},
		Reason: fmt.Sprintf("overnight range %.2f-%.2f, atr %.2f", rng.Low, rng.High, atr.CurrentATR),
	}, nil
}

// Execute submits every bracket in the signal, honoring the pre-trade gate.
func (s *OvernightRangeStrategy) Execute(ctx context.Context, sig *Signal) error {
	if sig == nil || len(sig.Orders) == 0 {
		return nil
	}

	open, err := s.Deps.Positions.GetOpenPositions(ctx, s.AccountID())
	if err != nil {
		return fmt.Errorf("fetch open positions: %w", err)
	}

	if ok, reason := s.ShouldTrade(ConditionBreakout, len(open)); !ok {
		s.Deps.Log.Info("trade gate rejected signal",
			logger.String("symbol", sig.Symbol), logger.String("reason", reason))
		metrics.OrdersRejected.WithLabelValues(s.Name()).Inc()
		return nil
	}

	if !s.claimToday(sig.Symbol) {
		return nil
	}

	for _, req := range sig.Orders {
		handle, err := s.Deps.Orders.PlaceBracketStopEntry(ctx, req)
		if err != nil {
			metrics.OrdersRejected.WithLabelValues(s.Name()).Inc()
			return fmt.Errorf("place %s bracket for %s: %w", req.Side, req.Symbol, err)
		}
		metrics.OrdersSubmitted.WithLabelValues(s.Name()).Inc()
		s.RecordTrade()

		if s.Overnight.BreakevenEnabled {
			s.breakeven.Track(handle, req.EntryPrice, req.StopLoss)
		}
		s.Deps.Log.Info("bracket submitted",
			logger.String("symbol", req.Symbol),
			logger.String("side", string(req.Side)),
			logger.Int("quantity", req.Quantity),
			logger.Float64("entry", req.EntryPrice),
			logger.Float64("stop", req.StopLoss),
			logger.Float64("target", req.TakeProfit),
			logger.String("order_id", handle.OrderID))
	}
	return nil
}

// ManagePositions advances the breakeven monitor.
func (s *OvernightRangeStrategy) ManagePositions(ctx context.Context) error {
	if !s.Overnight.BreakevenEnabled {
		return nil
	}
	return s.breakeven.Poll(ctx)
}

// executeMarketOpen is the once-a-day sequence the scheduler drives: refresh
// ranges, analyze each symbol, and submit the brackets.
func (s *OvernightRangeStrategy) executeMarketOpen(ctx context.Context) error {
	s.mu.Lock()
	s.activeRanges = make(map[string]*OvernightRange)
	s.mu.Unlock()

	var firstErr error
	for _, symbol := range s.Cfg.Symbols {
		sig, err := s.Analyze(ctx, symbol)
		if err != nil {
			s.Deps.Log.Error("analyze failed", logger.String("symbol", symbol), logger.Err(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if sig == nil {
			continue
		}
		if err := s.Execute(ctx, sig); err != nil {
			s.Deps.Log.Error("execute failed", logger.String("symbol", symbol), logger.Err(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Start launches the two background tasks: the market-open scheduler and the
// breakeven poll loop.
func (s *OvernightRangeStrategy) Start(ctx context.Context) error {
	if s.cancel != nil {
		return fmt.Errorf("strategy already started")
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.scheduler.Run(runCtx, s.executeMarketOpen)
	}()
	go func() {
		defer s.wg.Done()
		s.monitorBreakeven(runCtx)
	}()

	s.Deps.Log.Info("overnight range strategy started",
		logger.String("account", s.AccountID()),
		logger.String("open", s.Overnight.MarketOpen.String()))
	return nil
}

// monitorBreakeven polls tracked brackets on a short cadence so stop
// adjustments never wait on the orchestrator's poll interval. A tick with
// nothing tracked makes no gateway calls.
func (s *OvernightRangeStrategy) monitorBreakeven(ctx context.Context) {
	if !s.Overnight.BreakevenEnabled {
		return
	}

	interval := s.breakevenInterval
	if interval <= 0 {
		interval = breakevenPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.breakeven.Active() {
				continue
			}
			if err := s.breakeven.Poll(ctx); err != nil {
				s.Deps.Log.Warn("breakeven poll failed", logger.Err(err))
			}
		}
	}
}

// Stop cancels both background tasks and waits for them to exit.
func (s *OvernightRangeStrategy) Stop() error {
	if s.cancel == nil {
		return nil
	}
	s.cancel()
	s.wg.Wait()
	s.cancel = nil
	return nil
}
