package strategies

import (
	"context"
	"time"

	"github.com/nightrange/trader/logger"
	"github.com/nightrange/trader/metrics"
)

// catchupGrace is how long after the trading end a missed market-open
// execution may still run as a catch-up.
const catchupGrace = 30 * time.Minute

// SchedulerAction is the decision Evaluate returns for a given instant.
type SchedulerAction int

const (
	// ActionWait means the market open has not arrived yet today.
	ActionWait SchedulerAction = iota
	// ActionFireOnTime means the open just arrived and execution should run.
	ActionFireOnTime
	// ActionFireCatchup means the open passed while we were down but the
	// grace window is still open.
	ActionFireCatchup
	// ActionSkip means the open passed and the grace window is closed.
	ActionSkip
	// ActionDone means execution already ran today.
	ActionDone
)

func (a SchedulerAction) String() string {
	switch a {
	case ActionWait:
		return "wait"
	case ActionFireOnTime:
		return "fire_on_time"
	case ActionFireCatchup:
		return "fire_catchup"
	case ActionSkip:
		return "skip"
	case ActionDone:
		return "done"
	default:
		return "unknown"
	}
}

// openScheduler fires the market-open execution once per trading day. It
// tolerates late starts: if the process comes up after the open but before
// TradingEnd plus the grace window, it runs a catch-up pass instead of
// waiting a full day.
type openScheduler struct {
	marketOpen TimeOfDay
	tradingEnd TimeOfDay
	tz         *time.Location
	log        logger.Logger
	nowFn      func() time.Time

	lastRunDate string
}

func newOpenScheduler(marketOpen, tradingEnd TimeOfDay, tz *time.Location, log logger.Logger) *openScheduler {
	return &openScheduler{
		marketOpen: marketOpen,
		tradingEnd: tradingEnd,
		tz:         tz,
		log:        log,
		nowFn:      time.Now,
	}
}

// Evaluate is the pure decision function. It does not mutate state; callers
// mark a run with markRan after acting on a fire decision.
func (s *openScheduler) Evaluate(now time.Time) SchedulerAction {
	local := now.In(s.tz)
	openToday := s.marketOpen.On(local)
	graceEnd := s.tradingEnd.On(local).Add(catchupGrace)

	if s.lastRunDate == local.Format("2006-01-02") {
		return ActionDone
	}
	if local.Before(openToday) {
		return ActionWait
	}
	if local.After(graceEnd) {
		return ActionSkip
	}
	// Within one poll interval of the open counts as on time.
	if local.Sub(openToday) <= time.Minute {
		return ActionFireOnTime
	}
	return ActionFireCatchup
}

// nextOpen is the next market-open instant strictly after now.
func (s *openScheduler) nextOpen(now time.Time) time.Time {
	local := now.In(s.tz)
	openToday := s.marketOpen.On(local)
	if local.Before(openToday) {
		return openToday
	}
	return openToday.AddDate(0, 0, 1)
}

func (s *openScheduler) markRan(now time.Time) {
	s.lastRunDate = now.In(s.tz).Format("2006-01-02")
}

// Run drives the scheduler until the context is cancelled, invoking execute
// once per trading day. Failed executions are retried after a short pause
// rather than burning the day.
func (s *openScheduler) Run(ctx context.Context, execute func(ctx context.Context) error) {
	s.log.Info("market open scheduler started",
		logger.String("open", s.marketOpen.String()),
		logger.String("timezone", s.tz.String()))

	for {
		now := s.nowFn()
		action := s.Evaluate(now)

		switch action {
		case ActionFireOnTime, ActionFireCatchup:
			mode := "on_time"
			if action == ActionFireCatchup {
				mode = "catchup"
				s.log.Info("market open passed, running catch-up execution")
			}
			if err := execute(ctx); err != nil {
				s.log.Error("market open execution failed", logger.Err(err))
				if !sleepCtx(ctx, 5*time.Minute) {
					return
				}
				continue
			}
			metrics.SchedulerExecutions.WithLabelValues(mode).Inc()
			s.markRan(now)

		case ActionSkip:
			s.log.Info("market open passed and trading window closed, skipping until next session")
			metrics.SchedulerExecutions.WithLabelValues("skipped").Inc()
			s.markRan(now)
		}

		now = s.nowFn()
		wait := s.nextOpen(now).Sub(now)
		if wait < 5*time.Second {
			wait = 5 * time.Second
		}
		if !sleepCtx(ctx, wait) {
			return
		}
	}
}

// sleepCtx waits for d or until ctx is done, reporting false on cancellation.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
