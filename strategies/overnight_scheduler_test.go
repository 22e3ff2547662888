package strategies

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nightrange/trader/logger"
)

func newTestScheduler() *openScheduler {
	return newOpenScheduler(TimeOfDay{9, 30}, TimeOfDay{15, 45}, time.UTC, logger.NewNop())
}

func TestSchedulerEvaluate(t *testing.T) {
	t.Parallel()

	day := func(h, m int) time.Time {
		return time.Date(2025, 3, 10, h, m, 0, 0, time.UTC)
	}

	tests := []struct {
		name string
		at   time.Time
		want SchedulerAction
	}{
		{"well before open", day(6, 0), ActionWait},
		{"at the open", day(9, 30), ActionFireOnTime},
		{"just after the open", day(9, 31), ActionFireOnTime},
		{"late start inside window", day(11, 0), ActionFireCatchup},
		{"inside grace period", day(16, 10), ActionFireCatchup},
		{"after grace period", day(16, 16), ActionSkip},
		{"late evening", day(22, 0), ActionSkip},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := newTestScheduler()
			assert.Equal(t, tt.want, s.Evaluate(tt.at), tt.at.String())
		})
	}
}

func TestSchedulerEvaluateAfterRun(t *testing.T) {
	t.Parallel()

	s := newTestScheduler()
	at := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

	require.Equal(t, ActionFireOnTime, s.Evaluate(at))
	s.markRan(at)
	assert.Equal(t, ActionDone, s.Evaluate(at))
	assert.Equal(t, ActionDone, s.Evaluate(at.Add(2*time.Hour)))

	// A new trading day resets the decision.
	nextDay := at.AddDate(0, 0, 1)
	assert.Equal(t, ActionFireOnTime, s.Evaluate(nextDay))
}

func TestSchedulerNextOpen(t *testing.T) {
	t.Parallel()

	s := newTestScheduler()

	before := time.Date(2025, 3, 10, 7, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC), s.nextOpen(before))

	after := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 11, 9, 30, 0, 0, time.UTC), s.nextOpen(after))
}

func TestSchedulerRunCatchup(t *testing.T) {
	t.Parallel()

	s := newTestScheduler()
	// Process comes up at 11:00, well past the open but inside the window.
	s.nowFn = fixedClock(time.Date(2025, 3, 10, 11, 0, 0, 0, time.UTC))

	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx, func(context.Context) error {
			calls.Add(1)
			cancel()
			return nil
		})
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not exit after cancellation")
	}
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, ActionDone, s.Evaluate(s.nowFn()))
}

func TestSchedulerRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	s := newTestScheduler()
	// Hours before the open: the loop should just wait.
	s.nowFn = fixedClock(time.Date(2025, 3, 10, 3, 0, 0, 0, time.UTC))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx, func(context.Context) error {
			t.Error("execute must not run before the open")
			return nil
		})
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not exit after cancellation")
	}
}
