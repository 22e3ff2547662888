package strategies

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nightrange/trader/market"
)

func sessionBars(start time.Time, n int, base float64) []market.Bar {
	bars := make([]market.Bar, n)
	for i := range bars {
		px := base + float64(i%7)
		bars[i] = market.Bar{
			Symbol: "MNQ",
			Time:   start.Add(time.Duration(i) * time.Minute),
			Open:   px,
			High:   px + 2,
			Low:    px - 2,
			Close:  px + 1,
			Volume: 100,
		}
	}
	return bars
}

func TestSessionWindow(t *testing.T) {
	t.Parallel()

	start := TimeOfDay{18, 0}
	end := TimeOfDay{9, 30}

	t.Run("before session end", func(t *testing.T) {
		t.Parallel()
		now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
		s, e := SessionWindow(now, start, end, time.UTC)
		assert.Equal(t, time.Date(2025, 3, 9, 18, 0, 0, 0, time.UTC), s)
		assert.Equal(t, time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC), e)
	})

	t.Run("exactly at session end", func(t *testing.T) {
		t.Parallel()
		now := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
		s, e := SessionWindow(now, start, end, time.UTC)
		assert.Equal(t, time.Date(2025, 3, 9, 18, 0, 0, 0, time.UTC), s)
		assert.Equal(t, time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC), e)
	})

	t.Run("after session end", func(t *testing.T) {
		t.Parallel()
		now := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
		s, e := SessionWindow(now, start, end, time.UTC)
		assert.Equal(t, time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC), s)
		assert.Equal(t, time.Date(2025, 3, 11, 9, 30, 0, 0, time.UTC), e)
	})
}

func TestBuildOvernightRange(t *testing.T) {
	t.Parallel()

	sessionStart := time.Date(2025, 3, 9, 18, 0, 0, 0, time.UTC)
	sessionEnd := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

	bars := sessionBars(sessionStart, 60, 21000)
	// Out-of-window bars must be ignored.
	bars = append(bars,
		market.Bar{Symbol: "MNQ", Time: sessionStart.Add(-time.Hour), High: 99999, Low: 1},
		market.Bar{Symbol: "MNQ", Time: sessionEnd.Add(time.Hour), High: 99999, Low: 1},
	)

	rng, err := BuildOvernightRange("MNQ", bars, sessionStart, sessionEnd)
	require.NoError(t, err)

	assert.Equal(t, 60, rng.BarCount)
	assert.InDelta(t, 21008, rng.High, 1e-9) // base 21000 + 6 + 2
	assert.InDelta(t, 20998, rng.Low, 1e-9)  // base 21000 + 0 - 2
	assert.InDelta(t, 21000, rng.Open, 1e-9)
	assert.InDelta(t, 10, rng.RangeSize(), 1e-9)
	assert.InDelta(t, 21003, rng.Midpoint(), 1e-9)
}

func TestBuildOvernightRangeUnsortedInput(t *testing.T) {
	t.Parallel()

	sessionStart := time.Date(2025, 3, 9, 18, 0, 0, 0, time.UTC)
	sessionEnd := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

	bars := sessionBars(sessionStart, 20, 21000)
	bars[0], bars[19] = bars[19], bars[0]

	rng, err := BuildOvernightRange("MNQ", bars, sessionStart, sessionEnd)
	require.NoError(t, err)

	// Open and close come from chronological order, not input order.
	assert.InDelta(t, 21000, rng.Open, 1e-9)
	first := bars[19] // originally index 0, now last in the slice
	assert.Equal(t, sessionStart, first.Time)
}

func TestBuildOvernightRangeTooFewBars(t *testing.T) {
	t.Parallel()

	sessionStart := time.Date(2025, 3, 9, 18, 0, 0, 0, time.UTC)
	sessionEnd := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

	bars := sessionBars(sessionStart, minSessionBars-1, 21000)
	_, err := BuildOvernightRange("MNQ", bars, sessionStart, sessionEnd)
	assert.Error(t, err)
}
