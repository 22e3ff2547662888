package strategies

import (
	"fmt"
	"time"

	"github.com/nightrange/trader/market"
)

// minimum bars needed before an overnight range is considered usable
const minSessionBars = 10

// OvernightRange is the high/low envelope built from the overnight session
// bars, plus the session open and close for gap measurement.
type OvernightRange struct {
	Symbol       string
	SessionStart time.Time
	SessionEnd   time.Time
	High         float64
	Low          float64
	Open         float64
	Close        float64
	BarCount     int
}

// RangeSize is the high-to-low extent in points.
func (r *OvernightRange) RangeSize() float64 { return r.High - r.Low }

// Midpoint is the center of the range.
func (r *OvernightRange) Midpoint() float64 { return (r.High + r.Low) / 2 }

// SessionWindow resolves the overnight session that ends nearest to now.
// Before the session end on a given day, the window is yesterday's start to
// today's end; after it, today's start to tomorrow's end.
func SessionWindow(now time.Time, start, end TimeOfDay, tz *time.Location) (time.Time, time.Time) {
	local := now.In(tz)
	endToday := end.On(local)

	if local.Before(endToday) || local.Equal(endToday) {
		return start.On(local.AddDate(0, 0, -1)), endToday
	}
	return start.On(local), end.On(local.AddDate(0, 0, 1))
}

// BuildOvernightRange filters bars to the session window and folds them into
// an OvernightRange. Bars are sorted by time first; the open comes from the
// earliest in-window bar and the close from the latest.
func BuildOvernightRange(symbol string, bars []market.Bar, sessionStart, sessionEnd time.Time) (*OvernightRange, error) {
	sorted := make([]market.Bar, len(bars))
	copy(sorted, bars)
	market.SortBarsByTime(sorted)

	rng := &OvernightRange{
		Symbol:       symbol,
		SessionStart: sessionStart,
		SessionEnd:   sessionEnd,
	}

	for _, b := range sorted {
		if b.Time.Before(sessionStart) || b.Time.After(sessionEnd) {
			continue
		}
		if rng.BarCount == 0 {
			rng.Open = b.Open
			rng.High = b.High
			rng.Low = b.Low
		} else {
			rng.High = max(rng.High, b.High)
			rng.Low = min(rng.Low, b.Low)
		}
		rng.Close = b.Close
		rng.BarCount++
	}

	if rng.BarCount < minSessionBars {
		return nil, fmt.Errorf("overnight session for %s has %d bars, need at least %d",
			symbol, rng.BarCount, minSessionBars)
	}
	return rng, nil
}
