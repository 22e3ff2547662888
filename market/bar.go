package market

import (
	"sort"
	"time"
)

// Timeframe identifiers used when requesting historical bars.
const (
	Timeframe1m = "1m"
	Timeframe5m = "5m"
	Timeframe1d = "1d"
)

// Bar is a single OHLCV bar. Sequences returned by data providers are
// oldest-first.
type Bar struct {
	Symbol string
	Time   time.Time

	Open  float64
	High  float64
	Low   float64
	Close float64

	Volume float64 // optional
}

// SortBarsByTime orders bars chronologically in place, for callers that
// cannot rely on provider ordering.
func SortBarsByTime(bars []Bar) {
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
}
