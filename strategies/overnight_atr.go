package strategies

import (
	"context"
	"fmt"

	"github.com/nightrange/trader/broker"
	"github.com/nightrange/trader/indicators"
	"github.com/nightrange/trader/market"
)

// Zone placement ratios relative to the daily ATR distance from the open.
const (
	dayDistRatio  = 0.5
	zoneNearRatio = 0.5
	zoneFarRatio  = 0.618
)

// ATRData bundles the two volatilities the breakout geometry needs: the
// intraday ATR that scales stops and targets, and the daily ATR that places
// the bull/bear zones around the regular-session open.
type ATRData struct {
	CurrentATR float64
	DailyATR   float64
	MarketOpen float64

	BullZone  float64 // nearer zone above the open
	BullZone1 float64 // farther zone above the open
	BearZone  float64 // nearer zone below the open
	BearZone1 float64 // farther zone below the open
}

// fetchATRData pulls intraday history and computes both ATRs plus the zone
// levels. Only the intraday fetch is load-bearing: the daily ATR degrades to
// the intraday ATR when daily history is unavailable, and the market open
// comes from the most recent 1-minute bar, falling back to the latest
// intraday close.
func fetchATRData(ctx context.Context, md broker.MarketDataProvider, symbol, timeframe string, period int) (*ATRData, error) {
	intraday, err := md.GetHistoricalBars(ctx, symbol, timeframe, period*3)
	if err != nil {
		return nil, fmt.Errorf("fetch %s bars for %s: %w", timeframe, symbol, err)
	}
	currentATR, err := indicators.ATR(intraday, period)
	if err != nil {
		return nil, fmt.Errorf("intraday atr for %s: %w", symbol, err)
	}

	dailyATR := currentATR
	if daily, derr := md.GetHistoricalBars(ctx, symbol, market.Timeframe1d, period*2); derr == nil {
		if v, aerr := indicators.ATR(daily, period); aerr == nil {
			dailyATR = v
		}
	}

	marketOpen := intraday[len(intraday)-1].Close
	if recent, rerr := md.GetHistoricalBars(ctx, symbol, market.Timeframe1m, 10); rerr == nil && len(recent) > 0 {
		marketOpen = recent[len(recent)-1].Open
	}

	data := &ATRData{
		CurrentATR: currentATR,
		DailyATR:   dailyATR,
		MarketOpen: marketOpen,
	}
	data.computeZones()
	return data, nil
}

func (d *ATRData) computeZones() {
	dayDist := d.DailyATR * dayDistRatio
	d.BullZone = d.MarketOpen + dayDist*zoneNearRatio
	d.BullZone1 = d.MarketOpen + dayDist*zoneFarRatio
	d.BearZone = d.MarketOpen - dayDist*zoneNearRatio
	d.BearZone1 = d.MarketOpen - dayDist*zoneFarRatio
}
