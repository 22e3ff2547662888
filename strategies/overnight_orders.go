package strategies

import (
	"github.com/nightrange/trader/broker"
	"github.com/nightrange/trader/market"
)

// takeProfitATRMultiplier scales the fallback target used when the daily ATR
// zone sits inside the overnight range and cannot serve as a target.
const takeProfitATRMultiplier = 2.0

// RangeBreakOrder is one side of the breakout bracket before submission.
type RangeBreakOrder struct {
	Symbol     string
	Side       broker.Side
	EntryPrice float64
	StopLoss   float64
	TakeProfit float64
	Quantity   int
}

// upperZoneInside reports whether the bull zone overlaps the overnight range.
// A zone inside the range makes a useless target, so the caller falls back to
// an ATR multiple instead.
func upperZoneInside(atr *ATRData, rng *OvernightRange) bool {
	return atr.BullZone >= rng.Low && atr.BullZone1 <= rng.High
}

func lowerZoneInside(atr *ATRData, rng *OvernightRange) bool {
	return atr.BearZone1 >= rng.Low && atr.BearZone <= rng.High
}

// buildRangeBreakOrders computes the long and short stop-entry brackets for a
// resolved overnight range. All prices are rounded to the contract tick.
func buildRangeBreakOrders(rng *OvernightRange, atr *ATRData, tickSize, breakOffset, stopMult float64, quantity int) (long, short RangeBreakOrder, err error) {
	longEntry := rng.High + breakOffset
	longStop := longEntry - atr.CurrentATR*stopMult
	longTP := atr.BullZone
	if upperZoneInside(atr, rng) {
		longTP = longEntry + atr.CurrentATR*takeProfitATRMultiplier
	}

	shortEntry := rng.Low - breakOffset
	shortStop := shortEntry + atr.CurrentATR*stopMult
	shortTP := atr.BearZone
	if lowerZoneInside(atr, rng) {
		shortTP = shortEntry - atr.CurrentATR*takeProfitATRMultiplier
	}

	long = RangeBreakOrder{
		Symbol:     rng.Symbol,
		Side:       broker.Buy,
		EntryPrice: market.RoundToTick(longEntry, tickSize),
		StopLoss:   market.RoundToTick(longStop, tickSize),
		TakeProfit: market.RoundToTick(longTP, tickSize),
		Quantity:   quantity,
	}
	short = RangeBreakOrder{
		Symbol:     rng.Symbol,
		Side:       broker.Sell,
		EntryPrice: market.RoundToTick(shortEntry, tickSize),
		StopLoss:   market.RoundToTick(shortStop, tickSize),
		TakeProfit: market.RoundToTick(shortTP, tickSize),
		Quantity:   quantity,
	}

	if long.StopLoss >= long.EntryPrice {
		return long, short, &broker.ValidationError{Symbol: rng.Symbol, Side: broker.Buy, Reason: "stop must be below entry"}
	}
	if long.TakeProfit <= long.EntryPrice {
		return long, short, &broker.ValidationError{Symbol: rng.Symbol, Side: broker.Buy, Reason: "take profit must be above entry"}
	}
	if short.StopLoss <= short.EntryPrice {
		return long, short, &broker.ValidationError{Symbol: rng.Symbol, Side: broker.Sell, Reason: "stop must be above entry"}
	}
	if short.TakeProfit >= short.EntryPrice {
		return long, short, &broker.ValidationError{Symbol: rng.Symbol, Side: broker.Sell, Reason: "take profit must be below entry"}
	}
	return long, short, nil
}

// Request converts the order into the broker bracket request shape.
func (o RangeBreakOrder) Request(accountID string) broker.BracketStopEntryRequest {
	return broker.BracketStopEntryRequest{
		AccountID:  accountID,
		Symbol:     o.Symbol,
		Side:       o.Side,
		Quantity:   o.Quantity,
		EntryPrice: o.EntryPrice,
		StopLoss:   o.StopLoss,
		TakeProfit: o.TakeProfit,
	}
}
