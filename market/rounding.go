package market

import "math"

// RoundToTick rounds price to the nearest valid tick, then normalizes the
// result to the decimal precision implied by the tick size. Futures exchanges
// reject orders priced off-tick, and float division can leave residue like
// 21000.000000000004, hence the second rounding step.
//
//	RoundToTick(25299.80, 0.25) -> 25299.75
//	RoundToTick(25299.87, 0.25) -> 25300.00
//
// Idempotent: RoundToTick(RoundToTick(p, t), t) == RoundToTick(p, t).
// A non-positive tick returns the price unchanged.
func RoundToTick(price, tick float64) float64 {
	if tick <= 0 {
		return price
	}

	rounded := math.Round(price/tick) * tick

	switch {
	case tick >= 1.0:
		return roundDecimals(rounded, 0) // whole-point ticks (YM)
	case tick >= 0.1:
		return roundDecimals(rounded, 1) // RTY, M2K
	case tick >= 0.01:
		return roundDecimals(rounded, 2) // most index futures
	default:
		return roundDecimals(rounded, 4)
	}
}

func roundDecimals(v float64, places int) float64 {
	shift := math.Pow(10, float64(places))
	return math.Round(v*shift) / shift
}
