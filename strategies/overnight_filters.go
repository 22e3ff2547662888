package strategies

import (
	"fmt"
	"math"

	"github.com/nightrange/trader/account"
)

// marketFilters are the optional pre-trade condition checks. All default to
// disabled; enabling one tightens when the breakout brackets get placed.
type marketFilters struct {
	RangeSizeEnabled bool
	RangeMinPoints   float64
	RangeMaxPoints   float64

	GapEnabled   bool
	GapMaxPoints float64

	VolatilityEnabled bool
	ATRMin            float64
	ATRMax            float64

	DLLProximityEnabled bool
	DLLThreshold        float64 // fraction of the DLL already consumed
}

func filtersFromEnv() marketFilters {
	return marketFilters{
		RangeSizeEnabled:    envBool("OVERNIGHT_FILTER_RANGE_SIZE", false),
		RangeMinPoints:      envFloat("OVERNIGHT_RANGE_MIN_POINTS", 50),
		RangeMaxPoints:      envFloat("OVERNIGHT_RANGE_MAX_POINTS", 500),
		GapEnabled:          envBool("OVERNIGHT_FILTER_GAP", false),
		GapMaxPoints:        envFloat("OVERNIGHT_GAP_MAX_POINTS", 200),
		VolatilityEnabled:   envBool("OVERNIGHT_FILTER_VOLATILITY", false),
		ATRMin:              envFloat("OVERNIGHT_ATR_MIN", 20),
		ATRMax:              envFloat("OVERNIGHT_ATR_MAX", 200),
		DLLProximityEnabled: envBool("OVERNIGHT_FILTER_DLL_PROXIMITY", false),
		DLLThreshold:        envFloat("OVERNIGHT_DLL_THRESHOLD_PERCENT", 0.75),
	}
}

// Check runs the enabled filters in order and returns the first rejection.
func (f *marketFilters) Check(rng *OvernightRange, atr *ATRData, state account.State) (bool, string) {
	if f.RangeSizeEnabled {
		size := rng.RangeSize()
		if size < f.RangeMinPoints {
			return false, fmt.Sprintf("range too small (%.2f < %.0f pts)", size, f.RangeMinPoints)
		}
		if size > f.RangeMaxPoints {
			return false, fmt.Sprintf("range too large (%.2f > %.0f pts)", size, f.RangeMaxPoints)
		}
	}

	if f.GapEnabled {
		gap := math.Abs(rng.Close - rng.Open)
		if gap > f.GapMaxPoints {
			return false, fmt.Sprintf("gap too large (%.2f > %.0f pts)", gap, f.GapMaxPoints)
		}
	}

	if f.VolatilityEnabled {
		if atr.CurrentATR < f.ATRMin {
			return false, fmt.Sprintf("atr too low (%.2f < %.0f)", atr.CurrentATR, f.ATRMin)
		}
		if atr.CurrentATR > f.ATRMax {
			return false, fmt.Sprintf("atr too high (%.2f > %.0f)", atr.CurrentATR, f.ATRMax)
		}
	}

	if f.DLLProximityEnabled && state.DailyLossLimit > 0 {
		if net := state.NetPnL(); net < 0 {
			usage := math.Abs(net) / state.DailyLossLimit
			if usage >= f.DLLThreshold {
				return false, fmt.Sprintf("too close to daily loss limit (%.0f%% used)", usage*100)
			}
		}
	}

	return true, ""
}
