// Package replay drives the simulated exchange from recorded bars so a
// bracket setup can be evaluated against history without a live feed.
package replay

import (
	"context"
	"fmt"
	"time"

	"github.com/nightrange/trader/account"
	"github.com/nightrange/trader/market"
	"github.com/nightrange/trader/sim"
)

// Runner replays a bar series through the exchange in chronological order.
// Orders are placed on the exchange before Run (or from the OnBar hook);
// the runner only moves the tape and summarizes what closed.
type Runner struct {
	Exchange *sim.Exchange
	Tracker  *account.Tracker

	// OnBar is invoked after each bar's prices have been applied. Optional.
	OnBar func(ctx context.Context, bar market.Bar) error

	// CancelEnd drops any still-resting orders once the data is exhausted,
	// the way a session-end sweep would.
	CancelEnd bool
}

// Result summarizes one replay for a single account.
type Result struct {
	Start time.Time
	End   time.Time
	Bars  int

	Trades    int
	Wins      int
	Losses    int
	GrossPnL  float64
	Cancelled int

	FinalBalance float64
}

// Run walks the bars oldest-first. Within a bar prices step open, then the
// extremes in the direction of the bar, then close, so a stop and target
// touched by the same bar resolve the way the bar traded.
func (r *Runner) Run(ctx context.Context, accountID string, bars []market.Bar) (Result, error) {
	if r.Exchange == nil {
		return Result{}, fmt.Errorf("replay: Exchange is required")
	}
	if len(bars) == 0 {
		return Result{}, fmt.Errorf("replay: no bars")
	}

	ordered := append([]market.Bar(nil), bars...)
	market.SortBarsByTime(ordered)

	symbols := make(map[string]struct{})
	res := Result{
		Start: ordered[0].Time,
		End:   ordered[len(ordered)-1].Time,
		Bars:  len(ordered),
	}

	for _, bar := range ordered {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		bar := bar
		symbols[bar.Symbol] = struct{}{}
		r.Exchange.SetClock(func() time.Time { return bar.Time })

		for _, px := range barPath(bar) {
			r.Exchange.UpdatePrice(ctx, bar.Symbol, px)
		}

		if r.OnBar != nil {
			if err := r.OnBar(ctx, bar); err != nil {
				return res, err
			}
		}
	}

	if r.CancelEnd {
		for sym := range symbols {
			res.Cancelled += r.Exchange.CancelResting(sym)
		}
	}

	for _, trade := range r.Exchange.ClosedTrades() {
		if trade.AccountID != accountID {
			continue
		}
		res.Trades++
		res.GrossPnL += trade.PnL
		switch {
		case trade.PnL > 0:
			res.Wins++
		case trade.PnL < 0:
			res.Losses++
		}
	}

	if r.Tracker != nil {
		res.FinalBalance = r.Tracker.GetState(accountID).CurrentBalance
	}
	return res, nil
}

// barPath expands a bar into the price sequence used to advance the tape.
// Up bars visit the low before the high, down bars the high before the low.
func barPath(bar market.Bar) []float64 {
	if bar.Close >= bar.Open {
		return []float64{bar.Open, bar.Low, bar.High, bar.Close}
	}
	return []float64{bar.Open, bar.High, bar.Low, bar.Close}
}
