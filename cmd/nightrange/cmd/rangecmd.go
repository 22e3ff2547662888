package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nightrange/trader/market"
	"github.com/nightrange/trader/strategies"
)

var rangeCmd = &cobra.Command{
	Use:   "range <bars.csv>",
	Short: "Compute the overnight range from a CSV of 1-minute bars",
	Long: `Resolve the overnight session window and report the high/low range a
breakout strategy would trade, with the bracket prices implied by the given
ATR.

The CSV columns are: time,open,high,low,close,volume (header optional).

Example:
  nightrange range mnq_1m.csv --symbol MNQ --atr 40`,
	Args: cobra.ExactArgs(1),
	RunE: runRange,
}

var (
	rangeSymbol   string
	rangeATR      float64
	rangeOffset   float64
	rangeStopMult float64
	rangeStart    string
	rangeEnd      string
	rangeTZ       string
)

func init() {
	rootCmd.AddCommand(rangeCmd)

	rangeCmd.Flags().StringVar(&rangeSymbol, "symbol", "MNQ", "contract symbol")
	rangeCmd.Flags().Float64Var(&rangeATR, "atr", 0, "current ATR, enables bracket preview")
	rangeCmd.Flags().Float64Var(&rangeOffset, "offset", 0.25, "entry offset beyond the range extreme")
	rangeCmd.Flags().Float64Var(&rangeStopMult, "stop-mult", 1.25, "stop distance as a multiple of ATR")
	rangeCmd.Flags().StringVar(&rangeStart, "session-start", "18:00", "overnight session start (HH:MM)")
	rangeCmd.Flags().StringVar(&rangeEnd, "session-end", "09:30", "overnight session end (HH:MM)")
	rangeCmd.Flags().StringVar(&rangeTZ, "timezone", "America/New_York", "session timezone")
}

func runRange(cmd *cobra.Command, args []string) error {
	bars, err := market.LoadBarsCSV(args[0], rangeSymbol)
	if err != nil {
		return fmt.Errorf("load bars: %w", err)
	}
	if len(bars) == 0 {
		return fmt.Errorf("no bars in %s", args[0])
	}

	start, err := strategies.ParseTimeOfDay(rangeStart)
	if err != nil {
		return err
	}
	end, err := strategies.ParseTimeOfDay(rangeEnd)
	if err != nil {
		return err
	}
	tz, err := time.LoadLocation(rangeTZ)
	if err != nil {
		return fmt.Errorf("load timezone: %w", err)
	}

	// Anchor the session to the last bar so historical files resolve to
	// their own session, not today's.
	ref := bars[len(bars)-1].Time.In(tz)
	sessionStart, sessionEnd := strategies.SessionWindow(ref, start, end, tz)

	rng, err := strategies.BuildOvernightRange(rangeSymbol, bars, sessionStart, sessionEnd)
	if err != nil {
		return err
	}

	tick := 0.25
	if meta, ok := market.DefaultMeta(rangeSymbol); ok {
		tick = meta.TickSize
	}

	fmt.Printf("Overnight session: %s to %s\n",
		rng.SessionStart.Format("2006-01-02 15:04 MST"),
		rng.SessionEnd.Format("2006-01-02 15:04 MST"))
	fmt.Printf("  Bars: %d\n", rng.BarCount)
	fmt.Printf("  High: %.2f\n", rng.High)
	fmt.Printf("  Low: %.2f\n", rng.Low)
	fmt.Printf("  Range: %.2f points (midpoint %.2f)\n", rng.RangeSize(), rng.Midpoint())
	fmt.Printf("  Open: %.2f, Close: %.2f (gap %.2f)\n", rng.Open, rng.Close, rng.Close-rng.Open)

	if rangeATR <= 0 {
		return nil
	}

	longEntry := market.RoundToTick(rng.High+rangeOffset, tick)
	longStop := market.RoundToTick(longEntry-rangeATR*rangeStopMult, tick)
	shortEntry := market.RoundToTick(rng.Low-rangeOffset, tick)
	shortStop := market.RoundToTick(shortEntry+rangeATR*rangeStopMult, tick)

	fmt.Printf("\nBracket preview (ATR %.2f, tick %.2f):\n", rangeATR, tick)
	fmt.Printf("  LONG:  entry %.2f, stop %.2f\n", longEntry, longStop)
	fmt.Printf("  SHORT: entry %.2f, stop %.2f\n", shortEntry, shortStop)
	return nil
}
