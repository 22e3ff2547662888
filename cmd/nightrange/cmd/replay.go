package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nightrange/trader/account"
	"github.com/nightrange/trader/broker"
	"github.com/nightrange/trader/indicators"
	"github.com/nightrange/trader/logger"
	"github.com/nightrange/trader/market"
	"github.com/nightrange/trader/replay"
	"github.com/nightrange/trader/sim"
	"github.com/nightrange/trader/strategies"
)

var replayCmd = &cobra.Command{
	Use:   "replay <bars.csv>",
	Short: "Replay a session's bars against the overnight breakout brackets",
	Long: `Build the overnight range from the file's own session, place the
breakout brackets on the simulated exchange, then walk the remaining bars
through it and report what filled.

The CSV columns are: time,open,high,low,close,volume (header optional).
The file should span one overnight session plus the day session after it.

Example:
  nightrange replay mnq_20250310.csv --symbol MNQ --balance 150000`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

var (
	replaySymbol   string
	replayBalance  float64
	replayQty      int
	replayATR      float64
	replayOffset   float64
	replayStopMult float64
	replayTPMult   float64
	replayStart    string
	replayEnd      string
	replayTZ       string
)

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().StringVar(&replaySymbol, "symbol", "MNQ", "contract symbol")
	replayCmd.Flags().Float64Var(&replayBalance, "balance", 150000, "starting account balance")
	replayCmd.Flags().IntVar(&replayQty, "qty", 1, "contracts per bracket")
	replayCmd.Flags().Float64Var(&replayATR, "atr", 0, "ATR override (computed from session bars when 0)")
	replayCmd.Flags().Float64Var(&replayOffset, "offset", 0.25, "entry offset beyond the range extreme")
	replayCmd.Flags().Float64Var(&replayStopMult, "stop-mult", 1.25, "stop distance as a multiple of ATR")
	replayCmd.Flags().Float64Var(&replayTPMult, "tp-mult", 2.0, "target distance as a multiple of ATR")
	replayCmd.Flags().StringVar(&replayStart, "session-start", "18:00", "overnight session start (HH:MM)")
	replayCmd.Flags().StringVar(&replayEnd, "session-end", "09:30", "overnight session end (HH:MM)")
	replayCmd.Flags().StringVar(&replayTZ, "timezone", "America/New_York", "session timezone")
}

func runReplay(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	bars, err := market.LoadBarsCSV(args[0], replaySymbol)
	if err != nil {
		return fmt.Errorf("load bars: %w", err)
	}
	if len(bars) == 0 {
		return fmt.Errorf("no bars in %s", args[0])
	}

	start, err := strategies.ParseTimeOfDay(replayStart)
	if err != nil {
		return err
	}
	end, err := strategies.ParseTimeOfDay(replayEnd)
	if err != nil {
		return err
	}
	tz, err := time.LoadLocation(replayTZ)
	if err != nil {
		return fmt.Errorf("load timezone: %w", err)
	}

	// Anchor the session to the first bar so the file's own overnight
	// session is used rather than today's.
	ref := bars[0].Time.In(tz)
	sessionStart, sessionEnd := strategies.SessionWindow(ref, start, end, tz)

	rng, err := strategies.BuildOvernightRange(replaySymbol, bars, sessionStart, sessionEnd)
	if err != nil {
		return err
	}

	var session, day []market.Bar
	for _, b := range bars {
		if b.Time.After(sessionEnd) {
			day = append(day, b)
		} else {
			session = append(session, b)
		}
	}
	if len(day) == 0 {
		return fmt.Errorf("no bars after the session end %s", sessionEnd.Format(time.RFC3339))
	}

	atr := replayATR
	if atr <= 0 {
		atr, err = indicators.ATR(session, 14)
		if err != nil {
			return fmt.Errorf("compute ATR: %w", err)
		}
	}

	tick := 0.25
	if meta, ok := market.DefaultMeta(replaySymbol); ok {
		tick = meta.TickSize
	}

	log := logger.NewNop()
	tracker := account.NewTracker(ctx, nil, market.NewSymbolCache(nil, log), log)
	tracker.Initialize(ctx, account.InitParams{
		AccountID:       "REPLAY-1",
		Name:            "Replay",
		Type:            account.TypePractice,
		StartingBalance: replayBalance,
	})

	ex := sim.NewExchange()
	ex.OnFill(func(ctx context.Context, accountID string, fill account.Fill) {
		tracker.ApplyFill(ctx, accountID, fill)
	})

	longEntry := market.RoundToTick(rng.High+replayOffset, tick)
	shortEntry := market.RoundToTick(rng.Low-replayOffset, tick)
	reqs := []broker.BracketStopEntryRequest{
		{
			AccountID:  "REPLAY-1",
			Symbol:     replaySymbol,
			Side:       broker.Buy,
			Quantity:   replayQty,
			EntryPrice: longEntry,
			StopLoss:   market.RoundToTick(longEntry-atr*replayStopMult, tick),
			TakeProfit: market.RoundToTick(longEntry+atr*replayTPMult, tick),
		},
		{
			AccountID:  "REPLAY-1",
			Symbol:     replaySymbol,
			Side:       broker.Sell,
			Quantity:   replayQty,
			EntryPrice: shortEntry,
			StopLoss:   market.RoundToTick(shortEntry+atr*replayStopMult, tick),
			TakeProfit: market.RoundToTick(shortEntry-atr*replayTPMult, tick),
		},
	}

	fmt.Printf("Overnight range: %.2f to %.2f (%d bars, ATR %.2f)\n",
		rng.Low, rng.High, rng.BarCount, atr)
	for _, req := range reqs {
		if _, err := ex.PlaceBracketStopEntry(ctx, req); err != nil {
			return fmt.Errorf("place bracket: %w", err)
		}
		fmt.Printf("  %s: entry %.2f, stop %.2f, target %.2f\n",
			req.Side, req.EntryPrice, req.StopLoss, req.TakeProfit)
	}

	runner := &replay.Runner{Exchange: ex, Tracker: tracker, CancelEnd: true}
	res, err := runner.Run(ctx, "REPLAY-1", day)
	if err != nil {
		return err
	}

	fmt.Printf("\nReplayed %d bars, %s to %s\n", res.Bars,
		res.Start.In(tz).Format("15:04"), res.End.In(tz).Format("15:04"))
	fmt.Printf("  Trades: %d (%d wins, %d losses), cancelled %d\n",
		res.Trades, res.Wins, res.Losses, res.Cancelled)
	for _, trade := range ex.ClosedTrades() {
		fmt.Printf("  %s %d @ %.2f -> %.2f (%s) P&L $%.2f\n",
			trade.Side, trade.Quantity, trade.EntryPrice, trade.ExitPrice, trade.Reason, trade.PnL)
	}
	fmt.Printf("  Gross P&L: $%.2f, final balance $%.2f\n", res.GrossPnL, res.FinalBalance)
	return nil
}
