package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nightrange/trader/account"
	"github.com/nightrange/trader/broker"
	"github.com/nightrange/trader/logger"
	"github.com/nightrange/trader/market"
	"github.com/nightrange/trader/sim"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a breakout round trip on the simulated exchange",
	Long: `Demonstrates the full lifecycle against the in-memory exchange:

  1. Initialize account tracking with auto-detected loss limits
  2. Place long and short breakout brackets around an overnight range
  3. Walk the price through the long entry and up to the target
  4. Show the realized fill flowing into compliance tracking`,
	Args: cobra.NoArgs,
	RunE: runDemo,
}

func init() {
	rootCmd.AddCommand(demoCmd)
}

func runDemo(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	log := logger.NewNop()

	tracker := account.NewTracker(ctx, nil, market.NewSymbolCache(nil, log), log)
	st := tracker.Initialize(ctx, account.InitParams{
		AccountID:       "DEMO-1",
		Name:            "150K Evaluation",
		Type:            account.TypeEvaluation,
		StartingBalance: 150000,
	})

	fmt.Println("Account initialized:")
	fmt.Printf("  Balance: $%.2f\n", st.CurrentBalance)
	fmt.Printf("  Daily Loss Limit: $%.2f\n", st.DailyLossLimit)
	fmt.Printf("  Maximum Loss Limit: $%.2f (threshold $%.2f)\n\n", st.MaximumLossLimit, st.DrawdownThreshold)

	exchange := sim.NewExchange()
	exchange.OnFill(func(ctx context.Context, accountID string, fill account.Fill) {
		tracker.ApplyFill(ctx, accountID, fill)
	})

	// Overnight range 20900-21000 with a 40-point ATR.
	const (
		rangeHigh = 21000.0
		rangeLow  = 20900.0
		atr       = 40.0
	)

	longReq := broker.BracketStopEntryRequest{
		AccountID:  "DEMO-1",
		Symbol:     "MNQ",
		Side:       broker.Buy,
		Quantity:   1,
		EntryPrice: rangeHigh + 0.25,
		StopLoss:   rangeHigh + 0.25 - atr*1.25,
		TakeProfit: rangeHigh + 0.25 + atr*2,
	}
	shortReq := broker.BracketStopEntryRequest{
		AccountID:  "DEMO-1",
		Symbol:     "MNQ",
		Side:       broker.Sell,
		Quantity:   1,
		EntryPrice: rangeLow - 0.25,
		StopLoss:   rangeLow - 0.25 + atr*1.25,
		TakeProfit: rangeLow - 0.25 - atr*2,
	}

	for _, req := range []broker.BracketStopEntryRequest{longReq, shortReq} {
		h, err := exchange.PlaceBracketStopEntry(ctx, req)
		if err != nil {
			return fmt.Errorf("place bracket: %w", err)
		}
		fmt.Printf("Placed %s bracket: entry %.2f, stop %.2f, target %.2f (order %s)\n",
			req.Side, req.EntryPrice, req.StopLoss, req.TakeProfit, h.OrderID)
	}

	// Price breaks out of the top of the range and runs to the target.
	fmt.Println("\nWalking price: 20960 -> 21001 -> 21040 -> 21085")
	for _, px := range []float64{20960, 21001, 21040, 21085} {
		exchange.UpdatePrice(ctx, "MNQ", px)
		time.Sleep(10 * time.Millisecond)
	}

	// The short side never triggered; cancel it like a session-end sweep.
	cancelled := exchange.CancelResting("MNQ")
	fmt.Printf("Cancelled %d untriggered bracket(s)\n\n", cancelled)

	for _, trade := range exchange.ClosedTrades() {
		fmt.Printf("Closed trade: %s %s %d @ %.2f -> %.2f (%s) P&L $%.2f\n",
			trade.Side, trade.Symbol, trade.Quantity, trade.EntryPrice, trade.ExitPrice, trade.Reason, trade.PnL)
	}

	final := tracker.GetState("DEMO-1")
	report := tracker.CheckCompliance("DEMO-1")
	fmt.Printf("\nFinal balance: $%.2f (net P&L $%.2f)\n", final.CurrentBalance, final.NetPnL())
	fmt.Printf("DLL remaining: $%.2f, compliant: %v\n", report.DLLRemaining, report.IsCompliant)
	return nil
}
