package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nightrange/trader/account"
	"github.com/nightrange/trader/config"
	"github.com/nightrange/trader/logger"
	"github.com/nightrange/trader/market"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Inspect tracked account state and compliance",
	Long: `Query the persisted account journal.

Subcommands:
  status      - Current balance, P&L and limits
  compliance  - Full loss-limit compliance report

Examples:
  nightrange account status
  nightrange account compliance --json`,
}

var accountStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current account state",
	Args:  cobra.NoArgs,
	RunE:  runAccountStatus,
}

var accountComplianceCmd = &cobra.Command{
	Use:   "compliance",
	Short: "Show the loss-limit compliance report",
	Args:  cobra.NoArgs,
	RunE:  runAccountCompliance,
}

var accountJSON bool

func init() {
	rootCmd.AddCommand(accountCmd)
	accountCmd.AddCommand(accountStatusCmd)
	accountCmd.AddCommand(accountComplianceCmd)
	accountCmd.PersistentFlags().BoolVar(&accountJSON, "json", false, "output as JSON")
}

// loadTracker restores the tracker from the persisted journal.
func loadTracker(ctx context.Context) (*account.Tracker, string, func() error, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, "", nil, fmt.Errorf("load config: %w", err)
	}

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return nil, "", nil, fmt.Errorf("open journal: %w", err)
	}

	log := logger.NewNop()
	tracker := account.NewTracker(ctx, store, market.NewSymbolCache(nil, log), log)
	return tracker, cfg.Account.ID, closeStore, nil
}

func runAccountStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	tracker, accountID, closeStore, err := loadTracker(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	st := tracker.GetState(accountID)
	if st.AccountID == "" {
		return fmt.Errorf("no persisted state for account %q, run the engine first", accountID)
	}

	if accountJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}

	fmt.Printf("Account: %s (%s)\n", st.AccountName, st.AccountID)
	fmt.Printf("  Balance: $%.2f (started $%.2f)\n", st.CurrentBalance, st.StartingBalance)
	fmt.Printf("  Net P&L: $%.2f (realized $%.2f, unrealized $%.2f)\n", st.NetPnL(), st.RealizedPnL, st.UnrealizedPnL)
	fmt.Printf("  Costs: $%.2f commissions, $%.2f fees\n", st.Commissions, st.Fees)
	fmt.Printf("  Daily Loss Limit: $%.2f (remaining $%.2f)\n", st.DailyLossLimit, st.RemainingDailyLoss())
	fmt.Printf("  Maximum Loss Limit: $%.2f (threshold $%.2f)\n", st.MaximumLossLimit, st.DrawdownThreshold)
	if st.IsCompliant {
		fmt.Println("  Compliant: yes")
	} else {
		fmt.Printf("  Compliant: NO (%s)\n", st.ViolationReason)
	}
	return nil
}

func runAccountCompliance(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	tracker, accountID, closeStore, err := loadTracker(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	report := tracker.CheckCompliance(accountID)

	if accountJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Printf("Compliance report for %s\n", accountID)
	fmt.Printf("  DLL: $%.2f used of $%.2f (remaining $%.2f, violated: %v)\n",
		report.DLLUsed, report.DLLLimit, report.DLLRemaining, report.DLLViolated)
	fmt.Printf("  MLL: $%.2f used of $%.2f (remaining $%.2f, violated: %v)\n",
		report.MLLUsed, report.MLLLimit, report.MLLRemaining, report.MLLViolated)
	for _, v := range report.Violations {
		fmt.Printf("  Violation: %s\n", v)
	}
	if report.IsCompliant {
		fmt.Println("  Status: compliant")
	} else {
		fmt.Println("  Status: NOT compliant")
	}
	return nil
}
