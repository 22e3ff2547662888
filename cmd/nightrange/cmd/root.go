package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "nightrange",
	Short: "Futures account tracking and overnight range breakout trading",
	Long: `Nightrange tracks prop-firm futures accounts against their loss limits and
trades breakouts of the overnight session range.

It provides tools for:
  - Tracking daily and maximum loss limit compliance
  - Placing ATR-sized breakout brackets at the market open
  - Breakeven stop management for winning trades
  - Inspecting overnight ranges from historical bar data
  - Paper trading against a simulated exchange`,
}

var cfgPath string

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "f", "", "path to config file (YAML or JSON)")
}
