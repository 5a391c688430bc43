package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "stockpilot",
	Short: "StockPilot - market data pipeline and signal backtesting",
	Long: `StockPilot Unified CLI

Daily OHLCV ingestion, technical feature engineering, ML signal
serving and backtesting in one binary.

Usage:
  go run ./cmd/stockpilot [command]

Examples:
  go run ./cmd/stockpilot api
  go run ./cmd/stockpilot pipeline run --tickers AAPL,MSFT
  go run ./cmd/stockpilot backtest run --ticker AAPL
  go run ./cmd/stockpilot scheduler start`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "development", "environment (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
