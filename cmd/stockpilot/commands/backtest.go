package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/saikarthik/stockpilot/backend/internal/backtest"
	"github.com/saikarthik/stockpilot/backend/internal/contracts"
	"github.com/saikarthik/stockpilot/backend/internal/marketdata"
	"github.com/saikarthik/stockpilot/backend/internal/pipeline"
	"github.com/saikarthik/stockpilot/backend/internal/predictor"
)

// backtestCmd represents the backtest command
var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Signal backtesting",
	Long: `Simulates the signal-driven strategy against buy-and-hold.

The backtest validates:
- Strategy return vs the market baseline
- Risk metrics (Sharpe, volatility, max drawdown)
- Win rate and profit factor
- Confidence score of the signal edge

Example:
  go run ./cmd/stockpilot backtest run --ticker AAPL
  go run ./cmd/stockpilot backtest run --ticker MSFT --from 2023-01-01`,
}

var (
	backtestRunCmd = &cobra.Command{
		Use:   "run",
		Short: "Run a backtest",
		Long: `Runs a signal-driven backtest for one ticker.

Flags:
  --ticker    ticker symbol (required)
  --from      start date (YYYY-MM-DD, default: one year back)
  --to        end date (YYYY-MM-DD, default: today)
  --capital   initial capital (default: BACKTEST_INITIAL_CAPITAL)
  --fee       proportional fee per fill (default: BACKTEST_FEE_RATE)
  --slippage  slippage rate (default: BACKTEST_SLIPPAGE_RATE)

Example:
  go run ./cmd/stockpilot backtest run --ticker AAPL
  go run ./cmd/stockpilot backtest run --ticker AAPL --from 2023-01-01 --fee 0.001`,
		RunE: runBacktest,
	}

	// Flags
	backtestTicker   string
	backtestFrom     string
	backtestTo       string
	backtestCapital  float64
	backtestFee      float64
	backtestSlippage float64
)

func init() {
	rootCmd.AddCommand(backtestCmd)
	backtestCmd.AddCommand(backtestRunCmd)

	// Flags
	backtestRunCmd.Flags().StringVar(&backtestTicker, "ticker", "", "ticker symbol (required)")
	backtestRunCmd.Flags().StringVar(&backtestFrom, "from", "", "start date (YYYY-MM-DD)")
	backtestRunCmd.Flags().StringVar(&backtestTo, "to", "", "end date (YYYY-MM-DD, default: today)")
	backtestRunCmd.Flags().Float64Var(&backtestCapital, "capital", 0, "initial capital (0 = configured default)")
	backtestRunCmd.Flags().Float64Var(&backtestFee, "fee", -1, "fee rate (-1 = configured default)")
	backtestRunCmd.Flags().Float64Var(&backtestSlippage, "slippage", -1, "slippage rate (-1 = configured default)")

	backtestRunCmd.MarkFlagRequired("ticker")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	fmt.Println("=== StockPilot Backtest ===")

	ticker := strings.ToUpper(strings.TrimSpace(backtestTicker))

	now := time.Now()
	from, to := now.AddDate(-1, 0, 0), now
	var err error
	if backtestFrom != "" {
		if from, err = time.Parse("2006-01-02", backtestFrom); err != nil {
			return fmt.Errorf("invalid start date: %w", err)
		}
	}
	if backtestTo != "" {
		if to, err = time.Parse("2006-01-02", backtestTo); err != nil {
			return fmt.Errorf("invalid end date: %w", err)
		}
	}

	d, err := initDeps()
	if err != nil {
		return err
	}
	defer d.close()

	ctx := cmd.Context()

	cfg := backtest.Config{
		InitialCapital: d.cfg.Backtest.InitialCapital,
		Fees:           backtest.FeeModel{Rate: d.cfg.Backtest.FeeRate},
		SlippageRate:   d.cfg.Backtest.SlippageRate,
		RiskFreeRate:   d.cfg.Backtest.RiskFreeRate,
	}
	if backtestCapital > 0 {
		cfg.InitialCapital = backtestCapital
	}
	if backtestFee >= 0 {
		cfg.Fees.Rate = backtestFee
	}
	if backtestSlippage >= 0 {
		cfg.SlippageRate = backtestSlippage
	}

	fmt.Printf("\nTicker:  %s\n", ticker)
	fmt.Printf("Period:  %s ~ %s\n", from.Format("2006-01-02"), to.Format("2006-01-02"))
	fmt.Printf("Capital: %.0f\n", cfg.InitialCapital)
	fmt.Printf("Fee:     %.2f%%\n", cfg.Fees.Rate*100)
	fmt.Printf("Slippage: %.2f%%\n\n", cfg.SlippageRate*100)

	// Load price data and processed features
	bars, err := marketdata.NewBarRepository(d.db.Pool).GetByTickerAndDateRange(ctx, ticker, from, to)
	if err != nil {
		return fmt.Errorf("load bars: %w", err)
	}

	rows, err := pipeline.NewFeatureRepository(d.db.Pool).GetProcessedFrame(ctx, ticker, from, to)
	if err != nil {
		return fmt.Errorf("load frame: %w", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("no processed data for %s, run the pipeline first", ticker)
	}

	// Generate signals and simulate
	pred := d.initPredictor()
	signals, err := predictor.PredictSeries(ctx, pred, rows, d.cfg.Predictor.WindowSize)
	if err != nil {
		return fmt.Errorf("generate signals: %w", err)
	}

	result, err := backtest.NewSimulator(d.log).Run(ticker, signals, bars, cfg)
	if err != nil {
		return fmt.Errorf("backtest failed: %w", err)
	}

	printBacktestResult(result)
	return nil
}

func printBacktestResult(result *contracts.BacktestResult) {
	fmt.Println("\nBacktest Completed")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println()

	fmt.Println("Summary")
	fmt.Printf("Period: %s ~ %s\n",
		result.StartDate.Format("2006-01-02"),
		result.EndDate.Format("2006-01-02"))
	fmt.Printf("Initial Capital: %.0f\n", result.InitialCapital)
	fmt.Printf("Final Equity:    %.0f\n", result.FinalEquity)
	fmt.Printf("Confidence Score: %.2f / 100\n", result.ConfidenceScore)
	fmt.Println()

	fmt.Println("Strategy vs Buy-and-Hold")
	fmt.Printf("%-16s %12s %12s\n", "", "strategy", "market")
	fmt.Printf("%-16s %11.2f%% %11.2f%%\n", "Total Return", result.Strategy.TotalReturnPct, result.Baseline.TotalReturnPct)
	fmt.Printf("%-16s %11.2f%% %11.2f%%\n", "CAGR", result.Strategy.CAGRPct, result.Baseline.CAGRPct)
	fmt.Printf("%-16s %11.2f%% %11.2f%%\n", "Volatility", result.Strategy.VolatilityPct, result.Baseline.VolatilityPct)
	fmt.Printf("%-16s %12.2f %12.2f\n", "Sharpe", result.Strategy.SharpeRatio, result.Baseline.SharpeRatio)
	fmt.Printf("%-16s %11.2f%% %11.2f%%\n", "Max Drawdown", result.Strategy.MaxDrawdownPct, result.Baseline.MaxDrawdownPct)
	fmt.Println()

	fmt.Println("Trading")
	fmt.Printf("Total Trades:  %d\n", result.Trading.TotalTrades)
	fmt.Printf("Win Rate:      %.1f%%\n", result.Trading.WinRate*100)
	if result.Trading.ProfitFactor.IsInf() {
		fmt.Println("Profit Factor: Inf (no losing trades)")
	} else {
		fmt.Printf("Profit Factor: %.2f\n", float64(result.Trading.ProfitFactor))
	}
	fmt.Printf("Avg Win:       %.2f\n", result.Trading.AvgWinningTrade)
	fmt.Printf("Avg Loss:      %.2f\n", result.Trading.AvgLosingTrade)
	fmt.Println()

	// Equity curve tail
	fmt.Println("Equity Curve (last 10 bars)")
	startIdx := len(result.EquityCurve) - 10
	if startIdx < 0 {
		startIdx = 0
	}
	for _, point := range result.EquityCurve[startIdx:] {
		fmt.Printf("%s: %.0f\n", point.Date.Format("2006-01-02"), point.Equity)
	}
}
