package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/saikarthik/stockpilot/backend/internal/pipeline"
)

// pipelineCmd represents the pipeline command
var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Dataset pipeline",
	Long: `Builds the processed feature dataset.

This command:
- Fetches daily OHLCV bars per ticker
- Cleans and deduplicates the raw data
- Computes technical indicators
- Rewrites the assembled multi-ticker dataset

Example:
  go run ./cmd/stockpilot pipeline run --tickers AAPL,MSFT
  go run ./cmd/stockpilot pipeline run --from 2018-01-01 --workers 8`,
}

var (
	pipelineRunCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the full pipeline",
		Long: `Runs fetch, clean, feature and assemble for a batch of tickers.

Tickers come from --tickers when given, otherwise from the seed file
and the tickers already present in the dataset. Each ticker runs in
its own failure domain: a bad ticker is reported, never aborts the
batch.

Example:
  go run ./cmd/stockpilot pipeline run --tickers AAPL,MSFT,GOOG
  go run ./cmd/stockpilot pipeline run --from 2018-01-01 --to 2024-12-31`,
		RunE: runPipeline,
	}

	// Flags
	pipelineTickers []string
	pipelineFrom    string
	pipelineTo      string
	pipelineWorkers int
)

func init() {
	rootCmd.AddCommand(pipelineCmd)
	pipelineCmd.AddCommand(pipelineRunCmd)

	// Flags
	pipelineRunCmd.Flags().StringSliceVar(&pipelineTickers, "tickers", nil, "comma-separated ticker list (default: watch list)")
	pipelineRunCmd.Flags().StringVar(&pipelineFrom, "from", "", "start date (YYYY-MM-DD, default: 8 years back)")
	pipelineRunCmd.Flags().StringVar(&pipelineTo, "to", "", "end date (YYYY-MM-DD, default: today)")
	pipelineRunCmd.Flags().IntVar(&pipelineWorkers, "workers", 0, "concurrent tickers (default: PIPELINE_WORKERS)")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	fmt.Println("=== StockPilot Pipeline ===")

	d, err := initDeps()
	if err != nil {
		return err
	}
	defer d.close()

	ctx := cmd.Context()

	tickers := pipelineTickers
	if len(tickers) == 0 {
		tickers, err = d.resolveTickers(ctx)
		if err != nil {
			return err
		}
	}
	if len(tickers) == 0 {
		return fmt.Errorf("no tickers to process, pass --tickers or seed the watch list")
	}

	now := time.Now()
	from, to := now.AddDate(-8, 0, 0), now
	if pipelineFrom != "" {
		if from, err = time.Parse("2006-01-02", pipelineFrom); err != nil {
			return fmt.Errorf("invalid start date: %w", err)
		}
	}
	if pipelineTo != "" {
		if to, err = time.Parse("2006-01-02", pipelineTo); err != nil {
			return fmt.Errorf("invalid end date: %w", err)
		}
	}

	workers := pipelineWorkers
	if workers < 1 {
		workers = d.cfg.Pipeline.Workers
	}

	runner, err := d.initRunner(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("\nTickers: %d\n", len(tickers))
	fmt.Printf("Period:  %s ~ %s\n", from.Format("2006-01-02"), to.Format("2006-01-02"))
	fmt.Printf("Workers: %d\n\n", workers)

	summary, err := runner.Run(ctx, pipeline.RunConfig{
		Tickers: tickers,
		From:    from,
		To:      to,
		Workers: workers,
	})
	if err != nil {
		return fmt.Errorf("pipeline run: %w", err)
	}

	fmt.Println("\nPipeline completed")
	fmt.Printf("  Succeeded: %d\n", summary.Succeeded)
	fmt.Printf("  Skipped:   %d\n", summary.Skipped)
	fmt.Printf("  Failed:    %d\n", summary.Failed)
	fmt.Printf("  Rows:      %d\n", summary.TotalRows)
	fmt.Printf("  Duration:  %.2fs\n", summary.Duration.Seconds())

	for _, res := range summary.Results {
		if res.Err != nil {
			fmt.Printf("  - %s: %v\n", res.Ticker, res.Err)
		}
	}

	if summary.Failed > 0 {
		return fmt.Errorf("%d tickers failed", summary.Failed)
	}
	return nil
}
