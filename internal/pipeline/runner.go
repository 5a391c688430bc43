package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/saikarthik/stockpilot/backend/internal/contracts"
	"github.com/saikarthik/stockpilot/backend/pkg/logger"
)

// Runner orchestrates the fetch → clean → feature → assemble pipeline.
// Tickers are processed by a worker pool with independent failure domains:
// one bad ticker is reported in the summary, never aborts the batch.
type Runner struct {
	fetcher   contracts.BarFetcher
	barRepo   contracts.BarRepository
	cleaner   *Cleaner
	engine    *FeatureEngine
	assembler *Assembler
	logger    *logger.Logger
}

// RunConfig holds one pipeline run's parameters
type RunConfig struct {
	Tickers []string
	From    time.Time
	To      time.Time
	Workers int
}

// TickerResult is the per-ticker outcome of a run
type TickerResult struct {
	Ticker string
	Bars   int
	Rows   int
	Err    error
}

// Skipped reports whether the ticker was excluded for a local, expected
// reason (bad data or short history) rather than a hard failure
func (r TickerResult) Skipped() bool {
	var dq *contracts.DataQualityError
	var ih *contracts.InsufficientHistoryError
	return errors.As(r.Err, &dq) || errors.As(r.Err, &ih)
}

// Summary is the batch-level outcome of a run
type Summary struct {
	Results   []TickerResult
	Succeeded int
	Skipped   int
	Failed    int
	TotalRows int
	Duration  time.Duration
}

// NewRunner creates a pipeline runner
func NewRunner(
	fetcher contracts.BarFetcher,
	barRepo contracts.BarRepository,
	cleaner *Cleaner,
	engine *FeatureEngine,
	assembler *Assembler,
	log *logger.Logger,
) *Runner {
	return &Runner{
		fetcher:   fetcher,
		barRepo:   barRepo,
		cleaner:   cleaner,
		engine:    engine,
		assembler: assembler,
		logger:    log.WithField("module", "pipeline"),
	}
}

// Run executes the full pipeline for a batch of tickers
func (r *Runner) Run(ctx context.Context, cfg RunConfig) (*Summary, error) {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	start := time.Now()
	r.logger.WithFields(map[string]interface{}{
		"tickers": len(cfg.Tickers),
		"from":    cfg.From.Format("2006-01-02"),
		"to":      cfg.To.Format("2006-01-02"),
		"workers": cfg.Workers,
	}).Info("Starting pipeline run")

	tickerCh := make(chan string, len(cfg.Tickers))
	resultCh := make(chan tickerFrame, len(cfg.Tickers))

	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			r.worker(ctx, workerID, cfg, tickerCh, resultCh)
		}(i)
	}

	for _, t := range cfg.Tickers {
		tickerCh <- t
	}
	close(tickerCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	summary := &Summary{}
	frames := make(map[string][]contracts.FeatureRow)
	for res := range resultCh {
		summary.Results = append(summary.Results, res.TickerResult)
		switch {
		case res.Err == nil:
			summary.Succeeded++
			summary.TotalRows += res.Rows
			frames[res.Ticker] = res.rows
		case res.Skipped():
			summary.Skipped++
		default:
			summary.Failed++
		}
	}

	if len(frames) > 0 {
		if _, err := r.assembler.Assemble(ctx, frames); err != nil {
			return summary, fmt.Errorf("assemble dataset: %w", err)
		}
	}

	summary.Duration = time.Since(start)
	r.logger.WithFields(map[string]interface{}{
		"succeeded": summary.Succeeded,
		"skipped":   summary.Skipped,
		"failed":    summary.Failed,
		"rows":      summary.TotalRows,
		"duration":  summary.Duration,
	}).Info("Pipeline run completed")

	return summary, nil
}

type tickerFrame struct {
	TickerResult
	rows []contracts.FeatureRow
}

// worker processes tickers from the channel until it is drained
func (r *Runner) worker(ctx context.Context, workerID int, cfg RunConfig, tickerCh <-chan string, resultCh chan<- tickerFrame) {
	for ticker := range tickerCh {
		select {
		case <-ctx.Done():
			resultCh <- tickerFrame{TickerResult: TickerResult{Ticker: ticker, Err: ctx.Err()}}
			return
		default:
		}

		res := r.processTicker(ctx, ticker, cfg)
		if res.Err != nil {
			level := r.logger.WithError(res.Err).WithFields(map[string]interface{}{
				"worker": workerID,
				"ticker": ticker,
			})
			if res.Skipped() {
				level.Warn("Ticker skipped")
			} else {
				level.Error("Ticker failed")
			}
		}
		resultCh <- res
	}
}

// processTicker runs fetch → clean → features for one ticker
func (r *Runner) processTicker(ctx context.Context, ticker string, cfg RunConfig) tickerFrame {
	res := tickerFrame{TickerResult: TickerResult{Ticker: ticker}}

	bars, err := r.fetcher.FetchBars(ctx, ticker, cfg.From, cfg.To)
	if err != nil {
		res.Err = err
		return res
	}
	res.Bars = len(bars)

	// Raw layer first, so a later stage failure never loses fetched data
	if err := r.barRepo.SaveBatch(ctx, bars); err != nil {
		res.Err = fmt.Errorf("save raw bars: %w", err)
		return res
	}

	cleaned, err := r.cleaner.CleanTicker(ticker, bars)
	if err != nil {
		res.Err = err
		return res
	}

	rows, err := r.engine.Compute(ticker, cleaned)
	if err != nil {
		res.Err = err
		return res
	}

	res.Rows = len(rows)
	res.rows = rows
	return res
}
