package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/saikarthik/stockpilot/backend/internal/pipeline"
	"github.com/saikarthik/stockpilot/backend/pkg/logger"
)

// PipelineRefresh rebuilds the feature dataset before the market opens so
// the dashboard and the signal alert job work off fresh indicators.
type PipelineRefresh struct {
	runner   *pipeline.Runner
	tickers  func() []string
	lookback time.Duration
	schedule string
	logger   *logger.Logger
}

// NewPipelineRefresh creates the refresh job. tickers is resolved at run
// time so symbols added during the day are picked up without a restart.
func NewPipelineRefresh(runner *pipeline.Runner, tickers func() []string, schedule string, log *logger.Logger) *PipelineRefresh {
	return &PipelineRefresh{
		runner:   runner,
		tickers:  tickers,
		lookback: 8 * 365 * 24 * time.Hour, // mirror the 2018-to-today training range
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *PipelineRefresh) Name() string {
	return "pipeline_refresh"
}

// Schedule returns the cron expression
func (j *PipelineRefresh) Schedule() string {
	return j.schedule
}

// Run executes one full pipeline run
func (j *PipelineRefresh) Run(ctx context.Context) error {
	tickers := j.tickers()
	if len(tickers) == 0 {
		j.logger.Warn("Pipeline refresh skipped: no tickers configured")
		return nil
	}

	now := time.Now()
	summary, err := j.runner.Run(ctx, pipeline.RunConfig{
		Tickers: tickers,
		From:    now.Add(-j.lookback),
		To:      now,
		Workers: 4,
	})
	if err != nil {
		return fmt.Errorf("pipeline run: %w", err)
	}

	if summary.Failed > 0 {
		return fmt.Errorf("pipeline refresh: %d of %d tickers failed", summary.Failed, len(tickers))
	}

	return nil
}
