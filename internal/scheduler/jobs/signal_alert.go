package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/saikarthik/stockpilot/backend/internal/alerts"
	"github.com/saikarthik/stockpilot/backend/internal/contracts"
	"github.com/saikarthik/stockpilot/backend/pkg/logger"
)

// SignalAlert evaluates the latest signal for each watched ticker after the
// close and emails BUY/SELL decisions. HOLD never alerts, and a ticker/date
// pair alerts at most once.
type SignalAlert struct {
	features   contracts.FeatureRepository
	pred       contracts.Predictor
	mailer     *alerts.Mailer
	repo       *alerts.Repository
	tickers    func() []string
	windowSize int
	schedule   string
	logger     *logger.Logger
}

// NewSignalAlert creates the alert job
func NewSignalAlert(
	features contracts.FeatureRepository,
	pred contracts.Predictor,
	mailer *alerts.Mailer,
	repo *alerts.Repository,
	tickers func() []string,
	windowSize int,
	schedule string,
	log *logger.Logger,
) *SignalAlert {
	return &SignalAlert{
		features:   features,
		pred:       pred,
		mailer:     mailer,
		repo:       repo,
		tickers:    tickers,
		windowSize: windowSize,
		schedule:   schedule,
		logger:     log,
	}
}

// Name returns the job name
func (j *SignalAlert) Name() string {
	return "signal_alert"
}

// Schedule returns the cron expression
func (j *SignalAlert) Schedule() string {
	return j.schedule
}

// Run evaluates every watched ticker independently; one bad ticker is
// logged and skipped, never aborts the sweep.
func (j *SignalAlert) Run(ctx context.Context) error {
	now := time.Now()
	from := now.AddDate(0, -6, 0)

	failed := 0
	for _, ticker := range j.tickers() {
		if err := j.evaluate(ctx, ticker, from, now); err != nil {
			failed++
			j.logger.WithError(err).WithField("ticker", ticker).Error("Signal evaluation failed")
		}
	}

	if failed > 0 {
		return fmt.Errorf("signal alert sweep: %d tickers failed", failed)
	}
	return nil
}

func (j *SignalAlert) evaluate(ctx context.Context, ticker string, from, to time.Time) error {
	rows, err := j.features.GetProcessedFrame(ctx, ticker, from, to)
	if err != nil {
		return fmt.Errorf("load frame: %w", err)
	}
	if len(rows) == 0 {
		j.logger.WithField("ticker", ticker).Warn("No feature rows, skipping")
		return nil
	}

	window := rows
	if len(window) > j.windowSize {
		window = window[len(window)-j.windowSize:]
	}

	signal, err := j.pred.Predict(ctx, window)
	if err != nil {
		return fmt.Errorf("predict: %w", err)
	}

	if signal.Action == contracts.ActionHold {
		return nil
	}

	sent, err := j.repo.AlreadySent(ctx, ticker, signal.Date)
	if err != nil {
		return fmt.Errorf("check sent: %w", err)
	}
	if sent {
		return nil
	}

	lastClose := rows[len(rows)-1].Close
	if err := j.mailer.SendSignalAlert(signal, lastClose); err != nil {
		return err
	}

	return j.repo.Record(ctx, signal)
}
