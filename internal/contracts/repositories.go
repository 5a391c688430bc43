package contracts

import (
	"context"
	"time"
)

// BarRepository persists raw daily bars
type BarRepository interface {
	// SaveBatch upserts bars keyed on (ticker, date), keeping the latest fetch
	SaveBatch(ctx context.Context, bars []Bar) error

	// GetByTickerAndDateRange returns bars ordered by date ascending
	GetByTickerAndDateRange(ctx context.Context, ticker string, from, to time.Time) ([]Bar, error)
}

// FeatureRepository persists the assembled feature dataset
type FeatureRepository interface {
	// ReplaceDataset atomically rewrites the full dataset for a run
	ReplaceDataset(ctx context.Context, rows []FeatureRow) error

	// GetProcessedFrame returns feature rows for one ticker, date ascending
	GetProcessedFrame(ctx context.Context, ticker string, from, to time.Time) ([]FeatureRow, error)

	// GetAllTickersFrame returns feature rows for several tickers,
	// ordered by (ticker, date) ascending
	GetAllTickersFrame(ctx context.Context, tickers []string, from, to time.Time) ([]FeatureRow, error)
}

// TickerIDRepository persists the append-only ticker→id mapping
type TickerIDRepository interface {
	Load(ctx context.Context) (map[string]int, error)
	Append(ctx context.Context, ticker string, id int) error
}

// Predictor emits exactly one Signal per trailing feature window.
// Implementations must be pure per call: same window, same signal.
type Predictor interface {
	Predict(ctx context.Context, window []FeatureRow) (Signal, error)
}

// BarFetcher retrieves raw bars from the upstream market-data source
type BarFetcher interface {
	FetchBars(ctx context.Context, ticker string, from, to time.Time) ([]Bar, error)
}
