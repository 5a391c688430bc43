package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/saikarthik/stockpilot/backend/internal/contracts"
)

// FeatureRepository implements contracts.FeatureRepository on Postgres
type FeatureRepository struct {
	pool *pgxpool.Pool
}

// NewFeatureRepository creates a feature repository
func NewFeatureRepository(pool *pgxpool.Pool) *FeatureRepository {
	return &FeatureRepository{pool: pool}
}

const featureColumns = `
	ticker, ticker_id, trade_date, open_price, high_price, low_price, close_price,
	adj_close, volume, daily_return, volume_change, ma20, ma50, close_ma20_ratio,
	volatility, rsi, ema12, ema26, macd, macd_signal`

// ReplaceDataset rewrites the full dataset in one transaction.
// Delete-then-copy keeps the swap atomic for concurrent readers.
func (r *FeatureRepository) ReplaceDataset(ctx context.Context, rows []contracts.FeatureRow) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM pipeline.feature_rows`); err != nil {
		return fmt.Errorf("clear dataset: %w", err)
	}

	_, err = tx.CopyFrom(
		ctx,
		pgx.Identifier{"pipeline", "feature_rows"},
		[]string{
			"ticker", "ticker_id", "trade_date", "open_price", "high_price", "low_price",
			"close_price", "adj_close", "volume", "daily_return", "volume_change", "ma20",
			"ma50", "close_ma20_ratio", "volatility", "rsi", "ema12", "ema26", "macd",
			"macd_signal",
		},
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			f := rows[i]
			return []any{
				f.Ticker, f.TickerID, f.Date, f.Open, f.High, f.Low, f.Close,
				f.AdjClose, f.Volume, f.DailyReturn, f.VolumeChange, f.MA20, f.MA50,
				f.CloseMA20Ratio, f.Volatility, f.RSI, f.EMA12, f.EMA26, f.MACD,
				f.MACDSignal,
			}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy rows: %w", err)
	}

	return tx.Commit(ctx)
}

// GetProcessedFrame returns feature rows for one ticker, date ascending
func (r *FeatureRepository) GetProcessedFrame(ctx context.Context, ticker string, from, to time.Time) ([]contracts.FeatureRow, error) {
	query := `
		SELECT` + featureColumns + `
		FROM pipeline.feature_rows
		WHERE ticker = $1 AND trade_date BETWEEN $2 AND $3
		ORDER BY trade_date ASC
	`

	rows, err := r.pool.Query(ctx, query, ticker, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanFeatureRows(rows)
}

// GetAllTickersFrame returns feature rows for several tickers,
// ordered by (ticker, trade_date) ascending
func (r *FeatureRepository) GetAllTickersFrame(ctx context.Context, tickers []string, from, to time.Time) ([]contracts.FeatureRow, error) {
	query := `
		SELECT` + featureColumns + `
		FROM pipeline.feature_rows
		WHERE ticker = ANY($1) AND trade_date BETWEEN $2 AND $3
		ORDER BY ticker ASC, trade_date ASC
	`

	rows, err := r.pool.Query(ctx, query, tickers, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanFeatureRows(rows)
}

func scanFeatureRows(rows pgx.Rows) ([]contracts.FeatureRow, error) {
	var out []contracts.FeatureRow
	for rows.Next() {
		var f contracts.FeatureRow
		if err := rows.Scan(
			&f.Ticker, &f.TickerID, &f.Date, &f.Open, &f.High, &f.Low, &f.Close,
			&f.AdjClose, &f.Volume, &f.DailyReturn, &f.VolumeChange, &f.MA20, &f.MA50,
			&f.CloseMA20Ratio, &f.Volatility, &f.RSI, &f.EMA12, &f.EMA26, &f.MACD,
			&f.MACDSignal,
		); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// TickerIDRepository implements contracts.TickerIDRepository on Postgres
type TickerIDRepository struct {
	pool *pgxpool.Pool
}

// NewTickerIDRepository creates a ticker id repository
func NewTickerIDRepository(pool *pgxpool.Pool) *TickerIDRepository {
	return &TickerIDRepository{pool: pool}
}

// Load returns the full persisted mapping
func (r *TickerIDRepository) Load(ctx context.Context) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT ticker, ticker_id FROM pipeline.ticker_ids`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[string]int)
	for rows.Next() {
		var ticker string
		var id int
		if err := rows.Scan(&ticker, &id); err != nil {
			return nil, err
		}
		ids[ticker] = id
	}
	return ids, rows.Err()
}

// Append inserts a new mapping entry. DO NOTHING on conflict keeps the
// mapping append-only: an existing id is never reassigned.
func (r *TickerIDRepository) Append(ctx context.Context, ticker string, id int) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO pipeline.ticker_ids (ticker, ticker_id)
		VALUES ($1, $2)
		ON CONFLICT (ticker) DO NOTHING
	`, ticker, id)
	return err
}
