package marketdata

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/saikarthik/stockpilot/backend/internal/contracts"
)

// BarRepository implements contracts.BarRepository on Postgres.
// This is the raw layer: bars land here exactly as fetched (post FX),
// before feature computation.
type BarRepository struct {
	pool *pgxpool.Pool
}

// NewBarRepository creates a bar repository
func NewBarRepository(pool *pgxpool.Pool) *BarRepository {
	return &BarRepository{pool: pool}
}

// SaveBatch upserts bars keyed on (ticker, trade_date).
// The upsert keeps the most recent fetch, matching the cleaner's dedupe rule.
func (r *BarRepository) SaveBatch(ctx context.Context, bars []contracts.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	query := `
		INSERT INTO marketdata.daily_bars
			(ticker, trade_date, open_price, high_price, low_price, close_price, adj_close, volume, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (ticker, trade_date) DO UPDATE SET
			open_price  = EXCLUDED.open_price,
			high_price  = EXCLUDED.high_price,
			low_price   = EXCLUDED.low_price,
			close_price = EXCLUDED.close_price,
			adj_close   = EXCLUDED.adj_close,
			volume      = EXCLUDED.volume,
			fetched_at  = EXCLUDED.fetched_at
	`

	for _, b := range bars {
		if _, err := r.pool.Exec(ctx, query,
			b.Ticker, b.Date, b.Open, b.High, b.Low, b.Close, b.AdjClose, b.Volume, b.FetchedAt,
		); err != nil {
			return err
		}
	}
	return nil
}

// GetByTickerAndDateRange returns bars ordered by trade date ascending
func (r *BarRepository) GetByTickerAndDateRange(ctx context.Context, ticker string, from, to time.Time) ([]contracts.Bar, error) {
	query := `
		SELECT ticker, trade_date, open_price, high_price, low_price, close_price, adj_close, volume, fetched_at
		FROM marketdata.daily_bars
		WHERE ticker = $1 AND trade_date BETWEEN $2 AND $3
		ORDER BY trade_date ASC
	`

	rows, err := r.pool.Query(ctx, query, ticker, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bars []contracts.Bar
	for rows.Next() {
		var b contracts.Bar
		if err := rows.Scan(
			&b.Ticker, &b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.AdjClose, &b.Volume, &b.FetchedAt,
		); err != nil {
			return nil, err
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}
