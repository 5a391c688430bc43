package alerts

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/saikarthik/stockpilot/backend/internal/contracts"
)

// Repository records delivered alerts so the scheduler never re-sends the
// same signal for the same day
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an alert repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Record stores a delivered alert
func (r *Repository) Record(ctx context.Context, signal contracts.Signal) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO alerts.sent (ticker, signal_date, action, confidence, sent_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (ticker, signal_date) DO NOTHING
	`, signal.Ticker, signal.Date, string(signal.Action), signal.Confidence, time.Now().UTC())
	return err
}

// AlreadySent reports whether an alert for this ticker/date went out
func (r *Repository) AlreadySent(ctx context.Context, ticker string, date time.Time) (bool, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM alerts.sent WHERE ticker = $1 AND signal_date = $2
	`, ticker, date).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
