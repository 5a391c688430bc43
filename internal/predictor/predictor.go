package predictor

import (
	"context"
	"fmt"

	"github.com/saikarthik/stockpilot/backend/internal/contracts"
)

// Thresholded wraps any predictor and collapses low-confidence predictions
// to HOLD. The raw class prediction is kept only when the model is at least
// `threshold` confident.
type Thresholded struct {
	inner     contracts.Predictor
	threshold float64
}

// NewThresholded creates the threshold wrapper
func NewThresholded(inner contracts.Predictor, threshold float64) *Thresholded {
	return &Thresholded{inner: inner, threshold: threshold}
}

// Predict delegates and applies the confidence floor
func (t *Thresholded) Predict(ctx context.Context, window []contracts.FeatureRow) (contracts.Signal, error) {
	signal, err := t.inner.Predict(ctx, window)
	if err != nil {
		return contracts.Signal{}, err
	}

	return signal.Thresholded(t.threshold), nil
}

// PredictSeries emits one signal per feature row, feeding each prediction a
// trailing window of up to windowSize rows. Rows before the first full
// window still get a prediction from the shorter prefix, matching how the
// live endpoint behaves on young tickers.
func PredictSeries(ctx context.Context, p contracts.Predictor, rows []contracts.FeatureRow, windowSize int) ([]contracts.Signal, error) {
	if windowSize < 1 {
		windowSize = 1
	}

	signals := make([]contracts.Signal, 0, len(rows))
	for i := range rows {
		start := i + 1 - windowSize
		if start < 0 {
			start = 0
		}

		signal, err := p.Predict(ctx, rows[start:i+1])
		if err != nil {
			return nil, fmt.Errorf("predict at %s: %w", rows[i].Date.Format("2006-01-02"), err)
		}
		signals = append(signals, signal)
	}

	return signals, nil
}
