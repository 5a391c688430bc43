package pipeline

import (
	"context"
	"fmt"
	"sort"

	"github.com/saikarthik/stockpilot/backend/internal/contracts"
	"github.com/saikarthik/stockpilot/backend/pkg/logger"
)

// Assembler merges per-ticker feature frames into the consolidated dataset,
// attaches the numeric ticker id and persists the result.
type Assembler struct {
	repo    contracts.FeatureRepository
	encoder *TickerEncoder
	logger  *logger.Logger
}

// NewAssembler creates an assembler
func NewAssembler(repo contracts.FeatureRepository, encoder *TickerEncoder, log *logger.Logger) *Assembler {
	return &Assembler{repo: repo, encoder: encoder, logger: log}
}

// Assemble merges the frames, assigns ticker ids and rewrites the persisted
// dataset. The write replaces the full dataset inside one transaction so a
// re-run is idempotent and a concurrent reader never observes a partial
// dataset.
func (a *Assembler) Assemble(ctx context.Context, frames map[string][]contracts.FeatureRow) ([]contracts.FeatureRow, error) {
	total := 0
	for _, rows := range frames {
		total += len(rows)
	}

	merged := make([]contracts.FeatureRow, 0, total)
	for ticker, rows := range frames {
		id, err := a.encoder.Encode(ctx, ticker)
		if err != nil {
			return nil, fmt.Errorf("encode ticker %s: %w", ticker, err)
		}
		for _, row := range rows {
			row.TickerID = id
			merged = append(merged, row)
		}
	}

	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Ticker != merged[j].Ticker {
			return merged[i].Ticker < merged[j].Ticker
		}
		return merged[i].Date.Before(merged[j].Date)
	})

	if err := a.repo.ReplaceDataset(ctx, merged); err != nil {
		return nil, fmt.Errorf("persist dataset: %w", err)
	}

	a.logger.WithFields(map[string]interface{}{
		"tickers": len(frames),
		"rows":    len(merged),
	}).Info("Assembled feature dataset")

	return merged, nil
}
