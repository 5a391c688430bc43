package pipeline

import (
	"math"
	"sort"
	"time"

	"github.com/saikarthik/stockpilot/backend/internal/contracts"
	"github.com/saikarthik/stockpilot/backend/pkg/logger"
)

// PriceColumn names a convertible price field of a Bar
type PriceColumn string

const (
	ColumnOpen     PriceColumn = "open"
	ColumnHigh     PriceColumn = "high"
	ColumnLow      PriceColumn = "low"
	ColumnClose    PriceColumn = "close"
	ColumnAdjClose PriceColumn = "adj_close"
)

// AllPriceColumns is the default conversion set. Volume is never converted.
var AllPriceColumns = []PriceColumn{ColumnOpen, ColumnHigh, ColumnLow, ColumnClose, ColumnAdjClose}

// FxRates supplies a currency conversion factor per trade date.
// A static rate is the degenerate case with an empty ByDate map.
type FxRates struct {
	Static float64
	ByDate map[string]float64 // keyed by YYYY-MM-DD
}

// At returns the conversion factor for a date, falling back to the static rate
func (r FxRates) At(date time.Time) float64 {
	if r.ByDate != nil {
		if rate, ok := r.ByDate[date.Format("2006-01-02")]; ok {
			return rate
		}
	}
	if r.Static == 0 {
		return 1.0
	}
	return r.Static
}

// Cleaner normalizes raw bars: currency conversion, null handling,
// deduplication by (ticker, date) and ordering.
type Cleaner struct {
	fx      FxRates
	columns []PriceColumn
	logger  *logger.Logger
}

// NewCleaner creates a cleaner converting the given price columns by fx.
// Passing nil columns converts every price column.
func NewCleaner(fx FxRates, columns []PriceColumn, log *logger.Logger) *Cleaner {
	if columns == nil {
		columns = AllPriceColumns
	}
	return &Cleaner{fx: fx, columns: columns, logger: log}
}

// Clean normalizes a raw bar table that may span several tickers.
// Output is sorted by (ticker, date) ascending with unique keys; duplicate
// keys keep the most recently fetched row.
func (c *Cleaner) Clean(bars []contracts.Bar) []contracts.Bar {
	cleaned := make([]contracts.Bar, 0, len(bars))

	dropped := 0
	for _, b := range bars {
		// A NaN close is the null marker from the fetch layer
		if math.IsNaN(b.Close) {
			dropped++
			continue
		}
		cleaned = append(cleaned, c.convert(b))
	}

	// Stable sort so equal keys preserve fetch recency for the dedupe pass
	sort.SliceStable(cleaned, func(i, j int) bool {
		if cleaned[i].Ticker != cleaned[j].Ticker {
			return cleaned[i].Ticker < cleaned[j].Ticker
		}
		if !cleaned[i].Date.Equal(cleaned[j].Date) {
			return cleaned[i].Date.Before(cleaned[j].Date)
		}
		return cleaned[i].FetchedAt.Before(cleaned[j].FetchedAt)
	})

	// Dedupe keeping the last (most recently fetched) row per key
	out := cleaned[:0]
	for i := range cleaned {
		if i+1 < len(cleaned) && cleaned[i].SameKey(&cleaned[i+1]) {
			continue
		}
		out = append(out, cleaned[i])
	}

	if dropped > 0 {
		c.logger.WithField("dropped", dropped).Debug("Dropped rows with null close")
	}

	return out
}

// CleanTicker cleans bars for exactly one ticker and fails with
// DataQualityError when nothing survives, so the caller skips the ticker
// instead of aborting the run.
func (c *Cleaner) CleanTicker(ticker string, bars []contracts.Bar) ([]contracts.Bar, error) {
	cleaned := c.Clean(bars)

	kept := cleaned[:0]
	for _, b := range cleaned {
		if b.Ticker == ticker {
			kept = append(kept, b)
		}
	}

	if len(kept) < 1 {
		return nil, &contracts.DataQualityError{Ticker: ticker, Reason: "no rows remain after cleaning"}
	}

	return kept, nil
}

// convert applies the FX factor to the configured price columns
func (c *Cleaner) convert(b contracts.Bar) contracts.Bar {
	rate := c.fx.At(b.Date)
	if rate == 1.0 {
		return b
	}

	for _, col := range c.columns {
		switch col {
		case ColumnOpen:
			b.Open *= rate
		case ColumnHigh:
			b.High *= rate
		case ColumnLow:
			b.Low *= rate
		case ColumnClose:
			b.Close *= rate
		case ColumnAdjClose:
			b.AdjClose *= rate
		}
	}

	return b
}
