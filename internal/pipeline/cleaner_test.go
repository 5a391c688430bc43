package pipeline

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saikarthik/stockpilot/backend/internal/contracts"
	"github.com/saikarthik/stockpilot/backend/pkg/logger"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func bar(ticker string, d int, close float64) contracts.Bar {
	return contracts.Bar{
		Ticker:   ticker,
		Date:     day(d),
		Open:     close,
		High:     close,
		Low:      close,
		Close:    close,
		AdjClose: close,
		Volume:   1000,
	}
}

func TestCleaner_Clean(t *testing.T) {
	c := NewCleaner(FxRates{}, nil, logger.NewNop())

	// Out of order, across tickers, with one null close
	nullBar := bar("AAPL", 2, 0)
	nullBar.Close = math.NaN()

	input := []contracts.Bar{
		bar("MSFT", 3, 400),
		bar("AAPL", 5, 105),
		nullBar,
		bar("AAPL", 3, 103),
		bar("MSFT", 2, 398),
	}

	out := c.Clean(input)
	require.Len(t, out, 4, "null close row should be dropped")

	// Sorted by (ticker, date) ascending
	assert.Equal(t, "AAPL", out[0].Ticker)
	assert.Equal(t, day(3), out[0].Date)
	assert.Equal(t, "AAPL", out[1].Ticker)
	assert.Equal(t, day(5), out[1].Date)
	assert.Equal(t, "MSFT", out[2].Ticker)
	assert.Equal(t, day(2), out[2].Date)
	assert.Equal(t, "MSFT", out[3].Ticker)
	assert.Equal(t, day(3), out[3].Date)
}

func TestCleaner_Clean_DedupeKeepsLatestFetch(t *testing.T) {
	c := NewCleaner(FxRates{}, nil, logger.NewNop())

	stale := bar("AAPL", 3, 100)
	stale.FetchedAt = time.Date(2024, 1, 3, 18, 0, 0, 0, time.UTC)
	fresh := bar("AAPL", 3, 101)
	fresh.FetchedAt = time.Date(2024, 1, 4, 6, 0, 0, 0, time.UTC)

	out := c.Clean([]contracts.Bar{fresh, stale})
	require.Len(t, out, 1)
	assert.Equal(t, 101.0, out[0].Close, "dedupe should keep the most recently fetched row")
}

func TestCleaner_Clean_FxConversion(t *testing.T) {
	c := NewCleaner(FxRates{Static: 1350.0}, nil, logger.NewNop())

	out := c.Clean([]contracts.Bar{bar("AAPL", 2, 100)})
	require.Len(t, out, 1)

	assert.Equal(t, 135000.0, out[0].Open)
	assert.Equal(t, 135000.0, out[0].High)
	assert.Equal(t, 135000.0, out[0].Low)
	assert.Equal(t, 135000.0, out[0].Close)
	assert.Equal(t, 135000.0, out[0].AdjClose)
	assert.Equal(t, int64(1000), out[0].Volume, "volume must never be converted")
}

func TestCleaner_Clean_FxByDate(t *testing.T) {
	fx := FxRates{
		Static: 2.0,
		ByDate: map[string]float64{"2024-01-02": 3.0},
	}
	c := NewCleaner(fx, []PriceColumn{ColumnClose}, logger.NewNop())

	out := c.Clean([]contracts.Bar{bar("AAPL", 2, 100), bar("AAPL", 3, 100)})
	require.Len(t, out, 2)

	assert.Equal(t, 300.0, out[0].Close, "dated rate wins")
	assert.Equal(t, 200.0, out[1].Close, "static rate is the fallback")
	assert.Equal(t, 100.0, out[0].Open, "unlisted columns stay untouched")
}

func TestCleaner_CleanTicker_EmptyFails(t *testing.T) {
	c := NewCleaner(FxRates{}, nil, logger.NewNop())

	nullBar := bar("AAPL", 2, 0)
	nullBar.Close = math.NaN()

	_, err := c.CleanTicker("AAPL", []contracts.Bar{nullBar})
	require.Error(t, err)

	var dqErr *contracts.DataQualityError
	require.ErrorAs(t, err, &dqErr)
	assert.Equal(t, "AAPL", dqErr.Ticker)
}

func TestCleaner_CleanTicker_FiltersOtherTickers(t *testing.T) {
	c := NewCleaner(FxRates{}, nil, logger.NewNop())

	out, err := c.CleanTicker("AAPL", []contracts.Bar{
		bar("AAPL", 2, 100),
		bar("MSFT", 2, 400),
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "AAPL", out[0].Ticker)
}
