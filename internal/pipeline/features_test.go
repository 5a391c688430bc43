package pipeline

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saikarthik/stockpilot/backend/internal/contracts"
	"github.com/saikarthik/stockpilot/backend/pkg/logger"
)

// priceBars builds a deterministic but non-trivial price series
func priceBars(ticker string, n int) []contracts.Bar {
	bars := make([]contracts.Bar, n)
	for i := 0; i < n; i++ {
		close := 100.0 + 10.0*math.Sin(float64(i)/5.0) + float64(i)*0.1
		bars[i] = contracts.Bar{
			Ticker:   ticker,
			Date:     day(1).AddDate(0, 0, i),
			Open:     close * 0.99,
			High:     close * 1.01,
			Low:      close * 0.98,
			Close:    close,
			AdjClose: close,
			Volume:   int64(1000 + i*10),
		}
	}
	return bars
}

func TestFeatureEngine_Compute(t *testing.T) {
	engine := NewFeatureEngine(logger.NewNop())

	bars := priceBars("AAPL", 80)
	rows, err := engine.Compute("AAPL", bars)
	require.NoError(t, err)

	// The first 50 bars are warm-up and never emitted
	require.Len(t, rows, 30)
	assert.Equal(t, bars[50].Date, rows[0].Date)
	assert.Equal(t, bars[79].Date, rows[len(rows)-1].Date)

	for _, row := range rows {
		assert.Equal(t, "AAPL", row.Ticker)
		assert.False(t, math.IsNaN(row.DailyReturn), "daily_return defined at %s", row.Date)
		assert.False(t, math.IsNaN(row.VolumeChange), "volume_change defined at %s", row.Date)
		assert.False(t, math.IsNaN(row.MA20), "ma20 defined at %s", row.Date)
		assert.False(t, math.IsNaN(row.MA50), "ma50 defined at %s", row.Date)
		assert.False(t, math.IsNaN(row.Volatility), "volatility defined at %s", row.Date)
		assert.False(t, math.IsNaN(row.RSI), "rsi defined at %s", row.Date)
		assert.False(t, math.IsNaN(row.MACD), "macd defined at %s", row.Date)
		assert.False(t, math.IsNaN(row.MACDSignal), "macd_signal defined at %s", row.Date)

		assert.GreaterOrEqual(t, row.RSI, 0.0)
		assert.LessOrEqual(t, row.RSI, 100.0)
		assert.InDelta(t, row.Close/row.MA20, row.CloseMA20Ratio, 1e-12)
		assert.InDelta(t, row.EMA12-row.EMA26, row.MACD, 1e-9)
	}
}

func TestFeatureEngine_Compute_ShortHistory(t *testing.T) {
	engine := NewFeatureEngine(logger.NewNop())

	_, err := engine.Compute("IPO", priceBars("IPO", 10))
	require.Error(t, err)

	var ihErr *contracts.InsufficientHistoryError
	require.ErrorAs(t, err, &ihErr)
	assert.Equal(t, "IPO", ihErr.Ticker)
	assert.Equal(t, 10, ihErr.Have)
	assert.Equal(t, 51, ihErr.Need)
}

func TestFeatureEngine_Compute_ZeroVolumeDay(t *testing.T) {
	engine := NewFeatureEngine(logger.NewNop())

	// Trading halt mid-series: the day itself and the day after must both
	// stay in the output with a defined volume_change
	bars := priceBars("AAPL", 80)
	bars[60].Volume = 0

	rows, err := engine.Compute("AAPL", bars)
	require.NoError(t, err)
	require.Len(t, rows, 30)

	haltDay := rows[10]
	require.Equal(t, bars[60].Date, haltDay.Date)
	assert.InDelta(t, -1.0, haltDay.VolumeChange, 1e-12)

	dayAfter := rows[11]
	require.Equal(t, bars[61].Date, dayAfter.Date)
	assert.Equal(t, 0.0, dayAfter.VolumeChange, "flat change after a halt, not NaN")
}

func TestSMA(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	got := SMA(values, 3)

	assert.True(t, math.IsNaN(got[0]))
	assert.True(t, math.IsNaN(got[1]))
	assert.InDelta(t, 2.0, got[2], 1e-12)
	assert.InDelta(t, 3.0, got[3], 1e-12)
	assert.InDelta(t, 4.0, got[4], 1e-12)
}

func TestSMA_AgreesWithNaiveMean(t *testing.T) {
	values := make([]float64, 200)
	for i := range values {
		values[i] = 100 + 10*math.Sin(float64(i)/7)
	}

	got := SMA(values, 20)
	for i := 19; i < len(values); i++ {
		sum := 0.0
		for j := i - 19; j <= i; j++ {
			sum += values[j]
		}
		assert.InDelta(t, sum/20, got[i], 1e-9, "index %d", i)
	}
}

func TestPctChange(t *testing.T) {
	got := PctChange([]float64{100, 110, 99})

	assert.True(t, math.IsNaN(got[0]))
	assert.InDelta(t, 0.10, got[1], 1e-12)
	assert.InDelta(t, -0.10, got[2], 1e-12)
}

func TestPctChange_ZeroBase(t *testing.T) {
	got := PctChange([]float64{0, 10})
	assert.True(t, math.IsNaN(got[1]), "division by a zero base must not produce Inf")
}

func TestEMA_SeededBySimpleMean(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6}
	got := EMA(values, 3)

	assert.True(t, math.IsNaN(got[0]))
	assert.True(t, math.IsNaN(got[1]))
	assert.InDelta(t, 2.0, got[2], 1e-12, "seed is the simple mean of the first k values")

	// alpha = 2/(k+1) = 0.5
	assert.InDelta(t, 4*0.5+2*0.5, got[3], 1e-12)
}

func TestEMA_SkipsLeadingNaN(t *testing.T) {
	values := []float64{math.NaN(), math.NaN(), 1, 2, 3, 4}
	got := EMA(values, 3)

	assert.True(t, math.IsNaN(got[2]))
	assert.True(t, math.IsNaN(got[3]))
	assert.InDelta(t, 2.0, got[4], 1e-12)
	assert.False(t, math.IsNaN(got[5]))
}

func TestRSI(t *testing.T) {
	// Monotonically rising closes: no losses, RSI pegs at 100
	rising := make([]float64, 30)
	for i := range rising {
		rising[i] = 100 + float64(i)
	}
	got := RSI(rising, 14)

	for i := 0; i < 14; i++ {
		assert.True(t, math.IsNaN(got[i]), "warm-up index %d", i)
	}
	for i := 14; i < len(got); i++ {
		assert.Equal(t, 100.0, got[i])
	}

	// Monotonically falling closes: no gains, RSI pegs at 0
	falling := make([]float64, 30)
	for i := range falling {
		falling[i] = 100 - float64(i)
	}
	got = RSI(falling, 14)
	for i := 14; i < len(got); i++ {
		assert.Equal(t, 0.0, got[i])
	}
}

func TestRSI_Bounds(t *testing.T) {
	closes := make([]float64, 100)
	for i := range closes {
		closes[i] = 100 + 15*math.Sin(float64(i)/3)
	}

	got := RSI(closes, 14)
	for i := 14; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i], 0.0)
		assert.LessOrEqual(t, got[i], 100.0)
	}
}

func TestRollingStd(t *testing.T) {
	// Constant series has zero deviation
	got := RollingStd([]float64{5, 5, 5, 5}, 3)
	assert.True(t, math.IsNaN(got[0]))
	assert.True(t, math.IsNaN(got[1]))
	assert.InDelta(t, 0.0, got[2], 1e-12)

	// Sample (n-1) deviation of {1,2,3} is 1
	got = RollingStd([]float64{1, 2, 3}, 3)
	assert.InDelta(t, 1.0, got[2], 1e-12)
}

func TestRollingStd_NaNInWindow(t *testing.T) {
	got := RollingStd([]float64{math.NaN(), 2, 3, 4}, 3)
	assert.True(t, math.IsNaN(got[2]), "window containing NaN stays undefined")
	assert.False(t, math.IsNaN(got[3]))
}
