package backtest

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/saikarthik/stockpilot/backend/internal/contracts"
)

func curve(equities ...float64) []contracts.EquityPoint {
	points := make([]contracts.EquityPoint, len(equities))
	for i, e := range equities {
		points[i] = contracts.EquityPoint{Date: day(i + 1), Equity: e}
	}
	return points
}

func TestComputeMetrics_FlatCurve(t *testing.T) {
	m := computeMetrics(curve(100, 100, 100, 100), 0, 252)

	assert.Equal(t, 0.0, m.TotalReturnPct)
	assert.Equal(t, 0.0, m.VolatilityPct)
	assert.Equal(t, 0.0, m.SharpeRatio, "zero deviation must not divide by zero")
	assert.Equal(t, 0.0, m.MaxDrawdownPct)
}

func TestComputeMetrics_TotalReturn(t *testing.T) {
	m := computeMetrics(curve(100, 110, 121), 0, 252)
	assert.InDelta(t, 21.0, m.TotalReturnPct, 1e-9)
	assert.Greater(t, m.CAGRPct, 0.0)
}

func TestComputeMetrics_SharpePositiveForUnevenGains(t *testing.T) {
	m := computeMetrics(curve(100, 108, 110, 118), 0, 252)
	assert.Greater(t, m.SharpeRatio, 0.0)
	assert.Greater(t, m.VolatilityPct, 0.0)
}

func TestComputeMetrics_CAGROneYear(t *testing.T) {
	// 252 daily returns over a 10% move: CAGR equals the total return
	equities := make([]float64, 253)
	for i := range equities {
		equities[i] = 100 * math.Pow(1.10, float64(i)/252)
	}
	m := computeMetrics(curve(equities...), 0, 252)
	assert.InDelta(t, 10.0, m.CAGRPct, 1e-6)
}

func TestComputeMetrics_ShortCurve(t *testing.T) {
	m := computeMetrics(curve(100), 0, 252)
	assert.Equal(t, contracts.PerformanceMetrics{}, m)
}

func TestMaxDrawdown(t *testing.T) {
	// Peak 120, trough 90: drawdown (120-90)/120 = 25%
	dd := maxDrawdown(curve(100, 120, 90, 110))
	assert.InDelta(t, 0.25, dd, 1e-12)

	// Monotonic rise never draws down
	assert.Equal(t, 0.0, maxDrawdown(curve(100, 110, 120)))
}

func TestMeanStd(t *testing.T) {
	mean, std := meanStd([]float64{1, 2, 3})
	assert.InDelta(t, 2.0, mean, 1e-12)
	assert.InDelta(t, 1.0, std, 1e-12, "sample deviation, n-1 denominator")

	mean, std = meanStd(nil)
	assert.Equal(t, 0.0, mean)
	assert.Equal(t, 0.0, std)
}

func trade(pnl float64) contracts.Trade {
	return contracts.Trade{PnL: pnl, IsWin: pnl > 0}
}

func TestComputeTradeMetrics(t *testing.T) {
	m := computeTradeMetrics([]contracts.Trade{
		trade(100), trade(300), trade(-100), trade(-100),
	})

	assert.Equal(t, 4, m.TotalTrades)
	assert.InDelta(t, 0.5, m.WinRate, 1e-12)
	assert.InDelta(t, 2.0, float64(m.ProfitFactor), 1e-12, "gross profit 400 over gross loss 200")
	assert.InDelta(t, 200.0, m.AvgWinningTrade, 1e-12)
	assert.InDelta(t, -100.0, m.AvgLosingTrade, 1e-12)
	assert.InDelta(t, 300.0, m.LargestWinningTrade, 1e-12)
	assert.InDelta(t, -100.0, m.LargestLosingTrade, 1e-12)
}

func TestComputeTradeMetrics_NoLosses(t *testing.T) {
	m := computeTradeMetrics([]contracts.Trade{trade(50), trade(75)})

	assert.Equal(t, 1.0, m.WinRate)
	assert.True(t, m.ProfitFactor.IsInf(), "zero gross loss reports an infinite profit factor")
}

func TestComputeTradeMetrics_Empty(t *testing.T) {
	m := computeTradeMetrics(nil)
	assert.Equal(t, 0, m.TotalTrades)
	assert.Equal(t, contracts.Ratio(0), m.ProfitFactor)
}

func TestConfidenceScore(t *testing.T) {
	tests := []struct {
		name     string
		strategy contracts.PerformanceMetrics
		market   contracts.PerformanceMetrics
		want     float64
	}{
		{
			name:     "parity scores 50",
			strategy: contracts.PerformanceMetrics{SharpeRatio: 1.0, CAGRPct: 10},
			market:   contracts.PerformanceMetrics{SharpeRatio: 1.0, CAGRPct: 10},
			want:     50,
		},
		{
			name:     "doubled edge saturates at 100",
			strategy: contracts.PerformanceMetrics{SharpeRatio: 2.0, CAGRPct: 20},
			market:   contracts.PerformanceMetrics{SharpeRatio: 1.0, CAGRPct: 10},
			want:     100,
		},
		{
			name:     "negative market sharpe scores 0",
			strategy: contracts.PerformanceMetrics{SharpeRatio: 1.0, CAGRPct: 10},
			market:   contracts.PerformanceMetrics{SharpeRatio: -0.5, CAGRPct: 10},
			want:     0,
		},
		{
			name:     "negative market cagr scores 0",
			strategy: contracts.PerformanceMetrics{SharpeRatio: 1.0, CAGRPct: 10},
			market:   contracts.PerformanceMetrics{SharpeRatio: 1.0, CAGRPct: -5},
			want:     0,
		},
		{
			name:     "losing strategy clamps at 0",
			strategy: contracts.PerformanceMetrics{SharpeRatio: -1.0, CAGRPct: 5},
			market:   contracts.PerformanceMetrics{SharpeRatio: 1.0, CAGRPct: 10},
			want:     0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, confidenceScore(tt.strategy, tt.market))
		})
	}
}
