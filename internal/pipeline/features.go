package pipeline

import (
	"math"

	"github.com/saikarthik/stockpilot/backend/internal/contracts"
	"github.com/saikarthik/stockpilot/backend/pkg/logger"
)

// FeatureEngine computes technical indicator columns for one ticker's
// cleaned, time-ordered bar sequence. All indicators are pure functions of
// the price history up to each index; warm-up values are NaN and the rows
// containing them are never emitted.
type FeatureEngine struct {
	logger *logger.Logger
}

// NewFeatureEngine creates a feature engine
func NewFeatureEngine(log *logger.Logger) *FeatureEngine {
	return &FeatureEngine{logger: log}
}

// Compute builds the FeatureRow sequence for a single ticker.
// Fails with InsufficientHistoryError when the 50-day MA cannot be defined
// for at least one row, rather than emitting partial rows.
func (e *FeatureEngine) Compute(ticker string, bars []contracts.Bar) ([]contracts.FeatureRow, error) {
	need := contracts.WarmupDays + 1
	if len(bars) < need {
		return nil, &contracts.InsufficientHistoryError{Ticker: ticker, Have: len(bars), Need: need}
	}

	n := len(bars)
	closes := make([]float64, n)
	volumes := make([]float64, n)
	for i, b := range bars {
		closes[i] = b.Close
		volumes[i] = float64(b.Volume)
	}

	dailyReturn := PctChange(closes)
	volumeChange := PctChange(volumes)
	// A zero-volume bar (trading halt) must not undefine the next row:
	// report a flat volume change instead of NaN
	for i := 1; i < n; i++ {
		if volumes[i-1] == 0 {
			volumeChange[i] = 0
		}
	}
	ma20 := SMA(closes, 20)
	ma50 := SMA(closes, 50)
	volatility := RollingStd(dailyReturn, 20)
	rsi := RSI(closes, 14)
	ema12 := EMA(closes, 12)
	ema26 := EMA(closes, 26)

	macd := make([]float64, n)
	for i := range macd {
		macd[i] = ema12[i] - ema26[i] // NaN propagates through the warm-up
	}
	macdSignal := EMA(macd, 9)

	rows := make([]contracts.FeatureRow, 0, n-contracts.WarmupDays)
	for i := contracts.WarmupDays; i < n; i++ {
		row := contracts.FeatureRow{
			Ticker:   ticker,
			Date:     bars[i].Date,
			Open:     bars[i].Open,
			High:     bars[i].High,
			Low:      bars[i].Low,
			Close:    bars[i].Close,
			AdjClose: bars[i].AdjClose,
			Volume:   bars[i].Volume,

			DailyReturn:    dailyReturn[i],
			VolumeChange:   volumeChange[i],
			MA20:           ma20[i],
			MA50:           ma50[i],
			CloseMA20Ratio: closes[i] / ma20[i],
			Volatility:     volatility[i],
			RSI:            rsi[i],
			EMA12:          ema12[i],
			EMA26:          ema26[i],
			MACD:           macd[i],
			MACDSignal:     macdSignal[i],
		}

		// Everything past the warm-up prefix is defined; guard anyway so a
		// NaN from upstream never reaches the assembled dataset
		if hasNaN(&row) {
			continue
		}

		rows = append(rows, row)
	}

	e.logger.WithFields(map[string]interface{}{
		"ticker": ticker,
		"bars":   n,
		"rows":   len(rows),
	}).Debug("Computed feature rows")

	return rows, nil
}

func hasNaN(r *contracts.FeatureRow) bool {
	for _, v := range []float64{
		r.DailyReturn, r.VolumeChange, r.MA20, r.MA50, r.CloseMA20Ratio,
		r.Volatility, r.RSI, r.EMA12, r.EMA26, r.MACD, r.MACDSignal,
	} {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

// PctChange returns values[t]/values[t-1] - 1, NaN at t=0
func PctChange(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) > 0 {
		out[0] = math.NaN()
	}
	for i := 1; i < len(values); i++ {
		if values[i-1] == 0 || math.IsNaN(values[i-1]) || math.IsNaN(values[i]) {
			out[i] = math.NaN()
			continue
		}
		out[i] = values[i]/values[i-1] - 1
	}
	return out
}

// SMA returns the simple mean of the trailing n values ending at each index,
// NaN while fewer than n values are available
func SMA(values []float64, n int) []float64 {
	out := make([]float64, len(values))
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= n {
			sum -= values[i-n]
		}
		if i >= n-1 {
			out[i] = sum / float64(n)
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// RollingStd returns the sample standard deviation over the trailing n
// observations; NaN until n defined observations exist in the window
func RollingStd(values []float64, n int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		if i < n-1 {
			out[i] = math.NaN()
			continue
		}

		window := values[i-n+1 : i+1]
		mean, defined := 0.0, true
		for _, v := range window {
			if math.IsNaN(v) {
				defined = false
				break
			}
			mean += v
		}
		if !defined {
			out[i] = math.NaN()
			continue
		}
		mean /= float64(n)

		variance := 0.0
		for _, v := range window {
			diff := v - mean
			variance += diff * diff
		}
		// Sample variance (n-1 denominator)
		out[i] = math.Sqrt(variance / float64(n-1))
	}
	return out
}

// EMA returns the exponential moving average with smoothing 2/(k+1),
// seeded by the simple average of the first k defined values. Leading NaNs
// (e.g. the MACD warm-up) are skipped before seeding.
func EMA(values []float64, k int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}

	start := 0
	for start < len(values) && math.IsNaN(values[start]) {
		start++
	}
	if len(values)-start < k {
		return out
	}

	seed := 0.0
	for i := start; i < start+k; i++ {
		seed += values[i]
	}
	seed /= float64(k)

	alpha := 2.0 / (float64(k) + 1.0)
	out[start+k-1] = seed
	for i := start + k; i < len(values); i++ {
		out[i] = values[i]*alpha + out[i-1]*(1-alpha)
	}
	return out
}

// RSI returns the 14-period-style relative strength index with Wilder
// smoothing, seeded by the simple average of the first `period` gains and
// losses. When the average loss is zero RS is treated as infinite and RSI
// reports 100.
func RSI(closes []float64, period int) []float64 {
	out := make([]float64, len(closes))
	for i := range out {
		out[i] = math.NaN()
	}
	if len(closes) < period+1 {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss += -change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}

		// Wilder smoothing
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}

	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}
