package backtest

import (
	"math"

	"github.com/saikarthik/stockpilot/backend/internal/contracts"
)

// computeMetrics derives portfolio-level metrics from an equity curve
func computeMetrics(curve []contracts.EquityPoint, riskFreeRate float64, tradingDays int) contracts.PerformanceMetrics {
	var m contracts.PerformanceMetrics
	if len(curve) < 2 {
		return m
	}

	start := curve[0].Equity
	end := curve[len(curve)-1].Equity
	m.TotalReturnPct = (end/start - 1) * 100

	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		returns = append(returns, curve[i].Equity/curve[i-1].Equity-1)
	}

	nYears := float64(len(returns)) / float64(tradingDays)
	if nYears > 0 && start > 0 && end > 0 {
		m.CAGRPct = (math.Pow(end/start, 1/nYears) - 1) * 100
	}

	mean, std := meanStd(returns)
	m.VolatilityPct = std * math.Sqrt(float64(tradingDays)) * 100

	if std > 0 {
		dailyRiskFree := riskFreeRate / float64(tradingDays)
		m.SharpeRatio = (mean - dailyRiskFree) / std * math.Sqrt(float64(tradingDays))
	}

	m.MaxDrawdownPct = maxDrawdown(curve) * 100

	return m
}

// meanStd returns the mean and sample standard deviation
func meanStd(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}

	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	if len(values) < 2 {
		return mean, 0
	}

	variance := 0.0
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	return mean, math.Sqrt(variance / float64(len(values)-1))
}

// maxDrawdown returns the peak-to-trough decline as a positive fraction
func maxDrawdown(curve []contracts.EquityPoint) float64 {
	maxDD := 0.0
	peak := curve[0].Equity

	for _, point := range curve {
		if point.Equity > peak {
			peak = point.Equity
		}
		if peak <= 0 {
			continue
		}
		dd := (peak - point.Equity) / peak
		if dd > maxDD {
			maxDD = dd
		}
	}

	return maxDD
}

// computeTradeMetrics derives trade-level metrics from closed trades.
// Profit factor is infinite when there is gross profit and no gross loss.
func computeTradeMetrics(trades []contracts.Trade) contracts.TradeMetrics {
	var m contracts.TradeMetrics
	m.TotalTrades = len(trades)
	if len(trades) == 0 {
		return m
	}

	var grossProfit, grossLoss float64
	var wins, losses int
	for _, t := range trades {
		if t.PnL > 0 {
			wins++
			grossProfit += t.PnL
			if t.PnL > m.LargestWinningTrade {
				m.LargestWinningTrade = t.PnL
			}
		} else if t.PnL < 0 {
			losses++
			grossLoss += -t.PnL
			if -t.PnL > -m.LargestLosingTrade {
				m.LargestLosingTrade = t.PnL
			}
		}
	}

	m.WinRate = float64(wins) / float64(len(trades))
	if wins > 0 {
		m.AvgWinningTrade = grossProfit / float64(wins)
	}
	if losses > 0 {
		m.AvgLosingTrade = -grossLoss / float64(losses)
	}

	switch {
	case grossLoss > 0:
		m.ProfitFactor = contracts.Ratio(grossProfit / grossLoss)
	case grossProfit > 0:
		m.ProfitFactor = contracts.Ratio(math.Inf(1))
	default:
		m.ProfitFactor = 0
	}

	return m
}

// confidenceScore rates the strategy's edge over the buy-and-hold run on a
// 0-100 scale: the product of the Sharpe and CAGR ratios, where parity
// maps to 50 and a doubled edge saturates at 100. A market run with
// non-positive Sharpe or CAGR yields no meaningful baseline and scores 0.
func confidenceScore(strategy, market contracts.PerformanceMetrics) float64 {
	if market.SharpeRatio <= 0 || market.CAGRPct <= 0 {
		return 0
	}

	raw := (strategy.SharpeRatio / market.SharpeRatio) * (strategy.CAGRPct / market.CAGRPct)
	normalized := raw / 2.0 * 100

	if normalized < 0 {
		return 0
	}
	if normalized > 100 {
		return 100
	}
	return math.Round(normalized*100) / 100
}
