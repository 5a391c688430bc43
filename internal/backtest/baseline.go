package backtest

import (
	"github.com/saikarthik/stockpilot/backend/internal/contracts"
)

// baselineRun is the buy-and-hold comparison series
type baselineRun struct {
	curve   []contracts.EquityPoint
	metrics contracts.PerformanceMetrics
}

// runBaseline simulates always-long from the first bar to the last with the
// same fee model: buy at the first bar's open, mark to market at each
// close. This is the "market" side of the strategy-vs-market comparison.
func (s *Simulator) runBaseline(bars []contracts.Bar, cfg Config) baselineRun {
	entryPrice := bars[0].Open * (1 + cfg.SlippageRate)
	pos := openLong(cfg.InitialCapital, bars[0].Date, entryPrice, cfg.Fees)
	cash := cfg.InitialCapital - pos.costBasis

	curve := make([]contracts.EquityPoint, 0, len(bars))
	for _, bar := range bars {
		curve = append(curve, contracts.EquityPoint{
			Date:   bar.Date,
			Equity: cash + pos.shares*bar.Close,
		})
	}

	return baselineRun{
		curve:   curve,
		metrics: computeMetrics(curve, cfg.RiskFreeRate, cfg.TradingDays),
	}
}
