package backtest

import (
	"time"

	"github.com/saikarthik/stockpilot/backend/internal/contracts"
	"github.com/saikarthik/stockpilot/backend/pkg/logger"
)

// FeeModel charges a flat amount plus a proportional rate per fill
type FeeModel struct {
	Flat float64
	Rate float64
}

// Charge returns the fee for a fill of the given notional value
func (f FeeModel) Charge(value float64) float64 {
	return f.Flat + value*f.Rate
}

// Config holds one simulation's parameters
type Config struct {
	InitialCapital float64
	Fees           FeeModel
	SlippageRate   float64 // 0 = no slippage
	RiskFreeRate   float64 // annualized, for Sharpe
	TradingDays    int     // defaults to 252
}

// Simulator replays a price series against a signal sequence.
// Long/flat only, one position, full capital deployment. Entries and exits
// fill at the next bar's open; a signal on the final bar fills at that
// bar's close since no next bar exists.
type Simulator struct {
	logger *logger.Logger
}

// NewSimulator creates a simulator
func NewSimulator(log *logger.Logger) *Simulator {
	return &Simulator{logger: log.WithField("module", "backtest")}
}

// position tracks the single open long position
type position struct {
	shares    float64
	entryDate time.Time
	entryFill float64
	costBasis float64 // cash spent including fees
}

// Run simulates the signal-driven strategy and the buy-and-hold baseline
// over the same bars and fee model, then scores the strategy's edge.
func (s *Simulator) Run(ticker string, signals []contracts.Signal, bars []contracts.Bar, cfg Config) (*contracts.BacktestResult, error) {
	if len(bars) < 2 {
		return nil, &contracts.InsufficientDataError{Ticker: ticker, Have: len(bars)}
	}
	if cfg.TradingDays <= 0 {
		cfg.TradingDays = 252
	}

	actionByDate := make(map[string]contracts.Action, len(signals))
	for _, sig := range signals {
		// Signals for other tickers never drive this simulation
		if sig.Ticker != ticker {
			continue
		}
		actionByDate[sig.Date.Format("2006-01-02")] = sig.Action
	}

	cash := cfg.InitialCapital
	var pos *position
	var trades []contracts.Trade
	curve := make([]contracts.EquityPoint, 0, len(bars))

	for i, bar := range bars {
		action, ok := actionByDate[bar.Date.Format("2006-01-02")]
		if !ok {
			action = contracts.ActionHold
		}

		switch {
		case action == contracts.ActionBuy && pos == nil:
			fillDate, fillPrice := s.fill(bars, i, true, cfg.SlippageRate)
			pos = openLong(cash, fillDate, fillPrice, cfg.Fees)
			cash -= pos.costBasis

		case action == contracts.ActionSell && pos != nil:
			fillDate, fillPrice := s.fill(bars, i, false, cfg.SlippageRate)
			trade, proceeds := closeLong(pos, fillDate, fillPrice, cfg.Fees)
			trades = append(trades, trade)
			cash += proceeds
			pos = nil
		}
		// HOLD and repeated same-direction signals are no-ops

		// Mark to market at the bar close
		equity := cash
		if pos != nil {
			equity += pos.shares * bar.Close
		}
		curve = append(curve, contracts.EquityPoint{Date: bar.Date, Equity: equity})
	}

	// Terminal valuation: any open position is force-closed at the final
	// close for metric computation, without emitting a Trade
	finalEquity := curve[len(curve)-1].Equity

	strategy := computeMetrics(curve, cfg.RiskFreeRate, cfg.TradingDays)
	baseline := s.runBaseline(bars, cfg)
	trading := computeTradeMetrics(trades)

	result := &contracts.BacktestResult{
		Ticker:          ticker,
		StartDate:       bars[0].Date,
		EndDate:         bars[len(bars)-1].Date,
		InitialCapital:  cfg.InitialCapital,
		FinalEquity:     finalEquity,
		Trades:          trades,
		EquityCurve:     curve,
		Strategy:        strategy,
		Baseline:        baseline.metrics,
		Trading:         trading,
		ConfidenceScore: confidenceScore(strategy, baseline.metrics),
	}

	s.logger.WithFields(map[string]interface{}{
		"ticker":       ticker,
		"trades":       len(trades),
		"total_return": strategy.TotalReturnPct,
		"sharpe":       strategy.SharpeRatio,
	}).Info("Backtest completed")

	return result, nil
}

// fill resolves the execution price for a signal at bar index i.
// Next bar's open when one exists, otherwise the signal bar's close.
// Slippage moves the price against the order.
func (s *Simulator) fill(bars []contracts.Bar, i int, buying bool, slippage float64) (time.Time, float64) {
	var date time.Time
	var price float64
	if i+1 < len(bars) {
		date, price = bars[i+1].Date, bars[i+1].Open
	} else {
		date, price = bars[i].Date, bars[i].Close
	}

	if buying {
		price *= 1 + slippage
	} else {
		price *= 1 - slippage
	}
	return date, price
}

// openLong deploys all available cash, net of fees, at the fill price
func openLong(cash float64, date time.Time, price float64, fees FeeModel) *position {
	// Solve shares so value + fee == cash for the proportional part
	shares := (cash - fees.Flat) / (price * (1 + fees.Rate))
	value := shares * price
	return &position{
		shares:    shares,
		entryDate: date,
		entryFill: price,
		costBasis: value + fees.Charge(value),
	}
}

// closeLong liquidates the position at the fill price and derives the Trade
func closeLong(pos *position, date time.Time, price float64, fees FeeModel) (contracts.Trade, float64) {
	value := pos.shares * price
	proceeds := value - fees.Charge(value)
	pnl := proceeds - pos.costBasis

	return contracts.Trade{
		EntryDate:  pos.entryDate,
		ExitDate:   date,
		EntryPrice: pos.entryFill,
		ExitPrice:  price,
		Shares:     pos.shares,
		PnL:        pnl,
		IsWin:      pnl > 0,
	}, proceeds
}
