package contracts

import (
	"encoding/json"
	"math"
	"time"
)

// Trade is a completed (or force-closed) round trip derived by the simulator
type Trade struct {
	EntryDate  time.Time `json:"entry_date"`
	ExitDate   time.Time `json:"exit_date"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	Shares     float64   `json:"shares"`
	PnL        float64   `json:"pnl"`
	IsWin      bool      `json:"is_win"`
}

// EquityPoint is one bar of the portfolio value series
type EquityPoint struct {
	Date   time.Time `json:"date"`
	Equity float64   `json:"equity"`
}

// PerformanceMetrics are portfolio-level metrics over an equity curve
type PerformanceMetrics struct {
	TotalReturnPct float64 `json:"total_return_pct"`
	CAGRPct        float64 `json:"cagr_pct"`
	VolatilityPct  float64 `json:"volatility_pct"`
	SharpeRatio    float64 `json:"sharpe_ratio"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
}

// TradeMetrics are trade-level metrics of the signal-driven strategy
type TradeMetrics struct {
	WinRate             float64 `json:"win_rate"`
	ProfitFactor        Ratio   `json:"profit_factor"`
	TotalTrades         int     `json:"total_trades"`
	AvgWinningTrade     float64 `json:"avg_winning_trade"`
	AvgLosingTrade      float64 `json:"avg_losing_trade"`
	LargestWinningTrade float64 `json:"largest_winning_trade"`
	LargestLosingTrade  float64 `json:"largest_losing_trade"`
}

// BacktestResult aggregates one simulation run for one ticker.
// Immutable once computed.
type BacktestResult struct {
	Ticker    string    `json:"ticker"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`

	InitialCapital float64 `json:"initial_capital"`
	FinalEquity    float64 `json:"final_equity"`

	Trades      []Trade       `json:"trades"`
	EquityCurve []EquityPoint `json:"equity_curve"`

	Strategy PerformanceMetrics `json:"strategy_metrics"`
	Baseline PerformanceMetrics `json:"baseline_metrics"` // buy-and-hold, same fee model
	Trading  TradeMetrics       `json:"trading_metrics"`

	// Relative edge of the strategy vs the buy-and-hold market run, 0-100
	ConfidenceScore float64 `json:"confidence_score"`
}

// Report is the serialized form consumed by the dashboard and alert layers
type Report struct {
	ConfidenceScore float64            `json:"confidence_score"`
	MLMetrics       TradeMetrics       `json:"ml_metrics"`
	MarketMetrics   PerformanceMetrics `json:"market_metrics"`
	EquityCurve     []float64          `json:"equity_curve"`
}

// ToReport flattens the result into the downstream report shape
func (r *BacktestResult) ToReport() Report {
	curve := make([]float64, len(r.EquityCurve))
	for i, p := range r.EquityCurve {
		curve[i] = p.Equity
	}

	return Report{
		ConfidenceScore: r.ConfidenceScore,
		MLMetrics:       r.Trading,
		MarketMetrics:   r.Baseline,
		EquityCurve:     curve,
	}
}

// Ratio is a float64 that survives JSON encoding when infinite.
// Profit factor is reported as infinity when gross loss is zero, and
// encoding/json refuses bare IEEE infinities.
type Ratio float64

// MarshalJSON encodes +Inf/-Inf as quoted sentinels
func (r Ratio) MarshalJSON() ([]byte, error) {
	f := float64(r)
	if math.IsInf(f, 1) {
		return []byte(`"Infinity"`), nil
	}
	if math.IsInf(f, -1) {
		return []byte(`"-Infinity"`), nil
	}
	return json.Marshal(f)
}

// UnmarshalJSON accepts both numbers and the quoted sentinels
func (r *Ratio) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"Infinity"`:
		*r = Ratio(math.Inf(1))
		return nil
	case `"-Infinity"`:
		*r = Ratio(math.Inf(-1))
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*r = Ratio(f)
	return nil
}

// IsInf reports whether the ratio is positive infinity
func (r Ratio) IsInf() bool {
	return math.IsInf(float64(r), 1)
}
