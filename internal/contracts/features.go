package contracts

import "time"

// FeatureRow is a Bar extended with technical indicator columns.
// Rows are only emitted once every indicator is defined, so none of the
// fields are nullable in the assembled dataset.
type FeatureRow struct {
	Ticker   string    `json:"ticker"`
	TickerID int       `json:"ticker_id"`
	Date     time.Time `json:"date"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	AdjClose float64   `json:"adj_close"`
	Volume   int64     `json:"volume"`

	DailyReturn    float64 `json:"daily_return"`
	VolumeChange   float64 `json:"volume_change"`
	MA20           float64 `json:"ma20"`
	MA50           float64 `json:"ma50"`
	CloseMA20Ratio float64 `json:"close_ma20_ratio"`
	Volatility     float64 `json:"volatility"` // 20-day rolling stdev of daily return
	RSI            float64 `json:"rsi"`        // 14-period, Wilder smoothing
	EMA12          float64 `json:"ema12"`
	EMA26          float64 `json:"ema26"`
	MACD           float64 `json:"macd"`
	MACDSignal     float64 `json:"macd_signal"`
}

// WarmupDays is the number of prior trading days a ticker needs before its
// first FeatureRow is defined: the 50-day MA is the longest-window indicator,
// plus one leading bar for the first daily return.
const WarmupDays = 50
