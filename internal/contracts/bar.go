package contracts

import (
	"fmt"
	"time"
)

// Bar represents one trading day of OHLCV data for one ticker.
// Unique per (ticker, date).
type Bar struct {
	Ticker    string    `json:"ticker"`
	Date      time.Time `json:"date"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	AdjClose  float64   `json:"adj_close"`
	Volume    int64     `json:"volume"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Validate checks the OHLC ordering invariant
func (b *Bar) Validate() error {
	if b.Ticker == "" {
		return fmt.Errorf("bar has empty ticker")
	}
	if b.Volume < 0 {
		return fmt.Errorf("bar %s %s: negative volume %d", b.Ticker, b.Date.Format("2006-01-02"), b.Volume)
	}

	hi := b.Open
	if b.Close > hi {
		hi = b.Close
	}
	lo := b.Open
	if b.Close < lo {
		lo = b.Close
	}
	if b.High < hi || b.Low > lo {
		return fmt.Errorf("bar %s %s: high/low outside open/close range", b.Ticker, b.Date.Format("2006-01-02"))
	}

	return nil
}

// SameKey reports whether two bars share the (ticker, date) primary key
func (b *Bar) SameKey(other *Bar) bool {
	return b.Ticker == other.Ticker && b.Date.Equal(other.Date)
}
