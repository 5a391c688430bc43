package contracts

import "time"

// Action is a discrete trading decision
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionHold Action = "HOLD"
	ActionSell Action = "SELL"
)

// Valid reports whether the action is one of BUY/HOLD/SELL
func (a Action) Valid() bool {
	return a == ActionBuy || a == ActionHold || a == ActionSell
}

// Signal is one prediction for one ticker on one date.
// Produced once per FeatureRow and never mutated afterward.
type Signal struct {
	Ticker     string    `json:"ticker"`
	Date       time.Time `json:"date"`
	Action     Action    `json:"action"`
	Confidence float64   `json:"confidence"` // [0, 1]
}

// Thresholded returns a copy with the action collapsed to HOLD when the
// confidence is below the given threshold.
func (s Signal) Thresholded(threshold float64) Signal {
	if s.Confidence < threshold {
		s.Action = ActionHold
	}
	return s
}
