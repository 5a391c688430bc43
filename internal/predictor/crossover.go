package predictor

import (
	"context"
	"math"

	"github.com/saikarthik/stockpilot/backend/internal/contracts"
)

// Crossover is the rule-based fallback predictor used when the model
// service is down: BUY while the 20-day MA is above the 50-day MA, SELL
// while it is below. Confidence scales with the spread between the two
// averages, so a hairline cross maps to HOLD through the threshold wrapper.
type Crossover struct{}

// NewCrossover creates the fallback predictor
func NewCrossover() *Crossover {
	return &Crossover{}
}

// Predict derives a signal from the last row of the window
func (c *Crossover) Predict(_ context.Context, window []contracts.FeatureRow) (contracts.Signal, error) {
	if len(window) == 0 {
		return contracts.Signal{}, &contracts.InsufficientDataError{Have: 0}
	}
	last := window[len(window)-1]

	action := contracts.ActionSell
	if last.MA20 > last.MA50 {
		action = contracts.ActionBuy
	}

	// Spread of the short MA over the long MA, squashed into (0, 1)
	spread := math.Abs(last.MA20-last.MA50) / last.MA50
	confidence := math.Tanh(spread * 50)

	return contracts.Signal{
		Ticker:     last.Ticker,
		Date:       last.Date,
		Action:     action,
		Confidence: confidence,
	}, nil
}
