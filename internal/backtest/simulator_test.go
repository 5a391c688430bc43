package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saikarthik/stockpilot/backend/internal/contracts"
	"github.com/saikarthik/stockpilot/backend/pkg/logger"
)

func day(d int) time.Time {
	return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
}

// closeBars builds a bar series where each bar opens at the previous close,
// so next-bar-open fills land on the prior day's closing price
func closeBars(ticker string, closes []float64) []contracts.Bar {
	bars := make([]contracts.Bar, len(closes))
	for i, c := range closes {
		open := c
		if i > 0 {
			open = closes[i-1]
		}
		hi, lo := open, open
		if c > hi {
			hi = c
		}
		if c < lo {
			lo = c
		}
		bars[i] = contracts.Bar{
			Ticker: ticker, Date: day(i + 1),
			Open: open, High: hi, Low: lo, Close: c, AdjClose: c,
			Volume: 1000,
		}
	}
	return bars
}

func signal(ticker string, d int, action contracts.Action) contracts.Signal {
	return contracts.Signal{Ticker: ticker, Date: day(d), Action: action, Confidence: 0.9}
}

func TestSimulator_Run_RoundTrip(t *testing.T) {
	sim := NewSimulator(logger.NewNop())

	bars := closeBars("AAPL", []float64{100, 102, 101, 105, 103})
	signals := []contracts.Signal{
		signal("AAPL", 2, contracts.ActionBuy),  // close 102, fills next open = 102
		signal("AAPL", 5, contracts.ActionSell), // final bar, fills at close = 103
	}

	result, err := sim.Run("AAPL", signals, bars, Config{InitialCapital: 1_000_000})
	require.NoError(t, err)

	require.Len(t, result.Trades, 1)
	trade := result.Trades[0]
	assert.InDelta(t, 102.0, trade.EntryPrice, 1e-9)
	assert.InDelta(t, 103.0, trade.ExitPrice, 1e-9)
	assert.Greater(t, trade.PnL, 0.0)
	assert.True(t, trade.IsWin)

	assert.Equal(t, 1.0, result.Trading.WinRate)
	assert.True(t, result.Trading.ProfitFactor.IsInf(), "no losing trades")
	assert.InDelta(t, 1_000_000*103.0/102.0, result.FinalEquity, 1e-6)
	assert.Len(t, result.EquityCurve, len(bars))
}

func TestSimulator_Run_ForceCloseEmitsNoTrade(t *testing.T) {
	sim := NewSimulator(logger.NewNop())

	bars := closeBars("AAPL", []float64{100, 102, 101, 105, 103})
	signals := []contracts.Signal{
		signal("AAPL", 1, contracts.ActionBuy), // fills at next open = 100
	}

	result, err := sim.Run("AAPL", signals, bars, Config{InitialCapital: 1_000_000})
	require.NoError(t, err)

	// Position stays open to the end: no trade, but the unrealized gain is
	// visible in the final equity and return
	assert.Empty(t, result.Trades)
	assert.Equal(t, 0, result.Trading.TotalTrades)
	assert.InDelta(t, 1_030_000, result.FinalEquity, 1e-6)
	assert.Greater(t, result.Strategy.TotalReturnPct, 0.0)
}

func TestSimulator_Run_IgnoresForeignTickerSignals(t *testing.T) {
	sim := NewSimulator(logger.NewNop())

	bars := closeBars("AAPL", []float64{100, 102, 101, 105, 103})
	signals := []contracts.Signal{
		signal("MSFT", 2, contracts.ActionBuy), // different ticker, never fills
		signal("MSFT", 4, contracts.ActionSell),
	}

	result, err := sim.Run("AAPL", signals, bars, Config{InitialCapital: 1_000_000})
	require.NoError(t, err)

	assert.Empty(t, result.Trades)
	assert.Equal(t, 1_000_000.0, result.FinalEquity, "capital untouched")
	assert.Equal(t, 0.0, result.Strategy.TotalReturnPct)
}

func TestSimulator_Run_RepeatedSignalsAreNoOps(t *testing.T) {
	sim := NewSimulator(logger.NewNop())

	bars := closeBars("AAPL", []float64{100, 101, 102, 103, 104, 105})
	signals := []contracts.Signal{
		signal("AAPL", 1, contracts.ActionSell), // flat, nothing to sell
		signal("AAPL", 2, contracts.ActionBuy),
		signal("AAPL", 3, contracts.ActionBuy), // already long
		signal("AAPL", 5, contracts.ActionSell),
	}

	result, err := sim.Run("AAPL", signals, bars, Config{InitialCapital: 1_000_000})
	require.NoError(t, err)

	require.Len(t, result.Trades, 1)
	assert.InDelta(t, 101.0, result.Trades[0].EntryPrice, 1e-9)
	assert.InDelta(t, 104.0, result.Trades[0].ExitPrice, 1e-9)
}

func TestSimulator_Run_FeesReduceProceeds(t *testing.T) {
	sim := NewSimulator(logger.NewNop())

	bars := closeBars("AAPL", []float64{100, 100, 100, 100})
	signals := []contracts.Signal{
		signal("AAPL", 1, contracts.ActionBuy),
		signal("AAPL", 4, contracts.ActionSell),
	}

	result, err := sim.Run("AAPL", signals, bars, Config{
		InitialCapital: 1_000_000,
		Fees:           FeeModel{Rate: 0.002},
	})
	require.NoError(t, err)

	// Flat prices: the round trip loses exactly the two fees
	require.Len(t, result.Trades, 1)
	assert.Less(t, result.Trades[0].PnL, 0.0)
	assert.False(t, result.Trades[0].IsWin)
	assert.Less(t, result.FinalEquity, 1_000_000.0)
	assert.Equal(t, 0.0, result.Trading.WinRate)
}

func TestSimulator_Run_SlippageMovesAgainstOrder(t *testing.T) {
	sim := NewSimulator(logger.NewNop())

	bars := closeBars("AAPL", []float64{100, 100, 100})
	signals := []contracts.Signal{
		signal("AAPL", 1, contracts.ActionBuy),
		signal("AAPL", 3, contracts.ActionSell),
	}

	result, err := sim.Run("AAPL", signals, bars, Config{
		InitialCapital: 1_000_000,
		SlippageRate:   0.01,
	})
	require.NoError(t, err)

	require.Len(t, result.Trades, 1)
	assert.InDelta(t, 101.0, result.Trades[0].EntryPrice, 1e-9, "buys fill above the quote")
	assert.InDelta(t, 99.0, result.Trades[0].ExitPrice, 1e-9, "sells fill below the quote")
}

func TestSimulator_Run_TooFewBars(t *testing.T) {
	sim := NewSimulator(logger.NewNop())

	_, err := sim.Run("AAPL", nil, closeBars("AAPL", []float64{100}), Config{InitialCapital: 1_000_000})
	require.Error(t, err)

	var idErr *contracts.InsufficientDataError
	require.ErrorAs(t, err, &idErr)
	assert.Equal(t, "AAPL", idErr.Ticker)
	assert.Equal(t, 1, idErr.Have)
}

func TestSimulator_Run_BaselineMatchesBuyAndHold(t *testing.T) {
	sim := NewSimulator(logger.NewNop())

	bars := closeBars("AAPL", []float64{100, 105, 110, 120})
	result, err := sim.Run("AAPL", nil, bars, Config{InitialCapital: 1_000_000})
	require.NoError(t, err)

	// No signals: strategy sits in cash while the market rallies
	assert.InDelta(t, 0.0, result.Strategy.TotalReturnPct, 1e-9)
	assert.InDelta(t, 20.0, result.Baseline.TotalReturnPct, 1e-6, "buy at the first open, mark at the last close")
	assert.Equal(t, 0.0, result.ConfidenceScore, "no edge over the market")
}
