package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/saikarthik/stockpilot/backend/internal/backtest"
	"github.com/saikarthik/stockpilot/backend/internal/contracts"
	"github.com/saikarthik/stockpilot/backend/internal/predictor"
	"github.com/saikarthik/stockpilot/backend/pkg/config"
	"github.com/saikarthik/stockpilot/backend/pkg/logger"
)

// BacktestHandler runs signal-driven simulations on demand
type BacktestHandler struct {
	features   contracts.FeatureRepository
	bars       contracts.BarRepository
	pred       contracts.Predictor
	simulator  *backtest.Simulator
	defaults   config.BacktestConfig
	windowSize int
	logger     *logger.Logger
}

// NewBacktestHandler creates a backtest handler
func NewBacktestHandler(
	features contracts.FeatureRepository,
	bars contracts.BarRepository,
	pred contracts.Predictor,
	simulator *backtest.Simulator,
	defaults config.BacktestConfig,
	windowSize int,
	log *logger.Logger,
) *BacktestHandler {
	return &BacktestHandler{
		features:   features,
		bars:       bars,
		pred:       pred,
		simulator:  simulator,
		defaults:   defaults,
		windowSize: windowSize,
		logger:     log,
	}
}

type backtestRequest struct {
	Ticker string `json:"ticker"`
	From   string `json:"from,omitempty"` // YYYY-MM-DD, default: one year back
	To     string `json:"to,omitempty"`

	// Optional overrides of the configured defaults
	InitialCapital *float64 `json:"initial_capital,omitempty"`
	FeeRate        *float64 `json:"fee_rate,omitempty"`
	SlippageRate   *float64 `json:"slippage_rate,omitempty"`

	// Externally supplied signals; when absent the predictor generates them
	Signals []contracts.Signal `json:"signals,omitempty"`
}

// Run executes a backtest and returns the serialized report.
// POST /api/backtest/run {"ticker": "AAPL"}
func (h *BacktestHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req backtestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Ticker) == "" {
		writeError(w, http.StatusBadRequest, "ticker is required")
		return
	}
	ticker := strings.ToUpper(strings.TrimSpace(req.Ticker))

	now := time.Now()
	from, to := now.AddDate(-1, 0, 0), now
	if req.From != "" {
		parsed, err := time.Parse("2006-01-02", req.From)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from date, expected YYYY-MM-DD")
			return
		}
		from = parsed
	}
	if req.To != "" {
		parsed, err := time.Parse("2006-01-02", req.To)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid to date, expected YYYY-MM-DD")
			return
		}
		to = parsed
	}

	bars, err := h.bars.GetByTickerAndDateRange(r.Context(), ticker, from, to)
	if err != nil {
		h.logger.WithError(err).WithField("ticker", ticker).Error("Failed to load bars")
		writeError(w, http.StatusInternalServerError, "failed to load price data")
		return
	}

	signals := req.Signals
	if len(signals) == 0 {
		signals, err = h.generateSignals(r, ticker, from, to)
		if err != nil {
			var unavailable *contracts.ModelUnavailableError
			if errors.As(err, &unavailable) {
				writeError(w, http.StatusServiceUnavailable, "model unavailable and no signals supplied")
				return
			}
			h.logger.WithError(err).WithField("ticker", ticker).Error("Signal generation failed")
			writeError(w, http.StatusInternalServerError, "signal generation failed")
			return
		}
	}

	cfg := backtest.Config{
		InitialCapital: h.defaults.InitialCapital,
		Fees:           backtest.FeeModel{Rate: h.defaults.FeeRate},
		SlippageRate:   h.defaults.SlippageRate,
		RiskFreeRate:   h.defaults.RiskFreeRate,
	}
	if req.InitialCapital != nil {
		cfg.InitialCapital = *req.InitialCapital
	}
	if req.FeeRate != nil {
		cfg.Fees.Rate = *req.FeeRate
	}
	if req.SlippageRate != nil {
		cfg.SlippageRate = *req.SlippageRate
	}

	result, err := h.simulator.Run(ticker, signals, bars, cfg)
	if err != nil {
		var insufficient *contracts.InsufficientDataError
		if errors.As(err, &insufficient) {
			writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("not enough bars for %s", ticker))
			return
		}
		h.logger.WithError(err).WithField("ticker", ticker).Error("Backtest failed")
		writeError(w, http.StatusInternalServerError, "backtest failed")
		return
	}

	writeJSON(w, http.StatusOK, result.ToReport())
}

// generateSignals derives the signal sequence from the processed dataset
func (h *BacktestHandler) generateSignals(r *http.Request, ticker string, from, to time.Time) ([]contracts.Signal, error) {
	rows, err := h.features.GetProcessedFrame(r.Context(), ticker, from, to)
	if err != nil {
		return nil, fmt.Errorf("load frame: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no processed data for %s", ticker)
	}

	return predictor.PredictSeries(r.Context(), h.pred, rows, h.windowSize)
}
