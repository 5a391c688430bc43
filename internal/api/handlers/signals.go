package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/saikarthik/stockpilot/backend/internal/contracts"
	"github.com/saikarthik/stockpilot/backend/internal/predictor"
	"github.com/saikarthik/stockpilot/backend/pkg/logger"
	"github.com/saikarthik/stockpilot/backend/pkg/redis"
)

// SignalHandler serves live and historical model signals
type SignalHandler struct {
	features   contracts.FeatureRepository
	pred       contracts.Predictor
	cache      *redis.Cache
	windowSize int
	logger     *logger.Logger
}

// NewSignalHandler creates a signal handler
func NewSignalHandler(
	features contracts.FeatureRepository,
	pred contracts.Predictor,
	cache *redis.Cache,
	windowSize int,
	log *logger.Logger,
) *SignalHandler {
	return &SignalHandler{
		features:   features,
		pred:       pred,
		cache:      cache,
		windowSize: windowSize,
		logger:     log,
	}
}

type signalRequest struct {
	Ticker string `json:"ticker"`
}

type liveSignalResponse struct {
	Signal       contracts.Signal `json:"signal"`
	CurrentPrice float64          `json:"current_price"`
}

type historicalSignalResponse struct {
	Ticker  string             `json:"ticker"`
	Count   int                `json:"count"`
	Signals []contracts.Signal `json:"signals"`
}

// Live returns the latest signal for a ticker.
// POST /api/signal/live {"ticker": "AAPL"}
func (s *SignalHandler) Live(w http.ResponseWriter, r *http.Request) {
	ticker, ok := s.decodeTicker(w, r)
	if !ok {
		return
	}

	cacheKey := "signal:live:" + ticker
	var cached liveSignalResponse
	if found, _ := s.cache.Get(r.Context(), cacheKey, &cached); found {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	now := time.Now()
	rows, err := s.features.GetProcessedFrame(r.Context(), ticker, now.AddDate(0, -6, 0), now)
	if err != nil {
		s.logger.WithError(err).WithField("ticker", ticker).Error("Failed to load frame")
		writeError(w, http.StatusInternalServerError, "failed to load processed data")
		return
	}
	if len(rows) == 0 {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no processed data for %s", ticker))
		return
	}

	window := rows
	if len(window) > s.windowSize {
		window = window[len(window)-s.windowSize:]
	}

	signal, err := s.pred.Predict(r.Context(), window)
	if err != nil {
		s.writePredictError(w, ticker, err)
		return
	}

	resp := liveSignalResponse{Signal: signal, CurrentPrice: rows[len(rows)-1].Close}
	_ = s.cache.Set(r.Context(), cacheKey, resp, frameCacheTTL)

	writeJSON(w, http.StatusOK, resp)
}

// Historical returns one signal per feature row over the trailing year.
// POST /api/signal/historical {"ticker": "AAPL"}
func (s *SignalHandler) Historical(w http.ResponseWriter, r *http.Request) {
	ticker, ok := s.decodeTicker(w, r)
	if !ok {
		return
	}

	now := time.Now()
	rows, err := s.features.GetProcessedFrame(r.Context(), ticker, now.AddDate(-1, 0, 0), now)
	if err != nil {
		s.logger.WithError(err).WithField("ticker", ticker).Error("Failed to load frame")
		writeError(w, http.StatusInternalServerError, "failed to load processed data")
		return
	}
	if len(rows) == 0 {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no processed data for %s", ticker))
		return
	}

	signals, err := predictor.PredictSeries(r.Context(), s.pred, rows, s.windowSize)
	if err != nil {
		s.writePredictError(w, ticker, err)
		return
	}

	writeJSON(w, http.StatusOK, historicalSignalResponse{
		Ticker:  ticker,
		Count:   len(signals),
		Signals: signals,
	})
}

func (s *SignalHandler) decodeTicker(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req signalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Ticker) == "" {
		writeError(w, http.StatusBadRequest, "ticker is required")
		return "", false
	}
	return strings.ToUpper(strings.TrimSpace(req.Ticker)), true
}

func (s *SignalHandler) writePredictError(w http.ResponseWriter, ticker string, err error) {
	var unavailable *contracts.ModelUnavailableError
	if errors.As(err, &unavailable) {
		s.logger.WithError(err).WithField("ticker", ticker).Error("Model unavailable")
		writeError(w, http.StatusServiceUnavailable, "model unavailable")
		return
	}

	s.logger.WithError(err).WithField("ticker", ticker).Error("Prediction failed")
	writeError(w, http.StatusInternalServerError, "prediction failed")
}
