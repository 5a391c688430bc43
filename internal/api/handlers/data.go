package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/saikarthik/stockpilot/backend/internal/contracts"
	"github.com/saikarthik/stockpilot/backend/pkg/logger"
	"github.com/saikarthik/stockpilot/backend/pkg/redis"
)

// DataHandler serves the processed feature dataset
type DataHandler struct {
	features contracts.FeatureRepository
	cache    *redis.Cache
	logger   *logger.Logger
}

// NewDataHandler creates a data handler
func NewDataHandler(features contracts.FeatureRepository, cache *redis.Cache, log *logger.Logger) *DataHandler {
	return &DataHandler{features: features, cache: cache, logger: log}
}

type frameResponse struct {
	Ticker string                 `json:"ticker,omitempty"`
	Count  int                    `json:"count"`
	Rows   []contracts.FeatureRow `json:"rows"`
}

// GetTicker returns the processed frame for one ticker.
// GET /api/data/{ticker}?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *DataHandler) GetTicker(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(mux.Vars(r)["ticker"])

	from, to, err := parseDateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	cacheKey := fmt.Sprintf("frame:%s:%s:%s", ticker, from.Format("2006-01-02"), to.Format("2006-01-02"))
	var cached frameResponse
	if found, _ := h.cache.Get(r.Context(), cacheKey, &cached); found {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	rows, err := h.features.GetProcessedFrame(r.Context(), ticker, from, to)
	if err != nil {
		h.logger.WithError(err).WithField("ticker", ticker).Error("Failed to load frame")
		writeError(w, http.StatusInternalServerError, "failed to load processed data")
		return
	}

	resp := frameResponse{Ticker: ticker, Count: len(rows), Rows: rows}
	_ = h.cache.Set(r.Context(), cacheKey, resp, frameCacheTTL)

	writeJSON(w, http.StatusOK, resp)
}

// GetAllTickers returns frames for a comma-separated ticker list.
// GET /api/data?tickers=AAPL,MSFT&from=...&to=...
func (h *DataHandler) GetAllTickers(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("tickers")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "tickers query parameter is required")
		return
	}

	var tickers []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.ToUpper(strings.TrimSpace(t)); t != "" {
			tickers = append(tickers, t)
		}
	}

	from, to, err := parseDateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	rows, err := h.features.GetAllTickersFrame(r.Context(), tickers, from, to)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load frames")
		writeError(w, http.StatusInternalServerError, "failed to load processed data")
		return
	}

	writeJSON(w, http.StatusOK, frameResponse{Count: len(rows), Rows: rows})
}
