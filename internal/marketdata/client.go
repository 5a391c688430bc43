package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/saikarthik/stockpilot/backend/internal/contracts"
	"github.com/saikarthik/stockpilot/backend/pkg/config"
	"github.com/saikarthik/stockpilot/backend/pkg/httputil"
	"github.com/saikarthik/stockpilot/backend/pkg/logger"
)

// Client fetches daily OHLCV bars from the chart API.
// Requests are paced by a shared rate limiter because the upstream
// throttles per IP.
type Client struct {
	baseURL      string
	quoteBaseURL string
	httpClient   *httputil.Client
	limiter      *rate.Limiter
	logger       *logger.Logger
}

// NewClient creates a market data client from config
func NewClient(cfg *config.Config, httpClient *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		baseURL:      cfg.MarketData.BaseURL,
		quoteBaseURL: cfg.MarketData.QuoteBaseURL,
		httpClient:   httpClient,
		limiter:      rate.NewLimiter(rate.Limit(cfg.MarketData.RatePerSec), cfg.MarketData.Burst),
		logger:       log.WithField("module", "marketdata"),
	}
}

// chartResponse mirrors the chart API payload
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchBars retrieves daily bars for a ticker and date range.
// Fails with FetchError on network, throttling or payload problems.
func (c *Client) FetchBars(ctx context.Context, ticker string, from, to time.Time) ([]contracts.Bar, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &contracts.FetchError{Ticker: ticker, Cause: err}
	}

	url := fmt.Sprintf(
		"%s/v8/finance/chart/%s?period1=%d&period2=%d&interval=1d&events=div%%2Csplit",
		c.baseURL, ticker, from.Unix(), to.Unix(),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &contracts.FetchError{Ticker: ticker, Cause: err}
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &contracts.FetchError{Ticker: ticker, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &contracts.FetchError{
			Ticker: ticker,
			Cause:  fmt.Errorf("unexpected status code: %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &contracts.FetchError{Ticker: ticker, Cause: err}
	}

	bars, err := c.parseChart(ticker, body)
	if err != nil {
		return nil, &contracts.FetchError{Ticker: ticker, Cause: err}
	}

	c.logger.WithFields(map[string]interface{}{
		"ticker": ticker,
		"count":  len(bars),
	}).Debug("Fetched bars")

	return bars, nil
}

// parseChart converts the chart payload into bars. Upstream nulls become
// NaN prices so the cleaner can drop them.
func (c *Client) parseChart(ticker string, body []byte) ([]contracts.Bar, error) {
	var payload chartResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode chart payload: %w", err)
	}

	if payload.Chart.Error != nil {
		return nil, fmt.Errorf("chart API error %s: %s", payload.Chart.Error.Code, payload.Chart.Error.Description)
	}
	if len(payload.Chart.Result) == 0 || len(payload.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("chart payload has no result for %s", ticker)
	}

	result := payload.Chart.Result[0]
	quote := result.Indicators.Quote[0]

	var adjClose []*float64
	if len(result.Indicators.AdjClose) > 0 {
		adjClose = result.Indicators.AdjClose[0].AdjClose
	}

	fetchedAt := time.Now().UTC()
	bars := make([]contracts.Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		bar := contracts.Bar{
			Ticker:    ticker,
			Date:      time.Unix(ts, 0).UTC().Truncate(24 * time.Hour),
			Open:      deref(quote.Open, i),
			High:      deref(quote.High, i),
			Low:       deref(quote.Low, i),
			Close:     deref(quote.Close, i),
			AdjClose:  deref(adjClose, i),
			FetchedAt: fetchedAt,
		}
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			bar.Volume = *quote.Volume[i]
		}
		if math.IsNaN(bar.AdjClose) {
			bar.AdjClose = bar.Close
		}
		bars = append(bars, bar)
	}

	return bars, nil
}

func deref(values []*float64, i int) float64 {
	if i >= len(values) || values[i] == nil {
		return math.NaN()
	}
	return *values[i]
}
