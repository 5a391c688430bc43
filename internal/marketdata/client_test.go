package marketdata

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saikarthik/stockpilot/backend/internal/contracts"
	"github.com/saikarthik/stockpilot/backend/pkg/config"
	"github.com/saikarthik/stockpilot/backend/pkg/httputil"
	"github.com/saikarthik/stockpilot/backend/pkg/logger"
)

const chartFixture = `{
	"chart": {
		"result": [{
			"timestamp": [1704153600, 1704240000, 1704326400],
			"indicators": {
				"quote": [{
					"open":   [184.3, 185.1, null],
					"high":   [186.0, 186.4, null],
					"low":    [183.9, 184.2, null],
					"close":  [185.6, 184.8, null],
					"volume": [52000000, 48000000, null]
				}],
				"adjclose": [{
					"adjclose": [185.1, 184.8, null]
				}]
			}
		}],
		"error": null
	}
}`

func testClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	cfg := &config.Config{}
	cfg.MarketData.BaseURL = baseURL
	cfg.MarketData.QuoteBaseURL = baseURL
	cfg.MarketData.RatePerSec = 1000
	cfg.MarketData.Burst = 10
	return NewClient(cfg, httputil.New(logger.NewNop()).DisableRetry(), logger.NewNop())
}

func TestClient_FetchBars(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/v8/finance/chart/AAPL")
		assert.Contains(t, r.URL.RawQuery, "interval=1d")
		w.Write([]byte(chartFixture))
	}))
	defer server.Close()

	c := testClient(t, server.URL)
	bars, err := c.FetchBars(context.Background(), "AAPL", day(1), day(5))
	require.NoError(t, err)
	require.Len(t, bars, 3)

	first := bars[0]
	assert.Equal(t, "AAPL", first.Ticker)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), first.Date)
	assert.Equal(t, 184.3, first.Open)
	assert.Equal(t, 185.6, first.Close)
	assert.Equal(t, 185.1, first.AdjClose)
	assert.Equal(t, int64(52000000), first.Volume)
	assert.False(t, first.FetchedAt.IsZero())

	// Upstream nulls surface as NaN so the cleaner drops the row
	assert.True(t, math.IsNaN(bars[2].Close))
	assert.Equal(t, int64(0), bars[2].Volume)
}

func TestClient_FetchBars_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := testClient(t, server.URL)
	_, err := c.FetchBars(context.Background(), "NOPE", day(1), day(5))
	require.Error(t, err)

	var fetchErr *contracts.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "NOPE", fetchErr.Ticker)
}

func TestClient_parseChart_APIError(t *testing.T) {
	c := testClient(t, "http://unused")
	body := `{"chart": {"result": null, "error": {"code": "Not Found", "description": "No data found"}}}`

	_, err := c.parseChart("NOPE", []byte(body))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Not Found")
}

func TestClient_parseChart_MissingAdjClose(t *testing.T) {
	c := testClient(t, "http://unused")
	body := `{
		"chart": {
			"result": [{
				"timestamp": [1704153600],
				"indicators": {
					"quote": [{"open": [10.0], "high": [11.0], "low": [9.0], "close": [10.5], "volume": [100]}]
				}
			}],
			"error": null
		}
	}`

	bars, err := c.parseChart("AAPL", []byte(body))
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, 10.5, bars[0].AdjClose, "adj_close falls back to close")
}

func TestParseProfile(t *testing.T) {
	html := `<html><body>
		<h1>Apple Inc. (AAPL)</h1>
		<span>NasdaqGS - Nasdaq Real Time Price. Currency in USD</span>
	</body></html>`

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	profile, err := parseProfile("AAPL", doc)
	require.NoError(t, err)

	assert.Equal(t, "Apple Inc.", profile.Name)
	assert.Equal(t, "NasdaqGS", profile.Exchange)
	assert.Equal(t, "USD", profile.Currency)
}

func TestParseProfile_UnknownSymbol(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<html><body></body></html>"))
	require.NoError(t, err)

	_, err = parseProfile("NOPE", doc)
	require.Error(t, err)
}

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}
