package marketdata

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/saikarthik/stockpilot/backend/internal/contracts"
)

// Profile is the scraped identity of a ticker, used to validate symbols
// before they enter the pipeline ticker list.
type Profile struct {
	Ticker   string `json:"ticker"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
	Currency string `json:"currency"`
}

// FetchProfile scrapes the quote page for a ticker's display name and
// exchange. An unknown symbol renders no title block, which is reported
// as a FetchError so `tickers add` can reject it.
func (c *Client) FetchProfile(ctx context.Context, ticker string) (*Profile, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &contracts.FetchError{Ticker: ticker, Cause: err}
	}

	url := fmt.Sprintf("%s/quote/%s/", c.quoteBaseURL, ticker)

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

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, &contracts.FetchError{Ticker: ticker, Cause: fmt.Errorf("parse quote page: %w", err)}
	}

	profile, err := parseProfile(ticker, doc)
	if err != nil {
		return nil, &contracts.FetchError{Ticker: ticker, Cause: err}
	}

	c.logger.WithFields(map[string]interface{}{
		"ticker": ticker,
		"name":   profile.Name,
	}).Debug("Fetched profile")

	return profile, nil
}

// parseProfile extracts name and exchange from the quote page document
func parseProfile(ticker string, doc *goquery.Document) (*Profile, error) {
	profile := &Profile{Ticker: ticker}

	// Title block: "Apple Inc. (AAPL)"
	title := strings.TrimSpace(doc.Find("h1").First().Text())
	if title == "" {
		return nil, fmt.Errorf("no quote page for symbol %s", ticker)
	}
	if idx := strings.LastIndex(title, "("); idx > 0 {
		profile.Name = strings.TrimSpace(title[:idx])
	} else {
		profile.Name = title
	}

	// Exchange line: "NasdaqGS - Nasdaq Real Time Price. Currency in USD"
	doc.Find("span").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if !strings.Contains(text, "Currency in") {
			return true
		}
		if idx := strings.Index(text, " - "); idx > 0 {
			profile.Exchange = strings.TrimSpace(text[:idx])
		}
		if idx := strings.LastIndex(text, "Currency in "); idx >= 0 {
			profile.Currency = strings.TrimSpace(strings.TrimSuffix(text[idx+len("Currency in "):], "."))
		}
		return false
	})

	return profile, nil
}
