package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// YahooQuote fetches market cap and display name from the Yahoo Finance
// quote API. It backs the universe refresher's category assignment.
type YahooQuote struct {
	Client  *http.Client
	BaseURL string
}

// NewYahooQuote creates a quote client with an optional HTTP proxy.
func NewYahooQuote(proxyURL string) *YahooQuote {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &YahooQuote{
		Client: &http.Client{
			Timeout:   15 * time.Second,
			Transport: transport,
		},
		BaseURL: "https://query1.finance.yahoo.com",
	}
}

type quoteResponse struct {
	QuoteResponse struct {
		Result []struct {
			Symbol    string  `json:"symbol"`
			MarketCap float64 `json:"marketCap"`
			ShortName string  `json:"shortName"`
		} `json:"result"`
		Error *struct {
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteResponse"`
}

// MarketCap returns the market cap in dollars and the display name for one
// symbol. A symbol unknown upstream yields an error.
func (q *YahooQuote) MarketCap(ctx context.Context, symbol string) (float64, string, error) {
	u := fmt.Sprintf("%s/v7/finance/quote?symbols=%s", q.BaseURL, url.QueryEscape(symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := q.Client.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("yahoo quote: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, "", fmt.Errorf("yahoo quote read body: %w", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return 0, "", fmt.Errorf("yahoo quote: rate limit exceeded (status 429)")
	}
	if resp.StatusCode != http.StatusOK {
		return 0, "", fmt.Errorf("yahoo quote: status %d", resp.StatusCode)
	}

	var qr quoteResponse
	if err := json.Unmarshal(body, &qr); err != nil {
		return 0, "", fmt.Errorf("yahoo quote decode: %w", err)
	}
	if qr.QuoteResponse.Error != nil {
		return 0, "", fmt.Errorf("yahoo quote api error: %s", qr.QuoteResponse.Error.Description)
	}
	if len(qr.QuoteResponse.Result) == 0 {
		return 0, "", fmt.Errorf("yahoo quote: no result for %s", symbol)
	}

	r := qr.QuoteResponse.Result[0]
	return r.MarketCap, r.ShortName, nil
}
