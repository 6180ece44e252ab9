package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/username/flexfolio/src/logger"
)

// LookupResult is one candidate from an external ISIN search.
type LookupResult struct {
	Symbol   string
	Exchange string
	Name     string
}

// LookupClient is the external symbol-lookup collaborator. Implementations
// must tolerate transient failure; callers never let a lookup error corrupt
// already-committed data.
type LookupClient interface {
	LookupByISIN(ctx context.Context, isin string) (*LookupResult, error)
}

// Structs for the quote provider's search API response.
type searchResponse struct {
	Quotes []struct {
		Symbol    string `json:"symbol"`
		Exchange  string `json:"exchange"`
		Shortname string `json:"shortname"`
		QuoteType string `json:"quoteType"`
	} `json:"quotes"`
}

// httpLookupClient queries the provider's search endpoint by ISIN.
type httpLookupClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewLookupClient creates the HTTP-backed lookup client.
func NewLookupClient(baseURL string) LookupClient {
	return &httpLookupClient{
		httpClient: &http.Client{Timeout: 20 * time.Second},
		baseURL:    baseURL,
	}
}

func (c *httpLookupClient) LookupByISIN(ctx context.Context, isin string) (*LookupResult, error) {
	searchURL := fmt.Sprintf("%s/v1/finance/search?q=%s&quotesCount=3&newsCount=0",
		c.baseURL, url.QueryEscape(isin))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; flexfolio)")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("symbol search request failed for %s: %w", isin, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("symbol search for %s returned status %d: %s", isin, resp.StatusCode, string(body))
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode symbol search response for %s: %w", isin, err)
	}

	for _, q := range parsed.Quotes {
		if q.QuoteType == "EQUITY" || q.QuoteType == "ETF" {
			return &LookupResult{Symbol: q.Symbol, Exchange: q.Exchange, Name: q.Shortname}, nil
		}
	}
	if len(parsed.Quotes) > 0 {
		q := parsed.Quotes[0]
		return &LookupResult{Symbol: q.Symbol, Exchange: q.Exchange, Name: q.Shortname}, nil
	}

	logger.L.Debug("Symbol search returned no quotes", "isin", isin)
	return nil, nil
}
