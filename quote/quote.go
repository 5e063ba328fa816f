// Package quote resolves ticker symbols to a company name and current price
// via an external quote API.
package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"trade-simulator/apperr"
)

type Quote struct {
	Symbol string  `json:"symbol"`
	Name   string  `json:"companyName"`
	Price  float64 `json:"latestPrice"`
}

type Provider interface {
	Lookup(ctx context.Context, symbol string) (*Quote, error)
}

// Client calls a quote API serving GET {base}/stock/{symbol}/quote?token={key}.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) Lookup(ctx context.Context, symbol string) (*Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, apperr.Invalid("must provide symbol")
	}

	endpoint := fmt.Sprintf("%s/stock/%s/quote?token=%s",
		c.baseURL, url.PathEscape(symbol), url.QueryEscape(c.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperr.Unavailable("quote service unavailable")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, apperr.NotFound("invalid symbol")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperr.Unavailable("quote service error")
	}

	var q Quote
	if err := json.NewDecoder(resp.Body).Decode(&q); err != nil {
		return nil, apperr.Unavailable("failed to parse quote")
	}
	if q.Symbol == "" || q.Price <= 0 {
		return nil, apperr.NotFound("invalid symbol")
	}

	return &q, nil
}

// Static serves quotes from a fixed table, keyed by upper-case symbol.
// Used by tests.
type Static map[string]Quote

func (s Static) Lookup(_ context.Context, symbol string) (*Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, apperr.Invalid("must provide symbol")
	}
	q, ok := s[symbol]
	if !ok {
		return nil, apperr.NotFound("invalid symbol")
	}
	return &q, nil
}
