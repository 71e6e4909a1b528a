// Package pricing fetches stock prices from the Alpha Vantage API.
package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://www.alphavantage.co/query"

	EnvAPIKey  = "ALPHA_VANTAGE_API_KEY"
	EnvBaseURL = "ALPHA_VANTAGE_BASE_URL"

	requestTimeout = 10 * time.Second
	closeKey       = "4. close"
)

var (
	ErrMissingAPIKey = errors.New(EnvAPIKey + " not configured")
	ErrInvalidSymbol = errors.New("invalid symbol")
	ErrRateLimited   = errors.New("API rate limit reached, try again later")
	ErrNoData        = errors.New("no data available")
)

// Quote is the latest intraday close for a symbol.
type Quote struct {
	Symbol    string `json:"symbol"`
	Price     string `json:"price"`
	UpdatedAt string `json:"updatedAt"`
}

func (q Quote) String() string {
	return fmt.Sprintf("%s: $%s (updated: %s)", q.Symbol, q.Price, q.UpdatedAt)
}

type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		BaseURL: DefaultBaseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// NewClientFromEnv builds a client from ALPHA_VANTAGE_API_KEY and the
// optional ALPHA_VANTAGE_BASE_URL override.
func NewClientFromEnv() *Client {
	c := NewClient(strings.TrimSpace(os.Getenv(EnvAPIKey)))
	if base := strings.TrimSpace(os.Getenv(EnvBaseURL)); base != "" {
		c.BaseURL = base
	}
	return c
}

type intradayResponse struct {
	ErrorMessage string                       `json:"Error Message"`
	Note         string                       `json:"Note"`
	TimeSeries   map[string]map[string]string `json:"Time Series (5min)"`
}

// CurrentPrice returns the most recent 5 minute close for symbol.
func (c *Client) CurrentPrice(ctx context.Context, symbol string) (*Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", ErrInvalidSymbol)
	}
	if c.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	raw, err := c.get(ctx, url.Values{
		"function": {"TIME_SERIES_INTRADAY"},
		"symbol":   {symbol},
		"interval": {"5min"},
		"apikey":   {c.APIKey},
	})
	if err != nil {
		return nil, err
	}

	var body intradayResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	switch {
	case body.ErrorMessage != "":
		return nil, fmt.Errorf("%w: %s", ErrInvalidSymbol, symbol)
	case body.Note != "":
		return nil, ErrRateLimited
	case len(body.TimeSeries) == 0:
		return nil, fmt.Errorf("%w for %s", ErrNoData, symbol)
	}

	return latestQuote(symbol, body.TimeSeries)
}

func latestQuote(symbol string, series map[string]map[string]string) (*Quote, error) {
	stamps := make([]string, 0, len(series))
	for ts := range series {
		stamps = append(stamps, ts)
	}
	sort.Strings(stamps)
	latest := stamps[len(stamps)-1]

	price, ok := series[latest][closeKey]
	if !ok {
		return nil, fmt.Errorf("%w for %s: missing %q at %s", ErrNoData, symbol, closeKey, latest)
	}

	return &Quote{Symbol: symbol, Price: price, UpdatedAt: latest}, nil
}

func (c *Client) get(ctx context.Context, params url.Values) ([]byte, error) {
	base := c.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: requestTimeout}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connection error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return body, nil
}
