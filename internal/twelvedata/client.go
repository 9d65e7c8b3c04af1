// Package twelvedata fetches US stock quotes from the Twelve Data API.
package twelvedata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/web3guy0/lobster/internal/httpx"
)

const (
	DefaultBaseURL = "https://api.twelvedata.com"

	// Free plan limits
	DailyLimit     = 800
	RequestsPerMin = 8
)

// ErrBudgetExhausted is returned once the daily call budget is spent
var ErrBudgetExhausted = errors.New("twelvedata daily call budget exhausted")

// Quote is a real-time quote. Twelve Data sends numbers as strings.
type Quote struct {
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name"`
	Exchange      string          `json:"exchange"`
	Currency      string          `json:"currency"`
	Datetime      string          `json:"datetime"`
	Open          decimal.Decimal `json:"open"`
	High          decimal.Decimal `json:"high"`
	Low           decimal.Decimal `json:"low"`
	Close         decimal.Decimal `json:"close"`
	PreviousClose decimal.Decimal `json:"previous_close"`
	Change        decimal.Decimal `json:"change"`
	PercentChange decimal.Decimal `json:"percent_change"`
	Volume        decimal.Decimal `json:"volume"`

	// Pre/post market move; only sent for US listings when extended hours apply
	ExtendedPercentChange decimal.Decimal `json:"extended_percent_change"`
}

// APIError is the error body Twelve Data returns, often with HTTP 200
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("twelvedata error %d: %s", e.Code, e.Message)
}

type Client struct {
	baseURL    string
	apiKey     string
	http       *httpx.Client
	dailyLimit int64
	calls      atomic.Int64
}

// NewClient creates a client and caps its host at RequestsPerMin
func NewClient(baseURL, apiKey string, http *httpx.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if u, err := url.Parse(baseURL); err == nil {
		http.SetHostLimit(u.Host, rate.Every(time.Minute/RequestsPerMin), 1)
	}
	return &Client{baseURL: baseURL, apiKey: apiKey, http: http, dailyLimit: DailyLimit}
}

// Calls is the number of requests made by this client
func (c *Client) Calls() int {
	return int(c.calls.Load())
}

// Remaining is what is left of the daily budget
func (c *Client) Remaining() int {
	return int(c.dailyLimit - c.calls.Load())
}

// Quote fetches the latest quote for symbol
func (c *Client) Quote(ctx context.Context, symbol string) (Quote, error) {
	if c.calls.Add(1) > c.dailyLimit {
		c.calls.Add(-1)
		return Quote{}, ErrBudgetExhausted
	}

	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("prepost", "true")
	q.Set("apikey", c.apiKey)
	body, err := c.http.Get(ctx, c.baseURL+"/quote?"+q.Encode(), nil)
	if err != nil {
		return Quote{}, fmt.Errorf("quote %s: %w", symbol, err)
	}

	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err == nil && (apiErr.Code != 0 || apiErr.Status == "error") {
		return Quote{}, fmt.Errorf("quote %s: %w", symbol, &apiErr)
	}

	var quote Quote
	if err := json.Unmarshal(body, &quote); err != nil {
		return Quote{}, fmt.Errorf("decode quote %s: %w", symbol, err)
	}
	if quote.Symbol == "" {
		quote.Symbol = symbol
	}
	log.Debug().Str("symbol", symbol).Int("calls", c.Calls()).Msg("📊 Quote fetched")
	return quote, nil
}
