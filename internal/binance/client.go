// Package binance reads spot prices from Binance over REST and the public
// websocket streams.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/lobster/internal/httpx"
)

const (
	DefaultRESTURL = "https://api.binance.com"
	DefaultWSURL   = "wss://stream.binance.com:9443"

	minBackoff = time.Second
	maxBackoff = 30 * time.Second
)

// Ticker is the rolling 24h window for one symbol
type Ticker struct {
	Symbol             string          `json:"symbol"`
	LastPrice          decimal.Decimal `json:"lastPrice"`
	PriceChangePercent decimal.Decimal `json:"priceChangePercent"`
	Volume             decimal.Decimal `json:"volume"`
	HighPrice          decimal.Decimal `json:"highPrice"`
	LowPrice           decimal.Decimal `json:"lowPrice"`
}

// MiniTicker is one update from the @miniTicker stream
type MiniTicker struct {
	Symbol    string
	Close     decimal.Decimal
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Volume    decimal.Decimal
	EventTime time.Time
}

// ChangePercent is the move since the window opened
func (m MiniTicker) ChangePercent() decimal.Decimal {
	if m.Open.IsZero() {
		return decimal.Zero
	}
	return m.Close.Sub(m.Open).Div(m.Open).Mul(decimal.NewFromInt(100))
}

// Client handles Binance data
type Client struct {
	restURL string
	wsURL   string
	http    *httpx.Client
	dialer  websocket.Dialer
}

// NewClient creates a new Binance client. Empty URLs use the public endpoints.
func NewClient(restURL, wsURL string, http *httpx.Client) *Client {
	if restURL == "" {
		restURL = DefaultRESTURL
	}
	if wsURL == "" {
		wsURL = DefaultWSURL
	}
	return &Client{
		restURL: strings.TrimRight(restURL, "/"),
		wsURL:   strings.TrimRight(wsURL, "/"),
		http:    http,
		dialer:  websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
}

// Ticker24h fetches 24h statistics for a symbol such as BTCUSDT
func (c *Client) Ticker24h(ctx context.Context, symbol string) (Ticker, error) {
	symbol = strings.ToUpper(symbol)
	u := c.restURL + "/api/v3/ticker/24hr?symbol=" + url.QueryEscape(symbol)

	var t Ticker
	if err := c.http.GetJSON(ctx, u, nil, &t); err != nil {
		return Ticker{}, fmt.Errorf("binance ticker %s: %w", symbol, err)
	}
	if t.Symbol == "" {
		t.Symbol = symbol
	}
	return t, nil
}

// Stream delivers mini ticker updates for symbols to fn until ctx is done,
// reconnecting with backoff whenever the connection drops.
func (c *Client) Stream(ctx context.Context, symbols []string, fn func(MiniTicker)) error {
	if len(symbols) == 0 {
		return fmt.Errorf("binance stream: no symbols")
	}
	streams := make([]string, len(symbols))
	for i, s := range symbols {
		streams[i] = strings.ToLower(s) + "@miniTicker"
	}
	u := c.wsURL + "/stream?streams=" + strings.Join(streams, "/")

	backoff := minBackoff
	for {
		connected, err := c.readStream(ctx, u, fn)
		if ctx.Err() != nil {
			return nil
		}
		if connected {
			backoff = minBackoff
		}
		log.Warn().Err(err).Dur("retry_in", backoff).Msg("Binance WS disconnected, reconnecting...")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

// readStream runs one connection. connected reports whether the dial
// succeeded, so the caller can reset its backoff.
func (c *Client) readStream(ctx context.Context, u string, fn func(MiniTicker)) (connected bool, err error) {
	conn, _, err := c.dialer.DialContext(ctx, u, nil)
	if err != nil {
		return false, fmt.Errorf("websocket dial failed: %w", err)
	}
	defer conn.Close()
	log.Info().Str("url", u).Msg("🔌 WebSocket connected to Binance")

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return true, err
		}
		if t, ok := parseMiniTicker(message); ok {
			fn(t)
		}
	}
}

// Combined stream format: {"stream":"btcusdt@miniTicker","data":{...}}
func parseMiniTicker(data []byte) (MiniTicker, bool) {
	var wrapper struct {
		Stream string          `json:"stream"`
		Data   json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil || len(wrapper.Data) == 0 {
		return MiniTicker{}, false
	}

	var raw struct {
		EventTime int64           `json:"E"`
		Symbol    string          `json:"s"`
		Close     decimal.Decimal `json:"c"`
		Open      decimal.Decimal `json:"o"`
		High      decimal.Decimal `json:"h"`
		Low       decimal.Decimal `json:"l"`
		Volume    decimal.Decimal `json:"v"`
	}
	if err := json.Unmarshal(wrapper.Data, &raw); err != nil || raw.Symbol == "" {
		return MiniTicker{}, false
	}
	return MiniTicker{
		Symbol:    raw.Symbol,
		Close:     raw.Close,
		Open:      raw.Open,
		High:      raw.High,
		Low:       raw.Low,
		Volume:    raw.Volume,
		EventTime: time.UnixMilli(raw.EventTime),
	}, true
}
