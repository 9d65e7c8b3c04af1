// Package dexscreener wraps the public DexScreener REST API
package dexscreener

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/web3guy0/lobster/internal/cache"
	"github.com/web3guy0/lobster/internal/httpx"
)

const DefaultBaseURL = "https://api.dexscreener.com"

// Token is the base or quote token of a pair
type Token struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

// Pair is one DEX pool as reported by DexScreener. Numeric fields the API
// omits or sends as null stay zero.
type Pair struct {
	ChainID     string `json:"chainId"`
	DexID       string `json:"dexId"`
	URL         string `json:"url"`
	PairAddress string `json:"pairAddress"`
	BaseToken   Token  `json:"baseToken"`
	QuoteToken  Token  `json:"quoteToken"`

	PriceUSD decimal.Decimal `json:"priceUsd"`
	Txns     struct {
		H24 struct {
			Buys  int `json:"buys"`
			Sells int `json:"sells"`
		} `json:"h24"`
	} `json:"txns"`
	Volume struct {
		H24 decimal.Decimal `json:"h24"`
	} `json:"volume"`
	PriceChange struct {
		H24 decimal.Decimal `json:"h24"`
	} `json:"priceChange"`
	Liquidity struct {
		USD decimal.Decimal `json:"usd"`
	} `json:"liquidity"`
	FDV           decimal.Decimal `json:"fdv"`
	MarketCap     decimal.Decimal `json:"marketCap"`
	PairCreatedAt int64           `json:"pairCreatedAt"`
}

// TxCount24h is buys plus sells over the last day
func (p Pair) TxCount24h() int {
	return p.Txns.H24.Buys + p.Txns.H24.Sells
}

// CreatedAt converts the millisecond timestamp; zero when unknown
func (p Pair) CreatedAt() time.Time {
	if p.PairCreatedAt == 0 {
		return time.Time{}
	}
	return time.UnixMilli(p.PairCreatedAt)
}

type pairsResponse struct {
	Pairs []Pair `json:"pairs"`
}

// Client queries DexScreener
type Client struct {
	baseURL string
	http    *httpx.Client
	cache   cache.Cache
	ttl     time.Duration
}

// NewClient creates a DexScreener client. The cache may be nil.
func NewClient(baseURL string, http *httpx.Client, c cache.Cache, ttl time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http,
		cache:   c,
		ttl:     ttl,
	}
}

// Search runs a free-text pair search
func (c *Client) Search(ctx context.Context, query string) ([]Pair, error) {
	key := "dex:search:" + strings.ToLower(query)
	return cache.Remember(ctx, c.cache, key, c.ttl, func(ctx context.Context) ([]Pair, error) {
		u := fmt.Sprintf("%s/latest/dex/search?q=%s", c.baseURL, url.QueryEscape(query))
		var resp pairsResponse
		if err := c.http.GetJSON(ctx, u, nil, &resp); err != nil {
			return nil, fmt.Errorf("dexscreener search %q: %w", query, err)
		}
		return resp.Pairs, nil
	})
}

// TokenPairs returns every pair that trades the given token
func (c *Client) TokenPairs(ctx context.Context, address string) ([]Pair, error) {
	key := "dex:token:" + strings.ToLower(address)
	return cache.Remember(ctx, c.cache, key, c.ttl, func(ctx context.Context) ([]Pair, error) {
		u := fmt.Sprintf("%s/latest/dex/tokens/%s", c.baseURL, url.PathEscape(address))
		var resp pairsResponse
		if err := c.http.GetJSON(ctx, u, nil, &resp); err != nil {
			return nil, fmt.Errorf("dexscreener token %s: %w", address, err)
		}
		return resp.Pairs, nil
	})
}
