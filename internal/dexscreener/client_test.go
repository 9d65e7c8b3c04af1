package dexscreener

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/web3guy0/lobster/internal/cache"
	"github.com/web3guy0/lobster/internal/httpx"
)

const searchBody = `{
  "schemaVersion": "1.0.0",
  "pairs": [
    {
      "chainId": "base",
      "dexId": "uniswap",
      "url": "https://dexscreener.com/base/0xpair",
      "pairAddress": "0xpair",
      "baseToken": {"address": "0xAbC0000000000000000000000000000000000b07", "name": "Clawd Agent", "symbol": "CLAWD"},
      "quoteToken": {"address": "0x4200000000000000000000000000000000000006", "name": "Wrapped Ether", "symbol": "WETH"},
      "priceUsd": "0.00001234",
      "txns": {"h24": {"buys": 120, "sells": 80}},
      "volume": {"h24": 85000.5},
      "priceChange": {"h24": 125.5},
      "liquidity": {"usd": 150000},
      "fdv": 1234567,
      "marketCap": 1000000,
      "pairCreatedAt": 1760000000000
    },
    {
      "chainId": "solana",
      "dexId": "raydium",
      "baseToken": {"address": "So1", "name": "No Liquidity", "symbol": "NOLIQ"},
      "priceUsd": null,
      "volume": {"h24": 10}
    }
  ]
}`

func newTestClient(t *testing.T, h http.HandlerFunc, c cache.Cache) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	hc := httpx.New(httpx.Options{RPS: 1000, Burst: 100, BaseBackoff: time.Millisecond})
	return NewClient(srv.URL, hc, c, time.Minute)
}

func TestSearchParsesPairs(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/latest/dex/search", r.URL.Path)
		assert.Equal(t, "base chain", r.URL.Query().Get("q"))
		w.Write([]byte(searchBody))
	}, nil)

	pairs, err := client.Search(context.Background(), "base chain")
	require.NoError(t, err)
	require.Len(t, pairs, 2)

	p := pairs[0]
	assert.Equal(t, "base", p.ChainID)
	assert.Equal(t, "CLAWD", p.BaseToken.Symbol)
	assert.True(t, p.PriceUSD.Equal(decimal.RequireFromString("0.00001234")))
	assert.True(t, p.Liquidity.USD.Equal(decimal.NewFromInt(150000)))
	assert.True(t, p.Volume.H24.Equal(decimal.RequireFromString("85000.5")))
	assert.Equal(t, 200, p.TxCount24h())
	assert.Equal(t, int64(1760000000000), p.CreatedAt().UnixMilli())

	empty := pairs[1]
	assert.True(t, empty.PriceUSD.IsZero())
	assert.True(t, empty.Liquidity.USD.IsZero())
	assert.True(t, empty.CreatedAt().IsZero())
}

func TestTokenPairsUsesPath(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/latest/dex/tokens/0xabc", r.URL.Path)
		w.Write([]byte(`{"pairs": null}`))
	}, nil)

	pairs, err := client.TokenPairs(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Empty(t, pairs)
}

func TestSearchIsCached(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(searchBody))
	}, cache.NewMemory())

	for i := 0; i < 3; i++ {
		pairs, err := client.Search(context.Background(), "Base Chain")
		require.NoError(t, err)
		require.Len(t, pairs, 2)
		assert.True(t, pairs[0].Liquidity.USD.Equal(decimal.NewFromInt(150000)))
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestSearchWrapsErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}, nil)

	_, err := client.Search(context.Background(), "x")
	require.Error(t, err)
	var se *httpx.StatusError
	assert.ErrorAs(t, err, &se)
}
