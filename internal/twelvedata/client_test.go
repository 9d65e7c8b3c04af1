package twelvedata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/web3guy0/lobster/internal/httpx"
)

func testHTTP() *httpx.Client {
	return httpx.New(httpx.Options{RPS: 1000, Burst: 100, MaxRetries: 1, BaseBackoff: time.Millisecond})
}

func TestQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/quote", r.URL.Path)
		assert.Equal(t, "NVTS", r.URL.Query().Get("symbol"))
		assert.Equal(t, "key", r.URL.Query().Get("apikey"))
		w.Write([]byte(`{"symbol":"NVTS","name":"Navitas Semiconductor","exchange":"NASDAQ","currency":"USD","datetime":"2026-10-14","open":"7.10","high":"7.50","low":"6.90","close":"7.42","previous_close":"7.00","change":"0.42","percent_change":"6.00","volume":"12345678"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", testHTTP())
	q, err := c.Quote(context.Background(), "NVTS")
	require.NoError(t, err)
	assert.Equal(t, "Navitas Semiconductor", q.Name)
	assert.True(t, q.Close.Equal(decimal.RequireFromString("7.42")))
	assert.True(t, q.PercentChange.Equal(decimal.NewFromInt(6)))
	assert.Equal(t, 1, c.Calls())
	assert.Equal(t, DailyLimit-1, c.Remaining())
}

func TestQuoteErrorHidesAPIKey(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := NewClient(addr, "SUPERSECRETKEY", testHTTP()).Quote(context.Background(), "AAPL")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "SUPERSECRETKEY")
}

func TestQuoteAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":404,"message":"symbol not found","status":"error"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "key", testHTTP()).Quote(context.Background(), "02577.HK")
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.Code)
	assert.Contains(t, err.Error(), "symbol not found")
	assert.NotContains(t, err.Error(), "key")
}

func TestQuoteBudget(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(`{"symbol":"TXN","close":"180"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", testHTTP())
	c.dailyLimit = 1

	_, err := c.Quote(context.Background(), "TXN")
	require.NoError(t, err)
	_, err = c.Quote(context.Background(), "TXN")
	assert.ErrorIs(t, err, ErrBudgetExhausted)
	assert.Equal(t, 1, hits)
	assert.Equal(t, 0, c.Remaining())
}
