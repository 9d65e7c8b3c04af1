package honeypot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/web3guy0/lobster/internal/httpx"
)

func d(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		api      bool
		sellTax  float64
		honeypot bool
		risk     string
	}{
		{"clean", false, 2, false, RiskLow},
		{"exactly fifty is still low", false, 50, false, RiskLow},
		{"elevated tax", false, 60, false, RiskMedium},
		{"exactly ninety is medium", false, 90, false, RiskMedium},
		{"confiscatory tax", false, 99, true, RiskHigh},
		{"api flag", true, 0, true, RiskHigh},
		{"api flag with medium tax stays high", true, 60, true, RiskHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Classify(tt.api, d(1), d(tt.sellTax))
			assert.Equal(t, tt.honeypot, r.IsHoneypot)
			assert.Equal(t, tt.risk, r.Risk)
		})
	}
}

func newClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, httpx.New(httpx.Options{RPS: 1000, Burst: 100, MaxRetries: 1, BaseBackoff: time.Millisecond}))
}

func TestCheckParsesAPI(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/IsHoneypot", r.URL.Path)
		assert.Equal(t, "8453", r.URL.Query().Get("chainID"))
		assert.Equal(t, "0xabc", r.URL.Query().Get("address"))
		w.Write([]byte(`{
			"honeypotResult": {"isHoneypot": false},
			"simulationSuccess": true,
			"simulationResult": {"buyTax": 5, "sellTax": 65.5}
		}`))
	})

	r := c.Check(context.Background(), "0xabc", "base")
	assert.False(t, r.IsHoneypot)
	assert.Equal(t, RiskMedium, r.Risk)
	assert.True(t, r.SellTax.Equal(d(65.5)))
	assert.Equal(t, "⚠️", r.Emoji())
}

func TestCheckUsesAPIReason(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"honeypotResult": {"isHoneypot": true, "honeypotReason": "transfer blocked"},
			"simulationSuccess": false,
			"simulationResult": {}
		}`))
	})

	r := c.Check(context.Background(), "0xabc", "bsc")
	assert.True(t, r.IsHoneypot)
	assert.Equal(t, RiskHigh, r.Risk)
	assert.Equal(t, "transfer blocked", r.Reason)
}

func TestCheckFailureIsUnknown(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	r := c.Check(context.Background(), "0xabc", "base")
	assert.Equal(t, RiskUnknown, r.Risk)
	assert.False(t, r.IsHoneypot)
}

func TestCheckUnsupportedChain(t *testing.T) {
	c := NewClient("http://unused", httpx.New(httpx.Options{}))
	r := c.Check(context.Background(), "So1", "solana")
	assert.Equal(t, RiskUnknown, r.Risk)
}
