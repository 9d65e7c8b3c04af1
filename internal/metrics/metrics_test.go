package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	m := New()
	m.ObserveRequest("api.dexscreener.com", "ok")
	m.ObserveRequest("api.dexscreener.com", "ok")
	m.ObserveBreakerOpen("api.honeypot.is")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("api.dexscreener.com", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BreakerTrips.WithLabelValues("api.honeypot.is")))
}

func TestRegistriesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.TokensDiscovered.Inc()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.TokensDiscovered))
}

func TestHandler(t *testing.T) {
	m := New()
	m.PushesTotal.WithLabelValues("sent").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `lobster_pushes_total{outcome="sent"} 1`)
}
