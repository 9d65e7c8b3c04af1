package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecorder struct {
	mu       sync.Mutex
	outcomes map[string]int
	opened   int
}

func (r *fakeRecorder) ObserveRequest(_, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outcomes == nil {
		r.outcomes = map[string]int{}
	}
	r.outcomes[outcome]++
}

func (r *fakeRecorder) ObserveBreakerOpen(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opened++
}

func testClient(rec Recorder) *Client {
	return New(Options{
		RPS:         1000,
		Burst:       100,
		Timeout:     2 * time.Second,
		MaxRetries:  3,
		BaseBackoff: time.Millisecond,
		Recorder:    rec,
	})
}

func TestGetJSONDecodesAndSendsHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"name":"lobster","count":3}`))
	}))
	defer srv.Close()

	rec := &fakeRecorder{}
	var out struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	err := testClient(rec).GetJSON(context.Background(), srv.URL+"/x", map[string]string{"X-API-Key": "secret"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "lobster", out.Name)
	assert.Equal(t, 3, out.Count)
	assert.Equal(t, 1, rec.outcomes["ok"])
}

func TestGetRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := testClient(nil).Get(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGetDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testClient(nil).Get(context.Background(), srv.URL, nil)
	require.Error(t, err)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.False(t, se.Retryable())
	assert.Equal(t, int32(1), calls.Load())
}

func TestClientErrorsDoNotTripBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := testClient(nil)
	for i := 0; i < 5; i++ {
		_, err := c.Get(context.Background(), srv.URL, nil)
		require.Error(t, err)
		assert.NotErrorIs(t, err, gobreaker.ErrOpenState)
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	rec := &fakeRecorder{}
	c := testClient(rec)

	_, err := c.Get(context.Background(), srv.URL, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(3), calls.Load(), "third failure trips the breaker, fourth attempt never reaches the server")
	assert.Equal(t, 1, rec.opened)

	_, err = c.Get(context.Background(), srv.URL, nil)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGetHonorsContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(Options{RPS: 1000, Burst: 10, MaxRetries: 5, BaseBackoff: time.Second})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.Get(ctx, srv.URL, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSetHostLimitThrottles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	c := testClient(nil)
	c.SetHostLimit(u.Host, 10, 1)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := c.Get(context.Background(), srv.URL, nil)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}

func TestTransportErrorHidesQuery(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	c := New(Options{RPS: 1000, Burst: 100, Timeout: time.Second, MaxRetries: 1, BaseBackoff: time.Millisecond})
	_, err := c.Get(context.Background(), addr+"/quote?apikey=SUPERSECRETKEY&symbol=AAPL", nil)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "SUPERSECRETKEY")
	assert.Contains(t, err.Error(), addr+"/quote")

	var ue *url.Error
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, addr+"/quote", ue.URL)
}

func TestRedactDropsQuery(t *testing.T) {
	assert.Equal(t, "https://api.twelvedata.com/quote", redact("https://api.twelvedata.com/quote?symbol=TXN&apikey=secret"))
}
