// Package httpx is the outbound JSON client shared by every API wrapper.
// Each host gets its own token-bucket limiter and circuit breaker; transient
// failures (transport errors, 429, 5xx) are retried with exponential backoff.
package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const maxBodyBytes = 8 << 20

// Recorder receives request outcomes, typically the metrics set
type Recorder interface {
	ObserveRequest(host, outcome string)
	ObserveBreakerOpen(host string)
}

// Options configures a Client
type Options struct {
	RPS         float64       // per-host steady rate
	Burst       int           // per-host burst
	Timeout     time.Duration // per attempt
	MaxRetries  int
	BaseBackoff time.Duration
	UserAgent   string
	Recorder    Recorder
}

// DefaultOptions mirrors what the public APIs we poll tolerate
func DefaultOptions() Options {
	return Options{
		RPS:         2,
		Burst:       2,
		Timeout:     15 * time.Second,
		MaxRetries:  3,
		BaseBackoff: 500 * time.Millisecond,
		UserAgent:   "lobster/1.0 (+https://github.com/web3guy0/lobster)",
	}
}

// StatusError is returned for non-2xx responses
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("http status %d: %s", e.Code, body)
}

// Retryable reports whether the status is worth another attempt
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// Client performs rate-limited, breaker-guarded JSON GETs
type Client struct {
	http *http.Client
	opts Options

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	breakers map[string]*gobreaker.CircuitBreaker
}

// New creates a client; zero fields in opts fall back to DefaultOptions
func New(opts Options) *Client {
	def := DefaultOptions()
	if opts.RPS <= 0 {
		opts.RPS = def.RPS
	}
	if opts.Burst <= 0 {
		opts.Burst = def.Burst
	}
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = def.BaseBackoff
	}
	if opts.UserAgent == "" {
		opts.UserAgent = def.UserAgent
	}
	return &Client{
		http:     &http.Client{Timeout: opts.Timeout},
		opts:     opts,
		limiters: make(map[string]*rate.Limiter),
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

// SetHostLimit overrides the limiter for one host (e.g. 8 req/min for TwelveData)
func (c *Client) SetHostLimit(host string, limit rate.Limit, burst int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.limiters[host] = rate.NewLimiter(limit, burst)
}

func (c *Client) limiter(host string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.limiters[host]
	if !ok {
		l = rate.NewLimiter(rate.Limit(c.opts.RPS), c.opts.Burst)
		c.limiters[host] = l
	}
	return l
}

func (c *Client) breaker(host string) *gobreaker.CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.breakers[host]
	if ok {
		return b
	}
	st := gobreaker.Settings{
		Name:     host,
		Interval: 60 * time.Second,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= 3 {
				return true
			}
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) > 0.5
		},
		// 4xx (other than 429) means our request was wrong, not that the host is down
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var se *StatusError
			if errors.As(err, &se) {
				return !se.Retryable()
			}
			return errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("host", name).Str("from", from.String()).Str("to", to.String()).Msg("🔌 Circuit breaker state change")
			if to == gobreaker.StateOpen && c.opts.Recorder != nil {
				c.opts.Recorder.ObserveBreakerOpen(name)
			}
		},
	}
	b = gobreaker.NewCircuitBreaker(st)
	c.breakers[host] = b
	return b
}

// GetJSON fetches rawURL and decodes the JSON body into out
func (c *Client) GetJSON(ctx context.Context, rawURL string, headers map[string]string, out any) error {
	body, err := c.Get(ctx, rawURL, headers)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", redact(rawURL), err)
	}
	return nil
}

// Get fetches rawURL and returns the raw body of a 2xx response
func (c *Client) Get(ctx context.Context, rawURL string, headers map[string]string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", redactErr(err, rawURL))
	}
	host := u.Host
	cb := c.breaker(host)

	var lastErr error
	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := c.opts.BaseBackoff << (attempt - 1)
			log.Debug().Str("host", host).Int("attempt", attempt).Dur("backoff", wait).Err(lastErr).Msg("Retrying request")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}

		if err := c.limiter(host).Wait(ctx); err != nil {
			return nil, err
		}

		res, err := cb.Execute(func() (any, error) {
			return c.do(ctx, u.String(), headers)
		})
		if err == nil {
			c.observe(host, "ok")
			return res.([]byte), nil
		}
		lastErr = err

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.observe(host, "breaker_open")
			return nil, fmt.Errorf("%s unavailable: %w", host, err)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		var se *StatusError
		if errors.As(err, &se) {
			c.observe(host, fmt.Sprintf("%dxx", se.Code/100))
			if !se.Retryable() {
				return nil, err
			}
		} else {
			c.observe(host, "error")
		}
	}
	return nil, fmt.Errorf("get %s: giving up after %d attempts: %w", redact(rawURL), c.opts.MaxRetries+1, lastErr)
}

func (c *Client) do(ctx context.Context, rawURL string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, redactErr(err, rawURL)
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, redactErr(err, rawURL)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

func (c *Client) observe(host, outcome string) {
	if c.opts.Recorder != nil {
		c.opts.Recorder.ObserveRequest(host, outcome)
	}
}

// redactErr strips the query string from the URL a *url.Error carries
func redactErr(err error, rawURL string) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		ue.URL = redact(rawURL)
	}
	return err
}

// redact drops the query string so API keys never reach logs or errors
func redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid url>"
	}
	u.RawQuery = ""
	return u.String()
}
