package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the set of collectors shared by every command
type Metrics struct {
	registry *prometheus.Registry

	ScansTotal       *prometheus.CounterVec
	TokensDiscovered prometheus.Counter
	HoneypotsFlagged prometheus.Counter
	TweetsSeen       *prometheus.CounterVec
	PushesTotal      *prometheus.CounterVec
	HTTPRequests     *prometheus.CounterVec
	BreakerTrips     *prometheus.CounterVec
	MiningTxs        *prometheus.CounterVec
	WalletBalance    prometheus.Gauge
	ReportGeneration prometheus.Histogram
}

// New creates the collectors and registers them on a private registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ScansTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lobster_scans_total",
			Help: "Scanner runs by kind and result",
		}, []string{"kind", "result"}),
		TokensDiscovered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lobster_tokens_discovered_total",
			Help: "Token contracts seen for the first time",
		}),
		HoneypotsFlagged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lobster_honeypots_flagged_total",
			Help: "Tokens classified as honeypots",
		}),
		TweetsSeen: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lobster_tweets_new_total",
			Help: "New tweets detected per monitored account",
		}, []string{"user"}),
		PushesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lobster_pushes_total",
			Help: "Push decisions by outcome (sent, skipped, failed)",
		}, []string{"outcome"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lobster_http_requests_total",
			Help: "Outbound API requests by host and outcome",
		}, []string{"host", "outcome"}),
		BreakerTrips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lobster_circuit_breaker_trips_total",
			Help: "Circuit breaker transitions to open, by host",
		}, []string{"host"}),
		MiningTxs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lobster_mining_transactions_total",
			Help: "Placeholder mining transactions by outcome",
		}, []string{"outcome"}),
		WalletBalance: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lobster_wallet_balance_bnb",
			Help: "Last observed native balance of the mining wallet",
		}),
		ReportGeneration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "lobster_report_generation_seconds",
			Help:    "Time spent producing a report, fetches included",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
	}

	m.registry.MustRegister(
		m.ScansTotal,
		m.TokensDiscovered,
		m.HoneypotsFlagged,
		m.TweetsSeen,
		m.PushesTotal,
		m.HTTPRequests,
		m.BreakerTrips,
		m.MiningTxs,
		m.WalletBalance,
		m.ReportGeneration,
	)
	return m
}

// Registry exposes the underlying registry (tests gather from it)
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest implements httpx.Recorder
func (m *Metrics) ObserveRequest(host, outcome string) {
	m.HTTPRequests.WithLabelValues(host, outcome).Inc()
}

// ObserveBreakerOpen implements httpx.Recorder
func (m *Metrics) ObserveBreakerOpen(host string) {
	m.BreakerTrips.WithLabelValues(host).Inc()
}
