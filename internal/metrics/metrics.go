package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Login outcomes recorded by the callback page.
const (
	LoginSuccess       = "success"
	LoginInvalidQuery  = "invalid_query"
	LoginProviderError = "provider_error"
	LoginProfileError  = "profile_error"
)

// Config configures the collectors.
type Config struct {
	// Namespace is the metrics namespace (default: "personalcms").
	Namespace string

	// Buckets are the histogram buckets for durations.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the collectors.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// Metrics holds the frontend's Prometheus collectors. A nil *Metrics is valid
// and records nothing, so callers never need to guard.
type Metrics struct {
	requestsTotal        *prometheus.CounterVec
	requestDuration      *prometheus.HistogramVec
	loginsTotal          *prometheus.CounterVec
	profileFetches       *prometheus.CounterVec
	profileFetchDuration prometheus.Histogram
	cachedUsers          prometheus.Gauge
}

// New registers the collectors.
func New(opts ...Option) *Metrics {
	config := Config{
		Namespace: "personalcms",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(&config)
	}

	factory := promauto.With(config.Registry)

	return &Metrics{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "http_requests_total",
			Help:      "Total number of page requests by route and status",
		}, []string{"route", "status"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Page request duration in seconds",
			Buckets:   config.Buckets,
		}, []string{"route"}),

		loginsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "logins_total",
			Help:      "OAuth callback completions by outcome",
		}, []string{"outcome"}),

		profileFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "profile_fetches_total",
			Help:      "Profile fetches against the backend by result",
		}, []string{"result"}),

		profileFetchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "profile_fetch_duration_seconds",
			Help:      "Profile fetch latency in seconds",
			Buckets:   config.Buckets,
		}),

		cachedUsers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Name:      "cached_users",
			Help:      "Number of sessions with a cached user profile",
		}),
	}
}

// ObserveRequest records one served request.
func (m *Metrics) ObserveRequest(route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(route, status).Inc()
	m.requestDuration.WithLabelValues(route).Observe(d.Seconds())
}

// RecordLogin records a callback outcome.
func (m *Metrics) RecordLogin(outcome string) {
	if m == nil {
		return
	}
	m.loginsTotal.WithLabelValues(outcome).Inc()
}

// ObserveProfileFetch records a profile fetch; err == nil counts as ok.
func (m *Metrics) ObserveProfileFetch(d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.profileFetches.WithLabelValues(result).Inc()
	m.profileFetchDuration.Observe(d.Seconds())
}

// SetCachedUsers records the User Store size.
func (m *Metrics) SetCachedUsers(n int) {
	if m == nil {
		return
	}
	m.cachedUsers.Set(float64(n))
}
