package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics manages the Prometheus metrics for the gateway.
type Metrics struct {
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
	UpstreamLatency  *prometheus.HistogramVec
	UpstreamErrors   *prometheus.CounterVec
	CacheHits        *prometheus.CounterVec
	SSESessions      prometheus.Gauge
	SSEEventsRelayed prometheus.Counter
	WebhookResults   *prometheus.CounterVec
	RateLimitHits    *prometheus.CounterVec
	FallbacksServed  *prometheus.CounterVec
}

// NewMetrics creates and registers the Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		HTTPRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hnwi_gateway_http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hnwi_gateway_http_request_duration_seconds",
				Help:    "Latency of HTTP requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		UpstreamLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hnwi_gateway_upstream_latency_seconds",
				Help:    "Latency of calls to the backend service.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		UpstreamErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hnwi_gateway_upstream_errors_total",
				Help: "Total number of failed backend calls.",
			},
			[]string{"route", "kind"},
		),
		CacheHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hnwi_gateway_cache_requests_total",
				Help: "Cache lookups by layer and result.",
			},
			[]string{"layer", "result"},
		),
		SSESessions: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "hnwi_gateway_sse_sessions",
				Help: "Currently open SSE relay sessions.",
			},
		),
		SSEEventsRelayed: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "hnwi_gateway_sse_events_relayed_total",
				Help: "Total SSE events relayed to clients.",
			},
		),
		WebhookResults: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hnwi_gateway_webhook_events_total",
				Help: "Webhook events by provider and result.",
			},
			[]string{"provider", "result"},
		),
		RateLimitHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hnwi_gateway_rate_limit_hits_total",
				Help: "Total number of rate limit rejections.",
			},
			[]string{"scope"},
		),
		FallbacksServed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hnwi_gateway_fallbacks_served_total",
				Help: "Fallback payloads served while the backend was unavailable.",
			},
			[]string{"route"},
		),
	}
}

// RecordUpstream records a backend call outcome.
func (m *Metrics) RecordUpstream(route string, duration time.Duration, err error) {
	m.UpstreamLatency.WithLabelValues(route).Observe(duration.Seconds())
	if err != nil {
		m.UpstreamErrors.WithLabelValues(route, "error").Inc()
	}
}

// RecordCache records a cache lookup result for a layer ("local" or "redis").
func (m *Metrics) RecordCache(layer string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheHits.WithLabelValues(layer, result).Inc()
}

// RecordWebhook records a webhook processing result.
func (m *Metrics) RecordWebhook(provider, result string) {
	m.WebhookResults.WithLabelValues(provider, result).Inc()
}

// RecordRateLimitHit records a rejected request.
func (m *Metrics) RecordRateLimitHit(scope string) {
	m.RateLimitHits.WithLabelValues(scope).Inc()
}

// RecordFallback records a fallback payload being served.
func (m *Metrics) RecordFallback(route string) {
	m.FallbacksServed.WithLabelValues(route).Inc()
}
