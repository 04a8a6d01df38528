package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusExporter exports metrics to Prometheus format.
type PrometheusExporter struct {
	collector *Collector

	// Prometheus metrics
	cacheHits      prometheus.Gauge
	cacheMisses    prometheus.Gauge
	cacheHitRate   prometheus.Gauge
	cacheKeys      prometheus.Gauge
	cacheEvictions prometheus.Gauge
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	httpErrors     *prometheus.CounterVec
}

// NewPrometheusExporter creates a new Prometheus exporter.
func NewPrometheusExporter(collector *Collector) *PrometheusExporter {
	return &PrometheusExporter{
		collector: collector,
		cacheHits: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "commerce_api_token_cache_hits",
			Help: "Number of access token cache hits since startup",
		}),
		cacheMisses: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "commerce_api_token_cache_misses",
			Help: "Number of access token cache misses since startup",
		}),
		cacheHitRate: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "commerce_api_token_cache_hit_rate",
			Help: "Current access token cache hit rate (0.0 to 1.0)",
		}),
		cacheKeys: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "commerce_api_token_cache_keys_current",
			Help: "Current number of access tokens in the cache",
		}),
		cacheEvictions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "commerce_api_token_cache_evictions",
			Help: "Number of access tokens evicted by expiry or memory pressure",
		}),
		httpRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "commerce_api_http_requests_total",
				Help: "Total number of API requests",
			},
			[]string{"operation", "table", "status"},
		),
		httpDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "commerce_api_http_request_duration_seconds",
				Help:    "Duration of API requests in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0},
			},
			[]string{"operation", "table"},
		),
		httpErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "commerce_api_http_errors_total",
				Help: "Total number of API requests answered with a 4xx or 5xx status",
			},
			[]string{"operation", "table"},
		),
	}
}

// Update updates Gauge metrics from the collector.
// Counters are updated via middleware, so only update gauges here.
// This should be called periodically (e.g., every 10 seconds).
func (e *PrometheusExporter) Update() {
	cacheMetrics := e.collector.GetCacheMetrics()
	e.cacheHits.Set(float64(cacheMetrics.Hits))
	e.cacheMisses.Set(float64(cacheMetrics.Misses))
	e.cacheHitRate.Set(cacheMetrics.HitRate)
	e.cacheKeys.Set(float64(cacheMetrics.KeysCurrent))
	e.cacheEvictions.Set(float64(cacheMetrics.Evictions))
}

// RecordRequest records a request in Prometheus.
func (e *PrometheusExporter) RecordRequest(operation, table string, status int) {
	e.httpRequests.WithLabelValues(operation, table, strconv.Itoa(status)).Inc()
}

// RecordDuration records a duration in Prometheus.
func (e *PrometheusExporter) RecordDuration(operation, table string, durationSeconds float64) {
	e.httpDuration.WithLabelValues(operation, table).Observe(durationSeconds)
}

// RecordError records an error in Prometheus.
func (e *PrometheusExporter) RecordError(operation, table string) {
	e.httpErrors.WithLabelValues(operation, table).Inc()
}
