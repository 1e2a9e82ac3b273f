package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics stores Prometheus collectors used by the API and worker flows.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal        *prometheus.CounterVec
	httpRequestDuration      *prometheus.HistogramVec
	deliveriesSucceededTotal prometheus.Counter
	deliveriesFailedTotal    *prometheus.CounterVec
	attemptDuration          prometheus.Histogram
	retryScheduledTotal      prometheus.Counter
	workerInflight           prometheus.Gauge
	routingCacheHitsTotal    prometheus.Counter
	routingCacheMissesTotal  prometheus.Counter
	attemptsSweptTotal       prometheus.Counter
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "webhook_relay",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "webhook_relay",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		deliveriesSucceededTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "webhook_relay",
				Name:      "deliveries_succeeded_total",
				Help:      "Total number of deliveries that reached the success state.",
			},
		),
		deliveriesFailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "webhook_relay",
				Name:      "deliveries_failed_total",
				Help:      "Total number of deliveries that ended in the failed state.",
			},
			[]string{"reason"},
		),
		attemptDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "webhook_relay",
				Name:      "attempt_duration_seconds",
				Help:      "Endpoint delivery attempt duration in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
		),
		retryScheduledTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "webhook_relay",
				Name:      "retries_scheduled_total",
				Help:      "Total number of deliveries scheduled for a backoff retry.",
			},
		),
		workerInflight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "webhook_relay",
				Name:      "worker_inflight",
				Help:      "Current number of delivery jobs being processed by workers.",
			},
		),
		routingCacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "webhook_relay",
				Name:      "routing_cache_hits_total",
				Help:      "Total number of routing lookups served from the cache.",
			},
		),
		routingCacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "webhook_relay",
				Name:      "routing_cache_misses_total",
				Help:      "Total number of routing lookups that fell back to the database.",
			},
		),
		attemptsSweptTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "webhook_relay",
				Name:      "attempts_swept_total",
				Help:      "Total number of attempt records removed by the retention sweeper.",
			},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.deliveriesSucceededTotal,
		m.deliveriesFailedTotal,
		m.attemptDuration,
		m.retryScheduledTotal,
		m.workerInflight,
		m.routingCacheHitsTotal,
		m.routingCacheMissesTotal,
		m.attemptsSweptTotal,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

func (m *Metrics) IncDeliverySucceeded() {
	if m == nil {
		return
	}
	m.deliveriesSucceededTotal.Inc()
}

func (m *Metrics) IncDeliveryFailed(reason string) {
	if m == nil {
		return
	}
	reasonLabel := strings.TrimSpace(strings.ToLower(reason))
	if reasonLabel == "" {
		reasonLabel = "unknown"
	}
	m.deliveriesFailedTotal.WithLabelValues(reasonLabel).Inc()
}

func (m *Metrics) ObserveAttemptDuration(duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.attemptDuration.Observe(seconds)
}

func (m *Metrics) IncRetryScheduled() {
	if m == nil {
		return
	}
	m.retryScheduledTotal.Inc()
}

func (m *Metrics) IncWorkerInFlight() {
	if m == nil {
		return
	}
	m.workerInflight.Inc()
}

func (m *Metrics) DecWorkerInFlight() {
	if m == nil {
		return
	}
	m.workerInflight.Dec()
}

func (m *Metrics) IncRoutingCacheHit() {
	if m == nil {
		return
	}
	m.routingCacheHitsTotal.Inc()
}

func (m *Metrics) IncRoutingCacheMiss() {
	if m == nil {
		return
	}
	m.routingCacheMissesTotal.Inc()
}

func (m *Metrics) AddAttemptsSwept(count int64) {
	if m == nil || count <= 0 {
		return
	}
	m.attemptsSweptTotal.Add(float64(count))
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, pathLabel).Observe(duration.Seconds())
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return "unmatched"
	}

	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" {
			return path
		}
	}
	return "unmatched"
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}

	if c == nil {
		return fiber.StatusOK
	}

	status := c.Response().StatusCode()
	if status == 0 {
		return fiber.StatusOK
	}
	return status
}
