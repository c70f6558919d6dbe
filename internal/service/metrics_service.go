package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the bridge.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	codesIssued     prometheus.Counter
	tokensIssued    *prometheus.CounterVec
	tokensRevoked   prometheus.Counter
	syncFailures    prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	codesIssued := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "oauth_authorization_codes_issued_total",
		Help: "Total authorization codes issued",
	})

	tokensIssued := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "oauth_tokens_issued_total",
		Help: "Total token pairs issued, by grant type",
	}, []string{"grant_type"})

	tokensRevoked := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "oauth_tokens_revoked_total",
		Help: "Total access tokens explicitly revoked",
	})

	syncFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "identity_sync_failures_total",
		Help: "Total failed identity-sync notifications",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, codesIssued, tokensIssued, tokensRevoked, syncFailures, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		codesIssued:     codesIssued,
		tokensIssued:    tokensIssued,
		tokensRevoked:   tokensRevoked,
		syncFailures:    syncFailures,
	}
}

// Handler exposes the Prometheus scrape endpoint.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveHTTPRequest records a completed HTTP request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	labels := prometheus.Labels{
		"method": method,
		"path":   path,
		"status": strconv.Itoa(status),
	}
	s.requestDuration.With(labels).Observe(duration.Seconds())
	s.requestTotal.With(labels).Inc()
}

// CodeIssued counts an issued authorization code.
func (s *MetricsService) CodeIssued() {
	s.codesIssued.Inc()
}

// TokenIssued counts an issued token pair.
func (s *MetricsService) TokenIssued(grantType string) {
	s.tokensIssued.WithLabelValues(grantType).Inc()
}

// TokenRevoked counts an explicit revocation.
func (s *MetricsService) TokenRevoked() {
	s.tokensRevoked.Inc()
}

// SyncFailed counts a failed identity-sync notification.
func (s *MetricsService) SyncFailed() {
	s.syncFailures.Inc()
}
