package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the per-service HTTP and backend metrics. Each instance owns its
// registry; the package-level crypto and storage collectors live in the default
// registry and are exposed alongside it.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP Request Metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Database Metrics
	dbQueryDuration    *prometheus.HistogramVec
	dbQueryErrorsTotal *prometheus.CounterVec

	// Redis Metrics
	redisCommandsTotal   *prometheus.CounterVec
	redisCommandDuration *prometheus.HistogramVec
	redisErrorsTotal     *prometheus.CounterVec

	// Auth Metrics
	authAttemptsTotal *prometheus.CounterVec
	authFailuresTotal *prometheus.CounterVec
}

// NewMetrics creates and registers the service metrics
func NewMetrics(serviceName string) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	labels := prometheus.Labels{"service": serviceName}

	m := &Metrics{
		registry: reg,

		// HTTP Request Metrics
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "http_requests_total",
				Help:        "Total number of HTTP requests",
				ConstLabels: labels,
			},
			[]string{"method", "endpoint", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "http_request_duration_seconds",
				Help:        "HTTP request latency in seconds",
				ConstLabels: labels,
				Buckets:     prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		httpRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name:        "http_requests_in_flight",
				Help:        "Number of HTTP requests currently being processed",
				ConstLabels: labels,
			},
		),

		// Database Metrics
		dbQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "db_query_duration_seconds",
				Help:        "Database query latency in seconds",
				ConstLabels: labels,
				Buckets:     prometheus.DefBuckets,
			},
			[]string{"operation", "table"},
		),
		dbQueryErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "db_query_errors_total",
				Help:        "Total number of database query errors",
				ConstLabels: labels,
			},
			[]string{"operation", "table"},
		),

		// Redis Metrics
		redisCommandsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "redis_commands_total",
				Help:        "Total number of Redis commands",
				ConstLabels: labels,
			},
			[]string{"command"},
		),
		redisCommandDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "redis_command_duration_seconds",
				Help:        "Redis command latency in seconds",
				ConstLabels: labels,
				Buckets:     prometheus.DefBuckets,
			},
			[]string{"command"},
		),
		redisErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "redis_errors_total",
				Help:        "Total number of Redis errors",
				ConstLabels: labels,
			},
			[]string{"command"},
		),

		// Auth Metrics
		authAttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "auth_attempts_total",
				Help:        "Total number of token verification attempts",
				ConstLabels: labels,
			},
			[]string{"provider"},
		),
		authFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "auth_failures_total",
				Help:        "Total number of token verification failures",
				ConstLabels: labels,
			},
			[]string{"provider", "reason"},
		),
	}

	return m
}

// GetRegistry returns a gatherer over the service registry and the default one
func (m *Metrics) GetRegistry() prometheus.Gatherer {
	if m == nil || m.registry == nil {
		return nil
	}
	return prometheus.Gatherers{m.registry, prometheus.DefaultGatherer}
}

// HTTP Metrics Methods

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// IncrementHTTPRequestsInFlight increments the number of in-flight HTTP requests
func (m *Metrics) IncrementHTTPRequestsInFlight() {
	m.httpRequestsInFlight.Inc()
}

// DecrementHTTPRequestsInFlight decrements the number of in-flight HTTP requests
func (m *Metrics) DecrementHTTPRequestsInFlight() {
	m.httpRequestsInFlight.Dec()
}

// Database Metrics Methods

// RecordDBQuery records a database query
func (m *Metrics) RecordDBQuery(operation, table string, duration time.Duration, err error) {
	m.dbQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		m.dbQueryErrorsTotal.WithLabelValues(operation, table).Inc()
	}
}

// Redis Metrics Methods

// RecordRedisCommand records a Redis command
func (m *Metrics) RecordRedisCommand(command string, duration time.Duration, err error) {
	m.redisCommandsTotal.WithLabelValues(command).Inc()
	m.redisCommandDuration.WithLabelValues(command).Observe(duration.Seconds())
	if err != nil {
		m.redisErrorsTotal.WithLabelValues(command).Inc()
	}
}

// Auth Metrics Methods

// RecordAuthAttempt records a token verification attempt
func (m *Metrics) RecordAuthAttempt(provider string) {
	m.authAttemptsTotal.WithLabelValues(provider).Inc()
}

// RecordAuthFailure records a failed token verification
func (m *Metrics) RecordAuthFailure(provider, reason string) {
	m.authFailuresTotal.WithLabelValues(provider, reason).Inc()
}
