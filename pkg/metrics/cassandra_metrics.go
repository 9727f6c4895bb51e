package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cassandra and object storage metrics for the envelope and backup stores
var (
	CassandraQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cassandra_query_duration_seconds",
		Help:    "Cassandra query latency in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"operation", "table"})

	CassandraQueryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cassandra_query_total",
		Help: "Total number of Cassandra queries executed",
	}, []string{"operation", "table", "status"})

	CassandraQueryTimeoutTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cassandra_query_timeout_total",
		Help: "Total number of Cassandra query timeouts",
	}, []string{"operation", "table"})

	ObjectStoreOperationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "object_store_operation_total",
		Help: "Total number of object storage operations",
	}, []string{"operation", "status"})

	ObjectStoreBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "object_store_bytes_total",
		Help: "Bytes transferred to and from object storage",
	}, []string{"direction"})
)

// RecordCassandraQuery records a Cassandra query outcome and latency
func RecordCassandraQuery(operation, table, status string, seconds float64) {
	CassandraQueryTotal.WithLabelValues(operation, table, status).Inc()
	CassandraQueryDuration.WithLabelValues(operation, table).Observe(seconds)
}

// RecordCassandraQueryTimeout records a Cassandra query timeout
func RecordCassandraQueryTimeout(operation, table string) {
	CassandraQueryTimeoutTotal.WithLabelValues(operation, table).Inc()
}

// RecordObjectStoreOperation records a MinIO operation
func RecordObjectStoreOperation(operation, status string) {
	ObjectStoreOperationTotal.WithLabelValues(operation, status).Inc()
}

// RecordObjectStoreBytes records transferred bytes ("upload" or "download")
func RecordObjectStoreBytes(direction string, n int64) {
	if n > 0 {
		ObjectStoreBytes.WithLabelValues(direction).Add(float64(n))
	}
}
