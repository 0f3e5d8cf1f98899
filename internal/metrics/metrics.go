// Package metrics declares the Prometheus collectors of the service
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "agrobench"

var (
	// RequestTotal counts HTTP requests by method, route and status
	RequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// RequestDuration is the latency of HTTP requests
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// QueriesTotal counts engine operations (query, median, frequency) by table and outcome
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Total number of query engine operations",
		},
		[]string{"operation", "table", "status"},
	)

	// QueryDuration is the latency of engine operations
	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Query engine operation latency in seconds",
			Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"operation", "table"},
	)

	// PredictionRequests counts calls forwarded to the prediction model by outcome
	PredictionRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prediction_requests_total",
			Help:      "Total number of requests forwarded to the prediction service",
		},
		[]string{"status"},
	)

	// DBConnections reports the storage pool by state (open, in_use, idle)
	DBConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections",
			Help:      "Database pool connections by state",
		},
		[]string{"state"},
	)

	// DBWaitTotal is the cumulative number of connections waited for
	DBWaitTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_wait_count",
			Help:      "Cumulative number of waits for a database connection",
		},
	)
)

// ObserveQuery records one engine operation
func ObserveQuery(operation, table string, err error, elapsed time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}

	QueriesTotal.WithLabelValues(operation, table, status).Inc()
	QueryDuration.WithLabelValues(operation, table).Observe(elapsed.Seconds())
}

// Handler returns the Prometheus HTTP handler for /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
