// Package metrics exposes Prometheus instruments for the ledger engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LedgerOps counts ledger mutations by operation and outcome.
	LedgerOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "splitledger_ledger_operations_total",
		Help: "Ledger mutations by operation and outcome.",
	}, []string{"op", "outcome"})

	// OpDuration observes ledger mutation latency.
	OpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "splitledger_ledger_operation_seconds",
		Help:    "Ledger mutation latency in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})

	// HTTPRequests counts HTTP requests by path and status.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "splitledger_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "status"})
)

// Observe records one ledger operation.
func Observe(op string, seconds float64, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	LedgerOps.WithLabelValues(op, outcome).Inc()
	OpDuration.WithLabelValues(op).Observe(seconds)
}
