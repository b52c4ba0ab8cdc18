// Package metrics registers the Prometheus instruments for the trading
// engine. Everything is registered at init via promauto and exposed on
// /metrics by the HTTP server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marginfx_orders_executed_total",
		Help: "Orders executed and filled, by side.",
	}, []string{"side"})

	OrdersRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marginfx_orders_rejected_total",
		Help: "Order executions that failed validation or margin checks.",
	})

	PositionsClosed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marginfx_positions_closed_total",
		Help: "Position closes, full or partial.",
	}, []string{"kind"})

	InvariantViolations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marginfx_invariant_violations_total",
		Help: "Internal arithmetic invariants that failed during settlement.",
	})

	EventPublishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marginfx_event_publish_failures_total",
		Help: "Domain events that could not be published after commit.",
	})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "marginfx_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method", "status"})
)
