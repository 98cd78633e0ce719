// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DepositsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deposits_total",
			Help: "Processed deposits by outcome",
		},
		[]string{"outcome"},
	)

	DepositAmount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deposit_amount_total",
			Help: "Total deposited amount in MUSD",
		},
	)

	ActivationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "activations_total",
			Help: "Accounts that crossed the activation threshold",
		},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ResponseTime = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_time_seconds",
			Help:    "Histogram of response times",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)
