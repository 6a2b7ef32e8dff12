package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Normalizations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "negotiation_normalizations_total",
			Help: "Analytics documents normalized, by detected shape",
		},
		[]string{"shape"},
	)

	StatisticsLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "statistics_lookups_total",
			Help: "Vendor statistics lookups, by where the answer came from",
		},
		[]string{"source"},
	)

	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backend_requests_total",
			Help: "Requests sent to the REST backend",
		},
		[]string{"endpoint", "outcome"},
	)

	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backend_request_duration_seconds",
			Help:    "Latency of REST backend calls in seconds, retries included",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests served, by route pattern and status code",
		},
		[]string{"route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)
