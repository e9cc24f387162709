package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UpstreamCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clearskies_upstream_calls_total",
			Help: "Total Open-Meteo API calls",
		},
		[]string{"endpoint", "status"},
	)

	UpstreamLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clearskies_upstream_latency_seconds",
			Help:    "Open-Meteo API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clearskies_cache_lookups_total",
			Help: "Forecast payload cache lookups",
		},
		[]string{"backend", "result"},
	)

	ForecastsNormalized = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clearskies_forecasts_total",
			Help: "Forecast loads by outcome (ok, absent)",
		},
		[]string{"outcome"},
	)

	SnapshotRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clearskies_snapshot_refreshes_total",
			Help: "Scheduled snapshot refreshes by outcome",
		},
		[]string{"outcome"},
	)

	WaitlistSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clearskies_waitlist_submissions_total",
			Help: "Waitlist submissions by outcome",
		},
		[]string{"outcome"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clearskies_http_requests_total",
			Help: "HTTP requests served",
		},
		[]string{"route", "method", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clearskies_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
)
