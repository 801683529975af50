// Package metrics holds the Prometheus collectors for items-api.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Refresh triggers
const (
	TriggerRequest = "request"
	TriggerWatch   = "watch"
)

var (
	StatsCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "items_stats_cache_hits_total",
		Help: "Stats requests served from the in-memory cache.",
	})
	StatsCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "items_stats_cache_misses_total",
		Help: "Stats requests that had to recompute the summary.",
	})
	StatsInvalidations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "items_stats_cache_invalidations_total",
		Help: "Change notifications that cleared the stats cache.",
	})
	StatsComputations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "items_stats_computations_total",
		Help: "Summary computations by trigger.",
	}, []string{"trigger"})
	StatsRefreshFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "items_stats_refresh_failures_total",
		Help: "Background refreshes that failed to reload the items file.",
	})
	StatsComputeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "items_stats_compute_duration_seconds",
		Help:    "Time spent loading the items file and computing the summary.",
		Buckets: prometheus.DefBuckets,
	}, []string{"trigger"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "items_http_requests_total",
		Help: "HTTP requests by method and status code.",
	}, []string{"method", "code"})
)
