package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wallfeed_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// RemoteRequestLatency records remote authority latency by endpoint and outcome.
	RemoteRequestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wallfeed_remote_request_latency_seconds",
		Help:    "Remote authority request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint", "outcome"})

	// FeedRefreshes counts feed refreshes by outcome (ok, error, stale, snapshot).
	FeedRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wallfeed_feed_refreshes_total",
		Help: "Total number of feed refreshes by outcome",
	}, []string{"outcome"})

	// FeedWorkingSetSize is the number of posts in the current working set.
	FeedWorkingSetSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wallfeed_feed_working_set_size",
		Help: "Number of posts in the in-memory working set",
	})

	// EngagementActions counts engagement actions by action and outcome.
	EngagementActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wallfeed_engagement_actions_total",
		Help: "Total engagement actions by action and outcome",
	}, []string{"action", "outcome"})

	// LayoutSpread records the height difference between the tallest and the
	// shortest column after each layout pass.
	LayoutSpread = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "wallfeed_layout_spread",
		Help:    "Height difference between tallest and shortest column",
		Buckets: prometheus.LinearBuckets(0, 40, 10),
	})
)

// ObserveRemote records the latency of a remote request started at start.
func ObserveRemote(endpoint, outcome string, start time.Time) {
	RemoteRequestLatency.WithLabelValues(endpoint, outcome).Observe(time.Since(start).Seconds())
}

// RecordEngagement increments the engagement counter for action and outcome.
func RecordEngagement(action, outcome string) {
	EngagementActions.WithLabelValues(action, outcome).Inc()
}
