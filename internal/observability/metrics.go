package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pawfeed_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// StoreQueryLatency records store latency by backend, operation and table.
	StoreQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pawfeed_store_query_latency_seconds",
		Help:    "Post store query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"backend", "operation", "table"})

	// PostsCreated counts successful post creations.
	PostsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pawfeed_posts_created_total",
		Help: "Total number of posts created",
	})

	// PostsDeleted counts successful post deletions.
	PostsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pawfeed_posts_deleted_total",
		Help: "Total number of posts deleted",
	})

	// LikesToggled counts like toggles by resulting action.
	LikesToggled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pawfeed_likes_toggled_total",
		Help: "Total number of like toggles by action",
	}, []string{"action"})

	// LikeToggleRetries counts toggles that had to retry after a concurrent toggle by the same actor.
	LikeToggleRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pawfeed_like_toggle_retries_total",
		Help: "Total number of like toggle convergence retries",
	})

	// CommentsAdded counts appended comments.
	CommentsAdded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pawfeed_comments_added_total",
		Help: "Total number of comments added",
	})

	// BlobReleaseFailures counts blob handles that could not be released after a post delete.
	BlobReleaseFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pawfeed_blob_release_failures_total",
		Help: "Total number of failed blob releases",
	})

	// EventPublishFailures counts domain events that could not be published.
	EventPublishFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pawfeed_event_publish_failures_total",
		Help: "Total number of domain events that failed to publish",
	}, []string{"backend", "subject"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(backend, operation, table string) func() {
	start := time.Now()
	return func() {
		StoreQueryLatency.WithLabelValues(backend, operation, table).Observe(time.Since(start).Seconds())
	}
}
