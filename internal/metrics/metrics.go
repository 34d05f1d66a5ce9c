package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the server.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPInFlight        prometheus.Gauge

	RateLimitExceededTotal *prometheus.CounterVec
	CacheResultsTotal      *prometheus.CounterVec

	FeedAssemblySeconds *prometheus.HistogramVec
	FeedBatchesTotal    *prometheus.CounterVec
	FeedItems           *prometheus.HistogramVec

	NotificationsSentTotal   *prometheus.CounterVec
	NotificationsFailedTotal *prometheus.CounterVec
	NotificationsDropped     prometheus.Counter

	QueueDepth       prometheus.Gauge
	JobsTotal        *prometheus.CounterVec
	WebsocketClients prometheus.Gauge

	SearchQueriesTotal  *prometheus.CounterVec
	SearchIndexOpsTotal *prometheus.CounterVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Initialize registers every collector with the default registry. Safe to call repeatedly.
func Initialize() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			HTTPRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{"method", "path"},
			),
			HTTPInFlight: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Requests currently being served",
			}),
			RateLimitExceededTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "rate_limit_exceeded_total",
					Help: "Requests rejected by the rate limiter",
				},
				[]string{"path"},
			),
			CacheResultsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "response_cache_results_total",
					Help: "Response cache lookups by result",
				},
				[]string{"result"},
			),
			FeedAssemblySeconds: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "feed_assembly_duration_seconds",
					Help:    "Time to assemble a feed",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"mode"},
			),
			FeedBatchesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "feed_batch_queries_total",
					Help: "Membership batch queries issued by the following feed",
				},
				[]string{"result"},
			),
			FeedItems: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "feed_items",
					Help:    "Items returned per feed request",
					Buckets: prometheus.ExponentialBuckets(1, 2, 10),
				},
				[]string{"mode"},
			),
			NotificationsSentTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "notifications_sent_total",
					Help: "Notification rows written",
				},
				[]string{"type"},
			),
			NotificationsFailedTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "notifications_failed_total",
					Help: "Notification writes that failed and were dropped",
				},
				[]string{"type"},
			),
			NotificationsDropped: promauto.NewCounter(prometheus.CounterOpts{
				Name: "notifications_queue_dropped_total",
				Help: "Notification events dropped because the queue was full",
			}),
			QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "job_queue_depth",
				Help: "Jobs waiting in the background queue",
			}),
			JobsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "jobs_processed_total",
					Help: "Background jobs processed",
				},
				[]string{"kind", "result"},
			),
			WebsocketClients: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "websocket_clients",
				Help: "Connected websocket clients",
			}),
			SearchQueriesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "search_queries_total",
					Help: "Search queries by backend",
				},
				[]string{"backend", "type"},
			),
			SearchIndexOpsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "search_index_operations_total",
					Help: "Elasticsearch document writes by index and result",
				},
				[]string{"index", "operation", "result"},
			),
		}
	})
	return instance
}

// Get returns the collectors, initializing them on first use.
func Get() *Metrics {
	return Initialize()
}
