// Package metrics holds the Prometheus collectors for mallstore.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	collectionMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mallstore",
			Subsystem: "collection",
			Name:      "mutations_total",
			Help:      "Collection mutations by outcome.",
		},
		[]string{"collection", "op", "result"},
	)

	mergeRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mallstore",
			Subsystem: "collection",
			Name:      "merge_retries_total",
			Help:      "Adds that lost a race and were retried as a merge.",
		},
		[]string{"collection"},
	)

	viewInvalidations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mallstore",
			Subsystem: "views",
			Name:      "invalidations_total",
			Help:      "Invalidation fan-outs by mutation kind.",
		},
		[]string{"kind"},
	)

	readRebuilds = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mallstore",
			Subsystem: "read",
			Name:      "rebuilds_total",
			Help:      "Derived views refetched because they were stale.",
		},
		[]string{"view"},
	)

	gatewayCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mallstore",
			Subsystem: "gateway",
			Name:      "calls_total",
			Help:      "Remote store calls by backend, operation and outcome.",
		},
		[]string{"backend", "op", "success"},
	)

	gatewayDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mallstore",
			Subsystem: "gateway",
			Name:      "call_duration_seconds",
			Help:      "Duration of remote store calls.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
		},
		[]string{"backend", "op"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mallstore",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)
)

func init() {
	Registry.MustRegister(
		collectionMutations,
		mergeRetries,
		viewInvalidations,
		readRebuilds,
		gatewayCalls,
		gatewayDuration,
		httpRequests,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordMutation counts one collection mutation. result is "ok" or an
// error code.
func RecordMutation(collection, op, result string) {
	collectionMutations.WithLabelValues(collection, op, result).Inc()
}

// RecordMergeRetry counts a cart add that lost a race to a concurrent add
// and was retried.
func RecordMergeRetry(collection string) {
	mergeRetries.WithLabelValues(collection).Inc()
}

// RecordInvalidation counts one fan-out for a mutation kind.
func RecordInvalidation(kind string) {
	viewInvalidations.WithLabelValues(kind).Inc()
}

// RecordRebuild counts a stale view being refetched. view is the key's
// family (the part before the first ':').
func RecordRebuild(view string) {
	if i := strings.IndexByte(view, ':'); i >= 0 {
		view = view[:i]
	}
	readRebuilds.WithLabelValues(view).Inc()
}

// RecordGatewayCall records one remote store call.
func RecordGatewayCall(backend, op string, duration time.Duration, err error) {
	gatewayCalls.WithLabelValues(backend, op, strconv.FormatBool(err == nil)).Inc()
	gatewayDuration.WithLabelValues(backend, op).Observe(duration.Seconds())
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		httpRequests.WithLabelValues(strings.ToUpper(r.Method), canonicalPath(r.URL.Path), strconv.Itoa(rec.status)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// canonicalPath keeps label cardinality bounded: only the first segment.
func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	return "/" + strings.SplitN(trimmed, "/", 2)[0]
}
