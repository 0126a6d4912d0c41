package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(dbQueryLatencyMs, cacheHits)
}

var (
	dbQueryLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_latency_ms",
			Help:    "Postgres query latency distribution in milliseconds.",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"query", "success"},
	)

	cacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_requests_total",
			Help: "History cache requests by result (hit/miss/error).",
		},
		[]string{"result"},
	)
)

// ObserveQuery records one repository query.
// Usage: defer metrics.ObserveQuery("append_message", time.Now(), &err)
func ObserveQuery(query string, start time.Time, errp *error) func() {
	return func() {
		success := errp == nil || *errp == nil
		dbQueryLatencyMs.WithLabelValues(query, strconv.FormatBool(success)).
			Observe(float64(time.Since(start).Milliseconds()))
	}
}

func CacheResult(result string) {
	cacheHits.WithLabelValues(result).Inc()
}
