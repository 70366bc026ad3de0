package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	trackPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "timetrack",
		Subsystem: "persistence",
		Name:      "last_track_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent track written to the store.",
	})

	recapRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "timetrack",
		Subsystem: "recap",
		Name:      "requests_total",
		Help:      "Recap computations grouped by mode and outcome.",
	}, []string{"mode", "outcome"})

	recapDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "timetrack",
		Subsystem: "recap",
		Name:      "duration_seconds",
		Help:      "Time spent parsing, querying and aggregating a recap.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	}, []string{"mode"})

	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "timetrack",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests grouped by method and status code.",
	}, []string{"method", "code"})
)

func init() {
	prometheus.MustRegister(trackPersistGauge, recapRequests, recapDuration, httpRequests)
}

// RecordTrackPersisted updates the persistence watermark gauge.
func RecordTrackPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	trackPersistGauge.Set(float64(ts.Unix()))
}

// RecordRecap counts a recap computation and observes its latency.
func RecordRecap(mode, outcome string, elapsed time.Duration) {
	recapRequests.WithLabelValues(mode, outcome).Inc()
	recapDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

// RecordHTTPRequest counts a served HTTP request.
func RecordHTTPRequest(method string, code int) {
	httpRequests.WithLabelValues(method, statusLabel(code)).Inc()
}

func statusLabel(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
