package consumer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultStored = "stored"
	resultFailed = "failed"
)

var (
	eventsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "timetrack",
		Subsystem: "consumer",
		Name:      "track_events_total",
		Help:      "Track events handled by the consumer, by event type, schema subject and result.",
	}, []string{"event_type", "schema_subject", "result"})

	decodeErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "timetrack",
		Subsystem: "consumer",
		Name:      "decode_errors_total",
		Help:      "Records that were not framed track events, by topic.",
	}, []string{"topic"})

	eventLag = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "timetrack",
		Subsystem: "consumer",
		Name:      "event_lag_seconds",
		Help:      "Delay between a track event being produced and being stored.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 4, 10),
	}, []string{"event_type"})
)

func init() {
	prometheus.MustRegister(eventsCounter, decodeErrorCounter, eventLag)
}

func recordProcessed(msg Message) {
	eventsCounter.WithLabelValues(msg.EventType, msg.SchemaSubject, resultStored).Inc()
	if !msg.Timestamp.IsZero() {
		eventLag.WithLabelValues(msg.EventType).Observe(time.Since(msg.Timestamp).Seconds())
	}
}

func recordHandlerError(msg Message) {
	eventsCounter.WithLabelValues(msg.EventType, msg.SchemaSubject, resultFailed).Inc()
}

func recordDecodeError(topic string) {
	decodeErrorCounter.WithLabelValues(topic).Inc()
}
