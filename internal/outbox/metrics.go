package outbox

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// DLQ outcomes recorded by the manager.
const (
	dlqOutcomeRequeued       = "requeued"
	dlqOutcomeRetryScheduled = "retry_scheduled"
	dlqOutcomeQuarantined    = "quarantined"
)

var (
	deliveredCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "timetrack",
		Subsystem: "outbox",
		Name:      "events_delivered_total",
		Help:      "Track events published to Kafka, by event type.",
	}, []string{"event_type"})

	failedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "timetrack",
		Subsystem: "outbox",
		Name:      "events_failed_total",
		Help:      "Track events whose batch failed to publish, by event type.",
	}, []string{"event_type"})

	batchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "timetrack",
		Subsystem: "outbox",
		Name:      "batch_duration_seconds",
		Help:      "Time spent fetching, delivering, and marking outbox batches.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
	})

	dlqCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "timetrack",
		Subsystem: "outbox",
		Name:      "events_dlq_total",
		Help:      "Track events routed to the dead-letter queue, by schema subject.",
	}, []string{"schema_subject"})

	dlqTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "timetrack",
		Subsystem: "dlq",
		Name:      "entries_total",
		Help:      "Dead-letter entries handled by the manager, by event type and outcome.",
	}, []string{"event_type", "outcome"})

	dlqBacklog = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "timetrack",
		Subsystem: "dlq",
		Name:      "backlog_entries",
		Help:      "Dead-letter entries awaiting replay, by event type.",
	}, []string{"event_type"})
)

func init() {
	prometheus.MustRegister(deliveredCounter, failedCounter, batchDuration, dlqCounter, dlqTransitions, dlqBacklog)
}

func countByEventType(counter *prometheus.CounterVec, messages []Message) {
	for _, msg := range messages {
		counter.WithLabelValues(msg.EventType).Inc()
	}
}

func recordDLQ(entry dlqEntry, outcome string) {
	dlqTransitions.WithLabelValues(entry.EventType, outcome).Inc()
}

// refreshDLQBacklog replaces the backlog gauge with the current per-type counts.
// Quarantined entries are not part of the backlog.
func refreshDLQBacklog(ctx context.Context, pool *pgxpool.Pool) {
	rows, err := pool.Query(ctx,
		`SELECT event_type, COUNT(*) FROM outbox_dlq WHERE quarantined_at IS NULL GROUP BY event_type`)
	if err != nil {
		return
	}
	defer rows.Close()

	counts := make(map[string]float64)
	for rows.Next() {
		var (
			eventType string
			count     int64
		)
		if err := rows.Scan(&eventType, &count); err != nil {
			return
		}
		counts[eventType] = float64(count)
	}
	if rows.Err() != nil {
		return
	}

	dlqBacklog.Reset()
	for eventType, count := range counts {
		dlqBacklog.WithLabelValues(eventType).Set(count)
	}
}
