package outbox

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"example.com/timetrack/internal/events"
)

func TestCountByEventType(t *testing.T) {
	created := deliveredCounter.WithLabelValues(events.TypeTrackCreated)
	deleted := deliveredCounter.WithLabelValues(events.TypeTrackDeleted)
	beforeCreated, beforeDeleted := testutil.ToFloat64(created), testutil.ToFloat64(deleted)

	countByEventType(deliveredCounter, []Message{
		trackMessage(1, events.TypeTrackCreated, events.SubjectTrackChanged),
		trackMessage(2, events.TypeTrackCreated, events.SubjectTrackChanged),
		trackMessage(3, events.TypeTrackDeleted, events.SubjectTrackDeleted),
	})

	require.InDelta(t, beforeCreated+2, testutil.ToFloat64(created), 0.0001)
	require.InDelta(t, beforeDeleted+1, testutil.ToFloat64(deleted), 0.0001)
}

func TestRecordDLQByOutcome(t *testing.T) {
	entry := dlqEntry{EventType: events.TypeTrackUpdated, Topic: events.TopicTrackEvents}
	retried := dlqTransitions.WithLabelValues(events.TypeTrackUpdated, dlqOutcomeRetryScheduled)
	quarantined := dlqTransitions.WithLabelValues(events.TypeTrackUpdated, dlqOutcomeQuarantined)
	beforeRetried, beforeQuarantined := testutil.ToFloat64(retried), testutil.ToFloat64(quarantined)

	recordDLQ(entry, dlqOutcomeRetryScheduled)
	recordDLQ(entry, dlqOutcomeRetryScheduled)
	recordDLQ(entry, dlqOutcomeQuarantined)

	require.InDelta(t, beforeRetried+2, testutil.ToFloat64(retried), 0.0001)
	require.InDelta(t, beforeQuarantined+1, testutil.ToFloat64(quarantined), 0.0001)
}

func TestKafkaProducerReusesWriterPerTopic(t *testing.T) {
	p := NewKafkaProducer([]string{"localhost:9092"})

	w := p.writer(events.TopicTrackEvents)
	require.Same(t, w, p.writer(events.TopicTrackEvents))
	require.Equal(t, producerBatchTimeout, w.BatchTimeout)
	require.NotNil(t, w.ErrorLogger)

	require.NoError(t, p.WriteMessages(context.Background(), events.TopicTrackEvents))
	require.NoError(t, p.Close())
	require.Empty(t, p.writers)
}
