package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"STORE_DRIVER", "KAFKA_ENABLED", "KAFKA_BROKERS", "DEFAULT_TIMEZONE", "OUTBOX_BATCH_SIZE"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	require.Equal(t, DriverPostgres, cfg.StoreDriver)
	require.False(t, cfg.KafkaEnabled)
	require.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	require.Equal(t, "UTC", cfg.DefaultTimezone)
	require.Equal(t, 25, cfg.OutboxBatchSize)
	require.Equal(t, []string{"track_events"}, cfg.ConsumerTopics)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "SQLite")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", " a:9092, ,b:9092 ")
	t.Setenv("DLQ_BASE_DELAY", "90s")
	t.Setenv("DLQ_MAX_RETRIES", "not-a-number")

	cfg := Load()
	require.Equal(t, DriverSQLite, cfg.StoreDriver)
	require.True(t, cfg.KafkaEnabled)
	require.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
	require.Equal(t, 90*time.Second, cfg.DLQBaseDelay)
	require.Equal(t, 5, cfg.DLQMaxRetries)
}
