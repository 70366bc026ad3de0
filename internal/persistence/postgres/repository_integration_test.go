//go:build integration

package postgres_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/timetrack/internal/domain"
	"example.com/timetrack/internal/events"
	"example.com/timetrack/internal/persistence/postgres"
	"example.com/timetrack/internal/persistence/postgres/pgtest"
	"example.com/timetrack/internal/persistence/storetest"
)

func TestRepositoryConformance(t *testing.T) {
	pool := pgtest.Start(t)
	storetest.Run(t, func(t *testing.T) domain.Store {
		pgtest.Truncate(t, pool)
		return postgres.NewRepository(pool)
	})
}

func TestRepositoryRecordsOutboxEvents(t *testing.T) {
	ctx := context.Background()
	pool := pgtest.Start(t)
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	repo := postgres.NewRepository(pool, postgres.WithOutbox(), postgres.WithClock(func() time.Time { return now }))

	user := domain.User{Name: "Ann", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, repo.CreateUser(ctx, &user))
	activity := domain.Activity{Name: "Run", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, repo.CreateActivity(ctx, &activity))

	track := domain.Track{
		UserID:     user.ID,
		ActivityID: activity.ID,
		StartTime:  now.Add(-time.Hour),
		EndTime:    now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, repo.CreateTrack(ctx, &track))
	track.EndTime = now.Add(30 * time.Minute)
	require.NoError(t, repo.UpdateTrack(ctx, &track))
	require.NoError(t, repo.DeleteUser(ctx, user.ID))

	rows, err := pool.Query(ctx, `SELECT event_type, topic, schema_subject, partition_key, payload FROM outbox ORDER BY event_id`)
	require.NoError(t, err)
	defer rows.Close()

	var types []string
	var payloads [][]byte
	for rows.Next() {
		var eventType, topic, subject, key string
		var payload []byte
		require.NoError(t, rows.Scan(&eventType, &topic, &subject, &key, &payload))
		require.Equal(t, events.TopicTrackEvents, topic)
		require.NotEmpty(t, subject)
		require.Equal(t, "1", key)
		types = append(types, eventType)
		payloads = append(payloads, payload)
	}
	require.NoError(t, rows.Err())
	require.Equal(t, []string{events.TypeTrackCreated, events.TypeTrackUpdated, events.TypeTrackDeleted}, types)

	var updated events.TrackChanged
	require.NoError(t, json.Unmarshal(payloads[1], &updated))
	require.Equal(t, track.ID, updated.TrackID)
	require.InDelta(t, 90.0, updated.DurationMin, 0.001)

	var deleted events.TrackDeleted
	require.NoError(t, json.Unmarshal(payloads[2], &deleted))
	require.Equal(t, "user_deleted", deleted.Reason)
}

func TestRepositoryRejectsUnknownReferences(t *testing.T) {
	ctx := context.Background()
	pool := pgtest.Start(t)
	repo := postgres.NewRepository(pool)
	now := time.Now().UTC()

	user := domain.User{Name: "Ann", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, repo.CreateUser(ctx, &user))

	err := repo.CreateTrack(ctx, &domain.Track{
		UserID:     user.ID,
		ActivityID: 999,
		StartTime:  now,
		EndTime:    now.Add(time.Minute),
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "activity_id")
}
