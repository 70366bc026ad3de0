package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/timetrack/internal/domain"
	"example.com/timetrack/internal/persistence/storetest"
)

func TestStoreConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) domain.Store {
		store, err := Open(context.Background(), MemoryPath)
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })
		return store
	})
}

func TestStoreRejectsUnknownReferences(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, MemoryPath)
	require.NoError(t, err)
	defer store.Close()

	now := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	err = store.CreateTrack(ctx, &domain.Track{UserID: 7, ActivityID: 8, StartTime: now, EndTime: now.Add(time.Hour)})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Fields, "user_id")
	require.Contains(t, verr.Fields, "activity_id")
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "timetrack.db")

	store, err := Open(ctx, path)
	require.NoError(t, err)
	now := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	user := domain.User{Name: "Ann", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, store.CreateUser(ctx, &user))
	require.NoError(t, store.Close())

	reopened, err := Open(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.GetUser(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "Ann", got.Name)
}
