// Package storetest holds a conformance suite run against every domain.Store implementation.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/timetrack/internal/domain"
)

// Factory returns an empty store for a single sub-test.
type Factory func(t *testing.T) domain.Store

// Run executes the suite.
func Run(t *testing.T, newStore Factory) {
	t.Run("UserLifecycle", func(t *testing.T) { testUserLifecycle(t, newStore(t)) })
	t.Run("ActivityOrdering", func(t *testing.T) { testActivityOrdering(t, newStore(t)) })
	t.Run("TrackHydration", func(t *testing.T) { testTrackHydration(t, newStore(t)) })
	t.Run("RangeIsHalfOpen", func(t *testing.T) { testRangeIsHalfOpen(t, newStore(t)) })
	t.Run("ListPagination", func(t *testing.T) { testListPagination(t, newStore(t)) })
	t.Run("ListFilters", func(t *testing.T) { testListFilters(t, newStore(t)) })
	t.Run("CascadeDelete", func(t *testing.T) { testCascadeDelete(t, newStore(t)) })
	t.Run("TrackUpdateDelete", func(t *testing.T) { testTrackUpdateDelete(t, newStore(t)) })
}

var base = time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

type fixture struct {
	ann, bob  domain.User
	run, swim domain.Activity
}

func seed(t *testing.T, ctx context.Context, store domain.Store) fixture {
	t.Helper()
	var f fixture
	f.ann = domain.User{Name: "Ann", CreatedAt: base, UpdatedAt: base}
	f.bob = domain.User{Name: "Bob", CreatedAt: base, UpdatedAt: base}
	require.NoError(t, store.CreateUser(ctx, &f.ann))
	require.NoError(t, store.CreateUser(ctx, &f.bob))
	f.run = domain.Activity{Name: "Run", CreatedAt: base, UpdatedAt: base}
	f.swim = domain.Activity{Name: "Swim", CreatedAt: base, UpdatedAt: base}
	require.NoError(t, store.CreateActivity(ctx, &f.run))
	require.NoError(t, store.CreateActivity(ctx, &f.swim))
	return f
}

func addTrack(t *testing.T, ctx context.Context, store domain.Store, user domain.User, activity domain.Activity, start time.Time, d time.Duration) domain.Track {
	t.Helper()
	tr := domain.Track{
		UserID:     user.ID,
		ActivityID: activity.ID,
		StartTime:  start,
		EndTime:    start.Add(d),
		CreatedAt:  base,
		UpdatedAt:  base,
	}
	require.NoError(t, store.CreateTrack(ctx, &tr))
	require.NotZero(t, tr.ID)
	return tr
}

func testUserLifecycle(t *testing.T, store domain.Store) {
	ctx := context.Background()
	user := domain.User{Name: "Ann", CreatedAt: base, UpdatedAt: base}
	require.NoError(t, store.CreateUser(ctx, &user))
	require.NotZero(t, user.ID)

	got, err := store.GetUser(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "Ann", got.Name)
	require.True(t, got.CreatedAt.Equal(base))

	user.Name = "Anna"
	user.UpdatedAt = base.Add(time.Hour)
	require.NoError(t, store.UpdateUser(ctx, &user))
	got, err = store.GetUser(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, "Anna", got.Name)
	require.True(t, got.UpdatedAt.Equal(base.Add(time.Hour)))

	missing, err := store.GetUser(ctx, user.ID+1000)
	require.NoError(t, err)
	require.Nil(t, missing)

	require.ErrorIs(t, store.UpdateUser(ctx, &domain.User{ID: user.ID + 1000, Name: "x"}), domain.ErrNotFound)
	require.NoError(t, store.DeleteUser(ctx, user.ID))
	require.ErrorIs(t, store.DeleteUser(ctx, user.ID), domain.ErrNotFound)
}

func testActivityOrdering(t *testing.T, store domain.Store) {
	ctx := context.Background()
	for _, name := range []string{"Swim", "Code", "Run"} {
		a := domain.Activity{Name: name, CreatedAt: base, UpdatedAt: base}
		require.NoError(t, store.CreateActivity(ctx, &a))
	}
	list, err := store.ListActivities(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, "Code", list[0].Name)
	require.Equal(t, "Run", list[1].Name)
	require.Equal(t, "Swim", list[2].Name)
}

func testTrackHydration(t *testing.T, store domain.Store) {
	ctx := context.Background()
	f := seed(t, ctx, store)
	comment := "morning"
	tr := domain.Track{
		UserID:     f.ann.ID,
		ActivityID: f.run.ID,
		StartTime:  base.Add(6 * time.Hour),
		EndTime:    base.Add(6*time.Hour + 30*time.Minute),
		Comment:    &comment,
		CreatedAt:  base,
		UpdatedAt:  base,
	}
	require.NoError(t, store.CreateTrack(ctx, &tr))

	got, err := store.GetTrack(ctx, tr.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "Ann", got.User.Name)
	require.Equal(t, "Run", got.Activity.Name)
	require.NotNil(t, got.Comment)
	require.Equal(t, "morning", *got.Comment)
	require.Equal(t, 30*time.Minute, got.Duration())
	require.True(t, got.StartTime.Equal(tr.StartTime))

	missing, err := store.GetTrack(ctx, tr.ID+1000)
	require.NoError(t, err)
	require.Nil(t, missing)
}

func testRangeIsHalfOpen(t *testing.T, store domain.Store) {
	ctx := context.Background()
	f := seed(t, ctx, store)
	start, end := base, base.Add(24*time.Hour)

	before := addTrack(t, ctx, store, f.ann, f.run, start.Add(-time.Minute), time.Hour)
	atStart := addTrack(t, ctx, store, f.ann, f.run, start, time.Hour)
	inside := addTrack(t, ctx, store, f.bob, f.swim, start.Add(12*time.Hour), time.Hour)
	atEnd := addTrack(t, ctx, store, f.ann, f.swim, end, time.Hour)

	got, err := store.ListTracksInRange(ctx, start, end)
	require.NoError(t, err)
	ids := trackIDs(got)
	require.Equal(t, []int64{atStart.ID, inside.ID}, ids)
	require.NotContains(t, ids, before.ID)
	require.NotContains(t, ids, atEnd.ID)
	require.Equal(t, "Swim", got[1].Activity.Name)
	require.Equal(t, "Bob", got[1].User.Name)
}

func testListPagination(t *testing.T, store domain.Store) {
	ctx := context.Background()
	f := seed(t, ctx, store)
	var created []domain.Track
	for i := 0; i < 5; i++ {
		created = append(created, addTrack(t, ctx, store, f.ann, f.run, base.Add(time.Duration(i)*time.Hour), time.Minute))
	}

	page1, next, err := store.ListTracks(ctx, domain.TrackFilter{Limit: 2})
	require.NoError(t, err)
	require.Equal(t, []int64{created[4].ID, created[3].ID}, trackIDs(page1))
	require.NotNil(t, next)

	page2, next, err := store.ListTracks(ctx, domain.TrackFilter{Limit: 2, Cursor: next})
	require.NoError(t, err)
	require.Equal(t, []int64{created[2].ID, created[1].ID}, trackIDs(page2))
	require.NotNil(t, next)

	page3, next, err := store.ListTracks(ctx, domain.TrackFilter{Limit: 2, Cursor: next})
	require.NoError(t, err)
	require.Equal(t, []int64{created[0].ID}, trackIDs(page3))
	require.Nil(t, next)
}

func testListFilters(t *testing.T, store domain.Store) {
	ctx := context.Background()
	f := seed(t, ctx, store)
	a := addTrack(t, ctx, store, f.ann, f.run, base.Add(time.Hour), time.Minute)
	b := addTrack(t, ctx, store, f.bob, f.run, base.Add(2*time.Hour), time.Minute)
	c := addTrack(t, ctx, store, f.ann, f.swim, base.Add(26*time.Hour), time.Minute)

	from, to := base, base.Add(24*time.Hour)
	got, _, err := store.ListTracks(ctx, domain.TrackFilter{From: &from, To: &to, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, []int64{b.ID, a.ID}, trackIDs(got))

	got, _, err = store.ListTracks(ctx, domain.TrackFilter{UserID: &f.ann.ID, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, []int64{c.ID, a.ID}, trackIDs(got))

	got, _, err = store.ListTracks(ctx, domain.TrackFilter{ActivityID: &f.swim.ID, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, []int64{c.ID}, trackIDs(got))
}

func testCascadeDelete(t *testing.T, store domain.Store) {
	ctx := context.Background()
	f := seed(t, ctx, store)
	annRun := addTrack(t, ctx, store, f.ann, f.run, base, time.Hour)
	bobSwim := addTrack(t, ctx, store, f.bob, f.swim, base, time.Hour)
	bobRun := addTrack(t, ctx, store, f.bob, f.run, base.Add(time.Hour), time.Hour)

	require.NoError(t, store.DeleteUser(ctx, f.ann.ID))
	gone, err := store.GetTrack(ctx, annRun.ID)
	require.NoError(t, err)
	require.Nil(t, gone)

	require.NoError(t, store.DeleteActivity(ctx, f.run.ID))
	gone, err = store.GetTrack(ctx, bobRun.ID)
	require.NoError(t, err)
	require.Nil(t, gone)

	kept, err := store.GetTrack(ctx, bobSwim.ID)
	require.NoError(t, err)
	require.NotNil(t, kept)
}

func testTrackUpdateDelete(t *testing.T, store domain.Store) {
	ctx := context.Background()
	f := seed(t, ctx, store)
	tr := addTrack(t, ctx, store, f.ann, f.run, base, time.Hour)

	tr.ActivityID = f.swim.ID
	tr.EndTime = base.Add(2 * time.Hour)
	require.NoError(t, store.UpdateTrack(ctx, &tr))

	got, err := store.GetTrack(ctx, tr.ID)
	require.NoError(t, err)
	require.Equal(t, "Swim", got.Activity.Name)
	require.Equal(t, 2*time.Hour, got.Duration())

	require.NoError(t, store.DeleteTrack(ctx, tr.ID))
	require.ErrorIs(t, store.DeleteTrack(ctx, tr.ID), domain.ErrNotFound)
	require.ErrorIs(t, store.UpdateTrack(ctx, &tr), domain.ErrNotFound)
}

func trackIDs(tracks []domain.Track) []int64 {
	ids := make([]int64, 0, len(tracks))
	for _, tr := range tracks {
		ids = append(ids, tr.ID)
	}
	return ids
}
