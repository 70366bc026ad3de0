package domain_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/timetrack/internal/domain"
	"example.com/timetrack/internal/persistence/memory"
)

var fixedNow = time.Date(2024, time.March, 13, 12, 0, 0, 0, time.UTC)

func newService() *domain.Service {
	return domain.NewService(memory.NewStore(), domain.WithNow(func() time.Time { return fixedNow }))
}

func ptr[T any](v T) *T { return &v }

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	return verr.Fields
}

func TestNameValidation(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	_, err := svc.CreateUser(ctx, domain.NameInput{})
	require.Equal(t, "this field is required", fieldErrors(t, err)["name"])

	_, err = svc.CreateUser(ctx, domain.NameInput{Name: ptr("  ")})
	require.Equal(t, "this field may not be blank", fieldErrors(t, err)["name"])

	_, err = svc.CreateActivity(ctx, domain.NameInput{Name: ptr(strings.Repeat("x", 256))})
	require.Contains(t, fieldErrors(t, err)["name"], "255")

	activity, err := svc.CreateActivity(ctx, domain.NameInput{Name: ptr(strings.Repeat("é", 255))})
	require.NoError(t, err)
	require.Equal(t, fixedNow, activity.CreatedAt)
}

func TestUpdateUserFullAndPartial(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	user, err := svc.CreateUser(ctx, domain.NameInput{Name: ptr("Ann")})
	require.NoError(t, err)

	_, err = svc.UpdateUser(ctx, user.ID, domain.NameInput{}, false)
	require.Contains(t, fieldErrors(t, err), "name")

	same, err := svc.UpdateUser(ctx, user.ID, domain.NameInput{}, true)
	require.NoError(t, err)
	require.Equal(t, "Ann", same.Name)

	renamed, err := svc.UpdateUser(ctx, user.ID, domain.NameInput{Name: ptr(" Anna ")}, false)
	require.NoError(t, err)
	require.Equal(t, "Anna", renamed.Name)

	_, err = svc.UpdateUser(ctx, 999, domain.NameInput{Name: ptr("Ghost")}, false)
	require.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, svc.DeleteUser(ctx, user.ID))
	_, err = svc.GetUser(ctx, user.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.ErrorIs(t, svc.DeleteUser(ctx, user.ID), domain.ErrNotFound)
}

func seedRefs(t *testing.T, svc *domain.Service) (*domain.User, *domain.Activity) {
	t.Helper()

	ctx := context.Background()
	user, err := svc.CreateUser(ctx, domain.NameInput{Name: ptr("Ann")})
	require.NoError(t, err)
	activity, err := svc.CreateActivity(ctx, domain.NameInput{Name: ptr("Run")})
	require.NoError(t, err)
	return user, activity
}

func TestCreateTrackValidation(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	user, activity := seedRefs(t, svc)
	start := time.Date(2024, 3, 10, 6, 0, 0, 0, time.UTC)

	_, err := svc.CreateTrack(ctx, domain.TrackInput{})
	fields := fieldErrors(t, err)
	for _, f := range []string{"user_id", "activity_id", "start_time", "end_time"} {
		require.Contains(t, fields, f)
	}

	_, err = svc.CreateTrack(ctx, domain.TrackInput{
		UserID: ptr(int64(404)), ActivityID: ptr(int64(405)),
		StartTime: ptr(start), EndTime: ptr(start.Add(time.Hour)),
	})
	fields = fieldErrors(t, err)
	require.Equal(t, "user 404 does not exist", fields["user_id"])
	require.Equal(t, "activity 405 does not exist", fields["activity_id"])

	_, err = svc.CreateTrack(ctx, domain.TrackInput{
		UserID: &user.ID, ActivityID: &activity.ID,
		StartTime: ptr(start), EndTime: ptr(start),
	})
	require.Contains(t, fieldErrors(t, err), "end_time")

	local := time.FixedZone("UTC+02:00", 2*3600)
	track, err := svc.CreateTrack(ctx, domain.TrackInput{
		UserID: &user.ID, ActivityID: &activity.ID,
		StartTime: ptr(start.In(local)), EndTime: ptr(start.Add(90 * time.Minute).In(local)),
		Comment: ptr("intervals"),
	})
	require.NoError(t, err)
	require.Equal(t, time.UTC, track.StartTime.Location())
	require.Equal(t, 90*time.Minute, track.Duration())
	require.Equal(t, "Ann", track.User.Name)
	require.Equal(t, "Run", track.Activity.Name)
}

func TestUpdateTrackSemantics(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	user, activity := seedRefs(t, svc)
	start := time.Date(2024, 3, 10, 6, 0, 0, 0, time.UTC)

	track, err := svc.CreateTrack(ctx, domain.TrackInput{
		UserID: &user.ID, ActivityID: &activity.ID,
		StartTime: ptr(start), EndTime: ptr(start.Add(time.Hour)),
		Comment: ptr("keep me"),
	})
	require.NoError(t, err)

	patched, err := svc.UpdateTrack(ctx, track.ID, domain.TrackInput{EndTime: ptr(start.Add(2 * time.Hour))}, true)
	require.NoError(t, err)
	require.Equal(t, 2*time.Hour, patched.Duration())
	require.Equal(t, "keep me", *patched.Comment)

	_, err = svc.UpdateTrack(ctx, track.ID, domain.TrackInput{EndTime: ptr(start.Add(-time.Hour))}, true)
	require.Contains(t, fieldErrors(t, err), "end_time")

	replaced, err := svc.UpdateTrack(ctx, track.ID, domain.TrackInput{
		UserID: &user.ID, ActivityID: &activity.ID,
		StartTime: ptr(start), EndTime: ptr(start.Add(30 * time.Minute)),
	}, false)
	require.NoError(t, err)
	require.Nil(t, replaced.Comment)

	_, err = svc.UpdateTrack(ctx, 999, domain.TrackInput{}, true)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListTracksRangeAndLimit(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	user, activity := seedRefs(t, svc)
	start := time.Date(2024, 3, 10, 6, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		s := start.Add(time.Duration(i) * time.Hour)
		_, err := svc.CreateTrack(ctx, domain.TrackInput{
			UserID: &user.ID, ActivityID: &activity.ID,
			StartTime: ptr(s), EndTime: ptr(s.Add(30 * time.Minute)),
		})
		require.NoError(t, err)
	}

	from, to := start.Add(time.Hour), start
	_, _, err := svc.ListTracks(ctx, domain.TrackFilter{From: &from, To: &to})
	require.ErrorIs(t, err, domain.ErrInvalidRange)
	var perr *domain.ParamError
	require.True(t, errors.As(err, &perr))
	require.Equal(t, "start", perr.Param)

	tracks, next, err := svc.ListTracks(ctx, domain.TrackFilter{})
	require.NoError(t, err)
	require.Len(t, tracks, 3)
	require.Nil(t, next)

	tracks, next, err = svc.ListTracks(ctx, domain.TrackFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, tracks, 2)
	require.NotNil(t, next)
	require.True(t, tracks[0].StartTime.After(tracks[1].StartTime))
}

func TestErrorClassification(t *testing.T) {
	require.True(t, domain.IsClientError(domain.NewParamError("date", "x", domain.ErrInvalidDateFormat)))
	require.True(t, domain.IsClientError(&domain.ValidationError{Fields: map[string]string{"name": "blank"}}))
	require.False(t, domain.IsClientError(errors.New("connection reset")))

	perr := domain.NewParamError("mode", "yearly", domain.ErrInvalidMode)
	require.Equal(t, `Invalid mode "yearly". Use daily, weekly, or monthly`, perr.Error())

	verr := &domain.ValidationError{}
	require.NoError(t, verr.OrNil())
	verr.Add("b", "second")
	verr.Add("a", "first")
	verr.Add("a", "ignored")
	require.Equal(t, "validation failed: a: first; b: second", verr.Error())
}
