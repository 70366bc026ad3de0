package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/timetrack/internal/domain"
	"example.com/timetrack/internal/persistence/memory"
	"example.com/timetrack/internal/recap"
)

var testNow = time.Date(2024, time.March, 13, 12, 0, 0, 0, time.UTC)

func newTestMux(t *testing.T, store domain.Store) *http.ServeMux {
	t.Helper()

	service := domain.NewService(store, domain.WithNow(func() time.Time { return testNow }))
	aggregator := recap.NewAggregator(store, recap.WithClock(func() time.Time { return testNow }))
	mux := http.NewServeMux()
	NewHandler(service, aggregator, nil).RegisterRoutes(mux)
	return mux
}

func do(t *testing.T, mux http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func createNamed(t *testing.T, mux http.Handler, path, name string) NamedView {
	t.Helper()

	rr := do(t, mux, http.MethodPost, path, fmt.Sprintf(`{"name":%q}`, name))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[NamedView](t, rr)
}

func createTrack(t *testing.T, mux http.Handler, userID, activityID int64, start, end string) TrackView {
	t.Helper()

	body := fmt.Sprintf(`{"user_id":%d,"activity_id":%d,"start_time":%q,"end_time":%q}`, userID, activityID, start, end)
	rr := do(t, mux, http.MethodPost, "/tracks", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[TrackView](t, rr)
}

func TestUserLifecycle(t *testing.T) {
	mux := newTestMux(t, memory.NewStore())

	bob := createNamed(t, mux, "/users", "Bob")
	ann := createNamed(t, mux, "/users", "  Ann ")
	require.Equal(t, "Ann", ann.Name)
	require.True(t, testNow.Equal(ann.CreatedAt))

	rr := do(t, mux, http.MethodGet, "/users", "")
	require.Equal(t, http.StatusOK, rr.Code)
	users := decode[[]NamedView](t, rr)
	require.Len(t, users, 2)
	require.Equal(t, []string{"Ann", "Bob"}, []string{users[0].Name, users[1].Name})

	rr = do(t, mux, http.MethodPatch, fmt.Sprintf("/users/%d", bob.ID), `{}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "Bob", decode[NamedView](t, rr).Name)

	rr = do(t, mux, http.MethodPut, fmt.Sprintf("/users/%d", bob.ID), `{}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	verr := decode[ErrorResponse](t, rr)
	require.Equal(t, "validation failed", verr.Error)
	require.Contains(t, verr.Fields, "name")

	rr = do(t, mux, http.MethodPut, fmt.Sprintf("/users/%d", bob.ID), `{"name":"Robert"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "Robert", decode[NamedView](t, rr).Name)

	rr = do(t, mux, http.MethodDelete, fmt.Sprintf("/users/%d", bob.ID), "")
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(t, mux, http.MethodGet, fmt.Sprintf("/users/%d", bob.ID), "")
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Empty(t, rr.Body.String())

	rr = do(t, mux, http.MethodDelete, fmt.Sprintf("/users/%d", bob.ID), "")
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, mux, http.MethodGet, "/users/abc", "")
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestActivityRejectsBlankName(t *testing.T) {
	mux := newTestMux(t, memory.NewStore())

	rr := do(t, mux, http.MethodPost, "/activities", `{"name":"   "}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, decode[ErrorResponse](t, rr).Fields, "name")

	rr = do(t, mux, http.MethodPost, "/activities", `{"name":`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, decode[ErrorResponse](t, rr).Error, "invalid JSON body")

	run := createNamed(t, mux, "/activities", "Run")
	rr = do(t, mux, http.MethodGet, fmt.Sprintf("/activities/%d", run.ID), "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "Run", decode[NamedView](t, rr).Name)
}

func TestTrackCreateReturnsDetails(t *testing.T) {
	mux := newTestMux(t, memory.NewStore())
	ann := createNamed(t, mux, "/users", "Ann")
	run := createNamed(t, mux, "/activities", "Run")

	body := fmt.Sprintf(`{"user":%d,"activity":%d,"start_time":"2024-03-10T07:00:00+01:00","end_time":"2024-03-10T06:30:00Z","comment":"easy"}`, ann.ID, run.ID)
	rr := do(t, mux, http.MethodPost, "/tracks", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	track := decode[TrackView](t, rr)
	require.Equal(t, ann.ID, track.UserID)
	require.Equal(t, "Ann", track.UserDetail.Name)
	require.Equal(t, run.ID, track.ActivityID)
	require.Equal(t, "Run", track.ActivityDetail.Name)
	require.True(t, track.StartTime.Equal(time.Date(2024, 3, 10, 6, 0, 0, 0, time.UTC)))
	require.InDelta(t, 1800, track.Duration, 0.001)
	require.NotNil(t, track.Comment)
	require.Equal(t, "easy", *track.Comment)

	rr = do(t, mux, http.MethodPatch, fmt.Sprintf("/tracks/%d", track.ID), `{"end_time":"2024-03-10T07:00:00Z"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	updated := decode[TrackView](t, rr)
	require.InDelta(t, 3600, updated.Duration, 0.001)
	require.Equal(t, "easy", *updated.Comment)

	rr = do(t, mux, http.MethodPut, fmt.Sprintf("/tracks/%d", track.ID), `{"end_time":"2024-03-10T07:00:00Z"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	fields := decode[ErrorResponse](t, rr).Fields
	require.Contains(t, fields, "user_id")
	require.Contains(t, fields, "start_time")

	rr = do(t, mux, http.MethodDelete, fmt.Sprintf("/tracks/%d", track.ID), "")
	require.Equal(t, http.StatusNoContent, rr.Code)
	rr = do(t, mux, http.MethodGet, fmt.Sprintf("/tracks/%d", track.ID), "")
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestTrackCreateValidation(t *testing.T) {
	mux := newTestMux(t, memory.NewStore())
	ann := createNamed(t, mux, "/users", "Ann")
	run := createNamed(t, mux, "/activities", "Run")

	cases := map[string]struct {
		body  string
		field string
	}{
		"unknown user":  {fmt.Sprintf(`{"user_id":999,"activity_id":%d,"start_time":"2024-03-10T06:00:00Z","end_time":"2024-03-10T07:00:00Z"}`, run.ID), "user_id"},
		"bad timestamp": {fmt.Sprintf(`{"user_id":%d,"activity_id":%d,"start_time":"yesterday","end_time":"2024-03-10T07:00:00Z"}`, ann.ID, run.ID), "start_time"},
		"end before":    {fmt.Sprintf(`{"user_id":%d,"activity_id":%d,"start_time":"2024-03-10T07:00:00Z","end_time":"2024-03-10T07:00:00Z"}`, ann.ID, run.ID), "end_time"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rr := do(t, mux, http.MethodPost, "/tracks", tc.body)
			require.Equal(t, http.StatusBadRequest, rr.Code)
			resp := decode[ErrorResponse](t, rr)
			require.Equal(t, "validation failed", resp.Error)
			require.Contains(t, resp.Fields, tc.field)
		})
	}
}

func TestTrackListFiltersByClientDay(t *testing.T) {
	mux := newTestMux(t, memory.NewStore())
	ann := createNamed(t, mux, "/users", "Ann")
	run := createNamed(t, mux, "/activities", "Run")

	inside := createTrack(t, mux, ann.ID, run.ID, "2024-03-10T06:00:00Z", "2024-03-10T06:30:00Z")
	createTrack(t, mux, ann.ID, run.ID, "2024-03-10T03:00:00Z", "2024-03-10T03:30:00Z")

	rr := do(t, mux, http.MethodGet, "/tracks?date=2024-03-10&tz_offset=300", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	resp := decode[ListTracksResponse](t, rr)
	require.Len(t, resp.Items, 1)
	require.Equal(t, inside.ID, resp.Items[0].ID)
	require.Empty(t, resp.NextCursor)

	rr = do(t, mux, http.MethodGet, "/tracks?start=2024-03-10T00:00:00Z&end=2024-03-11T00:00:00Z", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, decode[ListTracksResponse](t, rr).Items, 2)
}

func TestTrackListPaginates(t *testing.T) {
	mux := newTestMux(t, memory.NewStore())
	ann := createNamed(t, mux, "/users", "Ann")
	run := createNamed(t, mux, "/activities", "Run")

	for hour := 6; hour <= 8; hour++ {
		start := fmt.Sprintf("2024-03-10T%02d:00:00Z", hour)
		end := fmt.Sprintf("2024-03-10T%02d:30:00Z", hour)
		createTrack(t, mux, ann.ID, run.ID, start, end)
	}

	rr := do(t, mux, http.MethodGet, "/tracks?limit=2", "")
	require.Equal(t, http.StatusOK, rr.Code)
	first := decode[ListTracksResponse](t, rr)
	require.Len(t, first.Items, 2)
	require.Equal(t, 8, first.Items[0].StartTime.Hour())
	require.NotEmpty(t, first.NextCursor)

	rr = do(t, mux, http.MethodGet, "/tracks?limit=2&cursor="+first.NextCursor, "")
	require.Equal(t, http.StatusOK, rr.Code)
	second := decode[ListTracksResponse](t, rr)
	require.Len(t, second.Items, 1)
	require.Equal(t, 6, second.Items[0].StartTime.Hour())
	require.Empty(t, second.NextCursor)
}

func TestTrackListRejectsBadParameters(t *testing.T) {
	mux := newTestMux(t, memory.NewStore())

	cases := map[string]struct {
		query string
		want  string
	}{
		"date with range": {"date=2024-03-10&start=2024-03-10T00:00:00Z", "invalid range"},
		"start only":      {"start=2024-03-10T00:00:00Z", `invalid range: start="2024-03-10T00:00:00Z"`},
		"end only":        {"end=2024-03-10T00:00:00Z", `invalid range: end="2024-03-10T00:00:00Z"`},
		"reversed range":  {"start=2024-03-10T10:00:00-05:00&end=2024-03-10T09:00:00-05:00", `invalid range: start="2024-03-10T10:00:00-05:00"`},
		"empty range":     {"start=2024-03-10T10:00:00Z&end=2024-03-10T10:00:00Z", "invalid range"},
		"bad date":        {"date=not-a-date", "not-a-date"},
		"bad tz":          {"tz_offset=abc", "tz_offset"},
		"bad limit":       {"limit=0", "limit"},
		"bad cursor":      {"cursor=%25%25", "cursor"},
		"bad user":        {"user_id=x", "user_id"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rr := do(t, mux, http.MethodGet, "/tracks?"+tc.query, "")
			require.Equal(t, http.StatusBadRequest, rr.Code)
			require.Contains(t, decode[ErrorResponse](t, rr).Error, tc.want)
		})
	}
}

func TestRecapDaily(t *testing.T) {
	mux := newTestMux(t, memory.NewStore())
	ann := createNamed(t, mux, "/users", "Ann")
	run := createNamed(t, mux, "/activities", "Run")
	swim := createNamed(t, mux, "/activities", "Swim")
	createTrack(t, mux, ann.ID, run.ID, "2024-03-10T06:00:00Z", "2024-03-10T06:30:00Z")
	createTrack(t, mux, ann.ID, swim.ID, "2024-03-10T07:00:00Z", "2024-03-10T07:15:00Z")

	rr := do(t, mux, http.MethodGet, "/recap/daily?date=2024-03-10&tz_offset=0&year=bogus", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp struct {
		Mode         string        `json:"mode"`
		Start        string        `json:"start"`
		TotalMinutes float64       `json:"total_minutes"`
		Entries      []recap.Entry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "daily", resp.Mode)
	require.Equal(t, "2024-03-10T00:00:00+00:00", resp.Start)
	require.InDelta(t, 45.0, resp.TotalMinutes, 0.001)
	require.Len(t, resp.Entries, 2)
	require.Equal(t, "Run", resp.Entries[0].ActivityName)
	require.InDelta(t, 66.67, resp.Entries[0].Percentage, 0.001)
	require.InDelta(t, 33.33, resp.Entries[1].Percentage, 0.001)
}

func TestRecapErrors(t *testing.T) {
	mux := newTestMux(t, memory.NewStore())

	rr := do(t, mux, http.MethodGet, "/recap/yearly", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, decode[ErrorResponse](t, rr).Error, "Invalid mode")

	rr = do(t, mux, http.MethodGet, "/recap/daily?date=not-a-date", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	msg := decode[ErrorResponse](t, rr).Error
	require.Contains(t, msg, "date")
	require.Contains(t, msg, "not-a-date")
}

type failingStore struct {
	*memory.Store
}

func (failingStore) ListUsers(context.Context) ([]domain.User, error) {
	return nil, errors.New("connection refused")
}

func (failingStore) ListTracksInRange(context.Context, time.Time, time.Time) ([]domain.Track, error) {
	return nil, errors.New("connection refused")
}

func TestUnexpectedErrorsReturn500(t *testing.T) {
	mux := newTestMux(t, failingStore{Store: memory.NewStore()})

	for _, path := range []string{"/users", "/recap/weekly"} {
		rr := do(t, mux, http.MethodGet, path, "")
		require.Equal(t, http.StatusInternalServerError, rr.Code, path)
		require.Contains(t, decode[ErrorResponse](t, rr).Error, "connection refused")
	}
}

func TestHealthz(t *testing.T) {
	mux := newTestMux(t, memory.NewStore())

	rr := do(t, mux, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "ok", rr.Body.String())

	rr = do(t, mux, http.MethodPost, "/healthz", "")
	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
