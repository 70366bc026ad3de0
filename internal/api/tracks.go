package api

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"example.com/timetrack/internal/domain"
	"example.com/timetrack/internal/persistence"
	"example.com/timetrack/internal/recap"
)

// TrackRequest is the payload for creating or updating a track.
// The short keys user and activity are accepted as aliases of user_id and activity_id.
type TrackRequest struct {
	UserID     *int64  `json:"user_id"`
	User       *int64  `json:"user"`
	ActivityID *int64  `json:"activity_id"`
	Activity   *int64  `json:"activity"`
	StartTime  *string `json:"start_time"`
	EndTime    *string `json:"end_time"`
	Comment    *string `json:"comment"`
}

// input converts the request into a service payload. Timestamps without an offset are read as UTC.
func (req TrackRequest) input() (domain.TrackInput, error) {
	in := domain.TrackInput{
		UserID:     firstSet(req.UserID, req.User),
		ActivityID: firstSet(req.ActivityID, req.Activity),
		Comment:    req.Comment,
	}
	verr := &domain.ValidationError{}
	in.StartTime = parseField(verr, "start_time", req.StartTime)
	in.EndTime = parseField(verr, "end_time", req.EndTime)
	return in, verr.OrNil()
}

func firstSet(values ...*int64) *int64 {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

func parseField(verr *domain.ValidationError, field string, raw *string) *time.Time {
	if raw == nil {
		return nil
	}
	ts, err := recap.ParseTimestamp(field, *raw, time.UTC)
	if err != nil {
		verr.Add(field, "datetime has wrong format, use ISO-8601")
		return nil
	}
	ts = ts.UTC()
	return &ts
}

// TrackView exposes a track with its user and activity inlined.
type TrackView struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	UserDetail     NamedView `json:"user_detail"`
	ActivityID     int64     `json:"activity_id"`
	ActivityDetail NamedView `json:"activity_detail"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	Comment        *string   `json:"comment"`
	Duration       float64   `json:"duration"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ListTracksResponse packages a page of tracks.
type ListTracksResponse struct {
	Items      []TrackView `json:"items"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

func toTrackView(t domain.Track) TrackView {
	return TrackView{
		ID:             t.ID,
		UserID:         t.UserID,
		UserDetail:     toUserView(t.User),
		ActivityID:     t.ActivityID,
		ActivityDetail: toActivityView(t.Activity),
		StartTime:      t.StartTime.UTC(),
		EndTime:        t.EndTime.UTC(),
		Comment:        t.Comment,
		Duration:       t.Duration().Seconds(),
		CreatedAt:      t.CreatedAt.UTC(),
		UpdatedAt:      t.UpdatedAt.UTC(),
	}
}

func (h *Handler) listTracks(w http.ResponseWriter, r *http.Request) {
	filter, err := h.trackFilter(r.URL.Query())
	if err != nil {
		h.respond(w, r, err)
		return
	}
	tracks, next, err := h.service.ListTracks(r.Context(), filter)
	if err != nil {
		h.respond(w, r, err)
		return
	}
	resp := ListTracksResponse{
		Items:      make([]TrackView, 0, len(tracks)),
		NextCursor: persistence.EncodeCursor(next),
	}
	for _, t := range tracks {
		resp.Items = append(resp.Items, toTrackView(t))
	}
	writeJSON(w, http.StatusOK, resp)
}

// trackFilter parses listing parameters. date selects one client-local day; start and end
// select an explicit half-open range and must be given together.
func (h *Handler) trackFilter(q url.Values) (domain.TrackFilter, error) {
	var filter domain.TrackFilter
	loc, err := recap.ResolveLocation(q.Get("tz_offset"), h.aggregator.DefaultLocation())
	if err != nil {
		return filter, err
	}

	date, start, end := strings.TrimSpace(q.Get("date")), strings.TrimSpace(q.Get("start")), strings.TrimSpace(q.Get("end"))
	switch {
	case date != "" && (start != "" || end != ""):
		return filter, domain.NewParamError("date", date, domain.ErrInvalidRange)
	case date != "":
		day, err := recap.ParseTimestamp("date", date, loc)
		if err != nil {
			return filter, err
		}
		from, to := recap.DayRange(day)
		filter.From, filter.To = utcPtr(from), utcPtr(to)
	case start == "" && end != "":
		return filter, domain.NewParamError("end", end, domain.ErrInvalidRange)
	case start != "" && end == "":
		return filter, domain.NewParamError("start", start, domain.ErrInvalidRange)
	case start != "":
		from, err := recap.ParseTimestamp("start", start, loc)
		if err != nil {
			return filter, err
		}
		to, err := recap.ParseTimestamp("end", end, loc)
		if err != nil {
			return filter, err
		}
		if !from.Before(to) {
			return filter, domain.NewParamError("start", start, domain.ErrInvalidRange)
		}
		filter.From, filter.To = utcPtr(from), utcPtr(to)
	}

	if filter.UserID, err = idParam(q, "user_id", "user"); err != nil {
		return filter, err
	}
	if filter.ActivityID, err = idParam(q, "activity_id", "activity"); err != nil {
		return filter, err
	}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return filter, domain.NewParamError("limit", raw, domain.ErrInvalidParameter)
		}
		filter.Limit = limit
	}

	raw := q.Get("cursor")
	cursor, err := persistence.DecodeCursor(raw)
	if err != nil {
		return filter, domain.NewParamError("cursor", raw, domain.ErrInvalidParameter)
	}
	filter.Cursor = cursor
	return filter, nil
}

// idParam reads the first present key as a positive integer id.
func idParam(q url.Values, keys ...string) (*int64, error) {
	for _, key := range keys {
		raw := strings.TrimSpace(q.Get(key))
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return nil, domain.NewParamError(key, raw, domain.ErrInvalidParameter)
		}
		return &id, nil
	}
	return nil, nil
}

func utcPtr(t time.Time) *time.Time {
	t = t.UTC()
	return &t
}

func (h *Handler) createTrack(w http.ResponseWriter, r *http.Request) {
	var req TrackRequest
	if err := decodeBody(r, &req); err != nil {
		h.respond(w, r, err)
		return
	}
	in, err := req.input()
	if err != nil {
		h.respond(w, r, err)
		return
	}
	track, err := h.service.CreateTrack(r.Context(), in)
	if err != nil {
		h.respond(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTrackView(*track))
}

func (h *Handler) getTrack(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respond(w, r, err)
		return
	}
	track, err := h.service.GetTrack(r.Context(), id)
	if err != nil {
		h.respond(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTrackView(*track))
}

func (h *Handler) updateTrack(partial bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			h.respond(w, r, err)
			return
		}
		var req TrackRequest
		if err := decodeBody(r, &req); err != nil {
			h.respond(w, r, err)
			return
		}
		in, err := req.input()
		if err != nil {
			h.respond(w, r, err)
			return
		}
		track, err := h.service.UpdateTrack(r.Context(), id, in, partial)
		if err != nil {
			h.respond(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toTrackView(*track))
	}
}

func (h *Handler) deleteTrack(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err == nil {
		err = h.service.DeleteTrack(r.Context(), id)
	}
	if err != nil {
		h.respond(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
