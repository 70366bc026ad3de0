// Package api exposes HTTP handlers for the time tracking service.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"example.com/timetrack/internal/domain"
	"example.com/timetrack/internal/recap"
)

// Handler coordinates HTTP requests with the domain service and the recap aggregator.
type Handler struct {
	service    *domain.Service
	aggregator *recap.Aggregator
	logger     *slog.Logger
}

// NewHandler builds a Handler. A nil logger falls back to slog.Default().
func NewHandler(service *domain.Service, aggregator *recap.Aggregator, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, aggregator: aggregator, logger: logger}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /users", h.listUsers)
	mux.HandleFunc("POST /users", h.createUser)
	mux.HandleFunc("GET /users/{id}", h.getUser)
	mux.HandleFunc("PUT /users/{id}", h.updateUser(false))
	mux.HandleFunc("PATCH /users/{id}", h.updateUser(true))
	mux.HandleFunc("DELETE /users/{id}", h.deleteUser)

	mux.HandleFunc("GET /activities", h.listActivities)
	mux.HandleFunc("POST /activities", h.createActivity)
	mux.HandleFunc("GET /activities/{id}", h.getActivity)
	mux.HandleFunc("PUT /activities/{id}", h.updateActivity(false))
	mux.HandleFunc("PATCH /activities/{id}", h.updateActivity(true))
	mux.HandleFunc("DELETE /activities/{id}", h.deleteActivity)

	mux.HandleFunc("GET /tracks", h.listTracks)
	mux.HandleFunc("POST /tracks", h.createTrack)
	mux.HandleFunc("GET /tracks/{id}", h.getTrack)
	mux.HandleFunc("PUT /tracks/{id}", h.updateTrack(false))
	mux.HandleFunc("PATCH /tracks/{id}", h.updateTrack(true))
	mux.HandleFunc("DELETE /tracks/{id}", h.deleteTrack)

	mux.HandleFunc("GET /recap/{mode}", h.recap)
	mux.HandleFunc("GET /healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// NameRequest is the payload for creating or updating users and activities.
type NameRequest struct {
	Name *string `json:"name"`
}

// ErrorResponse is the body of every 4xx/5xx answer except 404.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// respond maps service errors onto HTTP statuses.
func (h *Handler) respond(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	var perr *domain.ParamError
	var berr *bodyError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation failed", Fields: verr.Fields})
	case errors.Is(err, domain.ErrNotFound):
		w.WriteHeader(http.StatusNotFound)
	case errors.As(err, &perr):
		writeError(w, http.StatusBadRequest, perr.Error())
	case errors.As(err, &berr):
		writeError(w, http.StatusBadRequest, berr.Error())
	default:
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// pathID extracts the numeric {id} segment. Non-numeric ids cannot name a record.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrNotFound
	}
	return id, nil
}

// bodyError marks a request body that is not valid JSON for the target payload.
type bodyError struct{ err error }

func (e *bodyError) Error() string { return "invalid JSON body: " + e.err.Error() }

func (e *bodyError) Unwrap() error { return e.err }

func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &bodyError{err: err}
	}
	return nil
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// NamedView is the JSON form of users and activities.
type NamedView struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toUserView(u domain.User) NamedView {
	return NamedView{ID: u.ID, Name: u.Name, CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt}
}

func toActivityView(a domain.Activity) NamedView {
	return NamedView{ID: a.ID, Name: a.Name, CreatedAt: a.CreatedAt, UpdatedAt: a.UpdatedAt}
}
