package api

import (
	"net/http"

	"example.com/timetrack/internal/domain"
)

func (h *Handler) listActivities(w http.ResponseWriter, r *http.Request) {
	activities, err := h.service.ListActivities(r.Context())
	if err != nil {
		h.respond(w, r, err)
		return
	}
	items := make([]NamedView, 0, len(activities))
	for _, a := range activities {
		items = append(items, toActivityView(a))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) createActivity(w http.ResponseWriter, r *http.Request) {
	var req NameRequest
	if err := decodeBody(r, &req); err != nil {
		h.respond(w, r, err)
		return
	}
	activity, err := h.service.CreateActivity(r.Context(), domain.NameInput{Name: req.Name})
	if err != nil {
		h.respond(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toActivityView(*activity))
}

func (h *Handler) getActivity(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respond(w, r, err)
		return
	}
	activity, err := h.service.GetActivity(r.Context(), id)
	if err != nil {
		h.respond(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toActivityView(*activity))
}

func (h *Handler) updateActivity(partial bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			h.respond(w, r, err)
			return
		}
		var req NameRequest
		if err := decodeBody(r, &req); err != nil {
			h.respond(w, r, err)
			return
		}
		activity, err := h.service.UpdateActivity(r.Context(), id, domain.NameInput{Name: req.Name}, partial)
		if err != nil {
			h.respond(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toActivityView(*activity))
	}
}

func (h *Handler) deleteActivity(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err == nil {
		err = h.service.DeleteActivity(r.Context(), id)
	}
	if err != nil {
		h.respond(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
