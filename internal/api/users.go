package api

import (
	"net/http"

	"example.com/timetrack/internal/domain"
)

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.respond(w, r, err)
		return
	}
	items := make([]NamedView, 0, len(users))
	for _, u := range users {
		items = append(items, toUserView(u))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req NameRequest
	if err := decodeBody(r, &req); err != nil {
		h.respond(w, r, err)
		return
	}
	user, err := h.service.CreateUser(r.Context(), domain.NameInput{Name: req.Name})
	if err != nil {
		h.respond(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserView(*user))
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.respond(w, r, err)
		return
	}
	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		h.respond(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserView(*user))
}

func (h *Handler) updateUser(partial bool) http.HandlerFunc {
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
		user, err := h.service.UpdateUser(r.Context(), id, domain.NameInput{Name: req.Name}, partial)
		if err != nil {
			h.respond(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toUserView(*user))
	}
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err == nil {
		err = h.service.DeleteUser(r.Context(), id)
	}
	if err != nil {
		h.respond(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
