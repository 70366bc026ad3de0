package api

import (
	"net/http"

	"example.com/timetrack/internal/recap"
)

// recap serves GET /recap/{mode}. Parameters the mode does not use are ignored.
func (h *Handler) recap(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	summary, err := h.aggregator.Run(r.Context(), r.PathValue("mode"), recap.Query{
		Date:      q.Get("date"),
		WeekStart: q.Get("week_start"),
		Year:      q.Get("year"),
		Month:     q.Get("month"),
		TZOffset:  q.Get("tz_offset"),
	})
	if err != nil {
		h.respond(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
