package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/render"
)

// Stats handles /v1/stats, returning outcome counters and the most recent outcomes.
func (h *RelayHandler) Stats(w http.ResponseWriter, r *http.Request) {
	limit := int64(20)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	stats, err := h.Relay.Stats(r.Context(), limit)
	if err != nil {
		slog.Error("Failed to read stats", "err", err)
		http.Error(w, "stats unavailable", http.StatusServiceUnavailable)
		return
	}
	render.JSON(w, r, stats)
}
