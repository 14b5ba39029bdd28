package handlers

import (
	"net/http"
	"strconv"

	"wallet/internal/models"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) AdminListEvents(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	if eventType := r.URL.Query().Get("type"); eventType != "" {
		events, err := h.events.ListByEventType(r.Context(), eventType, limit, offset)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, eventListJSON(events))
		return
	}
	events, err := h.events.ListRecent(r.Context(), limit, offset)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, eventListJSON(events))
}

// AdminEventHistory returns an aggregate's event stream. A from_version
// query parameter replays from that version instead of the beginning.
func (h *Handler) AdminEventHistory(w http.ResponseWriter, r *http.Request) {
	aggregateType := chi.URLParam(r, "aggregateType")
	aggregateID := chi.URLParam(r, "aggregateID")
	switch aggregateType {
	case models.AggregateUser, models.AggregateOrder, models.AggregateTransaction:
	default:
		respondError(w, http.StatusBadRequest, "unknown aggregate type")
		return
	}
	if raw := r.URL.Query().Get("from_version"); raw != "" {
		fromVersion, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || fromVersion < 1 {
			respondError(w, http.StatusBadRequest, "invalid from_version")
			return
		}
		events, err := h.events.ReplayFrom(r.Context(), aggregateType, aggregateID, fromVersion)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, eventListJSON(events))
		return
	}
	events, err := h.events.History(r.Context(), aggregateType, aggregateID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, eventListJSON(events))
}
