package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"aims/internal/logger"
	"aims/internal/store"
	"aims/pkg/api"

	"github.com/google/uuid"
)

// ListDeadLetters handles GET /admin/dead-letters.
func (h *Handlers) ListDeadLetters(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)

	items, err := h.store.ListDeadLetters(r.Context(), limit, offset)
	if err != nil {
		logger.FromContext(r.Context(), h.log).Error("dead-letter listing failed", "error", err)
		h.httpError(w, "Failed to list dead letters", http.StatusInternalServerError)
		return
	}

	resp := make([]api.DeadLetterResponse, 0, len(items))
	for _, d := range items {
		failedAt := d.FailedAt
		resp = append(resp, api.DeadLetterResponse{
			EntryID:   d.EntryID.String(),
			EventID:   d.EventID.String(),
			EventType: d.EventType,
			Subject:   d.Subject,
			Priority:  d.Priority,
			Attempts:  d.Attempt,
			LastError: d.LastError,
			FailedAt:  &failedAt,
		})
	}

	h.respondJson(w, http.StatusOK, resp)
}

// RetryDeadLetter handles POST /admin/dead-letters/{id}/retry.
// Creates a fresh pending entry for the dead-lettered entry's event.
func (h *Handlers) RetryDeadLetter(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r.PathValue("id"))
	if !ok {
		h.httpError(w, "Invalid entry id", http.StatusBadRequest)
		return
	}

	newID, err := h.store.Redrive(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.httpError(w, "Dead-lettered entry not found", http.StatusNotFound)
			return
		}
		logger.FromContext(r.Context(), h.log).Error("redrive failed", "error", err, "entry_id", id)
		h.httpError(w, "Failed to retry entry", http.StatusInternalServerError)
		return
	}

	h.respondJson(w, http.StatusOK, api.RedriveResponse{NewEntryID: newID.String()})
}

func parseID(raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
