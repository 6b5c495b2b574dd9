package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"aims/internal/logger"
	"aims/internal/store"
	"aims/pkg/api"
)

// TriggerEvent handles POST /admin/trigger-event.
// Admission with an explicit subject in the body.
func (h *Handlers) TriggerEvent(w http.ResponseWriter, r *http.Request) {
	var req api.TriggerEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	h.admit(w, r, req.Type, req.Payload, req.Subject)
}

// Trigger handles POST /trigger.
// Subject-scoped admission: the subject comes from the X-Subject-ID header.
func (h *Handlers) Trigger(w http.ResponseWriter, r *http.Request) {
	var req api.TriggerEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	subject := r.Header.Get("X-Subject-ID")
	if subject == "" {
		h.httpError(w, "Missing X-Subject-ID header", http.StatusBadRequest)
		return
	}

	h.admit(w, r, req.Type, req.Payload, subject)
}

func (h *Handlers) admit(w http.ResponseWriter, r *http.Request, eventType string, payload map[string]any, subject string) {
	ctx := r.Context()
	log := logger.FromContext(ctx, h.log)

	eventID, err := h.store.Submit(ctx, eventType, payload, subject)
	if err != nil {
		if store.IsValidation(err) {
			h.httpError(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Error("event admission failed", "error", err, "type", eventType)
		h.httpError(w, "Failed to admit event", http.StatusInternalServerError)
		return
	}

	log.Info("event admitted", "event_id", eventID, "type", eventType, "subject", subject)
	h.respondJson(w, http.StatusCreated, api.TriggerEventResponse{EventID: eventID.String()})
}

// TriggerBatch handles POST /trigger/batch.
// Bulk admission; one item's failure never aborts the batch.
func (h *Handlers) TriggerBatch(w http.ResponseWriter, r *http.Request) {
	var reqs []api.TriggerEventRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		h.httpError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(reqs) == 0 {
		h.httpError(w, "Empty batch", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	resp := api.BatchTriggerResponse{Results: make([]api.BatchTriggerResult, 0, len(reqs))}

	for _, req := range reqs {
		result := api.BatchTriggerResult{Subject: req.Subject, Type: req.Type}

		eventID, err := h.store.Submit(ctx, req.Type, req.Payload, req.Subject)
		if err != nil {
			result.Error = err.Error()
			resp.Failed++
		} else {
			result.EventID = eventID.String()
			resp.Queued++
		}
		resp.Results = append(resp.Results, result)
	}

	h.respondJson(w, http.StatusOK, resp)
}

// GetEvent handles GET /admin/events/{id}.
func (h *Handlers) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r.PathValue("id"))
	if !ok {
		h.httpError(w, "Invalid event id", http.StatusBadRequest)
		return
	}

	ev, err := h.store.GetEvent(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.httpError(w, "Event not found", http.StatusNotFound)
			return
		}
		h.httpError(w, "Failed to fetch event", http.StatusInternalServerError)
		return
	}

	h.respondJson(w, http.StatusOK, api.EventResponse{
		ID:        ev.ID.String(),
		Type:      ev.Type,
		Subject:   ev.Subject,
		Payload:   ev.Payload,
		State:     string(ev.State),
		Detail:    ev.Detail,
		CreatedAt: ev.CreatedAt,
		UpdatedAt: ev.UpdatedAt,
	})
}

// Purge handles POST /admin/purge.
func (h *Handlers) Purge(w http.ResponseWriter, r *http.Request) {
	var req api.PurgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Subject == "" {
		h.httpError(w, "Subject is required", http.StatusBadRequest)
		return
	}

	purged, err := h.store.PurgeForSubject(r.Context(), req.Subject)
	if err != nil {
		logger.FromContext(r.Context(), h.log).Error("purge failed", "error", err, "subject", req.Subject)
		h.httpError(w, "Failed to purge subject", http.StatusInternalServerError)
		return
	}

	h.respondJson(w, http.StatusOK, api.PurgeResponse{Purged: purged})
}
