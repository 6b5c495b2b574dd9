package handlers

import (
	"errors"
	"net/http"

	"aims/internal/logger"
	"aims/internal/scheduler"
	"aims/pkg/api"
)

// ProcessQueue handles POST /admin/process-queue.
// Runs one processing pass directly, bypassing the scheduler's mutual
// exclusion; lease atomicity still prevents duplicate processing.
func (h *Handlers) ProcessQueue(w http.ResponseWriter, r *http.Request) {
	result, err := h.drainer.Drain(r.Context())
	if err != nil {
		logger.FromContext(r.Context(), h.log).Error("manual drain failed", "error", err)
		h.httpError(w, "Processing failed", http.StatusInternalServerError)
		return
	}

	h.respondJson(w, http.StatusOK, api.ProcessResponse{
		Processed:    result.Processed,
		Failed:       result.Failed,
		DeadLettered: result.DeadLettered,
	})
}

// ProcessNow handles POST /process/now.
// Same as Scheduler.TriggerNow: mutually exclusive with an in-progress
// tick, answering 409 instead of queueing a second run.
func (h *Handlers) ProcessNow(w http.ResponseWriter, r *http.Request) {
	result, err := h.sched.TriggerNow(r.Context())
	if err != nil {
		if errors.Is(err, scheduler.ErrBusy) {
			h.httpError(w, "A drain is already in progress", http.StatusConflict)
			return
		}
		logger.FromContext(r.Context(), h.log).Error("triggered drain failed", "error", err)
		h.httpError(w, "Processing failed", http.StatusInternalServerError)
		return
	}

	h.respondJson(w, http.StatusOK, api.ProcessResponse{
		Processed:    result.Processed,
		Failed:       result.Failed,
		DeadLettered: result.DeadLettered,
	})
}
