package handlers

import (
	"net/http"
	"time"

	"aims/pkg/api"
)

// Health is a liveness probe.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJson(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// HealthDetailed reports database connectivity, scheduler state and queue
// depth. Partial data is returned with a degraded marker rather than an
// error.
func (h *Handlers) HealthDetailed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := map[string]any{"status": "healthy"}

	if err := h.store.Ping(ctx); err != nil {
		resp["status"] = "degraded"
		resp["database"] = "unavailable"
	} else {
		resp["database"] = "ok"
	}

	resp["scheduler"] = schedulerStatusResponse(h.sched.Status())

	summary := h.reporter.Summary(ctx)
	depths := make(map[string]int64, len(summary.QueueDepthByState))
	for state, count := range summary.QueueDepthByState {
		depths[string(state)] = count
	}
	resp["queue_depth_by_state"] = depths
	if len(summary.Degraded) > 0 {
		resp["status"] = "degraded"
		resp["degraded"] = summary.Degraded
	}

	h.respondJson(w, http.StatusOK, resp)
}

// Summary handles GET /admin/summary: the status reporter's aggregate view.
func (h *Handlers) Summary(w http.ResponseWriter, r *http.Request) {
	summary := h.reporter.Summary(r.Context())

	depths := make(map[string]int64, len(summary.QueueDepthByState))
	for state, count := range summary.QueueDepthByState {
		depths[string(state)] = count
	}

	resp := api.SummaryResponse{
		QueueDepthByState: depths,
		DeadLetterCount:   summary.DeadLetterCount,
		PurgedSubjects:    summary.PurgedSubjects,
		LastTickStart:     summary.Scheduler.LastTickStart,
		LastTickEnd:       summary.Scheduler.LastTickEnd,
		Degraded:          summary.Degraded,
	}
	if summary.OldestPendingAge != nil {
		age := summary.OldestPendingAge.Round(time.Second).String()
		resp.OldestPendingAge = &age
	}

	h.respondJson(w, http.StatusOK, resp)
}

// Docs serves a minimal plain-text API reference.
func (h *Handlers) Docs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(`AIMS interpretation pipeline

Authenticated routes (X-API-Key header):
  POST /admin/trigger-event              admit an event {type, payload, subject}
  POST /admin/process-queue              run one processing pass
  GET  /admin/templates                  list active templates
  GET  /admin/events/{id}                fetch an event
  GET  /admin/dead-letters               list dead-lettered entries
  POST /admin/dead-letters/{id}/retry    re-queue a dead-lettered entry
  POST /admin/purge                      purge a subject's events {subject}
  GET  /admin/summary                    aggregate status
  POST /trigger                          subject-scoped admission (X-Subject-ID)
  POST /trigger/batch                    bulk admission
  POST /process/now                      trigger the scheduler's drain
  GET  /scheduler/status                 scheduler snapshot
  POST /scheduler/pause | /scheduler/resume

Open routes:
  GET /health, /health/detailed, /metrics, /docs, /
`))
}

// Root serves a one-line service banner.
func (h *Handlers) Root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		h.httpError(w, "Not found", http.StatusNotFound)
		return
	}
	h.respondJson(w, http.StatusOK, map[string]string{
		"service": "aims",
		"docs":    "/docs",
	})
}
