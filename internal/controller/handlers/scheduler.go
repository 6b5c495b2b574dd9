package handlers

import (
	"net/http"

	"aims/internal/scheduler"
	"aims/pkg/api"
)

// SchedulerStatus handles GET /scheduler/status.
func (h *Handlers) SchedulerStatus(w http.ResponseWriter, r *http.Request) {
	h.respondJson(w, http.StatusOK, schedulerStatusResponse(h.sched.Status()))
}

// PauseScheduler handles POST /scheduler/pause.
func (h *Handlers) PauseScheduler(w http.ResponseWriter, r *http.Request) {
	h.sched.Pause()
	h.respondJson(w, http.StatusOK, map[string]bool{"paused": true})
}

// ResumeScheduler handles POST /scheduler/resume.
func (h *Handlers) ResumeScheduler(w http.ResponseWriter, r *http.Request) {
	h.sched.Resume()
	h.respondJson(w, http.StatusOK, map[string]bool{"paused": false})
}

func schedulerStatusResponse(state scheduler.State) api.SchedulerStatusResponse {
	resp := api.SchedulerStatusResponse{
		Interval:      state.Interval.String(),
		Running:       state.Running,
		Paused:        state.Paused,
		LastTickStart: state.LastTickStart,
		LastTickEnd:   state.LastTickEnd,
		ManualRuns:    state.ManualRuns,
	}
	if state.LastResult != nil {
		resp.LastResult = &api.ProcessResponse{
			Processed:    state.LastResult.Processed,
			Failed:       state.LastResult.Failed,
			DeadLettered: state.LastResult.DeadLettered,
		}
	}
	return resp
}
