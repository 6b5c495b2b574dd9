// Package handlers contains HTTP handlers for the controller API.
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"aims/internal/processor"
	"aims/internal/scheduler"
	"aims/internal/status"
	"aims/internal/store"
	"aims/pkg/api"
)

// Store combines the repository interfaces the controller needs.
type Store interface {
	Ping(ctx context.Context) error
	store.EventStore
	store.Queue
	store.TemplateCatalog
}

// SchedulerControl is the slice of the scheduler the handlers drive.
type SchedulerControl interface {
	TriggerNow(ctx context.Context) (processor.Result, error)
	Status() scheduler.State
	Pause()
	Resume()
}

// Drainer runs one processing pass outside the scheduler's mutual exclusion.
type Drainer interface {
	Drain(ctx context.Context) (processor.Result, error)
}

// Reporter produces the aggregate status summary.
type Reporter interface {
	Summary(ctx context.Context) status.Summary
}

// Handlers holds all HTTP handlers and their dependencies.
type Handlers struct {
	store    Store
	sched    SchedulerControl
	drainer  Drainer
	reporter Reporter
	log      *slog.Logger
}

// New creates a new Handlers instance.
func New(s Store, sched SchedulerControl, drainer Drainer, reporter Reporter, log *slog.Logger) *Handlers {
	if log == nil {
		log = slog.Default()
	}
	return &Handlers{store: s, sched: sched, drainer: drainer, reporter: reporter, log: log}
}

// A helper function to write standard JSON responses.
func (h *Handlers) respondJson(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// A helper function to return consistent error messages.
func (h *Handlers) httpError(w http.ResponseWriter, message string, code int) {
	h.respondJson(w, code, api.ErrorResponse{
		Error: message,
		Code:  strconv.Itoa(code),
	})
}
