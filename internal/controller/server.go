// Package controller contains the HTTP API for the interpretation pipeline.
package controller

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"aims/internal/controller/handlers"
	"aims/internal/controller/middleware"
)

// Server is the HTTP server for the controller API.
type Server struct {
	httpServer *http.Server
}

// New creates a new controller server.
func New(addr, apiKey string, h *handlers.Handlers, metricsHandler http.Handler, log *slog.Logger) *Server {
	auth := middleware.RequireAPIKey(apiKey)

	mux := http.NewServeMux()

	// Open routes.
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /health/detailed", h.HealthDetailed)
	mux.HandleFunc("GET /docs", h.Docs)
	mux.HandleFunc("GET /", h.Root)
	if metricsHandler != nil {
		mux.Handle("GET /metrics", metricsHandler)
	}

	// Admission and processing.
	mux.Handle("POST /trigger", auth(http.HandlerFunc(h.Trigger)))
	mux.Handle("POST /trigger/batch", auth(http.HandlerFunc(h.TriggerBatch)))
	mux.Handle("POST /process/now", auth(http.HandlerFunc(h.ProcessNow)))

	// Scheduler control.
	mux.Handle("GET /scheduler/status", auth(http.HandlerFunc(h.SchedulerStatus)))
	mux.Handle("POST /scheduler/pause", auth(http.HandlerFunc(h.PauseScheduler)))
	mux.Handle("POST /scheduler/resume", auth(http.HandlerFunc(h.ResumeScheduler)))

	// Admin surface.
	mux.Handle("POST /admin/trigger-event", auth(http.HandlerFunc(h.TriggerEvent)))
	mux.Handle("POST /admin/process-queue", auth(http.HandlerFunc(h.ProcessQueue)))
	mux.Handle("GET /admin/templates", auth(http.HandlerFunc(h.ListTemplates)))
	mux.Handle("GET /admin/events/{id}", auth(http.HandlerFunc(h.GetEvent)))
	mux.Handle("GET /admin/dead-letters", auth(http.HandlerFunc(h.ListDeadLetters)))
	mux.Handle("POST /admin/dead-letters/{id}/retry", auth(http.HandlerFunc(h.RetryDeadLetter)))
	mux.Handle("POST /admin/purge", auth(http.HandlerFunc(h.Purge)))
	mux.Handle("GET /admin/summary", auth(http.HandlerFunc(h.Summary)))

	handler := middleware.RequestID(mux)

	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      handler,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
	}
}

// Run starts the HTTP server. It blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return s.Shutdown(shutdownCtx)
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
