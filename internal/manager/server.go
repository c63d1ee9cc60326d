// Package manager contains the manager-specific logic for the HTTP API.
package manager

import (
	"context"
	"net/http"
	"time"

	"scrapeplane/internal/config"
	"scrapeplane/internal/manager/handlers"
	"scrapeplane/internal/manager/middleware"
)

// Server is the HTTP server for the manager API.
type Server struct {
	httpServer *http.Server
}

// New creates a new manager server.
func New(addr string, h *handlers.Handlers, cfg *config.Config, metricsHandler http.Handler) *Server {
	rlMW := middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst)

	mux := http.NewServeMux()

	// Campaign apis
	mux.Handle("POST /api/v1/jobs", rlMW(http.HandlerFunc(h.CreateJob)))
	mux.Handle("GET /api/v1/jobs", rlMW(http.HandlerFunc(h.ListJobs)))
	mux.Handle("GET /api/v1/jobs/{id}", rlMW(http.HandlerFunc(h.GetJob)))
	mux.Handle("GET /api/v1/jobs/{id}/status", rlMW(http.HandlerFunc(h.GetJobStatus)))
	mux.Handle("POST /api/v1/jobs/{id}/start", rlMW(http.HandlerFunc(h.StartJob)))
	mux.Handle("POST /api/v1/jobs/{id}/stop", rlMW(http.HandlerFunc(h.StopJob)))
	mux.Handle("POST /api/v1/jobs/{id}/cancel", rlMW(http.HandlerFunc(h.CancelJob)))

	// Probes and metrics stay outside the rate limiter.
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
	if metricsHandler != nil {
		mux.Handle("GET /metrics", metricsHandler)
	}

	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      middleware.RequestID(mux),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
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
		shutDownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return s.Shutdown(shutDownCtx)
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
