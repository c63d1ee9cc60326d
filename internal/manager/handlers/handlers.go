// Package handlers contains HTTP handlers for the manager API.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"scrapeplane/internal/job"
	"scrapeplane/internal/store"
	"scrapeplane/pkg/api"
)

// JobService is the orchestration surface the handlers depend on.
type JobService interface {
	CreateAndStart(ctx context.Context, params job.CreateParams) (*store.Job, error)
	Resume(ctx context.Context, id uuid.UUID) (*store.Job, error)
	Stop(ctx context.Context, id uuid.UUID) (*store.Job, error)
	Cancel(ctx context.Context, id uuid.UUID) (*store.Job, error)
	Get(ctx context.Context, id uuid.UUID) (*store.Job, error)
	List(ctx context.Context, offset, limit int) ([]store.Job, int64, error)
}

// Pinger reports database connectivity for the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers holds all HTTP handlers and their dependencies.
type Handlers struct {
	jobs JobService
	db   Pinger
}

// New creates a new Handlers instance with the given dependencies.
func New(jobs JobService, db Pinger) *Handlers {
	return &Handlers{jobs: jobs, db: db}
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

// jobResponse maps a store job onto the API representation.
func jobResponse(j *store.Job) api.JobResponse {
	return api.JobResponse{
		ID:               j.ID.String(),
		Title:            j.Title,
		JobType:          string(j.JobType),
		Status:           string(j.Status),
		CreatedAt:        j.CreatedAt,
		StartedAt:        j.StartedAt,
		FinishedAt:       j.FinishedAt,
		TotalItems:       j.TotalItems,
		CompletedItems:   j.CompletedItems,
		FailedItems:      j.FailedItems,
		PercentCompleted: j.PercentCompleted,
	}
}
