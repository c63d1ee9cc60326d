package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"scrapeplane/internal/job"
	"scrapeplane/internal/store"
	"scrapeplane/pkg/api"
)

// dateLayout is the date format accepted on requests, matching the layout
// scrapers receive on work items.
const dateLayout = "2006/01/02"

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// CreateJob handles POST /api/v1/jobs.
// It creates a campaign and immediately dispatches its work items. A
// dispatch failure still returns the job, with the failure visible in its
// status.
func (h *Handlers) CreateJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	params, err := createParamsFromRequest(&req)
	if err != nil {
		h.httpError(w, err.Error(), http.StatusBadRequest)
		return
	}

	j, err := h.jobs.CreateAndStart(ctx, *params)
	if err != nil {
		h.httpError(w, "Failed to create job", http.StatusInternalServerError)
		return
	}

	h.respondJson(w, http.StatusCreated, jobResponse(j))
}

// ListJobs handles GET /api/v1/jobs with page/size query parameters.
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	if page < 1 {
		page = 1
	}
	size := queryInt(r, "size", defaultPageSize)
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	jobs, total, err := h.jobs.List(r.Context(), (page-1)*size, size)
	if err != nil {
		h.httpError(w, "Failed to list jobs", http.StatusInternalServerError)
		return
	}

	resp := api.ListJobsResponse{
		Jobs:  make([]api.JobResponse, 0, len(jobs)),
		Total: total,
		Page:  page,
		Size:  size,
	}
	for i := range jobs {
		resp.Jobs = append(resp.Jobs, jobResponse(&jobs[i]))
	}
	h.respondJson(w, http.StatusOK, resp)
}

// GetJob handles GET /api/v1/jobs/{id}.
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	id, ok := h.jobIDFromPath(w, r)
	if !ok {
		return
	}

	j, err := h.jobs.Get(r.Context(), id)
	if err != nil {
		h.jobError(w, err)
		return
	}
	h.respondJson(w, http.StatusOK, jobResponse(j))
}

// GetJobStatus handles GET /api/v1/jobs/{id}/status.
func (h *Handlers) GetJobStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.jobIDFromPath(w, r)
	if !ok {
		return
	}

	j, err := h.jobs.Get(r.Context(), id)
	if err != nil {
		h.jobError(w, err)
		return
	}
	h.respondJson(w, http.StatusOK, api.JobStatusResponse{
		ID:     j.ID.String(),
		Status: string(j.Status),
	})
}

// StartJob handles POST /api/v1/jobs/{id}/start.
// It resumes a stopped job; any other state is a no-op returning the
// unchanged job.
func (h *Handlers) StartJob(w http.ResponseWriter, r *http.Request) {
	h.jobAction(w, r, h.jobs.Resume)
}

// StopJob handles POST /api/v1/jobs/{id}/stop.
func (h *Handlers) StopJob(w http.ResponseWriter, r *http.Request) {
	h.jobAction(w, r, h.jobs.Stop)
}

// CancelJob handles POST /api/v1/jobs/{id}/cancel.
func (h *Handlers) CancelJob(w http.ResponseWriter, r *http.Request) {
	h.jobAction(w, r, h.jobs.Cancel)
}

func (h *Handlers) jobAction(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, id uuid.UUID) (*store.Job, error)) {
	id, ok := h.jobIDFromPath(w, r)
	if !ok {
		return
	}

	j, err := action(r.Context(), id)
	if err != nil {
		h.jobError(w, err)
		return
	}
	h.respondJson(w, http.StatusOK, jobResponse(j))
}

func (h *Handlers) jobIDFromPath(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.httpError(w, "Invalid job id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handlers) jobError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrJobNotFound) {
		h.httpError(w, "Job not found", http.StatusNotFound)
		return
	}
	h.httpError(w, "Internal database error", http.StatusInternalServerError)
}

// createParamsFromRequest validates the request and maps it onto the
// orchestrator's parameters.
func createParamsFromRequest(req *api.CreateJobRequest) (*job.CreateParams, error) {
	jobType := store.JobType(req.JobType)
	switch jobType {
	case store.JobTypeSearch, store.JobTypeAvailability, store.JobTypeVehicleDetails:
	default:
		return nil, fmt.Errorf("unknown job_type %q", req.JobType)
	}

	params := &job.CreateParams{
		JobType:          jobType,
		NumberOfVehicles: req.NumberOfVehicles,
	}

	if jobType == store.JobTypeSearch {
		if req.Search == nil {
			return nil, fmt.Errorf("search_params are required for SEARCH jobs")
		}
		if req.Search.Country == "" {
			return nil, fmt.Errorf("search_params.country is required")
		}
		if req.Search.CellSize <= 0 {
			return nil, fmt.Errorf("search_params.cell_size must be positive")
		}
		params.Search = &job.SearchParams{
			Country:            req.Search.Country,
			CellSize:           req.Search.CellSize,
			RecursiveDepth:     req.Search.RecursiveDepth,
			StartAt:            req.Search.StartAt,
			Limit:              req.Search.Limit,
			FromOptimalCells:   req.Search.FromOptimalCells,
			UpdateOptimalCells: req.Search.UpdateOptimalCells,
			StartDate:          req.Search.StartDate,
			EndDate:            req.Search.EndDate,
		}
		return params, nil
	}

	var err error
	if params.StartDate, err = parseDate(req.StartDate); err != nil {
		return nil, fmt.Errorf("invalid start_date: %w", err)
	}
	if params.EndDate, err = parseDate(req.EndDate); err != nil {
		return nil, fmt.Errorf("invalid end_date: %w", err)
	}
	return params, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, s)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
