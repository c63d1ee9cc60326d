// Package api contains shared JSON request/response structs.
// This package is shared between the CLI and the manager.
package api

import "time"

// SearchParams are the geographic parameters of a SEARCH campaign.
type SearchParams struct {
	Country        string `json:"country"`
	CellSize       int    `json:"cell_size"`
	RecursiveDepth int    `json:"recursive_depth,omitempty"`
	// StartAt/Limit window the candidate cells: skip start_at, then take up
	// to limit (0 means all remaining).
	StartAt            int    `json:"start_at,omitempty"`
	Limit              int    `json:"limit,omitempty"`
	FromOptimalCells   bool   `json:"from_optimal_cells,omitempty"`
	UpdateOptimalCells bool   `json:"update_optimal_cells,omitempty"`
	StartDate          string `json:"start_date,omitempty"`
	EndDate            string `json:"end_date,omitempty"`
}

// CreateJobRequest is the request body for creating and starting a new
// scraping campaign. Dates use the yyyy/MM/dd layout.
type CreateJobRequest struct {
	JobType          string        `json:"job_type"`
	NumberOfVehicles int           `json:"number_of_vehicles,omitempty"`
	StartDate        string        `json:"start_date,omitempty"`
	EndDate          string        `json:"end_date,omitempty"`
	Search           *SearchParams `json:"search_params,omitempty"`
}

// JobResponse represents a job in API responses.
type JobResponse struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	JobType          string     `json:"job_type"`
	Status           string     `json:"status"`
	CreatedAt        time.Time  `json:"created_at"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	FinishedAt       *time.Time `json:"finished_at,omitempty"`
	TotalItems       *int       `json:"total_items,omitempty"`
	CompletedItems   int        `json:"completed_items"`
	FailedItems      int        `json:"failed_items"`
	PercentCompleted float64    `json:"percent_completed"`
}

// ListJobsResponse is the response body for the paginated job list.
type ListJobsResponse struct {
	Jobs  []JobResponse `json:"jobs"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Size  int           `json:"size"`
}

// JobStatusResponse is the response body for job status queries.
type JobStatusResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}
