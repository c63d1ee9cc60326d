package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"scrapeplane/pkg/api"
)

// ManagerClient handles API calls to the scrapeplane manager.
type ManagerClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewManagerClient creates a new client with the given base URL.
func NewManagerClient(baseURL string) *ManagerClient {
	return &ManagerClient{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError represents an error response from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// CreateJob sends POST /api/v1/jobs to create and start a campaign.
func (c *ManagerClient) CreateJob(req api.CreateJobRequest) (*api.JobResponse, error) {
	bodyBytes, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var result api.JobResponse
	if err := c.do(http.MethodPost, "/api/v1/jobs", bytes.NewReader(bodyBytes), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetJob sends GET /api/v1/jobs/{id} to retrieve a job summary.
func (c *ManagerClient) GetJob(jobID string) (*api.JobResponse, error) {
	var result api.JobResponse
	if err := c.do(http.MethodGet, "/api/v1/jobs/"+jobID, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetJobStatus sends GET /api/v1/jobs/{id}/status.
func (c *ManagerClient) GetJobStatus(jobID string) (*api.JobStatusResponse, error) {
	var result api.JobStatusResponse
	if err := c.do(http.MethodGet, "/api/v1/jobs/"+jobID+"/status", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListJobs sends GET /api/v1/jobs with pagination.
func (c *ManagerClient) ListJobs(page, size int) (*api.ListJobsResponse, error) {
	var result api.ListJobsResponse
	path := fmt.Sprintf("/api/v1/jobs?page=%d&size=%d", page, size)
	if err := c.do(http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// JobAction sends POST /api/v1/jobs/{id}/{action} for start, stop or cancel.
func (c *ManagerClient) JobAction(jobID, action string) (*api.JobResponse, error) {
	var result api.JobResponse
	if err := c.do(http.MethodPost, "/api/v1/jobs/"+jobID+"/"+action, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *ManagerClient) do(method, path string, body io.Reader, out interface{}) error {
	httpReq, err := http.NewRequest(method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Add("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
