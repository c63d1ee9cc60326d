// Package store contains the database layer for scrapeplane.
package store

import (
	"time"

	"github.com/google/uuid"
)

// Job represents one scraping campaign and its aggregated progress.
type Job struct {
	ID               uuid.UUID
	Title            string
	JobType          JobType
	Status           JobStatus
	CreatedAt        time.Time
	StartedAt        *time.Time
	FinishedAt       *time.Time
	TotalItems       *int
	CompletedItems   int
	FailedItems      int
	PercentCompleted float64
}

// JobStatus represents the state of a job.
type JobStatus string

const (
	JobStatusCreated   JobStatus = "CREATED"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusStopped   JobStatus = "STOPPED"
	JobStatusCancelled JobStatus = "CANCELLED"
	JobStatusFinished  JobStatus = "FINISHED"
	JobStatusFailed    JobStatus = "FAILED"
)

// IsTerminal reports whether no further status transition is permitted.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusFinished || s == JobStatusCancelled || s == JobStatusFailed
}

// JobType selects the work source and outbound topic for a job.
type JobType string

const (
	JobTypeSearch         JobType = "SEARCH"
	JobTypeAvailability   JobType = "AVAILABILITY"
	JobTypeVehicleDetails JobType = "VEHICLE_DETAILS"
)

// OptimalCell is the current best-known geographic partition for a
// region/resolution pair. Rows are always replaced wholesale, never
// mutated field by field.
type OptimalCell struct {
	ID            uuid.UUID
	Country       string
	CellSize      int
	TopRightLat   float64
	TopRightLng   float64
	BottomLeftLat float64
	BottomLeftLng float64
}

// VehicleRef is a work-source projection of a vehicle row. Only the fields
// needed to build a work item are read; the full vehicle record stays with
// the scraper pipeline.
type VehicleRef struct {
	ID                 int64
	Country            string
	PricingLastUpdated *time.Time
}
