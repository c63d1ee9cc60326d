// Package progress consolidates asynchronous scraper outcomes into job
// counters and terminal-state decisions.
package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"scrapeplane/internal/store"
)

// ErrCounterInvariant reports counters exceeding totalItems. This must not
// happen when all updates go through the atomic store operation; it is
// surfaced loudly instead of being clamped.
var ErrCounterInvariant = errors.New("job counters exceed total items")

// Aggregator records per-item outcomes against the job store.
type Aggregator struct {
	jobs   store.JobStore
	logger *slog.Logger
}

// NewAggregator creates an Aggregator.
func NewAggregator(jobs store.JobStore, logger *slog.Logger) *Aggregator {
	return &Aggregator{jobs: jobs, logger: logger}
}

// Lookup resolves the job a feedback event refers to, or returns
// store.ErrJobNotFound.
func (a *Aggregator) Lookup(ctx context.Context, jobID uuid.UUID) (*store.Job, error) {
	return a.jobs.GetJobByID(ctx, jobID)
}

// RecordOutcome adds one success or failure to the job's counters. The
// increment, percent recomputation and the FINISHED flip execute atomically
// in the store, so concurrent calls for the same job never lose updates and
// the terminal transition fires exactly once.
//
// Outcomes for jobs in a terminal state are tolerated: workers keep
// reporting items dispatched before a stop or failure, and those reports
// leave the record unchanged.
func (a *Aggregator) RecordOutcome(ctx context.Context, jobID uuid.UUID, failed bool) (*store.Job, error) {
	completed, failedDelta := 1, 0
	if failed {
		completed, failedDelta = 0, 1
	}

	j, err := a.jobs.ApplyOutcome(ctx, jobID, completed, failedDelta)
	if err != nil {
		return nil, err
	}

	if j.TotalItems == nil || *j.TotalItems == 0 {
		a.logger.Warn("job has no total items, percent not updated",
			"job_id", jobID, "completed", j.CompletedItems, "failed", j.FailedItems)
		return j, nil
	}

	if j.CompletedItems+j.FailedItems > *j.TotalItems {
		a.logger.Error("counter invariant violated",
			"job_id", jobID, "completed", j.CompletedItems, "failed", j.FailedItems,
			"total", *j.TotalItems)
		return j, fmt.Errorf("%w: job %s has %d outcomes for %d items",
			ErrCounterInvariant, jobID, j.CompletedItems+j.FailedItems, *j.TotalItems)
	}

	if j.Status == store.JobStatusFinished && j.CompletedItems+j.FailedItems == *j.TotalItems {
		a.logger.Info("job finished",
			"job_id", jobID, "completed", j.CompletedItems, "failed", j.FailedItems)
	}

	return j, nil
}
