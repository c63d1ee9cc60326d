package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"scrapeplane/internal/store"
)

// ItemDispatcher is the dispatch surface the orchestrator depends on.
type ItemDispatcher interface {
	Dispatch(ctx context.Context, j *store.Job, params CreateParams) (int, error)
}

// Orchestrator is the facade over the job lifecycle: it creates jobs, fans
// them out through the dispatcher and gates operator actions through the
// state machine.
type Orchestrator struct {
	jobs       store.JobStore
	dispatcher ItemDispatcher
	logger     *slog.Logger
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(jobs store.JobStore, dispatcher ItemDispatcher, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:       jobs,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// CreateAndStart creates a job and immediately dispatches its work items.
// On dispatch failure the job is recorded as FAILED and returned without an
// error: once creation succeeded the caller always gets the job back, with
// failures visible in its status.
func (o *Orchestrator) CreateAndStart(ctx context.Context, params CreateParams) (*store.Job, error) {
	now := time.Now().UTC()
	j := &store.Job{
		ID:        uuid.New(),
		Title:     fmt.Sprintf("%s Job - %s", params.JobType, now.Format(time.RFC3339)),
		JobType:   params.JobType,
		Status:    store.JobStatusCreated,
		CreatedAt: now,
	}

	if err := o.jobs.CreateJob(ctx, nil, j); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	o.logger.Info("created job", "job_id", j.ID, "job_type", j.JobType)

	total, err := o.dispatcher.Dispatch(ctx, j, params)
	if err != nil {
		o.logger.Error("failed to dispatch job", "job_id", j.ID, "error", err)
		failed, terr := o.jobs.TransitionJob(ctx, j.ID,
			[]store.JobStatus{store.JobStatusCreated}, store.JobStatusFailed, false)
		if terr != nil {
			return nil, fmt.Errorf("failed to record dispatch failure for job %s: %w", j.ID, terr)
		}
		return failed, nil
	}

	running, err := o.jobs.MarkJobRunning(ctx, j.ID, total, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to mark job %s running: %w", j.ID, err)
	}
	o.logger.Info("started job", "job_id", j.ID, "total_items", total)

	return running, nil
}

// Resume moves a STOPPED job back to RUNNING. Resuming does not retract or
// re-dispatch in-flight messages; it only re-opens the job to progress
// accounting and operator actions. Any other state is a no-op with a
// warning.
func (o *Orchestrator) Resume(ctx context.Context, id uuid.UUID) (*store.Job, error) {
	j, err := o.jobs.TransitionJob(ctx, id,
		[]store.JobStatus{store.JobStatusStopped}, store.JobStatusRunning, false)
	if err == nil {
		o.logger.Info("resumed job", "job_id", id)
		return j, nil
	}
	return o.rejectedAction(ctx, id, "resume", err)
}

// Stop moves a RUNNING job to STOPPED. Any other state is a no-op with a
// warning.
func (o *Orchestrator) Stop(ctx context.Context, id uuid.UUID) (*store.Job, error) {
	j, err := o.jobs.TransitionJob(ctx, id,
		[]store.JobStatus{store.JobStatusRunning}, store.JobStatusStopped, true)
	if err == nil {
		o.logger.Info("stopped job", "job_id", id)
		return j, nil
	}
	return o.rejectedAction(ctx, id, "stop", err)
}

// Cancel moves any non-terminal job to CANCELLED. Cancelling an already
// cancelled job is an idempotent success; other terminal states are no-ops
// with a warning. Cancellation never removes the row.
func (o *Orchestrator) Cancel(ctx context.Context, id uuid.UUID) (*store.Job, error) {
	j, err := o.jobs.TransitionJob(ctx, id,
		[]store.JobStatus{store.JobStatusCreated, store.JobStatusRunning, store.JobStatusStopped},
		store.JobStatusCancelled, true)
	if err == nil {
		o.logger.Info("cancelled job", "job_id", id)
		return j, nil
	}
	if errors.Is(err, store.ErrInvalidTransition) {
		current, gerr := o.jobs.GetJobByID(ctx, id)
		if gerr != nil {
			return nil, gerr
		}
		if current.Status == store.JobStatusCancelled {
			return current, nil
		}
		o.logger.Warn("rejected cancel on terminal job", "job_id", id, "status", current.Status)
		return current, nil
	}
	return nil, err
}

// Get returns a job by id.
func (o *Orchestrator) Get(ctx context.Context, id uuid.UUID) (*store.Job, error) {
	return o.jobs.GetJobByID(ctx, id)
}

// List returns a page of jobs, newest first.
func (o *Orchestrator) List(ctx context.Context, offset, limit int) ([]store.Job, int64, error) {
	return o.jobs.ListJobs(ctx, offset, limit)
}

// rejectedAction downgrades guard rejections to a warning no-op returning
// the unchanged job; unknown jobs and store failures stay errors.
func (o *Orchestrator) rejectedAction(ctx context.Context, id uuid.UUID, action string, err error) (*store.Job, error) {
	if !errors.Is(err, store.ErrInvalidTransition) {
		return nil, err
	}
	current, gerr := o.jobs.GetJobByID(ctx, id)
	if gerr != nil {
		return nil, gerr
	}
	o.logger.Warn("rejected job action", "job_id", id, "action", action, "status", current.Status)
	return current, nil
}
