package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"scrapeplane/internal/store"
)

const jobColumns = `id, title, job_type, status, created_at, started_at, finished_at,
		total_items, completed_items, failed_items, percent_completed`

// CreateJob inserts a new job row in status CREATED.
func (s *Store) CreateJob(ctx context.Context, tx store.DBTransaction, job *store.Job) error {
	query := `
		INSERT INTO jobs (id, title, job_type, status, created_at, completed_items, failed_items, percent_completed)
		VALUES ($1, $2, $3, $4, $5, 0, 0, 0)
	`

	executor := s.getExecutor(tx)
	_, err := executor.ExecContext(ctx, query,
		job.ID,
		job.Title,
		job.JobType,
		job.Status,
		job.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert job %s: %w", job.ID, err)
	}
	return nil
}

func (s *Store) GetJobByID(ctx context.Context, id uuid.UUID) (*store.Job, error) {
	query := fmt.Sprintf("SELECT %s FROM jobs WHERE id = $1", jobColumns)

	job, err := scanJob(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to load job %s: %w", id, err)
	}
	return job, nil
}

// ListJobs returns a page of jobs, newest first, plus the total count.
func (s *Store) ListJobs(ctx context.Context, offset, limit int) ([]store.Job, int64, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM jobs").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count jobs: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM jobs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, jobColumns)

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []store.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan job row: %w", err)
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("job rows error: %w", err)
	}

	return jobs, total, nil
}

// MarkJobRunning records a successful dispatch. totalItems is fixed here and
// never recomputed afterwards.
func (s *Store) MarkJobRunning(ctx context.Context, id uuid.UUID, totalItems int, startedAt time.Time) (*store.Job, error) {
	query := fmt.Sprintf(`
		UPDATE jobs
		SET status = $2, total_items = $3, started_at = $4
		WHERE id = $1 AND status = $5
		RETURNING %s
	`, jobColumns)

	job, err := scanJob(s.db.QueryRowContext(ctx, query,
		id, store.JobStatusRunning, totalItems, startedAt, store.JobStatusCreated))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.classifyMissedUpdate(ctx, id)
		}
		return nil, fmt.Errorf("failed to mark job %s running: %w", id, err)
	}
	return job, nil
}

// TransitionJob moves a job between statuses with the allowed-from guard
// enforced inside the statement, so concurrent operator actions cannot race
// past the state machine.
func (s *Store) TransitionJob(ctx context.Context, id uuid.UUID, allowedFrom []store.JobStatus, to store.JobStatus, stampFinished bool) (*store.Job, error) {
	from := make([]string, len(allowedFrom))
	for i, st := range allowedFrom {
		from[i] = string(st)
	}

	query := fmt.Sprintf(`
		UPDATE jobs
		SET status = $2,
		    finished_at = CASE WHEN $3 THEN NOW() ELSE finished_at END
		WHERE id = $1 AND status = ANY($4)
		RETURNING %s
	`, jobColumns)

	job, err := scanJob(s.db.QueryRowContext(ctx, query, id, to, stampFinished, pq.Array(from)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.classifyMissedUpdate(ctx, id)
		}
		return nil, fmt.Errorf("failed to transition job %s to %s: %w", id, to, err)
	}
	return job, nil
}

// ApplyOutcome adds one outcome to the job's counters as a single atomic
// statement. The increment, percent recomputation and the RUNNING->FINISHED
// flip all happen in the same UPDATE, so concurrent consumers cannot lose
// updates. Outcomes for terminal jobs leave the row untouched and are
// reported through the returned snapshot.
func (s *Store) ApplyOutcome(ctx context.Context, id uuid.UUID, completedDelta, failedDelta int) (*store.Job, error) {
	query := fmt.Sprintf(`
		UPDATE jobs
		SET completed_items = CASE
		        WHEN status IN ('FINISHED', 'CANCELLED', 'FAILED') THEN completed_items
		        ELSE completed_items + $2
		    END,
		    failed_items = CASE
		        WHEN status IN ('FINISHED', 'CANCELLED', 'FAILED') THEN failed_items
		        ELSE failed_items + $3
		    END,
		    percent_completed = CASE
		        WHEN status IN ('FINISHED', 'CANCELLED', 'FAILED')
		             OR total_items IS NULL OR total_items = 0 THEN percent_completed
		        ELSE (completed_items + failed_items + $2 + $3)::double precision / total_items * 100
		    END,
		    finished_at = CASE
		        WHEN status = 'RUNNING' AND total_items IS NOT NULL AND total_items > 0
		             AND completed_items + failed_items + $2 + $3 >= total_items THEN NOW()
		        ELSE finished_at
		    END,
		    status = CASE
		        WHEN status = 'RUNNING' AND total_items IS NOT NULL AND total_items > 0
		             AND completed_items + failed_items + $2 + $3 >= total_items THEN 'FINISHED'
		        ELSE status
		    END
		WHERE id = $1
		RETURNING %s
	`, jobColumns)

	job, err := scanJob(s.db.QueryRowContext(ctx, query, id, completedDelta, failedDelta))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to apply outcome to job %s: %w", id, err)
	}
	return job, nil
}

// CountActiveJobs returns the number of jobs in a non-terminal status.
func (s *Store) CountActiveJobs(ctx context.Context) (int64, error) {
	query := "SELECT COUNT(*) FROM jobs WHERE status IN ($1, $2, $3)"

	var count int64
	err := s.db.QueryRowContext(ctx, query,
		store.JobStatusCreated, store.JobStatusRunning, store.JobStatusStopped).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active jobs: %w", err)
	}
	return count, nil
}

// classifyMissedUpdate distinguishes an unknown job from a guard rejection
// after a conditional UPDATE matched no rows.
func (s *Store) classifyMissedUpdate(ctx context.Context, id uuid.UUID) error {
	var status string
	err := s.db.QueryRowContext(ctx, "SELECT status FROM jobs WHERE id = $1", id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrJobNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load job %s: %w", id, err)
	}
	return fmt.Errorf("%w: job %s is %s", store.ErrInvalidTransition, id, status)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*store.Job, error) {
	var job store.Job
	var totalItems sql.NullInt64
	var startedAt, finishedAt sql.NullTime

	err := row.Scan(
		&job.ID,
		&job.Title,
		&job.JobType,
		&job.Status,
		&job.CreatedAt,
		&startedAt,
		&finishedAt,
		&totalItems,
		&job.CompletedItems,
		&job.FailedItems,
		&job.PercentCompleted,
	)
	if err != nil {
		return nil, err
	}

	if totalItems.Valid {
		n := int(totalItems.Int64)
		job.TotalItems = &n
	}
	if startedAt.Valid {
		t := startedAt.Time
		job.StartedAt = &t
	}
	if finishedAt.Valid {
		t := finishedAt.Time
		job.FinishedAt = &t
	}

	return &job, nil
}
