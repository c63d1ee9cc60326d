package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrJobNotFound is returned when a job id does not exist.
// Feedback consumers use it to route events to the dead-letter topic.
var ErrJobNotFound = errors.New("job not found")

// ErrInvalidTransition is returned when a status change is requested from a
// state the state machine does not permit (e.g. stop on a non-running job).
var ErrInvalidTransition = errors.New("invalid job status transition")

// DBTransaction defines the methods shared by *sql.DB and *sql.Tx
// This allows us to pass either a connection pool or an active transaction to the repository methods.
type DBTransaction interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type Tx interface {
	DBTransaction
	Commit() error
	Rollback() error
}

// JobStore is the single source of truth for job state. Mutating methods are
// single atomic statements; callers never read-modify-write a job row.
type JobStore interface {
	// CreateJob inserts a new job in status CREATED.
	CreateJob(ctx context.Context, tx DBTransaction, job *Job) error

	// GetJobByID returns a job by its ID, or ErrJobNotFound.
	GetJobByID(ctx context.Context, id uuid.UUID) (*Job, error)

	// ListJobs returns a page of jobs sorted by creation time, newest first,
	// plus the total row count.
	ListJobs(ctx context.Context, offset, limit int) ([]Job, int64, error)

	// MarkJobRunning records a successful dispatch: fixes totalItems, sets
	// status RUNNING and stamps startedAt. Valid only from CREATED.
	MarkJobRunning(ctx context.Context, id uuid.UUID, totalItems int, startedAt time.Time) (*Job, error)

	// TransitionJob moves a job from one of the allowed statuses to the
	// target status. Returns ErrInvalidTransition when the current status is
	// not in the allowed set, ErrJobNotFound when the id is unknown.
	TransitionJob(ctx context.Context, id uuid.UUID, allowedFrom []JobStatus, to JobStatus, stampFinished bool) (*Job, error)

	// ApplyOutcome atomically adds to the completed/failed counters,
	// recomputes percentCompleted where totalItems permits, and flips a
	// RUNNING job to FINISHED once every item is accounted for. The whole
	// update executes as one statement against the job row.
	ApplyOutcome(ctx context.Context, id uuid.UUID, completedDelta, failedDelta int) (*Job, error)

	// CountActiveJobs returns the number of jobs in a non-terminal status.
	CountActiveJobs(ctx context.Context) (int64, error)
}

// CellStore maintains the optimal-cell partition index.
type CellStore interface {
	// GetOptimalCell returns a cell by id, or sql.ErrNoRows wrapped as nil, false.
	GetOptimalCell(ctx context.Context, id uuid.UUID) (*OptimalCell, bool, error)

	// ListOptimalCellsBySize returns cells of the given resolution sorted by
	// bottom-left longitude then latitude, windowed by skip/limit.
	// limit <= 0 means no limit.
	ListOptimalCellsBySize(ctx context.Context, cellSize, skip, limit int) ([]OptimalCell, error)

	// InsertOptimalCellIfAbsent inserts the cell unless a row with the same
	// id already exists. Repeat confirmations are no-ops.
	InsertOptimalCellIfAbsent(ctx context.Context, cell *OptimalCell) error

	// SwapOptimalCell deletes the base cell (if present) and upserts the
	// replacement, as a single transaction.
	SwapOptimalCell(ctx context.Context, baseID uuid.UUID, replacement *OptimalCell) error
}

// VehicleSource enumerates candidate vehicles for availability and
// vehicle-details campaigns. limit <= 0 means all vehicles.
type VehicleSource interface {
	ListVehicles(ctx context.Context, limit int) ([]VehicleRef, error)
}
