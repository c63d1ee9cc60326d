package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"scrapeplane/internal/store"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	return &Store{db: db}, mock
}

func jobRows(job *store.Job) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "title", "job_type", "status", "created_at", "started_at", "finished_at",
		"total_items", "completed_items", "failed_items", "percent_completed",
	})

	var total interface{}
	if job.TotalItems != nil {
		total = *job.TotalItems
	}
	var started, finished interface{}
	if job.StartedAt != nil {
		started = *job.StartedAt
	}
	if job.FinishedAt != nil {
		finished = *job.FinishedAt
	}

	rows.AddRow(job.ID, job.Title, string(job.JobType), string(job.Status), job.CreatedAt,
		started, finished, total, job.CompletedItems, job.FailedItems, job.PercentCompleted)
	return rows
}

func TestCreateJob(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	job := &store.Job{
		ID:        uuid.New(),
		Title:     "AVAILABILITY Job - 2026-01-02T10:00:00Z",
		JobType:   store.JobTypeAvailability,
		Status:    store.JobStatusCreated,
		CreatedAt: time.Now().UTC(),
	}

	mock.ExpectExec(`INSERT INTO jobs`).
		WithArgs(job.ID, job.Title, job.JobType, job.Status, job.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.CreateJob(context.Background(), nil, job); err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestGetJobByID_NotFound(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	id := uuid.New()
	mock.ExpectQuery(`SELECT .* FROM jobs WHERE id = \$1`).
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)

	_, err := s.GetJobByID(context.Background(), id)
	if err != store.ErrJobNotFound {
		t.Errorf("got error %v, want ErrJobNotFound", err)
	}
}

func TestMarkJobRunning(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	id := uuid.New()
	startedAt := time.Now().UTC()
	total := 3

	running := &store.Job{
		ID:         id,
		Title:      "AVAILABILITY Job",
		JobType:    store.JobTypeAvailability,
		Status:     store.JobStatusRunning,
		CreatedAt:  startedAt.Add(-time.Second),
		StartedAt:  &startedAt,
		TotalItems: &total,
	}

	mock.ExpectQuery(`UPDATE jobs\s+SET status = \$2, total_items = \$3, started_at = \$4`).
		WithArgs(id, store.JobStatusRunning, total, startedAt, store.JobStatusCreated).
		WillReturnRows(jobRows(running))

	job, err := s.MarkJobRunning(context.Background(), id, total, startedAt)
	if err != nil {
		t.Fatalf("MarkJobRunning failed: %v", err)
	}
	if job.Status != store.JobStatusRunning {
		t.Errorf("got status %s, want RUNNING", job.Status)
	}
	if job.TotalItems == nil || *job.TotalItems != total {
		t.Errorf("got totalItems %v, want %d", job.TotalItems, total)
	}
}

func TestMarkJobRunning_AlreadyRunning(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	id := uuid.New()

	mock.ExpectQuery(`UPDATE jobs`).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`SELECT status FROM jobs WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("RUNNING"))

	_, err := s.MarkJobRunning(context.Background(), id, 5, time.Now())
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errors.Is(err, store.ErrInvalidTransition) {
		t.Errorf("got error %v, want ErrInvalidTransition", err)
	}
}

func TestTransitionJob_UnknownJob(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	id := uuid.New()

	mock.ExpectQuery(`UPDATE jobs`).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`SELECT status FROM jobs WHERE id = \$1`).
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)

	_, err := s.TransitionJob(context.Background(), id,
		[]store.JobStatus{store.JobStatusRunning}, store.JobStatusStopped, true)
	if err != store.ErrJobNotFound {
		t.Errorf("got error %v, want ErrJobNotFound", err)
	}
}

func TestApplyOutcome(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	id := uuid.New()
	total := 3
	updated := &store.Job{
		ID:               id,
		Title:            "AVAILABILITY Job",
		JobType:          store.JobTypeAvailability,
		Status:           store.JobStatusRunning,
		CreatedAt:        time.Now().UTC(),
		TotalItems:       &total,
		CompletedItems:   2,
		FailedItems:      0,
		PercentCompleted: 66.66666666666667,
	}

	mock.ExpectQuery(`UPDATE jobs\s+SET completed_items = CASE`).
		WithArgs(id, 1, 0).
		WillReturnRows(jobRows(updated))

	job, err := s.ApplyOutcome(context.Background(), id, 1, 0)
	if err != nil {
		t.Fatalf("ApplyOutcome failed: %v", err)
	}
	if job.CompletedItems != 2 {
		t.Errorf("got completedItems %d, want 2", job.CompletedItems)
	}
}

func TestApplyOutcome_UnknownJob(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	id := uuid.New()
	mock.ExpectQuery(`UPDATE jobs`).
		WithArgs(id, 0, 1).
		WillReturnError(sql.ErrNoRows)

	_, err := s.ApplyOutcome(context.Background(), id, 0, 1)
	if err != store.ErrJobNotFound {
		t.Errorf("got error %v, want ErrJobNotFound", err)
	}
}

func TestListJobs(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM jobs`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	newer := &store.Job{ID: uuid.New(), Title: "b", JobType: store.JobTypeSearch,
		Status: store.JobStatusRunning, CreatedAt: time.Now()}
	older := &store.Job{ID: uuid.New(), Title: "a", JobType: store.JobTypeSearch,
		Status: store.JobStatusFinished, CreatedAt: time.Now().Add(-time.Hour)}

	rows := jobRows(newer)
	rows.AddRow(older.ID, older.Title, string(older.JobType), string(older.Status),
		older.CreatedAt, nil, nil, nil, 0, 0, 0.0)

	mock.ExpectQuery(`SELECT .* FROM jobs\s+ORDER BY created_at DESC`).
		WithArgs(20, 0).
		WillReturnRows(rows)

	jobs, total, err := s.ListJobs(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("ListJobs failed: %v", err)
	}
	if total != 2 {
		t.Errorf("got total %d, want 2", total)
	}
	if len(jobs) != 2 {
		t.Fatalf("got %d jobs, want 2", len(jobs))
	}
	if jobs[0].ID != newer.ID {
		t.Errorf("expected newest job first")
	}
}
