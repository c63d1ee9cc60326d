package handlers

import (
	"context"

	"github.com/google/uuid"

	"scrapeplane/internal/job"
	"scrapeplane/internal/store"
)

// Mock job service
type mockJobService struct {
	// Hooks
	createResp *store.Job
	createErr  error
	actionResp *store.Job
	actionErr  error
	getResp    *store.Job
	getErr     error
	listResp   []store.Job
	listTotal  int64
	listErr    error

	// Spies (to verify arguments passed by handlers)
	capturedParams job.CreateParams
	capturedID     uuid.UUID
	capturedOffset int
	capturedLimit  int
}

func (m *mockJobService) CreateAndStart(_ context.Context, params job.CreateParams) (*store.Job, error) {
	m.capturedParams = params
	return m.createResp, m.createErr
}

func (m *mockJobService) Resume(_ context.Context, id uuid.UUID) (*store.Job, error) {
	m.capturedID = id
	return m.actionResp, m.actionErr
}

func (m *mockJobService) Stop(_ context.Context, id uuid.UUID) (*store.Job, error) {
	m.capturedID = id
	return m.actionResp, m.actionErr
}

func (m *mockJobService) Cancel(_ context.Context, id uuid.UUID) (*store.Job, error) {
	m.capturedID = id
	return m.actionResp, m.actionErr
}

func (m *mockJobService) Get(_ context.Context, id uuid.UUID) (*store.Job, error) {
	m.capturedID = id
	return m.getResp, m.getErr
}

func (m *mockJobService) List(_ context.Context, offset, limit int) ([]store.Job, int64, error) {
	m.capturedOffset = offset
	m.capturedLimit = limit
	return m.listResp, m.listTotal, m.listErr
}

// Mock pinger
type mockPinger struct {
	pingErr error
}

func (m *mockPinger) Ping(ctx context.Context) error {
	return m.pingErr
}
