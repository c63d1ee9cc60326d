package progress

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"scrapeplane/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeJobStore mirrors the atomic semantics of the postgres ApplyOutcome:
// the whole read-modify-write runs under one lock.
type fakeJobStore struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*store.Job
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{jobs: make(map[uuid.UUID]*store.Job)}
}

func (f *fakeJobStore) addRunningJob(total int) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	f.jobs[id] = &store.Job{
		ID:         id,
		Status:     store.JobStatusRunning,
		CreatedAt:  time.Now(),
		TotalItems: &total,
	}
	return id
}

func (f *fakeJobStore) CreateJob(_ context.Context, _ store.DBTransaction, j *store.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *j
	f.jobs[j.ID] = &copied
	return nil
}

func (f *fakeJobStore) GetJobByID(_ context.Context, id uuid.UUID) (*store.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok {
		return nil, store.ErrJobNotFound
	}
	copied := *j
	return &copied, nil
}

func (f *fakeJobStore) ListJobs(context.Context, int, int) ([]store.Job, int64, error) {
	return nil, 0, nil
}

func (f *fakeJobStore) MarkJobRunning(_ context.Context, id uuid.UUID, total int, startedAt time.Time) (*store.Job, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeJobStore) TransitionJob(_ context.Context, id uuid.UUID, _ []store.JobStatus, to store.JobStatus, _ bool) (*store.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok {
		return nil, store.ErrJobNotFound
	}
	j.Status = to
	copied := *j
	return &copied, nil
}

func (f *fakeJobStore) ApplyOutcome(_ context.Context, id uuid.UUID, completedDelta, failedDelta int) (*store.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok {
		return nil, store.ErrJobNotFound
	}
	if !j.Status.IsTerminal() {
		j.CompletedItems += completedDelta
		j.FailedItems += failedDelta
		if j.TotalItems != nil && *j.TotalItems > 0 {
			processed := j.CompletedItems + j.FailedItems
			j.PercentCompleted = float64(processed) / float64(*j.TotalItems) * 100
			if j.Status == store.JobStatusRunning && processed >= *j.TotalItems {
				j.Status = store.JobStatusFinished
				now := time.Now().UTC()
				j.FinishedAt = &now
			}
		}
	}
	copied := *j
	return &copied, nil
}

func (f *fakeJobStore) CountActiveJobs(context.Context) (int64, error) {
	return 0, nil
}

func TestRecordOutcome_FinishesJob(t *testing.T) {
	jobs := newFakeJobStore()
	id := jobs.addRunningJob(3)
	a := NewAggregator(jobs, testLogger())

	ctx := context.Background()

	// Two completions and one failure fully account for the job.
	if _, err := a.RecordOutcome(ctx, id, false); err != nil {
		t.Fatalf("RecordOutcome failed: %v", err)
	}
	if _, err := a.RecordOutcome(ctx, id, true); err != nil {
		t.Fatalf("RecordOutcome failed: %v", err)
	}
	j, err := a.RecordOutcome(ctx, id, false)
	if err != nil {
		t.Fatalf("RecordOutcome failed: %v", err)
	}

	if j.CompletedItems != 2 || j.FailedItems != 1 {
		t.Errorf("got counters %d/%d, want 2/1", j.CompletedItems, j.FailedItems)
	}
	if math.Abs(j.PercentCompleted-100) > 1e-9 {
		t.Errorf("got percent %f, want 100", j.PercentCompleted)
	}
	if j.Status != store.JobStatusFinished {
		t.Errorf("got status %s, want FINISHED", j.Status)
	}
	if j.FinishedAt == nil {
		t.Errorf("finishedAt not stamped")
	}
}

func TestRecordOutcome_ConcurrentNoLostUpdates(t *testing.T) {
	const successes = 60
	const failures = 40

	jobs := newFakeJobStore()
	id := jobs.addRunningJob(successes + failures)
	a := NewAggregator(jobs, testLogger())

	var wg sync.WaitGroup
	for i := 0; i < successes+failures; i++ {
		wg.Add(1)
		go func(failed bool) {
			defer wg.Done()
			if _, err := a.RecordOutcome(context.Background(), id, failed); err != nil {
				t.Errorf("RecordOutcome failed: %v", err)
			}
		}(i >= successes)
	}
	wg.Wait()

	j, err := jobs.GetJobByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetJobByID failed: %v", err)
	}
	if j.CompletedItems != successes {
		t.Errorf("got completedItems %d, want %d", j.CompletedItems, successes)
	}
	if j.FailedItems != failures {
		t.Errorf("got failedItems %d, want %d", j.FailedItems, failures)
	}
	if j.Status != store.JobStatusFinished {
		t.Errorf("got status %s, want FINISHED", j.Status)
	}
}

func TestRecordOutcome_NoTotalItems(t *testing.T) {
	jobs := newFakeJobStore()
	id := uuid.New()
	jobs.jobs[id] = &store.Job{ID: id, Status: store.JobStatusRunning, CreatedAt: time.Now()}
	a := NewAggregator(jobs, testLogger())

	j, err := a.RecordOutcome(context.Background(), id, false)
	if err != nil {
		t.Fatalf("RecordOutcome failed: %v", err)
	}
	if j.CompletedItems != 1 {
		t.Errorf("counter not incremented without totalItems")
	}
	if j.PercentCompleted != 0 {
		t.Errorf("percent changed without totalItems")
	}
	if j.Status != store.JobStatusRunning {
		t.Errorf("status changed without totalItems: %s", j.Status)
	}
}

func TestRecordOutcome_UnknownJob(t *testing.T) {
	a := NewAggregator(newFakeJobStore(), testLogger())

	_, err := a.RecordOutcome(context.Background(), uuid.New(), false)
	if !errors.Is(err, store.ErrJobNotFound) {
		t.Errorf("got error %v, want ErrJobNotFound", err)
	}
}

func TestRecordOutcome_TerminalJobTolerated(t *testing.T) {
	jobs := newFakeJobStore()
	id := jobs.addRunningJob(5)
	a := NewAggregator(jobs, testLogger())

	if _, err := jobs.TransitionJob(context.Background(), id, nil, store.JobStatusCancelled, false); err != nil {
		t.Fatalf("TransitionJob failed: %v", err)
	}

	// Workers may still report items dispatched before cancellation.
	j, err := a.RecordOutcome(context.Background(), id, false)
	if err != nil {
		t.Fatalf("RecordOutcome on cancelled job failed: %v", err)
	}
	if j.CompletedItems != 0 {
		t.Errorf("cancelled job counters mutated: %d", j.CompletedItems)
	}
	if j.Status != store.JobStatusCancelled {
		t.Errorf("cancelled job status changed: %s", j.Status)
	}
}
