package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/primer/internal/store"
)

// Manager tracks job records in the store and executes submitted jobs on a
// bounded worker pool.
type Manager struct {
	store  store.Store
	deps   Dependencies
	logger *slog.Logger

	sem chan struct{}
	wg  sync.WaitGroup

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewManager creates a job manager. maxWorkers bounds concurrent job
// execution; values below 1 mean one worker.
func NewManager(st store.Store, deps Dependencies, maxWorkers int, logger *slog.Logger) *Manager {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:   st,
		deps:    deps,
		logger:  logger.With("component", "jobs"),
		sem:     make(chan struct{}, maxWorkers),
		cancels: make(map[string]context.CancelFunc),
	}
}

// Submit records a job and starts it on the pool. The passed context only
// covers submission; execution runs under the manager's own lifetime and is
// stopped via Cancel or Shutdown.
func (m *Manager) Submit(ctx context.Context, job Job, documentID string) (string, error) {
	record := &store.JobRecord{
		ID:         uuid.New().String(),
		Type:       job.Type(),
		DocumentID: documentID,
		Status:     store.JobStatusPending,
		CreatedAt:  time.Now().UTC(),
	}
	if err := m.store.PutJob(ctx, record); err != nil {
		return "", fmt.Errorf("recording job: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	runCtx = ContextWithDeps(runCtx, m.deps)
	m.mu.Lock()
	m.cancels[record.ID] = cancel
	m.mu.Unlock()

	m.wg.Add(1)
	go m.run(runCtx, record.ID, job)

	m.logger.Info("job submitted", "id", record.ID, "type", job.Type(), "document_id", documentID)
	return record.ID, nil
}

func (m *Manager) run(ctx context.Context, jobID string, job Job) {
	defer m.wg.Done()
	defer func() {
		m.mu.Lock()
		delete(m.cancels, jobID)
		m.mu.Unlock()
	}()

	select {
	case m.sem <- struct{}{}:
		defer func() { <-m.sem }()
	case <-ctx.Done():
		m.finish(jobID, store.JobStatusCancelled, ctx.Err().Error(), nil)
		return
	}

	now := time.Now().UTC()
	m.update(jobID, func(r *store.JobRecord) {
		r.Status = store.JobStatusRunning
		r.StartedAt = &now
	})

	err := job.Execute(ctx)

	var status map[string]string
	if s, serr := job.Status(ctx); serr == nil {
		status = s
	}

	switch {
	case err == nil:
		m.finish(jobID, store.JobStatusCompleted, "", status)
	case ctx.Err() != nil:
		m.finish(jobID, store.JobStatusCancelled, err.Error(), status)
	default:
		m.logger.Error("job failed", "id", jobID, "type", job.Type(), "error", err)
		m.finish(jobID, store.JobStatusFailed, err.Error(), status)
	}
}

func (m *Manager) finish(jobID, status, errMsg string, result map[string]string) {
	now := time.Now().UTC()
	m.update(jobID, func(r *store.JobRecord) {
		r.Status = status
		r.Error = errMsg
		r.CompletedAt = &now
		if result != nil {
			if r.Result == nil {
				r.Result = make(map[string]any, len(result))
			}
			for k, v := range result {
				r.Result[k] = v
			}
		}
	})
}

// update applies a mutation to a job record. Executed under a background
// context because job completion must be recorded even when the job's own
// context is already cancelled.
func (m *Manager) update(jobID string, mutate func(*store.JobRecord)) {
	ctx := context.Background()
	record, err := m.store.GetJob(ctx, jobID)
	if err != nil {
		m.logger.Warn("failed to load job record", "id", jobID, "error", err)
		return
	}
	mutate(record)
	if err := m.store.PutJob(ctx, record); err != nil {
		m.logger.Warn("failed to save job record", "id", jobID, "error", err)
	}
}

// UpdateProgress records a progress string on a running job.
func (m *Manager) UpdateProgress(jobID, progress string) {
	m.update(jobID, func(r *store.JobRecord) {
		r.Progress = progress
	})
}

// Get returns a job record by ID.
func (m *Manager) Get(ctx context.Context, jobID string) (*store.JobRecord, error) {
	return m.store.GetJob(ctx, jobID)
}

// List returns all job records, newest first.
func (m *Manager) List(ctx context.Context) ([]*store.JobRecord, error) {
	return m.store.ListJobs(ctx)
}

// Cancel stops a running job. Cancelling an unknown or finished job is a
// no-op.
func (m *Manager) Cancel(jobID string) {
	m.mu.Lock()
	cancel, ok := m.cancels[jobID]
	m.mu.Unlock()
	if ok {
		cancel()
	}
}

// Shutdown cancels all running jobs and waits for them to settle.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	for _, cancel := range m.cancels {
		cancel()
	}
	m.mu.Unlock()
	m.wg.Wait()
}
