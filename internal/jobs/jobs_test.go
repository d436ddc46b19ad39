package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jackzampolin/primer/internal/pipeline"
	"github.com/jackzampolin/primer/internal/providers"
	"github.com/jackzampolin/primer/internal/store"
)

type scriptedJob struct {
	jobType string
	execute func(ctx context.Context) error
	done    chan struct{}
}

func (j *scriptedJob) Type() string { return j.jobType }

func (j *scriptedJob) Execute(ctx context.Context) error {
	defer close(j.done)
	if j.execute != nil {
		return j.execute(ctx)
	}
	return nil
}

func (j *scriptedJob) Status(_ context.Context) (map[string]string, error) {
	return map[string]string{"step": "done"}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitForStatus(t *testing.T, m *Manager, jobID, want string) *store.JobRecord {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		record, err := m.Get(context.Background(), jobID)
		if err == nil && record.Status == want {
			return record
		}
		time.Sleep(5 * time.Millisecond)
	}
	record, _ := m.Get(context.Background(), jobID)
	t.Fatalf("job %s never reached %s, last seen: %+v", jobID, want, record)
	return nil
}

func TestManagerRunsJob(t *testing.T) {
	st, err := store.NewInMemoryStore(testLogger())
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	defer st.Close()

	m := NewManager(st, Dependencies{Store: st, Logger: testLogger()}, 2, testLogger())
	defer m.Shutdown()

	job := &scriptedJob{jobType: "test", done: make(chan struct{})}
	jobID, err := m.Submit(context.Background(), job, "doc-1")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	record := waitForStatus(t, m, jobID, store.JobStatusCompleted)
	if record.CompletedAt == nil {
		t.Error("expected completion timestamp")
	}
	if record.Result["step"] != "done" {
		t.Errorf("expected job status captured in result, got %v", record.Result)
	}
}

func TestManagerRecordsFailure(t *testing.T) {
	st, err := store.NewInMemoryStore(testLogger())
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	defer st.Close()

	m := NewManager(st, Dependencies{Store: st}, 1, testLogger())
	defer m.Shutdown()

	job := &scriptedJob{
		jobType: "test",
		done:    make(chan struct{}),
		execute: func(context.Context) error { return errors.New("boom") },
	}
	jobID, err := m.Submit(context.Background(), job, "")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	record := waitForStatus(t, m, jobID, store.JobStatusFailed)
	if record.Error != "boom" {
		t.Errorf("expected error recorded, got %q", record.Error)
	}
}

func TestManagerCancel(t *testing.T) {
	st, err := store.NewInMemoryStore(testLogger())
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	defer st.Close()

	m := NewManager(st, Dependencies{Store: st}, 1, testLogger())
	defer m.Shutdown()

	started := make(chan struct{})
	job := &scriptedJob{
		jobType: "test",
		done:    make(chan struct{}),
		execute: func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		},
	}
	jobID, err := m.Submit(context.Background(), job, "")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	<-started
	m.Cancel(jobID)
	waitForStatus(t, m, jobID, store.JobStatusCancelled)
}

func TestProcessDocumentJob(t *testing.T) {
	st, err := store.NewInMemoryStore(testLogger())
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	defer st.Close()
	ctx := t.Context()

	doc := &store.Document{ID: "doc-1", Title: "Workbook", PageCount: 2, Status: store.DocumentStatusProcessing, CreatedAt: time.Now().UTC()}
	if err := st.PutDocument(ctx, doc); err != nil {
		t.Fatalf("PutDocument: %v", err)
	}
	for n := 1; n <= 2; n++ {
		if err := st.PutPage(ctx, &store.PageRecord{DocumentID: doc.ID, PageNumber: n, Text: "text", Status: store.PageStatusPending}); err != nil {
			t.Fatalf("PutPage: %v", err)
		}
	}

	mock := providers.NewMockClient()
	mock.Latency = 0
	for n := 1; n <= 2; n++ {
		continueScore, newScore := 0.9, 0.1
		if n == 1 {
			continueScore, newScore = 0.0, 1.0
		}
		mock.EnqueueJSON(map[string]any{"digest": "digest"})
		mock.EnqueueJSON(map[string]any{
			"is_new": n == 1, "topic_key": "topic", "topic_title": "Topic",
			"subtopic_key": "sub", "subtopic_title": "Sub",
			"continue_score": continueScore,
			"new_score":      newScore,
			"objectives":     []string{"Objective one", "Objective two"},
			"examples":       []string{},
			"misconceptions": []string{"A common mix-up"},
			"assessments":    []map[string]any{{"prompt": "Q", "answer": "A", "difficulty": "easy"}},
		})
	}
	// Finalization: synthesis for the single unit, no dedupe (one unit).
	mock.EnqueueJSON(map[string]any{"teaching_description": "First introduce the concept concretely, then build toward abstract notation step by step. A common mistake is rushing past the concrete stage; watch for it and revisit examples before assessing. Close with an understanding check that asks students to explain their reasoning in full sentences."})

	pl := pipeline.New(st, pipeline.Clients{
		Summarize: mock, Boundary: mock, Synthesize: mock, Dedupe: mock,
	}, pipeline.Options{RetryDelay: time.Millisecond}, testLogger())

	m := NewManager(st, Dependencies{Store: st, Pipeline: pl, Logger: testLogger()}, 1, testLogger())
	defer m.Shutdown()

	jobID, err := m.Submit(context.Background(), &ProcessDocument{DocumentID: doc.ID, Finalize: true}, doc.ID)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	record := waitForStatus(t, m, jobID, store.JobStatusCompleted)
	if record.Result["progress"] != "2/2 pages" {
		t.Errorf("expected full progress, got %v", record.Result)
	}

	got, err := st.GetDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if got.Status != store.DocumentStatusFinalized {
		t.Errorf("expected finalized document, got %s", got.Status)
	}
}
