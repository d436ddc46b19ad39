// Package store persists documents, pages, units, indexes, and job state.
// All writes are atomic at the record level; readers never observe a
// partially written record.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackzampolin/primer/internal/guideline"
	"github.com/jackzampolin/primer/internal/llmcall"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("store: not found")

// Document status values.
const (
	DocumentStatusProcessing = "processing"
	DocumentStatusFinalized  = "finalized"
)

// Page status values.
const (
	PageStatusPending   = "pending"
	PageStatusProcessed = "processed"
	PageStatusFailed    = "failed"
)

// Job status values.
const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
	JobStatusCancelled = "cancelled"
)

// Document is one ingested source document.
type Document struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Subject     string     `json:"subject,omitempty"`
	GradeLevel  string     `json:"grade_level,omitempty"`
	SourcePath  string     `json:"source_path,omitempty"`
	SourceType  string     `json:"source_type,omitempty"`
	PageCount   int        `json:"page_count"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	FinalizedAt *time.Time `json:"finalized_at,omitempty"`
}

// PageRecord is one page of a document with its processing state.
type PageRecord struct {
	DocumentID  string     `json:"document_id"`
	PageNumber  int        `json:"page_number"`
	Text        string     `json:"text,omitempty"`
	Digest      string     `json:"digest,omitempty"`
	Status      string     `json:"status"`
	Error       string     `json:"error,omitempty"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

// JobRecord tracks one background job.
type JobRecord struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	DocumentID  string         `json:"document_id,omitempty"`
	Status      string         `json:"status"`
	Progress    string         `json:"progress,omitempty"`
	Error       string         `json:"error,omitempty"`
	Result      map[string]any `json:"result,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// Store is the persistence interface for the pipeline. Unit keys are
// scoped per document: a unit is addressed by (documentID, topicKey,
// subtopicKey).
type Store interface {
	PutDocument(ctx context.Context, doc *Document) error
	GetDocument(ctx context.Context, id string) (*Document, error)
	ListDocuments(ctx context.Context) ([]*Document, error)

	PutPage(ctx context.Context, page *PageRecord) error
	GetPage(ctx context.Context, documentID string, pageNumber int) (*PageRecord, error)
	ListPages(ctx context.Context, documentID string) ([]*PageRecord, error)

	PutUnit(ctx context.Context, unit *guideline.Unit) error
	GetUnit(ctx context.Context, documentID, topicKey, subtopicKey string) (*guideline.Unit, error)
	ListUnits(ctx context.Context, documentID string) ([]*guideline.Unit, error)
	DeleteUnit(ctx context.Context, documentID, topicKey, subtopicKey string) error

	PutIndex(ctx context.Context, index *guideline.Index) error
	GetIndex(ctx context.Context, documentID string) (*guideline.Index, error)

	PutPageIndex(ctx context.Context, documentID string, pi *guideline.PageIndex) error
	GetPageIndex(ctx context.Context, documentID string) (*guideline.PageIndex, error)

	PutCall(ctx context.Context, call *llmcall.Call) error
	ListCalls(ctx context.Context, documentID string) ([]*llmcall.Call, error)

	PutJob(ctx context.Context, job *JobRecord) error
	GetJob(ctx context.Context, id string) (*JobRecord, error)
	ListJobs(ctx context.Context) ([]*JobRecord, error)

	Close() error
}
