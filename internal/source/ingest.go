package source

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/primer/internal/store"
)

// IngestOptions carries document metadata supplied at ingest time.
type IngestOptions struct {
	Title      string
	Subject    string
	GradeLevel string
}

// Ingest opens a source, records a document with its page count, and
// persists every page's raw text as a pending page record. It returns the
// new document.
func Ingest(ctx context.Context, st store.Store, path string, opts IngestOptions) (*store.Document, error) {
	src, sourceType, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	now := time.Now().UTC()
	doc := &store.Document{
		ID:         uuid.New().String(),
		Title:      opts.Title,
		Subject:    opts.Subject,
		GradeLevel: opts.GradeLevel,
		SourcePath: path,
		SourceType: sourceType,
		PageCount:  src.PageCount(),
		Status:     store.DocumentStatusProcessing,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if doc.Title == "" {
		doc.Title = path
	}
	if err := st.PutDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("recording document: %w", err)
	}

	for n := 1; n <= src.PageCount(); n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := src.PageText(n)
		page := &store.PageRecord{
			DocumentID: doc.ID,
			PageNumber: n,
			Status:     store.PageStatusPending,
		}
		if err != nil {
			// Unextractable pages are recorded as failed so the pipeline
			// can skip them without losing page numbering.
			page.Status = store.PageStatusFailed
			page.Error = err.Error()
		} else {
			page.Text = text
		}
		if err := st.PutPage(ctx, page); err != nil {
			return nil, fmt.Errorf("recording page %d: %w", n, err)
		}
	}

	return doc, nil
}
