package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/jackzampolin/primer/internal/store"
)

// ProcessDocumentType is the job type for whole-document processing.
const ProcessDocumentType = "process_document"

// ProcessDocument runs every pending page of a document through the
// pipeline in order and then finalizes it. It is resumable: pages already
// processed keep their results and are skipped.
type ProcessDocument struct {
	DocumentID string

	// Finalize controls whether the document is finalized after the last
	// page. Disabled for partial runs.
	Finalize bool

	// OnProgress, when set, receives a progress line after each page.
	OnProgress func(progress string)

	pagesDone  atomic.Int64
	pagesTotal atomic.Int64
	failures   atomic.Int64
}

// Type returns the job type identifier.
func (j *ProcessDocument) Type() string { return ProcessDocumentType }

// Execute processes the document page by page, in page order.
func (j *ProcessDocument) Execute(ctx context.Context) error {
	deps := DepsFromContext(ctx)
	if deps.Store == nil || deps.Pipeline == nil {
		return errors.New("job dependencies missing from context")
	}

	pages, err := deps.Store.ListPages(ctx, j.DocumentID)
	if err != nil {
		return fmt.Errorf("listing pages: %w", err)
	}
	if len(pages) == 0 {
		return fmt.Errorf("document %s has no pages", j.DocumentID)
	}
	j.pagesTotal.Store(int64(len(pages)))

	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		if page.Status == store.PageStatusProcessed {
			j.pagesDone.Add(1)
			continue
		}

		result, err := deps.Pipeline.ProcessPage(ctx, j.DocumentID, page.PageNumber)
		if err != nil {
			return fmt.Errorf("page %d: %w", page.PageNumber, err)
		}
		if result.Failed {
			j.failures.Add(1)
		}
		j.pagesDone.Add(1)
		if j.OnProgress != nil {
			j.OnProgress(j.progress())
		}
	}

	if j.Finalize {
		if _, err := deps.Pipeline.FinalizeDocument(ctx, j.DocumentID); err != nil {
			return fmt.Errorf("finalizing: %w", err)
		}
	}
	return nil
}

// Status reports page progress.
func (j *ProcessDocument) Status(_ context.Context) (map[string]string, error) {
	return map[string]string{
		"progress":     j.progress(),
		"pages_failed": fmt.Sprintf("%d", j.failures.Load()),
	}, nil
}

func (j *ProcessDocument) progress() string {
	return fmt.Sprintf("%d/%d pages", j.pagesDone.Load(), j.pagesTotal.Load())
}

var _ Job = (*ProcessDocument)(nil)
