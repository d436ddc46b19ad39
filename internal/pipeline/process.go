package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackzampolin/primer/internal/guideline"
	"github.com/jackzampolin/primer/internal/llmcall"
	"github.com/jackzampolin/primer/internal/prompts/boundary"
	"github.com/jackzampolin/primer/internal/prompts/summarize"
	"github.com/jackzampolin/primer/internal/store"
)

// ProcessPage runs one page through the pipeline: digest, boundary
// decision, content merge, and stability check. Page-level failures mark
// the page failed and return a failed PageResult with a nil error;
// storage failures return an error and abort the run.
func (p *Pipeline) ProcessPage(ctx context.Context, documentID string, pageNumber int) (*PageResult, error) {
	doc, err := p.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("loading document %s: %w", documentID, err)
	}
	page, err := p.store.GetPage(ctx, documentID, pageNumber)
	if err != nil {
		return nil, fmt.Errorf("loading page %d: %w", pageNumber, err)
	}

	result := &PageResult{DocumentID: documentID, PageNumber: pageNumber}
	logger := p.logger.With("document_id", documentID, "page", pageNumber)

	if page.Text == "" {
		return p.failPage(ctx, page, result, errors.New("page has no extractable text"))
	}

	// Summarize. The digest is cached on the page record so reprocessing
	// never pays for it twice.
	if page.Digest == "" {
		digest, err := p.summarizePage(ctx, doc, page)
		if err != nil {
			logger.Warn("summarization failed, skipping page", "error", err)
			return p.failPage(ctx, page, result, fmt.Errorf("summarizing: %w", err))
		}
		page.Digest = digest
		if err := p.store.PutPage(ctx, page); err != nil {
			return nil, fmt.Errorf("saving digest for page %d: %w", pageNumber, err)
		}
	}
	result.Digest = page.Digest

	pack, err := p.composeContext(ctx, documentID, pageNumber)
	if err != nil {
		return nil, err
	}

	decision, err := p.classifyBoundary(ctx, doc, page, pack)
	if err != nil {
		logger.Warn("boundary classification failed, skipping page", "error", err)
		return p.failPage(ctx, page, result, fmt.Errorf("classifying: %w", err))
	}

	unit, created, changed, err := p.applyDecision(ctx, decision, pack, pageNumber)
	if err != nil {
		return nil, err
	}

	result.TopicKey = unit.TopicKey
	result.SubtopicKey = unit.SubtopicKey
	result.UnitCreated = created
	result.UnitChanged = changed
	result.Confidence = decision.Confidence
	result.Provisional = decision.Provisional

	if err := p.assignPage(ctx, documentID, guideline.PageAssignment{
		PageNumber:  pageNumber,
		TopicKey:    unit.TopicKey,
		SubtopicKey: unit.SubtopicKey,
		Confidence:  decision.Confidence,
		Provisional: decision.Provisional,
	}); err != nil {
		return nil, err
	}

	stabilized, err := p.stabilizeDue(ctx, doc, pageNumber)
	if err != nil {
		return nil, err
	}
	result.Stabilized = stabilized

	if err := p.refreshIndex(ctx, documentID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	page.Status = store.PageStatusProcessed
	page.Error = ""
	page.ProcessedAt = &now
	if err := p.store.PutPage(ctx, page); err != nil {
		return nil, fmt.Errorf("saving page %d: %w", pageNumber, err)
	}
	doc.UpdatedAt = now
	if err := p.store.PutDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("saving document: %w", err)
	}

	logger.Info("page processed",
		"unit", unit.Key(),
		"created", created,
		"confidence", decision.Confidence,
		"provisional", decision.Provisional,
		"stabilized", len(stabilized))
	return result, nil
}

// summarizePage produces the page's digest via one inference call.
func (p *Pipeline) summarizePage(ctx context.Context, doc *store.Document, page *store.PageRecord) (string, error) {
	req := summarize.Request(summarize.UserPromptData{
		Title:      doc.Title,
		Subject:    doc.Subject,
		GradeLevel: doc.GradeLevel,
		PageNumber: page.PageNumber,
		PageText:   page.Text,
	})
	res, err := p.infer(ctx, p.clients.Summarize, req, llmcall.RecordOptions{
		DocumentID: doc.ID,
		PageNumber: page.PageNumber,
		PromptKey:  summarize.UserPromptKey,
	})
	if err != nil {
		return "", err
	}
	parsed, err := summarize.ParseResult(res.ParsedJSON)
	if err != nil {
		return "", fmt.Errorf("parsing digest result: %w", err)
	}
	return parsed.Digest, nil
}

// classifyBoundary runs the boundary classifier and applies the hysteresis
// policy to its raw scores.
func (p *Pipeline) classifyBoundary(ctx context.Context, doc *store.Document, page *store.PageRecord, pack *contextPack) (*guideline.Decision, error) {
	req := boundary.Request(pack.boundaryData(doc, page))
	res, err := p.infer(ctx, p.clients.Boundary, req, llmcall.RecordOptions{
		DocumentID: doc.ID,
		PageNumber: page.PageNumber,
		PromptKey:  boundary.UserPromptKey,
	})
	if err != nil {
		return nil, err
	}
	raw, err := boundary.ParseResult(res.ParsedJSON)
	if err != nil {
		return nil, fmt.Errorf("parsing boundary result: %w", err)
	}

	verdict, confidence, provisional := guideline.Decide(
		raw.ContinueScore, raw.NewScore, p.opts.Thresholds, len(pack.openUnits) > 0)

	decision := &guideline.Decision{
		IsNew:         verdict == guideline.VerdictNew,
		TopicKey:      guideline.Slugify(raw.TopicKey),
		TopicTitle:    raw.TopicTitle,
		SubtopicKey:   guideline.Slugify(raw.SubtopicKey),
		SubtopicTitle: raw.SubtopicTitle,
		ContinueScore: raw.ContinueScore,
		NewScore:      raw.NewScore,
		Confidence:    confidence,
		Provisional:   provisional,
		Delta: guideline.Delta{
			Objectives:     raw.Objectives,
			Examples:       raw.Examples,
			Misconceptions: raw.Misconceptions,
		},
	}
	for _, a := range raw.Assessments {
		decision.Delta.Assessments = append(decision.Delta.Assessments, guideline.Assessment{
			Prompt:     a.Prompt,
			Answer:     a.Answer,
			Difficulty: a.Difficulty,
		})
	}
	return decision, nil
}

// applyDecision routes the page's delta into a unit: an existing open unit
// on continue, a fresh unit on new. A continue verdict naming a key that
// matches no open unit degrades to a new unit with those keys; the
// classifier does not get to invent continuations.
func (p *Pipeline) applyDecision(ctx context.Context, d *guideline.Decision, pack *contextPack, pageNumber int) (*guideline.Unit, bool, bool, error) {
	if !d.IsNew {
		if unit := pack.openUnit(d.TopicKey, d.SubtopicKey); unit != nil {
			changed := guideline.Reduce(unit, d.Delta, pageNumber, d.Confidence)
			if err := p.store.PutUnit(ctx, unit); err != nil {
				return nil, false, false, fmt.Errorf("saving unit %s: %w", unit.Key(), err)
			}
			return unit, false, changed, nil
		}
		p.logger.Warn("continue verdict named no open unit, creating new unit",
			"topic_key", d.TopicKey, "subtopic_key", d.SubtopicKey)
	}

	// Key collision with an existing unit folds the delta in rather than
	// clobbering accumulated content.
	if existing, err := p.store.GetUnit(ctx, pack.documentID(), d.TopicKey, d.SubtopicKey); err == nil {
		changed := guideline.Reduce(existing, d.Delta, pageNumber, d.Confidence)
		if err := p.store.PutUnit(ctx, existing); err != nil {
			return nil, false, false, fmt.Errorf("saving unit %s: %w", existing.Key(), err)
		}
		return existing, false, changed, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, false, false, fmt.Errorf("checking unit %s/%s: %w", d.TopicKey, d.SubtopicKey, err)
	}

	unit := guideline.NewUnit(pack.documentID(), *d, pageNumber)
	if err := p.store.PutUnit(ctx, unit); err != nil {
		return nil, false, false, fmt.Errorf("saving unit %s: %w", unit.Key(), err)
	}
	return unit, true, true, nil
}

// stabilizeDue transitions every open unit whose gap since its last merged
// page reached the stability threshold, then synthesizes and gates it.
func (p *Pipeline) stabilizeDue(ctx context.Context, doc *store.Document, currentPage int) ([]string, error) {
	units, err := p.store.ListUnits(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("listing units: %w", err)
	}

	var stabilized []string
	for _, u := range guideline.OpenUnits(units) {
		if currentPage-u.SourcePageEnd < p.opts.StabilityGap {
			continue
		}
		if err := u.SetStatus(guideline.StatusStable); err != nil {
			return nil, err
		}
		if err := p.synthesizeAndGate(ctx, doc, u); err != nil {
			return nil, err
		}
		stabilized = append(stabilized, u.Key())
	}
	return stabilized, nil
}

// failPage records an unrecoverable page-level failure and keeps the run
// going: the page is marked failed in both the page record and the page
// index, and the returned result carries the error.
func (p *Pipeline) failPage(ctx context.Context, page *store.PageRecord, result *PageResult, cause error) (*PageResult, error) {
	page.Status = store.PageStatusFailed
	page.Error = cause.Error()
	if err := p.store.PutPage(ctx, page); err != nil {
		return nil, fmt.Errorf("recording page failure: %w", err)
	}
	if err := p.assignPage(ctx, page.DocumentID, guideline.PageAssignment{
		PageNumber: page.PageNumber,
		Failed:     true,
	}); err != nil {
		return nil, err
	}
	result.Failed = true
	result.Error = cause.Error()
	return result, nil
}

// assignPage upserts one page's entry in the document's page index.
func (p *Pipeline) assignPage(ctx context.Context, documentID string, a guideline.PageAssignment) error {
	pi, err := p.store.GetPageIndex(ctx, documentID)
	if errors.Is(err, store.ErrNotFound) {
		pi = guideline.NewPageIndex(documentID)
	} else if err != nil {
		return fmt.Errorf("loading page index: %w", err)
	}
	pi.Assign(a)
	if err := p.store.PutPageIndex(ctx, documentID, pi); err != nil {
		return fmt.Errorf("saving page index: %w", err)
	}
	return nil
}

// refreshIndex rebuilds the hierarchical index from the document's units.
func (p *Pipeline) refreshIndex(ctx context.Context, documentID string) error {
	units, err := p.store.ListUnits(ctx, documentID)
	if err != nil {
		return fmt.Errorf("listing units: %w", err)
	}
	index := guideline.BuildIndex(documentID, units)
	if err := p.store.PutIndex(ctx, index); err != nil {
		return fmt.Errorf("saving index: %w", err)
	}
	return nil
}
