package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/jackzampolin/primer/internal/guideline"
	"github.com/jackzampolin/primer/internal/llmcall"
	"github.com/jackzampolin/primer/internal/prompts/dedupe"
	"github.com/jackzampolin/primer/internal/store"
)

// FinalizeDocument closes out a document: every remaining open unit is
// forced stable, synthesized, and gated regardless of the page-gap rule;
// then one deduplication pass merges near-duplicate units. Returns the
// finalization report.
func (p *Pipeline) FinalizeDocument(ctx context.Context, documentID string) (*FinalizationResult, error) {
	doc, err := p.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("loading document %s: %w", documentID, err)
	}
	if doc.Status == store.DocumentStatusFinalized {
		return nil, fmt.Errorf("document %s is already finalized", documentID)
	}
	logger := p.logger.With("document_id", documentID)

	units, err := p.store.ListUnits(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("listing units: %w", err)
	}
	for _, u := range guideline.OpenUnits(units) {
		if err := u.SetStatus(guideline.StatusStable); err != nil {
			return nil, err
		}
		if err := p.synthesizeAndGate(ctx, doc, u); err != nil {
			return nil, err
		}
	}

	result := &FinalizationResult{DocumentID: documentID}

	merged, reasons, err := p.deduplicate(ctx, doc)
	if err != nil {
		// Deduplication is best-effort: a failed pass leaves valid,
		// possibly-redundant units rather than failing the document.
		logger.Warn("deduplication pass failed", "error", err)
	}
	result.UnitsMerged = merged
	result.MergeReasons = reasons

	units, err = p.store.ListUnits(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("listing units: %w", err)
	}
	for _, u := range units {
		switch u.Status {
		case guideline.StatusFinal:
			result.UnitsFinalized++
		case guideline.StatusNeedsReview:
			result.UnitsFlagged++
		}
	}

	pages, err := p.store.ListPages(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("listing pages: %w", err)
	}
	for _, page := range pages {
		if page.Status == store.PageStatusFailed {
			result.PagesFailed++
		}
	}

	if err := p.refreshIndex(ctx, documentID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	doc.Status = store.DocumentStatusFinalized
	doc.FinalizedAt = &now
	doc.UpdatedAt = now
	if err := p.store.PutDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("saving document: %w", err)
	}

	logger.Info("document finalized",
		"finalized", result.UnitsFinalized,
		"merged", result.UnitsMerged,
		"flagged", result.UnitsFlagged,
		"pages_failed", result.PagesFailed)
	return result, nil
}

// deduplicate runs the whole-document duplicate scan and absorbs each
// flagged pair. The unit with the earlier first source page survives, no
// matter which order the model listed the pair in.
func (p *Pipeline) deduplicate(ctx context.Context, doc *store.Document) (int, map[string]string, error) {
	units, err := p.store.ListUnits(ctx, doc.ID)
	if err != nil {
		return 0, nil, fmt.Errorf("listing units: %w", err)
	}
	if len(units) < 2 {
		return 0, nil, nil
	}

	data := dedupe.UserPromptData{Title: doc.Title}
	for _, u := range units {
		data.Units = append(data.Units, dedupe.UnitData{
			TopicKey:        u.TopicKey,
			SubtopicKey:     u.SubtopicKey,
			SubtopicTitle:   u.SubtopicTitle,
			SourcePageStart: u.SourcePageStart,
			SourcePageEnd:   u.SourcePageEnd,
			Evidence:        u.Evidence().String(),
		})
	}

	res, err := p.infer(ctx, p.clients.Dedupe, dedupe.Request(data), llmcall.RecordOptions{
		DocumentID: doc.ID,
		PromptKey:  dedupe.UserPromptKey,
	})
	if err != nil {
		return 0, nil, err
	}
	parsed, err := dedupe.ParseResult(res.ParsedJSON)
	if err != nil {
		return 0, nil, fmt.Errorf("parsing dedupe result: %w", err)
	}

	merged := 0
	reasons := make(map[string]string)
	for _, pair := range parsed.Pairs {
		keep, err := p.store.GetUnit(ctx, doc.ID, pair.KeepTopicKey, pair.KeepSubtopicKey)
		if err != nil {
			p.logger.Warn("dedupe pair names unknown unit, skipping",
				"topic_key", pair.KeepTopicKey, "subtopic_key", pair.KeepSubtopicKey)
			continue
		}
		absorb, err := p.store.GetUnit(ctx, doc.ID, pair.MergeTopicKey, pair.MergeSubtopicKey)
		if err != nil {
			p.logger.Warn("dedupe pair names unknown unit, skipping",
				"topic_key", pair.MergeTopicKey, "subtopic_key", pair.MergeSubtopicKey)
			continue
		}
		if keep.Key() == absorb.Key() {
			continue
		}
		if absorb.SourcePageStart < keep.SourcePageStart {
			keep, absorb = absorb, keep
		}

		guideline.MergeUnits(keep, absorb)
		if err := p.store.PutUnit(ctx, keep); err != nil {
			return merged, reasons, fmt.Errorf("saving merged unit %s: %w", keep.Key(), err)
		}
		if err := p.store.DeleteUnit(ctx, doc.ID, absorb.TopicKey, absorb.SubtopicKey); err != nil {
			return merged, reasons, fmt.Errorf("removing absorbed unit %s: %w", absorb.Key(), err)
		}
		if err := p.reassignPages(ctx, doc.ID, absorb, keep); err != nil {
			return merged, reasons, err
		}

		merged++
		reasons[absorb.Key()] = pair.Reason
		p.logger.Info("units merged", "kept", keep.Key(), "absorbed", absorb.Key(), "reason", pair.Reason)
	}
	return merged, reasons, nil
}

// reassignPages rewrites page index entries pointing at an absorbed unit.
func (p *Pipeline) reassignPages(ctx context.Context, documentID string, from, to *guideline.Unit) error {
	pi, err := p.store.GetPageIndex(ctx, documentID)
	if err != nil {
		return nil // no page index yet, nothing to rewrite
	}
	pi.Reassign(from.TopicKey, from.SubtopicKey, to.TopicKey, to.SubtopicKey)
	if err := p.store.PutPageIndex(ctx, documentID, pi); err != nil {
		return fmt.Errorf("saving page index: %w", err)
	}
	return nil
}
