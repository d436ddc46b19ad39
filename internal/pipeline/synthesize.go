package pipeline

import (
	"context"
	"fmt"

	"github.com/jackzampolin/primer/internal/guideline"
	"github.com/jackzampolin/primer/internal/llmcall"
	"github.com/jackzampolin/primer/internal/prompts/synthesize"
	"github.com/jackzampolin/primer/internal/store"
)

// synthesizeAndGate produces the teaching description for a stable unit,
// runs the quality gate, and moves the unit to final or needs_review. The
// unit is persisted in every outcome, including synthesis failure.
func (p *Pipeline) synthesizeAndGate(ctx context.Context, doc *store.Document, u *guideline.Unit) error {
	logger := p.logger.With("document_id", doc.ID, "unit", u.Key())

	if u.TeachingDescription == "" {
		description, err := p.synthesizeUnit(ctx, doc, u)
		if err != nil {
			// Synthesis failure is not fatal to the run: the unit lands in
			// needs_review with its gate flags explaining what is missing.
			logger.Warn("synthesis failed", "error", err)
		} else {
			u.TeachingDescription = description
		}
	}

	flags := guideline.Gate(u)
	u.QualityFlags = &flags

	next := guideline.StatusFinal
	if len(flags.Failed) > 0 {
		next = guideline.StatusNeedsReview
	}
	if err := u.SetStatus(next); err != nil {
		return err
	}
	if err := p.store.PutUnit(ctx, u); err != nil {
		return fmt.Errorf("saving unit %s: %w", u.Key(), err)
	}

	logger.Info("unit gated", "status", u.Status, "failed_checks", flags.Failed)
	return nil
}

// synthesizeUnit runs the teaching description inference call for one unit.
func (p *Pipeline) synthesizeUnit(ctx context.Context, doc *store.Document, u *guideline.Unit) (string, error) {
	data := synthesize.UserPromptData{
		TopicTitle:      u.TopicTitle,
		SubtopicTitle:   u.SubtopicTitle,
		SourcePageStart: u.SourcePageStart,
		SourcePageEnd:   u.SourcePageEnd,
		Objectives:      u.Objectives,
		Examples:        u.Examples,
		Misconceptions:  u.Misconceptions,
	}
	for _, a := range u.Assessments {
		data.Assessments = append(data.Assessments, synthesize.AssessmentData{
			Prompt:     a.Prompt,
			Difficulty: a.Difficulty,
		})
	}

	res, err := p.infer(ctx, p.clients.Synthesize, synthesize.Request(data), llmcall.RecordOptions{
		DocumentID: doc.ID,
		PromptKey:  synthesize.UserPromptKey,
	})
	if err != nil {
		return "", err
	}
	parsed, err := synthesize.ParseResult(res.ParsedJSON)
	if err != nil {
		return "", fmt.Errorf("parsing synthesis result: %w", err)
	}
	return parsed.TeachingDescription, nil
}

// RegenerateDescription re-runs synthesis and the gate for a unit under
// manual review. Allowed only from needs_review.
func (p *Pipeline) RegenerateDescription(ctx context.Context, documentID, topicKey, subtopicKey string) (*guideline.Unit, error) {
	doc, err := p.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	u, err := p.store.GetUnit(ctx, documentID, topicKey, subtopicKey)
	if err != nil {
		return nil, err
	}
	if u.Status != guideline.StatusNeedsReview {
		return nil, fmt.Errorf("unit %s is %s, regeneration requires needs_review", u.Key(), u.Status)
	}

	description, err := p.synthesizeUnit(ctx, doc, u)
	if err != nil {
		return nil, fmt.Errorf("regenerating description for %s: %w", u.Key(), err)
	}
	u.TeachingDescription = description

	flags := guideline.Gate(u)
	u.QualityFlags = &flags
	if len(flags.Failed) == 0 {
		if err := u.SetStatus(guideline.StatusFinal); err != nil {
			return nil, err
		}
	}
	if err := p.store.PutUnit(ctx, u); err != nil {
		return nil, fmt.Errorf("saving unit %s: %w", u.Key(), err)
	}
	return u, nil
}
