package pipeline

import (
	"context"
	"fmt"

	"github.com/jackzampolin/primer/internal/guideline"
)

// ApproveUnit moves a needs_review unit to final. This is the manual
// review action; the quality flags stay on the unit as a record of what
// the gate objected to.
func (p *Pipeline) ApproveUnit(ctx context.Context, documentID, topicKey, subtopicKey string) (*guideline.Unit, error) {
	u, err := p.store.GetUnit(ctx, documentID, topicKey, subtopicKey)
	if err != nil {
		return nil, err
	}
	if u.Status != guideline.StatusNeedsReview {
		return nil, fmt.Errorf("unit %s is %s, approval requires needs_review", u.Key(), u.Status)
	}
	if err := u.SetStatus(guideline.StatusFinal); err != nil {
		return nil, err
	}
	if err := p.store.PutUnit(ctx, u); err != nil {
		return nil, fmt.Errorf("saving unit %s: %w", u.Key(), err)
	}
	p.logger.Info("unit approved", "document_id", documentID, "unit", u.Key())
	return u, nil
}

// RejectUnit moves a final unit back to needs_review.
func (p *Pipeline) RejectUnit(ctx context.Context, documentID, topicKey, subtopicKey string) (*guideline.Unit, error) {
	u, err := p.store.GetUnit(ctx, documentID, topicKey, subtopicKey)
	if err != nil {
		return nil, err
	}
	if u.Status != guideline.StatusFinal {
		return nil, fmt.Errorf("unit %s is %s, rejection requires final", u.Key(), u.Status)
	}
	if err := u.SetStatus(guideline.StatusNeedsReview); err != nil {
		return nil, err
	}
	if err := p.store.PutUnit(ctx, u); err != nil {
		return nil, fmt.Errorf("saving unit %s: %w", u.Key(), err)
	}
	p.logger.Info("unit rejected", "document_id", documentID, "unit", u.Key())
	return u, nil
}
