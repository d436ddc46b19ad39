package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackzampolin/primer/internal/guideline"
	"github.com/jackzampolin/primer/internal/prompts/boundary"
	"github.com/jackzampolin/primer/internal/store"
)

// contextPack is the bounded view of history handed to the boundary
// classifier: every open unit as an evidence line plus the last few page
// digests. Its size does not grow with document length.
type contextPack struct {
	docID         string
	openUnits     []*guideline.Unit
	recentDigests []boundary.DigestData
}

func (c *contextPack) documentID() string { return c.docID }

// composeContext builds the context pack for one page. Open units carry
// only their keys, titles, and evidence summaries; digests cover the
// window of pages immediately before the current one.
func (p *Pipeline) composeContext(ctx context.Context, documentID string, pageNumber int) (*contextPack, error) {
	units, err := p.store.ListUnits(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("listing units: %w", err)
	}

	pack := &contextPack{docID: documentID, openUnits: guideline.OpenUnits(units)}

	for n := pageNumber - p.opts.DigestWindow; n < pageNumber; n++ {
		if n < 1 {
			continue
		}
		page, err := p.store.GetPage(ctx, documentID, n)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("reading page %d: %w", n, err)
		}
		if page.Digest == "" {
			continue
		}
		pack.recentDigests = append(pack.recentDigests, boundary.DigestData{
			PageNumber: n,
			Digest:     page.Digest,
		})
	}

	return pack, nil
}

// boundaryData renders the pack into the boundary prompt's input shape.
func (c *contextPack) boundaryData(doc *store.Document, page *store.PageRecord) boundary.UserPromptData {
	data := boundary.UserPromptData{
		Title:         doc.Title,
		Subject:       doc.Subject,
		GradeLevel:    doc.GradeLevel,
		RecentDigests: c.recentDigests,
		PageNumber:    page.PageNumber,
		PageText:      page.Text,
	}
	for _, u := range c.openUnits {
		data.OpenUnits = append(data.OpenUnits, boundary.OpenUnitData{
			TopicKey:      u.TopicKey,
			SubtopicKey:   u.SubtopicKey,
			SubtopicTitle: u.SubtopicTitle,
			Evidence:      u.Evidence().String(),
		})
	}
	return data
}

// openUnit finds an open unit in the pack by key.
func (c *contextPack) openUnit(topicKey, subtopicKey string) *guideline.Unit {
	for _, u := range c.openUnits {
		if u.TopicKey == topicKey && u.SubtopicKey == subtopicKey {
			return u
		}
	}
	return nil
}
