// Package guideline provides the core domain types for incremental guideline
// extraction: content units (shards), page-level deltas, boundary decisions,
// the deterministic reducer, and the quality gate.
// This package has no dependencies on other primer packages so every layer
// above it (store, pipeline, server) can share the same types.
package guideline

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a content unit.
// Progression is one-way: open -> stable -> final. The needs_review state is
// reachable from stable (quality gate failure) or final (manual rejection).
// No state ever reverts to open.
type Status string

const (
	StatusOpen        Status = "open"
	StatusStable      Status = "stable"
	StatusFinal       Status = "final"
	StatusNeedsReview Status = "needs_review"
)

// CanTransition reports whether moving from s to next is a legal lifecycle
// transition.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusOpen:
		return next == StatusStable
	case StatusStable:
		return next == StatusFinal || next == StatusNeedsReview
	case StatusFinal:
		// Manual rejection only.
		return next == StatusNeedsReview
	case StatusNeedsReview:
		// Manual approval only.
		return next == StatusFinal
	}
	return false
}

// Assessment is a single understanding-check item. The same prompt may appear
// at multiple difficulty levels; that is meaningful, not noise.
type Assessment struct {
	Prompt     string `json:"prompt"`
	Answer     string `json:"answer"`
	Difficulty string `json:"difficulty"` // "easy", "medium", "hard"
}

// QualityFlags records the outcome of the quality gate for a unit.
type QualityFlags struct {
	Passed    bool      `json:"passed"`
	Failed    []string  `json:"failed,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Unit is the authoritative, mutable aggregate for one subtopic (the "shard").
// A unit is exclusively owned by the single document pipeline instance
// processing it; nothing else mutates it concurrently.
type Unit struct {
	DocumentID string `json:"document_id"`

	// Identity. Keys are normalized slug form, titles are human-readable.
	// The (topic_key, subtopic_key) pair is unique within a document.
	TopicKey      string `json:"topic_key"`
	TopicTitle    string `json:"topic_title"`
	SubtopicKey   string `json:"subtopic_key"`
	SubtopicTitle string `json:"subtopic_title"`

	// Extent. Monotonically widening only: SourcePageStart never increases,
	// SourcePageEnd never decreases, SourcePages stays sorted.
	SourcePageStart int   `json:"source_page_start"`
	SourcePageEnd   int   `json:"source_page_end"`
	SourcePages     []int `json:"source_pages"`

	// Accumulated content. Objectives and misconceptions are deduplicated
	// case-insensitively, examples by content hash, assessments by exact
	// (prompt, answer, difficulty) triple.
	Objectives     []string     `json:"objectives"`
	Examples       []string     `json:"examples"`
	Misconceptions []string     `json:"misconceptions"`
	Assessments    []Assessment `json:"assessments"`

	// TeachingDescription is generated once, when the unit stabilizes.
	TeachingDescription string `json:"teaching_description,omitempty"`

	Status Status `json:"status"`

	// Version increments by exactly 1 per merge that changed the unit.
	Version int `json:"version"`

	// Confidence is the confidence of the last boundary decision that
	// assigned a page to this unit.
	Confidence float64 `json:"confidence"`

	QualityFlags *QualityFlags `json:"quality_flags,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Key returns the unit's identity within its document.
func (u *Unit) Key() string {
	return u.TopicKey + "/" + u.SubtopicKey
}

// SetStatus transitions the unit to next, enforcing one-way lifecycle rules.
func (u *Unit) SetStatus(next Status) error {
	if u.Status == next {
		return nil
	}
	if !u.Status.CanTransition(next) {
		return fmt.Errorf("illegal status transition %s -> %s for unit %s", u.Status, next, u.Key())
	}
	u.Status = next
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// Evidence is a cheap, rule-derived digest of a unit's size and content
// counts. It stands in for the unit's full content in context packs so that
// pack size stays bounded regardless of how large units grow.
type Evidence struct {
	PageStart          int  `json:"page_start"`
	PageEnd            int  `json:"page_end"`
	PageCount          int  `json:"page_count"`
	ObjectiveCount     int  `json:"objective_count"`
	ExampleCount       int  `json:"example_count"`
	MisconceptionCount int  `json:"misconception_count"`
	AssessmentCount    int  `json:"assessment_count"`
	HasDescription     bool `json:"has_description"`
}

// Evidence derives the evidence summary from the unit's current content.
func (u *Unit) Evidence() Evidence {
	return Evidence{
		PageStart:          u.SourcePageStart,
		PageEnd:            u.SourcePageEnd,
		PageCount:          len(u.SourcePages),
		ObjectiveCount:     len(u.Objectives),
		ExampleCount:       len(u.Examples),
		MisconceptionCount: len(u.Misconceptions),
		AssessmentCount:    len(u.Assessments),
		HasDescription:     u.TeachingDescription != "",
	}
}

// String renders the evidence as a compact single line for prompt contexts.
func (e Evidence) String() string {
	return fmt.Sprintf("pages %d-%d (%d pages), %d objectives, %d examples, %d misconceptions, %d assessments",
		e.PageStart, e.PageEnd, e.PageCount,
		e.ObjectiveCount, e.ExampleCount, e.MisconceptionCount, e.AssessmentCount)
}
