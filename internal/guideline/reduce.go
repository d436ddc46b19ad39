package guideline

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"
)

// NewUnit constructs a fresh open unit from a page's delta. The delta becomes
// the unit's entire initial content and the page its entire extent.
func NewUnit(documentID string, d Decision, page int) *Unit {
	now := time.Now().UTC()
	u := &Unit{
		DocumentID:      documentID,
		TopicKey:        d.TopicKey,
		TopicTitle:      d.TopicTitle,
		SubtopicKey:     d.SubtopicKey,
		SubtopicTitle:   d.SubtopicTitle,
		SourcePageStart: page,
		SourcePageEnd:   page,
		SourcePages:     []int{page},
		Status:          StatusOpen,
		Version:         1,
		Confidence:      d.Confidence,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	mergeObjectives(u, d.Delta.Objectives)
	mergeExamples(u, d.Delta.Examples)
	mergeMisconceptions(u, d.Delta.Misconceptions)
	mergeAssessments(u, d.Delta.Assessments)
	return u
}

// Reduce merges a page's delta into an existing unit. It is deterministic and
// idempotent: merging the same delta for the same page twice is a no-op the
// second time, so Reduce(Reduce(u, d), d) == Reduce(u, d).
//
// Version increments by exactly 1 per merge that changed the unit, regardless
// of how many fields changed. A wholly redundant merge leaves version alone;
// that is what makes the idempotence property hold.
//
// Returns true if the unit changed.
func Reduce(u *Unit, d Delta, page int, confidence float64) bool {
	changed := false

	if mergeObjectives(u, d.Objectives) {
		changed = true
	}
	if mergeExamples(u, d.Examples) {
		changed = true
	}
	if mergeMisconceptions(u, d.Misconceptions) {
		changed = true
	}
	if mergeAssessments(u, d.Assessments) {
		changed = true
	}
	if addPage(u, page) {
		changed = true
	}

	if changed {
		u.Version++
		u.Confidence = confidence
		u.UpdatedAt = time.Now().UTC()
	}
	return changed
}

// MergeUnits folds src into dst using the same field-level policy as Reduce.
// Used by the deduplicator when two units turn out to cover one concept.
// dst keeps its identity; its extent widens to cover src's pages.
func MergeUnits(dst, src *Unit) bool {
	changed := false
	if mergeObjectives(dst, src.Objectives) {
		changed = true
	}
	if mergeExamples(dst, src.Examples) {
		changed = true
	}
	if mergeMisconceptions(dst, src.Misconceptions) {
		changed = true
	}
	if mergeAssessments(dst, src.Assessments) {
		changed = true
	}
	for _, p := range src.SourcePages {
		if addPage(dst, p) {
			changed = true
		}
	}
	if changed {
		dst.Version++
		dst.UpdatedAt = time.Now().UTC()
	}
	return changed
}

// mergeObjectives appends items not already present under case-insensitive
// comparison. Reports whether anything was added.
func mergeObjectives(u *Unit, items []string) bool {
	added := false
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if !containsFold(u.Objectives, item) {
			u.Objectives = append(u.Objectives, item)
			added = true
		}
	}
	return added
}

func mergeMisconceptions(u *Unit, items []string) bool {
	added := false
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if !containsFold(u.Misconceptions, item) {
			u.Misconceptions = append(u.Misconceptions, item)
			added = true
		}
	}
	return added
}

// mergeExamples appends items not already present under exact-content-hash
// comparison. Whitespace is normalized before hashing so trivially reflowed
// OCR text does not defeat the dedupe.
func mergeExamples(u *Unit, items []string) bool {
	seen := make(map[string]struct{}, len(u.Examples))
	for _, ex := range u.Examples {
		seen[ExampleHash(ex)] = struct{}{}
	}
	added := false
	for _, item := range items {
		if strings.TrimSpace(item) == "" {
			continue
		}
		h := ExampleHash(item)
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		u.Examples = append(u.Examples, item)
		added = true
	}
	return added
}

// mergeAssessments appends assessments not already present under exact
// (prompt, answer, difficulty) comparison. The same prompt at a different
// difficulty level is a distinct item and is kept.
func mergeAssessments(u *Unit, items []Assessment) bool {
	added := false
	for _, item := range items {
		if strings.TrimSpace(item.Prompt) == "" {
			continue
		}
		dup := false
		for _, have := range u.Assessments {
			if have.Prompt == item.Prompt && have.Answer == item.Answer && have.Difficulty == item.Difficulty {
				dup = true
				break
			}
		}
		if !dup {
			u.Assessments = append(u.Assessments, item)
			added = true
		}
	}
	return added
}

// addPage inserts page into the sorted SourcePages set and widens the
// start/end extent. Returns false if the page was already covered.
func addPage(u *Unit, page int) bool {
	if page <= 0 {
		return false
	}
	i := sort.SearchInts(u.SourcePages, page)
	if i < len(u.SourcePages) && u.SourcePages[i] == page {
		return false
	}
	u.SourcePages = append(u.SourcePages, 0)
	copy(u.SourcePages[i+1:], u.SourcePages[i:])
	u.SourcePages[i] = page

	if u.SourcePageStart == 0 || page < u.SourcePageStart {
		u.SourcePageStart = page
	}
	if page > u.SourcePageEnd {
		u.SourcePageEnd = page
	}
	return true
}

// ExampleHash returns the content hash used for example deduplication.
func ExampleHash(text string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

func containsFold(items []string, target string) bool {
	for _, item := range items {
		if strings.EqualFold(strings.TrimSpace(item), target) {
			return true
		}
	}
	return false
}
