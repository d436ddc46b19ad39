package guideline

import (
	"sort"
	"time"
)

// SubtopicEntry is one subtopic's row in the document index.
type SubtopicEntry struct {
	SubtopicKey   string `json:"subtopic_key"`
	SubtopicTitle string `json:"subtopic_title"`
	Status        Status `json:"status"`
	PageStart     int    `json:"page_start"`
	PageEnd       int    `json:"page_end"`
}

// TopicEntry groups a topic's subtopics in the document index.
type TopicEntry struct {
	TopicKey   string          `json:"topic_key"`
	TopicTitle string          `json:"topic_title"`
	Subtopics  []SubtopicEntry `json:"subtopics"`
}

// Index is the document-level topic registry. It is derived state,
// rebuildable from the set of content units, but persisted for fast lookup.
type Index struct {
	DocumentID string       `json:"document_id"`
	Topics     []TopicEntry `json:"topics"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// BuildIndex reconstructs the index from the full set of a document's units.
// Topics and subtopics are ordered by first page of appearance, then key, so
// rebuilding from the same units always yields the same index.
func BuildIndex(documentID string, units []*Unit) *Index {
	byTopic := make(map[string][]*Unit)
	for _, u := range units {
		byTopic[u.TopicKey] = append(byTopic[u.TopicKey], u)
	}

	idx := &Index{DocumentID: documentID, UpdatedAt: time.Now().UTC()}
	for key, group := range byTopic {
		sort.Slice(group, func(i, j int) bool {
			if group[i].SourcePageStart != group[j].SourcePageStart {
				return group[i].SourcePageStart < group[j].SourcePageStart
			}
			return group[i].SubtopicKey < group[j].SubtopicKey
		})
		entry := TopicEntry{TopicKey: key, TopicTitle: group[0].TopicTitle}
		for _, u := range group {
			entry.Subtopics = append(entry.Subtopics, SubtopicEntry{
				SubtopicKey:   u.SubtopicKey,
				SubtopicTitle: u.SubtopicTitle,
				Status:        u.Status,
				PageStart:     u.SourcePageStart,
				PageEnd:       u.SourcePageEnd,
			})
		}
		idx.Topics = append(idx.Topics, entry)
	}

	sort.Slice(idx.Topics, func(i, j int) bool {
		a, b := idx.Topics[i], idx.Topics[j]
		if a.Subtopics[0].PageStart != b.Subtopics[0].PageStart {
			return a.Subtopics[0].PageStart < b.Subtopics[0].PageStart
		}
		return a.TopicKey < b.TopicKey
	})
	return idx
}

// OpenUnits filters units down to those still accepting pages.
func OpenUnits(units []*Unit) []*Unit {
	var open []*Unit
	for _, u := range units {
		if u.Status == StatusOpen {
			open = append(open, u)
		}
	}
	return open
}

// PageAssignment records which unit a page was assigned to and with what
// confidence. Failed pages are recorded too so gaps stay visible.
type PageAssignment struct {
	PageNumber  int     `json:"page_number"`
	TopicKey    string  `json:"topic_key,omitempty"`
	SubtopicKey string  `json:"subtopic_key,omitempty"`
	Confidence  float64 `json:"confidence"`
	Provisional bool    `json:"provisional,omitempty"`
	Failed      bool    `json:"failed,omitempty"`
}

// PageIndex maps each processed page to its unit assignment. Like Index it is
// derived and rebuildable but persisted for fast lookup.
type PageIndex struct {
	DocumentID  string                 `json:"document_id"`
	Assignments map[int]PageAssignment `json:"assignments"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// NewPageIndex creates an empty page index for a document.
func NewPageIndex(documentID string) *PageIndex {
	return &PageIndex{
		DocumentID:  documentID,
		Assignments: make(map[int]PageAssignment),
	}
}

// Assign records a page's assignment, replacing any previous record for the
// same page (reprocessing a failed page overwrites the failure marker).
func (p *PageIndex) Assign(a PageAssignment) {
	if p.Assignments == nil {
		p.Assignments = make(map[int]PageAssignment)
	}
	p.Assignments[a.PageNumber] = a
	p.UpdatedAt = time.Now().UTC()
}

// Reassign rewrites every assignment pointing at one unit key to another.
// Used when the deduplicator absorbs a unit into its duplicate.
func (p *PageIndex) Reassign(fromTopic, fromSubtopic, toTopic, toSubtopic string) {
	for page, a := range p.Assignments {
		if a.TopicKey == fromTopic && a.SubtopicKey == fromSubtopic {
			a.TopicKey = toTopic
			a.SubtopicKey = toSubtopic
			p.Assignments[page] = a
		}
	}
	p.UpdatedAt = time.Now().UTC()
}
