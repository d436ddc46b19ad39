package pipeline

// PageResult reports what one page's processing did.
type PageResult struct {
	DocumentID string `json:"document_id"`
	PageNumber int    `json:"page_number"`

	// Failed marks a page skipped after an unrecoverable page-level error.
	// Processing of later pages continues.
	Failed bool   `json:"failed"`
	Error  string `json:"error,omitempty"`

	Digest string `json:"digest,omitempty"`

	// Assignment outcome.
	TopicKey    string  `json:"topic_key,omitempty"`
	SubtopicKey string  `json:"subtopic_key,omitempty"`
	UnitCreated bool    `json:"unit_created"`
	UnitChanged bool    `json:"unit_changed"`
	Confidence  float64 `json:"confidence,omitempty"`
	Provisional bool    `json:"provisional,omitempty"`

	// Units that stabilized as a side effect of this page.
	Stabilized []string `json:"stabilized,omitempty"`
}

// FinalizationResult reports what finalize did for a document.
type FinalizationResult struct {
	DocumentID string `json:"document_id"`

	UnitsFinalized int `json:"units_finalized"`
	UnitsMerged    int `json:"units_merged"`
	UnitsFlagged   int `json:"units_flagged"`
	PagesFailed    int `json:"pages_failed"`

	// MergeReasons maps absorbed unit keys to the deduplicator's stated
	// reason.
	MergeReasons map[string]string `json:"merge_reasons,omitempty"`
}
