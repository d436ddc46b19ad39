package guideline

// Delta is the raw content extracted from a single page, in the same shape as
// a unit's content fields but un-merged. Deltas are ephemeral: the reducer
// folds them into the authoritative unit and they are never stored.
type Delta struct {
	Objectives     []string     `json:"objectives"`
	Examples       []string     `json:"examples"`
	Misconceptions []string     `json:"misconceptions"`
	Assessments    []Assessment `json:"assessments"`
}

// Empty reports whether the delta carries no content at all.
func (d Delta) Empty() bool {
	return len(d.Objectives) == 0 &&
		len(d.Examples) == 0 &&
		len(d.Misconceptions) == 0 &&
		len(d.Assessments) == 0
}
