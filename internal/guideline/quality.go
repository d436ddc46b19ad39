package guideline

import (
	"strings"
	"time"
)

// Quality gate limits. All checks must hold for a unit to pass.
const (
	MinObjectives       = 2
	MinMisconceptions   = 1
	MinAssessments      = 1
	MinDescriptionChars = 100
	MaxDescriptionChars = 800
	MinDescriptionWords = 30
)

// Check names recorded in QualityFlags.Failed.
const (
	CheckMinObjectives       = "min_objectives"
	CheckMinMisconceptions   = "min_misconceptions"
	CheckMinAssessments      = "min_assessments"
	CheckDescriptionPresent  = "description_present"
	CheckDescriptionLength   = "description_length"
	CheckDescriptionWords    = "description_words"
	CheckSequenceMarker      = "sequence_marker"
	CheckMisconceptionMarker = "misconception_marker"
)

// sequenceMarkers are words whose presence indicates the description lays out
// a teaching sequence (concrete to abstract, ordered steps).
var sequenceMarkers = []string{
	"first", "then", "next", "after", "before", "begin", "start",
	"finally", "step", "concrete", "abstract", "introduce", "build",
	"progress", "sequence",
}

// misconceptionMarkers are words whose presence indicates the description
// references the misconception(s) to watch for.
var misconceptionMarkers = []string{
	"misconception", "confuse", "confus", "mistake", "mistaken",
	"incorrect", "wrong", "error", "pitfall", "misunderstand",
	"watch for",
}

// Gate runs the quality gate against a unit. It is pure validation: no
// inference call, no mutation. A failing gate is a normal outcome, not an
// error; callers route the unit to needs_review and record the flags.
func Gate(u *Unit) QualityFlags {
	flags := QualityFlags{CheckedAt: time.Now().UTC()}

	if len(u.Objectives) < MinObjectives {
		flags.Failed = append(flags.Failed, CheckMinObjectives)
	}
	if len(u.Misconceptions) < MinMisconceptions {
		flags.Failed = append(flags.Failed, CheckMinMisconceptions)
	}
	if len(u.Assessments) < MinAssessments {
		flags.Failed = append(flags.Failed, CheckMinAssessments)
	}

	desc := strings.TrimSpace(u.TeachingDescription)
	if desc == "" {
		flags.Failed = append(flags.Failed,
			CheckDescriptionPresent, CheckDescriptionLength, CheckDescriptionWords,
			CheckSequenceMarker, CheckMisconceptionMarker)
		return flags
	}

	if len(desc) < MinDescriptionChars || len(desc) > MaxDescriptionChars {
		flags.Failed = append(flags.Failed, CheckDescriptionLength)
	}
	if len(strings.Fields(desc)) < MinDescriptionWords {
		flags.Failed = append(flags.Failed, CheckDescriptionWords)
	}

	lower := strings.ToLower(desc)
	if !containsAny(lower, sequenceMarkers) {
		flags.Failed = append(flags.Failed, CheckSequenceMarker)
	}
	if !containsAny(lower, misconceptionMarkers) {
		flags.Failed = append(flags.Failed, CheckMisconceptionMarker)
	}

	flags.Passed = len(flags.Failed) == 0
	return flags
}

func containsAny(text string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}
