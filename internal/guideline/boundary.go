package guideline

// Default hysteresis thresholds. The continue threshold sits below the new
// threshold so a page needs strictly more evidence to open a unit than to
// extend one, which prevents oscillation near a single cutoff.
const (
	DefaultContinueThreshold = 0.6
	DefaultNewThreshold      = 0.75
	DefaultAmbiguityMargin   = 0.05
)

// Thresholds configures the boundary decision policy.
type Thresholds struct {
	Continue float64 // minimum continue_score to extend an open unit
	New      float64 // minimum new_score to open a fresh unit
	Margin   float64 // dead band below New that blocks a continue verdict
}

// DefaultThresholds returns the standard hysteresis configuration.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Continue: DefaultContinueThreshold,
		New:      DefaultNewThreshold,
		Margin:   DefaultAmbiguityMargin,
	}
}

// Verdict is the outcome of a boundary decision.
type Verdict string

const (
	VerdictContinue Verdict = "continue"
	VerdictNew      Verdict = "new"
)

// Decision is the boundary classifier's output for one page. It is ephemeral:
// the reducer consumes it and only the merged unit survives.
type Decision struct {
	IsNew bool `json:"is_new"`

	// Target unit identity. When IsNew is false these must exactly match an
	// existing open unit's keys; the classifier does not get to invent a new
	// key while claiming continuation.
	TopicKey      string `json:"topic_key"`
	TopicTitle    string `json:"topic_title"`
	SubtopicKey   string `json:"subtopic_key"`
	SubtopicTitle string `json:"subtopic_title"`

	// Independent confidences in [0,1]; they are not required to sum to 1.
	ContinueScore float64 `json:"continue_score"`
	NewScore      float64 `json:"new_score"`

	// Confidence is the effective confidence of the verdict after the
	// hysteresis policy ran, capped when the scores fell in the ambiguous band.
	Confidence float64 `json:"confidence"`

	// Provisional marks a decision made inside the ambiguous band so a later
	// review pass can find it.
	Provisional bool `json:"provisional"`

	Delta Delta `json:"delta"`
}

// Decide applies the hysteresis policy to a pair of scores. It is a pure
// function: the same inputs always yield the same verdict.
//
// Evaluation order:
//  1. no open units: trivially new, whatever the scores say
//  2. continueScore >= Continue and newScore < New-Margin: continue
//  3. newScore >= New: new
//  4. ambiguous band: whichever score is higher (ties prefer continue), with
//     confidence capped just below the New threshold to mark uncertainty
func Decide(continueScore, newScore float64, t Thresholds, hasOpenUnits bool) (Verdict, float64, bool) {
	if !hasOpenUnits {
		return VerdictNew, clamp01(newScore), false
	}
	if continueScore >= t.Continue && newScore < t.New-t.Margin {
		return VerdictContinue, clamp01(continueScore), false
	}
	if newScore >= t.New {
		return VerdictNew, clamp01(newScore), false
	}

	// Ambiguous band: provisional best guess, capped confidence. Equal scores
	// prefer continue so an established unit keeps accumulating.
	cap := t.New - 0.01
	if continueScore >= newScore {
		return VerdictContinue, min(clamp01(continueScore), cap), true
	}
	return VerdictNew, min(clamp01(newScore), cap), true
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
