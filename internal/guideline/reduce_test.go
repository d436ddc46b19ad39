package guideline

import (
	"reflect"
	"testing"
)

func testDecision(topic, subtopic string, confidence float64, delta Delta) Decision {
	return Decision{
		IsNew:         true,
		TopicKey:      Slugify(topic),
		TopicTitle:    topic,
		SubtopicKey:   Slugify(subtopic),
		SubtopicTitle: subtopic,
		Confidence:    confidence,
		Delta:         delta,
	}
}

func TestNewUnit(t *testing.T) {
	d := testDecision("Fractions", "Equivalent Fractions", 0.9, Delta{
		Objectives:     []string{"Identify equivalent fractions"},
		Examples:       []string{"1/2 = 2/4"},
		Misconceptions: []string{"Bigger denominator means bigger fraction"},
		Assessments:    []Assessment{{Prompt: "Is 1/2 equal to 3/6?", Answer: "Yes", Difficulty: "easy"}},
	})

	u := NewUnit("doc-1", d, 1)

	if u.Status != StatusOpen {
		t.Errorf("status = %s, want %s", u.Status, StatusOpen)
	}
	if u.Version != 1 {
		t.Errorf("version = %d, want 1", u.Version)
	}
	if u.SourcePageStart != 1 || u.SourcePageEnd != 1 {
		t.Errorf("extent = [%d,%d], want [1,1]", u.SourcePageStart, u.SourcePageEnd)
	}
	if u.TopicKey != "fractions" || u.SubtopicKey != "equivalent-fractions" {
		t.Errorf("keys = %s/%s", u.TopicKey, u.SubtopicKey)
	}
	if len(u.Objectives) != 1 || len(u.Examples) != 1 || len(u.Misconceptions) != 1 || len(u.Assessments) != 1 {
		t.Errorf("content counts wrong: %+v", u.Evidence())
	}
}

func TestReduceIdempotent(t *testing.T) {
	d := Delta{
		Objectives:     []string{"Compare fractions", "Order fractions"},
		Examples:       []string{"Compare 2/3 and 3/4 using a number line"},
		Misconceptions: []string{"Comparing numerators alone"},
		Assessments:    []Assessment{{Prompt: "Which is larger, 2/3 or 3/4?", Answer: "3/4", Difficulty: "medium"}},
	}

	u := NewUnit("doc-1", testDecision("Fractions", "Comparing Fractions", 0.8, Delta{}), 1)

	if !Reduce(u, d, 2, 0.85) {
		t.Fatal("first merge reported no change")
	}
	once := *u
	oncePages := append([]int(nil), u.SourcePages...)

	if Reduce(u, d, 2, 0.85) {
		t.Error("second identical merge reported a change")
	}
	if u.Version != once.Version {
		t.Errorf("version changed on redundant merge: %d -> %d", once.Version, u.Version)
	}
	if !reflect.DeepEqual(u.SourcePages, oncePages) {
		t.Errorf("pages changed on redundant merge: %v -> %v", oncePages, u.SourcePages)
	}
	if len(u.Objectives) != 2 || len(u.Examples) != 1 || len(u.Assessments) != 1 {
		t.Errorf("content duplicated on redundant merge: %+v", u.Evidence())
	}
}

func TestReduceVersionMonotonic(t *testing.T) {
	u := NewUnit("doc-1", testDecision("Geometry", "Angles", 0.9, Delta{
		Objectives: []string{"Measure angles with a protractor"},
	}), 3)

	for i, d := range []Delta{
		{Objectives: []string{"Classify angles as acute, right, or obtuse"}},
		{Misconceptions: []string{"Angle size depends on ray length"}},
		{Examples: []string{"A door opening traces an angle"}},
	} {
		want := u.Version + 1
		if !Reduce(u, d, 4+i, 0.8) {
			t.Fatalf("merge %d reported no change", i)
		}
		if u.Version != want {
			t.Errorf("merge %d: version = %d, want %d", i, u.Version, want)
		}
	}
}

func TestReduceMonotonicExtent(t *testing.T) {
	u := NewUnit("doc-1", testDecision("Geometry", "Perimeter", 0.9, Delta{}), 5)

	pages := []int{7, 6, 9, 5, 8}
	prevStart, prevEnd := u.SourcePageStart, u.SourcePageEnd
	for _, p := range pages {
		Reduce(u, Delta{}, p, 0.8)
		if u.SourcePageStart > prevStart {
			t.Errorf("page %d: start increased %d -> %d", p, prevStart, u.SourcePageStart)
		}
		if u.SourcePageEnd < prevEnd {
			t.Errorf("page %d: end decreased %d -> %d", p, prevEnd, u.SourcePageEnd)
		}
		prevStart, prevEnd = u.SourcePageStart, u.SourcePageEnd
	}

	if !reflect.DeepEqual(u.SourcePages, []int{5, 6, 7, 8, 9}) {
		t.Errorf("pages = %v, want sorted 5..9", u.SourcePages)
	}
	if u.SourcePageEnd != 9 {
		t.Errorf("end = %d, want max merged page 9", u.SourcePageEnd)
	}
}

func TestReduceDedupe(t *testing.T) {
	t.Run("objectives case-insensitive", func(t *testing.T) {
		u := NewUnit("doc-1", testDecision("T", "S", 0.9, Delta{
			Objectives: []string{"Add fractions with like denominators"},
		}), 1)
		Reduce(u, Delta{Objectives: []string{"ADD Fractions WITH like denominators"}}, 2, 0.8)
		if len(u.Objectives) != 1 {
			t.Errorf("objectives = %v, want 1 item", u.Objectives)
		}
	})

	t.Run("examples by content hash", func(t *testing.T) {
		u := NewUnit("doc-1", testDecision("T", "S", 0.9, Delta{
			Examples: []string{"Slice a  pizza into 8 equal pieces"},
		}), 1)
		// Same content, different whitespace: hash matches.
		Reduce(u, Delta{Examples: []string{"Slice a pizza into 8  equal pieces"}}, 2, 0.8)
		if len(u.Examples) != 1 {
			t.Errorf("examples = %v, want 1 item", u.Examples)
		}
		Reduce(u, Delta{Examples: []string{"Fold a paper strip into quarters"}}, 3, 0.8)
		if len(u.Examples) != 2 {
			t.Errorf("examples = %v, want 2 items", u.Examples)
		}
	})

	t.Run("assessments keep difficulty variants", func(t *testing.T) {
		u := NewUnit("doc-1", testDecision("T", "S", 0.9, Delta{
			Assessments: []Assessment{{Prompt: "What is 1/2 + 1/4?", Answer: "3/4", Difficulty: "easy"}},
		}), 1)
		Reduce(u, Delta{Assessments: []Assessment{
			{Prompt: "What is 1/2 + 1/4?", Answer: "3/4", Difficulty: "hard"},
			{Prompt: "What is 1/2 + 1/4?", Answer: "3/4", Difficulty: "easy"},
		}}, 2, 0.8)
		if len(u.Assessments) != 2 {
			t.Errorf("assessments = %d, want 2 (difficulty variants kept, exact dup dropped)", len(u.Assessments))
		}
	})
}

func TestMergeUnits(t *testing.T) {
	dst := NewUnit("doc-1", testDecision("Fractions", "Adding Fractions", 0.9, Delta{
		Objectives:  []string{"Add fractions with like denominators"},
		Assessments: []Assessment{{Prompt: "1/4 + 2/4?", Answer: "3/4", Difficulty: "easy"}},
	}), 2)
	src := NewUnit("doc-1", testDecision("Fractions", "Fraction Addition", 0.7, Delta{
		Objectives:     []string{"Add fractions with like denominators", "Add fractions with unlike denominators"},
		Misconceptions: []string{"Adding denominators as well as numerators"},
	}), 6)
	Reduce(src, Delta{}, 7, 0.7)

	v := dst.Version
	if !MergeUnits(dst, src) {
		t.Fatal("merge reported no change")
	}
	if dst.Version != v+1 {
		t.Errorf("version = %d, want %d", dst.Version, v+1)
	}
	if len(dst.Objectives) != 2 {
		t.Errorf("objectives = %v, want 2 deduped items", dst.Objectives)
	}
	if !reflect.DeepEqual(dst.SourcePages, []int{2, 6, 7}) {
		t.Errorf("pages = %v, want [2 6 7]", dst.SourcePages)
	}
	if dst.SourcePageStart != 2 || dst.SourcePageEnd != 7 {
		t.Errorf("extent = [%d,%d], want [2,7]", dst.SourcePageStart, dst.SourcePageEnd)
	}
}

func TestLifecycleOneWay(t *testing.T) {
	u := NewUnit("doc-1", testDecision("T", "S", 0.9, Delta{}), 1)

	steps := []Status{StatusStable, StatusFinal, StatusNeedsReview, StatusFinal}
	for _, next := range steps {
		if err := u.SetStatus(next); err != nil {
			t.Fatalf("transition to %s: %v", next, err)
		}
	}

	for _, illegal := range []Status{StatusOpen, StatusStable} {
		if err := u.SetStatus(illegal); err == nil {
			t.Errorf("transition final -> %s allowed, want error", illegal)
		}
	}

	fresh := NewUnit("doc-1", testDecision("T", "S2", 0.9, Delta{}), 1)
	if err := fresh.SetStatus(StatusFinal); err == nil {
		t.Error("transition open -> final allowed, want error (must pass through stable)")
	}
}

func TestSlugify(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Equivalent Fractions", "equivalent-fractions"},
		{"  Place Value & Rounding  ", "place-value-rounding"},
		{"already-a-slug", "already-a-slug"},
		{"Ratios: Part 2", "ratios-part-2"},
		{"", ""},
	}
	for _, c := range cases {
		if got := Slugify(c.in); got != c.want {
			t.Errorf("Slugify(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
