package pipeline

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/jackzampolin/primer/internal/guideline"
	"github.com/jackzampolin/primer/internal/providers"
	"github.com/jackzampolin/primer/internal/store"
)

// goodDescription passes every quality gate check: length, word count,
// sequence markers, and misconception reference.
const goodDescription = "First introduce equal parts with concrete fraction strips, then move to abstract notation for halves and quarters. A common mistake is adding denominators when adding fractions; address it directly with counterexamples. Finish with an understanding check asking students to add two like-denominator fractions and explain each step."

type testRig struct {
	pipeline   *Pipeline
	store      *store.BadgerStore
	summarize  *providers.MockClient
	boundary   *providers.MockClient
	synthesize *providers.MockClient
	dedupe     *providers.MockClient
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := store.NewInMemoryStore(logger)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	rig := &testRig{
		store:      st,
		summarize:  providers.NewMockClient(),
		boundary:   providers.NewMockClient(),
		synthesize: providers.NewMockClient(),
		dedupe:     providers.NewMockClient(),
	}
	for _, c := range []*providers.MockClient{rig.summarize, rig.boundary, rig.synthesize, rig.dedupe} {
		c.Latency = 0
	}
	rig.pipeline = New(st, Clients{
		Summarize:  rig.summarize,
		Boundary:   rig.boundary,
		Synthesize: rig.synthesize,
		Dedupe:     rig.dedupe,
	}, Options{RetryDelay: time.Millisecond}, logger)
	return rig
}

func (r *testRig) seedDocument(t *testing.T, ctx context.Context, pages ...string) *store.Document {
	t.Helper()
	doc := &store.Document{
		ID:        "doc-1",
		Title:     "Fractions Workbook",
		Subject:   "math",
		PageCount: len(pages),
		Status:    store.DocumentStatusProcessing,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.store.PutDocument(ctx, doc); err != nil {
		t.Fatalf("seeding document: %v", err)
	}
	for i, text := range pages {
		page := &store.PageRecord{
			DocumentID: doc.ID,
			PageNumber: i + 1,
			Text:       text,
			Status:     store.PageStatusPending,
		}
		if err := r.store.PutPage(ctx, page); err != nil {
			t.Fatalf("seeding page %d: %v", i+1, err)
		}
	}
	return doc
}

// scriptPage enqueues the digest and boundary decision for one page.
func (r *testRig) scriptPage(digest string, decision map[string]any) {
	r.summarize.EnqueueJSON(map[string]any{"digest": digest})
	r.boundary.EnqueueJSON(decision)
}

func decision(isNew bool, topicKey, subtopicKey string, continueScore, newScore float64) map[string]any {
	return map[string]any{
		"is_new":         isNew,
		"topic_key":      topicKey,
		"topic_title":    strings.ReplaceAll(topicKey, "-", " "),
		"subtopic_key":   subtopicKey,
		"subtopic_title": strings.ReplaceAll(subtopicKey, "-", " "),
		"continue_score": continueScore,
		"new_score":      newScore,
		"objectives":     []string{},
		"examples":       []string{},
		"misconceptions": []string{},
		"assessments":    []map[string]any{},
	}
}

// richDecision carries enough content to pass the quality gate minimums on
// its own.
func richDecision(isNew bool, topicKey, subtopicKey string, continueScore, newScore float64) map[string]any {
	d := decision(isNew, topicKey, subtopicKey, continueScore, newScore)
	d["objectives"] = []string{"Define a fraction as equal parts of a whole", "Identify numerator and denominator"}
	d["misconceptions"] = []string{"Students think the denominator counts the shaded parts"}
	d["assessments"] = []map[string]any{
		{"prompt": "What fraction of the circle is shaded?", "answer": "Three quarters", "difficulty": "easy"},
	}
	return d
}

func TestProcessPageNewUnit(t *testing.T) {
	// Scenario: first page, no open units, unambiguous new scores.
	rig := newTestRig(t)
	ctx := t.Context()
	doc := rig.seedDocument(t, ctx, "Fractions are parts of a whole.")

	rig.scriptPage("introduces fractions as equal parts", richDecision(true, "fractions", "what-is-a-fraction", 0.0, 1.0))

	result, err := rig.pipeline.ProcessPage(ctx, doc.ID, 1)
	if err != nil {
		t.Fatalf("ProcessPage: %v", err)
	}
	if result.Failed {
		t.Fatalf("unexpected page failure: %s", result.Error)
	}
	if !result.UnitCreated {
		t.Error("expected a new unit")
	}

	unit, err := rig.store.GetUnit(ctx, doc.ID, "fractions", "what-is-a-fraction")
	if err != nil {
		t.Fatalf("GetUnit: %v", err)
	}
	if unit.SourcePageStart != 1 || unit.SourcePageEnd != 1 {
		t.Errorf("expected pages [1,1], got [%d,%d]", unit.SourcePageStart, unit.SourcePageEnd)
	}
	if unit.Status != guideline.StatusOpen || unit.Version != 1 {
		t.Errorf("expected open v1, got %s v%d", unit.Status, unit.Version)
	}
	if len(unit.Objectives) != 2 {
		t.Errorf("expected 2 objectives, got %d", len(unit.Objectives))
	}
}

func TestProcessPageContinuation(t *testing.T) {
	// Scenario: page 2 continues the unit opened on page 1; extent widens.
	rig := newTestRig(t)
	ctx := t.Context()
	doc := rig.seedDocument(t, ctx, "page one", "page two")

	rig.scriptPage("introduces fractions", richDecision(true, "fractions", "what-is-a-fraction", 0.0, 1.0))
	cont := decision(false, "fractions", "what-is-a-fraction", 0.85, 0.15)
	cont["objectives"] = []string{"Compare fractions with like denominators"}
	rig.scriptPage("continues fraction basics", cont)

	if _, err := rig.pipeline.ProcessPage(ctx, doc.ID, 1); err != nil {
		t.Fatalf("page 1: %v", err)
	}
	result, err := rig.pipeline.ProcessPage(ctx, doc.ID, 2)
	if err != nil {
		t.Fatalf("page 2: %v", err)
	}
	if result.UnitCreated {
		t.Error("expected continuation, got new unit")
	}
	if !result.UnitChanged {
		t.Error("expected the merge to change the unit")
	}

	unit, err := rig.store.GetUnit(ctx, doc.ID, "fractions", "what-is-a-fraction")
	if err != nil {
		t.Fatalf("GetUnit: %v", err)
	}
	if unit.SourcePageStart != 1 || unit.SourcePageEnd != 2 {
		t.Errorf("expected pages [1,2], got [%d,%d]", unit.SourcePageStart, unit.SourcePageEnd)
	}
	if unit.Version != 2 {
		t.Errorf("expected version 2 after one merge, got %d", unit.Version)
	}
	if len(unit.SourcePages) != 2 {
		t.Errorf("expected 2 source pages, got %v", unit.SourcePages)
	}
}

func TestProcessPageNewUnitDespiteOpen(t *testing.T) {
	// Scenario: page 3 opens a second unit; the first stays open untouched.
	rig := newTestRig(t)
	ctx := t.Context()
	doc := rig.seedDocument(t, ctx, "p1", "p2", "p3")

	rig.scriptPage("d1", richDecision(true, "fractions", "what-is-a-fraction", 0.0, 1.0))
	rig.scriptPage("d2", decision(false, "fractions", "what-is-a-fraction", 0.85, 0.15))
	rig.scriptPage("d3", richDecision(true, "fractions", "equivalent-fractions", 0.55, 0.80))

	for n := 1; n <= 3; n++ {
		if _, err := rig.pipeline.ProcessPage(ctx, doc.ID, n); err != nil {
			t.Fatalf("page %d: %v", n, err)
		}
	}

	u1, err := rig.store.GetUnit(ctx, doc.ID, "fractions", "what-is-a-fraction")
	if err != nil {
		t.Fatalf("GetUnit u1: %v", err)
	}
	if u1.Status != guideline.StatusOpen || u1.SourcePageEnd != 2 {
		t.Errorf("expected u1 open at pages [1,2], got %s [%d,%d]", u1.Status, u1.SourcePageStart, u1.SourcePageEnd)
	}
	u2, err := rig.store.GetUnit(ctx, doc.ID, "fractions", "equivalent-fractions")
	if err != nil {
		t.Fatalf("GetUnit u2: %v", err)
	}
	if u2.SourcePageStart != 3 {
		t.Errorf("expected u2 to start at page 3, got %d", u2.SourcePageStart)
	}
}

func TestStabilizationAfterGap(t *testing.T) {
	// Scenario: K=3. U1 last updated at page 2; pages 3,4,5 go elsewhere.
	// U1 must stabilize exactly when page 5 finishes.
	rig := newTestRig(t)
	ctx := t.Context()
	doc := rig.seedDocument(t, ctx, "p1", "p2", "p3", "p4", "p5")

	rig.scriptPage("d1", richDecision(true, "fractions", "what-is-a-fraction", 0.0, 1.0))
	rig.scriptPage("d2", decision(false, "fractions", "what-is-a-fraction", 0.9, 0.1))
	rig.scriptPage("d3", richDecision(true, "fractions", "equivalent-fractions", 0.3, 0.9))
	rig.scriptPage("d4", decision(false, "fractions", "equivalent-fractions", 0.9, 0.1))
	rig.scriptPage("d5", decision(false, "fractions", "equivalent-fractions", 0.9, 0.1))

	rig.synthesize.EnqueueJSON(map[string]any{"teaching_description": goodDescription})

	for n := 1; n <= 4; n++ {
		result, err := rig.pipeline.ProcessPage(ctx, doc.ID, n)
		if err != nil {
			t.Fatalf("page %d: %v", n, err)
		}
		if len(result.Stabilized) != 0 {
			t.Errorf("page %d: nothing should stabilize yet, got %v", n, result.Stabilized)
		}
	}

	result, err := rig.pipeline.ProcessPage(ctx, doc.ID, 5)
	if err != nil {
		t.Fatalf("page 5: %v", err)
	}
	if len(result.Stabilized) != 1 || result.Stabilized[0] != "fractions/what-is-a-fraction" {
		t.Fatalf("expected u1 to stabilize at page 5, got %v", result.Stabilized)
	}

	u1, err := rig.store.GetUnit(ctx, doc.ID, "fractions", "what-is-a-fraction")
	if err != nil {
		t.Fatalf("GetUnit: %v", err)
	}
	if u1.Status != guideline.StatusFinal {
		t.Errorf("expected u1 final after passing the gate, got %s (failed: %v)", u1.Status, u1.QualityFlags.Failed)
	}
	if u1.TeachingDescription != goodDescription {
		t.Error("expected synthesized description on u1")
	}
}

func TestFinalizeForcesOpenUnits(t *testing.T) {
	// Scenario: document ends with a unit still open; finalize forces it
	// stable and gates it regardless of the gap rule.
	rig := newTestRig(t)
	ctx := t.Context()
	doc := rig.seedDocument(t, ctx, "p1", "p2")

	rig.scriptPage("d1", richDecision(true, "fractions", "what-is-a-fraction", 0.0, 1.0))
	rig.scriptPage("d2", decision(false, "fractions", "what-is-a-fraction", 0.9, 0.1))
	for n := 1; n <= 2; n++ {
		if _, err := rig.pipeline.ProcessPage(ctx, doc.ID, n); err != nil {
			t.Fatalf("page %d: %v", n, err)
		}
	}

	rig.synthesize.EnqueueJSON(map[string]any{"teaching_description": goodDescription})

	result, err := rig.pipeline.FinalizeDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("FinalizeDocument: %v", err)
	}
	if result.UnitsFinalized != 1 || result.UnitsFlagged != 0 {
		t.Errorf("expected 1 finalized, 0 flagged; got %d, %d", result.UnitsFinalized, result.UnitsFlagged)
	}

	got, err := rig.store.GetDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if got.Status != store.DocumentStatusFinalized || got.FinalizedAt == nil {
		t.Errorf("expected finalized document, got %s", got.Status)
	}

	// Re-finalization is rejected.
	if _, err := rig.pipeline.FinalizeDocument(ctx, doc.ID); err == nil {
		t.Error("expected error finalizing an already-finalized document")
	}
}

func TestFinalizeFlagsGateFailure(t *testing.T) {
	// A unit without enough content lands in needs_review, not final.
	rig := newTestRig(t)
	ctx := t.Context()
	doc := rig.seedDocument(t, ctx, "p1")

	sparse := decision(true, "fractions", "what-is-a-fraction", 0.0, 1.0)
	sparse["objectives"] = []string{"Define a fraction"} // below minimum
	rig.scriptPage("d1", sparse)

	if _, err := rig.pipeline.ProcessPage(ctx, doc.ID, 1); err != nil {
		t.Fatalf("page 1: %v", err)
	}

	rig.synthesize.EnqueueJSON(map[string]any{"teaching_description": goodDescription})

	result, err := rig.pipeline.FinalizeDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("FinalizeDocument: %v", err)
	}
	if result.UnitsFlagged != 1 || result.UnitsFinalized != 0 {
		t.Errorf("expected 1 flagged, got finalized=%d flagged=%d", result.UnitsFinalized, result.UnitsFlagged)
	}

	unit, err := rig.store.GetUnit(ctx, doc.ID, "fractions", "what-is-a-fraction")
	if err != nil {
		t.Fatalf("GetUnit: %v", err)
	}
	if unit.Status != guideline.StatusNeedsReview {
		t.Errorf("expected needs_review, got %s", unit.Status)
	}
	if len(unit.QualityFlags.Failed) == 0 {
		t.Error("expected failed quality checks recorded")
	}
}

func TestPageFailureIsolation(t *testing.T) {
	// A page with no text fails without stopping the run; the next page
	// still processes.
	rig := newTestRig(t)
	ctx := t.Context()
	doc := rig.seedDocument(t, ctx, "p1", "", "p3")

	rig.scriptPage("d1", richDecision(true, "fractions", "what-is-a-fraction", 0.0, 1.0))
	// Page 2 needs no script: it fails before any inference call.
	rig.scriptPage("d3", decision(false, "fractions", "what-is-a-fraction", 0.9, 0.1))

	if _, err := rig.pipeline.ProcessPage(ctx, doc.ID, 1); err != nil {
		t.Fatalf("page 1: %v", err)
	}

	result, err := rig.pipeline.ProcessPage(ctx, doc.ID, 2)
	if err != nil {
		t.Fatalf("page 2 should fail softly, got error: %v", err)
	}
	if !result.Failed {
		t.Fatal("expected page 2 to be marked failed")
	}

	result, err = rig.pipeline.ProcessPage(ctx, doc.ID, 3)
	if err != nil {
		t.Fatalf("page 3: %v", err)
	}
	if result.Failed {
		t.Fatalf("page 3 should process normally: %s", result.Error)
	}

	pi, err := rig.store.GetPageIndex(ctx, doc.ID)
	if err != nil {
		t.Fatalf("GetPageIndex: %v", err)
	}
	if !pi.Assignments[2].Failed {
		t.Error("expected page 2 marked failed in page index")
	}
	if pi.Assignments[3].TopicKey != "fractions" {
		t.Error("expected page 3 assigned despite page 2 failure")
	}
}

func TestMalformedResultCorrectiveRetry(t *testing.T) {
	// A schema-invalid boundary result gets exactly one corrective retry.
	rig := newTestRig(t)
	ctx := t.Context()
	doc := rig.seedDocument(t, ctx, "p1")

	rig.summarize.EnqueueJSON(map[string]any{"digest": "d1"})
	rig.boundary.Enqueue(providers.MockResponse{JSON: []byte(`{"is_new": true}`)}) // missing required fields
	rig.boundary.EnqueueJSON(richDecision(true, "fractions", "what-is-a-fraction", 0.0, 1.0))

	result, err := rig.pipeline.ProcessPage(ctx, doc.ID, 1)
	if err != nil {
		t.Fatalf("ProcessPage: %v", err)
	}
	if result.Failed {
		t.Fatalf("expected recovery after corrective retry, got failure: %s", result.Error)
	}
	if got := rig.boundary.RequestCount(); got != 2 {
		t.Errorf("expected 2 boundary calls, got %d", got)
	}
}

func TestDeduplicationMerge(t *testing.T) {
	// Finalize merges a duplicate pair, keeping the unit with the earlier
	// first page even when the model lists the pair the other way around.
	rig := newTestRig(t)
	ctx := t.Context()
	doc := rig.seedDocument(t, ctx, "p1", "p2")

	rig.scriptPage("d1", richDecision(true, "fractions", "what-is-a-fraction", 0.0, 1.0))
	rig.scriptPage("d2", richDecision(true, "fractions", "fraction-basics", 0.3, 0.9))
	for n := 1; n <= 2; n++ {
		if _, err := rig.pipeline.ProcessPage(ctx, doc.ID, n); err != nil {
			t.Fatalf("page %d: %v", n, err)
		}
	}

	// Both units are forced stable at finalize.
	rig.synthesize.EnqueueJSON(map[string]any{"teaching_description": goodDescription})
	rig.synthesize.EnqueueJSON(map[string]any{"teaching_description": goodDescription})
	rig.dedupe.EnqueueJSON(map[string]any{
		"pairs": []map[string]any{{
			// Deliberately names the later unit as the keeper.
			"keep_topic_key":     "fractions",
			"keep_subtopic_key":  "fraction-basics",
			"merge_topic_key":    "fractions",
			"merge_subtopic_key": "what-is-a-fraction",
			"reason":             "both cover the definition of a fraction",
		}},
	})

	result, err := rig.pipeline.FinalizeDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("FinalizeDocument: %v", err)
	}
	if result.UnitsMerged != 1 {
		t.Fatalf("expected 1 merge, got %d", result.UnitsMerged)
	}

	// The earlier unit survived.
	keep, err := rig.store.GetUnit(ctx, doc.ID, "fractions", "what-is-a-fraction")
	if err != nil {
		t.Fatalf("expected earlier unit kept: %v", err)
	}
	if keep.SourcePageStart != 1 || keep.SourcePageEnd != 2 {
		t.Errorf("expected merged extent [1,2], got [%d,%d]", keep.SourcePageStart, keep.SourcePageEnd)
	}
	if _, err := rig.store.GetUnit(ctx, doc.ID, "fractions", "fraction-basics"); err == nil {
		t.Error("expected absorbed unit deleted")
	}
	if reason := result.MergeReasons["fractions/fraction-basics"]; reason == "" {
		t.Error("expected merge reason recorded")
	}

	pi, err := rig.store.GetPageIndex(ctx, doc.ID)
	if err != nil {
		t.Fatalf("GetPageIndex: %v", err)
	}
	if pi.Assignments[2].SubtopicKey != "what-is-a-fraction" {
		t.Errorf("expected page 2 reassigned to kept unit, got %s", pi.Assignments[2].SubtopicKey)
	}
}

func TestReviewActions(t *testing.T) {
	rig := newTestRig(t)
	ctx := t.Context()
	doc := rig.seedDocument(t, ctx, "p1")

	sparse := decision(true, "fractions", "what-is-a-fraction", 0.0, 1.0)
	rig.scriptPage("d1", sparse)
	if _, err := rig.pipeline.ProcessPage(ctx, doc.ID, 1); err != nil {
		t.Fatalf("page 1: %v", err)
	}
	rig.synthesize.EnqueueJSON(map[string]any{"teaching_description": goodDescription})
	if _, err := rig.pipeline.FinalizeDocument(ctx, doc.ID); err != nil {
		t.Fatalf("FinalizeDocument: %v", err)
	}

	t.Run("approve", func(t *testing.T) {
		unit, err := rig.pipeline.ApproveUnit(ctx, doc.ID, "fractions", "what-is-a-fraction")
		if err != nil {
			t.Fatalf("ApproveUnit: %v", err)
		}
		if unit.Status != guideline.StatusFinal {
			t.Errorf("expected final, got %s", unit.Status)
		}
	})

	t.Run("reject", func(t *testing.T) {
		unit, err := rig.pipeline.RejectUnit(ctx, doc.ID, "fractions", "what-is-a-fraction")
		if err != nil {
			t.Fatalf("RejectUnit: %v", err)
		}
		if unit.Status != guideline.StatusNeedsReview {
			t.Errorf("expected needs_review, got %s", unit.Status)
		}
	})

	t.Run("regenerate", func(t *testing.T) {
		rig.synthesize.EnqueueJSON(map[string]any{"teaching_description": goodDescription})
		unit, err := rig.pipeline.RegenerateDescription(ctx, doc.ID, "fractions", "what-is-a-fraction")
		if err != nil {
			t.Fatalf("RegenerateDescription: %v", err)
		}
		// The unit still lacks content minimums, so it stays in review.
		if unit.Status != guideline.StatusNeedsReview {
			t.Errorf("expected needs_review, got %s", unit.Status)
		}
		if unit.TeachingDescription != goodDescription {
			t.Error("expected regenerated description")
		}
	})
}

func TestReprocessingIsIdempotent(t *testing.T) {
	// Processing the same page twice with the same scripted decision must
	// not grow the unit or bump its version the second time.
	rig := newTestRig(t)
	ctx := t.Context()
	doc := rig.seedDocument(t, ctx, "p1")

	d := richDecision(true, "fractions", "what-is-a-fraction", 0.0, 1.0)
	rig.scriptPage("d1", d)
	if _, err := rig.pipeline.ProcessPage(ctx, doc.ID, 1); err != nil {
		t.Fatalf("first pass: %v", err)
	}
	first, err := rig.store.GetUnit(ctx, doc.ID, "fractions", "what-is-a-fraction")
	if err != nil {
		t.Fatalf("GetUnit: %v", err)
	}

	// Digest is cached, so only the boundary call repeats.
	rig.boundary.EnqueueJSON(d)
	result, err := rig.pipeline.ProcessPage(ctx, doc.ID, 1)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if result.UnitChanged {
		t.Error("expected redundant merge to be a no-op")
	}

	second, err := rig.store.GetUnit(ctx, doc.ID, "fractions", "what-is-a-fraction")
	if err != nil {
		t.Fatalf("GetUnit: %v", err)
	}
	if second.Version != first.Version {
		t.Errorf("version changed on redundant merge: %d -> %d", first.Version, second.Version)
	}
	if len(second.Objectives) != len(first.Objectives) || len(second.Assessments) != len(first.Assessments) {
		t.Error("content grew on redundant merge")
	}
}
