package guideline

import "testing"

func TestBuildIndex(t *testing.T) {
	units := []*Unit{
		{DocumentID: "doc-1", TopicKey: "geometry", TopicTitle: "Geometry", SubtopicKey: "angles", SubtopicTitle: "Angles", Status: StatusOpen, SourcePageStart: 10, SourcePageEnd: 12},
		{DocumentID: "doc-1", TopicKey: "fractions", TopicTitle: "Fractions", SubtopicKey: "equivalent-fractions", SubtopicTitle: "Equivalent Fractions", Status: StatusFinal, SourcePageStart: 1, SourcePageEnd: 4},
		{DocumentID: "doc-1", TopicKey: "fractions", TopicTitle: "Fractions", SubtopicKey: "comparing-fractions", SubtopicTitle: "Comparing Fractions", Status: StatusStable, SourcePageStart: 5, SourcePageEnd: 9},
	}

	idx := BuildIndex("doc-1", units)

	if len(idx.Topics) != 2 {
		t.Fatalf("topics = %d, want 2", len(idx.Topics))
	}
	// Ordered by first page of appearance.
	if idx.Topics[0].TopicKey != "fractions" || idx.Topics[1].TopicKey != "geometry" {
		t.Errorf("topic order = %s, %s", idx.Topics[0].TopicKey, idx.Topics[1].TopicKey)
	}
	subs := idx.Topics[0].Subtopics
	if len(subs) != 2 || subs[0].SubtopicKey != "equivalent-fractions" || subs[1].SubtopicKey != "comparing-fractions" {
		t.Errorf("subtopic order wrong: %+v", subs)
	}
	if subs[1].Status != StatusStable || subs[1].PageStart != 5 || subs[1].PageEnd != 9 {
		t.Errorf("subtopic entry wrong: %+v", subs[1])
	}
}

func TestBuildIndexDeterministic(t *testing.T) {
	units := []*Unit{
		{TopicKey: "a", SubtopicKey: "x", SourcePageStart: 1, SourcePageEnd: 1},
		{TopicKey: "b", SubtopicKey: "y", SourcePageStart: 1, SourcePageEnd: 2},
	}
	first := BuildIndex("doc-1", units)
	for i := 0; i < 20; i++ {
		again := BuildIndex("doc-1", units)
		if again.Topics[0].TopicKey != first.Topics[0].TopicKey {
			t.Fatal("index topic order unstable across rebuilds")
		}
	}
}

func TestPageIndexReassign(t *testing.T) {
	pi := NewPageIndex("doc-1")
	pi.Assign(PageAssignment{PageNumber: 1, TopicKey: "fractions", SubtopicKey: "halves", Confidence: 0.9})
	pi.Assign(PageAssignment{PageNumber: 2, TopicKey: "fractions", SubtopicKey: "halves-and-quarters", Confidence: 0.7})
	pi.Assign(PageAssignment{PageNumber: 3, TopicKey: "fractions", SubtopicKey: "halves", Confidence: 0.8})

	pi.Reassign("fractions", "halves", "fractions", "unit-fractions")

	if a := pi.Assignments[1]; a.SubtopicKey != "unit-fractions" {
		t.Errorf("page 1 subtopic = %s, want unit-fractions", a.SubtopicKey)
	}
	if a := pi.Assignments[3]; a.SubtopicKey != "unit-fractions" {
		t.Errorf("page 3 subtopic = %s, want unit-fractions", a.SubtopicKey)
	}
	if a := pi.Assignments[2]; a.SubtopicKey != "halves-and-quarters" {
		t.Errorf("page 2 subtopic = %s, should be untouched", a.SubtopicKey)
	}
}
