package guideline

import "testing"

func TestDecide(t *testing.T) {
	th := DefaultThresholds()

	cases := []struct {
		name            string
		continueScore   float64
		newScore        float64
		hasOpen         bool
		wantVerdict     Verdict
		wantProvisional bool
	}{
		{"no open units forces new", 0.0, 1.0, false, VerdictNew, false},
		{"no open units forces new even with high continue", 0.95, 0.1, false, VerdictNew, false},
		{"clear continue", 0.85, 0.15, true, VerdictContinue, false},
		{"clear new", 0.55, 0.80, true, VerdictNew, false},
		{"continue blocked by margin", 0.80, 0.72, true, VerdictContinue, true},
		{"ambiguous prefers higher score", 0.40, 0.70, true, VerdictNew, true},
		{"ambiguous tie prefers continue", 0.5, 0.5, true, VerdictContinue, true},
		{"exact continue threshold", 0.60, 0.10, true, VerdictContinue, false},
		{"exact new threshold", 0.10, 0.75, true, VerdictNew, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			verdict, confidence, provisional := Decide(c.continueScore, c.newScore, th, c.hasOpen)
			if verdict != c.wantVerdict {
				t.Errorf("verdict = %s, want %s", verdict, c.wantVerdict)
			}
			if provisional != c.wantProvisional {
				t.Errorf("provisional = %v, want %v", provisional, c.wantProvisional)
			}
			if provisional && confidence >= th.New {
				t.Errorf("provisional confidence %f not capped below %f", confidence, th.New)
			}
		})
	}
}

func TestDecideDeterministic(t *testing.T) {
	th := DefaultThresholds()
	v1, c1, p1 := Decide(0.62, 0.71, th, true)
	for i := 0; i < 100; i++ {
		v, c, p := Decide(0.62, 0.71, th, true)
		if v != v1 || c != c1 || p != p1 {
			t.Fatalf("iteration %d: decision changed (%s %f %v) -> (%s %f %v)", i, v1, c1, p1, v, c, p)
		}
	}
}

func TestDecideConfidenceClamped(t *testing.T) {
	th := DefaultThresholds()
	if _, c, _ := Decide(1.7, 0.0, th, true); c > 1.0 {
		t.Errorf("confidence %f exceeds 1.0", c)
	}
	if _, c, _ := Decide(-0.3, -0.2, th, false); c < 0.0 {
		t.Errorf("confidence %f below 0.0", c)
	}
}
