package severity

import "testing"

type weights map[string]int

func (w weights) Weight(s string) int { return w[s] }

func TestAssessScenario(t *testing.T) {
	w := weights{"itching": 1, "skin_rash": 3}
	a, err := Assess(w, []string{"itching", "skin_rash"}, 5)
	if err != nil {
		t.Fatal(err)
	}
	// (1+3)*5/3 = 6.67
	if a.Sum != 4 || a.Score != 7 || a.Band != Severe {
		t.Fatalf("got %+v", a)
	}
	if a.ConsultDoctor {
		t.Fatal("6.67 must not trip the doctor gate")
	}
}

func TestBandsAndGateAreDistinct(t *testing.T) {
	w := weights{"a": 4, "b": 5}
	// (4+5)*4/3 = 12: severe band, below the gate
	a, _ := Assess(w, []string{"a", "b"}, 4)
	if a.Band != Severe || a.ConsultDoctor {
		t.Fatalf("got %+v", a)
	}
	// (4+5)*5/3 = 15: severe and above the gate
	a, _ = Assess(w, []string{"a", "b"}, 5)
	if a.Band != Severe || !a.ConsultDoctor {
		t.Fatalf("got %+v", a)
	}
}

func TestAssessRoundsHalvesToEven(t *testing.T) {
	cases := []struct {
		weight int
		score  int
		band   Band
	}{
		{5, 2, Mild},      // 2.5
		{7, 4, Moderate},  // 3.5
		{13, 6, Moderate}, // 6.5
		{15, 8, Severe},   // 7.5
	}
	for _, c := range cases {
		a, err := Assess(weights{"x": c.weight}, []string{"x"}, 1)
		if err != nil {
			t.Fatal(err)
		}
		if a.Score != c.score || a.Band != c.band {
			t.Fatalf("weight %d: got %+v", c.weight, a)
		}
	}
}

func TestBandFor(t *testing.T) {
	cases := map[int]Band{0: Mild, 3: Mild, 4: Moderate, 6: Moderate, 7: Severe, 100: Severe}
	for score, want := range cases {
		if got := BandFor(score); got != want {
			t.Fatalf("BandFor(%d) = %s, want %s", score, got, want)
		}
	}
}

func TestRawSumIsMonotone(t *testing.T) {
	w := weights{"a": 2, "b": 0, "c": 5}
	set := []string{"a"}
	prev := RawSum(w, set)
	for _, s := range []string{"b", "c", "unknown"} {
		set = append(set, s)
		cur := RawSum(w, set)
		if cur < prev {
			t.Fatalf("sum decreased after adding %s: %d < %d", s, cur, prev)
		}
		prev = cur
	}
}

func TestAssessRejectsNonPositiveDays(t *testing.T) {
	if _, err := Assess(weights{}, []string{"a"}, 0); err == nil {
		t.Fatal("expected error for zero days")
	}
}
