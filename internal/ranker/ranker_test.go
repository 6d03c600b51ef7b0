package ranker

import (
	"testing"

	"symptom-checker/internal/dataset"
)

func matrix(t *testing.T) *dataset.Matrix {
	t.Helper()
	m, err := dataset.New(
		[]string{"itching", "skin_rash", "nodal_skin_eruptions", "cough", "fever", "chills"},
		[][]float64{
			{1, 1, 1, 0, 0, 0},
			{1, 1, 0, 0, 0, 0},
			{1, 1, 1, 0, 1, 0},
			{0, 0, 0, 1, 1, 0},
			{0, 0, 0, 1, 0, 0},
		},
		[]string{"Fungal infection", "Fungal infection", "Fungal infection", "Common Cold", "Common Cold"},
	)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestRelatedOrdersByCoOccurrence(t *testing.T) {
	r, err := New(matrix(t), 10)
	if err != nil {
		t.Fatal(err)
	}
	got := r.Related("itching")
	// cough and chills never co-occur with itching and follow in column order
	want := []string{"skin_rash", "nodal_skin_eruptions", "fever", "cough", "chills"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestRelatedNeverIncludesPrimary(t *testing.T) {
	m := matrix(t)
	r, _ := New(m, 10)
	for _, s := range m.Columns() {
		for _, rel := range r.Related(s) {
			if rel == s {
				t.Fatalf("Related(%q) includes itself", s)
			}
		}
	}
}

func TestRelatedEmptyForUnknownOrAbsent(t *testing.T) {
	r, _ := New(matrix(t), 10)
	if got := r.Related("foobar"); len(got) != 0 {
		t.Fatalf("unknown symptom: %v", got)
	}
	if got := r.Related("chills"); len(got) != 0 {
		t.Fatalf("never-present symptom: %v", got)
	}
}

func TestRelatedRespectsLimit(t *testing.T) {
	r, _ := New(matrix(t), 1)
	got := r.Rank("itching")
	if len(got) != 1 || got[0].Symptom != "skin_rash" || got[0].Count != 3 {
		t.Fatalf("got %+v", got)
	}
	r, _ = New(matrix(t), 4)
	got = r.Rank("itching")
	if len(got) != 4 || got[3].Symptom != "cough" || got[3].Count != 0 {
		t.Fatalf("zero-count columns should fill the limit: %+v", got)
	}
	if _, err := New(matrix(t), 0); err == nil {
		t.Fatal("limit 0 must be rejected")
	}
}

func TestRelatedTiesKeepColumnOrder(t *testing.T) {
	r, _ := New(matrix(t), 10)
	got := r.Related("cough")
	// fever co-occurs once, the rest never and keep column order
	want := []string{"fever", "itching", "skin_rash", "nodal_skin_eruptions", "chills"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	got = r.Related("fever")
	// itching, skin_rash, nodal_skin_eruptions and cough all co-occur once
	want = []string{"itching", "skin_rash", "nodal_skin_eruptions", "cough", "chills"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
