package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"symptom-checker/internal/diagnosis"
	"symptom-checker/internal/severity"
)

func TestNewRendererRequiresFont(t *testing.T) {
	if _, err := NewRenderer(""); err == nil {
		t.Fatal("expected error for empty font path")
	}
	if _, err := NewRenderer(filepath.Join(t.TempDir(), "missing.ttf")); err == nil {
		t.Fatal("expected error for missing font")
	}
}

func TestFileName(t *testing.T) {
	at := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	if got := FileName(at); got != "diagnosis_20240115_103000.pdf" {
		t.Fatalf("file name: %s", got)
	}
}

func TestRender(t *testing.T) {
	var font string
	for _, p := range []string{
		"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
		"/usr/share/fonts/dejavu/DejaVuSans.ttf",
		"/usr/share/fonts/ttf-dejavu/DejaVuSans.ttf",
	} {
		if _, err := os.Stat(p); err == nil {
			font = p
			break
		}
	}
	if font == "" {
		t.Skip("DejaVuSans.ttf not installed")
	}
	r, err := NewRenderer(font)
	if err != nil {
		t.Fatal(err)
	}
	rep := &diagnosis.Report{
		Conditions:  []diagnosis.Condition{{Name: "Fungal infection", Description: "A common skin condition."}},
		Symptoms:    []string{"itching", "skin_rash"},
		Days:        5,
		Severity:    severity.Assessment{Sum: 4, Score: 7, Band: severity.Severe},
		Precautions: []string{"bath twice", "keep infected area dry"},
	}
	data, err := r.Render("alice", rep, time.Now())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("not a PDF: %q", data[:8])
	}
	if _, err := r.Render("alice", nil, time.Now()); err == nil {
		t.Fatal("expected error for nil report")
	}
}
