// Package report renders a concluded diagnosis as a PDF document.
package report

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/signintech/gopdf"

	"symptom-checker/internal/diagnosis"
)

const (
	fontName  = "report"
	textWidth = 500
	pageLimit = 780
)

type Renderer struct {
	fontPath string
}

// NewRenderer checks that the TTF font exists; gopdf needs one for any text.
func NewRenderer(fontPath string) (*Renderer, error) {
	if fontPath == "" {
		return nil, fmt.Errorf("report font path is empty")
	}
	if _, err := os.Stat(fontPath); err != nil {
		return nil, fmt.Errorf("report font: %w", err)
	}
	return &Renderer{fontPath: fontPath}, nil
}

// FileName is the attachment name for a report issued at t.
func FileName(t time.Time) string {
	return fmt.Sprintf("diagnosis_%s.pdf", t.UTC().Format("20060102_150405"))
}

func (r *Renderer) Render(patient string, rep *diagnosis.Report, at time.Time) ([]byte, error) {
	if rep == nil {
		return nil, fmt.Errorf("no diagnosis to render")
	}
	pdf := gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()
	if err := pdf.AddTTFFont(fontName, r.fontPath); err != nil {
		return nil, fmt.Errorf("failed to load font for PDF: %w", err)
	}
	w := &writer{pdf: &pdf}

	w.heading(20, "Symptom checker report")
	w.pdf.Br(30)
	w.font(12)
	w.line(fmt.Sprintf("Date: %s", at.Format("02.01.2006 15:04")))
	w.line(fmt.Sprintf("Patient: %s", patient))
	w.line(fmt.Sprintf("Symptoms: %s", strings.Join(rep.Symptoms, ", ")))
	w.line(fmt.Sprintf("Duration: %d days", rep.Days))
	w.pdf.Br(10)

	w.heading(14, "Possible conditions")
	w.font(11)
	for _, c := range rep.Conditions {
		w.paragraph(fmt.Sprintf("%s: %s", c.Name, c.Description))
	}
	w.pdf.Br(10)

	w.heading(14, "Severity")
	w.font(11)
	w.line(fmt.Sprintf("%s (score %d, weighted sum %d)", rep.Severity.Band, rep.Severity.Score, rep.Severity.Sum))
	w.paragraph(rep.Severity.Advice())
	w.pdf.Br(10)

	w.heading(14, "Precautions")
	w.font(11)
	for i, p := range rep.Precautions {
		w.paragraph(fmt.Sprintf("%d. %s", i+1, p))
	}
	w.pdf.Br(15)
	w.font(9)
	w.paragraph("This report is generated automatically and is not a medical diagnosis. Please consult a doctor.")

	if w.err != nil {
		return nil, w.err
	}
	var buf bytes.Buffer
	if _, err := pdf.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// writer keeps the first error and starts a new page near the bottom.
type writer struct {
	pdf  *gopdf.GoPdf
	size float64
	err  error
}

func (w *writer) font(size float64) {
	if w.err != nil {
		return
	}
	w.size = size
	w.err = w.pdf.SetFont(fontName, "", size)
}

func (w *writer) heading(size float64, text string) {
	w.font(size)
	w.line(text)
}

func (w *writer) line(text string) {
	if w.err != nil {
		return
	}
	if w.pdf.GetY() > pageLimit {
		w.pdf.AddPage()
	}
	if err := w.pdf.Cell(nil, text); err != nil {
		w.err = err
		return
	}
	w.pdf.Br(w.size + 4)
}

func (w *writer) paragraph(text string) {
	if w.err != nil {
		return
	}
	lines, err := w.pdf.SplitText(text, textWidth)
	if err != nil {
		w.err = err
		return
	}
	for _, l := range lines {
		w.line(l)
	}
}
