package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// Load reads a CSV feature matrix. The header names the symptom columns and
// one label column; columns with an empty header are ignored. Malformed rows
// are skipped, a missing file or label column is ErrDataLoad.
func Load(path, labelColumn string) (*Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrDataLoad, path, err)
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)
	m, err := Read(f, labelColumn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Read parses a CSV feature matrix from r. See Load.
func Read(r io.Reader, labelColumn string) (*Matrix, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", ErrDataLoad, err)
	}
	labelIdx := -1
	var featureIdx []int
	var columns []string
	for i, h := range header {
		name := strings.TrimSpace(h)
		switch {
		case name == "":
			continue
		case strings.EqualFold(name, labelColumn):
			labelIdx = i
		default:
			featureIdx = append(featureIdx, i)
			columns = append(columns, name)
		}
	}
	if labelIdx < 0 {
		return nil, fmt.Errorf("%w: label column %q not found", ErrDataLoad, labelColumn)
	}

	var rows [][]float64
	var labels []string
	skipped := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				skipped++
				continue
			}
			return nil, fmt.Errorf("%w: read row: %v", ErrDataLoad, err)
		}
		if len(rec) != len(header) {
			skipped++
			continue
		}
		label := strings.TrimSpace(rec[labelIdx])
		row, ok := parseRow(rec, featureIdx)
		if !ok || label == "" {
			skipped++
			continue
		}
		rows = append(rows, row)
		labels = append(labels, label)
	}
	if skipped > 0 {
		log.Printf("dataset: skipped %d malformed rows", skipped)
	}
	return New(columns, rows, labels)
}

func parseRow(rec []string, featureIdx []int) ([]float64, bool) {
	row := make([]float64, len(featureIdx))
	for k, i := range featureIdx {
		switch strings.TrimSpace(rec[i]) {
		case "0":
		case "1":
			row[k] = 1
		default:
			return nil, false
		}
	}
	return row, true
}
