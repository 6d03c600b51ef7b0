// Package catalog holds the reference tables read once at start-up: severity
// weight per symptom, description per condition and four precautions per
// condition.
package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"symptom-checker/internal/dataset"
)

// ErrDataLoad is the same sentinel the feature matrix uses, so callers can
// check start-up failures with a single errors.Is.
var ErrDataLoad = dataset.ErrDataLoad

type Paths struct {
	Severity    string
	Description string
	Precaution  string
}

// Catalog is read-only after construction and safe for concurrent use.
type Catalog struct {
	weights      map[string]int
	descriptions map[string]string
	precautions  map[string][4]string
}

func New(weights map[string]int, descriptions map[string]string, precautions map[string][4]string) *Catalog {
	c := &Catalog{
		weights:      make(map[string]int, len(weights)),
		descriptions: make(map[string]string, len(descriptions)),
		precautions:  make(map[string][4]string, len(precautions)),
	}
	for k, v := range weights {
		c.weights[dataset.NormalizeSymptom(k)] = v
	}
	for k, v := range descriptions {
		c.descriptions[conditionKey(k)] = v
	}
	for k, v := range precautions {
		c.precautions[conditionKey(k)] = v
	}
	return c
}

// Load reads the three tables. Malformed rows are skipped; a missing or
// unreadable file is ErrDataLoad.
func Load(p Paths) (*Catalog, error) {
	c := &Catalog{
		weights:      make(map[string]int),
		descriptions: make(map[string]string),
		precautions:  make(map[string][4]string),
	}
	if err := readTable(p.Severity, 2, func(row []string) bool {
		w, err := strconv.Atoi(strings.TrimSpace(row[1]))
		if err != nil || w < 0 {
			return false
		}
		c.weights[dataset.NormalizeSymptom(row[0])] = w
		return true
	}); err != nil {
		return nil, err
	}
	if err := readTable(p.Description, 2, func(row []string) bool {
		text := strings.TrimSpace(row[1])
		if text == "" || isHeader(row[0], "disease", "condition", "prognosis") {
			return false
		}
		c.descriptions[conditionKey(row[0])] = text
		return true
	}); err != nil {
		return nil, err
	}
	if err := readTable(p.Precaution, 5, func(row []string) bool {
		if isHeader(row[0], "disease", "condition", "prognosis") {
			return false
		}
		var steps [4]string
		for i := range steps {
			steps[i] = strings.TrimSpace(row[i+1])
		}
		c.precautions[conditionKey(row[0])] = steps
		return true
	}); err != nil {
		return nil, err
	}
	log.Printf("catalog: %d weights, %d descriptions, %d precaution sets",
		len(c.weights), len(c.descriptions), len(c.precautions))
	return c, nil
}

// Weight returns the severity weight of symptom, 0 when unknown.
func (c *Catalog) Weight(symptom string) int {
	return c.weights[dataset.NormalizeSymptom(symptom)]
}

func (c *Catalog) Description(condition string) (string, bool) {
	d, ok := c.descriptions[conditionKey(condition)]
	return d, ok
}

func (c *Catalog) Precautions(condition string) ([4]string, bool) {
	p, ok := c.precautions[conditionKey(condition)]
	return p, ok
}

func conditionKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func isHeader(cell string, names ...string) bool {
	key := conditionKey(cell)
	for _, n := range names {
		if key == n {
			return true
		}
	}
	return false
}

// readTable feeds every row with at least minCells cells to accept; rows it
// rejects are counted and logged.
func readTable(path string, minCells int, accept func(row []string) bool) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrDataLoad, path, err)
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	skipped := 0
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				skipped++
				continue
			}
			return fmt.Errorf("%w: read %s: %v", ErrDataLoad, path, err)
		}
		if len(row) < minCells || strings.TrimSpace(row[0]) == "" || !accept(row) {
			skipped++
		}
	}
	if skipped > 0 {
		log.Printf("catalog: skipped %d rows in %s", skipped, path)
	}
	return nil
}
