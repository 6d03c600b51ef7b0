// Package dataset holds the labeled symptom feature matrix the classifiers and
// the correlation ranker are built from.
package dataset

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrDataLoad       = errors.New("data load failure")
	ErrSchemaMismatch = errors.New("schema mismatch")
)

// NormalizeSymptom lowercases s and joins its words with underscores, so
// "Skin Rash" and "skin_rash" name the same column.
func NormalizeSymptom(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "_")
}

// Matrix is an immutable 0/1 symptom matrix with one condition label per row.
// Column order is fixed at construction and defines the vector layout used by
// Encode and by every classifier trained on it.
type Matrix struct {
	columns []string
	index   map[string]int
	labels  []string
	data    *mat.Dense
}

// New builds a matrix from already parsed rows. Column names are normalized.
func New(columns []string, rows [][]float64, labels []string) (*Matrix, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: no symptom columns", ErrDataLoad)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no rows", ErrDataLoad)
	}
	if len(rows) != len(labels) {
		return nil, fmt.Errorf("%w: %d rows but %d labels", ErrDataLoad, len(rows), len(labels))
	}
	cols := make([]string, len(columns))
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		name := NormalizeSymptom(c)
		if name == "" {
			return nil, fmt.Errorf("%w: empty column name at %d", ErrDataLoad, i)
		}
		if _, dup := index[name]; dup {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrDataLoad, name)
		}
		cols[i] = name
		index[name] = i
	}
	flat := make([]float64, 0, len(rows)*len(cols))
	for i, row := range rows {
		if len(row) != len(cols) {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrDataLoad, i, len(row), len(cols))
		}
		for j, v := range row {
			if v != 0 && v != 1 {
				return nil, fmt.Errorf("%w: row %d column %q is %v, want 0 or 1", ErrDataLoad, i, cols[j], v)
			}
		}
		flat = append(flat, row...)
	}
	lbls := make([]string, len(labels))
	for i, l := range labels {
		lbls[i] = strings.TrimSpace(l)
		if lbls[i] == "" {
			return nil, fmt.Errorf("%w: row %d has an empty label", ErrDataLoad, i)
		}
	}
	return &Matrix{
		columns: cols,
		index:   index,
		labels:  lbls,
		data:    mat.NewDense(len(rows), len(cols), flat),
	}, nil
}

func (m *Matrix) Width() int { return len(m.columns) }

func (m *Matrix) Len() int { return len(m.labels) }

// Columns returns a copy of the column names in vector order.
func (m *Matrix) Columns() []string {
	out := make([]string, len(m.columns))
	copy(out, m.columns)
	return out
}

func (m *Matrix) Column(j int) string { return m.columns[j] }

// Index returns the vector position of symptom (normalized first).
func (m *Matrix) Index(symptom string) (int, bool) {
	j, ok := m.index[NormalizeSymptom(symptom)]
	return j, ok
}

func (m *Matrix) Has(symptom string) bool {
	_, ok := m.Index(symptom)
	return ok
}

func (m *Matrix) Label(i int) string { return m.labels[i] }

func (m *Matrix) At(i, j int) float64 { return m.data.At(i, j) }

// RowView exposes row i without copying. Callers must not modify it.
func (m *Matrix) RowView(i int) mat.Vector { return m.data.RowView(i) }

// Labels returns the distinct condition labels, sorted.
func (m *Matrix) Labels() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, l := range m.labels {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// Encode turns a symptom set into a presence vector of length Width().
// Unknown symptoms are ignored.
func (m *Matrix) Encode(symptoms []string) []float64 {
	vec := make([]float64, len(m.columns))
	for _, s := range symptoms {
		if j, ok := m.Index(s); ok {
			vec[j] = 1
		}
	}
	return vec
}

// Subset returns a new matrix with the given rows, sharing the column layout.
func (m *Matrix) Subset(rows []int) *Matrix {
	data := mat.NewDense(len(rows), len(m.columns), nil)
	labels := make([]string, len(rows))
	for k, i := range rows {
		data.SetRow(k, m.data.RawRowView(i))
		labels[k] = m.labels[i]
	}
	return &Matrix{columns: m.columns, index: m.index, labels: labels, data: data}
}

// Split shuffles rows with a seeded source and holds out ceil(testRatio*Len())
// of them. The same seed always yields the same split.
func (m *Matrix) Split(testRatio float64, seed int64) (train, test *Matrix, err error) {
	if testRatio <= 0 || testRatio >= 1 {
		return nil, nil, fmt.Errorf("test ratio must be in (0, 1), got %v", testRatio)
	}
	n := m.Len()
	nTest := int(math.Ceil(testRatio*float64(n) - 1e-9))
	if nTest < 1 || n-nTest < 1 {
		return nil, nil, fmt.Errorf("cannot split %d rows with test ratio %v", n, testRatio)
	}
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	return m.Subset(perm[nTest:]), m.Subset(perm[:nTest]), nil
}

// CheckSchema reports whether other uses exactly the same columns in the
// same order.
func (m *Matrix) CheckSchema(other *Matrix) error {
	if len(m.columns) != len(other.columns) {
		return fmt.Errorf("%w: %d columns vs %d", ErrSchemaMismatch, len(m.columns), len(other.columns))
	}
	for j := range m.columns {
		if m.columns[j] != other.columns[j] {
			return fmt.Errorf("%w: column %d is %q vs %q", ErrSchemaMismatch, j, m.columns[j], other.columns[j])
		}
	}
	return nil
}
