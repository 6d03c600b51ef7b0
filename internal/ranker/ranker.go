// Package ranker orders symptoms by how often they co-occur with a primary
// symptom in the feature matrix.
package ranker

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"symptom-checker/internal/dataset"
)

type Candidate struct {
	Symptom string `json:"symptom"`
	Count   int    `json:"count"`
}

type Ranker struct {
	m     *dataset.Matrix
	limit int
}

func New(m *dataset.Matrix, limit int) (*Ranker, error) {
	if m == nil {
		return nil, fmt.Errorf("ranker: nil matrix")
	}
	if limit < 1 {
		return nil, fmt.Errorf("ranker: limit must be >= 1, got %d", limit)
	}
	return &Ranker{m: m, limit: limit}, nil
}

// Rank sums every column over the rows where primary is present and returns
// the columns other than primary, highest count first. Columns that never
// co-occur count 0 and still fill the list. Equal counts keep column order.
// The result holds at most limit entries and is empty for an unknown primary
// or one that never occurs.
func (r *Ranker) Rank(primary string) []Candidate {
	j, ok := r.m.Index(primary)
	if !ok {
		return nil
	}
	sums := mat.NewVecDense(r.m.Width(), nil)
	matched := 0
	for i := 0; i < r.m.Len(); i++ {
		if r.m.At(i, j) < 0.5 {
			continue
		}
		sums.AddVec(sums, r.m.RowView(i))
		matched++
	}
	if matched == 0 {
		return nil
	}
	var out []Candidate
	for k := 0; k < sums.Len(); k++ {
		if k == j {
			continue
		}
		out = append(out, Candidate{Symptom: r.m.Column(k), Count: int(sums.AtVec(k))})
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Count > out[b].Count })
	if len(out) > r.limit {
		out = out[:r.limit]
	}
	return out
}

// Related is Rank without the counts.
func (r *Ranker) Related(primary string) []string {
	ranked := r.Rank(primary)
	out := make([]string, len(ranked))
	for i, c := range ranked {
		out[i] = c.Symptom
	}
	return out
}
