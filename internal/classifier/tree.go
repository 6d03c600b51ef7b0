// Package classifier trains a CART decision tree over 0/1 symptom vectors.
package classifier

import (
	"fmt"

	"symptom-checker/internal/dataset"
)

type Options struct {
	// MaxDepth limits the tree height, 0 means unlimited.
	MaxDepth int
	// MinSamplesSplit is the smallest node that may still be split. Default 2.
	MinSamplesSplit int
}

type node struct {
	feature int // -1 for leaves
	label   int
	absent  *node
	present *node
}

// Tree is immutable once trained and safe for concurrent Predict calls.
type Tree struct {
	root   *node
	width  int
	labels []string
	depth  int
	leaves int
}

// Train grows a tree on m. Splits minimize weighted Gini impurity, ties go to
// the lowest column index; a leaf carries the majority label of its rows with
// ties going to the lexicographically smallest label.
func Train(m *dataset.Matrix, opts Options) (*Tree, error) {
	if m == nil || m.Len() == 0 {
		return nil, fmt.Errorf("train: empty matrix")
	}
	if opts.MinSamplesSplit < 2 {
		opts.MinSamplesSplit = 2
	}
	labels := m.Labels()
	ids := make(map[string]int, len(labels))
	for i, l := range labels {
		ids[l] = i
	}
	b := &builder{
		m:      m,
		opts:   opts,
		y:      make([]int, m.Len()),
		nClass: len(labels),
	}
	rows := make([]int, m.Len())
	for i := range rows {
		rows[i] = i
		b.y[i] = ids[m.Label(i)]
	}
	t := &Tree{width: m.Width(), labels: labels}
	t.root = b.grow(rows, 0, t)
	return t, nil
}

func (t *Tree) Width() int { return t.width }

func (t *Tree) Depth() int { return t.depth }

func (t *Tree) Leaves() int { return t.leaves }

// Predict walks the tree for vec. A vector of the wrong length is a schema
// error and is never padded or truncated.
func (t *Tree) Predict(vec []float64) (string, error) {
	if len(vec) != t.width {
		return "", fmt.Errorf("%w: vector has %d features, tree expects %d",
			dataset.ErrSchemaMismatch, len(vec), t.width)
	}
	n := t.root
	for n.feature >= 0 {
		if vec[n.feature] >= 0.5 {
			n = n.present
		} else {
			n = n.absent
		}
	}
	return t.labels[n.label], nil
}

// Accuracy is the share of rows in m the tree labels correctly.
func (t *Tree) Accuracy(m *dataset.Matrix) (float64, error) {
	if m.Width() != t.width {
		return 0, fmt.Errorf("%w: matrix has %d columns, tree expects %d",
			dataset.ErrSchemaMismatch, m.Width(), t.width)
	}
	if m.Len() == 0 {
		return 0, nil
	}
	vec := make([]float64, t.width)
	hits := 0
	for i := 0; i < m.Len(); i++ {
		for j := range vec {
			vec[j] = m.At(i, j)
		}
		got, err := t.Predict(vec)
		if err != nil {
			return 0, err
		}
		if got == m.Label(i) {
			hits++
		}
	}
	return float64(hits) / float64(m.Len()), nil
}

type builder struct {
	m      *dataset.Matrix
	opts   Options
	y      []int
	nClass int
}

func (b *builder) grow(rows []int, depth int, t *Tree) *node {
	if depth > t.depth {
		t.depth = depth
	}
	counts := make([]int, b.nClass)
	for _, r := range rows {
		counts[b.y[r]]++
	}
	leaf := &node{feature: -1, label: majority(counts)}
	if len(rows) < b.opts.MinSamplesSplit || isPure(counts) ||
		(b.opts.MaxDepth > 0 && depth >= b.opts.MaxDepth) {
		t.leaves++
		return leaf
	}

	feature := b.bestSplit(rows, counts)
	if feature < 0 {
		t.leaves++
		return leaf
	}
	var absent, present []int
	for _, r := range rows {
		if b.m.At(r, feature) >= 0.5 {
			present = append(present, r)
		} else {
			absent = append(absent, r)
		}
	}
	return &node{
		feature: feature,
		label:   leaf.label,
		absent:  b.grow(absent, depth+1, t),
		present: b.grow(present, depth+1, t),
	}
}

// bestSplit returns the column with the lowest weighted Gini impurity that
// sends rows both ways, or -1 when no column separates them.
func (b *builder) bestSplit(rows []int, total []int) int {
	best, bestScore := -1, 0.0
	right := make([]int, b.nClass)
	left := make([]int, b.nClass)
	for j := 0; j < b.m.Width(); j++ {
		for k := range right {
			right[k] = 0
		}
		nRight := 0
		for _, r := range rows {
			if b.m.At(r, j) >= 0.5 {
				right[b.y[r]]++
				nRight++
			}
		}
		nLeft := len(rows) - nRight
		if nRight == 0 || nLeft == 0 {
			continue
		}
		for k := range left {
			left[k] = total[k] - right[k]
		}
		score := (float64(nLeft)*gini(left, nLeft) + float64(nRight)*gini(right, nRight)) / float64(len(rows))
		if best < 0 || score < bestScore {
			best, bestScore = j, score
		}
	}
	return best
}

func gini(counts []int, n int) float64 {
	g := 1.0
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / float64(n)
		g -= p * p
	}
	return g
}

// majority relies on labels being sorted, so the lowest index wins ties.
func majority(counts []int) int {
	best := 0
	for k, c := range counts {
		if c > counts[best] {
			best = k
		}
	}
	return best
}

func isPure(counts []int) bool {
	seen := 0
	for _, c := range counts {
		if c > 0 {
			seen++
		}
	}
	return seen <= 1
}
