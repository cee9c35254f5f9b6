package demand

import (
	"errors"
	"math/rand"
	"sort"
)

// TrainParams configures gradient boosting with squared loss.
type TrainParams struct {
	Trees        int     `json:"trees"`
	LearningRate float64 `json:"learning_rate"`
	MaxDepth     int     `json:"max_depth"`
	MinLeaf      int     `json:"min_leaf"`
	Subsample    float64 `json:"subsample"`
	Colsample    float64 `json:"colsample"`
	Seed         int64   `json:"seed"`
}

func (p TrainParams) normalized() TrainParams {
	if p.Trees <= 0 {
		p.Trees = 200
	}
	if p.LearningRate <= 0 {
		p.LearningRate = 0.05
	}
	if p.MaxDepth <= 0 {
		p.MaxDepth = 4
	}
	if p.MinLeaf <= 0 {
		p.MinLeaf = 5
	}
	if p.Subsample <= 0 || p.Subsample > 1 {
		p.Subsample = 0.8
	}
	if p.Colsample <= 0 || p.Colsample > 1 {
		p.Colsample = 0.8
	}
	return p
}

// Node is a flattened tree node. Leaves have Feature == -1.
type Node struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t,omitempty"`
	Left      int     `json:"l,omitempty"`
	Right     int     `json:"r,omitempty"`
	Value     float64 `json:"v,omitempty"`
}

type Tree struct {
	Nodes []Node `json:"nodes"`
}

func (t Tree) predict(row []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Feature < 0 {
			return n.Value
		}
		if row[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Model is a fitted ensemble: Base + LearningRate * sum(tree outputs).
type Model struct {
	Features     []string    `json:"features"`
	Base         float64     `json:"base"`
	LearningRate float64     `json:"learning_rate"`
	Trees        []Tree      `json:"trees"`
	Params       TrainParams `json:"params"`
}

// Predict returns the raw ensemble output, which may be negative.
func (m *Model) Predict(row []float64) float64 {
	out := m.Base
	for _, t := range m.Trees {
		out += m.LearningRate * t.predict(row)
	}
	return out
}

// Train fits a boosted ensemble on x (rows) against y.
func Train(x [][]float64, y []float64, params TrainParams) (*Model, error) {
	if len(x) == 0 {
		return nil, ErrEmptyTrainingSet
	}
	if len(x) != len(y) {
		return nil, errors.New("feature and target lengths differ")
	}
	params = params.normalized()
	nFeatures := len(x[0])
	rng := rand.New(rand.NewSource(params.Seed))

	base := 0.0
	for _, v := range y {
		base += v
	}
	base /= float64(len(y))

	m := &Model{
		Features:     append([]string(nil), FeatureNames...),
		Base:         base,
		LearningRate: params.LearningRate,
		Params:       params,
	}

	pred := make([]float64, len(y))
	for i := range pred {
		pred[i] = base
	}
	resid := make([]float64, len(y))

	all := make([]int, len(y))
	for i := range all {
		all[i] = i
	}
	cols := make([]int, nFeatures)
	for i := range cols {
		cols[i] = i
	}

	for t := 0; t < params.Trees; t++ {
		for i := range y {
			resid[i] = y[i] - pred[i]
		}
		rows := sample(rng, all, params.Subsample)
		features := sample(rng, cols, params.Colsample)
		sort.Ints(features)

		b := &treeBuilder{x: x, y: resid, features: features, maxDepth: params.MaxDepth, minLeaf: params.MinLeaf}
		b.grow(rows, 0)
		tree := Tree{Nodes: b.nodes}
		m.Trees = append(m.Trees, tree)

		for i := range y {
			pred[i] += params.LearningRate * tree.predict(x[i])
		}
	}
	return m, nil
}

// sample draws ceil(frac*len(src)) distinct elements without replacement.
func sample(rng *rand.Rand, src []int, frac float64) []int {
	k := int(frac*float64(len(src)) + 0.999999)
	if k >= len(src) {
		return append([]int(nil), src...)
	}
	if k < 1 {
		k = 1
	}
	perm := rng.Perm(len(src))
	out := make([]int, k)
	for i := 0; i < k; i++ {
		out[i] = src[perm[i]]
	}
	return out
}

type treeBuilder struct {
	x        [][]float64
	y        []float64
	features []int
	maxDepth int
	minLeaf  int
	nodes    []Node
}

func (b *treeBuilder) leaf(rows []int) int {
	sum := 0.0
	for _, r := range rows {
		sum += b.y[r]
	}
	value := 0.0
	if len(rows) > 0 {
		value = sum / float64(len(rows))
	}
	b.nodes = append(b.nodes, Node{Feature: -1, Value: value})
	return len(b.nodes) - 1
}

func (b *treeBuilder) grow(rows []int, depth int) int {
	if depth >= b.maxDepth || len(rows) < 2*b.minLeaf {
		return b.leaf(rows)
	}
	feature, threshold, ok := b.bestSplit(rows)
	if !ok {
		return b.leaf(rows)
	}

	var left, right []int
	for _, r := range rows {
		if b.x[r][feature] <= threshold {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}

	idx := len(b.nodes)
	b.nodes = append(b.nodes, Node{Feature: feature, Threshold: threshold})
	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[idx].Left = l
	b.nodes[idx].Right = r
	return idx
}

// bestSplit maximizes the reduction in squared error over the sampled features.
func (b *treeBuilder) bestSplit(rows []int) (int, float64, bool) {
	n := len(rows)
	total := 0.0
	for _, r := range rows {
		total += b.y[r]
	}

	bestGain := 1e-12
	bestFeature, bestThreshold, found := -1, 0.0, false
	order := make([]int, n)

	for _, f := range b.features {
		copy(order, rows)
		sort.Slice(order, func(i, j int) bool { return b.x[order[i]][f] < b.x[order[j]][f] })

		leftSum := 0.0
		for i := 0; i < n-1; i++ {
			leftSum += b.y[order[i]]
			nl := i + 1
			nr := n - nl
			if nl < b.minLeaf || nr < b.minLeaf {
				continue
			}
			cur, next := b.x[order[i]][f], b.x[order[i+1]][f]
			if cur == next {
				continue
			}
			rightSum := total - leftSum
			// SSE reduction up to a constant: sum_l^2/n_l + sum_r^2/n_r - total^2/n.
			gain := leftSum*leftSum/float64(nl) + rightSum*rightSum/float64(nr) - total*total/float64(n)
			if gain > bestGain {
				bestGain = gain
				bestFeature = f
				bestThreshold = (cur + next) / 2
				found = true
			}
		}
	}
	return bestFeature, bestThreshold, found
}
