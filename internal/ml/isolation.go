package ml

import (
	"math"
	"math/rand"
)

const eulerGamma = 0.5772156649015329

type isoNode struct {
	feature int
	split   float64
	left    int
	right   int
	size    int
}

type isoTree struct {
	nodes []isoNode
}

// IsolationForest scores rows by how quickly random axis-aligned cuts
// isolate them. Higher scores are more anomalous.
type IsolationForest struct {
	trees      []isoTree
	sampleSize int
}

// FitIsolationForest grows trees over random subsamples of X. The same seed
// and data always produce the same forest.
func FitIsolationForest(X [][]float64, trees, sampleSize int, seed int64) *IsolationForest {
	if sampleSize <= 0 || sampleSize > len(X) {
		sampleSize = len(X)
	}
	limit := int(math.Ceil(math.Log2(math.Max(float64(sampleSize), 2))))

	rng := rand.New(rand.NewSource(seed))
	f := &IsolationForest{trees: make([]isoTree, trees), sampleSize: sampleSize}
	for t := range f.trees {
		sample := rng.Perm(len(X))[:sampleSize]
		b := &isoBuilder{X: X, rng: rng, limit: limit}
		b.build(sample, 0)
		f.trees[t] = isoTree{nodes: b.nodes}
	}
	return f
}

type isoBuilder struct {
	X     [][]float64
	rng   *rand.Rand
	limit int
	nodes []isoNode
}

func (b *isoBuilder) build(idx []int, depth int) int {
	pos := len(b.nodes)
	b.nodes = append(b.nodes, isoNode{left: -1, right: -1, size: len(idx)})
	if depth >= b.limit || len(idx) <= 1 {
		return pos
	}

	// only features that still vary can separate the rows
	var candidates []int
	var mins, maxs []float64
	for f := range b.X[idx[0]] {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, i := range idx {
			v := b.X[i][f]
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		if hi > lo {
			candidates = append(candidates, f)
			mins = append(mins, lo)
			maxs = append(maxs, hi)
		}
	}
	if len(candidates) == 0 {
		return pos
	}
	c := b.rng.Intn(len(candidates))
	feature := candidates[c]
	split := mins[c] + b.rng.Float64()*(maxs[c]-mins[c])

	k := 0
	for i, row := range idx {
		if b.X[row][feature] < split {
			idx[k], idx[i] = idx[i], idx[k]
			k++
		}
	}
	left := b.build(idx[:k], depth+1)
	right := b.build(idx[k:], depth+1)

	b.nodes[pos].feature = feature
	b.nodes[pos].split = split
	b.nodes[pos].left = left
	b.nodes[pos].right = right
	return pos
}

func (t *isoTree) pathLength(x []float64) float64 {
	i, depth := 0, 0
	for {
		n := t.nodes[i]
		if n.left < 0 {
			return float64(depth) + averagePathLength(n.size)
		}
		if x[n.feature] < n.split {
			i = n.left
		} else {
			i = n.right
		}
		depth++
	}
}

// Score returns the anomaly score of x in (0, 1].
func (f *IsolationForest) Score(x []float64) float64 {
	var sum float64
	for i := range f.trees {
		sum += f.trees[i].pathLength(x)
	}
	mean := sum / float64(len(f.trees))
	c := averagePathLength(f.sampleSize)
	if c == 0 {
		return 1
	}
	return math.Pow(2, -mean/c)
}

// averagePathLength is the expected path length of an unsuccessful search in
// a binary search tree of n nodes.
func averagePathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	default:
		m := float64(n)
		return 2*(math.Log(m-1)+eulerGamma) - 2*(m-1)/m
	}
}
