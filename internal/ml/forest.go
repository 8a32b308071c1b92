package ml

import (
	"cmp"
	"math"
	"math/rand"
	"runtime"
	"slices"
	"sync"
)

// ForestParams configures random forest training.
type ForestParams struct {
	Trees    int
	MaxDepth int
	MinLeaf  int
	Seed     int64
}

// treeNode is one node of a flattened regression tree. Leaves have Left == -1.
type treeNode struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t"`
	Left      int     `json:"l"`
	Right     int     `json:"r"`
	Value     float64 `json:"v"`
}

// RegressionTree is a CART tree stored as a node array rooted at index 0.
type RegressionTree struct {
	Nodes []treeNode `json:"nodes"`
}

// Predict walks the tree for x.
func (t *RegressionTree) Predict(x []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Left < 0 {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Forest is a bagged ensemble of regression trees.
type Forest struct {
	Trees []RegressionTree `json:"trees"`
}

// Predict averages the tree estimates for x.
func (f *Forest) Predict(x []float64) float64 {
	if f == nil || len(f.Trees) == 0 {
		return math.NaN()
	}
	var sum float64
	for i := range f.Trees {
		sum += f.Trees[i].Predict(x)
	}
	return sum / float64(len(f.Trees))
}

// FitForest trains a random forest on X, y. Each tree draws its own bootstrap
// sample from a seed derived from p.Seed, so the result does not depend on
// how the trees are scheduled.
func FitForest(X [][]float64, y []float64, p ForestParams) *Forest {
	if p.Trees <= 0 {
		p.Trees = 1
	}
	if p.MinLeaf <= 0 {
		p.MinLeaf = 1
	}
	f := &Forest{Trees: make([]RegressionTree, p.Trees)}

	workers := runtime.GOMAXPROCS(0)
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for t := 0; t < p.Trees; t++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(t int) {
			defer wg.Done()
			defer func() { <-sem }()

			rng := rand.New(rand.NewSource(p.Seed + int64(t)))
			sample := make([]int, len(y))
			for i := range sample {
				sample[i] = rng.Intn(len(y))
			}
			b := &treeBuilder{X: X, y: y, maxDepth: p.MaxDepth, minLeaf: p.MinLeaf}
			b.build(sample, 0)
			f.Trees[t] = RegressionTree{Nodes: b.nodes}
		}(t)
	}
	wg.Wait()
	return f
}

type treeBuilder struct {
	X        [][]float64
	y        []float64
	maxDepth int
	minLeaf  int
	nodes    []treeNode
	order    []int
}

func (b *treeBuilder) build(idx []int, depth int) int {
	pos := len(b.nodes)
	b.nodes = append(b.nodes, treeNode{Left: -1, Right: -1, Value: b.mean(idx)})

	if (b.maxDepth > 0 && depth >= b.maxDepth) || len(idx) < 2*b.minLeaf {
		return pos
	}
	feature, threshold, ok := b.bestSplit(idx)
	if !ok {
		return pos
	}

	// partition in place: left side holds x <= threshold
	k := 0
	for i, row := range idx {
		if b.X[row][feature] <= threshold {
			idx[k], idx[i] = idx[i], idx[k]
			k++
		}
	}
	left := b.build(idx[:k], depth+1)
	right := b.build(idx[k:], depth+1)

	b.nodes[pos].Feature = feature
	b.nodes[pos].Threshold = threshold
	b.nodes[pos].Left = left
	b.nodes[pos].Right = right
	return pos
}

func (b *treeBuilder) mean(idx []int) float64 {
	var sum float64
	for _, i := range idx {
		sum += b.y[i]
	}
	return sum / float64(len(idx))
}

// bestSplit finds the feature and threshold minimising the children's summed
// squared error, using prefix sums over each feature's sorted order.
func (b *treeBuilder) bestSplit(idx []int) (int, float64, bool) {
	n := len(idx)
	var total, totalSq float64
	for _, i := range idx {
		total += b.y[i]
		totalSq += b.y[i] * b.y[i]
	}
	parentSSE := totalSq - total*total/float64(n)
	if parentSSE <= 1e-12 {
		return 0, 0, false
	}

	bestSSE := parentSSE
	bestFeature, bestThreshold, found := 0, 0.0, false

	for f := range b.X[idx[0]] {
		b.order = append(b.order[:0], idx...)
		slices.SortFunc(b.order, func(a, c int) int { return cmp.Compare(b.X[a][f], b.X[c][f]) })

		var leftSum, leftSq float64
		for k := 0; k < n-1; k++ {
			yi := b.y[b.order[k]]
			leftSum += yi
			leftSq += yi * yi

			nl := k + 1
			nr := n - nl
			if nl < b.minLeaf || nr < b.minLeaf {
				continue
			}
			lo, hi := b.X[b.order[k]][f], b.X[b.order[k+1]][f]
			if lo == hi {
				continue
			}
			rightSum := total - leftSum
			rightSq := totalSq - leftSq
			sse := (leftSq - leftSum*leftSum/float64(nl)) + (rightSq - rightSum*rightSum/float64(nr))
			if sse < bestSSE-1e-12 {
				bestSSE = sse
				bestFeature = f
				bestThreshold = lo + (hi-lo)/2
				if bestThreshold >= hi {
					bestThreshold = lo
				}
				found = true
			}
		}
	}
	return bestFeature, bestThreshold, found
}
