package model

import (
	"math"
	"math/rand/v2"
	"slices"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Node is one entry of a flattened binary tree. Leaves have Feature == -1.
// Rows go left when their value is <= Threshold; NaN follows MissingLeft.
type Node struct {
	Feature     int
	Threshold   float64
	Left        int
	Right       int
	MissingLeft bool
	Value       []float64
	Samples     int
}

func (n Node) leaf() bool {
	return n.Feature < 0
}

func findLeaf(nodes []Node, row []float64) *Node {
	i := 0
	for !nodes[i].leaf() {
		n := &nodes[i]
		v := row[n.Feature]
		switch {
		case math.IsNaN(v):
			if n.MissingLeft {
				i = n.Left
			} else {
				i = n.Right
			}
		case v <= n.Threshold:
			i = n.Left
		default:
			i = n.Right
		}
	}

	return &nodes[i]
}

func treeDepth(nodes []Node, i int) int {
	if nodes[i].leaf() {
		return 0
	}

	return 1 + max(treeDepth(nodes, nodes[i].Left), treeDepth(nodes, nodes[i].Right))
}

func countLeaves(nodes []Node) int {
	n := 0
	for _, node := range nodes {
		if node.leaf() {
			n++
		}
	}

	return n
}

type cartConfig struct {
	criterion       string
	random          bool
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int
}

// cartBuilder grows a classification tree depth first. Leaf values are class
// probabilities over all classes of the training target.
type cartBuilder struct {
	cfg     cartConfig
	x       [][]float64
	y       []int
	classes int
	rng     *rand.Rand
	nodes   []Node
	gain    []float64
}

type cartSplit struct {
	feature   int
	threshold float64
	score     float64
}

func buildCART(x [][]float64, y []int, classes int, idx []int, cfg cartConfig, rng *rand.Rand) ([]Node, []float64) {
	nf := 0
	if len(x) > 0 {
		nf = len(x[0])
	}
	if cfg.maxFeatures <= 0 || cfg.maxFeatures > nf {
		cfg.maxFeatures = nf
	}
	b := &cartBuilder{
		cfg:     cfg,
		x:       x,
		y:       y,
		classes: classes,
		rng:     rng,
		gain:    make([]float64, nf),
	}
	b.build(idx, 0)

	return b.nodes, b.gain
}

func (b *cartBuilder) build(idx []int, depth int) int {
	counts := b.counts(idx)
	id := len(b.nodes)
	b.nodes = append(b.nodes, Node{Feature: -1, Value: proportions(counts), Samples: len(idx)})

	n := len(idx)
	imp := b.impurity(counts, n)
	if (b.cfg.maxDepth > 0 && depth >= b.cfg.maxDepth) ||
		n < b.cfg.minSamplesSplit || n < 2*b.cfg.minSamplesLeaf || imp <= 0 {
		return id
	}

	s, ok := b.bestSplit(idx, counts)
	if !ok {
		return id
	}

	left, right := make([]int, 0, n), make([]int, 0, n)
	for _, i := range idx {
		if b.x[i][s.feature] <= s.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	// s.score is minus the weighted child impurity.
	b.gain[s.feature] += float64(n)*imp + s.score

	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	b.nodes[id].Feature = s.feature
	b.nodes[id].Threshold = s.threshold
	b.nodes[id].Left = l
	b.nodes[id].Right = r

	return id
}

func (b *cartBuilder) features() []int {
	nf := len(b.gain)
	if b.cfg.maxFeatures >= nf {
		return seq(nf)
	}

	return b.rng.Perm(nf)[:b.cfg.maxFeatures]
}

func (b *cartBuilder) bestSplit(idx []int, counts []float64) (cartSplit, bool) {
	n := len(idx)
	best := cartSplit{score: math.Inf(-1)}
	found := false
	sorted := make([]int, n)
	left := make([]float64, b.classes)
	right := make([]float64, b.classes)

	for _, f := range b.features() {
		copy(sorted, idx)
		sort.Slice(sorted, func(i, j int) bool {
			return b.x[sorted[i]][f] < b.x[sorted[j]][f]
		})
		lo, hi := b.x[sorted[0]][f], b.x[sorted[n-1]][f]
		if hi <= lo {
			continue
		}

		var target float64
		if b.cfg.random {
			target = lo + b.rng.Float64()*(hi-lo)
		}

		clear(left)
		copy(right, counts)
		for i := 0; i < n-1; i++ {
			c := b.y[sorted[i]]
			left[c]++
			right[c]--

			v, next := b.x[sorted[i]][f], b.x[sorted[i+1]][f]
			if v == next {
				continue
			}
			threshold := v + (next-v)/2
			if threshold >= next {
				threshold = v
			}
			if b.cfg.random && !(v <= target && target < next) {
				continue
			}
			if b.cfg.random {
				threshold = target
			}

			nl, nr := i+1, n-i-1
			if nl < b.cfg.minSamplesLeaf || nr < b.cfg.minSamplesLeaf {
				continue
			}
			score := -(float64(nl)*b.impurity(left, nl) + float64(nr)*b.impurity(right, nr))
			if score > best.score {
				best = cartSplit{feature: f, threshold: threshold, score: score}
				found = true
			}
		}
	}

	return best, found
}

func (b *cartBuilder) counts(idx []int) []float64 {
	counts := make([]float64, b.classes)
	for _, i := range idx {
		counts[b.y[i]]++
	}

	return counts
}

func (b *cartBuilder) impurity(counts []float64, n int) float64 {
	if n == 0 {
		return 0
	}
	total := float64(n)
	switch b.cfg.criterion {
	case "entropy", "log_loss":
		var h float64
		for _, c := range counts {
			if c > 0 {
				p := c / total
				h -= p * math.Log2(p)
			}
		}

		return h
	default:
		g := 1.0
		for _, c := range counts {
			p := c / total
			g -= p * p
		}

		return g
	}
}

func proportions(counts []float64) []float64 {
	out := slices.Clone(counts)
	if total := floats.Sum(out); total > 0 {
		floats.Scale(1/total, out)
	}

	return out
}
