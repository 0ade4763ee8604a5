package model

import (
	"math"
	"slices"
	"sort"

	"gonum.org/v1/gonum/stat"
)

const missingBin int32 = -1

// binMapper discretizes each feature by a sorted list of edges: bin b holds
// values in (edges[b-1], edges[b]]. With maxBins <= 0 every distinct value
// gets its own bin, which makes splits exact.
type binMapper struct {
	edges [][]float64
}

func newBinMapper(x [][]float64, nf, maxBins int) binMapper {
	edges := make([][]float64, nf)
	values := make([]float64, 0, len(x))
	for f := range nf {
		values = values[:0]
		for _, row := range x {
			if !math.IsNaN(row[f]) {
				values = append(values, row[f])
			}
		}
		sort.Float64s(values)
		distinct := slices.Compact(slices.Clone(values))

		var e []float64
		switch {
		case len(distinct) < 2:
		case maxBins <= 0 || len(distinct) <= maxBins:
			e = make([]float64, len(distinct)-1)
			for i := range e {
				e[i] = distinct[i] + (distinct[i+1]-distinct[i])/2
			}
		default:
			for i := 1; i < maxBins; i++ {
				e = append(e, stat.Quantile(float64(i)/float64(maxBins), stat.Empirical, values, nil))
			}
			e = slices.Compact(e)
			if e[len(e)-1] >= distinct[len(distinct)-1] {
				e = e[:len(e)-1]
			}
		}
		edges[f] = e
	}

	return binMapper{edges: edges}
}

func (m binMapper) transform(x [][]float64) [][]int32 {
	out := make([][]int32, len(x))
	for i, row := range x {
		bins := make([]int32, len(row))
		for f, v := range row {
			if math.IsNaN(v) {
				bins[f] = missingBin

				continue
			}
			bins[f] = int32(sort.SearchFloat64s(m.edges[f], v))
		}
		out[i] = bins
	}

	return out
}

type growConfig struct {
	maxDepth        int
	maxLeafNodes    int
	minSamplesSplit int
	minSamplesLeaf  int
	lambda          float64
	minHessian      float64
}

// grower fits one regression tree on gradient statistics, best split first.
// Split gain is the usual second-order score; leaf values come from
// leafValue so boosting variants can apply their own update rule.
type grower struct {
	cfg       growConfig
	bins      [][]int32
	edges     [][]float64
	grad      []float64
	hess      []float64
	leafValue func(idx []int) float64
	nodes     []Node
	gain      []float64
}

type gradSplit struct {
	feature     int
	bin         int32
	missingLeft bool
	gain        float64
}

type candidate struct {
	node  int
	idx   []int
	depth int
	split gradSplit
	ok    bool
}

func (g *grower) grow(idx []int) []Node {
	g.nodes = g.nodes[:0]
	root := g.newLeaf(idx)
	cands := []candidate{g.evaluate(root, idx, 0)}
	leaves := 1

	for len(cands) > 0 {
		if g.cfg.maxLeafNodes > 0 && leaves >= g.cfg.maxLeafNodes {
			break
		}
		best := -1
		for i, c := range cands {
			if c.ok && (best < 0 || c.split.gain > cands[best].split.gain) {
				best = i
			}
		}
		if best < 0 {
			break
		}
		c := cands[best]
		cands = slices.Delete(cands, best, best+1)

		s := c.split
		left, right := make([]int, 0, len(c.idx)), make([]int, 0, len(c.idx))
		for _, i := range c.idx {
			b := g.bins[i][s.feature]
			if (b == missingBin && s.missingLeft) || (b != missingBin && b <= s.bin) {
				left = append(left, i)
			} else {
				right = append(right, i)
			}
		}
		l, r := g.newLeaf(left), g.newLeaf(right)
		g.nodes[c.node].Feature = s.feature
		g.nodes[c.node].Threshold = g.edges[s.feature][s.bin]
		g.nodes[c.node].MissingLeft = s.missingLeft
		g.nodes[c.node].Left = l
		g.nodes[c.node].Right = r
		g.gain[s.feature] += s.gain
		leaves++

		cands = append(cands, g.evaluate(l, left, c.depth+1), g.evaluate(r, right, c.depth+1))
	}

	return slices.Clone(g.nodes)
}

func (g *grower) newLeaf(idx []int) int {
	g.nodes = append(g.nodes, Node{
		Feature: -1,
		Value:   []float64{g.leafValue(idx)},
		Samples: len(idx),
	})

	return len(g.nodes) - 1
}

func (g *grower) evaluate(node int, idx []int, depth int) candidate {
	c := candidate{node: node, idx: idx, depth: depth}
	n := len(idx)
	if (g.cfg.maxDepth > 0 && depth >= g.cfg.maxDepth) ||
		n < g.cfg.minSamplesSplit || n < 2*g.cfg.minSamplesLeaf {
		return c
	}

	var gTotal, hTotal float64
	for _, i := range idx {
		gTotal += g.grad[i]
		hTotal += g.hess[i]
	}
	parent := score(gTotal, hTotal, g.cfg.lambda)

	for f, edges := range g.edges {
		nb := len(edges) + 1
		if nb < 2 {
			continue
		}
		hg := make([]float64, nb)
		hh := make([]float64, nb)
		hc := make([]int, nb)
		var mg, mh float64
		var mc int
		for _, i := range idx {
			b := g.bins[i][f]
			if b == missingBin {
				mg += g.grad[i]
				mh += g.hess[i]
				mc++

				continue
			}
			hg[b] += g.grad[i]
			hh[b] += g.hess[i]
			hc[b]++
		}

		var gl, hl float64
		var cl int
		for b := range nb - 1 {
			gl += hg[b]
			hl += hh[b]
			cl += hc[b]

			for _, missLeft := range missingDirections(mc) {
				lg, lh, lc := gl, hl, cl
				if missLeft {
					lg, lh, lc = lg+mg, lh+mh, lc+mc
				}
				rg, rh, rc := gTotal-lg, hTotal-lh, n-lc
				if lc < g.cfg.minSamplesLeaf || rc < g.cfg.minSamplesLeaf {
					continue
				}
				if lh < g.cfg.minHessian || rh < g.cfg.minHessian {
					continue
				}
				gain := score(lg, lh, g.cfg.lambda) + score(rg, rh, g.cfg.lambda) - parent
				if gain <= 1e-12 || (c.ok && gain <= c.split.gain) {
					continue
				}
				if mc == 0 {
					// Unseen missing values follow the larger child.
					missLeft = lc >= rc
				}
				c.split = gradSplit{feature: f, bin: int32(b), missingLeft: missLeft, gain: gain}
				c.ok = true
			}
		}
	}

	return c
}

func missingDirections(missing int) []bool {
	if missing == 0 {
		return []bool{false}
	}

	return []bool{false, true}
}

func score(g, h, lambda float64) float64 {
	den := h + lambda
	if den <= 0 {
		return 0
	}

	return g * g / den
}

func softmax(scores, out []float64) {
	m := slices.Max(scores)
	var sum float64
	for k, s := range scores {
		out[k] = math.Exp(s - m)
		sum += out[k]
	}
	for k := range out {
		out[k] /= sum
	}
}

// priorScores returns log class frequencies, the boosting starting point.
func priorScores(target []int, classes int) []float64 {
	counts := make([]float64, classes)
	for _, c := range target {
		counts[c]++
	}
	out := make([]float64, classes)
	for k, c := range counts {
		out[k] = math.Log(max(c, 1e-12) / float64(len(target)))
	}

	return out
}

// boostedScores sums the prior and every tree output for one row.
func boostedScores(init []float64, trees [][][]Node, row []float64, out []float64) {
	copy(out, init)
	for _, iter := range trees {
		for k, nodes := range iter {
			out[k] += findLeaf(nodes, row).Value[0]
		}
	}
}
