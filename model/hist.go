package model

import (
	"context"
	"fmt"

	"github.com/absmach/masklab/pkg/frame"
)

var (
	_ Classifier  = (*HistGradientBoosting)(nil)
	_ Importancer = (*HistGradientBoosting)(nil)
	_ Describer   = (*HistGradientBoosting)(nil)
)

// HistGradientBoosting boosts trees grown on quantile-binned features. Each
// split learns which side missing values go to, so NaN input is accepted.
type HistGradientBoosting struct {
	Meta
	Init        []float64
	Trees       [][][]Node
	Importances []float64
	Bins        int
}

func fitHist(ctx context.Context, p HistParams, x frame.Frame, y []string) (*HistGradientBoosting, error) {
	classes, target := encodeLabels(y)
	k := len(classes)
	if k < 2 {
		return nil, fmt.Errorf("%w: boosting needs at least two classes", ErrInvalidTarget)
	}
	n := x.NumRows()

	mapper := newBinMapper(x.Rows, x.NumCols(), p.MaxBins)
	maxLeaves := 0
	if p.MaxLeafNodes != nil {
		maxLeaves = *p.MaxLeafNodes
	}
	g := &grower{
		cfg: growConfig{
			maxDepth:        depth(p.MaxDepth),
			maxLeafNodes:    maxLeaves,
			minSamplesSplit: 2,
			minSamplesLeaf:  p.MinSamplesLeaf,
			lambda:          p.L2Regularization,
			minHessian:      1e-3,
		},
		bins:  mapper.transform(x.Rows),
		edges: mapper.edges,
		grad:  make([]float64, n),
		hess:  make([]float64, n),
		gain:  make([]float64, x.NumCols()),
	}
	g.leafValue = func(idx []int) float64 {
		var gs, hs float64
		for _, i := range idx {
			gs += g.grad[i]
			hs += g.hess[i]
		}
		if hs+p.L2Regularization <= 0 {
			return 0
		}

		return -p.LearningRate * gs / (hs + p.L2Regularization)
	}

	m := &HistGradientBoosting{
		Meta: Meta{FeatureNames: append([]string(nil), x.Columns...), ClassNames: classes},
		Init: priorScores(target, k),
		Bins: p.MaxBins,
	}
	scores := make([][]float64, n)
	probs := make([][]float64, n)
	for i := range scores {
		scores[i] = append([]float64(nil), m.Init...)
		probs[i] = make([]float64, k)
	}

	idx := seq(n)
	for range p.MaxIter {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for i := range scores {
			softmax(scores[i], probs[i])
		}

		iter := make([][]Node, k)
		for c := range k {
			for i := range n {
				yk := 0.0
				if target[i] == c {
					yk = 1
				}
				pk := probs[i][c]
				g.grad[i] = pk - yk
				g.hess[i] = max(pk*(1-pk), 1e-16)
			}
			iter[c] = g.grow(idx)
		}
		for i, row := range x.Rows {
			for c, nodes := range iter {
				scores[i][c] += findLeaf(nodes, row).Value[0]
			}
		}
		m.Trees = append(m.Trees, iter)
	}
	m.Importances = proportions(g.gain)

	return m, nil
}

func (m *HistGradientBoosting) Kind() Kind {
	return HistGradient
}

func (m *HistGradientBoosting) Predict(x frame.Frame) ([]string, error) {
	if err := m.check(x, true); err != nil {
		return nil, err
	}
	out := make([]string, x.NumRows())
	scores := make([]float64, len(m.ClassNames))
	for i, row := range x.Rows {
		boostedScores(m.Init, m.Trees, row, scores)
		out[i] = m.ClassNames[argmax(scores)]
	}

	return out, nil
}

func (m *HistGradientBoosting) FeatureImportances() []float64 {
	return m.Importances
}

func (m *HistGradientBoosting) Info() map[string]any {
	leaves := 0
	for _, iter := range m.Trees {
		for _, nodes := range iter {
			leaves += countLeaves(nodes)
		}
	}

	return map[string]any{
		"n_iter":     len(m.Trees),
		"n_leaves":   leaves,
		"max_bins":   m.Bins,
		"n_features": len(m.FeatureNames),
		"n_classes":  len(m.ClassNames),
	}
}
