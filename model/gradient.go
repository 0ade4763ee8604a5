package model

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/absmach/masklab/pkg/frame"
)

var (
	_ Classifier  = (*GradientBoosting)(nil)
	_ Importancer = (*GradientBoosting)(nil)
	_ Describer   = (*GradientBoosting)(nil)
)

// GradientBoosting is a multinomial deviance booster over exact-split
// regression trees. It rejects missing values.
type GradientBoosting struct {
	Meta
	Init        []float64
	Trees       [][][]Node
	Importances []float64
}

func fitGradient(ctx context.Context, p GradientParams, x frame.Frame, y []string) (*GradientBoosting, error) {
	classes, target := encodeLabels(y)
	k := len(classes)
	if k < 2 {
		return nil, fmt.Errorf("%w: boosting needs at least two classes", ErrInvalidTarget)
	}
	n := x.NumRows()
	rng := rand.New(rand.NewPCG(uint64(p.RandomState), uint64(p.RandomState)))

	mapper := newBinMapper(x.Rows, x.NumCols(), 0)
	residual := make([]float64, n)
	g := &grower{
		cfg: growConfig{
			maxDepth:        depth(p.MaxDepth),
			minSamplesSplit: p.MinSamplesSplit,
			minSamplesLeaf:  p.MinSamplesLeaf,
		},
		bins:  mapper.transform(x.Rows),
		edges: mapper.edges,
		grad:  make([]float64, n),
		hess:  make([]float64, n),
		gain:  make([]float64, x.NumCols()),
		leafValue: func(idx []int) float64 {
			var num, den float64
			for _, i := range idx {
				r := residual[i]
				num += r
				den += math.Abs(r) * (1 - math.Abs(r))
			}
			if den < 1e-150 {
				return 0
			}

			return p.LearningRate * num / den * float64(k-1) / float64(k)
		},
	}
	for i := range g.hess {
		g.hess[i] = 1
	}

	m := &GradientBoosting{
		Meta: Meta{FeatureNames: append([]string(nil), x.Columns...), ClassNames: classes},
		Init: priorScores(target, k),
	}
	scores := make([][]float64, n)
	for i := range scores {
		scores[i] = append([]float64(nil), m.Init...)
	}
	probs := make([][]float64, n)
	for i := range probs {
		probs[i] = make([]float64, k)
	}

	sampled := int(math.Round(p.Subsample * float64(n)))
	for range p.NEstimators {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for i := range scores {
			softmax(scores[i], probs[i])
		}
		idx := seq(n)
		if sampled < n {
			idx = rng.Perm(n)[:max(1, sampled)]
		}

		iter := make([][]Node, k)
		for c := range k {
			for i := range residual {
				yk := 0.0
				if target[i] == c {
					yk = 1
				}
				residual[i] = yk - probs[i][c]
				g.grad[i] = -residual[i]
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

func (m *GradientBoosting) Kind() Kind {
	return Gradient
}

func (m *GradientBoosting) Predict(x frame.Frame) ([]string, error) {
	if err := m.check(x, false); err != nil {
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

func (m *GradientBoosting) FeatureImportances() []float64 {
	return m.Importances
}

func (m *GradientBoosting) Info() map[string]any {
	return map[string]any{
		"n_estimators": len(m.Trees),
		"n_trees":      len(m.Trees) * len(m.ClassNames),
		"n_features":   len(m.FeatureNames),
		"n_classes":    len(m.ClassNames),
	}
}
