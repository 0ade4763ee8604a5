package model

import (
	"context"
	"math/rand/v2"
	"runtime"

	"github.com/absmach/masklab/pkg/frame"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

var (
	_ Classifier  = (*RandomForest)(nil)
	_ Importancer = (*RandomForest)(nil)
	_ Describer   = (*RandomForest)(nil)
)

// RandomForest averages the class probabilities of bagged CART trees. It
// rejects missing values.
type RandomForest struct {
	Meta
	Trees       [][]Node
	Importances []float64
	OOBScore    *float64
}

func fitForest(ctx context.Context, p ForestParams, x frame.Frame, y []string) (*RandomForest, error) {
	n, nf := x.NumRows(), x.NumCols()
	maxFeatures, err := resolveMaxFeatures(p.MaxFeatures, nf)
	if err != nil {
		return nil, err
	}
	samples := n
	if p.Bootstrap {
		if samples, err = resolveMaxSamples(p.MaxSamples, n); err != nil {
			return nil, err
		}
	}
	classes, target := encodeLabels(y)
	cfg := cartConfig{
		criterion:       p.Criterion,
		maxDepth:        depth(p.MaxDepth),
		minSamplesSplit: p.MinSamplesSplit,
		minSamplesLeaf:  p.MinSamplesLeaf,
		maxFeatures:     maxFeatures,
	}

	// Per-tree seeds are drawn up front so the result does not depend on
	// scheduling.
	master := rand.New(rand.NewPCG(uint64(p.RandomState), uint64(p.RandomState)))
	seeds := make([]uint64, p.NEstimators)
	for i := range seeds {
		seeds[i] = master.Uint64()
	}

	trees := make([][]Node, p.NEstimators)
	gains := make([][]float64, p.NEstimators)
	inBag := make([][]bool, p.NEstimators)

	g, ctx := errgroup.WithContext(ctx)
	workers := p.NJobs
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g.SetLimit(workers)
	for t := range trees {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewPCG(seeds[t], seeds[t]))
			idx := seq(n)
			if p.Bootstrap {
				idx = make([]int, samples)
				inBag[t] = make([]bool, n)
				for i := range idx {
					idx[i] = rng.IntN(n)
					inBag[t][idx[i]] = true
				}
			}
			trees[t], gains[t] = buildCART(x.Rows, target, len(classes), idx, cfg, rng)

			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	importances := make([]float64, nf)
	for _, gain := range gains {
		floats.Add(importances, proportions(gain))
	}

	f := &RandomForest{
		Meta:        Meta{FeatureNames: append([]string(nil), x.Columns...), ClassNames: classes},
		Trees:       trees,
		Importances: proportions(importances),
	}
	if p.OOBScore {
		score := f.oobScore(x, target, inBag)
		f.OOBScore = &score
	}

	return f, nil
}

// oobScore scores each training row using only the trees that did not see it.
func (f *RandomForest) oobScore(x frame.Frame, target []int, inBag [][]bool) float64 {
	var correct, scored int
	probs := make([]float64, len(f.ClassNames))
	for i, row := range x.Rows {
		clear(probs)
		votes := 0
		for t, nodes := range f.Trees {
			if inBag[t][i] {
				continue
			}
			floats.Add(probs, findLeaf(nodes, row).Value)
			votes++
		}
		if votes == 0 {
			continue
		}
		scored++
		if argmax(probs) == target[i] {
			correct++
		}
	}
	if scored == 0 {
		return 0
	}

	return float64(correct) / float64(scored)
}

func (f *RandomForest) Kind() Kind {
	return Forest
}

func (f *RandomForest) Predict(x frame.Frame) ([]string, error) {
	if err := f.check(x, false); err != nil {
		return nil, err
	}
	out := make([]string, x.NumRows())
	probs := make([]float64, len(f.ClassNames))
	for i, row := range x.Rows {
		clear(probs)
		for _, nodes := range f.Trees {
			floats.Add(probs, findLeaf(nodes, row).Value)
		}
		out[i] = f.ClassNames[argmax(probs)]
	}

	return out, nil
}

func (f *RandomForest) FeatureImportances() []float64 {
	return f.Importances
}

func (f *RandomForest) Info() map[string]any {
	depthMax, nodes := 0, 0
	for _, t := range f.Trees {
		depthMax = max(depthMax, treeDepth(t, 0))
		nodes += len(t)
	}
	info := map[string]any{
		"n_estimators": len(f.Trees),
		"n_nodes":      nodes,
		"max_depth":    depthMax,
		"n_features":   len(f.FeatureNames),
		"n_classes":    len(f.ClassNames),
	}
	if f.OOBScore != nil {
		info["oob_score"] = *f.OOBScore
	}

	return info
}
