package model

import (
	"math/rand/v2"

	"github.com/absmach/masklab/pkg/frame"
)

var (
	_ Classifier  = (*DecisionTree)(nil)
	_ Importancer = (*DecisionTree)(nil)
	_ Describer   = (*DecisionTree)(nil)
)

// DecisionTree is a single CART classifier. It rejects missing values.
type DecisionTree struct {
	Meta
	Nodes       []Node
	Importances []float64
}

func fitTree(p TreeParams, x frame.Frame, y []string) (*DecisionTree, error) {
	maxFeatures, err := resolveMaxFeatures(p.MaxFeatures, x.NumCols())
	if err != nil {
		return nil, err
	}
	classes, target := encodeLabels(y)
	rng := rand.New(rand.NewPCG(uint64(p.RandomState), uint64(p.RandomState)))

	nodes, gain := buildCART(x.Rows, target, len(classes), seq(x.NumRows()), cartConfig{
		criterion:       p.Criterion,
		random:          p.Splitter == "random",
		maxDepth:        depth(p.MaxDepth),
		minSamplesSplit: p.MinSamplesSplit,
		minSamplesLeaf:  p.MinSamplesLeaf,
		maxFeatures:     maxFeatures,
	}, rng)

	return &DecisionTree{
		Meta:        Meta{FeatureNames: append([]string(nil), x.Columns...), ClassNames: classes},
		Nodes:       nodes,
		Importances: proportions(gain),
	}, nil
}

func (t *DecisionTree) Kind() Kind {
	return Tree
}

func (t *DecisionTree) Predict(x frame.Frame) ([]string, error) {
	if err := t.check(x, false); err != nil {
		return nil, err
	}
	out := make([]string, x.NumRows())
	for i, row := range x.Rows {
		out[i] = t.ClassNames[argmax(findLeaf(t.Nodes, row).Value)]
	}

	return out, nil
}

func (t *DecisionTree) FeatureImportances() []float64 {
	return t.Importances
}

func (t *DecisionTree) Info() map[string]any {
	return map[string]any{
		"n_nodes":    len(t.Nodes),
		"n_leaves":   countLeaves(t.Nodes),
		"max_depth":  treeDepth(t.Nodes, 0),
		"n_features": len(t.FeatureNames),
		"n_classes":  len(t.ClassNames),
	}
}
