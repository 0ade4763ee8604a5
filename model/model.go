// Package model holds the classifiers that can be trained, persisted and
// re-scored. Callers depend on the Classifier capability only; the concrete
// estimator behind it is described by its Kind.
package model

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/absmach/masklab/pkg/frame"
)

type Kind string

const (
	Tree         Kind = "tree"
	Forest       Kind = "forest"
	Gradient     Kind = "gradient"
	HistGradient Kind = "hist-gradient"
)

var (
	// ErrMissingValues is returned by estimators that cannot handle NaN input.
	ErrMissingValues   = errors.New("input contains NaN, estimator does not accept missing values")
	ErrFeatureMismatch = errors.New("feature mismatch")
	ErrUnknownKind     = errors.New("unknown model kind")
	ErrInvalidParams   = errors.New("invalid model parameters")
	ErrInvalidTarget   = errors.New("invalid training target")
)

// Kinds lists every known model kind in display order.
func Kinds() []Kind {
	return []Kind{Tree, Forest, Gradient, HistGradient}
}

func ParseKind(s string) (Kind, error) {
	k := Kind(strings.TrimSpace(s))
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}

	return k, nil
}

func (k Kind) Valid() bool {
	return slices.Contains(Kinds(), k)
}

// ToleratesMissing reports whether the estimator accepts NaN cells.
func (k Kind) ToleratesMissing() bool {
	return k == HistGradient
}

func (k Kind) String() string {
	return string(k)
}

// Classifier is a fitted model able to label rows of a frame.
type Classifier interface {
	Kind() Kind
	Features() []string
	Classes() []string
	Predict(x frame.Frame) ([]string, error)
}

// Importancer is implemented by classifiers that expose per-feature
// importances, normalized to sum to one.
type Importancer interface {
	FeatureImportances() []float64
}

// Describer is implemented by classifiers that report fitted structure.
type Describer interface {
	Info() map[string]any
}

// Meta is the fitted feature and class vocabulary shared by all estimators.
type Meta struct {
	FeatureNames []string
	ClassNames   []string
}

func (m Meta) Features() []string {
	return m.FeatureNames
}

func (m Meta) Classes() []string {
	return m.ClassNames
}

func (m Meta) check(x frame.Frame, allowMissing bool) error {
	if x.NumCols() != len(m.FeatureNames) {
		return fmt.Errorf("%w: model has %d features, input has %d", ErrFeatureMismatch, len(m.FeatureNames), x.NumCols())
	}
	if len(x.Columns) == x.NumCols() {
		for i, c := range x.Columns {
			if c != m.FeatureNames[i] {
				return fmt.Errorf("%w: column %d is %q, model expects %q", ErrFeatureMismatch, i, c, m.FeatureNames[i])
			}
		}
	}
	if !allowMissing && x.HasMissing() {
		return fmt.Errorf("%w: %d missing cells", ErrMissingValues, x.MissingCount())
	}

	return nil
}

// Fit trains an estimator of the given kind. params override the estimator
// defaults key by key.
func Fit(ctx context.Context, kind Kind, params Params, x frame.Frame, y []string) (Classifier, error) {
	if x.NumRows() == 0 {
		return nil, fmt.Errorf("%w: empty training set", ErrInvalidTarget)
	}
	if x.NumRows() != len(y) {
		return nil, fmt.Errorf("%w: %d rows, %d labels", ErrInvalidTarget, x.NumRows(), len(y))
	}
	if !kind.ToleratesMissing() && x.HasMissing() {
		return nil, fmt.Errorf("%w: %d missing cells", ErrMissingValues, x.MissingCount())
	}

	switch kind {
	case Tree:
		p := TreeParams{}
		if err := params.decode(Defaults(Tree, ""), &p); err != nil {
			return nil, err
		}

		return fitTree(p, x, y)
	case Forest:
		p := ForestParams{}
		if err := params.decode(Defaults(Forest, ""), &p); err != nil {
			return nil, err
		}

		return fitForest(ctx, p, x, y)
	case Gradient:
		p := GradientParams{}
		if err := params.decode(Defaults(Gradient, ""), &p); err != nil {
			return nil, err
		}

		return fitGradient(ctx, p, x, y)
	case HistGradient:
		p := HistParams{}
		if err := params.decode(Defaults(HistGradient, ""), &p); err != nil {
			return nil, err
		}

		return fitHist(ctx, p, x, y)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// encodeLabels maps labels to indices into their sorted distinct values.
func encodeLabels(y []string) ([]string, []int) {
	seen := make(map[string]bool)
	for _, v := range y {
		seen[v] = true
	}
	classes := make([]string, 0, len(seen))
	for v := range seen {
		classes = append(classes, v)
	}
	sort.Strings(classes)

	index := make(map[string]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}
	out := make([]int, len(y))
	for i, v := range y {
		out[i] = index[v]
	}

	return classes, out
}

// argmax returns the first index of the largest value.
func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}

	return best
}

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}

	return out
}
