package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"math"
)

const defaultRandomState = 42

// Params are estimator hyperparameters keyed by their snake_case names.
// A nil value means "none", as in an unlimited depth.
type Params map[string]any

// Merge returns a copy of p with every key of over applied on top.
func (p Params) Merge(over Params) Params {
	out := make(Params, len(p)+len(over))
	maps.Copy(out, p)
	maps.Copy(out, over)

	return out
}

func (p Params) decode(base Params, dst interface{ validate() error }) error {
	data, err := json.Marshal(base.Merge(p))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}

	return dst.validate()
}

// Defaults returns the hyperparameters used for kind when training on the
// named dataset. Unknown datasets get the small-data defaults.
func Defaults(kind Kind, dataset string) Params {
	large := dataset == "Income"

	switch kind {
	case Tree:
		p := Params{
			"criterion":         "gini",
			"splitter":          "best",
			"max_depth":         nil,
			"min_samples_split": 2,
			"min_samples_leaf":  1,
			"max_features":      nil,
			"random_state":      defaultRandomState,
		}
		if large {
			p["max_depth"] = 10
			p["min_samples_split"] = 20
			p["min_samples_leaf"] = 10
		}

		return p
	case Forest:
		p := Params{
			"n_estimators":      10,
			"criterion":         "gini",
			"max_depth":         3,
			"min_samples_split": 2,
			"min_samples_leaf":  1,
			"max_features":      "sqrt",
			"bootstrap":         true,
			"oob_score":         true,
			"max_samples":       100,
			"random_state":      defaultRandomState,
			"n_jobs":            -1,
		}
		if large {
			p["n_estimators"] = 100
			p["max_depth"] = 10
			p["min_samples_split"] = 20
			p["min_samples_leaf"] = 10
			p["oob_score"] = false
			p["max_samples"] = nil
		}

		return p
	case Gradient:
		return Params{
			"n_estimators":      100,
			"learning_rate":     0.1,
			"max_depth":         3,
			"min_samples_split": 2,
			"min_samples_leaf":  1,
			"subsample":         1.0,
			"random_state":      defaultRandomState,
		}
	case HistGradient:
		p := Params{
			"learning_rate":     0.2,
			"max_iter":          200,
			"max_leaf_nodes":    31,
			"max_depth":         4,
			"min_samples_leaf":  1,
			"max_bins":          255,
			"l2_regularization": 0.0,
			"random_state":      defaultRandomState,
		}
		if large {
			p["learning_rate"] = 0.1
			p["max_depth"] = 6
			p["min_samples_leaf"] = 20
		}

		return p
	default:
		return Params{}
	}
}

type TreeParams struct {
	Criterion       string `json:"criterion"`
	Splitter        string `json:"splitter"`
	MaxDepth        *int   `json:"max_depth"`
	MinSamplesSplit int    `json:"min_samples_split"`
	MinSamplesLeaf  int    `json:"min_samples_leaf"`
	MaxFeatures     any    `json:"max_features"`
	RandomState     int64  `json:"random_state"`
}

func (p *TreeParams) validate() error {
	if err := validCriterion(p.Criterion); err != nil {
		return err
	}
	if p.Splitter != "best" && p.Splitter != "random" {
		return fmt.Errorf("%w: splitter %q", ErrInvalidParams, p.Splitter)
	}

	return validSizes(p.MaxDepth, p.MinSamplesSplit, p.MinSamplesLeaf)
}

type ForestParams struct {
	NEstimators     int    `json:"n_estimators"`
	Criterion       string `json:"criterion"`
	MaxDepth        *int   `json:"max_depth"`
	MinSamplesSplit int    `json:"min_samples_split"`
	MinSamplesLeaf  int    `json:"min_samples_leaf"`
	MaxFeatures     any    `json:"max_features"`
	Bootstrap       bool   `json:"bootstrap"`
	OOBScore        bool   `json:"oob_score"`
	MaxSamples      any    `json:"max_samples"`
	RandomState     int64  `json:"random_state"`
	NJobs           int    `json:"n_jobs"`
}

func (p *ForestParams) validate() error {
	if p.NEstimators < 1 {
		return fmt.Errorf("%w: n_estimators must be positive", ErrInvalidParams)
	}
	if p.OOBScore && !p.Bootstrap {
		return fmt.Errorf("%w: oob_score requires bootstrap", ErrInvalidParams)
	}
	if err := validCriterion(p.Criterion); err != nil {
		return err
	}

	return validSizes(p.MaxDepth, p.MinSamplesSplit, p.MinSamplesLeaf)
}

type GradientParams struct {
	NEstimators     int     `json:"n_estimators"`
	LearningRate    float64 `json:"learning_rate"`
	MaxDepth        *int    `json:"max_depth"`
	MinSamplesSplit int     `json:"min_samples_split"`
	MinSamplesLeaf  int     `json:"min_samples_leaf"`
	Subsample       float64 `json:"subsample"`
	RandomState     int64   `json:"random_state"`
}

func (p *GradientParams) validate() error {
	if p.NEstimators < 1 {
		return fmt.Errorf("%w: n_estimators must be positive", ErrInvalidParams)
	}
	if p.LearningRate <= 0 {
		return fmt.Errorf("%w: learning_rate must be positive", ErrInvalidParams)
	}
	if p.Subsample <= 0 || p.Subsample > 1 {
		return fmt.Errorf("%w: subsample must lie in (0, 1]", ErrInvalidParams)
	}

	return validSizes(p.MaxDepth, p.MinSamplesSplit, p.MinSamplesLeaf)
}

type HistParams struct {
	LearningRate     float64 `json:"learning_rate"`
	MaxIter          int     `json:"max_iter"`
	MaxLeafNodes     *int    `json:"max_leaf_nodes"`
	MaxDepth         *int    `json:"max_depth"`
	MinSamplesLeaf   int     `json:"min_samples_leaf"`
	MaxBins          int     `json:"max_bins"`
	L2Regularization float64 `json:"l2_regularization"`
	RandomState      int64   `json:"random_state"`
}

func (p *HistParams) validate() error {
	if p.MaxIter < 1 {
		return fmt.Errorf("%w: max_iter must be positive", ErrInvalidParams)
	}
	if p.LearningRate <= 0 {
		return fmt.Errorf("%w: learning_rate must be positive", ErrInvalidParams)
	}
	if p.MaxBins < 2 || p.MaxBins > 255 {
		return fmt.Errorf("%w: max_bins must lie in [2, 255]", ErrInvalidParams)
	}
	if p.MaxLeafNodes != nil && *p.MaxLeafNodes < 2 {
		return fmt.Errorf("%w: max_leaf_nodes must be at least 2", ErrInvalidParams)
	}
	if p.L2Regularization < 0 {
		return fmt.Errorf("%w: l2_regularization must be non-negative", ErrInvalidParams)
	}

	return validSizes(p.MaxDepth, 2, p.MinSamplesLeaf)
}

func validCriterion(c string) error {
	switch c {
	case "gini", "entropy", "log_loss":
		return nil
	default:
		return fmt.Errorf("%w: criterion %q", ErrInvalidParams, c)
	}
}

func validSizes(maxDepth *int, minSplit, minLeaf int) error {
	if maxDepth != nil && *maxDepth < 1 {
		return fmt.Errorf("%w: max_depth must be positive", ErrInvalidParams)
	}
	if minSplit < 2 {
		return fmt.Errorf("%w: min_samples_split must be at least 2", ErrInvalidParams)
	}
	if minLeaf < 1 {
		return fmt.Errorf("%w: min_samples_leaf must be positive", ErrInvalidParams)
	}

	return nil
}

// depth turns an optional depth into the builders' convention, 0 = unlimited.
func depth(d *int) int {
	if d == nil {
		return 0
	}

	return *d
}

// resolveMaxFeatures turns max_features into a feature count out of n.
func resolveMaxFeatures(v any, n int) (int, error) {
	switch t := v.(type) {
	case nil:
		return n, nil
	case string:
		switch t {
		case "sqrt", "auto":
			return max(1, int(math.Sqrt(float64(n)))), nil
		case "log2":
			return max(1, int(math.Log2(float64(n)))), nil
		}
	case float64:
		switch {
		case t >= 1 && t == math.Trunc(t):
			return min(n, int(t)), nil
		case t > 0 && t < 1:
			return max(1, int(t*float64(n))), nil
		}
	}

	return 0, fmt.Errorf("%w: max_features %v", ErrInvalidParams, v)
}

// resolveMaxSamples turns max_samples into a bootstrap size out of n.
func resolveMaxSamples(v any, n int) (int, error) {
	switch t := v.(type) {
	case nil:
		return n, nil
	case float64:
		switch {
		case t >= 1 && t == math.Trunc(t):
			return min(n, int(t)), nil
		case t > 0 && t < 1:
			return max(1, int(math.Round(t*float64(n)))), nil
		}
	}

	return 0, fmt.Errorf("%w: max_samples %v", ErrInvalidParams, v)
}
