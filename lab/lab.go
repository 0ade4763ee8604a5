package lab

import (
	"context"
	"errors"

	"github.com/absmach/masklab/model"
	"github.com/absmach/masklab/runstore"
)

// ErrComparisonFailed is returned when at least one model of a comparison
// could not be scored. The per-model errors are joined into it.
var ErrComparisonFailed = errors.New("one or more models failed to evaluate")

type Service interface {
	// Train fits one model on a masked train/test split and persists it as a
	// new run.
	Train(ctx context.Context, req TrainRequest) (TrainResult, error)
	// Compare re-scores previously trained runs against a freshly masked
	// copy of their dataset.
	Compare(ctx context.Context, req CompareRequest) (ComparisonRun, error)
	// Sweep trains every requested model kind across a range of mask rates
	// without persisting runs.
	Sweep(ctx context.Context, req SweepRequest) (SweepResult, error)

	ListRuns(ctx context.Context, filter runstore.RunFilter) ([]runstore.RunSummary, error)
	RenameRun(ctx context.Context, runID, name string) error
	DeleteRun(ctx context.Context, runID string) error
	RunImages(ctx context.Context, runID string) ([]string, error)

	ListComparisons(ctx context.Context, dataset string) ([]runstore.ComparisonSummary, error)
	GetComparison(ctx context.Context, compareID string) (runstore.Comparison, error)
	RenameComparison(ctx context.Context, compareID, name string) (*string, error)
	DeleteComparison(ctx context.Context, compareID string) error
}

type TrainRequest struct {
	// RunID defaults to the current unix time.
	RunID         string                 `json:"runId,omitempty"`
	Name          string                 `json:"name,omitempty"`
	Dataset       string                 `json:"dataset"`
	Model         model.Kind             `json:"model"`
	DatasetParams runstore.DatasetParams `json:"datasetParams"`
	ModelParams   model.Params           `json:"modelParams,omitempty"`
}

type TrainResult struct {
	RunID    string          `json:"runId"`
	Dataset  string          `json:"dataset"`
	Model    model.Kind      `json:"model"`
	Name     string          `json:"name,omitempty"`
	Accuracy *float64        `json:"accuracy"`
	Columns  []string        `json:"columns"`
	Result   runstore.Result `json:"result"`
	Images   []string        `json:"images,omitempty"`
}

// RunSpec names a run to compare. A non-empty Expected kind must match the
// run's recorded model.
type RunSpec struct {
	RunID    string     `json:"runId"`
	Expected model.Kind `json:"expected,omitempty"`
}

// Runs builds run specs with no kind expectation.
func Runs(ids ...string) []RunSpec {
	out := make([]RunSpec, len(ids))
	for i, id := range ids {
		out[i] = RunSpec{RunID: id}
	}

	return out
}

type CompareRequest struct {
	// CompareID defaults to the current unix time.
	CompareID string    `json:"compareId,omitempty"`
	Dataset   string    `json:"dataset"`
	Runs      []RunSpec `json:"runs"`
	Mask      int       `json:"mask"`
	Impute    bool      `json:"impute"`
	// Ignore applies to runs whose runtime does not record ignore_columns.
	Ignore []int `json:"ignoreColumns,omitempty"`
	Images bool  `json:"images"`
}

// ComparisonRun is the outcome of one comparison. Models keeps the request
// order.
type ComparisonRun struct {
	Success      bool                   `json:"success"`
	CompareID    string                 `json:"compareId"`
	Dataset      string                 `json:"dataset"`
	Mask         int                    `json:"mask"`
	Impute       bool                   `json:"impute"`
	ModelColumns map[string][]string    `json:"modelColumns,omitempty"`
	Models       []runstore.ModelResult `json:"models"`
	Images       []string               `json:"images,omitempty"`
}

type SweepRequest struct {
	SweepID string       `json:"sweepId,omitempty"`
	Dataset string       `json:"dataset"`
	Kinds   []model.Kind `json:"models,omitempty"`
	// Masks defaults to 0, 5, ..., 90.
	Masks  []int `json:"masks,omitempty"`
	Images bool  `json:"images"`
}

// SweepResult holds one accuracy series per kind and per kind with
// imputation, keyed kind and kind_impute. Failed points are nil.
type SweepResult struct {
	SweepID string                `json:"sweepId"`
	Dataset string                `json:"dataset"`
	Masks   []int                 `json:"masks"`
	Series  map[string][]*float64 `json:"series"`
	Images  []string              `json:"images,omitempty"`
}

// DefaultSweepMasks returns 0, 5, ..., 90.
func DefaultSweepMasks() []int {
	masks := make([]int, 0, 19)
	for m := 0; m <= 90; m += 5 {
		masks = append(masks, m)
	}

	return masks
}
