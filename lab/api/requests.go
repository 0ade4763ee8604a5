package api

import (
	"fmt"

	"github.com/absmach/masklab/dataset"
	"github.com/absmach/masklab/lab"
	pkgerrors "github.com/absmach/masklab/pkg/errors"
)

var (
	errMissingDataset = fmt.Errorf("%w: dataset is required", pkgerrors.ErrValidation)
	errMissingModel   = fmt.Errorf("%w: model is required", pkgerrors.ErrValidation)
	errMissingRuns    = fmt.Errorf("%w: dataset and at least one model id are required", pkgerrors.ErrValidation)
)

type trainReq struct {
	lab.TrainRequest `json:",inline"`
}

func (t *trainReq) validate() error {
	if t.Dataset == "" {
		return errMissingDataset
	}
	if t.Model == "" {
		return errMissingModel
	}

	return nil
}

// compareReq accepts run ids as a plain list under models, or as run specs
// carrying an expected kind under runs.
type compareReq struct {
	CompareID string        `json:"compareId,omitempty"`
	Dataset   string        `json:"dataset"`
	Models    []string      `json:"models,omitempty"`
	Runs      []lab.RunSpec `json:"runs,omitempty"`
	Mask      int           `json:"mask"`
	Impute    bool          `json:"impute"`
	Ignore    []int         `json:"ignoreColumns,omitempty"`
	Images    *bool         `json:"images,omitempty"`
}

func (c *compareReq) validate() error {
	if c.Dataset == "" || len(c.Models)+len(c.Runs) == 0 {
		return errMissingRuns
	}

	return nil
}

func (c compareReq) request() lab.CompareRequest {
	runs := append(lab.Runs(c.Models...), c.Runs...)
	images := true
	if c.Images != nil {
		images = *c.Images
	}

	return lab.CompareRequest{
		CompareID: c.CompareID,
		Dataset:   c.Dataset,
		Runs:      runs,
		Mask:      c.Mask,
		Impute:    c.Impute,
		Ignore:    c.Ignore,
		Images:    images,
	}
}

type sweepReq struct {
	lab.SweepRequest `json:",inline"`
}

func (s *sweepReq) validate() error {
	if !dataset.Valid(s.Dataset) {
		return fmt.Errorf("%w: unknown dataset %q", pkgerrors.ErrValidation, s.Dataset)
	}

	return nil
}

type entityReq struct {
	id string
}

func (e *entityReq) validate() error {
	if e.id == "" {
		return pkgerrors.ErrMissingID
	}

	return nil
}

type listRunsReq struct {
	model   string
	dataset string
}

func (l *listRunsReq) validate() error {
	return nil
}

type listComparisonsReq struct {
	dataset string
}

func (l *listComparisonsReq) validate() error {
	return nil
}

type renameRunReq struct {
	RunID string `json:"runId"`
	Name  string `json:"name"`
}

func (r *renameRunReq) validate() error {
	if r.RunID == "" {
		return pkgerrors.ErrMissingID
	}

	return nil
}

type renameComparisonReq struct {
	CompareID string  `json:"compareId"`
	Name      *string `json:"name"`
}

func (r *renameComparisonReq) validate() error {
	if r.CompareID == "" {
		return pkgerrors.ErrMissingID
	}

	return nil
}
