package lab

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"

	"github.com/absmach/masklab/dataset"
	"github.com/absmach/masklab/evaluate"
	"github.com/absmach/masklab/model"
	pkgerrors "github.com/absmach/masklab/pkg/errors"
	"github.com/absmach/masklab/pkg/frame"
	"github.com/absmach/masklab/pkg/mask"
	"github.com/absmach/masklab/render"
	"github.com/absmach/masklab/runstore"
)

// fitted is a model trained and scored on one split.
type fitted struct {
	clf      model.Classifier
	outcome  evaluate.Outcome
	columns  []string
	missing  []int
	fallback bool
	yTest    []string
}

func (svc *service) Train(ctx context.Context, req TrainRequest) (TrainResult, error) {
	if err := validateTrain(&req); err != nil {
		return TrainResult{}, err
	}
	runID, err := svc.newID(req.RunID, svc.runExists)
	if err != nil {
		return TrainResult{}, err
	}
	if req.RunID != "" && svc.runExists(runID) {
		return TrainResult{}, fmt.Errorf("%w: run %s", pkgerrors.ErrEntityExists, runID)
	}

	dp := req.DatasetParams
	s, err := svc.split(ctx, req.Dataset, dp)
	if err != nil {
		return TrainResult{}, err
	}
	params := model.Defaults(req.Model, req.Dataset).Merge(req.ModelParams)
	f, err := svc.fit(ctx, req.Model, params, s, dp.IgnoreColumns, dp.Impute)
	if err != nil {
		return TrainResult{}, err
	}
	svc.logger.Info("trained model",
		slog.String("run_id", runID),
		slog.String("model", req.Model.String()),
		slog.Float64("accuracy", f.outcome.Accuracy),
		slog.Bool("impute_fallback", f.fallback),
	)

	res := f.result(params)
	rt := runstore.Runtime{
		RunID:         runID,
		Dataset:       req.Dataset,
		Model:         req.Model,
		Name:          req.Name,
		CreatedAt:     svc.now().UTC(),
		DatasetParams: dp,
		ModelParams:   params,
	}
	if err := svc.persistRun(rt, f.clf, res); err != nil {
		return TrainResult{}, err
	}

	out := TrainResult{
		RunID:    runID,
		Dataset:  req.Dataset,
		Model:    req.Model,
		Name:     req.Name,
		Accuracy: res.Accuracy,
		Columns:  f.columns,
		Result:   res,
	}
	if dp.Images {
		svc.renderRun(runID, f)
		out.Images, _ = svc.store.RunImages(runID)
	}

	return out, nil
}

func validateTrain(req *TrainRequest) error {
	if !dataset.Valid(req.Dataset) {
		return fmt.Errorf("%w: unknown dataset %q", pkgerrors.ErrValidation, req.Dataset)
	}
	if !req.Model.Valid() {
		return fmt.Errorf("%w: %w: %q", pkgerrors.ErrValidation, model.ErrUnknownKind, req.Model)
	}
	if err := validMask(req.DatasetParams.Mask); err != nil {
		return err
	}
	if err := runstore.ValidateRunName(req.Name); err != nil {
		return err
	}
	if req.DatasetParams.Split == 0 {
		req.DatasetParams.Split = dataset.DefaultTestSize
	}
	if req.DatasetParams.IgnoreColumns == nil {
		req.DatasetParams.IgnoreColumns = []int{}
	}

	return nil
}

func validMask(pct int) error {
	if pct < 0 || pct > 100 {
		return fmt.Errorf("%w: mask must lie in [0, 100], got %d", pkgerrors.ErrValidation, pct)
	}

	return nil
}

func (svc *service) runExists(id string) bool {
	_, err := os.Stat(svc.store.RunDir(id))

	return err == nil
}

// split returns the masked train/test split of a dataset, either read back
// from a previous export or built and exported afresh.
func (svc *service) split(ctx context.Context, name string, dp runstore.DatasetParams) (dataset.Split, error) {
	if dp.UseOutput && dp.Mask > 0 {
		s, err := dataset.LoadSplit(svc.store.Root(), name, dp.Mask)
		if err != nil {
			return dataset.Split{}, fmt.Errorf("%w: %w", pkgerrors.ErrDatasetBuild, err)
		}

		return s, nil
	}

	raw, err := svc.loader.Load(ctx, name)
	if err != nil {
		return dataset.Split{}, err
	}
	x, err := mask.Mask(raw.X, mask.Rate(dp.Mask), svc.cfg.Seed)
	if err != nil {
		return dataset.Split{}, fmt.Errorf("%w: %w", pkgerrors.ErrDatasetBuild, err)
	}
	testSize := dp.Split
	if testSize == 0 {
		testSize = svc.cfg.TestSize
	}
	s, err := dataset.TrainTestSplit(x, raw.Y, testSize, svc.cfg.Seed)
	if err != nil {
		return dataset.Split{}, fmt.Errorf("%w: %w", pkgerrors.ErrValidation, err)
	}
	if dp.Mask > 0 {
		if err := dataset.ExportSplit(svc.store.Root(), name, dp.Mask, s); err != nil {
			svc.logger.Warn("failed to export masked split", slog.String("dataset", name), slog.Any("error", err))
		}
	}

	return s, nil
}

// fit drops the ignored columns, imputes the training half when asked to or
// when the estimator cannot take missing values, then fits and scores.
func (svc *service) fit(ctx context.Context, kind model.Kind, params model.Params, s dataset.Split, ignore []int, imputeTrain bool) (fitted, error) {
	xTrain := frame.DropColumns(s.XTrain, ignore)
	xTest := frame.DropColumns(s.XTest, ignore)
	f := fitted{columns: xTrain.Columns, missing: missingPerColumn(xTrain), yTest: s.YTest}

	if !imputeTrain && !kind.ToleratesMissing() && xTrain.HasMissing() {
		imputeTrain, f.fallback = true, true
	}
	if imputeTrain {
		xTrain, xTest = svc.imputer.ImputeTrain(xTrain, xTest)
	}

	clf, err := model.Fit(ctx, kind, params, xTrain, s.YTrain)
	switch {
	case errors.Is(err, model.ErrInvalidParams), errors.Is(err, model.ErrUnknownKind):
		return fitted{}, fmt.Errorf("%w: %w", pkgerrors.ErrValidation, err)
	case err != nil:
		return fitted{}, err
	}
	f.clf = clf

	f.outcome, err = evaluate.Evaluate(clf, xTest, s.YTest, svc.imputer)
	if err != nil {
		return fitted{}, err
	}

	return f, nil
}

func (f fitted) result(params model.Params) runstore.Result {
	info := map[string]any{}
	if d, ok := f.clf.(model.Describer); ok {
		maps.Copy(info, d.Info())
	}
	info["imputeFallback"] = f.fallback
	info["evaluationImputed"] = f.outcome.Imputed

	var importance map[string]*float64
	if imp, ok := f.clf.(model.Importancer); ok {
		importance = make(map[string]*float64, len(f.columns))
		for i, v := range imp.FeatureImportances() {
			if i < len(f.columns) {
				importance[f.columns[i]] = runstore.Nullable(v)
			}
		}
	}

	return runstore.Result{
		Accuracy:             runstore.Nullable(f.outcome.Accuracy),
		ClassificationReport: model.ClassificationReport(f.yTest, f.outcome.Predictions),
		Params:               params,
		ModelInfo:            info,
		FeatureImportance:    importance,
	}
}

func (svc *service) persistRun(rt runstore.Runtime, clf model.Classifier, res runstore.Result) error {
	acc := 0.0
	if res.Accuracy != nil {
		acc = *res.Accuracy
	}
	steps := []func() error{
		func() error { return svc.store.WriteModel(rt.RunID, clf) },
		func() error { return svc.store.WriteRuntime(rt) },
		func() error { return svc.store.WriteResult(rt.RunID, res) },
		func() error {
			return svc.store.WriteMarker(rt.RunID, runstore.NewMarker(rt.Model.String(), rt.Dataset, acc, rt.Name))
		},
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return fmt.Errorf("%w: run %s: %w", pkgerrors.ErrPersistence, rt.RunID, err)
		}
	}

	return nil
}

func (svc *service) renderRun(runID string, f fitted) {
	dst := svc.store.RunDir(runID)
	if imp, ok := f.clf.(model.Importancer); ok {
		if _, err := render.FeatureImportance(dst, f.columns, imp.FeatureImportances()); err != nil {
			svc.logger.Warn("failed to render feature importance", slog.String("run_id", runID), slog.Any("error", err))
		}
	}
	if _, err := render.Missingness(dst, f.columns, f.missing); err != nil {
		svc.logger.Warn("failed to render missing values", slog.String("run_id", runID), slog.Any("error", err))
	}
}

func missingPerColumn(x frame.Frame) []int {
	counts := make([]int, x.NumCols())
	for _, row := range x.Rows {
		for j, v := range row {
			if frame.IsMissing(v) {
				counts[j]++
			}
		}
	}

	return counts
}
