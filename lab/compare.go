package lab

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/absmach/masklab/dataset"
	"github.com/absmach/masklab/evaluate"
	pkgerrors "github.com/absmach/masklab/pkg/errors"
	"github.com/absmach/masklab/pkg/frame"
	"github.com/absmach/masklab/pkg/mask"
	"github.com/absmach/masklab/render"
	"github.com/absmach/masklab/runstore"
)

// plannedRun is a validated run with the columns it will be scored on.
type plannedRun struct {
	runtime runstore.Runtime
	ignore  []int
	columns []int
	names   []string
}

// Compare validates every run up front and aborts on the first invalid one.
// Building, loading and scoring failures are then collected per model; any of
// them fails the comparison as a whole and nothing is persisted.
func (svc *service) Compare(ctx context.Context, req CompareRequest) (ComparisonRun, error) {
	if !dataset.Valid(req.Dataset) {
		return ComparisonRun{}, fmt.Errorf("%w: unknown dataset %q", pkgerrors.ErrValidation, req.Dataset)
	}
	if len(req.Runs) == 0 {
		return ComparisonRun{}, fmt.Errorf("%w: no runs to compare", pkgerrors.ErrValidation)
	}
	if err := validMask(req.Mask); err != nil {
		return ComparisonRun{}, err
	}
	compareID, err := svc.newID(req.CompareID, svc.comparisonExists)
	if err != nil {
		return ComparisonRun{}, err
	}

	plan, err := svc.plan(req)
	if err != nil {
		return ComparisonRun{}, err
	}
	svc.logger.Info("running comparison",
		slog.String("compare_id", compareID),
		slog.Int("mask", req.Mask),
		slog.Bool("impute", req.Impute),
	)

	run := ComparisonRun{
		CompareID:    compareID,
		Dataset:      req.Dataset,
		Mask:         req.Mask,
		Impute:       req.Impute,
		ModelColumns: make(map[string][]string, len(plan)),
		Models:       make([]runstore.ModelResult, 0, len(plan)),
	}
	var errs []error
	for _, p := range plan {
		res, err := svc.scoreRun(ctx, req, p)
		if err != nil {
			res.Error = err.Error()
			errs = append(errs, fmt.Errorf("%s: %w", p.runtime.RunID, err))
			svc.logger.Warn("model comparison failed", slog.String("run_id", p.runtime.RunID), slog.Any("error", err))
		} else {
			svc.logModel(res)
		}
		run.ModelColumns[p.runtime.RunID] = p.names
		run.Models = append(run.Models, res)
	}
	if len(errs) > 0 {
		return run, fmt.Errorf("%w: %w", ErrComparisonFailed, errors.Join(errs...))
	}

	refs := make([]runstore.RunRef, len(plan))
	for i, p := range plan {
		refs[i] = runstore.RunRef{RunID: p.runtime.RunID, Model: p.runtime.Model}
	}
	results := runstore.ComparisonResults{
		CompareID: compareID,
		Mask:      req.Mask,
		Impute:    req.Impute,
		Dataset:   req.Dataset,
		Models:    run.Models,
	}
	rt := runstore.ComparisonRuntime{
		CompareID: compareID,
		Dataset:   req.Dataset,
		Mask:      req.Mask,
		Impute:    req.Impute,
		Models:    refs,
	}
	if err := svc.store.WriteComparison(results, rt); err != nil {
		return run, err
	}
	if req.Images {
		svc.renderComparison(compareID, run.Models)
		run.Images = svc.store.ComparisonImages(compareID)
	}
	run.Success = true

	return run, nil
}

// plan validates each run and resolves the columns it was trained on.
func (svc *service) plan(req CompareRequest) ([]plannedRun, error) {
	cols, err := dataset.Columns(req.Dataset)
	if err != nil {
		return nil, err
	}

	plan := make([]plannedRun, 0, len(req.Runs))
	for _, rs := range req.Runs {
		rt, err := svc.store.Validate(rs.RunID, req.Dataset, rs.Expected)
		if err != nil {
			return nil, err
		}
		ignore := rt.DatasetParams.IgnoreColumns
		if ignore == nil {
			ignore = req.Ignore
		}
		kept := frame.KeptColumns(len(cols), ignore)
		names := make([]string, len(kept))
		for i, c := range kept {
			names[i] = cols[c]
		}
		plan = append(plan, plannedRun{runtime: rt, ignore: ignore, columns: kept, names: names})
		svc.logger.Info("validated run", slog.String("run_id", rs.RunID), slog.String("model", rt.Model.String()))
	}

	return plan, nil
}

// scoreRun builds the evaluation frame of one run and scores its model. The
// returned result is populated as far as scoring got.
func (svc *service) scoreRun(ctx context.Context, req CompareRequest, p plannedRun) (runstore.ModelResult, error) {
	res := runstore.ModelResult{
		RunID:       p.runtime.RunID,
		Model:       p.runtime.Model,
		Columns:     p.columns,
		ColumnNames: p.names,
	}

	raw, err := svc.loader.Load(ctx, req.Dataset)
	if err != nil {
		return res, buildError(err)
	}
	x, y, err := dataset.Build(raw, dataset.Recipe{
		MaskRate:  mask.Rate(req.Mask),
		Seed:      svc.cfg.Seed,
		Ignore:    p.ignore,
		Impute:    req.Impute,
		Neighbors: svc.cfg.Neighbors,
	})
	if err != nil {
		return res, buildError(err)
	}
	svc.logger.Debug("loaded samples", slog.String("run_id", p.runtime.RunID), slog.Int("rows", x.NumRows()), slog.Int("columns", x.NumCols()))

	res.TrainAccuracy = svc.store.ReadTrainAccuracy(p.runtime.RunID)

	clf, err := svc.store.ReadModel(p.runtime.RunID)
	switch {
	case errors.Is(err, pkgerrors.ErrNotFound):
		return res, err
	case err != nil:
		return res, fmt.Errorf("%w: %w", pkgerrors.ErrEvaluation, err)
	}
	out, err := evaluate.Evaluate(clf, x, y, svc.imputer)
	if err != nil {
		return res, err
	}
	res.CompareAccuracy = runstore.Nullable(out.Accuracy)
	res.Imputed = out.Imputed
	if res.TrainAccuracy != nil && *res.TrainAccuracy > 0 && res.CompareAccuracy != nil {
		res.Ratio = runstore.Nullable(*res.CompareAccuracy / *res.TrainAccuracy)
	}

	return res, nil
}

func (svc *service) logModel(res runstore.ModelResult) {
	args := []any{slog.String("run_id", res.RunID), slog.String("model", res.Model.String())}
	if res.TrainAccuracy != nil {
		args = append(args, slog.Float64("train", *res.TrainAccuracy))
	}
	if res.CompareAccuracy != nil {
		args = append(args, slog.Float64("compare", *res.CompareAccuracy))
	}
	if res.Ratio != nil {
		args = append(args, slog.Float64("ratio", *res.Ratio))
	}
	args = append(args, slog.Bool("imputed", res.Imputed))
	svc.logger.Info("compared model", args...)
}

func (svc *service) renderComparison(compareID string, results []runstore.ModelResult) {
	models := make([]render.ModelAccuracy, len(results))
	for i, r := range results {
		models[i] = render.ModelAccuracy{
			Label:   fmt.Sprintf("%s (%s)", r.Model, r.RunID),
			Train:   r.TrainAccuracy,
			Compare: r.CompareAccuracy,
		}
	}
	dst := svc.store.ComparisonDir(compareID)
	if _, err := render.AccuracyBars(dst, models); err != nil {
		svc.logger.Warn("failed to render accuracy chart", slog.String("compare_id", compareID), slog.Any("error", err))
	}
	if _, err := render.AccuracyDiff(dst, models); err != nil {
		svc.logger.Warn("failed to render accuracy difference chart", slog.String("compare_id", compareID), slog.Any("error", err))
	}
}

func (svc *service) comparisonExists(id string) bool {
	_, err := os.Stat(svc.store.ComparisonDir(id))

	return err == nil
}

func buildError(err error) error {
	if errors.Is(err, pkgerrors.ErrDatasetBuild) {
		return err
	}

	return fmt.Errorf("%w: %w", pkgerrors.ErrDatasetBuild, err)
}
