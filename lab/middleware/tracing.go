package middleware

import (
	"context"

	"github.com/absmach/masklab/lab"
	"github.com/absmach/masklab/runstore"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var _ lab.Service = (*tracing)(nil)

type tracing struct {
	tracer trace.Tracer
	svc    lab.Service
}

func Tracing(tracer trace.Tracer, svc lab.Service) lab.Service {
	return &tracing{tracer, svc}
}

func (tm *tracing) Train(ctx context.Context, req lab.TrainRequest) (lab.TrainResult, error) {
	ctx, span := tm.tracer.Start(ctx, "train", trace.WithAttributes(
		attribute.String("run_id", req.RunID),
		attribute.String("dataset", req.Dataset),
		attribute.String("model", req.Model.String()),
		attribute.Int("mask", req.DatasetParams.Mask),
		attribute.Bool("impute", req.DatasetParams.Impute),
	))
	defer span.End()

	return tm.svc.Train(ctx, req)
}

func (tm *tracing) Compare(ctx context.Context, req lab.CompareRequest) (lab.ComparisonRun, error) {
	ids := make([]string, len(req.Runs))
	for i, r := range req.Runs {
		ids[i] = r.RunID
	}
	ctx, span := tm.tracer.Start(ctx, "compare", trace.WithAttributes(
		attribute.String("compare_id", req.CompareID),
		attribute.String("dataset", req.Dataset),
		attribute.StringSlice("runs", ids),
		attribute.Int("mask", req.Mask),
		attribute.Bool("impute", req.Impute),
	))
	defer span.End()

	return tm.svc.Compare(ctx, req)
}

func (tm *tracing) Sweep(ctx context.Context, req lab.SweepRequest) (lab.SweepResult, error) {
	ctx, span := tm.tracer.Start(ctx, "sweep", trace.WithAttributes(
		attribute.String("sweep_id", req.SweepID),
		attribute.String("dataset", req.Dataset),
		attribute.IntSlice("masks", req.Masks),
	))
	defer span.End()

	return tm.svc.Sweep(ctx, req)
}

func (tm *tracing) ListRuns(ctx context.Context, filter runstore.RunFilter) ([]runstore.RunSummary, error) {
	ctx, span := tm.tracer.Start(ctx, "list-runs", trace.WithAttributes(
		attribute.String("model", filter.Model),
		attribute.String("dataset", filter.Dataset),
	))
	defer span.End()

	return tm.svc.ListRuns(ctx, filter)
}

func (tm *tracing) RenameRun(ctx context.Context, runID, name string) error {
	ctx, span := tm.tracer.Start(ctx, "rename-run", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.String("name", name),
	))
	defer span.End()

	return tm.svc.RenameRun(ctx, runID, name)
}

func (tm *tracing) DeleteRun(ctx context.Context, runID string) error {
	ctx, span := tm.tracer.Start(ctx, "delete-run", trace.WithAttributes(
		attribute.String("run_id", runID),
	))
	defer span.End()

	return tm.svc.DeleteRun(ctx, runID)
}

func (tm *tracing) RunImages(ctx context.Context, runID string) ([]string, error) {
	ctx, span := tm.tracer.Start(ctx, "run-images", trace.WithAttributes(
		attribute.String("run_id", runID),
	))
	defer span.End()

	return tm.svc.RunImages(ctx, runID)
}

func (tm *tracing) ListComparisons(ctx context.Context, dataset string) ([]runstore.ComparisonSummary, error) {
	ctx, span := tm.tracer.Start(ctx, "list-comparisons", trace.WithAttributes(
		attribute.String("dataset", dataset),
	))
	defer span.End()

	return tm.svc.ListComparisons(ctx, dataset)
}

func (tm *tracing) GetComparison(ctx context.Context, compareID string) (runstore.Comparison, error) {
	ctx, span := tm.tracer.Start(ctx, "get-comparison", trace.WithAttributes(
		attribute.String("compare_id", compareID),
	))
	defer span.End()

	return tm.svc.GetComparison(ctx, compareID)
}

func (tm *tracing) RenameComparison(ctx context.Context, compareID, name string) (*string, error) {
	ctx, span := tm.tracer.Start(ctx, "rename-comparison", trace.WithAttributes(
		attribute.String("compare_id", compareID),
		attribute.String("name", name),
	))
	defer span.End()

	return tm.svc.RenameComparison(ctx, compareID, name)
}

func (tm *tracing) DeleteComparison(ctx context.Context, compareID string) error {
	ctx, span := tm.tracer.Start(ctx, "delete-comparison", trace.WithAttributes(
		attribute.String("compare_id", compareID),
	))
	defer span.End()

	return tm.svc.DeleteComparison(ctx, compareID)
}
