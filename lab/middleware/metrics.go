package middleware

import (
	"context"
	"time"

	"github.com/absmach/masklab/lab"
	"github.com/absmach/masklab/runstore"
	"github.com/go-kit/kit/metrics"
)

var _ lab.Service = (*metricsMiddleware)(nil)

type metricsMiddleware struct {
	counter metrics.Counter
	latency metrics.Histogram
	svc     lab.Service
}

func Metrics(counter metrics.Counter, latency metrics.Histogram, svc lab.Service) lab.Service {
	return &metricsMiddleware{
		counter: counter,
		latency: latency,
		svc:     svc,
	}
}

func (mm *metricsMiddleware) observe(method string, begin time.Time) {
	mm.counter.With("method", method).Add(1)
	mm.latency.With("method", method).Observe(time.Since(begin).Seconds())
}

func (mm *metricsMiddleware) Train(ctx context.Context, req lab.TrainRequest) (lab.TrainResult, error) {
	defer mm.observe("train", time.Now())

	return mm.svc.Train(ctx, req)
}

func (mm *metricsMiddleware) Compare(ctx context.Context, req lab.CompareRequest) (lab.ComparisonRun, error) {
	defer mm.observe("compare", time.Now())

	return mm.svc.Compare(ctx, req)
}

func (mm *metricsMiddleware) Sweep(ctx context.Context, req lab.SweepRequest) (lab.SweepResult, error) {
	defer mm.observe("sweep", time.Now())

	return mm.svc.Sweep(ctx, req)
}

func (mm *metricsMiddleware) ListRuns(ctx context.Context, filter runstore.RunFilter) ([]runstore.RunSummary, error) {
	defer mm.observe("list-runs", time.Now())

	return mm.svc.ListRuns(ctx, filter)
}

func (mm *metricsMiddleware) RenameRun(ctx context.Context, runID, name string) error {
	defer mm.observe("rename-run", time.Now())

	return mm.svc.RenameRun(ctx, runID, name)
}

func (mm *metricsMiddleware) DeleteRun(ctx context.Context, runID string) error {
	defer mm.observe("delete-run", time.Now())

	return mm.svc.DeleteRun(ctx, runID)
}

func (mm *metricsMiddleware) RunImages(ctx context.Context, runID string) ([]string, error) {
	defer mm.observe("run-images", time.Now())

	return mm.svc.RunImages(ctx, runID)
}

func (mm *metricsMiddleware) ListComparisons(ctx context.Context, dataset string) ([]runstore.ComparisonSummary, error) {
	defer mm.observe("list-comparisons", time.Now())

	return mm.svc.ListComparisons(ctx, dataset)
}

func (mm *metricsMiddleware) GetComparison(ctx context.Context, compareID string) (runstore.Comparison, error) {
	defer mm.observe("get-comparison", time.Now())

	return mm.svc.GetComparison(ctx, compareID)
}

func (mm *metricsMiddleware) RenameComparison(ctx context.Context, compareID, name string) (*string, error) {
	defer mm.observe("rename-comparison", time.Now())

	return mm.svc.RenameComparison(ctx, compareID, name)
}

func (mm *metricsMiddleware) DeleteComparison(ctx context.Context, compareID string) error {
	defer mm.observe("delete-comparison", time.Now())

	return mm.svc.DeleteComparison(ctx, compareID)
}
