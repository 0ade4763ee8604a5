package sdk

import (
	"context"

	"github.com/absmach/masklab/lab"
	"github.com/absmach/masklab/runstore"
)

var _ lab.Service = (*remoteService)(nil)

type remoteService struct {
	sdk SDK
}

// NewService exposes a remote server as a lab.Service.
func NewService(sdk SDK) lab.Service {
	return &remoteService{sdk: sdk}
}

func (rs *remoteService) Train(ctx context.Context, req lab.TrainRequest) (lab.TrainResult, error) {
	res, err := rs.sdk.Train(ctx, req)

	return res.TrainResult, err
}

func (rs *remoteService) Compare(ctx context.Context, req lab.CompareRequest) (lab.ComparisonRun, error) {
	return rs.sdk.Compare(ctx, req)
}

func (rs *remoteService) Sweep(ctx context.Context, req lab.SweepRequest) (lab.SweepResult, error) {
	return rs.sdk.Sweep(ctx, req)
}

func (rs *remoteService) ListRuns(ctx context.Context, filter runstore.RunFilter) ([]runstore.RunSummary, error) {
	return rs.sdk.Runs(ctx, filter)
}

func (rs *remoteService) RenameRun(ctx context.Context, runID, name string) error {
	return rs.sdk.RenameRun(ctx, runID, name)
}

func (rs *remoteService) DeleteRun(ctx context.Context, runID string) error {
	return rs.sdk.DeleteRun(ctx, runID)
}

func (rs *remoteService) RunImages(ctx context.Context, runID string) ([]string, error) {
	return rs.sdk.RunImages(ctx, runID)
}

func (rs *remoteService) ListComparisons(ctx context.Context, dataset string) ([]runstore.ComparisonSummary, error) {
	return rs.sdk.Comparisons(ctx, dataset)
}

func (rs *remoteService) GetComparison(ctx context.Context, compareID string) (runstore.Comparison, error) {
	return rs.sdk.Comparison(ctx, compareID)
}

func (rs *remoteService) RenameComparison(ctx context.Context, compareID, name string) (*string, error) {
	return rs.sdk.RenameComparison(ctx, compareID, name)
}

func (rs *remoteService) DeleteComparison(ctx context.Context, compareID string) error {
	return rs.sdk.DeleteComparison(ctx, compareID)
}
