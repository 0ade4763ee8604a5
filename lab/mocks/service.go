package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/absmach/masklab/lab"
	"github.com/absmach/masklab/runstore"
)

var _ lab.Service = (*MockService)(nil)

// MockService is a mock implementation of the lab.Service interface
type MockService struct {
	mock.Mock
}

// Train fits and persists one run
func (m *MockService) Train(ctx context.Context, req lab.TrainRequest) (lab.TrainResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(lab.TrainResult), args.Error(1)
}

// Compare re-scores trained runs on masked data
func (m *MockService) Compare(ctx context.Context, req lab.CompareRequest) (lab.ComparisonRun, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(lab.ComparisonRun), args.Error(1)
}

// Sweep scores model kinds across mask rates
func (m *MockService) Sweep(ctx context.Context, req lab.SweepRequest) (lab.SweepResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(lab.SweepResult), args.Error(1)
}

// ListRuns lists the run history
func (m *MockService) ListRuns(ctx context.Context, filter runstore.RunFilter) ([]runstore.RunSummary, error) {
	args := m.Called(ctx, filter)
	runs, _ := args.Get(0).([]runstore.RunSummary)
	return runs, args.Error(1)
}

// RenameRun renames a run
func (m *MockService) RenameRun(ctx context.Context, runID, name string) error {
	args := m.Called(ctx, runID, name)
	return args.Error(0)
}

// DeleteRun deletes a run
func (m *MockService) DeleteRun(ctx context.Context, runID string) error {
	args := m.Called(ctx, runID)
	return args.Error(0)
}

// RunImages lists the images of a run
func (m *MockService) RunImages(ctx context.Context, runID string) ([]string, error) {
	args := m.Called(ctx, runID)
	images, _ := args.Get(0).([]string)
	return images, args.Error(1)
}

// ListComparisons lists the comparison history
func (m *MockService) ListComparisons(ctx context.Context, dataset string) ([]runstore.ComparisonSummary, error) {
	args := m.Called(ctx, dataset)
	comparisons, _ := args.Get(0).([]runstore.ComparisonSummary)
	return comparisons, args.Error(1)
}

// GetComparison retrieves a stored comparison
func (m *MockService) GetComparison(ctx context.Context, compareID string) (runstore.Comparison, error) {
	args := m.Called(ctx, compareID)
	return args.Get(0).(runstore.Comparison), args.Error(1)
}

// RenameComparison renames a comparison
func (m *MockService) RenameComparison(ctx context.Context, compareID, name string) (*string, error) {
	args := m.Called(ctx, compareID, name)
	renamed, _ := args.Get(0).(*string)
	return renamed, args.Error(1)
}

// DeleteComparison deletes a comparison
func (m *MockService) DeleteComparison(ctx context.Context, compareID string) error {
	args := m.Called(ctx, compareID)
	return args.Error(0)
}
