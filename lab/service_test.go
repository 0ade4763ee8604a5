package lab_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/absmach/masklab/dataset"
	"github.com/absmach/masklab/lab"
	"github.com/absmach/masklab/model"
	pkgerrors "github.com/absmach/masklab/pkg/errors"
	"github.com/absmach/masklab/pkg/mask"
	"github.com/absmach/masklab/render"
	"github.com/absmach/masklab/runstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errSourceDown = errors.New("source unavailable")

// switchLoader serves Iris from the embedded copy until it is told to fail.
type switchLoader struct {
	inner *dataset.Loader
	fail  atomic.Bool
	calls atomic.Int32
}

func (l *switchLoader) Load(ctx context.Context, name string) (dataset.Raw, error) {
	l.calls.Add(1)
	if l.fail.Load() {
		return dataset.Raw{}, errSourceDown
	}

	return l.inner.Load(ctx, name)
}

type fixture struct {
	svc    lab.Service
	store  *runstore.Store
	loader *switchLoader
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	return newFixtureWith(t, lab.Config{Seed: mask.DefaultSeed})
}

func newFixtureWith(t *testing.T, cfg lab.Config) fixture {
	t.Helper()
	store, err := runstore.New(t.TempDir())
	require.NoError(t, err)
	loader := &switchLoader{inner: dataset.NewLoader(dataset.Config{}, nil)}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return fixture{
		svc:    lab.NewService(store, loader, cfg, logger),
		store:  store,
		loader: loader,
	}
}

func (f fixture) train(t *testing.T, runID string, kind model.Kind, ignore []int) lab.TrainResult {
	t.Helper()
	res, err := f.svc.Train(context.Background(), lab.TrainRequest{
		RunID:         runID,
		Dataset:       dataset.Iris,
		Model:         kind,
		DatasetParams: runstore.DatasetParams{IgnoreColumns: ignore},
	})
	require.NoError(t, err)

	return res
}

func TestCompareEndToEnd(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.train(t, "tree-run-1", model.Tree, []int{})
	f.train(t, "forest-run-2", model.Forest, []int{0})

	run, err := f.svc.Compare(context.Background(), lab.CompareRequest{
		CompareID: "cmp-1",
		Dataset:   dataset.Iris,
		Runs:      lab.Runs("tree-run-1", "forest-run-2"),
		Mask:      20,
		Images:    true,
	})
	require.NoError(t, err)
	assert.True(t, run.Success)
	assert.Equal(t, "cmp-1", run.CompareID)
	require.Len(t, run.Models, 2)

	tree, forest := run.Models[0], run.Models[1]
	assert.Equal(t, "tree-run-1", tree.RunID)
	assert.Equal(t, []int{0, 1, 2, 3}, tree.Columns)
	assert.Equal(t, []int{1, 2, 3}, forest.Columns)
	assert.Equal(t, []string{"SepalWidthCm", "PetalLengthCm", "PetalWidthCm"}, run.ModelColumns["forest-run-2"])

	for _, m := range run.Models {
		require.NotNil(t, m.CompareAccuracy)
		assert.GreaterOrEqual(t, *m.CompareAccuracy, 0.0)
		assert.LessOrEqual(t, *m.CompareAccuracy, 1.0)
		require.NotNil(t, m.TrainAccuracy)
		require.NotNil(t, m.Ratio)
		assert.InDelta(t, *m.CompareAccuracy / *m.TrainAccuracy, *m.Ratio, 1e-12)
		assert.True(t, m.Imputed)
		assert.Empty(t, m.Error)
	}

	stored, err := f.svc.GetComparison(context.Background(), "cmp-1")
	require.NoError(t, err)
	assert.Equal(t, run.Models, stored.Results.Models)
	assert.Len(t, stored.Runtime.Models, 2)
	assert.ElementsMatch(t, []string{
		"/output/compare/cmp-1/" + render.AccuracyBarsFile,
		"/output/compare/cmp-1/" + render.AccuracyDiffFile,
	}, run.Images)
}

func TestCompareImputeRequested(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.train(t, "tree-run-1", model.Tree, nil)

	run, err := f.svc.Compare(context.Background(), lab.CompareRequest{
		CompareID: "cmp-1",
		Dataset:   dataset.Iris,
		Runs:      lab.Runs("tree-run-1"),
		Mask:      20,
		Impute:    true,
	})
	require.NoError(t, err)
	assert.False(t, run.Models[0].Imputed)
	assert.Empty(t, run.Images)
}

func TestCompareFailsFastOnInvalidRun(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.train(t, "run-a", model.Tree, nil)
	require.NoError(t, f.store.WriteRuntime(runstore.Runtime{RunID: "run-b", Dataset: dataset.Income, Model: model.Forest}))
	calls := f.loader.calls.Load()

	cases := []struct {
		desc string
		runs []lab.RunSpec
		err  error
	}{
		{desc: "dataset mismatch", runs: lab.Runs("run-a", "run-b"), err: pkgerrors.ErrValidation},
		{desc: "unknown run", runs: lab.Runs("run-a", "run-c"), err: pkgerrors.ErrNotFound},
		{desc: "expected kind mismatch", runs: []lab.RunSpec{{RunID: "run-a", Expected: model.Forest}}, err: pkgerrors.ErrValidation},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			run, err := f.svc.Compare(context.Background(), lab.CompareRequest{Dataset: dataset.Iris, Runs: tc.runs, Mask: 10})
			assert.ErrorIs(t, err, tc.err)
			assert.Empty(t, run.Models)
		})
	}

	assert.Equal(t, calls, f.loader.calls.Load())
	comparisons, err := f.svc.ListComparisons(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, comparisons)
}

func TestCompareRejectsBadRequests(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	cases := []struct {
		desc string
		req  lab.CompareRequest
	}{
		{desc: "unknown dataset", req: lab.CompareRequest{Dataset: "Wine", Runs: lab.Runs("a")}},
		{desc: "no runs", req: lab.CompareRequest{Dataset: dataset.Iris}},
		{desc: "mask out of range", req: lab.CompareRequest{Dataset: dataset.Iris, Runs: lab.Runs("a"), Mask: 101}},
		{desc: "unsafe compare id", req: lab.CompareRequest{CompareID: "../x", Dataset: dataset.Iris, Runs: lab.Runs("a")}},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			_, err := f.svc.Compare(context.Background(), tc.req)
			assert.ErrorIs(t, err, pkgerrors.ErrValidation)
		})
	}
}

func TestCompareFailSoftOnMissingArtifact(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.train(t, "run-a", model.Tree, nil)
	f.train(t, "run-b", model.Forest, nil)
	require.NoError(t, os.Remove(filepath.Join(f.store.RunDir("run-b"), runstore.ModelFile)))

	run, err := f.svc.Compare(context.Background(), lab.CompareRequest{
		CompareID: "cmp-1",
		Dataset:   dataset.Iris,
		Runs:      lab.Runs("run-a", "run-b"),
		Mask:      20,
	})
	assert.ErrorIs(t, err, lab.ErrComparisonFailed)
	assert.ErrorIs(t, err, pkgerrors.ErrNotFound)
	assert.Contains(t, err.Error(), "run-b")
	assert.False(t, run.Success)
	require.Len(t, run.Models, 2)

	assert.NotNil(t, run.Models[0].CompareAccuracy)
	assert.Empty(t, run.Models[0].Error)
	assert.Nil(t, run.Models[1].CompareAccuracy)
	assert.NotEmpty(t, run.Models[1].Error)

	_, err = f.svc.GetComparison(context.Background(), "cmp-1")
	assert.ErrorIs(t, err, pkgerrors.ErrNotFound)
}

func TestCompareFailSoftOnDatasetBuild(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.train(t, "run-a", model.Tree, nil)
	f.train(t, "run-b", model.HistGradient, nil)
	f.loader.fail.Store(true)

	run, err := f.svc.Compare(context.Background(), lab.CompareRequest{Dataset: dataset.Iris, Runs: lab.Runs("run-a", "run-b"), Mask: 5})
	assert.ErrorIs(t, err, lab.ErrComparisonFailed)
	assert.ErrorIs(t, err, pkgerrors.ErrDatasetBuild)
	assert.ErrorIs(t, err, errSourceDown)
	require.Len(t, run.Models, 2)
	for _, m := range run.Models {
		assert.Nil(t, m.TrainAccuracy)
		assert.Nil(t, m.CompareAccuracy)
		assert.NotEmpty(t, m.Error)
	}
}

func TestCompareOmitsRatioWithoutTrainAccuracy(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.train(t, "zero", model.Tree, nil)
	f.train(t, "none", model.Tree, nil)

	require.NoError(t, f.store.WriteResult("zero", runstore.Result{}))
	require.NoError(t, f.store.WriteMarker("zero", runstore.NewMarker("tree", dataset.Iris, 0, "")))
	require.NoError(t, os.Remove(filepath.Join(f.store.RunDir("none"), runstore.ResultFile)))
	matches, err := filepath.Glob(filepath.Join(f.store.RunDir("none"), "*"+runstore.MarkerExt))
	require.NoError(t, err)
	for _, m := range matches {
		require.NoError(t, os.Remove(m))
	}

	run, err := f.svc.Compare(context.Background(), lab.CompareRequest{Dataset: dataset.Iris, Runs: lab.Runs("zero", "none")})
	require.NoError(t, err)
	require.Len(t, run.Models, 2)

	zero, none := run.Models[0], run.Models[1]
	require.NotNil(t, zero.TrainAccuracy)
	assert.Equal(t, 0.0, *zero.TrainAccuracy)
	assert.Nil(t, zero.Ratio)
	assert.NotNil(t, zero.CompareAccuracy)

	assert.Nil(t, none.TrainAccuracy)
	assert.Nil(t, none.Ratio)
	assert.NotNil(t, none.CompareAccuracy)
}

func TestCompareFallsBackToRequestIgnoreList(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.train(t, "legacy", model.Tree, []int{0})

	rt, err := f.store.ReadRuntime("legacy")
	require.NoError(t, err)
	rt.DatasetParams.IgnoreColumns = nil
	require.NoError(t, f.store.WriteRuntime(rt))

	run, err := f.svc.Compare(context.Background(), lab.CompareRequest{
		Dataset: dataset.Iris,
		Runs:    lab.Runs("legacy"),
		Ignore:  []int{0, 9},
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, run.Models[0].Columns)
}

func TestTrain(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	res, err := f.svc.Train(context.Background(), lab.TrainRequest{
		RunID:   "run-1",
		Name:    "masked",
		Dataset: dataset.Iris,
		Model:   model.Forest,
		DatasetParams: runstore.DatasetParams{
			Mask:          20,
			IgnoreColumns: []int{1},
			Images:        true,
		},
		ModelParams: model.Params{"n_estimators": 5},
	})
	require.NoError(t, err)
	require.NotNil(t, res.Accuracy)
	assert.Equal(t, []string{"SepalLengthCm", "PetalLengthCm", "PetalWidthCm"}, res.Columns)
	assert.Equal(t, true, res.Result.ModelInfo["imputeFallback"])
	assert.Len(t, res.Result.FeatureImportance, 3)
	assert.ElementsMatch(t, []string{
		"/output/run-1/" + render.FeatureImportanceFile,
		"/output/run-1/" + render.MissingValuesFile,
	}, res.Images)

	rt, err := f.store.ReadRuntime("run-1")
	require.NoError(t, err)
	assert.Equal(t, dataset.DefaultTestSize, rt.DatasetParams.Split)
	assert.Equal(t, float64(5), rt.ModelParams["n_estimators"])

	runs, err := f.svc.ListRuns(context.Background(), runstore.RunFilter{Dataset: dataset.Iris})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "masked", runs[0].Name)
	assert.InDelta(t, *res.Accuracy, runs[0].Accuracy, 1e-6)

	train, test := dataset.SplitPaths(f.store.Root(), dataset.Iris, 20)
	assert.FileExists(t, train)
	assert.FileExists(t, test)

	reused, err := f.svc.Train(context.Background(), lab.TrainRequest{
		RunID:         "run-2",
		Dataset:       dataset.Iris,
		Model:         model.HistGradient,
		DatasetParams: runstore.DatasetParams{Mask: 20, UseOutput: true},
	})
	require.NoError(t, err)
	assert.Equal(t, false, reused.Result.ModelInfo["imputeFallback"])
}

func TestTrainRejects(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.train(t, "taken", model.Tree, nil)

	cases := []struct {
		desc string
		req  lab.TrainRequest
		err  error
	}{
		{desc: "unknown dataset", req: lab.TrainRequest{Dataset: "Wine", Model: model.Tree}, err: pkgerrors.ErrValidation},
		{desc: "unknown model", req: lab.TrainRequest{Dataset: dataset.Iris, Model: "svm"}, err: pkgerrors.ErrValidation},
		{desc: "bad mask", req: lab.TrainRequest{Dataset: dataset.Iris, Model: model.Tree, DatasetParams: runstore.DatasetParams{Mask: -1}}, err: pkgerrors.ErrValidation},
		{desc: "bad name", req: lab.TrainRequest{Dataset: dataset.Iris, Model: model.Tree, Name: "a b"}, err: pkgerrors.ErrValidation},
		{desc: "bad params", req: lab.TrainRequest{Dataset: dataset.Iris, Model: model.Tree, ModelParams: model.Params{"criterion": "mse"}}, err: pkgerrors.ErrValidation},
		{desc: "existing run", req: lab.TrainRequest{RunID: "taken", Dataset: dataset.Iris, Model: model.Tree}, err: pkgerrors.ErrEntityExists},
		{desc: "missing export", req: lab.TrainRequest{Dataset: dataset.Iris, Model: model.Tree, DatasetParams: runstore.DatasetParams{Mask: 35, UseOutput: true}}, err: pkgerrors.ErrNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			_, err := f.svc.Train(context.Background(), tc.req)
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestTrainGeneratesDistinctIDs(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	a, err := f.svc.Train(context.Background(), lab.TrainRequest{Dataset: dataset.Iris, Model: model.Tree})
	require.NoError(t, err)
	b, err := f.svc.Train(context.Background(), lab.TrainRequest{Dataset: dataset.Iris, Model: model.Tree})
	require.NoError(t, err)
	assert.Len(t, a.RunID, 10)
	assert.NotEqual(t, a.RunID, b.RunID)
}

func TestSweep(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	res, err := f.svc.Sweep(context.Background(), lab.SweepRequest{
		SweepID: "sweep-1",
		Dataset: dataset.Iris,
		Kinds:   []model.Kind{model.Tree, model.HistGradient},
		Masks:   []int{0, 30},
		Images:  true,
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 30}, res.Masks)
	assert.Len(t, res.Series, 4)
	for name, points := range res.Series {
		require.Len(t, points, 2, name)
		for _, p := range points {
			require.NotNil(t, p, name)
			assert.GreaterOrEqual(t, *p, 0.0)
			assert.LessOrEqual(t, *p, 1.0)
		}
	}
	assert.Equal(t, *res.Series["tree"][0], *res.Series["tree_impute"][0])
	assert.Len(t, res.Images, 2)
	assert.FileExists(t, filepath.Join(f.store.Root(), runstore.SweepDir, "sweep-1", render.SweepFile))

	runs, err := f.svc.ListRuns(context.Background(), runstore.RunFilter{})
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestSweepRejects(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.svc.Sweep(context.Background(), lab.SweepRequest{Dataset: dataset.Iris, Kinds: []model.Kind{"svm"}})
	assert.ErrorIs(t, err, pkgerrors.ErrValidation)
	_, err = f.svc.Sweep(context.Background(), lab.SweepRequest{Dataset: dataset.Iris, Masks: []int{200}})
	assert.ErrorIs(t, err, pkgerrors.ErrValidation)
}

func TestHistoryOperations(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.train(t, "run-1", model.Tree, nil)
	_, err := f.svc.Compare(ctx, lab.CompareRequest{CompareID: "cmp-1", Dataset: dataset.Iris, Runs: lab.Runs("run-1")})
	require.NoError(t, err)

	require.NoError(t, f.svc.RenameRun(ctx, "run-1", "renamed"))
	comparisons, err := f.svc.ListComparisons(ctx, dataset.Iris)
	require.NoError(t, err)
	require.Len(t, comparisons, 1)
	require.NotNil(t, comparisons[0].Models[0].Name)
	assert.Equal(t, "renamed", *comparisons[0].Models[0].Name)

	name, err := f.svc.RenameComparison(ctx, "cmp-1", "first pass")
	require.NoError(t, err)
	assert.Equal(t, "first_pass", *name)

	images, err := f.svc.RunImages(ctx, "run-1")
	require.NoError(t, err)
	assert.Empty(t, images)

	require.NoError(t, f.svc.DeleteComparison(ctx, "cmp-1"))
	require.NoError(t, f.svc.DeleteRun(ctx, "run-1"))
	assert.ErrorIs(t, f.svc.DeleteRun(ctx, "run-1"), pkgerrors.ErrNotFound)
}

func TestTrainHonoursZeroSeed(t *testing.T) {
	t.Parallel()

	patterns := map[int64][][]bool{}
	for _, seed := range []int64{0, mask.DefaultSeed} {
		f := newFixtureWith(t, lab.Config{Seed: seed})
		_, err := f.svc.Train(context.Background(), lab.TrainRequest{
			Dataset:       dataset.Iris,
			Model:         model.HistGradient,
			DatasetParams: runstore.DatasetParams{Mask: 20},
		})
		require.NoError(t, err)

		s, err := dataset.LoadSplit(f.store.Root(), dataset.Iris, 20)
		require.NoError(t, err)
		patterns[seed] = s.XTrain.MissingMask()
	}

	assert.NotEqual(t, patterns[0], patterns[mask.DefaultSeed])
}
