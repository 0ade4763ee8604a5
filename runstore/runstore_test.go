package runstore_test

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/absmach/masklab/dataset"
	"github.com/absmach/masklab/model"
	pkgerrors "github.com/absmach/masklab/pkg/errors"
	"github.com/absmach/masklab/runstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *runstore.Store {
	t.Helper()
	s, err := runstore.New(t.TempDir())
	require.NoError(t, err)

	return s
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, nil, 0o644))
}

func runtimeFor(runID, ds string, kind model.Kind) runstore.Runtime {
	return runstore.Runtime{
		RunID:   runID,
		Dataset: ds,
		Model:   kind,
		DatasetParams: runstore.DatasetParams{
			Split:         dataset.DefaultTestSize,
			IgnoreColumns: []int{},
		},
	}
}

func TestMarkerCodec(t *testing.T) {
	t.Parallel()
	cases := []struct {
		desc   string
		file   string
		ok     bool
		marker runstore.Marker
	}{
		{desc: "plain", file: "tree_Iris_000823.id", ok: true, marker: runstore.Marker{Model: "tree", Dataset: "Iris", Score: 823}},
		{desc: "named", file: "hist-gradient_Income_851234_my_run.id", ok: true, marker: runstore.Marker{Model: "hist-gradient", Dataset: "Income", Score: 851234, Name: "my_run"}},
		{desc: "wrong extension", file: "tree_Iris_000823.txt"},
		{desc: "missing score", file: "tree_Iris.id"},
		{desc: "non numeric score", file: "tree_Iris_abc.id"},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			m, ok := runstore.ParseMarker(tc.file)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.marker, m)
				assert.Equal(t, tc.file, m.FileName())
			}
		})
	}

	m := runstore.NewMarker("forest", "Iris", 0.98, "")
	assert.Equal(t, "forest_Iris_980000.id", m.FileName())
	assert.Equal(t, 0.98, m.Accuracy())
	assert.Equal(t, "tree_Iris_000000.id", runstore.NewMarker("tree", "Iris", math.NaN(), "").FileName())
}

func TestReadTrainAccuracyFromMarker(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	touch(t, filepath.Join(s.RunDir("1700000000"), "tree_Iris_000823.id"))

	acc := s.ReadTrainAccuracy("1700000000")
	require.NotNil(t, acc)
	assert.Equal(t, 0.000823, *acc)
}

func TestReadTrainAccuracyPrefersResult(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	require.NoError(t, s.WriteMarker("run-1", runstore.NewMarker("tree", "Iris", 0.5, "")))
	require.NoError(t, s.WriteResult("run-1", runstore.Result{Accuracy: runstore.Nullable(0.97)}))

	acc := s.ReadTrainAccuracy("run-1")
	require.NotNil(t, acc)
	assert.Equal(t, 0.97, *acc)
}

func TestReadTrainAccuracyFallbacks(t *testing.T) {
	t.Parallel()
	s := newStore(t)

	dir := s.RunDir("run-2")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, runstore.ResultFile), []byte("{broken"), 0o644))
	touch(t, filepath.Join(dir, "tree_Iris_500000.id"))
	touch(t, filepath.Join(dir, "forest_Iris_400000.id"))
	touch(t, filepath.Join(dir, "garbage.id"))

	acc := s.ReadTrainAccuracy("run-2")
	require.NotNil(t, acc)
	assert.Equal(t, 0.4, *acc)

	assert.Nil(t, s.ReadTrainAccuracy("missing"))
	assert.Nil(t, s.ReadTrainAccuracy("../etc"))

	require.NoError(t, s.WriteResult("run-3", runstore.Result{Accuracy: runstore.Nullable(math.NaN())}))
	assert.Nil(t, s.ReadTrainAccuracy("run-3"))
}

func TestReadTrainAccuracyNullResultSkipsMarker(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	require.NoError(t, s.WriteMarker("run-4", runstore.NewMarker("tree", "Iris", math.NaN(), "")))
	require.NoError(t, s.WriteResult("run-4", runstore.Result{Accuracy: runstore.Nullable(math.NaN())}))

	assert.FileExists(t, filepath.Join(s.RunDir("run-4"), "tree_Iris_000000.id"))
	assert.Nil(t, s.ReadTrainAccuracy("run-4"))
}

func TestRuntimeRoundTrip(t *testing.T) {
	t.Parallel()
	s := newStore(t)

	rt := runtimeFor("run-1", dataset.Iris, model.Forest)
	rt.DatasetParams.IgnoreColumns = []int{0, 2}
	rt.ModelParams = model.Params{"n_estimators": 10.0}
	require.NoError(t, s.WriteRuntime(rt))

	got, err := s.ReadRuntime("run-1")
	require.NoError(t, err)
	assert.Equal(t, rt, got)

	_, err = s.ReadRuntime("run-404")
	assert.ErrorIs(t, err, pkgerrors.ErrNotFound)
}

func TestRuntimeIgnoreColumnsAbsent(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	dir := s.RunDir("legacy")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, runstore.RuntimeFile), []byte(`{"run_id":"legacy","dataset":"Iris","model":"tree","datasetParams":{"mask":10}}`), 0o644))

	rt, err := s.ReadRuntime("legacy")
	require.NoError(t, err)
	assert.Nil(t, rt.DatasetParams.IgnoreColumns)
	assert.Equal(t, 10, rt.DatasetParams.Mask)

	require.NoError(t, s.WriteRuntime(runtimeFor("fresh", dataset.Iris, model.Tree)))
	rt, err = s.ReadRuntime("fresh")
	require.NoError(t, err)
	assert.NotNil(t, rt.DatasetParams.IgnoreColumns)
}

func TestModelRoundTrip(t *testing.T) {
	t.Parallel()
	s := newStore(t)

	raw, err := dataset.NewLoader(dataset.Config{}, nil).Load(context.Background(), dataset.Iris)
	require.NoError(t, err)
	c, err := model.Fit(context.Background(), model.Tree, nil, raw.X, raw.Y)
	require.NoError(t, err)

	require.NoError(t, s.WriteModel("run-1", c))
	got, err := s.ReadModel("run-1")
	require.NoError(t, err)
	assert.Equal(t, model.Tree, got.Kind())

	_, err = s.ReadModel("run-2")
	assert.ErrorIs(t, err, pkgerrors.ErrNotFound)
}

func TestValidate(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	require.NoError(t, s.WriteRuntime(runtimeFor("tree-run", dataset.Iris, model.Tree)))
	require.NoError(t, s.WriteRuntime(runtimeFor("bad-kind", dataset.Iris, model.Kind("svm"))))

	cases := []struct {
		desc     string
		runID    string
		dataset  string
		expected model.Kind
		err      error
	}{
		{desc: "valid", runID: "tree-run", dataset: dataset.Iris},
		{desc: "valid with expected kind", runID: "tree-run", dataset: dataset.Iris, expected: model.Tree},
		{desc: "dataset mismatch", runID: "tree-run", dataset: dataset.Income, err: pkgerrors.ErrValidation},
		{desc: "kind mismatch", runID: "tree-run", dataset: dataset.Iris, expected: model.Forest, err: pkgerrors.ErrValidation},
		{desc: "unknown kind", runID: "bad-kind", dataset: dataset.Iris, err: pkgerrors.ErrValidation},
		{desc: "missing run", runID: "nope", dataset: dataset.Iris, err: pkgerrors.ErrNotFound},
		{desc: "traversal", runID: "../x", dataset: dataset.Iris, err: pkgerrors.ErrValidation},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			_, err := s.Validate(tc.runID, tc.dataset, tc.expected)
			assert.ErrorIs(t, err, tc.err)
			if tc.err != nil {
				assert.Contains(t, err.Error(), tc.runID)
			}
		})
	}
}

func TestListRuns(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	require.NoError(t, s.WriteMarker("1700000001", runstore.NewMarker("tree", "Iris", 0.9, "")))
	require.NoError(t, s.WriteMarker("1700000003", runstore.NewMarker("forest", "Iris", 0.95, "best")))
	require.NoError(t, s.WriteMarker("1700000002", runstore.NewMarker("tree", "Income", 0.8, "")))
	require.NoError(t, os.MkdirAll(s.RunDir("1700000004"), 0o755))
	touch(t, filepath.Join(s.ComparisonDir("1700000005"), "tree_Iris_100000.id"))

	runs, err := s.ListRuns(runstore.RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, []string{"1700000003", "1700000002", "1700000001"}, []string{runs[0].RunID, runs[1].RunID, runs[2].RunID})
	assert.Equal(t, "best", runs[0].Name)
	assert.Equal(t, int64(1700000003), runs[0].Timestamp)

	runs, err = s.ListRuns(runstore.RunFilter{Model: "tree", Dataset: "Iris"})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 0.9, runs[0].Accuracy)
}

func TestWriteMarkerReplacesStale(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	require.NoError(t, s.WriteMarker("run-1", runstore.NewMarker("tree", "Iris", 0.1, "")))
	require.NoError(t, s.WriteMarker("run-1", runstore.NewMarker("tree", "Iris", 0.2, "")))

	matches, err := filepath.Glob(filepath.Join(s.RunDir("run-1"), "*"+runstore.MarkerExt))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(s.RunDir("run-1"), "tree_Iris_200000.id")}, matches)
}

func TestRenameRun(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	require.NoError(t, s.WriteRuntime(runtimeFor("1700000000", dataset.Iris, model.Tree)))
	require.NoError(t, s.WriteMarker("1700000000", runstore.NewMarker("tree", "Iris", 0.973333, "")))

	cases := []struct {
		desc   string
		runID  string
		name   string
		marker string
		err    error
	}{
		{desc: "set name", runID: "1700000000", name: "baseline-1", marker: "tree_Iris_973333_baseline-1.id"},
		{desc: "clear name", runID: "1700000000", name: "", marker: "tree_Iris_973333.id"},
		{desc: "invalid characters", runID: "1700000000", name: "a b", err: pkgerrors.ErrValidation},
		{desc: "too long", runID: "1700000000", name: string(make([]byte, 51)), err: pkgerrors.ErrValidation},
		{desc: "unknown run", runID: "1800000000", name: "x", err: pkgerrors.ErrNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			err := s.RenameRun(tc.runID, tc.name)
			assert.ErrorIs(t, err, tc.err)
			if tc.err != nil {
				return
			}
			_, err = os.Stat(filepath.Join(s.RunDir(tc.runID), tc.marker))
			assert.NoError(t, err)
			rt, err := s.ReadRuntime(tc.runID)
			require.NoError(t, err)
			assert.Equal(t, tc.name, rt.Name)
		})
	}
}

func TestDeleteRunAndImages(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	require.NoError(t, s.WriteMarker("run-1", runstore.NewMarker("tree", "Iris", 0.9, "")))
	touch(t, filepath.Join(s.RunDir("run-1"), "b.png"))
	touch(t, filepath.Join(s.RunDir("run-1"), "a.png"))

	imgs, err := s.RunImages("run-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"/output/run-1/a.png", "/output/run-1/b.png"}, imgs)

	imgs, err = s.RunImages("run-2")
	require.NoError(t, err)
	assert.Empty(t, imgs)

	require.NoError(t, s.DeleteRun("run-1"))
	assert.ErrorIs(t, s.DeleteRun("run-1"), pkgerrors.ErrNotFound)
	assert.ErrorIs(t, s.DeleteRun(runstore.CompareDir), pkgerrors.ErrValidation)
}

func comparisonFixture(compareID, ds string, refs ...runstore.RunRef) (runstore.ComparisonResults, runstore.ComparisonRuntime) {
	acc := 0.9
	res := runstore.ComparisonResults{CompareID: compareID, Mask: 20, Dataset: ds}
	for _, r := range refs {
		res.Models = append(res.Models, runstore.ModelResult{RunID: r.RunID, Model: r.Model, TrainAccuracy: &acc, CompareAccuracy: &acc})
	}

	return res, runstore.ComparisonRuntime{CompareID: compareID, Dataset: ds, Mask: 20, Models: refs}
}

func TestComparisonHistory(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	named := runtimeFor("tree-run-1", dataset.Iris, model.Tree)
	named.Name = "baseline"
	require.NoError(t, s.WriteRuntime(named))

	res, rt := comparisonFixture("1700000001", dataset.Iris, runstore.RunRef{RunID: "tree-run-1", Model: model.Tree}, runstore.RunRef{RunID: "gone", Model: model.Forest})
	require.NoError(t, s.WriteComparison(res, rt))
	res, rt = comparisonFixture("1700000002", dataset.Income)
	require.NoError(t, s.WriteComparison(res, rt))
	touch(t, filepath.Join(s.ComparisonDir("1700000001"), "accuracy_bars.png"))
	require.NoError(t, os.MkdirAll(s.ComparisonDir("empty"), 0o755))

	all, err := s.ListComparisons("")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "1700000002", all[0].CompareID)

	iris, err := s.ListComparisons(dataset.Iris)
	require.NoError(t, err)
	require.Len(t, iris, 1)
	require.Len(t, iris[0].Models, 2)
	require.NotNil(t, iris[0].Models[0].Name)
	assert.Equal(t, "baseline", *iris[0].Models[0].Name)
	assert.Nil(t, iris[0].Models[1].Name)
	assert.Equal(t, 20, iris[0].Mask)

	c, err := s.GetComparison("1700000001")
	require.NoError(t, err)
	assert.Equal(t, []string{"/output/compare/1700000001/accuracy_bars.png"}, c.Images)
	assert.Len(t, c.Results.Models, 2)

	_, err = s.GetComparison("1700000009")
	assert.ErrorIs(t, err, pkgerrors.ErrNotFound)
}

func TestListComparisonsWithoutDirectory(t *testing.T) {
	t.Parallel()
	s := newStore(t)

	all, err := s.ListComparisons("")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRenameComparison(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	res, rt := comparisonFixture("1700000001", dataset.Iris)
	require.NoError(t, s.WriteComparison(res, rt))

	cases := []struct {
		desc string
		name string
		want *string
		err  error
	}{
		{desc: "spaces become underscores", name: "  mask 20 v1.2 ", want: ptr("mask_20_v1.2")},
		{desc: "empty clears", name: "", want: nil},
		{desc: "invalid characters", name: "a/b", err: pkgerrors.ErrValidation},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			got, err := s.RenameComparison("1700000001", tc.name)
			assert.ErrorIs(t, err, tc.err)
			if tc.err != nil {
				return
			}
			assert.Equal(t, tc.want, got)
			c, err := s.GetComparison("1700000001")
			require.NoError(t, err)
			assert.Equal(t, tc.want, c.Runtime.Name)
		})
	}

	_, err := s.RenameComparison("1700000404", "x")
	assert.ErrorIs(t, err, pkgerrors.ErrNotFound)
}

func TestDeleteComparison(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	res, rt := comparisonFixture("1700000001", dataset.Iris)
	require.NoError(t, s.WriteComparison(res, rt))

	require.NoError(t, s.DeleteComparison("1700000001"))
	assert.ErrorIs(t, s.DeleteComparison("1700000001"), pkgerrors.ErrNotFound)
	assert.ErrorIs(t, s.DeleteComparison("../.."), pkgerrors.ErrValidation)
}

func TestSanitizeID(t *testing.T) {
	t.Parallel()
	cases := []struct {
		desc string
		in   string
		out  string
	}{
		{desc: "clean", in: "1700000000", out: "1700000000"},
		{desc: "traversal", in: "../../etc/passwd", out: "etcpasswd"},
		{desc: "control characters", in: "ab\x00c\n", out: "abc"},
		{desc: "dots and spaces", in: " my.run id ", out: "myrunid"},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.out, runstore.SanitizeID(tc.in))
		})
	}
}

func ptr(s string) *string {
	return &s
}
