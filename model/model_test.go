package model_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/absmach/masklab/dataset"
	"github.com/absmach/masklab/model"
	"github.com/absmach/masklab/pkg/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func irisSplit(t *testing.T, maskRate float64) dataset.Split {
	t.Helper()
	raw, err := dataset.NewLoader(dataset.Config{}, nil).Load(context.Background(), dataset.Iris)
	require.NoError(t, err)
	x, y, err := dataset.Build(raw, dataset.Recipe{MaskRate: maskRate, Seed: 42})
	require.NoError(t, err)
	s, err := dataset.TrainTestSplit(x, y, dataset.DefaultTestSize, 42)
	require.NoError(t, err)

	return s
}

func fit(t *testing.T, kind model.Kind, s dataset.Split) model.Classifier {
	t.Helper()
	c, err := model.Fit(context.Background(), kind, model.Defaults(kind, dataset.Iris), s.XTrain, s.YTrain)
	require.NoError(t, err)

	return c
}

func TestParseKind(t *testing.T) {
	t.Parallel()
	cases := []struct {
		desc string
		in   string
		kind model.Kind
		err  error
	}{
		{desc: "tree", in: "tree", kind: model.Tree},
		{desc: "hist gradient with spaces", in: " hist-gradient ", kind: model.HistGradient},
		{desc: "unknown", in: "svm", err: model.ErrUnknownKind},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			k, err := model.ParseKind(tc.in)
			assert.ErrorIs(t, err, tc.err)
			assert.Equal(t, tc.kind, k)
		})
	}
	assert.True(t, model.HistGradient.ToleratesMissing())
	assert.False(t, model.Forest.ToleratesMissing())
}

func TestFitAndPredictIris(t *testing.T) {
	t.Parallel()
	s := irisSplit(t, 0)

	for _, kind := range model.Kinds() {
		t.Run(string(kind), func(t *testing.T) {
			c := fit(t, kind, s)
			assert.Equal(t, kind, c.Kind())
			assert.Equal(t, s.XTrain.Columns, c.Features())
			assert.Equal(t, []string{"Iris-setosa", "Iris-versicolor", "Iris-virginica"}, c.Classes())

			pred, err := c.Predict(s.XTest)
			require.NoError(t, err)
			assert.Len(t, pred, s.XTest.NumRows())
			assert.GreaterOrEqual(t, model.Accuracy(s.YTest, pred), 0.8)

			imp, ok := c.(model.Importancer)
			require.True(t, ok)
			var sum float64
			for _, v := range imp.FeatureImportances() {
				sum += v
			}
			assert.InDelta(t, 1.0, sum, 1e-9)

			info, ok := c.(model.Describer)
			require.True(t, ok)
			assert.Equal(t, 3, info.Info()["n_classes"])
		})
	}
}

func TestIntolerantModelsRejectMissing(t *testing.T) {
	t.Parallel()
	clean := irisSplit(t, 0)
	masked := irisSplit(t, 0.2)
	require.True(t, masked.XTest.HasMissing())

	for _, kind := range []model.Kind{model.Tree, model.Forest, model.Gradient} {
		t.Run(string(kind), func(t *testing.T) {
			c := fit(t, kind, clean)
			_, err := c.Predict(masked.XTest)
			assert.ErrorIs(t, err, model.ErrMissingValues)

			_, err = model.Fit(context.Background(), kind, nil, masked.XTrain, masked.YTrain)
			assert.ErrorIs(t, err, model.ErrMissingValues)
		})
	}
}

func TestHistGradientAcceptsMissing(t *testing.T) {
	t.Parallel()
	s := irisSplit(t, 0.2)

	c := fit(t, model.HistGradient, s)
	pred, err := c.Predict(s.XTest)
	require.NoError(t, err)
	assert.Greater(t, model.Accuracy(s.YTest, pred), 0.6)
}

func TestPredictFeatureMismatch(t *testing.T) {
	t.Parallel()
	s := irisSplit(t, 0)
	c := fit(t, model.Tree, s)

	_, err := c.Predict(frame.DropColumns(s.XTest, []int{0}))
	assert.ErrorIs(t, err, model.ErrFeatureMismatch)

	renamed := s.XTest.Clone()
	renamed.Columns[0] = "other"
	_, err = c.Predict(renamed)
	assert.ErrorIs(t, err, model.ErrFeatureMismatch)
}

func TestForestIsDeterministic(t *testing.T) {
	t.Parallel()
	s := irisSplit(t, 0)

	a, err := fit(t, model.Forest, s).Predict(s.XTest)
	require.NoError(t, err)
	b, err := fit(t, model.Forest, s).Predict(s.XTest)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	info := fit(t, model.Forest, s).(model.Describer).Info()
	oob, ok := info["oob_score"].(float64)
	require.True(t, ok)
	assert.GreaterOrEqual(t, oob, 0.0)
	assert.LessOrEqual(t, oob, 1.0)
}

func TestCodecRoundTrip(t *testing.T) {
	t.Parallel()
	s := irisSplit(t, 0.1)
	clean := irisSplit(t, 0)

	for _, kind := range model.Kinds() {
		t.Run(string(kind), func(t *testing.T) {
			train := clean
			if kind.ToleratesMissing() {
				train = s
			}
			c := fit(t, kind, train)

			var buf bytes.Buffer
			require.NoError(t, model.Encode(&buf, c))
			got, err := model.Decode(&buf)
			require.NoError(t, err)
			assert.Equal(t, kind, got.Kind())
			assert.Equal(t, c.Features(), got.Features())

			want, err := c.Predict(train.XTest)
			require.NoError(t, err)
			pred, err := got.Predict(train.XTest)
			require.NoError(t, err)
			assert.Equal(t, want, pred)
		})
	}
}

func TestDecodeGarbage(t *testing.T) {
	t.Parallel()
	_, err := model.Decode(bytes.NewBufferString("not a model"))
	assert.Error(t, err)
}

func TestParams(t *testing.T) {
	t.Parallel()
	s := irisSplit(t, 0)

	cases := []struct {
		desc   string
		kind   model.Kind
		params model.Params
		err    error
	}{
		{desc: "valid override", kind: model.Tree, params: model.Params{"max_depth": 2}},
		{desc: "random splitter", kind: model.Tree, params: model.Params{"splitter": "random"}},
		{desc: "bad criterion", kind: model.Tree, params: model.Params{"criterion": "mse"}, err: model.ErrInvalidParams},
		{desc: "unknown key", kind: model.Tree, params: model.Params{"kernel": "rbf"}, err: model.ErrInvalidParams},
		{desc: "oob without bootstrap", kind: model.Forest, params: model.Params{"bootstrap": false, "oob_score": true}, err: model.ErrInvalidParams},
		{desc: "bad max features", kind: model.Forest, params: model.Params{"max_features": "half"}, err: model.ErrInvalidParams},
		{desc: "bad subsample", kind: model.Gradient, params: model.Params{"subsample": 1.5}, err: model.ErrInvalidParams},
		{desc: "bad bins", kind: model.HistGradient, params: model.Params{"max_bins": 1000}, err: model.ErrInvalidParams},
		{desc: "unknown kind", kind: model.Kind("svm"), err: model.ErrUnknownKind},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			_, err := model.Fit(context.Background(), tc.kind, tc.params, s.XTrain, s.YTrain)
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestDefaultsPerDataset(t *testing.T) {
	t.Parallel()
	assert.Nil(t, model.Defaults(model.Tree, dataset.Iris)["max_depth"])
	assert.Equal(t, 10, model.Defaults(model.Tree, dataset.Income)["max_depth"])
	assert.Equal(t, 100, model.Defaults(model.Forest, dataset.Income)["n_estimators"])
	assert.Equal(t, 0.2, model.Defaults(model.HistGradient, dataset.Iris)["learning_rate"])

	merged := model.Params{"a": 1}.Merge(model.Params{"a": 2, "b": nil})
	assert.Equal(t, model.Params{"a": 2, "b": nil}, merged)
}

func TestMaxDepthIsHonoured(t *testing.T) {
	t.Parallel()
	s := irisSplit(t, 0)
	c, err := model.Fit(context.Background(), model.Tree, model.Params{"max_depth": 1}, s.XTrain, s.YTrain)
	require.NoError(t, err)
	assert.Equal(t, 1, c.(model.Describer).Info()["max_depth"])
	assert.Equal(t, 3, c.(model.Describer).Info()["n_nodes"])
}

func TestAccuracyAndReport(t *testing.T) {
	t.Parallel()
	want := []string{"a", "a", "b", "b"}
	got := []string{"a", "b", "b", "b"}

	assert.Equal(t, 0.75, model.Accuracy(want, got))
	assert.Equal(t, 0.0, model.Accuracy(nil, nil))

	r := model.ClassificationReport(want, got)
	assert.Equal(t, 0.75, r["accuracy"])
	a, ok := r["a"].(model.ClassMetrics)
	require.True(t, ok)
	assert.Equal(t, 1.0, a.Precision)
	assert.Equal(t, 0.5, a.Recall)
	assert.Equal(t, 2, a.Support)
	b := r["b"].(model.ClassMetrics)
	assert.InDelta(t, 2.0/3.0, b.Precision, 1e-12)
	assert.Equal(t, 1.0, b.Recall)
	macro := r["macro avg"].(model.ClassMetrics)
	assert.Equal(t, 4, macro.Support)
}
