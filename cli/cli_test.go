package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/absmach/masklab/cli"
	"github.com/absmach/masklab/lab"
	"github.com/absmach/masklab/lab/mocks"
	"github.com/absmach/masklab/model"
	pkgerrors "github.com/absmach/masklab/pkg/errors"
	"github.com/absmach/masklab/runstore"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, svc *mocks.MockService, cmd *cobra.Command, args ...string) (map[string]any, error) {
	t.Helper()
	cli.SetService(svc)
	root := &cobra.Command{Use: "masklab", SilenceErrors: true, SilenceUsage: true}
	cli.AddPersistentFlags(root)
	root.AddCommand(cmd)

	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{cmd.Name()}, args...))
	err := root.ExecuteContext(context.Background())

	var body map[string]any
	if out.Len() > 0 {
		require.NoError(t, json.Unmarshal(out.Bytes(), &body), out.String())
	}

	return body, err
}

func ptr(v float64) *float64 {
	return &v
}

func TestCompareCmd(t *testing.T) {
	models := []runstore.ModelResult{
		{RunID: "1", Model: model.Tree, CompareAccuracy: ptr(0.8)},
		{RunID: "2", Model: model.Forest, Error: "not found: model of run 2"},
	}

	cases := []struct {
		desc    string
		args    []string
		runs    []lab.RunSpec
		run     lab.ComparisonRun
		err     error
		success any
		models  int
	}{
		{
			desc:    "run ids",
			args:    []string{"--dataset", "Iris", "--runs", "1,2", "--mask", "20"},
			runs:    lab.Runs("1", "2"),
			run:     lab.ComparisonRun{Success: true, CompareID: "10", Models: models[:1]},
			success: true,
			models:  1,
		},
		{
			desc: "legacy flags pin the kind",
			args: []string{"--dataset", "Iris", "--tree", "1", "--forest", "2"},
			runs: []lab.RunSpec{
				{RunID: "1", Expected: model.Tree},
				{RunID: "2", Expected: model.Forest},
			},
			run:     lab.ComparisonRun{Success: true, CompareID: "11", Models: models[:1]},
			success: true,
			models:  1,
		},
		{
			desc:    "models alias",
			args:    []string{"--dataset", "Iris", "--models", "1"},
			runs:    lab.Runs("1"),
			run:     lab.ComparisonRun{Success: true, CompareID: "12", Models: models[:1]},
			success: true,
			models:  1,
		},
		{
			desc:    "partial failure keeps the models",
			args:    []string{"--dataset", "Iris", "--runs", "1,2"},
			runs:    lab.Runs("1", "2"),
			run:     lab.ComparisonRun{Models: models},
			err:     fmt.Errorf("%w: 2: %w", lab.ErrComparisonFailed, pkgerrors.ErrNotFound),
			success: false,
			models:  2,
		},
		{
			desc:    "validation failure",
			args:    []string{"--dataset", "Iris", "--runs", "1"},
			runs:    lab.Runs("1"),
			err:     fmt.Errorf("%w: run 1 was trained on %q", pkgerrors.ErrValidation, "Income"),
			success: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			svc := new(mocks.MockService)
			svc.On("Compare", mock.Anything, mock.MatchedBy(func(req lab.CompareRequest) bool {
				return req.Dataset == "Iris" && assert.ObjectsAreEqual(tc.runs, req.Runs)
			})).Return(tc.run, tc.err)

			body, err := execute(t, svc, cli.NewCompareCmd(), tc.args...)
			assert.ErrorIs(t, err, tc.err)
			assert.Equal(t, tc.success, body["success"])
			if tc.models > 0 {
				assert.Len(t, body["models"], tc.models)
			}
			if tc.err != nil {
				errBody := body["error"].(map[string]any)
				assert.NotEmpty(t, errBody["message"])
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestCompareCmdUsage(t *testing.T) {
	svc := new(mocks.MockService)

	_, err := execute(t, svc, cli.NewCompareCmd(), "--dataset", "Iris")
	assert.Error(t, err)
	_, err = execute(t, svc, cli.NewCompareCmd(), "--runs", "1")
	assert.Error(t, err)
	svc.AssertNotCalled(t, "Compare", mock.Anything, mock.Anything)
}

func TestTrainCmd(t *testing.T) {
	svc := new(mocks.MockService)
	svc.On("Train", mock.Anything, mock.MatchedBy(func(req lab.TrainRequest) bool {
		return req.Model == model.Forest &&
			req.DatasetParams.Mask == 20 &&
			assert.ObjectsAreEqual([]int{0}, req.DatasetParams.IgnoreColumns) &&
			req.ModelParams["n_estimators"] == float64(50)
	})).Return(lab.TrainResult{RunID: "1700000000", Model: model.Forest, Accuracy: ptr(0.9)}, nil)

	body, err := execute(t, svc, cli.NewTrainCmd(),
		"--dataset", "Iris", "--model", "forest", "--mask", "20", "--ignore", "0", "--params", `{"n_estimators":50}`)
	require.NoError(t, err)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "1700000000", body["runId"])

	body, err = execute(t, svc, cli.NewTrainCmd(), "--dataset", "Iris", "--model", "svm")
	assert.ErrorIs(t, err, pkgerrors.ErrValidation)
	assert.Equal(t, false, body["success"])
}

func TestHistoryCmds(t *testing.T) {
	svc := new(mocks.MockService)
	renamed := "first_pass"
	svc.On("ListRuns", mock.Anything, runstore.RunFilter{Dataset: "Iris"}).Return([]runstore.RunSummary{{RunID: "1"}}, nil)
	svc.On("RenameRun", mock.Anything, "1", "baseline").Return(nil)
	svc.On("DeleteRun", mock.Anything, "404").Return(pkgerrors.ErrNotFound)
	svc.On("RunImages", mock.Anything, "1").Return(nil, nil)
	svc.On("ListComparisons", mock.Anything, "").Return(nil, nil)
	svc.On("RenameComparison", mock.Anything, "10", "first pass").Return(&renamed, nil)
	svc.On("DeleteComparison", mock.Anything, "10").Return(nil)

	cases := []struct {
		desc  string
		cmd   *cobra.Command
		args  []string
		key   string
		value any
		err   error
	}{
		{desc: "history", cmd: cli.NewHistoryCmd(), args: []string{"--dataset", "Iris"}, key: "runs", value: []any{map[string]any{"runId": "1", "model": "", "dataset": "", "accuracy": float64(0), "timestamp": float64(0)}}},
		{desc: "rename", cmd: cli.NewRenameCmd(), args: []string{"1", "baseline"}, key: "name", value: "baseline"},
		{desc: "delete unknown", cmd: cli.NewDeleteCmd(), args: []string{"404"}, key: "success", value: false, err: pkgerrors.ErrNotFound},
		{desc: "images", cmd: cli.NewImagesCmd(), args: []string{"1"}, key: "images", value: []any{}},
		{desc: "compare history", cmd: cli.NewCompareHistoryCmd(), key: "runs", value: []any{}},
		{desc: "compare rename", cmd: cli.NewCompareRenameCmd(), args: []string{"10", "first pass"}, key: "name", value: "first_pass"},
		{desc: "compare delete", cmd: cli.NewCompareDeleteCmd(), args: []string{"10"}, key: "success", value: true},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			body, err := execute(t, svc, tc.cmd, tc.args...)
			assert.ErrorIs(t, err, tc.err)
			assert.Equal(t, tc.value, body[tc.key])
		})
	}
}

func TestSweepCmd(t *testing.T) {
	svc := new(mocks.MockService)
	svc.On("Sweep", mock.Anything, mock.MatchedBy(func(req lab.SweepRequest) bool {
		return assert.ObjectsAreEqual([]model.Kind{model.Tree, model.HistGradient}, req.Kinds) &&
			assert.ObjectsAreEqual([]int{0, 50}, req.Masks)
	})).Return(lab.SweepResult{SweepID: "20", Dataset: "Iris", Masks: []int{0, 50}}, nil)

	body, err := execute(t, svc, cli.NewSweepCmd(), "--dataset", "Iris", "--models", "tree,hist-gradient", "--masks", "0,50")
	require.NoError(t, err)
	assert.Equal(t, "20", body["sweepId"])

	_, err = execute(t, svc, cli.NewSweepCmd(), "--dataset", "Iris", "--models", "svm")
	assert.ErrorIs(t, err, pkgerrors.ErrValidation)
}
