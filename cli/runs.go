package cli

import (
	"encoding/json"
	"fmt"

	"github.com/absmach/masklab/lab"
	"github.com/absmach/masklab/model"
	pkgerrors "github.com/absmach/masklab/pkg/errors"
	"github.com/absmach/masklab/runstore"
	"github.com/spf13/cobra"
)

type trainOutput struct {
	Success bool `json:"success"`
	lab.TrainResult
}

type okOutput struct {
	Success bool    `json:"success"`
	Name    *string `json:"name,omitempty"`
}

func NewTrainCmd() *cobra.Command {
	var (
		req    lab.TrainRequest
		kind   string
		params string
	)

	cmd := &cobra.Command{
		Use:   "train --dataset <name> --model <kind>",
		Short: "Train a model",
		Long: `Train one model on a masked train/test split and record it as a run.

Examples:
  # Decision tree on Iris with a fifth of the cells masked
  masklab train --dataset Iris --model tree --mask 20

  # Forest ignoring the first column, imputing the training split
  masklab train --dataset Iris --model forest --ignore 0 --impute --params '{"n_estimators":50}'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 || req.Dataset == "" || kind == "" {
				return usage(cmd)
			}

			k, err := model.ParseKind(kind)
			if err != nil {
				return fail(cmd, fmt.Errorf("%w: %w", pkgerrors.ErrValidation, err), nil)
			}
			req.Model = k
			if params != "" {
				if err := json.Unmarshal([]byte(params), &req.ModelParams); err != nil {
					return fail(cmd, fmt.Errorf("%w: model params: %w", pkgerrors.ErrValidation, err), nil)
				}
			}

			res, err := svc.Train(cmd.Context(), req)
			if err != nil {
				return fail(cmd, err, nil)
			}
			logJSONCmd(*cmd, trainOutput{Success: true, TrainResult: res})

			return nil
		},
	}

	cmd.Flags().StringVar(&req.Dataset, "dataset", "", "Dataset name (Iris or Income)")
	cmd.Flags().StringVar(&kind, "model", "", "Model kind (tree, forest, gradient, hist-gradient)")
	cmd.Flags().StringVar(&req.RunID, "run-id", "", "Run id, defaults to the current unix time")
	cmd.Flags().StringVar(&req.Name, "name", "", "Display name of the run")
	cmd.Flags().IntVar(&req.DatasetParams.Mask, "mask", 0, "Percentage of feature cells to mask")
	cmd.Flags().Float64Var(&req.DatasetParams.Split, "split", 0, "Test split fraction, defaults to 0.33")
	cmd.Flags().BoolVar(&req.DatasetParams.Impute, "impute", false, "Impute the training split")
	cmd.Flags().IntSliceVar(&req.DatasetParams.IgnoreColumns, "ignore", nil, "Column indices to drop")
	cmd.Flags().BoolVar(&req.DatasetParams.UseOutput, "use-output", false, "Reuse a previously exported masked split")
	cmd.Flags().BoolVar(&req.DatasetParams.Images, "images", false, "Render training charts")
	cmd.Flags().StringVar(&params, "params", "", "Model parameters as a JSON object")

	return cmd
}

func NewHistoryCmd() *cobra.Command {
	var filter runstore.RunFilter

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List trained runs",
		Long:  `List trained runs, newest first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usage(cmd)
			}

			runs, err := svc.ListRuns(cmd.Context(), filter)
			if err != nil {
				return fail(cmd, err, nil)
			}
			if runs == nil {
				runs = []runstore.RunSummary{}
			}
			logJSONCmd(*cmd, map[string]any{"runs": runs})

			return nil
		},
	}

	cmd.Flags().StringVar(&filter.Model, "model", "", "Only runs of this model kind")
	cmd.Flags().StringVar(&filter.Dataset, "dataset", "", "Only runs on this dataset")

	return cmd
}

func NewRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <run_id> [name]",
		Short: "Rename a run",
		Long:  `Set the display name of a run. An omitted name clears it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) < 1 || len(args) > 2 {
				return usage(cmd)
			}
			var name string
			if len(args) == 2 {
				name = args[1]
			}

			if err := svc.RenameRun(cmd.Context(), args[0], name); err != nil {
				return fail(cmd, err, nil)
			}
			logJSONCmd(*cmd, okOutput{Success: true, Name: &name})

			return nil
		},
	}
}

func NewDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run_id>",
		Short: "Delete a run",
		Long:  `Delete a run directory with its model, metadata and images.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usage(cmd)
			}

			if err := svc.DeleteRun(cmd.Context(), args[0]); err != nil {
				return fail(cmd, err, nil)
			}
			logJSONCmd(*cmd, okOutput{Success: true})

			return nil
		},
	}
}

func NewImagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "images <run_id>",
		Short: "List run images",
		Long:  `List the public paths of the images rendered for a run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usage(cmd)
			}

			images, err := svc.RunImages(cmd.Context(), args[0])
			if err != nil {
				return fail(cmd, err, nil)
			}
			if images == nil {
				images = []string{}
			}
			logJSONCmd(*cmd, map[string]any{"images": images})

			return nil
		},
	}
}
