package cli

import (
	"errors"
	"strings"

	"github.com/absmach/masklab/lab"
	"github.com/absmach/masklab/model"
	"github.com/absmach/masklab/runstore"
	"github.com/spf13/cobra"
)

// legacyFlags are the per-kind run id flags of the older invocation style.
var legacyFlags = []struct {
	flag string
	kind model.Kind
}{
	{flag: "tree", kind: model.Tree},
	{flag: "forest", kind: model.Forest},
	{flag: "gradient", kind: model.Gradient},
	{flag: "hist-gradient", kind: model.HistGradient},
}

func NewCompareCmd() *cobra.Command {
	var (
		req      lab.CompareRequest
		runIDs   []string
		modelIDs []string
		legacy   = make([]string, len(legacyFlags))
	)

	cmd := &cobra.Command{
		Use:   "compare --dataset <name> --runs <id,...>",
		Short: "Compare trained runs on masked data",
		Long: `Re-score trained runs against a freshly masked copy of their dataset.

Examples:
  # Two runs, a fifth of the cells masked, no imputation
  masklab compare --dataset Iris --runs 1700000000,1700000100 --mask 20

  # Older per-kind style, with imputation and charts
  masklab compare --dataset Iris --tree 1700000000 --forest 1700000100 --mask 40 --impute --images`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 || req.Dataset == "" {
				return usage(cmd)
			}

			req.Runs = runSpecs(append(runIDs, modelIDs...), legacy)
			if len(req.Runs) == 0 {
				return usage(cmd)
			}

			run, err := svc.Compare(cmd.Context(), req)
			switch {
			case errors.Is(err, lab.ErrComparisonFailed):
				return fail(cmd, err, run.Models)
			case err != nil:
				return fail(cmd, err, nil)
			}
			logJSONCmd(*cmd, run)

			return nil
		},
	}

	cmd.Flags().StringVar(&req.Dataset, "dataset", "", "Dataset the runs were trained on")
	cmd.Flags().StringSliceVar(&runIDs, "runs", nil, "Comma-separated run ids")
	cmd.Flags().StringSliceVar(&modelIDs, "models", nil, "Alias of --runs")
	for i, l := range legacyFlags {
		cmd.Flags().StringVar(&legacy[i], l.flag, "", "Run id of a "+l.kind.String()+" model")
	}
	cmd.Flags().IntVar(&req.Mask, "mask", 0, "Percentage of feature cells to mask")
	cmd.Flags().BoolVar(&req.Impute, "impute", false, "Impute the masked frame before scoring")
	cmd.Flags().IntSliceVar(&req.Ignore, "ignore", nil, "Columns to drop for runs that do not record their own")
	cmd.Flags().StringVar(&req.CompareID, "compare-id", "", "Comparison id, defaults to the current unix time")
	cmd.Flags().BoolVar(&req.Images, "images", false, "Render comparison charts")

	return cmd
}

// runSpecs merges plain run ids with the per-kind flags; the latter also
// pin the expected model kind.
func runSpecs(ids, legacy []string) []lab.RunSpec {
	var clean []string
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			clean = append(clean, id)
		}
	}
	specs := lab.Runs(clean...)
	for i, id := range legacy {
		if id = strings.TrimSpace(id); id != "" {
			specs = append(specs, lab.RunSpec{RunID: id, Expected: legacyFlags[i].kind})
		}
	}

	return specs
}

func NewCompareHistoryCmd() *cobra.Command {
	var dataset string

	cmd := &cobra.Command{
		Use:   "compare-history",
		Short: "List stored comparisons",
		Long:  `List stored comparisons, newest first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usage(cmd)
			}

			comparisons, err := svc.ListComparisons(cmd.Context(), dataset)
			if err != nil {
				return fail(cmd, err, nil)
			}
			if comparisons == nil {
				comparisons = []runstore.ComparisonSummary{}
			}
			logJSONCmd(*cmd, map[string]any{"runs": comparisons})

			return nil
		},
	}

	cmd.Flags().StringVar(&dataset, "dataset", "", "Only comparisons on this dataset")

	return cmd
}

func NewCompareShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compare-show <compare_id>",
		Short: "Show a stored comparison",
		Long:  `Show the results, runtime and images of a stored comparison.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usage(cmd)
			}

			c, err := svc.GetComparison(cmd.Context(), args[0])
			if err != nil {
				return fail(cmd, err, nil)
			}
			logJSONCmd(*cmd, c)

			return nil
		},
	}
}

func NewCompareRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compare-rename <compare_id> [name]",
		Short: "Rename a comparison",
		Long:  `Set the display name of a comparison. An omitted name clears it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) < 1 || len(args) > 2 {
				return usage(cmd)
			}
			var name string
			if len(args) == 2 {
				name = args[1]
			}

			renamed, err := svc.RenameComparison(cmd.Context(), args[0], name)
			if err != nil {
				return fail(cmd, err, nil)
			}
			logJSONCmd(*cmd, okOutput{Success: true, Name: renamed})

			return nil
		},
	}
}

func NewCompareDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compare-delete <compare_id>",
		Short: "Delete a comparison",
		Long:  `Delete a stored comparison with its images.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usage(cmd)
			}

			if err := svc.DeleteComparison(cmd.Context(), args[0]); err != nil {
				return fail(cmd, err, nil)
			}
			logJSONCmd(*cmd, okOutput{Success: true})

			return nil
		},
	}
}
