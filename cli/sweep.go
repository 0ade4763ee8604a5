package cli

import (
	"context"
	"fmt"

	"github.com/absmach/masklab/lab"
	"github.com/absmach/masklab/model"
	pkgerrors "github.com/absmach/masklab/pkg/errors"
	"github.com/spf13/cobra"
)

func NewSweepCmd() *cobra.Command {
	var (
		req   lab.SweepRequest
		kinds []string
	)

	cmd := &cobra.Command{
		Use:   "sweep --dataset <name>",
		Short: "Score model kinds across mask rates",
		Long: `Train every requested model kind on splits masked at 0, 5, ..., 90 percent,
with and without imputing the training split. Nothing is recorded as a run.

Examples:
  masklab sweep --dataset Iris --models tree,forest --images
  masklab sweep --dataset Iris --masks 0,25,50`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 || req.Dataset == "" {
				return usage(cmd)
			}

			req.Kinds = nil
			for _, k := range kinds {
				kind, err := model.ParseKind(k)
				if err != nil {
					return fail(cmd, fmt.Errorf("%w: %w", pkgerrors.ErrValidation, err), nil)
				}
				req.Kinds = append(req.Kinds, kind)
			}

			res, err := svc.Sweep(cmd.Context(), req)
			if err != nil {
				return fail(cmd, err, nil)
			}
			logJSONCmd(*cmd, res)

			return nil
		},
	}

	cmd.Flags().StringVar(&req.Dataset, "dataset", "", "Dataset name (Iris or Income)")
	cmd.Flags().StringSliceVar(&kinds, "models", nil, "Model kinds, defaults to all")
	cmd.Flags().IntSliceVar(&req.Masks, "masks", nil, "Mask percentages, defaults to 0,5,...,90")
	cmd.Flags().StringVar(&req.SweepID, "sweep-id", "", "Sweep id, defaults to the current unix time")
	cmd.Flags().BoolVar(&req.Images, "images", false, "Render sweep charts")

	return cmd
}

// NewServeCmd runs start until the server stops.
func NewServeCmd(start func(ctx context.Context) error) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long:  `Serve the HTTP API and the rendered images until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usage(cmd)
			}
			if err := start(cmd.Context()); err != nil {
				logErrorCmd(*cmd, err)

				return err
			}

			return nil
		},
	}
}
