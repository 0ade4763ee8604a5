package api

import (
	"context"
	"errors"
	"time"

	"github.com/absmach/masklab/lab"
	"github.com/absmach/masklab/pkg/api"
	pkgerrors "github.com/absmach/masklab/pkg/errors"
	"github.com/absmach/masklab/runstore"
	"github.com/go-kit/kit/endpoint"
)

func trainEndpoint(svc lab.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(trainReq)
		if !ok {
			return trainResponse{}, errors.Join(pkgerrors.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return trainResponse{}, err
		}

		begin := time.Now()
		res, err := svc.Train(ctx, req.TrainRequest)
		if err != nil {
			return trainResponse{}, err
		}

		return trainResponse{
			Success: true,
			Data: trainData{
				TrainResult:   res,
				ExecutionTime: time.Since(begin).Milliseconds(),
			},
		}, nil
	}
}

func compareEndpoint(svc lab.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(compareReq)
		if !ok {
			return compareResponse{}, errors.Join(pkgerrors.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return compareResponse{}, err
		}

		run, err := svc.Compare(ctx, req.request())
		switch {
		case errors.Is(err, lab.ErrComparisonFailed):
			return compareFailedResponse{
				Error:        api.NewErrorBody(err),
				ModelColumns: run.ModelColumns,
				Models:       run.Models,
			}, nil
		case err != nil:
			return compareResponse{}, err
		}

		return compareResponse{ComparisonRun: run}, nil
	}
}

func sweepEndpoint(svc lab.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(sweepReq)
		if !ok {
			return sweepResponse{}, errors.Join(pkgerrors.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return sweepResponse{}, err
		}

		res, err := svc.Sweep(ctx, req.SweepRequest)
		if err != nil {
			return sweepResponse{}, err
		}

		return sweepResponse{SweepResult: res}, nil
	}
}

func listRunsEndpoint(svc lab.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(listRunsReq)
		if !ok {
			return listRunsResponse{}, errors.Join(pkgerrors.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return listRunsResponse{}, errors.Join(pkgerrors.ErrValidation, err)
		}

		runs, err := svc.ListRuns(ctx, runstore.RunFilter{Model: req.model, Dataset: req.dataset})
		if err != nil {
			return listRunsResponse{}, err
		}
		if runs == nil {
			runs = []runstore.RunSummary{}
		}

		return listRunsResponse{Runs: runs}, nil
	}
}

func renameRunEndpoint(svc lab.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(renameRunReq)
		if !ok {
			return renameResponse{}, errors.Join(pkgerrors.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return renameResponse{}, errors.Join(pkgerrors.ErrValidation, err)
		}

		if err := svc.RenameRun(ctx, req.RunID, req.Name); err != nil {
			return renameResponse{}, err
		}

		return renameResponse{Success: true, Name: &req.Name}, nil
	}
}

func deleteRunEndpoint(svc lab.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(entityReq)
		if !ok {
			return successResponse{}, errors.Join(pkgerrors.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return successResponse{}, errors.Join(pkgerrors.ErrValidation, err)
		}

		if err := svc.DeleteRun(ctx, req.id); err != nil {
			return successResponse{}, err
		}

		return successResponse{Success: true}, nil
	}
}

// runImagesEndpoint answers with an empty list for unknown runs.
func runImagesEndpoint(svc lab.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(entityReq)
		if !ok {
			return imagesResponse{}, errors.Join(pkgerrors.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if req.id == "" {
			return imagesResponse{Images: []string{}}, nil
		}

		images, err := svc.RunImages(ctx, req.id)
		switch {
		case errors.Is(err, pkgerrors.ErrNotFound), errors.Is(err, pkgerrors.ErrValidation):
			return imagesResponse{Images: []string{}}, nil
		case err != nil:
			return imagesResponse{}, err
		}
		if images == nil {
			images = []string{}
		}

		return imagesResponse{Images: images}, nil
	}
}

func listComparisonsEndpoint(svc lab.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(listComparisonsReq)
		if !ok {
			return listComparisonsResponse{}, errors.Join(pkgerrors.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return listComparisonsResponse{}, errors.Join(pkgerrors.ErrValidation, err)
		}

		comparisons, err := svc.ListComparisons(ctx, req.dataset)
		if err != nil {
			return listComparisonsResponse{}, err
		}
		if comparisons == nil {
			comparisons = []runstore.ComparisonSummary{}
		}

		return listComparisonsResponse{Runs: comparisons}, nil
	}
}

func getComparisonEndpoint(svc lab.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(entityReq)
		if !ok {
			return comparisonResponse{}, errors.Join(pkgerrors.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return comparisonResponse{}, errors.Join(pkgerrors.ErrValidation, err)
		}

		c, err := svc.GetComparison(ctx, req.id)
		if err != nil {
			return comparisonResponse{}, err
		}

		return comparisonResponse{Comparison: c}, nil
	}
}

func renameComparisonEndpoint(svc lab.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(renameComparisonReq)
		if !ok {
			return renameResponse{}, errors.Join(pkgerrors.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return renameResponse{}, errors.Join(pkgerrors.ErrValidation, err)
		}

		var name string
		if req.Name != nil {
			name = *req.Name
		}
		renamed, err := svc.RenameComparison(ctx, req.CompareID, name)
		if err != nil {
			return renameResponse{}, err
		}

		return renameResponse{Success: true, Name: renamed}, nil
	}
}

func deleteComparisonEndpoint(svc lab.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(entityReq)
		if !ok {
			return successResponse{}, errors.Join(pkgerrors.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return successResponse{}, errors.Join(pkgerrors.ErrValidation, err)
		}

		if err := svc.DeleteComparison(ctx, req.id); err != nil {
			return successResponse{}, err
		}

		return successResponse{Success: true}, nil
	}
}
