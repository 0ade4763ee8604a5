package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/absmach/masklab/lab"
	"github.com/absmach/masklab/runstore"
)

var _ lab.Service = (*loggingMiddleware)(nil)

type loggingMiddleware struct {
	logger *slog.Logger
	svc    lab.Service
}

func Logging(logger *slog.Logger, svc lab.Service) lab.Service {
	return &loggingMiddleware{
		logger: logger,
		svc:    svc,
	}
}

func (lm *loggingMiddleware) Train(ctx context.Context, req lab.TrainRequest) (resp lab.TrainResult, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("run",
				slog.String("id", resp.RunID),
				slog.String("dataset", req.Dataset),
				slog.String("model", req.Model.String()),
				slog.Int("mask", req.DatasetParams.Mask),
				slog.Bool("impute", req.DatasetParams.Impute),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Train failed", args...)

			return
		}
		lm.logger.Info("Train completed successfully", args...)
	}(time.Now())

	return lm.svc.Train(ctx, req)
}

func (lm *loggingMiddleware) Compare(ctx context.Context, req lab.CompareRequest) (resp lab.ComparisonRun, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("comparison",
				slog.String("id", resp.CompareID),
				slog.String("dataset", req.Dataset),
				slog.Int("runs", len(req.Runs)),
				slog.Int("mask", req.Mask),
				slog.Bool("impute", req.Impute),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Compare failed", args...)

			return
		}
		lm.logger.Info("Compare completed successfully", args...)
	}(time.Now())

	return lm.svc.Compare(ctx, req)
}

func (lm *loggingMiddleware) Sweep(ctx context.Context, req lab.SweepRequest) (resp lab.SweepResult, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("sweep",
				slog.String("id", resp.SweepID),
				slog.String("dataset", req.Dataset),
				slog.Int("models", len(req.Kinds)),
				slog.Int("masks", len(req.Masks)),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Sweep failed", args...)

			return
		}
		lm.logger.Info("Sweep completed successfully", args...)
	}(time.Now())

	return lm.svc.Sweep(ctx, req)
}

func (lm *loggingMiddleware) ListRuns(ctx context.Context, filter runstore.RunFilter) (resp []runstore.RunSummary, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.String("model", filter.Model),
			slog.String("dataset", filter.Dataset),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("List runs failed", args...)

			return
		}
		lm.logger.Info("List runs completed successfully", append(args, slog.Int("count", len(resp)))...)
	}(time.Now())

	return lm.svc.ListRuns(ctx, filter)
}

func (lm *loggingMiddleware) RenameRun(ctx context.Context, runID, name string) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("run",
				slog.String("id", runID),
				slog.String("name", name),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Rename run failed", args...)

			return
		}
		lm.logger.Info("Rename run completed successfully", args...)
	}(time.Now())

	return lm.svc.RenameRun(ctx, runID, name)
}

func (lm *loggingMiddleware) DeleteRun(ctx context.Context, runID string) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.String("run_id", runID),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Delete run failed", args...)

			return
		}
		lm.logger.Info("Delete run completed successfully", args...)
	}(time.Now())

	return lm.svc.DeleteRun(ctx, runID)
}

func (lm *loggingMiddleware) RunImages(ctx context.Context, runID string) (resp []string, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.String("run_id", runID),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Run images failed", args...)

			return
		}
		lm.logger.Info("Run images completed successfully", args...)
	}(time.Now())

	return lm.svc.RunImages(ctx, runID)
}

func (lm *loggingMiddleware) ListComparisons(ctx context.Context, dataset string) (resp []runstore.ComparisonSummary, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.String("dataset", dataset),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("List comparisons failed", args...)

			return
		}
		lm.logger.Info("List comparisons completed successfully", append(args, slog.Int("count", len(resp)))...)
	}(time.Now())

	return lm.svc.ListComparisons(ctx, dataset)
}

func (lm *loggingMiddleware) GetComparison(ctx context.Context, compareID string) (resp runstore.Comparison, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.String("compare_id", compareID),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Get comparison failed", args...)

			return
		}
		lm.logger.Info("Get comparison completed successfully", args...)
	}(time.Now())

	return lm.svc.GetComparison(ctx, compareID)
}

func (lm *loggingMiddleware) RenameComparison(ctx context.Context, compareID, name string) (resp *string, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("comparison",
				slog.String("id", compareID),
				slog.String("name", name),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Rename comparison failed", args...)

			return
		}
		lm.logger.Info("Rename comparison completed successfully", args...)
	}(time.Now())

	return lm.svc.RenameComparison(ctx, compareID, name)
}

func (lm *loggingMiddleware) DeleteComparison(ctx context.Context, compareID string) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.String("compare_id", compareID),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Delete comparison failed", args...)

			return
		}
		lm.logger.Info("Delete comparison completed successfully", args...)
	}(time.Now())

	return lm.svc.DeleteComparison(ctx, compareID)
}
