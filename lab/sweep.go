package lab

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/absmach/masklab/dataset"
	"github.com/absmach/masklab/model"
	pkgerrors "github.com/absmach/masklab/pkg/errors"
	"github.com/absmach/masklab/pkg/mask"
	"github.com/absmach/masklab/render"
	"github.com/absmach/masklab/runstore"
)

const imputeSuffix = "_impute"

// Sweep fits every kind on each mask rate, once as is and once with the
// training split imputed. At mask 0 the imputed point repeats the plain one.
func (svc *service) Sweep(ctx context.Context, req SweepRequest) (SweepResult, error) {
	if !dataset.Valid(req.Dataset) {
		return SweepResult{}, fmt.Errorf("%w: unknown dataset %q", pkgerrors.ErrValidation, req.Dataset)
	}
	kinds := req.Kinds
	if len(kinds) == 0 {
		kinds = model.Kinds()
	}
	for _, k := range kinds {
		if !k.Valid() {
			return SweepResult{}, fmt.Errorf("%w: %w: %q", pkgerrors.ErrValidation, model.ErrUnknownKind, k)
		}
	}
	masks := req.Masks
	if len(masks) == 0 {
		masks = DefaultSweepMasks()
	}
	for _, m := range masks {
		if err := validMask(m); err != nil {
			return SweepResult{}, err
		}
	}
	sweepID, err := svc.newID(req.SweepID, svc.sweepExists)
	if err != nil {
		return SweepResult{}, err
	}

	raw, err := svc.loader.Load(ctx, req.Dataset)
	if err != nil {
		return SweepResult{}, err
	}

	series := make(map[string][]*float64, 2*len(kinds))
	for _, k := range kinds {
		series[k.String()] = make([]*float64, 0, len(masks))
		series[k.String()+imputeSuffix] = make([]*float64, 0, len(masks))
	}
	for _, pct := range masks {
		if err := ctx.Err(); err != nil {
			return SweepResult{}, err
		}
		s, err := svc.sweepSplit(raw, pct)
		if err != nil {
			return SweepResult{}, err
		}
		for _, k := range kinds {
			plain := svc.sweepPoint(ctx, req.Dataset, k, s, pct, false)
			imputed := plain
			if pct > 0 {
				imputed = svc.sweepPoint(ctx, req.Dataset, k, s, pct, true)
			}
			series[k.String()] = append(series[k.String()], plain)
			series[k.String()+imputeSuffix] = append(series[k.String()+imputeSuffix], imputed)
		}
		svc.logger.Info("swept mask", slog.String("sweep_id", sweepID), slog.Int("mask", pct))
	}

	out := SweepResult{SweepID: sweepID, Dataset: req.Dataset, Masks: masks, Series: series}
	if req.Images {
		out.Images = svc.renderSweep(sweepID, req.Dataset, kinds, masks, series)
	}

	return out, nil
}

func (svc *service) sweepSplit(raw dataset.Raw, pct int) (dataset.Split, error) {
	x, err := mask.Mask(raw.X, mask.Rate(pct), svc.cfg.Seed)
	if err != nil {
		return dataset.Split{}, fmt.Errorf("%w: %w", pkgerrors.ErrDatasetBuild, err)
	}

	return dataset.TrainTestSplit(x, raw.Y, svc.cfg.TestSize, svc.cfg.Seed)
}

func (svc *service) sweepPoint(ctx context.Context, ds string, kind model.Kind, s dataset.Split, pct int, imputeTrain bool) *float64 {
	f, err := svc.fit(ctx, kind, model.Defaults(kind, ds), s, nil, imputeTrain)
	if err != nil {
		svc.logger.Warn("sweep point failed",
			slog.String("model", kind.String()),
			slog.Int("mask", pct),
			slog.Bool("impute", imputeTrain),
			slog.Any("error", err),
		)

		return nil
	}

	return runstore.Nullable(f.outcome.Accuracy)
}

func (svc *service) renderSweep(sweepID, ds string, kinds []model.Kind, masks []int, series map[string][]*float64) []string {
	dst := svc.sweepDir(sweepID)
	plain := make(map[string][]*float64, len(kinds))
	for _, k := range kinds {
		plain[k.String()] = series[k.String()]
	}

	var images []string
	charts := []struct {
		file   string
		title  string
		series map[string][]*float64
	}{
		{file: render.SweepFile, title: ds + " accuracy by mask rate", series: plain},
		{file: render.SweepImputeFile, title: ds + " accuracy by mask rate, with imputation", series: series},
	}
	for _, c := range charts {
		if _, err := render.Sweep(dst, c.file, c.title, masks, c.series); err != nil {
			svc.logger.Warn("failed to render sweep chart", slog.String("file", c.file), slog.Any("error", err))

			continue
		}
		images = append(images, runstore.URLPrefix+"/"+runstore.SweepDir+"/"+sweepID+"/"+c.file)
	}

	return images
}

func (svc *service) sweepDir(id string) string {
	return filepath.Join(svc.store.Root(), runstore.SweepDir, id)
}

func (svc *service) sweepExists(id string) bool {
	_, err := os.Stat(svc.sweepDir(id))

	return err == nil
}
