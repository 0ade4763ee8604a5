package dataset

import (
	"github.com/absmach/masklab/pkg/frame"
	"github.com/absmach/masklab/pkg/impute"
	"github.com/absmach/masklab/pkg/mask"
)

// Recipe is the shaping applied to a raw dataset.
type Recipe struct {
	MaskRate  float64
	Seed      int64
	Ignore    []int
	Impute    bool
	Neighbors int
}

// Build masks the raw features, then drops the ignored columns, then imputes
// if requested. Masking runs on the full raw width so recipes that differ
// only in Ignore null the same cells on the columns they share.
func Build(raw Raw, r Recipe) (frame.Frame, []string, error) {
	x, err := mask.Mask(raw.X, r.MaskRate, r.Seed)
	if err != nil {
		return frame.Frame{}, nil, err
	}
	x = frame.DropColumns(x, r.Ignore)
	if r.Impute {
		x = impute.NewKNN(r.Neighbors).Impute(x)
	}

	return x, raw.Y, nil
}
