// Package render draws summary charts as PNG files. Every function takes the
// destination directory explicitly and creates it when missing.
package render

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

const (
	AccuracyBarsFile      = "accuracy_bars.png"
	AccuracyDiffFile      = "accuracy_diff.png"
	FeatureImportanceFile = "feature_importance.png"
	MissingValuesFile     = "missing_values.png"
	SweepFile             = "accuracy_sweep.png"
	SweepImputeFile       = "accuracy_sweep_impute.png"

	width  = 8 * vg.Inch
	height = 5 * vg.Inch
)

var barWidth = vg.Points(18)

// ModelAccuracy is one bar group of the comparison charts. Nil scores are
// drawn as zero.
type ModelAccuracy struct {
	Label   string
	Train   *float64
	Compare *float64
}

// AccuracyBars draws train and compare accuracy side by side per model.
func AccuracyBars(dst string, models []ModelAccuracy) (string, error) {
	p := newPlot("Train vs compare accuracy", "model", "accuracy")
	train := make(plotter.Values, len(models))
	compare := make(plotter.Values, len(models))
	labels := make([]string, len(models))
	for i, m := range models {
		train[i], compare[i], labels[i] = value(m.Train), value(m.Compare), m.Label
	}

	if err := addBars(p, "train", train, 0, -barWidth/2); err != nil {
		return "", err
	}
	if err := addBars(p, "compare", compare, 1, barWidth/2); err != nil {
		return "", err
	}
	p.NominalX(labels...)
	p.Y.Min, p.Y.Max = 0, 1

	return save(p, dst, AccuracyBarsFile)
}

// AccuracyDiff draws compare minus train accuracy per model.
func AccuracyDiff(dst string, models []ModelAccuracy) (string, error) {
	p := newPlot("Accuracy change (compare - train)", "model", "difference")
	diff := make(plotter.Values, len(models))
	labels := make([]string, len(models))
	for i, m := range models {
		diff[i], labels[i] = value(m.Compare)-value(m.Train), m.Label
	}

	if err := addBars(p, "", diff, 2, 0); err != nil {
		return "", err
	}
	p.NominalX(labels...)

	return save(p, dst, AccuracyDiffFile)
}

// FeatureImportance draws one bar per feature.
func FeatureImportance(dst string, features []string, importances []float64) (string, error) {
	if len(features) != len(importances) {
		return "", fmt.Errorf("feature importance: %d features, %d values", len(features), len(importances))
	}
	p := newPlot("Feature importance", "feature", "importance")
	if err := addBars(p, "", clean(importances), 0, 0); err != nil {
		return "", err
	}
	p.NominalX(features...)
	p.Y.Min = 0

	return save(p, dst, FeatureImportanceFile)
}

// Missingness draws the number of missing cells per feature.
func Missingness(dst string, features []string, counts []int) (string, error) {
	if len(features) != len(counts) {
		return "", fmt.Errorf("missingness: %d features, %d counts", len(features), len(counts))
	}
	vals := make(plotter.Values, len(counts))
	for i, c := range counts {
		vals[i] = float64(c)
	}
	p := newPlot("Missing values per feature", "feature", "missing cells")
	if err := addBars(p, "", vals, 3, 0); err != nil {
		return "", err
	}
	p.NominalX(features...)
	p.Y.Min = 0

	return save(p, dst, MissingValuesFile)
}

// Sweep draws one accuracy line per series against the mask percentage.
// Nil points are left out of their line.
func Sweep(dst, file, title string, masks []int, series map[string][]*float64) (string, error) {
	p := newPlot(title, "mask %", "accuracy")
	names := make([]string, 0, len(series))
	for name := range series {
		names = append(names, name)
	}
	slices.Sort(names)

	for i, name := range names {
		pts := make(plotter.XYs, 0, len(masks))
		for j, acc := range series[name] {
			if j < len(masks) && acc != nil {
				pts = append(pts, plotter.XY{X: float64(masks[j]), Y: *acc})
			}
		}
		if len(pts) == 0 {
			continue
		}
		line, points, err := plotter.NewLinePoints(pts)
		if err != nil {
			return "", fmt.Errorf("sweep series %s: %w", name, err)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1.5)
		points.Color = plotutil.Color(i)
		points.Shape = plotutil.Shape(i)
		p.Add(line, points)
		p.Legend.Add(name, line, points)
	}
	p.Y.Min, p.Y.Max = 0, 1

	return save(p, dst, file)
}

func newPlot(title, x, y string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = x
	p.Y.Label.Text = y
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	return p
}

func addBars(p *plot.Plot, legend string, vals plotter.Values, color int, offset vg.Length) error {
	bars, err := plotter.NewBarChart(vals, barWidth)
	if err != nil {
		return fmt.Errorf("failed to build bar chart: %w", err)
	}
	bars.Color = plotutil.Color(color)
	bars.LineStyle.Width = vg.Length(0)
	bars.Offset = offset
	p.Add(bars)
	if legend != "" {
		p.Legend.Add(legend, bars)
	}

	return nil
}

func save(p *plot.Plot, dst, file string) (string, error) {
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", fmt.Errorf("failed to create image directory: %w", err)
	}
	path := filepath.Join(dst, file)
	if err := p.Save(width, height, path); err != nil {
		return "", fmt.Errorf("failed to save %s: %w", file, err)
	}

	return path, nil
}

func value(v *float64) float64 {
	if v == nil {
		return 0
	}

	return *v
}

// clean replaces values the plotter rejects with zero.
func clean(vals []float64) plotter.Values {
	out := make(plotter.Values, len(vals))
	for i, v := range vals {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out[i] = v
		}
	}

	return out
}
