// Package impute fills missing feature cells with a distance-weighted
// k-nearest-neighbour estimate.
package impute

import (
	"math"
	"runtime"

	"github.com/absmach/masklab/pkg/frame"
	"golang.org/x/sync/errgroup"
)

const DefaultNeighbors = 5

// Imputer fills the missing cells of a frame, fitting only on that frame.
type Imputer interface {
	Impute(x frame.Frame) frame.Frame
}

var _ Imputer = (*KNN)(nil)

// KNN imputes each missing cell from the k nearest rows that have the cell
// present, weighting donors by inverse nan-euclidean distance.
type KNN struct {
	Neighbors int
}

func NewKNN(neighbors int) *KNN {
	if neighbors <= 0 {
		neighbors = DefaultNeighbors
	}

	return &KNN{Neighbors: neighbors}
}

// Impute fits on x and returns x with every missing cell filled. Frames with
// no missing cells are returned unchanged. Rows are imputed in parallel; each
// worker reads x and writes only its own rows of the result.
func (k *KNN) Impute(x frame.Frame) frame.Frame {
	if !x.HasMissing() {
		return x
	}

	means := columnMeans(x)
	out := x.Clone()

	n := x.NumRows()
	workers := min(runtime.GOMAXPROCS(0), n)
	chunk := (n + workers - 1) / workers
	var g errgroup.Group
	for from := 0; from < n; from += chunk {
		to := min(from+chunk, n)
		g.Go(func() error {
			k.imputeRows(x, out, means, from, to)

			return nil
		})
	}
	_ = g.Wait()

	return out
}

// ImputeTrain fits on and imputes train only; ref is returned untouched so
// test statistics never leak into the fit.
func (k *KNN) ImputeTrain(train, ref frame.Frame) (frame.Frame, frame.Frame) {
	return k.Impute(train), ref
}

type donor struct {
	dist  float64
	value float64
	index int
}

// closer orders donors by distance, then by row index.
func closer(a, b donor) bool {
	return a.dist < b.dist || (a.dist == b.dist && a.index < b.index)
}

// push inserts d into nearest, which stays sorted and holds at most k donors.
func push(nearest []donor, d donor, k int) []donor {
	if len(nearest) == k {
		if !closer(d, nearest[k-1]) {
			return nearest
		}
		nearest = nearest[:k-1]
	}
	i := len(nearest)
	nearest = append(nearest, d)
	for i > 0 && closer(d, nearest[i-1]) {
		nearest[i] = nearest[i-1]
		i--
	}
	nearest[i] = d

	return nearest
}

// imputeRows fills the missing cells of rows [from, to) in out. One pass over
// the candidate donors serves every missing column of a row.
func (k *KNN) imputeRows(x, out frame.Frame, means []float64, from, to int) {
	missing := make([]int, 0, x.NumCols())
	nearest := make([][]donor, x.NumCols())
	for c := range nearest {
		nearest[c] = make([]donor, 0, k.Neighbors)
	}

	for r := from; r < to; r++ {
		row := x.Rows[r]
		missing = missing[:0]
		for c, v := range row {
			if frame.IsMissing(v) {
				missing = append(missing, c)
				nearest[c] = nearest[c][:0]
			}
		}
		if len(missing) == 0 {
			continue
		}

		for d, other := range x.Rows {
			if d == r || !donates(other, missing) {
				continue
			}
			dist := nanEuclidean(row, other)
			if math.IsNaN(dist) {
				continue
			}
			for _, c := range missing {
				if frame.IsMissing(other[c]) {
					continue
				}
				nearest[c] = push(nearest[c], donor{dist: dist, value: other[c], index: d}, k.Neighbors)
			}
		}

		for _, c := range missing {
			out.Rows[r][c] = weighted(nearest[c], means[c])
		}
	}
}

// donates reports whether row has any of the columns present.
func donates(row []float64, columns []int) bool {
	for _, c := range columns {
		if !frame.IsMissing(row[c]) {
			return true
		}
	}

	return false
}

// weighted averages donor values by inverse distance. Donors at distance zero
// take all the weight; no donors at all gives fallback.
func weighted(donors []donor, fallback float64) float64 {
	if len(donors) == 0 {
		return fallback
	}

	exact := donors[0].dist == 0
	var sum, weights float64
	for _, d := range donors {
		var w float64
		switch {
		case exact && d.dist == 0:
			w = 1
		case exact:
			w = 0
		default:
			w = 1 / d.dist
		}
		sum += w * d.value
		weights += w
	}

	return sum / weights
}

// nanEuclidean scales the euclidean distance over coordinates present in both
// rows up to the full width. Rows sharing no coordinates are at NaN distance.
func nanEuclidean(a, b []float64) float64 {
	var sq float64
	present := 0
	for i := range a {
		if frame.IsMissing(a[i]) || frame.IsMissing(b[i]) {
			continue
		}
		diff := a[i] - b[i]
		sq += diff * diff
		present++
	}
	if present == 0 {
		return math.NaN()
	}

	return math.Sqrt(float64(len(a)) / float64(present) * sq)
}

// columnMeans averages present values per column; fully missing columns get 0.
func columnMeans(x frame.Frame) []float64 {
	means := make([]float64, x.NumCols())
	counts := make([]int, x.NumCols())
	for _, row := range x.Rows {
		for c, v := range row {
			if frame.IsMissing(v) {
				continue
			}
			means[c] += v
			counts[c]++
		}
	}
	for c := range means {
		if counts[c] > 0 {
			means[c] /= float64(counts[c])
		}
	}

	return means
}
