// Package mask nulls feature cells with a seeded, reproducible pattern to
// simulate incomplete data.
package mask

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/absmach/masklab/pkg/frame"
)

// DefaultSeed is the seed used by training and comparison unless overridden.
const DefaultSeed int64 = 42

var ErrInvalidRate = errors.New("mask rate must lie in [0, 1]")

// Rate converts a mask percentage into a fraction.
func Rate(percent int) float64 {
	return float64(percent) / 100.0
}

// Mask marks each cell missing iff its uniform draw is below rate. The
// generator is seeded afresh on every call and draws cells in row-major order,
// so two frames of the same shape always get the same pattern.
// A zero rate returns x itself.
func Mask(x frame.Frame, rate float64, seed int64) (frame.Frame, error) {
	if math.IsNaN(rate) || rate < 0 || rate > 1 {
		return frame.Frame{}, fmt.Errorf("%w: got %v", ErrInvalidRate, rate)
	}
	if rate == 0 {
		return x, nil
	}

	pattern := Pattern(x.NumRows(), x.NumCols(), rate, seed)
	out := x.Clone()
	for i, row := range out.Rows {
		for j := range row {
			if pattern[i][j] {
				row[j] = frame.Missing()
			}
		}
	}

	return out, nil
}

// Pattern returns the cells Mask would null for a rows×cols frame.
func Pattern(rows, cols int, rate float64, seed int64) [][]bool {
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
	out := make([][]bool, rows)
	for i := range out {
		out[i] = make([]bool, cols)
		for j := range out[i] {
			out[i][j] = rng.Float64() < rate
		}
	}

	return out
}
