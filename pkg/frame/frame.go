// Package frame holds the numeric feature matrix shared by masking, imputation,
// training and evaluation. Missing cells are represented by NaN.
package frame

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrRaggedRows  = errors.New("row width does not match column count")
	ErrColumnCount = errors.New("column index out of range")
)

// Frame is a row-major feature matrix with named columns.
type Frame struct {
	Columns []string
	Rows    [][]float64
}

// New builds a frame and checks that every row has one value per column.
func New(columns []string, rows [][]float64) (Frame, error) {
	for i, row := range rows {
		if len(row) != len(columns) {
			return Frame{}, fmt.Errorf("%w: row %d has %d values, want %d", ErrRaggedRows, i, len(row), len(columns))
		}
	}

	return Frame{Columns: columns, Rows: rows}, nil
}

// Missing returns the sentinel stored in masked cells.
func Missing() float64 {
	return math.NaN()
}

func IsMissing(v float64) bool {
	return math.IsNaN(v)
}

func (f Frame) NumRows() int {
	return len(f.Rows)
}

func (f Frame) NumCols() int {
	return len(f.Columns)
}

func (f Frame) HasMissing() bool {
	for _, row := range f.Rows {
		for _, v := range row {
			if IsMissing(v) {
				return true
			}
		}
	}

	return false
}

func (f Frame) MissingCount() int {
	n := 0
	for _, row := range f.Rows {
		for _, v := range row {
			if IsMissing(v) {
				n++
			}
		}
	}

	return n
}

// MissingMask reports, per cell, whether the value is missing.
func (f Frame) MissingMask() [][]bool {
	out := make([][]bool, len(f.Rows))
	for i, row := range f.Rows {
		out[i] = make([]bool, len(row))
		for j, v := range row {
			out[i][j] = IsMissing(v)
		}
	}

	return out
}

// Column returns a copy of column c.
func (f Frame) Column(c int) []float64 {
	out := make([]float64, len(f.Rows))
	for i, row := range f.Rows {
		out[i] = row[c]
	}

	return out
}

// Clone deep-copies the frame so callers can mutate cells freely.
func (f Frame) Clone() Frame {
	cols := make([]string, len(f.Columns))
	copy(cols, f.Columns)
	rows := make([][]float64, len(f.Rows))
	for i, row := range f.Rows {
		rows[i] = make([]float64, len(row))
		copy(rows[i], row)
	}

	return Frame{Columns: cols, Rows: rows}
}

// SelectRows returns a frame holding copies of the given rows, in order.
func (f Frame) SelectRows(idx []int) Frame {
	rows := make([][]float64, len(idx))
	for i, r := range idx {
		rows[i] = make([]float64, len(f.Rows[r]))
		copy(rows[i], f.Rows[r])
	}
	cols := make([]string, len(f.Columns))
	copy(cols, f.Columns)

	return Frame{Columns: cols, Rows: rows}
}

// Equal compares names and cells; two missing cells are equal.
func (f Frame) Equal(g Frame) bool {
	if len(f.Columns) != len(g.Columns) || len(f.Rows) != len(g.Rows) {
		return false
	}
	for i := range f.Columns {
		if f.Columns[i] != g.Columns[i] {
			return false
		}
	}
	for i := range f.Rows {
		if len(f.Rows[i]) != len(g.Rows[i]) {
			return false
		}
		for j := range f.Rows[i] {
			a, b := f.Rows[i][j], g.Rows[i][j]
			if IsMissing(a) && IsMissing(b) {
				continue
			}
			if a != b {
				return false
			}
		}
	}

	return true
}
