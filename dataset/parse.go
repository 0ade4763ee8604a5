package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/absmach/masklab/pkg/frame"
)

var ErrMalformed = errors.New("malformed dataset record")

// incomeNumeric marks the Income columns kept as numbers; the rest are
// label-encoded.
var incomeNumeric = map[int]bool{0: true, 2: true, 4: true, 10: true, 11: true, 12: true}

func parseIris(r io.Reader) (frame.Frame, []string, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return frame.Frame{}, nil, err
	}
	if len(records) < 2 {
		return frame.Frame{}, nil, fmt.Errorf("%w: empty iris data", ErrMalformed)
	}

	header := records[0]
	idx := make([]int, len(irisColumns))
	for i, name := range irisColumns {
		idx[i] = slices.Index(header, name)
		if idx[i] < 0 {
			return frame.Frame{}, nil, fmt.Errorf("%w: missing column %s", ErrMalformed, name)
		}
	}
	label := slices.Index(header, labels[Iris])
	if label < 0 {
		return frame.Frame{}, nil, fmt.Errorf("%w: missing column %s", ErrMalformed, labels[Iris])
	}

	rows := make([][]float64, 0, len(records)-1)
	y := make([]string, 0, len(records)-1)
	for line, rec := range records[1:] {
		row := make([]float64, len(idx))
		for i, c := range idx {
			v, err := strconv.ParseFloat(rec[c], 64)
			if err != nil {
				return frame.Frame{}, nil, fmt.Errorf("%w: line %d: %w", ErrMalformed, line+2, err)
			}
			row[i] = v
		}
		rows = append(rows, row)
		y = append(y, rec[label])
	}

	x, err := frame.New(slices.Clone(irisColumns), rows)

	return x, y, err
}

// parseIncome reads the adult census layout, with or without a header row.
// Categorical columns are encoded as the index of the value among the sorted
// distinct values of that column.
func parseIncome(r io.Reader) (frame.Frame, []string, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	width := len(incomeColumns) + 1
	var raw [][]string
	var y []string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return frame.Frame{}, nil, err
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		if len(rec) != width {
			return frame.Frame{}, nil, fmt.Errorf("%w: expected %d fields, got %d", ErrMalformed, width, len(rec))
		}
		if rec[0] == "age" {
			continue
		}
		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
		}
		raw = append(raw, rec[:width-1])
		y = append(y, strings.TrimSuffix(rec[width-1], "."))
	}
	if len(raw) == 0 {
		return frame.Frame{}, nil, fmt.Errorf("%w: empty income data", ErrMalformed)
	}

	encoders := make(map[int]map[string]float64)
	for c := range incomeColumns {
		if incomeNumeric[c] {
			continue
		}
		encoders[c] = encodeColumn(raw, c)
	}

	rows := make([][]float64, len(raw))
	for i, rec := range raw {
		row := make([]float64, len(rec))
		for c, v := range rec {
			if enc, ok := encoders[c]; ok {
				row[c] = enc[v]

				continue
			}
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return frame.Frame{}, nil, fmt.Errorf("%w: row %d column %s: %w", ErrMalformed, i+1, incomeColumns[c], err)
			}
			row[c] = f
		}
		rows[i] = row
	}

	x, err := frame.New(slices.Clone(incomeColumns), rows)

	return x, y, err
}

func encodeColumn(raw [][]string, c int) map[string]float64 {
	seen := make(map[string]bool)
	for _, rec := range raw {
		seen[rec[c]] = true
	}
	values := make([]string, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	slices.Sort(values)

	enc := make(map[string]float64, len(values))
	for i, v := range values {
		enc[v] = float64(i)
	}

	return enc
}
