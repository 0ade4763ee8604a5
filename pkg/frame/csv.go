package frame

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
)

var ErrLabelColumn = errors.New("label column not found")

// WriteCSV writes the frame with the labels appended as the last column.
// Missing cells are written as empty fields.
func WriteCSV(w io.Writer, f Frame, labelName string, labels []string) error {
	if len(labels) != f.NumRows() {
		return fmt.Errorf("%w: %d labels for %d rows", ErrRaggedRows, len(labels), f.NumRows())
	}

	cw := csv.NewWriter(w)
	header := append(append([]string{}, f.Columns...), labelName)
	if err := cw.Write(header); err != nil {
		return err
	}
	record := make([]string, len(header))
	for i, row := range f.Rows {
		for j, v := range row {
			if IsMissing(v) {
				record[j] = ""

				continue
			}
			record[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		record[len(record)-1] = labels[i]
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()

	return cw.Error()
}

// ReadCSV reads a numeric CSV with a header row, splitting off labelName as
// the label vector. Empty fields and "NaN" are read as missing.
func ReadCSV(r io.Reader, labelName string) (Frame, []string, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return Frame{}, nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	labelIdx := -1
	var cols []string
	for i, h := range header {
		if h == labelName {
			labelIdx = i

			continue
		}
		cols = append(cols, h)
	}
	if labelIdx < 0 {
		return Frame{}, nil, fmt.Errorf("%w: %s", ErrLabelColumn, labelName)
	}

	var rows [][]float64
	var labels []string
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Frame{}, nil, fmt.Errorf("failed to read csv line %d: %w", line, err)
		}
		row := make([]float64, 0, len(cols))
		for i, field := range record {
			if i == labelIdx {
				labels = append(labels, field)

				continue
			}
			if field == "" || field == "NaN" {
				row = append(row, Missing())

				continue
			}
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return Frame{}, nil, fmt.Errorf("line %d column %s: %w", line, header[i], err)
			}
			row = append(row, v)
		}
		rows = append(rows, row)
	}

	f, err := New(cols, rows)
	if err != nil {
		return Frame{}, nil, err
	}

	return f, labels, nil
}
