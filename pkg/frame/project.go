package frame

// DropColumns removes the columns at the given indices. Indices outside the
// frame are ignored. When nothing is dropped the input frame is returned as is.
func DropColumns(f Frame, indices []int) Frame {
	drop := make(map[int]struct{}, len(indices))
	for _, i := range indices {
		if i >= 0 && i < len(f.Columns) {
			drop[i] = struct{}{}
		}
	}
	if len(drop) == 0 {
		return f
	}

	keep := KeptColumns(len(f.Columns), indices)
	cols := make([]string, len(keep))
	for i, c := range keep {
		cols[i] = f.Columns[c]
	}
	rows := make([][]float64, len(f.Rows))
	for r, row := range f.Rows {
		out := make([]float64, len(keep))
		for i, c := range keep {
			out[i] = row[c]
		}
		rows[r] = out
	}

	return Frame{Columns: cols, Rows: rows}
}

// KeptColumns lists, in ascending order, the indices in [0, n) that are not ignored.
func KeptColumns(n int, ignore []int) []int {
	skip := make(map[int]struct{}, len(ignore))
	for _, i := range ignore {
		skip[i] = struct{}{}
	}
	keep := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if _, ok := skip[i]; !ok {
			keep = append(keep, i)
		}
	}

	return keep
}
