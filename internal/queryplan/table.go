package queryplan

// Row is one result record: column name → scalar. Scalars are the plain
// values a database driver produces: int64, float64, string, or nil.
type Row map[string]any

// Table is an ordered sequence of rows sharing one plan's column set.
// Order is meaningful: QueryEngine implementations must produce rows in a
// deterministic order so that positional alignment of two tables is
// well-defined.
type Table []Row

// Clone returns a deep copy of the row. Diff passes extend rows with new
// columns and must never mutate their inputs.
func (r Row) Clone() Row {
	out := make(Row, len(r)+2)
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Has reports whether the row carries the column (even when nil).
func (r Row) Has(column string) bool {
	_, ok := r[column]
	return ok
}

// Clone returns a table whose rows are independent copies.
func (t Table) Clone() Table {
	out := make(Table, len(t))
	for i, row := range t {
		out[i] = row.Clone()
	}
	return out
}
