// Package post applies the presentation passes that follow the diff
// engine: column renames, free-text search, sorting, and the totals row.
package post

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/roach88/salescope/internal/catalog"
	"github.com/roach88/salescope/internal/queryplan"
	"github.com/roach88/salescope/internal/request"
)

// Rename applies the dimension resolver's rename map to every row,
// returning a new table. Columns without a rename entry pass through.
func Rename(t queryplan.Table, renames map[string]string) queryplan.Table {
	if len(renames) == 0 {
		return t
	}
	out := make(queryplan.Table, len(t))
	for i, row := range t {
		renamed := make(queryplan.Row, len(row))
		for col, val := range row {
			if display, ok := renames[col]; ok {
				col = display
			}
			renamed[col] = val
		}
		out[i] = renamed
	}
	return out
}

// RenameColumns maps an ordered column list through the rename map.
func RenameColumns(columns []string, renames map[string]string) []string {
	out := make([]string, len(columns))
	for i, col := range columns {
		if display, ok := renames[col]; ok {
			col = display
		}
		out[i] = col
	}
	return out
}

// Search keeps rows whose field's string form contains the value as a
// case-sensitive substring. The field must be a dimension-exposed display
// column; anything else is a validation error.
func Search(t queryplan.Table, field, value string) (queryplan.Table, error) {
	if !catalog.DisplayFieldKnown(field) {
		return nil, request.NewValidationError("search", request.CodeInvalidSearchField,
			fmt.Sprintf("%q is not a searchable dimension field", field))
	}
	if value == "" {
		return t, nil
	}

	out := make(queryplan.Table, 0, len(t))
	for _, row := range t {
		if strings.Contains(fmt.Sprint(row[field]), value) {
			out = append(out, row)
		}
	}
	return out, nil
}

// Sort orders rows by a metric column, descending when the field carries
// a "-" prefix. String values collate deterministically; numeric values
// compare numerically; nil sorts first.
func Sort(t queryplan.Table, orderBy string) (queryplan.Table, error) {
	field := strings.TrimPrefix(orderBy, "-")
	descending := strings.HasPrefix(orderBy, "-")

	if !catalog.IsMetricColumn(field) {
		return nil, request.NewValidationError("ordering", request.CodeInvalidSortField,
			fmt.Sprintf("%q is not a sortable metric column", field))
	}

	out := make(queryplan.Table, len(t))
	copy(out, t)

	coll := collate.New(language.Und)
	less := func(a, b queryplan.Row) bool {
		return compareScalars(coll, a[field], b[field]) < 0
	}
	stableSort(out, less, descending)
	return out, nil
}

// compareScalars orders two scalars: nil < numbers < strings.
func compareScalars(coll *collate.Collator, a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}

	af, aOK := request.CoerceFloat(a)
	bf, bOK := request.CoerceFloat(b)
	switch {
	case aOK && bOK:
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	case aOK:
		return -1
	case bOK:
		return 1
	default:
		return coll.CompareString(fmt.Sprint(a), fmt.Sprint(b))
	}
}

// stableSort is insertion sort: stable, and the tables here are
// response-page sized.
func stableSort(t queryplan.Table, less func(a, b queryplan.Row) bool, descending bool) {
	cmp := less
	if descending {
		cmp = func(a, b queryplan.Row) bool { return less(b, a) }
	}
	for i := 1; i < len(t); i++ {
		for j := i; j > 0 && cmp(t[j], t[j-1]); j-- {
			t[j], t[j-1] = t[j-1], t[j]
		}
	}
}

// Totals computes the synthetic trailing row: numeric metric columns are
// summed (2-decimal rounding), date metrics take their min/max, the first
// column carries the "Totals" sentinel, and everything else gets the "-"
// placeholder. Returns nil for an empty table.
func Totals(t queryplan.Table, columns []string) queryplan.Row {
	if len(t) == 0 || len(columns) == 0 {
		return nil
	}

	totals := make(queryplan.Row, len(columns))
	for i, col := range columns {
		switch {
		case i == 0:
			totals[col] = "Totals"
		case summableColumn(col):
			totals[col] = sumColumn(t, col)
		case dateAggColumn(col, queryplan.AggMin):
			totals[col] = foldDates(t, col, func(a, b string) bool { return a < b })
		case dateAggColumn(col, queryplan.AggMax):
			totals[col] = foldDates(t, col, func(a, b string) bool { return a > b })
		default:
			totals[col] = "-"
		}
	}
	return totals
}

// summableColumn reports whether a column is a numeric metric (base or
// derived). Literal string metrics and date metrics are not summable.
func summableColumn(col string) bool {
	if m, ok := catalog.MetricByName(col); ok {
		return m.Domain == catalog.DomainNumeric
	}
	_, _, ok := catalog.ParseDerived(col)
	return ok
}

func dateAggColumn(col string, family queryplan.AggFamily) bool {
	m, ok := catalog.MetricByName(col)
	return ok && m.Domain == catalog.DomainDate && m.Family == family
}

func sumColumn(t queryplan.Table, col string) float64 {
	sum := decimal.Zero
	for _, row := range t {
		if f, ok := request.CoerceFloat(row[col]); ok {
			sum = sum.Add(decimal.NewFromFloat(f))
		}
	}
	return sum.Round(2).InexactFloat64()
}

// foldDates folds a date column's string values with the given winner
// predicate, skipping nil and placeholder values.
func foldDates(t queryplan.Table, col string, wins func(a, b string) bool) any {
	best := ""
	for _, row := range t {
		s, ok := row[col].(string)
		if !ok || s == "" || s == "-" {
			continue
		}
		if best == "" || wins(s, best) {
			best = s
		}
	}
	if best == "" {
		return "-"
	}
	return best
}
