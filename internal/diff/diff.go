// Package diff implements the temporal-diff pass: merging an aggregated
// current-range table with its previous-range counterpart and computing
// the derived (_diff / _diff_percent) columns.
//
// The pass is a hash join plus a row transform over plain row
// collections. It is pure: input tables are never mutated, and running it
// twice over the same inputs yields identical output.
package diff

import (
	"fmt"
	"strings"

	"github.com/roach88/salescope/internal/catalog"
	"github.com/roach88/salescope/internal/queryplan"
	"github.com/roach88/salescope/internal/request"
	"github.com/roach88/salescope/internal/resolve"
)

// Input carries everything one diff pass needs. Both tables come from
// plans built off the same dimension resolution, so they share grouping
// columns; a divergence is a ConsistencyError.
type Input struct {
	// Current and Previous are the two aggregated tables. Previous may
	// be empty (no groups matched the comparison range).
	Current  queryplan.Table
	Previous queryplan.Table

	// Derived lists the diff metrics to compute, in output order.
	Derived []resolve.DerivedMetric

	// GroupingKeys are the plan's grouping columns in order; the join
	// key is derived from them by dropping the time-bucket column.
	GroupingKeys []string

	// MetricColumns are the current plan's aggregation outputs; they are
	// never part of the join key.
	MetricColumns []string

	// TimeBucket is the interval grouping, when present. Needed for
	// range-length alignment.
	TimeBucket *queryplan.TimeBucket

	// CurrentRange and PreviousRange are the request's date ranges.
	// PreviousRange is nil only when Derived is empty.
	CurrentRange  request.DateRange
	PreviousRange *request.DateRange
}

// Apply computes the diffed table.
//
// With a time-bucket grouping and a previous range strictly shorter than
// the current one, the leading current buckets have no prior-period
// counterpart: they are split off, given identity diffs (diff == base
// value), and re-attached ahead of the merged rows. The remaining rows
// are merged against the previous table on the grouping columns, or
// positionally when the grouping is time-bucket-only.
func Apply(in Input) (queryplan.Table, error) {
	if len(in.Current) == 0 {
		return queryplan.Table{}, nil
	}
	if len(in.Derived) == 0 {
		return in.Current, nil
	}

	current := in.Current
	var unmatched queryplan.Table

	if in.TimeBucket != nil && in.PreviousRange != nil {
		prevSpan := in.PreviousRange.Duration()
		currSpan := in.CurrentRange.Duration()
		if prevSpan < currSpan {
			cutoff := catalog.FormatBucket(
				in.CurrentRange.End.Add(-prevSpan), in.TimeBucket.Granularity)
			var cut queryplan.Table
			cut, current = splitByCutoff(current, in.TimeBucket.Column, cutoff)
			unmatched = identityDiff(cut, in.Derived)
		}
	}

	key, err := joinKey(in, current)
	if err != nil {
		return nil, err
	}

	var merged queryplan.Table
	switch {
	case len(in.Previous) == 0:
		merged = identityDiff(current, in.Derived)
	case len(key) > 0:
		merged = mergeByKey(current, in.Previous, key, in.Derived)
	default:
		merged = mergePositional(current, in.Previous, in.Derived)
	}

	out := make(queryplan.Table, 0, len(unmatched)+len(merged))
	out = append(out, unmatched...)
	out = append(out, merged...)
	return out, nil
}

// splitByCutoff partitions rows on the bucket column: values strictly
// before the cutoff have no comparable prior-period bucket. Bucket values
// are ISO-layout strings, so lexical order is chronological order.
func splitByCutoff(t queryplan.Table, bucketColumn, cutoff string) (before, from queryplan.Table) {
	for _, row := range t {
		if bucketValue(row, bucketColumn) < cutoff {
			before = append(before, row)
		} else {
			from = append(from, row)
		}
	}
	return before, from
}

func bucketValue(row queryplan.Row, column string) string {
	if s, ok := row[column].(string); ok {
		return s
	}
	return fmt.Sprint(row[column])
}

// identityDiff applies the nullable-diff rule: with nothing to compare
// against, every derived column equals its base column unchanged, for
// percent diffs too. Option filters still apply.
func identityDiff(t queryplan.Table, derived []resolve.DerivedMetric) queryplan.Table {
	out := make(queryplan.Table, 0, len(t))
rows:
	for _, row := range t {
		augmented := row.Clone()
		for _, d := range derived {
			augmented[d.Name] = augmented[d.Base]
			if !matchesAllOptions(augmented[d.Name], d.Options) {
				continue rows
			}
		}
		out = append(out, augmented)
	}
	return out
}

// joinKey derives the join columns: every grouping key except the
// time-bucket column, verified present in both tables. A missing column
// means the two plans diverged, which is fatal.
func joinKey(in Input, current queryplan.Table) ([]string, error) {
	var key []string
	for _, col := range in.GroupingKeys {
		if in.TimeBucket != nil && col == in.TimeBucket.Column {
			continue
		}
		if len(current) > 0 && !current[0].Has(col) {
			return nil, newJoinKeyMismatch(col, "current")
		}
		if len(in.Previous) > 0 && !in.Previous[0].Has(col) {
			return nil, newJoinKeyMismatch(col, "previous")
		}
		key = append(key, col)
	}
	return key, nil
}

// keyOf builds the hash-join key for a row: the join columns' values in
// order, joined with an unlikely separator.
func keyOf(row queryplan.Row, key []string) string {
	parts := make([]string, len(key))
	for i, col := range key {
		parts[i] = normalizeKeyValue(row[col])
	}
	return strings.Join(parts, "\x1f")
}

// normalizeKeyValue renders a join-key scalar so that equal values
// compare equal across driver representations (int64 vs float64 ids).
func normalizeKeyValue(v any) string {
	if f, ok := request.CoerceFloat(v); ok {
		if f == float64(int64(f)) {
			return fmt.Sprintf("%d", int64(f))
		}
		return fmt.Sprintf("%v", f)
	}
	return fmt.Sprint(v)
}

// mergeByKey is the strict equality join on all join-key columns at once.
// Current rows without a previous-side match keep their base value as the
// diff (the nullable-diff rule applies uniformly here).
func mergeByKey(current, previous queryplan.Table, key []string, derived []resolve.DerivedMetric) queryplan.Table {
	index := make(map[string]queryplan.Row, len(previous))
	for _, row := range previous {
		k := keyOf(row, key)
		if _, exists := index[k]; !exists {
			index[k] = row
		}
	}

	out := make(queryplan.Table, 0, len(current))
rows:
	for _, row := range current {
		augmented := row.Clone()
		prev := index[keyOf(row, key)]
		for _, d := range derived {
			augmented[d.Name] = diffValue(augmented, prev, d)
			if !matchesAllOptions(augmented[d.Name], d.Options) {
				continue rows
			}
		}
		out = append(out, augmented)
	}
	return out
}

// mergePositional aligns the two tables row-by-row. Used when the
// grouping is time-bucket-only: both tables arrive in bucket order from
// the QueryEngine, so row i of one corresponds to row i of the other.
// Excess previous rows are ignored; excess current rows fall back to the
// nullable diff.
func mergePositional(current, previous queryplan.Table, derived []resolve.DerivedMetric) queryplan.Table {
	out := make(queryplan.Table, 0, len(current))
rows:
	for i, row := range current {
		augmented := row.Clone()
		var prev queryplan.Row
		if i < len(previous) {
			prev = previous[i]
		}
		for _, d := range derived {
			augmented[d.Name] = diffValue(augmented, prev, d)
			if !matchesAllOptions(augmented[d.Name], d.Options) {
				continue rows
			}
		}
		out = append(out, augmented)
	}
	return out
}

// diffValue computes one derived column for one row pair. A missing
// previous row, or a previous value that is absent or not numeric, means
// no comparison is available: the base value passes through unchanged.
func diffValue(current, previous queryplan.Row, d resolve.DerivedMetric) any {
	prevVal, prevOK := float64(0), false
	if previous != nil {
		prevVal, prevOK = request.CoerceFloat(previous[d.Base])
	}
	if !prevOK {
		return current[d.Base]
	}

	currVal, _ := request.CoerceFloat(current[d.Base])
	if d.Percent {
		return percentDiff(currVal, prevVal)
	}
	return subtract(currVal, prevVal)
}
