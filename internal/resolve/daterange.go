package resolve

import (
	"github.com/roach88/salescope/internal/queryplan"
	"github.com/roach88/salescope/internal/request"
)

// DateFilters carries the inclusive date-bound conditions for the two
// plans. Previous is nil when no comparison range exists.
type DateFilters struct {
	Current  []queryplan.Filter
	Previous []queryplan.Filter
}

// dateField is the fact-table sale date every range filter binds to. All
// base aggregations traverse the fact table, so the path is empty.
const dateField = "date"

// DateRanges emits the two inclusive filter pairs for a validated range
// pair.
func DateRanges(pair request.DateRangePair) DateFilters {
	filters := DateFilters{Current: rangeFilters(pair.Current)}
	if pair.Previous != nil {
		filters.Previous = rangeFilters(*pair.Previous)
	}
	return filters
}

func rangeFilters(r request.DateRange) []queryplan.Filter {
	return []queryplan.Filter{
		{Field: dateField, Operator: queryplan.OpGTE, Value: r.Start.Format(request.DateLayout)},
		{Field: dateField, Operator: queryplan.OpLTE, Value: r.End.Format(request.DateLayout)},
	}
}
