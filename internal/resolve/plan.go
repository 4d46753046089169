package resolve

import (
	"github.com/roach88/salescope/internal/queryplan"
	"github.com/roach88/salescope/internal/request"
)

// Plans is the full resolution of one validated request: the
// current-range plan, the adapted previous-range plan when derived
// metrics exist, and the resolver outputs the later pipeline stages need.
type Plans struct {
	Current  queryplan.Plan
	Previous *queryplan.Plan

	Dimension DimensionResolution
	Metric    MetricResolution
	Ranges    request.DateRangePair
}

// BuildPlans runs the three resolvers over a validated request and
// assembles the query plans.
func BuildPlans(v *request.Validated) (Plans, error) {
	dims, err := Dimensions(v.Dimensions)
	if err != nil {
		return Plans{}, err
	}
	mets, err := Metrics(v.Metrics, dims.HasProduct)
	if err != nil {
		return Plans{}, err
	}
	dates := DateRanges(v.Ranges)

	plans := Plans{
		Dimension: dims,
		Metric:    mets,
		Ranges:    v.Ranges,
	}

	plans.Current = queryplan.Plan{
		GroupingKeys: dims.GroupingKeys,
		TimeBucket:   dims.TimeBucket,
		PreFilters:   concatFilters(dims.PreFilters, dates.Current),
		Aggregations: mets.Aggregations,
		PostFilters:  mets.PostFilters,
		JoinHints:    dims.JoinHints,
	}

	if mets.RequiresPrevious() {
		plans.Previous = &queryplan.Plan{
			GroupingKeys: dims.GroupingKeys,
			TimeBucket:   dims.TimeBucket,
			PreFilters:   concatFilters(dims.PreFilters, dates.Previous),
			Aggregations: mets.AdaptedAggregations,
			PostFilters:  mets.AdaptedPostFilters,
			JoinHints:    dims.JoinHints,
		}
	}

	return plans, nil
}

func concatFilters(a, b []queryplan.Filter) []queryplan.Filter {
	out := make([]queryplan.Filter, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	return out
}
