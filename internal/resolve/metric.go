package resolve

import (
	"fmt"

	"github.com/roach88/salescope/internal/catalog"
	"github.com/roach88/salescope/internal/queryplan"
	"github.com/roach88/salescope/internal/request"
)

// DerivedMetric is a diff or diff-percent metric scheduled for the
// temporal-diff pass. Its options apply to the diffed column, not to the
// base aggregation.
type DerivedMetric struct {
	// Name is the requested column, e.g. "turnover_diff_percent".
	Name string

	// Base is the base metric's name; its value must exist in both the
	// current-range and previous-range tables.
	Base string

	// Percent selects percentage difference over raw difference.
	Percent bool

	Options []request.MetricOption
}

// MetricResolution is the metric resolver's output.
type MetricResolution struct {
	// Aggregations are the base metric expressions for the current-range
	// plan, in request order; synthesized bases (required by a derived
	// metric but not explicitly requested) follow the requested ones.
	Aggregations []queryplan.AggregationExpr

	// PostFilters are the base metrics' options as post-aggregation
	// conditions.
	PostFilters []queryplan.Filter

	// Derived lists the diff metrics for the second pass, in request
	// order.
	Derived []DerivedMetric

	// AdaptedAggregations and AdaptedPostFilters form the narrowed
	// previous-range plan: only base metrics some derived metric depends
	// on. Empty when Derived is empty.
	AdaptedAggregations []queryplan.AggregationExpr
	AdaptedPostFilters  []queryplan.Filter
}

// RequiresPrevious reports whether a previous-range query is needed.
func (r MetricResolution) RequiresPrevious() bool {
	return len(r.Derived) > 0
}

// Metrics resolves validated metric specs.
//
// hasProduct controls the literal metrics: product_article and
// product_barcode project the product's field only when the product
// dimension is grouped, and the placeholder "-" otherwise.
func Metrics(specs []request.MetricSpec, hasProduct bool) (MetricResolution, error) {
	var res MetricResolution

	// Pass 1: classify into base and derived.
	var bases []request.MetricSpec
	baseNames := map[string]bool{}
	for _, spec := range specs {
		if _, ok := catalog.MetricByName(spec.Name); ok {
			bases = append(bases, spec)
			baseNames[spec.Name] = true
			continue
		}
		base, percent, ok := catalog.ParseDerived(spec.Name)
		if !ok {
			return MetricResolution{}, fmt.Errorf("unknown metric %q", spec.Name)
		}
		res.Derived = append(res.Derived, DerivedMetric{
			Name:    spec.Name,
			Base:    base.Name,
			Percent: percent,
			Options: spec.Options,
		})
	}

	// Pass 2: synthesize bases a derived metric needs but the request
	// did not ask for. The diff pass needs the base value in both
	// ranges either way.
	diffBases := map[string]bool{}
	for _, d := range res.Derived {
		diffBases[d.Base] = true
		if !baseNames[d.Base] {
			bases = append(bases, request.MetricSpec{Name: d.Base})
			baseNames[d.Base] = true
		}
	}

	// Pass 3: build aggregation expressions and post filters.
	for _, spec := range bases {
		metric, _ := catalog.MetricByName(spec.Name)
		res.Aggregations = append(res.Aggregations, buildAggregation(metric, hasProduct))
		for _, opt := range spec.Options {
			res.PostFilters = append(res.PostFilters, queryplan.Filter{
				Field:    spec.Name,
				Operator: queryplan.Operator(opt.Operator),
				Value:    opt.Value,
			})
		}
	}

	// Pass 4: narrow the previous-range plan to the bases that feed a
	// derived metric, so unused aggregations are not computed twice.
	if len(res.Derived) > 0 {
		for _, agg := range res.Aggregations {
			if diffBases[agg.Name] {
				res.AdaptedAggregations = append(res.AdaptedAggregations, agg)
			}
		}
		for _, filter := range res.PostFilters {
			if diffBases[filter.Field] {
				res.AdaptedPostFilters = append(res.AdaptedPostFilters, filter)
			}
		}
	}

	return res, nil
}

// buildAggregation resolves one base metric to its expression.
func buildAggregation(metric catalog.Metric, hasProduct bool) queryplan.AggregationExpr {
	expr := queryplan.AggregationExpr{
		Name:   metric.Name,
		Family: metric.Family,
		Field:  metric.Field,
		Round:  metric.Round,
	}
	if metric.Family == queryplan.AggLiteral && !hasProduct {
		// Without the product dimension there is no product to project
		// from; the column degrades to the placeholder literal.
		expr.Field = ""
	}
	return expr
}
