// Package resolve turns validated request specs into query plans.
//
// Each resolver is a pure transformation from validated input to an
// immutable result struct; nothing here mutates shared state. The three
// resolvers (dimensions, metrics, date ranges) are independent, and
// BuildPlans assembles their outputs into the one or two plans a request
// needs.
package resolve

import (
	"fmt"

	"github.com/roach88/salescope/internal/catalog"
	"github.com/roach88/salescope/internal/queryplan"
	"github.com/roach88/salescope/internal/request"
)

// DimensionResolution is the dimension resolver's output.
type DimensionResolution struct {
	// GroupingKeys are path-qualified grouping columns in request order.
	// The time-bucket column, when present, appears at its request
	// position under its bucket name.
	GroupingKeys []string

	// TimeBucket is set when the request groups on the interval
	// pseudo-dimension.
	TimeBucket *queryplan.TimeBucket

	// PreFilters are the dimension filters translated to path-qualified
	// conditions.
	PreFilters []queryplan.Filter

	// RenameMap maps path-qualified output columns to their short
	// display names. Only columns whose display name differs appear.
	RenameMap map[string]string

	// JoinHints lists each grouped dimension's relationship path.
	JoinHints []string

	// HasProduct reports whether the product dimension was requested.
	// The product_article / product_barcode literal metrics depend on it.
	HasProduct bool
}

// Dimensions resolves validated dimension specs in request order.
//
// Request order decides output column order but not correctness. The
// validator has already rejected unknown names, bad filter fields and a
// second interval dimension, so any of those here is an internal fault.
func Dimensions(specs []request.DimensionSpec) (DimensionResolution, error) {
	res := DimensionResolution{RenameMap: map[string]string{}}

	for _, spec := range specs {
		if gran, ok := catalog.ParseGranularity(spec.Name); ok {
			if res.TimeBucket != nil {
				return DimensionResolution{}, fmt.Errorf("duplicate time-bucket dimension %q", spec.Name)
			}
			res.TimeBucket = &queryplan.TimeBucket{Column: spec.Name, Granularity: gran}
			res.GroupingKeys = append(res.GroupingKeys, spec.Name)
			continue
		}

		dim, ok := catalog.DimensionByName(spec.Name)
		if !ok {
			return DimensionResolution{}, fmt.Errorf("unknown dimension %q", spec.Name)
		}
		if dim.Name == "product" {
			res.HasProduct = true
		}

		for _, field := range dim.KeyFields {
			qualified := dim.QualifiedField(field)
			res.GroupingKeys = append(res.GroupingKeys, qualified)
			if display := dim.DisplayField(field); display != qualified {
				res.RenameMap[qualified] = display
			}
		}

		for _, filter := range spec.Filtering {
			res.PreFilters = append(res.PreFilters, queryplan.Filter{
				Field:    dim.QualifiedField(filter.Field),
				Operator: queryplan.Operator(filter.Operator),
				Value:    filter.Value,
			})
		}

		res.JoinHints = append(res.JoinHints, dim.Path)
	}

	return res, nil
}
