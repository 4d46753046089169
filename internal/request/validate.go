package request

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/roach88/salescope/internal/catalog"
	"github.com/roach88/salescope/internal/queryplan"
)

// Validate checks a raw request against the catalogs and returns its
// validated form. On failure the returned error is a *ValidationError
// carrying every violation found, not just the first.
//
// Validate is a pure function: it never mutates the input request.
func Validate(req Request) (*Validated, error) {
	v := &validator{}

	v.checkDimensions(req.Dimensions)
	hasDerived := v.checkMetrics(req.Metrics)
	ranges := v.checkDateRanges(req.DateRange, req.PrevDateRange, hasDerived)

	if len(v.violations) > 0 {
		return nil, &ValidationError{Violations: v.violations}
	}

	return &Validated{
		Dimensions: req.Dimensions,
		Metrics:    req.Metrics,
		Ranges:     ranges,
	}, nil
}

// validator accumulates violations during a single pass.
type validator struct {
	violations []Violation
}

func (v *validator) add(field string, code ViolationCode, format string, args ...any) {
	v.violations = append(v.violations, Violation{
		Field:   field,
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	})
}

func (v *validator) checkDimensions(specs []DimensionSpec) {
	if len(specs) == 0 {
		v.add("dimensions", CodeEmptyDimensions, "at least one dimension is required")
		return
	}

	intervalSeen := false
	for i, spec := range specs {
		field := fmt.Sprintf("dimensions[%d]", i)

		if _, ok := catalog.ParseGranularity(spec.Name); ok {
			if intervalSeen {
				v.add(field+".name", CodeDuplicateInterval,
					"only one time-bucket dimension is allowed per request")
			}
			intervalSeen = true
			if len(spec.Filtering) > 0 {
				v.add(field+".filtering", CodeInvalidFilterField,
					"the time-bucket dimension does not accept filters")
			}
			continue
		}

		dim, ok := catalog.DimensionByName(spec.Name)
		if !ok {
			v.add(field+".name", CodeUnknownDimension, "unknown dimension %q", spec.Name)
			continue
		}

		for j, filter := range spec.Filtering {
			v.checkFieldFilter(fmt.Sprintf("%s.filtering[%d]", field, j), dim, filter)
		}
	}
}

func (v *validator) checkFieldFilter(field string, dim catalog.Dimension, filter FieldFilter) {
	kind, ok := dim.FilterFields[filter.Field]
	if !ok {
		v.add(field+".field", CodeInvalidFilterField,
			"dimension %q has no filterable field %q", dim.Name, filter.Field)
		return
	}

	op := queryplan.Operator(filter.Operator)
	_, isList := filter.Value.([]any)

	switch op {
	case queryplan.OpIn:
		if !isList {
			v.add(field+".value", CodeInvalidFilterValue,
				"operator %q requires a list value", op)
		}
		return
	case queryplan.OpIContains, queryplan.OpIExact:
		if kind != catalog.FieldString {
			v.add(field+".operator", CodeInvalidFilterValue,
				"operator %q applies to string fields only", op)
			return
		}
		if _, ok := filter.Value.(string); !ok {
			v.add(field+".value", CodeInvalidFilterValue,
				"operator %q requires a string value", op)
		}
		return
	case queryplan.OpExact, queryplan.OpExclude,
		queryplan.OpLT, queryplan.OpLTE, queryplan.OpGT, queryplan.OpGTE:
		// Scalar operators never take lists.
	default:
		v.add(field+".operator", CodeInvalidFilterValue,
			"unknown filter operator %q", filter.Operator)
		return
	}

	if isList {
		v.add(field+".value", CodeInvalidFilterValue,
			"list values are only valid with the %q operator", queryplan.OpIn)
		return
	}
	if kind == catalog.FieldNumeric {
		if _, ok := CoerceFloat(filter.Value); !ok {
			v.add(field+".value", CodeInvalidFilterValue,
				"field %q expects a numeric value", filter.Field)
		}
	}
}

// checkMetrics validates every metric spec and reports whether any
// derived (_diff / _diff_percent) metric was requested.
func (v *validator) checkMetrics(specs []MetricSpec) bool {
	if len(specs) == 0 {
		v.add("metrics", CodeEmptyMetrics, "at least one metric is required")
		return false
	}

	hasDerived := false
	for i, spec := range specs {
		field := fmt.Sprintf("metrics[%d]", i)

		if metric, ok := catalog.MetricByName(spec.Name); ok {
			v.checkMetricOptions(field, spec, catalog.OptionOperators(metric.Domain), metric.Domain)
			continue
		}
		if _, _, ok := catalog.ParseDerived(spec.Name); ok {
			hasDerived = true
			v.checkMetricOptions(field, spec, catalog.DerivedOptionOperators(), catalog.DomainNumeric)
			continue
		}

		v.add(field+".name", CodeUnknownMetric, "unknown metric %q", spec.Name)
	}
	return hasDerived
}

func (v *validator) checkMetricOptions(field string, spec MetricSpec, allowed []queryplan.Operator, domain catalog.ValueDomain) {
	for j, opt := range spec.Options {
		optField := fmt.Sprintf("%s.options[%d]", field, j)

		if !operatorAllowed(queryplan.Operator(opt.Operator), allowed) {
			v.add(optField+".operator", CodeInvalidMetricOption,
				"operator %q is not valid for metric %q", opt.Operator, spec.Name)
			continue
		}

		switch domain {
		case catalog.DomainNumeric:
			if _, ok := CoerceFloat(opt.Value); !ok {
				v.add(optField+".value", CodeInvalidMetricOption,
					"metric %q expects a numeric option value", spec.Name)
			}
		case catalog.DomainDate:
			s, ok := opt.Value.(string)
			if !ok {
				v.add(optField+".value", CodeInvalidMetricOption,
					"metric %q expects an ISO date option value", spec.Name)
				continue
			}
			if _, err := time.Parse(DateLayout, s); err != nil {
				v.add(optField+".value", CodeInvalidMetricOption,
					"metric %q expects an ISO date option value, got %q", spec.Name, s)
			}
		case catalog.DomainString:
			if _, ok := opt.Value.(string); !ok {
				v.add(optField+".value", CodeInvalidMetricOption,
					"metric %q expects a string option value", spec.Name)
			}
		}
	}
}

func operatorAllowed(op queryplan.Operator, allowed []queryplan.Operator) bool {
	for _, a := range allowed {
		if a == op {
			return true
		}
	}
	return false
}

// checkDateRanges validates both ranges and assembles the pair. The
// previous range is mandatory exactly when a derived metric is present;
// a previous range supplied without one is ignored.
func (v *validator) checkDateRanges(current, previous []string, hasDerived bool) DateRangePair {
	pair := DateRangePair{}

	if r, ok := v.checkRange("date_range", current); ok {
		pair.Current = r
	}

	if !hasDerived {
		return pair
	}
	if len(previous) == 0 {
		v.add("prev_date_range", CodeMissingComparisonRange,
			"derived metrics require a comparison date range")
		return pair
	}
	if r, ok := v.checkRange("prev_date_range", previous); ok {
		pair.Previous = &r
	}
	return pair
}

func (v *validator) checkRange(field string, bounds []string) (DateRange, bool) {
	if len(bounds) != 2 {
		v.add(field, CodeInvalidDateRange, "expected exactly two ISO dates, got %d", len(bounds))
		return DateRange{}, false
	}

	start, err := time.Parse(DateLayout, bounds[0])
	if err != nil {
		v.add(field, CodeInvalidDateRange, "invalid start date %q", bounds[0])
		return DateRange{}, false
	}
	end, err := time.Parse(DateLayout, bounds[1])
	if err != nil {
		v.add(field, CodeInvalidDateRange, "invalid end date %q", bounds[1])
		return DateRange{}, false
	}
	if !start.Before(end) {
		v.add(field, CodeInvalidDateRange,
			"start date %s must be before end date %s", bounds[0], bounds[1])
		return DateRange{}, false
	}
	return DateRange{Start: start, End: end}, true
}

// CoerceFloat converts the scalar representations JSON and YAML decoders
// produce (float64, int, int64, json.Number, numeric strings from SQL
// drivers) to a float64.
func CoerceFloat(value any) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
