// Package request defines the analytics request wire shape and its
// validator.
//
// Validation is a separate phase from resolution: the validator checks
// every request rule and reports all violations together, so a
// caller can fix a request in one round trip. Resolution (package resolve)
// then assumes validated input.
package request

import "time"

// DateLayout is the wire format of all request dates.
const DateLayout = "2006-01-02"

// Request is the untyped analytics request as received from a caller.
type Request struct {
	Dimensions    []DimensionSpec `json:"dimensions"`
	Metrics       []MetricSpec    `json:"metrics"`
	DateRange     []string        `json:"date_range"`
	PrevDateRange []string        `json:"prev_date_range,omitempty"`
}

// DimensionSpec names a grouping dimension with optional pre-filters.
type DimensionSpec struct {
	Name      string        `json:"name"`
	Filtering []FieldFilter `json:"filtering,omitempty"`
}

// FieldFilter restricts a dimension field before aggregation.
type FieldFilter struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    any    `json:"value"`
}

// MetricSpec names a metric with optional post-aggregation options.
type MetricSpec struct {
	Name    string         `json:"name"`
	Options []MetricOption `json:"options,omitempty"`
}

// MetricOption restricts a metric's aggregated (or diffed) value.
type MetricOption struct {
	Operator string `json:"operator"`
	Value    any    `json:"value"`
}

// DateRange is a validated inclusive date range with Start before End.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Duration returns the span of the range.
func (r DateRange) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// DateRangePair carries the current range and, when derived metrics are
// requested, the comparison range.
type DateRangePair struct {
	Current  DateRange
	Previous *DateRange
}

// Validated is the validator's output: the request's specs with every
// invariant checked, plus the parsed ranges.
type Validated struct {
	Dimensions []DimensionSpec
	Metrics    []MetricSpec
	Ranges     DateRangePair
}
