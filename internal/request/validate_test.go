package request

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRequest() Request {
	return Request{
		Dimensions: []DimensionSpec{{Name: "shop"}},
		Metrics:    []MetricSpec{{Name: "turnover"}},
		DateRange:  []string{"2023-03-01", "2023-03-31"},
	}
}

// violationCodes extracts the codes from a validation failure.
func violationCodes(t *testing.T, err error) []ViolationCode {
	t.Helper()
	verr, ok := IsValidationError(err)
	require.True(t, ok, "expected a ValidationError, got %v", err)
	codes := make([]ViolationCode, len(verr.Violations))
	for i, v := range verr.Violations {
		codes[i] = v.Code
	}
	return codes
}

func TestValidate_MinimalRequest(t *testing.T) {
	validated, err := Validate(validRequest())
	require.NoError(t, err)
	assert.Len(t, validated.Dimensions, 1)
	assert.Nil(t, validated.Ranges.Previous)
	assert.Equal(t, "2023-03-01", validated.Ranges.Current.Start.Format(DateLayout))
}

func TestValidate_EmptyDimensions(t *testing.T) {
	req := validRequest()
	req.Dimensions = nil
	_, err := Validate(req)
	assert.Contains(t, violationCodes(t, err), CodeEmptyDimensions)
}

func TestValidate_EmptyMetrics(t *testing.T) {
	req := validRequest()
	req.Metrics = nil
	_, err := Validate(req)
	assert.Contains(t, violationCodes(t, err), CodeEmptyMetrics)
}

func TestValidate_UnknownDimension(t *testing.T) {
	req := validRequest()
	req.Dimensions = append(req.Dimensions, DimensionSpec{Name: "warehouse"})
	_, err := Validate(req)
	assert.Contains(t, violationCodes(t, err), CodeUnknownDimension)
}

func TestValidate_DuplicateInterval(t *testing.T) {
	req := validRequest()
	req.Dimensions = []DimensionSpec{{Name: "day"}, {Name: "shop"}, {Name: "month"}}
	_, err := Validate(req)
	assert.Contains(t, violationCodes(t, err), CodeDuplicateInterval)
}

func TestValidate_IntervalRejectsFilters(t *testing.T) {
	req := validRequest()
	req.Dimensions = []DimensionSpec{{
		Name:      "day",
		Filtering: []FieldFilter{{Field: "name", Operator: "exact", Value: "x"}},
	}}
	_, err := Validate(req)
	assert.Contains(t, violationCodes(t, err), CodeInvalidFilterField)
}

func TestValidate_FilterFieldUnknown(t *testing.T) {
	req := validRequest()
	req.Dimensions = []DimensionSpec{{
		Name:      "shop",
		Filtering: []FieldFilter{{Field: "address", Operator: "exact", Value: "Main St"}},
	}}
	_, err := Validate(req)
	assert.Contains(t, violationCodes(t, err), CodeInvalidFilterField)
}

func TestValidate_FilterOperators(t *testing.T) {
	cases := []struct {
		name   string
		filter FieldFilter
		valid  bool
	}{
		{"exact string", FieldFilter{Field: "name", Operator: "exact", Value: "Shop A"}, true},
		{"icontains string", FieldFilter{Field: "name", Operator: "icontains", Value: "shop"}, true},
		{"iexact on numeric field", FieldFilter{Field: "id", Operator: "iexact", Value: "5"}, false},
		{"icontains non-string value", FieldFilter{Field: "name", Operator: "icontains", Value: 7.0}, false},
		{"in with list", FieldFilter{Field: "id", Operator: "in", Value: []any{1.0, 2.0}}, true},
		{"in without list", FieldFilter{Field: "id", Operator: "in", Value: 1.0}, false},
		{"list outside in", FieldFilter{Field: "id", Operator: "exact", Value: []any{1.0}}, false},
		{"gte numeric", FieldFilter{Field: "id", Operator: "gte", Value: 10.0}, true},
		{"gte non-numeric on numeric field", FieldFilter{Field: "id", Operator: "gte", Value: "abc"}, false},
		{"unknown operator", FieldFilter{Field: "name", Operator: "like", Value: "x"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest()
			req.Dimensions = []DimensionSpec{{Name: "shop", Filtering: []FieldFilter{tc.filter}}}
			_, err := Validate(req)
			if tc.valid {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				codes := violationCodes(t, err)
				assert.NotEmpty(t, codes)
			}
		})
	}
}

func TestValidate_UnknownMetric(t *testing.T) {
	req := validRequest()
	req.Metrics = []MetricSpec{{Name: "profit"}}
	_, err := Validate(req)
	assert.Contains(t, violationCodes(t, err), CodeUnknownMetric)
}

func TestValidate_DerivedOverNonNumericBase(t *testing.T) {
	req := validRequest()
	req.Metrics = []MetricSpec{{Name: "first_product_date_diff"}}
	req.PrevDateRange = []string{"2023-02-01", "2023-02-28"}
	_, err := Validate(req)
	assert.Contains(t, violationCodes(t, err), CodeUnknownMetric)
}

func TestValidate_MetricOptions(t *testing.T) {
	cases := []struct {
		name   string
		metric MetricSpec
		valid  bool
	}{
		{"numeric gte", MetricSpec{Name: "turnover",
			Options: []MetricOption{{Operator: "gte", Value: 100.0}}}, true},
		{"numeric with string value", MetricSpec{Name: "turnover",
			Options: []MetricOption{{Operator: "gte", Value: "lots"}}}, false},
		{"numeric icontains", MetricSpec{Name: "turnover",
			Options: []MetricOption{{Operator: "icontains", Value: "1"}}}, false},
		{"exclude on base metric", MetricSpec{Name: "turnover",
			Options: []MetricOption{{Operator: "exclude", Value: 0.0}}}, false},
		{"string icontains", MetricSpec{Name: "product_article",
			Options: []MetricOption{{Operator: "icontains", Value: "ab"}}}, true},
		{"string gte", MetricSpec{Name: "product_article",
			Options: []MetricOption{{Operator: "gte", Value: "ab"}}}, false},
		{"date exact", MetricSpec{Name: "first_product_date",
			Options: []MetricOption{{Operator: "exact", Value: "2023-03-01"}}}, true},
		{"date bad value", MetricSpec{Name: "first_product_date",
			Options: []MetricOption{{Operator: "exact", Value: "yesterday"}}}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest()
			req.Metrics = []MetricSpec{tc.metric}
			_, err := Validate(req)
			if tc.valid {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, violationCodes(t, err), CodeInvalidMetricOption)
			}
		})
	}
}

func TestValidate_DerivedMetricOptions(t *testing.T) {
	req := validRequest()
	req.Metrics = []MetricSpec{{
		Name:    "turnover_diff",
		Options: []MetricOption{{Operator: "exclude", Value: 0.0}},
	}}
	req.PrevDateRange = []string{"2023-02-01", "2023-02-28"}
	_, err := Validate(req)
	assert.NoError(t, err)
}

func TestValidate_DateRange(t *testing.T) {
	cases := []struct {
		name  string
		dates []string
	}{
		{"missing", nil},
		{"one bound", []string{"2023-03-01"}},
		{"bad date", []string{"2023-03-01", "not-a-date"}},
		{"inverted", []string{"2023-03-31", "2023-03-01"}},
		{"equal bounds", []string{"2023-03-01", "2023-03-01"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest()
			req.DateRange = tc.dates
			_, err := Validate(req)
			require.Error(t, err)
			assert.Contains(t, violationCodes(t, err), CodeInvalidDateRange)
		})
	}
}

func TestValidate_ComparisonRange(t *testing.T) {
	// Derived metric without a comparison range fails.
	req := validRequest()
	req.Metrics = []MetricSpec{{Name: "turnover_diff"}}
	_, err := Validate(req)
	assert.Contains(t, violationCodes(t, err), CodeMissingComparisonRange)

	// With the range it succeeds and the range is parsed.
	req.PrevDateRange = []string{"2023-02-01", "2023-02-28"}
	validated, err := Validate(req)
	require.NoError(t, err)
	require.NotNil(t, validated.Ranges.Previous)
	assert.Equal(t, "2023-02-28", validated.Ranges.Previous.End.Format(DateLayout))
}

func TestValidate_PrevRangeIgnoredWithoutDerived(t *testing.T) {
	req := validRequest()
	req.PrevDateRange = []string{"bogus", "range"}

	// Without a derived metric the comparison range is not even parsed.
	validated, err := Validate(req)
	require.NoError(t, err)
	assert.Nil(t, validated.Ranges.Previous)
}

func TestValidate_CollectsAllViolations(t *testing.T) {
	req := Request{
		Dimensions: []DimensionSpec{{Name: "warehouse"}},
		Metrics:    []MetricSpec{{Name: "profit"}, {Name: "turnover_diff"}},
		DateRange:  []string{"2023-03-31", "2023-03-01"},
	}
	_, err := Validate(req)
	codes := violationCodes(t, err)
	assert.Contains(t, codes, CodeUnknownDimension)
	assert.Contains(t, codes, CodeUnknownMetric)
	assert.Contains(t, codes, CodeInvalidDateRange)
	assert.Contains(t, codes, CodeMissingComparisonRange)
	assert.GreaterOrEqual(t, len(codes), 4)
}

func TestCoerceFloat(t *testing.T) {
	for _, v := range []any{1.5, float32(1.5), 3, int64(3), "4.2"} {
		_, ok := CoerceFloat(v)
		assert.True(t, ok, "value %v (%T)", v, v)
	}
	for _, v := range []any{"abc", nil, []any{1}, true} {
		_, ok := CoerceFloat(v)
		assert.False(t, ok, "value %v (%T)", v, v)
	}
}
