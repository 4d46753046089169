package request

import (
	"errors"
	"fmt"
	"strings"
)

// ViolationCode categorizes a single validation failure.
type ViolationCode string

const (
	CodeEmptyDimensions        ViolationCode = "EMPTY_DIMENSIONS"
	CodeEmptyMetrics           ViolationCode = "EMPTY_METRICS"
	CodeUnknownDimension       ViolationCode = "UNKNOWN_DIMENSION"
	CodeDuplicateInterval      ViolationCode = "DUPLICATE_INTERVAL"
	CodeInvalidFilterField     ViolationCode = "INVALID_FILTER_FIELD"
	CodeInvalidFilterValue     ViolationCode = "INVALID_FILTER_VALUE"
	CodeUnknownMetric          ViolationCode = "UNKNOWN_METRIC"
	CodeInvalidMetricOption    ViolationCode = "INVALID_METRIC_OPTION"
	CodeInvalidDateRange       ViolationCode = "INVALID_DATE_RANGE"
	CodeMissingComparisonRange ViolationCode = "MISSING_COMPARISON_RANGE"
	CodeInvalidSearchField     ViolationCode = "INVALID_SEARCH_FIELD"
	CodeInvalidSortField       ViolationCode = "INVALID_SORT_FIELD"
)

// Violation is one field-level validation failure.
type Violation struct {
	// Field locates the offending input, e.g. "dimensions[1].filtering[0].field"
	// or "prev_date_range".
	Field string `json:"field"`

	Code    ViolationCode `json:"code"`
	Message string        `json:"message"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s: %s", v.Field, v.Code, v.Message)
}

// ValidationError aggregates every violation found in one request. It is
// always a caller error: the request must be fixed, never retried as-is.
type ValidationError struct {
	Violations []Violation
}

// Error implements the error interface, joining all violations.
func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.String()
	}
	return "invalid request: " + strings.Join(msgs, "; ")
}

// NewValidationError builds a single-violation error. The post-processor
// uses this for search/sort field failures.
func NewValidationError(field string, code ViolationCode, message string) *ValidationError {
	return &ValidationError{Violations: []Violation{{Field: field, Code: code, Message: message}}}
}

// IsValidationError reports whether err is (or wraps) a ValidationError,
// returning it when so.
func IsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
