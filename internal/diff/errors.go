package diff

import (
	"errors"
	"fmt"
)

// ConsistencyError reports an internal-consistency fault between the two
// result tables, e.g. a join-key column missing from one side. The two
// plans are built from the same dimension resolution, so divergence is a
// resolver bug, not a caller error: fatal, never retried.
type ConsistencyError struct {
	Code    string
	Message string
}

const (
	// ErrCodeJoinKeyMismatch indicates a grouping column is absent from
	// one of the tables.
	ErrCodeJoinKeyMismatch = "JOIN_KEY_MISMATCH"
)

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsConsistencyError reports whether err is (or wraps) a ConsistencyError.
func IsConsistencyError(err error) bool {
	var ce *ConsistencyError
	return errors.As(err, &ce)
}

func newJoinKeyMismatch(column, side string) *ConsistencyError {
	return &ConsistencyError{
		Code:    ErrCodeJoinKeyMismatch,
		Message: fmt.Sprintf("grouping column %q missing from %s table", column, side),
	}
}
