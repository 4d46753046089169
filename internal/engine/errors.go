package engine

import (
	"errors"
	"fmt"
)

// InternalError represents a fault inside the analytics pipeline that no
// request change can fix: a QueryEngine contract violation or an
// inconsistency between the two result tables. Surfaced as a
// 5xx-equivalent, logged, never retried.
type InternalError struct {
	// Code identifies the fault category.
	Code InternalErrorCode

	// Message is a human-readable description.
	Message string

	// Token identifies the analytics run for log correlation.
	Token string

	// Err is the underlying cause, when any.
	Err error
}

// InternalErrorCode categorizes internal faults.
type InternalErrorCode string

const (
	// ErrCodeQueryEngine indicates the backing QueryEngine failed.
	ErrCodeQueryEngine InternalErrorCode = "QUERY_ENGINE_FAULT"

	// ErrCodeTableMismatch indicates the current and previous tables
	// diverged structurally (join-key mismatch).
	ErrCodeTableMismatch InternalErrorCode = "TABLE_MISMATCH"

	// ErrCodeResolver indicates a resolver rejected input the validator
	// had accepted.
	ErrCodeResolver InternalErrorCode = "RESOLVER_FAULT"
)

// Error implements the error interface.
func (e *InternalError) Error() string {
	if e.Token != "" {
		return fmt.Sprintf("%s: %s (run=%s)", e.Code, e.Message, e.Token)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// IsInternalError extracts an InternalError from err, if it is one.
func IsInternalError(err error) (*InternalError, bool) {
	var ie *InternalError
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}

func newInternalError(code InternalErrorCode, token, message string, err error) *InternalError {
	return &InternalError{Code: code, Message: message, Token: token, Err: err}
}
