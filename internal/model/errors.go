package model

import (
	"errors"
	"fmt"
)

// AnalysisErrorCode classifies failures raised while analysing a transaction snapshot.
type AnalysisErrorCode string

const (
	// ErrInsufficientData means too few observations for a computation. Recovered locally.
	ErrInsufficientData AnalysisErrorCode = "INSUFFICIENT_DATA"
	// ErrInvalidGoalState means the goal is already met or its deadline has passed.
	// Surfaced as a terminal state in the forecast, never returned.
	ErrInvalidGoalState AnalysisErrorCode = "INVALID_GOAL_STATE"
	// ErrDivisionBoundary marks a zero denominator that was special-cased before dividing.
	ErrDivisionBoundary AnalysisErrorCode = "DIVISION_BOUNDARY"
	// ErrUpstreamData means malformed input from a collaborator. The only code returned to callers.
	ErrUpstreamData AnalysisErrorCode = "UPSTREAM_DATA"
)

// AnalysisError is a structured error for analysis failures.
type AnalysisError struct {
	Code    AnalysisErrorCode
	Field   string // offending input field, e.g. "transactions[3].date"
	Message string
	Cause   error
}

func (e *AnalysisError) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, msg)
}

func (e *AnalysisError) Unwrap() error {
	return e.Cause
}

// NewUpstreamError reports a contract violation in collaborator-provided input.
func NewUpstreamError(field, message string) *AnalysisError {
	return &AnalysisError{Code: ErrUpstreamData, Field: field, Message: message}
}

// IsUpstream reports whether err (or anything it wraps) is an upstream data error.
func IsUpstream(err error) bool {
	return HasCode(err, ErrUpstreamData)
}

// HasCode reports whether err wraps an AnalysisError with the given code.
func HasCode(err error, code AnalysisErrorCode) bool {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}
