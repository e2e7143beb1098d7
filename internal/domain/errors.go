package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a rule or target id does not exist,
	// typically a delete/update race from a second admin session.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidInput covers malformed identifiers and unknown enum values.
	ErrInvalidInput = errors.New("invalid input")

	// ErrMalformedInput is returned by import before any state is touched
	// when the uploaded document is not well-formed JSON.
	ErrMalformedInput = errors.New("malformed input document")
)

// ValidationError names the offending field of a rejected configuration
// change. The operation that produced it performed no partial write.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError for a field.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// PartialFailure is returned by the action dispatcher when some actions
// in a rule's action list failed. The remaining actions still ran; all
// outcomes are collected and reported together.
type PartialFailure struct {
	Outcomes []ActionOutcome
}

func (e *PartialFailure) Error() string {
	var failed []string
	for _, o := range e.Outcomes {
		if o.Err != "" {
			failed = append(failed, fmt.Sprintf("%s: %s", o.ActionType, o.Err))
		}
	}
	return fmt.Sprintf("%d of %d actions failed: %s",
		len(failed), len(e.Outcomes), strings.Join(failed, "; "))
}

// FailedCount returns the number of failed actions.
func (e *PartialFailure) FailedCount() int {
	n := 0
	for _, o := range e.Outcomes {
		if o.Err != "" {
			n++
		}
	}
	return n
}
