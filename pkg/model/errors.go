package model

import (
	"fmt"
	"strings"
)

// ErrorCode represents a structured API error code.
type ErrorCode string

const (
	ErrValidation ErrorCode = "VALIDATION_ERROR"
	ErrNotFound   ErrorCode = "NOT_FOUND"
	ErrProtocol   ErrorCode = "PROTOCOL_VIOLATION"
	ErrInternal   ErrorCode = "INTERNAL_ERROR"
)

// APIError is a structured error returned by the schedsim API.
type APIError struct {
	Code    ErrorCode    `json:"code"`
	Message string       `json:"message"`
	Details []FieldError `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// FieldError describes a validation error on a specific field.
type FieldError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// NewValidationError creates an APIError with validation details.
func NewValidationError(msg string, details ...FieldError) *APIError {
	return &APIError{Code: ErrValidation, Message: msg, Details: details}
}

// NewNotFoundError creates a NOT_FOUND APIError.
func NewNotFoundError(resource, id string) *APIError {
	return &APIError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s '%s' not found", resource, id),
	}
}

// InvalidTransitionError is returned when a state transition is invalid.
type InvalidTransitionError struct {
	Entity string
	ID     string
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid %s state transition: %s → %s (entity %s)", e.Entity, e.From, e.To, e.ID)
}

// ProtocolViolationError reports misuse of the acquisition protocol or of the
// queues. It always indicates a bug in the caller and aborts the simulation.
type ProtocolViolationError struct {
	Op         string
	PID        int
	ResourceID int
	Reason     string
}

func (e *ProtocolViolationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "protocol violation: %s", e.Op)
	if e.PID != 0 {
		fmt.Fprintf(&b, " by pid %d", e.PID)
	}
	if e.ResourceID != NoResource {
		fmt.Fprintf(&b, " on resource %d", e.ResourceID)
	}
	fmt.Fprintf(&b, ": %s", e.Reason)
	return b.String()
}

// UnknownPolicyError is returned when a policy name is not registered.
type UnknownPolicyError struct {
	Name  string
	Known []string
}

func (e *UnknownPolicyError) Error() string {
	return fmt.Sprintf("unknown scheduling policy %q (known: %s)", e.Name, strings.Join(e.Known, ", "))
}
