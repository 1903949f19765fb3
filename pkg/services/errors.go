// Package services implements the task lifecycle and execution start operations on top
// of persistence, the engine client and notifications.
package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dukex/caseflow/pkg/compiler"
	"github.com/dukex/caseflow/pkg/models"
	"github.com/dukex/caseflow/pkg/persistence"
)

var (
	// ErrValidation marks malformed or missing input (400 Bad Request).
	ErrValidation = errors.New("validation failed")

	// ErrForbidden marks an actor lacking the required role or ownership (403 Forbidden).
	ErrForbidden = errors.New("forbidden")

	// ErrTaskNotFound is returned when a task does not exist in the organization (404).
	ErrTaskNotFound = persistence.ErrTaskNotFound

	// ErrNotFound marks any other missing entity (404).
	ErrNotFound = errors.New("not found")

	// ErrConflict marks the loser of an optimistic concurrency race (409 Conflict).
	ErrConflict = errors.New("conflict")

	// ErrIntegration marks a failure of the execution engine or another downstream (502).
	ErrIntegration = errors.New("integration failure")
)

// Conflict reasons.
const (
	ReasonAlreadyClaimed    = "already_claimed"
	ReasonAlreadyCompleted  = "already_completed"
	ReasonStatusChanged     = "status_changed"
	ReasonAssignmentChanged = "assignment_changed"
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// ErrorCode returns the API error code.
func (e *ServiceError) ErrorCode() string {
	return e.Code
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// ConflictError reports the state that won an optimistic concurrency race.
type ConflictError struct {
	Op         string
	Reason     string
	Status     models.TaskStatus
	Outcome    *models.TaskOutcome
	AssignedTo *string
}

func (e *ConflictError) Error() string {
	if e.Outcome != nil {
		return fmt.Sprintf("%s: %s (status %s, outcome %s)", e.Op, e.Reason, e.Status, *e.Outcome)
	}

	return fmt.Sprintf("%s: %s (status %s)", e.Op, e.Reason, e.Status)
}

// ErrorCode returns the conflict reason.
func (e *ConflictError) ErrorCode() string {
	return e.Reason
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

func newConflict(op, reason string, task *models.Task) *ConflictError {
	return &ConflictError{
		Op:         op,
		Reason:     reason,
		Status:     task.Status,
		Outcome:    task.Outcome,
		AssignedTo: task.AssignedTo,
	}
}

// FieldAccessError lists the contact fields an actor tried to write without access.
type FieldAccessError struct {
	Op     string
	Fields []string
}

func (e *FieldAccessError) Error() string {
	return fmt.Sprintf("%s: fields not writable: %s", e.Op, strings.Join(e.Fields, ", "))
}

func (e *FieldAccessError) Is(target error) bool {
	return target == ErrForbidden
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string) *ServiceError {
	return &ServiceError{Op: op, Code: code, Message: message, Err: ErrValidation}
}

// NewForbiddenError creates a new authorization error with context.
func NewForbiddenError(op, message string) *ServiceError {
	return &ServiceError{Op: op, Code: "forbidden", Message: message, Err: ErrForbidden}
}

// NewIntegrationError wraps a downstream failure.
func NewIntegrationError(op string, err error) *ServiceError {
	return &ServiceError{Op: op, Code: "integration_error", Err: errors.Join(ErrIntegration, err)}
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsAuthorizationError checks if an error should return HTTP 403.
func IsAuthorizationError(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// IsNotFoundError checks if an error should return HTTP 404.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) || persistence.IsNotFound(err)
}

// IsConflictError checks if an error is a concurrency conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsIntegrationError checks if an error should return HTTP 502.
func IsIntegrationError(err error) bool {
	return errors.Is(err, ErrIntegration)
}

// IsCompileError checks if an error carries compile errors (HTTP 422).
func IsCompileError(err error) bool {
	_, ok := compiler.AsErrors(err)

	return ok
}
