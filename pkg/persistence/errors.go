// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrDefinitionNotFound indicates a workflow definition was not found.
	ErrDefinitionNotFound = errors.New("workflow definition not found")

	// ErrTaskNotFound indicates a task was not found.
	ErrTaskNotFound = errors.New("task not found")

	// ErrExecutionNotFound indicates an execution was not found.
	ErrExecutionNotFound = errors.New("execution not found")

	// ErrMemberNotFound indicates the user is not a member of the organization.
	ErrMemberNotFound = errors.New("member not found")

	// ErrContactNotFound indicates a contact was not found.
	ErrContactNotFound = errors.New("contact not found")
)

// EntityError wraps a repository error with the operation and entity it concerns.
type EntityError struct {
	Op     string // Operation being performed (e.g., "GetByID", "Claim")
	Entity string // Entity kind, e.g. "task"
	ID     string // Entity ID if applicable
	Err    error  // Underlying error
}

func (e *EntityError) Error() string {
	return fmt.Sprintf("%s operation failed for %s %s: %v", e.Op, e.Entity, e.ID, e.Err)
}

func (e *EntityError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for entity errors.
func (e *EntityError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewTaskError creates a task error with context.
func NewTaskError(op, taskID string, err error) *EntityError {
	return &EntityError{Op: op, Entity: "task", ID: taskID, Err: err}
}

// NewDefinitionError creates a definition error with context.
func NewDefinitionError(op, definitionID string, err error) *EntityError {
	return &EntityError{Op: op, Entity: "definition", ID: definitionID, Err: err}
}

// IsTaskNotFound checks if an error indicates a task was not found.
func IsTaskNotFound(err error) bool {
	return errors.Is(err, ErrTaskNotFound)
}

// IsDefinitionNotFound checks if an error indicates a definition was not found.
func IsDefinitionNotFound(err error) bool {
	return errors.Is(err, ErrDefinitionNotFound)
}

// IsExecutionNotFound checks if an error indicates an execution was not found.
func IsExecutionNotFound(err error) bool {
	return errors.Is(err, ErrExecutionNotFound)
}

// IsMemberNotFound checks if an error indicates a membership was not found.
func IsMemberNotFound(err error) bool {
	return errors.Is(err, ErrMemberNotFound)
}

// IsContactNotFound checks if an error indicates a contact was not found.
func IsContactNotFound(err error) bool {
	return errors.Is(err, ErrContactNotFound)
}

// IsNotFound checks for any of the not-found sentinels.
func IsNotFound(err error) bool {
	return IsTaskNotFound(err) || IsDefinitionNotFound(err) || IsExecutionNotFound(err) ||
		IsMemberNotFound(err) || IsContactNotFound(err)
}
