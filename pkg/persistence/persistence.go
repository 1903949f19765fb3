// Package persistence provides the data storage abstraction for definitions, tasks,
// executions and organization data.
package persistence

import (
	"context"
	"time"

	"github.com/dukex/caseflow/pkg/models"
)

type Persistence interface {
	Definitions() DefinitionRepository
	Tasks() TaskRepository
	Executions() ExecutionRepository
	Organizations() OrganizationRepository
	Contacts() ContactRepository
	Audit() AuditRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// DefinitionRepository stores authored workflow definitions.
type DefinitionRepository interface {
	// Save inserts or updates the definition and increments its version.
	Save(ctx context.Context, definition *models.WorkflowDefinition) error
	GetByID(ctx context.Context, orgID, id string) (*models.WorkflowDefinition, error)
}

// TaskFields is the set of mutable task attributes written by UpdateFields.
type TaskFields struct {
	Title        string
	Description  string
	AssignedTo   *string
	AssignedRole *string
	Status       models.TaskStatus
	Priority     models.TaskPriority
	DueAt        *time.Time
	UpdatedAt    time.Time
}

// TaskGuard is the stored state an UpdateFields write was computed from. The write
// applies only while status, assignee and role are all unchanged, so an edit never
// clears a concurrent claim or reopens a concurrent completion.
type TaskGuard struct {
	Status       models.TaskStatus
	AssignedTo   *string
	AssignedRole *string
}

// GuardOf captures the guard of task as read.
func GuardOf(task *models.Task) TaskGuard {
	return TaskGuard{
		Status:       task.Status,
		AssignedTo:   task.AssignedTo,
		AssignedRole: task.AssignedRole,
	}
}

// Matches reports whether task still holds the guarded state.
func (g TaskGuard) Matches(task *models.Task) bool {
	return task.Status == g.Status &&
		sameOptional(task.AssignedTo, g.AssignedTo) &&
		sameOptional(task.AssignedRole, g.AssignedRole)
}

func sameOptional(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}

	return *a == *b
}

// TaskRepository stores tasks. The Claim, Complete and UpdateFields operations are
// compare-and-swap writes: they re-check their precondition at the storage layer and
// report whether the write applied. A false result is not an error; callers re-read
// to classify the outcome.
type TaskRepository interface {
	Save(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, orgID, id string) (*models.Task, error)

	// Claim sets assigned_to where it is currently null.
	Claim(ctx context.Context, orgID, id, userID string, at time.Time) (bool, error)

	// Complete moves the task to done where it is not done yet.
	Complete(ctx context.Context, orgID, id string, completion models.TaskCompletion) (bool, error)

	// UpdateFields writes fields where the stored task still matches expected.
	UpdateFields(ctx context.Context, orgID, id string, expected TaskGuard, fields TaskFields) (bool, error)
}

// ExecutionRepository stores execution records created by the trigger orchestrator.
type ExecutionRepository interface {
	Save(ctx context.Context, execution *models.Execution) error
	GetByID(ctx context.Context, orgID, id string) (*models.Execution, error)
	UpdateStatus(ctx context.Context, orgID, id string, status models.ExecutionStatus, runID, errMessage string) error
}

// OrganizationRepository exposes membership and per-organization settings.
type OrganizationRepository interface {
	Members(ctx context.Context, orgID string) ([]*models.Member, error)
	Member(ctx context.Context, orgID, userID string) (*models.Member, error)
	SaveMember(ctx context.Context, member *models.Member) error
	FieldOverrides(ctx context.Context, orgID string) ([]models.FieldPermissionOverride, error)
	SaveFieldOverride(ctx context.Context, override models.FieldPermissionOverride) error
	AllowedSenders(ctx context.Context, orgID string) ([]string, error)
	SetAllowedSenders(ctx context.Context, orgID string, senders []string) error
}

// ContactRepository loads and stores subject records.
type ContactRepository interface {
	GetByID(ctx context.Context, orgID, id string) (*models.Contact, error)
	Save(ctx context.Context, contact *models.Contact) error
}

// AuditRepository appends audit events.
type AuditRepository interface {
	Record(ctx context.Context, event *models.AuditEvent) error
	ListByEntity(ctx context.Context, orgID, entityType, entityID string) ([]*models.AuditEvent, error)
}
