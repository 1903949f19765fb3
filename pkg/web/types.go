package web

import (
	"time"

	"github.com/dukex/caseflow/pkg/models"
)

// Actor identity headers set by the upstream gateway.
const (
	HeaderUserID      = "X-User-ID"
	HeaderOrgRole     = "X-Org-Role"
	HeaderAdminAccess = "X-Admin-Access"
)

// StartExecutionRequest represents the request body for starting an execution.
type StartExecutionRequest struct {
	ContactID string         `json:"contactId,omitempty"`
	Input     map[string]any `json:"input,omitempty"`
}

// PatchTaskRequest represents a partial task edit. Absent fields are left untouched;
// an empty assignedTo or assignedRole clears the assignment.
type PatchTaskRequest struct {
	Title        *string              `json:"title,omitempty"        validate:"omitempty,min=1"`
	Description  *string              `json:"description,omitempty"`
	Priority     *models.TaskPriority `json:"priority,omitempty"     validate:"omitempty,oneof=low medium high urgent"`
	DueAt        *time.Time           `json:"dueAt,omitempty"`
	AssignedTo   *string              `json:"assignedTo,omitempty"`
	AssignedRole *string              `json:"assignedRole,omitempty"`
	Status       *models.TaskStatus   `json:"status,omitempty"       validate:"omitempty,oneof=backlog todo in_progress done"`
}

// SetTaskStatusRequest represents the request body for a status transition.
type SetTaskStatusRequest struct {
	Status models.TaskStatus `json:"status" validate:"required,oneof=backlog todo in_progress done"`
}

// DecisionRequest represents the request body of approve and reject.
type DecisionRequest struct {
	Comment string `json:"comment" validate:"max=4000"`
}

// CompileResponse lists the compiled runtime instructions.
type CompileResponse struct {
	Steps []models.RuntimeStep `json:"steps"`
}

// ResolveRecipientsResponse lists the resolved user ids.
type ResolveRecipientsResponse struct {
	UserIDs []string `json:"userIds"`
}
