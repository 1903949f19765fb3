package models

import (
	"slices"
	"time"
)

// TaskType distinguishes plain tasks from approval decisions.
type TaskType string

const (
	TaskTypeStandard TaskType = "standard"
	TaskTypeApproval TaskType = "approval"
)

// TaskStatus is the lifecycle position of a task.
type TaskStatus string

const (
	TaskStatusBacklog    TaskStatus = "backlog"
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
)

// TaskStatuses is ordered by lifecycle rank.
var TaskStatuses = []TaskStatus{
	TaskStatusBacklog,
	TaskStatusTodo,
	TaskStatusInProgress,
	TaskStatusDone,
}

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	return slices.Contains(TaskStatuses, s)
}

// Rank is the position of s in the lifecycle, -1 when unknown.
func (s TaskStatus) Rank() int {
	return slices.Index(TaskStatuses, s)
}

// TaskOutcome is the decision recorded on a completed approval task.
type TaskOutcome string

const (
	TaskOutcomeApproved TaskOutcome = "approved"
	TaskOutcomeRejected TaskOutcome = "rejected"
)

// Task is a human work item created by an assign_task instruction.
type Task struct {
	ID                   string       `json:"id"`
	OrgID                string       `json:"orgId"`
	WorkflowExecutionID  *string      `json:"workflowExecutionId,omitempty"`
	WorkflowDefinitionID *string      `json:"workflowDefinitionId,omitempty"`
	ContactID            *string      `json:"contactId,omitempty"`
	Title                string       `json:"title"`
	Description          string       `json:"description,omitempty"`
	AssignedTo           *string      `json:"assignedTo,omitempty"`
	AssignedRole         *string      `json:"assignedRole,omitempty"`
	TaskType             TaskType     `json:"taskType"`
	Status               TaskStatus   `json:"status"`
	Priority             TaskPriority `json:"priority,omitempty"`
	DueAt                *time.Time   `json:"dueAt,omitempty"`
	Outcome              *TaskOutcome `json:"outcome,omitempty"`
	OutcomeComment       *string      `json:"outcomeComment,omitempty"`
	CompletedBy          *string      `json:"completedBy,omitempty"`
	CompletedAt          *time.Time   `json:"completedAt,omitempty"`
	ClaimedAt            *time.Time   `json:"claimedAt,omitempty"`
	CreatedAt            time.Time    `json:"createdAt"`
	UpdatedAt            time.Time    `json:"updatedAt"`
}

// IsDone reports whether the task reached its terminal status.
func (t *Task) IsDone() bool {
	return t.Status == TaskStatusDone
}

// IsApproval reports whether the task requires an approve/reject decision.
func (t *Task) IsApproval() bool {
	return t.TaskType == TaskTypeApproval
}

// IsAssignedTo reports whether userID owns the task.
func (t *Task) IsAssignedTo(userID string) bool {
	return t.AssignedTo != nil && *t.AssignedTo == userID
}

// LinkedExecutionID returns the running execution the task belongs to, if any.
func (t *Task) LinkedExecutionID() (string, bool) {
	if t.WorkflowExecutionID == nil || *t.WorkflowExecutionID == "" {
		return "", false
	}

	return *t.WorkflowExecutionID, true
}

// TaskCompletion is the terminal transition applied by a conditional complete.
type TaskCompletion struct {
	CompletedBy    string
	CompletedAt    time.Time
	Outcome        *TaskOutcome
	OutcomeComment *string
}

// Apply writes the completion onto t.
func (c TaskCompletion) Apply(t *Task) {
	completedBy := c.CompletedBy
	completedAt := c.CompletedAt

	t.Status = TaskStatusDone
	t.CompletedBy = &completedBy
	t.CompletedAt = &completedAt
	t.Outcome = c.Outcome
	t.OutcomeComment = c.OutcomeComment
	t.UpdatedAt = completedAt
}
