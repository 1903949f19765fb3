package models

// ActionType names an authored action. Only a subset is executable; the compiler
// rejects the rest.
type ActionType string

const (
	ActionTypeCreateTask    ActionType = "create_task"
	ActionTypeSendEmail     ActionType = "send_email"
	ActionTypeUpdateStatus  ActionType = "update_status"
	ActionTypeCreateContact ActionType = "create_contact"
	ActionTypeSetVariable   ActionType = "set_variable"
)

// Action is a tagged union over the authored action types. Exactly one payload
// matching Type is expected; Config carries payloads of unsupported types verbatim.
type Action struct {
	ID     string              `json:"id"`
	Type   ActionType          `json:"type"`
	Task   *CreateTaskConfig   `json:"task,omitempty"`
	Email  *SendEmailConfig    `json:"email,omitempty"`
	Status *UpdateStatusConfig `json:"status,omitempty"`
	Config map[string]any      `json:"config,omitempty"`
}

// AssignmentType says whether a task goes to a role pool or to one user.
type AssignmentType string

const (
	AssignToRole AssignmentType = "role"
	AssignToUser AssignmentType = "user"
)

// AssignmentTarget is the assignee of a created task.
type AssignmentTarget struct {
	Type   AssignmentType `json:"type"`
	Role   string         `json:"role,omitempty"`
	UserID string         `json:"userId,omitempty"`
}

// TaskPriority orders tasks in work queues.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
	PriorityUrgent TaskPriority = "urgent"
)

// Valid reports whether p is a known priority.
func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	default:
		return false
	}
}

// CreateTaskConfig is the payload of a create_task action.
type CreateTaskConfig struct {
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	TaskType    TaskType         `json:"taskType,omitempty"`
	AssignTo    AssignmentTarget `json:"assignTo"`
	Priority    TaskPriority     `json:"priority,omitempty"`
	DueInDays   *int             `json:"dueInDays,omitempty"`
}

// SendEmailConfig is the payload of a send_email action. Fields may hold variable
// references such as "var-contact.email".
type SendEmailConfig struct {
	To      string `json:"to"`
	From    string `json:"from,omitempty"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// UpdateStatusConfig is the payload of an update_status action.
type UpdateStatusConfig struct {
	StatusID string `json:"statusId"`
}
