package models

// RuntimeStepType is the instruction kind understood by the execution engine.
type RuntimeStepType string

const (
	RuntimeStepTrigger      RuntimeStepType = "trigger"
	RuntimeStepAssignTask   RuntimeStepType = "assign_task"
	RuntimeStepSendEmail    RuntimeStepType = "send_email"
	RuntimeStepWaitForTask  RuntimeStepType = "wait_for_task"
	RuntimeStepCondition    RuntimeStepType = "condition"
	RuntimeStepUpdateStatus RuntimeStepType = "update_status"
)

// RuntimeStep is one compiled instruction. ID doubles as a goto target; an empty
// GotoStepID means control falls through to the next instruction.
type RuntimeStep struct {
	ID           string          `json:"id"`
	Type         RuntimeStepType `json:"type"`
	Label        string          `json:"label,omitempty"`
	GotoStepID   string          `json:"gotoStepId,omitempty"`
	SourceStepID string          `json:"sourceStepId,omitempty"`

	Trigger   *TriggerInstruction      `json:"trigger,omitempty"`
	Task      *AssignTaskInstruction   `json:"task,omitempty"`
	Email     *SendEmailInstruction    `json:"email,omitempty"`
	Wait      *WaitForTaskInstruction  `json:"wait,omitempty"`
	Condition *ConditionInstruction    `json:"condition,omitempty"`
	Status    *UpdateStatusInstruction `json:"status,omitempty"`
}

// TriggerInstruction opens (and, as a sentinel, closes) a compiled definition.
type TriggerInstruction struct {
	Trigger         Trigger `json:"trigger"`
	ContactRequired bool    `json:"contactRequired"`
	Sentinel        bool    `json:"sentinel,omitempty"`
}

// AssignTaskInstruction creates a human task.
type AssignTaskInstruction struct {
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	TaskType    TaskType         `json:"taskType"`
	AssignTo    AssignmentTarget `json:"assignTo"`
	Priority    TaskPriority     `json:"priority"`
	DueInDays   *int             `json:"dueInDays,omitempty"`
}

// SendEmailInstruction sends one email; fields carry {{...}} interpolation tokens.
type SendEmailInstruction struct {
	To      string `json:"to"`
	From    string `json:"from,omitempty"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// WaitForTaskInstruction blocks the execution until the referenced task completes.
type WaitForTaskInstruction struct {
	TaskStepID string `json:"taskStepId"`
}

// ConditionBranch maps one outcome to the entry instruction of a track.
type ConditionBranch struct {
	Outcome    string `json:"outcome"`
	TrackID    string `json:"trackId"`
	Label      string `json:"label,omitempty"`
	GotoStepID string `json:"gotoStepId"`
}

// ConditionInstruction evaluates Variable against CompareValue. A merge instruction
// is a condition with Merge set, no branches and an unconditional GotoStepID.
type ConditionInstruction struct {
	Variable     string            `json:"variable,omitempty"`
	Operator     ConditionOperator `json:"operator,omitempty"`
	CompareValue any               `json:"compareValue,omitempty"`
	Branches     []ConditionBranch `json:"branches,omitempty"`
	Merge        bool              `json:"merge,omitempty"`
}

// UpdateStatusInstruction moves the execution to another declared status.
type UpdateStatusInstruction struct {
	StatusID string `json:"statusId"`
	Label    string `json:"label,omitempty"`
}

// IsMerge reports whether the instruction is a synthesized track join point.
func (s *RuntimeStep) IsMerge() bool {
	return s.Type == RuntimeStepCondition && s.Condition != nil && s.Condition.Merge
}

// IsSentinel reports whether the instruction is the trailing end marker.
func (s *RuntimeStep) IsSentinel() bool {
	return s.Type == RuntimeStepTrigger && s.Trigger != nil && s.Trigger.Sentinel
}
