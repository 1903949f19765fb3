package models

import "time"

// ExecutionStatus tracks the orchestrator's view of an engine execution.
type ExecutionStatus string

const (
	ExecutionStatusPending ExecutionStatus = "pending"
	ExecutionStatusRunning ExecutionStatus = "running"
	ExecutionStatusFailed  ExecutionStatus = "failed"
)

// Execution is a started run of a compiled definition. Steps is the compiler output
// snapshotted at start so later edits to the definition do not affect it.
type Execution struct {
	ID                string          `json:"id"`
	OrgID             string          `json:"orgId"`
	DefinitionID      string          `json:"definitionId"`
	DefinitionVersion int             `json:"definitionVersion"`
	ContactID         *string         `json:"contactId,omitempty"`
	RunID             string          `json:"runId,omitempty"`
	Status            ExecutionStatus `json:"status"`
	Steps             []RuntimeStep   `json:"steps"`
	Input             map[string]any  `json:"input,omitempty"`
	Error             string          `json:"error,omitempty"`
	TriggeredBy       string          `json:"triggeredBy"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// AuditEvent is an append-only record of a state change.
type AuditEvent struct {
	ID         string         `json:"id"`
	OrgID      string         `json:"orgId"`
	EntityType string         `json:"entityType"`
	EntityID   string         `json:"entityId"`
	Action     string         `json:"action"`
	ActorID    string         `json:"actorId"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
}
