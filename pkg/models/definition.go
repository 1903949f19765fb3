// Package models defines the domain models for workflow authoring, compiled runtime
// instructions and human tasks.
package models

import "time"

// TriggerType identifies how an execution of a definition is started.
type TriggerType string

const (
	TriggerTypeManual         TriggerType = "manual"
	TriggerTypeContactStatus  TriggerType = "contact_status"
	TriggerTypeFormSubmission TriggerType = "form_submission"
	TriggerTypeAPI            TriggerType = "api"
)

// Trigger is the authored start condition. StatusID is only set for contact_status
// triggers and FormID only for form_submission triggers.
type Trigger struct {
	Type     TriggerType `json:"type"               validate:"required,oneof=manual contact_status form_submission api"`
	StatusID string      `json:"statusId,omitempty"`
	FormID   string      `json:"formId,omitempty"`
}

// WorkflowStatus is one entry of a definition's ordered status list.
type WorkflowStatus struct {
	ID    string `json:"id"    validate:"required"`
	Label string `json:"label" validate:"required"`
	Order int    `json:"order"`
}

// Variable is a definition-scoped variable that steps may reference.
type Variable struct {
	ID      string `json:"id"                validate:"required"`
	Name    string `json:"name"              validate:"required"`
	Type    string `json:"type,omitempty"`
	Default any    `json:"default,omitempty"`
}

// Phase groups steps for presentation only.
type Phase struct {
	ID    string `json:"id"    validate:"required"`
	Name  string `json:"name"  validate:"required"`
	Order int    `json:"order"`
}

// DefinitionSettings holds behavioural switches consulted at execution time.
type DefinitionSettings struct {
	RequireDecisionComment bool `json:"requireDecisionComment"`
}

// WorkflowDefinition is the authored, branch-capable workflow blueprint.
type WorkflowDefinition struct {
	ID              string             `json:"id"`
	OrgID           string             `json:"orgId"`
	Name            string             `json:"name"            validate:"required,min=1"`
	Version         int                `json:"version"`
	Trigger         Trigger            `json:"trigger"`
	ContactRequired bool               `json:"contactRequired"`
	Statuses        []WorkflowStatus   `json:"statuses"`
	Variables       []Variable         `json:"variables,omitempty"`
	Phases          []Phase            `json:"phases,omitempty"`
	Steps           []Step             `json:"steps"`
	Settings        DefinitionSettings `json:"settings"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}

// StatusByID returns the declared status with the given id.
func (d *WorkflowDefinition) StatusByID(id string) (WorkflowStatus, bool) {
	for _, status := range d.Statuses {
		if status.ID == id {
			return status, true
		}
	}

	return WorkflowStatus{}, false
}

// VariableByKey finds a variable by id or by name.
func (d *WorkflowDefinition) VariableByKey(key string) (Variable, bool) {
	for _, variable := range d.Variables {
		if variable.ID == key || variable.Name == key {
			return variable, true
		}
	}

	return Variable{}, false
}

// StepKind discriminates the Step union.
type StepKind string

const (
	StepKindStandard StepKind = "standard"
	StepKindBranch   StepKind = "branch"
)

// Step is a node of the authoring AST: either a standard step (actions plus an
// advancement condition) or a branch step (condition plus tracks).
type Step struct {
	ID   string   `json:"id"`
	Name string   `json:"name"`
	Kind StepKind `json:"kind,omitempty"`

	// Standard steps.
	Actions              []Action              `json:"actions,omitempty"`
	AdvancementCondition *AdvancementCondition `json:"advancementCondition,omitempty"`

	// Branch steps.
	Condition *BranchCondition `json:"condition,omitempty"`
	Tracks    []Track          `json:"tracks,omitempty"`
}

// IsBranch reports whether the step fans out into tracks.
func (s *Step) IsBranch() bool {
	return s.Kind == StepKindBranch
}

// AdvancementType controls when a standard step hands over to the next one.
type AdvancementType string

const (
	AdvancementAutomatic         AdvancementType = "automatic"
	AdvancementWhenTaskCompleted AdvancementType = "when_task_completed"
)

// AdvancementCondition is the tagged advancement variant of a standard step.
type AdvancementCondition struct {
	Type         AdvancementType `json:"type"`
	TaskActionID string          `json:"taskActionId,omitempty"`
}

// ConditionOperator compares a variable with a value.
type ConditionOperator string

const (
	OperatorEquals      ConditionOperator = "equals"
	OperatorNotEquals   ConditionOperator = "not_equals"
	OperatorContains    ConditionOperator = "contains"
	OperatorNotContains ConditionOperator = "not_contains"
	OperatorGreaterThan ConditionOperator = "greater_than"
	OperatorLessThan    ConditionOperator = "less_than"
	OperatorIsEmpty     ConditionOperator = "is_empty"
	OperatorIsNotEmpty  ConditionOperator = "is_not_empty"
)

// ConditionOperators lists the operators the execution engine understands.
var ConditionOperators = []ConditionOperator{
	OperatorEquals,
	OperatorNotEquals,
	OperatorContains,
	OperatorNotContains,
	OperatorGreaterThan,
	OperatorLessThan,
	OperatorIsEmpty,
	OperatorIsNotEmpty,
}

// BranchCondition is evaluated by the engine to pick a track.
type BranchCondition struct {
	VariableRef  string            `json:"variableRef"`
	Operator     ConditionOperator `json:"operator"`
	CompareValue any               `json:"compareValue,omitempty"`
}

// Track is one arm of a branch step. Outcome selects the track; the first two
// tracks default to "true" and "false".
type Track struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Outcome string `json:"outcome,omitempty"`
	Steps   []Step `json:"steps"`
}
