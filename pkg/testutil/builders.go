// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"github.com/dukex/caseflow/pkg/models"
)

// CreateTestTask creates a todo standard task in orgID with default values that can
// be overridden. The ID is left empty so the store assigns one.
func CreateTestTask(orgID string, overrides ...func(*models.Task)) *models.Task {
	task := &models.Task{
		OrgID:    orgID,
		Title:    "Review application",
		TaskType: models.TaskTypeStandard,
		Status:   models.TaskStatusTodo,
		Priority: models.PriorityMedium,
	}

	for _, override := range overrides {
		override(task)
	}

	return task
}

// AssignedTo assigns the task to userID.
func AssignedTo(userID string) func(*models.Task) {
	return func(t *models.Task) {
		t.AssignedTo = &userID
	}
}

// AssignedRole puts the task in the pool of role.
func AssignedRole(role string) func(*models.Task) {
	return func(t *models.Task) {
		t.AssignedRole = &role
	}
}

// AsApproval turns the task into an approval decision.
func AsApproval() func(*models.Task) {
	return func(t *models.Task) {
		t.TaskType = models.TaskTypeApproval
	}
}

// LinkedTo links the task to a running execution of a definition.
func LinkedTo(executionID, definitionID string) func(*models.Task) {
	return func(t *models.Task) {
		t.WorkflowExecutionID = &executionID

		if definitionID != "" {
			t.WorkflowDefinitionID = &definitionID
		}
	}
}

// CreateTestDefinition creates a compilable definition with one review step: a task
// for the reviewer role and a wait on its completion.
func CreateTestDefinition(orgID string, overrides ...func(*models.WorkflowDefinition)) *models.WorkflowDefinition {
	definition := &models.WorkflowDefinition{
		OrgID:    orgID,
		Name:     "Onboarding",
		Trigger:  models.Trigger{Type: models.TriggerTypeManual},
		Statuses: []models.WorkflowStatus{{ID: "new", Label: "New", Order: 1}},
		Steps: []models.Step{{
			ID:   "review",
			Name: "Review",
			Actions: []models.Action{{
				ID:   "review-task",
				Type: models.ActionTypeCreateTask,
				Task: &models.CreateTaskConfig{
					Title:    "Review application",
					AssignTo: models.AssignmentTarget{Type: models.AssignToRole, Role: "reviewer"},
				},
			}},
			AdvancementCondition: &models.AdvancementCondition{
				Type:         models.AdvancementWhenTaskCompleted,
				TaskActionID: "review-task",
			},
		}},
	}

	for _, override := range overrides {
		override(definition)
	}

	return definition
}

// WithSteps replaces the definition steps.
func WithSteps(steps ...models.Step) func(*models.WorkflowDefinition) {
	return func(d *models.WorkflowDefinition) {
		d.Steps = steps
	}
}

// RequiringDecisionComment makes approve and reject require a comment.
func RequiringDecisionComment() func(*models.WorkflowDefinition) {
	return func(d *models.WorkflowDefinition) {
		d.Settings.RequireDecisionComment = true
	}
}
