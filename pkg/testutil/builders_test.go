package testutil

import (
	"testing"

	"github.com/dukex/caseflow/pkg/compiler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTestDefinitionCompiles(t *testing.T) {
	steps, err := compiler.Compile(CreateTestDefinition("org-1"))
	require.NoError(t, err)

	ids := make([]string, 0, len(steps))
	for _, step := range steps {
		ids = append(ids, step.ID)
	}

	assert.Equal(t, []string{compiler.TriggerID, "review-task", compiler.WaitID("review"), compiler.EndID}, ids)
}

func TestCreateTestTaskOverrides(t *testing.T) {
	task := CreateTestTask("org-1", AssignedTo("user-1"), AsApproval(), LinkedTo("exec-1", "def-1"))

	assert.Equal(t, "org-1", task.OrgID)
	assert.True(t, task.IsAssignedTo("user-1"))
	assert.True(t, task.IsApproval())

	executionID, ok := task.LinkedExecutionID()
	assert.True(t, ok)
	assert.Equal(t, "exec-1", executionID)
	assert.Equal(t, "def-1", *task.WorkflowDefinitionID)
}
