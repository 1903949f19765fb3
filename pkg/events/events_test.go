package events

import (
	"encoding/json"
	"testing"

	"github.com/dukex/caseflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutionStartRequested_Validate(t *testing.T) {
	tests := []struct {
		name        string
		event       ExecutionStartRequested
		expectedErr string
	}{
		{
			name: "valid_event",
			event: ExecutionStartRequested{
				ExecutionID:    "exec-1",
				DefinitionName: "onboarding",
				Steps:          []models.RuntimeStep{{ID: "trigger", Type: models.RuntimeStepTrigger}},
			},
		},
		{
			name:        "missing_execution_id",
			event:       ExecutionStartRequested{DefinitionName: "onboarding"},
			expectedErr: "execution_id is required",
		},
		{
			name:        "missing_definition_name",
			event:       ExecutionStartRequested{ExecutionID: "exec-1"},
			expectedErr: "definition_name is required",
		},
		{
			name:        "missing_steps",
			event:       ExecutionStartRequested{ExecutionID: "exec-1", DefinitionName: "onboarding"},
			expectedErr: "steps are required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if tt.expectedErr == "" {
				assert.NoError(t, err)

				return
			}

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidEventData)
			assert.Contains(t, err.Error(), tt.expectedErr)
		})
	}
}

func TestExecutionSignal_Validate(t *testing.T) {
	valid := ExecutionSignal{ExecutionID: "exec-1", Signal: "taskCompleted"}
	require.NoError(t, valid.Validate())

	missingSignal := ExecutionSignal{ExecutionID: "exec-1"}
	assert.ErrorIs(t, missingSignal.Validate(), ErrInvalidEventData)

	missingExecution := ExecutionSignal{Signal: "taskCompleted"}
	assert.ErrorIs(t, missingExecution.Validate(), ErrInvalidEventData)
}

func TestExecutionSignal_GetPayloadString(t *testing.T) {
	signal := ExecutionSignal{Payload: map[string]any{"taskId": "task-1", "count": 2}}

	value, ok := signal.GetPayloadString("taskId")
	assert.True(t, ok)
	assert.Equal(t, "task-1", value)

	_, ok = signal.GetPayloadString("count")
	assert.False(t, ok)

	_, ok = signal.GetPayloadString("missing")
	assert.False(t, ok)
}

func TestExecutionSignal_WireFormat(t *testing.T) {
	signal := ExecutionSignal{
		BaseEvent:   NewBaseEvent(ExecutionSignalEvent, "org-1"),
		ExecutionID: "exec-1",
		Signal:      "approvalSubmitted",
		Payload:     map[string]any{"outcome": "approved"},
	}

	data, err := json.Marshal(signal)
	require.NoError(t, err)

	assert.Contains(t, string(data), `"type":"execution.signal"`)
	assert.Contains(t, string(data), `"org_id":"org-1"`)
	assert.Contains(t, string(data), `"execution_id":"exec-1"`)
	assert.Contains(t, string(data), `"signal":"approvalSubmitted"`)
}

func TestNewBaseEvent(t *testing.T) {
	base := NewBaseEvent(TaskAssignedEvent, "org-1")

	assert.NotEmpty(t, base.ID)
	assert.Equal(t, TaskAssignedEvent, base.Type)
	assert.Equal(t, "org-1", base.OrgID)
	assert.False(t, base.Timestamp.IsZero())
	assert.NotNil(t, base.Metadata)
	assert.Equal(t, TaskAssignedEvent, TaskAssigned{}.GetType())
	assert.Equal(t, AuditRecordedEvent, AuditRecorded{}.GetType())
}
