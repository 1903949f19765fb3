package persistence_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dukex/caseflow/pkg/persistence"
	"github.com/stretchr/testify/assert"
)

func TestStandardizedErrors(t *testing.T) {
	t.Parallel()

	t.Run("error checking functions work correctly", func(t *testing.T) {
		taskErr := persistence.NewTaskError("GetByID", "task-123", persistence.ErrTaskNotFound)
		definitionErr := persistence.NewDefinitionError("GetByID", "def-456", persistence.ErrDefinitionNotFound)

		assert.True(t, persistence.IsTaskNotFound(taskErr))
		assert.True(t, persistence.IsDefinitionNotFound(definitionErr))
		assert.False(t, persistence.IsTaskNotFound(definitionErr))

		assert.True(t, errors.Is(taskErr, persistence.ErrTaskNotFound))
		assert.True(t, persistence.IsNotFound(fmt.Errorf("wrapped: %w", definitionErr)))
	})

	t.Run("entity error contains context", func(t *testing.T) {
		err := persistence.NewTaskError("Claim", "task-123", persistence.ErrTaskNotFound)

		assert.Contains(t, err.Error(), "Claim")
		assert.Contains(t, err.Error(), "task task-123")
		assert.Contains(t, err.Error(), "task not found")
	})

	t.Run("unrelated errors are not classified", func(t *testing.T) {
		assert.False(t, persistence.IsNotFound(errors.New("connection refused")))
	})
}
