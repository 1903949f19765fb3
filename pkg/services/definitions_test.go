package services

import (
	"context"
	"testing"

	"github.com/dukex/caseflow/pkg/compiler"
	"github.com/dukex/caseflow/pkg/log"
	"github.com/dukex/caseflow/pkg/models"
	"github.com/dukex/caseflow/pkg/otelhelper"
	"github.com/dukex/caseflow/pkg/persistence/file"
	"github.com/dukex/caseflow/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDefinitions(t *testing.T) *Definitions {
	t.Helper()

	return NewDefinitions(file.NewPersistence(t.TempDir()), otelhelper.NoopTracer(), log.Discard())
}

func TestDefinitions_SaveAndCompile(t *testing.T) {
	service := newDefinitions(t)
	ctx := context.Background()

	saved, err := service.Save(ctx, orgID, testutil.CreateTestDefinition(orgID))
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, 1, saved.Version)

	again, err := service.Save(ctx, orgID, saved)
	require.NoError(t, err)
	assert.Equal(t, 2, again.Version)

	steps, err := service.Compile(ctx, orgID, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "trigger", steps[0].ID)

	_, err = service.Compile(ctx, orgID, "missing")
	assert.True(t, IsNotFoundError(err))
}

func TestDefinitions_SaveRequiresName(t *testing.T) {
	service := newDefinitions(t)

	definition := testutil.CreateTestDefinition(orgID, func(d *models.WorkflowDefinition) { d.Name = " " })

	_, err := service.Save(context.Background(), orgID, definition)
	assert.True(t, IsValidationError(err))
}

func TestDefinitions_CompileDocument(t *testing.T) {
	service := newDefinitions(t)

	_, err := service.CompileDocument(context.Background(), []byte(`{"name": "x"`))
	assert.True(t, IsValidationError(err))

	_, err = service.CompileDocument(context.Background(), []byte(`{"name": "Empty", "trigger": {"type": "manual"}, "statuses": [], "steps": []}`))
	require.Error(t, err)

	errs, ok := compiler.AsErrors(err)
	require.True(t, ok)
	assert.NotEmpty(t, errs)
}
