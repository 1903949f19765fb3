package postgresql_test

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dukex/caseflow/pkg/log"
	"github.com/dukex/caseflow/pkg/models"
	"github.com/dukex/caseflow/pkg/persistence"
	"github.com/dukex/caseflow/pkg/persistence/postgresql"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var postgresContainer *postgres.PostgresContainer

func dropDb(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	for _, table := range []string{
		"audit_events", "contacts", "organization_senders", "field_permission_overrides",
		"organization_members", "executions", "tasks", "workflow_definitions", "schema_migrations",
	} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	err = db.Close()
	require.NoError(t, err)
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context, string) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping PostgreSQL integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("caseflow_test"),
			postgres.WithUsername("caseflow"),
			postgres.WithPassword("caseflow"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDb(ctx, t, databaseURL)

	p, err := postgresql.NewPersistence(ctx, log.Discard(), databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDb(ctx, t, databaseURL)

		err = p.Close(ctx)
		require.NoError(t, err)

		cancel()
	})

	return p, ctx, databaseURL
}

func TestNewPersistence_Migrations(t *testing.T) {
	p, ctx, databaseURL := setupTestDB(t)

	require.NoError(t, p.HealthCheck(ctx))

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	defer func() {
		require.NoError(t, db.Close())
	}()

	var version int

	err = db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&version)
	require.NoError(t, err)
	assert.Equal(t, 2, version)

	for _, table := range []string{"tasks", "workflow_definitions", "organization_members", "audit_events"} {
		var exists bool

		err = db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT FROM information_schema.tables WHERE table_name = $1)`, table).Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, "%s table should exist", table)
	}
}

func TestDefinitionRepository_Versioning(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	definition := &models.WorkflowDefinition{
		ID:       "wf-1",
		OrgID:    "org-1",
		Name:     "Onboarding",
		Trigger:  models.Trigger{Type: models.TriggerTypeManual},
		Statuses: []models.WorkflowStatus{{ID: "new", Label: "New", Order: 1}},
		Steps:    []models.Step{{ID: "s1", Name: "Call"}},
	}

	require.NoError(t, p.Definitions().Save(ctx, definition))
	assert.Equal(t, 1, definition.Version)

	definition.Name = "Onboarding v2"
	require.NoError(t, p.Definitions().Save(ctx, definition))
	assert.Equal(t, 2, definition.Version)

	loaded, err := p.Definitions().GetByID(ctx, "org-1", "wf-1")
	require.NoError(t, err)
	assert.Equal(t, "Onboarding v2", loaded.Name)
	assert.Equal(t, 2, loaded.Version)
	assert.Equal(t, definition.Steps, loaded.Steps)

	_, err = p.Definitions().GetByID(ctx, "org-2", "wf-1")
	assert.True(t, persistence.IsDefinitionNotFound(err))
}

func saveTask(t *testing.T, ctx context.Context, p persistence.Persistence, taskType models.TaskType) *models.Task {
	t.Helper()

	role := "reviewer"
	executionID := "exec-1"
	task := &models.Task{
		OrgID:               "org-1",
		WorkflowExecutionID: &executionID,
		Title:               "Review contract",
		AssignedRole:        &role,
		TaskType:            taskType,
		Status:              models.TaskStatusTodo,
	}
	require.NoError(t, p.Tasks().Save(ctx, task))

	return task
}

func TestTaskRepository_RoundTrip(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	task := saveTask(t, ctx, p, models.TaskTypeApproval)

	loaded, err := p.Tasks().GetByID(ctx, "org-1", task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Review contract", loaded.Title)
	assert.Equal(t, models.TaskTypeApproval, loaded.TaskType)
	assert.Equal(t, models.PriorityMedium, loaded.Priority)
	assert.Equal(t, "reviewer", *loaded.AssignedRole)
	assert.Equal(t, "exec-1", *loaded.WorkflowExecutionID)
	assert.Nil(t, loaded.AssignedTo)
	assert.Nil(t, loaded.Outcome)

	_, err = p.Tasks().GetByID(ctx, "org-1", "missing")
	assert.True(t, persistence.IsTaskNotFound(err))
}

func TestTaskRepository_ConcurrentClaims(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	task := saveTask(t, ctx, p, models.TaskTypeStandard)

	var (
		wg      sync.WaitGroup
		winners atomic.Int32
	)

	for _, userID := range []string{"u1", "u2", "u3", "u4", "u5"} {
		wg.Add(1)

		go func() {
			defer wg.Done()

			ok, err := p.Tasks().Claim(ctx, "org-1", task.ID, userID, time.Now().UTC())
			assert.NoError(t, err)

			if ok {
				winners.Add(1)
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())

	loaded, err := p.Tasks().GetByID(ctx, "org-1", task.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.AssignedTo)
	require.NotNil(t, loaded.ClaimedAt)
}

func TestTaskRepository_ConcurrentApproveReject(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	task := saveTask(t, ctx, p, models.TaskTypeApproval)

	var (
		wg      sync.WaitGroup
		winners atomic.Int32
	)

	for _, outcome := range []models.TaskOutcome{models.TaskOutcomeApproved, models.TaskOutcomeRejected} {
		wg.Add(1)

		go func() {
			defer wg.Done()

			ok, err := p.Tasks().Complete(ctx, "org-1", task.ID, models.TaskCompletion{
				CompletedBy: "u1",
				CompletedAt: time.Now().UTC(),
				Outcome:     &outcome,
			})
			assert.NoError(t, err)

			if ok {
				winners.Add(1)
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())

	loaded, err := p.Tasks().GetByID(ctx, "org-1", task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusDone, loaded.Status)
	require.NotNil(t, loaded.Outcome)
}

func TestTaskRepository_UpdateFieldsIsConditional(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	task := saveTask(t, ctx, p, models.TaskTypeStandard)

	ok, err := p.Tasks().Complete(ctx, "org-1", task.ID, models.TaskCompletion{CompletedBy: "u1", CompletedAt: time.Now().UTC()})
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = p.Tasks().UpdateFields(ctx, "org-1", task.ID, persistence.GuardOf(task), persistence.TaskFields{
		Title:     "Overwritten",
		Status:    models.TaskStatusInProgress,
		Priority:  models.PriorityLow,
		UpdatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.False(t, ok)

	loaded, err := p.Tasks().GetByID(ctx, "org-1", task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusDone, loaded.Status)
	assert.Equal(t, "Review contract", loaded.Title)
}

func TestTaskRepository_UpdateFieldsKeepsClaim(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	task := saveTask(t, ctx, p, models.TaskTypeStandard)
	guard := persistence.GuardOf(task)

	ok, err := p.Tasks().Claim(ctx, "org-1", task.ID, "u2", time.Now().UTC())
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = p.Tasks().UpdateFields(ctx, "org-1", task.ID, guard, persistence.TaskFields{
		Title:        "Renamed",
		AssignedRole: task.AssignedRole,
		Status:       models.TaskStatusTodo,
		Priority:     models.PriorityLow,
		UpdatedAt:    time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.False(t, ok)

	loaded, err := p.Tasks().GetByID(ctx, "org-1", task.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.AssignedTo)
	assert.Equal(t, "u2", *loaded.AssignedTo)
	assert.Equal(t, "Review contract", loaded.Title)

	ok, err = p.Tasks().UpdateFields(ctx, "org-1", task.ID, persistence.GuardOf(loaded), persistence.TaskFields{
		Title:        "Renamed",
		AssignedTo:   loaded.AssignedTo,
		AssignedRole: loaded.AssignedRole,
		Status:       models.TaskStatusTodo,
		Priority:     models.PriorityLow,
		UpdatedAt:    time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestExecutionRepository(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	execution := &models.Execution{
		OrgID:             "org-1",
		DefinitionID:      "wf-1",
		DefinitionVersion: 3,
		Status:            models.ExecutionStatusPending,
		Steps:             []models.RuntimeStep{{ID: "trigger", Type: models.RuntimeStepTrigger}},
		Input:             map[string]any{"source": "api"},
		TriggeredBy:       "u1",
	}
	require.NoError(t, p.Executions().Save(ctx, execution))

	require.NoError(t, p.Executions().UpdateStatus(ctx, "org-1", execution.ID, models.ExecutionStatusFailed, "", "engine unavailable"))

	loaded, err := p.Executions().GetByID(ctx, "org-1", execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusFailed, loaded.Status)
	assert.Equal(t, "engine unavailable", loaded.Error)
	assert.Equal(t, 3, loaded.DefinitionVersion)
	assert.Equal(t, execution.Steps, loaded.Steps)
	assert.Equal(t, "api", loaded.Input["source"])

	err = p.Executions().UpdateStatus(ctx, "org-1", "missing", models.ExecutionStatusRunning, "run", "")
	assert.True(t, persistence.IsExecutionNotFound(err))
}

func TestOrganizationRepository(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	orgs := p.Organizations()

	require.NoError(t, orgs.SaveMember(ctx, &models.Member{OrgID: "org-1", UserID: "u2", Email: "b@example.com", Role: "org:member", Roles: []string{"finance"}}))
	require.NoError(t, orgs.SaveMember(ctx, &models.Member{OrgID: "org-1", UserID: "u1", Email: "a@example.com", Role: "org:admin"}))

	members, err := orgs.Members(ctx, "org-1")
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "u1", members[0].UserID)
	assert.Equal(t, []string{"finance"}, members[1].Roles)

	_, err = orgs.Member(ctx, "org-1", "u9")
	assert.True(t, persistence.IsMemberNotFound(err))

	require.NoError(t, orgs.SaveFieldOverride(ctx, models.FieldPermissionOverride{OrgID: "org-1", Role: "user", Field: "notes", Readable: true}))
	require.NoError(t, orgs.SaveFieldOverride(ctx, models.FieldPermissionOverride{OrgID: "org-1", Role: "user", Field: "notes", Readable: true, Writable: true}))

	overrides, err := orgs.FieldOverrides(ctx, "org-1")
	require.NoError(t, err)
	require.Len(t, overrides, 1)
	assert.True(t, overrides[0].Writable)

	require.NoError(t, orgs.SetAllowedSenders(ctx, "org-1", []string{"ops@example.com", "team@example.com"}))
	require.NoError(t, orgs.SetAllowedSenders(ctx, "org-1", []string{"ops@example.com"}))

	senders, err := orgs.AllowedSenders(ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"ops@example.com"}, senders)

	senders, err = orgs.AllowedSenders(ctx, "org-2")
	require.NoError(t, err)
	assert.Empty(t, senders)
}

func TestContactAndAuditRepositories(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	require.NoError(t, p.Contacts().Save(ctx, &models.Contact{
		ID:     "c1",
		OrgID:  "org-1",
		Fields: map[string]any{"firstName": "Ada", "email": "ada@example.com"},
	}))

	contact, err := p.Contacts().GetByID(ctx, "org-1", "c1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", contact.Fields["firstName"])

	_, err = p.Contacts().GetByID(ctx, "org-1", "c2")
	assert.True(t, persistence.IsContactNotFound(err))

	first := time.Now().UTC().Add(-time.Minute)
	require.NoError(t, p.Audit().Record(ctx, &models.AuditEvent{OrgID: "org-1", EntityType: "task", EntityID: "t1", Action: "task.claimed", ActorID: "u1", CreatedAt: first}))
	require.NoError(t, p.Audit().Record(ctx, &models.AuditEvent{OrgID: "org-1", EntityType: "task", EntityID: "t1", Action: "task.approved", ActorID: "u1", Metadata: map[string]any{"comment": "ok"}}))

	events, err := p.Audit().ListByEntity(ctx, "org-1", "task", "t1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "task.claimed", events[0].Action)
	assert.Equal(t, "ok", events[1].Metadata["comment"])
}
