package file

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dukex/caseflow/pkg/models"
	"github.com/dukex/caseflow/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTask(t *testing.T, repo persistence.TaskRepository, taskType models.TaskType) *models.Task {
	t.Helper()

	role := "reviewer"
	task := &models.Task{
		OrgID:        "org-1",
		Title:        "Review contract",
		AssignedRole: &role,
		TaskType:     taskType,
		Status:       models.TaskStatusTodo,
		Priority:     models.PriorityMedium,
	}
	require.NoError(t, repo.Save(t.Context(), task))

	return task
}

func TestTaskRepository_Claim(t *testing.T) {
	repo := NewPersistence(t.TempDir()).Tasks()
	task := newTask(t, repo, models.TaskTypeStandard)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	applied, err := repo.Claim(t.Context(), "org-1", task.ID, "u1", at)
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = repo.Claim(t.Context(), "org-1", task.ID, "u2", at)
	require.NoError(t, err)
	assert.False(t, applied)

	loaded, err := repo.GetByID(t.Context(), "org-1", task.ID)
	require.NoError(t, err)
	assert.Equal(t, "u1", *loaded.AssignedTo)
	assert.Equal(t, at, *loaded.ClaimedAt)

	applied, err = repo.Claim(t.Context(), "org-1", "missing", "u1", at)
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestTaskRepository_ConcurrentClaims(t *testing.T) {
	repo := NewPersistence(t.TempDir()).Tasks()
	task := newTask(t, repo, models.TaskTypeStandard)

	var (
		wg      sync.WaitGroup
		winners atomic.Int32
	)

	for _, userID := range []string{"u1", "u2", "u3", "u4"} {
		wg.Add(1)

		go func() {
			defer wg.Done()

			applied, err := repo.Claim(t.Context(), "org-1", task.ID, userID, time.Now())
			assert.NoError(t, err)

			if applied {
				winners.Add(1)
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
}

func TestTaskRepository_ConcurrentCompletions(t *testing.T) {
	repo := NewPersistence(t.TempDir()).Tasks()
	task := newTask(t, repo, models.TaskTypeApproval)

	approved := models.TaskOutcomeApproved
	rejected := models.TaskOutcomeRejected

	var (
		wg      sync.WaitGroup
		winners atomic.Int32
	)

	for _, outcome := range []*models.TaskOutcome{&approved, &rejected} {
		wg.Add(1)

		go func() {
			defer wg.Done()

			applied, err := repo.Complete(t.Context(), "org-1", task.ID, models.TaskCompletion{
				CompletedBy: "u1",
				CompletedAt: time.Now().UTC(),
				Outcome:     outcome,
			})
			assert.NoError(t, err)

			if applied {
				winners.Add(1)
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())

	loaded, err := repo.GetByID(t.Context(), "org-1", task.ID)
	require.NoError(t, err)
	assert.True(t, loaded.IsDone())
	require.NotNil(t, loaded.Outcome)
	assert.Equal(t, "u1", *loaded.CompletedBy)
}

func TestTaskRepository_UpdateFields(t *testing.T) {
	repo := NewPersistence(t.TempDir()).Tasks()
	task := newTask(t, repo, models.TaskTypeStandard)

	fields := persistence.TaskFields{
		Title:     "Review signed contract",
		Status:    models.TaskStatusInProgress,
		Priority:  models.PriorityHigh,
		UpdatedAt: time.Now().UTC(),
	}

	stale := persistence.GuardOf(task)
	stale.Status = models.TaskStatusBacklog

	applied, err := repo.UpdateFields(t.Context(), "org-1", task.ID, stale, fields)
	require.NoError(t, err)
	assert.False(t, applied, "stale expected status must not apply")

	applied, err = repo.UpdateFields(t.Context(), "org-1", task.ID, persistence.GuardOf(task), fields)
	require.NoError(t, err)
	assert.True(t, applied)

	loaded, err := repo.GetByID(t.Context(), "org-1", task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Review signed contract", loaded.Title)
	assert.Equal(t, models.TaskStatusInProgress, loaded.Status)
	assert.Nil(t, loaded.AssignedRole)
}

func TestTaskRepository_UpdateFieldsKeepsClaim(t *testing.T) {
	repo := NewPersistence(t.TempDir()).Tasks()
	task := newTask(t, repo, models.TaskTypeStandard)
	guard := persistence.GuardOf(task)

	claimed, err := repo.Claim(t.Context(), "org-1", task.ID, "u2", time.Now().UTC())
	require.NoError(t, err)
	require.True(t, claimed)

	applied, err := repo.UpdateFields(t.Context(), "org-1", task.ID, guard, persistence.TaskFields{
		Title:        "Renamed",
		AssignedRole: task.AssignedRole,
		Status:       models.TaskStatusTodo,
		Priority:     models.PriorityMedium,
		UpdatedAt:    time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.False(t, applied)

	loaded, err := repo.GetByID(t.Context(), "org-1", task.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.AssignedTo)
	assert.Equal(t, "u2", *loaded.AssignedTo)
	assert.Equal(t, "Review contract", loaded.Title)
}
