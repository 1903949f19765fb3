package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dukex/caseflow/pkg/access"
	"github.com/dukex/caseflow/pkg/engine"
	"github.com/dukex/caseflow/pkg/log"
	"github.com/dukex/caseflow/pkg/mocks"
	"github.com/dukex/caseflow/pkg/models"
	"github.com/dukex/caseflow/pkg/otelhelper"
	"github.com/dukex/caseflow/pkg/persistence"
	"github.com/dukex/caseflow/pkg/persistence/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const orgID = "org-1"

func ptr[T any](v T) *T {
	return &v
}

type recordingNotifier struct {
	mu        sync.Mutex
	assignees []string
	roles     []string
	err       error
}

func (n *recordingNotifier) NotifyAssignee(_ context.Context, _ *models.Task, userID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.assignees = append(n.assignees, userID)

	return n.err
}

func (n *recordingNotifier) NotifyRole(_ context.Context, _ *models.Task, role string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.roles = append(n.roles, role)

	return n.err
}

// taskOverride swaps the task repository of a real store.
type taskOverride struct {
	persistence.Persistence

	tasks persistence.TaskRepository
}

func (p taskOverride) Tasks() persistence.TaskRepository {
	return p.tasks
}

type taskFixture struct {
	store    *file.Persistence
	engine   *mocks.MockEngineClient
	notifier *recordingNotifier
	tasks    *Tasks
}

func newTaskFixture(t *testing.T) *taskFixture {
	t.Helper()

	store := file.NewPersistence(t.TempDir())
	engineClient := &mocks.MockEngineClient{}
	notifier := &recordingNotifier{}
	audit := NewAuditTrail(store.Audit(), nil, log.Discard())

	return &taskFixture{
		store:    store,
		engine:   engineClient,
		notifier: notifier,
		tasks:    NewTasks(store, engineClient, notifier, audit, otelhelper.NoopTracer(), log.Discard()),
	}
}

// claimFirst lets another user claim the task right before each UpdateFields write.
type claimFirst struct {
	persistence.TaskRepository

	claimer string
}

func (r claimFirst) UpdateFields(
	ctx context.Context,
	orgID, id string,
	expected persistence.TaskGuard,
	fields persistence.TaskFields,
) (bool, error) {
	if _, err := r.TaskRepository.Claim(ctx, orgID, id, r.claimer, time.Now().UTC()); err != nil {
		return false, err
	}

	return r.TaskRepository.UpdateFields(ctx, orgID, id, expected, fields)
}

func (f *taskFixture) withTaskRepository(repo persistence.TaskRepository) *Tasks {
	p := taskOverride{Persistence: f.store, tasks: repo}

	return NewTasks(p, f.engine, f.notifier, nil, otelhelper.NoopTracer(), log.Discard())
}

func (f *taskFixture) seed(t *testing.T, task *models.Task) *models.Task {
	t.Helper()

	task.OrgID = orgID
	if task.Title == "" {
		task.Title = "Review contract"
	}

	if task.Status == "" {
		task.Status = models.TaskStatusTodo
	}

	if task.TaskType == "" {
		task.TaskType = models.TaskTypeStandard
	}

	require.NoError(t, f.store.Tasks().Save(context.Background(), task))

	return task
}

func (f *taskFixture) reload(t *testing.T, id string) *models.Task {
	t.Helper()

	task, err := f.store.Tasks().GetByID(context.Background(), orgID, id)
	require.NoError(t, err)

	return task
}

func (f *taskFixture) auditActions(t *testing.T, id string) []string {
	t.Helper()

	events, err := f.store.Audit().ListByEntity(context.Background(), orgID, "task", id)
	require.NoError(t, err)

	actions := make([]string, 0, len(events))
	for _, event := range events {
		actions = append(actions, event.Action)
	}

	return actions
}

func actor(userID, role string) models.AccessContext {
	return access.BuildAccessContext(userID, orgID, role, false, nil)
}

func admin(userID string) models.AccessContext {
	return access.BuildAccessContext(userID, orgID, "admin", true, nil)
}

func requireConflict(t *testing.T, err error) *ConflictError {
	t.Helper()

	require.Error(t, err)
	assert.True(t, IsConflictError(err))

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)

	return conflict
}

func TestTasks_Claim(t *testing.T) {
	f := newTaskFixture(t)
	task := f.seed(t, &models.Task{AssignedRole: ptr("org:Reviewer")})

	result, err := f.tasks.Claim(context.Background(), actor("user-1", "member"), task.ID)
	require.NoError(t, err)

	assert.Equal(t, "user-1", *result.Task.AssignedTo)
	assert.NotNil(t, result.Task.ClaimedAt)
	assert.False(t, result.WorkflowSignaled)
	assert.Equal(t, []string{AuditTaskClaimed}, f.auditActions(t, task.ID))
}

func TestTasks_ClaimPreconditions(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()

	noRole := f.seed(t, &models.Task{})
	_, err := f.tasks.Claim(ctx, admin("admin-1"), noRole.ID)
	assert.True(t, IsValidationError(err))

	roleTask := f.seed(t, &models.Task{AssignedRole: ptr("manager")})
	_, err = f.tasks.Claim(ctx, actor("user-1", "member"), roleTask.ID)
	assert.True(t, IsAuthorizationError(err))
	assert.Nil(t, f.reload(t, roleTask.ID).AssignedTo)

	result, err := f.tasks.Claim(ctx, admin("admin-1"), roleTask.ID)
	require.NoError(t, err)
	assert.Equal(t, "admin-1", *result.Task.AssignedTo)

	_, err = f.tasks.Claim(ctx, actor("user-2", "manager"), roleTask.ID)
	conflict := requireConflict(t, err)
	assert.Equal(t, ReasonAlreadyClaimed, conflict.Reason)
	assert.Equal(t, "admin-1", *conflict.AssignedTo)

	_, err = f.tasks.Claim(ctx, admin("admin-1"), "missing")
	assert.True(t, IsNotFoundError(err))
}

func TestTasks_ClaimConcurrent(t *testing.T) {
	f := newTaskFixture(t)
	task := f.seed(t, &models.Task{AssignedRole: ptr("reviewer")})

	const claimants = 8

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		winners   []string
		conflicts int
	)

	for i := range claimants {
		wg.Add(1)

		go func(userID string) {
			defer wg.Done()

			_, err := f.tasks.Claim(context.Background(), actor(userID, "reviewer"), task.ID)

			mu.Lock()
			defer mu.Unlock()

			switch {
			case err == nil:
				winners = append(winners, userID)
			case IsConflictError(err):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(string(rune('a' + i)))
	}

	wg.Wait()

	require.Len(t, winners, 1)
	assert.Equal(t, claimants-1, conflicts)
	assert.Equal(t, winners[0], *f.reload(t, task.ID).AssignedTo)
}

func TestTasks_ClaimLostRace(t *testing.T) {
	f := newTaskFixture(t)
	unassigned := &models.Task{ID: "task-1", OrgID: orgID, AssignedRole: ptr("reviewer"), Status: models.TaskStatusTodo}
	claimed := *unassigned
	claimed.AssignedTo = ptr("user-2")

	repo := &mocks.MockTaskRepository{}
	repo.On("GetByID", mock.Anything, orgID, "task-1").Return(unassigned, nil).Once()
	repo.On("Claim", mock.Anything, orgID, "task-1", "user-1", mock.Anything).Return(false, nil)
	repo.On("GetByID", mock.Anything, orgID, "task-1").Return(&claimed, nil).Once()

	_, err := f.withTaskRepository(repo).Claim(context.Background(), actor("user-1", "reviewer"), "task-1")

	conflict := requireConflict(t, err)
	assert.Equal(t, ReasonAlreadyClaimed, conflict.Reason)
	assert.Equal(t, "user-2", *conflict.AssignedTo)
	repo.AssertExpectations(t)
}

func TestTasks_ClaimLostRaceToDeletion(t *testing.T) {
	f := newTaskFixture(t)
	unassigned := &models.Task{ID: "task-1", OrgID: orgID, AssignedRole: ptr("reviewer"), Status: models.TaskStatusTodo}

	repo := &mocks.MockTaskRepository{}
	repo.On("GetByID", mock.Anything, orgID, "task-1").Return(unassigned, nil).Once()
	repo.On("Claim", mock.Anything, orgID, "task-1", "user-1", mock.Anything).Return(false, nil)
	repo.On("GetByID", mock.Anything, orgID, "task-1").
		Return(nil, persistence.NewTaskError("GetByID", "task-1", persistence.ErrTaskNotFound)).Once()

	_, err := f.withTaskRepository(repo).Claim(context.Background(), actor("user-1", "reviewer"), "task-1")

	assert.True(t, IsNotFoundError(err))
	assert.False(t, IsConflictError(err))
}

func TestTasks_Mutate(t *testing.T) {
	f := newTaskFixture(t)
	task := f.seed(t, &models.Task{AssignedTo: ptr("user-1"), Priority: models.PriorityLow})

	result, err := f.tasks.Mutate(context.Background(), actor("user-1", "member"), task.ID, TaskPatch{
		Title:      ptr("  Review signed contract "),
		Priority:   ptr(models.PriorityHigh),
		Status:     ptr(models.TaskStatusInProgress),
		AssignedTo: ptr("user-2"),
	})
	require.NoError(t, err)

	assert.Equal(t, "Review signed contract", result.Task.Title)
	assert.Equal(t, models.PriorityHigh, result.Task.Priority)
	assert.Equal(t, models.TaskStatusInProgress, result.Task.Status)
	assert.Equal(t, "user-2", *result.Task.AssignedTo)
	assert.Equal(t, []string{"user-2"}, f.notifier.assignees)
	assert.Equal(t, []string{AuditTaskUpdated}, f.auditActions(t, task.ID))
}

func TestTasks_MutateAuthorization(t *testing.T) {
	f := newTaskFixture(t)
	task := f.seed(t, &models.Task{AssignedTo: ptr("user-1")})

	_, err := f.tasks.Mutate(context.Background(), actor("user-2", "member"), task.ID, TaskPatch{Title: ptr("Hijacked")})

	assert.True(t, IsAuthorizationError(err))
	assert.Equal(t, "Review contract", f.reload(t, task.ID).Title)
	assert.Empty(t, f.auditActions(t, task.ID))

	_, err = f.tasks.Mutate(context.Background(), admin("admin-1"), task.ID, TaskPatch{Title: ptr("Renamed")})
	require.NoError(t, err)
}

func TestTasks_MutateValidation(t *testing.T) {
	f := newTaskFixture(t)
	task := f.seed(t, &models.Task{AssignedTo: ptr("user-1"), Status: models.TaskStatusInProgress})
	user := actor("user-1", "member")

	tests := []struct {
		name  string
		patch TaskPatch
	}{
		{"backwards_status", TaskPatch{Status: ptr(models.TaskStatusBacklog)}},
		{"done_status", TaskPatch{Status: ptr(models.TaskStatusDone)}},
		{"unknown_status", TaskPatch{Status: ptr(models.TaskStatus("archived"))}},
		{"empty_title", TaskPatch{Title: ptr("   ")}},
		{"unknown_priority", TaskPatch{Priority: ptr(models.TaskPriority("whenever"))}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.tasks.Mutate(context.Background(), user, task.ID, tt.patch)
			assert.True(t, IsValidationError(err), "got %v", err)
		})
	}

	assert.Equal(t, models.TaskStatusInProgress, f.reload(t, task.ID).Status)
}

func TestTasks_MutateNotificationFailureIsIgnored(t *testing.T) {
	f := newTaskFixture(t)
	f.notifier.err = errors.New("bus offline")
	task := f.seed(t, &models.Task{AssignedTo: ptr("user-1")})

	result, err := f.tasks.Mutate(context.Background(), admin("admin-1"), task.ID, TaskPatch{AssignedTo: ptr("user-3")})

	require.NoError(t, err)
	assert.Equal(t, "user-3", *result.Task.AssignedTo)
	assert.Equal(t, []string{"user-3"}, f.notifier.assignees)
}

func TestTasks_MutateRoleChangeNotifiesRole(t *testing.T) {
	f := newTaskFixture(t)
	task := f.seed(t, &models.Task{AssignedRole: ptr("reviewer")})

	_, err := f.tasks.Mutate(context.Background(), admin("admin-1"), task.ID, TaskPatch{AssignedRole: ptr("manager")})

	require.NoError(t, err)
	assert.Equal(t, []string{"manager"}, f.notifier.roles)
	assert.Empty(t, f.notifier.assignees)
}

func TestTasks_MutateLostRaceToCompletion(t *testing.T) {
	f := newTaskFixture(t)
	open := &models.Task{ID: "task-1", OrgID: orgID, AssignedTo: ptr("user-1"), Status: models.TaskStatusTodo}
	done := *open
	done.Status = models.TaskStatusDone

	repo := &mocks.MockTaskRepository{}
	repo.On("GetByID", mock.Anything, orgID, "task-1").Return(open, nil).Once()
	repo.On("UpdateFields", mock.Anything, orgID, "task-1", persistence.GuardOf(open), mock.Anything).Return(false, nil)
	repo.On("GetByID", mock.Anything, orgID, "task-1").Return(&done, nil).Once()

	_, err := f.withTaskRepository(repo).Mutate(context.Background(), actor("user-1", "member"), "task-1", TaskPatch{Title: ptr("New")})

	conflict := requireConflict(t, err)
	assert.Equal(t, ReasonAlreadyCompleted, conflict.Reason)
	assert.Equal(t, models.TaskStatusDone, conflict.Status)
}

func TestTasks_MutateKeepsConcurrentClaim(t *testing.T) {
	f := newTaskFixture(t)
	task := f.seed(t, &models.Task{AssignedRole: ptr("reviewer")})
	tasks := f.withTaskRepository(claimFirst{TaskRepository: f.store.Tasks(), claimer: "user-2"})

	_, err := tasks.Mutate(context.Background(), admin("admin-1"), task.ID, TaskPatch{Title: ptr("Renamed")})

	conflict := requireConflict(t, err)
	assert.Equal(t, ReasonAlreadyClaimed, conflict.Reason)
	assert.Equal(t, "user-2", *conflict.AssignedTo)

	stored := f.reload(t, task.ID)
	require.NotNil(t, stored.AssignedTo)
	assert.Equal(t, "user-2", *stored.AssignedTo)
	assert.Equal(t, "Review contract", stored.Title)
}

func TestTasks_SetStatusKeepsConcurrentClaim(t *testing.T) {
	f := newTaskFixture(t)
	task := f.seed(t, &models.Task{AssignedRole: ptr("reviewer")})
	tasks := f.withTaskRepository(claimFirst{TaskRepository: f.store.Tasks(), claimer: "user-2"})

	_, err := tasks.SetStatus(context.Background(), admin("admin-1"), task.ID, models.TaskStatusInProgress)

	conflict := requireConflict(t, err)
	assert.Equal(t, ReasonAlreadyClaimed, conflict.Reason)

	stored := f.reload(t, task.ID)
	require.NotNil(t, stored.AssignedTo)
	assert.Equal(t, "user-2", *stored.AssignedTo)
	assert.Equal(t, models.TaskStatusTodo, stored.Status)
}

func TestTasks_SetStatus(t *testing.T) {
	f := newTaskFixture(t)
	task := f.seed(t, &models.Task{AssignedTo: ptr("user-1"), Status: models.TaskStatusBacklog})
	user := actor("user-1", "member")

	result, err := f.tasks.SetStatus(context.Background(), user, task.ID, models.TaskStatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusInProgress, result.Task.Status)

	_, err = f.tasks.SetStatus(context.Background(), user, task.ID, models.TaskStatusTodo)
	assert.True(t, IsValidationError(err))

	_, err = f.tasks.SetStatus(context.Background(), actor("user-2", "member"), task.ID, models.TaskStatusInProgress)
	assert.True(t, IsAuthorizationError(err))

	_, err = f.tasks.SetStatus(context.Background(), user, task.ID, models.TaskStatus("archived"))
	assert.True(t, IsValidationError(err))

	assert.Equal(t, []string{AuditTaskStatusChanged}, f.auditActions(t, task.ID))
}

func TestTasks_SetStatusDoneSignalsOnce(t *testing.T) {
	f := newTaskFixture(t)
	task := f.seed(t, &models.Task{AssignedTo: ptr("user-1"), WorkflowExecutionID: ptr("exec-1")})
	user := actor("user-1", "member")

	f.engine.On("Signal", mock.Anything, orgID, "exec-1", engine.SignalTaskCompleted,
		map[string]any{"taskId": task.ID, "completedBy": "user-1"}).Return(nil)

	result, err := f.tasks.SetStatus(context.Background(), user, task.ID, models.TaskStatusDone)
	require.NoError(t, err)
	assert.True(t, result.WorkflowSignaled)
	assert.Equal(t, models.TaskStatusDone, result.Task.Status)
	assert.Equal(t, "user-1", *result.Task.CompletedBy)

	again, err := f.tasks.SetStatus(context.Background(), user, task.ID, models.TaskStatusDone)
	require.NoError(t, err)
	assert.False(t, again.WorkflowSignaled)

	f.engine.AssertNumberOfCalls(t, "Signal", 1)
	assert.Equal(t, []string{AuditTaskCompleted}, f.auditActions(t, task.ID))
}

func TestTasks_SetStatusDoneSignalFailure(t *testing.T) {
	f := newTaskFixture(t)
	task := f.seed(t, &models.Task{AssignedTo: ptr("user-1"), WorkflowExecutionID: ptr("exec-1")})

	f.engine.On("Signal", mock.Anything, orgID, "exec-1", engine.SignalTaskCompleted, mock.Anything).
		Return(errors.New("engine unavailable"))

	result, err := f.tasks.SetStatus(context.Background(), actor("user-1", "member"), task.ID, models.TaskStatusDone)

	require.NoError(t, err)
	assert.False(t, result.WorkflowSignaled)
	assert.Equal(t, models.TaskStatusDone, f.reload(t, task.ID).Status)
}

func TestTasks_SetStatusDoneWithoutExecution(t *testing.T) {
	f := newTaskFixture(t)
	task := f.seed(t, &models.Task{AssignedTo: ptr("user-1")})

	result, err := f.tasks.SetStatus(context.Background(), actor("user-1", "member"), task.ID, models.TaskStatusDone)

	require.NoError(t, err)
	assert.False(t, result.WorkflowSignaled)
	f.engine.AssertNotCalled(t, "Signal", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTasks_SetStatusDoneRejectsApprovalTasks(t *testing.T) {
	f := newTaskFixture(t)
	task := f.seed(t, &models.Task{AssignedTo: ptr("user-1"), TaskType: models.TaskTypeApproval})

	_, err := f.tasks.SetStatus(context.Background(), actor("user-1", "member"), task.ID, models.TaskStatusDone)

	assert.True(t, IsValidationError(err))
	assert.Equal(t, models.TaskStatusTodo, f.reload(t, task.ID).Status)
}

func TestTasks_SetStatusDoneOnCompletedApprovalTask(t *testing.T) {
	f := newTaskFixture(t)
	task := f.seed(t, &models.Task{AssignedTo: ptr("user-1"), TaskType: models.TaskTypeApproval, WorkflowExecutionID: ptr("exec-1")})
	user := actor("user-1", "member")

	f.engine.On("Signal", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	_, err := f.tasks.Approve(context.Background(), user, task.ID, "")
	require.NoError(t, err)

	result, err := f.tasks.SetStatus(context.Background(), user, task.ID, models.TaskStatusDone)
	require.NoError(t, err)
	assert.False(t, result.WorkflowSignaled)
	assert.Equal(t, models.TaskStatusDone, result.Task.Status)
	f.engine.AssertNumberOfCalls(t, "Signal", 2)
}

func TestTasks_Approve(t *testing.T) {
	f := newTaskFixture(t)
	task := f.seed(t, &models.Task{
		AssignedTo:          ptr("user-1"),
		TaskType:            models.TaskTypeApproval,
		WorkflowExecutionID: ptr("exec-1"),
	})

	var (
		mu      sync.Mutex
		signals []string
	)

	record := func(args mock.Arguments) {
		mu.Lock()
		defer mu.Unlock()

		signals = append(signals, args.String(3))
	}

	f.engine.On("Signal", mock.Anything, orgID, "exec-1", engine.SignalTaskCompleted, mock.Anything).Return(nil).Run(record)
	f.engine.On("Signal", mock.Anything, orgID, "exec-1", engine.SignalApprovalSubmitted,
		map[string]any{"outcome": "approved", "approvedBy": "user-1", "comment": "looks good"}).Return(nil).Run(record)

	result, err := f.tasks.Approve(context.Background(), actor("user-1", "member"), task.ID, "  looks good ")
	require.NoError(t, err)

	assert.True(t, result.WorkflowSignaled)
	assert.Equal(t, models.TaskStatusDone, result.Task.Status)
	assert.Equal(t, models.TaskOutcomeApproved, *result.Task.Outcome)
	assert.Equal(t, "looks good", *result.Task.OutcomeComment)
	assert.Equal(t, []string{engine.SignalTaskCompleted, engine.SignalApprovalSubmitted}, signals)
	assert.Equal(t, []string{AuditTaskApproved}, f.auditActions(t, task.ID))
}

func TestTasks_RejectSignalFailures(t *testing.T) {
	tests := []struct {
		name           string
		completedErr   error
		approvalErr    error
		expectSignaled bool
	}{
		{"both_delivered", nil, nil, true},
		{"completion_failed", errors.New("timeout"), nil, true},
		{"approval_failed", nil, errors.New("timeout"), true},
		{"both_failed", errors.New("timeout"), errors.New("timeout"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTaskFixture(t)
			task := f.seed(t, &models.Task{
				AssignedTo:          ptr("user-1"),
				TaskType:            models.TaskTypeApproval,
				WorkflowExecutionID: ptr("exec-1"),
			})

			f.engine.On("Signal", mock.Anything, orgID, "exec-1", engine.SignalTaskCompleted, mock.Anything).Return(tt.completedErr)
			f.engine.On("Signal", mock.Anything, orgID, "exec-1", engine.SignalApprovalSubmitted, mock.Anything).Return(tt.approvalErr)

			result, err := f.tasks.Reject(context.Background(), actor("user-1", "member"), task.ID, "")
			require.NoError(t, err)

			assert.Equal(t, tt.expectSignaled, result.WorkflowSignaled)
			assert.Equal(t, models.TaskOutcomeRejected, *result.Task.Outcome)
			assert.Nil(t, result.Task.OutcomeComment)
			f.engine.AssertNumberOfCalls(t, "Signal", 2)
		})
	}
}

func TestTasks_DecisionPreconditions(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()
	user := actor("user-1", "member")

	standard := f.seed(t, &models.Task{AssignedTo: ptr("user-1")})
	_, err := f.tasks.Approve(ctx, user, standard.ID, "")
	assert.True(t, IsValidationError(err))

	approval := f.seed(t, &models.Task{AssignedTo: ptr("user-1"), TaskType: models.TaskTypeApproval})
	_, err = f.tasks.Approve(ctx, actor("user-2", "reviewer"), approval.ID, "")
	assert.True(t, IsAuthorizationError(err))

	_, err = f.tasks.Reject(ctx, user, approval.ID, "")
	require.NoError(t, err)

	_, err = f.tasks.Approve(ctx, user, approval.ID, "")
	conflict := requireConflict(t, err)
	assert.Equal(t, ReasonAlreadyCompleted, conflict.Reason)
	assert.Equal(t, models.TaskOutcomeRejected, *conflict.Outcome)
}

func TestTasks_DecisionCommentRequired(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()

	definition := &models.WorkflowDefinition{
		OrgID:    orgID,
		Name:     "Contract review",
		Settings: models.DefinitionSettings{RequireDecisionComment: true},
	}
	require.NoError(t, f.store.Definitions().Save(ctx, definition))

	task := f.seed(t, &models.Task{
		AssignedTo:           ptr("user-1"),
		TaskType:             models.TaskTypeApproval,
		WorkflowDefinitionID: ptr(definition.ID),
	})
	user := actor("user-1", "member")

	_, err := f.tasks.Approve(ctx, user, task.ID, "   ")
	assert.True(t, IsValidationError(err))
	assert.Equal(t, models.TaskStatusTodo, f.reload(t, task.ID).Status)

	result, err := f.tasks.Approve(ctx, user, task.ID, "Signed by legal")
	require.NoError(t, err)
	assert.Equal(t, "Signed by legal", *result.Task.OutcomeComment)
}

func TestTasks_ConcurrentApproveAndReject(t *testing.T) {
	f := newTaskFixture(t)
	task := f.seed(t, &models.Task{
		AssignedTo:          ptr("user-1"),
		TaskType:            models.TaskTypeApproval,
		WorkflowExecutionID: ptr("exec-1"),
	})
	user := actor("user-1", "member")

	f.engine.On("Signal", mock.Anything, orgID, "exec-1", mock.Anything, mock.Anything).Return(nil)

	type outcome struct {
		result *TaskResult
		err    error
	}

	results := make(chan outcome, 2)
	start := make(chan struct{})

	for _, decide := range []func(context.Context, models.AccessContext, string, string) (*TaskResult, error){
		f.tasks.Approve,
		f.tasks.Reject,
	} {
		go func() {
			<-start

			result, err := decide(context.Background(), user, task.ID, "")
			results <- outcome{result, err}
		}()
	}

	close(start)

	first, second := <-results, <-results

	winner, loser := first, second
	if first.err != nil {
		winner, loser = second, first
	}

	require.NoError(t, winner.err)
	conflict := requireConflict(t, loser.err)
	assert.Equal(t, *winner.result.Task.Outcome, *conflict.Outcome)

	f.engine.AssertNumberOfCalls(t, "Signal", 2)
	assert.Equal(t, *winner.result.Task.Outcome, *f.reload(t, task.ID).Outcome)
}

func TestTasks_Get(t *testing.T) {
	f := newTaskFixture(t)
	task := f.seed(t, &models.Task{AssignedRole: ptr("manager")})

	result, err := f.tasks.Get(context.Background(), actor("user-1", "manager"), task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, result.Task.ID)

	_, err = f.tasks.Get(context.Background(), actor("user-2", "guest"), task.ID)
	assert.True(t, IsAuthorizationError(err))

	_, err = f.tasks.Get(context.Background(), admin("admin-1"), "missing")
	assert.True(t, IsNotFoundError(err))
}
