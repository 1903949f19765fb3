package mocks

import (
	"context"
	"time"

	"github.com/dukex/caseflow/pkg/models"
	"github.com/dukex/caseflow/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// MockTaskRepository is a mock implementation of persistence.TaskRepository interface.
type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) Save(ctx context.Context, task *models.Task) error {
	args := m.Called(ctx, task)

	return args.Error(0)
}

func (m *MockTaskRepository) GetByID(ctx context.Context, orgID, id string) (*models.Task, error) {
	args := m.Called(ctx, orgID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Task), args.Error(1)
}

func (m *MockTaskRepository) Claim(ctx context.Context, orgID, id, userID string, at time.Time) (bool, error) {
	args := m.Called(ctx, orgID, id, userID, at)

	return args.Bool(0), args.Error(1)
}

func (m *MockTaskRepository) Complete(ctx context.Context, orgID, id string, completion models.TaskCompletion) (bool, error) {
	args := m.Called(ctx, orgID, id, completion)

	return args.Bool(0), args.Error(1)
}

func (m *MockTaskRepository) UpdateFields(
	ctx context.Context,
	orgID, id string,
	expected persistence.TaskGuard,
	fields persistence.TaskFields,
) (bool, error) {
	args := m.Called(ctx, orgID, id, expected, fields)

	return args.Bool(0), args.Error(1)
}

// MockAuditRepository is a mock implementation of persistence.AuditRepository interface.
type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Record(ctx context.Context, event *models.AuditEvent) error {
	args := m.Called(ctx, event)

	return args.Error(0)
}

func (m *MockAuditRepository) ListByEntity(ctx context.Context, orgID, entityType, entityID string) ([]*models.AuditEvent, error) {
	args := m.Called(ctx, orgID, entityType, entityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.AuditEvent), args.Error(1)
}
