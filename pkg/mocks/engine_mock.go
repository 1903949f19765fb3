package mocks

import (
	"context"

	"github.com/dukex/caseflow/pkg/engine"
	"github.com/stretchr/testify/mock"
)

// MockEngineClient is a mock implementation of engine.Client interface.
type MockEngineClient struct {
	mock.Mock
}

func (m *MockEngineClient) Start(ctx context.Context, req engine.StartRequest) (string, error) {
	args := m.Called(ctx, req)

	return args.String(0), args.Error(1)
}

func (m *MockEngineClient) Signal(ctx context.Context, orgID, executionID, name string, payload map[string]any) error {
	args := m.Called(ctx, orgID, executionID, name, payload)

	return args.Error(0)
}
