package mocks

import (
	"context"

	"github.com/pageza/clientpulse/backend/internal/service"
	"github.com/stretchr/testify/mock"
)

// MockJobRunner is a mock implementation of service.IJobRunner
type MockJobRunner struct {
	mock.Mock
}

func (m *MockJobRunner) Run(ctx context.Context, name string) ([]*service.JobResult, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*service.JobResult), args.Error(1)
}
