package mocks

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"
)

// MockNotifier is a mock implementation of service.INotifier
type MockNotifier struct {
	mock.Mock
	mu sync.Mutex
}

func (m *MockNotifier) SendTemplatedEmail(ctx context.Context, to, templateKey string, fields map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	args := m.Called(ctx, to, templateKey, fields)
	return args.Error(0)
}

func (m *MockNotifier) SendChatMessage(ctx context.Context, recipientKey, text string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	args := m.Called(ctx, recipientKey, text)
	return args.Bool(0), args.Error(1)
}

// EmailsTo counts the recorded emails for recipient with templateKey.
func (m *MockNotifier) EmailsTo(recipient, templateKey string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, call := range m.Calls {
		if call.Method == "SendTemplatedEmail" && call.Arguments.String(1) == recipient && call.Arguments.String(2) == templateKey {
			n++
		}
	}
	return n
}
