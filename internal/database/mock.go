package database

import (
	"context"

	"github.com/npezzotti/taskpulse/internal/types"
	"github.com/stretchr/testify/mock"
)

type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Create(ctx context.Context, data types.NotificationData) (*types.Notification, error) {
	args := m.Called(ctx, data)
	if n, ok := args.Get(0).(*types.Notification); ok {
		return n, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockNotificationRepository) CountUnread(ctx context.Context, recipient string) (int64, error) {
	args := m.Called(ctx, recipient)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationRepository) List(ctx context.Context, recipient string, limit int, unreadOnly bool) ([]types.Notification, error) {
	args := m.Called(ctx, recipient, limit, unreadOnly)
	if n, ok := args.Get(0).([]types.Notification); ok {
		return n, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockNotificationRepository) MarkRead(ctx context.Context, id, recipient string) error {
	args := m.Called(ctx, id, recipient)
	return args.Error(0)
}

func (m *MockNotificationRepository) MarkAllRead(ctx context.Context, recipient string) (int64, error) {
	args := m.Called(ctx, recipient)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockNotificationRepository) Close() error {
	args := m.Called()
	return args.Error(0)
}
