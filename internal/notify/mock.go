package notify

import (
	"context"

	"github.com/npezzotti/taskpulse/internal/types"
	"github.com/stretchr/testify/mock"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Create(ctx context.Context, data types.NotificationData) (*types.Notification, error) {
	args := m.Called(ctx, data)
	switch v := args.Get(0).(type) {
	case *types.Notification:
		return v, args.Error(1)
	case func(context.Context, types.NotificationData) *types.Notification:
		return v(ctx, data), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) CountUnread(ctx context.Context, recipient string) (int64, error) {
	args := m.Called(ctx, recipient)
	return args.Get(0).(int64), args.Error(1)
}

type MockEmitter struct {
	mock.Mock
}

func (m *MockEmitter) EmitToRoom(room, event string, data any) {
	m.Called(room, event, data)
}
