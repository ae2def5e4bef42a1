package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/npezzotti/taskpulse/internal/presence"
	"github.com/npezzotti/taskpulse/internal/stats"
	"github.com/npezzotti/taskpulse/internal/testutil"
	"github.com/npezzotti/taskpulse/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

var actor = Actor{Id: "u1", Name: "alice"}

func storedFrom(data types.NotificationData, id string) *types.Notification {
	return &types.Notification{
		Id:                  id,
		Recipient:           data.Recipient,
		Sender:              data.Sender,
		Type:                data.Type,
		Title:               data.Title,
		Message:             data.Message,
		RelatedTask:         data.RelatedTask,
		RelatedComment:      data.RelatedComment,
		RelatedOrganization: data.RelatedOrganization,
		RelatedProject:      data.RelatedProject,
		CreatedAt:           time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

type fixture struct {
	store    *MockStore
	emitter  *MockEmitter
	registry *presence.Registry
	d        *Dispatcher
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		store:    &MockStore{},
		emitter:  &MockEmitter{},
		registry: presence.NewRegistry(),
	}
	f.d = NewDispatcher(testutil.TestLogger(t), f.store, f.registry, f.emitter, stats.NewPermissiveMock())
	t.Cleanup(func() {
		f.store.AssertExpectations(t)
		f.emitter.AssertExpectations(t)
	})
	return f
}

func (f *fixture) online(id string) {
	f.registry.Connect(types.Identity{Id: id}, "c-"+id, time.Now())
}

func TestCreateAndDispatch(t *testing.T) {
	ctx := context.Background()
	data := types.NotificationData{
		Recipient:   "u2",
		Sender:      "u1",
		Type:        types.TaskAssigned,
		Title:       "New Task Assigned",
		Message:     "alice assigned you to task: Ship it",
		RelatedTask: "t1",
	}

	t.Run("self notification is a no-op", func(t *testing.T) {
		f := newFixture(t)
		self := data
		self.Recipient = "u1"

		n, err := f.d.CreateAndDispatch(ctx, self)
		assert.NoError(t, err)
		assert.Nil(t, n)
		f.store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("validation", func(t *testing.T) {
		f := newFixture(t)

		noRecipient := data
		noRecipient.Recipient = ""
		_, err := f.d.CreateAndDispatch(ctx, noRecipient)
		assert.ErrorIs(t, err, ErrMissingRecipient)

		noParties := data
		noParties.Recipient, noParties.Sender = "", ""
		n, err := f.d.CreateAndDispatch(ctx, noParties)
		assert.ErrorIs(t, err, ErrMissingRecipient, "expected an empty recipient to fail before the self check")
		assert.Nil(t, n)

		badType := data
		badType.Type = "task_deleted"
		_, err = f.d.CreateAndDispatch(ctx, badType)
		assert.ErrorIs(t, err, ErrInvalidType)

		f.store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("offline recipient is persisted without emit", func(t *testing.T) {
		f := newFixture(t)
		f.store.On("Create", ctx, data).Return(storedFrom(data, "n1"), nil).Once()
		f.store.On("CountUnread", ctx, "u2").Return(int64(1), nil).Once()

		n, err := f.d.CreateAndDispatch(ctx, data)
		require.NoError(t, err)
		require.NotNil(t, n)
		assert.Equal(t, "n1", n.Id)
		f.emitter.AssertNotCalled(t, "EmitToRoom", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("online recipient receives one event with the new count", func(t *testing.T) {
		f := newFixture(t)
		f.online("u2")
		stored := storedFrom(data, "n1")
		f.store.On("Create", ctx, data).Return(stored, nil).Once()
		f.store.On("CountUnread", ctx, "u2").Return(int64(4), nil).Once()
		f.emitter.On("EmitToRoom", "user:u2", types.EventNewNotification, types.NotificationEvent{
			Notification: *stored,
			Count:        4,
		}).Once()

		n, err := f.d.CreateAndDispatch(ctx, data)
		require.NoError(t, err)
		assert.Equal(t, stored, n)
		f.emitter.AssertNumberOfCalls(t, "EmitToRoom", 1)
	})

	t.Run("recipient going offline during create is not emitted to", func(t *testing.T) {
		f := newFixture(t)
		f.online("u2")
		f.store.On("Create", ctx, data).Return(storedFrom(data, "n1"), nil).Run(func(mock.Arguments) {
			f.registry.Disconnect("u2", "c-u2", time.Now())
		}).Once()
		f.store.On("CountUnread", ctx, "u2").Return(int64(1), nil).Once()

		n, err := f.d.CreateAndDispatch(ctx, data)
		require.NoError(t, err)
		require.NotNil(t, n, "expected the notification to be stored")
		f.emitter.AssertNotCalled(t, "EmitToRoom", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("recipient coming online during create is emitted to once", func(t *testing.T) {
		f := newFixture(t)
		stored := storedFrom(data, "n1")
		f.store.On("Create", ctx, data).Return(stored, nil).Run(func(mock.Arguments) {
			f.online("u2")
		}).Once()
		f.store.On("CountUnread", ctx, "u2").Return(int64(2), nil).Once()
		f.emitter.On("EmitToRoom", "user:u2", types.EventNewNotification, types.NotificationEvent{
			Notification: *stored,
			Count:        2,
		}).Once()

		_, err := f.d.CreateAndDispatch(ctx, data)
		require.NoError(t, err)
		f.emitter.AssertNumberOfCalls(t, "EmitToRoom", 1)
	})

	t.Run("store error propagates and nothing is emitted", func(t *testing.T) {
		f := newFixture(t)
		f.online("u2")
		errDown := errors.New("database down")
		f.store.On("Create", ctx, data).Return(nil, errDown).Once()

		n, err := f.d.CreateAndDispatch(ctx, data)
		assert.ErrorIs(t, err, errDown)
		assert.Nil(t, n)
		f.store.AssertNotCalled(t, "CountUnread", mock.Anything, mock.Anything)
		f.emitter.AssertNotCalled(t, "EmitToRoom", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("count error propagates and nothing is emitted", func(t *testing.T) {
		f := newFixture(t)
		f.online("u2")
		errCount := errors.New("count failed")
		f.store.On("Create", ctx, data).Return(storedFrom(data, "n1"), nil).Once()
		f.store.On("CountUnread", ctx, "u2").Return(int64(0), errCount).Once()

		_, err := f.d.CreateAndDispatch(ctx, data)
		assert.ErrorIs(t, err, errCount)
		f.emitter.AssertNotCalled(t, "EmitToRoom", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestNotifyTaskUpdated_continuesPastFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	logger, logs := testutil.ObservedLogger(zapcore.ErrorLevel)
	f.d.log = logger

	task := TaskRef{Id: "t1", Title: "Ship it", ProjectId: "p1"}
	errDown := errors.New("insert failed")

	f.store.On("Create", ctx, mock.MatchedBy(func(d types.NotificationData) bool {
		return d.Recipient == "u3"
	})).Return(nil, errDown).Once()
	f.store.On("Create", ctx, mock.MatchedBy(func(d types.NotificationData) bool {
		return d.Recipient != "u3"
	})).Return(func(_ context.Context, d types.NotificationData) *types.Notification {
		return storedFrom(d, "n-"+d.Recipient)
	}, nil).Twice()
	f.store.On("CountUnread", ctx, mock.Anything).Return(int64(1), nil).Twice()

	created, err := f.d.NotifyTaskUpdated(ctx, task, []string{"u2", "u3", "u4", actor.Id}, actor)

	assert.ErrorIs(t, err, errDown, "expected the failure to be reported")
	require.Len(t, created, 2, "expected the other recipients to be notified")
	assert.Equal(t, "u2", created[0].Recipient)
	assert.Equal(t, "u4", created[1].Recipient)
	assert.Equal(t, "alice updated task: Ship it", created[0].Message)
	assert.Equal(t, 1, logs.FilterMessage("failed to dispatch notification").Len())
}

func TestTriggers(t *testing.T) {
	ctx := context.Background()
	task := TaskRef{Id: "t1", Title: "Ship it", ProjectId: "p1"}
	org := OrgRef{Id: "o1", Name: "Acme"}
	project := ProjectRef{Id: "p1", Name: "Launch", OrganizationId: "o1"}

	tcases := []struct {
		name     string
		call     func(d *Dispatcher) error
		expected types.NotificationData
	}{
		{
			name: "task assigned",
			call: func(d *Dispatcher) error {
				_, err := d.NotifyTaskAssigned(ctx, task, "u2", actor)
				return err
			},
			expected: types.NotificationData{Recipient: "u2", Sender: "u1", Type: types.TaskAssigned,
				Title: "New Task Assigned", Message: "alice assigned you to task: Ship it",
				RelatedTask: "t1", RelatedProject: "p1"},
		},
		{
			name: "mentioned",
			call: func(d *Dispatcher) error {
				_, err := d.NotifyMentioned(ctx, task, "c1", []string{"u2"}, actor)
				return err
			},
			expected: types.NotificationData{Recipient: "u2", Sender: "u1", Type: types.Mentioned,
				Title: "You were mentioned", Message: "alice mentioned you in a comment on task: Ship it",
				RelatedTask: "t1", RelatedComment: "c1", RelatedProject: "p1"},
		},
		{
			name: "comment added",
			call: func(d *Dispatcher) error {
				_, err := d.NotifyCommentAdded(ctx, task, "c1", []string{"u2"}, actor)
				return err
			},
			expected: types.NotificationData{Recipient: "u2", Sender: "u1", Type: types.CommentAdded,
				Title: "New Comment", Message: "alice commented on task: Ship it",
				RelatedTask: "t1", RelatedComment: "c1", RelatedProject: "p1"},
		},
		{
			name: "org member added",
			call: func(d *Dispatcher) error {
				_, err := d.NotifyOrgMemberAdded(ctx, org, "u2", "member", actor)
				return err
			},
			expected: types.NotificationData{Recipient: "u2", Sender: "u1", Type: types.OrgMemberAdded,
				Title: "Added to Organization", Message: "alice added you to Acme as member",
				RelatedOrganization: "o1"},
		},
		{
			name: "org role updated",
			call: func(d *Dispatcher) error {
				_, err := d.NotifyOrgRoleUpdated(ctx, org, "u2", "admin", actor)
				return err
			},
			expected: types.NotificationData{Recipient: "u2", Sender: "u1", Type: types.OrgRoleUpdated,
				Title: "Role Updated", Message: "alice changed your role in Acme to admin",
				RelatedOrganization: "o1"},
		},
		{
			name: "project member added",
			call: func(d *Dispatcher) error {
				_, err := d.NotifyProjectMemberAdded(ctx, project, "u2", actor)
				return err
			},
			expected: types.NotificationData{Recipient: "u2", Sender: "u1", Type: types.ProjectMemberAdded,
				Title: "Added to Project", Message: "alice added you to project: Launch",
				RelatedOrganization: "o1", RelatedProject: "p1"},
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.store.On("Create", ctx, tc.expected).Return(storedFrom(tc.expected, "n1"), nil).Once()
			f.store.On("CountUnread", ctx, "u2").Return(int64(1), nil).Once()

			assert.NoError(t, tc.call(f.d))
		})
	}
}

func TestHandle(t *testing.T) {
	ctx := context.Background()

	t.Run("mentions require resolved recipients", func(t *testing.T) {
		f := newFixture(t)

		created, err := f.d.Handle(ctx, Event{
			Kind:      types.Mentioned,
			Actor:     Actor{Id: "u1", Name: "alice"},
			Task:      TaskRef{Id: "t1", Title: "Ship it"},
			CommentId: "c1",
		})

		assert.ErrorIs(t, err, ErrMissingRecipient)
		assert.Empty(t, created)
		f.store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("mention of the actor is suppressed", func(t *testing.T) {
		f := newFixture(t)
		f.store.On("Create", ctx, mock.MatchedBy(func(d types.NotificationData) bool {
			return d.Type == types.Mentioned && d.RelatedComment == "c1"
		})).Return(func(_ context.Context, d types.NotificationData) *types.Notification {
			return storedFrom(d, "n-"+d.Recipient)
		}, nil).Once()
		f.store.On("CountUnread", ctx, "u2").Return(int64(1), nil).Once()

		created, err := f.d.Handle(ctx, Event{
			Kind:       types.Mentioned,
			Actor:      actor,
			Task:       TaskRef{Id: "t1", Title: "Ship it"},
			CommentId:  "c1",
			Recipients: []string{actor.Id, "u2"},
		})

		require.NoError(t, err)
		require.Len(t, created, 1)
		assert.Equal(t, "u2", created[0].Recipient)
	})

	t.Run("single recipient kinds fan out over recipients", func(t *testing.T) {
		f := newFixture(t)
		f.store.On("Create", ctx, mock.MatchedBy(func(d types.NotificationData) bool {
			return d.Type == types.ProjectMemberAdded && d.RelatedProject == "p1"
		})).Return(func(_ context.Context, d types.NotificationData) *types.Notification {
			return storedFrom(d, "n-"+d.Recipient)
		}, nil).Twice()
		f.store.On("CountUnread", ctx, mock.Anything).Return(int64(1), nil).Twice()

		created, err := f.d.Handle(ctx, Event{
			Kind:       types.ProjectMemberAdded,
			Actor:      actor,
			Project:    ProjectRef{Id: "p1", Name: "Launch"},
			Recipients: []string{"u2", "u3", actor.Id},
		})

		require.NoError(t, err)
		assert.Len(t, created, 2, "expected the actor to be skipped")
	})

	t.Run("unknown kind", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.d.Handle(ctx, Event{Kind: "task_deleted", Recipients: []string{"u2"}})
		assert.ErrorIs(t, err, ErrUnknownEvent)
	})
}
