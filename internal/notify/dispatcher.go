package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/npezzotti/taskpulse/internal/stats"
	"github.com/npezzotti/taskpulse/internal/types"
	"go.uber.org/zap"
)

var (
	ErrInvalidType      = errors.New("invalid notification type")
	ErrMissingRecipient = errors.New("notification recipient is required")
)

// Store persists notifications. Writes for one recipient must be serialized
// by the implementation for unread counts to be monotonic for that recipient.
type Store interface {
	Create(ctx context.Context, data types.NotificationData) (*types.Notification, error)
	CountUnread(ctx context.Context, recipient string) (int64, error)
}

type Presence interface {
	IsOnline(userId string) bool
}

type Emitter interface {
	EmitToRoom(room, event string, data any)
}

type Dispatcher struct {
	log      *zap.Logger
	store    Store
	presence Presence
	emitter  Emitter
	stats    stats.StatsProvider
}

func NewDispatcher(logger *zap.Logger, store Store, presence Presence, emitter Emitter, su stats.StatsProvider) *Dispatcher {
	for _, m := range []string{stats.NotificationsCreated, stats.NotificationsDelivered, stats.NotificationsFailed} {
		su.RegisterMetric(m)
	}

	return &Dispatcher{
		log:      logger,
		store:    store,
		presence: presence,
		emitter:  emitter,
		stats:    su,
	}
}

// CreateAndDispatch stores a notification and pushes it, with the
// recipient's new unread count, to every live connection of the recipient.
// Notifications to oneself are dropped and return nil, nil.
func (d *Dispatcher) CreateAndDispatch(ctx context.Context, data types.NotificationData) (*types.Notification, error) {
	if data.Recipient == "" {
		return nil, ErrMissingRecipient
	}
	if data.Recipient == data.Sender {
		return nil, nil
	}
	if !data.Type.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidType, data.Type)
	}

	n, err := d.store.Create(ctx, data)
	if err != nil {
		d.stats.Incr(stats.NotificationsFailed)
		return nil, fmt.Errorf("create notification: %w", err)
	}
	d.stats.Incr(stats.NotificationsCreated)

	count, err := d.store.CountUnread(ctx, n.Recipient)
	if err != nil {
		// the notification is stored and shows up on the next fetch
		return nil, fmt.Errorf("count unread notifications: %w", err)
	}

	if !d.presence.IsOnline(n.Recipient) {
		d.log.Debug("recipient offline, notification stored only",
			zap.String("notification_id", n.Id),
			zap.String("recipient", n.Recipient),
		)
		return n, nil
	}

	d.emitter.EmitToRoom(types.UserRoom(n.Recipient), types.EventNewNotification, types.NotificationEvent{
		Notification: *n,
		Count:        count,
	})
	d.stats.Incr(stats.NotificationsDelivered)

	d.log.Debug("notification dispatched",
		zap.String("notification_id", n.Id),
		zap.String("recipient", n.Recipient),
		zap.String("type", string(n.Type)),
		zap.Int64("unread", count),
	)

	return n, nil
}

// fanOut dispatches one notification per recipient of e. A failure for one
// recipient is logged and the rest are still attempted.
func (d *Dispatcher) fanOut(ctx context.Context, e Event) ([]*types.Notification, error) {
	var (
		created []*types.Notification
		errs    []error
	)

	for _, r := range e.Recipients {
		n, err := d.CreateAndDispatch(ctx, e.data(r))
		if err != nil {
			d.log.Error("failed to dispatch notification",
				zap.String("recipient", r),
				zap.String("type", string(e.Kind)),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("recipient %s: %w", r, err))
			continue
		}
		if n != nil {
			created = append(created, n)
		}
	}

	return created, errors.Join(errs...)
}
