package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/npezzotti/taskpulse/internal/types"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"

	DefaultListLimit = 50
)

var ErrNotFound = errors.New("notification not found")

// NotificationRepository stores notifications. Only the read flag of a
// stored notification ever changes.
type NotificationRepository interface {
	Create(ctx context.Context, data types.NotificationData) (*types.Notification, error)
	CountUnread(ctx context.Context, recipient string) (int64, error)
	// List returns the recipient's notifications, newest first.
	List(ctx context.Context, recipient string, limit int, unreadOnly bool) ([]types.Notification, error)
	// MarkRead returns ErrNotFound when id does not belong to recipient.
	MarkRead(ctx context.Context, id, recipient string) error
	MarkAllRead(ctx context.Context, recipient string) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}

// Open connects to the store selected by driver. For mongo, dsn is the
// connection URI and mongoDatabase the database name.
func Open(ctx context.Context, driver, dsn, mongoDatabase string) (NotificationRepository, error) {
	switch driver {
	case DriverPostgres:
		return NewPostgresRepository(ctx, dsn)
	case DriverSQLite:
		return NewSQLiteRepository(ctx, dsn)
	case DriverMongo:
		return NewMongoRepository(ctx, dsn, mongoDatabase)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}
}

func listLimit(limit int) int64 {
	if limit <= 0 {
		return DefaultListLimit
	}
	return int64(limit)
}
