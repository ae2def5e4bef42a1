package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/npezzotti/taskpulse/internal/types"
)

const notificationColumns = "id, recipient, sender, type, title, message, related_task, related_comment, " +
	"related_organization, related_project, read, created_at"

// SQLRepository stores notifications in postgres or sqlite. Queries are
// written with ? placeholders and rebound for the driver.
type SQLRepository struct {
	db *sqlx.DB
}

func newSQLRepository(ctx context.Context, db *sqlx.DB) (*SQLRepository, error) {
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", db.DriverName(), err)
	}

	r := &SQLRepository{db: db}
	if err := r.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return r, nil
}

func (r *SQLRepository) migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)"); err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var current int
	if err := r.db.GetContext(ctx, &current, "SELECT COALESCE(MAX(version), 0) FROM schema_version"); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}

		tx, err := r.db.BeginTxx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration v%d: %w", m.version, err)
		}
		if _, err := tx.ExecContext(ctx, r.db.Rebind("INSERT INTO schema_version (version) VALUES (?)"), m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.version, err)
		}
	}

	return nil
}

func (r *SQLRepository) Create(ctx context.Context, data types.NotificationData) (*types.Notification, error) {
	row := notificationRow{
		Id:                  uuid.New().String(),
		Recipient:           data.Recipient,
		Sender:              data.Sender,
		Type:                string(data.Type),
		Title:               data.Title,
		Message:             data.Message,
		RelatedTask:         data.RelatedTask,
		RelatedComment:      data.RelatedComment,
		RelatedOrganization: data.RelatedOrganization,
		RelatedProject:      data.RelatedProject,
		CreatedAt:           newTimestamp(),
	}

	_, err := r.db.NamedExecContext(ctx,
		"INSERT INTO notifications ("+notificationColumns+") VALUES "+
			"(:id, :recipient, :sender, :type, :title, :message, :related_task, :related_comment, "+
			":related_organization, :related_project, :read, :created_at)",
		row,
	)
	if err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}

	n := row.notification()
	return &n, nil
}

func (r *SQLRepository) CountUnread(ctx context.Context, recipient string) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count,
		r.db.Rebind("SELECT COUNT(*) FROM notifications WHERE recipient = ? AND read = ?"),
		recipient, false,
	)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}

	return count, nil
}

func (r *SQLRepository) List(ctx context.Context, recipient string, limit int, unreadOnly bool) ([]types.Notification, error) {
	query := "SELECT " + notificationColumns + " FROM notifications WHERE recipient = ?"
	args := []any{recipient}
	if unreadOnly {
		query += " AND read = ?"
		args = append(args, false)
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, listLimit(limit))

	var rows []notificationRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	notifications := make([]types.Notification, 0, len(rows))
	for _, row := range rows {
		notifications = append(notifications, row.notification())
	}

	return notifications, nil
}

func (r *SQLRepository) MarkRead(ctx context.Context, id, recipient string) error {
	res, err := r.db.ExecContext(ctx,
		r.db.Rebind("UPDATE notifications SET read = ? WHERE id = ? AND recipient = ?"),
		true, id, recipient,
	)
	if err != nil {
		return fmt.Errorf("mark notification %s read: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *SQLRepository) MarkAllRead(ctx context.Context, recipient string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		r.db.Rebind("UPDATE notifications SET read = ? WHERE recipient = ? AND read = ?"),
		true, recipient, false,
	)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}

	return res.RowsAffected()
}

func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLRepository) Close() error {
	return r.db.Close()
}
