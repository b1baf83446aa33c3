package repository

import (
	"context"
	"time"

	"outlet_control/internal/models"

	"github.com/google/uuid"
)

type NotificationSQLite struct {
	db queryer
}

func NewNotificationSQLite(db queryer) *NotificationSQLite { return &NotificationSQLite{db: db} }

const (
	insertNotificationSQL = `
		INSERT INTO notifications (id, outlet_id, message, severity, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	existsNotificationSQL = `
		SELECT COUNT(1) FROM notifications
		WHERE outlet_id=? AND message=? AND created_at >= ?
	`

	selectNotificationsSQL = `
		SELECT id, outlet_id, message, severity, created_at
		FROM notifications ORDER BY created_at DESC LIMIT ?
	`
)

func (r *NotificationSQLite) Append(ctx context.Context, n models.NotificationRecord) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	} else {
		n.CreatedAt = n.CreatedAt.UTC()
	}
	_, err := r.db.ExecContext(ctx, insertNotificationSQL,
		n.ID, n.OutletID, n.Message, n.Severity, n.CreatedAt)
	return err
}

// ExistsSince reports whether the same message was already recorded for the
// outlet at or after since. Used as a lookup-then-create dedup window, not a
// uniqueness guarantee.
func (r *NotificationSQLite) ExistsSince(ctx context.Context, outletID, message string, since time.Time) (bool, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, existsNotificationSQL, outletID, message, since.UTC()).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *NotificationSQLite) List(ctx context.Context, limit int) ([]models.NotificationRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, selectNotificationsSQL, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.NotificationRecord, 0, limit)
	for rows.Next() {
		var n models.NotificationRecord
		if err := rows.Scan(&n.ID, &n.OutletID, &n.Message, &n.Severity, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.CreatedAt = n.CreatedAt.UTC()
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
