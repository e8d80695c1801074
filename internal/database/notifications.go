package database

import (
	"context"
	"time"

	"societyhub/internal/model"
)

// CreateNotification appends an inbox row for a user.
func (db *DB) CreateNotification(ctx context.Context, n *model.Notification) error {
	now := time.Now()
	res, err := db.ExecContext(ctx, `
		INSERT INTO notifications (user_id, title, message, type, reference_id, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, 0, ?)`,
		n.UserID, n.Title, n.Message, n.Type, n.ReferenceID, now,
	)
	if err != nil {
		return err
	}
	n.ID, err = res.LastInsertId()
	n.CreatedAt = now
	return err
}

// ListNotifications returns a user's notifications, newest first.
func (db *DB) ListNotifications(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]model.Notification, error) {
	query := `SELECT id, user_id, title, message, type, reference_id, is_read, created_at
		FROM notifications WHERE user_id = ?`
	args := []any{userID}
	if unreadOnly {
		query += ` AND is_read = 0`
	}
	query += ` ORDER BY id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Notification
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type,
			&n.ReferenceID, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkNotificationRead flips a single notification to read for its owner.
func (db *DB) MarkNotificationRead(ctx context.Context, id, userID int64) error {
	res, err := db.ExecContext(ctx,
		`UPDATE notifications SET is_read = 1 WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllNotificationsRead flips every unread notification for a user.
func (db *DB) MarkAllNotificationsRead(ctx context.Context, userID int64) (int64, error) {
	res, err := db.ExecContext(ctx,
		`UPDATE notifications SET is_read = 1 WHERE user_id = ? AND is_read = 0`,
		userID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// PruneNotifications deletes read notifications older than the cutoff.
func (db *DB) PruneNotifications(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := db.ExecContext(ctx,
		`DELETE FROM notifications WHERE is_read = 1 AND created_at < ?`,
		olderThan,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
