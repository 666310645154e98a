package dao

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vadim/impulsa-inbox/internal/domain/notification/entity"
)

// NotificationSQLite implements notification repository for SQLite
type NotificationSQLite struct {
	db *sql.DB
}

// NewNotificationSQLite creates a new SQLite notification repository
func NewNotificationSQLite(db *sql.DB) *NotificationSQLite {
	return &NotificationSQLite{db: db}
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

// Create inserts a notification and sets its ID
func (r *NotificationSQLite) Create(ctx context.Context, n *entity.Notification) error {
	data, err := entity.EncodePayload(n.Data)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO notifications (user_id, type, title, message, data, is_read, created_at, read_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`

	n.CreatedAt = n.CreatedAt.UTC()
	err = r.db.QueryRowContext(ctx, query,
		n.UserID,
		string(n.Type),
		n.Title,
		n.Message,
		nullableJSON(data),
		n.IsRead,
		n.CreatedAt,
		nullableTime(n.ReadAt),
	).Scan(&n.ID)
	if err != nil {
		return fmt.Errorf("inserting notification: %w", err)
	}

	return nil
}

// GetByID retrieves a notification by ID
func (r *NotificationSQLite) GetByID(ctx context.Context, id int64) (*entity.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = ?`

	n, err := r.scanNotification(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return n, err
}

// GetByUserID retrieves a user's notifications newest first
func (r *NotificationSQLite) GetByUserID(ctx context.Context, f entity.Filter) ([]entity.Notification, error) {
	where, args := whereFilter(f, questionPlaceholder)
	args = append(args, f.Limit, f.Offset)

	query := `SELECT ` + notificationColumns + ` FROM notifications` + where +
		` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`

	return r.query(ctx, query, args...)
}

// Count returns how many notifications match the filter, ignoring pagination
func (r *NotificationSQLite) Count(ctx context.Context, f entity.Filter) (int64, error) {
	where, args := whereFilter(f, questionPlaceholder)

	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting notifications: %w", err)
	}
	return count, nil
}

// GetRecentByUserID retrieves the newest notifications of a user
func (r *NotificationSQLite) GetRecentByUserID(ctx context.Context, userID int64, limit int) ([]entity.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`

	return r.query(ctx, query, userID, limit)
}

// MarkAsRead marks a notification read, keeping the read time of an earlier read.
// Returns nil when the notification does not exist.
func (r *NotificationSQLite) MarkAsRead(ctx context.Context, id int64, readAt time.Time) (*entity.Notification, error) {
	query := `
		UPDATE notifications
		SET is_read = 1, read_at = COALESCE(read_at, ?)
		WHERE id = ?
	`

	res, err := r.db.ExecContext(ctx, query, readAt.UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("marking notification read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("reading affected rows: %w", err)
	}
	if affected == 0 {
		return nil, nil
	}

	return r.GetByID(ctx, id)
}

// MarkAllAsRead marks every unread notification of a user read and returns how many changed
func (r *NotificationSQLite) MarkAllAsRead(ctx context.Context, userID int64, readAt time.Time) (int64, error) {
	query := `
		UPDATE notifications
		SET is_read = 1, read_at = ?
		WHERE user_id = ? AND is_read = 0
	`

	res, err := r.db.ExecContext(ctx, query, readAt.UTC(), userID)
	if err != nil {
		return 0, fmt.Errorf("marking notifications read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading affected rows: %w", err)
	}
	return affected, nil
}

// Delete removes a notification and reports whether it existed
func (r *NotificationSQLite) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("deleting notification: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading affected rows: %w", err)
	}
	return affected > 0, nil
}

// DeleteReadBefore removes notifications read before the given time and returns how many were removed
func (r *NotificationSQLite) DeleteReadBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE is_read = 1 AND read_at IS NOT NULL AND read_at < ?`, before.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("purging read notifications: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading affected rows: %w", err)
	}
	return affected, nil
}

// GetUnreadCount returns the number of unread notifications of a user
func (r *NotificationSQLite) GetUnreadCount(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = 0`, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting unread notifications: %w", err)
	}
	return count, nil
}

func (r *NotificationSQLite) query(ctx context.Context, query string, args ...any) ([]entity.Notification, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying notifications: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []entity.Notification
	for rows.Next() {
		n, err := r.scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating notifications: %w", err)
	}

	return out, nil
}

func (r *NotificationSQLite) scanNotification(row rowScanner) (*entity.Notification, error) {
	var (
		n      entity.Notification
		typ    string
		data   sql.NullString
		readAt sql.NullTime
	)

	err := row.Scan(&n.ID, &n.UserID, &typ, &n.Title, &n.Message, &data, &n.IsRead, &n.CreatedAt, &readAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning notification: %w", err)
	}

	n.Type = entity.Type(typ)
	if readAt.Valid {
		t := readAt.Time
		n.ReadAt = &t
	}
	if data.Valid {
		if n.Data, err = entity.LoadPayload(n.Type, []byte(data.String)); err != nil {
			return nil, fmt.Errorf("notification %d: %w", n.ID, err)
		}
	}

	return &n, nil
}

func nullableJSON(data []byte) sql.NullString {
	if data == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(data), Valid: true}
}

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
