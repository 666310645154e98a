package dao

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vadim/impulsa-inbox/internal/domain/notification/entity"
)

// NotificationPostgres implements notification repository for PostgreSQL
type NotificationPostgres struct {
	pool *pgxpool.Pool
}

// NewNotificationPostgres creates a new PostgreSQL notification repository
func NewNotificationPostgres(pool *pgxpool.Pool) *NotificationPostgres {
	return &NotificationPostgres{pool: pool}
}

// Create inserts a notification and sets its ID
func (r *NotificationPostgres) Create(ctx context.Context, n *entity.Notification) error {
	data, err := entity.EncodePayload(n.Data)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO notifications (user_id, type, title, message, data, is_read, created_at, read_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	err = r.pool.QueryRow(ctx, query,
		n.UserID,
		string(n.Type),
		n.Title,
		n.Message,
		data,
		n.IsRead,
		n.CreatedAt,
		n.ReadAt,
	).Scan(&n.ID)
	if err != nil {
		return fmt.Errorf("inserting notification: %w", err)
	}

	return nil
}

// GetByID retrieves a notification by ID
func (r *NotificationPostgres) GetByID(ctx context.Context, id int64) (*entity.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1`

	n, err := r.scanNotification(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return n, err
}

// GetByUserID retrieves a user's notifications newest first
func (r *NotificationPostgres) GetByUserID(ctx context.Context, f entity.Filter) ([]entity.Notification, error) {
	where, args := whereFilter(f, dollarPlaceholder)
	args = append(args, f.Limit, f.Offset)

	query := `SELECT ` + notificationColumns + ` FROM notifications` + where +
		fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	return r.query(ctx, query, args...)
}

// Count returns how many notifications match the filter, ignoring pagination
func (r *NotificationPostgres) Count(ctx context.Context, f entity.Filter) (int64, error) {
	where, args := whereFilter(f, dollarPlaceholder)

	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notifications`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting notifications: %w", err)
	}
	return count, nil
}

// GetRecentByUserID retrieves the newest notifications of a user
func (r *NotificationPostgres) GetRecentByUserID(ctx context.Context, userID int64, limit int) ([]entity.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	return r.query(ctx, query, userID, limit)
}

// MarkAsRead marks a notification read, keeping the read time of an earlier read.
// Returns nil when the notification does not exist.
func (r *NotificationPostgres) MarkAsRead(ctx context.Context, id int64, readAt time.Time) (*entity.Notification, error) {
	query := `
		UPDATE notifications
		SET is_read = TRUE, read_at = COALESCE(read_at, $2)
		WHERE id = $1
		RETURNING ` + notificationColumns

	n, err := r.scanNotification(r.pool.QueryRow(ctx, query, id, readAt))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return n, err
}

// MarkAllAsRead marks every unread notification of a user read and returns how many changed
func (r *NotificationPostgres) MarkAllAsRead(ctx context.Context, userID int64, readAt time.Time) (int64, error) {
	query := `
		UPDATE notifications
		SET is_read = TRUE, read_at = $2
		WHERE user_id = $1 AND is_read = FALSE
	`

	tag, err := r.pool.Exec(ctx, query, userID, readAt)
	if err != nil {
		return 0, fmt.Errorf("marking notifications read: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Delete removes a notification and reports whether it existed
func (r *NotificationPostgres) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("deleting notification: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteReadBefore removes notifications read before the given time and returns how many were removed
func (r *NotificationPostgres) DeleteReadBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM notifications WHERE is_read = TRUE AND read_at IS NOT NULL AND read_at < $1`, before.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("purging read notifications: %w", err)
	}
	return tag.RowsAffected(), nil
}

// GetUnreadCount returns the number of unread notifications of a user
func (r *NotificationPostgres) GetUnreadCount(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE`, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting unread notifications: %w", err)
	}
	return count, nil
}

func (r *NotificationPostgres) query(ctx context.Context, query string, args ...any) ([]entity.Notification, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying notifications: %w", err)
	}
	defer rows.Close()

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

func (r *NotificationPostgres) scanNotification(row pgx.Row) (*entity.Notification, error) {
	var (
		n    entity.Notification
		typ  string
		data []byte
	)

	err := row.Scan(&n.ID, &n.UserID, &typ, &n.Title, &n.Message, &data, &n.IsRead, &n.CreatedAt, &n.ReadAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning notification: %w", err)
	}

	n.Type = entity.Type(typ)
	if n.Data, err = entity.LoadPayload(n.Type, data); err != nil {
		return nil, fmt.Errorf("notification %d: %w", n.ID, err)
	}

	return &n, nil
}
