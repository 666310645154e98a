package dao

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vadim/impulsa-inbox/internal/domain/conversation/entity"
)

// MessageSQLite implements message repository for SQLite
type MessageSQLite struct {
	db *sql.DB
}

// NewMessageSQLite creates a new SQLite message repository
func NewMessageSQLite(db *sql.DB) *MessageSQLite {
	return &MessageSQLite{db: db}
}

// Create inserts a message and sets its ID
func (r *MessageSQLite) Create(ctx context.Context, msg *entity.Message) error {
	query := `
		INSERT INTO messages (conversation_id, sender_id, content, sent_at)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`

	msg.SentAt = msg.SentAt.UTC()
	err := r.db.QueryRowContext(ctx, query,
		msg.ConversationID,
		msg.SenderID,
		msg.Content,
		msg.SentAt,
	).Scan(&msg.ID)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}

	return nil
}

// GetByConversationID retrieves messages newest first with pagination
func (r *MessageSQLite) GetByConversationID(ctx context.Context, conversationID int64, limit, offset int) ([]entity.Message, error) {
	query := `
		SELECT id, conversation_id, sender_id, content, sent_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY sent_at DESC, id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := r.db.QueryContext(ctx, query, conversationID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var msgs []entity.Message
	for rows.Next() {
		var m entity.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &m.SentAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		msgs = append(msgs, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}

	return msgs, nil
}

// Count returns the number of messages in a conversation
func (r *MessageSQLite) Count(ctx context.Context, conversationID int64) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE conversation_id = ?`, conversationID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting messages: %w", err)
	}
	return count, nil
}
