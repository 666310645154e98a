package dao

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vadim/impulsa-inbox/internal/domain/conversation/entity"
)

// ConversationSQLite implements conversation repository for SQLite
type ConversationSQLite struct {
	db *sql.DB
}

// NewConversationSQLite creates a new SQLite conversation repository
func NewConversationSQLite(db *sql.DB) *ConversationSQLite {
	return &ConversationSQLite{db: db}
}

// conversationSelectSQLite selects a conversation with its most recent message
const conversationSelectSQLite = `
	SELECT c.id, c.project_id, c.user1_id, c.user2_id, c.created_at,
	       m.id, m.sender_id, m.content, m.sent_at
	FROM conversations c
	LEFT JOIN messages m ON m.id = (
		SELECT id FROM messages
		WHERE conversation_id = c.id
		ORDER BY sent_at DESC, id DESC
		LIMIT 1
	)
`

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

// Create inserts a conversation for the pair, or returns the existing one when
// another request created it first. The pair index makes this atomic.
func (r *ConversationSQLite) Create(ctx context.Context, conv *entity.Conversation) (*entity.Conversation, error) {
	query := `
		INSERT INTO conversations (project_id, user1_id, user2_id, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT DO NOTHING
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		nullableInt64(conv.ProjectID),
		conv.User1ID,
		conv.User2ID,
		conv.CreatedAt.UTC(),
	).Scan(&id)

	if errors.Is(err, sql.ErrNoRows) {
		existing, err := r.GetBetweenUsers(ctx, conv.User1ID, conv.User2ID)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, fmt.Errorf("conversation for users %d and %d conflicted but was not found", conv.User1ID, conv.User2ID)
		}
		return existing, nil
	}
	if err != nil {
		return nil, fmt.Errorf("inserting conversation: %w", err)
	}

	created := *conv
	created.ID = id
	created.CreatedAt = conv.CreatedAt.UTC()
	return &created, nil
}

// GetByID retrieves a conversation by ID
func (r *ConversationSQLite) GetByID(ctx context.Context, id int64) (*entity.Conversation, error) {
	query := conversationSelectSQLite + ` WHERE c.id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	return r.scanConversation(row)
}

// GetBetweenUsers retrieves the conversation of a pair regardless of order
func (r *ConversationSQLite) GetBetweenUsers(ctx context.Context, userA, userB int64) (*entity.Conversation, error) {
	query := conversationSelectSQLite + `
		WHERE min(c.user1_id, c.user2_id) = min(?1, ?2)
		  AND max(c.user1_id, c.user2_id) = max(?1, ?2)
	`

	row := r.db.QueryRowContext(ctx, query, userA, userB)
	return r.scanConversation(row)
}

// GetByUserID retrieves every conversation of a user, most recent activity first
func (r *ConversationSQLite) GetByUserID(ctx context.Context, userID int64) ([]entity.Conversation, error) {
	query := conversationSelectSQLite + `
		WHERE c.user1_id = ?1 OR c.user2_id = ?1
		ORDER BY COALESCE(m.sent_at, c.created_at) DESC, c.id DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("querying conversations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var convs []entity.Conversation
	for rows.Next() {
		conv, err := r.scanConversationRow(rows)
		if err != nil {
			return nil, err
		}
		convs = append(convs, *conv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating conversations: %w", err)
	}

	return convs, nil
}

// IsParticipant reports whether userID belongs to the conversation.
// A missing conversation yields false.
func (r *ConversationSQLite) IsParticipant(ctx context.Context, conversationID, userID int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM conversations
			WHERE id = ?1 AND (user1_id = ?2 OR user2_id = ?2)
		)
	`

	var ok bool
	if err := r.db.QueryRowContext(ctx, query, conversationID, userID).Scan(&ok); err != nil {
		return false, fmt.Errorf("checking participant: %w", err)
	}
	return ok, nil
}

func (r *ConversationSQLite) scanConversation(row rowScanner) (*entity.Conversation, error) {
	conv, err := r.scanConversationRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return conv, err
}

func (r *ConversationSQLite) scanConversationRow(row rowScanner) (*entity.Conversation, error) {
	var (
		conv          entity.Conversation
		projectID     sql.NullInt64
		lastID        sql.NullInt64
		lastSenderID  sql.NullInt64
		lastContent   sql.NullString
		lastMessageAt sql.NullTime
	)

	err := row.Scan(
		&conv.ID,
		&projectID,
		&conv.User1ID,
		&conv.User2ID,
		&conv.CreatedAt,
		&lastID,
		&lastSenderID,
		&lastContent,
		&lastMessageAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning conversation: %w", err)
	}

	if projectID.Valid {
		conv.ProjectID = &projectID.Int64
	}
	if lastID.Valid {
		conv.LastMessage = &entity.Message{
			ID:             lastID.Int64,
			ConversationID: conv.ID,
			SenderID:       lastSenderID.Int64,
			Content:        lastContent.String,
			SentAt:         lastMessageAt.Time,
		}
	}

	return &conv, nil
}

func nullableInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
