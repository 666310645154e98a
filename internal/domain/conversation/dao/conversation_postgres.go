package dao

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vadim/impulsa-inbox/internal/domain/conversation/entity"
)

// ConversationPostgres implements conversation repository for PostgreSQL
type ConversationPostgres struct {
	pool *pgxpool.Pool
}

// NewConversationPostgres creates a new PostgreSQL conversation repository
func NewConversationPostgres(pool *pgxpool.Pool) *ConversationPostgres {
	return &ConversationPostgres{pool: pool}
}

// conversationSelectPostgres selects a conversation with its most recent message
const conversationSelectPostgres = `
	SELECT c.id, c.project_id, c.user1_id, c.user2_id, c.created_at,
	       m.id, m.sender_id, m.content, m.sent_at
	FROM conversations c
	LEFT JOIN LATERAL (
		SELECT id, sender_id, content, sent_at
		FROM messages
		WHERE conversation_id = c.id
		ORDER BY sent_at DESC, id DESC
		LIMIT 1
	) m ON TRUE
`

// Create inserts a conversation for the pair, or returns the existing one when
// another request created it first. The pair index makes this atomic.
func (r *ConversationPostgres) Create(ctx context.Context, conv *entity.Conversation) (*entity.Conversation, error) {
	query := `
		INSERT INTO conversations (project_id, user1_id, user2_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT DO NOTHING
		RETURNING id, project_id, user1_id, user2_id, created_at
	`

	var created entity.Conversation
	err := r.pool.QueryRow(ctx, query,
		conv.ProjectID,
		conv.User1ID,
		conv.User2ID,
		conv.CreatedAt,
	).Scan(&created.ID, &created.ProjectID, &created.User1ID, &created.User2ID, &created.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
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

	return &created, nil
}

// GetByID retrieves a conversation by ID
func (r *ConversationPostgres) GetByID(ctx context.Context, id int64) (*entity.Conversation, error) {
	query := conversationSelectPostgres + ` WHERE c.id = $1`

	row := r.pool.QueryRow(ctx, query, id)
	return r.scanConversation(row)
}

// GetBetweenUsers retrieves the conversation of a pair regardless of order
func (r *ConversationPostgres) GetBetweenUsers(ctx context.Context, userA, userB int64) (*entity.Conversation, error) {
	query := conversationSelectPostgres + `
		WHERE LEAST(c.user1_id, c.user2_id) = LEAST($1::BIGINT, $2::BIGINT)
		  AND GREATEST(c.user1_id, c.user2_id) = GREATEST($1::BIGINT, $2::BIGINT)
	`

	row := r.pool.QueryRow(ctx, query, userA, userB)
	return r.scanConversation(row)
}

// GetByUserID retrieves every conversation of a user, most recent activity first
func (r *ConversationPostgres) GetByUserID(ctx context.Context, userID int64) ([]entity.Conversation, error) {
	query := conversationSelectPostgres + `
		WHERE c.user1_id = $1 OR c.user2_id = $1
		ORDER BY COALESCE(m.sent_at, c.created_at) DESC, c.id DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("querying conversations: %w", err)
	}
	defer rows.Close()

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
func (r *ConversationPostgres) IsParticipant(ctx context.Context, conversationID, userID int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM conversations
			WHERE id = $1 AND (user1_id = $2 OR user2_id = $2)
		)
	`

	var ok bool
	if err := r.pool.QueryRow(ctx, query, conversationID, userID).Scan(&ok); err != nil {
		return false, fmt.Errorf("checking participant: %w", err)
	}
	return ok, nil
}

func (r *ConversationPostgres) scanConversation(row pgx.Row) (*entity.Conversation, error) {
	conv, err := r.scanConversationRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return conv, err
}

func (r *ConversationPostgres) scanConversationRow(row pgx.Row) (*entity.Conversation, error) {
	var (
		conv          entity.Conversation
		lastID        *int64
		lastSenderID  *int64
		lastContent   *string
		lastMessageAt *time.Time
	)

	err := row.Scan(
		&conv.ID,
		&conv.ProjectID,
		&conv.User1ID,
		&conv.User2ID,
		&conv.CreatedAt,
		&lastID,
		&lastSenderID,
		&lastContent,
		&lastMessageAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning conversation: %w", err)
	}

	if lastID != nil {
		conv.LastMessage = &entity.Message{
			ID:             *lastID,
			ConversationID: conv.ID,
			SenderID:       *lastSenderID,
			Content:        *lastContent,
			SentAt:         *lastMessageAt,
		}
	}

	return &conv, nil
}
