package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/vadim/impulsa-inbox/internal/apperror"
	"github.com/vadim/impulsa-inbox/internal/domain/conversation/entity"
	"github.com/vadim/impulsa-inbox/internal/events"
)

// ConversationRepository defines the interface for conversation storage
type ConversationRepository interface {
	// Create inserts the conversation or returns the one that already exists for the pair
	Create(ctx context.Context, conv *entity.Conversation) (*entity.Conversation, error)
	GetByID(ctx context.Context, id int64) (*entity.Conversation, error)
	GetBetweenUsers(ctx context.Context, userA, userB int64) (*entity.Conversation, error)
	GetByUserID(ctx context.Context, userID int64) ([]entity.Conversation, error)
	IsParticipant(ctx context.Context, conversationID, userID int64) (bool, error)
}

// MessageRepository defines the interface for message storage
type MessageRepository interface {
	Create(ctx context.Context, msg *entity.Message) error
	GetByConversationID(ctx context.Context, conversationID int64, limit, offset int) ([]entity.Message, error)
	Count(ctx context.Context, conversationID int64) (int64, error)
}

// Service handles conversation business logic
type Service struct {
	conversations ConversationRepository
	messages      MessageRepository
	events        events.Publisher
	logger        *slog.Logger
	now           func() time.Time
}

// New creates a new conversation service. publisher may be nil.
func New(conversations ConversationRepository, messages MessageRepository, publisher events.Publisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		conversations: conversations,
		messages:      messages,
		events:        publisher,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// CreateOrGetInput represents input for opening a conversation
type CreateOrGetInput struct {
	UserAID   int64
	UserBID   int64
	ProjectID *int64
}

// CreateOrGetConversation returns the conversation between two users, creating it if needed.
// Calls with the pair in either order yield the same conversation.
func (s *Service) CreateOrGetConversation(ctx context.Context, in CreateOrGetInput) (*entity.Conversation, error) {
	if err := entity.ValidatePair(in.UserAID, in.UserBID); err != nil {
		return nil, err
	}
	if in.ProjectID != nil && *in.ProjectID <= 0 {
		return nil, entity.ErrInvalidProjectID
	}

	existing, err := s.conversations.GetBetweenUsers(ctx, in.UserAID, in.UserBID)
	if err != nil {
		return nil, apperror.Persistence("getting conversation", err)
	}
	if existing != nil {
		return existing, nil
	}

	conv, err := s.conversations.Create(ctx, &entity.Conversation{
		ProjectID: in.ProjectID,
		User1ID:   in.UserAID,
		User2ID:   in.UserBID,
		CreatedAt: s.now(),
	})
	if err != nil {
		return nil, apperror.Persistence("creating conversation", err)
	}

	s.logger.Debug("conversation opened", "conversation_id", conv.ID, "user1_id", conv.User1ID, "user2_id", conv.User2ID)
	return conv, nil
}

// GetConversation returns a conversation the user participates in
func (s *Service) GetConversation(ctx context.Context, conversationID, userID int64) (*entity.Conversation, error) {
	if conversationID <= 0 {
		return nil, entity.ErrInvalidConversationID
	}

	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, apperror.Persistence("getting conversation", err)
	}
	if conv == nil {
		return nil, entity.ErrConversationNotFound
	}
	if !conv.HasParticipant(userID) {
		return nil, entity.ErrNotParticipant
	}

	return conv, nil
}

// ListUserConversations returns the user's inbox ordered by last activity, most recent first
func (s *Service) ListUserConversations(ctx context.Context, userID int64) ([]entity.Summary, error) {
	if userID <= 0 {
		return nil, entity.ErrInvalidUserID
	}

	convs, err := s.conversations.GetByUserID(ctx, userID)
	if err != nil {
		return nil, apperror.Persistence("listing conversations", err)
	}

	summaries := make([]entity.Summary, 0, len(convs))
	for _, c := range convs {
		summaries = append(summaries, entity.Summary{
			ID:               c.ID,
			ProjectID:        c.ProjectID,
			OtherParticipant: entity.Participant{ID: c.OtherParticipant(userID)},
			LastMessage:      c.LastMessage,
			CreatedAt:        c.CreatedAt,
		})
	}

	entity.SortByActivity(summaries)
	return summaries, nil
}

// SendMessageInput represents input for sending a message
type SendMessageInput struct {
	ConversationID int64
	SenderID       int64
	Content        string
}

// SendMessage stores a message and notifies the other participant.
// The notification is best-effort: its failure never fails the send.
func (s *Service) SendMessage(ctx context.Context, in SendMessageInput) (*entity.Message, error) {
	if in.ConversationID <= 0 {
		return nil, entity.ErrInvalidConversationID
	}
	if in.SenderID <= 0 {
		return nil, entity.ErrInvalidUserID
	}

	content, err := entity.NormalizeMessageContent(in.Content)
	if err != nil {
		return nil, err
	}

	conv, err := s.conversations.GetByID(ctx, in.ConversationID)
	if err != nil {
		return nil, apperror.Persistence("getting conversation", err)
	}
	if conv == nil {
		return nil, entity.ErrConversationNotFound
	}
	if !conv.HasParticipant(in.SenderID) {
		return nil, entity.ErrNotParticipant
	}

	msg := &entity.Message{
		ConversationID: conv.ID,
		SenderID:       in.SenderID,
		Content:        content,
		SentAt:         s.now(),
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, apperror.Persistence("creating message", err)
	}

	if s.events != nil {
		s.events.Publish(ctx, events.MessageSent{
			ConversationID: conv.ID,
			MessageID:      msg.ID,
			SenderID:       msg.SenderID,
			RecipientID:    conv.OtherParticipant(msg.SenderID),
			SentAt:         msg.SentAt,
		})
	}

	return msg, nil
}

// GetMessagesInput represents input for reading a conversation's messages
type GetMessagesInput struct {
	ConversationID int64
	UserID         int64
	Limit          int
	Offset         int
}

// GetMessagesOutput represents a page of messages, newest first
type GetMessagesOutput struct {
	Messages []entity.Message `json:"messages"`
	Total    int64            `json:"total"`
	HasMore  bool             `json:"has_more"`
	Limit    int              `json:"limit"`
	Offset   int              `json:"offset"`
}

// GetMessages returns a page of messages for a participant
func (s *Service) GetMessages(ctx context.Context, in GetMessagesInput) (*GetMessagesOutput, error) {
	if in.ConversationID <= 0 {
		return nil, entity.ErrInvalidConversationID
	}

	ok, err := s.conversations.IsParticipant(ctx, in.ConversationID, in.UserID)
	if err != nil {
		return nil, apperror.Persistence("checking participant", err)
	}
	if !ok {
		// Tell a missing conversation apart from a foreign one
		conv, err := s.conversations.GetByID(ctx, in.ConversationID)
		if err != nil {
			return nil, apperror.Persistence("getting conversation", err)
		}
		if conv == nil {
			return nil, entity.ErrConversationNotFound
		}
		return nil, entity.ErrNotParticipant
	}

	limit, offset := entity.NormalizePage(in.Limit, in.Offset)

	msgs, err := s.messages.GetByConversationID(ctx, in.ConversationID, limit, offset)
	if err != nil {
		return nil, apperror.Persistence("getting messages", err)
	}
	if msgs == nil {
		msgs = []entity.Message{}
	}

	total, err := s.messages.Count(ctx, in.ConversationID)
	if err != nil {
		return nil, apperror.Persistence("counting messages", err)
	}

	return &GetMessagesOutput{
		Messages: msgs,
		Total:    total,
		HasMore:  int64(offset+len(msgs)) < total,
		Limit:    limit,
		Offset:   offset,
	}, nil
}
