package entity

import "github.com/vadim/impulsa-inbox/internal/apperror"

// Domain errors for conversations
var (
	ErrSelfConversation      = apperror.Validation("cannot start a conversation with yourself")
	ErrInvalidUserID         = apperror.Validation("user ids must be positive")
	ErrInvalidConversationID = apperror.Validation("conversation id must be positive")
	ErrInvalidProjectID      = apperror.Validation("project id must be positive")
	ErrEmptyMessage          = apperror.Validation("message content cannot be empty")
	ErrMessageTooLong        = apperror.Validation("message exceeds maximum length of 1000 characters")
	ErrConversationNotFound  = apperror.NotFound("conversation not found")
	ErrNotParticipant        = apperror.Forbidden("user is not a participant of this conversation")
)
