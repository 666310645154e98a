package entity

import (
	"strings"
	"time"
	"unicode/utf8"
)

// MaxMessageLength is the maximum length of a message, in characters
const MaxMessageLength = 1000

// Message pagination defaults
const (
	DefaultMessagesLimit = 50
	MaxMessagesLimit     = 100
)

// Message is a single text message inside a conversation
type Message struct {
	ID             int64        `json:"id"`
	ConversationID int64        `json:"conversation_id"`
	SenderID       int64        `json:"sender_id"`
	Content        string       `json:"content"`
	SentAt         time.Time    `json:"sent_at"`
	Sender         *Participant `json:"sender,omitempty"`
}

// NormalizeMessageContent trims content and validates its length
func NormalizeMessageContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", ErrEmptyMessage
	}
	if utf8.RuneCountInString(content) > MaxMessageLength {
		return "", ErrMessageTooLong
	}
	return content, nil
}

// NormalizePage applies message pagination defaults.
// A zero limit means "not given"; other limits are clamped into [1, MaxMessagesLimit].
func NormalizePage(limit, offset int) (int, int) {
	switch {
	case limit == 0:
		limit = DefaultMessagesLimit
	case limit < 1:
		limit = 1
	case limit > MaxMessagesLimit:
		limit = MaxMessagesLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
