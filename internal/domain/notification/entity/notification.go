package entity

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Type represents the kind of a notification
type Type string

const (
	TypeWelcome             Type = "welcome"
	TypeFavorite            Type = "favorite"
	TypeMessage             Type = "message"
	TypeRating              Type = "rating"
	TypeNewProduct          Type = "new_product"
	TypeNewEntrepreneurship Type = "new_entrepreneurship"
	TypeNewInvestmentIdea   Type = "new_investment_idea"
	TypeSystem              Type = "system"
)

// Types lists every notification type
var Types = []Type{
	TypeWelcome,
	TypeFavorite,
	TypeMessage,
	TypeRating,
	TypeNewProduct,
	TypeNewEntrepreneurship,
	TypeNewInvestmentIdea,
	TypeSystem,
}

// Valid reports whether t is a known notification type
func (t Type) Valid() bool {
	for _, known := range Types {
		if t == known {
			return true
		}
	}
	return false
}

// Field limits
const (
	MaxTitleLength   = 255
	MaxMessageLength = 1000
)

// Pagination defaults
const (
	DefaultListLimit   = 20
	DefaultRecentLimit = 10
	MaxLimit           = 100
)

// Notification is a persisted, user-facing event record
type Notification struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	Type      Type       `json:"type"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Data      Payload    `json:"data,omitempty"`
	IsRead    bool       `json:"is_read"`
	CreatedAt time.Time  `json:"created_at"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
}

// Validate checks the invariants of a new notification.
// Title and message are trimmed in place.
func (n *Notification) Validate() error {
	if n.UserID <= 0 {
		return ErrInvalidUserID
	}
	if !n.Type.Valid() {
		return ErrInvalidType
	}

	n.Title = strings.TrimSpace(n.Title)
	if n.Title == "" {
		return ErrEmptyTitle
	}
	if utf8.RuneCountInString(n.Title) > MaxTitleLength {
		return ErrTitleTooLong
	}

	n.Message = strings.TrimSpace(n.Message)
	if n.Message == "" {
		return ErrEmptyMessage
	}
	if utf8.RuneCountInString(n.Message) > MaxMessageLength {
		return ErrMessageTooLong
	}

	if n.Data != nil {
		if !n.Data.Accepts(n.Type) {
			return ErrPayloadMismatch
		}
		if err := n.Data.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// Filter selects notifications of one user
type Filter struct {
	UserID int64
	Type   *Type
	IsRead *bool
	Limit  int
	Offset int
}
