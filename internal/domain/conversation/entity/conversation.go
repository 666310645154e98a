package entity

import (
	"sort"
	"time"
)

// Conversation is a private thread between exactly two distinct users
type Conversation struct {
	ID        int64     `json:"id"`
	ProjectID *int64    `json:"project_id,omitempty"`
	User1ID   int64     `json:"user1_id"`
	User2ID   int64     `json:"user2_id"`
	CreatedAt time.Time `json:"created_at"`

	LastMessage  *Message      `json:"last_message,omitempty"`
	Participants []Participant `json:"participants,omitempty"`
}

// HasParticipant reports whether userID is one of the two participants
func (c *Conversation) HasParticipant(userID int64) bool {
	return userID > 0 && (c.User1ID == userID || c.User2ID == userID)
}

// OtherParticipant returns the id of the participant that is not userID
func (c *Conversation) OtherParticipant(userID int64) int64 {
	if c.User1ID == userID {
		return c.User2ID
	}
	return c.User1ID
}

// Participant is the public view of a conversation member
type Participant struct {
	ID           int64  `json:"id"`
	FullName     string `json:"full_name,omitempty"`
	Email        string `json:"email,omitempty"`
	ProfileImage string `json:"profile_image,omitempty"`
}

// Summary is one row of a user's inbox
type Summary struct {
	ID               int64       `json:"id"`
	ProjectID        *int64      `json:"project_id,omitempty"`
	OtherParticipant Participant `json:"other_participant"`
	LastMessage      *Message    `json:"last_message,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
	// UnreadCount is not tracked yet and is always 0
	UnreadCount int `json:"unread_count"`
}

// LastActivity is the last message time, or the creation time of an empty conversation
func (s *Summary) LastActivity() time.Time {
	if s.LastMessage != nil {
		return s.LastMessage.SentAt
	}
	return s.CreatedAt
}

// SortByActivity orders summaries by last activity, most recent first.
// Ties are broken by id descending so the order is deterministic.
func SortByActivity(summaries []Summary) {
	sort.SliceStable(summaries, func(i, j int) bool {
		ai, aj := summaries[i].LastActivity(), summaries[j].LastActivity()
		if !ai.Equal(aj) {
			return ai.After(aj)
		}
		return summaries[i].ID > summaries[j].ID
	})
}

// ValidatePair validates the two users of a new conversation
func ValidatePair(userA, userB int64) error {
	if userA <= 0 || userB <= 0 {
		return ErrInvalidUserID
	}
	if userA == userB {
		return ErrSelfConversation
	}
	return nil
}
