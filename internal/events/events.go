// Package events carries domain events between bounded contexts.
//
// Producers depend only on Publisher; consumers register a Handler per event
// name. A failing consumer never fails the producer's operation.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event names
const (
	NameMessageSent    = "conversation.message_sent"
	NameItemFavorited  = "favorite.item_favorited"
	NameUserRegistered = "user.registered"
	NameItemRated      = "rating.item_rated"
)

// Event is a domain fact published after it has been persisted
type Event interface {
	EventName() string
}

// Envelope wraps an event with delivery metadata
type Envelope struct {
	ID         uuid.UUID
	OccurredAt time.Time
	Event      Event
}

// Handler consumes one event. Returned errors are logged, never propagated.
type Handler func(ctx context.Context, env Envelope) error

// Publisher publishes events
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

// MessageSent is published after a message has been stored
type MessageSent struct {
	ConversationID int64
	MessageID      int64
	SenderID       int64
	RecipientID    int64
	SentAt         time.Time
}

func (MessageSent) EventName() string { return NameMessageSent }

// ItemFavorited is published when a user adds someone's item to favorites
type ItemFavorited struct {
	ActorID    int64
	ActorName  string
	ActorImage string
	OwnerID    int64
	ItemType   string
	ItemID     int64
}

func (ItemFavorited) EventName() string { return NameItemFavorited }

// UserRegistered is published once a new account exists
type UserRegistered struct {
	UserID int64
}

func (UserRegistered) EventName() string { return NameUserRegistered }

// ItemRated is published when a user rates someone's item
type ItemRated struct {
	ReviewerID   int64
	ReviewerName string
	OwnerID      int64
	Rating       float64
	ItemType     string
	ItemID       int64
}

func (ItemRated) EventName() string { return NameItemRated }
