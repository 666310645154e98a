// Package subscriber turns domain events into user notifications.
package subscriber

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vadim/impulsa-inbox/internal/domain/notification/entity"
	"github.com/vadim/impulsa-inbox/internal/domain/notification/service"
	userentity "github.com/vadim/impulsa-inbox/internal/domain/user/entity"
	"github.com/vadim/impulsa-inbox/internal/events"
)

// NotificationCreator creates typed notifications
type NotificationCreator interface {
	CreateWelcomeNotification(ctx context.Context, userID int64) (*entity.Notification, error)
	CreateFavoriteNotification(ctx context.Context, in service.FavoriteInput) (*entity.Notification, error)
	CreateMessageNotification(ctx context.Context, in service.MessageInput) (*entity.Notification, error)
	CreateRatingNotification(ctx context.Context, in service.RatingInput) (*entity.Notification, error)
}

// ProfileProvider resolves the display data of the acting user.
// Image keys are returned as stored; they are turned into URLs when the notification is read.
type ProfileProvider interface {
	StoredProfile(ctx context.Context, id int64) (*userentity.Profile, error)
}

// Registrar is where handlers are subscribed
type Registrar interface {
	Subscribe(name string, h events.Handler)
}

// Subscriber creates notifications for other modules' primary actions
type Subscriber struct {
	notifications NotificationCreator
	profiles      ProfileProvider
	logger        *slog.Logger
}

// New creates a new subscriber. profiles may be nil.
func New(notifications NotificationCreator, profiles ProfileProvider, logger *slog.Logger) *Subscriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &Subscriber{
		notifications: notifications,
		profiles:      profiles,
		logger:        logger,
	}
}

// Register subscribes every handler
func (s *Subscriber) Register(r Registrar) {
	r.Subscribe(events.NameMessageSent, s.HandleMessageSent)
	r.Subscribe(events.NameItemFavorited, s.HandleItemFavorited)
	r.Subscribe(events.NameUserRegistered, s.HandleUserRegistered)
	r.Subscribe(events.NameItemRated, s.HandleItemRated)
}

// HandleMessageSent notifies the recipient of a chat message
func (s *Subscriber) HandleMessageSent(ctx context.Context, env events.Envelope) error {
	ev, ok := env.Event.(events.MessageSent)
	if !ok {
		return fmt.Errorf("unexpected event %T", env.Event)
	}
	if s.skip(env, ev.RecipientID, ev.SenderID) {
		return nil
	}

	name, image := s.actor(ctx, ev.SenderID)

	_, err := s.notifications.CreateMessageNotification(ctx, service.MessageInput{
		RecipientID:    ev.RecipientID,
		SenderID:       ev.SenderID,
		SenderName:     name,
		ConversationID: ev.ConversationID,
		SenderImage:    image,
	})
	if err != nil {
		return fmt.Errorf("creating message notification: %w", err)
	}
	return nil
}

// HandleItemFavorited notifies an item owner about a new favorite
func (s *Subscriber) HandleItemFavorited(ctx context.Context, env events.Envelope) error {
	ev, ok := env.Event.(events.ItemFavorited)
	if !ok {
		return fmt.Errorf("unexpected event %T", env.Event)
	}
	if s.skip(env, ev.OwnerID, ev.ActorID) {
		return nil
	}

	name, image := ev.ActorName, ev.ActorImage
	if name == "" {
		name, image = s.actor(ctx, ev.ActorID)
	}

	_, err := s.notifications.CreateFavoriteNotification(ctx, service.FavoriteInput{
		RecipientID: ev.OwnerID,
		ActorID:     ev.ActorID,
		ActorName:   name,
		ItemType:    entity.ItemType(ev.ItemType),
		ItemID:      ev.ItemID,
		ActorImage:  image,
	})
	if err != nil {
		return fmt.Errorf("creating favorite notification: %w", err)
	}
	return nil
}

// HandleUserRegistered welcomes a new user
func (s *Subscriber) HandleUserRegistered(ctx context.Context, env events.Envelope) error {
	ev, ok := env.Event.(events.UserRegistered)
	if !ok {
		return fmt.Errorf("unexpected event %T", env.Event)
	}
	if ev.UserID <= 0 {
		s.logger.Debug("skipping event without recipient", "event", env.Event.EventName(), "event_id", env.ID.String())
		return nil
	}

	if _, err := s.notifications.CreateWelcomeNotification(ctx, ev.UserID); err != nil {
		return fmt.Errorf("creating welcome notification: %w", err)
	}
	return nil
}

// HandleItemRated notifies an item owner about a new rating
func (s *Subscriber) HandleItemRated(ctx context.Context, env events.Envelope) error {
	ev, ok := env.Event.(events.ItemRated)
	if !ok {
		return fmt.Errorf("unexpected event %T", env.Event)
	}
	if s.skip(env, ev.OwnerID, ev.ReviewerID) {
		return nil
	}

	name := ev.ReviewerName
	if name == "" {
		name, _ = s.actor(ctx, ev.ReviewerID)
	}

	_, err := s.notifications.CreateRatingNotification(ctx, service.RatingInput{
		RecipientID:  ev.OwnerID,
		ReviewerID:   ev.ReviewerID,
		ReviewerName: name,
		Rating:       ev.Rating,
		ItemType:     entity.ItemType(ev.ItemType),
		ItemID:       ev.ItemID,
	})
	if err != nil {
		return fmt.Errorf("creating rating notification: %w", err)
	}
	return nil
}

// skip reports whether no notification is due: nobody to notify, or users acting on their own items
func (s *Subscriber) skip(env events.Envelope, recipientID, actorID int64) bool {
	if recipientID <= 0 {
		s.logger.Debug("skipping event without recipient", "event", env.Event.EventName(), "event_id", env.ID.String())
		return true
	}
	if recipientID == actorID {
		s.logger.Debug("skipping self action", "event", env.Event.EventName(), "event_id", env.ID.String(), "user_id", actorID)
		return true
	}
	return false
}

// actor returns the display name and image of a user; lookups are best-effort
func (s *Subscriber) actor(ctx context.Context, userID int64) (string, string) {
	if s.profiles == nil {
		return userentity.FallbackName, ""
	}

	p, err := s.profiles.StoredProfile(ctx, userID)
	if err != nil {
		s.logger.Warn("failed to load actor profile", "user_id", userID, "error", err)
		return userentity.FallbackName, ""
	}
	if p == nil {
		return userentity.FallbackName, ""
	}
	return p.DisplayName(), p.ProfileImage
}
