package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/vadim/impulsa-inbox/internal/apperror"
	"github.com/vadim/impulsa-inbox/internal/domain/notification/entity"
	userentity "github.com/vadim/impulsa-inbox/internal/domain/user/entity"
)

// NotificationRepository defines the interface for notification storage
type NotificationRepository interface {
	Create(ctx context.Context, n *entity.Notification) error
	// GetByID returns nil when the notification does not exist
	GetByID(ctx context.Context, id int64) (*entity.Notification, error)
	GetByUserID(ctx context.Context, f entity.Filter) ([]entity.Notification, error)
	Count(ctx context.Context, f entity.Filter) (int64, error)
	GetRecentByUserID(ctx context.Context, userID int64, limit int) ([]entity.Notification, error)
	// MarkAsRead returns nil when the notification does not exist
	MarkAsRead(ctx context.Context, id int64, readAt time.Time) (*entity.Notification, error)
	MarkAllAsRead(ctx context.Context, userID int64, readAt time.Time) (int64, error)
	Delete(ctx context.Context, id int64) (bool, error)
	GetUnreadCount(ctx context.Context, userID int64) (int64, error)
	DeleteReadBefore(ctx context.Context, before time.Time) (int64, error)
}

// Service handles notification business logic
type Service struct {
	repo   NotificationRepository
	logger *slog.Logger
	now    func() time.Time
}

// New creates a new notification service
func New(repo NotificationRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CreateInput represents input for creating a notification
type CreateInput struct {
	UserID  int64
	Type    entity.Type
	Title   string
	Message string
	Data    entity.Payload
}

// CreateNotification validates and stores an unread notification
func (s *Service) CreateNotification(ctx context.Context, in CreateInput) (*entity.Notification, error) {
	return s.create(ctx, &entity.Notification{
		UserID:  in.UserID,
		Type:    in.Type,
		Title:   in.Title,
		Message: in.Message,
		Data:    in.Data,
	})
}

// CreateWelcomeNotification greets a newly registered user
func (s *Service) CreateWelcomeNotification(ctx context.Context, userID int64) (*entity.Notification, error) {
	return s.create(ctx, entity.Welcome(userID))
}

// FavoriteInput represents input for a favorite notification
type FavoriteInput struct {
	RecipientID int64
	ActorID     int64
	ActorName   string
	ItemType    entity.ItemType
	ItemID      int64
	ActorImage  string
}

// CreateFavoriteNotification tells an item owner that someone favorited the item
func (s *Service) CreateFavoriteNotification(ctx context.Context, in FavoriteInput) (*entity.Notification, error) {
	if !in.ItemType.Valid() {
		return nil, entity.ErrInvalidItemType
	}
	return s.create(ctx, entity.Favorite(in.RecipientID, in.ActorID, displayName(in.ActorName), in.ItemType, in.ItemID, in.ActorImage))
}

// MessageInput represents input for a message notification
type MessageInput struct {
	RecipientID    int64
	SenderID       int64
	SenderName     string
	ConversationID int64
	SenderImage    string
}

// CreateMessageNotification tells a user they received a chat message
func (s *Service) CreateMessageNotification(ctx context.Context, in MessageInput) (*entity.Notification, error) {
	return s.create(ctx, entity.NewMessage(in.RecipientID, in.SenderID, displayName(in.SenderName), in.ConversationID, in.SenderImage))
}

// RatingInput represents input for a rating notification
type RatingInput struct {
	RecipientID  int64
	ReviewerID   int64
	ReviewerName string
	Rating       float64
	ItemType     entity.ItemType
	ItemID       int64
}

// CreateRatingNotification tells an item owner that the item was rated
func (s *Service) CreateRatingNotification(ctx context.Context, in RatingInput) (*entity.Notification, error) {
	if !in.ItemType.Valid() {
		return nil, entity.ErrInvalidItemType
	}
	if in.Rating < 1 || in.Rating > 5 {
		return nil, entity.ErrInvalidRating
	}
	return s.create(ctx, entity.Rating(in.RecipientID, in.ReviewerID, displayName(in.ReviewerName), in.Rating, in.ItemType, in.ItemID))
}

func (s *Service) create(ctx context.Context, n *entity.Notification) (*entity.Notification, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}

	n.IsRead = false
	n.ReadAt = nil
	n.CreatedAt = s.now()

	if err := s.repo.Create(ctx, n); err != nil {
		return nil, apperror.Persistence("creating notification", err)
	}

	s.logger.Debug("notification created", "notification_id", n.ID, "user_id", n.UserID, "type", n.Type)
	return n, nil
}

// ListInput represents input for listing a user's notifications
type ListInput struct {
	UserID int64
	Type   *entity.Type
	IsRead *bool
	Limit  int
	Offset int
}

// ListOutput represents a page of notifications, newest first
type ListOutput struct {
	Notifications []entity.Notification `json:"notifications"`
	Total         int64                 `json:"total"`
	HasMore       bool                  `json:"has_more"`
	Limit         int                   `json:"limit"`
	Offset        int                   `json:"offset"`
}

// GetUserNotifications returns a filtered page of a user's notifications
func (s *Service) GetUserNotifications(ctx context.Context, in ListInput) (*ListOutput, error) {
	if in.UserID <= 0 {
		return nil, entity.ErrInvalidUserID
	}
	if in.Type != nil && !in.Type.Valid() {
		return nil, entity.ErrInvalidType
	}

	limit := in.Limit
	switch {
	case limit == 0:
		limit = entity.DefaultListLimit
	case limit < 1:
		limit = 1
	case limit > entity.MaxLimit:
		limit = entity.MaxLimit
	}
	offset := max(in.Offset, 0)

	filter := entity.Filter{
		UserID: in.UserID,
		Type:   in.Type,
		IsRead: in.IsRead,
		Limit:  limit,
		Offset: offset,
	}

	items, err := s.repo.GetByUserID(ctx, filter)
	if err != nil {
		return nil, apperror.Persistence("listing notifications", err)
	}
	if items == nil {
		items = []entity.Notification{}
	}

	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, apperror.Persistence("counting notifications", err)
	}

	return &ListOutput{
		Notifications: items,
		Total:         total,
		HasMore:       int64(offset+len(items)) < total,
		Limit:         limit,
		Offset:        offset,
	}, nil
}

// GetNotification returns a notification by ID
func (s *Service) GetNotification(ctx context.Context, id int64) (*entity.Notification, error) {
	if id <= 0 {
		return nil, entity.ErrInvalidID
	}

	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.Persistence("getting notification", err)
	}
	if n == nil {
		return nil, entity.ErrNotificationNotFound
	}
	return n, nil
}

// MarkAsRead marks a notification read. Repeated calls succeed and keep the
// time of the first read.
func (s *Service) MarkAsRead(ctx context.Context, id int64) (*entity.Notification, error) {
	if id <= 0 {
		return nil, entity.ErrInvalidID
	}

	n, err := s.repo.MarkAsRead(ctx, id, s.now())
	if err != nil {
		return nil, apperror.Persistence("marking notification read", err)
	}
	if n == nil {
		return nil, entity.ErrNotificationNotFound
	}
	return n, nil
}

// MarkAllAsRead marks every unread notification of a user read and returns how many changed
func (s *Service) MarkAllAsRead(ctx context.Context, userID int64) (int64, error) {
	if userID <= 0 {
		return 0, entity.ErrInvalidUserID
	}

	affected, err := s.repo.MarkAllAsRead(ctx, userID, s.now())
	if err != nil {
		return 0, apperror.Persistence("marking notifications read", err)
	}
	return affected, nil
}

// DeleteNotification removes a notification permanently
func (s *Service) DeleteNotification(ctx context.Context, id int64) error {
	if id <= 0 {
		return entity.ErrInvalidID
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return apperror.Persistence("deleting notification", err)
	}
	if !deleted {
		return entity.ErrNotificationNotFound
	}
	return nil
}

// GetUnreadCount returns the number of unread notifications of a user
func (s *Service) GetUnreadCount(ctx context.Context, userID int64) (int64, error) {
	if userID <= 0 {
		return 0, entity.ErrInvalidUserID
	}

	count, err := s.repo.GetUnreadCount(ctx, userID)
	if err != nil {
		return 0, apperror.Persistence("counting unread notifications", err)
	}
	return count, nil
}

// GetRecentNotifications returns the newest notifications of a user.
// A zero limit uses the default; larger limits are capped.
func (s *Service) GetRecentNotifications(ctx context.Context, userID int64, limit int) ([]entity.Notification, error) {
	if userID <= 0 {
		return nil, entity.ErrInvalidUserID
	}
	if limit < 0 {
		return nil, entity.ErrInvalidLimit
	}
	if limit == 0 {
		limit = entity.DefaultRecentLimit
	}
	if limit > entity.MaxLimit {
		limit = entity.MaxLimit
	}

	items, err := s.repo.GetRecentByUserID(ctx, userID, limit)
	if err != nil {
		return nil, apperror.Persistence("getting recent notifications", err)
	}
	if items == nil {
		items = []entity.Notification{}
	}
	return items, nil
}

func displayName(name string) string {
	if name = strings.TrimSpace(name); name == "" {
		return userentity.FallbackName
	}
	return name
}

// PurgeReadNotifications deletes notifications that were read more than maxAge ago.
// Unread notifications are never purged.
func (s *Service) PurgeReadNotifications(ctx context.Context, maxAge time.Duration) (int64, error) {
	if maxAge <= 0 {
		return 0, apperror.Validation("retention age must be positive")
	}

	removed, err := s.repo.DeleteReadBefore(ctx, s.now().Add(-maxAge))
	if err != nil {
		return 0, apperror.Persistence("purging read notifications", err)
	}
	return removed, nil
}
