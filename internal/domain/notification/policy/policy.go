package policy

import (
	"context"

	"github.com/vadim/impulsa-inbox/internal/domain/notification/entity"
	"github.com/vadim/impulsa-inbox/internal/domain/notification/service"
)

// NotificationService defines the interface for the notification service
type NotificationService interface {
	CreateNotification(ctx context.Context, in service.CreateInput) (*entity.Notification, error)
	CreateWelcomeNotification(ctx context.Context, userID int64) (*entity.Notification, error)
	GetUserNotifications(ctx context.Context, in service.ListInput) (*service.ListOutput, error)
	GetNotification(ctx context.Context, id int64) (*entity.Notification, error)
	MarkAsRead(ctx context.Context, id int64) (*entity.Notification, error)
	MarkAllAsRead(ctx context.Context, userID int64) (int64, error)
	DeleteNotification(ctx context.Context, id int64) error
	GetUnreadCount(ctx context.Context, userID int64) (int64, error)
	GetRecentNotifications(ctx context.Context, userID int64, limit int) ([]entity.Notification, error)
}

// ImageResolver turns a stored image key into a URL clients can load
type ImageResolver interface {
	ImageURL(ctx context.Context, key string) (string, error)
}

// Policy restricts notification operations to the notifications the caller owns.
// Foreign notifications are reported as not found.
type Policy struct {
	svc    NotificationService
	images ImageResolver
}

// New creates a new notification policy. images may be nil, in which case
// payload images are returned as stored.
func New(svc NotificationService, images ImageResolver) *Policy {
	return &Policy{svc: svc, images: images}
}

// ListInput represents input for listing the caller's notifications
type ListInput struct {
	CallerID int64
	Type     *entity.Type
	IsRead   *bool
	Limit    int
	Offset   int
}

// List returns a page of the caller's notifications
func (p *Policy) List(ctx context.Context, in ListInput) (*service.ListOutput, error) {
	out, err := p.svc.GetUserNotifications(ctx, service.ListInput{
		UserID: in.CallerID,
		Type:   in.Type,
		IsRead: in.IsRead,
		Limit:  in.Limit,
		Offset: in.Offset,
	})
	if err != nil {
		return nil, err
	}
	for i := range out.Notifications {
		p.resolveImage(ctx, &out.Notifications[i])
	}
	return out, nil
}

// Recent returns the caller's newest notifications
func (p *Policy) Recent(ctx context.Context, callerID int64, limit int) ([]entity.Notification, error) {
	list, err := p.svc.GetRecentNotifications(ctx, callerID, limit)
	if err != nil {
		return nil, err
	}
	for i := range list {
		p.resolveImage(ctx, &list[i])
	}
	return list, nil
}

// UnreadCount returns the caller's unread notification count
func (p *Policy) UnreadCount(ctx context.Context, callerID int64) (int64, error) {
	return p.svc.GetUnreadCount(ctx, callerID)
}

// Get returns one of the caller's notifications
func (p *Policy) Get(ctx context.Context, callerID, id int64) (*entity.Notification, error) {
	n, err := p.owned(ctx, callerID, id)
	if err != nil {
		return nil, err
	}
	p.resolveImage(ctx, n)
	return n, nil
}

func (p *Policy) owned(ctx context.Context, callerID, id int64) (*entity.Notification, error) {
	n, err := p.svc.GetNotification(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.UserID != callerID {
		return nil, entity.ErrNotificationNotFound
	}
	return n, nil
}

// MarkAsRead marks one of the caller's notifications read
func (p *Policy) MarkAsRead(ctx context.Context, callerID, id int64) (*entity.Notification, error) {
	if _, err := p.owned(ctx, callerID, id); err != nil {
		return nil, err
	}
	n, err := p.svc.MarkAsRead(ctx, id)
	if err != nil {
		return nil, err
	}
	p.resolveImage(ctx, n)
	return n, nil
}

// MarkAllAsRead marks all of the caller's notifications read
func (p *Policy) MarkAllAsRead(ctx context.Context, callerID int64) (int64, error) {
	return p.svc.MarkAllAsRead(ctx, callerID)
}

// Delete removes one of the caller's notifications
func (p *Policy) Delete(ctx context.Context, callerID, id int64) error {
	if _, err := p.owned(ctx, callerID, id); err != nil {
		return err
	}
	return p.svc.DeleteNotification(ctx, id)
}

// CreateInput represents input for the administrative create operation
type CreateInput struct {
	UserID  int64
	Type    entity.Type
	Title   string
	Message string
	Data    []byte
}

// Create stores a notification for any user. Used by administrative and testing tools.
func (p *Policy) Create(ctx context.Context, in CreateInput) (*entity.Notification, error) {
	if !in.Type.Valid() {
		return nil, entity.ErrInvalidType
	}

	data, err := entity.DecodePayload(in.Type, in.Data)
	if err != nil {
		return nil, err
	}

	n, err := p.svc.CreateNotification(ctx, service.CreateInput{
		UserID:  in.UserID,
		Type:    in.Type,
		Title:   in.Title,
		Message: in.Message,
		Data:    data,
	})
	if err != nil {
		return nil, err
	}
	p.resolveImage(ctx, n)
	return n, nil
}

// Welcome sends the welcome notification to the caller
func (p *Policy) Welcome(ctx context.Context, callerID int64) (*entity.Notification, error) {
	return p.svc.CreateWelcomeNotification(ctx, callerID)
}

// resolveImage replaces the stored image key of a payload with a loadable URL.
// Failures drop the image instead of failing the read.
func (p *Policy) resolveImage(ctx context.Context, n *entity.Notification) {
	if p.images == nil || n == nil {
		return
	}

	switch d := n.Data.(type) {
	case entity.MessagePayload:
		d.SenderImage = p.imageURL(ctx, d.SenderImage)
		n.Data = d
	case entity.FavoritePayload:
		d.ActorImage = p.imageURL(ctx, d.ActorImage)
		n.Data = d
	}
}

func (p *Policy) imageURL(ctx context.Context, key string) string {
	if key == "" {
		return ""
	}
	url, err := p.images.ImageURL(ctx, key)
	if err != nil {
		return ""
	}
	return url
}
