package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vadim/impulsa-inbox/internal/domain/notification/entity"
	"github.com/vadim/impulsa-inbox/internal/domain/notification/policy"
	"github.com/vadim/impulsa-inbox/internal/domain/notification/service"
	"github.com/vadim/impulsa-inbox/internal/httpx/response"
)

// NotificationPolicy defines the interface for notification operations
type NotificationPolicy interface {
	List(ctx context.Context, in policy.ListInput) (*service.ListOutput, error)
	Recent(ctx context.Context, callerID int64, limit int) ([]entity.Notification, error)
	UnreadCount(ctx context.Context, callerID int64) (int64, error)
	Get(ctx context.Context, callerID, id int64) (*entity.Notification, error)
	MarkAsRead(ctx context.Context, callerID, id int64) (*entity.Notification, error)
	MarkAllAsRead(ctx context.Context, callerID int64) (int64, error)
	Delete(ctx context.Context, callerID, id int64) error
	Create(ctx context.Context, in policy.CreateInput) (*entity.Notification, error)
	Welcome(ctx context.Context, callerID int64) (*entity.Notification, error)
}

// NotificationHandler handles HTTP requests for notifications
type NotificationHandler struct {
	policy NotificationPolicy
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(p NotificationPolicy) *NotificationHandler {
	return &NotificationHandler{policy: p}
}

// RegisterRoutes registers notification routes
func (h *NotificationHandler) RegisterRoutes(r chi.Router) {
	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", h.List())
		r.Get("/recent", h.Recent())
		r.Get("/unread-count", h.UnreadCount())

		r.Put("/mark-read", h.MarkRead())
		r.Put("/read-all", h.MarkAllRead())

		r.Post("/create", h.Create())
		r.Post("/welcome", h.Welcome())

		r.Get("/{notificationId}", h.Get())
		r.Put("/{notificationId}/read", h.MarkOneRead())
		r.Delete("/{notificationId}", h.Delete())
	})
}

// List handles GET /notifications
func (h *NotificationHandler) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := callerID(w, r)
		if !ok {
			return
		}

		in := policy.ListInput{CallerID: caller}

		if t := r.URL.Query().Get("type"); t != "" {
			nt := entity.Type(t)
			in.Type = &nt
		}
		if s := r.URL.Query().Get("is_read"); s != "" {
			isRead, err := strconv.ParseBool(s)
			if err != nil {
				response.BadRequest(w, "is_read must be true or false")
				return
			}
			in.IsRead = &isRead
		}
		if in.Limit, ok = queryInt(w, r, "limit"); !ok {
			return
		}
		if in.Offset, ok = queryInt(w, r, "offset"); !ok {
			return
		}

		out, err := h.policy.List(r.Context(), in)
		if err != nil {
			response.FromError(w, r, err)
			return
		}
		if out.Notifications == nil {
			out.Notifications = []entity.Notification{}
		}

		response.OK(w, out)
	}
}

// RecentResponse represents the response for recent notifications
type RecentResponse struct {
	Notifications []entity.Notification `json:"notifications"`
}

// Recent handles GET /notifications/recent
func (h *NotificationHandler) Recent() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := callerID(w, r)
		if !ok {
			return
		}
		limit, ok := queryInt(w, r, "limit")
		if !ok {
			return
		}

		items, err := h.policy.Recent(r.Context(), caller, limit)
		if err != nil {
			response.FromError(w, r, err)
			return
		}
		if items == nil {
			items = []entity.Notification{}
		}

		response.OK(w, RecentResponse{Notifications: items})
	}
}

// UnreadCountResponse represents the unread counter
type UnreadCountResponse struct {
	Count int64 `json:"count"`
}

// UnreadCount handles GET /notifications/unread-count
func (h *NotificationHandler) UnreadCount() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := callerID(w, r)
		if !ok {
			return
		}

		count, err := h.policy.UnreadCount(r.Context(), caller)
		if err != nil {
			response.FromError(w, r, err)
			return
		}

		response.OK(w, UnreadCountResponse{Count: count})
	}
}

// Get handles GET /notifications/{notificationId}
func (h *NotificationHandler) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := callerID(w, r)
		if !ok {
			return
		}
		id, ok := pathID(w, r, "notificationId")
		if !ok {
			return
		}

		n, err := h.policy.Get(r.Context(), caller, id)
		if err != nil {
			response.FromError(w, r, err)
			return
		}

		response.OK(w, n)
	}
}

// MarkReadRequest represents the request body for PUT /notifications/mark-read
type MarkReadRequest struct {
	NotificationID int64 `json:"notification_id,omitempty"`
	MarkAll        bool  `json:"mark_all,omitempty"`
}

// MarkAllResponse reports how many notifications were marked read
type MarkAllResponse struct {
	Updated int64 `json:"updated"`
}

// MarkRead handles PUT /notifications/mark-read
func (h *NotificationHandler) MarkRead() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := callerID(w, r)
		if !ok {
			return
		}

		var req MarkReadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "invalid JSON")
			return
		}

		if req.MarkAll {
			h.markAll(w, r, caller)
			return
		}
		if req.NotificationID <= 0 {
			response.BadRequest(w, "notification_id or mark_all is required")
			return
		}

		n, err := h.policy.MarkAsRead(r.Context(), caller, req.NotificationID)
		if err != nil {
			response.FromError(w, r, err)
			return
		}

		response.OK(w, n)
	}
}

// MarkOneRead handles PUT /notifications/{notificationId}/read
func (h *NotificationHandler) MarkOneRead() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := callerID(w, r)
		if !ok {
			return
		}
		id, ok := pathID(w, r, "notificationId")
		if !ok {
			return
		}

		n, err := h.policy.MarkAsRead(r.Context(), caller, id)
		if err != nil {
			response.FromError(w, r, err)
			return
		}

		response.OK(w, n)
	}
}

// MarkAllRead handles PUT /notifications/read-all
func (h *NotificationHandler) MarkAllRead() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := callerID(w, r)
		if !ok {
			return
		}
		h.markAll(w, r, caller)
	}
}

func (h *NotificationHandler) markAll(w http.ResponseWriter, r *http.Request, caller int64) {
	updated, err := h.policy.MarkAllAsRead(r.Context(), caller)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.OK(w, MarkAllResponse{Updated: updated})
}

// Delete handles DELETE /notifications/{notificationId}
func (h *NotificationHandler) Delete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := callerID(w, r)
		if !ok {
			return
		}
		id, ok := pathID(w, r, "notificationId")
		if !ok {
			return
		}

		if err := h.policy.Delete(r.Context(), caller, id); err != nil {
			response.FromError(w, r, err)
			return
		}

		response.NoContent(w)
	}
}

// CreateNotificationRequest represents the request body for the administrative create
type CreateNotificationRequest struct {
	UserID  int64           `json:"user_id"`
	Type    entity.Type     `json:"type"`
	Title   string          `json:"title"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Create handles POST /notifications/create
func (h *NotificationHandler) Create() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := callerID(w, r); !ok {
			return
		}

		var req CreateNotificationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "invalid JSON")
			return
		}

		n, err := h.policy.Create(r.Context(), policy.CreateInput{
			UserID:  req.UserID,
			Type:    req.Type,
			Title:   req.Title,
			Message: req.Message,
			Data:    req.Data,
		})
		if err != nil {
			response.FromError(w, r, err)
			return
		}

		response.Created(w, n)
	}
}

// Welcome handles POST /notifications/welcome
func (h *NotificationHandler) Welcome() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := callerID(w, r)
		if !ok {
			return
		}

		n, err := h.policy.Welcome(r.Context(), caller)
		if err != nil {
			response.FromError(w, r, err)
			return
		}

		response.Created(w, n)
	}
}
