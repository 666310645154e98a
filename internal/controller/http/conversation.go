package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vadim/impulsa-inbox/internal/domain/conversation/entity"
	"github.com/vadim/impulsa-inbox/internal/domain/conversation/policy"
	"github.com/vadim/impulsa-inbox/internal/domain/conversation/service"
	"github.com/vadim/impulsa-inbox/internal/httpx/response"
)

// ConversationPolicy defines the interface for conversation operations
type ConversationPolicy interface {
	ListConversations(ctx context.Context, callerID int64) ([]entity.Summary, error)
	OpenConversation(ctx context.Context, in policy.OpenConversationInput) (*entity.Conversation, error)
	GetConversation(ctx context.Context, callerID, conversationID int64) (*entity.Conversation, error)
	GetMessages(ctx context.Context, in policy.GetMessagesInput) (*service.GetMessagesOutput, error)
	SendMessage(ctx context.Context, in policy.SendMessageInput) (*entity.Message, error)
}

// ConversationHandler handles HTTP requests for chats
type ConversationHandler struct {
	policy ConversationPolicy
}

// NewConversationHandler creates a new conversation handler
func NewConversationHandler(p ConversationPolicy) *ConversationHandler {
	return &ConversationHandler{policy: p}
}

// RegisterRoutes registers chat routes
func (h *ConversationHandler) RegisterRoutes(r chi.Router) {
	r.Route("/chats", func(r chi.Router) {
		r.Get("/", h.List())
		r.Post("/", h.CreateOrGet())
		r.Get("/{chatId}", h.Get())
		r.Get("/{chatId}/messages", h.Messages())
		r.Post("/{chatId}/messages", h.Send())
	})
}

// ListConversationsResponse represents the response for listing chats
type ListConversationsResponse struct {
	Chats []entity.Summary `json:"chats"`
}

// List handles GET /chats
func (h *ConversationHandler) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := callerID(w, r)
		if !ok {
			return
		}

		chats, err := h.policy.ListConversations(r.Context(), caller)
		if err != nil {
			response.FromError(w, r, err)
			return
		}
		if chats == nil {
			chats = []entity.Summary{}
		}

		response.OK(w, ListConversationsResponse{Chats: chats})
	}
}

// CreateConversationRequest represents the request body for opening a chat
type CreateConversationRequest struct {
	User2ID   int64  `json:"user2_id"`
	ProjectID *int64 `json:"project_id,omitempty"`
}

// CreateOrGet handles POST /chats
func (h *ConversationHandler) CreateOrGet() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := callerID(w, r)
		if !ok {
			return
		}

		var req CreateConversationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "invalid JSON")
			return
		}
		if req.User2ID == 0 {
			response.BadRequest(w, "user2_id is required")
			return
		}

		conv, err := h.policy.OpenConversation(r.Context(), policy.OpenConversationInput{
			CallerID:    caller,
			OtherUserID: req.User2ID,
			ProjectID:   req.ProjectID,
		})
		if err != nil {
			response.FromError(w, r, err)
			return
		}

		response.OK(w, conv)
	}
}

// Get handles GET /chats/{chatId}
func (h *ConversationHandler) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := callerID(w, r)
		if !ok {
			return
		}
		chatID, ok := pathID(w, r, "chatId")
		if !ok {
			return
		}

		conv, err := h.policy.GetConversation(r.Context(), caller, chatID)
		if err != nil {
			response.FromError(w, r, err)
			return
		}

		response.OK(w, conv)
	}
}

// Messages handles GET /chats/{chatId}/messages
func (h *ConversationHandler) Messages() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := callerID(w, r)
		if !ok {
			return
		}
		chatID, ok := pathID(w, r, "chatId")
		if !ok {
			return
		}
		limit, ok := queryInt(w, r, "limit")
		if !ok {
			return
		}
		offset, ok := queryInt(w, r, "offset")
		if !ok {
			return
		}

		out, err := h.policy.GetMessages(r.Context(), policy.GetMessagesInput{
			CallerID:       caller,
			ConversationID: chatID,
			Limit:          limit,
			Offset:         offset,
		})
		if err != nil {
			response.FromError(w, r, err)
			return
		}
		if out.Messages == nil {
			out.Messages = []entity.Message{}
		}

		response.OK(w, out)
	}
}

// SendMessageRequest represents the request body for sending a message
type SendMessageRequest struct {
	Content string `json:"content"`
}

// Send handles POST /chats/{chatId}/messages
func (h *ConversationHandler) Send() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := callerID(w, r)
		if !ok {
			return
		}
		chatID, ok := pathID(w, r, "chatId")
		if !ok {
			return
		}

		var req SendMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "invalid JSON")
			return
		}

		msg, err := h.policy.SendMessage(r.Context(), policy.SendMessageInput{
			CallerID:       caller,
			ConversationID: chatID,
			Content:        req.Content,
		})
		if err != nil {
			response.FromError(w, r, err)
			return
		}

		response.Created(w, msg)
	}
}
