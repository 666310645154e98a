package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vadim/impulsa-inbox/internal/domain/conversation/entity"
	"github.com/vadim/impulsa-inbox/internal/domain/conversation/policy"
	"github.com/vadim/impulsa-inbox/internal/domain/conversation/service"
	"github.com/vadim/impulsa-inbox/internal/httpx/middleware"
)

type stubConversationPolicy struct {
	opened   *policy.OpenConversationInput
	messages *policy.GetMessagesInput
	sent     *policy.SendMessageInput
	err      error
}

func (s *stubConversationPolicy) ListConversations(_ context.Context, callerID int64) ([]entity.Summary, error) {
	if s.err != nil {
		return nil, s.err
	}
	return nil, nil
}

func (s *stubConversationPolicy) OpenConversation(_ context.Context, in policy.OpenConversationInput) (*entity.Conversation, error) {
	s.opened = &in
	if s.err != nil {
		return nil, s.err
	}
	return &entity.Conversation{ID: 5, User1ID: in.CallerID, User2ID: in.OtherUserID, ProjectID: in.ProjectID}, nil
}

func (s *stubConversationPolicy) GetConversation(_ context.Context, callerID, conversationID int64) (*entity.Conversation, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &entity.Conversation{ID: conversationID, User1ID: callerID, User2ID: 9}, nil
}

func (s *stubConversationPolicy) GetMessages(_ context.Context, in policy.GetMessagesInput) (*service.GetMessagesOutput, error) {
	s.messages = &in
	if s.err != nil {
		return nil, s.err
	}
	return &service.GetMessagesOutput{Limit: 50}, nil
}

func (s *stubConversationPolicy) SendMessage(_ context.Context, in policy.SendMessageInput) (*entity.Message, error) {
	s.sent = &in
	if s.err != nil {
		return nil, s.err
	}
	return &entity.Message{ID: 1, ConversationID: in.ConversationID, SenderID: in.CallerID, Content: in.Content, SentAt: time.Now()}, nil
}

func conversationRouter(p ConversationPolicy) http.Handler {
	r := chi.NewRouter()
	NewConversationHandler(p).RegisterRoutes(r)
	return r
}

func do(t *testing.T, h http.Handler, method, target, body string, caller int64) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if caller > 0 {
		req = req.WithContext(middleware.WithUserID(req.Context(), caller))
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	return body.Error
}

func TestConversationHandler_CreateOrGet(t *testing.T) {
	p := &stubConversationPolicy{}
	h := conversationRouter(p)

	rec := do(t, h, http.MethodPost, "/chats", `{"user2_id":2,"project_id":7}`, 1)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if p.opened.CallerID != 1 || p.opened.OtherUserID != 2 || *p.opened.ProjectID != 7 {
		t.Errorf("unexpected input %+v", p.opened)
	}

	var conv entity.Conversation
	if err := json.NewDecoder(rec.Body).Decode(&conv); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if conv.ID != 5 {
		t.Errorf("id = %d", conv.ID)
	}
}

func TestConversationHandler_BadRequests(t *testing.T) {
	h := conversationRouter(&stubConversationPolicy{})

	tests := []struct {
		name   string
		method string
		target string
		body   string
		caller int64
		want   int
	}{
		{"anonymous", http.MethodGet, "/chats", "", 0, http.StatusUnauthorized},
		{"invalid json", http.MethodPost, "/chats", `{`, 1, http.StatusBadRequest},
		{"missing user2", http.MethodPost, "/chats", `{}`, 1, http.StatusBadRequest},
		{"bad chat id", http.MethodGet, "/chats/abc", "", 1, http.StatusBadRequest},
		{"bad limit", http.MethodGet, "/chats/1/messages?limit=x", "", 1, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.target, tt.body, tt.caller)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestConversationHandler_DomainErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", entity.ErrConversationNotFound, http.StatusNotFound},
		{"not participant", entity.ErrNotParticipant, http.StatusForbidden},
		{"empty message", entity.ErrEmptyMessage, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := conversationRouter(&stubConversationPolicy{err: tt.err})
			rec := do(t, h, http.MethodPost, "/chats/3/messages", `{"content":"hola"}`, 1)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if msg := errorMessage(t, rec); msg != tt.err.Error() {
				t.Errorf("error = %q", msg)
			}
		})
	}
}

func TestConversationHandler_MessagesAndSend(t *testing.T) {
	p := &stubConversationPolicy{}
	h := conversationRouter(p)

	rec := do(t, h, http.MethodGet, "/chats/3/messages?limit=10&offset=20", "", 4)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if p.messages.ConversationID != 3 || p.messages.CallerID != 4 || p.messages.Limit != 10 || p.messages.Offset != 20 {
		t.Errorf("unexpected input %+v", p.messages)
	}
	if !strings.Contains(rec.Body.String(), `"messages":[]`) {
		t.Errorf("expected empty messages array, got %s", rec.Body.String())
	}

	rec = do(t, h, http.MethodPost, "/chats/3/messages", `{"content":"hola"}`, 4)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	if p.sent.Content != "hola" || p.sent.CallerID != 4 {
		t.Errorf("unexpected input %+v", p.sent)
	}
}
